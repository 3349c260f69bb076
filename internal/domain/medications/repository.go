package medications

import "context"

type Repository interface {
	Create(ctx context.Context, m Medication) error
	GetByID(ctx context.Context, id string) (Medication, error)
	List(ctx context.Context) ([]Medication, error)
	// Delete borra el medicamento y sus fuentes. Los componentes de dosis
	// que lo referencian quedan colgando a propósito.
	Delete(ctx context.Context, id string) error

	CreateSource(ctx context.Context, s StockSource) error
	GetSourceByID(ctx context.Context, id string) (StockSource, error)
	// ListSourcesByMedication retorna las fuentes ordenadas por created_at asc.
	ListSourcesByMedication(ctx context.Context, medicationID string) ([]StockSource, error)
	UpdateSource(ctx context.Context, s StockSource) error
}
