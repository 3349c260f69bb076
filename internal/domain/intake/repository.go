package intake

import (
	"context"
	"time"
)

type Repository interface {
	// CreateLog persiste el log y sus deducciones como una sola unidad:
	// o entra todo o no entra nada.
	CreateLog(ctx context.Context, l IntakeLog, deductions []StockDeduction) error

	GetLogByID(ctx context.Context, id string) (IntakeLog, error)

	// ListLogsBetween retorna los logs con scheduled_for en [from, to),
	// ordenados por scheduled_for asc.
	ListLogsBetween(ctx context.Context, from, to time.Time) ([]IntakeLog, error)

	ListDeductionsByLog(ctx context.Context, logID string) ([]StockDeduction, error)

	// DeleteLog borra el log y sus deducciones.
	DeleteLog(ctx context.Context, id string) error
}
