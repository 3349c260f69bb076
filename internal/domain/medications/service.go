package medications

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")

	// ErrInsufficientStock: ninguna combinación de fuentes contadas alcanza
	// la cantidad pedida. El descuento parcial ya fue revertido al retornar.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Service es el libro de stock: dueño de Medication/StockSource y de toda
// la aritmética de descuento. No sabe nada de tomas ni de planes.
type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

type CreateInput struct {
	Name          string
	Form          string
	StrengthValue float64
	StrengthUnit  string
}

func (s *Service) Create(ctx context.Context, in CreateInput) (Medication, error) {
	if strings.TrimSpace(in.Name) == "" {
		return Medication{}, ErrInvalidInput
	}
	if in.StrengthValue < 0 {
		return Medication{}, ErrInvalidInput
	}

	form := Form(strings.TrimSpace(in.Form))
	if form == "" {
		form = FormOther
	}

	m := Medication{
		ID:            uuid.NewString(),
		Name:          strings.TrimSpace(in.Name),
		Form:          form,
		StrengthValue: in.StrengthValue,
		StrengthUnit:  strings.TrimSpace(in.StrengthUnit),
		CreatedAt:     s.now(),
	}

	if err := s.repo.Create(ctx, m); err != nil {
		return Medication{}, err
	}
	return m, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Medication, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Medication{}, ErrInvalidInput
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Medication, error) {
	return s.repo.List(ctx)
}

// Delete borra el medicamento y sus fuentes. Componentes y registros de
// toma que lo referencian quedan huérfanos; los lectores los excluyen.
func (s *Service) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrInvalidInput
	}
	return s.repo.Delete(ctx, id)
}

type AddSourceInput struct {
	MedicationID      string
	Label             string
	InitialQuantity   *int
	CountingEnabled   bool
	LowStockThreshold *int
	ExpiryDate        *time.Time
}

func (s *Service) AddSource(ctx context.Context, in AddSourceInput) (StockSource, error) {
	medID := strings.TrimSpace(in.MedicationID)
	if medID == "" {
		return StockSource{}, ErrInvalidInput
	}
	if in.InitialQuantity != nil && *in.InitialQuantity < 0 {
		return StockSource{}, ErrInvalidInput
	}

	// La fuente pertenece a un medicamento existente; acá sí validamos.
	if _, err := s.repo.GetByID(ctx, medID); err != nil {
		return StockSource{}, err
	}

	threshold := DefaultLowStockThreshold
	if in.LowStockThreshold != nil && *in.LowStockThreshold > 0 {
		threshold = *in.LowStockThreshold
	}

	now := s.now()
	src := StockSource{
		ID:                uuid.NewString(),
		MedicationID:      medID,
		Label:             strings.TrimSpace(in.Label),
		InitialQuantity:   in.InitialQuantity,
		LowStockThreshold: threshold,
		ExpiryDate:        in.ExpiryDate,
		CreatedAt:         now,
	}

	if in.CountingEnabled && in.InitialQuantity != nil {
		q := *in.InitialQuantity
		src.CountingEnabled = true
		src.CurrentQuantity = &q
		src.CountingSince = &now
	}

	if err := s.repo.CreateSource(ctx, src); err != nil {
		return StockSource{}, err
	}
	return src, nil
}

func (s *Service) ListSources(ctx context.Context, medicationID string) ([]StockSource, error) {
	return s.repo.ListSourcesByMedication(ctx, strings.TrimSpace(medicationID))
}

// EnableCounting activa el conteo sobre una fuente: fija la cantidad
// inicial/actual y estampa el momento de activación.
func (s *Service) EnableCounting(ctx context.Context, sourceID string, initialQuantity int) (StockSource, error) {
	sourceID = strings.TrimSpace(sourceID)
	if sourceID == "" || initialQuantity < 0 {
		return StockSource{}, ErrInvalidInput
	}

	src, err := s.repo.GetSourceByID(ctx, sourceID)
	if err != nil {
		return StockSource{}, err
	}

	now := s.now()
	q := initialQuantity
	cur := initialQuantity

	src.CountingEnabled = true
	src.InitialQuantity = &q
	src.CurrentQuantity = &cur
	src.CountingSince = &now

	if err := s.repo.UpdateSource(ctx, src); err != nil {
		return StockSource{}, err
	}
	return src, nil
}

// CurrentStock suma las cantidades de las fuentes contadas del medicamento.
// Fuentes sin cantidad o con conteo apagado aportan 0.
func (s *Service) CurrentStock(ctx context.Context, medicationID string) (int, error) {
	sources, err := s.repo.ListSourcesByMedication(ctx, strings.TrimSpace(medicationID))
	if err != nil {
		return 0, err
	}

	total := 0
	for _, src := range sources {
		total += src.quantity()
	}
	return total, nil
}

// Deduct descuenta quantity del stock del medicamento.
//
// Orden de resolución:
//  1. preferredSourceID (si pertenece al medicamento, cuenta y alcanza) se
//     lleva todo el descuento en un solo registro.
//  2. Sin ninguna fuente contada con cantidad > 0, el medicamento se asume
//     tomado igual: un único registro con WasDeducted == false. Es éxito.
//  3. Caso general: se recorren las fuentes elegibles ordenadas por
//     vencimiento asc (sin vencimiento al final), cantidad asc y creación
//     desc, drenando cada una hasta cubrir quantity.
//
// Si las fuentes se agotan antes de cubrir quantity no se persiste nada y
// se retorna ErrInsufficientStock: el total contable queda idéntico.
func (s *Service) Deduct(ctx context.Context, medicationID string, quantity int, preferredSourceID string) ([]Deduction, error) {
	medicationID = strings.TrimSpace(medicationID)
	if medicationID == "" || quantity <= 0 {
		return nil, ErrInvalidInput
	}

	if _, err := s.repo.GetByID(ctx, medicationID); err != nil {
		return nil, err
	}

	sources, err := s.repo.ListSourcesByMedication(ctx, medicationID)
	if err != nil {
		return nil, err
	}

	// Fast path: fuente preferida con stock suficiente.
	if preferredSourceID = strings.TrimSpace(preferredSourceID); preferredSourceID != "" {
		for _, src := range sources {
			if src.ID != preferredSourceID {
				continue
			}
			if !src.CountingEnabled || src.quantity() < quantity {
				break
			}

			updated := src
			q := src.quantity() - quantity
			updated.CurrentQuantity = &q
			if err := s.repo.UpdateSource(ctx, updated); err != nil {
				return nil, err
			}

			id := src.ID
			return []Deduction{{
				MedicationID: medicationID,
				SourceID:     &id,
				Quantity:     quantity,
				WasDeducted:  true,
			}}, nil
		}
	}

	eligible := make([]StockSource, 0, len(sources))
	for _, src := range sources {
		if src.CountingEnabled && src.quantity() > 0 {
			eligible = append(eligible, src)
		}
	}

	// Medicamento sin ninguna fuente contada: se asume tomado.
	if len(eligible) == 0 {
		return []Deduction{{
			MedicationID: medicationID,
			Quantity:     quantity,
			WasDeducted:  false,
		}}, nil
	}

	sortForDeduction(eligible)

	// Primero se simula el recorrido completo; recién con la cobertura
	// garantizada se persisten las fuentes. Así una insuficiencia no deja
	// ningún descuento parcial que revertir.
	remaining := quantity
	deductions := make([]Deduction, 0, 2)
	updates := make([]StockSource, 0, 2)

	for i := range eligible {
		if remaining == 0 {
			break
		}
		src := eligible[i]

		take := src.quantity()
		if take > remaining {
			take = remaining
		}

		q := src.quantity() - take
		src.CurrentQuantity = &q
		updates = append(updates, src)

		id := src.ID
		deductions = append(deductions, Deduction{
			MedicationID: medicationID,
			SourceID:     &id,
			Quantity:     take,
			WasDeducted:  true,
		})
		remaining -= take
	}

	if remaining > 0 {
		return nil, ErrInsufficientStock
	}

	for i, upd := range updates {
		if err := s.repo.UpdateSource(ctx, upd); err != nil {
			// Revertir lo ya persistido en esta llamada (mejor esfuerzo).
			for j := 0; j < i; j++ {
				_ = s.Restore(ctx, deductions[j])
			}
			return nil, err
		}
	}

	return deductions, nil
}

// Restore devuelve la cantidad de un descuento a su fuente. Descuentos no
// contados no tocan ninguna fuente; una fuente ya borrada se tolera como
// no-op (el registro igual se descarta en la capa de tomas).
func (s *Service) Restore(ctx context.Context, d Deduction) error {
	if !d.WasDeducted || d.SourceID == nil {
		return nil
	}

	src, err := s.repo.GetSourceByID(ctx, *d.SourceID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}

	q := d.Quantity
	if src.CurrentQuantity != nil {
		q += *src.CurrentQuantity
	}
	src.CurrentQuantity = &q

	return s.repo.UpdateSource(ctx, src)
}

// LowStock retorna los medicamentos con stock positivo que están bajos.
// Regla heredada tal cual: el umbral de la *primera* fuente supera el
// total, o alguna fuente contada está en o bajo su propio umbral.
func (s *Service) LowStock(ctx context.Context) ([]Medication, error) {
	meds, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Medication, 0)
	for _, m := range meds {
		sources, err := s.repo.ListSourcesByMedication(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		if len(sources) == 0 {
			continue
		}

		total := 0
		for _, src := range sources {
			total += src.quantity()
		}
		if total <= 0 {
			continue
		}

		low := sources[0].LowStockThreshold > total
		if !low {
			for _, src := range sources {
				if src.CountingEnabled && src.quantity() <= src.LowStockThreshold {
					low = true
					break
				}
			}
		}

		if low {
			out = append(out, m)
		}
	}

	return out, nil
}

// sortForDeduction ordena las fuentes para el drenado:
// vencimiento más próximo primero (sin vencimiento después de todas las que
// tienen), a igual vencimiento la de menor cantidad, y a igual cantidad la
// creada más recientemente.
func sortForDeduction(sources []StockSource) {
	sort.SliceStable(sources, func(i, j int) bool {
		a, b := sources[i], sources[j]

		switch {
		case a.ExpiryDate != nil && b.ExpiryDate == nil:
			return true
		case a.ExpiryDate == nil && b.ExpiryDate != nil:
			return false
		case a.ExpiryDate != nil && b.ExpiryDate != nil:
			if !a.ExpiryDate.Equal(*b.ExpiryDate) {
				return a.ExpiryDate.Before(*b.ExpiryDate)
			}
		}

		if a.quantity() != b.quantity() {
			return a.quantity() < b.quantity()
		}

		return a.CreatedAt.After(b.CreatedAt)
	})
}
