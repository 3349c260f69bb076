package medications

import "time"

// Form define las formas farmacéuticas soportadas.
type Form string

const (
	FormTablet    Form = "tablet"
	FormCapsule   Form = "capsule"
	FormLiquid    Form = "liquid"
	FormInjection Form = "injection"
	FormDrops     Form = "drops"
	FormInhaler   Form = "inhaler"
	FormOther     Form = "other"
)

// DefaultLowStockThreshold aplica cuando una fuente se crea sin umbral propio.
const DefaultLowStockThreshold = 10

// Medication representa un medicamento registrado.
// Es borrable: los DoseComponent que lo referencian quedan huérfanos
// y se excluyen de todo cálculo (nunca son error).
type Medication struct {
	ID   string
	Name string
	Form Form

	StrengthValue float64
	StrengthUnit  string // "mg", "ml", "ui", etc.

	CreatedAt time.Time
}

// StockSource es una fuente física de suministro (un frasco, una caja).
// Pertenece a exactamente un Medication.
//
// Con CountingEnabled == false la fuente es "no contada": CurrentQuantity
// no participa de la aritmética de descuento.
// Con CountingEnabled == true, CurrentQuantity nunca baja de 0.
type StockSource struct {
	ID           string
	MedicationID string

	Label string

	InitialQuantity *int
	CurrentQuantity *int

	CountingEnabled bool
	CountingSince   *time.Time

	LowStockThreshold int

	ExpiryDate *time.Time

	CreatedAt time.Time
}

// quantity retorna la cantidad contable de la fuente (0 si no cuenta).
func (s StockSource) quantity() int {
	if !s.CountingEnabled || s.CurrentQuantity == nil {
		return 0
	}
	return *s.CurrentQuantity
}

// Deduction es el efecto de stock de una toma sobre una fuente.
// WasDeducted == false marca un descuento "no contado": el medicamento se
// asume tomado pero ninguna fuente fue tocada (SourceID == nil).
type Deduction struct {
	MedicationID string
	SourceID     *string
	Quantity     int
	WasDeducted  bool
}
