package regimen

import (
	"time"

	"dose-tracker/internal/platform/clock"
)

// MedicationGroup agrupa configuraciones de dosis bajo una franja horaria
// y una regla de selección.
type MedicationGroup struct {
	ID   string
	Name string

	TimeFrame     TimeFrame
	SelectionRule SelectionRule

	// ReminderTime "HH:MM" local; nil usa el default de la franja.
	ReminderTime *string

	CreatedAt time.Time
}

// DoseConfiguration es una combinación nombrada de componentes que el
// paciente puede tomar. Fuera de su ventana [StartDate, EndDate] nunca es
// elegible.
type DoseConfiguration struct {
	ID string

	// GroupID es referencia débil: el grupo puede haberse borrado.
	GroupID *string

	DisplayName string
	Schedule    string // metadata libre ("cada 12h", "con comida")

	Active    bool
	StartDate time.Time
	EndDate   *time.Time

	CreatedAt time.Time
}

// EligibleOn: ¿la configuración aplica para date? Activa y con el inicio
// del día dentro de su ventana, ambos límites inclusive a granularidad día.
func (c DoseConfiguration) EligibleOn(date time.Time, cal clock.Calendar) bool {
	if !c.Active {
		return false
	}
	return cal.WithinWindow(date, c.StartDate, c.EndDate)
}

// DoseComponent liga una cantidad a un medicamento dentro de una
// configuración. MedicationID es referencia débil: si el medicamento fue
// borrado el componente queda huérfano y se excluye de todo cálculo.
type DoseComponent struct {
	ID              string
	ConfigurationID string

	MedicationID string
	Quantity     int

	Position int // orden dentro de la configuración
}
