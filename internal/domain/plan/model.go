package plan

import (
	"time"

	"dose-tracker/internal/domain/regimen"
)

// Status es el estado global del día.
type Status string

const (
	// StatusComplete: todo grupo no-opcional quedó satisfecho y hubo al
	// menos una toma.
	StatusComplete Status = "complete"
	// StatusPartial: hubo alguna toma pero queda algún grupo requerido sin
	// satisfacer.
	StatusPartial Status = "partial"
	// StatusNone: ninguna toma requerida (incluye el día sin grupos).
	StatusNone Status = "none"
)

// Defaults junta las constantes que antes vivían desperdigadas: el umbral
// de stock bajo y los recordatorios por franja. Se pasa entero al builder.
type Defaults struct {
	LowStockThreshold int
	ReminderTimes     map[regimen.TimeFrame]string
}

func DefaultConfig() Defaults {
	return Defaults{
		LowStockThreshold: 10,
		ReminderTimes: map[regimen.TimeFrame]string{
			regimen.TimeFrameMorning:   "08:00",
			regimen.TimeFrameAfternoon: "13:00",
			regimen.TimeFrameEvening:   "18:00",
			regimen.TimeFrameNight:     "21:00",
		},
	}
}

// Component es la vista de un componente dentro de una opción de dosis,
// ya resuelto contra el catálogo y el libro de stock.
type Component struct {
	MedicationID      string
	MedicationName    string
	Quantity          int
	AvailableStock    int
	LowStockThreshold int
	CountingEnabled   bool
}

// DoseOption es una configuración elegible del día, con sus componentes
// vivos y la marca de completada.
type DoseOption struct {
	ConfigurationID string
	DisplayName     string
	Schedule        string
	Components      []Component
	Completed       bool
}

type Group struct {
	GroupID       string
	Name          string
	SelectionRule regimen.SelectionRule
	Options       []DoseOption

	// CompletedConfigurationID: la configuración de la primera toma válida
	// del grupo en el día, si hay.
	CompletedConfigurationID *string
}

type Section struct {
	TimeFrame    regimen.TimeFrame
	ReminderTime string // "HH:MM"
	Groups       []Group
}

// DailyPlan es la proyección de solo lectura del día: qué toca, qué se
// tomó y cómo va el día. Derivada, sin efectos, nunca falla.
type DailyPlan struct {
	Date     time.Time
	Sections []Section
	Status   Status
}
