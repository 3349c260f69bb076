package intake

import "time"

// IntakeLog registra una toma: la fecha para la que cuenta (ScheduledFor)
// y el momento en que se registró (LoggedAt) son cosas distintas.
// Solo el Recorder los crea; solo un undo los destruye.
type IntakeLog struct {
	ID string

	// ConfigurationID es referencia débil: la configuración puede haberse
	// borrado después de registrada la toma.
	ConfigurationID *string

	ScheduledFor time.Time
	LoggedAt     time.Time

	Notes string
}

// StockDeduction liga la toma con su efecto de stock (real o no contado).
// Vive y muere con su IntakeLog.
type StockDeduction struct {
	ID    string
	LogID string

	MedicationID string
	SourceID     *string

	Quantity    int
	WasDeducted bool
}
