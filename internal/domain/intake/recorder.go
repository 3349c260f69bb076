package intake

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"dose-tracker/internal/domain/medications"
	"dose-tracker/internal/domain/regimen"
	"dose-tracker/internal/platform/clock"
	"dose-tracker/internal/platform/logger"
	"dose-tracker/internal/ports/syncer"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")

	// ErrNoComponents: la configuración no tiene componentes. Se detecta
	// antes de cualquier mutación, así que no hay nada que revertir.
	ErrNoComponents = errors.New("dose configuration has no components")

	// ErrSaveFailed: falló la persistencia del log ya con el stock
	// consistente. Significa "reintentá el guardado", no "rehacé la lógica".
	ErrSaveFailed = errors.New("save failed")
)

// DeductionFailedError envuelve un fallo del libro de stock durante una
// toma. Cuando se retorna, el intento completo ya fue revertido: ninguna
// deducción anterior ni el log sobreviven.
type DeductionFailedError struct {
	MedicationID string
	Err          error
}

func (e *DeductionFailedError) Error() string {
	return fmt.Sprintf("stock deduction failed for medication %s: %v", e.MedicationID, e.Err)
}

func (e *DeductionFailedError) Unwrap() error { return e.Err }

// Ledger es la vista que el Recorder necesita del libro de stock.
// *medications.Service la satisface.
type Ledger interface {
	GetByID(ctx context.Context, id string) (medications.Medication, error)
	Deduct(ctx context.Context, medicationID string, quantity int, preferredSourceID string) ([]medications.Deduction, error)
	Restore(ctx context.Context, d medications.Deduction) error
}

// ConfigurationReader es la vista de solo lectura sobre el regimen.
// *regimen.Service la satisface.
type ConfigurationReader interface {
	GetConfigurationByID(ctx context.Context, id string) (regimen.DoseConfiguration, error)
	ListComponents(ctx context.Context, configurationID string) ([]regimen.DoseComponent, error)
}

// Recorder convierte "tomé esta dosis" en un conjunto atómico de
// mutaciones: o todas las deducciones de la llamada quedan aplicadas y
// persistidas, o ninguna. La atomicidad es por llamada; llamadas
// superpuestas se asumen serializadas por el caller.
type Recorder struct {
	repo     Repository
	configs  ConfigurationReader
	ledger   Ledger
	cal      clock.Calendar
	notifier syncer.Notifier
	log      logger.Logger
	now      func() time.Time
}

func NewRecorder(repo Repository, configs ConfigurationReader, ledger Ledger, cal clock.Calendar, notifier syncer.Notifier, lg logger.Logger) *Recorder {
	if notifier == nil {
		notifier = syncer.Nop{}
	}
	return &Recorder{
		repo:     repo,
		configs:  configs,
		ledger:   ledger,
		cal:      cal,
		notifier: notifier,
		log:      lg,
		now:      time.Now,
	}
}

type LogIntakeInput struct {
	ConfigurationID string
	DeductStock     bool
	Date            time.Time
	Notes           string
}

// LogIntake registra una toma para una fecha.
//
// Componentes cuyo medicamento ya no existe se saltean en silencio (sin
// registro). Con DeductStock == false se sintetiza una deducción no
// contada por componente, sin tocar ninguna fuente. Al primer fallo del
// libro se restaura todo lo deducido en esta llamada y se retorna
// *DeductionFailedError; un fallo al persistir retorna ErrSaveFailed.
func (r *Recorder) LogIntake(ctx context.Context, in LogIntakeInput) (IntakeLog, error) {
	configID := strings.TrimSpace(in.ConfigurationID)
	if configID == "" || in.Date.IsZero() {
		return IntakeLog{}, ErrInvalidInput
	}

	if _, err := r.configs.GetConfigurationByID(ctx, configID); err != nil {
		if errors.Is(err, regimen.ErrNotFound) {
			return IntakeLog{}, ErrNotFound
		}
		return IntakeLog{}, err
	}

	comps, err := r.configs.ListComponents(ctx, configID)
	if err != nil {
		return IntakeLog{}, err
	}
	if len(comps) == 0 {
		return IntakeLog{}, ErrNoComponents
	}

	l := IntakeLog{
		ID:              uuid.NewString(),
		ConfigurationID: &configID,
		ScheduledFor:    in.Date,
		LoggedAt:        r.now(),
		Notes:           strings.TrimSpace(in.Notes),
	}

	// applied: deducciones ya aplicadas al libro, por si hay que revertir.
	applied := make([]medications.Deduction, 0, len(comps))
	records := make([]StockDeduction, 0, len(comps))

	for _, comp := range comps {
		if _, err := r.ledger.GetByID(ctx, comp.MedicationID); err != nil {
			if errors.Is(err, medications.ErrNotFound) {
				// Componente huérfano: se excluye, nunca es error.
				continue
			}
			r.rollback(ctx, applied)
			return IntakeLog{}, &DeductionFailedError{MedicationID: comp.MedicationID, Err: err}
		}

		if !in.DeductStock {
			records = append(records, StockDeduction{
				ID:           uuid.NewString(),
				LogID:        l.ID,
				MedicationID: comp.MedicationID,
				Quantity:     comp.Quantity,
				WasDeducted:  false,
			})
			continue
		}

		deds, err := r.ledger.Deduct(ctx, comp.MedicationID, comp.Quantity, "")
		if err != nil {
			r.rollback(ctx, applied)
			return IntakeLog{}, &DeductionFailedError{MedicationID: comp.MedicationID, Err: err}
		}

		for _, d := range deds {
			applied = append(applied, d)
			records = append(records, StockDeduction{
				ID:           uuid.NewString(),
				LogID:        l.ID,
				MedicationID: d.MedicationID,
				SourceID:     d.SourceID,
				Quantity:     d.Quantity,
				WasDeducted:  d.WasDeducted,
			})
		}
	}

	if err := r.repo.CreateLog(ctx, l, records); err != nil {
		// El stock quedaría descontado sin registro que lo respalde:
		// se restaura antes de reportar el fallo de guardado.
		r.rollback(ctx, applied)
		return IntakeLog{}, fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}

	r.notifyLogged(l)
	return l, nil
}

// UndoIntake deshace una toma: restaura cada deducción contada y borra el
// log. Retorna si el log existía.
func (r *Recorder) UndoIntake(ctx context.Context, logID string) (bool, error) {
	logID = strings.TrimSpace(logID)
	if logID == "" {
		return false, ErrInvalidInput
	}

	l, err := r.repo.GetLogByID(ctx, logID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	if err := r.undoOne(ctx, l); err != nil {
		return false, err
	}

	r.notifyRemoved([]string{l.ID})
	return true, nil
}

// UndoAllForGroup deshace todas las tomas del grupo en esa fecha.
// Tolera duplicados acumulados: los borra a todos. Retorna cuántos logs
// se removieron y sus ids.
func (r *Recorder) UndoAllForGroup(ctx context.Context, groupID string, date time.Time) (int, []string, error) {
	groupID = strings.TrimSpace(groupID)
	if groupID == "" || date.IsZero() {
		return 0, nil, ErrInvalidInput
	}

	logs, err := r.IntakesForDate(ctx, date)
	if err != nil {
		return 0, nil, err
	}

	removed := make([]string, 0)
	for _, l := range logs {
		if !r.belongsToGroup(ctx, l, groupID) {
			continue
		}
		if err := r.undoOne(ctx, l); err != nil {
			return len(removed), removed, err
		}
		removed = append(removed, l.ID)
	}

	if len(removed) > 0 {
		r.notifyRemoved(removed)
	}
	return len(removed), removed, nil
}

// HasIntakeForGroup es el sondeo que usan los callers para no registrar
// una segunda toma del mismo grupo en el día. Es un invariante blando:
// chequeo previo más limpieza en bloque, no una restricción dura.
func (r *Recorder) HasIntakeForGroup(ctx context.Context, groupID string, date time.Time) (bool, error) {
	groupID = strings.TrimSpace(groupID)
	if groupID == "" || date.IsZero() {
		return false, ErrInvalidInput
	}

	logs, err := r.IntakesForDate(ctx, date)
	if err != nil {
		return false, err
	}

	for _, l := range logs {
		if r.belongsToGroup(ctx, l, groupID) {
			return true, nil
		}
	}
	return false, nil
}

// IntakesForDate retorna las tomas con scheduled_for dentro del día de
// date, orden ascendente.
func (r *Recorder) IntakesForDate(ctx context.Context, date time.Time) ([]IntakeLog, error) {
	from := r.cal.StartOfDay(date)
	return r.repo.ListLogsBetween(ctx, from, r.cal.NextDay(date))
}

func (r *Recorder) DeductionsForLog(ctx context.Context, logID string) ([]StockDeduction, error) {
	return r.repo.ListDeductionsByLog(ctx, strings.TrimSpace(logID))
}

func (r *Recorder) undoOne(ctx context.Context, l IntakeLog) error {
	deds, err := r.repo.ListDeductionsByLog(ctx, l.ID)
	if err != nil {
		return err
	}

	for _, d := range deds {
		if !d.WasDeducted {
			continue
		}
		err := r.ledger.Restore(ctx, medications.Deduction{
			MedicationID: d.MedicationID,
			SourceID:     d.SourceID,
			Quantity:     d.Quantity,
			WasDeducted:  d.WasDeducted,
		})
		if err != nil {
			return err
		}
	}

	return r.repo.DeleteLog(ctx, l.ID)
}

func (r *Recorder) belongsToGroup(ctx context.Context, l IntakeLog, groupID string) bool {
	if l.ConfigurationID == nil {
		return false
	}
	cfg, err := r.configs.GetConfigurationByID(ctx, *l.ConfigurationID)
	if err != nil {
		// Configuración borrada: el log ya no pertenece a ningún grupo.
		return false
	}
	return cfg.GroupID != nil && *cfg.GroupID == groupID
}

func (r *Recorder) rollback(ctx context.Context, applied []medications.Deduction) {
	for i := len(applied) - 1; i >= 0; i-- {
		_ = r.ledger.Restore(ctx, applied[i])
	}
}

// Las notificaciones al sincronizador salen en una goroutine aparte: el
// núcleo no espera el resultado y un fallo solo se loguea.

func (r *Recorder) notifyLogged(l IntakeLog) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		err := r.notifier.IntakeLogged(ctx, syncer.LoggedIntake{
			LogID:           l.ID,
			ConfigurationID: l.ConfigurationID,
			ScheduledFor:    l.ScheduledFor,
			LoggedAt:        l.LoggedAt,
			Notes:           l.Notes,
		})
		if err != nil && r.log != nil {
			r.log.Warn("sync notify failed", map[string]any{"log_id": l.ID, "error": err.Error()})
		}
	}()
}

func (r *Recorder) notifyRemoved(logIDs []string) {
	ids := make([]string, len(logIDs))
	copy(ids, logIDs)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := r.notifier.IntakesRemoved(ctx, ids); err != nil && r.log != nil {
			r.log.Warn("sync notify failed", map[string]any{"removed": len(ids), "error": err.Error()})
		}
	}()
}
