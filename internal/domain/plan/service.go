package plan

import (
	"context"
	"time"

	"dose-tracker/internal/domain/intake"
	"dose-tracker/internal/domain/medications"
	"dose-tracker/internal/domain/regimen"
	"dose-tracker/internal/platform/clock"
)

// RegimenSource es la vista de lectura sobre grupos y configuraciones.
// *regimen.Service la satisface.
type RegimenSource interface {
	ListGroups(ctx context.Context) ([]regimen.MedicationGroup, error)
	ListConfigurationsByGroup(ctx context.Context, groupID string) ([]regimen.DoseConfiguration, error)
	ListComponents(ctx context.Context, configurationID string) ([]regimen.DoseComponent, error)
}

// IntakeSource es la vista de lectura sobre las tomas del día.
// *intake.Recorder la satisface.
type IntakeSource interface {
	IntakesForDate(ctx context.Context, date time.Time) ([]intake.IntakeLog, error)
}

// LedgerSource es la vista de lectura sobre el libro de stock.
// *medications.Service la satisface.
type LedgerSource interface {
	List(ctx context.Context) ([]medications.Medication, error)
	ListSources(ctx context.Context, medicationID string) ([]medications.StockSource, error)
}

// Service arma el snapshot y delega en Build. Nunca retorna error: una
// lectura fallida degrada a colección vacía, así "hoy" siempre se puede
// mostrar, aunque sea un plan conservadoramente vacío.
type Service struct {
	regimen  RegimenSource
	intakes  IntakeSource
	ledger   LedgerSource
	cal      clock.Calendar
	defaults Defaults
}

func NewService(reg RegimenSource, intakes IntakeSource, ledger LedgerSource, cal clock.Calendar, defaults Defaults) *Service {
	if defaults.LowStockThreshold <= 0 {
		defaults = DefaultConfig()
	}
	return &Service{
		regimen:  reg,
		intakes:  intakes,
		ledger:   ledger,
		cal:      cal,
		defaults: defaults,
	}
}

func (s *Service) GetPlan(ctx context.Context, date time.Time) DailyPlan {
	snap := s.snapshot(ctx, date)
	return Build(snap, date, s.defaults, s.cal)
}

func (s *Service) snapshot(ctx context.Context, date time.Time) Snapshot {
	snap := Snapshot{
		Components:  map[string][]regimen.DoseComponent{},
		Medications: map[string]medications.Medication{},
		Stock:       map[string]StockView{},
	}

	groups, err := s.regimen.ListGroups(ctx)
	if err != nil {
		groups = nil
	}
	snap.Groups = groups

	for _, g := range groups {
		configs, err := s.regimen.ListConfigurationsByGroup(ctx, g.ID)
		if err != nil {
			continue
		}
		snap.Configurations = append(snap.Configurations, configs...)

		for _, cfg := range configs {
			comps, err := s.regimen.ListComponents(ctx, cfg.ID)
			if err != nil {
				continue
			}
			snap.Components[cfg.ID] = comps
		}
	}

	meds, err := s.ledger.List(ctx)
	if err != nil {
		meds = nil
	}
	for _, m := range meds {
		snap.Medications[m.ID] = m
		snap.Stock[m.ID] = s.stockView(ctx, m.ID)
	}

	logs, err := s.intakes.IntakesForDate(ctx, date)
	if err != nil {
		logs = nil
	}
	snap.Intakes = logs

	return snap
}

// stockView resume las fuentes de un medicamento: total contable, umbral
// de la primera fuente contada (default si no hay) y si algo se cuenta.
func (s *Service) stockView(ctx context.Context, medicationID string) StockView {
	view := StockView{LowStockThreshold: s.defaults.LowStockThreshold}

	sources, err := s.ledger.ListSources(ctx, medicationID)
	if err != nil {
		return view
	}

	thresholdSet := false
	for _, src := range sources {
		if !src.CountingEnabled {
			continue
		}
		view.CountingEnabled = true
		if src.CurrentQuantity != nil {
			view.Available += *src.CurrentQuantity
		}
		if !thresholdSet {
			view.LowStockThreshold = src.LowStockThreshold
			thresholdSet = true
		}
	}

	return view
}
