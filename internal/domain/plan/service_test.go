package plan

import (
	"context"
	"errors"
	"testing"
	"time"

	"dose-tracker/internal/domain/intake"
	"dose-tracker/internal/domain/medications"
	"dose-tracker/internal/domain/regimen"
	"dose-tracker/internal/platform/clock"
)

// Todas las lecturas fallan: el plan igual sale, vacío y sin pánico.

type failingRegimen struct{}

func (failingRegimen) ListGroups(ctx context.Context) ([]regimen.MedicationGroup, error) {
	return nil, errors.New("storage down")
}

func (failingRegimen) ListConfigurationsByGroup(ctx context.Context, groupID string) ([]regimen.DoseConfiguration, error) {
	return nil, errors.New("storage down")
}

func (failingRegimen) ListComponents(ctx context.Context, configurationID string) ([]regimen.DoseComponent, error) {
	return nil, errors.New("storage down")
}

type failingIntakes struct{}

func (failingIntakes) IntakesForDate(ctx context.Context, date time.Time) ([]intake.IntakeLog, error) {
	return nil, errors.New("storage down")
}

type failingLedger struct{}

func (failingLedger) List(ctx context.Context) ([]medications.Medication, error) {
	return nil, errors.New("storage down")
}

func (failingLedger) ListSources(ctx context.Context, medicationID string) ([]medications.StockSource, error) {
	return nil, errors.New("storage down")
}

func TestGetPlan_DegradesToEmptyOnReadFailures(t *testing.T) {
	svc := NewService(failingRegimen{}, failingIntakes{}, failingLedger{}, clock.New(time.UTC), DefaultConfig())

	p := svc.GetPlan(context.Background(), planDate)

	if p.Status != StatusNone {
		t.Fatalf("Status = %s, want none", p.Status)
	}
	if len(p.Sections) != 0 {
		t.Fatalf("Sections = %d, want 0", len(p.Sections))
	}
	if !p.Date.Equal(planDate) {
		t.Fatalf("Date = %v, want %v", p.Date, planDate)
	}
}
