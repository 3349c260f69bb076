package regimen

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"dose-tracker/internal/platform/clock"
)

// -------------------------
// Test repo (in-memory)
// -------------------------

type testRepo struct {
	groups     map[string]MedicationGroup
	configs    map[string]DoseConfiguration
	components map[string]DoseComponent
}

func newTestRepo() *testRepo {
	return &testRepo{
		groups:     map[string]MedicationGroup{},
		configs:    map[string]DoseConfiguration{},
		components: map[string]DoseComponent{},
	}
}

func (r *testRepo) CreateGroup(ctx context.Context, g MedicationGroup) error {
	r.groups[g.ID] = g
	return nil
}

func (r *testRepo) GetGroupByID(ctx context.Context, id string) (MedicationGroup, error) {
	g, ok := r.groups[id]
	if !ok {
		return MedicationGroup{}, ErrNotFound
	}
	return g, nil
}

func (r *testRepo) ListGroups(ctx context.Context) ([]MedicationGroup, error) {
	out := make([]MedicationGroup, 0, len(r.groups))
	for _, g := range r.groups {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *testRepo) DeleteGroup(ctx context.Context, id string) error {
	if _, ok := r.groups[id]; !ok {
		return ErrNotFound
	}
	delete(r.groups, id)
	return nil
}

func (r *testRepo) CreateConfiguration(ctx context.Context, c DoseConfiguration) error {
	r.configs[c.ID] = c
	return nil
}

func (r *testRepo) GetConfigurationByID(ctx context.Context, id string) (DoseConfiguration, error) {
	c, ok := r.configs[id]
	if !ok {
		return DoseConfiguration{}, ErrNotFound
	}
	return c, nil
}

func (r *testRepo) ListConfigurationsByGroup(ctx context.Context, groupID string) ([]DoseConfiguration, error) {
	out := make([]DoseConfiguration, 0)
	for _, c := range r.configs {
		if c.GroupID != nil && *c.GroupID == groupID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *testRepo) ListConfigurations(ctx context.Context) ([]DoseConfiguration, error) {
	out := make([]DoseConfiguration, 0, len(r.configs))
	for _, c := range r.configs {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *testRepo) UpdateConfiguration(ctx context.Context, c DoseConfiguration) error {
	if _, ok := r.configs[c.ID]; !ok {
		return ErrNotFound
	}
	r.configs[c.ID] = c
	return nil
}

func (r *testRepo) DeleteConfiguration(ctx context.Context, id string) error {
	if _, ok := r.configs[id]; !ok {
		return ErrNotFound
	}
	delete(r.configs, id)
	for cid, comp := range r.components {
		if comp.ConfigurationID == id {
			delete(r.components, cid)
		}
	}
	return nil
}

func (r *testRepo) CreateComponent(ctx context.Context, comp DoseComponent) error {
	r.components[comp.ID] = comp
	return nil
}

func (r *testRepo) ListComponentsByConfiguration(ctx context.Context, configurationID string) ([]DoseComponent, error) {
	out := make([]DoseComponent, 0)
	for _, comp := range r.components {
		if comp.ConfigurationID == configurationID {
			out = append(out, comp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (r *testRepo) DeleteComponent(ctx context.Context, id string) error {
	if _, ok := r.components[id]; !ok {
		return ErrNotFound
	}
	delete(r.components, id)
	return nil
}

// -------------------------
// Groups
// -------------------------

func TestCreateGroup_DefaultsToExactlyOne(t *testing.T) {
	svc := NewService(newTestRepo())

	g, err := svc.CreateGroup(context.Background(), CreateGroupInput{
		Name:      "Desayuno",
		TimeFrame: "morning",
	})
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if g.SelectionRule != RuleExactlyOne {
		t.Fatalf("expected default rule exactly_one, got %q", g.SelectionRule)
	}
	if g.ReminderTime != nil {
		t.Fatalf("expected nil reminder, got %q", *g.ReminderTime)
	}
}

func TestCreateGroup_RejectsBadInput(t *testing.T) {
	svc := NewService(newTestRepo())
	ctx := context.Background()

	cases := []struct {
		name string
		in   CreateGroupInput
	}{
		{"empty name", CreateGroupInput{TimeFrame: "morning"}},
		{"unknown frame", CreateGroupInput{Name: "x", TimeFrame: "midnight"}},
		{"unknown rule", CreateGroupInput{Name: "x", TimeFrame: "morning", SelectionRule: "all_of_them"}},
		{"bad reminder", CreateGroupInput{Name: "x", TimeFrame: "morning", ReminderTime: strPtr("25:99")}},
	}

	for _, tc := range cases {
		if _, err := svc.CreateGroup(ctx, tc.in); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("%s: expected ErrInvalidInput, got %v", tc.name, err)
		}
	}
}

func TestCreateGroup_AcceptsCustomReminder(t *testing.T) {
	svc := NewService(newTestRepo())

	g, err := svc.CreateGroup(context.Background(), CreateGroupInput{
		Name:         "Merienda",
		TimeFrame:    "afternoon",
		ReminderTime: strPtr("16:30"),
	})
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if g.ReminderTime == nil || *g.ReminderTime != "16:30" {
		t.Fatalf("expected reminder 16:30, got %v", g.ReminderTime)
	}
}

// -------------------------
// Configurations
// -------------------------

func TestCreateConfiguration_UngroupedIsValid(t *testing.T) {
	svc := NewService(newTestRepo())

	c, err := svc.CreateConfiguration(context.Background(), CreateConfigurationInput{
		DisplayName: "Suelta",
		StartDate:   date(2025, 1, 1),
	})
	if err != nil {
		t.Fatalf("CreateConfiguration: %v", err)
	}
	if c.GroupID != nil {
		t.Fatalf("expected nil group, got %q", *c.GroupID)
	}
	if !c.Active {
		t.Fatal("expected new configuration to be active")
	}
}

func TestCreateConfiguration_UnknownGroupFails(t *testing.T) {
	svc := NewService(newTestRepo())

	_, err := svc.CreateConfiguration(context.Background(), CreateConfigurationInput{
		GroupID:     "no-such-group",
		DisplayName: "x",
		StartDate:   date(2025, 1, 1),
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateConfiguration_EndBeforeStartFails(t *testing.T) {
	svc := NewService(newTestRepo())

	end := date(2024, 12, 1)
	_, err := svc.CreateConfiguration(context.Background(), CreateConfigurationInput{
		DisplayName: "x",
		StartDate:   date(2025, 1, 1),
		EndDate:     &end,
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSetActive_TogglesWithoutTouchingWindow(t *testing.T) {
	svc := NewService(newTestRepo())
	ctx := context.Background()

	c, err := svc.CreateConfiguration(ctx, CreateConfigurationInput{
		DisplayName: "Dosis doble",
		StartDate:   date(2025, 1, 1),
	})
	if err != nil {
		t.Fatalf("CreateConfiguration: %v", err)
	}

	got, err := svc.SetActive(ctx, c.ID, false)
	if err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	if got.Active {
		t.Fatal("expected configuration to be inactive")
	}
	if !got.StartDate.Equal(c.StartDate) {
		t.Fatalf("start date changed: %v -> %v", c.StartDate, got.StartDate)
	}
}

// -------------------------
// Components
// -------------------------

func TestAddComponent_PositionsAreSequential(t *testing.T) {
	svc := NewService(newTestRepo())
	ctx := context.Background()

	c, err := svc.CreateConfiguration(ctx, CreateConfigurationInput{
		DisplayName: "Combo",
		StartDate:   date(2025, 1, 1),
	})
	if err != nil {
		t.Fatalf("CreateConfiguration: %v", err)
	}

	for i, medID := range []string{"med-a", "med-b", "med-c"} {
		comp, err := svc.AddComponent(ctx, AddComponentInput{
			ConfigurationID: c.ID,
			MedicationID:    medID,
			Quantity:        1,
		})
		if err != nil {
			t.Fatalf("AddComponent %s: %v", medID, err)
		}
		if comp.Position != i {
			t.Fatalf("expected position %d for %s, got %d", i, medID, comp.Position)
		}
	}
}

func TestAddComponent_DoesNotValidateMedication(t *testing.T) {
	// La referencia al medicamento es débil: agregar un componente que
	// apunta a un ID inexistente debe funcionar.
	svc := NewService(newTestRepo())
	ctx := context.Background()

	c, err := svc.CreateConfiguration(ctx, CreateConfigurationInput{
		DisplayName: "x",
		StartDate:   date(2025, 1, 1),
	})
	if err != nil {
		t.Fatalf("CreateConfiguration: %v", err)
	}

	if _, err := svc.AddComponent(ctx, AddComponentInput{
		ConfigurationID: c.ID,
		MedicationID:    "deleted-long-ago",
		Quantity:        2,
	}); err != nil {
		t.Fatalf("AddComponent with dangling medication: %v", err)
	}
}

func TestAddComponent_RejectsBadQuantity(t *testing.T) {
	svc := NewService(newTestRepo())
	ctx := context.Background()

	c, _ := svc.CreateConfiguration(ctx, CreateConfigurationInput{
		DisplayName: "x",
		StartDate:   date(2025, 1, 1),
	})

	if _, err := svc.AddComponent(ctx, AddComponentInput{
		ConfigurationID: c.ID,
		MedicationID:    "med-a",
		Quantity:        0,
	}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

// -------------------------
// Eligibility
// -------------------------

func TestEligibleOn_WindowIsInclusivePerDay(t *testing.T) {
	cal := clock.New(time.UTC)
	end := date(2025, 3, 20)

	c := DoseConfiguration{
		Active:    true,
		StartDate: date(2025, 3, 10),
		EndDate:   &end,
	}

	if c.EligibleOn(date(2025, 3, 9), cal) {
		t.Error("day before start should not be eligible")
	}
	if !c.EligibleOn(date(2025, 3, 10), cal) {
		t.Error("start day should be eligible")
	}
	if !c.EligibleOn(date(2025, 3, 20), cal) {
		t.Error("end day should be eligible")
	}
	if c.EligibleOn(date(2025, 3, 21), cal) {
		t.Error("day after end should not be eligible")
	}

	c.Active = false
	if c.EligibleOn(date(2025, 3, 10), cal) {
		t.Error("inactive configuration is never eligible")
	}
}

func strPtr(s string) *string { return &s }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
