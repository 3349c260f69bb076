package intake

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"dose-tracker/internal/domain/medications"
	"dose-tracker/internal/domain/regimen"
	"dose-tracker/internal/platform/clock"
	"dose-tracker/internal/ports/syncer"
)

// -------------------------
// Fakes
// -------------------------

// medsRepo respalda un medications.Service real: el rollback del recorder
// se prueba contra el libro de verdad, no contra un stub.
type medsRepo struct {
	meds    map[string]medications.Medication
	sources map[string]medications.StockSource
}

func newMedsRepo() *medsRepo {
	return &medsRepo{
		meds:    map[string]medications.Medication{},
		sources: map[string]medications.StockSource{},
	}
}

func (r *medsRepo) Create(ctx context.Context, m medications.Medication) error {
	r.meds[m.ID] = m
	return nil
}

func (r *medsRepo) GetByID(ctx context.Context, id string) (medications.Medication, error) {
	m, ok := r.meds[id]
	if !ok {
		return medications.Medication{}, medications.ErrNotFound
	}
	return m, nil
}

func (r *medsRepo) List(ctx context.Context) ([]medications.Medication, error) {
	out := make([]medications.Medication, 0, len(r.meds))
	for _, m := range r.meds {
		out = append(out, m)
	}
	return out, nil
}

func (r *medsRepo) Delete(ctx context.Context, id string) error {
	delete(r.meds, id)
	return nil
}

func (r *medsRepo) CreateSource(ctx context.Context, s medications.StockSource) error {
	r.sources[s.ID] = s
	return nil
}

func (r *medsRepo) GetSourceByID(ctx context.Context, id string) (medications.StockSource, error) {
	s, ok := r.sources[id]
	if !ok {
		return medications.StockSource{}, medications.ErrNotFound
	}
	return s, nil
}

func (r *medsRepo) ListSourcesByMedication(ctx context.Context, medicationID string) ([]medications.StockSource, error) {
	out := make([]medications.StockSource, 0)
	for _, s := range r.sources {
		if s.MedicationID == medicationID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *medsRepo) UpdateSource(ctx context.Context, s medications.StockSource) error {
	if _, ok := r.sources[s.ID]; !ok {
		return medications.ErrNotFound
	}
	r.sources[s.ID] = s
	return nil
}

type configsFake struct {
	configs map[string]regimen.DoseConfiguration
	comps   map[string][]regimen.DoseComponent
}

func newConfigsFake() *configsFake {
	return &configsFake{
		configs: map[string]regimen.DoseConfiguration{},
		comps:   map[string][]regimen.DoseComponent{},
	}
}

func (f *configsFake) GetConfigurationByID(ctx context.Context, id string) (regimen.DoseConfiguration, error) {
	c, ok := f.configs[id]
	if !ok {
		return regimen.DoseConfiguration{}, regimen.ErrNotFound
	}
	return c, nil
}

func (f *configsFake) ListComponents(ctx context.Context, configurationID string) ([]regimen.DoseComponent, error) {
	return f.comps[configurationID], nil
}

type testRepo struct {
	logs map[string]IntakeLog
	deds map[string][]StockDeduction

	failCreate bool
}

func newTestRepo() *testRepo {
	return &testRepo{
		logs: map[string]IntakeLog{},
		deds: map[string][]StockDeduction{},
	}
}

func (r *testRepo) CreateLog(ctx context.Context, l IntakeLog, deductions []StockDeduction) error {
	if r.failCreate {
		return errors.New("commit failed")
	}
	r.logs[l.ID] = l
	r.deds[l.ID] = deductions
	return nil
}

func (r *testRepo) GetLogByID(ctx context.Context, id string) (IntakeLog, error) {
	l, ok := r.logs[id]
	if !ok {
		return IntakeLog{}, ErrNotFound
	}
	return l, nil
}

func (r *testRepo) ListLogsBetween(ctx context.Context, from, to time.Time) ([]IntakeLog, error) {
	out := make([]IntakeLog, 0)
	for _, l := range r.logs {
		if !l.ScheduledFor.Before(from) && l.ScheduledFor.Before(to) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledFor.Before(out[j].ScheduledFor) })
	return out, nil
}

func (r *testRepo) ListDeductionsByLog(ctx context.Context, logID string) ([]StockDeduction, error) {
	return r.deds[logID], nil
}

func (r *testRepo) DeleteLog(ctx context.Context, id string) error {
	if _, ok := r.logs[id]; !ok {
		return ErrNotFound
	}
	delete(r.logs, id)
	delete(r.deds, id)
	return nil
}

// -------------------------
// Fixture
// -------------------------

type fixture struct {
	repo    *testRepo
	meds    *medsRepo
	configs *configsFake
	rec     *Recorder
}

func newFixture() *fixture {
	meds := newMedsRepo()
	repo := newTestRepo()
	configs := newConfigsFake()
	cal := clock.New(time.UTC)

	return &fixture{
		repo:    repo,
		meds:    meds,
		configs: configs,
		rec:     NewRecorder(repo, configs, medications.NewService(meds), cal, syncer.Nop{}, nil),
	}
}

func (f *fixture) addMedication(id string, qty int) {
	f.meds.meds[id] = medications.Medication{ID: id, Name: id, CreatedAt: time.Now()}
	q := qty
	f.meds.sources[id+"-src"] = medications.StockSource{
		ID:                id + "-src",
		MedicationID:      id,
		CountingEnabled:   true,
		CurrentQuantity:   &q,
		LowStockThreshold: medications.DefaultLowStockThreshold,
		CreatedAt:         time.Now(),
	}
}

func (f *fixture) addConfig(id, groupID string, comps ...regimen.DoseComponent) {
	var gid *string
	if groupID != "" {
		g := groupID
		gid = &g
	}
	f.configs.configs[id] = regimen.DoseConfiguration{
		ID:        id,
		GroupID:   gid,
		Active:    true,
		StartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	f.configs.comps[id] = comps
}

func (f *fixture) stockOf(t *testing.T, medID string) int {
	t.Helper()
	src, ok := f.meds.sources[medID+"-src"]
	if !ok || src.CurrentQuantity == nil {
		t.Fatalf("fuente de %s no disponible", medID)
	}
	return *src.CurrentQuantity
}

func comp(configID, medID string, qty, pos int) regimen.DoseComponent {
	return regimen.DoseComponent{
		ID:              configID + "-" + medID,
		ConfigurationID: configID,
		MedicationID:    medID,
		Quantity:        qty,
		Position:        pos,
	}
}

var testDate = time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

// -------------------------
// LogIntake
// -------------------------

func TestLogIntake_NoComponents(t *testing.T) {
	f := newFixture()
	f.addConfig("cfg-1", "")

	_, err := f.rec.LogIntake(context.Background(), LogIntakeInput{
		ConfigurationID: "cfg-1",
		DeductStock:     true,
		Date:            testDate,
	})
	if !errors.Is(err, ErrNoComponents) {
		t.Fatalf("err = %v, want ErrNoComponents", err)
	}
	if len(f.repo.logs) != 0 {
		t.Fatal("no debería quedar ningún log")
	}
}

func TestLogIntake_DeductsAndPersistsAsOneUnit(t *testing.T) {
	f := newFixture()
	f.addMedication("med-a", 10)
	f.addMedication("med-b", 5)
	f.addConfig("cfg-1", "grp-1",
		comp("cfg-1", "med-a", 2, 0),
		comp("cfg-1", "med-b", 1, 1),
	)

	l, err := f.rec.LogIntake(context.Background(), LogIntakeInput{
		ConfigurationID: "cfg-1",
		DeductStock:     true,
		Date:            testDate,
		Notes:           "con el desayuno",
	})
	if err != nil {
		t.Fatalf("LogIntake: %v", err)
	}

	if got := f.stockOf(t, "med-a"); got != 8 {
		t.Fatalf("stock med-a = %d, want 8", got)
	}
	if got := f.stockOf(t, "med-b"); got != 4 {
		t.Fatalf("stock med-b = %d, want 4", got)
	}

	deds := f.repo.deds[l.ID]
	if len(deds) != 2 {
		t.Fatalf("len(deds) = %d, want 2", len(deds))
	}
	for _, d := range deds {
		if d.LogID != l.ID || !d.WasDeducted {
			t.Fatalf("deducción inconsistente: %+v", d)
		}
	}
}

func TestLogIntake_FailsFastOnFirstInsufficientComponent(t *testing.T) {
	f := newFixture()
	f.addMedication("med-a", 1) // necesita 2: falla
	f.addMedication("med-b", 5)
	f.addConfig("cfg-1", "grp-1",
		comp("cfg-1", "med-a", 2, 0),
		comp("cfg-1", "med-b", 1, 1),
	)

	_, err := f.rec.LogIntake(context.Background(), LogIntakeInput{
		ConfigurationID: "cfg-1",
		DeductStock:     true,
		Date:            testDate,
	})

	var dfe *DeductionFailedError
	if !errors.As(err, &dfe) {
		t.Fatalf("err = %v, want *DeductionFailedError", err)
	}
	if dfe.MedicationID != "med-a" {
		t.Fatalf("MedicationID = %s, want med-a", dfe.MedicationID)
	}
	if !errors.Is(dfe, medications.ErrInsufficientStock) {
		t.Fatalf("causa = %v, want ErrInsufficientStock", dfe.Err)
	}

	// med-b ni se tocó y no sobrevive ningún log.
	if got := f.stockOf(t, "med-b"); got != 5 {
		t.Fatalf("stock med-b = %d, want 5", got)
	}
	if len(f.repo.logs) != 0 {
		t.Fatal("no debería quedar ningún IntakeLog")
	}
}

func TestLogIntake_RollsBackEarlierDeductions(t *testing.T) {
	f := newFixture()
	f.addMedication("med-b", 5) // se deduce primero...
	f.addMedication("med-a", 1) // ...y luego este falla
	f.addConfig("cfg-1", "grp-1",
		comp("cfg-1", "med-b", 1, 0),
		comp("cfg-1", "med-a", 2, 1),
	)

	_, err := f.rec.LogIntake(context.Background(), LogIntakeInput{
		ConfigurationID: "cfg-1",
		DeductStock:     true,
		Date:            testDate,
	})

	var dfe *DeductionFailedError
	if !errors.As(err, &dfe) {
		t.Fatalf("err = %v, want *DeductionFailedError", err)
	}

	// La deducción de med-b de esta llamada se restauró completa.
	if got := f.stockOf(t, "med-b"); got != 5 {
		t.Fatalf("stock med-b = %d, want 5 tras rollback", got)
	}
	if got := f.stockOf(t, "med-a"); got != 1 {
		t.Fatalf("stock med-a = %d, want 1", got)
	}
	if len(f.repo.logs) != 0 {
		t.Fatal("no debería quedar ningún IntakeLog")
	}
}

func TestLogIntake_WithoutDeductionNeverTouchesStock(t *testing.T) {
	f := newFixture()
	f.addMedication("med-a", 1) // stock insuficiente: da igual
	f.addConfig("cfg-1", "grp-1", comp("cfg-1", "med-a", 99, 0))

	l, err := f.rec.LogIntake(context.Background(), LogIntakeInput{
		ConfigurationID: "cfg-1",
		DeductStock:     false,
		Date:            testDate,
	})
	if err != nil {
		t.Fatalf("LogIntake: %v", err)
	}

	if got := f.stockOf(t, "med-a"); got != 1 {
		t.Fatalf("stock med-a = %d, want 1 (sin descuento)", got)
	}

	deds := f.repo.deds[l.ID]
	if len(deds) != 1 || deds[0].WasDeducted || deds[0].Quantity != 99 {
		t.Fatalf("deducción sintetizada inesperada: %+v", deds)
	}
}

func TestLogIntake_SkipsOrphanComponents(t *testing.T) {
	f := newFixture()
	f.addMedication("med-a", 10)
	f.addConfig("cfg-1", "grp-1",
		comp("cfg-1", "med-gone", 1, 0), // medicamento borrado
		comp("cfg-1", "med-a", 2, 1),
	)

	l, err := f.rec.LogIntake(context.Background(), LogIntakeInput{
		ConfigurationID: "cfg-1",
		DeductStock:     true,
		Date:            testDate,
	})
	if err != nil {
		t.Fatalf("LogIntake: %v", err)
	}

	deds := f.repo.deds[l.ID]
	if len(deds) != 1 {
		t.Fatalf("len(deds) = %d, want 1 (el huérfano se saltea sin registro)", len(deds))
	}
	if deds[0].MedicationID != "med-a" {
		t.Fatalf("deducción de %s, want med-a", deds[0].MedicationID)
	}
}

func TestLogIntake_SaveFailureRestoresStock(t *testing.T) {
	f := newFixture()
	f.addMedication("med-a", 10)
	f.addConfig("cfg-1", "grp-1", comp("cfg-1", "med-a", 3, 0))
	f.repo.failCreate = true

	_, err := f.rec.LogIntake(context.Background(), LogIntakeInput{
		ConfigurationID: "cfg-1",
		DeductStock:     true,
		Date:            testDate,
	})
	if !errors.Is(err, ErrSaveFailed) {
		t.Fatalf("err = %v, want ErrSaveFailed", err)
	}

	if got := f.stockOf(t, "med-a"); got != 10 {
		t.Fatalf("stock med-a = %d, want 10 tras fallo de guardado", got)
	}
}

func TestLogIntake_NotifiesSyncer(t *testing.T) {
	f := newFixture()
	f.addMedication("med-a", 10)
	f.addConfig("cfg-1", "grp-1", comp("cfg-1", "med-a", 1, 0))

	got := make(chan syncer.LoggedIntake, 1)
	f.rec.notifier = notifierFunc{onLogged: func(c syncer.LoggedIntake) { got <- c }}

	l, err := f.rec.LogIntake(context.Background(), LogIntakeInput{
		ConfigurationID: "cfg-1",
		DeductStock:     true,
		Date:            testDate,
	})
	if err != nil {
		t.Fatalf("LogIntake: %v", err)
	}

	select {
	case c := <-got:
		if c.LogID != l.ID {
			t.Fatalf("sync LogID = %s, want %s", c.LogID, l.ID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("el sincronizador nunca fue notificado")
	}
}

type notifierFunc struct {
	onLogged  func(syncer.LoggedIntake)
	onRemoved func([]string)
}

func (n notifierFunc) IntakeLogged(ctx context.Context, c syncer.LoggedIntake) error {
	if n.onLogged != nil {
		n.onLogged(c)
	}
	return nil
}

func (n notifierFunc) IntakesRemoved(ctx context.Context, ids []string) error {
	if n.onRemoved != nil {
		n.onRemoved(ids)
	}
	return nil
}

// -------------------------
// Undo
// -------------------------

func TestUndoIntake_RestoresCountedDeductions(t *testing.T) {
	f := newFixture()
	f.addMedication("med-a", 10)
	f.addConfig("cfg-1", "grp-1", comp("cfg-1", "med-a", 4, 0))

	l, err := f.rec.LogIntake(context.Background(), LogIntakeInput{
		ConfigurationID: "cfg-1",
		DeductStock:     true,
		Date:            testDate,
	})
	if err != nil {
		t.Fatalf("LogIntake: %v", err)
	}
	if got := f.stockOf(t, "med-a"); got != 6 {
		t.Fatalf("stock med-a = %d, want 6", got)
	}

	found, err := f.rec.UndoIntake(context.Background(), l.ID)
	if err != nil {
		t.Fatalf("UndoIntake: %v", err)
	}
	if !found {
		t.Fatal("found = false, want true")
	}

	if got := f.stockOf(t, "med-a"); got != 10 {
		t.Fatalf("stock med-a = %d, want 10 tras undo", got)
	}
	if len(f.repo.logs) != 0 {
		t.Fatal("el log debería haberse borrado")
	}
}

func TestUndoIntake_UnknownLog(t *testing.T) {
	f := newFixture()

	found, err := f.rec.UndoIntake(context.Background(), "no-such-log")
	if err != nil {
		t.Fatalf("UndoIntake: %v", err)
	}
	if found {
		t.Fatal("found = true para un log inexistente")
	}
}

func TestUndoAllForGroup_RemovesAccumulatedDuplicates(t *testing.T) {
	f := newFixture()
	f.addMedication("med-a", 30)
	f.addConfig("cfg-1", "grp-1", comp("cfg-1", "med-a", 2, 0))
	f.addConfig("cfg-other", "grp-2", comp("cfg-other", "med-a", 1, 0))

	// Tres duplicados del mismo grupo más uno de otro grupo.
	for i := 0; i < 3; i++ {
		if _, err := f.rec.LogIntake(context.Background(), LogIntakeInput{
			ConfigurationID: "cfg-1", DeductStock: true, Date: testDate,
		}); err != nil {
			t.Fatalf("LogIntake #%d: %v", i, err)
		}
	}
	if _, err := f.rec.LogIntake(context.Background(), LogIntakeInput{
		ConfigurationID: "cfg-other", DeductStock: true, Date: testDate,
	}); err != nil {
		t.Fatalf("LogIntake otro grupo: %v", err)
	}

	count, ids, err := f.rec.UndoAllForGroup(context.Background(), "grp-1", testDate)
	if err != nil {
		t.Fatalf("UndoAllForGroup: %v", err)
	}
	if count != 3 || len(ids) != 3 {
		t.Fatalf("count = %d, ids = %d, want 3 y 3", count, len(ids))
	}

	// Queda solo el descuento del otro grupo: 30 - 1.
	if got := f.stockOf(t, "med-a"); got != 29 {
		t.Fatalf("stock med-a = %d, want 29", got)
	}
	if len(f.repo.logs) != 1 {
		t.Fatalf("logs restantes = %d, want 1", len(f.repo.logs))
	}
}

func TestHasIntakeForGroup(t *testing.T) {
	f := newFixture()
	f.addMedication("med-a", 10)
	f.addConfig("cfg-1", "grp-1", comp("cfg-1", "med-a", 1, 0))

	has, err := f.rec.HasIntakeForGroup(context.Background(), "grp-1", testDate)
	if err != nil || has {
		t.Fatalf("HasIntakeForGroup antes de loguear = (%v, %v), want (false, nil)", has, err)
	}

	if _, err := f.rec.LogIntake(context.Background(), LogIntakeInput{
		ConfigurationID: "cfg-1", DeductStock: false, Date: testDate,
	}); err != nil {
		t.Fatalf("LogIntake: %v", err)
	}

	has, err = f.rec.HasIntakeForGroup(context.Background(), "grp-1", testDate)
	if err != nil || !has {
		t.Fatalf("HasIntakeForGroup = (%v, %v), want (true, nil)", has, err)
	}

	// Otro día sigue libre.
	has, _ = f.rec.HasIntakeForGroup(context.Background(), "grp-1", testDate.AddDate(0, 0, 1))
	if has {
		t.Fatal("el día siguiente no debería tener tomas")
	}
}
