package router

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"

	mem "dose-tracker/internal/adapters/storage/memory"
	pg "dose-tracker/internal/adapters/storage/postgres"
	lite "dose-tracker/internal/adapters/storage/sqlite"
	"dose-tracker/internal/adapters/syncer/webhook"
	"dose-tracker/internal/config"
	"dose-tracker/internal/domain/intake"
	"dose-tracker/internal/domain/medications"
	"dose-tracker/internal/domain/plan"
	"dose-tracker/internal/domain/regimen"
	"dose-tracker/internal/middleware"
	"dose-tracker/internal/platform/clock"
	"dose-tracker/internal/platform/logger"
	"dose-tracker/internal/ports/syncer"
)

type Options struct {
	Config config.Config
	Logger logger.Logger // puede ser nil (tests)

	// Opcionales: si vienen, pisan lo que diga Config.
	DB       *sql.DB  // Postgres explícita
	SQLite   *sqlx.DB // SQLite explícita
	Notifier syncer.Notifier
	Location *time.Location
}

func NewRouter(opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	if opts.Logger != nil {
		r.Use(middleware.RequestLogger(opts.Logger))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	var (
		medsRepo    medications.Repository
		regimenRepo regimen.Repository
		intakeRepo  intake.Repository
	)

	// Selección de storage: Postgres > SQLite > in-memory.
	switch {
	case opts.DB != nil:
		medsRepo = pg.NewMedicationsRepo(opts.DB)
		regimenRepo = pg.NewRegimenRepo(opts.DB)
		intakeRepo = pg.NewIntakeRepo(opts.DB)
	case opts.SQLite != nil:
		medsRepo = lite.NewMedicationsRepo(opts.SQLite)
		regimenRepo = lite.NewRegimenRepo(opts.SQLite)
		intakeRepo = lite.NewIntakeRepo(opts.SQLite)
	case opts.Config.DatabaseDSN != "":
		if db, err := pg.Open(opts.Config.DatabaseDSN); err == nil {
			medsRepo = pg.NewMedicationsRepo(db)
			regimenRepo = pg.NewRegimenRepo(db)
			intakeRepo = pg.NewIntakeRepo(db)
		}
	case opts.Config.SQLitePath != "":
		if db, err := lite.Open(opts.Config.SQLitePath); err == nil {
			medsRepo = lite.NewMedicationsRepo(db)
			regimenRepo = lite.NewRegimenRepo(db)
			intakeRepo = lite.NewIntakeRepo(db)
		}
	}

	if medsRepo == nil {
		medsRepo = mem.NewMedicationsRepo()
		regimenRepo = mem.NewRegimenRepo()
		intakeRepo = mem.NewIntakeRepo()
	}

	loc := opts.Location
	if loc == nil && opts.Config.Timezone != "" {
		if parsed, err := time.LoadLocation(opts.Config.Timezone); err == nil {
			loc = parsed
		}
	}
	cal := clock.New(loc)

	notifier := opts.Notifier
	if notifier == nil && opts.Config.SyncWebhookURL != "" {
		notifier = webhook.NewClient(webhook.Config{URL: opts.Config.SyncWebhookURL})
	}

	// Services por módulo
	medsSvc := medications.NewService(medsRepo)
	regimenSvc := regimen.NewService(regimenRepo)
	recorder := intake.NewRecorder(intakeRepo, regimenSvc, medsSvc, cal, notifier, opts.Logger)
	planSvc := plan.NewService(regimenSvc, recorder, medsSvc, cal, plan.DefaultConfig())

	// Rutas por módulo
	medications.RegisterRoutes(r, medsSvc)
	regimen.RegisterRoutes(r, regimenSvc)
	intake.RegisterRoutes(r, recorder)
	plan.RegisterRoutes(r, planSvc)

	return r
}
