package main

import (
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"

	"dose-tracker/internal/config"
	"dose-tracker/internal/platform/logger"
	"dose-tracker/internal/router"
)

func main() {
	// .env es opcional: en prod las vars vienen del entorno.
	_ = godotenv.Load()

	cfg := config.Load()

	lg := logger.New(logger.Options{
		Level:  logger.ParseLevel(cfg.LogLevel),
		Format: logger.ParseFormat(cfg.LogFormat),
		App:    "dose-tracker",
	})

	r := router.NewRouter(router.Options{
		Config: cfg,
		Logger: lg,
	})

	addr := ":" + cfg.HTTPPort

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	lg.Info("starting server", map[string]any{"addr": addr})
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}
