package config

import (
	"log"
	"os"
	"strconv"
)

// Config reúne la configuración de la aplicación.
type Config struct {
	HTTPPort string

	// DatabaseDSN (Postgres) tiene prioridad; si está vacío y SQLitePath
	// no, se usa SQLite; si ambos están vacíos, repos in-memory.
	DatabaseDSN string
	SQLitePath  string

	// SyncWebhookURL: si está seteada, cada toma registrada/deshecha se
	// notifica por POST a esa URL.
	SyncWebhookURL string

	// Timezone IANA para el corte de día (default: zona local del proceso).
	Timezone string

	LogLevel  string
	LogFormat string
}

// Load lee la configuración desde variables de entorno con defaults sanos.
func Load() Config {
	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}
	if _, err := strconv.Atoi(port); err != nil {
		log.Printf("invalid HTTP_PORT value %q, defaulting to 8080", port)
		port = "8080"
	}

	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "info"
	}
	format := os.Getenv("LOG_FORMAT")
	if format == "" {
		format = "text"
	}

	return Config{
		HTTPPort:       port,
		DatabaseDSN:    os.Getenv("DB_DSN"),
		SQLitePath:     os.Getenv("SQLITE_PATH"),
		SyncWebhookURL: os.Getenv("SYNC_WEBHOOK_URL"),
		Timezone:       os.Getenv("TIMEZONE"),
		LogLevel:       level,
		LogFormat:      format,
	}
}
