package sqlite

import (
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Open abre (o crea) la base SQLite en path y aplica el esquema.
// modernc.org/sqlite no tolera escrituras concurrentes: una sola conexión.
func Open(path string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

func migrate(db *sqlx.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS medications (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            form TEXT NOT NULL,
            strength_value REAL NOT NULL,
            strength_unit TEXT NOT NULL,
            created_at DATETIME NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS stock_sources (
            id TEXT PRIMARY KEY,
            medication_id TEXT NOT NULL,
            label TEXT NOT NULL,
            initial_quantity INTEGER,
            current_quantity INTEGER,
            counting_enabled INTEGER NOT NULL DEFAULT 0,
            counting_since DATETIME,
            low_stock_threshold INTEGER NOT NULL,
            expiry_date DATETIME,
            created_at DATETIME NOT NULL,
            FOREIGN KEY(medication_id) REFERENCES medications(id)
        );`,
		`CREATE TABLE IF NOT EXISTS medication_groups (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            time_frame TEXT NOT NULL,
            selection_rule TEXT NOT NULL,
            reminder_time TEXT,
            created_at DATETIME NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS dose_configurations (
            id TEXT PRIMARY KEY,
            group_id TEXT,
            display_name TEXT NOT NULL,
            schedule TEXT NOT NULL DEFAULT '',
            active INTEGER NOT NULL DEFAULT 1,
            start_date DATETIME NOT NULL,
            end_date DATETIME,
            created_at DATETIME NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS dose_components (
            id TEXT PRIMARY KEY,
            configuration_id TEXT NOT NULL,
            medication_id TEXT NOT NULL,
            quantity INTEGER NOT NULL,
            position INTEGER NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS intake_logs (
            id TEXT PRIMARY KEY,
            configuration_id TEXT,
            scheduled_for DATETIME NOT NULL,
            logged_at DATETIME NOT NULL,
            notes TEXT NOT NULL DEFAULT ''
        );`,
		`CREATE TABLE IF NOT EXISTS stock_deductions (
            id TEXT PRIMARY KEY,
            log_id TEXT NOT NULL,
            medication_id TEXT NOT NULL,
            source_id TEXT,
            quantity INTEGER NOT NULL,
            was_deducted INTEGER NOT NULL DEFAULT 0,
            FOREIGN KEY(log_id) REFERENCES intake_logs(id)
        );`,
		`CREATE INDEX IF NOT EXISTS idx_stock_sources_medication ON stock_sources(medication_id);`,
		`CREATE INDEX IF NOT EXISTS idx_dose_components_configuration ON dose_components(configuration_id);`,
		`CREATE INDEX IF NOT EXISTS idx_intake_logs_scheduled ON intake_logs(scheduled_for);`,
		`CREATE INDEX IF NOT EXISTS idx_stock_deductions_log ON stock_deductions(log_id);`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
