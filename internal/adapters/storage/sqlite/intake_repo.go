package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"dose-tracker/internal/domain/intake"
)

type IntakeRepo struct {
	db *sqlx.DB
}

func NewIntakeRepo(db *sqlx.DB) *IntakeRepo {
	return &IntakeRepo{db: db}
}

type intakeLogRow struct {
	ID              string    `db:"id"`
	ConfigurationID *string   `db:"configuration_id"`
	ScheduledFor    time.Time `db:"scheduled_for"`
	LoggedAt        time.Time `db:"logged_at"`
	Notes           string    `db:"notes"`
}

func (r intakeLogRow) toDomain() intake.IntakeLog {
	return intake.IntakeLog{
		ID:              r.ID,
		ConfigurationID: r.ConfigurationID,
		ScheduledFor:    r.ScheduledFor,
		LoggedAt:        r.LoggedAt,
		Notes:           r.Notes,
	}
}

type deductionRow struct {
	ID           string  `db:"id"`
	LogID        string  `db:"log_id"`
	MedicationID string  `db:"medication_id"`
	SourceID     *string `db:"source_id"`
	Quantity     int     `db:"quantity"`
	WasDeducted  bool    `db:"was_deducted"`
}

func (r deductionRow) toDomain() intake.StockDeduction {
	return intake.StockDeduction{
		ID:           r.ID,
		LogID:        r.LogID,
		MedicationID: r.MedicationID,
		SourceID:     r.SourceID,
		Quantity:     r.Quantity,
		WasDeducted:  r.WasDeducted,
	}
}

// CreateLog inserta el log y sus deducciones en una sola transacción.
func (r *IntakeRepo) CreateLog(ctx context.Context, l intake.IntakeLog, deductions []intake.StockDeduction) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO intake_logs (id, configuration_id, scheduled_for, logged_at, notes)
		VALUES (?, ?, ?, ?, ?)
	`, l.ID, l.ConfigurationID, l.ScheduledFor, l.LoggedAt, l.Notes); err != nil {
		return err
	}

	for _, d := range deductions {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO stock_deductions (id, log_id, medication_id, source_id, quantity, was_deducted)
			VALUES (?, ?, ?, ?, ?, ?)
		`, d.ID, d.LogID, d.MedicationID, d.SourceID, d.Quantity, d.WasDeducted); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *IntakeRepo) GetLogByID(ctx context.Context, id string) (intake.IntakeLog, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return intake.IntakeLog{}, intake.ErrNotFound
	}

	var row intakeLogRow
	err := r.db.GetContext(ctx, &row, `
		SELECT id, configuration_id, scheduled_for, logged_at, notes
		FROM intake_logs WHERE id = ?
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return intake.IntakeLog{}, intake.ErrNotFound
		}
		return intake.IntakeLog{}, err
	}

	return row.toDomain(), nil
}

func (r *IntakeRepo) ListLogsBetween(ctx context.Context, from, to time.Time) ([]intake.IntakeLog, error) {
	var rows []intakeLogRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, configuration_id, scheduled_for, logged_at, notes
		FROM intake_logs
		WHERE scheduled_for >= ? AND scheduled_for < ?
		ORDER BY scheduled_for ASC
	`, from, to)
	if err != nil {
		return nil, err
	}

	out := make([]intake.IntakeLog, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *IntakeRepo) ListDeductionsByLog(ctx context.Context, logID string) ([]intake.StockDeduction, error) {
	logID = strings.TrimSpace(logID)
	if logID == "" {
		return nil, nil
	}

	var rows []deductionRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, log_id, medication_id, source_id, quantity, was_deducted
		FROM stock_deductions
		WHERE log_id = ?
		ORDER BY id ASC
	`, logID)
	if err != nil {
		return nil, err
	}

	out := make([]intake.StockDeduction, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// DeleteLog borra el log y sus deducciones como una sola unidad.
func (r *IntakeRepo) DeleteLog(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return intake.ErrNotFound
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM stock_deductions WHERE log_id = ?`, id); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM intake_logs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return intake.ErrNotFound
	}

	return tx.Commit()
}
