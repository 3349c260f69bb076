package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"dose-tracker/internal/domain/intake"
)

type IntakeRepo struct {
	db *sql.DB
}

func NewIntakeRepo(db *sql.DB) *IntakeRepo {
	return &IntakeRepo{db: db}
}

// CreateLog inserta el log y sus deducciones en una sola transacción.
func (r *IntakeRepo) CreateLog(ctx context.Context, l intake.IntakeLog, deductions []intake.StockDeduction) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO intake_logs (
			id, configuration_id, scheduled_for, logged_at, notes
		) VALUES ($1,$2,$3,$4,$5)
	`,
		l.ID,
		l.ConfigurationID,
		l.ScheduledFor,
		l.LoggedAt,
		l.Notes,
	); err != nil {
		return err
	}

	for _, d := range deductions {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO stock_deductions (
				id, log_id, medication_id, source_id, quantity, was_deducted
			) VALUES ($1,$2,$3,$4,$5,$6)
		`,
			d.ID,
			d.LogID,
			d.MedicationID,
			d.SourceID,
			d.Quantity,
			d.WasDeducted,
		); err != nil {
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

	row := r.db.QueryRowContext(ctx, `
		SELECT id, configuration_id, scheduled_for, logged_at, notes
		FROM intake_logs
		WHERE id = $1
	`, id)

	var l intake.IntakeLog
	if err := row.Scan(&l.ID, &l.ConfigurationID, &l.ScheduledFor, &l.LoggedAt, &l.Notes); err != nil {
		if err == sql.ErrNoRows {
			return intake.IntakeLog{}, intake.ErrNotFound
		}
		return intake.IntakeLog{}, err
	}

	return l, nil
}

func (r *IntakeRepo) ListLogsBetween(ctx context.Context, from, to time.Time) ([]intake.IntakeLog, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, configuration_id, scheduled_for, logged_at, notes
		FROM intake_logs
		WHERE scheduled_for >= $1 AND scheduled_for < $2
		ORDER BY scheduled_for ASC
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]intake.IntakeLog, 0)
	for rows.Next() {
		var l intake.IntakeLog
		if err := rows.Scan(&l.ID, &l.ConfigurationID, &l.ScheduledFor, &l.LoggedAt, &l.Notes); err != nil {
			return nil, err
		}
		out = append(out, l)
	}

	return out, rows.Err()
}

func (r *IntakeRepo) ListDeductionsByLog(ctx context.Context, logID string) ([]intake.StockDeduction, error) {
	logID = strings.TrimSpace(logID)
	if logID == "" {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, log_id, medication_id, source_id, quantity, was_deducted
		FROM stock_deductions
		WHERE log_id = $1
		ORDER BY id ASC
	`, logID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]intake.StockDeduction, 0)
	for rows.Next() {
		var d intake.StockDeduction
		if err := rows.Scan(&d.ID, &d.LogID, &d.MedicationID, &d.SourceID, &d.Quantity, &d.WasDeducted); err != nil {
			return nil, err
		}
		out = append(out, d)
	}

	return out, rows.Err()
}

// DeleteLog borra el log y sus deducciones como una sola unidad.
func (r *IntakeRepo) DeleteLog(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return intake.ErrNotFound
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM stock_deductions WHERE log_id = $1`, id); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM intake_logs WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return intake.ErrNotFound
	}

	return tx.Commit()
}
