package postgres

import (
	"context"
	"database/sql"
	"strings"

	"dose-tracker/internal/domain/medications"
)

type MedicationsRepo struct {
	db *sql.DB
}

func NewMedicationsRepo(db *sql.DB) *MedicationsRepo {
	return &MedicationsRepo{db: db}
}

func (r *MedicationsRepo) Create(ctx context.Context, m medications.Medication) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO medications (
			id, name, form,
			strength_value, strength_unit,
			created_at
		) VALUES ($1,$2,$3,$4,$5,$6)
	`,
		m.ID,
		m.Name,
		string(m.Form),
		m.StrengthValue,
		m.StrengthUnit,
		m.CreatedAt,
	)
	return err
}

func (r *MedicationsRepo) GetByID(ctx context.Context, id string) (medications.Medication, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return medications.Medication{}, medications.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, form, strength_value, strength_unit, created_at
		FROM medications
		WHERE id = $1
	`, id)

	var m medications.Medication
	var form string
	if err := row.Scan(&m.ID, &m.Name, &form, &m.StrengthValue, &m.StrengthUnit, &m.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return medications.Medication{}, medications.ErrNotFound
		}
		return medications.Medication{}, err
	}
	m.Form = medications.Form(form)

	return m, nil
}

func (r *MedicationsRepo) List(ctx context.Context) ([]medications.Medication, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, form, strength_value, strength_unit, created_at
		FROM medications
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]medications.Medication, 0)
	for rows.Next() {
		var m medications.Medication
		var form string
		if err := rows.Scan(&m.ID, &m.Name, &form, &m.StrengthValue, &m.StrengthUnit, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Form = medications.Form(form)
		out = append(out, m)
	}

	return out, rows.Err()
}

func (r *MedicationsRepo) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return medications.ErrNotFound
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// las fuentes viven y mueren con su medicamento
	if _, err := tx.ExecContext(ctx, `DELETE FROM stock_sources WHERE medication_id = $1`, id); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM medications WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return medications.ErrNotFound
	}

	return tx.Commit()
}

func (r *MedicationsRepo) CreateSource(ctx context.Context, s medications.StockSource) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO stock_sources (
			id, medication_id, label,
			initial_quantity, current_quantity,
			counting_enabled, counting_since,
			low_stock_threshold, expiry_date,
			created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`,
		s.ID,
		s.MedicationID,
		s.Label,
		s.InitialQuantity,
		s.CurrentQuantity,
		s.CountingEnabled,
		s.CountingSince,
		s.LowStockThreshold,
		s.ExpiryDate,
		s.CreatedAt,
	)
	return err
}

func (r *MedicationsRepo) GetSourceByID(ctx context.Context, id string) (medications.StockSource, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return medications.StockSource{}, medications.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT
			id, medication_id, label,
			initial_quantity, current_quantity,
			counting_enabled, counting_since,
			low_stock_threshold, expiry_date,
			created_at
		FROM stock_sources
		WHERE id = $1
	`, id)

	var s medications.StockSource
	if err := row.Scan(
		&s.ID,
		&s.MedicationID,
		&s.Label,
		&s.InitialQuantity,
		&s.CurrentQuantity,
		&s.CountingEnabled,
		&s.CountingSince,
		&s.LowStockThreshold,
		&s.ExpiryDate,
		&s.CreatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return medications.StockSource{}, medications.ErrNotFound
		}
		return medications.StockSource{}, err
	}

	return s, nil
}

func (r *MedicationsRepo) ListSourcesByMedication(ctx context.Context, medicationID string) ([]medications.StockSource, error) {
	medicationID = strings.TrimSpace(medicationID)
	if medicationID == "" {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT
			id, medication_id, label,
			initial_quantity, current_quantity,
			counting_enabled, counting_since,
			low_stock_threshold, expiry_date,
			created_at
		FROM stock_sources
		WHERE medication_id = $1
		ORDER BY created_at ASC
	`, medicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]medications.StockSource, 0)
	for rows.Next() {
		var s medications.StockSource
		if err := rows.Scan(
			&s.ID,
			&s.MedicationID,
			&s.Label,
			&s.InitialQuantity,
			&s.CurrentQuantity,
			&s.CountingEnabled,
			&s.CountingSince,
			&s.LowStockThreshold,
			&s.ExpiryDate,
			&s.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, s)
	}

	return out, rows.Err()
}

func (r *MedicationsRepo) UpdateSource(ctx context.Context, s medications.StockSource) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE stock_sources
		SET
			label = $2,
			initial_quantity = $3,
			current_quantity = $4,
			counting_enabled = $5,
			counting_since = $6,
			low_stock_threshold = $7,
			expiry_date = $8
		WHERE id = $1
	`,
		s.ID,
		s.Label,
		s.InitialQuantity,
		s.CurrentQuantity,
		s.CountingEnabled,
		s.CountingSince,
		s.LowStockThreshold,
		s.ExpiryDate,
	)
	if err != nil {
		return err
	}

	n, _ := res.RowsAffected()
	if n == 0 {
		return medications.ErrNotFound
	}
	return nil
}
