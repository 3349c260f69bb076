package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"dose-tracker/internal/domain/medications"
)

type MedicationsRepo struct {
	db *sqlx.DB
}

func NewMedicationsRepo(db *sqlx.DB) *MedicationsRepo {
	return &MedicationsRepo{db: db}
}

type medicationRow struct {
	ID            string    `db:"id"`
	Name          string    `db:"name"`
	Form          string    `db:"form"`
	StrengthValue float64   `db:"strength_value"`
	StrengthUnit  string    `db:"strength_unit"`
	CreatedAt     time.Time `db:"created_at"`
}

func (r medicationRow) toDomain() medications.Medication {
	return medications.Medication{
		ID:            r.ID,
		Name:          r.Name,
		Form:          medications.Form(r.Form),
		StrengthValue: r.StrengthValue,
		StrengthUnit:  r.StrengthUnit,
		CreatedAt:     r.CreatedAt,
	}
}

type stockSourceRow struct {
	ID                string     `db:"id"`
	MedicationID      string     `db:"medication_id"`
	Label             string     `db:"label"`
	InitialQuantity   *int       `db:"initial_quantity"`
	CurrentQuantity   *int       `db:"current_quantity"`
	CountingEnabled   bool       `db:"counting_enabled"`
	CountingSince     *time.Time `db:"counting_since"`
	LowStockThreshold int        `db:"low_stock_threshold"`
	ExpiryDate        *time.Time `db:"expiry_date"`
	CreatedAt         time.Time  `db:"created_at"`
}

func (r stockSourceRow) toDomain() medications.StockSource {
	return medications.StockSource{
		ID:                r.ID,
		MedicationID:      r.MedicationID,
		Label:             r.Label,
		InitialQuantity:   r.InitialQuantity,
		CurrentQuantity:   r.CurrentQuantity,
		CountingEnabled:   r.CountingEnabled,
		CountingSince:     r.CountingSince,
		LowStockThreshold: r.LowStockThreshold,
		ExpiryDate:        r.ExpiryDate,
		CreatedAt:         r.CreatedAt,
	}
}

func (r *MedicationsRepo) Create(ctx context.Context, m medications.Medication) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO medications (id, name, form, strength_value, strength_unit, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, m.ID, m.Name, string(m.Form), m.StrengthValue, m.StrengthUnit, m.CreatedAt)
	return err
}

func (r *MedicationsRepo) GetByID(ctx context.Context, id string) (medications.Medication, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return medications.Medication{}, medications.ErrNotFound
	}

	var row medicationRow
	err := r.db.GetContext(ctx, &row, `
		SELECT id, name, form, strength_value, strength_unit, created_at
		FROM medications WHERE id = ?
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return medications.Medication{}, medications.ErrNotFound
		}
		return medications.Medication{}, err
	}

	return row.toDomain(), nil
}

func (r *MedicationsRepo) List(ctx context.Context) ([]medications.Medication, error) {
	var rows []medicationRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, name, form, strength_value, strength_unit, created_at
		FROM medications ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}

	out := make([]medications.Medication, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *MedicationsRepo) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return medications.ErrNotFound
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM stock_sources WHERE medication_id = ?`, id); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM medications WHERE id = ?`, id)
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
			low_stock_threshold, expiry_date, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		s.ID, s.MedicationID, s.Label,
		s.InitialQuantity, s.CurrentQuantity,
		s.CountingEnabled, s.CountingSince,
		s.LowStockThreshold, s.ExpiryDate, s.CreatedAt,
	)
	return err
}

func (r *MedicationsRepo) GetSourceByID(ctx context.Context, id string) (medications.StockSource, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return medications.StockSource{}, medications.ErrNotFound
	}

	var row stockSourceRow
	err := r.db.GetContext(ctx, &row, `
		SELECT
			id, medication_id, label,
			initial_quantity, current_quantity,
			counting_enabled, counting_since,
			low_stock_threshold, expiry_date, created_at
		FROM stock_sources WHERE id = ?
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return medications.StockSource{}, medications.ErrNotFound
		}
		return medications.StockSource{}, err
	}

	return row.toDomain(), nil
}

func (r *MedicationsRepo) ListSourcesByMedication(ctx context.Context, medicationID string) ([]medications.StockSource, error) {
	medicationID = strings.TrimSpace(medicationID)
	if medicationID == "" {
		return nil, nil
	}

	var rows []stockSourceRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT
			id, medication_id, label,
			initial_quantity, current_quantity,
			counting_enabled, counting_since,
			low_stock_threshold, expiry_date, created_at
		FROM stock_sources
		WHERE medication_id = ?
		ORDER BY created_at ASC
	`, medicationID)
	if err != nil {
		return nil, err
	}

	out := make([]medications.StockSource, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *MedicationsRepo) UpdateSource(ctx context.Context, s medications.StockSource) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE stock_sources
		SET
			label = ?,
			initial_quantity = ?,
			current_quantity = ?,
			counting_enabled = ?,
			counting_since = ?,
			low_stock_threshold = ?,
			expiry_date = ?
		WHERE id = ?
	`,
		s.Label,
		s.InitialQuantity,
		s.CurrentQuantity,
		s.CountingEnabled,
		s.CountingSince,
		s.LowStockThreshold,
		s.ExpiryDate,
		s.ID,
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
