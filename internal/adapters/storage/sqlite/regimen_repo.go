package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"dose-tracker/internal/domain/regimen"
)

type RegimenRepo struct {
	db *sqlx.DB
}

func NewRegimenRepo(db *sqlx.DB) *RegimenRepo {
	return &RegimenRepo{db: db}
}

type groupRow struct {
	ID            string    `db:"id"`
	Name          string    `db:"name"`
	TimeFrame     string    `db:"time_frame"`
	SelectionRule string    `db:"selection_rule"`
	ReminderTime  *string   `db:"reminder_time"`
	CreatedAt     time.Time `db:"created_at"`
}

func (r groupRow) toDomain() regimen.MedicationGroup {
	return regimen.MedicationGroup{
		ID:            r.ID,
		Name:          r.Name,
		TimeFrame:     regimen.TimeFrame(r.TimeFrame),
		SelectionRule: regimen.SelectionRule(r.SelectionRule),
		ReminderTime:  r.ReminderTime,
		CreatedAt:     r.CreatedAt,
	}
}

type configurationRow struct {
	ID          string     `db:"id"`
	GroupID     *string    `db:"group_id"`
	DisplayName string     `db:"display_name"`
	Schedule    string     `db:"schedule"`
	Active      bool       `db:"active"`
	StartDate   time.Time  `db:"start_date"`
	EndDate     *time.Time `db:"end_date"`
	CreatedAt   time.Time  `db:"created_at"`
}

func (r configurationRow) toDomain() regimen.DoseConfiguration {
	return regimen.DoseConfiguration{
		ID:          r.ID,
		GroupID:     r.GroupID,
		DisplayName: r.DisplayName,
		Schedule:    r.Schedule,
		Active:      r.Active,
		StartDate:   r.StartDate,
		EndDate:     r.EndDate,
		CreatedAt:   r.CreatedAt,
	}
}

type componentRow struct {
	ID              string `db:"id"`
	ConfigurationID string `db:"configuration_id"`
	MedicationID    string `db:"medication_id"`
	Quantity        int    `db:"quantity"`
	Position        int    `db:"position"`
}

func (r componentRow) toDomain() regimen.DoseComponent {
	return regimen.DoseComponent{
		ID:              r.ID,
		ConfigurationID: r.ConfigurationID,
		MedicationID:    r.MedicationID,
		Quantity:        r.Quantity,
		Position:        r.Position,
	}
}

func (r *RegimenRepo) CreateGroup(ctx context.Context, g regimen.MedicationGroup) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO medication_groups (id, name, time_frame, selection_rule, reminder_time, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, g.ID, g.Name, string(g.TimeFrame), string(g.SelectionRule), g.ReminderTime, g.CreatedAt)
	return err
}

func (r *RegimenRepo) GetGroupByID(ctx context.Context, id string) (regimen.MedicationGroup, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return regimen.MedicationGroup{}, regimen.ErrNotFound
	}

	var row groupRow
	err := r.db.GetContext(ctx, &row, `
		SELECT id, name, time_frame, selection_rule, reminder_time, created_at
		FROM medication_groups WHERE id = ?
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return regimen.MedicationGroup{}, regimen.ErrNotFound
		}
		return regimen.MedicationGroup{}, err
	}

	return row.toDomain(), nil
}

func (r *RegimenRepo) ListGroups(ctx context.Context) ([]regimen.MedicationGroup, error) {
	var rows []groupRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, name, time_frame, selection_rule, reminder_time, created_at
		FROM medication_groups ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}

	out := make([]regimen.MedicationGroup, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// DeleteGroup no toca las configuraciones: conservan el group_id colgando.
func (r *RegimenRepo) DeleteGroup(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return regimen.ErrNotFound
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM medication_groups WHERE id = ?`, id)
	if err != nil {
		return err
	}

	n, _ := res.RowsAffected()
	if n == 0 {
		return regimen.ErrNotFound
	}
	return nil
}

func (r *RegimenRepo) CreateConfiguration(ctx context.Context, c regimen.DoseConfiguration) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO dose_configurations (
			id, group_id, display_name, schedule, active, start_date, end_date, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.GroupID, c.DisplayName, c.Schedule, c.Active, c.StartDate, c.EndDate, c.CreatedAt)
	return err
}

func (r *RegimenRepo) GetConfigurationByID(ctx context.Context, id string) (regimen.DoseConfiguration, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return regimen.DoseConfiguration{}, regimen.ErrNotFound
	}

	var row configurationRow
	err := r.db.GetContext(ctx, &row, `
		SELECT id, group_id, display_name, schedule, active, start_date, end_date, created_at
		FROM dose_configurations WHERE id = ?
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return regimen.DoseConfiguration{}, regimen.ErrNotFound
		}
		return regimen.DoseConfiguration{}, err
	}

	return row.toDomain(), nil
}

func (r *RegimenRepo) ListConfigurationsByGroup(ctx context.Context, groupID string) ([]regimen.DoseConfiguration, error) {
	groupID = strings.TrimSpace(groupID)
	if groupID == "" {
		return nil, nil
	}

	return r.listConfigurations(ctx, `
		SELECT id, group_id, display_name, schedule, active, start_date, end_date, created_at
		FROM dose_configurations
		WHERE group_id = ?
		ORDER BY created_at ASC
	`, groupID)
}

func (r *RegimenRepo) ListConfigurations(ctx context.Context) ([]regimen.DoseConfiguration, error) {
	return r.listConfigurations(ctx, `
		SELECT id, group_id, display_name, schedule, active, start_date, end_date, created_at
		FROM dose_configurations
		ORDER BY created_at ASC
	`)
}

func (r *RegimenRepo) listConfigurations(ctx context.Context, query string, args ...any) ([]regimen.DoseConfiguration, error) {
	var rows []configurationRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	out := make([]regimen.DoseConfiguration, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *RegimenRepo) UpdateConfiguration(ctx context.Context, c regimen.DoseConfiguration) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE dose_configurations
		SET
			group_id = ?,
			display_name = ?,
			schedule = ?,
			active = ?,
			start_date = ?,
			end_date = ?
		WHERE id = ?
	`, c.GroupID, c.DisplayName, c.Schedule, c.Active, c.StartDate, c.EndDate, c.ID)
	if err != nil {
		return err
	}

	n, _ := res.RowsAffected()
	if n == 0 {
		return regimen.ErrNotFound
	}
	return nil
}

func (r *RegimenRepo) DeleteConfiguration(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return regimen.ErrNotFound
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM dose_components WHERE configuration_id = ?`, id); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM dose_configurations WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return regimen.ErrNotFound
	}

	return tx.Commit()
}

func (r *RegimenRepo) CreateComponent(ctx context.Context, comp regimen.DoseComponent) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO dose_components (id, configuration_id, medication_id, quantity, position)
		VALUES (?, ?, ?, ?, ?)
	`, comp.ID, comp.ConfigurationID, comp.MedicationID, comp.Quantity, comp.Position)
	return err
}

func (r *RegimenRepo) ListComponentsByConfiguration(ctx context.Context, configurationID string) ([]regimen.DoseComponent, error) {
	configurationID = strings.TrimSpace(configurationID)
	if configurationID == "" {
		return nil, nil
	}

	var rows []componentRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, configuration_id, medication_id, quantity, position
		FROM dose_components
		WHERE configuration_id = ?
		ORDER BY position ASC
	`, configurationID)
	if err != nil {
		return nil, err
	}

	out := make([]regimen.DoseComponent, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *RegimenRepo) DeleteComponent(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return regimen.ErrNotFound
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM dose_components WHERE id = ?`, id)
	if err != nil {
		return err
	}

	n, _ := res.RowsAffected()
	if n == 0 {
		return regimen.ErrNotFound
	}
	return nil
}
