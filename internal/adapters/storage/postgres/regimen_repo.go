package postgres

import (
	"context"
	"database/sql"
	"strings"

	"dose-tracker/internal/domain/regimen"
)

type RegimenRepo struct {
	db *sql.DB
}

func NewRegimenRepo(db *sql.DB) *RegimenRepo {
	return &RegimenRepo{db: db}
}

func (r *RegimenRepo) CreateGroup(ctx context.Context, g regimen.MedicationGroup) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO medication_groups (
			id, name, time_frame, selection_rule, reminder_time, created_at
		) VALUES ($1,$2,$3,$4,$5,$6)
	`,
		g.ID,
		g.Name,
		string(g.TimeFrame),
		string(g.SelectionRule),
		g.ReminderTime,
		g.CreatedAt,
	)
	return err
}

func (r *RegimenRepo) GetGroupByID(ctx context.Context, id string) (regimen.MedicationGroup, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return regimen.MedicationGroup{}, regimen.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, time_frame, selection_rule, reminder_time, created_at
		FROM medication_groups
		WHERE id = $1
	`, id)

	g, err := scanGroup(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return regimen.MedicationGroup{}, regimen.ErrNotFound
		}
		return regimen.MedicationGroup{}, err
	}
	return g, nil
}

func (r *RegimenRepo) ListGroups(ctx context.Context) ([]regimen.MedicationGroup, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, time_frame, selection_rule, reminder_time, created_at
		FROM medication_groups
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]regimen.MedicationGroup, 0)
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}

	return out, rows.Err()
}

// DeleteGroup borra solo el grupo: las configuraciones conservan su
// group_id colgando, igual que el resto de las referencias débiles.
func (r *RegimenRepo) DeleteGroup(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return regimen.ErrNotFound
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM medication_groups WHERE id = $1`, id)
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
			id, group_id, display_name, schedule,
			active, start_date, end_date, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`,
		c.ID,
		c.GroupID,
		c.DisplayName,
		c.Schedule,
		c.Active,
		c.StartDate,
		c.EndDate,
		c.CreatedAt,
	)
	return err
}

func (r *RegimenRepo) GetConfigurationByID(ctx context.Context, id string) (regimen.DoseConfiguration, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return regimen.DoseConfiguration{}, regimen.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT id, group_id, display_name, schedule, active, start_date, end_date, created_at
		FROM dose_configurations
		WHERE id = $1
	`, id)

	c, err := scanConfiguration(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return regimen.DoseConfiguration{}, regimen.ErrNotFound
		}
		return regimen.DoseConfiguration{}, err
	}
	return c, nil
}

func (r *RegimenRepo) ListConfigurationsByGroup(ctx context.Context, groupID string) ([]regimen.DoseConfiguration, error) {
	groupID = strings.TrimSpace(groupID)
	if groupID == "" {
		return nil, nil
	}

	return r.listConfigurations(ctx, `
		SELECT id, group_id, display_name, schedule, active, start_date, end_date, created_at
		FROM dose_configurations
		WHERE group_id = $1
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
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]regimen.DoseConfiguration, 0)
	for rows.Next() {
		c, err := scanConfiguration(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}

	return out, rows.Err()
}

func (r *RegimenRepo) UpdateConfiguration(ctx context.Context, c regimen.DoseConfiguration) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE dose_configurations
		SET
			group_id = $2,
			display_name = $3,
			schedule = $4,
			active = $5,
			start_date = $6,
			end_date = $7
		WHERE id = $1
	`,
		c.ID,
		c.GroupID,
		c.DisplayName,
		c.Schedule,
		c.Active,
		c.StartDate,
		c.EndDate,
	)
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

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// los componentes viven y mueren con su configuración
	if _, err := tx.ExecContext(ctx, `DELETE FROM dose_components WHERE configuration_id = $1`, id); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM dose_configurations WHERE id = $1`, id)
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
		INSERT INTO dose_components (
			id, configuration_id, medication_id, quantity, position
		) VALUES ($1,$2,$3,$4,$5)
	`,
		comp.ID,
		comp.ConfigurationID,
		comp.MedicationID,
		comp.Quantity,
		comp.Position,
	)
	return err
}

func (r *RegimenRepo) ListComponentsByConfiguration(ctx context.Context, configurationID string) ([]regimen.DoseComponent, error) {
	configurationID = strings.TrimSpace(configurationID)
	if configurationID == "" {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, configuration_id, medication_id, quantity, position
		FROM dose_components
		WHERE configuration_id = $1
		ORDER BY position ASC
	`, configurationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]regimen.DoseComponent, 0)
	for rows.Next() {
		var comp regimen.DoseComponent
		if err := rows.Scan(&comp.ID, &comp.ConfigurationID, &comp.MedicationID, &comp.Quantity, &comp.Position); err != nil {
			return nil, err
		}
		out = append(out, comp)
	}

	return out, rows.Err()
}

func (r *RegimenRepo) DeleteComponent(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return regimen.ErrNotFound
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM dose_components WHERE id = $1`, id)
	if err != nil {
		return err
	}

	n, _ := res.RowsAffected()
	if n == 0 {
		return regimen.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGroup(row rowScanner) (regimen.MedicationGroup, error) {
	var g regimen.MedicationGroup
	var frame, rule string
	if err := row.Scan(&g.ID, &g.Name, &frame, &rule, &g.ReminderTime, &g.CreatedAt); err != nil {
		return regimen.MedicationGroup{}, err
	}
	g.TimeFrame = regimen.TimeFrame(frame)
	g.SelectionRule = regimen.SelectionRule(rule)
	return g, nil
}

func scanConfiguration(row rowScanner) (regimen.DoseConfiguration, error) {
	var c regimen.DoseConfiguration
	if err := row.Scan(
		&c.ID,
		&c.GroupID,
		&c.DisplayName,
		&c.Schedule,
		&c.Active,
		&c.StartDate,
		&c.EndDate,
		&c.CreatedAt,
	); err != nil {
		return regimen.DoseConfiguration{}, err
	}
	return c, nil
}
