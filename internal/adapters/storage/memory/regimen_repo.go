package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"dose-tracker/internal/domain/regimen"
)

type regimenRepo struct {
	mu         sync.RWMutex
	groups     map[string]regimen.MedicationGroup
	configs    map[string]regimen.DoseConfiguration
	components map[string]regimen.DoseComponent
}

func NewRegimenRepo() regimen.Repository {
	return &regimenRepo{
		groups:     make(map[string]regimen.MedicationGroup),
		configs:    make(map[string]regimen.DoseConfiguration),
		components: make(map[string]regimen.DoseComponent),
	}
}

func (r *regimenRepo) CreateGroup(ctx context.Context, g regimen.MedicationGroup) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(g.ID) == "" {
		return errors.New("group id required")
	}
	if _, exists := r.groups[g.ID]; exists {
		return errors.New("group already exists")
	}
	r.groups[g.ID] = g
	return nil
}

func (r *regimenRepo) GetGroupByID(ctx context.Context, id string) (regimen.MedicationGroup, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.groups[id]
	if !ok {
		return regimen.MedicationGroup{}, regimen.ErrNotFound
	}
	return g, nil
}

func (r *regimenRepo) ListGroups(ctx context.Context) ([]regimen.MedicationGroup, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]regimen.MedicationGroup, 0, len(r.groups))
	for _, g := range r.groups {
		out = append(out, g)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *regimenRepo) DeleteGroup(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.groups[id]; !ok {
		return regimen.ErrNotFound
	}
	delete(r.groups, id)
	// Las configuraciones del grupo NO se borran: quedan con la
	// referencia colgando, igual que en el resto del sistema.
	return nil
}

func (r *regimenRepo) CreateConfiguration(ctx context.Context, c regimen.DoseConfiguration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(c.ID) == "" {
		return errors.New("configuration id required")
	}
	if _, exists := r.configs[c.ID]; exists {
		return errors.New("configuration already exists")
	}
	r.configs[c.ID] = c
	return nil
}

func (r *regimenRepo) GetConfigurationByID(ctx context.Context, id string) (regimen.DoseConfiguration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.configs[id]
	if !ok {
		return regimen.DoseConfiguration{}, regimen.ErrNotFound
	}
	return c, nil
}

func (r *regimenRepo) ListConfigurationsByGroup(ctx context.Context, groupID string) ([]regimen.DoseConfiguration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]regimen.DoseConfiguration, 0)
	for _, c := range r.configs {
		if c.GroupID != nil && *c.GroupID == groupID {
			out = append(out, c)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *regimenRepo) ListConfigurations(ctx context.Context) ([]regimen.DoseConfiguration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]regimen.DoseConfiguration, 0, len(r.configs))
	for _, c := range r.configs {
		out = append(out, c)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *regimenRepo) UpdateConfiguration(ctx context.Context, c regimen.DoseConfiguration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.configs[c.ID]; !ok {
		return regimen.ErrNotFound
	}
	r.configs[c.ID] = c
	return nil
}

func (r *regimenRepo) DeleteConfiguration(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.configs[id]; !ok {
		return regimen.ErrNotFound
	}
	delete(r.configs, id)

	// Los componentes sí pertenecen a la configuración.
	for cid, comp := range r.components {
		if comp.ConfigurationID == id {
			delete(r.components, cid)
		}
	}
	return nil
}

func (r *regimenRepo) CreateComponent(ctx context.Context, comp regimen.DoseComponent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(comp.ID) == "" {
		return errors.New("component id required")
	}
	if _, exists := r.components[comp.ID]; exists {
		return errors.New("component already exists")
	}
	r.components[comp.ID] = comp
	return nil
}

func (r *regimenRepo) ListComponentsByConfiguration(ctx context.Context, configurationID string) ([]regimen.DoseComponent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]regimen.DoseComponent, 0)
	for _, comp := range r.components {
		if comp.ConfigurationID == configurationID {
			out = append(out, comp)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Position < out[j].Position
	})
	return out, nil
}

func (r *regimenRepo) DeleteComponent(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.components[id]; !ok {
		return regimen.ErrNotFound
	}
	delete(r.components, id)
	return nil
}
