package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"dose-tracker/internal/domain/medications"
)

type medicationsRepo struct {
	mu      sync.RWMutex
	meds    map[string]medications.Medication
	sources map[string]medications.StockSource
}

func NewMedicationsRepo() medications.Repository {
	return &medicationsRepo{
		meds:    make(map[string]medications.Medication),
		sources: make(map[string]medications.StockSource),
	}
}

func (r *medicationsRepo) Create(ctx context.Context, m medications.Medication) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(m.ID) == "" {
		return errors.New("medication id required")
	}
	if _, exists := r.meds[m.ID]; exists {
		return errors.New("medication already exists")
	}
	r.meds[m.ID] = m
	return nil
}

func (r *medicationsRepo) GetByID(ctx context.Context, id string) (medications.Medication, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.meds[id]
	if !ok {
		return medications.Medication{}, medications.ErrNotFound
	}
	return m, nil
}

func (r *medicationsRepo) List(ctx context.Context) ([]medications.Medication, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]medications.Medication, 0, len(r.meds))
	for _, m := range r.meds {
		out = append(out, m)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *medicationsRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.meds[id]; !ok {
		return medications.ErrNotFound
	}
	delete(r.meds, id)

	// Las fuentes pertenecen al medicamento: se van con él.
	for sid, src := range r.sources {
		if src.MedicationID == id {
			delete(r.sources, sid)
		}
	}
	return nil
}

func (r *medicationsRepo) CreateSource(ctx context.Context, s medications.StockSource) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(s.ID) == "" {
		return errors.New("source id required")
	}
	if _, exists := r.sources[s.ID]; exists {
		return errors.New("source already exists")
	}
	r.sources[s.ID] = s
	return nil
}

func (r *medicationsRepo) GetSourceByID(ctx context.Context, id string) (medications.StockSource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sources[id]
	if !ok {
		return medications.StockSource{}, medications.ErrNotFound
	}
	return s, nil
}

func (r *medicationsRepo) ListSourcesByMedication(ctx context.Context, medicationID string) ([]medications.StockSource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]medications.StockSource, 0)
	for _, s := range r.sources {
		if s.MedicationID == medicationID {
			out = append(out, s)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *medicationsRepo) UpdateSource(ctx context.Context, s medications.StockSource) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sources[s.ID]; !ok {
		return medications.ErrNotFound
	}
	r.sources[s.ID] = s
	return nil
}
