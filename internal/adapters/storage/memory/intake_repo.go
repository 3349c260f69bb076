package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"dose-tracker/internal/domain/intake"
)

type intakeRepo struct {
	mu   sync.RWMutex
	logs map[string]intake.IntakeLog
	deds map[string][]intake.StockDeduction
}

func NewIntakeRepo() intake.Repository {
	return &intakeRepo{
		logs: make(map[string]intake.IntakeLog),
		deds: make(map[string][]intake.StockDeduction),
	}
}

func (r *intakeRepo) CreateLog(ctx context.Context, l intake.IntakeLog, deductions []intake.StockDeduction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(l.ID) == "" {
		return errors.New("intake log id required")
	}
	if _, exists := r.logs[l.ID]; exists {
		return errors.New("intake log already exists")
	}

	copied := make([]intake.StockDeduction, len(deductions))
	copy(copied, deductions)

	r.logs[l.ID] = l
	r.deds[l.ID] = copied
	return nil
}

func (r *intakeRepo) GetLogByID(ctx context.Context, id string) (intake.IntakeLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.logs[id]
	if !ok {
		return intake.IntakeLog{}, intake.ErrNotFound
	}
	return l, nil
}

func (r *intakeRepo) ListLogsBetween(ctx context.Context, from, to time.Time) ([]intake.IntakeLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]intake.IntakeLog, 0)
	for _, l := range r.logs {
		// intervalo semiabierto [from, to)
		if !l.ScheduledFor.Before(from) && l.ScheduledFor.Before(to) {
			out = append(out, l)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].ScheduledFor.Before(out[j].ScheduledFor)
	})
	return out, nil
}

func (r *intakeRepo) ListDeductionsByLog(ctx context.Context, logID string) ([]intake.StockDeduction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	deds := r.deds[logID]
	out := make([]intake.StockDeduction, len(deds))
	copy(out, deds)
	return out, nil
}

func (r *intakeRepo) DeleteLog(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.logs[id]; !ok {
		return intake.ErrNotFound
	}
	delete(r.logs, id)
	delete(r.deds, id)
	return nil
}
