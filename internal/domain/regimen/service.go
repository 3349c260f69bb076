package regimen

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

type CreateGroupInput struct {
	Name          string
	TimeFrame     string
	SelectionRule string
	ReminderTime  *string // "HH:MM"
}

func (s *Service) CreateGroup(ctx context.Context, in CreateGroupInput) (MedicationGroup, error) {
	if strings.TrimSpace(in.Name) == "" {
		return MedicationGroup{}, ErrInvalidInput
	}

	frame := TimeFrame(strings.TrimSpace(in.TimeFrame))
	if !frame.Valid() {
		return MedicationGroup{}, ErrInvalidInput
	}

	rule := SelectionRule(strings.TrimSpace(in.SelectionRule))
	if rule == "" {
		rule = RuleExactlyOne
	}
	if !rule.Valid() {
		return MedicationGroup{}, ErrInvalidInput
	}

	var reminder *string
	if in.ReminderTime != nil && strings.TrimSpace(*in.ReminderTime) != "" {
		hm := strings.TrimSpace(*in.ReminderTime)
		if _, err := time.Parse("15:04", hm); err != nil {
			return MedicationGroup{}, ErrInvalidInput
		}
		reminder = &hm
	}

	g := MedicationGroup{
		ID:            uuid.NewString(),
		Name:          strings.TrimSpace(in.Name),
		TimeFrame:     frame,
		SelectionRule: rule,
		ReminderTime:  reminder,
		CreatedAt:     s.now(),
	}

	if err := s.repo.CreateGroup(ctx, g); err != nil {
		return MedicationGroup{}, err
	}
	return g, nil
}

func (s *Service) GetGroupByID(ctx context.Context, id string) (MedicationGroup, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return MedicationGroup{}, ErrInvalidInput
	}
	return s.repo.GetGroupByID(ctx, id)
}

func (s *Service) ListGroups(ctx context.Context) ([]MedicationGroup, error) {
	return s.repo.ListGroups(ctx)
}

func (s *Service) DeleteGroup(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrInvalidInput
	}
	return s.repo.DeleteGroup(ctx, id)
}

type CreateConfigurationInput struct {
	GroupID     string // opcional: configuración sin grupo es válida
	DisplayName string
	Schedule    string
	StartDate   time.Time
	EndDate     *time.Time
}

func (s *Service) CreateConfiguration(ctx context.Context, in CreateConfigurationInput) (DoseConfiguration, error) {
	if strings.TrimSpace(in.DisplayName) == "" {
		return DoseConfiguration{}, ErrInvalidInput
	}
	if in.StartDate.IsZero() {
		return DoseConfiguration{}, ErrInvalidInput
	}
	if in.EndDate != nil && in.EndDate.Before(in.StartDate) {
		return DoseConfiguration{}, ErrInvalidInput
	}

	var groupID *string
	if gid := strings.TrimSpace(in.GroupID); gid != "" {
		if _, err := s.repo.GetGroupByID(ctx, gid); err != nil {
			return DoseConfiguration{}, err
		}
		groupID = &gid
	}

	c := DoseConfiguration{
		ID:          uuid.NewString(),
		GroupID:     groupID,
		DisplayName: strings.TrimSpace(in.DisplayName),
		Schedule:    strings.TrimSpace(in.Schedule),
		Active:      true,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		CreatedAt:   s.now(),
	}

	if err := s.repo.CreateConfiguration(ctx, c); err != nil {
		return DoseConfiguration{}, err
	}
	return c, nil
}

func (s *Service) GetConfigurationByID(ctx context.Context, id string) (DoseConfiguration, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return DoseConfiguration{}, ErrInvalidInput
	}
	return s.repo.GetConfigurationByID(ctx, id)
}

func (s *Service) ListConfigurationsByGroup(ctx context.Context, groupID string) ([]DoseConfiguration, error) {
	return s.repo.ListConfigurationsByGroup(ctx, strings.TrimSpace(groupID))
}

// SetActive prende/apaga una configuración sin tocar su ventana de fechas.
func (s *Service) SetActive(ctx context.Context, id string, active bool) (DoseConfiguration, error) {
	c, err := s.GetConfigurationByID(ctx, id)
	if err != nil {
		return DoseConfiguration{}, err
	}
	c.Active = active
	if err := s.repo.UpdateConfiguration(ctx, c); err != nil {
		return DoseConfiguration{}, err
	}
	return c, nil
}

func (s *Service) DeleteConfiguration(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrInvalidInput
	}
	return s.repo.DeleteConfiguration(ctx, id)
}

type AddComponentInput struct {
	ConfigurationID string
	MedicationID    string
	Quantity        int
}

// AddComponent agrega un componente al final de la configuración.
// MedicationID no se valida contra el catálogo: la referencia es débil por
// diseño y el resto del sistema tolera que apunte a un medicamento borrado.
func (s *Service) AddComponent(ctx context.Context, in AddComponentInput) (DoseComponent, error) {
	configID := strings.TrimSpace(in.ConfigurationID)
	medID := strings.TrimSpace(in.MedicationID)
	if configID == "" || medID == "" || in.Quantity <= 0 {
		return DoseComponent{}, ErrInvalidInput
	}

	if _, err := s.repo.GetConfigurationByID(ctx, configID); err != nil {
		return DoseComponent{}, err
	}

	existing, err := s.repo.ListComponentsByConfiguration(ctx, configID)
	if err != nil {
		return DoseComponent{}, err
	}

	comp := DoseComponent{
		ID:              uuid.NewString(),
		ConfigurationID: configID,
		MedicationID:    medID,
		Quantity:        in.Quantity,
		Position:        len(existing),
	}

	if err := s.repo.CreateComponent(ctx, comp); err != nil {
		return DoseComponent{}, err
	}
	return comp, nil
}

func (s *Service) ListComponents(ctx context.Context, configurationID string) ([]DoseComponent, error) {
	return s.repo.ListComponentsByConfiguration(ctx, strings.TrimSpace(configurationID))
}

func (s *Service) DeleteComponent(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrInvalidInput
	}
	return s.repo.DeleteComponent(ctx, id)
}
