package regimen

import "context"

type Repository interface {
	CreateGroup(ctx context.Context, g MedicationGroup) error
	GetGroupByID(ctx context.Context, id string) (MedicationGroup, error)
	ListGroups(ctx context.Context) ([]MedicationGroup, error)
	// DeleteGroup borra solo el grupo; sus configuraciones quedan con la
	// referencia colgando a propósito.
	DeleteGroup(ctx context.Context, id string) error

	CreateConfiguration(ctx context.Context, c DoseConfiguration) error
	GetConfigurationByID(ctx context.Context, id string) (DoseConfiguration, error)
	ListConfigurationsByGroup(ctx context.Context, groupID string) ([]DoseConfiguration, error)
	ListConfigurations(ctx context.Context) ([]DoseConfiguration, error)
	UpdateConfiguration(ctx context.Context, c DoseConfiguration) error
	// DeleteConfiguration borra la configuración y sus componentes; los
	// registros de toma que la referencian quedan colgando.
	DeleteConfiguration(ctx context.Context, id string) error

	CreateComponent(ctx context.Context, comp DoseComponent) error
	// ListComponentsByConfiguration retorna los componentes por position asc.
	ListComponentsByConfiguration(ctx context.Context, configurationID string) ([]DoseComponent, error)
	DeleteComponent(ctx context.Context, id string) error
}
