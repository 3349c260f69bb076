package syncer

import (
	"context"
	"time"
)

// LoggedIntake es el payload mínimo que un sincronizador externo necesita
// para replicar una toma registrada.
type LoggedIntake struct {
	LogID           string
	ConfigurationID *string
	ScheduledFor    time.Time
	LoggedAt        time.Time
	Notes           string
}

// Notifier es el colaborador de sincronización remota. Se invoca *después*
// de que la operación del núcleo ya se aplicó; el núcleo no espera ni
// reintenta: un fallo acá jamás afecta la corrección local.
type Notifier interface {
	IntakeLogged(ctx context.Context, change LoggedIntake) error
	IntakesRemoved(ctx context.Context, logIDs []string) error
}

// Nop descarta todas las notificaciones (default sin webhook configurado).
type Nop struct{}

func (Nop) IntakeLogged(ctx context.Context, change LoggedIntake) error { return nil }

func (Nop) IntakesRemoved(ctx context.Context, logIDs []string) error { return nil }
