package webhook

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"dose-tracker/internal/platform/httpclient"
	"dose-tracker/internal/ports/syncer"
)

var ErrNotConfigured = errors.New("webhook syncer not configured")

// Config del cliente de sincronización por webhook.
// URL normalmente viene de SYNC_WEBHOOK_URL.
type Config struct {
	URL string

	// Opcional: token bearer para el receptor.
	AuthToken string

	Timeout time.Duration
}

// Client notifica cambios de tomas a un receptor HTTP externo.
// Implementa syncer.Notifier.
type Client struct {
	url       string
	authToken string
	http      *httpclient.Client
}

func NewClient(cfg Config) *Client {
	return &Client{
		url:       strings.TrimRight(strings.TrimSpace(cfg.URL), "/"),
		authToken: strings.TrimSpace(cfg.AuthToken),
		http:      httpclient.New(cfg.Timeout),
	}
}

func (c *Client) IsConfigured() bool {
	return c != nil && c.url != ""
}

type intakeLoggedPayload struct {
	Event           string    `json:"event"`
	LogID           string    `json:"log_id"`
	ConfigurationID *string   `json:"configuration_id,omitempty"`
	ScheduledFor    time.Time `json:"scheduled_for"`
	LoggedAt        time.Time `json:"logged_at"`
	Notes           string    `json:"notes,omitempty"`
}

type intakesRemovedPayload struct {
	Event  string   `json:"event"`
	LogIDs []string `json:"log_ids"`
}

func (c *Client) IntakeLogged(ctx context.Context, change syncer.LoggedIntake) error {
	if !c.IsConfigured() {
		return ErrNotConfigured
	}

	return c.http.DoJSON(ctx, http.MethodPost, c.url, c.headers(), intakeLoggedPayload{
		Event:           "intake_logged",
		LogID:           change.LogID,
		ConfigurationID: change.ConfigurationID,
		ScheduledFor:    change.ScheduledFor,
		LoggedAt:        change.LoggedAt,
		Notes:           change.Notes,
	}, nil)
}

func (c *Client) IntakesRemoved(ctx context.Context, logIDs []string) error {
	if !c.IsConfigured() {
		return ErrNotConfigured
	}
	if len(logIDs) == 0 {
		return nil
	}

	return c.http.DoJSON(ctx, http.MethodPost, c.url, c.headers(), intakesRemovedPayload{
		Event:  "intakes_removed",
		LogIDs: logIDs,
	}, nil)
}

func (c *Client) headers() map[string]string {
	if c.authToken == "" {
		return nil
	}
	return map[string]string{"Authorization": "Bearer " + c.authToken}
}
