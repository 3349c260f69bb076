package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dose-tracker/internal/platform/httpclient"
	"dose-tracker/internal/ports/syncer"
)

func TestIntakeLogged_PostsPayload(t *testing.T) {
	var got intakeLoggedPayload
	var gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := NewClient(Config{URL: srv.URL, AuthToken: "secreto"})

	cfgID := "config-1"
	err := c.IntakeLogged(context.Background(), syncer.LoggedIntake{
		LogID:           "log-1",
		ConfigurationID: &cfgID,
		ScheduledFor:    time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		LoggedAt:        time.Date(2025, 3, 10, 8, 15, 0, 0, time.UTC),
		Notes:           "con desayuno",
	})
	if err != nil {
		t.Fatalf("IntakeLogged: %v", err)
	}

	if got.Event != "intake_logged" {
		t.Fatalf("expected event intake_logged, got %q", got.Event)
	}
	if got.LogID != "log-1" || got.ConfigurationID == nil || *got.ConfigurationID != cfgID {
		t.Fatalf("unexpected payload: %+v", got)
	}
	if gotAuth != "Bearer secreto" {
		t.Fatalf("expected bearer auth header, got %q", gotAuth)
	}
}

func TestIntakesRemoved_SkipsEmptyBatch(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	c := NewClient(Config{URL: srv.URL})

	if err := c.IntakesRemoved(context.Background(), nil); err != nil {
		t.Fatalf("IntakesRemoved(nil): %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected no HTTP call for empty batch, got %d", calls)
	}

	if err := c.IntakesRemoved(context.Background(), []string{"log-1", "log-2"}); err != nil {
		t.Fatalf("IntakesRemoved: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected one HTTP call, got %d", calls)
	}
}

func TestNotConfiguredClient(t *testing.T) {
	c := NewClient(Config{})

	err := c.IntakeLogged(context.Background(), syncer.LoggedIntake{LogID: "log-1"})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestIntakeLogged_Non2xxIsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(Config{URL: srv.URL})

	err := c.IntakeLogged(context.Background(), syncer.LoggedIntake{LogID: "log-1"})
	var httpErr *httpclient.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected *httpclient.HTTPError, got %v", err)
	}
	if httpErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", httpErr.StatusCode)
	}
}
