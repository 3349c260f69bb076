package router_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"dose-tracker/internal/router"
)

func TestHTTP_EndToEnd_LogAndUndoIntake(t *testing.T) {
	ts := httptest.NewServer(router.NewRouter(router.Options{}))
	defer ts.Close()

	day := "2025-03-10"

	// 1) Registrar medicamento con fuente contada
	medID := createMedication(t, ts.URL, map[string]any{
		"name":           "Ibuprofeno",
		"form":           "tablet",
		"strength_value": 400,
		"strength_unit":  "mg",
	})
	sourceID := addSource(t, ts.URL, medID, map[string]any{
		"label":            "caja 1",
		"initial_quantity": 10,
		"counting_enabled": true,
	})

	// 2) Grupo de la mañana + configuración con un componente
	groupID := createGroup(t, ts.URL, map[string]any{
		"name":           "Desayuno",
		"time_frame":     "morning",
		"selection_rule": "exactly_one",
	})
	configID := createConfiguration(t, ts.URL, map[string]any{
		"group_id":     groupID,
		"display_name": "1 comprimido",
		"start_date":   "2025-01-01",
	})
	addComponent(t, ts.URL, configID, medID, 1)

	// 3) Plan del día: nada tomado aún
	{
		p := getPlan(t, ts.URL, day)
		if p.Status != "none" {
			t.Fatalf("expected plan status none before intake, got %q", p.Status)
		}
		if len(p.Sections) != 1 || p.Sections[0].TimeFrame != "morning" {
			t.Fatalf("expected single morning section, got %+v", p.Sections)
		}
		if p.Sections[0].ReminderTime != "08:00" {
			t.Fatalf("expected default morning reminder 08:00, got %q", p.Sections[0].ReminderTime)
		}
	}

	// 4) Registrar la toma descontando stock
	logID := ""
	{
		st, body := doReq(t, ts.URL, "POST", "/intakes", map[string]any{
			"configuration_id": configID,
			"deduct_stock":     true,
			"date":             day,
		})
		if st != http.StatusCreated {
			t.Fatalf("expected 201 log intake, got %d body=%s", st, string(body))
		}
		var resp struct {
			ID string `json:"id"`
		}
		_ = json.Unmarshal(body, &resp)
		if resp.ID == "" {
			t.Fatalf("log intake: missing id body=%s", string(body))
		}
		logID = resp.ID
	}

	// 5) El plan marca el grupo completo y el stock bajó a 9
	{
		p := getPlan(t, ts.URL, day)
		if p.Status != "complete" {
			t.Fatalf("expected plan status complete after intake, got %q", p.Status)
		}
		g := p.Sections[0].Groups[0]
		if g.CompletedConfigurationID == nil || *g.CompletedConfigurationID != configID {
			t.Fatalf("expected completed configuration %s, got %+v", configID, g.CompletedConfigurationID)
		}
	}
	if got := sourceQuantity(t, ts.URL, medID, sourceID); got != 9 {
		t.Fatalf("expected 9 units after deduction, got %d", got)
	}

	// 6) Las deducciones del log quedan consultables
	{
		st, body := doReq(t, ts.URL, "GET", "/intakes/"+logID+"/deductions", nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 list deductions, got %d body=%s", st, string(body))
		}
		var items []struct {
			MedicationID string `json:"medication_id"`
			Quantity     int    `json:"quantity"`
			WasDeducted  bool   `json:"was_deducted"`
		}
		_ = json.Unmarshal(body, &items)
		if len(items) != 1 || !items[0].WasDeducted || items[0].Quantity != 1 {
			t.Fatalf("unexpected deductions: %+v", items)
		}
	}

	// 7) Existe toma para el grupo en esa fecha
	{
		st, body := doReq(t, ts.URL, "GET", "/intakes/group/"+groupID+"?date="+day, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 has intake, got %d body=%s", st, string(body))
		}
		var resp map[string]bool
		_ = json.Unmarshal(body, &resp)
		if !resp["exists"] {
			t.Fatalf("expected intake to exist for group on %s", day)
		}
	}

	// 8) Undo: el stock vuelve y el plan se destilda
	{
		st, body := doReq(t, ts.URL, "DELETE", "/intakes/"+logID, nil)
		if st != http.StatusNoContent {
			t.Fatalf("expected 204 undo intake, got %d body=%s", st, string(body))
		}
	}
	if got := sourceQuantity(t, ts.URL, medID, sourceID); got != 10 {
		t.Fatalf("expected 10 units after undo, got %d", got)
	}
	{
		p := getPlan(t, ts.URL, day)
		if p.Status != "none" {
			t.Fatalf("expected plan status none after undo, got %q", p.Status)
		}
	}
}

func TestHTTP_LogIntake_InsufficientStockIs409(t *testing.T) {
	ts := httptest.NewServer(router.NewRouter(router.Options{}))
	defer ts.Close()

	medID := createMedication(t, ts.URL, map[string]any{
		"name":           "Amoxicilina",
		"form":           "capsule",
		"strength_value": 500,
		"strength_unit":  "mg",
	})
	addSource(t, ts.URL, medID, map[string]any{
		"label":            "blister",
		"initial_quantity": 1,
		"counting_enabled": true,
	})

	groupID := createGroup(t, ts.URL, map[string]any{
		"name":           "Noche",
		"time_frame":     "night",
		"selection_rule": "exactly_one",
	})
	configID := createConfiguration(t, ts.URL, map[string]any{
		"group_id":     groupID,
		"display_name": "2 cápsulas",
		"start_date":   "2025-01-01",
	})
	addComponent(t, ts.URL, configID, medID, 2)

	st, body := doReq(t, ts.URL, "POST", "/intakes", map[string]any{
		"configuration_id": configID,
		"deduct_stock":     true,
		"date":             "2025-03-10",
	})
	if st != http.StatusConflict {
		t.Fatalf("expected 409 for insufficient stock, got %d body=%s", st, string(body))
	}

	var resp struct {
		MedicationID string `json:"medication_id"`
	}
	_ = json.Unmarshal(body, &resp)
	if resp.MedicationID != medID {
		t.Fatalf("expected failing medication %s, got %q body=%s", medID, resp.MedicationID, string(body))
	}

	// fallar la toma no debe haber dejado logs
	st, body = doReq(t, ts.URL, "GET", "/intakes?date=2025-03-10", nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 list intakes, got %d", st)
	}
	var logs []json.RawMessage
	_ = json.Unmarshal(body, &logs)
	if len(logs) != 0 {
		t.Fatalf("expected no intake logs after failed deduction, got %d", len(logs))
	}
}

// -------------------------
// helpers
// -------------------------

type planBody struct {
	Date     string `json:"date"`
	Status   string `json:"status"`
	Sections []struct {
		TimeFrame    string `json:"time_frame"`
		ReminderTime string `json:"reminder_time"`
		Groups       []struct {
			GroupID                  string  `json:"group_id"`
			CompletedConfigurationID *string `json:"completed_configuration_id"`
		} `json:"groups"`
	} `json:"sections"`
}

func getPlan(t *testing.T, baseURL, day string) planBody {
	t.Helper()

	st, body := doReq(t, baseURL, "GET", "/plan?date="+day, nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 get plan, got %d body=%s", st, string(body))
	}

	var p planBody
	if err := json.Unmarshal(body, &p); err != nil {
		t.Fatalf("decode plan: %v body=%s", err, string(body))
	}
	return p
}

func createMedication(t *testing.T, baseURL string, payload map[string]any) string {
	t.Helper()
	return createResource(t, baseURL, "/medications", payload)
}

func addSource(t *testing.T, baseURL, medID string, payload map[string]any) string {
	t.Helper()
	return createResource(t, baseURL, "/medications/"+medID+"/sources", payload)
}

func createGroup(t *testing.T, baseURL string, payload map[string]any) string {
	t.Helper()
	return createResource(t, baseURL, "/groups", payload)
}

func createConfiguration(t *testing.T, baseURL string, payload map[string]any) string {
	t.Helper()
	return createResource(t, baseURL, "/configurations", payload)
}

func addComponent(t *testing.T, baseURL, configID, medID string, qty int) {
	t.Helper()
	createResource(t, baseURL, "/configurations/"+configID+"/components", map[string]any{
		"medication_id": medID,
		"quantity":      qty,
	})
}

func createResource(t *testing.T, baseURL, path string, payload map[string]any) string {
	t.Helper()

	st, body := doReq(t, baseURL, "POST", path, payload)
	if st != http.StatusCreated {
		t.Fatalf("expected 201 creating %s, got %d body=%s", path, st, string(body))
	}

	var resp struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(body, &resp)
	if resp.ID == "" {
		t.Fatalf("create %s: missing id body=%s", path, string(body))
	}
	return resp.ID
}

func sourceQuantity(t *testing.T, baseURL, medID, sourceID string) int {
	t.Helper()

	st, body := doReq(t, baseURL, "GET", "/medications/"+medID+"/sources", nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 list sources, got %d body=%s", st, string(body))
	}

	var items []struct {
		ID              string `json:"id"`
		CurrentQuantity *int   `json:"current_quantity"`
	}
	_ = json.Unmarshal(body, &items)
	for _, s := range items {
		if s.ID == sourceID && s.CurrentQuantity != nil {
			return *s.CurrentQuantity
		}
	}
	t.Fatalf("source %s not found in %s", sourceID, string(body))
	return 0
}

func doReq(t *testing.T, baseURL, method, path string, payload map[string]any) (int, []byte) {
	t.Helper()

	var reqBody io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, baseURL+path, reqBody)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, body
}
