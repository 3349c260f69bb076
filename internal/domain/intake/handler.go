package intake

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, rec *Recorder) {
	r.Route("/intakes", func(ir chi.Router) {
		ir.Post("/", logIntakeHandler(rec))
		ir.Get("/", listIntakesHandler(rec))
		ir.Delete("/{logID}", undoIntakeHandler(rec))
		ir.Get("/{logID}/deductions", listDeductionsHandler(rec))

		// Operaciones por grupo/fecha
		ir.Get("/group/{groupID}", hasIntakeForGroupHandler(rec))
		ir.Delete("/group/{groupID}", undoAllForGroupHandler(rec))
	})
}

type logIntakeRequest struct {
	ConfigurationID string `json:"configuration_id"`
	DeductStock     bool   `json:"deduct_stock"`
	Date            string `json:"date"` // YYYY-MM-DD
	Notes           string `json:"notes"`
}

type intakeLogResponse struct {
	ID              string    `json:"id"`
	ConfigurationID *string   `json:"configuration_id,omitempty"`
	ScheduledFor    time.Time `json:"scheduled_for"`
	LoggedAt        time.Time `json:"logged_at"`
	Notes           string    `json:"notes,omitempty"`
}

type deductionResponse struct {
	ID           string  `json:"id"`
	MedicationID string  `json:"medication_id"`
	SourceID     *string `json:"source_id,omitempty"`
	Quantity     int     `json:"quantity"`
	WasDeducted  bool    `json:"was_deducted"`
}

type undoAllResponse struct {
	Count         int      `json:"count"`
	RemovedLogIDs []string `json:"removed_log_ids"`
}

func logIntakeHandler(rec *Recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req logIntakeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		date, err := time.Parse("2006-01-02", strings.TrimSpace(req.Date))
		if err != nil {
			http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}

		l, err := rec.LogIntake(r.Context(), LogIntakeInput{
			ConfigurationID: req.ConfigurationID,
			DeductStock:     req.DeductStock,
			Date:            date,
			Notes:           req.Notes,
		})
		if err != nil {
			// StockDeductionFailed se distingue de un fallo de guardado:
			// el primero significa "sin stock real", el segundo "reintentá".
			var dfe *DeductionFailedError
			switch {
			case errors.As(err, &dfe):
				writeJSON(w, http.StatusConflict, map[string]any{
					"error":         "stock deduction failed",
					"medication_id": dfe.MedicationID,
					"cause":         dfe.Err.Error(),
				})
			case errors.Is(err, ErrSaveFailed):
				http.Error(w, "save failed, retry", http.StatusServiceUnavailable)
			case errors.Is(err, ErrNoComponents):
				http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			case errors.Is(err, ErrNotFound):
				http.Error(w, "configuration not found", http.StatusNotFound)
			case errors.Is(err, ErrInvalidInput):
				http.Error(w, err.Error(), http.StatusBadRequest)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusCreated, toLogResponse(l))
	}
}

func listIntakesHandler(rec *Recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date, err := parseDateParam(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		logs, err := rec.IntakesForDate(r.Context(), date)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]intakeLogResponse, 0, len(logs))
		for _, l := range logs {
			out = append(out, toLogResponse(l))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func undoIntakeHandler(rec *Recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		found, err := rec.UndoIntake(r.Context(), chi.URLParam(r, "logID"))
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if !found {
			http.Error(w, "intake log not found", http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func listDeductionsHandler(rec *Recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := rec.DeductionsForLog(r.Context(), chi.URLParam(r, "logID"))
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]deductionResponse, 0, len(items))
		for _, d := range items {
			out = append(out, deductionResponse{
				ID:           d.ID,
				MedicationID: d.MedicationID,
				SourceID:     d.SourceID,
				Quantity:     d.Quantity,
				WasDeducted:  d.WasDeducted,
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func hasIntakeForGroupHandler(rec *Recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date, err := parseDateParam(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		has, err := rec.HasIntakeForGroup(r.Context(), chi.URLParam(r, "groupID"), date)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, map[string]bool{"exists": has})
	}
}

func undoAllForGroupHandler(rec *Recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date, err := parseDateParam(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		count, ids, err := rec.UndoAllForGroup(r.Context(), chi.URLParam(r, "groupID"), date)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, undoAllResponse{Count: count, RemovedLogIDs: ids})
	}
}

func parseDateParam(r *http.Request) (time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("date"))
	if raw == "" {
		return time.Time{}, errors.New("date query param required (YYYY-MM-DD)")
	}
	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, errors.New("date must be YYYY-MM-DD")
	}
	return date, nil
}

func toLogResponse(l IntakeLog) intakeLogResponse {
	return intakeLogResponse{
		ID:              l.ID,
		ConfigurationID: l.ConfigurationID,
		ScheduledFor:    l.ScheduledFor,
		LoggedAt:        l.LoggedAt,
		Notes:           l.Notes,
	}
}

// writeJSON se duplica a propósito en los handlers de cada módulo
// para no crear helpers compartidos antes de tiempo.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
