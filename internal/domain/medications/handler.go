package medications

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/medications", func(mr chi.Router) {
		mr.Post("/", createMedicationHandler(svc))
		mr.Get("/", listMedicationsHandler(svc))
		mr.Get("/low-stock", lowStockHandler(svc))

		mr.Get("/{medicationID}", getMedicationHandler(svc))
		mr.Delete("/{medicationID}", deleteMedicationHandler(svc))

		mr.Post("/{medicationID}/sources", addSourceHandler(svc))
		mr.Get("/{medicationID}/sources", listSourcesHandler(svc))
	})

	r.Post("/sources/{sourceID}/enable-counting", enableCountingHandler(svc))
}

type createMedicationRequest struct {
	Name          string  `json:"name"`
	Form          string  `json:"form"`
	StrengthValue float64 `json:"strength_value"`
	StrengthUnit  string  `json:"strength_unit"`
}

type medicationResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Form          string    `json:"form"`
	StrengthValue float64   `json:"strength_value"`
	StrengthUnit  string    `json:"strength_unit"`
	CreatedAt     time.Time `json:"created_at"`
}

type addSourceRequest struct {
	Label             string `json:"label"`
	InitialQuantity   *int   `json:"initial_quantity"`
	CountingEnabled   bool   `json:"counting_enabled"`
	LowStockThreshold *int   `json:"low_stock_threshold"`
	ExpiryDate        string `json:"expiry_date"` // YYYY-MM-DD opcional
}

type sourceResponse struct {
	ID                string     `json:"id"`
	MedicationID      string     `json:"medication_id"`
	Label             string     `json:"label"`
	InitialQuantity   *int       `json:"initial_quantity,omitempty"`
	CurrentQuantity   *int       `json:"current_quantity,omitempty"`
	CountingEnabled   bool       `json:"counting_enabled"`
	CountingSince     *time.Time `json:"counting_since,omitempty"`
	LowStockThreshold int        `json:"low_stock_threshold"`
	ExpiryDate        *time.Time `json:"expiry_date,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

type enableCountingRequest struct {
	InitialQuantity int `json:"initial_quantity"`
}

func createMedicationHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createMedicationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		m, err := svc.Create(r.Context(), CreateInput{
			Name:          req.Name,
			Form:          req.Form,
			StrengthValue: req.StrengthValue,
			StrengthUnit:  req.StrengthUnit,
		})
		if err != nil {
			if errors.Is(err, ErrInvalidInput) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusCreated, toMedicationResponse(m))
	}
}

func listMedicationsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.List(r.Context())
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]medicationResponse, 0, len(items))
		for _, m := range items {
			out = append(out, toMedicationResponse(m))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func getMedicationHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, err := svc.GetByID(r.Context(), chi.URLParam(r, "medicationID"))
		if err != nil {
			http.Error(w, "medication not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, toMedicationResponse(m))
	}
}

func deleteMedicationHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := svc.Delete(r.Context(), chi.URLParam(r, "medicationID"))
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				http.Error(w, "medication not found", http.StatusNotFound)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func addSourceHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addSourceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		var expiry *time.Time
		if strings.TrimSpace(req.ExpiryDate) != "" {
			t, err := time.Parse("2006-01-02", req.ExpiryDate)
			if err != nil {
				http.Error(w, "expiry_date must be YYYY-MM-DD", http.StatusBadRequest)
				return
			}
			expiry = &t
		}

		src, err := svc.AddSource(r.Context(), AddSourceInput{
			MedicationID:      chi.URLParam(r, "medicationID"),
			Label:             req.Label,
			InitialQuantity:   req.InitialQuantity,
			CountingEnabled:   req.CountingEnabled,
			LowStockThreshold: req.LowStockThreshold,
			ExpiryDate:        expiry,
		})
		if err != nil {
			switch {
			case errors.Is(err, ErrInvalidInput):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.Is(err, ErrNotFound):
				http.Error(w, "medication not found", http.StatusNotFound)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusCreated, toSourceResponse(src))
	}
}

func listSourcesHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.ListSources(r.Context(), chi.URLParam(r, "medicationID"))
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]sourceResponse, 0, len(items))
		for _, s := range items {
			out = append(out, toSourceResponse(s))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func enableCountingHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req enableCountingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		src, err := svc.EnableCounting(r.Context(), chi.URLParam(r, "sourceID"), req.InitialQuantity)
		if err != nil {
			switch {
			case errors.Is(err, ErrInvalidInput):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.Is(err, ErrNotFound):
				http.Error(w, "source not found", http.StatusNotFound)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusOK, toSourceResponse(src))
	}
}

func lowStockHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.LowStock(r.Context())
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]medicationResponse, 0, len(items))
		for _, m := range items {
			out = append(out, toMedicationResponse(m))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func toMedicationResponse(m Medication) medicationResponse {
	return medicationResponse{
		ID:            m.ID,
		Name:          m.Name,
		Form:          string(m.Form),
		StrengthValue: m.StrengthValue,
		StrengthUnit:  m.StrengthUnit,
		CreatedAt:     m.CreatedAt,
	}
}

func toSourceResponse(s StockSource) sourceResponse {
	return sourceResponse{
		ID:                s.ID,
		MedicationID:      s.MedicationID,
		Label:             s.Label,
		InitialQuantity:   s.InitialQuantity,
		CurrentQuantity:   s.CurrentQuantity,
		CountingEnabled:   s.CountingEnabled,
		CountingSince:     s.CountingSince,
		LowStockThreshold: s.LowStockThreshold,
		ExpiryDate:        s.ExpiryDate,
		CreatedAt:         s.CreatedAt,
	}
}

// writeJSON se duplica a propósito en los handlers de cada módulo
// para no crear helpers compartidos antes de tiempo.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
