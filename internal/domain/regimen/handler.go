package regimen

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/groups", func(gr chi.Router) {
		gr.Post("/", createGroupHandler(svc))
		gr.Get("/", listGroupsHandler(svc))
		gr.Get("/{groupID}", getGroupHandler(svc))
		gr.Delete("/{groupID}", deleteGroupHandler(svc))

		gr.Get("/{groupID}/configurations", listConfigurationsHandler(svc))
	})

	r.Route("/configurations", func(cr chi.Router) {
		cr.Post("/", createConfigurationHandler(svc))
		cr.Get("/{configID}", getConfigurationHandler(svc))
		cr.Patch("/{configID}", patchConfigurationHandler(svc))
		cr.Delete("/{configID}", deleteConfigurationHandler(svc))

		cr.Post("/{configID}/components", addComponentHandler(svc))
		cr.Get("/{configID}/components", listComponentsHandler(svc))
	})

	r.Delete("/components/{componentID}", deleteComponentHandler(svc))
}

type createGroupRequest struct {
	Name          string  `json:"name"`
	TimeFrame     string  `json:"time_frame"`
	SelectionRule string  `json:"selection_rule"`
	ReminderTime  *string `json:"reminder_time"` // "HH:MM"
}

type groupResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	TimeFrame     string    `json:"time_frame"`
	SelectionRule string    `json:"selection_rule"`
	ReminderTime  *string   `json:"reminder_time,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type createConfigurationRequest struct {
	GroupID     string `json:"group_id"`
	DisplayName string `json:"display_name"`
	Schedule    string `json:"schedule"`
	StartDate   string `json:"start_date"` // YYYY-MM-DD
	EndDate     string `json:"end_date"`   // YYYY-MM-DD opcional
}

type configurationResponse struct {
	ID          string     `json:"id"`
	GroupID     *string    `json:"group_id,omitempty"`
	DisplayName string     `json:"display_name"`
	Schedule    string     `json:"schedule,omitempty"`
	Active      bool       `json:"active"`
	StartDate   time.Time  `json:"start_date"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type patchConfigurationRequest struct {
	Active *bool `json:"active"`
}

type addComponentRequest struct {
	MedicationID string `json:"medication_id"`
	Quantity     int    `json:"quantity"`
}

type componentResponse struct {
	ID              string `json:"id"`
	ConfigurationID string `json:"configuration_id"`
	MedicationID    string `json:"medication_id"`
	Quantity        int    `json:"quantity"`
	Position        int    `json:"position"`
}

func createGroupHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createGroupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		g, err := svc.CreateGroup(r.Context(), CreateGroupInput{
			Name:          req.Name,
			TimeFrame:     req.TimeFrame,
			SelectionRule: req.SelectionRule,
			ReminderTime:  req.ReminderTime,
		})
		if err != nil {
			if errors.Is(err, ErrInvalidInput) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusCreated, toGroupResponse(g))
	}
}

func listGroupsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.ListGroups(r.Context())
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]groupResponse, 0, len(items))
		for _, g := range items {
			out = append(out, toGroupResponse(g))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func getGroupHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, err := svc.GetGroupByID(r.Context(), chi.URLParam(r, "groupID"))
		if err != nil {
			http.Error(w, "group not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, toGroupResponse(g))
	}
}

func deleteGroupHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.DeleteGroup(r.Context(), chi.URLParam(r, "groupID")); err != nil {
			if errors.Is(err, ErrNotFound) {
				http.Error(w, "group not found", http.StatusNotFound)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func createConfigurationHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createConfigurationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		start, err := time.Parse("2006-01-02", strings.TrimSpace(req.StartDate))
		if err != nil {
			http.Error(w, "start_date must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}

		var end *time.Time
		if strings.TrimSpace(req.EndDate) != "" {
			t, err := time.Parse("2006-01-02", strings.TrimSpace(req.EndDate))
			if err != nil {
				http.Error(w, "end_date must be YYYY-MM-DD", http.StatusBadRequest)
				return
			}
			end = &t
		}

		c, err := svc.CreateConfiguration(r.Context(), CreateConfigurationInput{
			GroupID:     req.GroupID,
			DisplayName: req.DisplayName,
			Schedule:    req.Schedule,
			StartDate:   start,
			EndDate:     end,
		})
		if err != nil {
			switch {
			case errors.Is(err, ErrInvalidInput):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.Is(err, ErrNotFound):
				http.Error(w, "group not found", http.StatusNotFound)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusCreated, toConfigurationResponse(c))
	}
}

func getConfigurationHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := svc.GetConfigurationByID(r.Context(), chi.URLParam(r, "configID"))
		if err != nil {
			http.Error(w, "configuration not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, toConfigurationResponse(c))
	}
}

func listConfigurationsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.ListConfigurationsByGroup(r.Context(), chi.URLParam(r, "groupID"))
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]configurationResponse, 0, len(items))
		for _, c := range items {
			out = append(out, toConfigurationResponse(c))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func patchConfigurationHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req patchConfigurationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Active == nil {
			http.Error(w, "nothing to update", http.StatusBadRequest)
			return
		}

		c, err := svc.SetActive(r.Context(), chi.URLParam(r, "configID"), *req.Active)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				http.Error(w, "configuration not found", http.StatusNotFound)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, toConfigurationResponse(c))
	}
}

func deleteConfigurationHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.DeleteConfiguration(r.Context(), chi.URLParam(r, "configID")); err != nil {
			if errors.Is(err, ErrNotFound) {
				http.Error(w, "configuration not found", http.StatusNotFound)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func addComponentHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addComponentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		comp, err := svc.AddComponent(r.Context(), AddComponentInput{
			ConfigurationID: chi.URLParam(r, "configID"),
			MedicationID:    req.MedicationID,
			Quantity:        req.Quantity,
		})
		if err != nil {
			switch {
			case errors.Is(err, ErrInvalidInput):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.Is(err, ErrNotFound):
				http.Error(w, "configuration not found", http.StatusNotFound)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusCreated, toComponentResponse(comp))
	}
}

func listComponentsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.ListComponents(r.Context(), chi.URLParam(r, "configID"))
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]componentResponse, 0, len(items))
		for _, comp := range items {
			out = append(out, toComponentResponse(comp))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func deleteComponentHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.DeleteComponent(r.Context(), chi.URLParam(r, "componentID")); err != nil {
			if errors.Is(err, ErrNotFound) {
				http.Error(w, "component not found", http.StatusNotFound)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func toGroupResponse(g MedicationGroup) groupResponse {
	return groupResponse{
		ID:            g.ID,
		Name:          g.Name,
		TimeFrame:     string(g.TimeFrame),
		SelectionRule: string(g.SelectionRule),
		ReminderTime:  g.ReminderTime,
		CreatedAt:     g.CreatedAt,
	}
}

func toConfigurationResponse(c DoseConfiguration) configurationResponse {
	return configurationResponse{
		ID:          c.ID,
		GroupID:     c.GroupID,
		DisplayName: c.DisplayName,
		Schedule:    c.Schedule,
		Active:      c.Active,
		StartDate:   c.StartDate,
		EndDate:     c.EndDate,
		CreatedAt:   c.CreatedAt,
	}
}

func toComponentResponse(comp DoseComponent) componentResponse {
	return componentResponse{
		ID:              comp.ID,
		ConfigurationID: comp.ConfigurationID,
		MedicationID:    comp.MedicationID,
		Quantity:        comp.Quantity,
		Position:        comp.Position,
	}
}

// writeJSON se duplica a propósito en los handlers de cada módulo
// para no crear helpers compartidos antes de tiempo.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
