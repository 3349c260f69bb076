package plan

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Get("/plan", getPlanHandler(svc))
}

type planResponse struct {
	Date     string            `json:"date"` // YYYY-MM-DD
	Status   string            `json:"status"`
	Sections []sectionResponse `json:"sections"`
}

type sectionResponse struct {
	TimeFrame    string          `json:"time_frame"`
	ReminderTime string          `json:"reminder_time"`
	Groups       []groupResponse `json:"groups"`
}

type groupResponse struct {
	GroupID                  string           `json:"group_id"`
	Name                     string           `json:"name"`
	SelectionRule            string           `json:"selection_rule"`
	CompletedConfigurationID *string          `json:"completed_configuration_id,omitempty"`
	Options                  []optionResponse `json:"options"`
}

type optionResponse struct {
	ConfigurationID string              `json:"configuration_id"`
	DisplayName     string              `json:"display_name"`
	Schedule        string              `json:"schedule,omitempty"`
	Completed       bool                `json:"completed"`
	Components      []componentResponse `json:"components"`
}

type componentResponse struct {
	MedicationID      string `json:"medication_id"`
	MedicationName    string `json:"medication_name"`
	Quantity          int    `json:"quantity"`
	AvailableStock    int    `json:"available_stock"`
	LowStockThreshold int    `json:"low_stock_threshold"`
	CountingEnabled   bool   `json:"counting_enabled"`
}

func getPlanHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.URL.Query().Get("date"))
		date := time.Now()
		if raw != "" {
			parsed, err := time.Parse("2006-01-02", raw)
			if err != nil {
				http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
				return
			}
			date = parsed
		}

		// GetPlan no falla: siempre hay un plan para mostrar.
		p := svc.GetPlan(r.Context(), date)
		writeJSON(w, http.StatusOK, toPlanResponse(p))
	}
}

func toPlanResponse(p DailyPlan) planResponse {
	out := planResponse{
		Date:     p.Date.Format("2006-01-02"),
		Status:   string(p.Status),
		Sections: make([]sectionResponse, 0, len(p.Sections)),
	}

	for _, sec := range p.Sections {
		sr := sectionResponse{
			TimeFrame:    string(sec.TimeFrame),
			ReminderTime: sec.ReminderTime,
			Groups:       make([]groupResponse, 0, len(sec.Groups)),
		}

		for _, g := range sec.Groups {
			gr := groupResponse{
				GroupID:                  g.GroupID,
				Name:                     g.Name,
				SelectionRule:            string(g.SelectionRule),
				CompletedConfigurationID: g.CompletedConfigurationID,
				Options:                  make([]optionResponse, 0, len(g.Options)),
			}

			for _, opt := range g.Options {
				or := optionResponse{
					ConfigurationID: opt.ConfigurationID,
					DisplayName:     opt.DisplayName,
					Schedule:        opt.Schedule,
					Completed:       opt.Completed,
					Components:      make([]componentResponse, 0, len(opt.Components)),
				}
				for _, c := range opt.Components {
					or.Components = append(or.Components, componentResponse(c))
				}
				gr.Options = append(gr.Options, or)
			}

			sr.Groups = append(sr.Groups, gr)
		}

		out.Sections = append(out.Sections, sr)
	}

	return out
}

// writeJSON se duplica a propósito en los handlers de cada módulo
// para no crear helpers compartidos antes de tiempo.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
