package plan

import (
	"sort"
	"time"

	"dose-tracker/internal/domain/intake"
	"dose-tracker/internal/domain/medications"
	"dose-tracker/internal/domain/regimen"
	"dose-tracker/internal/platform/clock"
)

// StockView es el estado contable de un medicamento al momento de armar
// el plan.
type StockView struct {
	Available         int
	LowStockThreshold int
	CountingEnabled   bool
}

// Snapshot son las entradas del builder, ya leídas: el builder es una
// función pura sobre este valor, sin repositorios ni caches escondidos.
type Snapshot struct {
	Groups         []regimen.MedicationGroup
	Configurations []regimen.DoseConfiguration
	// Components por configuración, en orden.
	Components map[string][]regimen.DoseComponent
	// Medications vivos por id; lo que no esté acá se trata como borrado.
	Medications map[string]medications.Medication
	// Stock por medicamento vivo.
	Stock map[string]StockView
	// Intakes programadas para el día del plan.
	Intakes []intake.IntakeLog
}

// Build deriva el plan del día. Referencias muertas (componente sin
// medicamento, log sin configuración) se excluyen en silencio: el plan
// jamás falla por un borrado ajeno.
func Build(snap Snapshot, date time.Time, defaults Defaults, cal clock.Calendar) DailyPlan {
	configsByID := make(map[string]regimen.DoseConfiguration, len(snap.Configurations))
	for _, c := range snap.Configurations {
		configsByID[c.ID] = c
	}

	intakes := make([]intake.IntakeLog, len(snap.Intakes))
	copy(intakes, snap.Intakes)
	sort.SliceStable(intakes, func(i, j int) bool {
		return intakes[i].ScheduledFor.Before(intakes[j].ScheduledFor)
	})

	// Tomas válidas por grupo: la configuración existe, pertenece al grupo
	// y conserva al menos un componente vivo.
	completedByGroup := make(map[string][]intake.IntakeLog)
	for _, l := range intakes {
		if l.ConfigurationID == nil {
			continue
		}
		cfg, ok := configsByID[*l.ConfigurationID]
		if !ok || cfg.GroupID == nil {
			continue
		}
		if countLiveComponents(snap, cfg.ID) == 0 {
			continue
		}
		completedByGroup[*cfg.GroupID] = append(completedByGroup[*cfg.GroupID], l)
	}

	byFrame := make(map[regimen.TimeFrame][]Group)
	frameReminder := make(map[regimen.TimeFrame]string)

	for _, g := range snap.Groups {
		var completedConfigID *string
		if done := completedByGroup[g.ID]; len(done) > 0 {
			completedConfigID = done[0].ConfigurationID
		}

		options := buildOptions(snap, g.ID, date, defaults, cal, completedConfigID)
		if len(options) == 0 {
			// Grupo sin ninguna opción visible: desaparece del plan.
			continue
		}

		byFrame[g.TimeFrame] = append(byFrame[g.TimeFrame], Group{
			GroupID:                  g.ID,
			Name:                     g.Name,
			SelectionRule:            g.SelectionRule,
			Options:                  options,
			CompletedConfigurationID: completedConfigID,
		})

		// El recordatorio de la franja es el del primer grupo que aporta.
		if _, ok := frameReminder[g.TimeFrame]; !ok && g.ReminderTime != nil {
			frameReminder[g.TimeFrame] = *g.ReminderTime
		}
	}

	sections := make([]Section, 0, 4)
	for _, frame := range regimen.TimeFrames() {
		groups := byFrame[frame]
		if len(groups) == 0 {
			continue
		}

		reminder, ok := frameReminder[frame]
		if !ok {
			reminder = defaults.ReminderTimes[frame]
		}

		sections = append(sections, Section{
			TimeFrame:    frame,
			ReminderTime: reminder,
			Groups:       groups,
		})
	}

	return DailyPlan{
		Date:     cal.StartOfDay(date),
		Sections: sections,
		Status:   overallStatus(snap.Groups, completedByGroup),
	}
}

func buildOptions(snap Snapshot, groupID string, date time.Time, defaults Defaults, cal clock.Calendar, completedConfigID *string) []DoseOption {
	options := make([]DoseOption, 0)

	for _, cfg := range snap.Configurations {
		if cfg.GroupID == nil || *cfg.GroupID != groupID {
			continue
		}
		if !cfg.EligibleOn(date, cal) {
			continue
		}

		comps := make([]Component, 0, len(snap.Components[cfg.ID]))
		for _, dc := range snap.Components[cfg.ID] {
			med, ok := snap.Medications[dc.MedicationID]
			if !ok {
				// Componente huérfano: fuera, sin error.
				continue
			}

			stock, ok := snap.Stock[dc.MedicationID]
			if !ok {
				stock = StockView{LowStockThreshold: defaults.LowStockThreshold}
			}

			comps = append(comps, Component{
				MedicationID:      med.ID,
				MedicationName:    med.Name,
				Quantity:          dc.Quantity,
				AvailableStock:    stock.Available,
				LowStockThreshold: stock.LowStockThreshold,
				CountingEnabled:   stock.CountingEnabled,
			})
		}

		// Configuración sin componentes vivos: desaparece entera.
		if len(comps) == 0 {
			continue
		}

		options = append(options, DoseOption{
			ConfigurationID: cfg.ID,
			DisplayName:     cfg.DisplayName,
			Schedule:        cfg.Schedule,
			Components:      comps,
			Completed:       completedConfigID != nil && *completedConfigID == cfg.ID,
		})
	}

	return options
}

func countLiveComponents(snap Snapshot, configID string) int {
	n := 0
	for _, dc := range snap.Components[configID] {
		if _, ok := snap.Medications[dc.MedicationID]; ok {
			n++
		}
	}
	return n
}

// overallStatus recorre todos los grupos (los opcionales no pesan):
// exactly_one exige exactamente una toma válida, at_least_one al menos una.
func overallStatus(groups []regimen.MedicationGroup, completedByGroup map[string][]intake.IntakeLog) Status {
	hasAnyCompletion := false
	allRequiredComplete := true
	hasRequiredGroups := false

	for _, g := range groups {
		if g.SelectionRule == regimen.RuleOptional {
			continue
		}
		hasRequiredGroups = true

		n := len(completedByGroup[g.ID])
		if n > 0 {
			hasAnyCompletion = true
		}

		satisfied := false
		switch g.SelectionRule {
		case regimen.RuleExactlyOne:
			satisfied = n == 1
		case regimen.RuleAtLeastOne:
			satisfied = n >= 1
		}
		if !satisfied {
			allRequiredComplete = false
		}
	}

	switch {
	case hasRequiredGroups && hasAnyCompletion && allRequiredComplete:
		return StatusComplete
	case hasAnyCompletion:
		return StatusPartial
	default:
		return StatusNone
	}
}
