package regimen

// TimeFrame es la franja diaria gruesa a la que pertenece un grupo.
type TimeFrame string

const (
	TimeFrameMorning   TimeFrame = "morning"
	TimeFrameAfternoon TimeFrame = "afternoon"
	TimeFrameEvening   TimeFrame = "evening"
	TimeFrameNight     TimeFrame = "night"
)

// TimeFrames retorna las franjas en su orden fijo de presentación.
// El plan diario las ordena siempre así, sin importar el orden de carga.
func TimeFrames() []TimeFrame {
	return []TimeFrame{TimeFrameMorning, TimeFrameAfternoon, TimeFrameEvening, TimeFrameNight}
}

func (f TimeFrame) Valid() bool {
	switch f {
	case TimeFrameMorning, TimeFrameAfternoon, TimeFrameEvening, TimeFrameNight:
		return true
	}
	return false
}

// SelectionRule: cuántas opciones del grupo deben completarse en el día.
type SelectionRule string

const (
	RuleExactlyOne SelectionRule = "exactly_one"
	RuleAtLeastOne SelectionRule = "at_least_one"
	RuleOptional   SelectionRule = "optional"
)

func (r SelectionRule) Valid() bool {
	switch r {
	case RuleExactlyOne, RuleAtLeastOne, RuleOptional:
		return true
	}
	return false
}
