package clock

import "time"

// Calendar centraliza la aritmética de días para que todos los chequeos
// de ventanas de fecha usen el mismo calendario local.
// Todas las comparaciones son a granularidad de día.
type Calendar struct {
	loc *time.Location
}

func New(loc *time.Location) Calendar {
	if loc == nil {
		loc = time.Local
	}
	return Calendar{loc: loc}
}

func (c Calendar) Location() *time.Location {
	return c.loc
}

// StartOfDay trunca t al inicio del día en el calendario local.
func (c Calendar) StartOfDay(t time.Time) time.Time {
	y, m, d := t.In(c.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, c.loc)
}

// NextDay retorna el inicio del día siguiente a t.
// Sumar vía AddDate y no 24h: días con cambio de horario no miden 24h.
func (c Calendar) NextDay(t time.Time) time.Time {
	return c.StartOfDay(t).AddDate(0, 0, 1)
}

func (c Calendar) SameDay(a, b time.Time) bool {
	return c.StartOfDay(a).Equal(c.StartOfDay(b))
}

// WithinWindow: ¿cae date dentro de [start, end]? Ambos extremos inclusive,
// end == nil significa ventana abierta hacia adelante.
func (c Calendar) WithinWindow(date, start time.Time, end *time.Time) bool {
	day := c.StartOfDay(date)
	if day.Before(c.StartOfDay(start)) {
		return false
	}
	if end != nil && day.After(c.StartOfDay(*end)) {
		return false
	}
	return true
}
