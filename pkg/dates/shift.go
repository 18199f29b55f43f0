package dates

import (
	"strconv"
	"strings"

	"github.com/arnavshah/roster-planner-go/pkg/models"
)

// ShiftInterval is a shift's time window relative to the day it starts on.
// EndDayOffset is 1 for shifts that end on the following day.
type ShiftInterval struct {
	StartMinutes int
	EndMinutes   int
	EndDayOffset int
}

func (s ShiftInterval) absoluteEnd() int {
	return s.EndMinutes + s.EndDayOffset*minutesPerDay
}

// Hours returns the length of the shift
func (s ShiftInterval) Hours() float64 {
	return float64(s.absoluteEnd()-s.StartMinutes) / 60
}

// BuildShiftInterval returns the time window of a class row. Rows without configured
// shift times, pool rows, and windows that end before they start have none.
func BuildShiftInterval(row models.Row) (ShiftInterval, bool) {
	if row.Kind != models.RowKindClass {
		return ShiftInterval{}, false
	}
	start, ok := parseClock(row.StartTime)
	if !ok {
		return ShiftInterval{}, false
	}
	end, ok := parseClock(row.EndTime)
	if !ok {
		return ShiftInterval{}, false
	}
	if row.EndDayOffset < 0 {
		return ShiftInterval{}, false
	}
	iv := ShiftInterval{StartMinutes: start, EndMinutes: end, EndDayOffset: row.EndDayOffset}
	if iv.absoluteEnd() <= iv.StartMinutes {
		return ShiftInterval{}, false
	}
	return iv, true
}

// IntervalsOverlap checks if two shifts starting on the same day overlap.
// Shifts that touch at a boundary do not.
func IntervalsOverlap(a, b ShiftInterval) bool {
	return a.StartMinutes < b.absoluteEnd() && b.StartMinutes < a.absoluteEnd()
}

// parseClock parses HH:MM into minutes of day. 24:00 is accepted as end of day.
func parseClock(s string) (int, bool) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 || len(parts[0]) == 0 || len(parts[1]) != 2 {
		return 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, false
	}
	if h < 0 || m < 0 || m > 59 || h > 24 || (h == 24 && m != 0) {
		return 0, false
	}
	return h*60 + m, true
}
