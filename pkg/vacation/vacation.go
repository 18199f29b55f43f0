// Package vacation keeps a clinician's vacation ranges sorted, non-overlapping and
// non-adjacent while single days are added or removed.
package vacation

import (
	"sort"

	"github.com/google/uuid"

	"github.com/arnavshah/roster-planner-go/pkg/dates"
	"github.com/arnavshah/roster-planner-go/pkg/models"
)

// Covers reports whether the date lies inside one of the intervals
func Covers(intervals []models.VacationInterval, dateISO string) bool {
	if _, ok := dates.ParseISODate(dateISO); !ok {
		return false
	}
	for _, iv := range intervals {
		if contains(iv, dateISO) {
			return true
		}
	}
	return false
}

// AddDay puts the date on vacation. The returned bool is false when nothing changed,
// in which case the clinician is returned as given.
func AddDay(c models.Clinician, dateISO string) (models.Clinician, bool) {
	if _, ok := dates.ParseISODate(dateISO); !ok {
		return c, false
	}
	if Covers(c.Vacations, dateISO) {
		return c, false
	}

	next := make([]models.VacationInterval, 0, len(c.Vacations)+1)
	next = append(next, c.Vacations...)
	next = append(next, models.VacationInterval{ID: uuid.NewString(), StartISO: dateISO, EndISO: dateISO})
	sortByStart(next)

	c.Vacations = merge(next)
	return c, true
}

// RemoveDay takes the date off vacation, shrinking, splitting or deleting the intervals
// that contain it. The returned bool is false when no interval covered the date.
func RemoveDay(c models.Clinician, dateISO string) (models.Clinician, bool) {
	if !Covers(c.Vacations, dateISO) {
		return c, false
	}
	prev := dates.ShiftDateISO(dateISO, -1)
	following := dates.ShiftDateISO(dateISO, 1)

	next := make([]models.VacationInterval, 0, len(c.Vacations)+1)
	for _, iv := range c.Vacations {
		if !contains(iv, dateISO) {
			next = append(next, iv)
			continue
		}
		switch {
		case iv.StartISO == dateISO && iv.EndISO == dateISO:
			// whole interval goes
		case iv.StartISO == dateISO:
			iv.StartISO = following
			next = append(next, iv)
		case iv.EndISO == dateISO:
			iv.EndISO = prev
			next = append(next, iv)
		default:
			next = append(next,
				models.VacationInterval{ID: uuid.NewString(), StartISO: iv.StartISO, EndISO: prev},
				models.VacationInterval{ID: uuid.NewString(), StartISO: following, EndISO: iv.EndISO},
			)
		}
	}
	sortByStart(next)

	c.Vacations = next
	return c, true
}

// Normalize sorts and merges a clinician's intervals, dropping malformed or inverted
// ones. Used when accepting externally supplied clinicians.
func Normalize(c models.Clinician) models.Clinician {
	next := make([]models.VacationInterval, 0, len(c.Vacations))
	for _, iv := range c.Vacations {
		if valid(iv) {
			next = append(next, iv)
		}
	}
	sortByStart(next)
	c.Vacations = merge(next)
	return c
}

// merge folds overlapping and adjacent intervals of a sorted list into their predecessor
func merge(sorted []models.VacationInterval) []models.VacationInterval {
	out := make([]models.VacationInterval, 0, len(sorted))
	for _, iv := range sorted {
		if len(out) == 0 {
			out = append(out, iv)
			continue
		}
		last := &out[len(out)-1]
		if iv.StartISO <= dates.ShiftDateISO(last.EndISO, 1) {
			if iv.EndISO > last.EndISO {
				last.EndISO = iv.EndISO
			}
			continue
		}
		out = append(out, iv)
	}
	return out
}

func sortByStart(intervals []models.VacationInterval) {
	sort.SliceStable(intervals, func(i, j int) bool {
		return intervals[i].StartISO < intervals[j].StartISO
	})
}

// ISO dates order lexically, so validated bounds compare as strings.
func contains(iv models.VacationInterval, dateISO string) bool {
	return valid(iv) && iv.StartISO <= dateISO && dateISO <= iv.EndISO
}

func valid(iv models.VacationInterval) bool {
	if _, ok := dates.ParseISODate(iv.StartISO); !ok {
		return false
	}
	if _, ok := dates.ParseISODate(iv.EndISO); !ok {
		return false
	}
	return iv.StartISO <= iv.EndISO
}
