// Package view derives the presentation map shown on the roster grid. Every clinician
// gets a visible placement on every displayed date; pool placements that are not stored
// as real assignments are synthesized with stable ids.
package view

import (
	"fmt"
	"sort"

	"github.com/arnavshah/roster-planner-go/pkg/dates"
	"github.com/arnavshah/roster-planner-go/pkg/models"
	"github.com/arnavshah/roster-planner-go/pkg/roster"
	"github.com/arnavshah/roster-planner-go/pkg/vacation"
)

// Input is everything the builder reads
type Input struct {
	Store      roster.Store
	Clinicians []models.Clinician
	Dates      []string
	Rows       []models.Row
}

// View maps grid cells to the placements rendered in them
type View map[roster.Key][]models.Assignment

// InputFromState collects the builder input for the given dates
func InputFromState(s roster.State, displayed []string) Input {
	return Input{
		Store:      s.Assignments,
		Clinicians: s.Clinicians,
		Dates:      displayed,
		Rows:       s.Rows,
	}
}

// SyntheticID is the id given to a synthesized pool placement
func SyntheticID(poolRowID, clinicianID, dateISO string) string {
	return fmt.Sprintf("%s-%s-%s", poolRowID, clinicianID, dateISO)
}

// Build derives the rendered view. It is pure and is re-run on every state change.
func Build(in Input) View {
	out := make(View)
	var unassignedPool, vacationPool, restDayPool string
	for _, r := range in.Rows {
		switch r.Variant() {
		case models.VariantUnassignedPool:
			unassignedPool = r.ID
		case models.VariantVacationPool:
			vacationPool = r.ID
		case models.VariantRestDayPool:
			restDayPool = r.ID
		}
	}
	if unassignedPool == "" {
		unassignedPool = models.UnassignedPoolID
	}
	if vacationPool == "" {
		vacationPool = models.VacationPoolID
	}
	if restDayPool == "" {
		restDayPool = models.RestDayPoolID
	}

	vacations := make(map[string][]models.VacationInterval, len(in.Clinicians))
	for _, c := range in.Clinicians {
		vacations[c.ID] = c.Vacations
	}
	onVacation := func(clinicianID, dateISO string) bool {
		return vacation.Covers(vacations[clinicianID], dateISO)
	}

	for _, dateISO := range uniqueDates(in.Dates) {
		placed := make(map[string]bool)
		restDay := make(map[string]models.Assignment)

		// real class and named-pool placements; vacation wins over stale ones
		for _, r := range in.Rows {
			k := roster.Key{RowID: r.ID, DateISO: dateISO}
			switch r.Variant() {
			case models.VariantClass, models.VariantGenericPool:
				for _, a := range in.Store.At(k) {
					if onVacation(a.ClinicianID, dateISO) {
						continue
					}
					out[k] = append(out[k], a)
					placed[a.ClinicianID] = true
				}
			case models.VariantRestDayPool:
				for _, a := range in.Store.At(k) {
					if _, dup := restDay[a.ClinicianID]; !dup {
						restDay[a.ClinicianID] = a
					}
				}
			}
		}

		for _, c := range in.Clinicians {
			if placed[c.ID] {
				continue
			}
			switch {
			case onVacation(c.ID, dateISO):
				k := roster.Key{RowID: vacationPool, DateISO: dateISO}
				out[k] = append(out[k], synthetic(vacationPool, c.ID, dateISO))
			case hasRestDay(restDay, c.ID):
				a := restDay[c.ID]
				k := roster.Key{RowID: restDayPool, DateISO: dateISO}
				a.RowID = restDayPool
				out[k] = append(out[k], a)
			default:
				k := roster.Key{RowID: unassignedPool, DateISO: dateISO}
				out[k] = append(out[k], synthetic(unassignedPool, c.ID, dateISO))
			}
		}
	}

	for k := range out {
		list := out[k]
		sort.SliceStable(list, func(i, j int) bool { return list[i].ClinicianID < list[j].ClinicianID })
	}
	return out
}

// Placement is the state a clinician is in on one date
type Placement struct {
	Variant models.RowVariant
	RowIDs  []string
}

// PlacementOf reports where a clinician appears in the view on a date. Scheduled
// clinicians may sit in several class rows; pool placements are exclusive.
func (v View) PlacementOf(clinicianID, dateISO string, rows map[string]models.Row) (Placement, bool) {
	var p Placement
	found := false
	keys := make([]roster.Key, 0, len(v))
	for k := range v {
		if k.DateISO == dateISO {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].RowID < keys[j].RowID })
	for _, k := range keys {
		for _, a := range v[k] {
			if a.ClinicianID != clinicianID {
				continue
			}
			variant := models.VariantGenericPool
			if r, ok := rows[k.RowID]; ok {
				variant = r.Variant()
			}
			if !found || variant == models.VariantClass {
				p.Variant = variant
			}
			p.RowIDs = append(p.RowIDs, k.RowID)
			found = true
		}
	}
	return p, found
}

// Encode converts the view to string-keyed form for JSON responses
func (v View) Encode() map[string][]models.Assignment {
	out := make(map[string][]models.Assignment, len(v))
	for k, list := range v {
		out[k.String()] = list
	}
	return out
}

func synthetic(poolRowID, clinicianID, dateISO string) models.Assignment {
	return models.Assignment{
		ID:          SyntheticID(poolRowID, clinicianID, dateISO),
		RowID:       poolRowID,
		DateISO:     dateISO,
		ClinicianID: clinicianID,
	}
}

func hasRestDay(restDay map[string]models.Assignment, clinicianID string) bool {
	_, ok := restDay[clinicianID]
	return ok
}

func uniqueDates(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, d := range in {
		if _, ok := dates.ParseISODate(d); !ok || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	return out
}
