// Package rules derives schedule-constraint violations from the current assignments.
// Violations are recomputed from scratch on every call; their ids depend only on the
// clinician, dates and offsets involved, so the same conflict keeps its id across runs.
package rules

import (
	"fmt"
	"sort"

	"github.com/arnavshah/roster-planner-go/pkg/dates"
	"github.com/arnavshah/roster-planner-go/pkg/models"
	"github.com/arnavshah/roster-planner-go/pkg/roster"
	"github.com/arnavshah/roster-planner-go/pkg/vacation"
)

// Input is everything the detector reads. Dates is the visible window.
type Input struct {
	Store      roster.Store
	Clinicians []models.Clinician
	Rows       []models.Row
	Settings   models.SolverSettings
	Dates      []string
}

// InputFromState collects the detector input for the given window
func InputFromState(s roster.State, window []string) Input {
	return Input{
		Store:      s.Assignments,
		Clinicians: s.Clinicians,
		Rows:       s.Rows,
		Settings:   s.Settings,
		Dates:      window,
	}
}

// Result holds the violations and the union of the assignment keys they reference
type Result struct {
	Violations []models.RuleViolation `json:"violations"`
	Keys       []models.AssignmentKey `json:"keys"`
}

// Has reports whether the assignment takes part in any violation
func (r Result) Has(k models.AssignmentKey) bool {
	for _, x := range r.Keys {
		if x == k {
			return true
		}
	}
	return false
}

// ForClinician returns the violations naming the clinician
func (r Result) ForClinician(clinicianID string) []models.RuleViolation {
	var out []models.RuleViolation
	for _, v := range r.Violations {
		if v.ClinicianID == clinicianID {
			out = append(out, v)
		}
	}
	return out
}

// dayPlan is the class assignments of one clinician, by date, in row order
type dayPlan map[string][]models.Assignment

type detector struct {
	in       Input
	rows     map[string]models.Row
	onCall   map[string]bool
	window   map[string]bool
	names    map[string]string
	byPerson map[string]dayPlan
}

// Detect evaluates the on-call rest, same-location and overlapping-shift rules
func Detect(in Input) Result {
	d := newDetector(in)

	clinicianIDs := make([]string, 0, len(d.byPerson))
	for id := range d.byPerson {
		clinicianIDs = append(clinicianIDs, id)
	}
	sort.Strings(clinicianIDs)

	var violations []models.RuleViolation
	for _, clinicianID := range clinicianIDs {
		plan := d.byPerson[clinicianID]
		days := make([]string, 0, len(plan))
		for day := range plan {
			days = append(days, day)
		}
		sort.Strings(days)

		for _, day := range days {
			violations = append(violations, d.restSpacing(clinicianID, day, plan)...)
			if v, ok := d.sameLocation(clinicianID, day, plan[day]); ok {
				violations = append(violations, v)
			}
			if v, ok := d.overlap(clinicianID, day, plan[day]); ok {
				violations = append(violations, v)
			}
		}
	}

	return Result{Violations: violations, Keys: unionKeys(violations)}
}

func newDetector(in Input) *detector {
	d := &detector{
		in:       in,
		rows:     make(map[string]models.Row, len(in.Rows)),
		onCall:   make(map[string]bool),
		window:   make(map[string]bool, len(in.Dates)),
		names:    make(map[string]string, len(in.Clinicians)),
		byPerson: make(map[string]dayPlan),
	}
	for _, r := range in.Rows {
		d.rows[r.ID] = r
		if r.Variant() == models.VariantClass && isOnCallRow(r, in.Settings.OnCallRestClassID) {
			d.onCall[r.ID] = true
		}
	}
	for _, day := range in.Dates {
		if _, ok := dates.ParseISODate(day); ok {
			d.window[day] = true
		}
	}

	vacations := make(map[string][]models.VacationInterval, len(in.Clinicians))
	for _, c := range in.Clinicians {
		d.names[c.ID] = c.Name
		vacations[c.ID] = c.Vacations
	}

	days := make([]string, 0, len(d.window))
	for day := range d.window {
		days = append(days, day)
	}
	sort.Strings(days)

	for _, r := range in.Rows {
		if r.Variant() != models.VariantClass {
			continue
		}
		for _, day := range days {
			for _, a := range in.Store.At(roster.Key{RowID: r.ID, DateISO: day}) {
				if vacation.Covers(vacations[a.ClinicianID], day) {
					continue
				}
				plan, ok := d.byPerson[a.ClinicianID]
				if !ok {
					plan = make(dayPlan)
					d.byPerson[a.ClinicianID] = plan
				}
				plan[day] = append(plan[day], a)
			}
		}
	}
	return d
}

// isOnCallRow matches the configured on-call class against the row's section, falling
// back to the row id for rows without one.
func isOnCallRow(r models.Row, classID string) bool {
	if classID == "" {
		return false
	}
	return r.SectionID == classID || r.ID == classID
}

func (d *detector) restSpacing(clinicianID, day string, plan dayPlan) []models.RuleViolation {
	s := d.in.Settings
	if !s.OnCallRestEnabled || len(d.onCall) == 0 {
		return nil
	}
	var onCall []models.Assignment
	for _, a := range plan[day] {
		if d.onCall[a.RowID] {
			onCall = append(onCall, a)
		}
	}
	if len(onCall) == 0 {
		return nil
	}

	var out []models.RuleViolation
	check := func(direction string, offset int) {
		delta := offset
		if direction == "before" {
			delta = -offset
		}
		other := dates.ShiftDateISO(day, delta)
		if other == "" || !d.window[other] || len(plan[other]) == 0 {
			return
		}
		keys := keysOf(onCall)
		keys = append(keys, keysOf(plan[other])...)
		out = append(out, models.RuleViolation{
			ID:          fmt.Sprintf("rest-%s-%s-%s-%s-%d", clinicianID, day, other, direction, offset),
			ClinicianID: clinicianID,
			Summary: fmt.Sprintf("%s is assigned on %s, %d %s %s the on-call shift on %s",
				d.name(clinicianID), other, offset, dayWord(offset), direction, day),
			AssignmentKeys: keys,
		})
	}
	for offset := 1; offset <= s.OnCallRestDaysBefore; offset++ {
		check("before", offset)
	}
	for offset := 1; offset <= s.OnCallRestDaysAfter; offset++ {
		check("after", offset)
	}
	return out
}

func (d *detector) sameLocation(clinicianID, day string, list []models.Assignment) (models.RuleViolation, bool) {
	if !d.in.Settings.EnforceSameLocationPerDay || len(list) < 2 {
		return models.RuleViolation{}, false
	}
	locations := make(map[string]bool)
	for _, a := range list {
		loc := d.rows[a.RowID].LocationID
		if loc == "" {
			loc = models.DefaultLocationID
		}
		locations[loc] = true
	}
	if len(locations) < 2 {
		return models.RuleViolation{}, false
	}
	return models.RuleViolation{
		ID:             fmt.Sprintf("location-%s-%s", clinicianID, day),
		ClinicianID:    clinicianID,
		Summary:        fmt.Sprintf("%s works at %d locations on %s", d.name(clinicianID), len(locations), day),
		AssignmentKeys: keysOf(list),
	}, true
}

func (d *detector) overlap(clinicianID, day string, list []models.Assignment) (models.RuleViolation, bool) {
	if len(list) < 2 {
		return models.RuleViolation{}, false
	}
	intervals := make([]dates.ShiftInterval, len(list))
	timed := make([]bool, len(list))
	for i, a := range list {
		intervals[i], timed[i] = dates.BuildShiftInterval(d.rows[a.RowID])
	}

	involved := make([]bool, len(list))
	found := false
	for i := 0; i < len(list); i++ {
		for j := i + 1; j < len(list); j++ {
			if !timed[i] || !timed[j] {
				continue
			}
			if dates.IntervalsOverlap(intervals[i], intervals[j]) {
				involved[i], involved[j] = true, true
				found = true
			}
		}
	}
	if !found {
		return models.RuleViolation{}, false
	}

	var participants []models.Assignment
	for i, a := range list {
		if involved[i] {
			participants = append(participants, a)
		}
	}
	return models.RuleViolation{
		ID:             fmt.Sprintf("overlap-%s-%s", clinicianID, day),
		ClinicianID:    clinicianID,
		Summary:        fmt.Sprintf("%s has %d overlapping shifts on %s", d.name(clinicianID), len(participants), day),
		AssignmentKeys: keysOf(participants),
	}, true
}

func (d *detector) name(clinicianID string) string {
	if n := d.names[clinicianID]; n != "" {
		return n
	}
	return clinicianID
}

func dayWord(n int) string {
	if n == 1 {
		return "day"
	}
	return "days"
}

func keysOf(list []models.Assignment) []models.AssignmentKey {
	out := make([]models.AssignmentKey, 0, len(list))
	for _, a := range list {
		out = append(out, a.Key())
	}
	return out
}

func unionKeys(violations []models.RuleViolation) []models.AssignmentKey {
	seen := make(map[models.AssignmentKey]bool)
	var out []models.AssignmentKey
	for _, v := range violations {
		for _, k := range v.AssignmentKeys {
			if !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DateISO != out[j].DateISO {
			return out[i].DateISO < out[j].DateISO
		}
		if out[i].RowID != out[j].RowID {
			return out[i].RowID < out[j].RowID
		}
		return out[i].ClinicianID < out[j].ClinicianID
	})
	return out
}
