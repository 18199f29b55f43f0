// Package roster holds the scheduling state and the pure transformations applied to it
// when clinicians are moved between rows, put on vacation, or written in bulk.
package roster

import (
	"github.com/google/uuid"

	"github.com/arnavshah/roster-planner-go/pkg/dates"
	"github.com/arnavshah/roster-planner-go/pkg/models"
	"github.com/arnavshah/roster-planner-go/pkg/vacation"
)

// State is the single source of truth for a roster. Operations return a new State;
// the receiver and anything previously read from it stay valid.
type State struct {
	Rows            []models.Row
	Clinicians      []models.Clinician
	Assignments     Store
	MinSlotsByRowID map[string]int
	Settings        models.SolverSettings
	Holidays        []string

	rev uint64
}

// DistinguishedPools returns the unassigned, vacation and rest-day pool rows
func DistinguishedPools() []models.Row {
	return []models.Row{
		{ID: models.UnassignedPoolID, Name: "Distribution", Kind: models.RowKindPool, Pool: models.PoolUnassigned},
		{ID: models.VacationPoolID, Name: "Vacation", Kind: models.RowKindPool, Pool: models.PoolVacation},
		{ID: models.RestDayPoolID, Name: "Rest Day", Kind: models.RowKindPool, Pool: models.PoolRestDay},
	}
}

// FromSnapshot rebuilds a State from the flat persistence shape. Missing distinguished
// pools are added, vacation intervals are normalized, and empty or repeated
// vacation and assignment ids are replaced.
func FromSnapshot(snap models.Snapshot) State {
	rows := make([]models.Row, 0, len(snap.Rows)+3)
	seenRows := make(map[string]bool, len(snap.Rows))
	have := make(map[models.RowVariant]bool)
	for _, r := range snap.Rows {
		if r.ID == "" || seenRows[r.ID] {
			continue
		}
		seenRows[r.ID] = true
		have[r.Variant()] = true
		rows = append(rows, r)
	}
	for _, pool := range DistinguishedPools() {
		if !have[pool.Variant()] && !seenRows[pool.ID] {
			rows = append(rows, pool)
		}
	}

	clinicians := make([]models.Clinician, 0, len(snap.Clinicians))
	seenClinicians := make(map[string]bool, len(snap.Clinicians))
	vacationIDs := make(map[string]bool)
	for _, c := range snap.Clinicians {
		if c.ID == "" || seenClinicians[c.ID] {
			continue
		}
		seenClinicians[c.ID] = true
		c = vacation.Normalize(c)
		for i, iv := range c.Vacations {
			if iv.ID == "" || vacationIDs[iv.ID] {
				c.Vacations[i].ID = uuid.NewString()
			}
			vacationIDs[c.Vacations[i].ID] = true
		}
		clinicians = append(clinicians, c)
	}

	minSlots := make(map[string]int, len(snap.MinSlotsByRowID))
	for id, n := range snap.MinSlotsByRowID {
		minSlots[id] = n
	}

	return State{
		Rows:            rows,
		Clinicians:      clinicians,
		Assignments:     NewStore(snap.Assignments),
		MinSlotsByRowID: minSlots,
		Settings:        snap.SolverSettings,
		Holidays:        append([]string(nil), snap.Holidays...),
	}
}

// Snapshot flattens the state for persistence and the render layer
func (s State) Snapshot() models.Snapshot {
	minSlots := make(map[string]int, len(s.MinSlotsByRowID))
	for id, n := range s.MinSlotsByRowID {
		minSlots[id] = n
	}
	return models.Snapshot{
		Rows:            append([]models.Row(nil), s.Rows...),
		Clinicians:      append([]models.Clinician(nil), s.Clinicians...),
		Assignments:     s.Assignments.Flatten(),
		MinSlotsByRowID: minSlots,
		SolverSettings:  s.Settings,
		Holidays:        append([]string(nil), s.Holidays...),
	}
}

// Revision increases every time an operation changes the state. Callers compare it to
// tell a no-op from a change.
func (s State) Revision() uint64 {
	return s.rev
}

// Succeeding returns s numbered after prev, so a state loaded to replace prev never
// reuses a revision that prev or its ancestors already had.
func (s State) Succeeding(prev State) State {
	if s.rev <= prev.rev {
		s.rev = prev.rev + 1
	}
	return s
}

// Row looks up a row by id
func (s State) Row(id string) (models.Row, bool) {
	for _, r := range s.Rows {
		if r.ID == id {
			return r, true
		}
	}
	return models.Row{}, false
}

// RowIndex maps row ids to rows
func (s State) RowIndex() map[string]models.Row {
	idx := make(map[string]models.Row, len(s.Rows))
	for _, r := range s.Rows {
		idx[r.ID] = r
	}
	return idx
}

// Clinician looks up a clinician by id
func (s State) Clinician(id string) (models.Clinician, bool) {
	if i := s.clinicianIndex(id); i >= 0 {
		return s.Clinicians[i], true
	}
	return models.Clinician{}, false
}

// OnVacation reports whether the clinician is on vacation on the date
func (s State) OnVacation(clinicianID, dateISO string) bool {
	c, ok := s.Clinician(clinicianID)
	return ok && vacation.Covers(c.Vacations, dateISO)
}

// RequiredSlots resolves how many clinicians a class row needs per active day.
// A snapshot-level minimum overrides the row's own setting.
func (s State) RequiredSlots(rowID string) int {
	if n, ok := s.MinSlotsByRowID[rowID]; ok {
		return n
	}
	if r, ok := s.Row(rowID); ok {
		return r.RequiredSlots
	}
	return 0
}

// HolidaySet returns the configured holidays as a set
func (s State) HolidaySet() dates.HolidaySet {
	return dates.NewHolidaySet(s.Holidays)
}

// PoolRow returns the row acting as the given distinguished pool
func (s State) PoolRow(v models.RowVariant) (models.Row, bool) {
	for _, r := range s.Rows {
		if r.Variant() == v {
			return r, true
		}
	}
	return models.Row{}, false
}

func (s State) clinicianIndex(id string) int {
	for i, c := range s.Clinicians {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func (s State) withClinician(i int, c models.Clinician) State {
	next := make([]models.Clinician, len(s.Clinicians))
	copy(next, s.Clinicians)
	next[i] = c
	s.Clinicians = next
	return s
}

func (s State) withStore(store Store) State {
	s.Assignments = store
	return s
}

func (s State) bump() State {
	s.rev++
	return s
}
