package roster

import (
	"github.com/google/uuid"

	"github.com/arnavshah/roster-planner-go/pkg/dates"
	"github.com/arnavshah/roster-planner-go/pkg/models"
	"github.com/arnavshah/roster-planner-go/pkg/vacation"
)

// Add places a clinician on a class row. It is a no-op for non-class or unknown rows,
// unknown clinicians, malformed dates, and clinicians already in the cell. Being
// scheduled takes the clinician out of the rest-day pool and off vacation for that date.
func (s State) Add(rowID, dateISO, clinicianID string) State {
	return s.addWithID(rowID, dateISO, clinicianID, "")
}

func (s State) addWithID(rowID, dateISO, clinicianID, assignmentID string) State {
	row, ok := s.Row(rowID)
	if !ok || row.Variant() != models.VariantClass {
		return s
	}
	if !s.placeable(dateISO, clinicianID) {
		return s
	}
	k := Key{RowID: rowID, DateISO: dateISO}
	if s.Assignments.Contains(k, clinicianID) {
		return s
	}
	if assignmentID == "" || s.assignmentIDTaken(assignmentID) {
		assignmentID = uuid.NewString()
	}
	return s.schedule(models.Assignment{ID: assignmentID, RowID: rowID, DateISO: dateISO, ClinicianID: clinicianID})
}

// Remove deletes an assignment by id from one cell
func (s State) Remove(rowID, dateISO, assignmentID string) State {
	k := Key{RowID: rowID, DateISO: dateISO}
	store, removed := s.Assignments.removeWhere(k, func(a models.Assignment) bool { return a.ID == assignmentID })
	if !removed {
		return s
	}
	return s.withStore(store).bump()
}

// MoveWithinDay reconciles a drag of a clinician from one row to another on the same
// date. It never leaves two assignments for the same clinician in one cell: a move onto
// a cell that already holds the clinician is dropped.
func (s State) MoveWithinDay(dateISO, fromRowID, toRowID, assignmentID, clinicianID string) State {
	if fromRowID == toRowID {
		return s
	}
	from, ok := s.Row(fromRowID)
	if !ok {
		return s
	}
	to, ok := s.Row(toRowID)
	if !ok {
		return s
	}
	if !s.placeable(dateISO, clinicianID) {
		return s
	}
	fromVariant, toVariant := from.Variant(), to.Variant()
	fromKey := Key{RowID: fromRowID, DateISO: dateISO}
	toKey := Key{RowID: toRowID, DateISO: dateISO}

	if toVariant == models.VariantVacationPool {
		next := s.AddVacationDay(clinicianID, dateISO)
		store, stripped := next.Assignments.removeClinicianWhere(clinicianID, func(k Key) bool { return k.DateISO == dateISO })
		if stripped {
			next = next.withStore(store).bump()
		}
		return next
	}

	next := s
	if fromVariant == models.VariantVacationPool {
		next = next.RemoveVacationDay(clinicianID, dateISO)
	}

	switch toVariant {
	case models.VariantUnassignedPool:
		if !fromVariant.HoldsRecords() {
			return next
		}
		a, found := next.Assignments.find(fromKey, assignmentID, clinicianID)
		if !found {
			return next
		}
		return next.Remove(fromRowID, dateISO, a.ID)

	case models.VariantClass, models.VariantRestDayPool, models.VariantGenericPool:
		if next.Assignments.Contains(toKey, clinicianID) {
			return next
		}
		// a named pool keeps its membership when the clinician is also put to work
		relocates := fromVariant.HoldsRecords() &&
			!(fromVariant == models.VariantGenericPool && toVariant == models.VariantClass)
		if relocates {
			if a, found := next.Assignments.find(fromKey, assignmentID, clinicianID); found {
				return next.relocate(a, toRowID, toVariant)
			}
		}
		a := models.Assignment{ID: uuid.NewString(), RowID: toRowID, DateISO: dateISO, ClinicianID: clinicianID}
		if toVariant == models.VariantClass {
			return next.schedule(a)
		}
		return next.withStore(next.Assignments.insert(a)).bump()
	}
	return next
}

// AddVacationDay puts the clinician on vacation for the date. Assignments on that date
// are left in place; the rendered view and the detector both treat vacation as
// authoritative.
func (s State) AddVacationDay(clinicianID, dateISO string) State {
	i := s.clinicianIndex(clinicianID)
	if i < 0 {
		return s
	}
	c, changed := vacation.AddDay(s.Clinicians[i], dateISO)
	if !changed {
		return s
	}
	return s.withClinician(i, c).bump()
}

// RemoveVacationDay takes the clinician off vacation for the date
func (s State) RemoveVacationDay(clinicianID, dateISO string) State {
	i := s.clinicianIndex(clinicianID)
	if i < 0 {
		return s
	}
	c, changed := vacation.RemoveDay(s.Clinicians[i], dateISO)
	if !changed {
		return s
	}
	return s.withClinician(i, c).bump()
}

// ApplyBulk merges externally produced assignments, such as a solver run, with Add
// semantics. Stale or duplicate entries become no-ops. It returns the number of
// assignments that were written.
func (s State) ApplyBulk(assignments []models.Assignment) (State, int) {
	next := s
	written := 0
	for _, a := range assignments {
		before := next.Assignments.Contains(Key{RowID: a.RowID, DateISO: a.DateISO}, a.ClinicianID)
		next = next.addWithID(a.RowID, a.DateISO, a.ClinicianID, a.ID)
		if !before && next.Assignments.Contains(Key{RowID: a.RowID, DateISO: a.DateISO}, a.ClinicianID) {
			written++
		}
	}
	return next, written
}

// DeleteRow removes a row and every assignment placed on it. Distinguished pools
// cannot be deleted.
func (s State) DeleteRow(rowID string) State {
	row, ok := s.Row(rowID)
	if !ok {
		return s
	}
	switch row.Variant() {
	case models.VariantUnassignedPool, models.VariantVacationPool, models.VariantRestDayPool:
		return s
	}

	rows := make([]models.Row, 0, len(s.Rows)-1)
	for _, r := range s.Rows {
		if r.ID != rowID {
			rows = append(rows, r)
		}
	}
	store := s.Assignments.clone()
	for k := range store.cells {
		if k.RowID == rowID {
			delete(store.cells, k)
		}
	}
	minSlots := make(map[string]int, len(s.MinSlotsByRowID))
	for id, n := range s.MinSlotsByRowID {
		if id != rowID {
			minSlots[id] = n
		}
	}

	s.Rows = rows
	s.MinSlotsByRowID = minSlots
	return s.withStore(store).bump()
}

// DeleteClinician removes a clinician and all of their assignments
func (s State) DeleteClinician(clinicianID string) State {
	i := s.clinicianIndex(clinicianID)
	if i < 0 {
		return s
	}
	clinicians := make([]models.Clinician, 0, len(s.Clinicians)-1)
	clinicians = append(clinicians, s.Clinicians[:i]...)
	clinicians = append(clinicians, s.Clinicians[i+1:]...)

	store, _ := s.Assignments.removeClinicianWhere(clinicianID, func(Key) bool { return true })
	s.Clinicians = clinicians
	return s.withStore(store).bump()
}

// schedule writes a class-row assignment and clears what being scheduled supersedes:
// rest-day placements and vacation on the same date.
func (s State) schedule(a models.Assignment) State {
	next := s.withStore(s.Assignments.insert(a)).bump()
	store, _ := next.Assignments.removeClinicianWhere(a.ClinicianID, func(k Key) bool {
		if k.DateISO != a.DateISO {
			return false
		}
		r, ok := next.Row(k.RowID)
		return ok && r.Variant() == models.VariantRestDayPool
	})
	next = next.withStore(store)
	return next.RemoveVacationDay(a.ClinicianID, a.DateISO)
}

// relocate moves an existing assignment record to another row on the same date
func (s State) relocate(a models.Assignment, toRowID string, toVariant models.RowVariant) State {
	fromKey := Key{RowID: a.RowID, DateISO: a.DateISO}
	store, _ := s.Assignments.removeWhere(fromKey, func(x models.Assignment) bool { return x.ID == a.ID })
	a.RowID = toRowID
	next := s.withStore(store)
	if toVariant == models.VariantClass {
		return next.schedule(a)
	}
	return next.withStore(next.Assignments.insert(a)).bump()
}

func (s State) placeable(dateISO, clinicianID string) bool {
	if _, ok := dates.ParseISODate(dateISO); !ok {
		return false
	}
	return s.clinicianIndex(clinicianID) >= 0
}

func (s State) assignmentIDTaken(id string) bool {
	for _, list := range s.Assignments.cells {
		for _, a := range list {
			if a.ID == id {
				return true
			}
		}
	}
	return false
}
