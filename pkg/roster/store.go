package roster

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/arnavshah/roster-planner-go/pkg/dates"
	"github.com/arnavshah/roster-planner-go/pkg/models"
)

// keySeparator joins row id and date in the string form of a Key. Dates never contain
// it, so splitting on its last occurrence is unambiguous even when row ids do.
const keySeparator = "__"

// Key addresses one cell of the roster grid
type Key struct {
	RowID   string
	DateISO string
}

// String encodes the key for serialization boundaries
func (k Key) String() string {
	return k.RowID + keySeparator + k.DateISO
}

// ParseKey decodes a key produced by Key.String
func ParseKey(s string) (Key, bool) {
	i := strings.LastIndex(s, keySeparator)
	if i <= 0 {
		return Key{}, false
	}
	k := Key{RowID: s[:i], DateISO: s[i+len(keySeparator):]}
	if _, ok := dates.ParseISODate(k.DateISO); !ok {
		return Key{}, false
	}
	return k, true
}

// Store maps each (row, date) cell to the assignments placed there. A Store is a value:
// every edit returns a new Store and leaves the receiver untouched.
type Store struct {
	cells map[Key][]models.Assignment
}

// NewStore groups a flat assignment list by cell. Duplicate clinicians in a cell are
// dropped (first wins). Missing or repeated ids are replaced so every id is unique.
func NewStore(assignments []models.Assignment) Store {
	cells := make(map[Key][]models.Assignment)
	ids := make(map[string]bool, len(assignments))
	for _, a := range assignments {
		if a.RowID == "" || a.ClinicianID == "" {
			continue
		}
		if _, ok := dates.ParseISODate(a.DateISO); !ok {
			continue
		}
		k := Key{RowID: a.RowID, DateISO: a.DateISO}
		if indexOfClinician(cells[k], a.ClinicianID) >= 0 {
			continue
		}
		if a.ID == "" || ids[a.ID] {
			a.ID = uuid.NewString()
		}
		ids[a.ID] = true
		cells[k] = append(cells[k], a)
	}
	return Store{cells: cells}
}

// At returns a copy of the assignments in a cell
func (s Store) At(k Key) []models.Assignment {
	list := s.cells[k]
	if len(list) == 0 {
		return nil
	}
	out := make([]models.Assignment, len(list))
	copy(out, list)
	return out
}

// Contains reports whether the clinician is placed in the cell
func (s Store) Contains(k Key, clinicianID string) bool {
	return indexOfClinician(s.cells[k], clinicianID) >= 0
}

// Len returns the number of assignments
func (s Store) Len() int {
	n := 0
	for _, list := range s.cells {
		n += len(list)
	}
	return n
}

// Keys returns the non-empty cells ordered by date, then row id
func (s Store) Keys() []Key {
	keys := make([]Key, 0, len(s.cells))
	for k, list := range s.cells {
		if len(list) > 0 {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].DateISO != keys[j].DateISO {
			return keys[i].DateISO < keys[j].DateISO
		}
		return keys[i].RowID < keys[j].RowID
	})
	return keys
}

// Flatten lists every assignment ordered by date, row id and clinician id. It is the
// inverse of NewStore.
func (s Store) Flatten() []models.Assignment {
	out := make([]models.Assignment, 0, s.Len())
	for _, k := range s.Keys() {
		list := s.At(k)
		sort.SliceStable(list, func(i, j int) bool { return list[i].ClinicianID < list[j].ClinicianID })
		out = append(out, list...)
	}
	return out
}

// find locates an assignment in a cell by id, falling back to the clinician. Rendered
// placements can carry synthetic ids, so the clinician is the stable handle.
func (s Store) find(k Key, assignmentID, clinicianID string) (models.Assignment, bool) {
	list := s.cells[k]
	for _, a := range list {
		if assignmentID != "" && a.ID == assignmentID {
			return a, true
		}
	}
	if i := indexOfClinician(list, clinicianID); i >= 0 {
		return list[i], true
	}
	return models.Assignment{}, false
}

func (s Store) clone() Store {
	cells := make(map[Key][]models.Assignment, len(s.cells))
	for k, list := range s.cells {
		cells[k] = list
	}
	return Store{cells: cells}
}

// insert appends an assignment to its cell. The caller has checked for duplicates.
func (s Store) insert(a models.Assignment) Store {
	k := Key{RowID: a.RowID, DateISO: a.DateISO}
	list := s.cells[k]
	next := make([]models.Assignment, len(list), len(list)+1)
	copy(next, list)
	next = append(next, a)

	out := s.clone()
	out.cells[k] = next
	return out
}

// removeWhere drops the assignments of a cell selected by drop and reports whether
// anything was removed.
func (s Store) removeWhere(k Key, drop func(models.Assignment) bool) (Store, bool) {
	list := s.cells[k]
	next := make([]models.Assignment, 0, len(list))
	for _, a := range list {
		if !drop(a) {
			next = append(next, a)
		}
	}
	if len(next) == len(list) {
		return s, false
	}
	out := s.clone()
	if len(next) == 0 {
		delete(out.cells, k)
	} else {
		out.cells[k] = next
	}
	return out, true
}

// removeClinicianWhere strips a clinician from every cell selected by match
func (s Store) removeClinicianWhere(clinicianID string, match func(Key) bool) (Store, bool) {
	out := s
	changed := false
	for _, k := range s.Keys() {
		if !match(k) {
			continue
		}
		var removed bool
		out, removed = out.removeWhere(k, func(a models.Assignment) bool { return a.ClinicianID == clinicianID })
		changed = changed || removed
	}
	return out, changed
}

func indexOfClinician(list []models.Assignment, clinicianID string) int {
	for i, a := range list {
		if a.ClinicianID == clinicianID {
			return i
		}
	}
	return -1
}
