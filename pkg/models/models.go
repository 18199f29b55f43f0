package models

// RowKind separates working rows from holding pools. It never changes after a row is created.
type RowKind string

const (
	RowKindClass RowKind = "class"
	RowKindPool  RowKind = "pool"
)

// PoolRole marks the distinguished pools. Generic labeled pools leave it empty.
type PoolRole string

const (
	PoolGeneric    PoolRole = ""
	PoolUnassigned PoolRole = "unassigned"
	PoolVacation   PoolRole = "vacation"
	PoolRestDay    PoolRole = "rest-day"
)

// Identifiers of the distinguished pool rows.
const (
	UnassignedPoolID = "pool-not-allocated"
	VacationPoolID   = "pool-vacation"
	RestDayPoolID    = "pool-rest-day"
)

// DefaultLocationID is the location of class rows that do not name one.
const DefaultLocationID = "loc-default"

// DayType restricts the days on which a class row is staffed.
type DayType string

const (
	DayTypeAny     DayType = ""
	DayTypeWeekday DayType = "weekday"
	DayTypeWeekend DayType = "weekend"
)

// Row is a place where clinicians can be placed on a given day
type Row struct {
	ID   string   `json:"id" yaml:"id"`
	Name string   `json:"name" yaml:"name"`
	Kind RowKind  `json:"kind" yaml:"kind"`
	Pool PoolRole `json:"pool,omitempty" yaml:"pool,omitempty"`

	SectionID     string  `json:"sectionId,omitempty" yaml:"sectionId,omitempty"`
	LocationID    string  `json:"locationId,omitempty" yaml:"locationId,omitempty"`
	DayType       DayType `json:"dayType,omitempty" yaml:"dayType,omitempty"`
	StartTime     string  `json:"startTime,omitempty" yaml:"startTime,omitempty"` // HH:MM
	EndTime       string  `json:"endTime,omitempty" yaml:"endTime,omitempty"`     // HH:MM, 24:00 allowed
	EndDayOffset  int     `json:"endDayOffset,omitempty" yaml:"endDayOffset,omitempty"`
	RequiredSlots int     `json:"requiredSlots,omitempty" yaml:"requiredSlots,omitempty"`
}

// RowVariant is the closed set of row behaviours used by move reconciliation.
type RowVariant int

const (
	VariantClass RowVariant = iota
	VariantUnassignedPool
	VariantVacationPool
	VariantRestDayPool
	VariantGenericPool
)

func (v RowVariant) String() string {
	switch v {
	case VariantClass:
		return "class"
	case VariantUnassignedPool:
		return "unassigned-pool"
	case VariantVacationPool:
		return "vacation-pool"
	case VariantRestDayPool:
		return "rest-day-pool"
	default:
		return "pool"
	}
}

// Variant resolves the row to its behaviour. Snapshots written without pool roles
// are recognised by the distinguished pool ids.
func (r Row) Variant() RowVariant {
	if r.Kind == RowKindClass {
		return VariantClass
	}
	switch r.Pool {
	case PoolUnassigned:
		return VariantUnassignedPool
	case PoolVacation:
		return VariantVacationPool
	case PoolRestDay:
		return VariantRestDayPool
	}
	switch r.ID {
	case UnassignedPoolID:
		return VariantUnassignedPool
	case VacationPoolID:
		return VariantVacationPool
	case RestDayPoolID:
		return VariantRestDayPool
	}
	return VariantGenericPool
}

// HoldsRecords reports whether placements in rows of this variant are stored as real
// assignments. Unassigned and vacation placements are synthesized at render time.
func (v RowVariant) HoldsRecords() bool {
	return v == VariantClass || v == VariantRestDayPool || v == VariantGenericPool
}

// VacationInterval is an inclusive date range
type VacationInterval struct {
	ID       string `json:"id" yaml:"id"`
	StartISO string `json:"startISO" yaml:"startISO"`
	EndISO   string `json:"endISO" yaml:"endISO"`
}

// Clinician represents a person who can be rostered
type Clinician struct {
	ID                  string             `json:"id" yaml:"id"`
	Name                string             `json:"name" yaml:"name"`
	QualifiedClassIDs   []string           `json:"qualifiedClassIds" yaml:"qualifiedClassIds"`
	Vacations           []VacationInterval `json:"vacations" yaml:"vacations"`
	WorkingHoursPerWeek *float64           `json:"workingHoursPerWeek,omitempty" yaml:"workingHoursPerWeek,omitempty"`
}

// Assignment places one clinician on one row for one date
type Assignment struct {
	ID          string `json:"id" yaml:"id"`
	RowID       string `json:"rowId" yaml:"rowId"`
	DateISO     string `json:"dateISO" yaml:"dateISO"`
	ClinicianID string `json:"clinicianId" yaml:"clinicianId"`
}

// Key returns the (row, date, clinician) triple identifying the placement.
func (a Assignment) Key() AssignmentKey {
	return AssignmentKey{RowID: a.RowID, DateISO: a.DateISO, ClinicianID: a.ClinicianID}
}

// AssignmentKey identifies one placement for violation references and highlighting.
type AssignmentKey struct {
	RowID       string `json:"rowId"`
	DateISO     string `json:"dateISO"`
	ClinicianID string `json:"clinicianId"`
}

// SolverSettings controls which schedule rules are active
type SolverSettings struct {
	OnCallRestEnabled         bool   `json:"onCallRestEnabled" yaml:"onCallRestEnabled"`
	OnCallRestClassID         string `json:"onCallRestClassId,omitempty" yaml:"onCallRestClassId,omitempty"`
	OnCallRestDaysBefore      int    `json:"onCallRestDaysBefore" yaml:"onCallRestDaysBefore"`
	OnCallRestDaysAfter       int    `json:"onCallRestDaysAfter" yaml:"onCallRestDaysAfter"`
	EnforceSameLocationPerDay bool   `json:"enforceSameLocationPerDay" yaml:"enforceSameLocationPerDay"`
}

// RuleViolation is a derived conflict between assignments. It is never persisted.
type RuleViolation struct {
	ID             string          `json:"id"`
	ClinicianID    string          `json:"clinicianId"`
	Summary        string          `json:"summary"`
	AssignmentKeys []AssignmentKey `json:"assignmentKeys"`
}

// Snapshot is the flat shape exchanged with persistence and the external solver
type Snapshot struct {
	Rows            []Row          `json:"rows" yaml:"rows"`
	Clinicians      []Clinician    `json:"clinicians" yaml:"clinicians"`
	Assignments     []Assignment   `json:"assignments" yaml:"assignments"`
	MinSlotsByRowID map[string]int `json:"minSlotsByRowId" yaml:"minSlotsByRowId"`
	SolverSettings  SolverSettings `json:"solverSettings" yaml:"solverSettings"`
	Holidays        []string       `json:"holidays,omitempty" yaml:"holidays,omitempty"`
}
