package database

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/arnavshah/roster-planner-go/internal/config"
)

// WorkspaceRecord represents the workspace table. It holds the single roster's
// scalar settings; the collections live in their own tables.
type WorkspaceRecord struct {
	ID              uint                  `gorm:"primaryKey" json:"id"`
	SolverSettings  SolverSettingsColumns `gorm:"embedded;embeddedPrefix:solver_" json:"solver_settings"`
	MinSlotsByRowID map[string]int        `gorm:"serializer:json" json:"min_slots_by_row_id"`
	Holidays        []string              `gorm:"serializer:json" json:"holidays"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

// SolverSettingsColumns is the column layout of the solver settings
type SolverSettingsColumns struct {
	OnCallRestEnabled         bool
	OnCallRestClassID         string
	OnCallRestDaysBefore      int
	OnCallRestDaysAfter       int
	EnforceSameLocationPerDay bool
}

// RowRecord represents the schedule_rows table
type RowRecord struct {
	ID            string `gorm:"primaryKey" json:"id"`
	Position      int    `gorm:"not null" json:"position"`
	Name          string `json:"name"`
	Kind          string `gorm:"not null" json:"kind"`
	Pool          string `json:"pool"`
	SectionID     string `json:"section_id"`
	LocationID    string `json:"location_id"`
	DayType       string `json:"day_type"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	EndDayOffset  int    `gorm:"default:0" json:"end_day_offset"`
	RequiredSlots int    `gorm:"default:0" json:"required_slots"`
}

// TableName overrides the default table name
func (RowRecord) TableName() string { return "schedule_rows" }

// ClinicianRecord represents the clinicians table
type ClinicianRecord struct {
	ID                  string   `gorm:"primaryKey" json:"id"`
	Position            int      `gorm:"not null" json:"position"`
	Name                string   `json:"name"`
	QualifiedClassIDs   []string `gorm:"serializer:json" json:"qualified_class_ids"`
	WorkingHoursPerWeek *float64 `json:"working_hours_per_week"`
}

// TableName overrides the default table name
func (ClinicianRecord) TableName() string { return "clinicians" }

// VacationRecord represents the vacations table
type VacationRecord struct {
	ID          string `gorm:"primaryKey" json:"id"`
	ClinicianID string `gorm:"index;not null" json:"clinician_id"`
	StartISO    string `gorm:"not null" json:"start_iso"`
	EndISO      string `gorm:"not null" json:"end_iso"`
}

// TableName overrides the default table name
func (VacationRecord) TableName() string { return "vacations" }

// AssignmentRecord represents the assignments table. The unique index mirrors the
// one-clinician-per-cell rule of the store.
type AssignmentRecord struct {
	ID          string `gorm:"primaryKey" json:"id"`
	RowID       string `gorm:"uniqueIndex:idx_cell_clinician;not null" json:"row_id"`
	DateISO     string `gorm:"uniqueIndex:idx_cell_clinician;index;not null" json:"date_iso"`
	ClinicianID string `gorm:"uniqueIndex:idx_cell_clinician;not null" json:"clinician_id"`
}

// TableName overrides the default table name
func (AssignmentRecord) TableName() string { return "assignments" }

// SolverRun represents the solver_runs table, one row per day
type SolverRun struct {
	ID                 uint   `gorm:"primaryKey" json:"id"`
	Date               string `gorm:"uniqueIndex;not null" json:"date"`
	RunCount           int    `gorm:"default:0" json:"run_count"`
	AssignmentsWritten int    `gorm:"default:0" json:"assignments_written"`
	NotesWritten       int    `gorm:"default:0" json:"notes_written"`
}

// Open connects to postgres when a URL is configured and to a sqlite file otherwise,
// then migrates the schema.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	gormCfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)}
	if cfg.URL != "" {
		gormCfg.PrepareStmt = false
		db, err = gorm.Open(postgres.New(postgres.Config{
			DSN:                  cfg.URL,
			PreferSimpleProtocol: true,
		}), gormCfg)
	} else {
		path := cfg.Path
		if path == "" {
			path = "roster.db"
		}
		db, err = gorm.Open(sqlite.Open(path), gormCfg)
	}
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := db.AutoMigrate(&WorkspaceRecord{}, &RowRecord{}, &ClinicianRecord{}, &VacationRecord{}, &AssignmentRecord{}, &SolverRun{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return db, nil
}
