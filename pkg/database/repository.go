package database

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/arnavshah/roster-planner-go/pkg/models"
)

const (
	workspaceID = 1
	batchSize   = 500
)

// Repository persists roster snapshots and solver statistics
type Repository struct {
	db *gorm.DB
}

// NewRepository wraps an open database
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Save replaces the stored snapshot in one transaction
func (r *Repository) Save(ctx context.Context, snap models.Snapshot) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		wipe := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		for _, table := range []any{&AssignmentRecord{}, &VacationRecord{}, &ClinicianRecord{}, &RowRecord{}} {
			if err := wipe.Delete(table).Error; err != nil {
				return err
			}
		}

		ws := WorkspaceRecord{
			ID: workspaceID,
			SolverSettings: SolverSettingsColumns{
				OnCallRestEnabled:         snap.SolverSettings.OnCallRestEnabled,
				OnCallRestClassID:         snap.SolverSettings.OnCallRestClassID,
				OnCallRestDaysBefore:      snap.SolverSettings.OnCallRestDaysBefore,
				OnCallRestDaysAfter:       snap.SolverSettings.OnCallRestDaysAfter,
				EnforceSameLocationPerDay: snap.SolverSettings.EnforceSameLocationPerDay,
			},
			MinSlotsByRowID: snap.MinSlotsByRowID,
			Holidays:        snap.Holidays,
		}
		if err := tx.Save(&ws).Error; err != nil {
			return err
		}

		rows := make([]RowRecord, 0, len(snap.Rows))
		for i, row := range snap.Rows {
			rows = append(rows, rowRecord(i, row))
		}
		var clinicians []ClinicianRecord
		var vacations []VacationRecord
		for i, c := range snap.Clinicians {
			clinicians = append(clinicians, ClinicianRecord{
				ID:                  c.ID,
				Position:            i,
				Name:                c.Name,
				QualifiedClassIDs:   c.QualifiedClassIDs,
				WorkingHoursPerWeek: c.WorkingHoursPerWeek,
			})
			for _, iv := range c.Vacations {
				vacations = append(vacations, VacationRecord{ID: iv.ID, ClinicianID: c.ID, StartISO: iv.StartISO, EndISO: iv.EndISO})
			}
		}
		assignments := make([]AssignmentRecord, 0, len(snap.Assignments))
		for _, a := range snap.Assignments {
			assignments = append(assignments, AssignmentRecord(a))
		}

		if err := createAll(tx, rows); err != nil {
			return err
		}
		if err := createAll(tx, clinicians); err != nil {
			return err
		}
		if err := createAll(tx, vacations); err != nil {
			return err
		}
		return createAll(tx, assignments)
	})
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Load reads the stored snapshot. The boolean is false when nothing was saved yet.
func (r *Repository) Load(ctx context.Context) (models.Snapshot, bool, error) {
	db := r.db.WithContext(ctx)

	var ws WorkspaceRecord
	if err := db.First(&ws, workspaceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Snapshot{}, false, nil
		}
		return models.Snapshot{}, false, fmt.Errorf("load workspace: %w", err)
	}

	var rows []RowRecord
	if err := db.Order("position").Find(&rows).Error; err != nil {
		return models.Snapshot{}, false, fmt.Errorf("load rows: %w", err)
	}
	var clinicians []ClinicianRecord
	if err := db.Order("position").Find(&clinicians).Error; err != nil {
		return models.Snapshot{}, false, fmt.Errorf("load clinicians: %w", err)
	}
	var vacations []VacationRecord
	if err := db.Order("clinician_id, start_iso").Find(&vacations).Error; err != nil {
		return models.Snapshot{}, false, fmt.Errorf("load vacations: %w", err)
	}
	var assignments []AssignmentRecord
	if err := db.Order("date_iso, row_id, clinician_id").Find(&assignments).Error; err != nil {
		return models.Snapshot{}, false, fmt.Errorf("load assignments: %w", err)
	}

	byClinician := make(map[string][]models.VacationInterval)
	for _, v := range vacations {
		byClinician[v.ClinicianID] = append(byClinician[v.ClinicianID], models.VacationInterval{ID: v.ID, StartISO: v.StartISO, EndISO: v.EndISO})
	}

	snap := models.Snapshot{
		SolverSettings: models.SolverSettings{
			OnCallRestEnabled:         ws.SolverSettings.OnCallRestEnabled,
			OnCallRestClassID:         ws.SolverSettings.OnCallRestClassID,
			OnCallRestDaysBefore:      ws.SolverSettings.OnCallRestDaysBefore,
			OnCallRestDaysAfter:       ws.SolverSettings.OnCallRestDaysAfter,
			EnforceSameLocationPerDay: ws.SolverSettings.EnforceSameLocationPerDay,
		},
		MinSlotsByRowID: ws.MinSlotsByRowID,
		Holidays:        ws.Holidays,
	}
	for _, row := range rows {
		snap.Rows = append(snap.Rows, row.model())
	}
	for _, c := range clinicians {
		snap.Clinicians = append(snap.Clinicians, models.Clinician{
			ID:                  c.ID,
			Name:                c.Name,
			QualifiedClassIDs:   c.QualifiedClassIDs,
			Vacations:           byClinician[c.ID],
			WorkingHoursPerWeek: c.WorkingHoursPerWeek,
		})
	}
	for _, a := range assignments {
		snap.Assignments = append(snap.Assignments, models.Assignment(a))
	}
	return snap, true, nil
}

// RecordRun adds one solver run to today's statistics using an upsert
func (r *Repository) RecordRun(ctx context.Context, date string, written, notes int) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"run_count":           gorm.Expr("run_count + ?", 1),
			"assignments_written": gorm.Expr("assignments_written + ?", written),
			"notes_written":       gorm.Expr("notes_written + ?", notes),
		}),
	}).Create(&SolverRun{
		Date:               date,
		RunCount:           1,
		AssignmentsWritten: written,
		NotesWritten:       notes,
	}).Error
	if err != nil {
		return fmt.Errorf("record solver run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent days of solver statistics, newest first
func (r *Repository) ListRuns(ctx context.Context, limit int) ([]SolverRun, error) {
	var runs []SolverRun
	q := r.db.WithContext(ctx).Order("date desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("list solver runs: %w", err)
	}
	return runs, nil
}

func createAll[T any](tx *gorm.DB, records []T) error {
	if len(records) == 0 {
		return nil
	}
	return tx.CreateInBatches(records, batchSize).Error
}

func rowRecord(position int, row models.Row) RowRecord {
	return RowRecord{
		ID:            row.ID,
		Position:      position,
		Name:          row.Name,
		Kind:          string(row.Kind),
		Pool:          string(row.Pool),
		SectionID:     row.SectionID,
		LocationID:    row.LocationID,
		DayType:       string(row.DayType),
		StartTime:     row.StartTime,
		EndTime:       row.EndTime,
		EndDayOffset:  row.EndDayOffset,
		RequiredSlots: row.RequiredSlots,
	}
}

func (r RowRecord) model() models.Row {
	return models.Row{
		ID:            r.ID,
		Name:          r.Name,
		Kind:          models.RowKind(r.Kind),
		Pool:          models.PoolRole(r.Pool),
		SectionID:     r.SectionID,
		LocationID:    r.LocationID,
		DayType:       models.DayType(r.DayType),
		StartTime:     r.StartTime,
		EndTime:       r.EndTime,
		EndDayOffset:  r.EndDayOffset,
		RequiredSlots: r.RequiredSlots,
	}
}
