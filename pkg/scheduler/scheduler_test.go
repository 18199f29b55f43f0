package scheduler

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/arnavshah/roster-planner-go/pkg/models"
	"github.com/arnavshah/roster-planner-go/pkg/roster"
)

func hours(h float64) *float64 { return &h }

func newState(rows []models.Row, clinicians []models.Clinician, assignments ...models.Assignment) roster.State {
	return roster.FromSnapshot(models.Snapshot{Rows: rows, Clinicians: clinicians, Assignments: assignments})
}

func ward(id, start, end string, required int) models.Row {
	return models.Row{ID: id, Name: id, Kind: models.RowKindClass, SectionID: "ward", StartTime: start, EndTime: end, RequiredSlots: required}
}

func solve(t *testing.T, st roster.State, req Request) Response {
	t.Helper()
	resp, err := NewScheduler().Solve(context.Background(), st, req)
	if err != nil {
		t.Fatalf("Solve returned %v", err)
	}
	return resp
}

func hasNote(resp Response, fragment string) bool {
	for _, n := range resp.Notes {
		if strings.Contains(n, fragment) {
			return true
		}
	}
	return false
}

// 2025-03-10 is a Monday.

func TestSolve_FillsRequiredSeat(t *testing.T) {
	st := newState(
		[]models.Row{ward("r-am", "08:00", "16:00", 1)},
		[]models.Clinician{{ID: "c1", Name: "Ada"}, {ID: "c2", Name: "Grace"}},
	)

	resp := solve(t, st, Request{From: "2025-03-10", OnlyRequired: true})

	if len(resp.Assignments) != 1 {
		t.Fatalf("Expected 1 assignment, got %d", len(resp.Assignments))
	}
	a := resp.Assignments[0]
	if a.RowID != "r-am" || a.DateISO != "2025-03-10" || a.ClinicianID != "c1" {
		t.Errorf("Unexpected assignment %+v", a)
	}
	if !hasNote(resp, "fairness score") {
		t.Errorf("Expected a fairness note, got %v", resp.Notes)
	}
}

func TestSolve_ExistingAssignmentsCountTowardsSeats(t *testing.T) {
	st := newState(
		[]models.Row{ward("r-am", "08:00", "16:00", 1)},
		[]models.Clinician{{ID: "c1"}, {ID: "c2"}},
		models.Assignment{ID: "a1", RowID: "r-am", DateISO: "2025-03-10", ClinicianID: "c2"},
	)

	resp := solve(t, st, Request{From: "2025-03-10", OnlyRequired: true})

	if len(resp.Assignments) != 0 {
		t.Errorf("Expected no new assignments, got %d", len(resp.Assignments))
	}
}

func TestSolve_MinSlotsOverride(t *testing.T) {
	st := roster.FromSnapshot(models.Snapshot{
		Rows:            []models.Row{ward("r-am", "08:00", "16:00", 1)},
		Clinicians:      []models.Clinician{{ID: "c1"}, {ID: "c2"}, {ID: "c3"}},
		MinSlotsByRowID: map[string]int{"r-am": 3},
	})

	resp := solve(t, st, Request{From: "2025-03-10", OnlyRequired: true})

	if len(resp.Assignments) != 3 {
		t.Errorf("Expected 3 assignments, got %d", len(resp.Assignments))
	}
}

func TestSolve_Overlap(t *testing.T) {
	st := newState(
		[]models.Row{ward("r-a", "08:00", "16:00", 1), ward("r-b", "12:00", "20:00", 1)},
		[]models.Clinician{{ID: "c1"}},
	)

	resp := solve(t, st, Request{From: "2025-03-10", OnlyRequired: true})

	if len(resp.Assignments) != 1 {
		t.Errorf("Expected only 1 seat to be filled due to overlap, got %d", len(resp.Assignments))
	}
	if !hasNote(resp, "1 clinicians had overlapping shifts") {
		t.Errorf("Expected an overlap note, got %v", resp.Notes)
	}
}

func TestSolve_SkipsVacationRestDayAndUnqualified(t *testing.T) {
	st := newState(
		[]models.Row{ward("r-am", "08:00", "16:00", 1)},
		[]models.Clinician{
			{ID: "c1", Vacations: []models.VacationInterval{{ID: "v", StartISO: "2025-03-10", EndISO: "2025-03-10"}}},
			{ID: "c2"},
			{ID: "c3", QualifiedClassIDs: []string{"icu"}},
		},
		models.Assignment{ID: "rest", RowID: models.RestDayPoolID, DateISO: "2025-03-10", ClinicianID: "c2"},
	)

	resp := solve(t, st, Request{From: "2025-03-10", OnlyRequired: true})

	if len(resp.Assignments) != 0 {
		t.Fatalf("Expected no assignments, got %+v", resp.Assignments)
	}
	for _, fragment := range []string{"on vacation", "on a rest day", "not qualified"} {
		if !hasNote(resp, fragment) {
			t.Errorf("Expected note containing %q, got %v", fragment, resp.Notes)
		}
	}
}

func TestSolve_WeeklyHoursCap(t *testing.T) {
	st := newState(
		[]models.Row{ward("r-am", "08:00", "16:00", 1)},
		[]models.Clinician{{ID: "c1", WorkingHoursPerWeek: hours(8)}},
	)

	resp := solve(t, st, Request{From: "2025-03-10", To: "2025-03-11", OnlyRequired: true})

	if len(resp.Assignments) != 1 {
		t.Errorf("Expected 1 assignment under the weekly cap, got %d", len(resp.Assignments))
	}
	if !hasNote(resp, "weekly hours") {
		t.Errorf("Expected a weekly hours note, got %v", resp.Notes)
	}
}

func TestSolve_BalancesHours(t *testing.T) {
	st := newState(
		[]models.Row{ward("r-am", "08:00", "16:00", 1)},
		[]models.Clinician{{ID: "c1"}, {ID: "c2"}},
	)

	resp := solve(t, st, Request{From: "2025-03-10", To: "2025-03-11", OnlyRequired: true})

	seen := map[string]int{}
	for _, a := range resp.Assignments {
		seen[a.ClinicianID]++
	}
	if seen["c1"] != 1 || seen["c2"] != 1 {
		t.Errorf("Expected one shift each, got %v", seen)
	}
}

func TestSolve_RespectsDayType(t *testing.T) {
	weekend := ward("r-weekend", "08:00", "16:00", 1)
	weekend.DayType = models.DayTypeWeekend
	st := newState([]models.Row{weekend}, []models.Clinician{{ID: "c1"}})

	resp := solve(t, st, Request{From: "2025-03-10", To: "2025-03-15", OnlyRequired: true})

	if len(resp.Assignments) != 1 || resp.Assignments[0].DateISO != "2025-03-15" {
		t.Errorf("Expected a single Saturday assignment, got %+v", resp.Assignments)
	}
}

func TestSolve_DistributesRemainingClinicians(t *testing.T) {
	st := newState(
		[]models.Row{ward("r-am", "08:00", "16:00", 1), ward("r-pm", "16:00", "24:00", 0)},
		[]models.Clinician{{ID: "c1"}, {ID: "c2"}, {ID: "c3"}},
	)

	resp := solve(t, st, Request{From: "2025-03-10"})

	if len(resp.Assignments) != 3 {
		t.Fatalf("Expected every clinician placed, got %d", len(resp.Assignments))
	}
	perRow := map[string]int{}
	for _, a := range resp.Assignments {
		perRow[a.RowID]++
	}
	if perRow["r-am"] != 2 || perRow["r-pm"] != 1 {
		t.Errorf("Expected r-am=2 r-pm=1, got %v", perRow)
	}
}

func TestSolve_CancelledContext(t *testing.T) {
	st := newState(
		[]models.Row{ward("r-am", "08:00", "16:00", 1)},
		[]models.Clinician{{ID: "c1"}},
	)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp, err := NewScheduler().Solve(ctx, st, Request{From: "2025-03-10"})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if len(resp.Assignments) != 0 {
		t.Errorf("Expected no assignments after cancellation, got %d", len(resp.Assignments))
	}
}

func TestSolve_InvalidRange(t *testing.T) {
	_, err := NewScheduler().Solve(context.Background(), roster.State{}, Request{From: "2025-03-12", To: "2025-03-10"})

	if !errors.Is(err, ErrInvalidRange) {
		t.Errorf("Expected ErrInvalidRange, got %v", err)
	}
}

func TestSolve_ResultMergesWithoutDuplicates(t *testing.T) {
	st := newState(
		[]models.Row{ward("r-am", "08:00", "16:00", 2)},
		[]models.Clinician{{ID: "c1"}, {ID: "c2"}},
	)
	resp := solve(t, st, Request{From: "2025-03-10", OnlyRequired: true})

	next, written := st.ApplyBulk(resp.Assignments)
	again, rewritten := next.ApplyBulk(resp.Assignments)

	if written != 2 || rewritten != 0 {
		t.Errorf("Expected 2 then 0 writes, got %d then %d", written, rewritten)
	}
	if again.Assignments.Len() != 2 {
		t.Errorf("Expected 2 stored assignments, got %d", again.Assignments.Len())
	}
}

func TestCalculateFairnessScore(t *testing.T) {
	cases := []struct {
		name  string
		hours []float64
		want  float64
	}{
		{"empty", nil, 100},
		{"idle", []float64{0, 0}, 100},
		{"even", []float64{8, 8}, 100},
		{"lopsided", []float64{0, 16}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CalculateFairnessScore(tc.hours); got != tc.want {
				t.Errorf("Expected %v, got %v", tc.want, got)
			}
		})
	}
}
