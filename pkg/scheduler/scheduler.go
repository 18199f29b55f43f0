package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/arnavshah/roster-planner-go/pkg/dates"
	"github.com/arnavshah/roster-planner-go/pkg/models"
	"github.com/arnavshah/roster-planner-go/pkg/roster"
)

// ErrInvalidRange is returned for malformed or inverted date ranges
var ErrInvalidRange = errors.New("invalid date range")

// Request asks for assignments over an inclusive date range. OnlyRequired limits the
// run to open required seats; otherwise remaining clinicians are distributed as well.
type Request struct {
	From         string `json:"from"`
	To           string `json:"to"`
	OnlyRequired bool   `json:"onlyRequired"`
}

// Response carries proposed assignments and advisory notes
type Response struct {
	Assignments []models.Assignment `json:"assignments"`
	Notes       []string            `json:"notes"`
}

// Solver produces bulk assignments for a state. The result is merged by the caller
// with no-duplicate add semantics, so a stale response is harmless.
type Solver interface {
	Solve(ctx context.Context, s roster.State, req Request) (Response, error)
}

// Scheduler is the in-process greedy solver
type Scheduler struct{}

// NewScheduler creates a new scheduler instance
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// load tracks what a clinician already carries while the run progresses
type load struct {
	clinician models.Clinician
	hours     float64
	weekHours map[string]float64
	shifts    map[string][]dates.ShiftInterval
	rows      map[string]map[string]bool
	restDay   map[string]bool
	pooled    map[string]bool
}

func (l *load) busy(dateISO string) bool {
	return len(l.rows[dateISO]) > 0
}

func (l *load) place(row models.Row, dateISO string) {
	if l.rows[dateISO] == nil {
		l.rows[dateISO] = make(map[string]bool)
	}
	l.rows[dateISO][row.ID] = true
	if iv, ok := dates.BuildShiftInterval(row); ok {
		l.shifts[dateISO] = append(l.shifts[dateISO], iv)
		l.hours += iv.Hours()
		l.weekHours[dates.ISOWeek(dateISO)] += iv.Hours()
	}
}

// run is the working state of one Solve call
type run struct {
	state     roster.State
	holidays  dates.HolidaySet
	loads     []*load
	byID      map[string]*load
	headcount map[roster.Key]int
	out       []models.Assignment
	notes     []string
}

// Solve fills open required seats and, unless OnlyRequired is set, distributes clinicians
// who are still unplaced. A cancelled context stops the run; the partial response is
// returned together with the context error.
func (s *Scheduler) Solve(ctx context.Context, st roster.State, req Request) (Response, error) {
	to := req.To
	if to == "" {
		to = req.From
	}
	days := dates.Range(req.From, to)
	if len(days) == 0 {
		return Response{}, fmt.Errorf("%w: %q..%q", ErrInvalidRange, req.From, to)
	}

	r := newRun(st, days)
	err := r.fillRequired(ctx, days)
	if err == nil && !req.OnlyRequired {
		err = r.distribute(ctx, days)
	}
	if err != nil {
		r.notes = append(r.notes, "run stopped early: "+err.Error())
	}
	r.notes = append(r.notes, fmt.Sprintf("fairness score %.1f%%", r.fairness()))

	return Response{Assignments: r.out, Notes: r.notes}, err
}

func newRun(st roster.State, days []string) *run {
	r := &run{
		state:     st,
		holidays:  st.HolidaySet(),
		byID:      make(map[string]*load, len(st.Clinicians)),
		headcount: make(map[roster.Key]int),
	}
	for _, c := range st.Clinicians {
		l := &load{
			clinician: c,
			weekHours: make(map[string]float64),
			shifts:    make(map[string][]dates.ShiftInterval),
			rows:      make(map[string]map[string]bool),
			restDay:   make(map[string]bool),
			pooled:    make(map[string]bool),
		}
		r.loads = append(r.loads, l)
		r.byID[c.ID] = l
	}
	r.prefill(days)
	return r
}

// prefill records existing assignments over the whole ISO weeks the range touches so
// weekly hour caps see work outside the requested days.
func (r *run) prefill(days []string) {
	first, last := weekBounds(days[0], days[len(days)-1])
	for _, day := range dates.Range(first, last) {
		for _, row := range r.state.Rows {
			k := roster.Key{RowID: row.ID, DateISO: day}
			for _, a := range r.state.Assignments.At(k) {
				l, ok := r.byID[a.ClinicianID]
				if !ok || r.state.OnVacation(a.ClinicianID, day) {
					continue
				}
				switch row.Variant() {
				case models.VariantClass:
					l.place(row, day)
					r.headcount[k]++
				case models.VariantRestDayPool:
					l.restDay[day] = true
				case models.VariantGenericPool:
					l.pooled[day] = true
				}
			}
		}
	}
}

type slot struct {
	row     models.Row
	dateISO string
}

func (r *run) fillRequired(ctx context.Context, days []string) error {
	var slots []slot
	for _, day := range days {
		for _, row := range r.activeRows(day) {
			needed := r.state.RequiredSlots(row.ID) - r.headcount[roster.Key{RowID: row.ID, DateISO: day}]
			for i := 0; i < needed; i++ {
				slots = append(slots, slot{row: row, dateISO: day})
			}
		}
	}

	for _, sl := range slots {
		if err := ctx.Err(); err != nil {
			return err
		}

		var best *load
		var c conflictCounts
		for _, l := range r.loads {
			if !c.allows(r, l, sl.row, sl.dateISO) {
				continue
			}
			if best == nil || better(l, best, sl.dateISO) {
				best = l
			}
		}

		if best != nil {
			r.assign(best, sl.row, sl.dateISO)
			continue
		}
		r.notes = append(r.notes, fmt.Sprintf("%s %s: seat left open (%s)", sl.dateISO, rowLabel(sl.row), c.reasons()))
	}
	return nil
}

func (r *run) distribute(ctx context.Context, days []string) error {
	for _, day := range days {
		if err := ctx.Err(); err != nil {
			return err
		}
		rows := r.activeRows(day)
		left := 0
		for _, l := range r.loads {
			if l.busy(day) || l.restDay[day] || l.pooled[day] || r.state.OnVacation(l.clinician.ID, day) {
				continue
			}
			var target *models.Row
			for i := range rows {
				var c conflictCounts
				if !c.allows(r, l, rows[i], day) {
					continue
				}
				if target == nil || r.headcount[roster.Key{RowID: rows[i].ID, DateISO: day}] < r.headcount[roster.Key{RowID: target.ID, DateISO: day}] {
					target = &rows[i]
				}
			}
			if target == nil {
				left++
				continue
			}
			r.assign(l, *target, day)
		}
		if left > 0 {
			r.notes = append(r.notes, fmt.Sprintf("%s: %d clinicians left in distribution", day, left))
		}
	}
	return nil
}

func (r *run) activeRows(dateISO string) []models.Row {
	var out []models.Row
	for _, row := range r.state.Rows {
		if row.Variant() == models.VariantClass && dates.RowActiveOn(row, dateISO, r.holidays) {
			out = append(out, row)
		}
	}
	return out
}

func (r *run) assign(l *load, row models.Row, dateISO string) {
	l.place(row, dateISO)
	r.headcount[roster.Key{RowID: row.ID, DateISO: dateISO}]++
	r.out = append(r.out, models.Assignment{
		ID:          uuid.NewString(),
		RowID:       row.ID,
		DateISO:     dateISO,
		ClinicianID: l.clinician.ID,
	})
}

// better prefers clinicians not yet working that day, then the fewest hours
func better(a, b *load, dateISO string) bool {
	if a.busy(dateISO) != b.busy(dateISO) {
		return !a.busy(dateISO)
	}
	return a.hours < b.hours
}

// conflictCounts tracks why candidates were turned down for a seat
type conflictCounts struct {
	unqualified int
	vacation    int
	restDay     int
	overlap     int
	maxHours    int
}

// allows checks if a clinician can take the row on the date and records why not
func (c *conflictCounts) allows(r *run, l *load, row models.Row, dateISO string) bool {
	if l.rows[dateISO][row.ID] {
		return false
	}
	if !Qualified(l.clinician, row) {
		c.unqualified++
		return false
	}
	if r.state.OnVacation(l.clinician.ID, dateISO) {
		c.vacation++
		return false
	}
	if l.restDay[dateISO] {
		c.restDay++
		return false
	}
	iv, timed := dates.BuildShiftInterval(row)
	if timed {
		for _, other := range l.shifts[dateISO] {
			if dates.IntervalsOverlap(iv, other) {
				c.overlap++
				return false
			}
		}
		if limit := l.clinician.WorkingHoursPerWeek; limit != nil && l.weekHours[dates.ISOWeek(dateISO)]+iv.Hours() > *limit {
			c.maxHours++
			return false
		}
	}
	return true
}

func (c conflictCounts) reasons() string {
	var reasons []string
	if c.maxHours > 0 {
		reasons = append(reasons, fmt.Sprintf("%d clinicians were at weekly hours", c.maxHours))
	}
	if c.overlap > 0 {
		reasons = append(reasons, fmt.Sprintf("%d clinicians had overlapping shifts", c.overlap))
	}
	if c.vacation > 0 {
		reasons = append(reasons, fmt.Sprintf("%d clinicians were on vacation", c.vacation))
	}
	if c.restDay > 0 {
		reasons = append(reasons, fmt.Sprintf("%d clinicians were on a rest day", c.restDay))
	}
	if c.unqualified > 0 {
		reasons = append(reasons, fmt.Sprintf("%d clinicians were not qualified", c.unqualified))
	}
	if len(reasons) == 0 {
		return "no free clinicians"
	}
	return strings.Join(reasons, "; ")
}

// Qualified reports whether the clinician may work the row. An empty qualification
// list means qualified for every class.
func Qualified(c models.Clinician, row models.Row) bool {
	if len(c.QualifiedClassIDs) == 0 {
		return true
	}
	for _, id := range c.QualifiedClassIDs {
		if id == row.SectionID || id == row.ID {
			return true
		}
	}
	return false
}

// fairness returns a percentage (0-100) representing how evenly hours are
// distributed. 100% is perfectly fair (standard deviation = 0).
func (r *run) fairness() float64 {
	hours := make([]float64, 0, len(r.loads))
	for _, l := range r.loads {
		hours = append(hours, l.hours)
	}
	return CalculateFairnessScore(hours)
}

// CalculateFairnessScore converts the spread of hours into a 0-100 score relative
// to the mean. 0% means the standard deviation is at least the mean.
func CalculateFairnessScore(hours []float64) float64 {
	if len(hours) == 0 {
		return 100.0
	}
	var sum float64
	for _, h := range hours {
		sum += h
	}
	if sum == 0 {
		return 100.0
	}
	mean := sum / float64(len(hours))

	var varianceSum float64
	for _, h := range hours {
		diff := h - mean
		varianceSum += diff * diff
	}
	stdDev := math.Sqrt(varianceSum / float64(len(hours)))

	score := (1.0 - (stdDev / mean)) * 100.0
	if score < 0 {
		return 0.0
	}
	return score
}

func rowLabel(row models.Row) string {
	if row.Name != "" {
		return row.Name
	}
	return row.ID
}

// weekBounds widens a range to the Monday and Sunday of its first and last ISO weeks
func weekBounds(from, to string) (string, string) {
	back := 0
	if wd, ok := dates.Weekday(from); ok {
		back = (int(wd) + 6) % 7
	}
	forward := 0
	if wd, ok := dates.Weekday(to); ok {
		forward = (7 - int(wd)) % 7
	}
	return dates.ShiftDateISO(from, -back), dates.ShiftDateISO(to, forward)
}

// Timeout wraps a solver so that every run is bounded
type Timeout struct {
	Solver Solver
	Limit  time.Duration
}

// Solve runs the wrapped solver under a deadline
func (t Timeout) Solve(ctx context.Context, st roster.State, req Request) (Response, error) {
	if t.Limit <= 0 {
		return t.Solver.Solve(ctx, st, req)
	}
	ctx, cancel := context.WithTimeout(ctx, t.Limit)
	defer cancel()
	return t.Solver.Solve(ctx, st, req)
}
