package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/arnavshah/roster-planner-go/pkg/database"
	"github.com/arnavshah/roster-planner-go/pkg/models"
	"github.com/arnavshah/roster-planner-go/pkg/roster"
	"github.com/arnavshah/roster-planner-go/pkg/scheduler"
)

type mockStore struct {
	mu      sync.Mutex
	saved   []models.Snapshot
	runs    map[string]*database.SolverRun
	saveErr error
}

func newMockStore() *mockStore {
	return &mockStore{runs: make(map[string]*database.SolverRun)}
}

func (m *mockStore) Save(_ context.Context, snap models.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, snap)
	return nil
}

func (m *mockStore) RecordRun(_ context.Context, date string, written, notes int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[date]
	if !ok {
		r = &database.SolverRun{Date: date}
		m.runs[date] = r
	}
	r.RunCount++
	r.AssignmentsWritten += written
	r.NotesWritten += notes
	return nil
}

func (m *mockStore) ListRuns(_ context.Context, _ int) ([]database.SolverRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []database.SolverRun
	for _, r := range m.runs {
		out = append(out, *r)
	}
	return out, nil
}

func fixtureSnapshot() models.Snapshot {
	return models.Snapshot{
		Rows: []models.Row{
			{ID: "r-am", Name: "Ward AM", Kind: models.RowKindClass, SectionID: "ward", StartTime: "08:00", EndTime: "16:00", RequiredSlots: 1},
			{ID: "r-late", Name: "Ward late", Kind: models.RowKindClass, SectionID: "ward", StartTime: "08:00", EndTime: "16:30"},
		},
		Clinicians: []models.Clinician{{ID: "c1", Name: "Ada"}, {ID: "c2", Name: "Grace"}},
	}
}

type testServer struct {
	router *gin.Engine
	ws     *Workspace
	store  *mockStore
	h      *Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := newMockStore()
	ws := NewWorkspace(roster.FromSnapshot(fixtureSnapshot()), store, zap.NewNop())
	h := NewHandler(ws, zap.NewNop())
	h.Now = func() time.Time { return time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC) }
	return &testServer{router: NewRouter(h, 1<<20), ws: ws, store: store, h: h}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestRoot(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
}

func TestAddAssignment(t *testing.T) {
	ts := newTestServer(t)
	body := gin.H{"rowId": "r-am", "date": "2025-03-10", "clinicianId": "c1"}

	w := ts.do(t, http.MethodPost, "/api/assignments", body)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[mutationResponse](t, w).Changed)
	assert.Len(t, ts.store.saved, 1)

	// a duplicate add is a no-op, not an error
	w = ts.do(t, http.MethodPost, "/api/assignments", body)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[mutationResponse](t, w).Changed)
	assert.Len(t, ts.store.saved, 1)
}

func TestAddAssignment_BadInput(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/assignments", gin.H{"rowId": "r-am", "date": "2025-13-40", "clinicianId": "c1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPost, "/api/assignments", gin.H{"rowId": "r-am"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAddAssignment_PersistenceFailureKeepsState(t *testing.T) {
	ts := newTestServer(t)
	ts.store.saveErr = errors.New("disk full")

	w := ts.do(t, http.MethodPost, "/api/assignments", gin.H{"rowId": "r-am", "date": "2025-03-10", "clinicianId": "c1"})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 0, ts.ws.Current().Assignments.Len())
}

func TestRemoveAssignment(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/api/assignments", gin.H{"rowId": "r-am", "date": "2025-03-10", "clinicianId": "c1"})
	id := ts.ws.Current().Assignments.Flatten()[0].ID

	w := ts.do(t, http.MethodDelete, "/api/assignments/"+id+"?rowId=r-am&date=2025-03-10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[mutationResponse](t, w).Changed)
	assert.Equal(t, 0, ts.ws.Current().Assignments.Len())

	w = ts.do(t, http.MethodDelete, "/api/assignments/"+id+"?rowId=nope&date=2025-03-10", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMoveToVacationAndBack(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/api/assignments", gin.H{"rowId": "r-am", "date": "2025-03-10", "clinicianId": "c1"})

	w := ts.do(t, http.MethodPost, "/api/moves", gin.H{
		"date": "2025-03-10", "fromRowId": "r-am", "toRowId": models.VacationPoolID, "clinicianId": "c1",
	})
	require.Equal(t, http.StatusOK, w.Code)
	s := ts.ws.Current()
	assert.True(t, s.OnVacation("c1", "2025-03-10"))
	assert.Equal(t, 0, s.Assignments.Len())

	w = ts.do(t, http.MethodDelete, "/api/vacations/days", gin.H{"clinicianId": "c1", "date": "2025-03-10"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, ts.ws.Current().OnVacation("c1", "2025-03-10"))

	w = ts.do(t, http.MethodPost, "/api/vacations/days", gin.H{"clinicianId": "ghost", "date": "2025-03-10"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetView(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/api/assignments", gin.H{"rowId": "r-am", "date": "2025-03-10", "clinicianId": "c1"})

	w := ts.do(t, http.MethodGet, "/api/view?from=2025-03-10", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[struct {
		Cells map[string][]models.Assignment `json:"cells"`
	}](t, w)
	assert.Len(t, resp.Cells["r-am__2025-03-10"], 1)
	require.Len(t, resp.Cells[models.UnassignedPoolID+"__2025-03-10"], 1)
	assert.Equal(t, "c2", resp.Cells[models.UnassignedPoolID+"__2025-03-10"][0].ClinicianID)

	w = ts.do(t, http.MethodGet, "/api/view?from=2025-03-12&to=2025-03-10", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetViolations(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/api/assignments", gin.H{"rowId": "r-am", "date": "2025-03-10", "clinicianId": "c1"})
	ts.do(t, http.MethodPost, "/api/assignments", gin.H{"rowId": "r-late", "date": "2025-03-10", "clinicianId": "c1"})

	w := ts.do(t, http.MethodGet, "/api/violations?from=2025-03-10&to=2025-03-16", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[struct {
		Violations []models.RuleViolation `json:"violations"`
		Keys       []models.AssignmentKey `json:"keys"`
	}](t, w)
	require.Len(t, resp.Violations, 1)
	assert.Equal(t, "overlap-c1-2025-03-10", resp.Violations[0].ID)
	assert.Len(t, resp.Keys, 2)
}

func TestPutState(t *testing.T) {
	ts := newTestServer(t)
	snap := fixtureSnapshot()
	snap.Assignments = []models.Assignment{{ID: "x", RowID: "missing", DateISO: "2025-03-10", ClinicianID: "c1"}}

	w := ts.do(t, http.MethodPut, "/api/state?strict=true", snap)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPut, "/api/state", snap)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[struct {
		Warnings []string `json:"warnings"`
	}](t, w)
	assert.Len(t, resp.Warnings, 1)

	w = ts.do(t, http.MethodGet, "/api/state", nil)
	require.Equal(t, http.StatusOK, w.Code)
	state := decode[stateResponse](t, w)
	assert.Len(t, state.Snapshot.Clinicians, 2)
}

func TestPutState_RevisionKeepsIncreasing(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodPost, "/api/assignments", gin.H{"rowId": "r-am", "date": "2025-03-10", "clinicianId": "c1"})
	require.Equal(t, http.StatusOK, w.Code)
	before := ts.ws.Current().Revision()

	w = ts.do(t, http.MethodPut, "/api/state", fixtureSnapshot())
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[struct {
		Revision uint64 `json:"revision"`
	}](t, w)

	assert.Greater(t, resp.Revision, before)
	assert.Equal(t, resp.Revision, ts.ws.Current().Revision())
}

func TestValidateSnapshot(t *testing.T) {
	ts := newTestServer(t)
	snap := fixtureSnapshot()
	snap.Clinicians = append(snap.Clinicians, models.Clinician{ID: "c1"})

	w := ts.do(t, http.MethodPost, "/api/validate", snap)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[struct {
		Valid    bool     `json:"valid"`
		Problems []string `json:"problems"`
	}](t, w)
	assert.False(t, resp.Valid)
	assert.Contains(t, resp.Problems, "duplicate clinician ID: c1")
}

func TestDeleteRowAndClinician(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/api/assignments", gin.H{"rowId": "r-am", "date": "2025-03-10", "clinicianId": "c1"})

	w := ts.do(t, http.MethodDelete, "/api/rows/r-am", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, ts.ws.Current().Assignments.Len())

	w = ts.do(t, http.MethodDelete, "/api/rows/"+models.VacationPoolID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[mutationResponse](t, w).Changed)

	w = ts.do(t, http.MethodDelete, "/api/clinicians/c2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, ts.ws.Current().Clinicians, 1)

	w = ts.do(t, http.MethodDelete, "/api/clinicians/c2", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSolveAndRuns(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/solve", scheduler.Request{From: "2025-03-10", To: "2025-03-11", OnlyRequired: true})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[solveResponse](t, w)
	assert.Equal(t, 2, resp.Proposed)
	assert.Equal(t, 2, resp.Written)
	assert.Equal(t, 2, ts.ws.Current().Assignments.Len())

	w = ts.do(t, http.MethodGet, "/api/solver/runs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	runs := decode[struct {
		History []database.SolverRun `json:"history"`
		Totals  map[string]int64     `json:"totals"`
	}](t, w)
	require.Len(t, runs.History, 1)
	assert.Equal(t, "2025-03-10", runs.History[0].Date)
	assert.Equal(t, int64(2), runs.Totals["assignments"])
}

type blockingSolver struct {
	started chan struct{}
	release chan struct{}
}

func (b blockingSolver) Solve(ctx context.Context, _ roster.State, _ scheduler.Request) (scheduler.Response, error) {
	close(b.started)
	<-b.release
	return scheduler.Response{}, nil
}

func TestSolve_OneRunAtATime(t *testing.T) {
	ts := newTestServer(t)
	solver := blockingSolver{started: make(chan struct{}), release: make(chan struct{})}
	ts.h.Solver = solver

	done := make(chan int)
	go func() {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/solve", bytes.NewBufferString(`{"from":"2025-03-10"}`))
		req.Header.Set("Content-Type", "application/json")
		ts.router.ServeHTTP(w, req)
		done <- w.Code
	}()
	<-solver.started

	w := ts.do(t, http.MethodPost, "/api/solve", scheduler.Request{From: "2025-03-10"})
	assert.Equal(t, http.StatusConflict, w.Code)

	close(solver.release)
	assert.Equal(t, http.StatusOK, <-done)
}

func TestSolve_InvalidRange(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/solve", scheduler.Request{From: "2025-03-12", To: "2025-03-10"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExports(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/api/assignments", gin.H{"rowId": "r-am", "date": "2025-03-10", "clinicianId": "c1"})

	w := ts.do(t, http.MethodGet, "/api/export/csv?from=2025-03-10&to=2025-03-16", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "2025-03-10,r-am,Ward AM,c1,Ada")

	w = ts.do(t, http.MethodGet, "/api/export/xlsx?from=2025-03-10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Greater(t, w.Body.Len(), 0)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "roster_2025-03-10_2025-03-10.xlsx")
}
