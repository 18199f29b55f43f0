package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arnavshah/roster-planner-go/pkg/dates"
	"github.com/arnavshah/roster-planner-go/pkg/export"
	"github.com/arnavshah/roster-planner-go/pkg/models"
	"github.com/arnavshah/roster-planner-go/pkg/roster"
	"github.com/arnavshah/roster-planner-go/pkg/rules"
	"github.com/arnavshah/roster-planner-go/pkg/scheduler"
	"github.com/arnavshah/roster-planner-go/pkg/view"
)

// Handler contains dependencies for the route handlers
type Handler struct {
	Workspace      *Workspace
	Solver         scheduler.Solver
	Log            *zap.Logger
	MaxRunsHistory int
	Now            func() time.Time
}

// NewHandler wires a handler with the in-process solver
func NewHandler(ws *Workspace, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		Workspace:      ws,
		Solver:         scheduler.NewScheduler(),
		Log:            log,
		MaxRunsHistory: 30,
		Now:            time.Now,
	}
}

type mutationResponse struct {
	Changed  bool   `json:"changed"`
	Revision uint64 `json:"revision"`
}

type stateResponse struct {
	Revision uint64          `json:"revision"`
	Snapshot models.Snapshot `json:"snapshot"`
}

// GetState returns the current snapshot
func (h *Handler) GetState(c *gin.Context) {
	s := h.Workspace.Current()
	c.JSON(http.StatusOK, stateResponse{Revision: s.Revision(), Snapshot: s.Snapshot()})
}

// PutState replaces the roster with an inbound snapshot. Problems found in the snapshot
// are returned as warnings; with ?strict=true they reject the load.
func (h *Handler) PutState(c *gin.Context) {
	var snap models.Snapshot
	if err := c.ShouldBindJSON(&snap); err != nil {
		respondError(c, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err))
		return
	}
	problems := roster.ValidateSnapshot(snap)
	if len(problems) > 0 && c.Query("strict") == "true" {
		c.JSON(http.StatusBadRequest, gin.H{"error": ErrInvalidSnapshot.Error(), "problems": problems})
		return
	}

	s, err := h.Workspace.Replace(c.Request.Context(), roster.FromSnapshot(snap))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"revision": s.Revision(), "warnings": problems})
}

type addRequest struct {
	RowID       string `json:"rowId" binding:"required"`
	Date        string `json:"date" binding:"required"`
	ClinicianID string `json:"clinicianId" binding:"required"`
}

// AddAssignment places a clinician on a class row
func (h *Handler) AddAssignment(c *gin.Context) {
	var req addRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := checkDate(req.Date); err != nil {
		respondError(c, err)
		return
	}
	h.apply(c, "add", func(s roster.State) roster.State {
		return s.Add(req.RowID, req.Date, req.ClinicianID)
	})
}

// RemoveAssignment deletes an assignment from one cell
func (h *Handler) RemoveAssignment(c *gin.Context) {
	id := c.Param("id")
	rowID := c.Query("rowId")
	date := c.Query("date")
	if err := checkDate(date); err != nil {
		respondError(c, err)
		return
	}
	if _, ok := h.Workspace.Current().Row(rowID); !ok {
		respondError(c, fmt.Errorf("%w: %s", ErrUnknownRow, rowID))
		return
	}
	h.apply(c, "remove", func(s roster.State) roster.State {
		return s.Remove(rowID, date, id)
	})
}

type moveRequest struct {
	Date         string `json:"date" binding:"required"`
	FromRowID    string `json:"fromRowId" binding:"required"`
	ToRowID      string `json:"toRowId" binding:"required"`
	AssignmentID string `json:"assignmentId"`
	ClinicianID  string `json:"clinicianId" binding:"required"`
}

// Move reconciles a drag between two rows on the same date
func (h *Handler) Move(c *gin.Context) {
	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := checkDate(req.Date); err != nil {
		respondError(c, err)
		return
	}
	h.apply(c, "move", func(s roster.State) roster.State {
		return s.MoveWithinDay(req.Date, req.FromRowID, req.ToRowID, req.AssignmentID, req.ClinicianID)
	})
}

type vacationRequest struct {
	ClinicianID string `json:"clinicianId" binding:"required"`
	Date        string `json:"date" binding:"required"`
}

// AddVacationDay puts a clinician on vacation for one day
func (h *Handler) AddVacationDay(c *gin.Context) {
	h.vacationDay(c, "add-vacation", roster.State.AddVacationDay)
}

// RemoveVacationDay takes a clinician off vacation for one day
func (h *Handler) RemoveVacationDay(c *gin.Context) {
	h.vacationDay(c, "remove-vacation", roster.State.RemoveVacationDay)
}

func (h *Handler) vacationDay(c *gin.Context, name string, op func(roster.State, string, string) roster.State) {
	var req vacationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := checkDate(req.Date); err != nil {
		respondError(c, err)
		return
	}
	if _, ok := h.Workspace.Current().Clinician(req.ClinicianID); !ok {
		respondError(c, fmt.Errorf("%w: %s", ErrUnknownClinician, req.ClinicianID))
		return
	}
	h.apply(c, name, func(s roster.State) roster.State {
		return op(s, req.ClinicianID, req.Date)
	})
}

// DeleteRow removes a row and its assignments
func (h *Handler) DeleteRow(c *gin.Context) {
	id := c.Param("id")
	if _, ok := h.Workspace.Current().Row(id); !ok {
		respondError(c, fmt.Errorf("%w: %s", ErrUnknownRow, id))
		return
	}
	h.apply(c, "delete-row", func(s roster.State) roster.State { return s.DeleteRow(id) })
}

// DeleteClinician removes a clinician and their assignments
func (h *Handler) DeleteClinician(c *gin.Context) {
	id := c.Param("id")
	if _, ok := h.Workspace.Current().Clinician(id); !ok {
		respondError(c, fmt.Errorf("%w: %s", ErrUnknownClinician, id))
		return
	}
	h.apply(c, "delete-clinician", func(s roster.State) roster.State { return s.DeleteClinician(id) })
}

// GetView returns the rendered view for a date range
func (h *Handler) GetView(c *gin.Context) {
	days, err := dateRange(c)
	if err != nil {
		respondError(c, err)
		return
	}
	s := h.Workspace.Current()
	v := view.Build(view.InputFromState(s, days))
	c.JSON(http.StatusOK, gin.H{"revision": s.Revision(), "dates": days, "cells": v.Encode()})
}

// GetViolations returns the rule violations for a date range
func (h *Handler) GetViolations(c *gin.Context) {
	days, err := dateRange(c)
	if err != nil {
		respondError(c, err)
		return
	}
	s := h.Workspace.Current()
	res := rules.Detect(rules.InputFromState(s, days))
	c.JSON(http.StatusOK, gin.H{"revision": s.Revision(), "violations": res.Violations, "keys": res.Keys})
}

// ExportCSV downloads the stored assignments for a date range
func (h *Handler) ExportCSV(c *gin.Context) {
	days, err := dateRange(c)
	if err != nil {
		respondError(c, err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, h.Workspace.Current(), days[0], days[len(days)-1]); err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=roster_%s_%s.csv", days[0], days[len(days)-1]))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// ExportXLSX downloads the rendered grid for a date range
func (h *Handler) ExportXLSX(c *gin.Context) {
	days, err := dateRange(c)
	if err != nil {
		respondError(c, err)
		return
	}
	s := h.Workspace.Current()
	v := view.Build(view.InputFromState(s, days))
	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, v, s, days); err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=roster_%s_%s.xlsx", days[0], days[len(days)-1]))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

func (h *Handler) apply(c *gin.Context, name string, op func(roster.State) roster.State) {
	next, changed, err := h.Workspace.Apply(c.Request.Context(), name, op)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mutationResponse{Changed: changed, Revision: next.Revision()})
}

func checkDate(d string) error {
	if _, ok := dates.ParseISODate(d); !ok {
		return fmt.Errorf("%w: %q", ErrInvalidDate, d)
	}
	return nil
}

// dateRange reads ?from=&to=; to defaults to from
func dateRange(c *gin.Context) ([]string, error) {
	from := c.Query("from")
	to := c.DefaultQuery("to", from)
	if err := checkDate(from); err != nil {
		return nil, err
	}
	if err := checkDate(to); err != nil {
		return nil, err
	}
	days := dates.Range(from, to)
	if len(days) == 0 {
		return nil, fmt.Errorf("%w: range %s..%s", ErrInvalidDate, from, to)
	}
	return days, nil
}
