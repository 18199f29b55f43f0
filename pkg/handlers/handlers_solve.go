package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arnavshah/roster-planner-go/pkg/roster"
	"github.com/arnavshah/roster-planner-go/pkg/scheduler"
)

type solveResponse struct {
	Proposed int      `json:"proposed"`
	Written  int      `json:"written"`
	Notes    []string `json:"notes"`
	Revision uint64   `json:"revision"`
}

// Solve runs automated planning over a date range and merges the result into the
// roster with add semantics. Only one run may be in flight.
func (h *Handler) Solve(c *gin.Context) {
	var req scheduler.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := checkDate(req.From); err != nil {
		respondError(c, err)
		return
	}

	if err := h.Workspace.BeginRun(); err != nil {
		respondError(c, err)
		return
	}
	defer h.Workspace.EndRun()

	ctx := c.Request.Context()
	resp, err := h.Solver.Solve(ctx, h.Workspace.Current(), req)
	if err != nil {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			respondError(c, err)
			return
		}
		h.Log.Warn("planning run stopped early", zap.Error(err), zap.Int("proposed", len(resp.Assignments)))
	}

	var written int
	next, _, err := h.Workspace.Apply(context.WithoutCancel(ctx), "solve", func(s roster.State) roster.State {
		var out roster.State
		out, written = s.ApplyBulk(resp.Assignments)
		return out
	})
	if err != nil {
		respondError(c, err)
		return
	}

	h.Workspace.RecordRun(context.WithoutCancel(ctx), h.Now().Format("2006-01-02"), written, len(resp.Notes))
	h.Log.Info("planning run finished",
		zap.String("from", req.From),
		zap.String("to", req.To),
		zap.Bool("only_required", req.OnlyRequired),
		zap.Int("proposed", len(resp.Assignments)),
		zap.Int("written", written))

	c.JSON(http.StatusOK, solveResponse{
		Proposed: len(resp.Assignments),
		Written:  written,
		Notes:    resp.Notes,
		Revision: next.Revision(),
	})
}
