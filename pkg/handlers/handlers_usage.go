package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetSolverRuns returns per-day statistics of automated planning runs
func (h *Handler) GetSolverRuns(c *gin.Context) {
	runs, err := h.Workspace.Runs(c.Request.Context(), h.MaxRunsHistory)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch solver runs"})
		return
	}

	var totalRuns, totalAssignments, totalNotes int64
	for _, r := range runs {
		totalRuns += int64(r.RunCount)
		totalAssignments += int64(r.AssignmentsWritten)
		totalNotes += int64(r.NotesWritten)
	}

	c.JSON(http.StatusOK, gin.H{
		"history": runs,
		"totals": gin.H{
			"runs":        totalRuns,
			"assignments": totalAssignments,
			"notes":       totalNotes,
		},
	})
}
