package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/roster-planner-go/pkg/models"
	"github.com/arnavshah/roster-planner-go/pkg/roster"
)

// ValidateSnapshot checks an inbound snapshot without loading it
func (h *Handler) ValidateSnapshot(c *gin.Context) {
	var snap models.Snapshot
	if err := c.ShouldBindJSON(&snap); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"valid": false,
			"error": err.Error(),
		})
		return
	}

	problems := roster.ValidateSnapshot(snap)
	c.JSON(http.StatusOK, gin.H{
		"valid":    len(problems) == 0,
		"problems": problems,
		"stats": gin.H{
			"row_count":        len(snap.Rows),
			"clinician_count":  len(snap.Clinicians),
			"assignment_count": len(snap.Assignments),
		},
	})
}
