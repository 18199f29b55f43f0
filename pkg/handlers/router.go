package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// NewRouter builds the gin engine with middleware and routes
func NewRouter(h *Handler, maxBodyBytes int64) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), Logger(h.Log), BodyLimit(maxBodyBytes))

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Roster Planner API",
			"version": "1.0.0",
		})
	})

	api := r.Group("/api")
	{
		api.GET("/state", h.GetState)
		api.PUT("/state", h.PutState)
		api.POST("/validate", h.ValidateSnapshot)

		api.POST("/assignments", h.AddAssignment)
		api.DELETE("/assignments/:id", h.RemoveAssignment)
		api.POST("/moves", h.Move)
		api.POST("/vacations/days", h.AddVacationDay)
		api.DELETE("/vacations/days", h.RemoveVacationDay)
		api.DELETE("/rows/:id", h.DeleteRow)
		api.DELETE("/clinicians/:id", h.DeleteClinician)

		api.GET("/view", h.GetView)
		api.GET("/violations", h.GetViolations)

		api.POST("/solve", h.Solve)
		api.GET("/solver/runs", h.GetSolverRuns)

		api.GET("/export/csv", h.ExportCSV)
		api.GET("/export/xlsx", h.ExportXLSX)
	}
	return r
}
