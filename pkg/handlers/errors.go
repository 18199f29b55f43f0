package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/roster-planner-go/pkg/scheduler"
)

var (
	ErrUnknownRow       = errors.New("unknown row")
	ErrUnknownClinician = errors.New("unknown clinician")
	ErrSolverBusy       = errors.New("a planning run is already in progress")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidSnapshot  = errors.New("invalid snapshot")
	ErrPersistence      = errors.New("could not persist roster")
)

// statusFor maps an error to the HTTP status reported to the client
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrInvalidDate), errors.Is(err, ErrInvalidSnapshot), errors.Is(err, scheduler.ErrInvalidRange):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnknownRow), errors.Is(err, ErrUnknownClinician):
		return http.StatusNotFound
	case errors.Is(err, ErrSolverBusy):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}
