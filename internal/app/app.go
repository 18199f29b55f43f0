// Package app wires configuration, logging, persistence and the HTTP router together
// for the server binary and the serverless entry point.
package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arnavshah/roster-planner-go/internal/config"
	"github.com/arnavshah/roster-planner-go/internal/logger"
	"github.com/arnavshah/roster-planner-go/pkg/database"
	"github.com/arnavshah/roster-planner-go/pkg/handlers"
	"github.com/arnavshah/roster-planner-go/pkg/models"
	"github.com/arnavshah/roster-planner-go/pkg/roster"
	"github.com/arnavshah/roster-planner-go/pkg/scheduler"
)

// App is a ready-to-serve roster service
type App struct {
	Config *config.Config
	Log    *zap.Logger
	Router *gin.Engine
	close  func()
}

// New loads configuration from path and builds the service
func New(ctx context.Context, path string) (*App, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	repo := database.NewRepository(db)

	snap, found, err := repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}
	if !found {
		snap = models.Snapshot{}
	}
	state := roster.FromSnapshot(snap)
	log.Info("roster loaded",
		zap.Bool("stored", found),
		zap.Int("rows", len(state.Rows)),
		zap.Int("clinicians", len(state.Clinicians)),
		zap.Int("assignments", state.Assignments.Len()))

	gin.SetMode(cfg.Server.GinMode)

	ws := handlers.NewWorkspace(state, repo, log)
	h := handlers.NewHandler(ws, log)
	h.Solver = scheduler.Timeout{Solver: scheduler.NewScheduler(), Limit: cfg.Solver.Timeout}
	h.MaxRunsHistory = cfg.Solver.MaxRunsHistory

	return &App{
		Config: cfg,
		Log:    log,
		Router: handlers.NewRouter(h, cfg.Server.MaxBodyBytes),
		close: func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
			_ = log.Sync()
		},
	}, nil
}

// Close releases the database and flushes the logger
func (a *App) Close() {
	if a.close != nil {
		a.close()
	}
}
