package main

import (
	"context"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/arnavshah/roster-planner-go/internal/app"
)

func main() {
	// optional YAML file; env variables and .env work without one
	a, err := app.New(context.Background(), os.Getenv("ROSTER_CONFIG"))
	if err != nil {
		log.Fatalf("could not start server: %v", err)
	}
	defer a.Close()

	addr := a.Config.Server.Addr()
	a.Log.Info("server starting", zap.String("addr", addr))
	if err := a.Router.Run(addr); err != nil {
		a.Log.Fatal("could not run server", zap.Error(err))
	}
}
