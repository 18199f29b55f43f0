package handler

import (
	"context"
	"log"
	"net/http"

	"github.com/arnavshah/roster-planner-go/internal/app"
)

var service *app.App

func init() {
	a, err := app.New(context.Background(), "")
	if err != nil {
		log.Fatalf("could not initialise roster service: %v", err)
	}
	service = a
}

// Handler is the entry point for Vercel Go Runtime
func Handler(w http.ResponseWriter, r *http.Request) {
	service.Router.ServeHTTP(w, r)
}
