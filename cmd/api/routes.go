package main

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/rs/cors"

	"study-organizer-backend/internal/alerts"
	"study-organizer-backend/internal/analytics"
	"study-organizer-backend/internal/auth"
	"study-organizer-backend/internal/config"
	"study-organizer-backend/internal/focus"
	"study-organizer-backend/internal/logging"
	"study-organizer-backend/internal/tasks"
)

type routes struct {
	cfg    *config.Config
	log    *log.Logger
	auth   *auth.Handler
	tasks  *tasks.TaskHandler
	focus  *focus.Handler
	alerts *alerts.Handler
	stats  analytics.StatsReader
	events analytics.Recorder
}

func newRouter(rt routes) http.Handler {
	mux := http.NewServeMux()
	protect := auth.New([]byte(rt.cfg.SessionSecret)).Wrap

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// ----- AUTH -----
	mux.HandleFunc("GET /api/oauth/google/redirect_url", rt.auth.RedirectURL)
	mux.HandleFunc("POST /api/sessions", rt.auth.CreateSession)
	mux.HandleFunc("GET /api/logout", rt.auth.Logout)
	mux.HandleFunc("GET /api/users/me", protect(rt.auth.Me))
	mux.HandleFunc("DELETE /api/users/me", protect(rt.auth.DeleteAccount))

	// ----- TASKS -----
	mux.HandleFunc("GET /api/tasks", protect(rt.tasks.List))
	mux.HandleFunc("POST /api/tasks", protect(rt.tasks.Create))
	mux.HandleFunc("PATCH /api/tasks/{id}", protect(rt.tasks.Update))
	mux.HandleFunc("DELETE /api/tasks/{id}", protect(rt.tasks.Delete))

	// ----- FOCUS SESSIONS -----
	mux.HandleFunc("GET /api/focus-sessions", protect(rt.focus.List))
	mux.HandleFunc("POST /api/focus-sessions", protect(rt.focus.Create))

	// ----- STATS, ALERTS, EVENTS -----
	mux.HandleFunc("GET /api/analytics/stats", protect(analytics.StatsHandler(rt.stats, rt.log, time.Now)))
	mux.HandleFunc("GET /api/alerts", protect(rt.alerts.List))
	mux.HandleFunc("POST /api/analytics/events/app-opened", protect(analytics.AppOpenedHandler(rt.events)))

	c := cors.New(cors.Options{
		AllowedOrigins:   rt.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Session-Id", "X-Platform", "X-App-Version", "Idempotency-Key"},
		AllowCredentials: true,
	})

	return logging.Middleware(rt.log, c.Handler(mux))
}
