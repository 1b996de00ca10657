// Package focus records timed study sessions.
package focus

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"study-organizer-backend/internal/analytics"
	"study-organizer-backend/internal/auth"
	"study-organizer-backend/internal/request"
	"study-organizer-backend/internal/tasks"
)

// TaskOwner answers whether a task belongs to a user. tasks.Store satisfies it.
type TaskOwner interface {
	Get(ctx context.Context, userID string, id int64) (tasks.Task, error)
}

type Handler struct {
	Store  Store
	Tasks  TaskOwner
	Events analytics.Recorder
	Log    *log.Logger
	Now    func() time.Time
}

func New(store Store, owner TaskOwner, events analytics.Recorder, logger *log.Logger) *Handler {
	return &Handler{
		Store:  store,
		Tasks:  owner,
		Events: events,
		Log:    logger,
		Now:    time.Now,
	}
}

type createRequest struct {
	TaskID          *int64 `json:"task_id" validate:"omitempty,gt=0"`
	DurationMinutes int    `json:"duration_minutes" validate:"required,gt=0"`
}

// GET /api/focus-sessions
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	list, err := h.Store.List(r.Context(), uid)
	if err != nil {
		h.Log.Error("list focus sessions failed", "user", uid, "err", err)
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	request.WriteJSON(w, http.StatusOK, list)
}

// POST /api/focus-sessions
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var body createRequest
	issues, err := request.Decode(r, &body)
	if err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if issues != nil {
		request.WriteIssues(w, issues)
		return
	}

	if body.TaskID != nil {
		_, err := h.Tasks.Get(r.Context(), uid, *body.TaskID)
		if errors.Is(err, tasks.ErrNotFound) {
			http.Error(w, "task not found", http.StatusNotFound)
			return
		}
		if err != nil {
			h.Log.Error("task lookup failed", "user", uid, "task", *body.TaskID, "err", err)
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}
	}

	created, err := h.Store.Create(r.Context(), Session{
		UserID:          uid,
		TaskID:          body.TaskID,
		DurationMinutes: body.DurationMinutes,
		SessionDate:     analytics.DayKey(h.Now()),
	})
	if err != nil {
		h.Log.Error("create focus session failed", "user", uid, "err", err)
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	analytics.Track(h.Events, r, analytics.EventFocusSessionLogged, map[string]any{
		"session_id":       created.ID,
		"duration_minutes": created.DurationMinutes,
		"has_task":         created.TaskID != nil,
	})

	request.WriteJSON(w, http.StatusCreated, created)
}
