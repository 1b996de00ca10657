package tasks

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"study-organizer-backend/internal/analytics"
	"study-organizer-backend/internal/auth"
	"study-organizer-backend/internal/request"
)

type TaskHandler struct {
	Store  Store
	Events analytics.Recorder
	Log    *log.Logger
	Now    func() time.Time
}

func New(store Store, events analytics.Recorder, logger *log.Logger) *TaskHandler {
	return &TaskHandler{
		Store:  store,
		Events: events,
		Log:    logger,
		Now:    time.Now,
	}
}

type createRequest struct {
	Title          string   `json:"title" validate:"required,min=1,max=200"`
	Description    *string  `json:"description"`
	Type           Type     `json:"type" validate:"required,oneof=assignment project exam other"`
	DueDate        string   `json:"due_date" validate:"required"`
	EstimatedHours *float64 `json:"estimated_hours" validate:"omitempty,gt=0"`
}

func (b *createRequest) Normalize() {
	b.Title = strings.TrimSpace(b.Title)
}

// Every field is optional; nil means leave as is.
type updateRequest struct {
	Title          *string  `json:"title" validate:"omitempty,min=1,max=200"`
	Description    *string  `json:"description"`
	Type           *Type    `json:"type" validate:"omitempty,oneof=assignment project exam other"`
	DueDate        *string  `json:"due_date" validate:"omitempty,min=1"`
	EstimatedHours *float64 `json:"estimated_hours" validate:"omitempty,gt=0"`
	IsCompleted    *bool    `json:"is_completed"`
}

func (b *updateRequest) Normalize() {
	if b.Title != nil {
		trimmed := strings.TrimSpace(*b.Title)
		b.Title = &trimmed
	}
}

// GET /api/tasks
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	list, err := h.Store.List(r.Context(), uid)
	if err != nil {
		h.Log.Error("list tasks failed", "user", uid, "err", err)
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	request.WriteJSON(w, http.StatusOK, list)
}

// POST /api/tasks
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
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
	due, err := ParseDue(body.DueDate)
	if err != nil {
		request.WriteIssues(w, []request.Issue{{Path: "due_date", Message: err.Error()}})
		return
	}

	now := h.Now()
	t := Task{
		UserID:         uid,
		Title:          body.Title,
		Description:    normalizeDescription(body.Description),
		EstimatedHours: body.EstimatedHours,
	}
	t.Reschedule(due, body.Type, now)

	created, err := h.Store.Create(r.Context(), t)
	if err != nil {
		h.Log.Error("create task failed", "user", uid, "err", err)
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	analytics.Track(h.Events, r, analytics.EventTaskCreated, map[string]any{
		"task_id":        created.ID,
		"type":           created.Type,
		"priority":       created.Priority,
		"days_until_due": DaysUntil(created.DueDate, now),
		"has_estimate":   created.EstimatedHours != nil,
		"title_len":      len(created.Title),
	})

	request.WriteJSON(w, http.StatusCreated, created)
}

// PATCH /api/tasks/{id}
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	id, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid task id", http.StatusBadRequest)
		return
	}

	var body updateRequest
	issues, err := request.Decode(r, &body)
	if err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if issues != nil {
		request.WriteIssues(w, issues)
		return
	}

	var due time.Time
	if body.DueDate != nil {
		due, err = ParseDue(*body.DueDate)
		if err != nil {
			request.WriteIssues(w, []request.Issue{{Path: "due_date", Message: err.Error()}})
			return
		}
	}

	t, err := h.Store.Get(r.Context(), uid, id)
	if errors.Is(err, ErrNotFound) {
		http.Error(w, "task not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.Log.Error("get task failed", "user", uid, "task", id, "err", err)
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	now := h.Now()
	wasCompleted := t.IsCompleted
	prevPriority := t.Priority

	if body.Title != nil {
		t.Title = *body.Title
	}
	if body.Description != nil {
		t.Description = normalizeDescription(body.Description)
	}
	if body.EstimatedHours != nil {
		t.EstimatedHours = body.EstimatedHours
	}
	if body.DueDate != nil || body.Type != nil {
		if body.DueDate == nil {
			due = t.DueDate
		}
		typ := t.Type
		if body.Type != nil {
			typ = *body.Type
		}
		t.Reschedule(due, typ, now)
	}
	if body.IsCompleted != nil {
		t.SetCompleted(*body.IsCompleted, now)
	}

	updated, err := h.Store.Update(r.Context(), t)
	if errors.Is(err, ErrNotFound) {
		http.Error(w, "task not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.Log.Error("update task failed", "user", uid, "task", id, "err", err)
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	analytics.Track(h.Events, r, analytics.EventTaskUpdated, map[string]any{
		"task_id":         updated.ID,
		"priority_before": prevPriority,
		"priority_after":  updated.Priority,
		"rescheduled":     body.DueDate != nil || body.Type != nil,
	})

	switch {
	case !wasCompleted && updated.IsCompleted:
		analytics.Track(h.Events, r, analytics.EventTaskCompleted, map[string]any{
			"task_id":                updated.ID,
			"priority_at_completion": updated.Priority,
			"time_since_created_sec": int(now.Sub(updated.CreatedAt).Seconds()),
			"completed_before_due":   now.Before(updated.DueDate),
		})
	case wasCompleted && !updated.IsCompleted:
		analytics.Track(h.Events, r, analytics.EventTaskUncompleted, map[string]any{
			"task_id": updated.ID,
		})
	}

	request.WriteJSON(w, http.StatusOK, updated)
}

// DELETE /api/tasks/{id}
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	id, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid task id", http.StatusBadRequest)
		return
	}

	err = h.Store.Delete(r.Context(), uid, id)
	if errors.Is(err, ErrNotFound) {
		http.Error(w, "task not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.Log.Error("delete task failed", "user", uid, "task", id, "err", err)
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	analytics.Track(h.Events, r, analytics.EventTaskDeleted, map[string]any{"task_id": id})

	request.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

// blank descriptions are stored as NULL
func normalizeDescription(d *string) *string {
	if d == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*d)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
