package alerts

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"study-organizer-backend/internal/analytics"
	"study-organizer-backend/internal/auth"
	"study-organizer-backend/internal/request"
	"study-organizer-backend/internal/tasks"
)

type TaskLister interface {
	List(ctx context.Context, userID string) ([]tasks.Task, error)
}

type Handler struct {
	Tasks TaskLister
	Stats analytics.StatsReader
	Log   *log.Logger
	Now   func() time.Time
}

func NewHandler(list TaskLister, stats analytics.StatsReader, logger *log.Logger) *Handler {
	return &Handler{Tasks: list, Stats: stats, Log: logger, Now: time.Now}
}

// GET /api/alerts?dismissed=overdue-3,achievement-5
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	now := h.Now()

	list, err := h.Tasks.List(r.Context(), uid)
	if err != nil {
		h.Log.Error("list tasks for alerts failed", "user", uid, "err", err)
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	st, err := h.Stats.Stats(r.Context(), uid, now)
	if err != nil {
		h.Log.Error("stats for alerts failed", "user", uid, "err", err)
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	out := Derive(list, Stats{
		CompletedTasks:    st.CompletedTasks,
		TodayFocusMinutes: st.TodayFocusMinutes,
	}, now, ParseSet(r.URL.Query().Get("dismissed")))

	request.WriteJSON(w, http.StatusOK, out)
}
