package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Stats mirrors the dashboard cards. Json names are what the web client reads.
type Stats struct {
	TotalTasks        int `json:"totalTasks"`
	CompletedTasks    int `json:"completedTasks"`
	OverdueTasks      int `json:"overdueTasks"`
	TodayFocusMinutes int `json:"todayFocusMinutes"`
}

type StatsReader interface {
	Stats(ctx context.Context, userID string, now time.Time) (Stats, error)
}

// DayKey is the calendar day focus sessions are filed under (UTC).
func DayKey(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

type StatsRepo struct {
	DB *sql.DB
}

func NewStatsRepo(db *sql.DB) *StatsRepo {
	return &StatsRepo{DB: db}
}

func (r *StatsRepo) Stats(ctx context.Context, userID string, now time.Time) (Stats, error) {
	var s Stats
	err := r.DB.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM tasks WHERE user_id = $1),
			(SELECT COUNT(*) FROM tasks WHERE user_id = $1 AND is_completed),
			(SELECT COUNT(*) FROM tasks WHERE user_id = $1 AND NOT is_completed AND due_date < $2),
			(SELECT COALESCE(SUM(duration_minutes), 0) FROM focus_sessions
				WHERE user_id = $1 AND session_date = $3::date)
	`, userID, now.UTC(), DayKey(now)).Scan(
		&s.TotalTasks,
		&s.CompletedTasks,
		&s.OverdueTasks,
		&s.TodayFocusMinutes,
	)
	if err != nil {
		return Stats{}, fmt.Errorf("load stats: %w", err)
	}
	return s, nil
}
