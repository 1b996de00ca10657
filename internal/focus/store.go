package focus

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"study-organizer-backend/internal/analytics"
)

// listLimit caps GET /api/focus-sessions.
const listLimit = 100

type Session struct {
	ID              int64     `json:"id"`
	UserID          string    `json:"user_id"`
	TaskID          *int64    `json:"task_id"`
	DurationMinutes int       `json:"duration_minutes"`
	SessionDate     string    `json:"session_date"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type Store interface {
	List(ctx context.Context, userID string) ([]Session, error)
	Create(ctx context.Context, s Session) (Session, error)
}

type SQLStore struct {
	DB *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{DB: db}
}

func (s *SQLStore) List(ctx context.Context, userID string) ([]Session, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, user_id, task_id, duration_minutes, session_date, created_at, updated_at
		FROM focus_sessions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, userID, listLimit)
	if err != nil {
		return nil, fmt.Errorf("list focus sessions: %w", err)
	}
	defer rows.Close()

	result := []Session{}
	for rows.Next() {
		var (
			fs     Session
			taskID sql.NullInt64
			day    time.Time
		)
		if err := rows.Scan(&fs.ID, &fs.UserID, &taskID, &fs.DurationMinutes, &day, &fs.CreatedAt, &fs.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan focus session: %w", err)
		}
		if taskID.Valid {
			fs.TaskID = &taskID.Int64
		}
		fs.SessionDate = analytics.DayKey(day)
		result = append(result, fs)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *SQLStore) Create(ctx context.Context, fs Session) (Session, error) {
	err := s.DB.QueryRowContext(ctx, `
		INSERT INTO focus_sessions (user_id, task_id, duration_minutes, session_date)
		VALUES ($1, $2, $3, $4::date)
		RETURNING id, created_at, updated_at
	`, fs.UserID, fs.TaskID, fs.DurationMinutes, fs.SessionDate,
	).Scan(&fs.ID, &fs.CreatedAt, &fs.UpdatedAt)
	if err != nil {
		return Session{}, fmt.Errorf("insert focus session: %w", err)
	}
	return fs, nil
}
