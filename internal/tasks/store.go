package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("task not found")

type Store interface {
	List(ctx context.Context, userID string) ([]Task, error)
	Get(ctx context.Context, userID string, id int64) (Task, error)
	Create(ctx context.Context, t Task) (Task, error)
	Update(ctx context.Context, t Task) (Task, error)
	Delete(ctx context.Context, userID string, id int64) error

	// ListOpen returns incomplete tasks of every user, for re-scoring.
	ListOpen(ctx context.Context) ([]Task, error)
	SetPriority(ctx context.Context, id int64, priority int) error
}

const selectTask = `
	SELECT id, user_id, title, description, type, due_date, priority,
		estimated_hours, is_completed, completed_at, created_at, updated_at
	FROM tasks`

type scannable interface {
	Scan(...any) error
}

type SQLStore struct {
	DB *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{DB: db}
}

func (s *SQLStore) List(ctx context.Context, userID string) ([]Task, error) {
	rows, err := s.DB.QueryContext(ctx, selectTask+`
		WHERE user_id = $1
		ORDER BY priority DESC, due_date ASC, id ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return scanTasks(rows)
}

func (s *SQLStore) ListOpen(ctx context.Context) ([]Task, error) {
	rows, err := s.DB.QueryContext(ctx, selectTask+`
		WHERE NOT is_completed
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list open tasks: %w", err)
	}
	return scanTasks(rows)
}

func (s *SQLStore) Get(ctx context.Context, userID string, id int64) (Task, error) {
	row := s.DB.QueryRowContext(ctx, selectTask+`
		WHERE id = $1 AND user_id = $2
	`, id, userID)

	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Task{}, ErrNotFound
	}
	if err != nil {
		return Task{}, fmt.Errorf("get task %d: %w", id, err)
	}
	return t, nil
}

func (s *SQLStore) Create(ctx context.Context, t Task) (Task, error) {
	err := s.DB.QueryRowContext(ctx, `
		INSERT INTO tasks (user_id, title, description, type, due_date, priority,
			estimated_hours, is_completed, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`, t.UserID, t.Title, t.Description, string(t.Type), t.DueDate.UTC(), t.Priority,
		t.EstimatedHours, t.IsCompleted, t.CompletedAt,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return Task{}, fmt.Errorf("insert task: %w", err)
	}
	return t, nil
}

// Update writes every mutable column of an owned task.
func (s *SQLStore) Update(ctx context.Context, t Task) (Task, error) {
	err := s.DB.QueryRowContext(ctx, `
		UPDATE tasks
		SET title = $1, description = $2, type = $3, due_date = $4, priority = $5,
			estimated_hours = $6, is_completed = $7, completed_at = $8,
			updated_at = now()
		WHERE id = $9 AND user_id = $10
		RETURNING updated_at
	`, t.Title, t.Description, string(t.Type), t.DueDate.UTC(), t.Priority,
		t.EstimatedHours, t.IsCompleted, t.CompletedAt,
		t.ID, t.UserID,
	).Scan(&t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Task{}, ErrNotFound
	}
	if err != nil {
		return Task{}, fmt.Errorf("update task %d: %w", t.ID, err)
	}
	return t, nil
}

func (s *SQLStore) Delete(ctx context.Context, userID string, id int64) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete task %d: %w", id, err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Background re-scoring is not a user edit, so updated_at stays put.
const setPriority = `UPDATE tasks SET priority = $1 WHERE id = $2`

func (s *SQLStore) SetPriority(ctx context.Context, id int64, priority int) error {
	_, err := s.DB.ExecContext(ctx, setPriority, priority, id)
	if err != nil {
		return fmt.Errorf("set priority %d: %w", id, err)
	}
	return nil
}

func scanTasks(rows *sql.Rows) ([]Task, error) {
	defer rows.Close()

	result := []Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func scanTask(row scannable) (Task, error) {
	var (
		t           Task
		typ         string
		description sql.NullString
		hours       sql.NullFloat64
		completedAt sql.NullTime
	)
	err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.Title,
		&description,
		&typ,
		&t.DueDate,
		&t.Priority,
		&hours,
		&t.IsCompleted,
		&completedAt,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return Task{}, err
	}

	t.Type = Type(typ)
	if description.Valid {
		t.Description = &description.String
	}
	if hours.Valid {
		t.EstimatedHours = &hours.Float64
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Time
	}
	return t, nil
}
