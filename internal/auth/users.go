package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var ErrUserNotFound = errors.New("user not found")

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Picture   string    `json:"picture"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type UserStore interface {
	Upsert(ctx context.Context, p Profile) (User, error)
	Get(ctx context.Context, id string) (User, error)
	Delete(ctx context.Context, id string) error
}

type SQLUserStore struct {
	DB *sql.DB
}

func NewUserStore(db *sql.DB) *SQLUserStore {
	return &SQLUserStore{DB: db}
}

func (s *SQLUserStore) Upsert(ctx context.Context, p Profile) (User, error) {
	u := User{ID: p.ID, Email: p.Email, Name: p.Name, Picture: p.Picture}
	err := s.DB.QueryRowContext(ctx, `
		INSERT INTO users (id, email, name, picture)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			name = EXCLUDED.name,
			picture = EXCLUDED.picture,
			updated_at = now()
		RETURNING created_at, updated_at
	`, p.ID, p.Email, p.Name, p.Picture).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return User{}, fmt.Errorf("upsert user: %w", err)
	}
	return u, nil
}

func (s *SQLUserStore) Get(ctx context.Context, id string) (User, error) {
	var u User
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, email, name, picture, created_at, updated_at
		FROM users
		WHERE id = $1
	`, id).Scan(&u.ID, &u.Email, &u.Name, &u.Picture, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// Delete purges the account and everything it owns in one transaction.
func (s *SQLUserStore) Delete(ctx context.Context, id string) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	steps := []struct {
		what  string
		query string
	}{
		{"analytics_events", `DELETE FROM analytics_events WHERE user_id = $1`},
		{"focus_sessions", `DELETE FROM focus_sessions WHERE user_id = $1`},
		{"tasks", `DELETE FROM tasks WHERE user_id = $1`},
		{"users", `DELETE FROM users WHERE id = $1`},
	}
	for _, st := range steps {
		if _, err := tx.ExecContext(ctx, st.query, id); err != nil {
			return fmt.Errorf("delete %s: %w", st.what, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
