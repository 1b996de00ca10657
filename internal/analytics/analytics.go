package analytics

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

type CtxKey string

const (
	ctxUserIDKey CtxKey = "analytics_user_id"
)

const (
	EventAppOpened          = "app_opened"
	EventTaskCreated        = "task_created"
	EventTaskUpdated        = "task_updated"
	EventTaskCompleted      = "task_completed"
	EventTaskUncompleted    = "task_uncompleted"
	EventTaskDeleted        = "task_deleted"
	EventFocusSessionLogged = "focus_session_logged"
)

// Envelope is what we store with every event.
type Envelope struct {
	UserID       string
	SessionID    string
	Platform     string
	AppVersion   string
	DeviceLocale string
}

// FromRequest extracts event envelope fields from request.
// Backend-trustable fields only.
func FromRequest(r *http.Request) Envelope {
	platform := strings.ToLower(strings.TrimSpace(r.Header.Get("X-Platform")))
	switch platform {
	case "ios", "android", "web":
	default:
		platform = "unknown"
	}

	locale := strings.TrimSpace(r.Header.Get("Accept-Language"))
	if locale == "" {
		locale = strings.TrimSpace(r.Header.Get("X-Device-Locale"))
	}

	env := Envelope{
		SessionID:    strings.TrimSpace(r.Header.Get("X-Session-Id")),
		Platform:     platform,
		AppVersion:   strings.TrimSpace(r.Header.Get("X-App-Version")),
		DeviceLocale: locale,
	}
	if uid, ok := UserIDFromContext(r.Context()); ok {
		env.UserID = uid
	}
	return env
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxUserIDKey, userID)
}

func UserIDFromContext(ctx context.Context) (string, bool) {
	uid, ok := ctx.Value(ctxUserIDKey).(string)
	return uid, ok && uid != ""
}

// Client-provided idempotency key (optional)
// If present and duplicates, insert is ignored.
func SourceEventKeyFromRequest(r *http.Request) string {
	if k := strings.TrimSpace(r.Header.Get("Idempotency-Key")); k != "" {
		return k
	}
	return strings.TrimSpace(r.Header.Get("X-Source-Event-Key"))
}

type Recorder interface {
	Record(ctx context.Context, env Envelope, eventName string, props any, sourceEventKey string) error
}

// Track is the one-liner handlers use: envelope and idempotency key come from the request.
// Analytics never breaks the core flow, so failures are dropped here.
func Track(rec Recorder, r *http.Request, eventName string, props any) {
	if rec == nil {
		return
	}
	_ = rec.Record(r.Context(), FromRequest(r), eventName, props, EventKey(SourceEventKeyFromRequest(r), eventName))
}

// EventKey scopes a request idempotency key to one event, so a request that
// emits several events (task_updated + task_completed) keeps all of them.
func EventKey(requestKey, eventName string) string {
	if requestKey == "" {
		return ""
	}
	return requestKey + ":" + eventName
}

// SQLRecorder writes events into analytics_events.
type SQLRecorder struct {
	DB  *sql.DB
	Log *log.Logger
	Now func() time.Time
}

func NewSQLRecorder(db *sql.DB, logger *log.Logger) *SQLRecorder {
	return &SQLRecorder{DB: db, Log: logger, Now: time.Now}
}

// Record inserts one analytics event.
// Never logs sensitive raw text; caller passes sanitized props.
func (s *SQLRecorder) Record(ctx context.Context, env Envelope, eventName string, props any, sourceEventKey string) error {
	if eventName == "" {
		return nil
	}

	userID := env.UserID
	if userID == "" {
		uid, ok := UserIDFromContext(ctx)
		if !ok {
			// no user => skip
			return nil
		}
		userID = uid
	}

	b, err := json.Marshal(props)
	if err != nil {
		return err
	}

	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO analytics_events (
			event_name, event_time,
			user_id, session_id,
			platform, app_version, device_locale,
			source_event_key,
			properties
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb)
		ON CONFLICT (source_event_key) DO NOTHING
	`, eventName, s.Now().UTC(),
		userID, nullIfEmpty(env.SessionID),
		env.Platform, env.AppVersion, nullIfEmpty(env.DeviceLocale),
		nullIfEmpty(sourceEventKey),
		string(b),
	)
	if err != nil && s.Log != nil {
		s.Log.Warn("analytics insert failed", "event", eventName, "err", err)
	}
	return err
}

func nullIfEmpty(s string) sql.NullString {
	if strings.TrimSpace(s) == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}
