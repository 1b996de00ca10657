package tasks

import (
	"fmt"
	"strings"
	"time"
)

type Type string

const (
	TypeAssignment Type = "assignment"
	TypeProject    Type = "project"
	TypeExam       Type = "exam"
	TypeOther      Type = "other"
)

func (t Type) Valid() bool {
	switch t {
	case TypeAssignment, TypeProject, TypeExam, TypeOther:
		return true
	}
	return false
}

type Task struct {
	ID             int64      `json:"id"`
	UserID         string     `json:"user_id"`
	Title          string     `json:"title"`
	Description    *string    `json:"description"`
	Type           Type       `json:"type"`
	DueDate        time.Time  `json:"due_date"`
	Priority       int        `json:"priority"`
	EstimatedHours *float64   `json:"estimated_hours"`
	IsCompleted    bool       `json:"is_completed"`
	CompletedAt    *time.Time `json:"completed_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Reschedule is the only place DueDate, Type and Priority change.
// Every write path goes through it so the stored score never drifts from its inputs.
func (t *Task) Reschedule(due time.Time, typ Type, now time.Time) {
	t.DueDate = due
	t.Type = typ
	t.Priority = Score(due, typ, now)
}

// SetCompleted toggles completion. Re-completing a done task keeps its original timestamp.
func (t *Task) SetCompleted(done bool, now time.Time) {
	switch {
	case done && !t.IsCompleted:
		ts := now
		t.CompletedAt = &ts
	case !done:
		t.CompletedAt = nil
	}
	t.IsCompleted = done
}

var dueLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseDue accepts RFC3339 and the zone-less forms browsers send from date inputs.
// Zone-less values are read as UTC.
func ParseDue(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dueLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid due_date %q", s)
}
