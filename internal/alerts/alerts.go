// Package alerts turns a task snapshot and today's stats into reminders.
// Nothing here is stored: alerts are recomputed on every request and the
// client decides which ids it has dismissed.
package alerts

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"study-organizer-backend/internal/tasks"
)

type Type string

const (
	TypeOverdue      Type = "overdue"
	TypeDueSoon      Type = "due_soon"
	TypeStartWorking Type = "start_working"
	TypeAchievement  Type = "achievement"
)

type Tier string

const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
)

var tierOrder = []Tier{TierHigh, TierMedium, TierLow}

const (
	day  = 24 * time.Hour
	hour = time.Hour

	// more than this many hours a day of remaining work means start now
	dailyEffortThreshold = 2.0
	completionMilestone  = 5
	focusMilestone       = 120 // minutes
)

type Alert struct {
	ID       string `json:"id"`
	Type     Type   `json:"type"`
	Title    string `json:"title"`
	Message  string `json:"message"`
	TaskID   *int64 `json:"taskId,omitempty"`
	Priority Tier   `json:"priority"`
}

// Stats is the part of the dashboard stats the milestones read.
type Stats struct {
	CompletedTasks    int
	TodayFocusMinutes int
}

// Set holds dismissed alert ids. A nil Set dismisses nothing.
type Set map[string]struct{}

func (s Set) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// ParseSet reads a comma separated id list, as sent in ?dismissed=.
func ParseSet(raw string) Set {
	s := Set{}
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			s[id] = struct{}{}
		}
	}
	return s
}

// Derive is pure: same snapshot, same clock and same dismissed set give the same list.
// Output is grouped high, medium, low; within a tier rule order is kept.
func Derive(list []tasks.Task, stats Stats, now time.Time, dismissed Set) []Alert {
	var all []Alert
	all = append(all, overdue(list, now)...)
	all = append(all, dueSoon(list, now)...)
	all = append(all, startWorking(list, now)...)
	all = append(all, milestones(stats)...)

	out := make([]Alert, 0, len(all))
	for _, tier := range tierOrder {
		for _, a := range all {
			if a.Priority == tier && !dismissed.Has(a.ID) {
				out = append(out, a)
			}
		}
	}
	return out
}

func overdue(list []tasks.Task, now time.Time) []Alert {
	var out []Alert
	for _, t := range list {
		if t.IsCompleted || !t.DueDate.Before(now) {
			continue
		}
		daysPast := int(now.Sub(t.DueDate) / day)

		when := "today"
		switch {
		case daysPast == 1:
			when = "1 day ago"
		case daysPast > 1:
			when = fmt.Sprintf("%d days ago", daysPast)
		}

		out = append(out, Alert{
			ID:       fmt.Sprintf("overdue-%d", t.ID),
			Type:     TypeOverdue,
			Title:    "Overdue Task",
			Message:  fmt.Sprintf("%s was due %s", t.Title, when),
			TaskID:   taskID(t),
			Priority: TierHigh,
		})
	}
	return out
}

func dueSoon(list []tasks.Task, now time.Time) []Alert {
	tomorrow := now.Add(day)

	var out []Alert
	for _, t := range list {
		if t.IsCompleted || t.DueDate.Before(now) || t.DueDate.After(tomorrow) {
			continue
		}
		hours := int(t.DueDate.Sub(now) / hour)

		// only a task due exactly 24h from now lands in the second branch
		left := "less than 24 hours"
		if hours < 24 {
			left = fmt.Sprintf("%d hours", hours)
		}

		out = append(out, Alert{
			ID:       fmt.Sprintf("due-soon-%d", t.ID),
			Type:     TypeDueSoon,
			Title:    "Due Tomorrow",
			Message:  fmt.Sprintf("%s is due in %s", t.Title, left),
			TaskID:   taskID(t),
			Priority: TierHigh,
		})
	}
	return out
}

func startWorking(list []tasks.Task, now time.Time) []Alert {
	tomorrow := now.Add(day)
	threeDays := now.Add(3 * day)

	var out []Alert
	for _, t := range list {
		if t.IsCompleted || t.EstimatedHours == nil || *t.EstimatedHours <= 0 {
			continue
		}
		if !t.DueDate.After(tomorrow) || t.DueDate.After(threeDays) {
			continue
		}

		days := tasks.DaysUntil(t.DueDate, now)
		perDay := *t.EstimatedHours / float64(max(days-1, 1))
		if perDay <= dailyEffortThreshold {
			continue
		}

		est := strconv.FormatFloat(*t.EstimatedHours, 'f', -1, 64)
		out = append(out, Alert{
			ID:       fmt.Sprintf("start-working-%d", t.ID),
			Type:     TypeStartWorking,
			Title:    "Consider Starting",
			Message:  fmt.Sprintf("%s (%sh) is due in %d days. Consider starting soon!", t.Title, est, days),
			TaskID:   taskID(t),
			Priority: TierMedium,
		})
	}
	return out
}

func milestones(s Stats) []Alert {
	var out []Alert
	if s.CompletedTasks > 0 && s.CompletedTasks%completionMilestone == 0 {
		out = append(out, Alert{
			ID:       fmt.Sprintf("achievement-%d", s.CompletedTasks),
			Type:     TypeAchievement,
			Title:    "Great Progress!",
			Message:  fmt.Sprintf("You've completed %d tasks! Keep up the excellent work!", s.CompletedTasks),
			Priority: TierLow,
		})
	}
	if s.TodayFocusMinutes >= focusMilestone {
		hours := s.TodayFocusMinutes / 60
		out = append(out, Alert{
			ID:       fmt.Sprintf("focus-achievement-%d", hours),
			Type:     TypeAchievement,
			Title:    "Focus Champion!",
			Message:  fmt.Sprintf("You've focused for %d hours today. Excellent dedication!", hours),
			Priority: TierLow,
		})
	}
	return out
}

func taskID(t tasks.Task) *int64 {
	id := t.ID
	return &id
}
