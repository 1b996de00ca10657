package tasks

import (
	"math"
	"time"
)

const (
	basePriority = 50
	maxPriority  = 100
	minPriority  = 0

	day = 24 * time.Hour
)

// DaysUntil rounds the remaining time up to whole days. Overdue gives a negative
// value, or zero for less than a day late.
func DaysUntil(due, now time.Time) int {
	return int(math.Ceil(float64(due.Sub(now)) / float64(day)))
}

// Score maps a deadline and task type to a priority in [0,100].
func Score(due time.Time, typ Type, now time.Time) int {
	score := basePriority + urgencyBonus(due, now) + importanceBonus(typ)

	if score > maxPriority {
		return maxPriority
	}
	if score < minPriority {
		return minPriority
	}
	return score
}

func urgencyBonus(due, now time.Time) int {
	// rounding up means a task less than a day late still counts as 0 days,
	// so the overdue bonus starts one full day after the deadline
	switch days := DaysUntil(due, now); {
	case days < 0:
		return 50
	case days <= 1:
		return 40
	case days <= 3:
		return 30
	case days <= 7:
		return 20
	case days <= 14:
		return 10
	default:
		return 0
	}
}

func importanceBonus(typ Type) int {
	switch typ {
	case TypeExam:
		return 30
	case TypeProject:
		return 20
	case TypeAssignment:
		return 10
	default:
		return 0
	}
}
