package models

import (
	"sort"
	"strings"
	"time"
)

// PlannedReminder is a single reminder as proposed by the language model.
type PlannedReminder struct {
	At       time.Time
	Message  string
	Type     ReminderType
	Priority string
}

// Plan is the reminder plan extracted from one chat message.
type Plan struct {
	Task     string
	BaseTime time.Time
	Urgency  Urgency
	Category string
	// EstimatedDuration in minutes; 0 when the model gave none.
	EstimatedDuration   int
	MotivationalContext string
	Reminders           []PlannedReminder
}

// Empty reports whether the model could not make sense of the request.
func (p *Plan) Empty() bool {
	return p == nil || strings.TrimSpace(p.Task) == "" || p.BaseTime.IsZero() || len(p.Reminders) == 0
}

// Upcoming returns the reminders strictly after now, ordered by time.
func (p *Plan) Upcoming(now time.Time) []PlannedReminder {
	if p == nil {
		return nil
	}
	out := make([]PlannedReminder, 0, len(p.Reminders))
	for _, r := range p.Reminders {
		if r.At.After(now) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })
	return out
}
