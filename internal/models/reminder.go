package models

import (
	"strings"
	"time"
)

type ReminderStatus string

const (
	ReminderPending   ReminderStatus = "pending"
	ReminderSent      ReminderStatus = "sent"
	ReminderFailed    ReminderStatus = "failed"
	ReminderCancelled ReminderStatus = "cancelled"
)

// ReminderType is the tone of a reminder within its plan.
type ReminderType string

const (
	ReminderStandard   ReminderType = "STANDARD"
	ReminderMotivation ReminderType = "MOTIVATION"
	ReminderCritical   ReminderType = "CRITICAL"
)

func NormalizeReminderType(s string) ReminderType {
	switch t := ReminderType(strings.ToUpper(strings.TrimSpace(s))); t {
	case ReminderMotivation, ReminderCritical:
		return t
	}
	return ReminderStandard
}

// Priority levels are lower-case, as the model emits them.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

func NormalizePriority(s string) string {
	switch p := strings.ToLower(strings.TrimSpace(s)); p {
	case PriorityLow, PriorityHigh:
		return p
	}
	return PriorityMedium
}

// Reminder is one trigger instant of a task's plan.
type Reminder struct {
	ID        int64          `json:"id"`
	TaskID    int64          `json:"task_id"`
	JobID     string         `json:"job_id"`
	RemindAt  time.Time      `json:"remind_at"`
	Message   string         `json:"message"`
	Type      ReminderType   `json:"type"`
	Priority  string         `json:"priority"`
	Status    ReminderStatus `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	SentAt    *time.Time     `json:"sent_at,omitempty"`
}

// PendingReminder is what the scheduler needs to fire a reminder without
// going back to the database.
type PendingReminder struct {
	JobID    string       `json:"job_id"`
	ChatID   int64        `json:"chat_id"`
	Task     string       `json:"task"`
	Message  string       `json:"message"`
	Type     ReminderType `json:"type"`
	RemindAt time.Time    `json:"remind_at"`
}
