// internal/models/task.go
package models

import "time"

// TaskStatus defines the possible statuses for a task.
type TaskStatus string

const (
	TaskActive    TaskStatus = "active"
	TaskCompleted TaskStatus = "completed"
	TaskCancelled TaskStatus = "cancelled"
)

type Urgency string

const (
	UrgencyLow      Urgency = "LOW"
	UrgencyMedium   Urgency = "MEDIUM"
	UrgencyHigh     Urgency = "HIGH"
	UrgencyCritical Urgency = "CRITICAL"
)

// NormalizeUrgency maps whatever the model returned onto a known level.
func NormalizeUrgency(s string) Urgency {
	switch u := Urgency(s); u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical:
		return u
	}
	switch s {
	case "low":
		return UrgencyLow
	case "high":
		return UrgencyHigh
	case "critical":
		return UrgencyCritical
	}
	return UrgencyMedium
}

const DefaultCategory = "GENERAL"

// DefaultDurationMinutes is used when the model gives no effort estimate.
const DefaultDurationMinutes = 30

// Task is one thing the user asked to be reminded about.
type Task struct {
	ID          int64      `json:"id"`
	ChatID      int64      `json:"chat_id"`
	Description string     `json:"task"`
	BaseTime    time.Time  `json:"base_time"`
	Urgency     Urgency    `json:"urgency"`
	Category    string     `json:"category"`
	Status      TaskStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	// EstimatedDuration is the model's effort guess in minutes.
	EstimatedDuration   int        `json:"estimated_duration"`
	MotivationalContext string     `json:"motivational_context,omitempty"`
	Reminders           []Reminder `json:"reminders,omitempty"`
}

// TaskSummary is a task with its reminder counters, used for listings.
type TaskSummary struct {
	Task
	TotalReminders      int `json:"total_reminders"`
	SentReminders       int `json:"sent_reminders"`
	CriticalReminders   int `json:"critical_reminders"`
	MotivationReminders int `json:"motivation_reminders"`
}

type Stats struct {
	TasksByStatus       map[string]int `json:"tasks_by_status"`
	RemindersByStatus   map[string]int `json:"reminders_by_status"`
	TasksByUrgency      map[string]int `json:"tasks_by_urgency"`
	TasksByCategory     map[string]int `json:"tasks_by_category"`
	RemindersByType     map[string]int `json:"reminders_by_type"`
	RemindersByPriority map[string]int `json:"reminders_by_priority"`
	UniqueChats         int            `json:"unique_chats"`
	AverageTaskDuration float64        `json:"average_task_duration"`
	// CompletionRate30d is the percentage of tasks created in the last 30 days that completed.
	CompletionRate30d float64 `json:"completion_rate_30d"`
	ScheduledInMemory int     `json:"scheduled_in_memory"`
}

// AnalyticsWindow is how far back per-chat analytics look.
const AnalyticsWindow = 30 * 24 * time.Hour

// Analytics describes one chat's task patterns over AnalyticsWindow.
type Analytics struct {
	ChatID                  int64              `json:"chat_id"`
	TotalTasks              int                `json:"total_tasks"`
	CategoryDistribution    map[string]int     `json:"category_distribution"`
	UrgencyPatterns         map[string]int     `json:"urgency_patterns"`
	AvgDurationByCategory   map[string]float64 `json:"avg_duration_by_category"`
	CompletionRateByUrgency map[string]float64 `json:"completion_rate_by_urgency"`
}
