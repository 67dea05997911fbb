// internal/services/task_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"tasknova/internal/metrics"
	"tasknova/internal/models"
	"tasknova/internal/repositories"
)

// Outcome labels what happened to one incoming request.
type Outcome string

const (
	OutcomeScheduled     Outcome = "scheduled"
	OutcomeNotUnderstood Outcome = "not_understood"
	OutcomeInPast        Outcome = "in_past"
	OutcomeLimitReached  Outcome = "limit_reached"
	OutcomeLLMError      Outcome = "llm_error"
	OutcomeFailed        Outcome = "failed"
)

const (
	msgNotUnderstood = "⚠️ Sorry, I couldn't understand your task/time. Try: 'Remind me to ... at ...'."
	msgInPast        = "⚠️ The time you provided seems invalid or in the past."
	msgFailed        = "⚠️ Something went wrong while saving your task. Please try again later."
	msgNoTasks       = "You have no active tasks. 👍"
	msgNoAnalytics   = "No tasks in the last 30 days yet. Send me one!"
)

// chatLockStripes bounds the per-chat locks that serialise the pending cap check
// with the insert.
const chatLockStripes = 64

// Result is the reply for the chat plus what was stored.
type Result struct {
	Outcome Outcome
	Reply   string
	Task    *models.Task
}

// TaskService defines the reminder bot's business logic.
type TaskService interface {
	HandleText(ctx context.Context, chatID int64, text string) (*Result, error)
	ListTasks(ctx context.Context, chatID int64, limit int) ([]models.TaskSummary, error)
	TasksDigest(ctx context.Context, chatID int64) (string, error)
	CancelTask(ctx context.Context, chatID, taskID int64) (int, error)
	Scheduled() []models.PendingReminder
	Analytics(ctx context.Context, chatID int64) (*models.Analytics, error)
	AnalyticsDigest(ctx context.Context, chatID int64) (string, error)
	Stats(ctx context.Context) (*models.Stats, error)
}

type taskService struct {
	repo       repositories.TaskRepository
	planner    PlanExtractor
	scheduler  JobScheduler
	metrics    *metrics.Metrics
	loc        *time.Location
	maxPending int
	now        func() time.Time
	chatLocks  [chatLockStripes]sync.Mutex
}

// NewTaskService creates a new instance of TaskService. loc is used to show times
// to the user; maxPending caps pending reminders per chat (0 disables the cap).
func NewTaskService(repo repositories.TaskRepository, planner PlanExtractor, scheduler JobScheduler, m *metrics.Metrics, loc *time.Location, maxPending int) TaskService {
	if loc == nil {
		loc = time.UTC
	}
	return &taskService{
		repo:       repo,
		planner:    planner,
		scheduler:  scheduler,
		metrics:    m,
		loc:        loc,
		maxPending: maxPending,
		now:        time.Now,
	}
}

func (s *taskService) HandleText(ctx context.Context, chatID int64, text string) (*Result, error) {
	now := s.now()

	plan, err := s.planner.ExtractPlan(ctx, text, now)
	if err != nil {
		log.Printf("[plan][err] chatID=%d: %v", chatID, err)
		return s.result(OutcomeLLMError, msgNotUnderstood, nil), nil
	}
	if plan.Empty() {
		log.Printf("[plan][empty] chatID=%d text=%q", chatID, text)
		return s.result(OutcomeNotUnderstood, msgNotUnderstood, nil), nil
	}

	upcoming := plan.Upcoming(now)
	if len(upcoming) == 0 {
		log.Printf("[plan][past] chatID=%d task=%q base=%s", chatID, plan.Task, plan.BaseTime.Format(time.RFC3339))
		return s.result(OutcomeInPast, msgInPast, nil), nil
	}

	mu := s.chatLock(chatID)
	mu.Lock()
	defer mu.Unlock()

	if s.maxPending > 0 {
		pending, err := s.repo.CountPendingByChat(ctx, chatID)
		if err != nil {
			s.metrics.PlanOutcome(string(OutcomeFailed))
			return &Result{Outcome: OutcomeFailed, Reply: msgFailed}, fmt.Errorf("count pending: %w", err)
		}
		if pending+len(upcoming) > s.maxPending {
			reply := fmt.Sprintf("⚠️ You already have %d pending reminders (limit %d). Wait for some to fire first.", pending, s.maxPending)
			return s.result(OutcomeLimitReached, reply, nil), nil
		}
	}

	task := &models.Task{
		ChatID:              chatID,
		Description:         plan.Task,
		BaseTime:            plan.BaseTime,
		Urgency:             plan.Urgency,
		Category:            plan.Category,
		EstimatedDuration:   plan.EstimatedDuration,
		MotivationalContext: plan.MotivationalContext,
		Status:              models.TaskActive,
		CreatedAt:           now.UTC(),
	}
	if task.Urgency == "" {
		task.Urgency = models.UrgencyMedium
	}
	if task.Category == "" {
		task.Category = models.DefaultCategory
	}
	for _, r := range upcoming {
		task.Reminders = append(task.Reminders, models.Reminder{
			JobID:    uuid.NewString(),
			RemindAt: r.At,
			Message:  r.Message,
			Type:     r.Type,
			Priority: r.Priority,
			Status:   models.ReminderPending,
		})
	}

	if err := s.repo.StoreWithReminders(ctx, task); err != nil {
		s.metrics.PlanOutcome(string(OutcomeFailed))
		return &Result{Outcome: OutcomeFailed, Reply: msgFailed}, fmt.Errorf("store task: %w", err)
	}

	for _, r := range task.Reminders {
		err := s.scheduler.Schedule(models.PendingReminder{
			JobID:    r.JobID,
			ChatID:   chatID,
			Task:     task.Description,
			Message:  r.Message,
			Type:     r.Type,
			RemindAt: r.RemindAt,
		})
		if err != nil {
			// stays pending in storage and is picked up by the next Recover
			log.Printf("[plan][schedule][err] job=%s: %v", r.JobID, err)
		}
	}

	log.Printf("[plan][ok] chatID=%d taskID=%d task=%q reminders=%d", chatID, task.ID, task.Description, len(task.Reminders))
	return s.result(OutcomeScheduled, s.confirmation(task), task), nil
}

func (s *taskService) chatLock(chatID int64) *sync.Mutex {
	return &s.chatLocks[uint64(chatID)%chatLockStripes]
}

func (s *taskService) result(o Outcome, reply string, task *models.Task) *Result {
	s.metrics.PlanOutcome(string(o))
	return &Result{Outcome: o, Reply: reply, Task: task}
}

func (s *taskService) formatTime(t time.Time) string {
	return t.In(s.loc).Format("2006-01-02 15:04")
}

func (s *taskService) confirmation(task *models.Task) string {
	var b strings.Builder
	b.WriteString("✅ Task scheduled: <b>" + html.EscapeString(task.Description) + "</b>\n")
	b.WriteString("📅 Due: " + s.formatTime(task.BaseTime) + " (" + s.loc.String() + ")\n")
	if task.EstimatedDuration > 0 {
		b.WriteString("⏱ Estimated effort: " + strconv.Itoa(task.EstimatedDuration) + " min\n")
	}
	if task.MotivationalContext != "" {
		b.WriteString("💡 " + html.EscapeString(task.MotivationalContext) + "\n")
	}
	b.WriteString("🔔 Reminders:\n")
	for _, r := range task.Reminders {
		b.WriteString("• " + s.formatTime(r.RemindAt))
		if r.Message != "" {
			b.WriteString(": " + html.EscapeString(r.Message))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (s *taskService) ListTasks(ctx context.Context, chatID int64, limit int) ([]models.TaskSummary, error) {
	return s.repo.ListByChat(ctx, chatID, limit)
}

// TasksDigest renders the /tasks answer.
func (s *taskService) TasksDigest(ctx context.Context, chatID int64) (string, error) {
	tasks, err := s.repo.ListByChat(ctx, chatID, 10)
	if err != nil {
		return "", err
	}
	if len(tasks) == 0 {
		return msgNoTasks, nil
	}

	var b strings.Builder
	b.WriteString("📋 <b>Your active tasks</b>\n")
	for _, t := range tasks {
		b.WriteString("\n• #" + strconv.FormatInt(t.ID, 10) + " " + html.EscapeString(t.Description))
		b.WriteString(" [due: " + s.formatTime(t.BaseTime) + ", " + string(t.Urgency) + "]")
		b.WriteString(" reminders " + strconv.Itoa(t.SentReminders) + "/" + strconv.Itoa(t.TotalReminders))
	}
	b.WriteString("\n\nCancel one with /cancel &lt;id&gt;")
	return b.String(), nil
}

// CancelTask cancels an active task of chatID and drops its armed timers. It returns
// the number of reminders that will no longer fire.
func (s *taskService) CancelTask(ctx context.Context, chatID, taskID int64) (int, error) {
	mu := s.chatLock(chatID)
	mu.Lock()
	defer mu.Unlock()

	jobIDs, err := s.repo.CancelTask(ctx, chatID, taskID)
	if err != nil {
		if !errors.Is(err, repositories.ErrTaskNotFound) {
			log.Printf("[task][cancel][err] chatID=%d taskID=%d: %v", chatID, taskID, err)
		}
		return 0, err
	}
	for _, id := range jobIDs {
		s.scheduler.Cancel(id)
	}
	log.Printf("[task][cancel] chatID=%d taskID=%d reminders=%d", chatID, taskID, len(jobIDs))
	return len(jobIDs), nil
}

// Scheduled lists the reminders armed in this process, soonest first.
func (s *taskService) Scheduled() []models.PendingReminder {
	return s.scheduler.Pending()
}

func (s *taskService) Analytics(ctx context.Context, chatID int64) (*models.Analytics, error) {
	return s.repo.Analytics(ctx, chatID, s.now().Add(-models.AnalyticsWindow))
}

// AnalyticsDigest renders the /stats answer.
func (s *taskService) AnalyticsDigest(ctx context.Context, chatID int64) (string, error) {
	a, err := s.Analytics(ctx, chatID)
	if err != nil {
		return "", err
	}
	if a.TotalTasks == 0 {
		return msgNoAnalytics, nil
	}

	var b strings.Builder
	b.WriteString("📊 <b>Your last 30 days</b>\n")
	b.WriteString("Tasks: " + strconv.Itoa(a.TotalTasks) + "\n")
	b.WriteString("\nBy category:\n")
	for _, k := range sortedKeys(a.CategoryDistribution) {
		fmt.Fprintf(&b, "• %s: %d (avg %.0f min)\n", html.EscapeString(k), a.CategoryDistribution[k], a.AvgDurationByCategory[k])
	}
	b.WriteString("\nBy urgency:\n")
	for _, k := range sortedKeys(a.UrgencyPatterns) {
		fmt.Fprintf(&b, "• %s: %d, %.0f%% completed\n", html.EscapeString(k), a.UrgencyPatterns[k], a.CompletionRateByUrgency[k])
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *taskService) Stats(ctx context.Context) (*models.Stats, error) {
	st, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, err
	}
	st.ScheduledInMemory = s.scheduler.Len()
	return st, nil
}
