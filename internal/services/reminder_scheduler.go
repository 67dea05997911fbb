package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"tasknova/internal/metrics"
	"tasknova/internal/models"
	"tasknova/internal/repositories"
)

var (
	ErrSchedulerStopped = errors.New("scheduler is stopped")
	ErrDuplicateJob     = errors.New("job already scheduled")
)

type SchedulerConfig struct {
	CleanupSchedule string
	Retention       time.Duration
	SendTimeout     time.Duration
}

// JobScheduler registers reminders for delivery.
type JobScheduler interface {
	Schedule(r models.PendingReminder) error
	Cancel(jobID string) bool
	Pending() []models.PendingReminder
	Len() int
}

// ReminderScheduler owns one in-process timer per pending reminder. Reminders are
// persisted before they are scheduled, so Recover can rebuild the job list after a restart.
type ReminderScheduler struct {
	repo     repositories.TaskRepository
	notifier Notifier
	metrics  *metrics.Metrics
	cfg      SchedulerConfig
	cron     *cron.Cron
	now      func() time.Time

	mu       sync.Mutex
	jobs     map[string]*scheduledJob
	stopped  bool
	running  sync.WaitGroup
	stopOnce sync.Once
}

type scheduledJob struct {
	reminder models.PendingReminder
	timer    *time.Timer
}

func NewReminderScheduler(repo repositories.TaskRepository, notifier Notifier, m *metrics.Metrics, cfg SchedulerConfig) *ReminderScheduler {
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 15 * time.Second
	}
	return &ReminderScheduler{
		repo:     repo,
		notifier: notifier,
		metrics:  m,
		cfg:      cfg,
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		now:      time.Now,
		jobs:     make(map[string]*scheduledJob),
	}
}

// Start registers the housekeeping job and stops everything when ctx ends.
func (s *ReminderScheduler) Start(ctx context.Context) error {
	if s.cfg.CleanupSchedule != "" {
		if _, err := s.cron.AddFunc(s.cfg.CleanupSchedule, s.cleanup); err != nil {
			return fmt.Errorf("invalid cleanup schedule %q: %w", s.cfg.CleanupSchedule, err)
		}
	}
	s.cron.Start()
	log.Printf("[sched] started (cleanup=%q retention=%s)", s.cfg.CleanupSchedule, s.cfg.Retention)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Stop cancels pending timers and waits for in-flight deliveries. Safe to call twice.
func (s *ReminderScheduler) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopped = true
		for id, job := range s.jobs {
			job.timer.Stop()
			delete(s.jobs, id)
			s.metrics.ReminderCancelled()
		}
		s.mu.Unlock()

		<-s.cron.Stop().Done()
		s.running.Wait()
		log.Printf("[sched] stopped")
	})
}

// Recover reschedules every pending reminder from storage. Reminders that came due
// while the process was down fire right away.
func (s *ReminderScheduler) Recover(ctx context.Context) (int, error) {
	pending, err := s.repo.ListPendingReminders(ctx)
	if err != nil {
		return 0, fmt.Errorf("load pending reminders: %w", err)
	}
	n := 0
	for _, p := range pending {
		if err := s.Schedule(p); err != nil {
			if errors.Is(err, ErrDuplicateJob) {
				continue
			}
			return n, err
		}
		n++
	}
	log.Printf("[sched][recover] rescheduled %d pending reminders", n)
	return n, nil
}

// Schedule arms a one-shot timer for r. A due time in the past fires immediately.
func (s *ReminderScheduler) Schedule(r models.PendingReminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrSchedulerStopped
	}
	if _, ok := s.jobs[r.JobID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, r.JobID)
	}

	delay := r.RemindAt.Sub(s.now())
	if delay < 0 {
		delay = 0
	}
	jobID := r.JobID
	s.jobs[jobID] = &scheduledJob{
		reminder: r,
		timer:    time.AfterFunc(delay, func() { s.fire(jobID) }),
	}
	s.metrics.ReminderScheduled()
	log.Printf("[sched][add] job=%s chatID=%d at=%s (in %s)", jobID, r.ChatID, r.RemindAt.Format(time.RFC3339), delay.Round(time.Second))
	return nil
}

// Cancel drops a scheduled job. It reports false when the job is unknown or already fired.
func (s *ReminderScheduler) Cancel(jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return false
	}
	job.timer.Stop()
	delete(s.jobs, jobID)
	s.metrics.ReminderCancelled()
	return true
}

// Pending returns the scheduled jobs ordered by due time.
func (s *ReminderScheduler) Pending() []models.PendingReminder {
	s.mu.Lock()
	out := make([]models.PendingReminder, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, job.reminder)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].RemindAt.Before(out[j].RemindAt) })
	return out
}

func (s *ReminderScheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

func (s *ReminderScheduler) fire(jobID string) {
	s.mu.Lock()
	job, ok := s.jobs[jobID]
	if !ok || s.stopped {
		s.mu.Unlock()
		return
	}
	delete(s.jobs, jobID)
	s.running.Add(1)
	s.mu.Unlock()
	defer s.running.Done()

	r := job.reminder
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.SendTimeout)
	defer cancel()

	err := s.notifier.SendMessage(r.ChatID, FormatReminder(r))
	if errors.Is(err, ErrNotifierDisabled) {
		// nothing left the process; Recover picks it up once a token is configured
		log.Printf("[sched][fire][skip] job=%s chatID=%d: %v", jobID, r.ChatID, err)
		s.metrics.ReminderCancelled()
		return
	}
	if err != nil {
		log.Printf("[sched][fire][err] job=%s chatID=%d: %v", jobID, r.ChatID, err)
		s.metrics.ReminderFired(string(models.ReminderFailed))
		if err := s.repo.MarkReminderFailed(ctx, jobID); err != nil {
			log.Printf("[sched][fire][err] mark failed job=%s: %v", jobID, err)
		}
		return
	}

	s.metrics.ReminderFired(string(models.ReminderSent))
	if err := s.repo.MarkReminderSent(ctx, jobID, s.now()); err != nil {
		log.Printf("[sched][fire][err] mark sent job=%s: %v", jobID, err)
	}
	log.Printf("[sched][fire][ok] job=%s chatID=%d", jobID, r.ChatID)
}

func (s *ReminderScheduler) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	completed, err := s.repo.CompleteFinished(ctx)
	if err != nil {
		log.Printf("[sched][cleanup][err] complete: %v", err)
		return
	}
	var deleted int64
	if s.cfg.Retention > 0 {
		deleted, err = s.repo.DeleteCompletedBefore(ctx, s.now().Add(-s.cfg.Retention))
		if err != nil {
			log.Printf("[sched][cleanup][err] delete: %v", err)
			return
		}
	}
	log.Printf("[sched][cleanup] completed=%d deleted=%d", completed, deleted)
}

// FormatReminder renders the chat message for a fired reminder.
func FormatReminder(r models.PendingReminder) string {
	prefix := "⏰ Reminder: "
	switch r.Type {
	case models.ReminderCritical:
		prefix = "🚨 Critical: "
	case models.ReminderMotivation:
		prefix = "💪 Keep going: "
	}
	text := prefix + "<b>" + html.EscapeString(r.Task) + "</b>"
	if r.Message != "" && r.Message != r.Task {
		text += "\n" + html.EscapeString(r.Message)
	}
	return text
}
