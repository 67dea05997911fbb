package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tasknova/internal/models"
)

var (
	ErrEmptyTask    = errors.New("task has no reminders")
	ErrTaskNotFound = errors.New("task not found")
)

type TaskRepository interface {
	StoreWithReminders(ctx context.Context, task *models.Task) error
	ListPendingReminders(ctx context.Context) ([]models.PendingReminder, error)
	MarkReminderSent(ctx context.Context, jobID string, at time.Time) error
	MarkReminderFailed(ctx context.Context, jobID string) error
	CountPendingByChat(ctx context.Context, chatID int64) (int, error)
	ListByChat(ctx context.Context, chatID int64, limit int) ([]models.TaskSummary, error)
	CancelTask(ctx context.Context, chatID, taskID int64) ([]string, error)
	Analytics(ctx context.Context, chatID int64, since time.Time) (*models.Analytics, error)

	// housekeeping
	CompleteFinished(ctx context.Context) (int64, error)
	DeleteCompletedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	Stats(ctx context.Context) (*models.Stats, error)
}

type taskRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewTaskRepository(db *sql.DB, dialect Dialect) TaskRepository {
	return &taskRepository{db: db, dialect: dialect}
}

func (r *taskRepository) q(query string) string { return r.dialect.Rebind(query) }

func (r *taskRepository) StoreWithReminders(ctx context.Context, task *models.Task) error {
	if len(task.Reminders) == 0 {
		return ErrEmptyTask
	}
	if task.Status == "" {
		task.Status = models.TaskActive
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}
	if task.EstimatedDuration <= 0 {
		task.EstimatedDuration = models.DefaultDurationMinutes
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, r.q(`
		INSERT INTO tasks (chat_id, task_description, base_time, urgency_level, task_category,
		                   estimated_duration, motivational_context, status, created_at)
		VALUES (?,?,?,?,?,?,?,?,?)
		RETURNING id`),
		task.ChatID, task.Description, task.BaseTime.UTC(), string(task.Urgency), task.Category,
		task.EstimatedDuration, task.MotivationalContext, string(task.Status), task.CreatedAt.UTC(),
	).Scan(&task.ID)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}

	insertReminder := r.q(`
		INSERT INTO reminders (task_id, job_id, remind_at, message, reminder_type, priority_level, status, created_at)
		VALUES (?,?,?,?,?,?,?,?)
		RETURNING id`)
	for i := range task.Reminders {
		rem := &task.Reminders[i]
		rem.TaskID = task.ID
		if rem.Status == "" {
			rem.Status = models.ReminderPending
		}
		if rem.CreatedAt.IsZero() {
			rem.CreatedAt = task.CreatedAt
		}
		rem.Type = models.NormalizeReminderType(string(rem.Type))
		rem.Priority = models.NormalizePriority(rem.Priority)
		if err := tx.QueryRowContext(ctx, insertReminder,
			rem.TaskID, rem.JobID, rem.RemindAt.UTC(), rem.Message, string(rem.Type), rem.Priority,
			string(rem.Status), rem.CreatedAt.UTC(),
		).Scan(&rem.ID); err != nil {
			return fmt.Errorf("insert reminder %s: %w", rem.JobID, err)
		}
	}
	return tx.Commit()
}

func (r *taskRepository) ListPendingReminders(ctx context.Context) ([]models.PendingReminder, error) {
	rows, err := r.db.QueryContext(ctx, r.q(`
SELECT r.job_id, t.chat_id, t.task_description, r.message, r.reminder_type, r.remind_at
FROM reminders r
JOIN tasks t ON t.id = r.task_id
WHERE r.status = ?
ORDER BY r.remind_at ASC`), string(models.ReminderPending))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.PendingReminder
	for rows.Next() {
		var p models.PendingReminder
		var typ string
		if err := rows.Scan(&p.JobID, &p.ChatID, &p.Task, &p.Message, &typ, &p.RemindAt); err != nil {
			return nil, err
		}
		p.Type = models.ReminderType(typ)
		out = append(out, p)
	}
	return out, rows.Err()
}

// Only pending reminders move to sent or failed; later calls are no-ops.
func (r *taskRepository) MarkReminderSent(ctx context.Context, jobID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		r.q(`UPDATE reminders SET status = ?, sent_at = ? WHERE job_id = ? AND status = ?`),
		string(models.ReminderSent), at.UTC(), jobID, string(models.ReminderPending))
	return err
}

func (r *taskRepository) MarkReminderFailed(ctx context.Context, jobID string) error {
	_, err := r.db.ExecContext(ctx,
		r.q(`UPDATE reminders SET status = ? WHERE job_id = ? AND status = ?`),
		string(models.ReminderFailed), jobID, string(models.ReminderPending))
	return err
}

func (r *taskRepository) CountPendingByChat(ctx context.Context, chatID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, r.q(`
		SELECT COUNT(*) FROM reminders r
		JOIN tasks t ON t.id = r.task_id
		WHERE t.chat_id = ? AND r.status = ?`),
		chatID, string(models.ReminderPending)).Scan(&n)
	return n, err
}

func (r *taskRepository) ListByChat(ctx context.Context, chatID int64, limit int) ([]models.TaskSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx, r.q(`
SELECT t.id, t.chat_id, t.task_description, t.base_time, t.urgency_level, t.task_category,
       t.estimated_duration, t.motivational_context, t.status, t.created_at,
       COUNT(r.id),
       COUNT(CASE WHEN r.status = 'sent' THEN 1 END),
       COUNT(CASE WHEN r.reminder_type = 'CRITICAL' THEN 1 END),
       COUNT(CASE WHEN r.reminder_type = 'MOTIVATION' THEN 1 END)
FROM tasks t
LEFT JOIN reminders r ON r.task_id = t.id
WHERE t.chat_id = ? AND t.status = ?
GROUP BY t.id
ORDER BY t.created_at DESC, t.id DESC
LIMIT ?`), chatID, string(models.TaskActive), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.TaskSummary
	for rows.Next() {
		var s models.TaskSummary
		var urgency, status string
		if err := rows.Scan(
			&s.ID, &s.ChatID, &s.Description, &s.BaseTime, &urgency, &s.Category,
			&s.EstimatedDuration, &s.MotivationalContext, &status, &s.CreatedAt,
			&s.TotalReminders, &s.SentReminders, &s.CriticalReminders, &s.MotivationReminders,
		); err != nil {
			return nil, err
		}
		s.Urgency = models.Urgency(urgency)
		s.Status = models.TaskStatus(status)
		out = append(out, s)
	}
	return out, rows.Err()
}

// CancelTask marks an active task of chatID and its pending reminders cancelled.
// It returns the job ids that were still pending so their timers can be dropped.
func (r *taskRepository) CancelTask(ctx context.Context, chatID, taskID int64) ([]string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		r.q(`UPDATE tasks SET status = ? WHERE id = ? AND chat_id = ? AND status = ?`),
		string(models.TaskCancelled), taskID, chatID, string(models.TaskActive))
	if err != nil {
		return nil, fmt.Errorf("cancel task: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, err
	} else if n == 0 {
		return nil, ErrTaskNotFound
	}

	rows, err := tx.QueryContext(ctx,
		r.q(`SELECT job_id FROM reminders WHERE task_id = ? AND status = ?`),
		taskID, string(models.ReminderPending))
	if err != nil {
		return nil, fmt.Errorf("list pending jobs: %w", err)
	}
	var jobIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		jobIDs = append(jobIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx,
		r.q(`UPDATE reminders SET status = ? WHERE task_id = ? AND status = ?`),
		string(models.ReminderCancelled), taskID, string(models.ReminderPending)); err != nil {
		return nil, fmt.Errorf("cancel reminders: %w", err)
	}
	return jobIDs, tx.Commit()
}

// CompleteFinished marks active tasks whose reminders are all delivered (or failed) as completed.
func (r *taskRepository) CompleteFinished(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.q(`
UPDATE tasks SET status = ?
WHERE status = ?
  AND EXISTS (SELECT 1 FROM reminders r WHERE r.task_id = tasks.id)
  AND NOT EXISTS (SELECT 1 FROM reminders r WHERE r.task_id = tasks.id AND r.status = ?)`),
		string(models.TaskCompleted), string(models.TaskActive), string(models.ReminderPending))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *taskRepository) DeleteCompletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, r.q(`
DELETE FROM reminders WHERE task_id IN (
	SELECT id FROM tasks WHERE status IN (?, ?) AND created_at < ?
)`), string(models.TaskCompleted), string(models.TaskCancelled), cutoff.UTC()); err != nil {
		return 0, fmt.Errorf("delete reminders: %w", err)
	}
	res, err := tx.ExecContext(ctx,
		r.q(`DELETE FROM tasks WHERE status IN (?, ?) AND created_at < ?`),
		string(models.TaskCompleted), string(models.TaskCancelled), cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete tasks: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, tx.Commit()
}

// Stats aggregates over all chats; the completion rate covers tasks created since
// models.AnalyticsWindow ago.
func (r *taskRepository) Stats(ctx context.Context) (*models.Stats, error) {
	st := &models.Stats{
		TasksByStatus:       map[string]int{},
		RemindersByStatus:   map[string]int{},
		TasksByUrgency:      map[string]int{},
		TasksByCategory:     map[string]int{},
		RemindersByType:     map[string]int{},
		RemindersByPriority: map[string]int{},
	}
	groups := []struct {
		name  string
		query string
		dst   map[string]int
	}{
		{"tasks by status", `SELECT status, COUNT(*) FROM tasks GROUP BY status`, st.TasksByStatus},
		{"reminders by status", `SELECT status, COUNT(*) FROM reminders GROUP BY status`, st.RemindersByStatus},
		{"tasks by urgency", `SELECT urgency_level, COUNT(*) FROM tasks GROUP BY urgency_level`, st.TasksByUrgency},
		{"tasks by category", `SELECT task_category, COUNT(*) FROM tasks GROUP BY task_category`, st.TasksByCategory},
		{"reminders by type", `SELECT reminder_type, COUNT(*) FROM reminders GROUP BY reminder_type`, st.RemindersByType},
		{"reminders by priority", `SELECT priority_level, COUNT(*) FROM reminders GROUP BY priority_level`, st.RemindersByPriority},
	}
	for _, g := range groups {
		if err := r.countBy(ctx, g.dst, g.query); err != nil {
			return nil, fmt.Errorf("%s: %w", g.name, err)
		}
	}
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT chat_id) FROM tasks`).Scan(&st.UniqueChats); err != nil {
		return nil, fmt.Errorf("unique chats: %w", err)
	}
	if err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(AVG(estimated_duration), 0) FROM tasks WHERE estimated_duration > 0`,
	).Scan(&st.AverageTaskDuration); err != nil {
		return nil, fmt.Errorf("average duration: %w", err)
	}
	since := time.Now().Add(-models.AnalyticsWindow).UTC()
	if err := r.db.QueryRowContext(ctx, r.q(`
SELECT COALESCE(AVG(CASE WHEN status = 'completed' THEN 1.0 ELSE 0.0 END) * 100, 0)
FROM tasks WHERE created_at > ?`), since).Scan(&st.CompletionRate30d); err != nil {
		return nil, fmt.Errorf("completion rate: %w", err)
	}
	return st, nil
}

// Analytics summarises the tasks chatID created after since.
func (r *taskRepository) Analytics(ctx context.Context, chatID int64, since time.Time) (*models.Analytics, error) {
	a := &models.Analytics{
		ChatID:                  chatID,
		CategoryDistribution:    map[string]int{},
		UrgencyPatterns:         map[string]int{},
		AvgDurationByCategory:   map[string]float64{},
		CompletionRateByUrgency: map[string]float64{},
	}
	since = since.UTC()

	if err := r.countBy(ctx, a.CategoryDistribution, r.q(`
SELECT task_category, COUNT(*) FROM tasks
WHERE chat_id = ? AND created_at > ?
GROUP BY task_category`), chatID, since); err != nil {
		return nil, fmt.Errorf("category distribution: %w", err)
	}
	if err := r.countBy(ctx, a.UrgencyPatterns, r.q(`
SELECT urgency_level, COUNT(*) FROM tasks
WHERE chat_id = ? AND created_at > ?
GROUP BY urgency_level`), chatID, since); err != nil {
		return nil, fmt.Errorf("urgency patterns: %w", err)
	}
	if err := r.averageBy(ctx, a.AvgDurationByCategory, r.q(`
SELECT task_category, AVG(estimated_duration) FROM tasks
WHERE chat_id = ? AND created_at > ?
GROUP BY task_category`), chatID, since); err != nil {
		return nil, fmt.Errorf("duration by category: %w", err)
	}
	if err := r.averageBy(ctx, a.CompletionRateByUrgency, r.q(`
SELECT urgency_level, AVG(CASE WHEN status = 'completed' THEN 1.0 ELSE 0.0 END) * 100 FROM tasks
WHERE chat_id = ? AND created_at > ?
GROUP BY urgency_level`), chatID, since); err != nil {
		return nil, fmt.Errorf("completion by urgency: %w", err)
	}
	for _, n := range a.CategoryDistribution {
		a.TotalTasks += n
	}
	return a, nil
}

func (r *taskRepository) countBy(ctx context.Context, dst map[string]int, query string, args ...any) error {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return err
		}
		dst[key] = n
	}
	return rows.Err()
}

func (r *taskRepository) averageBy(ctx context.Context, dst map[string]float64, query string, args ...any) error {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var v float64
		if err := rows.Scan(&key, &v); err != nil {
			return err
		}
		dst[key] = v
	}
	return rows.Err()
}
