package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasknova/internal/models"
	"tasknova/internal/repositories"
)

func newTaskRouter(svc *fakeTaskService) *gin.Engine {
	h := NewTaskHandler(svc)
	r := gin.New()
	r.GET("/", Home)
	r.GET("/healthz", Health)
	r.GET("/tasks", h.List)
	r.GET("/stats", h.Stats)
	r.DELETE("/tasks/:id", h.Cancel)
	r.GET("/analytics", h.Analytics)
	r.GET("/scheduled", h.Scheduled)
	return r
}

func del(r http.Handler, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, target, nil))
	return w
}

func get(r http.Handler, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestTaskHandler_List(t *testing.T) {
	svc := &fakeTaskService{tasks: []models.TaskSummary{
		{Task: models.Task{ID: 3, ChatID: 55, Description: "pay rent", Urgency: models.UrgencyHigh}, TotalReminders: 2, SentReminders: 1},
	}}
	r := newTaskRouter(svc)

	w := get(r, "/tasks?chat_id=55&limit=5")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, [2]int64{55, 5}, svc.listArgs)

	var got []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "pay rent", got[0]["task"])
	assert.EqualValues(t, 2, got[0]["total_reminders"])

	get(r, "/tasks?chat_id=55&limit=abc")
	assert.Equal(t, [2]int64{55, 10}, svc.listArgs)
}

func TestTaskHandler_ListBadChatID(t *testing.T) {
	r := newTaskRouter(&fakeTaskService{})
	assert.Equal(t, http.StatusBadRequest, get(r, "/tasks").Code)
	assert.Equal(t, http.StatusBadRequest, get(r, "/tasks?chat_id=abc").Code)
}

func TestTaskHandler_Errors(t *testing.T) {
	r := newTaskRouter(&fakeTaskService{err: errors.New("boom")})
	assert.Equal(t, http.StatusInternalServerError, get(r, "/tasks?chat_id=1").Code)
	assert.Equal(t, http.StatusInternalServerError, get(r, "/stats").Code)
}

func TestTaskHandler_Stats(t *testing.T) {
	r := newTaskRouter(&fakeTaskService{stats: &models.Stats{
		TasksByStatus:     map[string]int{"active": 2},
		RemindersByStatus: map[string]int{"pending": 4},
		UniqueChats:       1,
		ScheduledInMemory: 4,
	}})
	w := get(r, "/stats")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"active":2`)
}

func TestHomeAndHealth(t *testing.T) {
	r := newTaskRouter(&fakeTaskService{})

	w := get(r, "/")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "TaskNova is running!", w.Body.String())

	w = get(r, "/healthz")
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestTaskHandler_Cancel(t *testing.T) {
	svc := &fakeTaskService{cancelled: 2}
	r := newTaskRouter(svc)

	w := del(r, "/tasks/8?chat_id=55")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":8,"cancelled_reminders":2}`, w.Body.String())
	assert.Equal(t, [2]int64{55, 8}, svc.cancelArgs)

	assert.Equal(t, http.StatusBadRequest, del(r, "/tasks/8").Code)
	assert.Equal(t, http.StatusBadRequest, del(r, "/tasks/x?chat_id=55").Code)

	svc.cancelErr = repositories.ErrTaskNotFound
	assert.Equal(t, http.StatusNotFound, del(r, "/tasks/8?chat_id=55").Code)

	svc.cancelErr = errors.New("boom")
	assert.Equal(t, http.StatusInternalServerError, del(r, "/tasks/8?chat_id=55").Code)
}

func TestTaskHandler_Analytics(t *testing.T) {
	svc := &fakeTaskService{analytics: &models.Analytics{
		ChatID:               55,
		TotalTasks:           2,
		CategoryDistribution: map[string]int{"WORK": 2},
	}}
	r := newTaskRouter(svc)

	w := get(r, "/analytics?chat_id=55")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"category_distribution":{"WORK":2}`)
	assert.Equal(t, http.StatusBadRequest, get(r, "/analytics").Code)

	svc.err = errors.New("boom")
	assert.Equal(t, http.StatusInternalServerError, get(r, "/analytics?chat_id=55").Code)
}

func TestTaskHandler_Scheduled(t *testing.T) {
	at := time.Date(2026, 10, 20, 9, 0, 0, 0, time.UTC)
	r := newTaskRouter(&fakeTaskService{scheduled: []models.PendingReminder{
		{JobID: "j1", ChatID: 55, Task: "pay rent", Type: models.ReminderCritical, RemindAt: at},
	}})

	w := get(r, "/scheduled")
	require.Equal(t, http.StatusOK, w.Code)
	var got []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "j1", got[0]["job_id"])
	assert.Equal(t, "CRITICAL", got[0]["type"])
	assert.Equal(t, "2026-10-20T09:00:00Z", got[0]["remind_at"])
}
