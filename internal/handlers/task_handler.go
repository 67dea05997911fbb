package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tasknova/internal/repositories"
	"tasknova/internal/services"
)

type TaskHandler struct {
	service services.TaskService
}

func NewTaskHandler(service services.TaskService) *TaskHandler {
	return &TaskHandler{service: service}
}

// List godoc
// @Summary      List active tasks of a chat
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        chat_id  query  int  true   "Telegram chat id"
// @Param        limit    query  int  false  "Max tasks (default 10)"
// @Success      200  {array}   models.TaskSummary
// @Failure      400  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /tasks [get]
func (h *TaskHandler) List(c *gin.Context) {
	chatID, err := chatIDFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	limit := intQuery(c, "limit", 10)

	tasks, err := h.service.ListTasks(c.Request.Context(), chatID, limit)
	if err != nil {
		log.Printf("[task][list][err] chatID=%d: %v", chatID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list tasks"})
		return
	}
	c.JSON(http.StatusOK, tasks)
}

// Stats godoc
// @Summary      Task and reminder counters
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  models.Stats
// @Failure      500  {object}  map[string]string
// @Router       /stats [get]
func (h *TaskHandler) Stats(c *gin.Context) {
	st, err := h.service.Stats(c.Request.Context())
	if err != nil {
		log.Printf("[task][stats][err] %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load stats"})
		return
	}
	c.JSON(http.StatusOK, st)
}

// Cancel godoc
// @Summary      Cancel an active task and its pending reminders
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id       path   int  true  "Task id"
// @Param        chat_id  query  int  true  "Telegram chat id owning the task"
// @Success      200  {object}  map[string]int64
// @Failure      400  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /tasks/{id} [delete]
func (h *TaskHandler) Cancel(c *gin.Context) {
	chatID, err := chatIDFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	taskID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || taskID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}

	n, err := h.service.CancelTask(c.Request.Context(), chatID, taskID)
	if errors.Is(err, repositories.ErrTaskNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	if err != nil {
		log.Printf("[task][cancel][err] chatID=%d taskID=%d: %v", chatID, taskID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to cancel task"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": taskID, "cancelled_reminders": n})
}

// Analytics godoc
// @Summary      Task patterns of a chat over the last 30 days
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        chat_id  query  int  true  "Telegram chat id"
// @Success      200  {object}  models.Analytics
// @Failure      400  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /analytics [get]
func (h *TaskHandler) Analytics(c *gin.Context) {
	chatID, err := chatIDFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	a, err := h.service.Analytics(c.Request.Context(), chatID)
	if err != nil {
		log.Printf("[task][analytics][err] chatID=%d: %v", chatID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load analytics"})
		return
	}
	c.JSON(http.StatusOK, a)
}

// Scheduled godoc
// @Summary      Reminders armed in this process, soonest first
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  models.PendingReminder
// @Router       /scheduled [get]
func (h *TaskHandler) Scheduled(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Scheduled())
}

// Home godoc
// @Summary  Liveness banner
// @Produce  plain
// @Success  200  {string}  string
// @Router   / [get]
func Home(c *gin.Context) {
	c.String(http.StatusOK, "TaskNova is running!")
}

// Health godoc
// @Summary  Health check
// @Produce  json
// @Success  200  {object}  map[string]string
// @Router   /healthz [get]
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
