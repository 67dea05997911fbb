package handlers

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	lru "github.com/hashicorp/golang-lru/v2"

	"tasknova/internal/metrics"
	"tasknova/internal/repositories"
	"tasknova/internal/services"
)

const secretHeader = "X-Telegram-Bot-Api-Secret-Token"

// seenUpdatesSize bounds the update_id memory used to drop Telegram redeliveries.
const seenUpdatesSize = 1024

const usageText = "👋 Hi, I'm <b>TaskNova</b>.\n\n" +
	"Just tell me what to remember, for example:\n" +
	"<i>Remind me to submit the report tomorrow at 5pm</i>\n\n" +
	"I'll work out the deadline and send you a few reminders before it.\n\n" +
	"/tasks - list your active tasks\n" +
	"/cancel &lt;id&gt; - cancel a task and its reminders\n" +
	"/stats - your patterns over the last 30 days\n" +
	"/help - show this message"

const cancelUsage = "Usage: /cancel &lt;id&gt;. The ids are shown by /tasks."

type TelegramHandler struct {
	svc      services.TaskService
	notifier services.Notifier
	secret   string
	metrics  *metrics.Metrics
	seen     *lru.Cache[int, struct{}]
}

// NewTelegramHandler builds the webhook handler. An empty secret disables the header check.
func NewTelegramHandler(svc services.TaskService, notifier services.Notifier, secret string, m *metrics.Metrics) *TelegramHandler {
	seen, err := lru.New[int, struct{}](seenUpdatesSize)
	if err != nil {
		// only fails for a non-positive size
		panic(err)
	}
	return &TelegramHandler{svc: svc, notifier: notifier, secret: secret, metrics: m, seen: seen}
}

// Webhook godoc
// @Summary      Telegram webhook
// @Description  Receives a Telegram update, plans reminders for text messages and answers in chat.
// @Tags         telegram
// @Accept       json
// @Produce      json
// @Param        X-Telegram-Bot-Api-Secret-Token  header  string  false  "Webhook secret"
// @Success      200  {object}  map[string]bool
// @Failure      401  {object}  map[string]string
// @Router       /webhook [post]
func (h *TelegramHandler) Webhook(c *gin.Context) {
	if h.secret != "" {
		got := c.GetHeader(secretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) != 1 {
			log.Printf("[tg][webhook][deny] bad secret from %s", c.ClientIP())
			h.metrics.UpdateReceived("unauthorized")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid secret token"})
			return
		}
	}

	var up tgbotapi.Update
	if err := c.ShouldBindJSON(&up); err != nil {
		log.Printf("[tg][webhook][bind][err] %v", err)
		h.metrics.UpdateReceived("invalid")
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	if seen, _ := h.seen.ContainsOrAdd(up.UpdateID, struct{}{}); seen {
		log.Printf("[tg][webhook][dup] update_id=%d", up.UpdateID)
		h.metrics.UpdateReceived("duplicate")
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	msg := up.Message
	if msg == nil || msg.Chat == nil || strings.TrimSpace(msg.Text) == "" {
		h.metrics.UpdateReceived("ignored")
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)
	log.Printf("[tg][webhook] update_id=%d chatID=%d text=%q", up.UpdateID, chatID, text)

	switch parseCommand(text) {
	case "start", "help":
		h.metrics.UpdateReceived("command")
		reply(h.notifier, chatID, usageText)

	case "tasks":
		h.metrics.UpdateReceived("command")
		digest, err := h.svc.TasksDigest(c.Request.Context(), chatID)
		if err != nil {
			log.Printf("[tg][webhook][tasks][err] chatID=%d: %v", chatID, err)
			digest = "⚠️ Couldn't load your tasks right now. Please try again later."
		}
		reply(h.notifier, chatID, digest)

	case "cancel":
		h.metrics.UpdateReceived("command")
		reply(h.notifier, chatID, h.cancel(c, chatID, commandArg(text)))

	case "stats":
		h.metrics.UpdateReceived("command")
		digest, err := h.svc.AnalyticsDigest(c.Request.Context(), chatID)
		if err != nil {
			log.Printf("[tg][webhook][stats][err] chatID=%d: %v", chatID, err)
			digest = "⚠️ Couldn't load your stats right now. Please try again later."
		}
		reply(h.notifier, chatID, digest)

	default:
		h.metrics.UpdateReceived("message")
		res, err := h.svc.HandleText(c.Request.Context(), chatID, text)
		if err != nil {
			log.Printf("[tg][webhook][err] chatID=%d: %v", chatID, err)
		}
		if res != nil {
			reply(h.notifier, chatID, res.Reply)
		}
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *TelegramHandler) cancel(c *gin.Context, chatID int64, arg string) string {
	taskID, err := strconv.ParseInt(strings.TrimPrefix(arg, "#"), 10, 64)
	if err != nil || taskID <= 0 {
		return cancelUsage
	}
	n, err := h.svc.CancelTask(c.Request.Context(), chatID, taskID)
	switch {
	case errors.Is(err, repositories.ErrTaskNotFound):
		return fmt.Sprintf("⚠️ No active task #%d.", taskID)
	case err != nil:
		log.Printf("[tg][webhook][cancel][err] chatID=%d taskID=%d: %v", chatID, taskID, err)
		return "⚠️ Couldn't cancel the task right now. Please try again later."
	}
	return fmt.Sprintf("🗑 Task #%d cancelled, %d reminders dropped.", taskID, n)
}
