package handlers

import (
	"errors"
	"log"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"tasknova/internal/services"
)

var errBadChatID = errors.New("chat_id must be a non-zero integer")

// chatIDFromQuery reads the chat_id query parameter.
func chatIDFromQuery(c *gin.Context) (int64, error) {
	raw := strings.TrimSpace(c.Query("chat_id"))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, errBadChatID
	}
	return id, nil
}

// intQuery parses an optional integer query parameter, falling back to def.
func intQuery(c *gin.Context, key string, def int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// parseCommand splits "/tasks@MyBot arg" into "tasks". Plain text yields "".
func parseCommand(text string) string {
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	cmd := strings.Fields(text)[0][1:]
	if at := strings.IndexByte(cmd, '@'); at >= 0 {
		cmd = cmd[:at]
	}
	return strings.ToLower(cmd)
}

// commandArg returns the first argument after the command, or "".
func commandArg(text string) string {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return ""
	}
	return fields[1]
}

func reply(n services.Notifier, chatID int64, text string) {
	if n == nil || text == "" {
		return
	}
	if err := n.SendMessage(chatID, text); err != nil {
		log.Printf("[tg][reply][err] chatID=%d: %v", chatID, err)
	}
}
