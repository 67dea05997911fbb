package services

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

var (
	// ErrNotifierDisabled is returned when no bot token is configured. Nothing was sent.
	ErrNotifierDisabled = errors.New("telegram notifier is disabled")
	ErrNoChat           = errors.New("chat id is empty")
)

// Notifier delivers a text message to a chat.
type Notifier interface {
	SendMessage(chatID int64, text string) error
}

type TelegramService struct {
	bot *tgbotapi.BotAPI
}

// NewTelegramService connects to the Bot API (getMe). An empty token yields a nil
// service whose SendMessage returns ErrNotifierDisabled, so the bot can run without
// Telegram in dev.
func NewTelegramService(botToken, apiEndpoint string, client *http.Client) (*TelegramService, error) {
	if botToken == "" {
		log.Printf("[tg][init] BOT_TOKEN is empty, outbound messages are disabled")
		return nil, nil
	}
	if apiEndpoint == "" {
		apiEndpoint = tgbotapi.APIEndpoint
	}
	if client == nil {
		client = &http.Client{}
	}
	bot, err := tgbotapi.NewBotAPIWithClient(botToken, apiEndpoint, client)
	if err != nil {
		return nil, fmt.Errorf("telegram getMe failed: %w", err)
	}
	log.Printf("[tg][init] authorized as @%s", bot.Self.UserName)
	return &TelegramService{bot: bot}, nil
}

func (t *TelegramService) SendMessage(chatID int64, text string) error {
	if t == nil || t.bot == nil {
		log.Printf("[tg][skip] bot disabled, chatID=%d", chatID)
		return ErrNotifierDisabled
	}
	if chatID == 0 {
		return ErrNoChat
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	log.Printf("[tg][send] chatID=%d text=%q", chatID, text)
	if _, err := t.bot.Send(msg); err != nil {
		log.Printf("[tg][send][err] chatID=%d: %v", chatID, err)
		return fmt.Errorf("telegram sendMessage failed: %w", err)
	}
	return nil
}

// SetWebhook registers url with Telegram. secret, when set, is echoed back by
// Telegram in the X-Telegram-Bot-Api-Secret-Token header of every update.
func (t *TelegramService) SetWebhook(url, secret string) error {
	if t == nil || t.bot == nil || url == "" {
		return nil
	}
	params := tgbotapi.Params{"url": url}
	params.AddNonEmpty("secret_token", secret)

	log.Printf("[tg][setWebhook] %s", url)
	resp, err := t.bot.MakeRequest("setWebhook", params)
	if err != nil {
		return fmt.Errorf("telegram setWebhook failed: %w", err)
	}
	log.Printf("[tg][setWebhook] ok=%v desc=%s", resp.Ok, resp.Description)
	return nil
}
