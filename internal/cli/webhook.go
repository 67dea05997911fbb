package cli

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"tasknova/internal/services"
)

var webhookURL string

func init() {
	cmd := &cobra.Command{
		Use:   "set-webhook",
		Short: "Register the webhook URL with Telegram",
		RunE:  runSetWebhook,
	}
	cmd.Flags().StringVar(&webhookURL, "url", "", "Public webhook URL (default: telegram.webhook_url)")

	RootCmd.AddCommand(cmd)
}

func runSetWebhook(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	url := webhookURL
	if url == "" {
		url = cfg.Telegram.WebhookURL
	}
	if url == "" {
		return errors.New("no webhook url: pass --url or set telegram.webhook_url")
	}
	if cfg.Telegram.Token == "" {
		return errors.New("telegram token is not configured")
	}

	tg, err := services.NewTelegramService(cfg.Telegram.Token, cfg.Telegram.APIEndpoint, &http.Client{Timeout: cfg.Reminders.SendTimeout})
	if err != nil {
		return err
	}
	if err := tg.SetWebhook(url, cfg.Telegram.WebhookSecret); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "webhook set to %s\n", url)
	return nil
}
