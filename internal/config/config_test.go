package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DATABASE_DRIVER", "")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "tasknova.db", cfg.Database.DSN)
	assert.Equal(t, "gemini-2.0-flash", cfg.Gemini.Model)
	assert.Equal(t, 10*time.Second, cfg.Gemini.Timeout)
	assert.Equal(t, "Asia/Kolkata", cfg.Reminders.Timezone)
	assert.Equal(t, 50, cfg.Reminders.MaxPending())
	assert.Equal(t, 7*24*time.Hour, cfg.Reminders.Retention())
}

func TestLoadConfig_ExplicitZerosAreKept(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DATABASE_DRIVER", "")

	cfg, err := LoadConfig(writeConfig(t, "reminders:\n  max_pending_per_chat: 0\n  retention_days: 0\n"))
	require.NoError(t, err)
	require.NotNil(t, cfg.Reminders.MaxPendingPerChat)
	assert.Zero(t, *cfg.Reminders.MaxPendingPerChat)
	assert.Zero(t, cfg.Reminders.MaxPending())
	assert.Zero(t, cfg.Reminders.Retention())

	cfg, err = LoadConfig(writeConfig(t, "reminders:\n  max_pending_per_chat: 5\n  retention_days: 30\n"))
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Reminders.MaxPending())
	assert.Equal(t, 30*24*time.Hour, cfg.Reminders.Retention())
}

func TestRemindersConfig_UnsetUsesDefaults(t *testing.T) {
	var r RemindersConfig
	assert.Equal(t, 50, r.MaxPending())
	assert.Equal(t, 7*24*time.Hour, r.Retention())
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 8080
database:
  driver: postgres
  url: postgres://localhost/tasknova?sslmode=disable
telegram:
  token: from-file
gemini:
  model: gemini-1.5-pro
  timeout: 3s
reminders:
  timezone: UTC
  cleanup_schedule: "*/10 * * * *"
`)
	t.Setenv("BOT_TOKEN", "from-env")
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DATABASE_DRIVER", "")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "from-env", cfg.Telegram.Token)
	assert.Equal(t, "key", cfg.Gemini.APIKey)
	assert.Equal(t, "gemini-1.5-pro", cfg.Gemini.Model)
	assert.Equal(t, 3*time.Second, cfg.Gemini.Timeout)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DATABASE_DRIVER", "")
	t.Setenv("DATABASE_URL", "")

	cases := map[string]string{
		"driver":    "database:\n  driver: mysql\n  url: x\n",
		"timezone":  "reminders:\n  timezone: Mars/Olympus\n",
		"cron":      "reminders:\n  cleanup_schedule: every now and then\n",
		"yaml":      "server: [",
		"postgres":  "database:\n  driver: postgres\n",
		"retention": "reminders:\n  retention_days: -1\n",
		"cap":       "reminders:\n  max_pending_per_chat: -3\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig_BadPortEnv(t *testing.T) {
	t.Setenv("PORT", "eighty")
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
