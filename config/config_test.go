package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGetEnv(t *testing.T) {
	t.Setenv("NOTIFICATION_TEST_VAR", "set")
	require.Equal(t, "set", GetEnv("NOTIFICATION_TEST_VAR", "fallback"))
	require.Equal(t, "fallback", GetEnv("NOTIFICATION_TEST_VAR_MISSING", "fallback"))
}

func TestLoadEnvDefaults(t *testing.T) {
	cfg, err := LoadEnv()
	require.NoError(t, err)

	require.Equal(t, "8080", cfg.Server.Port)
	require.Equal(t, "notification.exchange", cfg.RabbitMQ.Exchange)
	require.Equal(t, "smtp", cfg.Email.Provider)
	require.Equal(t, 2*time.Second, cfg.Policy.MinInterval)
	require.Equal(t, 500, cfg.Policy.MaxDaily)
	require.Equal(t, 30*time.Minute, cfg.Policy.DeduplicationWindow)
	require.Equal(t, "Valura Notifications", cfg.Email.Mailchimp.FromName)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "mongodb://localhost:27017")
	t.Setenv("NOTIFICATION_MAX_DAILY", "25")
	t.Setenv("NOTIFICATION_MIN_INTERVAL", "5s")
	t.Setenv("MAIL_USERNAME", "mailer@example.com")

	cfg, err := LoadEnv()
	require.NoError(t, err)
	require.Equal(t, "mongodb://localhost:27017", cfg.Database.URL)
	require.Equal(t, 25, cfg.Policy.MaxDaily)
	require.Equal(t, 5*time.Second, cfg.Policy.MinInterval)
	require.Equal(t, "mailer@example.com", cfg.Email.SMTP.Username)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notification.yaml")
	content := []byte(`
server:
  port: "9090"
email:
  provider: mailchimp
  mailchimp:
    api_key: file-key
policy:
  max_daily: 10
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))
	t.Setenv("NOTIFICATION_MAX_DAILY", "12")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "9090", cfg.Server.Port)
	require.Equal(t, "mailchimp", cfg.Email.Provider)
	require.Equal(t, "file-key", cfg.Email.Mailchimp.APIKey)
	require.Equal(t, 12, cfg.Policy.MaxDaily)
}

func TestLoadMissingFileFallsBack(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, "8080", cfg.Server.Port)
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "database.url is required")
	require.Contains(t, err.Error(), "policy.max_daily must be positive")
}
