package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"telegram-chanreader/internal/infra/config"
)

// setRequiredEnv выставляет обязательный минимум переменных окружения.
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("API_ID", "12345")
	t.Setenv("API_HASH", "abcdef0123456789")
	t.Setenv("PHONE_NUMBER", "+79001234567")
	// Явно зачищаем опциональные переменные, чтобы тест не зависел от среды.
	for _, name := range []string{
		"DATA_DIR", "DOWNLOADS_DIR", "CHANNELS", "WEBHOOK_URL", "WEBHOOK_TOKEN",
		"WEBHOOK_HEADER", "RETRY_INTERVAL", "POLL_INTERVAL", "POLL_PAGE_SIZE",
		"THROTTLE_RPS", "CLEAN_LINKS", "CLEAN_EMOJI", "LOG_LEVEL", "APP_TIMEZONE",
		"TEST_DC", "LOG_FILE",
	} {
		t.Setenv(name, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.APIID != 12345 || cfg.PhoneNumber != "+79001234567" {
		t.Errorf("required fields = %+v", cfg)
	}
	if cfg.RetryIntervalSec != 30 || cfg.PollIntervalSec != 10 || cfg.PollPageSize != 50 || cfg.ThrottleRPS != 10 {
		t.Errorf("interval defaults = %+v", cfg)
	}
	if cfg.WebhookHeader != "X-N8N-Auth" {
		t.Errorf("WebhookHeader = %q, want X-N8N-Auth", cfg.WebhookHeader)
	}
	if cfg.LogLevel != "info" || cfg.CleanLinks || cfg.CleanEmoji || cfg.TestDC {
		t.Errorf("flag defaults = %+v", cfg)
	}
	if cfg.SessionFile != filepath.Join("data", "session.bin") {
		t.Errorf("SessionFile = %q", cfg.SessionFile)
	}
	if cfg.QueueDBFile != filepath.Join("data", "pending.db") {
		t.Errorf("QueueDBFile = %q", cfg.QueueDBFile)
	}
	if cfg.LastIDFile != filepath.Join("data", "last_message_ids.json") {
		t.Errorf("LastIDFile = %q", cfg.LastIDFile)
	}

	// Отсутствующий .env даёт предупреждение, а не ошибку.
	found := false
	for _, w := range cfg.Warnings() {
		if strings.Contains(w, "missing.env") {
			found = true
		}
	}
	if !found {
		t.Errorf("Warnings() = %v, want note about missing .env", cfg.Warnings())
	}
}

func TestLoadRequiredFields(t *testing.T) {
	cases := []struct {
		name  string
		unset string
	}{
		{name: "missingAPIID", unset: "API_ID"},
		{name: "missingAPIHash", unset: "API_HASH"},
		{name: "missingPhone", unset: "PHONE_NUMBER"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tc.unset, "")

			if _, err := config.Load(filepath.Join(t.TempDir(), "missing.env")); err == nil {
				t.Fatalf("Load() without %s must fail", tc.unset)
			}
		})
	}
}

func TestLoadChannelsAndOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CHANNELS", "@first  -1001234567890\n t.me/third ")
	t.Setenv("RETRY_INTERVAL", "90")
	t.Setenv("CLEAN_LINKS", "true")
	t.Setenv("WEBHOOK_URL", "https://n8n.example.org/hook")

	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	want := []string{"@first", "-1001234567890", "t.me/third"}
	if len(cfg.Channels) != len(want) {
		t.Fatalf("Channels = %v, want %v", cfg.Channels, want)
	}
	for i := range want {
		if cfg.Channels[i] != want[i] {
			t.Errorf("Channels[%d] = %q, want %q", i, cfg.Channels[i], want[i])
		}
	}
	if cfg.RetryIntervalSec != 90 || !cfg.CleanLinks {
		t.Errorf("overrides = %+v", cfg)
	}
	if cfg.WebhookURL != "https://n8n.example.org/hook" {
		t.Errorf("WebhookURL = %q", cfg.WebhookURL)
	}
}

func TestLoadInvalidValuesFallBackWithWarnings(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("RETRY_INTERVAL", "-5")
	t.Setenv("POLL_INTERVAL", "abc")
	t.Setenv("LOG_LEVEL", "verbose")
	t.Setenv("APP_TIMEZONE", "Mars/Olympus")
	t.Setenv("CLEAN_EMOJI", "maybe")

	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.RetryIntervalSec != 30 || cfg.PollIntervalSec != 10 {
		t.Errorf("invalid ints must fall back: %+v", cfg)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want fallback info", cfg.LogLevel)
	}
	if cfg.AppTimezone != "Europe/Moscow" {
		t.Errorf("AppTimezone = %q, want fallback Europe/Moscow", cfg.AppTimezone)
	}
	if cfg.CleanEmoji {
		t.Error("invalid bool must fall back to false")
	}
	// На каждое кривое значение — своё предупреждение.
	if len(cfg.Warnings()) < 5 {
		t.Errorf("Warnings() = %v, want at least 5 entries", cfg.Warnings())
	}
}

func TestLoadReadsEnvFile(t *testing.T) {
	setRequiredEnv(t)
	// godotenv не перекрывает даже пустую установленную переменную,
	// поэтому для чтения из файла её нужно именно снять.
	_ = os.Unsetenv("API_ID")

	envFile := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(envFile, []byte("API_ID=777\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	cfg, err := config.Load(envFile)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.APIID != 777 {
		t.Errorf("APIID = %d, want 777 from .env", cfg.APIID)
	}
}
