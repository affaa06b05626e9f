// Пакет config отвечает за сбор конфигурации приложения (userbot на MTProto).
// Он читает переменные окружения из .env (через godotenv), нормализует и
// валидирует значения, вычисляет производные пути в каталоге данных и
// накапливает предупреждения о подставленных дефолтах.
//
// Бизнес-контекст: конфиг управляет подключением к Telegram API, списком
// каналов-источников, адресом webhook-приёмника (n8n), интервалами фоновых
// циклов и логированием. В отличие от ранних версий конфиг не глобален:
// Load возвращает структуру, которая явно передаётся в подсистемы.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"telegram-chanreader/internal/infra/timeutil"

	"github.com/joho/godotenv"
)

// Config описывает параметры, приходящие из окружения (.env), плюс
// производные пути файлов в каталоге данных. Значения проходят минимальную
// валидацию в Load; в рантайме структура считается согласованной.
type Config struct {
	APIID       int
	APIHash     string
	PhoneNumber string

	DataDir  string
	Channels []string // сырые значения CHANNELS: id, @username, t.me-ссылки

	WebhookURL    string
	WebhookToken  string
	WebhookHeader string

	RetryIntervalSec int // период цикла переотправки очереди
	PollIntervalSec  int // период опроса каналов
	PollPageSize     int // размер страницы истории за один цикл опроса
	ThrottleRPS      int

	CleanLinks bool // вырезать ссылки и упоминания при пересылке в webhook
	CleanEmoji bool // вырезать эмодзи при пересылке в webhook

	LogLevel    string
	AppTimezone string
	TestDC      bool

	DownloadsDir string

	// Файловое логирование (LOG_FILE без дефолта — активируется явно).
	LogFile           string
	LogFileLevel      string
	LogFileMaxSize    int
	LogFileMaxBackups int
	LogFileMaxAge     int
	LogFileCompress   bool

	// Производные пути внутри DataDir.
	SessionFile string
	QueueDBFile string
	LastIDFile  string
	PeersCache  string

	warnings []string
}

// Значения по умолчанию для параметров окружения.
const (
	defaultDataDir       = "data"
	defaultDownloadsDir  = "downloads"
	defaultWebhookHeader = "X-N8N-Auth"
	defaultRetryInterval = 30
	defaultPollInterval  = 10
	defaultPollPageSize  = 50
	defaultThrottleRPS   = 10
	defaultLogLevel      = "info"
	defaultAppTimezone   = "Europe/Moscow"

	defaultLogFileLevel      = "debug"
	defaultLogFileMaxSize    = 50
	defaultLogFileMaxBackups = 3
	defaultLogFileMaxAge     = 7
	defaultLogFileCompress   = true

	sessionFileName = "session.bin"
	queueDBFileName = "pending.db"
	lastIDFileName  = "last_message_ids.json"
	peersCacheName  = "peers_cache.bbolt"
)

// Load читает .env по указанному пути и собирает Config.
// Отсутствие .env-файла не фатально: остаются системные переменные окружения.
func Load(envPath string) (*Config, error) {
	var warnings []string

	if err := godotenv.Load(envPath); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
		warnings = append(warnings, fmt.Sprintf(".env file %q not found; using process environment only", envPath))
	}

	apiID, err := parseRequiredInt("API_ID")
	if err != nil {
		return nil, err
	}

	apiHash := strings.TrimSpace(os.Getenv("API_HASH"))
	if apiHash == "" {
		return nil, errors.New("env API_HASH must be set")
	}

	phone := strings.TrimSpace(os.Getenv("PHONE_NUMBER"))
	if phone == "" {
		return nil, errors.New("env PHONE_NUMBER must be set")
	}

	dataDir := sanitizeValue("DATA_DIR", os.Getenv("DATA_DIR"), defaultDataDir, &warnings)
	downloadsDir := sanitizeValue("DOWNLOADS_DIR", os.Getenv("DOWNLOADS_DIR"), defaultDownloadsDir, &warnings)
	webhookHeader := sanitizeValue("WEBHOOK_HEADER", os.Getenv("WEBHOOK_HEADER"), defaultWebhookHeader, &warnings)

	cfg := &Config{
		APIID:       apiID,
		APIHash:     apiHash,
		PhoneNumber: phone,

		DataDir:  dataDir,
		Channels: splitChannels(os.Getenv("CHANNELS")),

		WebhookURL:    strings.TrimSpace(os.Getenv("WEBHOOK_URL")),
		WebhookToken:  strings.TrimSpace(os.Getenv("WEBHOOK_TOKEN")),
		WebhookHeader: webhookHeader,

		RetryIntervalSec: parseIntDefault("RETRY_INTERVAL", defaultRetryInterval, greaterThanZero, &warnings),
		PollIntervalSec:  parseIntDefault("POLL_INTERVAL", defaultPollInterval, greaterThanZero, &warnings),
		PollPageSize:     parseIntDefault("POLL_PAGE_SIZE", defaultPollPageSize, greaterThanZero, &warnings),
		ThrottleRPS:      parseIntDefault("THROTTLE_RPS", defaultThrottleRPS, greaterThanZero, &warnings),

		CleanLinks: parseBoolDefault("CLEAN_LINKS", false, &warnings),
		CleanEmoji: parseBoolDefault("CLEAN_EMOJI", false, &warnings),

		LogLevel:    sanitizeLogLevel(os.Getenv("LOG_LEVEL"), defaultLogLevel, &warnings),
		AppTimezone: sanitizeTimezone(os.Getenv("APP_TIMEZONE"), defaultAppTimezone, &warnings),
		TestDC:      strings.EqualFold(strings.TrimSpace(os.Getenv("TEST_DC")), "true"),

		DownloadsDir: downloadsDir,

		LogFile:           strings.TrimSpace(os.Getenv("LOG_FILE")),
		LogFileLevel:      sanitizeLogLevel(os.Getenv("LOG_FILE_LEVEL"), defaultLogFileLevel, &warnings),
		LogFileMaxSize:    parseIntDefault("LOG_FILE_MAX_SIZE_MB", defaultLogFileMaxSize, greaterThanZero, &warnings),
		LogFileMaxBackups: parseIntDefault("LOG_FILE_MAX_BACKUPS", defaultLogFileMaxBackups, nonNegative, &warnings),
		LogFileMaxAge:     parseIntDefault("LOG_FILE_MAX_AGE_DAYS", defaultLogFileMaxAge, nonNegative, &warnings),
		LogFileCompress:   parseBoolDefault("LOG_FILE_COMPRESS", defaultLogFileCompress, &warnings),

		SessionFile: filepath.Join(dataDir, sessionFileName),
		QueueDBFile: filepath.Join(dataDir, queueDBFileName),
		LastIDFile:  filepath.Join(dataDir, lastIDFileName),
		PeersCache:  filepath.Join(dataDir, peersCacheName),

		warnings: warnings,
	}

	return cfg, nil
}

// Warnings возвращает накопленные при загрузке предупреждения. Копия.
func (c *Config) Warnings() []string {
	result := make([]string, len(c.warnings))
	copy(result, c.warnings)
	return result
}

// splitChannels разбивает CHANNELS по пробельным символам, отбрасывая пустые элементы.
func splitChannels(raw string) []string {
	fields := strings.Fields(raw)
	result := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			result = append(result, f)
		}
	}
	return result
}

// parseRequiredInt читает обязательную целочисленную переменную окружения.
// Без неё приложение не стартует.
func parseRequiredInt(name string) (int, error) {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return 0, fmt.Errorf("env %s must be set", name)
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("env %s must be a valid integer: %w", name, err)
	}
	return v, nil
}

// parseIntDefault читает name как int; пустое/некорректное значение или
// провал validator дают defaultVal с предупреждением. Несущественные
// настройки не должны ронять приложение.
func parseIntDefault(name string, defaultVal int, validator func(int) bool, warnings *[]string) int {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		appendWarningf(warnings, "env %s value %q is not a valid integer; using default %d", name, value, defaultVal)
		return defaultVal
	}
	if validator != nil && !validator(v) {
		appendWarningf(warnings, "env %s value %d does not satisfy constraints; using default %d", name, v, defaultVal)
		return defaultVal
	}
	return v
}

// parseBoolDefault читает name как bool с дефолтом и предупреждением о мусоре.
func parseBoolDefault(name string, defaultVal bool, warnings *[]string) bool {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return defaultVal
	}
	v, err := strconv.ParseBool(value)
	if err != nil {
		appendWarningf(warnings, "env %s value %q is not a valid boolean; using default %v", name, value, defaultVal)
		return defaultVal
	}
	return v
}

// sanitizeLogLevel ограничивает уровень набором {debug, info, warn, error}.
func sanitizeLogLevel(level, defaultVal string, warnings *[]string) string {
	lvl := strings.ToLower(strings.TrimSpace(level))
	if lvl == "" {
		return defaultVal
	}
	switch lvl {
	case "debug", "info", "warn", "error":
		return lvl
	default:
		appendWarningf(warnings, "env LOG_LEVEL value %q is invalid; using default %q", level, defaultVal)
		return defaultVal
	}
}

// sanitizeTimezone проверяет, что значение — корректная IANA-зона или UTC-смещение.
func sanitizeTimezone(value, fallback string, warnings *[]string) string {
	v := strings.TrimSpace(value)
	if v == "" {
		return fallback
	}
	if _, err := timeutil.ParseLocation(v); err != nil {
		appendWarningf(warnings, "timezone %q is invalid; using default %q", v, fallback)
		return fallback
	}
	return v
}

// sanitizeValue подставляет fallback вместо пустой строки, с предупреждением.
func sanitizeValue(name, value, fallback string, warnings *[]string) string {
	v := strings.TrimSpace(value)
	if v == "" {
		appendWarningf(warnings, "env %s is not set; using default %q", name, fallback)
		return fallback
	}
	return v
}

func appendWarningf(warnings *[]string, format string, args ...any) {
	if warnings == nil {
		return
	}
	*warnings = append(*warnings, fmt.Sprintf(format, args...))
}

func greaterThanZero(v int) bool { return v > 0 }
func nonNegative(v int) bool     { return v >= 0 }
