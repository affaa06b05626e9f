// Package logger — общая обёртка над zap для всего приложения.
// Поддерживает динамический уровень (zap.AtomicLevel), переназначение потоков
// вывода на лету (нужно для интеграции с readline-консолью) и опциональный
// файловый sink с ротацией через lumberjack.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// mu защищает глобальное состояние логгера при пересборке core.
	mu sync.Mutex
	// log — текущий экземпляр zap.Logger.
	log *zap.Logger
	// consoleLevel управляет уровнем консольного вывода без пересоздания ядра.
	consoleLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
	// fileLevel — отдельный уровень для файлового sink (обычно debug).
	fileLevel = zap.NewAtomicLevelAt(zap.DebugLevel)

	stdoutWriter = zapcore.Lock(zapcore.AddSync(os.Stdout))
	stderrWriter = zapcore.Lock(zapcore.AddSync(os.Stderr))

	// fileSink назначается через EnableFile; nil означает «только консоль».
	fileSink zapcore.WriteSyncer
)

// FileConfig описывает параметры файлового логирования с ротацией.
type FileConfig struct {
	Path       string
	Level      string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// consoleEncoderConfig — консольный encoder с цветами и коротким caller.
// Формат времени фиксированный, для машинной обработки служит файловый sink.
func consoleEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalColorLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05"),
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// fileEncoderConfig — JSON encoder для файла: без цветов, время в ISO8601.
func fileEncoderConfig() zapcore.EncoderConfig {
	cfg := consoleEncoderConfig()
	cfg.EncodeLevel = zapcore.LowercaseLevelEncoder
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg
}

// rebuildLoggerLocked пересоздаёт глобальный логгер с текущими потоками и уровнями.
// Вызывающий обязан удерживать mu. AddCallerSkip(1) скрывает обёртки logger.* в стеке.
func rebuildLoggerLocked() {
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEncoderConfig()), stdoutWriter, consoleLevel),
	}
	if fileSink != nil {
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileEncoderConfig()), fileSink, fileLevel))
	}
	if log != nil {
		_ = log.Sync()
	}
	log = zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1), zap.ErrorOutput(stderrWriter))
}

// parseLevel переводит строковый уровень в zapcore.Level; неизвестные значения дают info.
func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zap.DebugLevel
	case "warn":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}

// Init задаёт уровень консольного вывода и пересобирает логгер.
// Допустимые уровни: debug, info (по умолчанию), warn, error.
func Init(level string) {
	mu.Lock()
	defer mu.Unlock()
	consoleLevel.SetLevel(parseLevel(level))
	rebuildLoggerLocked()
}

// EnableFile подключает файловый sink с ротацией. Пустой Path — no-op.
// Уровень файла независим от консольного: обычно debug, чтобы файл был полнее консоли.
func EnableFile(cfg FileConfig) {
	if strings.TrimSpace(cfg.Path) == "" {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	fileLevel.SetLevel(parseLevel(cfg.Level))
	fileSink = zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	})
	rebuildLoggerLocked()
}

// SetWriters переназначает потоки консольного вывода и пересобирает core.
// Nil означает os.Stdout/os.Stderr. Используется для вывода через readline.
func SetWriters(stdout, stderr io.Writer) {
	mu.Lock()
	defer mu.Unlock()

	if stdout == nil {
		stdoutWriter = zapcore.Lock(zapcore.AddSync(os.Stdout))
	} else {
		stdoutWriter = zapcore.Lock(zapcore.AddSync(stdout))
	}
	if stderr == nil {
		stderrWriter = zapcore.Lock(zapcore.AddSync(os.Stderr))
	} else {
		stderrWriter = zapcore.Lock(zapcore.AddSync(stderr))
	}

	rebuildLoggerLocked()
}

// Logger возвращает текущий zap.Logger, лениво создавая его при первом обращении.
func Logger() *zap.Logger {
	mu.Lock()
	defer mu.Unlock()
	if log == nil {
		rebuildLoggerLocked()
	}
	return log
}

// Debug пишет структурированное сообщение уровня Debug.
func Debug(msg string, fields ...zap.Field) { Logger().Debug(msg, fields...) }

// Info пишет структурированное сообщение уровня Info.
func Info(msg string, fields ...zap.Field) { Logger().Info(msg, fields...) }

// Warn пишет структурированное предупреждение.
func Warn(msg string, fields ...zap.Field) { Logger().Warn(msg, fields...) }

// Error пишет структурированное сообщение об ошибке.
func Error(msg string, fields ...zap.Field) { Logger().Error(msg, fields...) }

// Fatal пишет сообщение уровня Fatal и завершает процесс.
func Fatal(msg string, fields ...zap.Field) {
	Logger().Fatal(msg, fields...)
	_ = Logger().Sync()
	os.Exit(1)
}

// Debugf форматирует через fmt.Sprintf. В горячих путях предпочтительны zap.Field.
func Debugf(msg string, a ...any) { Logger().Debug(fmt.Sprintf(msg, a...)) }

// Infof форматирует через fmt.Sprintf.
func Infof(msg string, a ...any) { Logger().Info(fmt.Sprintf(msg, a...)) }

// Warnf форматирует через fmt.Sprintf.
func Warnf(msg string, a ...any) { Logger().Warn(fmt.Sprintf(msg, a...)) }

// Errorf форматирует через fmt.Sprintf.
func Errorf(msg string, a ...any) { Logger().Error(fmt.Sprintf(msg, a...)) }
