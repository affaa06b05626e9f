package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"telegram-chanreader/internal/app"
	"telegram-chanreader/internal/infra/config"
	"telegram-chanreader/internal/infra/logger"
	"telegram-chanreader/internal/infra/pr"
	"telegram-chanreader/internal/infra/timeutil"

	"github.com/go-faster/errors"
)

func main() {
	if err := pr.Init(); err != nil {
		logger.Fatal("failed to assigning stdout and stderr", zap.Error(err))
	}

	// envPath определяет расположение .env с секретами и общими настройками.
	envPath := flag.String("env", ".env", "path to .env file")
	flag.Parse()

	cfg, err := config.Load(*envPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	// Применяем часовую зону приложения (поддерживает IANA и UTC-смещение). Влияет глобально на time.Local.
	if locApp, tzErr := timeutil.ParseLocation(cfg.AppTimezone); tzErr != nil {
		logger.Fatal("failed to parse APP_TIMEZONE", zap.Error(tzErr))
	} else {
		time.Local = locApp //nolint:reassign // намеренно задаём часовую зону процесса
	}

	// logger.Init задаёт уровень, SetWriters перенаправляет вывод в подсистему pr (логи поверх readline).
	logger.Init(cfg.LogLevel)
	logger.EnableFile(logger.FileConfig{
		Path:       cfg.LogFile,
		Level:      cfg.LogFileLevel,
		MaxSizeMB:  cfg.LogFileMaxSize,
		MaxBackups: cfg.LogFileMaxBackups,
		MaxAgeDays: cfg.LogFileMaxAge,
		Compress:   cfg.LogFileCompress,
	})
	logger.SetWriters(pr.Stdout(), pr.Stderr())
	for _, msg := range cfg.Warnings() {
		logger.Warn(msg)
	}

	// Контекст с обработкой системных сигналов (Ctrl+C/SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	a := app.New(ctx, stop, cfg)
	if runErr := a.Run(flag.Args()); runErr != nil && !errors.Is(runErr, context.Canceled) {
		stop()
		logger.Fatal("app run failed", zap.Error(runErr))
	}

	stop()
	logger.Info("Graceful shutdown complete")
}
