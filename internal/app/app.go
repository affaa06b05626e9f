// Package app — верхний уровень приложения: разбор команды запуска и сборка
// режима. Три режима работы:
//   - без аргументов — демон: опрос каналов и пересылка в webhook;
//   - history <канал> [флаги] — разовая выгрузка истории в файл;
//   - auth — принудительная повторная авторизация.
package app

import (
	"context"

	"telegram-chanreader/internal/domain/clean"
	"telegram-chanreader/internal/infra/config"
	"telegram-chanreader/internal/infra/logger"
	"telegram-chanreader/internal/telegram/client"

	"github.com/go-faster/errors"
)

// App связывает конфигурацию с контекстом жизненного цикла процесса.
type App struct {
	cfg        *config.Config
	mainCtx    context.Context
	mainCancel context.CancelFunc
}

// New создаёт приложение; mainCancel используется для инициирования
// общего shutdown из внутренних узлов.
func New(mainCtx context.Context, mainCancel context.CancelFunc, cfg *config.Config) *App {
	return &App{
		cfg:        cfg,
		mainCtx:    mainCtx,
		mainCancel: mainCancel,
	}
}

// Run выбирает режим по аргументам командной строки (без имени бинаря)
// и блокируется до его завершения.
func (a *App) Run(args []string) error {
	if len(args) == 0 {
		return a.runDaemon()
	}

	switch args[0] {
	case "history":
		return a.runHistory(args[1:])
	case "auth":
		return a.runAuth()
	default:
		return errors.Errorf("unknown command %q (expected none, \"history\" or \"auth\")", args[0])
	}
}

// runAuth сбрасывает сессию и проходит авторизацию заново. Используется
// при смене аккаунта или протухшей сессии.
func (a *App) runAuth() error {
	tc := client.New(a.cfg)
	if err := tc.ResetSession(); err != nil {
		return err
	}
	logger.Info("Session cleared, starting re-authorization")

	return tc.RunAuthorized(a.mainCtx, func(_ context.Context) error {
		logger.Info("Authorization complete, session saved")
		return nil
	})
}

// daemonCleanOptions — параметры очистки текста для пересылки в webhook,
// из переменных окружения CLEAN_LINKS/CLEAN_EMOJI. Удаление ссылок
// подразумевает и удаление @упоминаний.
func (a *App) daemonCleanOptions() clean.Options {
	return clean.Options{
		StripLinks:    a.cfg.CleanLinks,
		StripMentions: a.cfg.CleanLinks,
		StripEmoji:    a.cfg.CleanEmoji,
	}
}
