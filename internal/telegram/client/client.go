// Package client собирает gotd-клиента для режимов чтения каналов:
// файловая сессия, floodwait-обработка и rate-limit на уровне MTProto,
// интерактивная авторизация при первом запуске.
package client

import (
	"context"

	"telegram-chanreader/internal/infra/config"
	"telegram-chanreader/internal/infra/logger"
	authterm "telegram-chanreader/internal/telegram/auth"
	"telegram-chanreader/internal/telegram/session"

	"github.com/go-faster/errors"
	"github.com/gotd/contrib/middleware/floodwait"
	"github.com/gotd/contrib/middleware/ratelimit"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/telegram/dcs"
	"github.com/gotd/td/tg"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// appVersion отправляется Telegram в паспорте устройства.
const appVersion = "1.2.0"

// Client — обёртка над gotd: сетевой клиент, floodwait-waiter и параметры
// авторизации. Создаётся один раз на запуск процесса.
type Client struct {
	tg      *telegram.Client
	waiter  *floodwait.Waiter
	session *session.FileStorage
	phone   string
}

// New строит клиента из конфигурации. Middleware-цепочка: floodwait
// (автоматическое ожидание FLOOD_WAIT) поверх ratelimit (THROTTLE_RPS,
// burst = 2*rate).
func New(cfg *config.Config) *Client {
	waiter := floodwait.NewWaiter()
	sess := &session.FileStorage{Path: cfg.SessionFile}

	options := telegram.Options{
		SessionStorage: sess,
		Middlewares: []telegram.Middleware{
			waiter,
			ratelimit.New(
				rate.Limit(cfg.ThrottleRPS),
				cfg.ThrottleRPS*2, //nolint:mnd // burst = 2*rate
			),
		},
		Device: telegram.DeviceConfig{
			DeviceModel:   "MacBookPro18,1",
			SystemVersion: "macOS v15.6.1 build 24G90",
			AppVersion:    appVersion,
		},
	}

	// Тестовый стенд Telegram для интеграционных прогонов.
	if cfg.TestDC {
		options.DCList = dcs.Test()
	}

	return &Client{
		tg:      telegram.NewClient(cfg.APIID, cfg.APIHash, options),
		waiter:  waiter,
		session: sess,
		phone:   cfg.PhoneNumber,
	}
}

// API возвращает RPC-клиента; валиден только внутри RunAuthorized.
func (c *Client) API() *tg.Client {
	return c.tg.API()
}

// ResetSession удаляет сохранённую сессию, вынуждая полную повторную
// авторизацию при следующем запуске.
func (c *Client) ResetSession() error {
	return c.session.Remove()
}

// RunAuthorized поднимает MTProto-соединение, проходит авторизацию
// (интерактивную, если сессии нет) и передаёт управление fn. Блокируется
// до возврата fn или отмены контекста.
func (c *Client) RunAuthorized(ctx context.Context, fn func(ctx context.Context) error) error {
	return c.waiter.Run(ctx, func(ctx context.Context) error {
		return c.tg.Run(ctx, func(ctx context.Context) error {
			if err := c.login(ctx); err != nil {
				return err
			}
			return fn(ctx)
		})
	})
}

// login выполняет auth.Flow с терминальным аутентификатором и логирует,
// под каким аккаунтом мы работаем.
func (c *Client) login(ctx context.Context) error {
	flow := auth.NewFlow(
		authterm.TerminalAuthenticator{PhoneNumber: c.phone},
		auth.SendCodeOptions{},
	)
	if err := c.tg.Auth().IfNecessary(ctx, flow); err != nil {
		return errors.Wrap(err, "auth")
	}

	self, err := c.tg.Self(ctx)
	if err != nil {
		return errors.Wrap(err, "self")
	}
	logger.Logger().Info("Logged in as:",
		zap.String("FirstName", self.FirstName),
		zap.String("Username", self.Username),
		zap.Int64("ID", self.ID),
	)
	return nil
}
