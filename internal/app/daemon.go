package app

import (
	"context"
	"sync"
	"time"

	"telegram-chanreader/internal/domain/feed"
	"telegram-chanreader/internal/infra/logger"
	"telegram-chanreader/internal/poller"
	"telegram-chanreader/internal/queue"
	"telegram-chanreader/internal/telegram/client"
	"telegram-chanreader/internal/telegram/history"
	"telegram-chanreader/internal/telegram/peers"
	"telegram-chanreader/internal/webhook"

	"github.com/go-faster/errors"
)

// runDaemon — основной режим: два независимых фоновых цикла (опрос каналов
// и переотправка очереди) поверх одного MTProto-соединения. Каждый цикл
// владеет своим persist-ресурсом: поллер — картой last-id, ресендер —
// очередью; общего мутабельного состояния между ними нет.
func (a *App) runDaemon() error {
	queueStore, err := queue.Open(a.cfg.QueueDBFile)
	if err != nil {
		return errors.Wrap(err, "open queue")
	}
	defer func() {
		if closeErr := queueStore.Close(); closeErr != nil {
			logger.Errorf("close queue: %v", closeErr)
		}
	}()

	lastIDs, err := feed.OpenLastIDStore(a.cfg.LastIDFile)
	if err != nil {
		return errors.Wrap(err, "open last-id store")
	}

	sender := webhook.NewSender(webhook.Config{
		URL:    a.cfg.WebhookURL,
		Token:  a.cfg.WebhookToken,
		Header: a.cfg.WebhookHeader,
	}, queueStore, nil)

	tc := client.New(a.cfg)
	return tc.RunAuthorized(a.mainCtx, func(ctx context.Context) error {
		resolver, resErr := peers.NewResolver(tc.API(), a.cfg.PeersCache)
		if resErr != nil {
			return resErr
		}
		defer func() {
			if closeErr := resolver.Close(); closeErr != nil {
				logger.Errorf("close peers cache: %v", closeErr)
			}
		}()

		channels, resolveErr := resolver.ResolveAll(ctx, a.cfg.Channels)
		if resolveErr != nil {
			return resolveErr
		}

		fetcher := history.NewFetcher(tc.API(), a.cfg.ThrottleRPS)
		p := poller.New(fetcher, sender, lastIDs, channels, a.cfg.PollPageSize, a.daemonCleanOptions())

		logger.Infof("Daemon running: %d channels, poll every %ds", len(channels), a.cfg.PollIntervalSec)

		var wg sync.WaitGroup
		wg.Go(func() {
			p.Run(ctx, time.Duration(a.cfg.PollIntervalSec)*time.Second)
		})
		wg.Go(func() {
			sender.RunResender(ctx, time.Duration(a.cfg.RetryIntervalSec)*time.Second)
		})

		<-ctx.Done()
		wg.Wait()

		if err := ctx.Err(); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
}
