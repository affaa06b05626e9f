// Package poller — фоновый цикл чтения каналов: раз в интервал забирает
// свежие сообщения каждого канала, прогоняет текст через очистку и отдаёт
// в webhook-доставку. Прогресс по каждому каналу фиксируется в карте
// last-id, чтобы рестарт процесса не приводил к повторной отправке.
package poller

import (
	"context"
	"time"

	"telegram-chanreader/internal/domain/clean"
	"telegram-chanreader/internal/domain/feed"
	"telegram-chanreader/internal/infra/logger"
	"telegram-chanreader/internal/telegram/peers"
)

// Source отдаёт последние сообщения канала, от новых к старым.
// Реализуется history.Fetcher.
type Source interface {
	Latest(ctx context.Context, peer peers.Peer, limit int) ([]feed.Message, error)
}

// Sink принимает payload на доставку; реализуется webhook.Sender.
type Sink interface {
	SendOrQueue(ctx context.Context, payload feed.Payload) (bool, error)
}

// Poller опрашивает зафиксированный набор каналов. Единственный владелец
// карты last-id: конкурентного доступа к ней нет.
type Poller struct {
	src       Source
	sink      Sink
	lastIDs   *feed.LastIDStore
	channels  []peers.Peer
	pageSize  int
	cleanOpts clean.Options
}

// New собирает Poller. pageSize — сколько последних сообщений канала
// запрашивать за проход.
func New(
	src Source,
	sink Sink,
	lastIDs *feed.LastIDStore,
	channels []peers.Peer,
	pageSize int,
	cleanOpts clean.Options,
) *Poller {
	return &Poller{
		src:       src,
		sink:      sink,
		lastIDs:   lastIDs,
		channels:  channels,
		pageSize:  pageSize,
		cleanOpts: cleanOpts,
	}
}

// Run — цикл опроса: первый проход сразу, дальше по тикеру.
// Возвращается по отмене контекста.
func (p *Poller) Run(ctx context.Context, interval time.Duration) {
	logger.Debugf("poller started (%d channels, interval %s)", len(p.channels), interval)

	p.PollOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Debug("poller stopped")
			return
		case <-ticker.C:
			p.PollOnce(ctx)
		}
	}
}

// PollOnce выполняет один проход по всем каналам и сохраняет карту last-id.
// Ошибки отдельных каналов логируются и не прерывают проход.
func (p *Poller) PollOnce(ctx context.Context) {
	for _, channel := range p.channels {
		if ctx.Err() != nil {
			return
		}
		p.pollChannel(ctx, channel)
	}

	if err := p.lastIDs.Save(); err != nil {
		logger.Errorf("cannot save last message ids: %v", err)
	}
}

// pollChannel обрабатывает новые сообщения одного канала от старых к новым.
// last-id двигается только после того, как payload доставлен или лёг в
// очередь; если не удалось даже сохранить в очередь, сообщение будет
// обработано повторно на следующем проходе.
func (p *Poller) pollChannel(ctx context.Context, channel peers.Peer) {
	msgs, err := p.src.Latest(ctx, channel, p.pageSize)
	if err != nil {
		logger.Errorf("poll %s failed: %v", channel.Title, err)
		return
	}

	lastSeen := p.lastIDs.Get(channel.ID)
	for i := len(msgs) - 1; i >= 0; i-- {
		msg := msgs[i]
		if msg.ID <= lastSeen {
			continue
		}

		text := clean.Normalize(msg.Text, p.cleanOpts)
		if _, err = p.sink.SendOrQueue(ctx, msg.ToPayload(text)); err != nil {
			logger.Errorf("cannot hand off message %d from %s: %v", msg.ID, channel.Title, err)
			return
		}
		p.lastIDs.Set(channel.ID, msg.ID)
	}
}
