// Package history — постраничная выгрузка истории канала через
// messages.getHistory. Telegram отдаёт сообщения от новых к старым;
// пагинация ведётся по OffsetID последнего сообщения страницы.
package history

import (
	"context"
	"time"

	"telegram-chanreader/internal/domain/feed"
	"telegram-chanreader/internal/telegram/peers"

	"github.com/go-faster/errors"
	"github.com/gotd/td/tg"
	"golang.org/x/time/rate"
)

// maxPageSize — потолок limit в messages.getHistory.
const maxPageSize = 100

// WalkOptions управляет обходом истории.
type WalkOptions struct {
	// OffsetDate — unix-время верхней границы: обход начнётся с сообщений
	// не новее этой даты. 0 — с самых свежих.
	OffsetDate int
	// PageSize — размер страницы, обрезается до [1, 100].
	PageSize int
}

// Fetcher выгружает историю с локальным rate-limit на страницы запросов —
// поверх общего MTProto-лимита, чтобы длинные экспорты не выедали квоту
// остальных вызовов.
type Fetcher struct {
	api     *tg.Client
	limiter *rate.Limiter
}

// NewFetcher создаёт Fetcher; rps <= 0 отключает локальный лимит.
func NewFetcher(api *tg.Client, rps int) *Fetcher {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return &Fetcher{api: api, limiter: limiter}
}

// Walk идёт по истории канала от новых сообщений к старым и зовёт fn для
// каждого текстового сообщения. fn возвращает false, чтобы остановить
// обход. Сервисные и пустые записи пропускаются молча.
func (f *Fetcher) Walk(
	ctx context.Context,
	peer peers.Peer,
	opts WalkOptions,
	fn func(msg feed.Message) (bool, error),
) error {
	pageSize := opts.PageSize
	if pageSize <= 0 || pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	offsetID := 0
	for {
		if err := f.limiter.Wait(ctx); err != nil {
			return err
		}

		res, err := f.api.MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
			Peer:       peer.InputPeer(),
			Limit:      pageSize,
			OffsetID:   offsetID,
			OffsetDate: opts.OffsetDate,
		})
		if err != nil {
			return errors.Wrap(err, "get history")
		}

		batch, err := extractMessages(res)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}

		for _, raw := range batch {
			offsetID = messageID(raw)

			msg, ok := raw.(*tg.Message)
			if !ok {
				continue
			}

			cont, fnErr := fn(feed.Message{
				ID:        msg.ID,
				ChatID:    peer.ID,
				ChatTitle: peer.Title,
				Text:      msg.Message,
				Date:      time.Unix(int64(msg.Date), 0),
			})
			if fnErr != nil {
				return fnErr
			}
			if !cont {
				return nil
			}
		}

		if len(batch) < pageSize {
			return nil
		}
	}
}

// Latest возвращает до limit последних сообщений канала, от новых к старым.
// Используется поллером: limit = POLL_PAGE_SIZE.
func (f *Fetcher) Latest(ctx context.Context, peer peers.Peer, limit int) ([]feed.Message, error) {
	msgs := make([]feed.Message, 0, limit)
	err := f.Walk(ctx, peer, WalkOptions{PageSize: limit}, func(msg feed.Message) (bool, error) {
		msgs = append(msgs, msg)
		return len(msgs) < limit, nil
	})
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

// extractMessages разворачивает ответ getHistory в список сообщений.
func extractMessages(res tg.MessagesMessagesClass) ([]tg.MessageClass, error) {
	switch result := res.(type) {
	case *tg.MessagesMessages:
		return result.Messages, nil
	case *tg.MessagesMessagesSlice:
		return result.Messages, nil
	case *tg.MessagesChannelMessages:
		return result.Messages, nil
	default:
		return nil, errors.Errorf("unexpected history result type: %T", result)
	}
}

// messageID достаёт id из любого варианта MessageClass; нужен для OffsetID,
// включая сервисные сообщения.
func messageID(msg tg.MessageClass) int {
	switch m := msg.(type) {
	case *tg.Message:
		return m.ID
	case *tg.MessageService:
		return m.ID
	case *tg.MessageEmpty:
		return m.ID
	default:
		return 0
	}
}
