// Package export — выгрузка истории канала в файл: сбор сообщений в окне
// дат, очистка текста, упорядочивание и запись в текстовом или JSON-формате.
package export

import (
	"context"
	"time"

	"telegram-chanreader/internal/domain/clean"
	"telegram-chanreader/internal/domain/feed"
	"telegram-chanreader/internal/infra/logger"
	"telegram-chanreader/internal/telegram/history"
	"telegram-chanreader/internal/telegram/peers"
)

// Source — источник истории канала; реализуется history.Fetcher,
// в тестах подменяется фейком.
type Source interface {
	Walk(ctx context.Context, peer peers.Peer, opts history.WalkOptions, fn func(feed.Message) (bool, error)) error
}

// Options — параметры выгрузки. Нулевые Start/End — открытая граница;
// End уже должен указывать на конец дня (timeutil.EndOfDay).
type Options struct {
	Start       time.Time
	End         time.Time
	Limit       int  // 0 — без ограничения
	NewestFirst bool // порядок в выходном файле; по умолчанию от старых к новым
	Clean       clean.Options
}

// Collect собирает записи экспорта. Обход идёт от новых сообщений к старым
// и обрывается на первом сообщении старше Start — история за границей окна
// не вычитывается. Сообщения с пустым текстом после очистки пропускаются.
func Collect(ctx context.Context, src Source, peer peers.Peer, opts Options) ([]feed.Record, error) {
	walkOpts := history.WalkOptions{}
	if !opts.End.IsZero() {
		// +1, чтобы сообщение ровно на границе секунды не отсеклось API.
		walkOpts.OffsetDate = int(opts.End.Unix()) + 1
	}

	var records []feed.Record
	err := src.Walk(ctx, peer, walkOpts, func(msg feed.Message) (bool, error) {
		if !opts.End.IsZero() && msg.Date.After(opts.End) {
			return true, nil
		}
		if !opts.Start.IsZero() && msg.Date.Before(opts.Start) {
			return false, nil
		}

		text := clean.Normalize(msg.Text, opts.Clean)
		if text == "" {
			logger.Debugf("skip empty message %d in %s", msg.ID, peer.Title)
			return true, nil
		}

		records = append(records, feed.Record{Text: text, Date: msg.Date})
		return opts.Limit <= 0 || len(records) < opts.Limit, nil
	})
	if err != nil {
		return nil, err
	}

	// Источник отдаёт от новых к старым; дефолтный порядок файла — хронологический.
	if !opts.NewestFirst {
		for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
			records[i], records[j] = records[j], records[i]
		}
	}
	return records, nil
}
