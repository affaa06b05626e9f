// Package webhook — доставка payload'ов во внешний HTTP-приёмник (n8n)
// с локальной очередью на случай недоступности. Успехом считается только
// HTTP 200; любой другой статус и любая сетевая ошибка уводят payload в
// долговременную очередь, откуда его позже забирает ресендер.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"telegram-chanreader/internal/domain/feed"
	"telegram-chanreader/internal/infra/logger"
	"telegram-chanreader/internal/queue"

	"github.com/go-faster/errors"
)

// requestTimeout — предел на один POST, включая установление соединения.
const requestTimeout = 10 * time.Second

// Config — параметры доставки. Header добавляется только при непустом Token.
type Config struct {
	URL    string
	Token  string
	Header string
}

// Sender отправляет payload'ы в webhook и складывает неудачи в очередь.
// Потокобезопасен: состояние иммутабельно после создания, очередь
// синхронизирована на своей стороне.
type Sender struct {
	cfg    Config
	client *http.Client
	store  *queue.Store
}

// NewSender собирает Sender поверх очереди. httpClient=nil даёт клиента
// с дефолтным таймаутом.
func NewSender(cfg Config, store *queue.Store, httpClient *http.Client) *Sender {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}
	return &Sender{cfg: cfg, client: httpClient, store: store}
}

// SendOrQueue пытается доставить payload; при любой неудаче сохраняет его в
// очередь и возвращает false. Ошибка возвращается только если не удалось
// даже сохранить в очередь — это уже не транзиентный сбой.
func (s *Sender) SendOrQueue(ctx context.Context, payload feed.Payload) (bool, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return false, errors.Wrap(err, "marshal payload")
	}

	if s.cfg.URL == "" {
		logger.Error("webhook URL is not configured; saving to queue")
		return false, s.enqueue(ctx, body)
	}

	if err = s.post(ctx, body); err != nil {
		logger.Errorf("webhook delivery failed: %v; saving to queue", err)
		return false, s.enqueue(ctx, body)
	}

	logger.Infof("Sent to webhook: %s (%d)", payload.ChatTitle, payload.MessageID)
	return true, nil
}

// post выполняет один POST с опциональным auth-заголовком. Не-200 — ошибка.
func (s *Sender) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.Token != "" {
		req.Header.Set(s.cfg.Header, s.cfg.Token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "post")
	}
	defer func() {
		// Дочитываем тело, чтобы соединение вернулось в пул.
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func (s *Sender) enqueue(ctx context.Context, body []byte) error {
	if err := s.store.Enqueue(ctx, body); err != nil {
		return errors.Wrap(err, "save to queue")
	}
	logger.Warn("Message saved to local queue")
	return nil
}

// ResendPass выполняет один проход переотправки: записи в порядке вставки,
// успех удаляет запись, битый JSON удаляется без повтора. На первой неудачной
// доставке проход обрывается целиком: хвост очереди сохраняет порядок, и
// лежачий приёмник не получает шквал запросов.
func (s *Sender) ResendPass(ctx context.Context) error {
	entries, err := s.store.List(ctx)
	if err != nil {
		return errors.Wrap(err, "list queue")
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if !json.Valid(entry.Payload) {
			logger.Warnf("Malformed JSON in queue id %d, removing", entry.ID)
			if err = s.store.Delete(ctx, entry.ID); err != nil {
				return errors.Wrap(err, "drop malformed entry")
			}
			continue
		}

		if err = s.post(ctx, entry.Payload); err != nil {
			logger.Errorf("resend of queue id %d failed: %v; stopping pass", entry.ID, err)
			return nil
		}

		logger.Infof("Resent from queue: %d", entry.ID)
		if err = s.store.Delete(ctx, entry.ID); err != nil {
			return errors.Wrap(err, "delete delivered entry")
		}
	}
	return nil
}
