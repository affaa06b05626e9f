package webhook

import (
	"context"
	"time"

	"telegram-chanreader/internal/infra/logger"
)

// RunResender — фоновый цикл переотправки очереди. Просыпается каждые
// interval, выполняет один ResendPass и засыпает снова; ошибки прохода
// логируются и не прерывают цикл. Возвращается по отмене контекста.
func (s *Sender) RunResender(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Debugf("resender started (interval %s)", interval)
	for {
		select {
		case <-ctx.Done():
			logger.Debug("resender stopped")
			return
		case <-ticker.C:
			if err := s.ResendPass(ctx); err != nil && ctx.Err() == nil {
				logger.Errorf("unexpected error in resend pass: %v", err)
			}
		}
	}
}
