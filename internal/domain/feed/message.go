// Package feed — доменные типы прочитанных из Telegram сообщений:
// payload для webhook-доставки, запись экспорта и карта last-id по каналам.
package feed

import "time"

// Payload — единица доставки в webhook. Формат JSON зафиксирован внешним
// приёмником (n8n-воркфлоу), менять имена полей нельзя.
type Payload struct {
	ChatID    int64  `json:"chat_id"`
	ChatTitle string `json:"chat_title"`
	MessageID int    `json:"message_id"`
	Date      int64  `json:"date"`
	Text      string `json:"text"`
}

// Record — запись экспорта истории: только текст и дата публикации.
type Record struct {
	Text string    `json:"text"`
	Date time.Time `json:"date"`
}

// Message — нормализованное сообщение канала, независимое от типов gotd.
// Слои поверх telegram-клиента (поллер, экспортёр) работают только с ним.
type Message struct {
	ID        int
	ChatID    int64
	ChatTitle string
	Text      string
	Date      time.Time
}

// ToPayload собирает Payload для webhook-доставки из сообщения.
// text передаётся отдельно: вызывающий уже прогнал его через clean.Normalize.
func (m Message) ToPayload(text string) Payload {
	return Payload{
		ChatID:    m.ChatID,
		ChatTitle: m.ChatTitle,
		MessageID: m.ID,
		Date:      m.Date.Unix(),
		Text:      text,
	}
}
