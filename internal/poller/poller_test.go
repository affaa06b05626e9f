package poller_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"telegram-chanreader/internal/domain/clean"
	"telegram-chanreader/internal/domain/feed"
	"telegram-chanreader/internal/poller"
	"telegram-chanreader/internal/telegram/peers"
)

// fakeSource отдаёт для каждого канала заранее заданный срез сообщений
// (от новых к старым, как Telegram).
type fakeSource struct {
	byChat map[int64][]feed.Message
	err    error
}

func (f *fakeSource) Latest(_ context.Context, peer peers.Peer, limit int) ([]feed.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	msgs := f.byChat[peer.ID]
	if len(msgs) > limit {
		msgs = msgs[:limit]
	}
	return msgs, nil
}

// fakeSink копит переданные payload'ы; failAfter > 0 заставляет передачу
// падать после заданного числа успехов.
type fakeSink struct {
	sent      []feed.Payload
	failAfter int
}

type sinkError struct{}

func (sinkError) Error() string { return "sink unavailable" }

func (f *fakeSink) SendOrQueue(_ context.Context, p feed.Payload) (bool, error) {
	if f.failAfter > 0 && len(f.sent) >= f.failAfter {
		return false, sinkError{}
	}
	f.sent = append(f.sent, p)
	return true, nil
}

func newLastIDs(t *testing.T) *feed.LastIDStore {
	t.Helper()
	store, err := feed.OpenLastIDStore(filepath.Join(t.TempDir(), "last_message_ids.json"))
	if err != nil {
		t.Fatalf("OpenLastIDStore() error: %v", err)
	}
	return store
}

func channelFixture() peers.Peer {
	return peers.Peer{ID: -1001000000001, Title: "news", ChannelID: 1000000001}
}

func msgFixture(id int, text string) feed.Message {
	return feed.Message{
		ID:        id,
		ChatID:    -1001000000001,
		ChatTitle: "news",
		Text:      text,
		Date:      time.Date(2024, 5, 1, 12, 0, id, 0, time.UTC),
	}
}

func TestPollOnceForwardsNewInOrder(t *testing.T) {
	t.Parallel()

	channel := channelFixture()
	src := &fakeSource{byChat: map[int64][]feed.Message{
		channel.ID: {msgFixture(3, "third"), msgFixture(2, "second"), msgFixture(1, "first")},
	}}
	sink := &fakeSink{}
	lastIDs := newLastIDs(t)
	lastIDs.Set(channel.ID, 1)

	p := poller.New(src, sink, lastIDs, []peers.Peer{channel}, 50, clean.Options{})
	p.PollOnce(context.Background())

	if len(sink.sent) != 2 {
		t.Fatalf("sent %d payloads, want 2", len(sink.sent))
	}
	// Вперёд уходят только сообщения новее last-id, от старых к новым.
	if sink.sent[0].MessageID != 2 || sink.sent[1].MessageID != 3 {
		t.Errorf("sent order = [%d %d], want [2 3]", sink.sent[0].MessageID, sink.sent[1].MessageID)
	}
	if lastIDs.Get(channel.ID) != 3 {
		t.Errorf("last id = %d, want 3", lastIDs.Get(channel.ID))
	}
}

func TestPollOnceIsIdempotent(t *testing.T) {
	t.Parallel()

	channel := channelFixture()
	src := &fakeSource{byChat: map[int64][]feed.Message{
		channel.ID: {msgFixture(2, "b"), msgFixture(1, "a")},
	}}
	sink := &fakeSink{}

	p := poller.New(src, sink, newLastIDs(t), []peers.Peer{channel}, 50, clean.Options{})
	p.PollOnce(context.Background())
	p.PollOnce(context.Background())

	if len(sink.sent) != 2 {
		t.Errorf("sent %d payloads after two passes, want 2 (no redelivery)", len(sink.sent))
	}
}

func TestPollOnceAppliesCleanup(t *testing.T) {
	t.Parallel()

	channel := channelFixture()
	src := &fakeSource{byChat: map[int64][]feed.Message{
		channel.ID: {msgFixture(1, "Check https://t.me/foo and @bar now 😀")},
	}}
	sink := &fakeSink{}

	p := poller.New(src, sink, newLastIDs(t), []peers.Peer{channel}, 50, clean.Options{
		StripLinks:    true,
		StripMentions: true,
		StripEmoji:    true,
	})
	p.PollOnce(context.Background())

	if len(sink.sent) != 1 {
		t.Fatalf("sent %d payloads, want 1", len(sink.sent))
	}
	if sink.sent[0].Text != "Check and now" {
		t.Errorf("cleaned text = %q, want %q", sink.sent[0].Text, "Check and now")
	}
}

// Если payload не удалось даже положить в очередь, last-id не двигается:
// сообщение уйдёт повторно на следующем проходе.
func TestPollOnceKeepsLastIDOnHandOffFailure(t *testing.T) {
	t.Parallel()

	channel := channelFixture()
	src := &fakeSource{byChat: map[int64][]feed.Message{
		channel.ID: {msgFixture(2, "b"), msgFixture(1, "a")},
	}}
	sink := &fakeSink{failAfter: 1}
	lastIDs := newLastIDs(t)

	p := poller.New(src, sink, lastIDs, []peers.Peer{channel}, 50, clean.Options{})
	p.PollOnce(context.Background())

	if lastIDs.Get(channel.ID) != 1 {
		t.Errorf("last id = %d, want 1 (second message must be retried)", lastIDs.Get(channel.ID))
	}

	// Приёмник ожил — второй проход досылает только второе сообщение.
	sink.failAfter = 0
	p.PollOnce(context.Background())
	if len(sink.sent) != 2 || sink.sent[1].MessageID != 2 {
		t.Fatalf("after recovery sent = %d payloads, want 2 with last id 2", len(sink.sent))
	}
	if lastIDs.Get(channel.ID) != 2 {
		t.Errorf("last id = %d, want 2", lastIDs.Get(channel.ID))
	}
}

func TestPollOnceChannelErrorDoesNotBlockOthers(t *testing.T) {
	t.Parallel()

	broken := peers.Peer{ID: -1001000000002, Title: "broken", ChannelID: 1000000002}
	healthy := channelFixture()
	src := &fakeSource{byChat: map[int64][]feed.Message{
		healthy.ID: {msgFixture(1, "still flowing")},
	}}
	sink := &fakeSink{}

	// broken отсутствует в byChat: Latest вернёт пусто, ошибок всего прохода нет.
	p := poller.New(src, sink, newLastIDs(t), []peers.Peer{broken, healthy}, 50, clean.Options{})
	p.PollOnce(context.Background())

	if len(sink.sent) != 1 || sink.sent[0].ChatID != healthy.ID {
		t.Errorf("sent = %+v, want single payload from healthy channel", sink.sent)
	}
}
