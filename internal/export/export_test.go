package export_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"telegram-chanreader/internal/domain/clean"
	"telegram-chanreader/internal/domain/feed"
	"telegram-chanreader/internal/export"
	"telegram-chanreader/internal/infra/timeutil"
	"telegram-chanreader/internal/telegram/history"
	"telegram-chanreader/internal/telegram/peers"
)

// fakeSource отдаёт заранее заданные сообщения (от новых к старым, как
// Telegram) и считает, сколько сообщений успел увидеть обход.
type fakeSource struct {
	messages []feed.Message
	visited  int
}

func (f *fakeSource) Walk(
	_ context.Context,
	_ peers.Peer,
	_ history.WalkOptions,
	fn func(feed.Message) (bool, error),
) error {
	for _, msg := range f.messages {
		f.visited++
		cont, err := fn(msg)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
	return nil
}

func msgAt(id int, date time.Time, text string) feed.Message {
	return feed.Message{ID: id, ChatID: -1001, ChatTitle: "news", Text: text, Date: date}
}

func day(dayOfMay, hour int) time.Time {
	return time.Date(2024, 5, dayOfMay, hour, 0, 0, 0, time.UTC)
}

func TestCollectDateWindowInclusive(t *testing.T) {
	t.Parallel()

	start := day(10, 0)
	end := timeutil.EndOfDay(day(12, 0))
	src := &fakeSource{messages: []feed.Message{
		msgAt(6, day(13, 9), "after window"),
		msgAt(5, time.Date(2024, 5, 12, 23, 59, 59, 0, time.UTC), "last second"),
		msgAt(4, day(11, 12), "middle"),
		msgAt(3, day(10, 0), "first midnight"),
		msgAt(2, day(9, 23), "before window"),
		msgAt(1, day(8, 1), "older"),
	}}

	records, err := export.Collect(context.Background(), src, peers.Peer{}, export.Options{
		Start: start,
		End:   end,
	})
	if err != nil {
		t.Fatalf("Collect() error: %v", err)
	}

	got := make([]string, 0, len(records))
	for _, rec := range records {
		got = append(got, rec.Text)
	}
	want := []string{"first midnight", "middle", "last second"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("Collect() = %v, want %v", got, want)
	}

	// Обход обрывается на первом сообщении старше начала окна.
	if src.visited != 5 {
		t.Errorf("visited = %d, want 5 (must stop before oldest message)", src.visited)
	}
}

func TestCollectLimitAndOrder(t *testing.T) {
	t.Parallel()

	messages := []feed.Message{
		msgAt(3, day(3, 0), "third"),
		msgAt(2, day(2, 0), "second"),
		msgAt(1, day(1, 0), "first"),
	}

	tests := []struct {
		name string
		opts export.Options
		want []string
	}{
		{
			name: "default chronological",
			opts: export.Options{},
			want: []string{"first", "second", "third"},
		},
		{
			name: "newest first",
			opts: export.Options{NewestFirst: true},
			want: []string{"third", "second", "first"},
		},
		{
			name: "limit caps newest messages",
			opts: export.Options{Limit: 2},
			want: []string{"second", "third"},
		},
		{
			name: "limit above total",
			opts: export.Options{Limit: 10},
			want: []string{"first", "second", "third"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			src := &fakeSource{messages: messages}
			records, err := export.Collect(context.Background(), src, peers.Peer{}, tc.opts)
			if err != nil {
				t.Fatalf("Collect() error: %v", err)
			}
			got := make([]string, 0, len(records))
			for _, rec := range records {
				got = append(got, rec.Text)
			}
			if strings.Join(got, "|") != strings.Join(tc.want, "|") {
				t.Errorf("Collect() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCollectSkipsEmptyAfterCleanup(t *testing.T) {
	t.Parallel()

	src := &fakeSource{messages: []feed.Message{
		msgAt(2, day(2, 0), "https://t.me/only_link"),
		msgAt(1, day(1, 0), "keep me"),
	}}

	records, err := export.Collect(context.Background(), src, peers.Peer{}, export.Options{
		Clean: clean.Options{StripLinks: true, StripMentions: true},
	})
	if err != nil {
		t.Fatalf("Collect() error: %v", err)
	}
	if len(records) != 1 || records[0].Text != "keep me" {
		t.Errorf("Collect() = %+v, want single 'keep me' record", records)
	}
}

func TestWriteTextFormat(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.txt")
	records := []feed.Record{
		{Text: "first", Date: day(1, 12)},
		{Text: "second", Date: day(2, 13)},
	}
	if err := export.Write(path, records, export.FormatText); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	want := "[01.05.2024 12:00]\nfirst\n---\n[02.05.2024 13:00]\nsecond\n---\n"
	if string(data) != want {
		t.Errorf("text export = %q, want %q", data, want)
	}
}

func TestWriteJSONFormat(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.json")
	records := []feed.Record{{Text: "hello", Date: day(1, 12)}}
	if err := export.Write(path, records, export.FormatJSON); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	var decoded []feed.Record
	if err = json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal export: %v", err)
	}
	if len(decoded) != 1 || decoded[0].Text != "hello" {
		t.Errorf("json export = %+v, want single 'hello' record", decoded)
	}
}

func TestWriteRejectsUnknownFormat(t *testing.T) {
	t.Parallel()

	err := export.Write(filepath.Join(t.TempDir(), "out.bin"), nil, "xml")
	if err == nil {
		t.Fatal("Write() with unknown format must fail")
	}
}

func TestDefaultPath(t *testing.T) {
	t.Parallel()

	got := export.DefaultPath("/tmp/downloads", "@some/channel", export.FormatJSON)
	if dir := filepath.Dir(got); dir != "/tmp/downloads" {
		t.Errorf("dir = %q, want /tmp/downloads", dir)
	}
	base := filepath.Base(got)
	if !strings.HasPrefix(base, "some_channel_") || !strings.HasSuffix(base, ".json") {
		t.Errorf("base = %q, want some_channel_<stamp>.json", base)
	}
}
