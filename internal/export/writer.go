package export

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"telegram-chanreader/internal/domain/feed"
	"telegram-chanreader/internal/infra/storage"
	"telegram-chanreader/internal/infra/timeutil"

	"github.com/go-faster/errors"
)

// Поддерживаемые форматы выгрузки.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// recordSeparator отделяет записи в текстовом формате.
const recordSeparator = "---"

var unsafePathChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ValidFormat сообщает, известен ли формат выгрузки.
func ValidFormat(format string) bool {
	return format == FormatText || format == FormatJSON
}

// DefaultPath строит имя файла в каталоге загрузок:
// <канал>_<метка времени>.<расширение>.
func DefaultPath(downloadsDir, channelRef, format string) string {
	name := unsafePathChars.ReplaceAllString(strings.TrimPrefix(channelRef, "@"), "_")
	if name == "" {
		name = "history"
	}
	ext := "txt"
	if format == FormatJSON {
		ext = "json"
	}
	stamp := time.Now().Format("20060102_150405")
	return filepath.Join(downloadsDir, fmt.Sprintf("%s_%s.%s", name, stamp, ext))
}

// Write атомарно сохраняет записи в файл в заданном формате.
func Write(path string, records []feed.Record, format string) error {
	var data []byte
	var err error

	switch format {
	case FormatJSON:
		data, err = json.MarshalIndent(records, "", "  ")
		if err != nil {
			return errors.Wrap(err, "marshal records")
		}
	case FormatText:
		data = []byte(renderText(records))
	default:
		return errors.Errorf("unknown export format %q", format)
	}

	if err = storage.AtomicWriteFile(path, data); err != nil {
		return errors.Wrap(err, "write export file")
	}
	return nil
}

// renderText — человекочитаемый вид: дата публикации, текст, разделитель.
func renderText(records []feed.Record) string {
	var b strings.Builder
	for _, rec := range records {
		b.WriteString("[" + rec.Date.Format(timeutil.DateLayout+" 15:04") + "]\n")
		b.WriteString(rec.Text)
		b.WriteString("\n" + recordSeparator + "\n")
	}
	return b.String()
}
