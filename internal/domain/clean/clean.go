// Package clean — нормализация текста сообщений перед пересылкой или экспортом.
// Конвейер фиксированного порядка: ссылки → упоминания → пробелы → переносы →
// эмодзи → финальный trim. Каждый проход — чистая функция над строкой,
// Normalize никогда не возвращает ошибку.
package clean

import (
	"regexp"
	"strings"
)

// Options включает отдельные проходы конвейера. Пустые Options оставляют
// только нормализацию пробелов и переносов строк.
type Options struct {
	StripLinks    bool // вырезать http(s)-URL и t.me-ссылки
	StripMentions bool // вырезать @упоминания
	StripEmoji    bool // вырезать эмодзи по диапазонам кодовых точек
}

var (
	// urlRegex покрывает любые http/https-ссылки, включая https://t.me/...
	urlRegex = regexp.MustCompile(`https?://\S+`)
	// tmeRegex ловит t.me-ссылки без схемы ("t.me/channel/123").
	tmeRegex = regexp.MustCompile(`\bt\.me/\S+`)
	// mentionRegex — @username в формате Telegram (буквы, цифры, подчёркивание).
	mentionRegex = regexp.MustCompile(`@[A-Za-z0-9_]+`)
	// spaceRunRegex схлопывает последовательности пробелов и табов.
	spaceRunRegex = regexp.MustCompile(`[ \t]+`)
	// newlineRunRegex ограничивает пустые строки: 3+ переносов → ровно 2.
	newlineRunRegex = regexp.MustCompile(`\n{3,}`)
)

// emojiRanges — диапазоны кодовых точек, считающиеся эмодзи.
// Включают variation selector и ZWJ, чтобы не оставлять хвосты от составных эмодзи.
var emojiRanges = [...][2]rune{
	{0x1F300, 0x1F5FF}, // пиктограммы и символы
	{0x1F600, 0x1F64F}, // смайлы
	{0x1F680, 0x1F6FF}, // транспорт
	{0x1F700, 0x1F77F},
	{0x1F780, 0x1F7FF},
	{0x1F800, 0x1F8FF},
	{0x1F900, 0x1F9FF}, // дополнительные смайлы и жесты
	{0x1FA00, 0x1FAFF},
	{0x1F1E6, 0x1F1FF}, // флаги (региональные индикаторы)
	{0x2600, 0x26FF},   // разные символы (солнце, зонт и т.п.)
	{0x2700, 0x27BF},   // dingbats
	{0x2B00, 0x2BFF},   // стрелки и звёзды
	{0xFE0F, 0xFE0F},   // variation selector-16
	{0x200D, 0x200D},   // zero-width joiner
}

// Normalize прогоняет текст через конвейер очистки. Порядок проходов важен:
// ссылки и упоминания убираются до схлопывания пробелов, иначе остаются
// двойные пробелы на месте вырезанного.
func Normalize(text string, opts Options) string {
	if text == "" {
		return ""
	}

	if opts.StripLinks {
		text = urlRegex.ReplaceAllString(text, "")
		text = tmeRegex.ReplaceAllString(text, "")
	}
	if opts.StripMentions {
		text = mentionRegex.ReplaceAllString(text, "")
	}

	text = spaceRunRegex.ReplaceAllString(text, " ")
	text = trimLines(text)
	text = newlineRunRegex.ReplaceAllString(text, "\n\n")

	if opts.StripEmoji {
		text = stripEmoji(text)
		// После вырезания эмодзи могли снова появиться двойные пробелы.
		text = spaceRunRegex.ReplaceAllString(text, " ")
		text = trimLines(text)
	}

	return strings.TrimSpace(text)
}

// trimLines обрезает пробелы по краям каждой строки, сохраняя переносы.
func trimLines(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.Join(lines, "\n")
}

// stripEmoji убирает руны из emojiRanges.
func stripEmoji(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if !isEmoji(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isEmoji(r rune) bool {
	for _, rng := range emojiRanges {
		if r >= rng[0] && r <= rng[1] {
			return true
		}
	}
	return false
}
