// Пакет timeutil содержит служебные функции для работы со временем:
// парсинг таймзон и пользовательских дат формата DD.MM.YYYY.
package timeutil

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateLayout — формат дат, принимаемый CLI (флаги -s/--start, -e/--end).
const DateLayout = "02.01.2006"

// ParseLocation разбирает либо IANA-таймзону ("Europe/Moscow"), либо
// UTC-смещение ("+03:00", "-0700", "UTC+3"). Возвращает *time.Location.
func ParseLocation(value string) (*time.Location, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return nil, errors.New("empty timezone")
	}
	if loc, err := time.LoadLocation(v); err == nil {
		return loc, nil
	}
	if loc, ok := parseUTCOffset(v); ok {
		return loc, nil
	}
	return nil, fmt.Errorf("invalid timezone %q: not an IANA name or UTC offset", value)
}

// parseUTCOffset парсит строки вида "+03:00", "-0700", "UTC+3", "GMT-04:30", "Z".
func parseUTCOffset(value string) (*time.Location, bool) {
	v := strings.TrimSpace(strings.ToUpper(value))
	if v == "Z" || v == "UTC" || v == "GMT" {
		return time.FixedZone("UTC+00:00", 0), true
	}
	v = strings.TrimPrefix(v, "UTC")
	v = strings.TrimPrefix(v, "GMT")
	v = strings.TrimSpace(v)

	re := regexp.MustCompile(`^([+-])\s*(\d{1,2})(?::?(\d{2}))?$`)
	m := re.FindStringSubmatch(v)
	if m == nil {
		return nil, false
	}
	sign := 1
	if m[1] == "-" {
		sign = -1
	}
	hours, err := strconv.Atoi(m[2])
	if err != nil {
		return nil, false
	}
	mins := 0
	if m[3] != "" {
		if mins, err = strconv.Atoi(m[3]); err != nil {
			return nil, false
		}
	}
	if hours < 0 || hours > 14 || mins < 0 || mins > 59 {
		return nil, false
	}
	const (
		secInHour = 60 * 60
		secInMin  = 60
	)
	offset := sign * ((hours * secInHour) + (mins * secInMin))
	name := fmt.Sprintf("UTC%+03d:%02d", sign*hours, mins)
	return time.FixedZone(name, offset), true
}

// ParseDate разбирает дату DD.MM.YYYY в полночь указанной таймзоны.
// При loc=nil используется time.Local.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(value), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected %s: %w", value, "DD.MM.YYYY", err)
	}
	return t, nil
}

// EndOfDay возвращает последнюю наносекунду суток t. Нужен для включающей
// верхней границы диапазона экспорта: сообщение с датой ==end остаётся в выборке.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}
