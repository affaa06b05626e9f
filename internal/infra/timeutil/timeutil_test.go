package timeutil_test

import (
	"testing"
	"time"

	"telegram-chanreader/internal/infra/timeutil"
)

func TestParseLocation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		value      string
		wantOffset int // секунды от UTC; для IANA-зон не проверяется
		wantIANA   string
		wantErr    bool
	}{
		{name: "ianaZone", value: "Europe/Moscow", wantIANA: "Europe/Moscow"},
		{name: "plusColonOffset", value: "+03:00", wantOffset: 3 * 3600},
		{name: "compactOffset", value: "-0700", wantOffset: -7 * 3600},
		{name: "utcPrefix", value: "UTC+3", wantOffset: 3 * 3600},
		{name: "gmtHalfHour", value: "GMT-04:30", wantOffset: -(4*3600 + 30*60)},
		{name: "zulu", value: "Z", wantOffset: 0},
		{name: "empty", value: "", wantErr: true},
		{name: "garbage", value: "Mars/Olympus", wantErr: true},
		{name: "offsetTooLarge", value: "+15:00", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			loc, err := timeutil.ParseLocation(tc.value)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("ParseLocation(%q) expected error, got %v", tc.value, loc)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseLocation(%q) error: %v", tc.value, err)
			}
			if tc.wantIANA != "" {
				if loc.String() != tc.wantIANA {
					t.Errorf("location = %q, want %q", loc.String(), tc.wantIANA)
				}
				return
			}
			_, offset := time.Date(2024, 5, 1, 0, 0, 0, 0, loc).Zone()
			if offset != tc.wantOffset {
				t.Errorf("offset = %d, want %d", offset, tc.wantOffset)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC+03:00", 3*3600)
	got, err := timeutil.ParseDate("05.03.2024", loc)
	if err != nil {
		t.Fatalf("ParseDate() error: %v", err)
	}
	want := time.Date(2024, 3, 5, 0, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Errorf("ParseDate() = %v, want %v", got, want)
	}

	if _, err = timeutil.ParseDate("2024-03-05", loc); err == nil {
		t.Error("ParseDate() must reject ISO dates")
	}
	if _, err = timeutil.ParseDate("31.02.2024", loc); err == nil {
		t.Error("ParseDate() must reject impossible dates")
	}
}

func TestEndOfDay(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC+03:00", 3*3600)
	in := time.Date(2024, 3, 5, 10, 30, 0, 0, loc)
	got := timeutil.EndOfDay(in)

	if got.Day() != 5 || got.Hour() != 23 || got.Minute() != 59 || got.Second() != 59 {
		t.Errorf("EndOfDay() = %v, want last second of the same day", got)
	}
	if got.Location() != loc {
		t.Errorf("EndOfDay() location = %v, want %v", got.Location(), loc)
	}
	// Сообщение, датированное последней секундой суток, не позже границы.
	boundary := time.Date(2024, 3, 5, 23, 59, 59, 0, loc)
	if boundary.After(got) {
		t.Error("boundary message must not be after EndOfDay")
	}
}
