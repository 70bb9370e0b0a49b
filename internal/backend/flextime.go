package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const wireLayout = "2006-01-02T15:04:05"

var stringLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	wireLayout,
	"2006-01-02T15:04",
	"2006-01-02",
}

// FlexTime принимает дату бэкенда в любом из двух представлений:
// ISO-8601 строкой или массивом [год, месяц, день, час?, минута?, секунда?, нано?].
// Даты без зоны трактуются как UTC.
type FlexTime struct {
	time.Time
}

func NewFlexTime(t time.Time) FlexTime { return FlexTime{Time: t} }

func (f *FlexTime) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		f.Time = time.Time{}
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		t, err := ParseTimeString(s)
		if err != nil {
			return err
		}
		f.Time = t
		return nil
	case '[':
		var parts []int
		if err := json.Unmarshal(b, &parts); err != nil {
			return fmt.Errorf("date array: %w", err)
		}
		t, err := TimeFromParts(parts)
		if err != nil {
			return err
		}
		f.Time = t
		return nil
	default:
		return fmt.Errorf("unsupported date representation %s", string(b))
	}
}

func (f FlexTime) MarshalJSON() ([]byte, error) {
	if f.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(f.Format(wireLayout))
}

// ParseTimeString разбирает ISO-8601 с зоной или без.
func ParseTimeString(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range stringLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// TimeFromParts собирает время из массива [y, m, d, h, min, s, nanos]; минимум 3 элемента.
func TimeFromParts(p []int) (time.Time, error) {
	if len(p) < 3 || len(p) > 7 {
		return time.Time{}, fmt.Errorf("date array must have 3..7 elements, got %d", len(p))
	}
	v := [7]int{}
	copy(v[:], p)
	if v[1] < 1 || v[1] > 12 || v[2] < 1 || v[2] > 31 {
		return time.Time{}, fmt.Errorf("date array %v out of range", p)
	}
	t := time.Date(v[0], time.Month(v[1]), v[2], v[3], v[4], v[5], v[6], time.UTC)
	if t.Day() != v[2] || t.Hour() != v[3] || t.Minute() != v[4] || t.Second() != v[5] {
		return time.Time{}, fmt.Errorf("date array %v out of range", p)
	}
	return t, nil
}

// DateOnly: "2006-01-02" для полей ввода.
func (f FlexTime) DateOnly() string {
	if f.IsZero() {
		return ""
	}
	return f.Format("2006-01-02")
}
