package settings

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DayHours is one weekday's opening window in "HH:MM" local time. A close
// earlier than open wraps past midnight.
type DayHours struct {
	Open   string `json:"open"`
	Close  string `json:"close"`
	Closed bool   `json:"closed,omitempty"`
}

// Hours maps "mon".."sun" to opening windows. An empty Hours means always
// open; a weekday missing from a non-empty Hours is closed.
type Hours map[string]DayHours

var weekdayKeys = [...]string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}

// UnmarshalJSON accepts either an object or the same object encoded as a
// JSON string, which older dashboard builds send.
func (h *Hours) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*h = nil
			return nil
		}
		b = []byte(s)
	}
	if string(b) == "null" {
		*h = nil
		return nil
	}
	m := map[string]DayHours{}
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	*h = m
	return nil
}

// Validate checks day keys and HH:MM values.
func (h Hours) Validate() error {
	for day, dh := range h {
		if !isWeekdayKey(day) {
			return fmt.Errorf("business_hours: unknown day %q", day)
		}
		if dh.Closed {
			continue
		}
		if _, err := parseClock(dh.Open); err != nil {
			return fmt.Errorf("business_hours.%s.open: %w", day, err)
		}
		if _, err := parseClock(dh.Close); err != nil {
			return fmt.Errorf("business_hours.%s.close: %w", day, err)
		}
	}
	return nil
}

// IsOpen reports whether t falls inside the opening window, evaluated in loc.
func (h Hours) IsOpen(t time.Time, loc *time.Location) bool {
	if len(h) == 0 {
		return true
	}
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	minute := local.Hour()*60 + local.Minute()

	if dh, ok := h[weekdayKeys[local.Weekday()]]; ok && !dh.Closed {
		open, errO := parseClock(dh.Open)
		closeAt, errC := parseClock(dh.Close)
		if errO == nil && errC == nil {
			if open <= closeAt && minute >= open && minute < closeAt {
				return true
			}
			if open > closeAt && minute >= open {
				return true
			}
		}
	}

	// The tail of yesterday's overnight window.
	prev := h[weekdayKeys[(local.Weekday()+6)%7]]
	if prev.Closed {
		return false
	}
	open, errO := parseClock(prev.Open)
	closeAt, errC := parseClock(prev.Close)
	return errO == nil && errC == nil && open > closeAt && minute < closeAt
}

func isWeekdayKey(k string) bool {
	for _, d := range weekdayKeys {
		if d == k {
			return true
		}
	}
	return false
}

// parseClock returns minutes since midnight.
func parseClock(v string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("want HH:MM, got %q", v)
	}
	return t.Hour()*60 + t.Minute(), nil
}
