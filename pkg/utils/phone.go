package utils

import (
	"errors"
	"strings"
)

// ErrInvalidPhone is returned for numbers that cannot be expressed in E.164.
var ErrInvalidPhone = errors.New("invalid phone number")

// NormalizeE164 converts North American input ("415-555-0100", "(415) 555 0100",
// "14155550100") and already-prefixed numbers ("+44...") to E.164.
func NormalizeE164(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidPhone
	}
	plus := strings.HasPrefix(raw, "+")

	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	switch {
	case plus && len(digits) >= 8 && len(digits) <= 15:
		return "+" + digits, nil
	case !plus && len(digits) == 10:
		return "+1" + digits, nil
	case !plus && len(digits) == 11 && digits[0] == '1':
		return "+" + digits, nil
	default:
		return "", ErrInvalidPhone
	}
}

// SamePhone compares two numbers after normalization; unparseable input
// falls back to a trimmed string comparison.
func SamePhone(a, b string) bool {
	na, errA := NormalizeE164(a)
	nb, errB := NormalizeE164(b)
	if errA != nil || errB != nil {
		return strings.TrimSpace(a) == strings.TrimSpace(b)
	}
	return na == nb
}
