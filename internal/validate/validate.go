// Package validate provides pure validation and normalization helpers for
// the consultation flow input (display name and phone number).
package validate

import (
	"regexp"
	"strings"
)

var (
	digitsPattern = regexp.MustCompile(`\d+`)
	namePattern   = regexp.MustCompile(`^[a-zA-Zа-яА-ЯёЁ][a-zA-Zа-яА-ЯёЁ\s-]{0,48}[a-zA-Zа-яА-ЯёЁ]$`)
)

// NormalizePhone reduces a raw phone input to its canonical international
// form: digits only, leading 8 rewritten to 7 for 11-digit numbers, with a
// "+" prefix. Inputs differing only in separators normalize identically.
func NormalizePhone(raw string) string {
	digits := strings.Join(digitsPattern.FindAllString(raw, -1), "")
	if strings.HasPrefix(digits, "8") && len(digits) == 11 {
		digits = "7" + digits[1:]
	}
	if digits == "" {
		return ""
	}
	return "+" + digits
}

// ValidPhone reports whether the raw input contains 10 to 15 digits.
func ValidPhone(raw string) bool {
	digits := strings.Join(digitsPattern.FindAllString(raw, -1), "")
	return len(digits) >= 10 && len(digits) <= 15
}

// ValidName reports whether the trimmed value is a display name of 2-50
// characters made of letters (Latin or Cyrillic), spaces, and hyphens.
func ValidName(value string) bool {
	trimmed := strings.TrimSpace(value)
	runes := []rune(trimmed)
	if len(runes) < 2 || len(runes) > 50 {
		return false
	}
	return namePattern.MatchString(trimmed)
}
