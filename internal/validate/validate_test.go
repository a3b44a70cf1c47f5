package validate_test

import (
	"strings"
	"testing"

	"github.com/partnerdesk/partnerbot/internal/validate"
)

func TestNormalizePhone(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "digits only",
			input:    "79161234567",
			expected: "+79161234567",
		},
		{
			name:     "plus and spaces",
			input:    "+7 916 123 45 67",
			expected: "+79161234567",
		},
		{
			name:     "dashes and parentheses",
			input:    "+7 (916) 123-45-67",
			expected: "+79161234567",
		},
		{
			name:     "leading eight rewritten",
			input:    "8 916 123 45 67",
			expected: "+79161234567",
		},
		{
			name:     "us number with separators",
			input:    "+1 555 123 4567",
			expected: "+15551234567",
		},
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := validate.NormalizePhone(tc.input); got != tc.expected {
				t.Errorf("NormalizePhone(%q) = %q, want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestNormalizePhoneSeparatorEquivalence(t *testing.T) {
	t.Parallel()

	// All spellings of the same number must share one canonical form.
	variants := []string{
		"79161234567",
		"+79161234567",
		"+7 916 123-45-67",
		"8 (916) 123 45 67",
		"8-916-123-45-67",
	}

	canonical := validate.NormalizePhone(variants[0])
	for _, v := range variants[1:] {
		if got := validate.NormalizePhone(v); got != canonical {
			t.Errorf("NormalizePhone(%q) = %q, want %q", v, got, canonical)
		}
	}
}

func TestValidPhone(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		input    string
		expected bool
	}{
		{name: "ten digits", input: "5551234567", expected: true},
		{name: "fifteen digits", input: "123456789012345", expected: true},
		{name: "nine digits", input: "555123456", expected: false},
		{name: "sixteen digits", input: "1234567890123456", expected: false},
		{name: "digits with separators", input: "+7 (916) 123-45-67", expected: true},
		{name: "no digits", input: "call me", expected: false},
		{name: "empty", input: "", expected: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := validate.ValidPhone(tc.input); got != tc.expected {
				t.Errorf("ValidPhone(%q) = %v, want %v", tc.input, got, tc.expected)
			}
		})
	}
}

func TestValidName(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		input    string
		expected bool
	}{
		{name: "latin name", input: "Ann Lee", expected: true},
		{name: "cyrillic name", input: "Иван Петров", expected: true},
		{name: "hyphenated", input: "Анна-Мария", expected: true},
		{name: "minimum length", input: "Ян", expected: true},
		{name: "maximum length", input: strings.Repeat("a", 50), expected: true},
		{name: "one character", input: "A", expected: false},
		{name: "over maximum", input: strings.Repeat("a", 51), expected: false},
		{name: "digits rejected", input: "Ann123", expected: false},
		{name: "punctuation rejected", input: "Ann!", expected: false},
		{name: "surrounding spaces trimmed", input: "  Ann Lee  ", expected: true},
		{name: "empty", input: "", expected: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := validate.ValidName(tc.input); got != tc.expected {
				t.Errorf("ValidName(%q) = %v, want %v", tc.input, got, tc.expected)
			}
		})
	}
}
