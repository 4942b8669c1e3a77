package shared

import (
	"errors"
	"strings"
	"unicode"
)

const MaxLogContentLen = 140
const MaxAccountNameLen = 50

// TruncateWithEllipsis keeps at most maxLen runes of text, cutting at the last
// whitespace when there is one.
func TruncateWithEllipsis(text string, maxLen int) string {
	if len(text) <= maxLen {
		return text
	}
	// https://stackoverflow.com/a/73939904/7479498
	lastSpaceIx := -1
	runeCount := 0
	for i, r := range text {
		if unicode.IsSpace(r) {
			lastSpaceIx = i
		}
		if runeCount == maxLen {
			// i is the byte offset of the first rune that does not fit
			if lastSpaceIx == -1 {
				return text[:i] + "…"
			}
			return text[:lastSpaceIx] + "…"
		}
		runeCount++
	}
	// If here, string is shorter or equal to maxLen
	return text
}

func ValidateAccountName(name string) error {
	name = strings.TrimSpace(name)
	if len(name) == 0 {
		return errors.New("account name cannot be empty")
	}
	if len([]rune(name)) > MaxAccountNameLen {
		return errors.New("account name is too long")
	}
	for _, c := range name {
		if unicode.IsControl(c) {
			return errors.New("account name must not contain control characters")
		}
	}
	return nil
}

// IsBlank is true for strings made up only of whitespace.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
