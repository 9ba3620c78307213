package util

import (
	"errors"
	"path"
	"strings"
	"unicode/utf8"
)

const maxFileNameRunes = 120

// ErrInvalidFileName is returned when nothing usable remains of a file name.
var ErrInvalidFileName = errors.New("invalid file name")

// SanitizeFileName reduces a user-supplied name to a single safe path segment.
// Separators, whitespace and control characters become underscores and
// traversal sequences are collapsed.
func SanitizeFileName(name string) (string, error) {
	s := strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	s = path.Base(s)
	if s == "." || s == "/" {
		return "", ErrInvalidFileName
	}

	var b strings.Builder
	for _, r := range s {
		switch {
		case r == utf8.RuneError, r < 0x20, r == 0x7f:
			b.WriteByte('_')
		case r == ' ', r == '/', r == ':', r == '*', r == '?', r == '"', r == '<', r == '>', r == '|':
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}
	out := b.String()
	for strings.Contains(out, "..") {
		out = strings.ReplaceAll(out, "..", ".")
	}
	out = strings.Trim(out, ".")
	if out == "" || strings.Trim(out, "_") == "" {
		return "", ErrInvalidFileName
	}
	if utf8.RuneCountInString(out) > maxFileNameRunes {
		runes := []rune(out)
		out = string(runes[len(runes)-maxFileNameRunes:])
	}
	return out, nil
}
