package util

import (
	"errors"
	"strings"
)

const maxFileNameLen = 64

// SanitizeFileName removes path separators and rejects traversal patterns.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", errors.New("invalid file name")
	}
	s := strings.TrimSpace(name)
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, s)
	if len(s) > maxFileNameLen {
		s = s[:maxFileNameLen]
	}
	if strings.Trim(s, "_") == "" {
		return "", errors.New("invalid file name")
	}
	return s, nil
}
