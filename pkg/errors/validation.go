package errors

import (
	"strings"
	"unicode"
)

// maxPathLen bounds data and output paths accepted from configuration.
const maxPathLen = 4096

// ValidatePath validates a file path taken from configuration or flags.
//
// The rules are intentionally narrow: livegraph only reads the data file and
// writes render output, so it rejects empty paths, null bytes and control
// characters but allows relative and absolute paths alike.
func ValidatePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	if len(path) > maxPathLen {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLen)
	}

	for _, r := range path {
		if r == 0 || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid control characters")
		}
	}

	return nil
}

// SanitizeLabel strips control characters from a node key so that it can be
// shown in a terminal or embedded in render output. Printable text,
// including non-ASCII letters, is kept unchanged.
func SanitizeLabel(s string) string {
	if strings.IndexFunc(s, unicode.IsControl) < 0 {
		return s
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}
