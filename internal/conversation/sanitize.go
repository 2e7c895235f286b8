package conversation

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultMaxMessageChars bounds a single patient message.
const DefaultMaxMessageChars = 1000

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#039;",
)

// Sanitize escapes HTML-significant characters. It is not idempotent and
// must be applied exactly once where raw user text enters the system.
func Sanitize(text string) string {
	return htmlEscaper.Replace(text)
}

var scriptPattern = regexp.MustCompile(`(?i)<script>|javascript:`)

// ValidateMessage is the admission gate for patient text. Rejected text
// must never reach the transcript or a backend.
func ValidateMessage(text string, maxChars int) error {
	if maxChars <= 0 {
		maxChars = DefaultMaxMessageChars
	}
	if strings.TrimSpace(text) == "" {
		return &ValidationError{Field: "text", Message: "Message cannot be empty"}
	}
	if utf8.RuneCountInString(text) > maxChars {
		return &ValidationError{Field: "text", Message: "Message too long"}
	}
	if scriptPattern.MatchString(text) {
		return &ValidationError{Field: "text", Message: "Malicious content detected"}
	}
	return nil
}
