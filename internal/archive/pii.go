package archive

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
)

var (
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phoneRe = regexp.MustCompile(`\+?1?[-.\s]?\(?[0-9]{3}\)?[-.\s]?[0-9]{3}[-.\s]?[0-9]{4}\b`)
	cardRe  = regexp.MustCompile(`\b\d{3}-\d{3}-\d{3}\b`)
)

// HashIdentifier returns the hex-encoded SHA-256 of a patient identifier.
func HashIdentifier(id string) string {
	if id == "" {
		return ""
	}
	h := sha256.Sum256([]byte(id))
	return hex.EncodeToString(h[:])
}

// ScrubPII replaces emails, phone numbers and medical card ids with
// placeholders. It reports whether anything was replaced.
func ScrubPII(text string) (string, bool) {
	out := emailRe.ReplaceAllString(text, "[EMAIL]")
	out = phoneRe.ReplaceAllString(out, "[PHONE]")
	out = cardRe.ReplaceAllString(out, "[CARD_ID]")
	return out, out != text
}

// ScrubTurns applies ScrubPII to every turn in place.
func ScrubTurns(turns []Turn) bool {
	found := false
	for i := range turns {
		var hit bool
		turns[i].Text, hit = ScrubPII(turns[i].Text)
		found = found || hit
	}
	return found
}
