package conversation

import "strings"

// CompletionSentinel is the token the assistant appends once intake is done.
const CompletionSentinel = "[INTAKE_COMPLETE]"

// CompletionRule decides whether a raw assistant reply ends the intake and
// returns the text to display.
type CompletionRule interface {
	Detect(raw string) (display string, complete bool)
}

// SentinelRule completes the session when Token appears anywhere in the reply.
type SentinelRule struct {
	Token string
}

func (r SentinelRule) Detect(raw string) (string, bool) {
	token := r.Token
	if token == "" {
		token = CompletionSentinel
	}
	if !strings.Contains(raw, token) {
		return raw, false
	}
	return strings.TrimSpace(strings.ReplaceAll(raw, token, "")), true
}
