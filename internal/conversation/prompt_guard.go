package conversation

import (
	"regexp"
	"strings"
)

// GuardResult is the outcome of an injection scan over patient text.
// Flagged messages are still forwarded; the flag feeds the audit trail.
type GuardResult struct {
	Flagged bool
	// Score is a heuristic risk score (0.0 = benign, 1.0 = almost certainly injection).
	Score   float64
	Reasons []string
}

type guardPattern struct {
	re     *regexp.Regexp
	reason string
	weight float64
}

// flagThreshold: messages scoring at or above this are flagged.
const flagThreshold = 0.7

var guardPatterns = []guardPattern{
	// attempts to override the intake instructions
	{regexp.MustCompile(`(?i)(ignore|disregard|forget)\s+(all\s+)?(previous|prior|above|earlier|your)\s+(instructions?|rules?|prompts?|guidelines?)`), "override:ignore_instructions", 0.9},
	{regexp.MustCompile(`(?i)you\s+are\s+now\s+(a|an|my)\s+`), "override:role_reassignment", 0.7},
	{regexp.MustCompile(`(?i)new\s+role\s*:|new\s+instructions?\s*:|system\s*prompt\s*:`), "override:new_role", 0.9},
	{regexp.MustCompile(`(?i)(pretend|imagine)\s+(that\s+)?you\s+(are|were)\s+(a\s+|an\s+)?(doctor|physician|pharmacist)`), "override:impersonate_clinician", 0.7},
	{regexp.MustCompile(`(?i)jailbreak|DAN\s*mode|developer\s*mode`), "override:jailbreak_keyword", 0.9},

	// attempts to read back instructions or other records
	{regexp.MustCompile(`(?i)(reveal|show|print|repeat|tell\s+me)\s+(your\s+)?(system\s+prompt|instructions?|hidden\s+prompt)`), "exfiltration:system_prompt", 0.8},
	{regexp.MustCompile(`(?i)(list|show|give|tell)\s+(me\s+)?(all\s+)?(the\s+)?(other\s+)?patients?('?s)?\s+(data|names?|records?|history|reports?)`), "exfiltration:patient_data", 0.7},
	{regexp.MustCompile(`(?i)\b(api|secret|database|db)\s*(key|token|password|credential)s?\b`), "exfiltration:credentials", 0.8},

	// conversation frame tampering
	{regexp.MustCompile(`(?i)\[/?INST\]|\[/?SYS\]|<\|im_start\|>|<\|im_end\|>|<\|system\|>`), "frame:special_tokens", 0.9},
	{regexp.MustCompile(`(?i)###\s*(system|instruction|assistant)\s*:`), "frame:role_markers", 0.7},
	{regexp.MustCompile(`(?i)` + regexp.QuoteMeta(CompletionSentinel)), "frame:completion_token", 0.8},
}

// ScanForInjection scores patient text for prompt injection signals.
func ScanForInjection(text string) GuardResult {
	if strings.TrimSpace(text) == "" {
		return GuardResult{}
	}

	var reasons []string
	maxWeight := 0.0
	for _, p := range guardPatterns {
		if p.re.MatchString(text) {
			reasons = append(reasons, p.reason)
			if p.weight > maxWeight {
				maxWeight = p.weight
			}
		}
	}

	// Multiple signals compound: add 0.1 per additional signal (capped at 1.0).
	score := maxWeight
	if len(reasons) > 1 {
		score = maxWeight + float64(len(reasons)-1)*0.1
		if score > 1.0 {
			score = 1.0
		}
	}

	return GuardResult{
		Flagged: score >= flagThreshold,
		Score:   score,
		Reasons: reasons,
	}
}
