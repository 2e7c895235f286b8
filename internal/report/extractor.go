package report

import (
	"context"
	"fmt"
	"strings"

	"github.com/wolfman30/carefront-intake/internal/conversation"
	"github.com/wolfman30/carefront-intake/internal/doctors"
	"github.com/wolfman30/carefront-intake/pkg/logging"
)

const imageMarker = "[Image Uploaded]"

const extractionPrompt = `Analyze this patient intake. Extract clinical data.

CRITICAL INSTRUCTION ON RED FLAGS:
- Only include symptoms in 'redFlags' if they indicate IMMEDIATE DANGER or URGENT care needs (e.g., chest pain, difficulty breathing, severe bleeding, suicidal ideation, signs of stroke).
- Do NOT list chronic conditions, mild pain, common colds, or routine symptoms as red flags.
- If there are no dangerous symptoms, return an empty list for redFlags.

Then, select the MOST APPROPRIATE doctor from the list below based on the patient's symptoms.
Prioritize doctors who are 'Available'.

AVAILABLE DOCTORS:
%s

TRANSCRIPT:
%s
`

// Extractor turns a finished transcript into a ClinicalReport. It performs
// no persistence.
type Extractor struct {
	llm    conversation.LLMClient
	logger *logging.Logger
}

func NewExtractor(llm conversation.LLMClient, logger *logging.Logger) *Extractor {
	if llm == nil {
		panic("report: llm client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Extractor{llm: llm, logger: logger}
}

// Extract runs one extraction attempt. Rate-limit and timeout failures are
// returned as a retryable *conversation.BackendError; every other failure
// matches ErrExtractionFailed.
func (e *Extractor) Extract(ctx context.Context, transcript []conversation.ChatTurn, roster []doctors.Doctor) (ClinicalReport, error) {
	prompt := BuildPrompt(transcript, roster)

	resp, err := e.llm.Complete(ctx, conversation.LLMRequest{
		Messages:       []conversation.ChatMessage{{Role: conversation.ChatRoleUser, Content: prompt}},
		Temperature:    -1,
		ResponseSchema: Schema(),
	})
	if err != nil {
		cause := conversation.ClassifyBackendError(err)
		e.logger.Warn("report extraction call failed", "kind", string(cause.Kind), "error", err)
		if cause.Retryable() {
			return ClinicalReport{}, fmt.Errorf("report: extraction: %w", cause)
		}
		return ClinicalReport{}, fmt.Errorf("%w: %w", ErrExtractionFailed, cause)
	}

	out, err := ParseReport(resp.Text, roster)
	if err != nil {
		e.logger.Warn("report extraction response rejected", "error", err, "stop_reason", resp.StopReason)
		return ClinicalReport{}, err
	}
	return out, nil
}

// BuildPrompt renders the roster and transcript into the extraction prompt.
func BuildPrompt(transcript []conversation.ChatTurn, roster []doctors.Doctor) string {
	lines := make([]string, 0, len(roster))
	for _, d := range roster {
		lines = append(lines, d.RosterLine())
	}
	return fmt.Sprintf(extractionPrompt, strings.Join(lines, "\n"), FormatTranscript(transcript))
}

// FormatTranscript renders one "SPEAKER: text" line per turn. The engine
// escapes patient and assistant text before it is stored, so it is not
// escaped again here. System notices are omitted.
func FormatTranscript(transcript []conversation.ChatTurn) string {
	lines := make([]string, 0, len(transcript))
	for _, turn := range transcript {
		if turn.Speaker == conversation.SpeakerSystem {
			continue
		}
		line := strings.ToUpper(string(turn.Speaker)) + ": " + turn.Text
		if turn.Image != nil {
			line += " " + imageMarker
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
