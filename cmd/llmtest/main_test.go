package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/wolfman30/carefront-intake/internal/conversation"
	"github.com/wolfman30/carefront-intake/internal/doctors"
	"github.com/wolfman30/carefront-intake/internal/intake"
	"github.com/wolfman30/carefront-intake/internal/patients"
	"github.com/wolfman30/carefront-intake/internal/report"
)

type cannedLLM struct {
	replies []string
	calls   int
}

func (c *cannedLLM) Complete(_ context.Context, _ conversation.LLMRequest) (conversation.LLMResponse, error) {
	text := "Go on."
	if c.calls < len(c.replies) {
		text = c.replies[c.calls]
	}
	c.calls++
	return conversation.LLMResponse{Text: text}, nil
}

type cannedExtractor struct{}

func (cannedExtractor) Extract(_ context.Context, _ []conversation.ChatTurn, _ []doctors.Doctor) (report.ClinicalReport, error) {
	return report.ClinicalReport{
		ChiefComplaint:   "Headache",
		HPI:              "Three days of headache.",
		RedFlags:         []string{},
		PatientSummary:   "Headache.",
		UrgencyLevel:     report.UrgencyNonUrgent,
		AssignedDoctorID: "d2",
	}, nil
}

func TestRunInterviewUntilSentinel(t *testing.T) {
	roster, err := doctors.NewDirectory(doctors.DefaultRoster())
	if err != nil {
		t.Fatalf("roster: %v", err)
	}
	orch := intake.NewOrchestrator(
		conversation.NewEngine(&cannedLLM{replies: []string{"Hello, what brings you in?", "Thanks. [INTAKE_COMPLETE]"}}),
		cannedExtractor{},
		conversation.NewMemorySessionStore(time.Hour),
		patients.NewInMemoryRepository(),
		roster,
	)
	defer orch.Close(context.Background())

	var out bytes.Buffer
	if err := run(context.Background(), orch, "", strings.NewReader("\nheadache for three days\n"), &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	got := out.String()
	for _, want := range []string{"assistant> Hello, what brings you in?", "assistant> Thanks.", `"chiefComplaint": "Headache"`} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in output:\n%s", want, got)
		}
	}
}
