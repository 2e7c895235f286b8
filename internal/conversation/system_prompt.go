package conversation

import (
	"fmt"
	"strings"
)

// BootstrapPrompt is the synthetic first user message that elicits the greeting.
const BootstrapPrompt = "Start intake. Brief."

// UnknownPatientGreeting is also the fallback greeting when the model says nothing.
const UnknownPatientGreeting = "Name and main reason for visit?"

const baseIntakeInstruction = `You are an efficient, direct AI Intake Nurse.
1. GOAL: Gather concise medical info (Chief Complaint, HPI, Meds, Allergies).
2. STYLE: Be extremely brief. No pleasantries. No "I understand". Just ask the next question.
3. PROTOCOL:
   - Ask only ONE question at a time.
   - If emergency symptoms appear (chest pain, severe bleeding, difficulty breathing), STOP and say "CALL 911".
   - CRITICAL: Once you have gathered the Chief Complaint, History of Present Illness (HPI), Medications, and Allergies, you MUST end the interview.
   - TO END: Append the exact token "%[1]s" to the end of your final response. Example: "Thank you. I have all the info. %[1]s"
4. ROLE: Info gathering only. NEVER diagnose.
`

// IntakeInstructions builds the system prompt. A known patient is greeted
// by name and asked whether the visit relates to their recorded history.
func IntakeInstructions(patient *PatientContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, baseIntakeInstruction, CompletionSentinel)

	if patient == nil {
		b.WriteString("5. CONTEXT: Unknown patient.\n")
		fmt.Fprintf(&b, "   - Start with: %q\n", UnknownPatientGreeting)
		return b.String()
	}

	history := strings.TrimSpace(patient.HistorySummary)
	historyLabel := history
	if history == "" {
		history = "None provided"
		historyLabel = "medical records"
	}
	fmt.Fprintf(&b, "5. CONTEXT: You are speaking to %s.\n", patient.Name)
	b.WriteString("   - Do NOT ask for their name. You already know it.\n")
	fmt.Fprintf(&b, "   - KNOWN HISTORY: %s.\n", history)
	b.WriteString("   - Start by confirming if the visit is related to their history or something new, but keep it brief.\n")
	fmt.Fprintf(&b, "   - First message example: \"Hello %s. I see your history of %s. What brings you in today?\"\n", patient.Name, historyLabel)
	return b.String()
}

func fallbackGreeting(patient *PatientContext) string {
	if patient == nil {
		return UnknownPatientGreeting
	}
	return fmt.Sprintf("Hello %s. What brings you in today?", patient.Name)
}

func welcomeNotice(patient *PatientContext) string {
	if patient == nil {
		return "Secure session established."
	}
	return fmt.Sprintf("Welcome, %s. History Loaded.", patient.Name)
}
