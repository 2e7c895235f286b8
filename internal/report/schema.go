package report

import "github.com/wolfman30/carefront-intake/internal/conversation"

func stringArray(description string) *conversation.Schema {
	return &conversation.Schema{
		Type:        conversation.SchemaArray,
		Items:       &conversation.Schema{Type: conversation.SchemaString},
		Description: description,
	}
}

// Schema is the response schema sent with every extraction request.
func Schema() *conversation.Schema {
	urgency := make([]string, len(UrgencyLevels))
	for i, level := range UrgencyLevels {
		urgency[i] = string(level)
	}
	return &conversation.Schema{
		Type: conversation.SchemaObject,
		Properties: map[string]*conversation.Schema{
			"chiefComplaint":     {Type: conversation.SchemaString, Description: "Primary reason for visit"},
			"hpi":                {Type: conversation.SchemaString, Description: "Medical summary of History of Present Illness"},
			"medications":        stringArray("List of medications"),
			"allergies":          stringArray("List of allergies"),
			"redFlags":           stringArray("CRITICAL ALERTS ONLY (e.g. Chest Pain, Stroke, severe distress). Leave empty if routine."),
			"ros":                stringArray("Review of Systems highlights"),
			"patientSummary":     {Type: conversation.SchemaString, Description: "6th-grade level summary for patient"},
			"suggestedQuestions": stringArray("3 questions for the doctor"),
			"urgencyLevel":       {Type: conversation.SchemaString, Enum: urgency},
			"assignedDoctorId":   {Type: conversation.SchemaString, Description: "The ID of the best matching doctor from the provided list"},
			"assignmentReason":   {Type: conversation.SchemaString, Description: "Brief reason why this doctor was selected based on specialty"},
		},
		Required: []string{"chiefComplaint", "hpi", "redFlags", "patientSummary", "urgencyLevel", "assignedDoctorId"},
	}
}
