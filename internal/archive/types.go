package archive

import (
	"encoding/json"
	"time"
)

// RecordVersion is bumped whenever SessionRecord changes shape.
const RecordVersion = "1.0"

// SessionRecord is the archived form of one finished intake session.
type SessionRecord struct {
	Version     string          `json:"version"`
	SessionID   string          `json:"session_id"`
	VisitID     string          `json:"visit_id,omitempty"`
	PatientHash string          `json:"patient_hash,omitempty"` // sha256 of medical card id
	StartedAt   time.Time       `json:"started_at"`
	ArchivedAt  time.Time       `json:"archived_at"`
	TurnCount   int             `json:"turn_count"`
	Outcome     string          `json:"outcome"`
	Labels      Labels          `json:"labels"`
	Turns       []Turn          `json:"turns"`
	Report      json.RawMessage `json:"report,omitempty"`
}

// Labels summarize the session for later review without reading turns.
type Labels struct {
	UrgencyLevel     string `json:"urgency_level,omitempty"`
	RedFlagCount     int    `json:"red_flag_count"`
	Escalated        bool   `json:"escalated"`
	InjectionFlagged bool   `json:"injection_flagged"`
	ImageCount       int    `json:"image_count"`
	ContainsPII      bool   `json:"contains_pii"`
}

// Turn is one archived transcript entry. Image bytes are never archived.
type Turn struct {
	Speaker  string    `json:"speaker"`
	Text     string    `json:"text"`
	HasImage bool      `json:"has_image,omitempty"`
	SentAt   time.Time `json:"sent_at"`
}

// ManifestEntry is one JSONL line in the monthly manifest file.
type ManifestEntry struct {
	SessionID    string `json:"session_id"`
	S3Key        string `json:"s3_key"`
	UrgencyLevel string `json:"urgency_level,omitempty"`
	Escalated    bool   `json:"escalated"`
	ArchivedAt   string `json:"archived_at"`
	TurnCount    int    `json:"turn_count"`
	Outcome      string `json:"outcome"`
}
