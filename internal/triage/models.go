package triage

import (
	"github.com/swasthya/sahayak/internal/classifier"
	"github.com/swasthya/sahayak/internal/escalation"
)

// QAUnavailableMessage is the fixed user-safe message returned when the Q&A
// task fails. Raw service errors are never surfaced.
const QAUnavailableMessage = "Sorry, I could not process your request. Please try again."

// Utterance is one user-submitted message. Immutable; created per submission.
type Utterance struct {
	// Text is the raw message text
	Text string `json:"text"`
	// Language is the declared language code, optional
	Language string `json:"language,omitempty"`
	// Location is an optional free-text or "lat,lon" location
	Location string `json:"location,omitempty"`
	// UserID identifies the user for history and dispatch audit, optional
	UserID string `json:"user_id,omitempty"`
	// SessionID binds a location-only follow-up to an active escalation
	// session, optional
	SessionID string `json:"session_id,omitempty"`
}

// clientKey identifies the client session owning at most one active
// escalation at a time
func (u Utterance) clientKey() string {
	if u.UserID != "" {
		return u.UserID
	}
	return "anonymous"
}

// Status is the tag of a triage result
type Status string

const (
	// StatusIdle means the utterance was empty; nothing was invoked
	StatusIdle Status = "idle"
	// StatusEmergency means the utterance was flagged as a medical emergency
	StatusEmergency Status = "emergency"
	// StatusAnswered means the Q&A task produced an answer
	StatusAnswered Status = "answered"
	// StatusFailed means the Q&A fallback itself failed
	StatusFailed Status = "failed"
)

// ErrorKind identifies the failure carried by a Failed result
type ErrorKind string

// ErrKindQAUnavailable means the Q&A task failed after the emergency path
// declined the utterance
const ErrKindQAUnavailable ErrorKind = "qa_unavailable"

// Result is the tagged outcome of handling one utterance
type Result struct {
	Status     Status                          `json:"status"`
	Assessment *classifier.EmergencyAssessment `json:"assessment,omitempty"`
	Answer     *classifier.QAAnswer            `json:"answer,omitempty"`
	Session    *escalation.Snapshot            `json:"session,omitempty"`
	ErrorKind  ErrorKind                       `json:"error_kind,omitempty"`
	Message    string                          `json:"message,omitempty"`
}
