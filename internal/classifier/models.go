package classifier

import (
	"errors"

	"github.com/swasthya/sahayak/internal/hospitals"
)

// ErrClassification indicates a classification service failure, either a
// transport error or service output that does not honor the wire contract.
// Callers apply their own fallback policy; the adapter never retries.
var ErrClassification = errors.New("classification service failure")

// DetectionInput is the input to the emergency detection task
type DetectionInput struct {
	// Symptoms describes what the user is experiencing, in their own words.
	Symptoms string `json:"symptoms"`
	// Language is the BCP-47 code the symptoms are described in, if known.
	Language string `json:"language,omitempty"`
	// Location is free text or "lat,lon", used for context only.
	Location string `json:"location,omitempty"`
}

// EmergencyAssessment is the result of the emergency detection task.
// Immutable once produced.
type EmergencyAssessment struct {
	IsEmergency   bool                 `json:"is_emergency"`
	EmergencyType string               `json:"emergency_type,omitempty"`
	Reason        string               `json:"reason"`
	Confidence    float64              `json:"confidence_level"`
	FirstAid      string               `json:"first_aid,omitempty"`
	Facilities    []hospitals.Facility `json:"facilities,omitempty"`
}

// QAAnswer is the result of the health Q&A task
type QAAnswer struct {
	Question string `json:"question"`
	Language string `json:"language"`
	Answer   string `json:"answer"`
}
