package escalation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/swasthya/sahayak/internal/hospitals"
)

// State is the lifecycle state of an escalation session
type State string

const (
	// StateCreated means the assessment was received and no location attempt
	// has been made yet
	StateCreated State = "created"
	// StateLocating means a location acquisition request is in flight
	StateLocating State = "locating"
	// StateLocationResolved means coordinates were captured
	StateLocationResolved State = "location_resolved"
	// StateLocationFailed means the location provider failed or was denied
	StateLocationFailed State = "location_failed"
	// StateClosed is terminal; the user dismissed the emergency dialog
	StateClosed State = "closed"
)

// Error kinds for the escalation sub-flow
var (
	// ErrDispatch indicates a dispatch action with missing prerequisites or
	// a persistence failure
	ErrDispatch = errors.New("dispatch failure")
	// ErrLocation indicates a location acquisition failure
	ErrLocation = errors.New("location failure")
	// ErrSessionClosed indicates an action on a closed session
	ErrSessionClosed = errors.New("escalation session closed")
	// ErrLocatingInFlight indicates a second location request while one is
	// already outstanding
	ErrLocatingInFlight = errors.New("location request already in flight")
	// ErrSessionNotFound indicates an unknown session ID
	ErrSessionNotFound = errors.New("escalation session not found")
)

// Geolocation is a resolved coordinate pair from the platform's location
// provider
type Geolocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Key renders the location as the "lat,lon" string used for hospital lookup
func (g Geolocation) Key() string {
	return fmt.Sprintf("%f,%f", g.Latitude, g.Longitude)
}

// DispatchRecord is an auditable ambulance-dispatch request. Append-only;
// status transitions after creation belong to an external fulfillment system.
type DispatchRecord struct {
	ID              string      `json:"id"`
	FacilityName    string      `json:"facility_name"`
	FacilityAddress string      `json:"facility_address"`
	FacilityPhone   string      `json:"facility_phone"`
	Location        Geolocation `json:"location"`
	UserID          string      `json:"user_id"`
	IdempotencyKey  string      `json:"idempotency_key,omitempty"`
	Status          string      `json:"status"`
	CreatedAt       time.Time   `json:"created_at"`
}

// Recorder persists ambulance-dispatch requests. Implementations must
// tolerate concurrent appends from independent sessions.
type Recorder interface {
	Record(ctx context.Context, record *DispatchRecord) (string, error)
}

// Snapshot is a read-only view of a session for API responses
type Snapshot struct {
	ID            string               `json:"id"`
	State         State                `json:"state"`
	Utterance     string               `json:"utterance"`
	EmergencyType string               `json:"emergency_type"`
	Reason        string               `json:"reason"`
	FirstAid      string               `json:"first_aid,omitempty"`
	Facilities    []hospitals.Facility `json:"facilities,omitempty"`
	Location      *Geolocation         `json:"location,omitempty"`
	LocationError string               `json:"location_error,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
}
