package escalation

import (
	"fmt"
	"sync"
	"time"

	"github.com/swasthya/sahayak/internal/classifier"
	"github.com/swasthya/sahayak/internal/hospitals"
)

// Session tracks the post-emergency sub-flow for a single flagged utterance:
// location acquisition, hospital listing, and ambulance dispatch. A session is
// owned by one user flow; the mutex only protects against a late-arriving
// refresh racing a dismissal.
type Session struct {
	mu sync.Mutex

	id        string
	clientKey string
	utterance string
	language  string
	createdAt time.Time

	emergencyType string
	reason        string
	firstAid      string
	facilities    []hospitals.Facility

	state         State
	location      *Geolocation
	locationError string
}

func newSession(id, clientKey, utterance, language string, assessment *classifier.EmergencyAssessment) *Session {
	return &Session{
		id:            id,
		clientKey:     clientKey,
		utterance:     utterance,
		language:      language,
		createdAt:     time.Now().UTC(),
		emergencyType: assessment.EmergencyType,
		reason:        assessment.Reason,
		firstAid:      assessment.FirstAid,
		facilities:    assessment.Facilities,
		state:         StateCreated,
	}
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.id
}

// State returns the current lifecycle state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Utterance returns the originating utterance text
func (s *Session) Utterance() string {
	return s.utterance
}

// Language returns the declared language of the originating utterance
func (s *Session) Language() string {
	return s.language
}

// Location returns the resolved location, or nil before resolution
func (s *Session) Location() *Geolocation {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.location == nil {
		return nil
	}
	loc := *s.location
	return &loc
}

// Matches reports whether the given utterance text belongs to this session's
// emergency. Used to tell a location-only follow-up apart from a fresh
// utterance.
func (s *Session) Matches(text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state != StateClosed && s.utterance == text
}

// BeginLocating enters the Locating state. Only one location request may be
// outstanding at a time; a manual retry is permitted after a failure.
func (s *Session) BeginLocating() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateClosed:
		return ErrSessionClosed
	case StateLocating:
		return ErrLocatingInFlight
	}

	s.state = StateLocating
	s.locationError = ""
	return nil
}

// ResolveLocation records captured coordinates and enters LocationResolved.
// A result arriving after dismissal is dropped silently.
func (s *Session) ResolveLocation(loc Geolocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return nil
	}
	if s.state != StateLocating {
		return fmt.Errorf("%w: cannot resolve location in state %s", ErrLocation, s.state)
	}

	s.location = &loc
	s.locationError = ""
	s.state = StateLocationResolved
	return nil
}

// FailLocation records a location provider failure and enters LocationFailed.
// A failure arriving after dismissal is dropped silently.
func (s *Session) FailLocation(reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return nil
	}
	if s.state != StateLocating {
		return fmt.Errorf("%w: cannot fail location in state %s", ErrLocation, s.state)
	}

	s.locationError = reason
	s.state = StateLocationFailed
	return nil
}

// ApplyRefresh replaces the first-aid text and facility list with the result
// of a successful refresh. Refreshes only ever move forward: a failed refresh
// never reaches this method, so the session cannot revert to a stale set.
// Refreshes against a closed session are dropped silently.
func (s *Session) ApplyRefresh(firstAid string, facilities []hospitals.Facility) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return
	}

	if firstAid != "" {
		s.firstAid = firstAid
	}
	if len(facilities) > 0 {
		s.facilities = facilities
	}
}

// SelectFacility validates dispatch prerequisites and returns the chosen
// facility together with the resolved location. Dispatch actions are
// independent per facility and do not change session state.
func (s *Session) SelectFacility(index int) (hospitals.Facility, Geolocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return hospitals.Facility{}, Geolocation{}, ErrSessionClosed
	}
	if s.location == nil {
		return hospitals.Facility{}, Geolocation{}, fmt.Errorf("%w: location must be resolved before dispatch", ErrDispatch)
	}
	if len(s.facilities) == 0 {
		return hospitals.Facility{}, Geolocation{}, fmt.Errorf("%w: no facilities available", ErrDispatch)
	}
	if index < 0 || index >= len(s.facilities) {
		return hospitals.Facility{}, Geolocation{}, fmt.Errorf("%w: facility index %d out of range", ErrDispatch, index)
	}

	return s.facilities[index], *s.location, nil
}

// Close marks the session terminal. Further state transitions are rejected
// and late results are discarded.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateClosed
}

// Snapshot returns a read-only copy of the session for API responses
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:            s.id,
		State:         s.state,
		Utterance:     s.utterance,
		EmergencyType: s.emergencyType,
		Reason:        s.reason,
		FirstAid:      s.firstAid,
		LocationError: s.locationError,
		CreatedAt:     s.createdAt,
	}
	if len(s.facilities) > 0 {
		snap.Facilities = make([]hospitals.Facility, len(s.facilities))
		copy(snap.Facilities, s.facilities)
	}
	if s.location != nil {
		loc := *s.location
		snap.Location = &loc
	}
	return snap
}
