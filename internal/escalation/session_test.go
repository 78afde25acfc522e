package escalation

import (
	"errors"
	"testing"

	"github.com/swasthya/sahayak/internal/classifier"
	"github.com/swasthya/sahayak/internal/hospitals"
)

func testAssessment() *classifier.EmergencyAssessment {
	return &classifier.EmergencyAssessment{
		IsEmergency:   true,
		EmergencyType: "heart attack",
		Reason:        "Chest pain radiating to the arm.",
		Confidence:    0.9,
		FirstAid:      "Sit down and stay calm.",
		Facilities: []hospitals.Facility{
			{Name: "Community Health Center", Address: "123 Village Main St, Ruralville", Phone: "555-0101", Distance: "2.5 km"},
			{Name: "District General Hospital", Address: "456 County Road, Townburg", Phone: "555-0102", Distance: "15 km"},
			{Name: "Urgent Care Clinic", Address: "789 Farm Lane, Greenfield", Phone: "555-0103", Distance: "8 km"},
		},
	}
}

func TestSession_LocationLifecycle(t *testing.T) {
	s := newSession("s1", "anonymous", "chest pain", "en", testAssessment())

	if s.State() != StateCreated {
		t.Fatalf("expected created, got %s", s.State())
	}

	if err := s.BeginLocating(); err != nil {
		t.Fatalf("BeginLocating: %v", err)
	}
	if s.State() != StateLocating {
		t.Fatalf("expected locating, got %s", s.State())
	}

	// Second concurrent attempt is rejected
	if err := s.BeginLocating(); !errors.Is(err, ErrLocatingInFlight) {
		t.Errorf("expected ErrLocatingInFlight, got %v", err)
	}

	loc := Geolocation{Latitude: 12.9716, Longitude: 77.5946}
	if err := s.ResolveLocation(loc); err != nil {
		t.Fatalf("ResolveLocation: %v", err)
	}
	if s.State() != StateLocationResolved {
		t.Fatalf("expected location_resolved, got %s", s.State())
	}
	got := s.Location()
	if got == nil || got.Latitude != loc.Latitude || got.Longitude != loc.Longitude {
		t.Errorf("stored location mismatch: %+v", got)
	}
}

func TestSession_LocationFailureAllowsRetry(t *testing.T) {
	s := newSession("s1", "anonymous", "chest pain", "en", testAssessment())

	if err := s.BeginLocating(); err != nil {
		t.Fatal(err)
	}
	if err := s.FailLocation("permission denied"); err != nil {
		t.Fatal(err)
	}
	if s.State() != StateLocationFailed {
		t.Fatalf("expected location_failed, got %s", s.State())
	}
	snap := s.Snapshot()
	if snap.LocationError != "permission denied" {
		t.Errorf("expected failure reason in snapshot, got %q", snap.LocationError)
	}

	// Manual retry from the failed state
	if err := s.BeginLocating(); err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
	if err := s.ResolveLocation(Geolocation{Latitude: 1, Longitude: 2}); err != nil {
		t.Fatal(err)
	}
	if s.Snapshot().LocationError != "" {
		t.Error("failure reason should clear on successful retry")
	}
}

func TestSession_ResolveOutsideLocatingIsAnError(t *testing.T) {
	s := newSession("s1", "anonymous", "chest pain", "en", testAssessment())

	if err := s.ResolveLocation(Geolocation{}); !errors.Is(err, ErrLocation) {
		t.Errorf("expected ErrLocation in created state, got %v", err)
	}
	if err := s.FailLocation("x"); !errors.Is(err, ErrLocation) {
		t.Errorf("expected ErrLocation in created state, got %v", err)
	}
}

func TestSession_LateResultsAfterCloseAreDropped(t *testing.T) {
	s := newSession("s1", "anonymous", "chest pain", "en", testAssessment())
	if err := s.BeginLocating(); err != nil {
		t.Fatal(err)
	}
	s.Close()

	// A result arriving after dismissal is a silent no-op
	if err := s.ResolveLocation(Geolocation{Latitude: 1, Longitude: 2}); err != nil {
		t.Errorf("late resolution should be dropped silently, got %v", err)
	}
	if err := s.FailLocation("late failure"); err != nil {
		t.Errorf("late failure should be dropped silently, got %v", err)
	}
	s.ApplyRefresh("late guidance", []hospitals.Facility{{Name: "Ghost Hospital"}})

	snap := s.Snapshot()
	if snap.State != StateClosed {
		t.Fatalf("expected closed, got %s", snap.State)
	}
	if snap.Location != nil {
		t.Error("late location leaked into a closed session")
	}
	if snap.FirstAid != "Sit down and stay calm." {
		t.Errorf("late refresh leaked into a closed session: %q", snap.FirstAid)
	}

	if err := s.BeginLocating(); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("expected ErrSessionClosed, got %v", err)
	}
}

func TestSession_ApplyRefreshIsMonotonic(t *testing.T) {
	s := newSession("s1", "anonymous", "chest pain", "en", testAssessment())

	// Empty refresh results keep the previous data
	s.ApplyRefresh("", nil)
	snap := s.Snapshot()
	if snap.FirstAid != "Sit down and stay calm." {
		t.Errorf("empty refresh wiped first aid: %q", snap.FirstAid)
	}
	if len(snap.Facilities) != 3 {
		t.Errorf("empty refresh wiped facilities: %d", len(snap.Facilities))
	}

	// Non-empty results replace them
	s.ApplyRefresh("Apply pressure to the wound.", []hospitals.Facility{{Name: "District General Hospital"}})
	snap = s.Snapshot()
	if snap.FirstAid != "Apply pressure to the wound." {
		t.Errorf("refresh did not apply: %q", snap.FirstAid)
	}
	if len(snap.Facilities) != 1 {
		t.Errorf("refresh did not replace facilities: %d", len(snap.Facilities))
	}
}

func TestSession_SelectFacilityValidation(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(*Session)
		index   int
		wantErr error
	}{
		{
			name:    "no location resolved",
			prepare: func(s *Session) {},
			index:   0,
			wantErr: ErrDispatch,
		},
		{
			name: "index out of range",
			prepare: func(s *Session) {
				s.BeginLocating()
				s.ResolveLocation(Geolocation{Latitude: 1, Longitude: 2})
			},
			index:   5,
			wantErr: ErrDispatch,
		},
		{
			name: "negative index",
			prepare: func(s *Session) {
				s.BeginLocating()
				s.ResolveLocation(Geolocation{Latitude: 1, Longitude: 2})
			},
			index:   -1,
			wantErr: ErrDispatch,
		},
		{
			name: "closed session",
			prepare: func(s *Session) {
				s.Close()
			},
			index:   0,
			wantErr: ErrSessionClosed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSession("s1", "anonymous", "chest pain", "en", testAssessment())
			tt.prepare(s)
			_, _, err := s.SelectFacility(tt.index)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestSession_SelectFacilityReturnsChosenEntry(t *testing.T) {
	s := newSession("s1", "anonymous", "chest pain", "en", testAssessment())
	if err := s.BeginLocating(); err != nil {
		t.Fatal(err)
	}
	loc := Geolocation{Latitude: 12.9716, Longitude: 77.5946}
	if err := s.ResolveLocation(loc); err != nil {
		t.Fatal(err)
	}

	facility, gotLoc, err := s.SelectFacility(2)
	if err != nil {
		t.Fatal(err)
	}
	if facility.Name != "Urgent Care Clinic" {
		t.Errorf("expected Urgent Care Clinic, got %q", facility.Name)
	}
	if gotLoc != loc {
		t.Errorf("location mismatch: %+v", gotLoc)
	}
}

func TestSession_MatchesOnlyWhileOpen(t *testing.T) {
	s := newSession("s1", "anonymous", "chest pain", "en", testAssessment())

	if !s.Matches("chest pain") {
		t.Error("expected match for the originating utterance")
	}
	if s.Matches("different text") {
		t.Error("unexpected match for unrelated text")
	}

	s.Close()
	if s.Matches("chest pain") {
		t.Error("closed session must not claim new utterances")
	}
}
