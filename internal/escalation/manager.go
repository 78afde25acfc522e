package escalation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/swasthya/sahayak/internal/classifier"
	"github.com/swasthya/sahayak/pkg/logger"
)

// Manager owns the active escalation sessions. At most one session is active
// per client key; creating a new emergency for a client replaces its previous
// session.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	byClient map[string]string // client key -> active session ID
	recorder Recorder
	logger   *logger.Logger
}

// NewManager creates a new escalation session manager
func NewManager(recorder Recorder, log *logger.Logger) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		byClient: make(map[string]string),
		recorder: recorder,
		logger:   log.Named("escalation"),
	}
}

// Create opens a new session for a flagged utterance. Any previous active
// session for the same client key is closed first.
func (m *Manager) Create(clientKey, utterance, language string, assessment *classifier.EmergencyAssessment) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if prevID, ok := m.byClient[clientKey]; ok {
		if prev, ok := m.sessions[prevID]; ok {
			prev.Close()
			delete(m.sessions, prevID)
		}
	}

	session := newSession(uuid.NewString(), clientKey, utterance, language, assessment)
	m.sessions[session.ID()] = session
	m.byClient[clientKey] = session.ID()

	m.logger.Info("Escalation session created",
		logger.String("session_id", session.ID()),
		logger.String("emergency_type", assessment.EmergencyType),
		logger.Float64("confidence", assessment.Confidence))

	return session
}

// Get returns the session with the given ID
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// ActiveForClient returns the active session for a client key, if any
func (m *Manager) ActiveForClient(clientKey string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.byClient[clientKey]
	if !ok {
		return nil, false
	}
	session, ok := m.sessions[id]
	if !ok || session.State() == StateClosed {
		return nil, false
	}
	return session, true
}

// Close dismisses a session. In-flight work against it is not aborted; its
// results are simply discarded when they arrive.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}

	session.Close()
	delete(m.sessions, id)
	if m.byClient[session.clientKey] == id {
		delete(m.byClient, session.clientKey)
	}

	m.logger.Info("Escalation session closed", logger.String("session_id", id))
	return nil
}

// Dispatch requests an ambulance from the facility at the given index and
// persists the request as an auditable record. Requires a resolved location
// and a non-empty facility list. Does not change session state; requests for
// different facilities are independent.
func (m *Manager) Dispatch(ctx context.Context, sessionID string, facilityIndex int, userID, idempotencyKey string) (string, error) {
	session, err := m.Get(sessionID)
	if err != nil {
		return "", err
	}

	facility, location, err := session.SelectFacility(facilityIndex)
	if err != nil {
		return "", err
	}

	if userID == "" {
		userID = "anonymous"
	}

	record := &DispatchRecord{
		ID:              uuid.NewString(),
		FacilityName:    facility.Name,
		FacilityAddress: facility.Address,
		FacilityPhone:   facility.Phone,
		Location:        location,
		UserID:          userID,
		IdempotencyKey:  idempotencyKey,
		Status:          "pending",
		CreatedAt:       time.Now().UTC(),
	}

	dispatchID, err := m.recorder.Record(ctx, record)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDispatch, err)
	}

	m.logger.Info("Ambulance dispatch requested",
		logger.String("session_id", sessionID),
		logger.String("dispatch_id", dispatchID),
		logger.String("facility", facility.Name))

	return dispatchID, nil
}
