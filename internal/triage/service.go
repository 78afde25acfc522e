package triage

import (
	"context"
	"strings"

	"github.com/swasthya/sahayak/internal/classifier"
	"github.com/swasthya/sahayak/internal/escalation"
	"github.com/swasthya/sahayak/internal/hospitals"
	"github.com/swasthya/sahayak/pkg/logger"
)

// Classifier is the classification service boundary. Both operations are
// stateless single round trips; the orchestrator owns all fallback policy.
type Classifier interface {
	DetectEmergency(ctx context.Context, input classifier.DetectionInput) (*classifier.EmergencyAssessment, error)
	AnswerHealthQuestion(ctx context.Context, question, language string) (*classifier.QAAnswer, error)
}

// History persists chat turns. Failures are non-fatal and never block a
// result from reaching the user.
type History interface {
	SaveMessage(ctx context.Context, userID, role, text string) (int64, error)
}

// Service is the triage orchestrator: it decides, per utterance, between the
// emergency escalation path and the Q&A fallback.
type Service struct {
	classifier Classifier
	hospitals  hospitals.Locator
	sessions   *escalation.Manager
	history    History
	threshold  float64
	logger     *logger.Logger
}

// NewService creates a new triage orchestrator
func NewService(
	cls Classifier,
	locator hospitals.Locator,
	sessions *escalation.Manager,
	history History,
	confidenceThreshold float64,
	log *logger.Logger,
) *Service {
	return &Service{
		classifier: cls,
		hospitals:  locator,
		sessions:   sessions,
		history:    history,
		threshold:  confidenceThreshold,
		logger:     log.Named("triage"),
	}
}

// Handle processes one user utterance and returns a tagged result.
//
// Empty text short-circuits to Idle without any service call. Otherwise
// emergency detection runs first; a detection failure is swallowed and the
// utterance falls through to Q&A (fail-open) because a blocked user is worse
// than a missed direct answer. A flagged assessment above the confidence
// threshold opens an escalation session and skips Q&A entirely.
func (s *Service) Handle(ctx context.Context, utt Utterance) Result {
	if strings.TrimSpace(utt.Text) == "" {
		return Result{Status: StatusIdle}
	}

	// A follow-up carrying a fresh location for an already-flagged utterance
	// only refreshes the escalation data; the emergency decision stands for
	// the lifetime of the session and Q&A is never consulted.
	if session, ok := s.locationUpdateSession(utt); ok {
		snapshot := s.refresh(ctx, session, utt.Location)
		return Result{Status: StatusEmergency, Session: &snapshot}
	}

	s.saveHistory(ctx, utt.clientKey(), "user", utt.Text)

	assessment, err := s.classifier.DetectEmergency(ctx, classifier.DetectionInput{
		Symptoms: utt.Text,
		Language: utt.Language,
		Location: utt.Location,
	})
	if err != nil {
		// Fail open: treat as non-emergency and fall through to Q&A
		s.logger.Warn("Emergency detection failed, falling back to Q&A",
			logger.Error(err))
		assessment = nil
	}

	if assessment != nil && assessment.IsEmergency && assessment.Confidence > s.threshold {
		return s.escalate(ctx, utt, assessment)
	}

	answer, err := s.classifier.AnswerHealthQuestion(ctx, utt.Text, utt.Language)
	if err != nil {
		s.logger.Error("Q&A failed", logger.Error(err))
		return Result{
			Status:    StatusFailed,
			ErrorKind: ErrKindQAUnavailable,
			Message:   QAUnavailableMessage,
		}
	}

	s.saveHistory(ctx, utt.clientKey(), "assistant", answer.Answer)
	return Result{Status: StatusAnswered, Answer: answer}
}

// escalate opens an escalation session for a flagged utterance
func (s *Service) escalate(ctx context.Context, utt Utterance, assessment *classifier.EmergencyAssessment) Result {
	if utt.Location != "" && len(assessment.Facilities) == 0 {
		facilities, err := s.hospitals.FindNearby(ctx, utt.Location)
		if err != nil {
			s.logger.Warn("Hospital lookup failed", logger.Error(err))
		} else {
			assessment.Facilities = facilities
		}
	}

	session := s.sessions.Create(utt.clientKey(), utt.Text, utt.Language, assessment)
	s.saveHistory(ctx, utt.clientKey(), "assistant", assessment.Reason)

	snapshot := session.Snapshot()
	return Result{
		Status:     StatusEmergency,
		Assessment: assessment,
		Session:    &snapshot,
	}
}

// locationUpdateSession reports whether the utterance is a location-only
// follow-up for an active escalation session rather than a fresh submission
func (s *Service) locationUpdateSession(utt Utterance) (*escalation.Session, bool) {
	if utt.SessionID == "" || utt.Location == "" {
		return nil, false
	}
	session, err := s.sessions.Get(utt.SessionID)
	if err != nil || !session.Matches(utt.Text) {
		return nil, false
	}
	return session, true
}

// RefreshEscalation re-queries hospitals and first-aid guidance for a session
// whose location just resolved. The emergency decision itself is never
// revisited. Partial failures keep the previous data; a closed session drops
// the result silently.
func (s *Service) RefreshEscalation(ctx context.Context, session *escalation.Session, loc escalation.Geolocation) escalation.Snapshot {
	return s.refresh(ctx, session, loc.Key())
}

func (s *Service) refresh(ctx context.Context, session *escalation.Session, location string) escalation.Snapshot {
	var firstAid string
	assessment, err := s.classifier.DetectEmergency(ctx, classifier.DetectionInput{
		Symptoms: session.Utterance(),
		Language: session.Language(),
		Location: location,
	})
	if err != nil {
		s.logger.Warn("Escalation refresh detection failed, keeping previous guidance",
			logger.String("session_id", session.ID()),
			logger.Error(err))
	} else {
		firstAid = assessment.FirstAid
	}

	var facilities []hospitals.Facility
	found, err := s.hospitals.FindNearby(ctx, location)
	if err != nil {
		s.logger.Warn("Escalation refresh hospital lookup failed, keeping previous list",
			logger.String("session_id", session.ID()),
			logger.Error(err))
	} else {
		facilities = found
	}

	session.ApplyRefresh(firstAid, facilities)
	return session.Snapshot()
}

// saveHistory appends a chat turn, logging but never surfacing failures
func (s *Service) saveHistory(ctx context.Context, userID, role, text string) {
	if s.history == nil {
		return
	}
	if _, err := s.history.SaveMessage(ctx, userID, role, text); err != nil {
		s.logger.Warn("Failed to save chat history",
			logger.String("role", role),
			logger.Error(err))
	}
}
