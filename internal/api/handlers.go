package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/swasthya/sahayak/internal/config"
	"github.com/swasthya/sahayak/internal/escalation"
	"github.com/swasthya/sahayak/internal/storage/sqlite"
	"github.com/swasthya/sahayak/internal/triage"
	"github.com/swasthya/sahayak/pkg/logger"
)

const (
	maxRequestBodyBytes = 1 << 20
	defaultHistoryLimit = 50
)

// Handler handles API requests
type Handler struct {
	triageService *triage.Service
	sessions      *escalation.Manager
	history       *sqlite.HistoryStorage
	config        *config.Config
	logger        *logger.Logger
}

// NewHandler creates a new API handler
func NewHandler(
	triageService *triage.Service,
	sessions *escalation.Manager,
	history *sqlite.HistoryStorage,
	cfg *config.Config,
	log *logger.Logger,
) *Handler {
	return &Handler{
		triageService: triageService,
		sessions:      sessions,
		history:       history,
		config:        cfg,
		logger:        log.Named("api-handler"),
	}
}

type messageRequest struct {
	Text      string `json:"text"`
	Language  string `json:"language,omitempty"`
	Location  string `json:"location,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// SubmitMessage handles the single user-facing submission operation
func (h *Handler) SubmitMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	result := h.triageService.Handle(r.Context(), triage.Utterance{
		Text:      req.Text,
		Language:  req.Language,
		Location:  req.Location,
		UserID:    req.UserID,
		SessionID: req.SessionID,
	})

	h.writeJSON(w, http.StatusOK, result)
}

// GetEscalation returns a snapshot of an escalation session
func (h *Handler) GetEscalation(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookupSession(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, session.Snapshot())
}

// CloseEscalation dismisses an escalation session
func (h *Handler) CloseEscalation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.sessions.Close(id); err != nil {
		h.writeError(w, http.StatusNotFound, "Escalation session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// BeginLocating marks the start of a location acquisition attempt. Only one
// attempt may be in flight at a time.
func (h *Handler) BeginLocating(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookupSession(w, r)
	if !ok {
		return
	}

	if err := session.BeginLocating(); err != nil {
		switch {
		case errors.Is(err, escalation.ErrLocatingInFlight):
			h.writeError(w, http.StatusConflict, "A location request is already in progress")
		case errors.Is(err, escalation.ErrSessionClosed):
			h.writeError(w, http.StatusGone, "Escalation session is closed")
		default:
			h.writeError(w, http.StatusConflict, "Unable to start location request")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, session.Snapshot())
}

// DeliverLocation receives resolved coordinates from the client's location
// provider, then refreshes the session's hospital list and first-aid guidance
func (h *Handler) DeliverLocation(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookupSession(w, r)
	if !ok {
		return
	}

	var loc escalation.Geolocation
	if !h.decodeBody(w, r, &loc) {
		return
	}

	if err := session.ResolveLocation(loc); err != nil {
		h.writeError(w, http.StatusConflict, "No location request is in progress")
		return
	}

	snapshot := h.triageService.RefreshEscalation(r.Context(), session, loc)
	h.writeJSON(w, http.StatusOK, snapshot)
}

// DeliverLocationFailure records a location provider failure. The session
// stays usable; the client may retry.
func (h *Handler) DeliverLocationFailure(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookupSession(w, r)
	if !ok {
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if !h.decodeBody(w, r, &req) {
		return
	}
	if req.Reason == "" {
		req.Reason = "Unable to retrieve your location. Please grant permission."
	}

	if err := session.FailLocation(req.Reason); err != nil {
		h.writeError(w, http.StatusConflict, "No location request is in progress")
		return
	}

	h.writeJSON(w, http.StatusOK, session.Snapshot())
}

type dispatchRequest struct {
	FacilityIndex  int    `json:"facility_index"`
	UserID         string `json:"user_id,omitempty"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

type dispatchResponse struct {
	DispatchID string    `json:"dispatch_id"`
	Status     string    `json:"status"`
	Timestamp  time.Time `json:"timestamp"`
}

// RequestDispatch requests an ambulance from one of the session's facilities
func (h *Handler) RequestDispatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req dispatchRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	dispatchID, err := h.sessions.Dispatch(r.Context(), id, req.FacilityIndex, req.UserID, req.IdempotencyKey)
	if err != nil {
		switch {
		case errors.Is(err, escalation.ErrSessionNotFound):
			h.writeError(w, http.StatusNotFound, "Escalation session not found")
		case errors.Is(err, escalation.ErrSessionClosed):
			h.writeError(w, http.StatusGone, "Escalation session is closed")
		case errors.Is(err, escalation.ErrDispatch):
			h.writeError(w, http.StatusConflict, err.Error())
		default:
			h.logger.Error("Dispatch request failed", logger.Error(err))
			h.writeError(w, http.StatusInternalServerError, "Failed to record the dispatch request")
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, dispatchResponse{
		DispatchID: dispatchID,
		Status:     "pending",
		Timestamp:  time.Now().UTC(),
	})
}

// GetHistory returns a user's most recent chat turns
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	records, err := h.history.GetLatestByUser(r.Context(), userID, limit)
	if err != nil {
		h.logger.Error("Failed to query chat history", logger.Error(err))
		h.writeError(w, http.StatusInternalServerError, "Failed to load chat history")
		return
	}
	if records == nil {
		records = []*sqlite.HistoryRecord{}
	}

	h.writeJSON(w, http.StatusOK, records)
}

// GetHealth provides a basic health check endpoint
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// GetConfig returns client-safe configuration values
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"confidence_threshold": h.config.Triage.ConfidenceThreshold,
		"classifier_model":     h.config.Classifier.Model,
		"hospitals_provider":   h.config.Hospitals.Provider,
	})
}

// lookupSession resolves the session from the URL, writing a 404 on failure
func (h *Handler) lookupSession(w http.ResponseWriter, r *http.Request) (*escalation.Session, bool) {
	id := chi.URLParam(r, "id")
	session, err := h.sessions.Get(id)
	if err != nil {
		h.writeError(w, http.StatusNotFound, "Escalation session not found")
		return nil, false
	}
	return session, true
}

// decodeBody decodes a JSON request body, writing a 400 on failure
func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("Failed to encode response", logger.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
