package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/moneypot/moneypot/internal/ledger"
	"github.com/moneypot/moneypot/internal/store"
	"github.com/moneypot/moneypot/pkg/allocation"
	pcontext "github.com/moneypot/moneypot/pkg/context"
	"github.com/moneypot/moneypot/pkg/logger"
	"github.com/moneypot/moneypot/pkg/types"
	"github.com/moneypot/moneypot/pkg/validation"
)

// maxBodyBytes caps request bodies
const maxBodyBytes = 1 << 20

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error     string    `json:"error"`
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// AllocateRequest is the body of POST /allocate
type AllocateRequest struct {
	TargetAmount decimal.Decimal     `json:"target_amount"`
	Participants []types.Participant `json:"participants"`
}

// Handlers manages all HTTP endpoint handlers
type Handlers struct {
	service PotService
	logger  logger.Logger
}

// NewHandlers creates a new handlers instance
func NewHandlers(service PotService, log logger.Logger) *Handlers {
	return &Handlers{service: service, logger: log}
}

// Health godoc
// @Summary Liveness probe
// @Produce json
// @Success 200 {object} HealthResponse
// @Router  /health [get]
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Timestamp: time.Now().UTC()})
}

// Allocate godoc
// @Summary Run the allocation engine over an ad-hoc participant set
// @Accept  json
// @Produce json
// @Param   request body AllocateRequest true "target and participants"
// @Success 200 {object} types.Distribution
// @Failure 400 {object} ErrorResponse
// @Router  /allocate [post]
func (h *Handlers) Allocate(w http.ResponseWriter, r *http.Request) {
	var req AllocateRequest
	if !h.decode(w, r, &req) {
		return
	}

	dist, err := allocation.Summarize("", req.Participants, req.TargetAmount)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, dist)
}

// CreatePot godoc
// @Summary Create a pot owned by the calling user
// @Accept  json
// @Produce json
// @Param   X-User-ID header string true "creator id"
// @Param   request body types.CreatePotData true "pot"
// @Success 201 {object} types.MoneyPot
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router  /pots [post]
func (h *Handlers) CreatePot(w http.ResponseWriter, r *http.Request) {
	var data types.CreatePotData
	if !h.decode(w, r, &data) {
		return
	}

	pot, err := h.service.CreatePot(r.Context(), r.Header.Get(UserHeader), data)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, pot)
}

// ListPots godoc
// @Summary List pots created by a user, newest first
// @Produce json
// @Param   creator query string false "creator id, defaults to X-User-ID"
// @Success 200 {array} types.MoneyPot
// @Failure 401 {object} ErrorResponse
// @Router  /pots [get]
func (h *Handlers) ListPots(w http.ResponseWriter, r *http.Request) {
	creator := r.URL.Query().Get("creator")
	if creator == "" {
		creator = r.Header.Get(UserHeader)
	}

	pots, err := h.service.GetUserPots(r.Context(), creator)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if pots == nil {
		pots = []types.MoneyPot{}
	}
	h.writeJSON(w, http.StatusOK, pots)
}

// GetPot godoc
// @Summary Show a pot by share code
// @Produce json
// @Param   shareCode path string true "share code"
// @Success 200 {object} types.PotSummary
// @Failure 404 {object} ErrorResponse
// @Router  /pots/{shareCode} [get]
func (h *Handlers) GetPot(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.GetPotByShareCode(r.Context(), mux.Vars(r)["shareCode"])
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

// JoinPot godoc
// @Summary Pledge to a pot
// @Accept  json
// @Produce json
// @Param   potID path string true "pot id"
// @Param   request body types.JoinPotData true "pledge"
// @Success 201 {object} types.Participant
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router  /pots/{potID}/participants [post]
func (h *Handlers) JoinPot(w http.ResponseWriter, r *http.Request) {
	var data types.JoinPotData
	if !h.decode(w, r, &data) {
		return
	}
	if data.UserID == nil {
		if user, ok := pcontext.UserID(r.Context()); ok {
			data.UserID = &user
		}
	}

	participant, err := h.service.JoinPot(r.Context(), mux.Vars(r)["potID"], data)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, participant)
}

// DeleteParticipant godoc
// @Summary Withdraw a pledge
// @Param   participantID path string true "participant id"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router  /participants/{participantID} [delete]
func (h *Handlers) DeleteParticipant(w http.ResponseWriter, r *http.Request) {
	if _, err := h.service.DeleteParticipant(r.Context(), mux.Vars(r)["participantID"]); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Distribution godoc
// @Summary Current allocation for a pot
// @Produce json
// @Param   potID path string true "pot id"
// @Success 200 {object} types.Distribution
// @Failure 404 {object} ErrorResponse
// @Router  /pots/{potID}/distribution [get]
func (h *Handlers) Distribution(w http.ResponseWriter, r *http.Request) {
	dist, err := h.service.Distribution(r.Context(), mux.Vars(r)["potID"])
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, dist)
}

// NotFound handles 404 responses
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	h.writeError(w, r, http.StatusNotFound, "endpoint_not_found", "The requested endpoint does not exist")
}

// MethodNotAllowed handles 405 responses
func (h *Handlers) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed on this endpoint")
}

// Private methods

func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return false
	}
	return true
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode response", logger.WithError(err))
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	h.writeJSON(w, status, ErrorResponse{
		Error:     http.StatusText(status),
		Code:      code,
		Message:   message,
		RequestID: pcontext.GetRequestID(r.Context()),
		Timestamp: time.Now().UTC(),
	})
}

func (h *Handlers) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		logger.WithContext(r.Context(), h.logger).Error("Request failed", logger.WithError(err))
	}
	h.writeError(w, r, status, code, err.Error())
}

// classify maps service errors onto HTTP status codes
func classify(err error) (int, string) {
	var allocErr *allocation.ValidationError
	switch {
	case errors.Is(err, validation.ErrInvalidInput), errors.As(err, &allocErr):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, ledger.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, ledger.ErrNotOwner):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, store.ErrPotNotFound):
		return http.StatusNotFound, "pot_not_found"
	case errors.Is(err, store.ErrParticipantNotFound):
		return http.StatusNotFound, "participant_not_found"
	case errors.Is(err, ledger.ErrPotExpired):
		return http.StatusConflict, "pot_expired"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
