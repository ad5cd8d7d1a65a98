package statusapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mquinn/livelot/internal/auction"
	"github.com/mquinn/livelot/internal/clients"
	"github.com/mquinn/livelot/internal/models"
)

// AuctionActions is the application surface the write endpoints call.
type AuctionActions interface {
	PlaceBid(ctx context.Context, lotID uuid.UUID, amount int64) (auction.BidOutcome, error)
	RequestLotStatus(ctx context.Context, lotCode string, newStatus models.LotStatus, operatorID string) (clients.OperatorResult, error)
	ControlTimer(ctx context.Context, action clients.TimerAction, durationMinutes *int) (clients.TimerResult, error)
}

// ChannelControl is the subset of supervisor behavior the write
// endpoints need.
type ChannelControl interface {
	ResetAttempts()
}

// ActionsHandler serves the write endpoints.
type ActionsHandler struct {
	app      AuctionActions
	channels ChannelControl
}

// NewActionsHandler creates the write-side handler.
func NewActionsHandler(app AuctionActions, channels ChannelControl) *ActionsHandler {
	return &ActionsHandler{app: app, channels: channels}
}

// RegisterRoutes attaches the write endpoints to mux.
func (h *ActionsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/lots/{id}/bids", h.handlePlaceBid)
	mux.HandleFunc("POST /v1/operator/status", h.handleSetLotStatus)
	mux.HandleFunc("POST /v1/timer", h.handleTimer)
	mux.HandleFunc("POST /v1/channels/reset", h.handleChannelReset)
}

type placeBidRequest struct {
	Amount int64 `json:"amount"`
}

// BidResponse reports a bid submission's outcome.
type BidResponse struct {
	Status         auction.BidStatus    `json:"status"`
	MinimumBid     int64                `json:"minimum_bid,omitempty"`
	Reason         clients.RejectReason `json:"reason,omitempty"`
	NewClosingTime *time.Time           `json:"new_closing_time,omitempty"`
}

func (h *ActionsHandler) handlePlaceBid(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid lot id", http.StatusBadRequest)
		return
	}

	var req placeBidRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	outcome, err := h.app.PlaceBid(r.Context(), id, req.Amount)
	switch {
	case errors.Is(err, auction.ErrSessionInvalid):
		http.Error(w, "session invalid", http.StatusUnauthorized)
		return
	case err != nil:
		log.Error().Err(err).Str("lot_id", id.String()).Msg("bid submission failed")
		http.Error(w, "bid submission failed", http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, BidResponse{
		Status:         outcome.Status,
		MinimumBid:     outcome.MinimumBid,
		Reason:         outcome.Reason,
		NewClosingTime: outcome.NewClosingTime,
	})
}

type setLotStatusRequest struct {
	LotCode    string `json:"lot_code"`
	NewStatus  string `json:"new_status"`
	OperatorID string `json:"operator_id"`
}

func (h *ActionsHandler) handleSetLotStatus(w http.ResponseWriter, r *http.Request) {
	var req setLotStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.LotCode == "" || req.NewStatus == "" {
		http.Error(w, "lot_code and new_status are required", http.StatusBadRequest)
		return
	}

	result, err := h.app.RequestLotStatus(r.Context(), req.LotCode, models.LotStatus(req.NewStatus), req.OperatorID)
	if err != nil {
		log.Error().Err(err).Str("lot_code", req.LotCode).Msg("operator action failed")
		http.Error(w, "operator action failed", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type timerRequest struct {
	Action          string `json:"action"`
	DurationMinutes *int   `json:"duration_minutes,omitempty"`
}

func (h *ActionsHandler) handleTimer(w http.ResponseWriter, r *http.Request) {
	var req timerRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Action == "" {
		http.Error(w, "action is required", http.StatusBadRequest)
		return
	}

	result, err := h.app.ControlTimer(r.Context(), clients.TimerAction(req.Action), req.DurationMinutes)
	if err != nil {
		log.Error().Err(err).Str("action", req.Action).Msg("timer action failed")
		http.Error(w, "timer action failed", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleChannelReset zeroes the backoff attempt counters. A UI calls
// this when it returns to the foreground so the next failure cycle
// starts from a short delay. No reconnect is forced.
func (h *ActionsHandler) handleChannelReset(w http.ResponseWriter, r *http.Request) {
	h.channels.ResetAttempts()
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}
