// Package auction is the application layer: it runs the bid submission
// flow against the remote authority and translates raw feed events into
// reconciliation store operations.
package auction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mquinn/livelot/internal/clients"
	"github.com/mquinn/livelot/internal/models"
	"github.com/mquinn/livelot/internal/store"
)

// ErrSessionInvalid propagates an authentication failure. It is never
// retried here; the caller must re-authenticate.
var ErrSessionInvalid = errors.New("session invalid, re-authentication required")

// BidSubmitter is what the app needs from the bid acceptance client.
type BidSubmitter interface {
	SubmitBid(ctx context.Context, lotID uuid.UUID, amount int64) (clients.BidResult, error)
}

// OperatorActions is what the app needs from the operator client.
type OperatorActions interface {
	SetLotStatus(ctx context.Context, lotCode string, newStatus models.LotStatus, operatorID string) (clients.OperatorResult, error)
}

// TimerControl is what the app needs from the timer client.
type TimerControl interface {
	Control(ctx context.Context, action clients.TimerAction, durationMinutes *int) (clients.TimerResult, error)
}

// Refresher accepts refresh requests raised by conflict outcomes.
type Refresher interface {
	Request(reason string)
}

// BidStatus tags the outcome of a bid submission.
type BidStatus string

const (
	// BidAccepted means the remote authority took the bid. The lot's
	// current bid still only moves on the confirming feed event.
	BidAccepted BidStatus = "accepted"
	// BidTooLow means local validation failed; user-correctable, no
	// submission happened.
	BidTooLow BidStatus = "too_low"
	// BidRejected means the authority refused the bid; the speculative
	// edit was discarded.
	BidRejected BidStatus = "rejected"
	// BidTimedOut means no response arrived in time. The bid may or may
	// not have landed; truth comes from the next remote event.
	BidTimedOut BidStatus = "timed_out"
)

// BidOutcome is the tagged result of PlaceBid for expected conditions.
type BidOutcome struct {
	Status         BidStatus
	MinimumBid     int64                // set when Status is BidTooLow
	Reason         clients.RejectReason // set when Status is BidRejected
	NewClosingTime *time.Time           // set when an accepted bid extended the timer
}

// App coordinates bidding and operator flows.
type App struct {
	store     *store.Store
	bids      BidSubmitter
	operator  OperatorActions
	timer     TimerControl
	refresher Refresher
}

// NewApp wires the application layer.
func NewApp(st *store.Store, bids BidSubmitter, operator OperatorActions, timer TimerControl, refresher Refresher) *App {
	return &App{
		store:     st,
		bids:      bids,
		operator:  operator,
		timer:     timer,
		refresher: refresher,
	}
}

// PlaceBid validates the amount locally, submits it to the authority, and
// reconciles the result. Expected conditions come back as tagged
// outcomes; only session failures and unexpected faults return an error.
func (a *App) PlaceBid(ctx context.Context, lotID uuid.UUID, amount int64) (BidOutcome, error) {
	req, err := a.store.ProposeLocalBid(lotID, amount)
	switch {
	case errors.Is(err, store.ErrBidTooLow):
		minimum, minErr := a.store.MinimumBidFor(lotID)
		if minErr != nil {
			return BidOutcome{}, minErr
		}
		return BidOutcome{Status: BidTooLow, MinimumBid: minimum}, nil
	case errors.Is(err, store.ErrLotNotActive):
		a.refresher.Request("bid on inactive lot: " + lotID.String())
		return BidOutcome{Status: BidRejected, Reason: clients.RejectLotNotActive}, nil
	case err != nil:
		return BidOutcome{}, err
	}

	result, err := a.bids.SubmitBid(ctx, req.LotID, req.Amount)
	if err != nil {
		// whether or not the bid landed server-side is unknowable here;
		// drop the speculative edit and let the feed deliver the truth
		a.store.ClearSubmission(lotID)
		if errors.Is(err, clients.ErrSubmitTimeout) {
			log.Warn().Str("lot_id", lotID.String()).Int64("amount", amount).Msg("bid submission timed out")
			return BidOutcome{Status: BidTimedOut}, nil
		}
		return BidOutcome{}, fmt.Errorf("submit bid: %w", err)
	}

	if result.Accepted {
		a.store.ConfirmSubmission(lotID, result.NewClosingTime)
		log.Info().
			Str("lot_id", lotID.String()).
			Int64("amount", result.Amount).
			Bool("extended", result.NewClosingTime != nil).
			Msg("bid accepted")
		return BidOutcome{Status: BidAccepted, NewClosingTime: result.NewClosingTime}, nil
	}

	a.store.ClearSubmission(lotID)
	switch result.Reason {
	case clients.RejectLotNotActive:
		// the lot closed between validation and acceptance; resync now
		a.refresher.Request("bid rejected, lot closed: " + lotID.String())
	case clients.RejectSessionInvalid:
		return BidOutcome{}, ErrSessionInvalid
	case clients.RejectUnknown:
		log.Error().Str("lot_id", lotID.String()).Int64("amount", amount).Msg("bid rejected for unknown reason")
	}

	log.Info().
		Str("lot_id", lotID.String()).
		Int64("amount", amount).
		Str("reason", string(result.Reason)).
		Msg("bid rejected")
	return BidOutcome{Status: BidRejected, Reason: result.Reason}, nil
}

// RequestLotStatus asks the operator service for a status transition and
// resyncs so the change shows up promptly even if the feed is lagging.
func (a *App) RequestLotStatus(ctx context.Context, lotCode string, newStatus models.LotStatus, operatorID string) (clients.OperatorResult, error) {
	result, err := a.operator.SetLotStatus(ctx, lotCode, newStatus, operatorID)
	if err != nil {
		return clients.OperatorResult{}, fmt.Errorf("set lot status: %w", err)
	}
	if result.Success {
		a.refresher.Request("operator status change: " + lotCode)
	}
	return result, nil
}

// ControlTimer issues a timer action and resyncs on success since every
// active lot's closing time may have moved.
func (a *App) ControlTimer(ctx context.Context, action clients.TimerAction, durationMinutes *int) (clients.TimerResult, error) {
	result, err := a.timer.Control(ctx, action, durationMinutes)
	if err != nil {
		return clients.TimerResult{}, fmt.Errorf("timer control: %w", err)
	}
	if result.Success {
		a.refresher.Request("timer " + string(action))
	}
	return result, nil
}
