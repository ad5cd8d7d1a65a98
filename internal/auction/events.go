package auction

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mquinn/livelot/internal/channel"
	"github.com/mquinn/livelot/internal/models"
	"github.com/mquinn/livelot/internal/store"
)

// EventApplier translates raw change-feed events into store operations.
// It implements channel.Sink; the supervisor stays payload-agnostic and
// this is the single place feed rows are interpreted.
type EventApplier struct {
	store *store.Store
}

// NewEventApplier creates the feed-to-store adapter.
func NewEventApplier(st *store.Store) *EventApplier {
	return &EventApplier{store: st}
}

var _ channel.Sink = (*EventApplier)(nil)

// HandleChange applies one feed event. Malformed payloads are logged and
// dropped; the next full refresh repairs anything missed.
func (e *EventApplier) HandleChange(ev channel.ChangeEvent) {
	switch ev.Concern {
	case channel.ConcernLotStatus:
		e.applyLotChange(ev)
	case channel.ConcernBids:
		e.applyBidChange(ev)
	case channel.ConcernVotes:
		e.applyVoteChange(ev)
	default:
		log.Warn().Str("concern", string(ev.Concern)).Msg("event for unknown concern dropped")
	}
}

type lotRow struct {
	ID uuid.UUID `json:"id"`
	store.LotFields
}

func (e *EventApplier) applyLotChange(ev channel.ChangeEvent) {
	if ev.Type == channel.EventDelete {
		// lots are never deleted mid-event; a refresh will reconcile
		log.Warn().Msg("lot delete event ignored, awaiting refresh")
		return
	}

	var row lotRow
	if err := json.Unmarshal(ev.New, &row); err != nil || row.ID == uuid.Nil {
		log.Warn().Err(err).Msg("malformed lot change dropped")
		return
	}
	e.store.ApplyRemoteLotChange(row.ID, row.LotFields)
}

func (e *EventApplier) applyBidChange(ev channel.ChangeEvent) {
	if ev.Type == channel.EventDelete {
		// accepted bids are immutable; deletes should not happen
		log.Warn().Msg("bid delete event ignored")
		return
	}

	var bid models.Bid
	if err := json.Unmarshal(ev.New, &bid); err != nil || bid.ID == uuid.Nil || bid.LotID == uuid.Nil {
		log.Warn().Err(err).Msg("malformed bid change dropped")
		return
	}
	e.store.ApplyRemoteBidChange(bid)
}

type voteRow struct {
	LotID uuid.UUID `json:"lot_id"`
}

func (e *EventApplier) applyVoteChange(ev channel.ChangeEvent) {
	payload := ev.New
	delta := 1
	if ev.Type == channel.EventDelete {
		payload = ev.Old
		delta = -1
	}

	var row voteRow
	if err := json.Unmarshal(payload, &row); err != nil || row.LotID == uuid.Nil {
		log.Warn().Err(err).Msg("malformed vote change dropped")
		return
	}
	if ev.Type == channel.EventUpdate {
		// vote rows are insert/delete only; updates carry no tally change
		return
	}
	e.store.ApplyRemoteVoteChange(row.LotID, delta)
}
