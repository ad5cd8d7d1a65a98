// Package store holds the client-side mirror of lots and bids. The remote
// authority always wins: remote change events overwrite local state, and
// any speculative edit for a lot is dropped when a remote event for that
// lot arrives. The store is the single writer for canonical lot and bid
// state; everything else reads it or submits proposals through it.
package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mquinn/livelot/internal/bidmath"
	"github.com/mquinn/livelot/internal/models"
)

const defaultHistoryLimit = 50

// Store is the reconciliation store. All state is in memory and
// reconstructible from a full refresh against the authoritative services.
type Store struct {
	mu       sync.Mutex
	lots     map[uuid.UUID]*models.Lot
	history  map[uuid.UUID][]models.Bid
	seenBids map[uuid.UUID]struct{}
	pending  map[uuid.UUID]PendingBid

	listenersMu sync.RWMutex
	listeners   []Listener

	clock        clockwork.Clock
	historyLimit int
}

// New creates an empty store on the given clock.
func New(clock clockwork.Clock) *Store {
	return &Store{
		lots:         make(map[uuid.UUID]*models.Lot),
		history:      make(map[uuid.UUID][]models.Bid),
		seenBids:     make(map[uuid.UUID]struct{}),
		pending:      make(map[uuid.UUID]PendingBid),
		clock:        clock,
		historyLimit: defaultHistoryLimit,
	}
}

// AddListener registers a notification listener.
func (s *Store) AddListener(l Listener) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.listeners = append(s.listeners, l)
}

func (s *Store) notify(ns ...Notification) {
	s.listenersMu.RLock()
	listeners := make([]Listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.listenersMu.RUnlock()

	for _, n := range ns {
		for _, l := range listeners {
			l(n)
		}
	}
}

// ApplyRemoteLotChange merges a partial remote update into the mirrored
// lot, creating the mirror if the lot is new. Remote wins: a pending
// speculative edit for the lot is discarded.
func (s *Store) ApplyRemoteLotChange(lotID uuid.UUID, fields LotFields) {
	s.mu.Lock()

	lot, ok := s.lots[lotID]
	if !ok {
		lot = &models.Lot{ID: lotID, Status: models.LotStatusInactive}
		s.lots[lotID] = lot
	}

	statusChanged := false
	if fields.Status != nil && *fields.Status != lot.Status {
		lot.Status = *fields.Status
		statusChanged = true
	}
	if fields.Code != nil {
		lot.Code = *fields.Code
	}
	if fields.ArtistName != nil {
		lot.ArtistName = *fields.ArtistName
	}
	if fields.Round != nil {
		lot.Round = *fields.Round
	}
	if fields.StartingBid != nil {
		lot.StartingBid = *fields.StartingBid
	}
	if fields.CurrentBid != nil {
		amount := *fields.CurrentBid
		lot.CurrentBid = &amount
	}
	if fields.ClosingTime != nil {
		t := *fields.ClosingTime
		lot.ClosingTime = &t
	}
	if fields.ExtensionCount != nil {
		lot.ExtensionCount = *fields.ExtensionCount
	}
	if fields.BidCount != nil {
		lot.BidCount = *fields.BidCount
	}
	if fields.VoteCount != nil {
		lot.VoteCount = *fields.VoteCount
	}
	lot.UpdatedAt = s.clock.Now()

	s.discardPendingLocked(lotID, "remote lot change")
	s.mu.Unlock()

	s.notify(Notification{Kind: KindLot, LotID: lotID, StatusChanged: statusChanged})
}

// ApplyRemoteBidChange records a remote bid event. Events may arrive out
// of causal order or more than once; the highest amount seen so far wins,
// never the latest arrival. Duplicate bid IDs are ignored.
func (s *Store) ApplyRemoteBidChange(bid models.Bid) {
	s.mu.Lock()

	if _, seen := s.seenBids[bid.ID]; seen {
		s.mu.Unlock()
		log.Debug().Str("bid_id", bid.ID.String()).Msg("duplicate bid event ignored")
		return
	}
	s.seenBids[bid.ID] = struct{}{}

	lot, ok := s.lots[bid.LotID]
	if !ok {
		lot = &models.Lot{ID: bid.LotID, Status: models.LotStatusInactive}
		s.lots[bid.LotID] = lot
	}

	s.history[bid.LotID] = appendBid(s.history[bid.LotID], bid, s.historyLimit)

	advanced := lot.CurrentBid == nil || bid.Amount > *lot.CurrentBid
	if advanced {
		amount := bid.Amount
		lot.CurrentBid = &amount
		lot.BidCount++
		lot.UpdatedAt = s.clock.Now()
	} else {
		log.Debug().
			Str("lot_id", bid.LotID.String()).
			Int64("amount", bid.Amount).
			Int64("current_bid", *lot.CurrentBid).
			Msg("stale bid event kept in history only")
	}

	s.discardPendingLocked(bid.LotID, "remote bid change")
	s.mu.Unlock()

	s.notify(Notification{Kind: KindBid, LotID: bid.LotID})
}

// ApplyRemoteVoteChange bumps a lot's vote tally.
func (s *Store) ApplyRemoteVoteChange(lotID uuid.UUID, delta int) {
	s.mu.Lock()
	lot, ok := s.lots[lotID]
	if !ok {
		lot = &models.Lot{ID: lotID, Status: models.LotStatusInactive}
		s.lots[lotID] = lot
	}
	lot.VoteCount += delta
	if lot.VoteCount < 0 {
		lot.VoteCount = 0
	}
	lot.UpdatedAt = s.clock.Now()
	s.mu.Unlock()

	s.notify(Notification{Kind: KindVote, LotID: lotID})
}

// ProposeLocalBid validates amount against the lot's minimum and, on
// success, records a speculative edit and returns the request to hand to
// the bid acceptance service. The speculative edit is never promoted to
// the lot's current bid; only a confirmed remote event moves that.
func (s *Store) ProposeLocalBid(lotID uuid.UUID, amount int64) (SubmitRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lot, ok := s.lots[lotID]
	if !ok {
		return SubmitRequest{}, fmt.Errorf("propose bid: %w", ErrLotNotFound)
	}
	if !lot.Status.Biddable() {
		return SubmitRequest{}, fmt.Errorf("propose bid on lot %s: %w", lot.Code, ErrLotNotActive)
	}

	minimum := bidmath.MinimumBid(lot.StartingBid, lot.CurrentBid)
	if amount < minimum {
		return SubmitRequest{}, fmt.Errorf("%w: got %d, minimum is %d", ErrBidTooLow, amount, minimum)
	}

	// A newer attempt on the same lot replaces the older pending one.
	s.pending[lotID] = PendingBid{LotID: lotID, Amount: amount, SubmittedAt: s.clock.Now()}

	return SubmitRequest{LotID: lotID, Amount: amount}, nil
}

// ConfirmSubmission applies the side effects of an accepted submission.
// The speculative edit stays pending until the authoritative bid event
// arrives over the feed. A non-nil newClosingTime means the lot's timer
// was extended because the bid landed near expiry.
func (s *Store) ConfirmSubmission(lotID uuid.UUID, newClosingTime *time.Time) {
	if newClosingTime == nil {
		return
	}

	s.mu.Lock()
	lot, ok := s.lots[lotID]
	if !ok {
		s.mu.Unlock()
		return
	}
	t := *newClosingTime
	lot.ClosingTime = &t
	lot.ExtensionCount++
	lot.UpdatedAt = s.clock.Now()
	s.mu.Unlock()

	log.Info().
		Str("lot_id", lotID.String()).
		Time("closing_time", t).
		Msg("lot timer extended by accepted bid")
	s.notify(Notification{Kind: KindLot, LotID: lotID})
}

// ClearSubmission discards the speculative edit for a lot. Used when a
// submission is rejected or times out; the current bid is never touched.
func (s *Store) ClearSubmission(lotID uuid.UUID) {
	s.mu.Lock()
	s.discardPendingLocked(lotID, "submission resolved")
	s.mu.Unlock()
}

// ReplaceLots installs the result of a full refresh. The refresh is
// authoritative for every lot, so all speculative edits are discarded.
// Bid history and the duplicate set survive; they are keyed by bid ID and
// remain valid.
func (s *Store) ReplaceLots(lots []models.Lot) {
	s.mu.Lock()

	notifications := make([]Notification, 0, len(lots))
	fresh := make(map[uuid.UUID]*models.Lot, len(lots))
	for i := range lots {
		lot := lots[i]
		statusChanged := true
		if old, ok := s.lots[lot.ID]; ok {
			statusChanged = old.Status != lot.Status
		}
		fresh[lot.ID] = &lot
		notifications = append(notifications, Notification{
			Kind:          KindLot,
			LotID:         lot.ID,
			StatusChanged: statusChanged,
		})
	}
	s.lots = fresh
	s.pending = make(map[uuid.UUID]PendingBid)
	s.mu.Unlock()

	log.Debug().Int("lots", len(lots)).Msg("store replaced from full refresh")
	s.notify(notifications...)
}

// Lot returns a copy of the mirrored lot.
func (s *Store) Lot(lotID uuid.UUID) (models.Lot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lot, ok := s.lots[lotID]
	if !ok {
		return models.Lot{}, false
	}
	return cloneLot(lot), true
}

// Lots returns copies of every mirrored lot, ordered by round then code.
func (s *Store) Lots() []models.Lot {
	s.mu.Lock()
	out := make([]models.Lot, 0, len(s.lots))
	for _, lot := range s.lots {
		out = append(out, cloneLot(lot))
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Round != out[j].Round {
			return out[i].Round < out[j].Round
		}
		return out[i].Code < out[j].Code
	})
	return out
}

// BidHistory returns the recent accepted bids for a lot, oldest first.
func (s *Store) BidHistory(lotID uuid.UUID) []models.Bid {
	s.mu.Lock()
	defer s.mu.Unlock()
	src := s.history[lotID]
	out := make([]models.Bid, len(src))
	copy(out, src)
	return out
}

// PendingAmount reports the speculative bid amount for a lot, if any.
func (s *Store) PendingAmount(lotID uuid.UUID) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[lotID]
	return p.Amount, ok
}

// MinimumBidFor returns the lowest legal next bid for a lot.
func (s *Store) MinimumBidFor(lotID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lot, ok := s.lots[lotID]
	if !ok {
		return 0, ErrLotNotFound
	}
	return bidmath.MinimumBid(lot.StartingBid, lot.CurrentBid), nil
}

func (s *Store) discardPendingLocked(lotID uuid.UUID, cause string) {
	if p, ok := s.pending[lotID]; ok {
		delete(s.pending, lotID)
		log.Debug().
			Str("lot_id", lotID.String()).
			Int64("amount", p.Amount).
			Str("cause", cause).
			Msg("speculative bid discarded")
	}
}

func cloneLot(lot *models.Lot) models.Lot {
	out := *lot
	if lot.CurrentBid != nil {
		v := *lot.CurrentBid
		out.CurrentBid = &v
	}
	if lot.ClosingTime != nil {
		t := *lot.ClosingTime
		out.ClosingTime = &t
	}
	return out
}

func appendBid(history []models.Bid, bid models.Bid, limit int) []models.Bid {
	history = append(history, bid)
	sort.Slice(history, func(i, j int) bool {
		return history[i].CreatedAt.Before(history[j].CreatedAt)
	})
	if len(history) > limit {
		history = history[len(history)-limit:]
	}
	return history
}
