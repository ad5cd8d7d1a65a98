package store

import (
	"time"

	"github.com/google/uuid"
	"github.com/mquinn/livelot/internal/models"
)

// LotFields is a partial update from a remote lot change event. Nil fields
// were not present in the event and leave the mirrored value untouched.
type LotFields struct {
	Code           *string           `json:"code,omitempty"`
	ArtistName     *string           `json:"artist_name,omitempty"`
	Round          *int              `json:"round,omitempty"`
	Status         *models.LotStatus `json:"status,omitempty"`
	StartingBid    *int64            `json:"starting_bid,omitempty"`
	CurrentBid     *int64            `json:"current_bid,omitempty"`
	ClosingTime    *time.Time        `json:"closing_time,omitempty"`
	ExtensionCount *int              `json:"extension_count,omitempty"`
	BidCount       *int              `json:"bid_count,omitempty"`
	VoteCount      *int              `json:"vote_count,omitempty"`
}

// PendingBid is a speculative edit: a locally submitted amount the remote
// authority has not confirmed. It is never merged into the lot; it is
// discarded the moment any remote event for the lot arrives.
type PendingBid struct {
	LotID       uuid.UUID
	Amount      int64
	SubmittedAt time.Time
}

// SubmitRequest is what the caller hands to the bid acceptance service
// after a successful local validation.
type SubmitRequest struct {
	LotID  uuid.UUID `json:"lot_id"`
	Amount int64     `json:"amount"`
}

// NotificationKind identifies which aspect of a lot changed.
type NotificationKind string

const (
	KindLot  NotificationKind = "lot"
	KindBid  NotificationKind = "bid"
	KindVote NotificationKind = "vote"
)

// Notification is emitted after the store applies a change. Presentation
// layers subscribe to these instead of poking at the store's internals.
type Notification struct {
	Kind          NotificationKind
	LotID         uuid.UUID
	StatusChanged bool
}

// Listener receives store notifications. Listeners run on the applying
// goroutine after the store's lock is released and must not block.
type Listener func(Notification)
