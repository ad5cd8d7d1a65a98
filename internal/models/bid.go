package models

import (
	"time"

	"github.com/google/uuid"
)

// Bid is an accepted bid as reported by the remote authority. Bids are
// immutable; new bids are appended, never edited.
type Bid struct {
	ID        uuid.UUID `json:"id"`
	LotID     uuid.UUID `json:"lot_id"`
	Amount    int64     `json:"amount"`
	BidderID  string    `json:"bidder_id"`
	CreatedAt time.Time `json:"created_at"`
}
