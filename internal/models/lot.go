package models

import (
	"time"

	"github.com/google/uuid"
)

// LotStatus defines where a lot is in its auction lifecycle.
type LotStatus string

const (
	LotStatusInactive  LotStatus = "inactive"
	LotStatusActive    LotStatus = "active"
	LotStatusSold      LotStatus = "sold"
	LotStatusPaid      LotStatus = "paid"
	LotStatusCancelled LotStatus = "cancelled"
	LotStatusClosed    LotStatus = "closed"
)

// Biddable reports whether the lot can still accept bids.
func (s LotStatus) Biddable() bool {
	return s == LotStatusActive
}

// Lot represents a single auctionable item. The status, current bid and
// closing time are owned by the remote authority; the client only mirrors
// them. Amounts are whole currency units.
type Lot struct {
	ID             uuid.UUID  `json:"id"`
	Code           string     `json:"code"`
	ArtistName     string     `json:"artist_name,omitempty"`
	Round          int        `json:"round,omitempty"`
	Status         LotStatus  `json:"status"`
	StartingBid    int64      `json:"starting_bid"`
	CurrentBid     *int64     `json:"current_bid,omitempty"`
	ClosingTime    *time.Time `json:"closing_time,omitempty"`
	ExtensionCount int        `json:"extension_count"`
	BidCount       int        `json:"bid_count"`
	VoteCount      int        `json:"vote_count"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// HasTimer reports whether a countdown applies to this lot.
func (l *Lot) HasTimer() bool {
	return l.ClosingTime != nil
}
