// Package clock drives the per-lot countdown. One shared clock read per
// tick keeps every lot in a tick agreeing on "now"; expiry is reported
// once per lot-expiry event, not once per tick.
package clock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mquinn/livelot/internal/models"
	"github.com/mquinn/livelot/internal/store"
)

// LotTimerState is the countdown state of a single lot.
type LotTimerState string

const (
	StateNoTimer  LotTimerState = "no-timer"
	StateCounting LotTimerState = "counting"
	StateExpired  LotTimerState = "expired"
)

// LotSource is what the auction clock needs from the reconciliation store.
type LotSource interface {
	Lots() []models.Lot
	Lot(id uuid.UUID) (models.Lot, bool)
}

// Refresher accepts refresh requests raised on lot expiry.
type Refresher interface {
	Request(reason string)
}

// Config holds the clock tunables.
type Config struct {
	// TickInterval is how often lots are checked against the shared now.
	TickInterval time.Duration
	// GracePeriod is how long past a lot's closing time the clock waits
	// before requesting a refresh, giving the remote side room to finish
	// closing the lot.
	GracePeriod time.Duration
}

// DefaultConfig returns the production clock settings.
func DefaultConfig() Config {
	return Config{
		TickInterval: time.Second,
		GracePeriod:  3 * time.Second,
	}
}

// AuctionClock watches lot closing times and raises one refresh request
// per expiry.
type AuctionClock struct {
	clock     clockwork.Clock
	lots      LotSource
	refresher Refresher
	cfg       Config

	mu       sync.Mutex
	reported map[uuid.UUID]bool
}

// New creates an auction clock. Register HandleNotification with the
// store so expiry reporting re-arms when a lot's status moves on.
func New(clk clockwork.Clock, lots LotSource, refresher Refresher, cfg Config) *AuctionClock {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	return &AuctionClock{
		clock:     clk,
		lots:      lots,
		refresher: refresher,
		cfg:       cfg,
		reported:  make(map[uuid.UUID]bool),
	}
}

// Run ticks until the context is cancelled.
func (c *AuctionClock) Run(ctx context.Context) {
	ticker := c.clock.NewTicker(c.cfg.TickInterval)
	defer ticker.Stop()

	log.Info().
		Dur("interval", c.cfg.TickInterval).
		Dur("grace", c.cfg.GracePeriod).
		Msg("auction clock started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("auction clock stopped")
			return
		case <-ticker.Chan():
			c.tick()
		}
	}
}

func (c *AuctionClock) tick() {
	now := c.clock.Now()

	for _, lot := range c.lots.Lots() {
		if StateFor(lot, now) != StateExpired {
			continue
		}
		// report only after the grace period so the remote close can land
		if now.Before(lot.ClosingTime.Add(c.cfg.GracePeriod)) {
			continue
		}

		c.mu.Lock()
		already := c.reported[lot.ID]
		if !already {
			c.reported[lot.ID] = true
		}
		c.mu.Unlock()
		if already {
			continue
		}

		log.Info().
			Str("lot_id", lot.ID.String()).
			Str("code", lot.Code).
			Time("closing_time", *lot.ClosingTime).
			Msg("lot expired locally, requesting refresh")
		c.refresher.Request("lot expired: " + lot.Code)
	}
}

// HandleNotification re-arms expiry reporting for a lot once a refresh
// moved its status away from active.
func (c *AuctionClock) HandleNotification(n store.Notification) {
	if n.Kind != store.KindLot || !n.StatusChanged {
		return
	}
	lot, ok := c.lots.Lot(n.LotID)
	if ok && lot.Status == models.LotStatusActive {
		return
	}

	c.mu.Lock()
	delete(c.reported, n.LotID)
	c.mu.Unlock()
}

// StateFor classifies a lot's countdown against the given now.
func StateFor(lot models.Lot, now time.Time) LotTimerState {
	if !lot.HasTimer() {
		return StateNoTimer
	}
	if lot.Status == models.LotStatusActive && !now.Before(*lot.ClosingTime) {
		return StateExpired
	}
	if now.Before(*lot.ClosingTime) {
		return StateCounting
	}
	return StateNoTimer
}

// TimeRemaining reports how long until the lot's closing time, floored at
// zero.
func TimeRemaining(lot models.Lot, now time.Time) time.Duration {
	if !lot.HasTimer() {
		return 0
	}
	remaining := lot.ClosingTime.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}
