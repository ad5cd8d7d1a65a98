// Package refresh debounces and sequences full-state reloads. Expiry
// ticks and channel reconnects can both demand a resync in the same
// moment; the coordinator runs at most one reload at a time and keeps at
// most one more queued, with newer requests superseding the queued slot.
package refresh

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// ReloadFunc fetches authoritative state and installs it in the store.
type ReloadFunc func(ctx context.Context) error

// Config holds the coordinator tunables.
type Config struct {
	// Debounce coalesces a burst of requests into a single reload.
	Debounce time.Duration
}

// DefaultConfig returns the production coordinator settings.
func DefaultConfig() Config {
	return Config{Debounce: 250 * time.Millisecond}
}

// Coordinator owns the reload lifecycle.
type Coordinator struct {
	reload ReloadFunc
	clock  clockwork.Clock
	cfg    Config

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu            sync.Mutex
	armed         bool
	inFlight      bool
	queued        bool
	pendingReason string
	queuedReason  string
}

// New creates a coordinator around the given reload function.
func New(reload ReloadFunc, clk clockwork.Clock, cfg Config) *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		reload: reload,
		clock:  clk,
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Request asks for a full refresh. Requests landing during the debounce
// window or while a reload is in flight are coalesced; the newest reason
// supersedes the queued one.
func (c *Coordinator) Request(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inFlight {
		c.queued = true
		c.queuedReason = reason
		log.Debug().Str("reason", reason).Msg("refresh queued behind in-flight reload")
		return
	}
	if c.armed {
		c.pendingReason = reason
		log.Debug().Str("reason", reason).Msg("refresh coalesced into pending reload")
		return
	}

	c.armed = true
	c.pendingReason = reason
	timer := c.clock.NewTimer(c.cfg.Debounce)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		select {
		case <-c.ctx.Done():
			timer.Stop()
			return
		case <-timer.Chan():
		}
		c.runReload()
	}()
}

// Close cancels pending work and waits for any in-flight reload.
func (c *Coordinator) Close() {
	c.cancel()
	c.wg.Wait()
}

func (c *Coordinator) runReload() {
	c.mu.Lock()
	c.armed = false
	reason := c.pendingReason
	c.inFlight = true
	c.mu.Unlock()

	log.Info().Str("reason", reason).Msg("running full refresh")
	if err := c.reload(c.ctx); err != nil {
		log.Error().Err(err).Str("reason", reason).Msg("full refresh failed")
	}

	c.mu.Lock()
	c.inFlight = false
	rerun := c.queued
	queuedReason := c.queuedReason
	c.queued = false
	c.mu.Unlock()

	if rerun && c.ctx.Err() == nil {
		c.Request(queuedReason)
	}
}
