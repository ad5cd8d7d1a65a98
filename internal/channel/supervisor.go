// Package channel owns the real-time feed lifecycle: one subscription per
// concern, connection state tracking, and exponential-backoff reconnection
// defined once instead of per screen.
package channel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Conn is one live feed connection. Events closes or Err yields when the
// connection dies.
type Conn interface {
	Events() <-chan ChangeEvent
	Err() <-chan error
	Close() error
}

// Source opens feed connections. Implementations live in internal/feed.
type Source interface {
	Open(ctx context.Context, concern Concern, filter string) (Conn, error)
}

// Sink receives every inbound change event, tagged with its concern.
type Sink interface {
	HandleChange(ev ChangeEvent)
}

// Refresher accepts resync requests after a successful reconnect.
type Refresher interface {
	Request(reason string)
}

// Config holds the reconnection policy.
type Config struct {
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxAttempts int
}

// DefaultConfig returns the production reconnection policy.
func DefaultConfig() Config {
	return Config{
		BaseDelay:   time.Second,
		MaxDelay:    60 * time.Second,
		MaxAttempts: 5,
	}
}

// ReconnectDelay computes the backoff before reconnect attempt number
// attempts (zero-based), capped at cfg.MaxDelay.
func (cfg Config) ReconnectDelay(attempts int) time.Duration {
	delay := cfg.BaseDelay << attempts
	if delay > cfg.MaxDelay || delay <= 0 {
		return cfg.MaxDelay
	}
	return delay
}

// StateFunc observes subscription state transitions.
type StateFunc func(channelKey string, state State)

// Supervisor manages one subscription per channel key. Requesting a key
// that already exists returns the existing handle.
type Supervisor struct {
	source    Source
	sink      Sink
	refresher Refresher
	clock     clockwork.Clock
	cfg       Config
	onState   StateFunc

	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	subs map[string]*Handle
	wg   sync.WaitGroup
}

// Handle is the caller's reference to one managed subscription.
type Handle struct {
	key     string
	concern Concern
	filter  string
	ctx     context.Context
	cancel  context.CancelFunc

	mu          sync.Mutex
	state       State
	attempts    int
	lastEventAt time.Time
}

// Key returns the subscription's channel key.
func (h *Handle) Key() string { return h.key }

// State returns the subscription's current connection state.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Snapshot returns a copy of the subscription's bookkeeping.
func (h *Handle) Snapshot() Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Subscription{
		ChannelKey:        h.key,
		Concern:           h.concern,
		State:             h.state,
		ReconnectAttempts: h.attempts,
		LastEventAt:       h.lastEventAt,
	}
}

// New creates a supervisor. onState may be nil.
func New(source Source, sink Sink, refresher Refresher, clk clockwork.Clock, cfg Config, onState StateFunc) *Supervisor {
	ctx, cancel := context.WithCancel(context.Background())
	return &Supervisor{
		source:    source,
		sink:      sink,
		refresher: refresher,
		clock:     clk,
		cfg:       cfg,
		onState:   onState,
		ctx:       ctx,
		cancel:    cancel,
		subs:      make(map[string]*Handle),
	}
}

// ChannelKey builds the key a concern/filter pair subscribes under.
func ChannelKey(concern Concern, filter string) string {
	if filter == "" {
		return string(concern)
	}
	return fmt.Sprintf("%s/%s", concern, filter)
}

// Subscribe starts (or returns the existing) subscription for a concern.
func (s *Supervisor) Subscribe(concern Concern, filter string) *Handle {
	key := ChannelKey(concern, filter)

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.subs[key]; ok {
		return existing
	}

	ctx, cancel := context.WithCancel(s.ctx)
	h := &Handle{
		key:     key,
		concern: concern,
		filter:  filter,
		ctx:     ctx,
		cancel:  cancel,
		state:   StateDisconnected,
	}
	s.subs[key] = h

	s.wg.Add(1)
	go s.run(h)

	log.Info().Str("channel", key).Msg("subscription created")
	return h
}

// Subscriptions snapshots every managed subscription.
func (s *Supervisor) Subscriptions() []Subscription {
	s.mu.Lock()
	handles := make([]*Handle, 0, len(s.subs))
	for _, h := range s.subs {
		handles = append(handles, h)
	}
	s.mu.Unlock()

	out := make([]Subscription, 0, len(handles))
	for _, h := range handles {
		out = append(out, h.Snapshot())
	}
	return out
}

// Degraded reports whether any subscription sits in a state the UI must
// surface as not-live.
func (s *Supervisor) Degraded() bool {
	for _, sub := range s.Subscriptions() {
		if sub.State != StateConnected {
			return true
		}
	}
	return false
}

// ResetAttempts optimistically zeroes every retry counter, typically when
// the view returns to the foreground. No reconnect is forced; the next
// natural failure cycle starts back at attempt zero.
func (s *Supervisor) ResetAttempts() {
	s.mu.Lock()
	handles := make([]*Handle, 0, len(s.subs))
	for _, h := range s.subs {
		handles = append(handles, h)
	}
	s.mu.Unlock()

	for _, h := range handles {
		h.mu.Lock()
		h.attempts = 0
		h.mu.Unlock()
	}
	log.Debug().Msg("reconnect attempt counters reset")
}

// Close tears down every subscription and waits for their loops to exit.
func (s *Supervisor) Close() {
	s.cancel()
	s.wg.Wait()
	log.Info().Msg("channel supervisor closed")
}

func (s *Supervisor) run(h *Handle) {
	defer s.wg.Done()

	for {
		retrying := h.attemptCount() > 0
		s.setState(h, StateConnecting)

		conn, err := s.source.Open(h.ctx, h.concern, h.filter)
		if err != nil {
			if h.ctx.Err() != nil {
				s.setState(h, StateDisconnected)
				return
			}
			log.Warn().Err(err).Str("channel", h.key).Msg("channel connect failed")
			s.setState(h, StateDisconnected)
			if !s.waitForRetry(h) {
				return
			}
			continue
		}

		s.setState(h, StateConnected)
		h.mu.Lock()
		h.attempts = 0
		h.mu.Unlock()

		if retrying && s.refresher != nil {
			// events may have been missed while disconnected
			s.refresher.Request("channel reconnected: " + h.key)
		}

		s.consume(h, conn)
		conn.Close()

		if h.ctx.Err() != nil {
			s.setState(h, StateDisconnected)
			return
		}

		s.setState(h, StateDisconnected)
		if !s.waitForRetry(h) {
			return
		}
	}
}

func (s *Supervisor) consume(h *Handle, conn Conn) {
	for {
		select {
		case <-h.ctx.Done():
			return
		case ev, ok := <-conn.Events():
			if !ok {
				return
			}
			h.mu.Lock()
			h.lastEventAt = s.clock.Now()
			h.mu.Unlock()
			s.sink.HandleChange(ev)
		case err := <-conn.Err():
			log.Warn().Err(err).Str("channel", h.key).Msg("channel connection lost")
			return
		}
	}
}

// waitForRetry blocks for the computed backoff. It returns false when the
// retry budget is exhausted or the subscription is shutting down; an
// exhausted subscription stays persistently disconnected rather than
// retrying silently forever.
func (s *Supervisor) waitForRetry(h *Handle) bool {
	attempts := h.attemptCount()
	if attempts >= s.cfg.MaxAttempts {
		log.Warn().
			Str("channel", h.key).
			Int("attempts", attempts).
			Msg("reconnect budget exhausted, staying disconnected")
		return false
	}

	delay := s.cfg.ReconnectDelay(attempts)
	s.setState(h, StateReconnecting)
	log.Info().
		Str("channel", h.key).
		Int("attempt", attempts+1).
		Dur("delay", delay).
		Msg("scheduling reconnect")

	timer := s.clock.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-h.ctx.Done():
		return false
	case <-timer.Chan():
	}

	h.mu.Lock()
	h.attempts++
	h.mu.Unlock()
	return true
}

func (s *Supervisor) setState(h *Handle, st State) {
	h.mu.Lock()
	changed := h.state != st
	h.state = st
	h.mu.Unlock()

	if changed && s.onState != nil {
		s.onState(h.key, st)
	}
}

func (h *Handle) attemptCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.attempts
}
