package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/mquinn/livelot/internal/channel"
)

// NATSConfig holds the NATS transport settings.
type NATSConfig struct {
	URL           string
	SubjectPrefix string
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultNATSConfig returns the production NATS settings.
func DefaultNATSConfig(natsURL string) NATSConfig {
	return NATSConfig{
		URL:           natsURL,
		SubjectPrefix: "feed",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

// NATSSource serves subscriptions off one shared NATS connection. The
// connection handles its own low-level reconnection; a closed connection
// is surfaced to every open subscription so the supervisor's policy still
// applies.
type NATSSource struct {
	cfg NATSConfig
	nc  *nats.Conn
}

// NewNATSSource connects to NATS.
func NewNATSSource(cfg NATSConfig) (*NATSSource, error) {
	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &NATSSource{cfg: cfg, nc: nc}, nil
}

var _ channel.Source = (*NATSSource)(nil)

// Open subscribes to the subject for one concern, e.g. feed.bids.event-1.
func (s *NATSSource) Open(ctx context.Context, concern channel.Concern, filter string) (channel.Conn, error) {
	if !s.nc.IsConnected() {
		return nil, fmt.Errorf("nats connection is %s", s.nc.Status())
	}

	subject := fmt.Sprintf("%s.%s", s.cfg.SubjectPrefix, concern)
	if filter != "" {
		subject = fmt.Sprintf("%s.%s", subject, filter)
	}

	nconn := &natsConn{
		concern: concern,
		events:  make(chan channel.ChangeEvent, 64),
		errs:    make(chan error, 1),
		done:    make(chan struct{}),
	}

	sub, err := s.nc.Subscribe(subject, nconn.handleMessage)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}
	nconn.sub = sub

	statusCh := s.nc.StatusChanged(nats.CLOSED)
	go nconn.watchStatus(statusCh)

	log.Debug().Str("subject", subject).Msg("feed nats subscription opened")
	return nconn, nil
}

// Close shuts the shared connection down.
func (s *NATSSource) Close() {
	if s.nc != nil {
		s.nc.Close()
	}
}

type natsConn struct {
	concern channel.Concern
	sub     *nats.Subscription
	events  chan channel.ChangeEvent
	errs    chan error
	done    chan struct{}
	once    sync.Once
}

func (c *natsConn) Events() <-chan channel.ChangeEvent { return c.events }
func (c *natsConn) Err() <-chan error                  { return c.errs }

func (c *natsConn) Close() error {
	var err error
	c.once.Do(func() {
		close(c.done)
		err = c.sub.Unsubscribe()
	})
	return err
}

func (c *natsConn) handleMessage(msg *nats.Msg) {
	ev, err := decodeEvent(msg.Data, c.concern)
	if err != nil {
		log.Warn().Err(err).Str("subject", msg.Subject).Msg("malformed feed event dropped")
		return
	}

	select {
	case c.events <- ev:
	case <-c.done:
	default:
		log.Warn().Str("subject", msg.Subject).Msg("feed buffer full, event dropped")
	}
}

func (c *natsConn) watchStatus(statusCh chan nats.Status) {
	select {
	case <-c.done:
	case status := <-statusCh:
		select {
		case c.errs <- fmt.Errorf("nats connection %s", status):
		default:
		}
	}
}
