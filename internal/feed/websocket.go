// Package feed provides the change-feed transports behind the channel
// supervisor: a WebSocket source and a NATS source, both emitting raw
// ChangeEvents the supervisor forwards without interpretation.
package feed

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/mquinn/livelot/internal/channel"
)

// WebsocketConfig holds the WebSocket transport settings.
type WebsocketConfig struct {
	// URL is the feed endpoint, e.g. wss://feed.example.com/realtime.
	URL              string
	HandshakeTimeout time.Duration
	PingInterval     time.Duration
	PongWait         time.Duration
	WriteWait        time.Duration
	MaxMessageSize   int64
}

// DefaultWebsocketConfig returns the production WebSocket settings.
func DefaultWebsocketConfig(feedURL string) WebsocketConfig {
	return WebsocketConfig{
		URL:              feedURL,
		HandshakeTimeout: 10 * time.Second,
		PingInterval:     30 * time.Second,
		PongWait:         60 * time.Second,
		WriteWait:        10 * time.Second,
		MaxMessageSize:   64 * 1024,
	}
}

// WebsocketSource opens one WebSocket per subscription.
type WebsocketSource struct {
	cfg    WebsocketConfig
	dialer *websocket.Dialer
}

// NewWebsocketSource creates a WebSocket feed source.
func NewWebsocketSource(cfg WebsocketConfig) *WebsocketSource {
	return &WebsocketSource{
		cfg: cfg,
		dialer: &websocket.Dialer{
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
	}
}

var _ channel.Source = (*WebsocketSource)(nil)

// Open dials the feed for one concern. The concern and optional filter
// ride as query parameters so the feed scopes what it pushes.
func (s *WebsocketSource) Open(ctx context.Context, concern channel.Concern, filter string) (channel.Conn, error) {
	u, err := url.Parse(s.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse feed url: %w", err)
	}
	q := u.Query()
	q.Set("concern", string(concern))
	if filter != "" {
		q.Set("filter", filter)
	}
	u.RawQuery = q.Encode()

	conn, _, err := s.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial feed: %w", err)
	}

	wc := &wsConn{
		conn:    conn,
		cfg:     s.cfg,
		concern: concern,
		events:  make(chan channel.ChangeEvent, 64),
		errs:    make(chan error, 1),
		done:    make(chan struct{}),
	}

	go wc.readPump()
	go wc.pingLoop()

	log.Debug().
		Str("concern", string(concern)).
		Str("filter", filter).
		Msg("feed websocket connected")
	return wc, nil
}

type wsConn struct {
	conn    *websocket.Conn
	cfg     WebsocketConfig
	concern channel.Concern

	events chan channel.ChangeEvent
	errs   chan error
	done   chan struct{}
	once   sync.Once
}

func (c *wsConn) Events() <-chan channel.ChangeEvent { return c.events }
func (c *wsConn) Err() <-chan error                  { return c.errs }

func (c *wsConn) Close() error {
	c.once.Do(func() { close(c.done) })
	return c.conn.Close()
}

func (c *wsConn) fail(err error) {
	select {
	case c.errs <- err:
	default:
	}
}

func (c *wsConn) readPump() {
	defer close(c.events)

	c.conn.SetReadLimit(c.cfg.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				c.fail(fmt.Errorf("feed read: %w", err))
			}
			return
		}

		ev, err := decodeEvent(data, c.concern)
		if err != nil {
			log.Warn().Err(err).Str("concern", string(c.concern)).Msg("malformed feed event dropped")
			continue
		}

		select {
		case c.events <- ev:
		case <-c.done:
			return
		}
	}
}

func (c *wsConn) pingLoop() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(c.cfg.WriteWait)
			if err := c.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				c.fail(fmt.Errorf("feed ping: %w", err))
				return
			}
		}
	}
}
