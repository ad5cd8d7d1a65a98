package channel

import (
	"encoding/json"
	"time"
)

// Concern names one logical stream of change events.
type Concern string

const (
	ConcernLotStatus Concern = "lot_status"
	ConcernBids      Concern = "bids"
	ConcernVotes     Concern = "votes"
)

// EventType mirrors the change-feed operation kinds.
type EventType string

const (
	EventInsert EventType = "insert"
	EventUpdate EventType = "update"
	EventDelete EventType = "delete"
)

// ChangeEvent is one raw change-feed notification. The supervisor forwards
// these tagged with their concern and never interprets the payloads;
// duplicate and out-of-order delivery are both possible and must be
// tolerated downstream.
type ChangeEvent struct {
	Type    EventType       `json:"eventType"`
	Concern Concern         `json:"concern"`
	New     json.RawMessage `json:"new,omitempty"`
	Old     json.RawMessage `json:"old,omitempty"`
}

// State is the connection state of one subscription.
type State string

const (
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateDisconnected State = "disconnected"
	StateReconnecting State = "reconnecting"
)

// Subscription is a point-in-time snapshot of one managed channel.
type Subscription struct {
	ChannelKey        string    `json:"channel_key"`
	Concern           Concern   `json:"concern"`
	State             State     `json:"state"`
	ReconnectAttempts int       `json:"reconnect_attempts"`
	LastEventAt       time.Time `json:"last_event_at,omitempty"`
}
