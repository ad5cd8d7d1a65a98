package clients

import "time"

// RejectReason is the bid acceptance service's rejection taxonomy.
type RejectReason string

const (
	RejectLotNotActive   RejectReason = "LotNotActive"
	RejectAmountTooLow   RejectReason = "AmountTooLow"
	RejectSessionInvalid RejectReason = "SessionInvalid"
	RejectUnknown        RejectReason = "Unknown"
)

// BidResult is the bid acceptance service's response. A non-nil
// NewClosingTime means the lot's timer was extended because the bid
// arrived near expiry.
type BidResult struct {
	Accepted       bool         `json:"accepted"`
	Amount         int64        `json:"amount"`
	NewClosingTime *time.Time   `json:"newClosingTime,omitempty"`
	Reason         RejectReason `json:"reason,omitempty"`
}

// Winner identifies the winning bid reported on a status transition.
type Winner struct {
	BidderID string `json:"bidderId"`
	Amount   int64  `json:"amount"`
}

// OperatorResult is the operator action service's response.
type OperatorResult struct {
	Success bool    `json:"success"`
	Winner  *Winner `json:"winner,omitempty"`
	Error   string  `json:"error,omitempty"`
}

// TimerAction names a timer control operation.
type TimerAction string

const (
	TimerStart    TimerAction = "start"
	TimerExtend   TimerAction = "extend"
	TimerCancel   TimerAction = "cancel"
	TimerCloseNow TimerAction = "closeNow"
)

// TimerResult is the timer control service's response.
type TimerResult struct {
	Success           bool   `json:"success"`
	Message           string `json:"message"`
	NotificationsSent *int   `json:"notificationsSent,omitempty"`
}
