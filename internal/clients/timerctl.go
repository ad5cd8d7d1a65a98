package clients

import (
	"context"
	"net/http"
)

// TimerClient drives the remote per-event auction timer.
type TimerClient struct {
	base *BaseClient
}

// NewTimerClient creates a timer control client.
func NewTimerClient(baseURL, authToken string) *TimerClient {
	base := NewBaseClient(baseURL)
	if authToken != "" {
		base.SetHeader("Authorization", "Bearer "+authToken)
	}
	return &TimerClient{base: base}
}

type timerControlRequest struct {
	Action          TimerAction `json:"action"`
	DurationMinutes *int        `json:"durationMinutes,omitempty"`
}

// Control issues a timer action. durationMinutes applies to start and
// extend; pass nil otherwise.
func (c *TimerClient) Control(ctx context.Context, action TimerAction, durationMinutes *int) (TimerResult, error) {
	var result TimerResult
	req := timerControlRequest{Action: action, DurationMinutes: durationMinutes}
	if err := c.base.DoJSON(ctx, http.MethodPost, "/timer", req, &result); err != nil {
		return TimerResult{}, err
	}
	return result, nil
}
