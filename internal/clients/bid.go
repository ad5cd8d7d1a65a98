package clients

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// BidClient talks to the remote bid acceptance service, the sole
// authority on whether a bid stands.
type BidClient struct {
	base *BaseClient
}

// NewBidClient creates a bid client. submitTimeout bounds how long a
// submission may hang before it is treated as a transient failure.
func NewBidClient(baseURL, authToken string, submitTimeout time.Duration) *BidClient {
	base := NewBaseClient(baseURL)
	if authToken != "" {
		base.SetHeader("Authorization", "Bearer "+authToken)
	}
	if submitTimeout > 0 {
		base.SetTimeout(submitTimeout)
	}
	return &BidClient{base: base}
}

type submitBidRequest struct {
	LotID  uuid.UUID `json:"lotId"`
	Amount int64     `json:"amount"`
}

// SubmitBid submits a bid for acceptance. A timeout returns
// ErrSubmitTimeout; the bid may still have been accepted server-side.
func (c *BidClient) SubmitBid(ctx context.Context, lotID uuid.UUID, amount int64) (BidResult, error) {
	var result BidResult
	req := submitBidRequest{LotID: lotID, Amount: amount}
	if err := c.base.DoJSON(ctx, http.MethodPost, "/bids", req, &result); err != nil {
		return BidResult{}, err
	}
	return result, nil
}
