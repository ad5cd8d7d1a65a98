package clients

import (
	"context"
	"net/http"

	"github.com/mquinn/livelot/internal/models"
)

// OperatorClient requests lot status transitions on behalf of an
// operator. The client never flips a lot's status locally; it asks and
// waits for the change to come back over the feed or a refresh.
type OperatorClient struct {
	base *BaseClient
}

// NewOperatorClient creates an operator action client.
func NewOperatorClient(baseURL, authToken string) *OperatorClient {
	base := NewBaseClient(baseURL)
	if authToken != "" {
		base.SetHeader("Authorization", "Bearer "+authToken)
	}
	return &OperatorClient{base: base}
}

type operatorActionRequest struct {
	LotCode    string           `json:"lotCode"`
	NewStatus  models.LotStatus `json:"newStatus"`
	OperatorID string           `json:"operatorId,omitempty"`
}

// SetLotStatus asks the remote authority to transition a lot.
func (c *OperatorClient) SetLotStatus(ctx context.Context, lotCode string, newStatus models.LotStatus, operatorID string) (OperatorResult, error) {
	var result OperatorResult
	req := operatorActionRequest{LotCode: lotCode, NewStatus: newStatus, OperatorID: operatorID}
	if err := c.base.DoJSON(ctx, http.MethodPost, "/operator/status", req, &result); err != nil {
		return OperatorResult{}, err
	}
	return result, nil
}
