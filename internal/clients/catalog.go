package clients

import (
	"context"
	"net/http"

	"github.com/mquinn/livelot/internal/models"
)

// CatalogClient fetches the authoritative lot list, used for full
// refreshes. Everything the client mirrors is reconstructible from one
// fetch.
type CatalogClient struct {
	base *BaseClient
}

// NewCatalogClient creates a catalog client.
func NewCatalogClient(baseURL, authToken string) *CatalogClient {
	base := NewBaseClient(baseURL)
	if authToken != "" {
		base.SetHeader("Authorization", "Bearer "+authToken)
	}
	return &CatalogClient{base: base}
}

// FetchLots returns every lot for the configured event.
func (c *CatalogClient) FetchLots(ctx context.Context) ([]models.Lot, error) {
	var lots []models.Lot
	if err := c.base.DoJSON(ctx, http.MethodGet, "/lots", nil, &lots); err != nil {
		return nil, err
	}
	return lots, nil
}
