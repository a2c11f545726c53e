package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"rental-service/pricing"

	"github.com/google/uuid"
)

// TrailerInfo is the catalog's rate card for one trailer. Amounts are minor
// currency units.
type TrailerInfo struct {
	ID            uuid.UUID `json:"id"`
	MinHours      int       `json:"min_hours"`
	MinCost       int64     `json:"min_cost"`
	HourPrice     int64     `json:"hour_price"`
	DayPrice      int64     `json:"day_price"`
	PickupPrice   int64     `json:"pickup_price"`
	DepositAmount int64     `json:"deposit_amount"`
}

func (t *TrailerInfo) Rates() pricing.RateConfig {
	return pricing.RateConfig{
		MinHours:      t.MinHours,
		MinCost:       t.MinCost,
		HourPrice:     t.HourPrice,
		DayPrice:      t.DayPrice,
		PickupPrice:   t.PickupPrice,
		DepositAmount: t.DepositAmount,
	}
}

// Catalog is the external trailer catalog collaborator.
type Catalog interface {
	GetTrailer(ctx context.Context, id uuid.UUID) (*TrailerInfo, error)
}

// CatalogClient fetches trailer rate cards from the catalog service via HTTP.
type CatalogClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewCatalogClient(baseURL string) *CatalogClient {
	return &CatalogClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *CatalogClient) GetTrailer(ctx context.Context, id uuid.UUID) (*TrailerInfo, error) {
	url := fmt.Sprintf("%s/trailers/%s", c.baseURL, id)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("trailer %s not found", id)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog service returned %d", resp.StatusCode)
	}

	var info TrailerInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, err
	}
	return &info, nil
}
