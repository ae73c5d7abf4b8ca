package backend

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/brickvest/coinvest_layer/internal/app/domain/funding"
)

type fundingWire struct {
	ID               int64           `json:"id"`
	UserID           int64           `json:"userId"`
	PropertyID       int64           `json:"propertyId"`
	Percentage       int             `json:"percentage"`
	Status           string          `json:"status"`
	InvestmentAmount decimal.Decimal `json:"investmentAmount"`
	MonthlyReturn    decimal.Decimal `json:"monthlyReturn"`
	CreatedAt        time.Time       `json:"createdAt"`
}

func (w fundingWire) toDomain() funding.Funding {
	return funding.Funding{
		ID:               w.ID,
		UserID:           w.UserID,
		PropertyID:       w.PropertyID,
		Percentage:       w.Percentage,
		Status:           funding.Status(w.Status),
		InvestmentAmount: w.InvestmentAmount,
		MonthlyReturn:    w.MonthlyReturn,
		CreatedAt:        w.CreatedAt,
	}
}

type createFundingRequest struct {
	Percentage     int    `json:"percentage"`
	IdempotencyKey string `json:"idempotencyKey,omitempty"`
}

// CreateFunding registers a funding record for the property and returns the
// new funding id. The idempotency key lets a retried call after a transient
// failure resume instead of double-counting.
func (c *Client) CreateFunding(ctx context.Context, propertyID int64, percentage int, idempotencyKey string) (int64, error) {
	path := fmt.Sprintf("/fundings/properties/%d", propertyID)
	raw, _, err := c.do(ctx, http.MethodPost, path, createFundingRequest{percentage, idempotencyKey}, true)
	if err != nil {
		return 0, err
	}
	var fundingID int64
	if err := decodeInto(raw, &fundingID); err != nil {
		return 0, err
	}
	return fundingID, nil
}

// GetFunding fetches a funding record by id.
func (c *Client) GetFunding(ctx context.Context, id int64) (funding.Funding, error) {
	raw, _, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/fundings/%d", id), nil, true)
	if err != nil {
		return funding.Funding{}, err
	}
	var wire fundingWire
	if err := decodeInto(raw, &wire); err != nil {
		return funding.Funding{}, err
	}
	return wire.toDomain(), nil
}

// MyFundings lists the authenticated user's funding records.
func (c *Client) MyFundings(ctx context.Context) ([]funding.Funding, error) {
	return c.listFundings(ctx, "/fundings/me")
}

// PropertyFundings lists every funding record against a property.
func (c *Client) PropertyFundings(ctx context.Context, propertyID int64) ([]funding.Funding, error) {
	return c.listFundings(ctx, fmt.Sprintf("/fundings/property/%d", propertyID))
}

func (c *Client) listFundings(ctx context.Context, path string) ([]funding.Funding, error) {
	raw, _, err := c.do(ctx, http.MethodGet, path, nil, true)
	if err != nil {
		return nil, err
	}
	var wires []fundingWire
	if err := decodeInto(raw, &wires); err != nil {
		return nil, err
	}
	out := make([]funding.Funding, 0, len(wires))
	for _, w := range wires {
		out = append(out, w.toDomain())
	}
	return out, nil
}
