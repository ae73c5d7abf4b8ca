package backend

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/brickvest/coinvest_layer/internal/app/domain/property"
)

// propertyWire mirrors the backend's property representation. Price and
// monthly rent travel as decimal strings.
type propertyWire struct {
	ID             int64           `json:"id"`
	OwnerID        int64           `json:"ownerId"`
	Name           string          `json:"name"`
	Address        string          `json:"address"`
	Description    string          `json:"description"`
	Status         string          `json:"status"`
	Type           string          `json:"type"`
	Price          decimal.Decimal `json:"price"`
	MonthlyRent    decimal.Decimal `json:"monthlyRent"`
	SupplyArea     float64         `json:"supplyArea"`
	FloorCount     int             `json:"floorCount"`
	ImageURL       string          `json:"imageUrl"`
	FundingPercent int             `json:"fundingPercent"`
}

func (w propertyWire) toDomain() property.Property {
	return property.Property{
		ID:             w.ID,
		OwnerID:        w.OwnerID,
		Name:           w.Name,
		Address:        w.Address,
		Description:    w.Description,
		Status:         property.Status(w.Status),
		Type:           w.Type,
		Price:          w.Price,
		MonthlyRent:    w.MonthlyRent,
		SupplyArea:     w.SupplyArea,
		FloorCount:     w.FloorCount,
		ImageURL:       w.ImageURL,
		FundingPercent: w.FundingPercent,
	}
}

// CreatePropertyRequest registers a property for sale.
type CreatePropertyRequest struct {
	Name        string          `json:"name"`
	Address     string          `json:"address"`
	Description string          `json:"description"`
	Type        string          `json:"type"`
	Price       decimal.Decimal `json:"price"`
	MonthlyRent decimal.Decimal `json:"monthlyRent"`
	SupplyArea  float64         `json:"supplyArea"`
	FloorCount  int             `json:"floorCount"`
	ImageURL    string          `json:"imageUrl"`
}

// CreateProperty registers a property listing.
func (c *Client) CreateProperty(ctx context.Context, req CreatePropertyRequest) (property.Property, error) {
	raw, _, err := c.do(ctx, http.MethodPost, "/property", req, true)
	if err != nil {
		return property.Property{}, err
	}
	var wire propertyWire
	if err := decodeInto(raw, &wire); err != nil {
		return property.Property{}, err
	}
	return wire.toDomain(), nil
}

// Properties lists every listed property.
func (c *Client) Properties(ctx context.Context) ([]property.Property, error) {
	return c.listProperties(ctx, "/property")
}

// SaleProperties lists properties currently on sale.
func (c *Client) SaleProperties(ctx context.Context) ([]property.Property, error) {
	return c.listProperties(ctx, "/property/sales")
}

// MyProperties lists properties owned by the authenticated user.
func (c *Client) MyProperties(ctx context.Context) ([]property.Property, error) {
	return c.listProperties(ctx, "/property/my")
}

// GetProperty fetches a single property by id.
func (c *Client) GetProperty(ctx context.Context, id int64) (property.Property, error) {
	raw, _, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/property/%d", id), nil, true)
	if err != nil {
		return property.Property{}, err
	}
	var wire propertyWire
	if err := decodeInto(raw, &wire); err != nil {
		return property.Property{}, err
	}
	return wire.toDomain(), nil
}

func (c *Client) listProperties(ctx context.Context, path string) ([]property.Property, error) {
	raw, _, err := c.do(ctx, http.MethodGet, path, nil, true)
	if err != nil {
		return nil, err
	}
	var wires []propertyWire
	if err := decodeInto(raw, &wires); err != nil {
		return nil, err
	}
	out := make([]property.Property, 0, len(wires))
	for _, w := range wires {
		out = append(out, w.toDomain())
	}
	return out, nil
}
