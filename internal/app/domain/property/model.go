package property

import "github.com/shopspring/decimal"

// Status tracks a property's lifecycle on the platform.
type Status string

const (
	StatusOnSale  Status = "ON_SALE"
	StatusFunding Status = "FUNDING"
	StatusFunded  Status = "FUNDED"
	StatusSold    Status = "SOLD"
)

// Property is a listed real-estate asset. Price and MonthlyRent are integer
// currency amounts transmitted by the backend as decimal strings.
type Property struct {
	ID             int64
	OwnerID        int64
	Name           string
	Address        string
	Description    string
	Status         Status
	Type           string
	Price          decimal.Decimal
	MonthlyRent    decimal.Decimal
	SupplyArea     float64
	FloorCount     int
	ImageURL       string
	FundingPercent int
}

// FullyFunded reports whether the property's funding has reached 100%.
func (p Property) FullyFunded() bool {
	return p.FundingPercent >= 100 || p.Status == StatusFunded || p.Status == StatusSold
}
