package funding

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/brickvest/coinvest_layer/internal/app/domain/property"
)

// Status mirrors the backend's funding record state.
type Status string

const (
	StatusRequested Status = "REQUESTED"
	StatusApproved  Status = "APPROVED"
)

// Each property is divided into a fixed number of on-chain shares, so one
// share corresponds to five percentage points.
const (
	TotalShares   = 20
	MinPercentage = 5
	MaxPercentage = 100
	PercentStep   = 5
)

// Funding is a user's fractional stake in a property.
type Funding struct {
	ID               int64
	UserID           int64
	PropertyID       int64
	Percentage       int
	Status           Status
	InvestmentAmount decimal.Decimal
	MonthlyReturn    decimal.Decimal
	CreatedAt        time.Time
}

// Quote is the purely derived view of what a percentage stake costs and
// yields. It requires no chain or backend round trip.
type Quote struct {
	PropertyID       int64
	Percentage       int
	ShareCount       int
	InvestmentAmount decimal.Decimal
	MonthlyReturn    decimal.Decimal
}

// ValidatePercentage enforces that p is a multiple of five within [5,100].
func ValidatePercentage(p int) error {
	if p < MinPercentage || p > MaxPercentage || p%PercentStep != 0 {
		return fmt.Errorf("percentage must be a multiple of %d between %d and %d, got %d",
			PercentStep, MinPercentage, MaxPercentage, p)
	}
	return nil
}

// ShareCount converts a percentage into its on-chain share count.
// 100% corresponds to all TotalShares shares.
func ShareCount(percentage int) int {
	return percentage / PercentStep
}

// InvestmentAmount derives the purchase cost of a percentage stake.
func InvestmentAmount(price decimal.Decimal, percentage int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(percentage))).Div(decimal.NewFromInt(100))
}

// MonthlyReturn derives the rent share of a percentage stake.
func MonthlyReturn(monthlyRent decimal.Decimal, percentage int) decimal.Decimal {
	return monthlyRent.Mul(decimal.NewFromInt(int64(percentage))).Div(decimal.NewFromInt(100))
}

// QuoteFor computes the derived quote for a stake in the given property.
func QuoteFor(prop property.Property, percentage int) (Quote, error) {
	if err := ValidatePercentage(percentage); err != nil {
		return Quote{}, err
	}
	return Quote{
		PropertyID:       prop.ID,
		Percentage:       percentage,
		ShareCount:       ShareCount(percentage),
		InvestmentAmount: InvestmentAmount(prop.Price, percentage),
		MonthlyReturn:    MonthlyReturn(prop.MonthlyRent, percentage),
	}, nil
}
