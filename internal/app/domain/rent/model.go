package rent

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status tracks a lease's lifecycle.
type Status string

const (
	// StatusPendingFunding means the lease exists but the property has not
	// reached 100% funding yet.
	StatusPendingFunding Status = "PENDING_FUNDING"
	StatusActive         Status = "ACTIVE"
	StatusSold           Status = "SOLD"
)

// PaymentStatus tracks a single rent payment record.
type PaymentStatus string

const (
	PaymentPaid    PaymentStatus = "PAID"
	PaymentPending PaymentStatus = "PENDING"
)

// DepositMonths is the platform-wide deposit multiple: a lease deposit is
// twenty months of rent.
const DepositMonths = 20

// Rent is a lease contract between a tenant and a property.
type Rent struct {
	ID         int64
	TenantID   int64
	PropertyID int64
	OwnerID    int64
	StartDate  time.Time
	EndDate    time.Time
	Deposit    decimal.Decimal
	PaymentDay int
	Status     Status
}

// Payment is a single recorded rent payment. Records are append-only; the
// client never mutates or deletes them.
type Payment struct {
	ID         int64
	RentID     int64
	TenantID   int64
	PropertyID int64
	Amount     decimal.Decimal
	PaidAt     time.Time
	Status     PaymentStatus
}

// DepositFor derives the lease deposit from the monthly rent.
func DepositFor(monthlyRent decimal.Decimal) decimal.Decimal {
	return monthlyRent.Mul(decimal.NewFromInt(DepositMonths))
}

// PaidInMonth reports whether the payment's paid-at date falls in the same
// calendar month and year as t.
func (p Payment) PaidInMonth(t time.Time) bool {
	return p.PaidAt.Year() == t.Year() && p.PaidAt.Month() == t.Month()
}
