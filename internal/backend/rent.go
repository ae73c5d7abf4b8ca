package backend

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"github.com/brickvest/coinvest_layer/internal/app/domain/rent"
)

type rentWire struct {
	ID         int64           `json:"id"`
	TenantID   int64           `json:"tenantId"`
	PropertyID int64           `json:"propertyId"`
	OwnerID    int64           `json:"ownerId"`
	StartDate  string          `json:"startDate"`
	EndDate    string          `json:"endDate"`
	Deposit    decimal.Decimal `json:"deposit"`
	PaymentDay int             `json:"paymentDay"`
	Status     string          `json:"status"`
}

const dateLayout = "2006-01-02"

func (w rentWire) toDomain() rent.Rent {
	start, _ := time.Parse(dateLayout, w.StartDate)
	end, _ := time.Parse(dateLayout, w.EndDate)
	return rent.Rent{
		ID:         w.ID,
		TenantID:   w.TenantID,
		PropertyID: w.PropertyID,
		OwnerID:    w.OwnerID,
		StartDate:  start,
		EndDate:    end,
		Deposit:    w.Deposit,
		PaymentDay: w.PaymentDay,
		Status:     rent.Status(w.Status),
	}
}

type paymentWire struct {
	ID         int64           `json:"id"`
	RentID     int64           `json:"rentId"`
	TenantID   int64           `json:"tenantId"`
	PropertyID int64           `json:"propertyId"`
	Amount     decimal.Decimal `json:"amount"`
	PaidAt     time.Time       `json:"paidAt"`
	Status     string          `json:"status"`
}

func (w paymentWire) toDomain() rent.Payment {
	return rent.Payment{
		ID:         w.ID,
		RentID:     w.RentID,
		TenantID:   w.TenantID,
		PropertyID: w.PropertyID,
		Amount:     w.Amount,
		PaidAt:     w.PaidAt,
		Status:     rent.PaymentStatus(w.Status),
	}
}

// CreateRentRequest applies for a lease on a property.
type CreateRentRequest struct {
	PropertyID int64           `json:"propertyId"`
	StartDate  string          `json:"startDate"`
	EndDate    string          `json:"endDate"`
	Deposit    decimal.Decimal `json:"deposit"`
	PaymentDay int             `json:"paymentDay"`
}

// CreateRent submits a lease application.
func (c *Client) CreateRent(ctx context.Context, req CreateRentRequest) (rent.Rent, error) {
	raw, _, err := c.do(ctx, http.MethodPost, "/rents", req, true)
	if err != nil {
		return rent.Rent{}, err
	}
	var wire rentWire
	if err := decodeInto(raw, &wire); err != nil {
		return rent.Rent{}, err
	}
	return wire.toDomain(), nil
}

// MyRents lists the authenticated user's leases.
func (c *Client) MyRents(ctx context.Context) ([]rent.Rent, error) {
	raw, _, err := c.do(ctx, http.MethodGet, "/rents/me", nil, true)
	if err != nil {
		return nil, err
	}
	var wires []rentWire
	if err := decodeInto(raw, &wires); err != nil {
		return nil, err
	}
	out := make([]rent.Rent, 0, len(wires))
	for _, w := range wires {
		out = append(out, w.toDomain())
	}
	return out, nil
}

type payRentRequest struct {
	IdempotencyKey string `json:"idempotencyKey,omitempty"`
}

// PayRent records a rent payment for the property and returns the persisted
// payment.
func (c *Client) PayRent(ctx context.Context, propertyID int64, idempotencyKey string) (rent.Payment, error) {
	path := fmt.Sprintf("/rent-payment/%d", propertyID)
	raw, _, err := c.do(ctx, http.MethodPost, path, payRentRequest{idempotencyKey}, true)
	if err != nil {
		return rent.Payment{}, err
	}
	var wire paymentWire
	if err := decodeInto(raw, &wire); err != nil {
		return rent.Payment{}, err
	}
	return wire.toDomain(), nil
}

// RecordRentPayment records a payment against a lease id directly.
func (c *Client) RecordRentPayment(ctx context.Context, rentID int64, amount decimal.Decimal) (rent.Payment, error) {
	body := struct {
		RentID int64           `json:"rentId"`
		Amount decimal.Decimal `json:"amount"`
	}{rentID, amount}
	raw, _, err := c.do(ctx, http.MethodPost, "/rent-payment", body, true)
	if err != nil {
		return rent.Payment{}, err
	}
	var wire paymentWire
	if err := decodeInto(raw, &wire); err != nil {
		return rent.Payment{}, err
	}
	return wire.toDomain(), nil
}

// MyRentPayments lists the authenticated tenant's payment history.
func (c *Client) MyRentPayments(ctx context.Context) ([]rent.Payment, error) {
	raw, _, err := c.do(ctx, http.MethodGet, "/rent-payment/my", nil, true)
	if err != nil {
		return nil, err
	}
	var wires []paymentWire
	if err := decodeInto(raw, &wires); err != nil {
		return nil, err
	}
	out := make([]rent.Payment, 0, len(wires))
	for _, w := range wires {
		out = append(out, w.toDomain())
	}
	return out, nil
}

// IncomeByProperty is the backend-aggregated rent income attributable to the
// user's fundings in one property.
type IncomeByProperty struct {
	PropertyID   int64
	PropertyName string
	TotalIncome  decimal.Decimal
	PaymentCount int
}

// FundingIncome fetches the user's aggregated funding income. The payload
// shape has drifted across backend versions, so it is parsed tolerantly and
// validated here at the gateway boundary rather than decoded blindly.
func (c *Client) FundingIncome(ctx context.Context) ([]IncomeByProperty, error) {
	raw, _, err := c.do(ctx, http.MethodGet, "/fundings/me/income", nil, true)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}

	parsed := gjson.ParseBytes(raw)
	items := parsed
	if !parsed.IsArray() {
		// Some versions nest the list under an "incomes" key.
		items = parsed.Get("incomes")
		if !items.IsArray() {
			return nil, fmt.Errorf("unexpected funding income payload shape")
		}
	}

	var out []IncomeByProperty
	var parseErr error
	items.ForEach(func(_, item gjson.Result) bool {
		entry := IncomeByProperty{
			PropertyID:   firstInt(item, "propertyId", "property_id"),
			PropertyName: firstString(item, "propertyName", "property_name", "name"),
			PaymentCount: int(firstInt(item, "paymentCount", "payment_count", "count")),
		}
		rawIncome := firstString(item, "totalIncome", "total_income", "income")
		if rawIncome != "" {
			entry.TotalIncome, parseErr = decimal.NewFromString(rawIncome)
			if parseErr != nil {
				parseErr = fmt.Errorf("invalid income amount %q: %w", rawIncome, parseErr)
				return false
			}
		}
		out = append(out, entry)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return out, nil
}

func firstInt(item gjson.Result, keys ...string) int64 {
	for _, key := range keys {
		if v := item.Get(key); v.Exists() {
			return v.Int()
		}
	}
	return 0
}

func firstString(item gjson.Result, keys ...string) string {
	for _, key := range keys {
		if v := item.Get(key); v.Exists() {
			return v.String()
		}
	}
	return ""
}
