package rent

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/brickvest/coinvest_layer/internal/app/domain/property"
	rentdom "github.com/brickvest/coinvest_layer/internal/app/domain/rent"
	"github.com/brickvest/coinvest_layer/internal/app/storage"
	"github.com/brickvest/coinvest_layer/internal/app/storage/memory"
	"github.com/brickvest/coinvest_layer/internal/backend"
	"github.com/brickvest/coinvest_layer/internal/chain"
	"github.com/brickvest/coinvest_layer/internal/errors"
	"github.com/brickvest/coinvest_layer/internal/wallet"
)

type fakeChain struct {
	calls         *[]string
	distributeErr error
}

func (f *fakeChain) DistributeRent(ctx context.Context, propertyID int64) (chain.Receipt, error) {
	*f.calls = append(*f.calls, "chain.DistributeRent")
	if f.distributeErr != nil {
		return chain.Receipt{}, f.distributeErr
	}
	return chain.Receipt{TxHash: "0xrent", Succeeded: true}, nil
}

type fakeBackend struct {
	calls    *[]string
	prop     property.Property
	payments []rentdom.Payment
	rents    []rentdom.Rent
	payErr   error
	payKeys  []string
	lease    rentdom.Rent
}

func (f *fakeBackend) GetProperty(ctx context.Context, id int64) (property.Property, error) {
	*f.calls = append(*f.calls, "backend.GetProperty")
	return f.prop, nil
}

func (f *fakeBackend) CreateRent(ctx context.Context, req backend.CreateRentRequest) (rentdom.Rent, error) {
	*f.calls = append(*f.calls, "backend.CreateRent")
	f.lease = rentdom.Rent{
		ID:         42,
		PropertyID: req.PropertyID,
		Deposit:    req.Deposit,
		PaymentDay: req.PaymentDay,
	}
	return f.lease, nil
}

func (f *fakeBackend) MyRents(ctx context.Context) ([]rentdom.Rent, error) {
	return f.rents, nil
}

func (f *fakeBackend) PayRent(ctx context.Context, propertyID int64, idempotencyKey string) (rentdom.Payment, error) {
	*f.calls = append(*f.calls, "backend.PayRent")
	f.payKeys = append(f.payKeys, idempotencyKey)
	if f.payErr != nil {
		return rentdom.Payment{}, f.payErr
	}
	return rentdom.Payment{ID: 1, PropertyID: propertyID, Amount: f.prop.MonthlyRent, Status: rentdom.PaymentPaid}, nil
}

func (f *fakeBackend) MyRentPayments(ctx context.Context) ([]rentdom.Payment, error) {
	return f.payments, nil
}

func (f *fakeBackend) FundingIncome(ctx context.Context) ([]backend.IncomeByProperty, error) {
	return nil, nil
}

type fakeWallet struct{ connected bool }

func (f *fakeWallet) Account() (wallet.Account, bool) {
	return wallet.Account{Address: "0xdead"}, f.connected
}

func fundedProperty() property.Property {
	return property.Property{
		ID:             7,
		Status:         property.StatusFunded,
		Price:          decimal.NewFromInt(300_000_000),
		MonthlyRent:    decimal.NewFromInt(1_000_000),
		FundingPercent: 100,
	}
}

func newTestService(ch *fakeChain, be *fakeBackend, w *fakeWallet, store storage.StateStore) *Service {
	svc := New(ch, be, w, store, DefaultWindowPolicy(), nil)
	svc.now = func() time.Time { return time.Date(2026, time.March, 7, 12, 0, 0, 0, time.UTC) }
	svc.newKey = func() string { return "rent-key-1" }
	return svc
}

func TestPayRentChainWriteStrictlyPrecedesBackendWrite(t *testing.T) {
	var calls []string
	ch := &fakeChain{calls: &calls}
	be := &fakeBackend{calls: &calls, prop: fundedProperty()}
	svc := newTestService(ch, be, &fakeWallet{connected: true}, memory.New())

	payment, err := svc.PayRent(context.Background(), 7)
	if err != nil {
		t.Fatalf("PayRent failed: %v", err)
	}
	if !payment.Amount.Equal(decimal.NewFromInt(1_000_000)) {
		t.Fatalf("payment amount = %s", payment.Amount)
	}

	distributeAt, recordAt := -1, -1
	for i, c := range calls {
		switch c {
		case "chain.DistributeRent":
			distributeAt = i
		case "backend.PayRent":
			recordAt = i
		}
	}
	if distributeAt == -1 || recordAt == -1 {
		t.Fatalf("expected both writes, got %v", calls)
	}
	if distributeAt > recordAt {
		t.Fatalf("backend record ran before chain distribution: %v", calls)
	}
}

func TestPayRentRequiresConnectedWallet(t *testing.T) {
	var calls []string
	svc := newTestService(&fakeChain{calls: &calls}, &fakeBackend{calls: &calls, prop: fundedProperty()}, &fakeWallet{}, memory.New())

	if _, err := svc.PayRent(context.Background(), 7); !errors.IsKind(err, errors.KindWallet) {
		t.Fatalf("want wallet error, got %v", err)
	}
	if len(calls) != 0 {
		t.Fatalf("no external call expected, got %v", calls)
	}
}

func TestPayRentRejectsPartiallyFundedProperty(t *testing.T) {
	var calls []string
	prop := fundedProperty()
	prop.Status = property.StatusFunding
	prop.FundingPercent = 85
	svc := newTestService(&fakeChain{calls: &calls}, &fakeBackend{calls: &calls, prop: prop}, &fakeWallet{connected: true}, memory.New())

	if _, err := svc.PayRent(context.Background(), 7); !errors.IsKind(err, errors.KindValidation) {
		t.Fatalf("want validation error, got %v", err)
	}
	for _, c := range calls {
		if c == "chain.DistributeRent" || c == "backend.PayRent" {
			t.Fatalf("no write expected on a partially funded property, got %v", calls)
		}
	}
}

func TestPayRentRejectsOutsideWindow(t *testing.T) {
	var calls []string
	svc := newTestService(&fakeChain{calls: &calls}, &fakeBackend{calls: &calls, prop: fundedProperty()}, &fakeWallet{connected: true}, memory.New())
	svc.now = func() time.Time { return time.Date(2026, time.March, 20, 12, 0, 0, 0, time.UTC) }

	if _, err := svc.PayRent(context.Background(), 7); !errors.IsKind(err, errors.KindValidation) {
		t.Fatalf("want validation error, got %v", err)
	}
	for _, c := range calls {
		if c == "chain.DistributeRent" {
			t.Fatalf("chain must not be touched outside the window, got %v", calls)
		}
	}
}

func TestPayRentRejectsSecondPaymentInMonth(t *testing.T) {
	var calls []string
	be := &fakeBackend{
		calls: &calls,
		prop:  fundedProperty(),
		payments: []rentdom.Payment{
			{PropertyID: 7, Amount: decimal.NewFromInt(1_000_000), PaidAt: time.Date(2026, time.March, 5, 0, 0, 0, 0, time.UTC)},
		},
	}
	svc := newTestService(&fakeChain{calls: &calls}, be, &fakeWallet{connected: true}, memory.New())

	if _, err := svc.PayRent(context.Background(), 7); !errors.IsKind(err, errors.KindValidation) {
		t.Fatalf("want validation error, got %v", err)
	}
}

func TestPayRentPaymentOnOtherPropertyDoesNotBlock(t *testing.T) {
	var calls []string
	be := &fakeBackend{
		calls: &calls,
		prop:  fundedProperty(),
		payments: []rentdom.Payment{
			{PropertyID: 99, Amount: decimal.NewFromInt(700_000), PaidAt: time.Date(2026, time.March, 5, 0, 0, 0, 0, time.UTC)},
		},
	}
	svc := newTestService(&fakeChain{calls: &calls}, be, &fakeWallet{connected: true}, memory.New())

	if _, err := svc.PayRent(context.Background(), 7); err != nil {
		t.Fatalf("payment on another property must not block: %v", err)
	}
}

func TestPayRentBackendFailureLeavesRetryableMarker(t *testing.T) {
	var calls []string
	be := &fakeBackend{calls: &calls, prop: fundedProperty(), payErr: stderrors.New("timeout")}
	store := memory.New()
	svc := newTestService(&fakeChain{calls: &calls}, be, &fakeWallet{connected: true}, store)

	_, err := svc.PayRent(context.Background(), 7)
	if !errors.IsKind(err, errors.KindPartial) {
		t.Fatalf("want partial failure, got %v", err)
	}

	be.payErr = nil
	calls = calls[:0]

	payment, err := svc.ResumePending(context.Background(), "rent-key-1")
	if err != nil {
		t.Fatalf("ResumePending failed: %v", err)
	}
	if payment.PropertyID != 7 {
		t.Fatalf("resumed payment = %+v", payment)
	}
	for _, c := range calls {
		if c == "chain.DistributeRent" {
			t.Fatalf("resume must never distribute rent again, got %v", calls)
		}
	}
	if len(be.payKeys) != 2 || be.payKeys[0] != be.payKeys[1] {
		t.Fatalf("retry must reuse the idempotency key, got %v", be.payKeys)
	}

	unresolved, _ := store.ListUnresolvedCommits(context.Background())
	if len(unresolved) != 0 {
		t.Fatalf("marker should be completed, got %d unresolved", len(unresolved))
	}
}

func TestApplyForRentComputesTwentyMonthDeposit(t *testing.T) {
	var calls []string
	be := &fakeBackend{calls: &calls, prop: fundedProperty()}
	svc := newTestService(&fakeChain{calls: &calls}, be, &fakeWallet{connected: true}, memory.New())

	start := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(2, 0, 0)
	lease, err := svc.ApplyForRent(context.Background(), 7, start, end, 5)
	if err != nil {
		t.Fatalf("ApplyForRent failed: %v", err)
	}
	if want := decimal.NewFromInt(20_000_000); !lease.Deposit.Equal(want) {
		t.Fatalf("deposit = %s, want %s", lease.Deposit, want)
	}
}

func TestApplyForRentValidatesDatesAndPaymentDay(t *testing.T) {
	var calls []string
	svc := newTestService(&fakeChain{calls: &calls}, &fakeBackend{calls: &calls, prop: fundedProperty()}, &fakeWallet{connected: true}, memory.New())

	start := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)

	if _, err := svc.ApplyForRent(context.Background(), 7, start, start, 5); !errors.IsKind(err, errors.KindValidation) {
		t.Fatalf("equal dates: want validation error, got %v", err)
	}
	if _, err := svc.ApplyForRent(context.Background(), 7, start, start.AddDate(0, -1, 0), 5); !errors.IsKind(err, errors.KindValidation) {
		t.Fatalf("end before start: want validation error, got %v", err)
	}
	for _, d := range []int{0, 32, -1} {
		if _, err := svc.ApplyForRent(context.Background(), 7, start, start.AddDate(1, 0, 0), d); !errors.IsKind(err, errors.KindValidation) {
			t.Fatalf("payment day %d: want validation error, got %v", d, err)
		}
	}
}

func TestPaymentsByPropertyGroupsAndTotals(t *testing.T) {
	var calls []string
	be := &fakeBackend{
		calls: &calls,
		prop:  fundedProperty(),
		payments: []rentdom.Payment{
			{PropertyID: 7, Amount: decimal.NewFromInt(1_000_000), PaidAt: time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC)},
			{PropertyID: 9, Amount: decimal.NewFromInt(700_000), PaidAt: time.Date(2026, time.January, 6, 0, 0, 0, 0, time.UTC)},
			{PropertyID: 7, Amount: decimal.NewFromInt(1_000_000), PaidAt: time.Date(2026, time.February, 5, 0, 0, 0, 0, time.UTC)},
		},
	}
	svc := newTestService(&fakeChain{calls: &calls}, be, &fakeWallet{connected: true}, memory.New())

	grouped, err := svc.PaymentsByProperty(context.Background())
	if err != nil {
		t.Fatalf("PaymentsByProperty failed: %v", err)
	}
	if len(grouped) != 2 {
		t.Fatalf("want 2 groups, got %d", len(grouped))
	}
	if grouped[0].PropertyID != 7 || grouped[1].PropertyID != 9 {
		t.Fatalf("groups must keep first-seen order, got %+v", grouped)
	}
	if want := decimal.NewFromInt(2_000_000); !grouped[0].Total.Equal(want) {
		t.Fatalf("property 7 total = %s, want %s", grouped[0].Total, want)
	}
	if grouped[0].Count != 2 || grouped[1].Count != 1 {
		t.Fatalf("counts = %d/%d", grouped[0].Count, grouped[1].Count)
	}
	if !grouped[0].LastPaidAt.Equal(time.Date(2026, time.February, 5, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("LastPaidAt = %s", grouped[0].LastPaidAt)
	}
}
