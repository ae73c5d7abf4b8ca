// Package rent orchestrates the rent payment workflow: eligibility gating,
// the on-chain rent distribution, and the backend payment record, plus the
// derived payment and income views.
package rent

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/brickvest/coinvest_layer/internal/app/domain/property"
	rentdom "github.com/brickvest/coinvest_layer/internal/app/domain/rent"
	"github.com/brickvest/coinvest_layer/internal/app/metrics"
	"github.com/brickvest/coinvest_layer/internal/app/storage"
	"github.com/brickvest/coinvest_layer/internal/backend"
	"github.com/brickvest/coinvest_layer/internal/chain"
	"github.com/brickvest/coinvest_layer/internal/errors"
	"github.com/brickvest/coinvest_layer/internal/wallet"
	"github.com/brickvest/coinvest_layer/pkg/logger"
)

// ContractGateway is the chain surface the workflow needs.
type ContractGateway interface {
	DistributeRent(ctx context.Context, propertyID int64) (chain.Receipt, error)
}

// BackendGateway is the REST surface the workflow needs.
type BackendGateway interface {
	GetProperty(ctx context.Context, id int64) (property.Property, error)
	CreateRent(ctx context.Context, req backend.CreateRentRequest) (rentdom.Rent, error)
	MyRents(ctx context.Context) ([]rentdom.Rent, error)
	PayRent(ctx context.Context, propertyID int64, idempotencyKey string) (rentdom.Payment, error)
	MyRentPayments(ctx context.Context) ([]rentdom.Payment, error)
	FundingIncome(ctx context.Context) ([]backend.IncomeByProperty, error)
}

// WalletChecker reports the connected wallet account, if any.
type WalletChecker interface {
	Account() (wallet.Account, bool)
}

// Service runs the rent payment workflow.
type Service struct {
	chain   ContractGateway
	backend BackendGateway
	wallet  WalletChecker
	store   storage.StateStore
	policy  WindowPolicy
	log     *logger.Logger

	now    func() time.Time
	newKey func() string
}

// New constructs the rent workflow service with the given window policy.
func New(cg ContractGateway, bg BackendGateway, wc WalletChecker, store storage.StateStore, policy WindowPolicy, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("rent")
	}
	if len(policy.days) == 0 {
		policy = DefaultWindowPolicy()
	}
	return &Service{
		chain:   cg,
		backend: bg,
		wallet:  wc,
		store:   store,
		policy:  policy,
		log:     log,
		now:     time.Now,
		newKey:  uuid.NewString,
	}
}

// Policy returns the active payment window policy.
func (s *Service) Policy() WindowPolicy { return s.policy }

// Eligibility evaluates the payment-window predicate for the tenant's lease
// on the given property.
func (s *Service) Eligibility(ctx context.Context, propertyID int64) (Eligibility, error) {
	payments, err := s.paymentsFor(ctx, propertyID)
	if err != nil {
		return Eligibility{}, err
	}
	return CanPayRent(payments, s.now(), s.policy), nil
}

// PayRent gates, executes and records a single rent payment. The on-chain
// distribution must confirm before the backend record is created.
func (s *Service) PayRent(ctx context.Context, propertyID int64) (rentdom.Payment, error) {
	payment, err := s.payRent(ctx, propertyID)
	metrics.ObserveWorkflow(string(storage.WorkflowRentPayment), metrics.OutcomeFor(err))
	return payment, err
}

func (s *Service) payRent(ctx context.Context, propertyID int64) (rentdom.Payment, error) {
	if _, ok := s.wallet.Account(); !ok {
		return rentdom.Payment{}, errors.Wallet("connect a wallet before paying rent")
	}

	prop, err := s.backend.GetProperty(ctx, propertyID)
	if err != nil {
		return rentdom.Payment{}, err
	}
	if !prop.FullyFunded() {
		return rentdom.Payment{}, errors.Validation(
			fmt.Sprintf("property %d is funded at %d%%; rent collection starts at 100%%", propertyID, prop.FundingPercent))
	}

	payments, err := s.paymentsFor(ctx, propertyID)
	if err != nil {
		return rentdom.Payment{}, err
	}
	if eligibility := CanPayRent(payments, s.now(), s.policy); !eligibility.CanPay {
		return rentdom.Payment{}, errors.Validation(eligibility.Reason)
	}

	start := time.Now()
	receipt, err := s.chain.DistributeRent(ctx, propertyID)
	metrics.ObserveChainCall("distributeRent", time.Since(start))
	if err != nil {
		return rentdom.Payment{}, err
	}
	s.log.WithField("property_id", propertyID).
		WithField("tx", receipt.TxHash).
		Info("rent distribution confirmed")

	marker := storage.PendingCommit{
		Key:        s.newKey(),
		Workflow:   storage.WorkflowRentPayment,
		PropertyID: propertyID,
		Amount:     prop.MonthlyRent,
		TxHash:     receipt.TxHash,
		State:      storage.CommitAwaitingBackend,
	}
	if s.store != nil {
		if _, err := s.store.CreatePendingCommit(ctx, marker); err != nil {
			s.log.WithError(err).Warn("failed to persist pending commit marker")
		}
	}

	payment, err := s.backend.PayRent(ctx, propertyID, marker.Key)
	if err != nil {
		s.log.WithError(err).
			WithField("commit_key", marker.Key).
			Error("backend payment record failed after chain success")
		return rentdom.Payment{}, errors.Partial(marker.Key, err)
	}
	s.completeMarker(ctx, marker)
	return payment, nil
}

// ResumePending retries the backend half of a rent payment commit whose
// chain write already confirmed.
func (s *Service) ResumePending(ctx context.Context, key string) (rentdom.Payment, error) {
	if s.store == nil {
		return rentdom.Payment{}, errors.Validation("no pending commit store configured")
	}
	marker, err := s.store.GetPendingCommit(ctx, key)
	if stderrors.Is(err, storage.ErrNotFound) {
		return rentdom.Payment{}, errors.Validation(fmt.Sprintf("no pending commit %s", key))
	}
	if err != nil {
		return rentdom.Payment{}, err
	}
	if marker.Workflow != storage.WorkflowRentPayment {
		return rentdom.Payment{}, errors.Validation(fmt.Sprintf("commit %s belongs to the %s workflow", key, marker.Workflow))
	}
	if marker.State == storage.CommitCompleted {
		return rentdom.Payment{}, errors.Validation(fmt.Sprintf("commit %s is already completed", key))
	}

	payment, err := s.backend.PayRent(ctx, marker.PropertyID, marker.Key)
	if err != nil {
		return rentdom.Payment{}, errors.Partial(marker.Key, err)
	}
	s.completeMarker(ctx, marker)
	return payment, nil
}

// ApplyForRent submits a lease application with the platform deposit rule
// (twenty months of rent) computed client-side.
func (s *Service) ApplyForRent(ctx context.Context, propertyID int64, startDate, endDate time.Time, paymentDay int) (rentdom.Rent, error) {
	if !endDate.After(startDate) {
		return rentdom.Rent{}, errors.Validation("lease end date must be after the start date")
	}
	if paymentDay < 1 || paymentDay > 31 {
		return rentdom.Rent{}, errors.Validation(fmt.Sprintf("invalid payment day %d", paymentDay))
	}

	prop, err := s.backend.GetProperty(ctx, propertyID)
	if err != nil {
		return rentdom.Rent{}, err
	}

	return s.backend.CreateRent(ctx, backend.CreateRentRequest{
		PropertyID: propertyID,
		StartDate:  startDate.Format(dateLayout),
		EndDate:    endDate.Format(dateLayout),
		Deposit:    rentdom.DepositFor(prop.MonthlyRent),
		PaymentDay: paymentDay,
	})
}

const dateLayout = "2006-01-02"

// PropertyPayments is the grouped view of a tenant's payments for one
// property.
type PropertyPayments struct {
	PropertyID int64
	Total      decimal.Decimal
	Count      int
	LastPaidAt time.Time
}

// PaymentsByProperty groups the tenant's own payment history by property.
func (s *Service) PaymentsByProperty(ctx context.Context) ([]PropertyPayments, error) {
	payments, err := s.backend.MyRentPayments(ctx)
	if err != nil {
		return nil, err
	}

	byProperty := make(map[int64]*PropertyPayments)
	var order []int64
	for _, p := range payments {
		group, ok := byProperty[p.PropertyID]
		if !ok {
			group = &PropertyPayments{PropertyID: p.PropertyID}
			byProperty[p.PropertyID] = group
			order = append(order, p.PropertyID)
		}
		group.Total = group.Total.Add(p.Amount)
		group.Count++
		if p.PaidAt.After(group.LastPaidAt) {
			group.LastPaidAt = p.PaidAt
		}
	}

	out := make([]PropertyPayments, 0, len(order))
	for _, id := range order {
		out = append(out, *byProperty[id])
	}
	return out, nil
}

// FundingIncome returns the backend-aggregated income attributable to the
// user's fundings.
func (s *Service) FundingIncome(ctx context.Context) ([]backend.IncomeByProperty, error) {
	return s.backend.FundingIncome(ctx)
}

// MyRents lists the tenant's leases.
func (s *Service) MyRents(ctx context.Context) ([]rentdom.Rent, error) {
	return s.backend.MyRents(ctx)
}

func (s *Service) paymentsFor(ctx context.Context, propertyID int64) ([]rentdom.Payment, error) {
	all, err := s.backend.MyRentPayments(ctx)
	if err != nil {
		return nil, err
	}
	var out []rentdom.Payment
	for _, p := range all {
		if p.PropertyID == propertyID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Service) completeMarker(ctx context.Context, marker storage.PendingCommit) {
	if s.store == nil {
		return
	}
	marker.State = storage.CommitCompleted
	if _, err := s.store.UpdatePendingCommit(ctx, marker); err != nil && !stderrors.Is(err, storage.ErrNotFound) {
		s.log.WithError(err).Warn("failed to complete pending commit marker")
	}
}
