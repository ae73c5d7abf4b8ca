// Package funding orchestrates the investment workflow: a two-phase commit
// that reserves shares on-chain and then registers the funding record in
// the backend. The chain write always strictly precedes the backend write.
package funding

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	fundingdom "github.com/brickvest/coinvest_layer/internal/app/domain/funding"
	"github.com/brickvest/coinvest_layer/internal/app/domain/property"
	"github.com/brickvest/coinvest_layer/internal/app/metrics"
	"github.com/brickvest/coinvest_layer/internal/app/storage"
	"github.com/brickvest/coinvest_layer/internal/chain"
	"github.com/brickvest/coinvest_layer/internal/errors"
	"github.com/brickvest/coinvest_layer/internal/wallet"
	"github.com/brickvest/coinvest_layer/pkg/logger"
)

// ContractGateway is the chain surface the workflow needs.
type ContractGateway interface {
	SharesSold(ctx context.Context, propertyID int64) (int, error)
	ReserveShares(ctx context.Context, propertyID int64, count int) (chain.Receipt, error)
}

// BackendGateway is the REST surface the workflow needs.
type BackendGateway interface {
	GetProperty(ctx context.Context, id int64) (property.Property, error)
	CreateFunding(ctx context.Context, propertyID int64, percentage int, idempotencyKey string) (int64, error)
	GetFunding(ctx context.Context, id int64) (fundingdom.Funding, error)
	MyFundings(ctx context.Context) ([]fundingdom.Funding, error)
	PropertyFundings(ctx context.Context, propertyID int64) ([]fundingdom.Funding, error)
}

// WalletChecker reports the connected wallet account, if any.
type WalletChecker interface {
	Account() (wallet.Account, bool)
}

// Service runs the investment workflow.
type Service struct {
	chain   ContractGateway
	backend BackendGateway
	wallet  WalletChecker
	store   storage.StateStore
	log     *logger.Logger

	newKey func() string
}

// New constructs the funding workflow service.
func New(cg ContractGateway, bg BackendGateway, wc WalletChecker, store storage.StateStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("funding")
	}
	return &Service{
		chain:   cg,
		backend: bg,
		wallet:  wc,
		store:   store,
		log:     log,
		newKey:  uuid.NewString,
	}
}

// Quote derives the cost and expected return of a percentage stake without
// touching the chain.
func (s *Service) Quote(ctx context.Context, propertyID int64, percentage int) (fundingdom.Quote, error) {
	if err := fundingdom.ValidatePercentage(percentage); err != nil {
		return fundingdom.Quote{}, errors.Validation(err.Error())
	}
	prop, err := s.backend.GetProperty(ctx, propertyID)
	if err != nil {
		return fundingdom.Quote{}, err
	}
	quote, err := fundingdom.QuoteFor(prop, percentage)
	if err != nil {
		return fundingdom.Quote{}, errors.Validation(err.Error())
	}
	return quote, nil
}

// Invest buys a percentage stake in a property. The on-chain reservation
// must confirm before the backend funding record is created; a backend
// failure after chain success is surfaced as a retryable partial failure
// backed by a durable pending marker.
func (s *Service) Invest(ctx context.Context, propertyID int64, percentage int) (fundingdom.Funding, error) {
	result, err := s.invest(ctx, propertyID, percentage)
	metrics.ObserveWorkflow(string(storage.WorkflowFunding), metrics.OutcomeFor(err))
	s.refreshPendingGauge(ctx)
	return result, err
}

func (s *Service) invest(ctx context.Context, propertyID int64, percentage int) (fundingdom.Funding, error) {
	if err := fundingdom.ValidatePercentage(percentage); err != nil {
		return fundingdom.Funding{}, errors.Validation(err.Error())
	}
	if _, ok := s.wallet.Account(); !ok {
		return fundingdom.Funding{}, errors.Wallet("connect a wallet before investing")
	}

	prop, err := s.backend.GetProperty(ctx, propertyID)
	if err != nil {
		return fundingdom.Funding{}, err
	}

	shareCount := fundingdom.ShareCount(percentage)
	sold, err := s.chain.SharesSold(ctx, propertyID)
	if err != nil {
		return fundingdom.Funding{}, err
	}
	if remaining := chain.TotalShares - sold; remaining < shareCount {
		return fundingdom.Funding{}, errors.Chain(
			fmt.Sprintf("insufficient shares remaining: want %d, have %d", shareCount, remaining), nil)
	}

	start := time.Now()
	receipt, err := s.chain.ReserveShares(ctx, propertyID, shareCount)
	metrics.ObserveChainCall("reserveShares", time.Since(start))
	if err != nil {
		return fundingdom.Funding{}, err
	}
	s.log.WithField("property_id", propertyID).
		WithField("shares", shareCount).
		WithField("tx", receipt.TxHash).
		Info("share reservation confirmed")

	marker := storage.PendingCommit{
		Key:        s.newKey(),
		Workflow:   storage.WorkflowFunding,
		PropertyID: propertyID,
		Percentage: percentage,
		Amount:     fundingdom.InvestmentAmount(prop.Price, percentage),
		TxHash:     receipt.TxHash,
		State:      storage.CommitAwaitingBackend,
	}
	if s.store != nil {
		if _, err := s.store.CreatePendingCommit(ctx, marker); err != nil {
			s.log.WithError(err).Warn("failed to persist pending commit marker")
		}
	}

	fundingID, err := s.backend.CreateFunding(ctx, propertyID, percentage, marker.Key)
	if err != nil {
		s.log.WithError(err).
			WithField("commit_key", marker.Key).
			Error("backend funding registration failed after chain success")
		return fundingdom.Funding{}, errors.Partial(marker.Key, err)
	}
	s.completeMarker(ctx, marker)

	return s.resolveFunding(ctx, fundingID, prop, percentage), nil
}

// ResumePending retries the backend half of a funding commit whose chain
// write already confirmed. It never touches the chain again.
func (s *Service) ResumePending(ctx context.Context, key string) (fundingdom.Funding, error) {
	if s.store == nil {
		return fundingdom.Funding{}, errors.Validation("no pending commit store configured")
	}
	marker, err := s.store.GetPendingCommit(ctx, key)
	if stderrors.Is(err, storage.ErrNotFound) {
		return fundingdom.Funding{}, errors.Validation(fmt.Sprintf("no pending commit %s", key))
	}
	if err != nil {
		return fundingdom.Funding{}, err
	}
	if marker.Workflow != storage.WorkflowFunding {
		return fundingdom.Funding{}, errors.Validation(fmt.Sprintf("commit %s belongs to the %s workflow", key, marker.Workflow))
	}
	if marker.State == storage.CommitCompleted {
		return fundingdom.Funding{}, errors.Validation(fmt.Sprintf("commit %s is already completed", key))
	}

	fundingID, err := s.backend.CreateFunding(ctx, marker.PropertyID, marker.Percentage, marker.Key)
	if err != nil {
		return fundingdom.Funding{}, errors.Partial(marker.Key, err)
	}
	s.completeMarker(ctx, marker)
	s.refreshPendingGauge(ctx)

	prop, err := s.backend.GetProperty(ctx, marker.PropertyID)
	if err != nil {
		prop = property.Property{ID: marker.PropertyID}
	}
	return s.resolveFunding(ctx, fundingID, prop, marker.Percentage), nil
}

// MyFundings lists the user's funding records.
func (s *Service) MyFundings(ctx context.Context) ([]fundingdom.Funding, error) {
	return s.backend.MyFundings(ctx)
}

// PropertyFundings lists funding records against a property.
func (s *Service) PropertyFundings(ctx context.Context, propertyID int64) ([]fundingdom.Funding, error) {
	return s.backend.PropertyFundings(ctx, propertyID)
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

// resolveFunding prefers the backend's authoritative record and falls back
// to the locally derived amounts.
func (s *Service) resolveFunding(ctx context.Context, fundingID int64, prop property.Property, percentage int) fundingdom.Funding {
	if record, err := s.backend.GetFunding(ctx, fundingID); err == nil && record.ID != 0 {
		return record
	}
	return fundingdom.Funding{
		ID:               fundingID,
		PropertyID:       prop.ID,
		Percentage:       percentage,
		Status:           fundingdom.StatusRequested,
		InvestmentAmount: fundingdom.InvestmentAmount(prop.Price, percentage),
		MonthlyReturn:    fundingdom.MonthlyReturn(prop.MonthlyRent, percentage),
	}
}

func (s *Service) refreshPendingGauge(ctx context.Context) {
	if s.store == nil {
		return
	}
	if unresolved, err := s.store.ListUnresolvedCommits(ctx); err == nil {
		metrics.SetPendingCommits(len(unresolved))
	}
}
