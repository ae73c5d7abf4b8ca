// Package app ties the gateways and workflow services together and manages
// their lifecycle.
package app

import (
	"context"
	"fmt"

	authsvc "github.com/brickvest/coinvest_layer/internal/app/services/auth"
	fundingsvc "github.com/brickvest/coinvest_layer/internal/app/services/funding"
	rentsvc "github.com/brickvest/coinvest_layer/internal/app/services/rent"
	"github.com/brickvest/coinvest_layer/internal/app/storage"
	"github.com/brickvest/coinvest_layer/internal/app/storage/memory"
	"github.com/brickvest/coinvest_layer/internal/backend"
	"github.com/brickvest/coinvest_layer/internal/chain"
	"github.com/brickvest/coinvest_layer/internal/config"
	"github.com/brickvest/coinvest_layer/internal/jsonrpc"
	"github.com/brickvest/coinvest_layer/internal/session"
	"github.com/brickvest/coinvest_layer/internal/wallet"
	"github.com/brickvest/coinvest_layer/pkg/logger"
)

// Application exposes the wired services. All durable financial state lives
// in the two external systems; the state store only holds the session,
// wallet cache and pending commit markers.
type Application struct {
	Session  *session.Session
	Wallet   *wallet.Connector
	Chain    *chain.Gateway
	Backend  *backend.Client
	Auth     *authsvc.Service
	Funding  *fundingsvc.Service
	Rent     *rentsvc.Service
	Reminder *rentsvc.Reminder
	Store    storage.StateStore

	log *logger.Logger
}

// New builds a fully initialised application. A nil store defaults to the
// in-memory implementation.
func New(cfg config.Config, store storage.StateStore, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}
	if store == nil {
		store = memory.New()
	}

	sess := session.New(store, log.WithField("unit", "session"))
	backendClient := backend.NewClient(cfg.BackendURL, cfg.HTTPTimeout, sess, log.WithField("unit", "backend"))

	var providers []wallet.Provider
	if cfg.MetaMaskBridgeURL != "" {
		rpc := jsonrpc.NewClient(cfg.MetaMaskBridgeURL, cfg.HTTPTimeout, cfg.RPCRateLimit, log.WithField("unit", "metamask-rpc"))
		providers = append(providers, wallet.NewMetaMask(rpc, log.WithField("unit", "metamask")))
	}
	if cfg.KaiaBridgeURL != "" {
		rpc := jsonrpc.NewClient(cfg.KaiaBridgeURL, cfg.HTTPTimeout, cfg.RPCRateLimit, log.WithField("unit", "kaia-rpc"))
		providers = append(providers, wallet.NewKaia(rpc, log.WithField("unit", "kaia")))
	}
	connector := wallet.NewConnector(store, log.WithField("unit", "wallet"), providers...)

	chainRPC := jsonrpc.NewClient(cfg.ChainRPCURL, cfg.HTTPTimeout, cfg.RPCRateLimit, log.WithField("unit", "chain-rpc"))
	chainGateway := chain.New(chainRPC, cfg.ContractAddress, connector, log.WithField("unit", "chain"))

	policy, err := rentsvc.ParseWindowPolicy(cfg.RentWindow)
	if err != nil {
		return nil, fmt.Errorf("rent window policy: %w", err)
	}

	fundingService := fundingsvc.New(chainGateway, backendClient, connector, store, log.WithField("unit", "funding"))
	rentService := rentsvc.New(chainGateway, backendClient, connector, store, policy, log.WithField("unit", "rent"))
	authService := authsvc.New(backendClient, connector, log.WithField("unit", "auth"))
	reminder := rentsvc.NewReminder(rentService, cfg.ReminderSpec, log.WithField("unit", "rent-reminder"))

	return &Application{
		Session:  sess,
		Wallet:   connector,
		Chain:    chainGateway,
		Backend:  backendClient,
		Auth:     authService,
		Funding:  fundingService,
		Rent:     rentService,
		Reminder: reminder,
		Store:    store,
		log:      log,
	}, nil
}

// Start restores persisted state and launches background jobs.
func (a *Application) Start(ctx context.Context) error {
	if err := a.Session.Restore(ctx); err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	if err := a.Wallet.Restore(ctx); err != nil {
		return fmt.Errorf("restore wallet session: %w", err)
	}
	if err := a.Reminder.Start(ctx); err != nil {
		return fmt.Errorf("start rent reminder: %w", err)
	}

	if unresolved, err := a.Store.ListUnresolvedCommits(ctx); err == nil && len(unresolved) > 0 {
		a.log.WithField("count", len(unresolved)).
			Warn("unresolved two-phase commits found; retry them to finish backend registration")
	}
	return nil
}

// Stop shuts down background jobs.
func (a *Application) Stop(ctx context.Context) error {
	return a.Reminder.Stop(ctx)
}
