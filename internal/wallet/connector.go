package wallet

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/brickvest/coinvest_layer/internal/app/storage"
	"github.com/brickvest/coinvest_layer/internal/errors"
	"github.com/brickvest/coinvest_layer/internal/jsonrpc"
	"github.com/brickvest/coinvest_layer/pkg/logger"
)

// Connector tracks the active wallet connection. The connected address and
// provider type are cached in the state store so a restart can restore the
// connection without prompting again.
type Connector struct {
	mu        sync.RWMutex
	providers map[Type]Provider
	current   Provider
	account   *Account

	store storage.StateStore
	log   *logger.Logger
}

// NewConnector registers the given providers. A nil store disables caching.
func NewConnector(store storage.StateStore, log *logger.Logger, providers ...Provider) *Connector {
	if log == nil {
		log = logger.NewDefault("wallet")
	}
	m := make(map[Type]Provider, len(providers))
	for _, p := range providers {
		if p != nil {
			m[p.Type()] = p
		}
	}
	return &Connector{providers: m, store: store, log: log}
}

// Connect establishes a connection through the explicitly chosen provider.
func (c *Connector) Connect(ctx context.Context, t Type) (Account, error) {
	provider, ok := c.providers[t]
	if !ok {
		return Account{}, errors.Wallet(fmt.Sprintf("wallet provider %q is not configured", t))
	}
	if !provider.Available(ctx) {
		return Account{}, errors.Wallet(fmt.Sprintf("%s wallet is not installed or not reachable", t))
	}

	accounts, err := provider.RequestAccounts(ctx)
	if err != nil {
		return Account{}, walletError(t, err)
	}
	if len(accounts) == 0 {
		return Account{}, errors.Wallet("wallet returned no accounts")
	}

	chainID, err := provider.ChainID(ctx)
	if err != nil {
		return Account{}, walletError(t, err)
	}

	account := Account{Address: accounts[0], ChainID: chainID}

	c.mu.Lock()
	c.current = provider
	c.account = &account
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.SaveWalletSession(ctx, storage.WalletSession{
			Address:  account.Address,
			Provider: string(t),
			ChainID:  account.ChainID,
		}); err != nil {
			c.log.WithError(err).Warn("failed to cache wallet session")
		}
	}

	c.log.WithField("provider", t).WithField("address", account.Address).Info("wallet connected")
	return account, nil
}

// Restore re-attaches a cached wallet session without prompting.
func (c *Connector) Restore(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	ws, err := c.store.LoadWalletSession(ctx)
	if stderrors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	provider, ok := c.providers[Type(ws.Provider)]
	if !ok {
		return nil
	}
	c.mu.Lock()
	c.current = provider
	c.account = &Account{Address: ws.Address, ChainID: ws.ChainID}
	c.mu.Unlock()
	c.log.WithField("provider", ws.Provider).WithField("address", ws.Address).Debug("wallet session restored")
	return nil
}

// Disconnect drops the connection and its cached session.
func (c *Connector) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	c.current = nil
	c.account = nil
	c.mu.Unlock()
	if c.store == nil {
		return nil
	}
	return c.store.ClearWalletSession(ctx)
}

// Account returns the connected account, if any.
func (c *Connector) Account() (Account, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.account == nil {
		return Account{}, false
	}
	return *c.account, true
}

// Provider returns the active provider, if connected.
func (c *Connector) Provider() (Provider, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil {
		return nil, false
	}
	return c.current, true
}

// walletError distinguishes a user rejection from transport failures.
func walletError(t Type, err error) error {
	var rpcErr *jsonrpc.RPCError
	if stderrors.As(err, &rpcErr) && rpcErr.Code == jsonrpc.CodeUserRejected {
		return errors.Wallet(fmt.Sprintf("%s connection rejected by user", t))
	}
	return errors.Wrap(errors.KindWallet, fmt.Sprintf("%s wallet request failed", t), err)
}
