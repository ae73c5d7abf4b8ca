// Package wallet manages wallet providers and connection state. Providers
// are concrete capability implementations selected by explicit caller
// choice; nothing is probed or sniffed.
package wallet

import (
	"context"
	"math/big"
)

// Type identifies a supported wallet provider.
type Type string

const (
	TypeMetaMask Type = "metamask"
	TypeKaia     Type = "kaia"
)

// ParseType validates a provider name supplied by the user.
func ParseType(raw string) (Type, bool) {
	switch Type(raw) {
	case TypeMetaMask:
		return TypeMetaMask, true
	case TypeKaia:
		return TypeKaia, true
	}
	return "", false
}

// Account is a connected wallet account.
type Account struct {
	Address string
	ChainID int64
}

// Transaction is a value transfer or contract call submitted through the
// connected wallet.
type Transaction struct {
	From  string
	To    string
	Value *big.Int
	Data  []byte
	Gas   uint64
}

// Provider is the capability interface a wallet implementation satisfies.
type Provider interface {
	Type() Type
	// Available reports whether the provider can be reached at all.
	Available(ctx context.Context) bool
	// RequestAccounts asks the wallet for its accounts, prompting the user
	// where the bridge requires approval.
	RequestAccounts(ctx context.Context) ([]string, error)
	ChainID(ctx context.Context) (int64, error)
	// SendTransaction submits a signed transaction and returns its hash.
	SendTransaction(ctx context.Context, tx Transaction) (string, error)
}
