package wallet

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/brickvest/coinvest_layer/internal/jsonrpc"
	"github.com/brickvest/coinvest_layer/pkg/logger"
)

// bridgeProvider talks to a wallet bridge over JSON-RPC. MetaMask bridges
// speak the eth_ namespace; Kaia bridges speak klay_ for transaction
// submission but share the eth_ account methods.
type bridgeProvider struct {
	typ        Type
	rpc        *jsonrpc.Client
	sendMethod string
	log        *logger.Logger
}

// NewMetaMask creates a provider backed by a MetaMask-compatible bridge.
func NewMetaMask(rpc *jsonrpc.Client, log *logger.Logger) Provider {
	if log == nil {
		log = logger.NewDefault("wallet-metamask")
	}
	return &bridgeProvider{typ: TypeMetaMask, rpc: rpc, sendMethod: "eth_sendTransaction", log: log}
}

// NewKaia creates a provider backed by a Kaia wallet bridge.
func NewKaia(rpc *jsonrpc.Client, log *logger.Logger) Provider {
	if log == nil {
		log = logger.NewDefault("wallet-kaia")
	}
	return &bridgeProvider{typ: TypeKaia, rpc: rpc, sendMethod: "klay_sendTransaction", log: log}
}

func (p *bridgeProvider) Type() Type { return p.typ }

func (p *bridgeProvider) Available(ctx context.Context) bool {
	if p.rpc == nil {
		return false
	}
	var version string
	if err := p.rpc.Call(ctx, "web3_clientVersion", nil, &version); err != nil {
		p.log.WithError(err).Debug("bridge unavailable")
		return false
	}
	return true
}

func (p *bridgeProvider) RequestAccounts(ctx context.Context) ([]string, error) {
	var accounts []string
	if err := p.rpc.Call(ctx, "eth_requestAccounts", nil, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (p *bridgeProvider) ChainID(ctx context.Context) (int64, error) {
	var raw string
	if err := p.rpc.Call(ctx, "eth_chainId", nil, &raw); err != nil {
		return 0, err
	}
	return parseQuantity(raw)
}

func (p *bridgeProvider) SendTransaction(ctx context.Context, tx Transaction) (string, error) {
	param := map[string]string{
		"from": tx.From,
		"to":   tx.To,
	}
	if tx.Value != nil {
		param["value"] = "0x" + tx.Value.Text(16)
	}
	if len(tx.Data) > 0 {
		param["data"] = "0x" + hex.EncodeToString(tx.Data)
	}
	if tx.Gas > 0 {
		param["gas"] = fmt.Sprintf("0x%x", tx.Gas)
	}

	var hash string
	if err := p.rpc.Call(ctx, p.sendMethod, []interface{}{param}, &hash); err != nil {
		return "", err
	}
	return hash, nil
}

func parseQuantity(raw string) (int64, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(raw), "0x")
	if trimmed == "" {
		return 0, fmt.Errorf("empty quantity")
	}
	value, ok := new(big.Int).SetString(trimmed, 16)
	if !ok {
		return 0, fmt.Errorf("invalid quantity %q", raw)
	}
	return value.Int64(), nil
}
