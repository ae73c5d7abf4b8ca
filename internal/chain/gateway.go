// Package chain is the typed gateway to the external property-share
// contract. The contract owns all share accounting and rent fan-out; this
// package only reads its state and submits the two payable methods.
package chain

import (
	"context"
	"encoding/hex"
	stderrors "errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/brickvest/coinvest_layer/internal/errors"
	"github.com/brickvest/coinvest_layer/internal/jsonrpc"
	"github.com/brickvest/coinvest_layer/internal/wallet"
	"github.com/brickvest/coinvest_layer/pkg/logger"
)

// TotalShares is fixed by the contract: every property is divided into 20
// shares.
const TotalShares = 20

// gasLimit matches the limit the platform frontends submit with.
const gasLimit = 100_000_000

// getPropertyInfo returns an index-addressed tuple whose field order is a
// versioned contract ABI decision. Only these two indices are consumed.
const (
	propertyInfoRentIndex       = 3
	propertyInfoSharesSoldIndex = 6
)

const (
	sigGetSharePrice   = "getSharePrice(uint256)"
	sigGetPropertyInfo = "getPropertyInfo(uint256)"
	sigReserveShares   = "reserveShares(uint256,uint256)"
	sigDistributeRent  = "distributeRent(uint256)"
)

// Receipt is a confirmed transaction result.
type Receipt struct {
	TxHash      string
	BlockNumber uint64
	GasUsed     uint64
	Succeeded   bool
}

// PropertyInfo is the opaque on-chain property tuple.
type PropertyInfo struct {
	words []*big.Int
}

// RentWei returns the on-chain monthly rent amount in wei.
func (p PropertyInfo) RentWei() (*big.Int, error) {
	return p.word(propertyInfoRentIndex)
}

// SharesSold returns how many of the TotalShares shares are reserved.
func (p PropertyInfo) SharesSold() (int, error) {
	w, err := p.word(propertyInfoSharesSoldIndex)
	if err != nil {
		return 0, err
	}
	return int(w.Int64()), nil
}

func (p PropertyInfo) word(i int) (*big.Int, error) {
	if i >= len(p.words) {
		return nil, fmt.Errorf("property info tuple has %d fields, wanted index %d", len(p.words), i)
	}
	return p.words[i], nil
}

// Gateway wraps the contract's read and payable methods.
type Gateway struct {
	rpc      *jsonrpc.Client
	contract string
	wallet   *wallet.Connector
	log      *logger.Logger

	pollInterval   time.Duration
	confirmTimeout time.Duration
}

// New creates a gateway for the contract at the given address.
func New(rpc *jsonrpc.Client, contract string, connector *wallet.Connector, log *logger.Logger) *Gateway {
	if log == nil {
		log = logger.NewDefault("chain")
	}
	return &Gateway{
		rpc:            rpc,
		contract:       contract,
		wallet:         connector,
		log:            log,
		pollInterval:   2 * time.Second,
		confirmTimeout: 2 * time.Minute,
	}
}

// SharePriceWei reads the price of a single share in wei.
func (g *Gateway) SharePriceWei(ctx context.Context, propertyID int64) (*big.Int, error) {
	words, err := g.call(ctx, callData(sigGetSharePrice, big.NewInt(propertyID)))
	if err != nil {
		return nil, err
	}
	if len(words) == 0 {
		return nil, errors.Chain("empty share price result", nil)
	}
	return words[0], nil
}

// SharePrice reads the share price converted to coin units for display.
func (g *Gateway) SharePrice(ctx context.Context, propertyID int64) (decimal.Decimal, error) {
	wei, err := g.SharePriceWei(ctx, propertyID)
	if err != nil {
		return decimal.Zero, err
	}
	return WeiToCoin(wei), nil
}

// PropertyInfo reads the property tuple.
func (g *Gateway) PropertyInfo(ctx context.Context, propertyID int64) (PropertyInfo, error) {
	words, err := g.call(ctx, callData(sigGetPropertyInfo, big.NewInt(propertyID)))
	if err != nil {
		return PropertyInfo{}, err
	}
	return PropertyInfo{words: words}, nil
}

// SharesSold reads how many shares of the property are already reserved.
func (g *Gateway) SharesSold(ctx context.Context, propertyID int64) (int, error) {
	info, err := g.PropertyInfo(ctx, propertyID)
	if err != nil {
		return 0, err
	}
	sold, err := info.SharesSold()
	if err != nil {
		return 0, errors.Chain("parse property info", err)
	}
	return sold, nil
}

// ReserveShares submits the payable reservation, paying sharePrice*count,
// and waits for on-chain confirmation.
func (g *Gateway) ReserveShares(ctx context.Context, propertyID int64, count int) (Receipt, error) {
	account, provider, err := g.connected()
	if err != nil {
		return Receipt{}, err
	}

	price, err := g.SharePriceWei(ctx, propertyID)
	if err != nil {
		return Receipt{}, err
	}
	value := new(big.Int).Mul(price, big.NewInt(int64(count)))

	return g.submit(ctx, provider, wallet.Transaction{
		From:  account.Address,
		To:    g.contract,
		Value: value,
		Data:  callData(sigReserveShares, big.NewInt(propertyID), big.NewInt(int64(count))),
		Gas:   gasLimit,
	})
}

// DistributeRent submits the payable rent distribution, paying the
// on-chain recorded rent amount. The proportional fan-out to funding
// participants happens inside the contract.
func (g *Gateway) DistributeRent(ctx context.Context, propertyID int64) (Receipt, error) {
	account, provider, err := g.connected()
	if err != nil {
		return Receipt{}, err
	}

	info, err := g.PropertyInfo(ctx, propertyID)
	if err != nil {
		return Receipt{}, err
	}
	rentWei, err := info.RentWei()
	if err != nil {
		return Receipt{}, errors.Chain("parse property info", err)
	}

	return g.submit(ctx, provider, wallet.Transaction{
		From:  account.Address,
		To:    g.contract,
		Value: rentWei,
		Data:  callData(sigDistributeRent, big.NewInt(propertyID)),
		Gas:   gasLimit,
	})
}

func (g *Gateway) connected() (wallet.Account, wallet.Provider, error) {
	account, ok := g.wallet.Account()
	if !ok {
		return wallet.Account{}, nil, errors.Wallet("wallet is not connected")
	}
	provider, ok := g.wallet.Provider()
	if !ok {
		return wallet.Account{}, nil, errors.Wallet("wallet is not connected")
	}
	return account, provider, nil
}

func (g *Gateway) call(ctx context.Context, data []byte) ([]*big.Int, error) {
	if g.rpc == nil {
		return nil, errors.Wallet("chain provider not found")
	}
	params := []interface{}{
		map[string]string{
			"to":   g.contract,
			"data": "0x" + hex.EncodeToString(data),
		},
		"latest",
	}
	var result string
	if err := g.rpc.Call(ctx, "eth_call", params, &result); err != nil {
		return nil, errors.Chain("contract call failed", err)
	}
	words, err := parseWords(result)
	if err != nil {
		return nil, errors.Chain("decode contract result", err)
	}
	return words, nil
}

func (g *Gateway) submit(ctx context.Context, provider wallet.Provider, tx wallet.Transaction) (Receipt, error) {
	hash, err := provider.SendTransaction(ctx, tx)
	if err != nil {
		var rpcErr *jsonrpc.RPCError
		if stderrors.As(err, &rpcErr) && rpcErr.Code == jsonrpc.CodeUserRejected {
			return Receipt{}, errors.Wallet("transaction rejected by user")
		}
		return Receipt{}, errors.Chain("submit transaction", err)
	}

	g.log.WithField("tx", hash).Debug("transaction submitted, awaiting confirmation")
	return g.awaitReceipt(ctx, hash)
}

func (g *Gateway) awaitReceipt(ctx context.Context, hash string) (Receipt, error) {
	deadline := time.Now().Add(g.confirmTimeout)
	ticker := time.NewTicker(g.pollInterval)
	defer ticker.Stop()

	for {
		var raw struct {
			BlockNumber string `json:"blockNumber"`
			GasUsed     string `json:"gasUsed"`
			Status      string `json:"status"`
		}
		err := g.rpc.Call(ctx, "eth_getTransactionReceipt", []interface{}{hash}, &raw)
		if err == nil && raw.Status != "" {
			block, _ := parseHexUint(raw.BlockNumber)
			gasUsed, _ := parseHexUint(raw.GasUsed)
			receipt := Receipt{
				TxHash:      hash,
				BlockNumber: block,
				GasUsed:     gasUsed,
				Succeeded:   raw.Status == "0x1",
			}
			if !receipt.Succeeded {
				return receipt, errors.Chain(fmt.Sprintf("transaction %s reverted", hash), nil)
			}
			return receipt, nil
		}
		if err != nil {
			g.log.WithError(err).Debug("receipt poll failed, retrying")
		}

		if time.Now().After(deadline) {
			return Receipt{}, errors.Chain(fmt.Sprintf("timed out waiting for transaction %s", hash), nil)
		}
		select {
		case <-ctx.Done():
			return Receipt{}, errors.Chain("confirmation cancelled", ctx.Err())
		case <-ticker.C:
		}
	}
}

func parseHexUint(raw string) (uint64, error) {
	trimmed := strings.TrimPrefix(raw, "0x")
	if trimmed == "" {
		return 0, nil
	}
	v, ok := new(big.Int).SetString(trimmed, 16)
	if !ok {
		return 0, fmt.Errorf("invalid hex quantity %q", raw)
	}
	return v.Uint64(), nil
}
