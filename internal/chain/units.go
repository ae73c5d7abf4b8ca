package chain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// weiDecimals is the native unit scale of the chain (1 coin = 1e18 wei).
const weiDecimals = 18

// WeiToCoin converts a wei amount to its human decimal representation.
func WeiToCoin(wei *big.Int) decimal.Decimal {
	if wei == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(wei, -weiDecimals)
}

// CoinToWei converts a human decimal amount to wei, truncating any
// precision beyond 18 decimals.
func CoinToWei(coin decimal.Decimal) *big.Int {
	return coin.Shift(weiDecimals).BigInt()
}
