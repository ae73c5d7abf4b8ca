package chain

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
)

func TestWeiToCoin(t *testing.T) {
	oneCoin := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	if got := WeiToCoin(oneCoin); !got.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("1e18 wei = %s coin", got)
	}
	if got := WeiToCoin(big.NewInt(500_000_000_000_000_000)); !got.Equal(decimal.RequireFromString("0.5")) {
		t.Fatalf("5e17 wei = %s coin", got)
	}
	if got := WeiToCoin(nil); !got.IsZero() {
		t.Fatalf("nil wei = %s", got)
	}
}

func TestCoinToWei(t *testing.T) {
	oneCoin := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	if got := CoinToWei(decimal.NewFromInt(1)); got.Cmp(oneCoin) != 0 {
		t.Fatalf("1 coin = %s wei", got)
	}
	if got := CoinToWei(decimal.RequireFromString("0.5")); got.Cmp(big.NewInt(500_000_000_000_000_000)) != 0 {
		t.Fatalf("0.5 coin = %s wei", got)
	}
}

func TestWeiCoinRoundTrip(t *testing.T) {
	amounts := []string{"0", "1", "0.000000000000000001", "1234.56789"}
	for _, raw := range amounts {
		coin := decimal.RequireFromString(raw)
		if got := WeiToCoin(CoinToWei(coin)); !got.Equal(coin) {
			t.Fatalf("round trip of %s = %s", raw, got)
		}
	}
}
