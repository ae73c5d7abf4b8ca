package chain

import (
	"bytes"
	"math/big"
	"strings"
	"testing"
)

func TestSelectorIsFourBytesAndStable(t *testing.T) {
	a := selector("reserveShares(uint256,uint256)")
	b := selector("reserveShares(uint256,uint256)")
	c := selector("distributeRent(uint256)")

	if len(a) != 4 {
		t.Fatalf("selector length = %d", len(a))
	}
	if !bytes.Equal(a, b) {
		t.Fatal("selector must be deterministic")
	}
	if bytes.Equal(a, c) {
		t.Fatal("different signatures must not collide")
	}
}

func TestEncodeUint256LeftPads(t *testing.T) {
	word := encodeUint256(big.NewInt(5))
	if len(word) != 32 {
		t.Fatalf("word length = %d", len(word))
	}
	for i := 0; i < 31; i++ {
		if word[i] != 0 {
			t.Fatalf("byte %d = %x, want zero padding", i, word[i])
		}
	}
	if word[31] != 5 {
		t.Fatalf("last byte = %x", word[31])
	}
}

func TestCallDataLayout(t *testing.T) {
	data := callData(sigReserveShares, big.NewInt(7), big.NewInt(4))
	if len(data) != 4+32+32 {
		t.Fatalf("calldata length = %d", len(data))
	}
	if !bytes.Equal(data[:4], selector(sigReserveShares)) {
		t.Fatal("calldata must start with the selector")
	}
	if got := new(big.Int).SetBytes(data[4:36]); got.Int64() != 7 {
		t.Fatalf("first arg = %s", got)
	}
	if got := new(big.Int).SetBytes(data[36:68]); got.Int64() != 4 {
		t.Fatalf("second arg = %s", got)
	}
}

func TestParseWords(t *testing.T) {
	one := strings.Repeat("0", 63) + "1"
	twenty := strings.Repeat("0", 62) + "14"

	words, err := parseWords("0x" + one + twenty)
	if err != nil {
		t.Fatalf("parseWords: %v", err)
	}
	if len(words) != 2 {
		t.Fatalf("want 2 words, got %d", len(words))
	}
	if words[0].Int64() != 1 || words[1].Int64() != 20 {
		t.Fatalf("words = %v", words)
	}

	if _, err := parseWords("0x1234"); err == nil {
		t.Fatal("unaligned result must error")
	}
	if _, err := parseWords("0x" + strings.Repeat("zz", 32)); err == nil {
		t.Fatal("non-hex word must error")
	}
}

func TestPropertyInfoTupleIndices(t *testing.T) {
	words := make([]*big.Int, 8)
	for i := range words {
		words[i] = big.NewInt(int64(i * 100))
	}
	words[propertyInfoRentIndex] = big.NewInt(1_500_000)
	words[propertyInfoSharesSoldIndex] = big.NewInt(12)
	info := PropertyInfo{words: words}

	rent, err := info.RentWei()
	if err != nil {
		t.Fatalf("RentWei: %v", err)
	}
	if rent.Int64() != 1_500_000 {
		t.Fatalf("rent = %s", rent)
	}
	sold, err := info.SharesSold()
	if err != nil {
		t.Fatalf("SharesSold: %v", err)
	}
	if sold != 12 {
		t.Fatalf("sold = %d", sold)
	}

	short := PropertyInfo{words: words[:3]}
	if _, err := short.RentWei(); err == nil {
		t.Fatal("short tuple must error")
	}
}

func TestParseHexUint(t *testing.T) {
	cases := map[string]uint64{
		"0x0":    0,
		"0x1":    1,
		"0x1a4":  420,
		"":       0,
		"0x":     0,
		"5f5e10": 6250000,
	}
	for in, want := range cases {
		got, err := parseHexUint(in)
		if err != nil {
			t.Fatalf("parseHexUint(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("parseHexUint(%q) = %d, want %d", in, got, want)
		}
	}
	if _, err := parseHexUint("0xzz"); err == nil {
		t.Fatal("invalid hex must error")
	}
}
