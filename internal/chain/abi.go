package chain

import (
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/sha3"
)

const wordBytes = 32

// selector computes the 4-byte ABI method selector for a signature.
func selector(signature string) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(signature))
	return h.Sum(nil)[:4]
}

// encodeUint256 left-pads v into a 32-byte ABI word.
func encodeUint256(v *big.Int) []byte {
	word := make([]byte, wordBytes)
	v.FillBytes(word)
	return word
}

// callData builds the calldata for a method taking uint256 arguments.
func callData(signature string, args ...*big.Int) []byte {
	data := selector(signature)
	for _, arg := range args {
		data = append(data, encodeUint256(arg)...)
	}
	return data
}

// parseWords splits a hex-encoded eth_call result into 32-byte words,
// each interpreted as an unsigned integer.
func parseWords(result string) ([]*big.Int, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(result), "0x")
	if len(trimmed)%(wordBytes*2) != 0 {
		return nil, fmt.Errorf("result length %d is not word-aligned", len(trimmed))
	}
	words := make([]*big.Int, 0, len(trimmed)/(wordBytes*2))
	for i := 0; i < len(trimmed); i += wordBytes * 2 {
		word, ok := new(big.Int).SetString(trimmed[i:i+wordBytes*2], 16)
		if !ok {
			return nil, fmt.Errorf("invalid word at offset %d", i)
		}
		words = append(words, word)
	}
	return words, nil
}
