// Package chain provides network identity helpers and common utilities
// shared by the wallet, session and campaign packages: exact ether/wei
// conversion, retry with backoff, and per-endpoint rate limiting.
package chain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Well-known EVM chain identifiers.
const (
	Mainnet int64 = 1
	Rinkeby int64 = 4
	Goerli  int64 = 5
	Holesky int64 = 17000
	Sepolia int64 = 11155111
	Dev     int64 = 1337
	Anvil   int64 = 31337
)

//nolint:gochecknoglobals // Lookup table of well-known network names
var networkNames = map[int64]string{
	Mainnet: "mainnet",
	Rinkeby: "rinkeby",
	Goerli:  "goerli",
	Holesky: "holesky",
	Sepolia: "sepolia",
	Dev:     "private",
	Anvil:   "anvil",
}

// NetworkName returns a human-readable name for a chain ID.
// Unknown chains are rendered as "chain-<id>".
func NetworkName(id *big.Int) string {
	if id == nil {
		return "unknown"
	}
	if id.IsInt64() {
		if name, ok := networkNames[id.Int64()]; ok {
			return name
		}
	}
	return "chain-" + id.String()
}

// ParseChainID parses a chain identifier given either as a decimal string
// ("11155111"), a 0x-prefixed hex quantity ("0xaa36a7"), or a known network name.
func ParseChainID(s string) (*big.Int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return nil, fmt.Errorf("empty chain id")
	}

	for id, name := range networkNames {
		if name == s {
			return big.NewInt(id), nil
		}
	}

	if strings.HasPrefix(s, "0x") {
		id, err := hexutil.DecodeBig(s)
		if err != nil {
			return nil, fmt.Errorf("parsing chain id %q: %w", s, err)
		}
		return id, nil
	}

	id, ok := new(big.Int).SetString(s, 10)
	if !ok || id.Sign() <= 0 {
		return nil, fmt.Errorf("invalid chain id %q", s)
	}
	return id, nil
}

// EncodeChainID returns the 0x-prefixed hex quantity wallets expect for chain IDs.
func EncodeChainID(id *big.Int) string {
	if id == nil {
		return "0x0"
	}
	return hexutil.EncodeBig(id)
}

// SameChain reports whether both chain IDs are set and equal.
func SameChain(a, b *big.Int) bool {
	if a == nil || b == nil {
		return false
	}
	return a.Cmp(b) == 0
}
