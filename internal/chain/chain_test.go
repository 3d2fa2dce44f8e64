package chain_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/coinfund/internal/chain"
)

func TestNetworkName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "sepolia", chain.NetworkName(big.NewInt(chain.Sepolia)))
	assert.Equal(t, "rinkeby", chain.NetworkName(big.NewInt(chain.Rinkeby)))
	assert.Equal(t, "chain-99", chain.NetworkName(big.NewInt(99)))
	assert.Equal(t, "unknown", chain.NetworkName(nil))
}

func TestParseChainID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  int64
	}{
		{"11155111", chain.Sepolia},
		{"0xaa36a7", chain.Sepolia},
		{"sepolia", chain.Sepolia},
		{" Rinkeby ", chain.Rinkeby},
		{"0x1", chain.Mainnet},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			got, err := chain.ParseChainID(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Int64())
		})
	}

	for _, bad := range []string{"", "0", "-3", "0xzz", "nowhere"} {
		_, err := chain.ParseChainID(bad)
		assert.Error(t, err, bad)
	}
}

func TestEncodeChainID(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "0x4", chain.EncodeChainID(big.NewInt(4)))
	assert.Equal(t, "0xaa36a7", chain.EncodeChainID(big.NewInt(chain.Sepolia)))
	assert.Equal(t, "0x0", chain.EncodeChainID(nil))
}

func TestSameChain(t *testing.T) {
	t.Parallel()

	assert.True(t, chain.SameChain(big.NewInt(4), big.NewInt(4)))
	assert.False(t, chain.SameChain(big.NewInt(4), big.NewInt(5)))
	assert.False(t, chain.SameChain(nil, big.NewInt(5)))
}
