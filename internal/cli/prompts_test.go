package cli

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/coinfund/internal/chain"
	"github.com/mrz1836/coinfund/internal/provider"
	"github.com/mrz1836/coinfund/internal/wallet"
	cferr "github.com/mrz1836/coinfund/pkg/errors"
)

// withMockPrompts replaces the interactive prompts for one test. Passwords
// are answered in order.
func withMockPrompts(t *testing.T, passwords []string, mnemonic string) {
	t.Helper()

	origPassword, origNew, origConfirm, origMnemonic := promptPasswordFn, promptNewPasswordFn, promptConfirmFn, promptMnemonicFn
	t.Cleanup(func() {
		promptPasswordFn = origPassword
		promptNewPasswordFn = origNew
		promptConfirmFn = origConfirm
		promptMnemonicFn = origMnemonic
	})

	next := 0
	promptPasswordFn = func(string) ([]byte, error) {
		if next >= len(passwords) {
			return nil, cferr.ErrInvalidInput
		}
		p := passwords[next]
		next++
		return []byte(p), nil
	}
	promptNewPasswordFn = promptNewPassword
	promptConfirmFn = func(string) bool { return false }
	promptMnemonicFn = func() (string, error) { return mnemonic, nil }
}

//nolint:paralleltest // mutates prompt hooks
func TestPromptNewPassword(t *testing.T) {
	tests := []struct {
		name      string
		passwords []string
		want      string
		wantErr   bool
	}{
		{"matching", []string{"long enough", "long enough"}, "long enough", false},
		{"too short", []string{"short"}, "", true},
		{"mismatch", []string{"long enough", "different!"}, "", true},
		{"read failure", nil, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withMockPrompts(t, tt.passwords, "")

			got, err := promptNewPassword()
			if tt.wantErr {
				require.ErrorIs(t, err, cferr.ErrInvalidInput)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

//nolint:paralleltest // mutates prompt hooks
func TestApprover(t *testing.T) {
	withMockPrompts(t, nil, "")

	var asked []string
	promptConfirmFn = func(q string) bool {
		asked = append(asked, q)
		return true
	}

	req := wallet.ApprovalRequest{Kind: wallet.ApproveConnect, Account: alice}
	assert.True(t, approver(true)(context.Background(), req))
	assert.Empty(t, asked)

	assert.True(t, approver(false)(context.Background(), req))
	assert.Equal(t, []string{"Connect account " + alice.Hex() + " to coinfund?"}, asked)
}

func TestDescribeApproval(t *testing.T) {
	t.Parallel()

	sepolia := big.NewInt(chain.Sepolia)
	value := hexutil.Big(*big.NewInt(500_000_000_000_000_000))

	tests := []struct {
		name string
		req  wallet.ApprovalRequest
		want string
	}{
		{
			"switch",
			wallet.ApprovalRequest{Kind: wallet.ApproveSwitch, ChainID: sepolia},
			"Switch wallet to sepolia (chain 11155111)?",
		},
		{
			"sign transfer",
			wallet.ApprovalRequest{
				Kind: wallet.ApproveSign, Account: alice, ChainID: sepolia,
				Tx: &provider.TxRequest{From: alice, To: &campAddr, Value: &value},
			},
			"Send 0.5 ETH from " + alice.Hex() + " to " + campAddr.Hex() + " on sepolia?",
		},
		{
			"sign deployment",
			wallet.ApprovalRequest{
				Kind: wallet.ApproveSign, Account: alice, ChainID: sepolia,
				Tx: &provider.TxRequest{From: alice},
			},
			"Send 0 ETH from " + alice.Hex() + " to a new contract on sepolia?",
		},
		{
			"sign without details",
			wallet.ApprovalRequest{Kind: wallet.ApproveSign, Account: alice},
			"Sign a transaction from " + alice.Hex() + "?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, describeApproval(tt.req))
		})
	}
}

func TestZeroBytes(t *testing.T) {
	t.Parallel()
	b := []byte("secret")
	zeroBytes(b)
	assert.Equal(t, make([]byte, 6), b)
}
