package errors_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cferr "github.com/mrz1836/coinfund/pkg/errors"
)

var (
	errInner = errors.New("inner")
	errPlain = errors.New("plain error")
)

func TestExitCodes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"success", nil, cferr.ExitSuccess},
		{"general error", cferr.ErrGeneral, cferr.ExitGeneral},
		{"input error", cferr.ErrInvalidInput, cferr.ExitInput},
		{"provider unavailable", cferr.ErrProviderUnavailable, cferr.ExitWallet},
		{"no account", cferr.ErrNoAccountConnected, cferr.ExitWallet},
		{"network mismatch", cferr.ErrNetworkMismatch, cferr.ExitWallet},
		{"tx rejected", cferr.ErrTransactionRejected, cferr.ExitRejected},
		{"rpc failure", cferr.ErrRPCFailure, cferr.ExitGeneral},
		{"plain error", errPlain, cferr.ExitGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, cferr.ExitCode(tt.err))
		})
	}
}

func TestWrapPreservesIdentity(t *testing.T) {
	t.Parallel()

	wrapped := cferr.Wrap(cferr.ErrNetworkMismatch, "contribute")
	require.ErrorIs(t, wrapped, cferr.ErrNetworkMismatch)
	assert.Equal(t, cferr.ExitWallet, cferr.ExitCode(wrapped))
	assert.Equal(t, "contribute: wallet is connected to the wrong network", wrapped.Error())
}

func TestWrapPlainError(t *testing.T) {
	t.Parallel()

	wrapped := cferr.Wrap(errInner, "loading %s", "summary")
	require.ErrorIs(t, wrapped, errInner)
	assert.Equal(t, "GENERAL_ERROR", cferr.Code(wrapped))
	assert.Equal(t, "loading summary: inner", wrapped.Error())
}

func TestWrapNil(t *testing.T) {
	t.Parallel()
	assert.NoError(t, cferr.Wrap(nil, "nothing"))
	assert.NoError(t, cferr.WithDetails(nil, map[string]string{"a": "b"}))
	assert.NoError(t, cferr.WithSuggestion(nil, "try again"))
}

func TestWithCause(t *testing.T) {
	t.Parallel()

	err := cferr.WithCause(cferr.ErrRPCFailure, errInner)
	require.ErrorIs(t, err, cferr.ErrRPCFailure)
	require.ErrorIs(t, err, errInner)
	assert.Equal(t, "network communication failed: inner", err.Error())
}

func TestWithDetailsSorted(t *testing.T) {
	t.Parallel()

	err := cferr.WithDetails(cferr.ErrInvalidAddress, map[string]string{
		"field":   "recipient",
		"address": "0x123",
	})
	require.ErrorIs(t, err, cferr.ErrInvalidAddress)
	assert.Equal(t, "invalid address format (address: 0x123) (field: recipient)", err.Error())
}

func TestWithSuggestion(t *testing.T) {
	t.Parallel()

	err := cferr.WithSuggestion(cferr.ErrSlotBusy, "wait a moment")
	var ce *cferr.CoinfundError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "wait a moment", ce.Suggestion)
	assert.Equal(t, "ACTION_PENDING", ce.Code)

	plain := cferr.WithSuggestion(errPlain, "check logs")
	require.ErrorAs(t, plain, &ce)
	assert.Equal(t, "GENERAL_ERROR", ce.Code)
	assert.Equal(t, "check logs", ce.Suggestion)
}

func TestSentinelsDistinct(t *testing.T) {
	t.Parallel()

	assert.NotErrorIs(t, cferr.ErrRPCFailure, cferr.ErrTransactionRejected)
	assert.NotErrorIs(t, cferr.ErrNoAccountConnected, cferr.ErrProviderUnavailable)
	assert.ErrorIs(t, cferr.New("NETWORK_MISMATCH", "other text"), cferr.ErrNetworkMismatch)
}
