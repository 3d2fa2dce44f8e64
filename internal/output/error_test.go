package output_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/coinfund/internal/output"
	cferr "github.com/mrz1836/coinfund/pkg/errors"
)

var errNode = errors.New("execution reverted: only manager")

func TestFormatError_Nil(t *testing.T) {
	t.Parallel()
	for _, f := range []output.Format{output.FormatJSON, output.FormatText} {
		var buf bytes.Buffer
		require.NoError(t, output.FormatError(&buf, nil, f))
		assert.Empty(t, buf.String())
	}
}

func TestFormatError_Text(t *testing.T) {
	t.Parallel()

	err := cferr.WithDetails(cferr.ErrNetworkMismatch, map[string]string{
		"required": "sepolia",
		"active":   "mainnet",
	})

	var buf bytes.Buffer
	require.NoError(t, output.FormatError(&buf, err, output.FormatText))

	expected := "Error: wallet is connected to the wrong network\n" +
		"\nDetails:\n" +
		"  active: mainnet\n" +
		"  required: sepolia\n" +
		"\nSuggestion: switch your wallet to the required network\n"
	assert.Equal(t, expected, buf.String())
}

func TestFormatError_TextWithCause(t *testing.T) {
	t.Parallel()

	err := cferr.Wrap(cferr.WithCause(cferr.ErrTransactionRejected, errNode), "finalize request 2")

	var buf bytes.Buffer
	require.NoError(t, output.FormatError(&buf, err, output.FormatText))

	assert.Contains(t, buf.String(), "Error: finalize request 2: transaction rejected\n")
	assert.Contains(t, buf.String(), "Reason: execution reverted: only manager\n")
}

func TestFormatError_JSON(t *testing.T) {
	t.Parallel()

	err := cferr.WithCause(cferr.ErrRPCFailure, errNode)

	var buf bytes.Buffer
	require.NoError(t, output.FormatError(&buf, err, output.FormatJSON))

	var result output.ErrorOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &result))
	assert.Equal(t, "RPC_FAILURE", result.Error.Code)
	assert.Equal(t, "network communication failed", result.Error.Message)
	assert.Equal(t, errNode.Error(), result.Error.Cause)
	assert.Equal(t, cferr.ExitGeneral, result.Error.ExitCode)
	assert.NotContains(t, buf.String(), `"details"`)
}

func TestFormatError_SentinelHasNoCause(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, output.FormatError(&buf, cferr.Wrap(cferr.ErrNoAccountConnected, "contribute"), output.FormatJSON))

	var result output.ErrorOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &result))
	assert.Equal(t, "NO_ACCOUNT_CONNECTED", result.Error.Code)
	assert.Empty(t, result.Error.Cause)
	assert.Equal(t, cferr.ExitWallet, result.Error.ExitCode)
	assert.Contains(t, result.Error.Suggestion, "coinfund connect")
}

func TestFormatError_Generic(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, output.FormatError(&buf, errNode, output.FormatJSON))

	var result output.ErrorOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &result))
	assert.Equal(t, "GENERAL_ERROR", result.Error.Code)
	assert.Equal(t, errNode.Error(), result.Error.Message)

	buf.Reset()
	require.NoError(t, output.FormatError(&buf, errNode, output.FormatText))
	assert.Equal(t, "Error: execution reverted: only manager\n", buf.String())
}

func TestFormatSuccess(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, output.FormatSuccess(&buf, "contribution sent", output.FormatJSON))
	var result map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &result))
	assert.Equal(t, "success", result["status"])

	buf.Reset()
	require.NoError(t, output.FormatSuccess(&buf, "contribution sent", output.FormatText))
	assert.Equal(t, "contribution sent\n", buf.String())
}
