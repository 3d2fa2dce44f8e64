package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/coinfund/internal/chain"
	"github.com/mrz1836/coinfund/internal/config"
	"github.com/mrz1836/coinfund/internal/provider"
	"github.com/mrz1836/coinfund/internal/wallet"
	cferr "github.com/mrz1836/coinfund/pkg/errors"
)

const devMnemonic = "test test test test test test test test test test test junk"

var nodeAccount = common.HexToAddress("0x90F79bf6EB2c4f870365E785982E1f101E93b906")

// nodeServer answers eth_accounts like a node with one unlocked account.
func nodeServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
		}
		_ = json.Unmarshal(body, &req)

		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		if req.Method == "eth_accounts" {
			resp["result"] = []common.Address{nodeAccount}
		} else {
			resp["error"] = map[string]any{"code": -32601, "message": "method not found"}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testEnv(t *testing.T) Environment {
	t.Helper()
	cfg := config.Defaults()
	cfg.Home = t.TempDir()
	cfg.Wallet.Keystore = filepath.Join(cfg.Home, "keystore.age")
	cfg.Network.RPC = "http://127.0.0.1:8545"
	cfg.Wallet.Networks = nil
	return Environment{Config: cfg}
}

func TestDiscover_None(t *testing.T) {
	t.Parallel()
	env := testEnv(t)
	env.Config.Wallet.Mode = config.WalletModeNone

	found, cleanup, err := Discover(context.Background(), env)
	require.NoError(t, err)
	defer cleanup()
	assert.Nil(t, found)
}

func TestDiscover_LocalWithoutKeystore(t *testing.T) {
	t.Parallel()
	env := testEnv(t)

	found, cleanup, err := Discover(context.Background(), env)
	require.NoError(t, err)
	defer cleanup()
	assert.Nil(t, found)
}

func TestDiscover_LocalWithKeystore(t *testing.T) {
	t.Parallel()
	env := testEnv(t)
	ks := wallet.NewKeystore(env.Config.GetKeystorePath()).WithWorkFactor(10)
	require.NoError(t, ks.Create(devMnemonic, []byte("hunter22")))
	env.Password = func() ([]byte, error) { return []byte("hunter22"), nil }

	found, cleanup, err := Discover(context.Background(), env)
	require.NoError(t, err)
	defer cleanup()

	w, ok := found.(*wallet.Wallet)
	require.True(t, ok)
	assert.True(t, w.IsWallet())

	accounts, err := provider.Accounts(context.Background(), w)
	require.NoError(t, err)
	assert.Empty(t, accounts, "nothing is exposed before connect")
}

func TestDiscover_Node(t *testing.T) {
	t.Parallel()
	env := testEnv(t)
	env.Config.Wallet.Mode = config.WalletModeNode
	env.Config.Wallet.Endpoint = nodeServer(t).URL

	found, cleanup, err := Discover(context.Background(), env)
	require.NoError(t, err)
	defer cleanup()

	p, ok := found.(*provider.RPC)
	require.True(t, ok)
	assert.True(t, p.IsWallet())

	accounts, err := provider.Accounts(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, []common.Address{nodeAccount}, accounts)
}

func TestDiscover_NodeBadEndpoint(t *testing.T) {
	t.Parallel()
	env := testEnv(t)
	env.Config.Wallet.Mode = config.WalletModeNode
	env.Config.Wallet.Endpoint = "ftp://nowhere"

	_, cleanup, err := Discover(context.Background(), env)
	defer cleanup()
	require.ErrorIs(t, err, cferr.ErrRPCFailure)
}

func TestDialNetworks_RequiredFirst(t *testing.T) {
	t.Parallel()
	env := testEnv(t)
	env.Config.Wallet.Networks = map[string]string{
		"31337": "http://127.0.0.1:8545",
		"1":     "http://127.0.0.1:8546",
		"1337":  "http://127.0.0.1:8547",
	}

	networks, cleanup, err := dialNetworks(context.Background(), env)
	require.NoError(t, err)
	defer cleanup()

	var ids []int64
	for _, n := range networks {
		ids = append(ids, n.ChainID.Int64())
	}
	assert.Equal(t, []int64{chain.Sepolia, chain.Mainnet, chain.Dev, chain.Anvil}, ids)

	env.Config.Wallet.Networks = map[string]string{"sepolia?": "http://127.0.0.1:8545"}
	_, cleanup, err = dialNetworks(context.Background(), env)
	defer cleanup()
	require.ErrorIs(t, err, cferr.ErrConfigInvalid)
}
