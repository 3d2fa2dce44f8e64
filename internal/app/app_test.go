package app_test

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/coinfund/internal/app"
	"github.com/mrz1836/coinfund/internal/approval"
	"github.com/mrz1836/coinfund/internal/campaign"
	"github.com/mrz1836/coinfund/internal/chain"
	"github.com/mrz1836/coinfund/internal/config"
	"github.com/mrz1836/coinfund/internal/metrics"
	"github.com/mrz1836/coinfund/internal/network"
	"github.com/mrz1836/coinfund/internal/output"
	"github.com/mrz1836/coinfund/internal/provider"
	"github.com/mrz1836/coinfund/internal/provider/providertest"
	"github.com/mrz1836/coinfund/internal/session"
	"github.com/mrz1836/coinfund/internal/txn"
	cferr "github.com/mrz1836/coinfund/pkg/errors"
)

const campaignHex = "0x5FbDB2315678afecb367f032d93F642f64180aa3"

var (
	alice    = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	bob      = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	campAddr = common.HexToAddress(campaignHex)
	txHash   = common.HexToHash("0x1234")
)

type fixture struct {
	fake  *providertest.Fake
	notes *output.Recorder
	app   *app.App
}

func newConfig() *config.Config {
	cfg := config.Defaults()
	cfg.TX.ReceiptPollMS = 1
	return cfg
}

func newFixture(t *testing.T, fake *providertest.Fake) *fixture {
	t.Helper()

	f := &fixture{fake: fake, notes: &output.Recorder{}}
	a, err := app.New(context.Background(), app.Options{
		Config:   newConfig(),
		Notifier: f.notes,
		Metrics:  &metrics.Metrics{},
		Lookup:   func() any { return fake },
	})
	require.NoError(t, err)
	t.Cleanup(a.Close)
	f.app = a
	return f
}

func connectedWallet(chainID int64) *providertest.Fake {
	fake := providertest.New(chainID)
	fake.SetAccounts(alice)
	fake.SetBalance(alice, big.NewInt(3_000_000_000_000_000_000))
	return fake
}

// scriptMined makes every eth_sendTransaction succeed and be mined at once.
func scriptMined(fake *providertest.Fake, status uint64) {
	fake.Handle("eth_sendTransaction", func(context.Context, []any) (any, error) {
		return txHash, nil
	})
	fake.Handle("eth_getTransactionReceipt", func(context.Context, []any) (any, error) {
		return &types.Receipt{Status: status, TxHash: txHash, Logs: []*types.Log{}}, nil
	})
}

// scriptCalls answers eth_call by method name with the given outputs.
func scriptCalls(fake *providertest.Fake, results func(method string, args []any) []any) {
	fake.Handle("eth_call", func(_ context.Context, params []any) (any, error) {
		msg := params[0].(provider.CallMsg) //nolint:forcetypeassert // test fake
		contractABI := campaign.CampaignABI
		if _, err := contractABI.MethodById(msg.Data[:4]); err != nil {
			contractABI = campaign.FactoryABI
		}
		method, err := contractABI.MethodById(msg.Data[:4])
		if err != nil {
			return nil, err
		}
		args, err := method.Inputs.Unpack(msg.Data[4:])
		if err != nil {
			return nil, err
		}
		packed, err := method.Outputs.Pack(results(method.Name, args)...)
		if err != nil {
			return nil, err
		}
		return hexutil.Bytes(packed), nil
	})
}

func TestNew_WithoutWallet(t *testing.T) {
	t.Parallel()

	reads := providertest.New(chain.Sepolia)
	reads.SetWallet(false)
	scriptCalls(reads, func(method string, _ []any) []any {
		switch method {
		case "getDeployedCampaigns":
			return []any{[]common.Address{campAddr}}
		case "campaignDescription":
			return []any{"Build a bike"}
		}
		return nil
	})

	notes := &output.Recorder{}
	a, err := app.New(context.Background(), app.Options{
		Config:   newConfig(),
		Notifier: notes,
		Metrics:  &metrics.Metrics{},
		Lookup:   func() any { return nil },
		Reads:    reads,
	})
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, provider.Unavailable, a.Capability())
	assert.Equal(t, []string{provider.NoticeInstallWallet}, notes.Messages(output.LevelInfo))
	require.NoError(t, a.Start(context.Background()))
	assert.Nil(t, a.Session())

	_, err = a.Connect(context.Background())
	require.ErrorIs(t, err, cferr.ErrProviderUnavailable)
	_, err = a.Contribute(context.Background(), campaignHex, "1")
	require.ErrorIs(t, err, cferr.ErrProviderUnavailable)
	require.ErrorIs(t, a.Watch(context.Background()), cferr.ErrProviderUnavailable)

	listings, err := a.Campaigns(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []campaign.Listing{{Address: campAddr, Description: "Build a bike"}}, listings)
	assert.Zero(t, reads.Count("eth_accounts"), "no wallet queries without a wallet")
}

func TestNew_InvalidFactory(t *testing.T) {
	t.Parallel()

	cfg := newConfig()
	cfg.Network.FactoryAddress = "0x1234"
	_, err := app.New(context.Background(), app.Options{Config: cfg, Lookup: func() any { return nil }})
	require.ErrorIs(t, err, cferr.ErrInvalidAddress)
}

func TestStart(t *testing.T) {
	t.Parallel()

	t.Run("connected", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, connectedWallet(chain.Sepolia))

		require.NoError(t, f.app.Start(context.Background()))
		require.NotNil(t, f.app.Session())
		assert.Equal(t, alice, f.app.Session().Account)
		assert.Equal(t, network.Matched, f.app.Network().State)
	})

	t.Run("not connected", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, providertest.New(chain.Sepolia))

		require.NoError(t, f.app.Start(context.Background()))
		assert.Nil(t, f.app.Session())
		assert.Equal(t, []string{session.NoticeConnectWallet}, f.notes.Messages(output.LevelInfo))
		assert.Equal(t, network.Unknown, f.app.Network().State)
	})

	t.Run("rpc failure", func(t *testing.T) {
		t.Parallel()
		fake := connectedWallet(chain.Sepolia)
		fake.Fail("eth_chainId", cferr.ErrRPCFailure)
		f := newFixture(t, fake)

		require.ErrorIs(t, f.app.Start(context.Background()), cferr.ErrRPCFailure)
	})
}

func TestConnect_OnRequiredChain(t *testing.T) {
	t.Parallel()
	f := newFixture(t, connectedWallet(chain.Sepolia))

	s, err := f.app.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, alice, s.Account)
	assert.Equal(t, "3", s.Balance)
	assert.Equal(t, network.Matched, f.app.Network().State)
	assert.Equal(t, 1, f.fake.Count("eth_requestAccounts"))
	assert.Zero(t, f.fake.Count("wallet_switchEthereumChain"))
	assert.Equal(t, provider.Available, f.app.Capability())
}

func TestConnect_SwitchAccepted(t *testing.T) {
	t.Parallel()

	fake := connectedWallet(chain.Mainnet)
	fake.Handle("wallet_switchEthereumChain", func(context.Context, []any) (any, error) {
		fake.EmitChain(chain.Sepolia)
		return nil, nil
	})
	f := newFixture(t, fake)

	s, err := f.app.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, chain.Sepolia, s.ChainID.Int64())
	assert.Equal(t, network.Matched, f.app.Network().State)
	assert.Equal(t, 1, fake.Count("wallet_switchEthereumChain"))
}

func TestConnect_SwitchRefusedBlocksTransactions(t *testing.T) {
	t.Parallel()

	fake := connectedWallet(chain.Mainnet)
	fake.Reject("wallet_switchEthereumChain", provider.CodeUserRejected)
	scriptMined(fake, types.ReceiptStatusSuccessful)
	f := newFixture(t, fake)

	s, err := f.app.Connect(context.Background())
	require.ErrorIs(t, err, cferr.ErrNetworkMismatch)
	require.NotNil(t, s, "session is loaded even on the wrong network")
	assert.Equal(t, network.Blocked, f.app.Network().State)
	assert.Len(t, f.notes.Messages(output.LevelWarn), 1)

	_, err = f.app.Contribute(context.Background(), campaignHex, "0.1")
	require.ErrorIs(t, err, cferr.ErrNetworkMismatch)
	assert.Zero(t, fake.Count("eth_sendTransaction"))
	assert.Equal(t, 1, fake.Count("wallet_switchEthereumChain"))
}

func TestConnect_WalletEmitsOnGrant(t *testing.T) {
	t.Parallel()

	for range 5 {
		fake := connectedWallet(chain.Sepolia)
		fake.SetEmitOnGrant(true)

		// The first balance read waits for the other refresh to publish,
		// so the event-driven refresh and Connect's own refresh overlap.
		published := make(chan struct{})
		var pubOnce, balOnce sync.Once
		fake.Handle("eth_getBalance", func(ctx context.Context, params []any) (any, error) {
			first := false
			balOnce.Do(func() { first = true })
			if first {
				select {
				case <-published:
				case <-time.After(time.Second):
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			}
			addr, _ := params[0].(common.Address)
			return (*hexutil.Big)(fake.BalanceOf(addr)), nil
		})
		f := newFixture(t, fake)
		f.app.Subscribe(func(s *session.Session) {
			if s != nil {
				pubOnce.Do(func() { close(published) })
			}
		})

		s, err := f.app.Connect(context.Background())
		require.NoError(t, err)
		assert.Equal(t, alice, s.Account)
		assert.Equal(t, "3", s.Balance)
		require.NotNil(t, f.app.Session())
		assert.Equal(t, s.ConnectionID, f.app.Session().ConnectionID)
		assert.Equal(t, network.Matched, f.app.Network().State)
	}
}

func TestConnect_UserRejected(t *testing.T) {
	t.Parallel()

	fake := connectedWallet(chain.Sepolia)
	fake.Reject("eth_requestAccounts", provider.CodeUserRejected)
	f := newFixture(t, fake)

	_, err := f.app.Connect(context.Background())
	require.ErrorIs(t, err, cferr.ErrNoAccountConnected)
	assert.True(t, provider.IsUserRejected(err))
	assert.Nil(t, f.app.Session())
}

func TestContribute_RefreshesSessionOnce(t *testing.T) {
	t.Parallel()

	fake := connectedWallet(chain.Sepolia)
	scriptMined(fake, types.ReceiptStatusSuccessful)
	f := newFixture(t, fake)

	_, err := f.app.Connect(context.Background())
	require.NoError(t, err)
	before := fake.Count("eth_getBalance")

	outcome, err := f.app.Contribute(context.Background(), campaignHex, "0.5")
	require.NoError(t, err)
	assert.Equal(t, txn.StatusSucceeded, outcome.Status)
	assert.Equal(t, txHash, outcome.TxHash)
	assert.Equal(t, before+1, fake.Count("eth_getBalance"))

	sent := fake.Calls("eth_sendTransaction")
	require.Len(t, sent, 1)
	tx := sent[0].Params[0].(provider.TxRequest) //nolint:forcetypeassert // test fake
	assert.Equal(t, alice, tx.From)
	assert.Equal(t, campAddr, *tx.To)
	assert.Equal(t, "0.5", chain.FormatEther(tx.Value.ToInt()))

	last, ok := f.app.Last(txn.Contribute)
	require.True(t, ok)
	assert.Equal(t, txn.StatusSucceeded, last.Outcome.Status)
	assert.Equal(t, []string{txn.Contribute.SuccessMessage()}, f.notes.Messages(output.LevelSuccess))
}

func TestActions_NoRefreshForApprove(t *testing.T) {
	t.Parallel()

	fake := connectedWallet(chain.Sepolia)
	scriptMined(fake, types.ReceiptStatusSuccessful)
	f := newFixture(t, fake)

	_, err := f.app.Connect(context.Background())
	require.NoError(t, err)
	before := fake.Count("eth_getBalance")

	_, err = f.app.ApproveRequest(context.Background(), campaignHex, 0)
	require.NoError(t, err)
	_, err = f.app.CreateRequest(context.Background(), campaignHex, "wheels", "1", bob.Hex())
	require.NoError(t, err)
	_, err = f.app.CreateCampaign(context.Background(), "0.01", "Build a bike")
	require.NoError(t, err)
	assert.Equal(t, before, fake.Count("eth_getBalance"))

	_, err = f.app.FinalizeRequest(context.Background(), campaignHex, 0)
	require.NoError(t, err)
	assert.Equal(t, before+1, fake.Count("eth_getBalance"))
}

func TestActions_Reverted(t *testing.T) {
	t.Parallel()

	fake := connectedWallet(chain.Sepolia)
	scriptMined(fake, types.ReceiptStatusFailed)
	f := newFixture(t, fake)

	_, err := f.app.Connect(context.Background())
	require.NoError(t, err)

	outcome, err := f.app.Contribute(context.Background(), campaignHex, "0.5")
	require.ErrorIs(t, err, cferr.ErrTransactionRejected)
	assert.Equal(t, txn.StatusFailed, outcome.Status)
	assert.Contains(t, outcome.Reason, "transaction reverted")
	assert.Len(t, f.notes.Messages(output.LevelError), 1)
}

func TestActions_InputValidation(t *testing.T) {
	t.Parallel()
	f := newFixture(t, connectedWallet(chain.Sepolia))
	ctx := context.Background()

	_, err := f.app.Contribute(ctx, "not-an-address", "1")
	require.ErrorIs(t, err, cferr.ErrInvalidAddress)
	_, err = f.app.Contribute(ctx, campaignHex, "1.2.3")
	require.ErrorIs(t, err, cferr.ErrInvalidAmount)
	_, err = f.app.Contribute(ctx, campaignHex, "0")
	require.ErrorIs(t, err, cferr.ErrInvalidAmount)
	_, err = f.app.Contribute(ctx, campaignHex, "0.0000000000000000001")
	require.ErrorIs(t, err, cferr.ErrInvalidAmount)
	_, err = f.app.CreateRequest(ctx, campaignHex, "wheels", "1", "0x12")
	require.ErrorIs(t, err, cferr.ErrInvalidAddress)
	_, err = f.app.CreateCampaign(ctx, "-1", "bike")
	require.ErrorIs(t, err, cferr.ErrInvalidAmount)
	_, err = f.app.Requests(ctx, "0x")
	require.ErrorIs(t, err, cferr.ErrInvalidAddress)
}

func TestRequests_View(t *testing.T) {
	t.Parallel()

	fake := connectedWallet(chain.Sepolia)
	reqs := []approval.Request{
		{Description: "wheels", Amount: big.NewInt(10), Recipient: bob, ApprovalCount: big.NewInt(2), Complete: true},
		{Description: "frame", Amount: big.NewInt(20), Recipient: bob, ApprovalCount: big.NewInt(2)},
		{Description: "paint", Amount: big.NewInt(30), Recipient: bob, ApprovalCount: big.NewInt(1)},
	}
	scriptCalls(fake, func(method string, args []any) []any {
		switch method {
		case "numRequests":
			return []any{big.NewInt(int64(len(reqs)))}
		case "contributorCount":
			return []any{big.NewInt(3)}
		case "requests":
			r := reqs[args[0].(*big.Int).Int64()] //nolint:forcetypeassert // test fake
			return []any{r.Description, r.Amount, r.Recipient, r.ApprovalCount, r.Complete}
		}
		return nil
	})
	f := newFixture(t, fake)

	view, err := f.app.Requests(context.Background(), campaignHex)
	require.NoError(t, err)
	require.Len(t, view.Requests, 3)
	assert.Equal(t, campAddr, view.Campaign)

	var got []string
	for _, r := range view.Requests {
		got = append(got, r.Description+":"+r.Status.String()+":"+r.Progress)
	}
	assert.Equal(t, []string{"wheels:completed:2/3", "frame:approved:2/3", "paint:unapproved:1/3"}, got)
}

func TestEvents_KeepSessionLive(t *testing.T) {
	t.Parallel()

	fake := connectedWallet(chain.Sepolia)
	f := newFixture(t, fake)
	_, err := f.app.Connect(context.Background())
	require.NoError(t, err)

	var seen []*session.Session
	unsubscribe := f.app.Subscribe(func(s *session.Session) { seen = append(seen, s) })
	defer unsubscribe()

	fake.SetBalance(bob, big.NewInt(1))
	fake.EmitAccounts(bob)
	fake.Drain()
	fake.EmitAccounts()
	fake.Drain()

	require.Len(t, seen, 2)
	assert.Equal(t, bob, seen[0].Account)
	assert.Nil(t, seen[1])
	assert.Nil(t, f.app.Session())
}

func TestClose_DetachesListeners(t *testing.T) {
	t.Parallel()

	fake := connectedWallet(chain.Sepolia)
	f := newFixture(t, fake)
	assert.Equal(t, 1, fake.ListenerCount(provider.AccountsChanged))
	assert.Equal(t, 1, fake.ListenerCount(provider.ChainChanged))

	f.app.Close()
	assert.Zero(t, fake.ListenerCount(provider.AccountsChanged))
	assert.Zero(t, fake.ListenerCount(provider.ChainChanged))

	_, err := f.app.Contribute(context.Background(), campaignHex, "1")
	require.ErrorIs(t, err, txn.ErrClosed)
}

func TestWatch_PushWalletBlocksUntilDone(t *testing.T) {
	t.Parallel()
	f := newFixture(t, connectedWallet(chain.Sepolia))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, f.app.Watch(ctx), context.Canceled)
}
