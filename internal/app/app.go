// Package app wires wallet detection, the session, the network guard,
// event handling and the transaction submitter into one controller that
// the CLI drives.
package app

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mrz1836/coinfund/internal/campaign"
	"github.com/mrz1836/coinfund/internal/chain"
	"github.com/mrz1836/coinfund/internal/config"
	"github.com/mrz1836/coinfund/internal/events"
	"github.com/mrz1836/coinfund/internal/metrics"
	"github.com/mrz1836/coinfund/internal/network"
	"github.com/mrz1836/coinfund/internal/output"
	"github.com/mrz1836/coinfund/internal/provider"
	"github.com/mrz1836/coinfund/internal/session"
	"github.com/mrz1836/coinfund/internal/txn"
	"github.com/mrz1836/coinfund/internal/wallet"
	cferr "github.com/mrz1836/coinfund/pkg/errors"
)

// Options configures an App. Only Config is required.
type Options struct {
	Config   *config.Config
	Notifier output.Notifier
	Logger   provider.LogWriter
	Metrics  *metrics.Metrics

	// Password unlocks the local keystore when keys are first needed.
	Password func() ([]byte, error)
	// Approve confirms local wallet actions.
	Approve wallet.Approver

	// Lookup replaces wallet discovery.
	Lookup func() any
	// Reads replaces the fallback read-only endpoint used without a wallet.
	Reads provider.Requester
}

// App is the wallet connectivity and transaction controller.
type App struct {
	cfg      *config.Config
	notifier output.Notifier
	log      provider.LogWriter
	metrics  *metrics.Metrics

	detector  *provider.Detector
	wallet    provider.Provider
	reads     provider.Requester
	store     *session.Store
	guard     *network.Guard
	detach    events.DetachFunc
	submitter *txn.Submitter
	reader    *campaign.Reader
	writer    *campaign.Writer

	cleanup []func()
}

type nopLog struct{}

func (nopLog) Debug(string, ...any) {}
func (nopLog) Error(string, ...any) {}

// New detects the wallet and builds the controller. Detection happens
// exactly once, here. Without a wallet the App still serves campaign
// reads through the fallback endpoint.
func New(ctx context.Context, opts Options) (*App, error) {
	if opts.Config == nil {
		opts.Config = config.Defaults()
	}
	if opts.Notifier == nil {
		opts.Notifier = output.Discard
	}
	if opts.Logger == nil {
		opts.Logger = nopLog{}
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Global
	}
	cfg := opts.Config

	factory, err := campaign.ParseAddress("network.factory_address", cfg.GetFactoryAddress())
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:      cfg,
		notifier: opts.Notifier,
		log:      opts.Logger,
		metrics:  opts.Metrics,
	}

	env := Environment{
		Config:   cfg,
		Password: opts.Password,
		Approve:  opts.Approve,
		Logger:   opts.Logger,
		Metrics:  opts.Metrics,
		Limiter:  chain.NewRateLimiter(cfg.Network.RatePerSecond, cfg.Network.RateBurst),
	}

	lookup := opts.Lookup
	var discoverErr error
	if lookup == nil {
		lookup = func() any {
			found, cleanup, err := Discover(ctx, env)
			a.cleanup = append(a.cleanup, cleanup)
			if err != nil {
				discoverErr = err
				return nil
			}
			return found
		}
	}

	a.detector = provider.NewDetector(lookup, opts.Notifier)
	capability := a.detector.Detect()
	if discoverErr != nil {
		a.Close()
		return nil, discoverErr
	}
	a.log.Debug("wallet capability: %s", capability)

	if p, ok := a.detector.Provider(); ok {
		a.wallet = p
		a.reads = p
	} else {
		a.reads = opts.Reads
		if a.reads == nil {
			fallback, err := provider.DialRPC(ctx, cfg.GetRPC(), env.rpcOptions()...)
			if err != nil {
				a.Close()
				return nil, err
			}
			a.cleanup = append(a.cleanup, fallback.Close)
			a.reads = fallback
		}
	}

	a.store = session.NewStore(a.reads,
		session.WithNotifier(opts.Notifier),
		session.WithLogger(opts.Logger),
		session.WithMetrics(opts.Metrics))
	a.guard = network.NewGuard(a.reads, big.NewInt(cfg.GetRequiredChainID()),
		network.WithNotifier(opts.Notifier),
		network.WithLogger(opts.Logger),
		network.WithMetrics(opts.Metrics))
	a.submitter = txn.NewSubmitter(a.guard, a.store,
		txn.WithNotifier(opts.Notifier),
		txn.WithLogger(opts.Logger),
		txn.WithMetrics(opts.Metrics))
	a.reader = campaign.NewReader(a.reads, factory)

	if a.wallet != nil {
		a.writer = campaign.NewWriter(a.wallet, factory,
			campaign.WithPollInterval(cfg.GetReceiptPollInterval()),
			campaign.WithTimeout(cfg.GetTxTimeout()),
			campaign.WithWriterLogger(opts.Logger))

		onAccounts, onChain := events.SessionHandlers(a.store, a.guard, opts.Logger)
		a.detach = events.NewSubscriber(a.wallet,
			events.WithLogger(opts.Logger),
			events.WithMetrics(opts.Metrics)).Attach(ctx, onAccounts, onChain)
	}

	return a, nil
}

// Start loads the session from an already connected wallet and checks its
// network. A wallet with no exposed account is not an error.
func (a *App) Start(ctx context.Context) error {
	if a.wallet == nil {
		return nil
	}

	s, err := a.refresh(ctx)
	switch {
	case errors.Is(err, cferr.ErrNoAccountConnected):
		return nil
	case err != nil:
		return err
	}

	if err := a.guard.EnsureNetwork(ctx, s.ChainID); err != nil {
		a.log.Error("network check on start: %v", err)
	}
	a.settle()
	return nil
}

// Connect asks the wallet for account access, loads the session and
// checks the network. The session is returned even when the network check
// fails.
func (a *App) Connect(ctx context.Context) (*session.Session, error) {
	if a.wallet == nil {
		return nil, cferr.ErrProviderUnavailable
	}

	if _, err := provider.RequestAccounts(ctx, a.wallet); err != nil {
		if provider.IsUserRejected(err) {
			return nil, cferr.WithCause(cferr.ErrNoAccountConnected, err)
		}
		if !errors.Is(err, cferr.ErrRPCFailure) {
			err = cferr.WithCause(cferr.ErrRPCFailure, err)
		}
		return nil, cferr.Wrap(err, "requesting accounts")
	}

	s, err := a.refresh(ctx)
	if err != nil {
		return nil, err
	}
	guardErr := a.guard.EnsureNetwork(ctx, s.ChainID)
	a.settle()

	if current := a.store.Current(); current != nil {
		s = current
	}
	return s, guardErr
}

// refresh loads the session. When a wallet event refreshed the store
// while this refresh was in flight, the session the event handler
// settled on is used instead.
func (a *App) refresh(ctx context.Context) (*session.Session, error) {
	s, err := a.store.Refresh(ctx)
	if !errors.Is(err, session.ErrSuperseded) {
		return s, err
	}
	a.settle()
	if s = a.store.Current(); s == nil {
		return nil, cferr.ErrNoAccountConnected
	}
	return s, nil
}

// settle waits until every wallet event emitted so far has been handled.
func (a *App) settle() {
	if d, ok := a.wallet.(interface{ Drain() }); ok {
		d.Drain()
	}
}

// Capability reports whether a wallet was found.
func (a *App) Capability() provider.Capability {
	return a.detector.Capability()
}

// Session returns the current session, or nil.
func (a *App) Session() *session.Session {
	return a.store.Current()
}

// Subscribe registers l for session changes.
func (a *App) Subscribe(l session.Listener) (unsubscribe func()) {
	return a.store.Subscribe(l)
}

// Network returns the network guard status.
func (a *App) Network() network.Status {
	return a.guard.Status()
}

// Factory returns the campaign factory address.
func (a *App) Factory() common.Address {
	return a.reader.Factory()
}

// LocalWallet returns the local HD wallet when that is the detected provider.
func (a *App) LocalWallet() (*wallet.Wallet, bool) {
	w, ok := a.wallet.(*wallet.Wallet)
	return w, ok
}

// Watch keeps the session live until ctx ends. Node wallets are polled
// for account and chain changes; other wallets push events on their own.
func (a *App) Watch(ctx context.Context) error {
	if a.wallet == nil {
		return cferr.ErrProviderUnavailable
	}
	if rpc, ok := a.wallet.(*provider.RPC); ok {
		return rpc.Watch(ctx, a.cfg.GetWatchInterval())
	}
	<-ctx.Done()
	return ctx.Err()
}

// Close detaches the event listeners and disposes the session and the
// submitter. Transactions still in flight are not cancelled, but their
// results no longer change any state.
func (a *App) Close() {
	if a.detach != nil {
		a.detach()
	}
	if a.submitter != nil {
		a.submitter.Close()
	}
	if a.store != nil {
		a.store.Close()
	}
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		a.cleanup[i]()
	}
	a.cleanup = nil
}
