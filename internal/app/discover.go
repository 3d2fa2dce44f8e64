package app

import (
	"context"
	"math/big"
	"sort"

	"github.com/mrz1836/coinfund/internal/chain"
	"github.com/mrz1836/coinfund/internal/config"
	"github.com/mrz1836/coinfund/internal/metrics"
	"github.com/mrz1836/coinfund/internal/provider"
	"github.com/mrz1836/coinfund/internal/wallet"
	cferr "github.com/mrz1836/coinfund/pkg/errors"
)

// Environment is what wallet discovery needs to build a provider.
type Environment struct {
	Config   *config.Config
	Password func() ([]byte, error)
	Approve  wallet.Approver
	Logger   provider.LogWriter
	Metrics  *metrics.Metrics
	Limiter  *chain.RateLimiter
}

// Discover returns the wallet object for the configured wallet mode, or
// nil when the mode offers none: "local" opens the encrypted keystore if
// it exists, "node" dials the wallet endpoint as a node wallet and "none"
// never finds one. The returned cleanup closes any dialed clients.
func Discover(ctx context.Context, env Environment) (any, func(), error) {
	cfg := env.Config
	switch cfg.Wallet.Mode {
	case config.WalletModeNone:
		return nil, func() {}, nil

	case config.WalletModeNode:
		p, err := provider.DialRPC(ctx, cfg.Wallet.Endpoint, append(env.rpcOptions(), provider.AsWallet())...)
		if err != nil {
			return nil, func() {}, err
		}
		return p, p.Close, nil

	default:
		ks := wallet.NewKeystore(cfg.GetKeystorePath())
		if !ks.Exists() {
			return nil, func() {}, nil
		}
		networks, cleanup, err := dialNetworks(ctx, env)
		if err != nil {
			return nil, cleanup, err
		}
		w, err := wallet.Open(wallet.Config{
			Keystore:  ks,
			StatePath: wallet.StatePath(ks.Path()),
			Accounts:  cfg.Wallet.Accounts,
			Networks:  networks,
			Password:  env.Password,
			Approve:   env.Approve,
			Logger:    env.Logger,
		})
		if err != nil {
			return nil, cleanup, err
		}
		return w, func() { w.Close(); cleanup() }, nil
	}
}

// dialNetworks connects to every configured wallet network. The required
// chain comes first so a fresh wallet starts on it; when no network serves
// the required chain, the fallback RPC endpoint is used for it.
func dialNetworks(ctx context.Context, env Environment) ([]wallet.Network, func(), error) {
	cfg := env.Config
	required := big.NewInt(cfg.GetRequiredChainID())

	endpoints := map[string]string{}
	for id, url := range cfg.Wallet.Networks {
		chainID, err := chain.ParseChainID(id)
		if err != nil {
			return nil, func() {}, cferr.WithDetails(cferr.ErrConfigInvalid, map[string]string{"key": "wallet.networks." + id})
		}
		endpoints[chainID.String()] = url
	}
	if _, ok := endpoints[required.String()]; !ok && cfg.GetRPC() != "" {
		endpoints[required.String()] = cfg.GetRPC()
	}

	ids := make([]*big.Int, 0, len(endpoints))
	for id := range endpoints {
		n, _ := new(big.Int).SetString(id, 10)
		ids = append(ids, n)
	}
	sort.Slice(ids, func(i, j int) bool {
		ri, rj := chain.SameChain(ids[i], required), chain.SameChain(ids[j], required)
		if ri != rj {
			return ri
		}
		return ids[i].Cmp(ids[j]) < 0
	})

	var clients []*provider.RPC
	cleanup := func() {
		for _, c := range clients {
			c.Close()
		}
	}

	networks := make([]wallet.Network, 0, len(ids))
	for _, id := range ids {
		c, err := provider.DialRPC(ctx, endpoints[id.String()], env.rpcOptions()...)
		if err != nil {
			cleanup()
			return nil, func() {}, err
		}
		clients = append(clients, c)
		networks = append(networks, wallet.Network{ChainID: id, Upstream: c})
	}
	return networks, cleanup, nil
}

func (env Environment) rpcOptions() []provider.RPCOption {
	var opts []provider.RPCOption
	if env.Limiter != nil {
		opts = append(opts, provider.WithRateLimiter(env.Limiter))
	}
	if env.Metrics != nil {
		opts = append(opts, provider.WithMetrics(env.Metrics))
	}
	if env.Logger != nil {
		opts = append(opts, provider.WithLogger(env.Logger))
	}
	return opts
}
