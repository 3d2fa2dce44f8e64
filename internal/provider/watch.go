package provider

import (
	"context"
	"slices"
	"time"

	"github.com/mrz1836/coinfund/internal/chain"
)

// Watch polls eth_accounts and eth_chainId every interval and emits
// AccountsChanged/ChainChanged when either differs from the previous poll.
// The first poll only records a baseline. Failed polls are logged and
// skipped. Watch returns when ctx is done.
func (r *RPC) Watch(ctx context.Context, interval time.Duration) error {
	w := &watcher{req: r, emit: r.Emit, log: r.log}
	return w.run(ctx, interval)
}

type watcher struct {
	req  Requester
	emit func(Event)
	log  LogWriter

	primed   bool
	accounts []string
	chainID  string
}

func (w *watcher) run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *watcher) poll(ctx context.Context) {
	accounts, err := Accounts(ctx, w.req)
	if err != nil {
		w.log.Debug("watch: eth_accounts failed: %v", err)
		return
	}
	id, err := ChainID(ctx, w.req)
	if err != nil {
		w.log.Debug("watch: eth_chainId failed: %v", err)
		return
	}

	keys := make([]string, len(accounts))
	for i, a := range accounts {
		keys[i] = a.Hex()
	}
	idKey := chain.EncodeChainID(id)

	if !w.primed {
		w.primed = true
		w.accounts, w.chainID = keys, idKey
		return
	}

	if !slices.Equal(keys, w.accounts) {
		w.accounts = keys
		w.emit(Event{Kind: AccountsChanged, Accounts: accounts})
	}
	if idKey != w.chainID {
		w.chainID = idKey
		w.emit(Event{Kind: ChainChanged, ChainID: id})
	}
}
