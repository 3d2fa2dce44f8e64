// Package events keeps the session in step with the wallet by listening
// for accountsChanged and chainChanged.
package events

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mrz1836/coinfund/internal/metrics"
	"github.com/mrz1836/coinfund/internal/network"
	"github.com/mrz1836/coinfund/internal/provider"
	"github.com/mrz1836/coinfund/internal/session"
)

// AccountsHandler handles accountsChanged.
type AccountsHandler func(ctx context.Context, accounts []common.Address)

// ChainHandler handles chainChanged.
type ChainHandler func(ctx context.Context, chainID *big.Int)

// DetachFunc removes the listeners added by one Attach. It is idempotent
// and does nothing once a later Attach has replaced them.
type DetachFunc func()

// Option configures a Subscriber.
type Option func(*Subscriber)

// WithLogger sets the log sink.
func WithLogger(l provider.LogWriter) Option {
	return func(s *Subscriber) { s.log = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Subscriber) { s.metrics = m }
}

// Subscriber owns at most one listener per event kind on a provider.
type Subscriber struct {
	src     provider.EventSource
	log     provider.LogWriter
	metrics *metrics.Metrics

	mu         sync.Mutex
	generation uint64
	attached   bool
	accountsID provider.ListenerID
	chainID    provider.ListenerID
}

type nopLog struct{}

func (nopLog) Debug(string, ...any) {}
func (nopLog) Error(string, ...any) {}

// NewSubscriber creates a subscriber for src.
func NewSubscriber(src provider.EventSource, opts ...Option) *Subscriber {
	s := &Subscriber{src: src, log: nopLog{}, metrics: metrics.Global}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Attach registers one listener per event kind, replacing whatever an
// earlier Attach registered. Handlers receive ctx.
func (s *Subscriber) Attach(ctx context.Context, onAccounts AccountsHandler, onChain ChainHandler) DetachFunc {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeLocked()

	s.generation++
	gen := s.generation
	s.attached = true
	s.accountsID = s.src.On(provider.AccountsChanged, func(ev provider.Event) {
		s.metrics.RecordProviderEvent()
		s.log.Debug("accountsChanged: %d account(s)", len(ev.Accounts))
		onAccounts(ctx, ev.Accounts)
	})
	s.chainID = s.src.On(provider.ChainChanged, func(ev provider.Event) {
		s.metrics.RecordProviderEvent()
		s.log.Debug("chainChanged: %s", ev.ChainID)
		onChain(ctx, ev.ChainID)
	})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.generation != gen {
			return
		}
		s.removeLocked()
	}
}

// Attached reports whether listeners are registered.
func (s *Subscriber) Attached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attached
}

func (s *Subscriber) removeLocked() {
	if !s.attached {
		return
	}
	s.src.RemoveListener(provider.AccountsChanged, s.accountsID)
	s.src.RemoveListener(provider.ChainChanged, s.chainID)
	s.attached = false
}

// SessionStore is the part of session.Store the handlers drive.
type SessionStore interface {
	Refresh(ctx context.Context) (*session.Session, error)
	Reset()
}

// NetworkGuard is the part of network.Guard the handlers drive.
type NetworkGuard interface {
	EnsureNetwork(ctx context.Context, current *big.Int) error
}

var (
	_ SessionStore = (*session.Store)(nil)
	_ NetworkGuard = (*network.Guard)(nil)
)

// SessionHandlers returns the standard handlers. An empty accountsChanged
// resets the session without querying the wallet; a non-empty one
// refreshes it. chainChanged refreshes the session and, once that is
// done, checks the new chain with the guard.
func SessionHandlers(store SessionStore, guard NetworkGuard, log provider.LogWriter) (AccountsHandler, ChainHandler) {
	if log == nil {
		log = nopLog{}
	}

	onAccounts := func(ctx context.Context, accounts []common.Address) {
		if len(accounts) == 0 {
			store.Reset()
			return
		}
		if _, err := store.Refresh(ctx); err != nil && !ignorable(err) {
			log.Error("refreshing session after accountsChanged: %v", err)
		}
	}

	onChain := func(ctx context.Context, _ *big.Int) {
		s, err := store.Refresh(ctx)
		if err != nil {
			if !ignorable(err) {
				log.Error("refreshing session after chainChanged: %v", err)
			}
			return
		}
		if err := guard.EnsureNetwork(ctx, s.ChainID); err != nil {
			log.Error("checking network after chainChanged: %v", err)
		}
	}

	return onAccounts, onChain
}

func ignorable(err error) bool {
	return errors.Is(err, session.ErrSuperseded) || errors.Is(err, session.ErrClosed)
}
