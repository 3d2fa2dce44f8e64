package session

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mrz1836/coinfund/internal/chain"
	"github.com/mrz1836/coinfund/internal/metrics"
	"github.com/mrz1836/coinfund/internal/output"
	"github.com/mrz1836/coinfund/internal/provider"
	cferr "github.com/mrz1836/coinfund/pkg/errors"
)

// Listener receives each published session. A nil session means no
// account is connected.
type Listener func(*Session)

type nopLog struct{}

func (nopLog) Debug(string, ...any) {}
func (nopLog) Error(string, ...any) {}

// Option configures a Store.
type Option func(*Store)

// WithNotifier sets where "connect your wallet" notices go.
func WithNotifier(n output.Notifier) Option {
	return func(s *Store) { s.notifier = n }
}

// WithLogger sets the log sink.
func WithLogger(l provider.LogWriter) Option {
	return func(s *Store) { s.log = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// Store holds the current session.
type Store struct {
	req      provider.Requester
	notifier output.Notifier
	log      provider.LogWriter
	metrics  *metrics.Metrics
	newID    func() (string, error)

	mu        sync.Mutex
	current   *Session
	gen       uint64 // bumped by every reset
	seq       uint64 // last refresh started
	published uint64 // seq of the refresh that produced current
	closed    bool

	nextListener int
	listeners    map[int]Listener
	pending      []*Session
	delivering   bool
}

// NewStore creates an empty store reading from req.
func NewStore(req provider.Requester, opts ...Option) *Store {
	s := &Store{
		req:       req,
		notifier:  output.Discard,
		log:       nopLog{},
		metrics:   metrics.Global,
		newID:     newConnectionID,
		listeners: map[int]Listener{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Current returns a copy of the current session, or nil.
func (s *Store) Current() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone()
}

// Subscribe registers l and returns a function that removes it. The
// returned function may be called any number of times.
func (s *Store) Subscribe(l Listener) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return func() {}
	}
	s.nextListener++
	id := s.nextListener
	s.listeners[id] = l

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// Refresh reads accounts, chain and balance from the provider and
// publishes the result.
//
// With no accounts the session is reset, a connect notice is shown and
// ErrNoAccountConnected is returned. Any provider failure returns
// ErrRPCFailure and publishes nothing. If the store was reset or a newer
// refresh finished while this one was in flight, the result is dropped
// and ErrSuperseded is returned.
func (s *Store) Refresh(ctx context.Context) (*Session, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	s.seq++
	seq, gen := s.seq, s.gen
	s.mu.Unlock()

	accounts, err := provider.Accounts(ctx, s.req)
	if err != nil {
		return nil, rpcFailure(err, "reading accounts")
	}

	if len(accounts) == 0 {
		return nil, s.noAccount(gen)
	}
	account := accounts[0]

	chainID, err := provider.ChainID(ctx, s.req)
	if err != nil {
		return nil, rpcFailure(err, "reading chain id")
	}
	balance, err := provider.Balance(ctx, s.req, account)
	if err != nil {
		return nil, rpcFailure(err, "reading balance")
	}

	return s.commit(seq, gen, account, chainID, balance)
}

// Reset clears the session. Refreshes already in flight will not publish.
func (s *Store) Reset() {
	s.mu.Lock()
	s.gen++
	if s.closed || s.current == nil {
		s.mu.Unlock()
		return
	}
	s.current = nil
	s.pending = append(s.pending, nil)
	s.mu.Unlock()

	s.metrics.RecordSessionReset()
	s.log.Debug("session reset")
	s.deliver()
}

// Close disposes the store. Later completions are ignored and listeners
// are dropped.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.gen++
	s.listeners = map[int]Listener{}
	s.pending = nil
}

func (s *Store) noAccount(gen uint64) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	hadSession := s.current != nil && gen == s.gen
	if hadSession {
		s.gen++
		s.current = nil
		s.pending = append(s.pending, nil)
	}
	s.mu.Unlock()

	if hadSession {
		s.metrics.RecordSessionReset()
		s.deliver()
	}
	s.notifier.Notify(output.LevelInfo, NoticeConnectWallet)
	return cferr.ErrNoAccountConnected
}

func (s *Store) commit(seq, gen uint64, account common.Address, chainID, balance *big.Int) (*Session, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	if gen != s.gen || seq < s.published {
		s.mu.Unlock()
		s.log.Debug("session refresh %d dropped (gen %d, current gen %d)", seq, gen, s.gen)
		return nil, ErrSuperseded
	}

	id := ""
	if s.current != nil && s.current.Account == account {
		id = s.current.ConnectionID
	}
	if id == "" {
		var err error
		if id, err = s.newID(); err != nil {
			s.mu.Unlock()
			return nil, err
		}
	}

	next := &Session{
		Account:      account,
		Balance:      chain.FormatEther(balance),
		BalanceWei:   balance,
		ChainID:      chainID,
		Network:      chain.NetworkName(chainID),
		ConnectionID: id,
	}
	s.current = next
	s.published = seq
	s.pending = append(s.pending, next.Clone())
	s.mu.Unlock()

	s.metrics.RecordSessionRefresh()
	s.log.Debug("session %s: %s on %s, balance %s", id, account.Hex(), next.Network, next.Balance)
	s.deliver()
	return next.Clone(), nil
}

// deliver drains the pending queue to listeners. Sessions are queued in
// the same critical section that changes current, so listeners see them
// in the order the store took them. Only one goroutine delivers at a
// time; a change made meanwhile (including from inside a listener) is
// picked up by the loop already running.
func (s *Store) deliver() {
	s.mu.Lock()
	if s.closed || s.delivering {
		s.mu.Unlock()
		return
	}
	s.delivering = true

	for len(s.pending) > 0 {
		next := s.pending[0]
		s.pending = s.pending[1:]
		ls := make([]Listener, 0, len(s.listeners))
		for id := 1; id <= s.nextListener; id++ {
			if l, ok := s.listeners[id]; ok {
				ls = append(ls, l)
			}
		}
		s.mu.Unlock()

		for _, l := range ls {
			l(next.Clone())
		}

		s.mu.Lock()
	}
	s.delivering = false
	s.mu.Unlock()
}

func rpcFailure(err error, what string) error {
	if errors.Is(err, cferr.ErrRPCFailure) {
		return cferr.Wrap(err, "%s", what)
	}
	return cferr.Wrap(cferr.WithCause(cferr.ErrRPCFailure, err), "%s", what)
}
