package txn

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/mrz1836/coinfund/internal/metrics"
	"github.com/mrz1836/coinfund/internal/output"
	"github.com/mrz1836/coinfund/internal/provider"
	"github.com/mrz1836/coinfund/internal/session"
	cferr "github.com/mrz1836/coinfund/pkg/errors"
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("transaction submitter closed")

// Status is the lifecycle state of a pending transaction.
type Status string

// Transaction statuses.
const (
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Outcome is how a submission resolved.
type Outcome struct {
	Status Status      `json:"status"`
	Reason string      `json:"reason,omitempty"`
	TxHash common.Hash `json:"tx_hash,omitzero"`
}

// PendingTransaction tracks one submission.
type PendingTransaction struct {
	ID          string         `json:"id"`
	Kind        Kind           `json:"kind"`
	Slot        Slot           `json:"slot"`
	From        common.Address `json:"from"`
	SubmittedAt time.Time      `json:"submitted_at"`
	CompletedAt time.Time      `json:"completed_at,omitzero"`
	Outcome     Outcome        `json:"outcome"`
}

// Call sends the contract transaction from the given account and returns
// once it is mined.
type Call func(ctx context.Context, from common.Address) (common.Hash, error)

// Gate decides whether contract calls are allowed.
type Gate interface {
	Permit() error
}

// SessionSource supplies the connected account and is refreshed after
// balance-changing transactions.
type SessionSource interface {
	Current() *session.Session
	Refresh(ctx context.Context) (*session.Session, error)
}

// Option configures a Submitter.
type Option func(*Submitter)

// WithNotifier sets where progress notices go.
func WithNotifier(n output.Notifier) Option {
	return func(s *Submitter) { s.notifier = n }
}

// WithLogger sets the log sink.
func WithLogger(l provider.LogWriter) Option {
	return func(s *Submitter) { s.log = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Submitter) { s.metrics = m }
}

// Submitter runs transactions one per slot.
type Submitter struct {
	gate     Gate
	sessions SessionSource
	notifier output.Notifier
	log      provider.LogWriter
	metrics  *metrics.Metrics
	now      func() time.Time
	newID    func() (string, error)

	mu      sync.Mutex
	pending map[Slot]*PendingTransaction
	last    map[Kind]PendingTransaction
	closed  bool
}

type nopLog struct{}

func (nopLog) Debug(string, ...any) {}
func (nopLog) Error(string, ...any) {}

// NewSubmitter creates a submitter guarded by gate and reading the
// account from sessions.
func NewSubmitter(gate Gate, sessions SessionSource, opts ...Option) *Submitter {
	s := &Submitter{
		gate:     gate,
		sessions: sessions,
		notifier: output.Discard,
		log:      nopLog{},
		metrics:  metrics.Global,
		now:      time.Now,
		newID:    func() (string, error) { return gonanoid.New() },
		pending:  map[Slot]*PendingTransaction{},
		last:     map[Kind]PendingTransaction{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit runs call as a transaction of the given kind.
//
// It fails without calling anything when the kind's slot is pending
// (ErrSlotBusy), when the guard does not permit contract calls
// (ErrNetworkMismatch) or when no account is connected
// (ErrNoAccountConnected). Otherwise the slot is held until call returns
// or panics.
// A successful contribute or finalizeRequest refreshes the session once.
// Failures are reported, never retried.
func (s *Submitter) Submit(ctx context.Context, kind Kind, call Call) (Outcome, error) {
	pt, err := s.begin(kind)
	if err != nil {
		return Outcome{}, err
	}
	defer s.release(pt)

	s.metrics.RecordTxSubmitted()
	s.log.Debug("tx %s (%s) pending from %s", pt.ID, kind, pt.From.Hex())
	dismiss := s.notifier.Notify(output.LevelLoading, LoadingMessage)

	hash, callErr := call(ctx, pt.From)
	dismiss()

	outcome := Outcome{Status: StatusSucceeded, TxHash: hash}
	if callErr != nil {
		outcome = Outcome{Status: StatusFailed, Reason: Reason(callErr), TxHash: hash}
	}
	s.metrics.RecordTxOutcome(callErr)

	if !s.finish(pt, outcome) {
		s.log.Debug("tx %s resolved after close: %s", pt.ID, outcome.Status)
		return outcome, callErr
	}

	if callErr != nil {
		s.log.Error("tx %s (%s) failed: %v", pt.ID, kind, callErr)
		s.notifier.Notify(output.LevelError, outcome.Reason)
		return outcome, callErr
	}

	s.log.Debug("tx %s (%s) mined: %s", pt.ID, kind, hash.Hex())
	s.notifier.Notify(output.LevelSuccess, kind.SuccessMessage())

	if kind.ChangesBalance() {
		if _, err := s.sessions.Refresh(ctx); err != nil {
			s.log.Error("refreshing session after %s: %v", kind, err)
		}
	}
	return outcome, nil
}

func (s *Submitter) begin(kind Kind) (*PendingTransaction, error) {
	if !kind.Valid() {
		return nil, cferr.WithDetails(cferr.ErrInvalidInput, map[string]string{"action": string(kind)})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	slot := kind.Slot()
	if busy, ok := s.pending[slot]; ok {
		s.metrics.RecordTxBusy()
		return nil, cferr.WithDetails(cferr.ErrSlotBusy, map[string]string{
			"action":  string(busy.Kind),
			"pending": busy.ID,
		})
	}
	if err := s.gate.Permit(); err != nil {
		return nil, err
	}
	current := s.sessions.Current()
	if current == nil {
		return nil, cferr.ErrNoAccountConnected
	}

	id, err := s.newID()
	if err != nil {
		return nil, cferr.Wrap(err, "generating transaction id")
	}
	pt := &PendingTransaction{
		ID:          id,
		Kind:        kind,
		Slot:        slot,
		From:        current.Account,
		SubmittedAt: s.now(),
		Outcome:     Outcome{Status: StatusPending},
	}
	s.pending[slot] = pt
	s.last[kind] = *pt
	return pt, nil
}

// finish releases the slot and records the outcome. It reports false if
// the submitter was closed meanwhile, in which case nothing is recorded.
func (s *Submitter) finish(pt *PendingTransaction, outcome Outcome) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	if s.pending[pt.Slot] == pt {
		delete(s.pending, pt.Slot)
	}
	pt.Outcome = outcome
	pt.CompletedAt = s.now()
	s.last[pt.Kind] = *pt
	return true
}

// release frees the slot if pt still holds it.
func (s *Submitter) release(pt *PendingTransaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending[pt.Slot] == pt {
		delete(s.pending, pt.Slot)
	}
}

// Pending reports whether the slot used by kind is occupied.
func (s *Submitter) Pending(kind Kind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[kind.Slot()]
	return ok
}

// Last returns the most recent submission of kind.
func (s *Submitter) Last(kind Kind) (PendingTransaction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pt, ok := s.last[kind]
	return pt, ok
}

// Close disposes the submitter. Transactions still in flight resolve for
// their callers but no longer update tracking or notify.
func (s *Submitter) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// Reason extracts the user-facing failure message from err: the wallet's
// own message for provider errors, the full error text otherwise.
func Reason(err error) string {
	var re *provider.RPCError
	if errors.As(err, &re) && re.Message != "" {
		return re.Message
	}
	return err.Error()
}
