// Package network keeps contract calls on the required chain. The Guard
// compares the wallet's active chain with the required one, asks the
// wallet to switch once per mismatch and blocks contract calls until the
// chains match.
package network

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/mrz1836/coinfund/internal/chain"
	"github.com/mrz1836/coinfund/internal/metrics"
	"github.com/mrz1836/coinfund/internal/output"
	"github.com/mrz1836/coinfund/internal/provider"
	cferr "github.com/mrz1836/coinfund/pkg/errors"
)

// DefaultRequiredChainID is the chain the campaign contracts are deployed on.
const DefaultRequiredChainID = chain.Sepolia

// State is where the guard stands relative to the required chain.
type State int

// Guard states. Contract calls are permitted only in Matched.
const (
	Unknown State = iota
	Matched
	SwitchRequested
	Blocked
)

func (s State) String() string {
	switch s {
	case Matched:
		return "matched"
	case SwitchRequested:
		return "switch requested"
	case Blocked:
		return "blocked"
	case Unknown:
	}
	return "unknown"
}

// MarshalText renders the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Status is a snapshot of the guard.
type Status struct {
	State    State    `json:"state"`
	Active   *big.Int `json:"active,omitempty"`
	Required *big.Int `json:"required"`
	Prompt   string   `json:"prompt,omitempty"`
}

// Option configures a Guard.
type Option func(*Guard)

// WithNotifier sets where switch prompts go.
func WithNotifier(n output.Notifier) Option {
	return func(g *Guard) { g.notifier = n }
}

// WithLogger sets the log sink.
func WithLogger(l provider.LogWriter) Option {
	return func(g *Guard) { g.log = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Guard) { g.metrics = m }
}

// Guard enforces the required chain.
type Guard struct {
	req      provider.Requester
	required *big.Int
	notifier output.Notifier
	log      provider.LogWriter
	metrics  *metrics.Metrics

	mu     sync.Mutex
	state  State
	active *big.Int
	prompt string
}

type nopLog struct{}

func (nopLog) Debug(string, ...any) {}
func (nopLog) Error(string, ...any) {}

// NewGuard creates a guard for required. A nil or non-positive required
// chain falls back to DefaultRequiredChainID.
func NewGuard(req provider.Requester, required *big.Int, opts ...Option) *Guard {
	if required == nil || required.Sign() <= 0 {
		required = big.NewInt(DefaultRequiredChainID)
	}
	g := &Guard{
		req:      req,
		required: new(big.Int).Set(required),
		notifier: output.Discard,
		log:      nopLog{},
		metrics:  metrics.Global,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Required returns the required chain ID.
func (g *Guard) Required() *big.Int {
	return new(big.Int).Set(g.required)
}

// State returns the current state.
func (g *Guard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Status returns a snapshot of the guard.
func (g *Guard) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	st := Status{State: g.state, Required: g.Required(), Prompt: g.prompt}
	if g.active != nil {
		st.Active = new(big.Int).Set(g.active)
	}
	return st
}

// EnsureNetwork checks the wallet's current chain. On a match the guard
// moves to Matched without talking to the wallet. On a mismatch it sends
// exactly one wallet_switchEthereumChain request: if the wallet accepts,
// the guard waits in SwitchRequested for the chain change to arrive; if
// it refuses, the guard is Blocked, a switch prompt stays up and
// ErrNetworkMismatch is returned. A nil current chain leaves the guard in
// Unknown.
func (g *Guard) EnsureNetwork(ctx context.Context, current *big.Int) error {
	if current == nil {
		g.set(Unknown, nil, "")
		return nil
	}
	if chain.SameChain(current, g.required) {
		g.set(Matched, current, "")
		g.log.Debug("network matched: %s", chain.NetworkName(current))
		return nil
	}

	g.log.Debug("network mismatch: on %s, need %s; requesting switch",
		chain.NetworkName(current), chain.NetworkName(g.required))

	err := provider.SwitchChain(ctx, g.req, g.required)
	g.metrics.RecordSwitchRequest(err != nil)
	if err == nil {
		g.set(SwitchRequested, current, "")
		return nil
	}

	prompt := fmt.Sprintf("Please switch your wallet to %s (chain %s) to continue.",
		chain.NetworkName(g.required), g.required)
	g.set(Blocked, current, prompt)
	g.notifier.Notify(output.LevelWarn, prompt)
	g.log.Error("network switch refused: %v", err)

	return cferr.WithDetails(cferr.WithCause(cferr.ErrNetworkMismatch, err), map[string]string{
		"required": chain.NetworkName(g.required),
		"active":   chain.NetworkName(current),
	})
}

// Permit returns nil only when the wallet is known to be on the required
// chain.
func (g *Guard) Permit() error {
	st := g.Status()
	if st.State == Matched {
		return nil
	}
	details := map[string]string{
		"required": chain.NetworkName(st.Required),
		"state":    st.State.String(),
	}
	if st.Active != nil {
		details["active"] = chain.NetworkName(st.Active)
	}
	err := cferr.WithDetails(cferr.ErrNetworkMismatch, details)
	if st.Prompt != "" {
		err = cferr.WithSuggestion(err, st.Prompt)
	}
	return err
}

func (g *Guard) set(state State, active *big.Int, prompt string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = state
	g.prompt = prompt
	g.active = nil
	if active != nil {
		g.active = new(big.Int).Set(active)
	}
}
