// Package providertest provides a scriptable in-memory Provider for tests.
package providertest

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/mrz1836/coinfund/internal/provider"
)

// Handler answers one method. Returning a nil result encodes as JSON null.
type Handler func(ctx context.Context, params []any) (any, error)

// Call is one recorded request.
type Call struct {
	Method string
	Params []any
}

// Fake is a wallet provider whose answers are set per method. Accounts,
// chain and balances have convenience setters; anything else can be
// scripted with Handle. Unscripted methods fail with code 4200.
type Fake struct {
	*provider.Emitter

	mu       sync.Mutex
	accounts []common.Address
	chainID  *big.Int
	balances map[common.Address]*big.Int
	handlers map[string]Handler
	calls    []Call
	wallet   bool

	emitOnGrant bool
	granted     bool
}

// New returns a wallet fake on chainID with no accounts.
func New(chainID int64) *Fake {
	f := &Fake{
		Emitter:  provider.NewEmitter(),
		chainID:  big.NewInt(chainID),
		balances: map[common.Address]*big.Int{},
		handlers: map[string]Handler{},
		wallet:   true,
	}
	f.Handle("eth_accounts", func(context.Context, []any) (any, error) {
		return f.Accounts(), nil
	})
	f.Handle("eth_requestAccounts", func(context.Context, []any) (any, error) {
		f.mu.Lock()
		first := f.emitOnGrant && !f.granted
		f.granted = true
		f.mu.Unlock()

		accounts := f.Accounts()
		if first && len(accounts) > 0 {
			f.Emit(provider.Event{Kind: provider.AccountsChanged, Accounts: accounts})
		}
		return accounts, nil
	})
	f.Handle("eth_chainId", func(context.Context, []any) (any, error) {
		return (*hexutil.Big)(f.ChainID()), nil
	})
	f.Handle("eth_getBalance", func(_ context.Context, params []any) (any, error) {
		addr, _ := params[0].(common.Address)
		return (*hexutil.Big)(f.BalanceOf(addr)), nil
	})
	return f
}

// SetWallet controls what IsWallet reports.
func (f *Fake) SetWallet(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.wallet = v
}

// SetEmitOnGrant makes the first eth_requestAccounts emit accountsChanged
// before answering, as a wallet does when it grants access.
func (f *Fake) SetEmitOnGrant(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emitOnGrant = v
}

// IsWallet implements provider.WalletIdentifier.
func (f *Fake) IsWallet() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.wallet
}

// SetAccounts replaces the exposed accounts without emitting.
func (f *Fake) SetAccounts(accounts ...common.Address) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts = append([]common.Address(nil), accounts...)
}

// Accounts returns the exposed accounts.
func (f *Fake) Accounts() []common.Address {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]common.Address{}, f.accounts...)
}

// SetChainID changes the active chain without emitting.
func (f *Fake) SetChainID(id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chainID = big.NewInt(id)
}

// ChainID returns the active chain.
func (f *Fake) ChainID() *big.Int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return new(big.Int).Set(f.chainID)
}

// SetBalance sets the balance of addr in wei.
func (f *Fake) SetBalance(addr common.Address, wei *big.Int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[addr] = new(big.Int).Set(wei)
}

// BalanceOf returns the balance of addr, zero if unset.
func (f *Fake) BalanceOf(addr common.Address) *big.Int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.balances[addr]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

// Handle scripts method. A nil handler removes it.
func (f *Fake) Handle(method string, h Handler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if h == nil {
		delete(f.handlers, method)
		return
	}
	f.handlers[method] = h
}

// Fail makes method return err.
func (f *Fake) Fail(method string, err error) {
	f.Handle(method, func(context.Context, []any) (any, error) { return nil, err })
}

// Reject makes method fail with the given provider error code.
func (f *Fake) Reject(method string, code int) {
	f.Fail(method, &provider.RPCError{Code: code, Message: fmt.Sprintf("%s rejected", method)})
}

// EmitAccounts sets the accounts and emits accountsChanged.
func (f *Fake) EmitAccounts(accounts ...common.Address) {
	f.SetAccounts(accounts...)
	f.Emit(provider.Event{Kind: provider.AccountsChanged, Accounts: f.Accounts()})
}

// EmitChain sets the chain and emits chainChanged.
func (f *Fake) EmitChain(id int64) {
	f.SetChainID(id)
	f.Emit(provider.Event{Kind: provider.ChainChanged, ChainID: big.NewInt(id)})
}

// Request implements provider.Requester.
func (f *Fake) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Method: method, Params: params})
	h, ok := f.handlers[method]
	f.mu.Unlock()

	if !ok {
		return nil, &provider.RPCError{Code: provider.CodeUnsupportedMethod, Message: "method not scripted: " + method}
	}
	res, err := h(ctx, params)
	if err != nil {
		return nil, err
	}
	return json.Marshal(res)
}

// Calls returns every recorded request of method, or all requests when
// method is empty.
func (f *Fake) Calls(method string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Call
	for _, c := range f.calls {
		if method == "" || c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// Count returns how many times method was requested.
func (f *Fake) Count(method string) int {
	return len(f.Calls(method))
}

// ResetCalls forgets recorded requests.
func (f *Fake) ResetCalls() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}
