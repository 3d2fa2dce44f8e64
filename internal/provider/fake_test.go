package provider_test

import (
	"context"
	"encoding/json"

	"github.com/mrz1836/coinfund/internal/provider"
)

// walletStub is the smallest Provider: it answers nothing and knows if it is a wallet.
type walletStub struct {
	*provider.Emitter
	wallet bool
}

func newWalletStub(wallet bool) *walletStub {
	return &walletStub{Emitter: provider.NewEmitter(), wallet: wallet}
}

func (w *walletStub) Request(context.Context, string, ...any) (json.RawMessage, error) {
	return json.RawMessage(`null`), nil
}

func (w *walletStub) IsWallet() bool { return w.wallet }

// bareProvider implements Provider but not WalletIdentifier.
type bareProvider struct{ *provider.Emitter }

func (bareProvider) Request(context.Context, string, ...any) (json.RawMessage, error) {
	return nil, nil
}

// legacyStub only has the old synchronous Send shape.
type legacyStub struct{}

func (legacyStub) Send(string, ...any) (json.RawMessage, error) { return nil, nil }

// scripted answers requests from a map and counts calls per method.
type scripted struct {
	results map[string]string
	errs    map[string]error
	calls   map[string]int
}

func newScripted() *scripted {
	return &scripted{results: map[string]string{}, errs: map[string]error{}, calls: map[string]int{}}
}

func (s *scripted) Request(_ context.Context, method string, _ ...any) (json.RawMessage, error) {
	s.calls[method]++
	if err := s.errs[method]; err != nil {
		return nil, err
	}
	if r, ok := s.results[method]; ok {
		return json.RawMessage(r), nil
	}
	return json.RawMessage(`null`), nil
}
