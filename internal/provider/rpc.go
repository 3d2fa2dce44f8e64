package provider

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/rpc"

	"github.com/mrz1836/coinfund/internal/chain"
	"github.com/mrz1836/coinfund/internal/metrics"
	cferr "github.com/mrz1836/coinfund/pkg/errors"
)

// LogWriter is the logging surface used by providers.
type LogWriter interface {
	Debug(format string, args ...any)
	Error(format string, args ...any)
}

type nopLog struct{}

func (nopLog) Debug(string, ...any) {}
func (nopLog) Error(string, ...any) {}

// RPC is a Provider backed by a go-ethereum JSON-RPC client over HTTP or
// WebSocket. By default it is a read-only fallback that does not identify
// as a wallet; AsWallet marks it as a node wallet for dev chains with
// unlocked accounts. It never emits events by itself; see Watch.
type RPC struct {
	*Emitter

	client  *rpc.Client
	url     string
	wallet  bool
	limiter *chain.RateLimiter
	metrics *metrics.Metrics
	log     LogWriter
}

// RPCOption configures an RPC provider.
type RPCOption func(*RPC)

// AsWallet makes the provider identify as a wallet.
func AsWallet() RPCOption {
	return func(r *RPC) { r.wallet = true }
}

// WithRateLimiter throttles requests per endpoint host.
func WithRateLimiter(l *chain.RateLimiter) RPCOption {
	return func(r *RPC) { r.limiter = l }
}

// WithMetrics records each request in m.
func WithMetrics(m *metrics.Metrics) RPCOption {
	return func(r *RPC) { r.metrics = m }
}

// WithLogger sets the debug/error log sink.
func WithLogger(l LogWriter) RPCOption {
	return func(r *RPC) {
		if l != nil {
			r.log = l
		}
	}
}

// DialRPC connects to url (http, https, ws, wss or an IPC path).
func DialRPC(ctx context.Context, url string, opts ...RPCOption) (*RPC, error) {
	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, cferr.WithDetails(cferr.WithCause(cferr.ErrRPCFailure, err), map[string]string{"endpoint": url})
	}
	return NewRPC(client, url, opts...), nil
}

// NewRPC wraps an existing go-ethereum client.
func NewRPC(client *rpc.Client, url string, opts ...RPCOption) *RPC {
	r := &RPC{
		Emitter: NewEmitter(),
		client:  client,
		url:     url,
		metrics: metrics.Global,
		log:     nopLog{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// URL returns the endpoint the provider talks to.
func (r *RPC) URL() string {
	return r.url
}

// IsWallet implements WalletIdentifier.
func (r *RPC) IsWallet() bool {
	return r.wallet
}

// Request implements Requester. JSON-RPC errors come back as *RPCError so
// callers can inspect the code; transport failures wrap ErrRPCFailure.
func (r *RPC) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx, r.url); err != nil {
			return nil, cferr.WithCause(cferr.ErrRPCFailure, err)
		}
	}

	start := time.Now()
	var raw json.RawMessage
	err := r.client.CallContext(ctx, &raw, method, params...)
	err = mapRPCError(err)

	if r.metrics != nil {
		r.metrics.RecordRPCCall(method, time.Since(start), err)
	}
	if err != nil {
		r.log.Debug("rpc %s failed: %v", method, err)
		return nil, err
	}
	r.log.Debug("rpc %s ok (%s)", method, time.Since(start).Round(time.Millisecond))
	return raw, nil
}

// Close drops the connection and stops event delivery.
func (r *RPC) Close() {
	r.Emitter.Close()
	r.client.Close()
}

func mapRPCError(err error) error {
	if err == nil {
		return nil
	}

	var rerr rpc.Error
	if errors.As(err, &rerr) {
		out := &RPCError{Code: rerr.ErrorCode(), Message: rerr.Error()}
		var derr rpc.DataError
		if errors.As(err, &derr) {
			out.Data = derr.ErrorData()
		}
		return out
	}
	return cferr.WithCause(cferr.ErrRPCFailure, err)
}
