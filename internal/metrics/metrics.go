// Package metrics provides application-level metrics collection using
// atomic counters. The `coinfund session -v` output and debug logs read them.
package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics holds application metrics using atomic counters for thread safety.
type Metrics struct {
	// RPC metrics
	rpcCallsTotal   atomic.Int64
	rpcErrorsTotal  atomic.Int64
	rpcLatencyNanos atomic.Int64
	rpcByMethod     sync.Map // method -> *atomic.Int64

	// Session metrics
	sessionRefreshes atomic.Int64
	sessionResets    atomic.Int64
	providerEvents   atomic.Int64

	// Network guard metrics
	switchRequests atomic.Int64
	switchRejected atomic.Int64

	// Transaction metrics
	txSubmitted atomic.Int64
	txSucceeded atomic.Int64
	txFailed    atomic.Int64
	txBusy      atomic.Int64
}

// Global is the global metrics instance.
// Use this for recording metrics throughout the application.
//
//nolint:gochecknoglobals // Intentional global for metrics access
var Global = &Metrics{}

// RecordRPCCall records a provider request with its duration and outcome.
func (m *Metrics) RecordRPCCall(method string, duration time.Duration, err error) {
	m.rpcCallsTotal.Add(1)
	m.rpcLatencyNanos.Add(duration.Nanoseconds())
	if err != nil {
		m.rpcErrorsTotal.Add(1)
	}

	counter, _ := m.rpcByMethod.LoadOrStore(method, &atomic.Int64{})
	counter.(*atomic.Int64).Add(1) //nolint:errcheck,forcetypeassert // map only holds *atomic.Int64
}

// RecordSessionRefresh records a completed session refresh.
func (m *Metrics) RecordSessionRefresh() {
	m.sessionRefreshes.Add(1)
}

// RecordSessionReset records the session being cleared.
func (m *Metrics) RecordSessionReset() {
	m.sessionResets.Add(1)
}

// RecordProviderEvent records an accountsChanged or chainChanged event.
func (m *Metrics) RecordProviderEvent() {
	m.providerEvents.Add(1)
}

// RecordSwitchRequest records a network switch request and whether the wallet refused it.
func (m *Metrics) RecordSwitchRequest(rejected bool) {
	m.switchRequests.Add(1)
	if rejected {
		m.switchRejected.Add(1)
	}
}

// RecordTxSubmitted records a transaction entering the pending state.
func (m *Metrics) RecordTxSubmitted() {
	m.txSubmitted.Add(1)
}

// RecordTxOutcome records how a pending transaction resolved.
func (m *Metrics) RecordTxOutcome(err error) {
	if err != nil {
		m.txFailed.Add(1)
		return
	}
	m.txSucceeded.Add(1)
}

// RecordTxBusy records a submission rejected because its slot was pending.
func (m *Metrics) RecordTxBusy() {
	m.txBusy.Add(1)
}

// Snapshot is a point-in-time copy of all metrics.
type Snapshot struct {
	RPCCallsTotal    int64            `json:"rpc_calls_total"`
	RPCErrorsTotal   int64            `json:"rpc_errors_total"`
	RPCLatencyNanos  int64            `json:"rpc_latency_nanos"`
	RPCByMethod      map[string]int64 `json:"rpc_by_method,omitempty"`
	SessionRefreshes int64            `json:"session_refreshes"`
	SessionResets    int64            `json:"session_resets"`
	ProviderEvents   int64            `json:"provider_events"`
	SwitchRequests   int64            `json:"switch_requests"`
	SwitchRejected   int64            `json:"switch_rejected"`
	TxSubmitted      int64            `json:"tx_submitted"`
	TxSucceeded      int64            `json:"tx_succeeded"`
	TxFailed         int64            `json:"tx_failed"`
	TxBusy           int64            `json:"tx_busy"`
}

// Snapshot returns a point-in-time copy of all metrics.
func (m *Metrics) Snapshot() Snapshot {
	byMethod := map[string]int64{}
	m.rpcByMethod.Range(func(k, v any) bool {
		byMethod[k.(string)] = v.(*atomic.Int64).Load() //nolint:forcetypeassert // map only holds string -> *atomic.Int64
		return true
	})

	return Snapshot{
		RPCCallsTotal:    m.rpcCallsTotal.Load(),
		RPCErrorsTotal:   m.rpcErrorsTotal.Load(),
		RPCLatencyNanos:  m.rpcLatencyNanos.Load(),
		RPCByMethod:      byMethod,
		SessionRefreshes: m.sessionRefreshes.Load(),
		SessionResets:    m.sessionResets.Load(),
		ProviderEvents:   m.providerEvents.Load(),
		SwitchRequests:   m.switchRequests.Load(),
		SwitchRejected:   m.switchRejected.Load(),
		TxSubmitted:      m.txSubmitted.Load(),
		TxSucceeded:      m.txSucceeded.Load(),
		TxFailed:         m.txFailed.Load(),
		TxBusy:           m.txBusy.Load(),
	}
}

// Methods returns the RPC methods seen so far, sorted.
func (s Snapshot) Methods() []string {
	out := make([]string, 0, len(s.RPCByMethod))
	for k := range s.RPCByMethod {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// RPCCallsTotal returns the total number of RPC calls made.
func (m *Metrics) RPCCallsTotal() int64 {
	return m.rpcCallsTotal.Load()
}

// RPCErrorsTotal returns the total number of RPC errors.
func (m *Metrics) RPCErrorsTotal() int64 {
	return m.rpcErrorsTotal.Load()
}

// RPCLatencyAvgMs returns the average RPC latency in milliseconds.
// Returns 0 if no calls have been made.
func (m *Metrics) RPCLatencyAvgMs() float64 {
	calls := m.rpcCallsTotal.Load()
	if calls == 0 {
		return 0
	}
	return float64(m.rpcLatencyNanos.Load()) / float64(calls) / 1e6
}

// TxSuccessRate returns the share of resolved transactions that succeeded (0-100).
func (m *Metrics) TxSuccessRate() float64 {
	ok := m.txSucceeded.Load()
	total := ok + m.txFailed.Load()
	if total == 0 {
		return 0
	}
	return float64(ok) / float64(total) * 100
}

// Reset resets all metrics to zero.
// Useful for testing.
func (m *Metrics) Reset() {
	m.rpcCallsTotal.Store(0)
	m.rpcErrorsTotal.Store(0)
	m.rpcLatencyNanos.Store(0)
	m.rpcByMethod.Clear()
	m.sessionRefreshes.Store(0)
	m.sessionResets.Store(0)
	m.providerEvents.Store(0)
	m.switchRequests.Store(0)
	m.switchRejected.Store(0)
	m.txSubmitted.Store(0)
	m.txSucceeded.Store(0)
	m.txFailed.Store(0)
	m.txBusy.Store(0)
}
