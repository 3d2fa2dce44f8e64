// Package provider defines the wallet provider surface (request plus
// event subscription, modeled on EIP-1193) and its implementations: a
// go-ethereum RPC client that can serve as a read-only fallback or a node
// wallet, and the detector that decides whether a usable wallet exists.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// EIP-1193 provider error codes.
const (
	CodeUserRejected      = 4001
	CodeUnauthorized      = 4100
	CodeUnsupportedMethod = 4200
	CodeDisconnected      = 4900
	CodeUnrecognizedChain = 4902
)

// EventKind names a wallet-originated event.
type EventKind string

// Wallet events the app listens for.
const (
	AccountsChanged EventKind = "accountsChanged"
	ChainChanged    EventKind = "chainChanged"
)

// Event is a wallet-originated notification. Accounts is set for
// AccountsChanged, ChainID for ChainChanged.
type Event struct {
	Kind     EventKind
	Accounts []common.Address
	ChainID  *big.Int
}

// Listener receives events.
type Listener func(Event)

// ListenerID identifies a registration so it can be removed.
type ListenerID uint64

// Requester sends JSON-RPC style requests to a wallet or node.
type Requester interface {
	Request(ctx context.Context, method string, params ...any) (json.RawMessage, error)
}

// EventSource lets callers subscribe to wallet events.
type EventSource interface {
	On(kind EventKind, l Listener) ListenerID
	RemoveListener(kind EventKind, id ListenerID)
}

// Provider is the full wallet surface.
type Provider interface {
	Requester
	EventSource
}

// WalletIdentifier is implemented by providers that can say whether they
// hold user accounts. Only providers answering true count as wallets.
type WalletIdentifier interface {
	IsWallet() bool
}

// LegacyProvider is the pre-EIP-1193 synchronous shape. It is recognized
// only to tell the user it is no longer supported.
type LegacyProvider interface {
	Send(method string, params ...any) (json.RawMessage, error)
}

// RPCError is an error returned by the wallet or node with a numeric code.
type RPCError struct {
	Code    int
	Message string
	Data    any
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.Code, e.Message)
}

// ErrorCode returns the provider error code carried by err.
func ErrorCode(err error) (int, bool) {
	var re *RPCError
	if errors.As(err, &re) {
		return re.Code, true
	}
	return 0, false
}

// IsUserRejected reports whether the user declined the request in the wallet.
func IsUserRejected(err error) bool {
	code, ok := ErrorCode(err)
	return ok && code == CodeUserRejected
}
