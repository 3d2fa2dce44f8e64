// Package session keeps the connected wallet account, its balance and the
// active chain in sync with the provider. The Store is the single mutable
// shared record of "who is connected"; it changes only through Refresh and
// Reset, and subscribers see every published value in order.
package session

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/mrz1836/coinfund/internal/chain"
)

const (
	idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	idLength   = 12
)

// Session errors.
var (
	// ErrSuperseded is returned by a refresh whose result was discarded
	// because the session was reset or refreshed again in the meantime.
	ErrSuperseded = errors.New("session refresh superseded")

	// ErrClosed is returned once the store has been closed.
	ErrClosed = errors.New("session store closed")
)

// NoticeConnectWallet is shown when the wallet exposes no account.
const NoticeConnectWallet = "Please connect your wallet! Run 'coinfund connect'."

// Session is a connected account as last read from the provider.
type Session struct {
	Account      common.Address `json:"account"`
	Balance      string         `json:"balance"`
	BalanceWei   *big.Int       `json:"balance_wei"`
	ChainID      *big.Int       `json:"chain_id"`
	Network      string         `json:"network"`
	ConnectionID string         `json:"connection_id"`
}

// Clone returns a deep copy; nil stays nil.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.BalanceWei != nil {
		c.BalanceWei = new(big.Int).Set(s.BalanceWei)
	}
	if s.ChainID != nil {
		c.ChainID = new(big.Int).Set(s.ChainID)
	}
	return &c
}

// OnChain reports whether the session is on chainID.
func (s *Session) OnChain(chainID *big.Int) bool {
	return s != nil && chain.SameChain(s.ChainID, chainID)
}

func newConnectionID() (string, error) {
	return gonanoid.Generate(idAlphabet, idLength)
}
