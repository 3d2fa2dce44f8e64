package wallet

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/mrz1836/coinfund/internal/chain"
	"github.com/mrz1836/coinfund/internal/provider"
	cferr "github.com/mrz1836/coinfund/pkg/errors"
)

// ApprovalKind says what the wallet is asking the user to approve.
type ApprovalKind string

// Approval kinds.
const (
	ApproveConnect ApprovalKind = "connect"
	ApproveSwitch  ApprovalKind = "switch"
	ApproveSign    ApprovalKind = "sign"
)

// ApprovalRequest describes a pending user decision.
type ApprovalRequest struct {
	Kind    ApprovalKind
	Account common.Address
	ChainID *big.Int
	Tx      *provider.TxRequest
}

// Approver asks the user to confirm a wallet action. Returning false makes
// the wallet answer with a 4001 user-rejected error.
type Approver func(ctx context.Context, req ApprovalRequest) bool

// AutoApprove approves everything.
func AutoApprove(context.Context, ApprovalRequest) bool { return true }

// Network is a chain the wallet can switch to and the node serving it.
type Network struct {
	ChainID  *big.Int
	Upstream provider.Requester
}

// Config configures a local wallet.
type Config struct {
	Keystore  *Keystore
	StatePath string
	Accounts  int
	Networks  []Network
	// Password is called the first time key material is needed.
	Password func() ([]byte, error)
	Approve  Approver
	Logger   provider.LogWriter
}

// Wallet is a provider.Provider backed by local keys. Account, chain and
// signing methods are answered locally; all other requests go to the
// active network's node.
type Wallet struct {
	*provider.Emitter

	cfg       Config
	networks  map[string]Network
	mu        sync.Mutex
	state     *State
	keys      []*ecdsa.PrivateKey
	active    Network
	unlocking sync.Mutex
}

// Open loads the wallet state. The keystore must exist; it is decrypted
// lazily when keys are first needed.
func Open(cfg Config) (*Wallet, error) {
	if cfg.Keystore == nil || !cfg.Keystore.Exists() {
		path := ""
		if cfg.Keystore != nil {
			path = cfg.Keystore.Path()
		}
		return nil, cferr.WithDetails(cferr.ErrKeystoreNotFound, map[string]string{"path": path})
	}
	if len(cfg.Networks) == 0 {
		return nil, cferr.WithDetails(cferr.ErrConfigInvalid, map[string]string{
			"key":    "wallet.networks",
			"reason": "at least one network is required",
		})
	}
	if cfg.Accounts <= 0 {
		cfg.Accounts = 1
	}
	if cfg.Approve == nil {
		cfg.Approve = AutoApprove
	}
	if cfg.Logger == nil {
		cfg.Logger = nopLogger{}
	}

	st, err := LoadState(cfg.StatePath)
	if err != nil {
		return nil, err
	}

	w := &Wallet{
		Emitter:  provider.NewEmitter(),
		cfg:      cfg,
		networks: make(map[string]Network, len(cfg.Networks)),
		state:    st,
	}
	for _, n := range cfg.Networks {
		w.networks[n.ChainID.String()] = n
	}
	w.active = cfg.Networks[0]
	if n, ok := w.networks[big.NewInt(st.ChainID).String()]; ok {
		w.active = n
	}
	return w, nil
}

// IsWallet implements provider.WalletIdentifier.
func (w *Wallet) IsWallet() bool { return true }

// Request implements provider.Requester.
func (w *Wallet) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	switch method {
	case "eth_requestAccounts":
		return w.requestAccounts(ctx)
	case "eth_accounts":
		w.mu.Lock()
		defer w.mu.Unlock()
		return json.Marshal(w.exposedLocked())
	case "eth_chainId":
		w.mu.Lock()
		defer w.mu.Unlock()
		return json.Marshal(hexutil.EncodeBig(w.active.ChainID))
	case "net_version":
		w.mu.Lock()
		defer w.mu.Unlock()
		return json.Marshal(w.active.ChainID.String())
	case "wallet_switchEthereumChain":
		return w.switchChain(ctx, params)
	case "eth_sendTransaction":
		return w.sendTransaction(ctx, params)
	case "eth_sign", "personal_sign", "eth_signTypedData_v4", "wallet_addEthereumChain":
		return nil, &provider.RPCError{Code: provider.CodeUnsupportedMethod, Message: "method not supported by the local wallet: " + method}
	default:
		return w.upstream().Request(ctx, method, params...)
	}
}

// Accounts returns every derived account, connected or not.
func (w *Wallet) Accounts(ctx context.Context) ([]Account, error) {
	if err := w.ensureAccounts(ctx); err != nil {
		return nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Account(nil), w.state.Accounts...), nil
}

// SelectAccount makes account index the exposed one and emits
// accountsChanged when the wallet is connected.
func (w *Wallet) SelectAccount(ctx context.Context, index int) error {
	if err := w.ensureAccounts(ctx); err != nil {
		return err
	}

	w.mu.Lock()
	if index < 0 || index >= len(w.state.Accounts) {
		w.mu.Unlock()
		return cferr.WithDetails(cferr.ErrInvalidInput, map[string]string{
			"account": fmt.Sprint(index),
			"reason":  fmt.Sprintf("wallet has %d accounts", len(w.state.Accounts)),
		})
	}
	changed := w.state.Selected != index
	w.state.Selected = index
	exposed := w.exposedLocked()
	err := w.state.Save(w.cfg.StatePath)
	w.mu.Unlock()

	if changed && len(exposed) > 0 {
		w.Emit(provider.Event{Kind: provider.AccountsChanged, Accounts: exposed})
	}
	return err
}

// Disconnect revokes access and emits accountsChanged with no accounts.
func (w *Wallet) Disconnect() error {
	w.mu.Lock()
	was := w.state.Connected
	w.state.Connected = false
	err := w.state.Save(w.cfg.StatePath)
	w.mu.Unlock()

	if was {
		w.Emit(provider.Event{Kind: provider.AccountsChanged, Accounts: []common.Address{}})
	}
	return err
}

func (w *Wallet) upstream() provider.Requester {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active.Upstream
}

// exposedLocked returns the accounts visible to callers.
func (w *Wallet) exposedLocked() []common.Address {
	if !w.state.Connected || len(w.state.Accounts) == 0 {
		return []common.Address{}
	}
	return []common.Address{w.state.Accounts[w.state.Selected].Address}
}

func (w *Wallet) requestAccounts(ctx context.Context) (json.RawMessage, error) {
	if err := w.ensureAccounts(ctx); err != nil {
		return nil, err
	}

	w.mu.Lock()
	connected := w.state.Connected
	account := w.state.Accounts[w.state.Selected].Address
	w.mu.Unlock()

	if !connected {
		if !w.cfg.Approve(ctx, ApprovalRequest{Kind: ApproveConnect, Account: account}) {
			return nil, userRejected("connection request")
		}
		w.mu.Lock()
		w.state.Connected = true
		err := w.state.Save(w.cfg.StatePath)
		exposed := w.exposedLocked()
		w.mu.Unlock()
		if err != nil {
			w.cfg.Logger.Error("saving wallet state: %v", err)
		}
		w.Emit(provider.Event{Kind: provider.AccountsChanged, Accounts: exposed})
		return json.Marshal(exposed)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	return json.Marshal(w.exposedLocked())
}

func (w *Wallet) switchChain(ctx context.Context, params []any) (json.RawMessage, error) {
	var p provider.SwitchChainParams
	if err := decodeParam(params, &p); err != nil {
		return nil, err
	}
	target, err := hexutil.DecodeBig(p.ChainID)
	if err != nil {
		return nil, &provider.RPCError{Code: -32602, Message: "invalid chainId: " + p.ChainID}
	}

	n, ok := w.networks[target.String()]
	if !ok {
		return nil, &provider.RPCError{
			Code:    provider.CodeUnrecognizedChain,
			Message: fmt.Sprintf("unrecognized chain ID %s; configured: %v", p.ChainID, w.knownChains()),
		}
	}

	w.mu.Lock()
	same := chain.SameChain(w.active.ChainID, target)
	w.mu.Unlock()
	if same {
		return json.RawMessage(`null`), nil
	}

	if !w.cfg.Approve(ctx, ApprovalRequest{Kind: ApproveSwitch, ChainID: target}) {
		return nil, userRejected("network switch")
	}

	w.mu.Lock()
	w.active = n
	w.state.ChainID = target.Int64()
	err = w.state.Save(w.cfg.StatePath)
	w.mu.Unlock()
	if err != nil {
		w.cfg.Logger.Error("saving wallet state: %v", err)
	}

	w.cfg.Logger.Debug("wallet switched to %s", chain.NetworkName(target))
	w.Emit(provider.Event{Kind: provider.ChainChanged, ChainID: new(big.Int).Set(target)})
	return json.RawMessage(`null`), nil
}

func (w *Wallet) knownChains() []string {
	out := make([]string, 0, len(w.networks))
	for _, n := range w.networks {
		out = append(out, chain.NetworkName(n.ChainID))
	}
	sort.Strings(out)
	return out
}

func (w *Wallet) sendTransaction(ctx context.Context, params []any) (json.RawMessage, error) {
	var tx provider.TxRequest
	if err := decodeParam(params, &tx); err != nil {
		return nil, err
	}

	w.mu.Lock()
	exposed := w.exposedLocked()
	index := w.state.Selected
	active := w.active
	w.mu.Unlock()

	if len(exposed) == 0 || exposed[0] != tx.From {
		return nil, &provider.RPCError{Code: provider.CodeUnauthorized, Message: "account " + tx.From.Hex() + " is not connected"}
	}
	if !w.cfg.Approve(ctx, ApprovalRequest{Kind: ApproveSign, Account: tx.From, ChainID: active.ChainID, Tx: &tx}) {
		return nil, userRejected("transaction signature")
	}

	key, err := w.key(ctx, index)
	if err != nil {
		return nil, err
	}

	signed, err := w.buildAndSign(ctx, active, tx, key)
	if err != nil {
		return nil, err
	}

	raw, err := signed.MarshalBinary()
	if err != nil {
		return nil, err
	}
	w.cfg.Logger.Debug("wallet relaying %s on %s", signed.Hash().Hex(), chain.NetworkName(active.ChainID))
	return active.Upstream.Request(ctx, "eth_sendRawTransaction", hexutil.Bytes(raw))
}

// buildAndSign fills nonce, gas and gas price from the node where the
// request leaves them empty and signs an EIP-155 legacy transaction.
func (w *Wallet) buildAndSign(ctx context.Context, n Network, req provider.TxRequest, key *ecdsa.PrivateKey) (*types.Transaction, error) {
	var nonce uint64
	if req.Nonce != nil {
		nonce = uint64(*req.Nonce)
	} else {
		raw, err := n.Upstream.Request(ctx, "eth_getTransactionCount", req.From, "pending")
		if err != nil {
			return nil, err
		}
		var v hexutil.Uint64
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decoding nonce: %w", err)
		}
		nonce = uint64(v)
	}

	gasPrice := (*big.Int)(req.GasPrice)
	if gasPrice == nil {
		raw, err := n.Upstream.Request(ctx, "eth_gasPrice")
		if err != nil {
			return nil, err
		}
		var v hexutil.Big
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decoding gas price: %w", err)
		}
		gasPrice = v.ToInt()
	}

	var gas uint64
	if req.Gas != nil {
		gas = uint64(*req.Gas)
	} else {
		raw, err := n.Upstream.Request(ctx, "eth_estimateGas", req)
		if err != nil {
			return nil, err
		}
		var v hexutil.Uint64
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decoding gas estimate: %w", err)
		}
		gas = uint64(v)
	}

	value := new(big.Int)
	if req.Value != nil {
		value = req.Value.ToInt()
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gas,
		To:       req.To,
		Value:    value,
		Data:     req.Data,
	})
	return types.SignTx(tx, types.NewEIP155Signer(n.ChainID), key)
}

// ensureAccounts derives addresses when the state has none yet.
func (w *Wallet) ensureAccounts(ctx context.Context) error {
	w.mu.Lock()
	have := len(w.state.Accounts) > 0
	w.mu.Unlock()
	if have {
		return nil
	}
	_, err := w.key(ctx, 0)
	return err
}

// key returns the private key for index, unlocking the keystore if needed.
func (w *Wallet) key(_ context.Context, index int) (*ecdsa.PrivateKey, error) {
	w.unlocking.Lock()
	defer w.unlocking.Unlock()

	w.mu.Lock()
	if index < len(w.keys) {
		k := w.keys[index]
		w.mu.Unlock()
		return k, nil
	}
	w.mu.Unlock()

	if w.cfg.Password == nil {
		return nil, cferr.ErrWalletLocked
	}
	password, err := w.cfg.Password()
	if err != nil {
		return nil, cferr.WithCause(cferr.ErrWalletLocked, err)
	}
	defer zero(password)

	mnemonic, err := w.cfg.Keystore.Unlock(password)
	if err != nil {
		return nil, err
	}
	seed, err := MnemonicToSeed(mnemonic, "")
	if err != nil {
		return nil, err
	}
	defer zero(seed)

	accounts, keys, err := DeriveAccounts(seed, max(w.cfg.Accounts, index+1))
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	w.keys = keys
	w.state.Accounts = accounts
	if w.state.Selected >= len(accounts) {
		w.state.Selected = 0
	}
	err = w.state.Save(w.cfg.StatePath)
	w.mu.Unlock()
	if err != nil {
		w.cfg.Logger.Error("saving wallet state: %v", err)
	}
	return keys[index], nil
}

func decodeParam(params []any, out any) error {
	if len(params) == 0 {
		return &provider.RPCError{Code: -32602, Message: "missing params"}
	}
	raw, err := json.Marshal(params[0])
	if err != nil {
		return &provider.RPCError{Code: -32602, Message: err.Error()}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &provider.RPCError{Code: -32602, Message: err.Error()}
	}
	return nil
}

func userRejected(what string) error {
	return &provider.RPCError{Code: provider.CodeUserRejected, Message: "user rejected the " + what}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Error(string, ...any) {}
