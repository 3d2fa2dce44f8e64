package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// SwitchChainParams is the single parameter of wallet_switchEthereumChain.
type SwitchChainParams struct {
	ChainID string `json:"chainId"`
}

// Accounts returns the accounts the wallet currently exposes (eth_accounts).
func Accounts(ctx context.Context, r Requester) ([]common.Address, error) {
	return addresses(ctx, r, "eth_accounts")
}

// RequestAccounts asks the wallet to connect and returns the granted
// accounts (eth_requestAccounts).
func RequestAccounts(ctx context.Context, r Requester) ([]common.Address, error) {
	return addresses(ctx, r, "eth_requestAccounts")
}

// ChainID returns the wallet's active chain (eth_chainId).
func ChainID(ctx context.Context, r Requester) (*big.Int, error) {
	return bigResult(ctx, r, "eth_chainId")
}

// Balance returns the latest balance of addr in wei (eth_getBalance).
func Balance(ctx context.Context, r Requester, addr common.Address) (*big.Int, error) {
	return bigResult(ctx, r, "eth_getBalance", addr, "latest")
}

// SwitchChain asks the wallet to switch to chainID (wallet_switchEthereumChain).
func SwitchChain(ctx context.Context, r Requester, chainID *big.Int) error {
	_, err := r.Request(ctx, "wallet_switchEthereumChain", SwitchChainParams{ChainID: hexutil.EncodeBig(chainID)})
	return err
}

func addresses(ctx context.Context, r Requester, method string) ([]common.Address, error) {
	raw, err := r.Request(ctx, method)
	if err != nil {
		return nil, err
	}
	var out []common.Address
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decoding %s result: %w", method, err)
	}
	return out, nil
}

func bigResult(ctx context.Context, r Requester, method string, params ...any) (*big.Int, error) {
	raw, err := r.Request(ctx, method, params...)
	if err != nil {
		return nil, err
	}
	var out hexutil.Big
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decoding %s result: %w", method, err)
	}
	return out.ToInt(), nil
}

// TxRequest is the eth_sendTransaction parameter object.
type TxRequest struct {
	From     common.Address  `json:"from"`
	To       *common.Address `json:"to,omitempty"`
	Value    *hexutil.Big    `json:"value,omitempty"`
	Data     hexutil.Bytes   `json:"data,omitempty"`
	Gas      *hexutil.Uint64 `json:"gas,omitempty"`
	GasPrice *hexutil.Big    `json:"gasPrice,omitempty"`
	Nonce    *hexutil.Uint64 `json:"nonce,omitempty"`
}

// CallMsg is the eth_call parameter object.
type CallMsg struct {
	From *common.Address `json:"from,omitempty"`
	To   common.Address  `json:"to"`
	Data hexutil.Bytes   `json:"data"`
}

// Call executes a read-only contract call at the latest block (eth_call).
func Call(ctx context.Context, r Requester, msg CallMsg) ([]byte, error) {
	raw, err := r.Request(ctx, "eth_call", msg, "latest")
	if err != nil {
		return nil, err
	}
	var out hexutil.Bytes
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decoding eth_call result: %w", err)
	}
	return out, nil
}

// SendTransaction asks the wallet to sign and broadcast tx (eth_sendTransaction).
func SendTransaction(ctx context.Context, r Requester, tx TxRequest) (common.Hash, error) {
	raw, err := r.Request(ctx, "eth_sendTransaction", tx)
	if err != nil {
		return common.Hash{}, err
	}
	var hash common.Hash
	if err := json.Unmarshal(raw, &hash); err != nil {
		return common.Hash{}, fmt.Errorf("decoding eth_sendTransaction result: %w", err)
	}
	return hash, nil
}

// TransactionReceipt returns the receipt of a mined transaction, or nil
// while it is still pending (eth_getTransactionReceipt).
func TransactionReceipt(ctx context.Context, r Requester, hash common.Hash) (*types.Receipt, error) {
	raw, err := r.Request(ctx, "eth_getTransactionReceipt", hash)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil //nolint:nilnil // nil receipt means pending
	}
	var receipt types.Receipt
	if err := json.Unmarshal(raw, &receipt); err != nil {
		return nil, fmt.Errorf("decoding eth_getTransactionReceipt result: %w", err)
	}
	return &receipt, nil
}
