package campaign

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/mrz1836/coinfund/internal/provider"
	cferr "github.com/mrz1836/coinfund/pkg/errors"
)

// Receipt polling defaults.
const (
	DefaultPollInterval = time.Second
	DefaultTimeout      = 5 * time.Minute
)

// Writer sends contract transactions through the wallet and waits for
// them to be mined. Transactions are never retried.
type Writer struct {
	req      provider.Requester
	factory  common.Address
	interval time.Duration
	timeout  time.Duration
	log      provider.LogWriter
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithPollInterval sets how often receipts are polled.
func WithPollInterval(d time.Duration) WriterOption {
	return func(w *Writer) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithTimeout bounds how long a transaction may take to be mined.
func WithTimeout(d time.Duration) WriterOption {
	return func(w *Writer) {
		if d > 0 {
			w.timeout = d
		}
	}
}

// WithWriterLogger sets the log sink.
func WithWriterLogger(l provider.LogWriter) WriterOption {
	return func(w *Writer) { w.log = l }
}

type nopLog struct{}

func (nopLog) Debug(string, ...any) {}
func (nopLog) Error(string, ...any) {}

// NewWriter creates a writer that sends through req.
func NewWriter(req provider.Requester, factory common.Address, opts ...WriterOption) *Writer {
	w := &Writer{
		req:      req,
		factory:  factory,
		interval: DefaultPollInterval,
		timeout:  DefaultTimeout,
		log:      nopLog{},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Contribute sends value wei to the campaign.
func (w *Writer) Contribute(ctx context.Context, campaign, from common.Address, value *big.Int) (common.Hash, error) {
	if value == nil || value.Sign() <= 0 {
		return common.Hash{}, cferr.WithDetails(cferr.ErrInvalidAmount, map[string]string{
			"reason": "contribution must be greater than zero",
		})
	}
	data, err := CampaignABI.Pack("contribute")
	if err != nil {
		return common.Hash{}, cferr.Wrap(err, "encoding contribute")
	}
	return w.send(ctx, "contribute", from, campaign, value, data)
}

// CreateRequest asks the campaign to pay amount wei to recipient.
func (w *Writer) CreateRequest(ctx context.Context, campaign, from common.Address, description string, amount *big.Int, recipient common.Address) (common.Hash, error) {
	if description == "" {
		return common.Hash{}, cferr.WithDetails(cferr.ErrInvalidInput, map[string]string{"field": "description"})
	}
	if amount == nil || amount.Sign() <= 0 {
		return common.Hash{}, cferr.WithDetails(cferr.ErrInvalidAmount, map[string]string{
			"reason": "request amount must be greater than zero",
		})
	}
	data, err := CampaignABI.Pack("createRequest", description, amount, recipient)
	if err != nil {
		return common.Hash{}, cferr.Wrap(err, "encoding createRequest")
	}
	return w.send(ctx, "createRequest", from, campaign, nil, data)
}

// ApproveRequest approves request index.
func (w *Writer) ApproveRequest(ctx context.Context, campaign, from common.Address, index uint64) (common.Hash, error) {
	data, err := CampaignABI.Pack("approveRequest", new(big.Int).SetUint64(index))
	if err != nil {
		return common.Hash{}, cferr.Wrap(err, "encoding approveRequest")
	}
	return w.send(ctx, "approveRequest", from, campaign, nil, data)
}

// FinalizeRequest pays out request index.
func (w *Writer) FinalizeRequest(ctx context.Context, campaign, from common.Address, index uint64) (common.Hash, error) {
	data, err := CampaignABI.Pack("finalizeRequest", new(big.Int).SetUint64(index))
	if err != nil {
		return common.Hash{}, cferr.Wrap(err, "encoding finalizeRequest")
	}
	return w.send(ctx, "finalizeRequest", from, campaign, nil, data)
}

// CreateCampaign deploys a campaign through the factory.
func (w *Writer) CreateCampaign(ctx context.Context, from common.Address, minimum *big.Int, description string) (common.Hash, error) {
	if minimum == nil || minimum.Sign() < 0 {
		return common.Hash{}, cferr.WithDetails(cferr.ErrInvalidAmount, map[string]string{
			"reason": "minimum contribution must not be negative",
		})
	}
	if description == "" {
		return common.Hash{}, cferr.WithDetails(cferr.ErrInvalidInput, map[string]string{"field": "description"})
	}
	data, err := FactoryABI.Pack("createCampaign", minimum, description)
	if err != nil {
		return common.Hash{}, cferr.Wrap(err, "encoding createCampaign")
	}
	return w.send(ctx, "createCampaign", from, w.factory, nil, data)
}

func (w *Writer) send(ctx context.Context, method string, from, to common.Address, value *big.Int, data []byte) (common.Hash, error) {
	tx := provider.TxRequest{From: from, To: &to, Data: data}
	if value != nil {
		tx.Value = (*hexutil.Big)(value)
	}

	hash, err := provider.SendTransaction(ctx, w.req, tx)
	if err != nil {
		return common.Hash{}, sendFailure(err, method)
	}
	w.log.Debug("%s sent: %s", method, hash.Hex())

	if _, err := w.WaitMined(ctx, hash); err != nil {
		return hash, err
	}
	return hash, nil
}

// WaitMined polls for the receipt of hash until it is mined, the timeout
// passes or ctx ends. A reverted transaction returns its receipt with
// ErrTransactionRejected.
func (w *Writer) WaitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		receipt, err := provider.TransactionReceipt(ctx, w.req, hash)
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			w.log.Debug("receipt for %s not available yet: %v", hash.Hex(), err)
		}
		if err == nil && receipt != nil {
			if receipt.Status == types.ReceiptStatusFailed {
				return receipt, cferr.WithDetails(cferr.ErrTransactionRejected, map[string]string{
					"reason": "transaction reverted",
					"tx":     hash.Hex(),
				})
			}
			return receipt, nil
		}

		select {
		case <-ctx.Done():
			return nil, cferr.WithDetails(cferr.WithCause(cferr.ErrRPCFailure, ctx.Err()), map[string]string{
				"tx":     hash.Hex(),
				"reason": "transaction not mined in time",
			})
		case <-ticker.C:
		}
	}
}

// sendFailure classifies an eth_sendTransaction error. Transport failures
// stay RPC failures; anything the wallet or node answered with (user
// rejection, insufficient funds, a revert during estimation) is a rejected
// transaction.
func sendFailure(err error, method string) error {
	if errors.Is(err, cferr.ErrRPCFailure) {
		return cferr.Wrap(err, "sending %s", method)
	}
	var re *provider.RPCError
	if errors.As(err, &re) {
		return cferr.WithDetails(cferr.WithCause(cferr.ErrTransactionRejected, err), map[string]string{
			"reason": re.Message,
		})
	}
	return cferr.Wrap(cferr.WithCause(cferr.ErrRPCFailure, err), "sending %s", method)
}
