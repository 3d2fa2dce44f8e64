package campaign_test

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/mrz1836/coinfund/internal/approval"
	"github.com/mrz1836/coinfund/internal/campaign"
	"github.com/mrz1836/coinfund/internal/provider"
	"github.com/mrz1836/coinfund/internal/provider/providertest"
)

var errRevert = errors.New("revert")

type contract struct {
	manager      common.Address
	minimum      *big.Int
	description  string
	balance      *big.Int
	contributors map[common.Address]bool
	requests     []approval.Request
	approvals    []map[common.Address]bool
}

// fakeChain executes the campaign contracts in memory behind a
// providertest.Fake: eth_call, eth_sendTransaction and receipts.
type fakeChain struct {
	*providertest.Fake

	mu        sync.Mutex
	factory   common.Address
	deployed  []common.Address
	contracts map[common.Address]*contract
	receipts  map[common.Hash]*types.Receipt
	polls     map[common.Hash]int
	nonce     uint64

	// receiptDelay is how many receipt polls answer null before the
	// receipt shows up. A negative delay never mines.
	receiptDelay int
}

func newFakeChain() *fakeChain {
	c := &fakeChain{
		Fake:      providertest.New(11155111),
		factory:   common.HexToAddress("0x79b30208764ECf3401005AB6f26b3E52171ca393"),
		contracts: map[common.Address]*contract{},
		receipts:  map[common.Hash]*types.Receipt{},
		polls:     map[common.Hash]int{},
	}
	c.Handle("eth_call", c.ethCall)
	c.Handle("eth_sendTransaction", c.sendTransaction)
	c.Handle("eth_getTransactionReceipt", c.receipt)
	return c
}

// deploy creates a campaign directly, bypassing the factory.
func (c *fakeChain) deploy(manager common.Address, minimum int64, description string) common.Address {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deployLocked(manager, big.NewInt(minimum), description)
}

func (c *fakeChain) deployLocked(manager common.Address, minimum *big.Int, description string) common.Address {
	addr := crypto.CreateAddress(c.factory, uint64(len(c.deployed)))
	c.deployed = append(c.deployed, addr)
	c.contracts[addr] = &contract{
		manager:      manager,
		minimum:      new(big.Int).Set(minimum),
		description:  description,
		balance:      new(big.Int),
		contributors: map[common.Address]bool{},
	}
	return addr
}

func (c *fakeChain) lookup(to common.Address) (abi.ABI, *contract, bool) {
	if to == c.factory {
		return campaign.FactoryABI, nil, true
	}
	k, ok := c.contracts[to]
	return campaign.CampaignABI, k, ok
}

func (c *fakeChain) ethCall(_ context.Context, params []any) (any, error) {
	msg := params[0].(provider.CallMsg) //nolint:forcetypeassert // test fake

	c.mu.Lock()
	defer c.mu.Unlock()

	contractABI, k, ok := c.lookup(msg.To)
	if !ok {
		return hexutil.Bytes{}, nil
	}
	method, err := contractABI.MethodById(msg.Data[:4])
	if err != nil {
		return nil, err
	}
	args, err := method.Inputs.Unpack(msg.Data[4:])
	if err != nil {
		return nil, err
	}

	var out []any
	switch method.Name {
	case "getDeployedCampaigns":
		out = []any{append([]common.Address{}, c.deployed...)}
	case "manager":
		out = []any{k.manager}
	case "minimumContribution":
		out = []any{k.minimum}
	case "campaignDescription":
		out = []any{k.description}
	case "contributors":
		out = []any{k.contributors[args[0].(common.Address)]} //nolint:forcetypeassert // test fake
	case "contributorCount":
		out = []any{big.NewInt(int64(len(k.contributors)))}
	case "numRequests":
		out = []any{big.NewInt(int64(len(k.requests)))}
	case "requests":
		i := args[0].(*big.Int).Uint64() //nolint:forcetypeassert // test fake
		if i >= uint64(len(k.requests)) {
			return nil, &provider.RPCError{Code: 3, Message: "execution reverted"}
		}
		r := k.requests[i]
		out = []any{r.Description, r.Amount, r.Recipient, r.ApprovalCount, r.Complete}
	case "getSummary":
		out = []any{
			k.minimum, k.balance,
			big.NewInt(int64(len(k.requests))), big.NewInt(int64(len(k.contributors))),
			k.manager, k.description,
		}
	default:
		return nil, &provider.RPCError{Code: 3, Message: "execution reverted"}
	}

	packed, err := method.Outputs.Pack(out...)
	if err != nil {
		return nil, err
	}
	return hexutil.Bytes(packed), nil
}

func (c *fakeChain) sendTransaction(_ context.Context, params []any) (any, error) {
	tx := params[0].(provider.TxRequest) //nolint:forcetypeassert // test fake

	c.mu.Lock()
	defer c.mu.Unlock()

	c.nonce++
	hash := crypto.Keccak256Hash(tx.From.Bytes(), new(big.Int).SetUint64(c.nonce).Bytes())

	status := types.ReceiptStatusSuccessful
	if err := c.apply(tx); err != nil {
		status = types.ReceiptStatusFailed
	}
	c.receipts[hash] = &types.Receipt{
		Status:            status,
		CumulativeGasUsed: 21000,
		TxHash:            hash,
		Logs:              []*types.Log{},
	}
	return hash, nil
}

func (c *fakeChain) apply(tx provider.TxRequest) error {
	contractABI, k, ok := c.lookup(*tx.To)
	if !ok {
		return errRevert
	}
	method, err := contractABI.MethodById(tx.Data[:4])
	if err != nil {
		return err
	}
	args, err := method.Inputs.Unpack(tx.Data[4:])
	if err != nil {
		return err
	}

	value := new(big.Int)
	if tx.Value != nil {
		value = tx.Value.ToInt()
	}

	switch method.Name {
	case "createCampaign":
		c.deployLocked(tx.From, args[0].(*big.Int), args[1].(string)) //nolint:forcetypeassert // test fake
		return nil
	case "contribute":
		if value.Cmp(k.minimum) < 0 {
			return errRevert
		}
		k.contributors[tx.From] = true
		k.balance.Add(k.balance, value)
		return nil
	case "createRequest":
		if tx.From != k.manager {
			return errRevert
		}
		k.requests = append(k.requests, approval.Request{
			Index:         uint64(len(k.requests)),
			Description:   args[0].(string),         //nolint:forcetypeassert // test fake
			Amount:        args[1].(*big.Int),       //nolint:forcetypeassert // test fake
			Recipient:     args[2].(common.Address), //nolint:forcetypeassert // test fake
			ApprovalCount: new(big.Int),
		})
		k.approvals = append(k.approvals, map[common.Address]bool{})
		return nil
	case "approveRequest":
		i := args[0].(*big.Int).Uint64() //nolint:forcetypeassert // test fake
		if i >= uint64(len(k.requests)) || !k.contributors[tx.From] || k.approvals[i][tx.From] {
			return errRevert
		}
		k.approvals[i][tx.From] = true
		k.requests[i].ApprovalCount = new(big.Int).Add(k.requests[i].ApprovalCount, big.NewInt(1))
		return nil
	case "finalizeRequest":
		i := args[0].(*big.Int).Uint64() //nolint:forcetypeassert // test fake
		if i >= uint64(len(k.requests)) || tx.From != k.manager {
			return errRevert
		}
		r := &k.requests[i]
		if r.Complete || !approval.Majority(r.ApprovalCount, big.NewInt(int64(len(k.contributors)))) {
			return errRevert
		}
		r.Complete = true
		k.balance.Sub(k.balance, r.Amount)
		return nil
	}
	return errRevert
}

func (c *fakeChain) receipt(_ context.Context, params []any) (any, error) {
	hash := params[0].(common.Hash) //nolint:forcetypeassert // test fake

	c.mu.Lock()
	defer c.mu.Unlock()

	c.polls[hash]++
	if c.receiptDelay < 0 || c.polls[hash] <= c.receiptDelay {
		return nil, nil
	}
	r, ok := c.receipts[hash]
	if !ok {
		return nil, nil
	}
	return r, nil
}

func (c *fakeChain) pollCount(hash common.Hash) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.polls[hash]
}
