package campaign

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/mrz1836/coinfund/internal/approval"
	"github.com/mrz1836/coinfund/internal/chain"
	"github.com/mrz1836/coinfund/internal/provider"
	cferr "github.com/mrz1836/coinfund/pkg/errors"
)

// maxConcurrentCalls bounds the eth_call fan-out of list reads.
const maxConcurrentCalls = 8

// Reader performs read-only contract calls. Nothing is cached: every call
// goes to the node.
type Reader struct {
	req     provider.Requester
	factory common.Address
	retry   chain.RetryConfig
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithRetry overrides the retry policy for reads.
func WithRetry(cfg chain.RetryConfig) ReaderOption {
	return func(r *Reader) { r.retry = cfg }
}

// NewReader creates a reader that talks through req and lists campaigns
// from factory.
func NewReader(req provider.Requester, factory common.Address, opts ...ReaderOption) *Reader {
	r := &Reader{req: req, factory: factory, retry: chain.DefaultRetryConfig()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Factory returns the factory address.
func (r *Reader) Factory() common.Address {
	return r.factory
}

// Campaigns returns the addresses of every deployed campaign.
func (r *Reader) Campaigns(ctx context.Context) ([]common.Address, error) {
	out, err := r.call(ctx, FactoryABI, r.factory, "getDeployedCampaigns")
	if err != nil {
		return nil, err
	}
	addrs, ok := out[0].([]common.Address)
	if !ok {
		return nil, decodeError("getDeployedCampaigns", out[0])
	}
	return addrs, nil
}

// List returns every deployed campaign with its description. The
// descriptions are fetched concurrently; if any fetch fails the whole
// list fails.
func (r *Reader) List(ctx context.Context) ([]Listing, error) {
	addrs, err := r.Campaigns(ctx)
	if err != nil {
		return nil, err
	}

	listings := make([]Listing, len(addrs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentCalls)
	for i, addr := range addrs {
		g.Go(func() error {
			desc, err := r.Description(gctx, addr)
			if err != nil {
				return err
			}
			listings[i] = Listing{Address: addr, Description: desc}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return listings, nil
}

// Description returns the campaign's description.
func (r *Reader) Description(ctx context.Context, campaign common.Address) (string, error) {
	out, err := r.call(ctx, CampaignABI, campaign, "campaignDescription")
	if err != nil {
		return "", err
	}
	desc, ok := out[0].(string)
	if !ok {
		return "", decodeError("campaignDescription", out[0])
	}
	return desc, nil
}

// Summary returns the campaign overview.
func (r *Reader) Summary(ctx context.Context, campaign common.Address) (*Summary, error) {
	out, err := r.call(ctx, CampaignABI, campaign, "getSummary")
	if err != nil {
		return nil, err
	}

	s := &Summary{Address: campaign}
	var ok [6]bool
	s.MinimumContribution, ok[0] = out[0].(*big.Int)
	s.Balance, ok[1] = out[1].(*big.Int)
	s.RequestCount, ok[2] = out[2].(*big.Int)
	s.ContributorCount, ok[3] = out[3].(*big.Int)
	s.Manager, ok[4] = out[4].(common.Address)
	s.Description, ok[5] = out[5].(string)
	for i, good := range ok {
		if !good {
			return nil, decodeError("getSummary", out[i])
		}
	}
	return s, nil
}

// Manager returns the campaign manager.
func (r *Reader) Manager(ctx context.Context, campaign common.Address) (common.Address, error) {
	out, err := r.call(ctx, CampaignABI, campaign, "manager")
	if err != nil {
		return common.Address{}, err
	}
	addr, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, decodeError("manager", out[0])
	}
	return addr, nil
}

// IsContributor reports whether who has contributed to the campaign.
func (r *Reader) IsContributor(ctx context.Context, campaign, who common.Address) (bool, error) {
	out, err := r.call(ctx, CampaignABI, campaign, "contributors", who)
	if err != nil {
		return false, err
	}
	yes, ok := out[0].(bool)
	if !ok {
		return false, decodeError("contributors", out[0])
	}
	return yes, nil
}

// ContributorCount returns how many distinct accounts contributed.
func (r *Reader) ContributorCount(ctx context.Context, campaign common.Address) (*big.Int, error) {
	return r.uint(ctx, campaign, "contributorCount")
}

// RequestCount returns the number of spending requests.
func (r *Reader) RequestCount(ctx context.Context, campaign common.Address) (*big.Int, error) {
	return r.uint(ctx, campaign, "numRequests")
}

// Request returns the spending request at index.
func (r *Reader) Request(ctx context.Context, campaign common.Address, index uint64) (approval.Request, error) {
	out, err := r.call(ctx, CampaignABI, campaign, "requests", new(big.Int).SetUint64(index))
	if err != nil {
		return approval.Request{}, err
	}

	req := approval.Request{Index: index}
	var ok [5]bool
	req.Description, ok[0] = out[0].(string)
	req.Amount, ok[1] = out[1].(*big.Int)
	req.Recipient, ok[2] = out[2].(common.Address)
	req.ApprovalCount, ok[3] = out[3].(*big.Int)
	req.Complete, ok[4] = out[4].(bool)
	for i, good := range ok {
		if !good {
			return approval.Request{}, decodeError("requests", out[i])
		}
	}
	return req, nil
}

// Requests returns every spending request of the campaign with the
// contributor count. The requests are fetched concurrently; if any fetch
// fails the whole result fails.
func (r *Reader) Requests(ctx context.Context, campaign common.Address) (*Requests, error) {
	count, err := r.RequestCount(ctx, campaign)
	if err != nil {
		return nil, err
	}
	contributors, err := r.ContributorCount(ctx, campaign)
	if err != nil {
		return nil, err
	}
	if !count.IsUint64() {
		return nil, cferr.WithDetails(cferr.ErrRPCFailure, map[string]string{"numRequests": count.String()})
	}

	items := make([]approval.Request, count.Uint64())
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentCalls)
	for i := range items {
		g.Go(func() error {
			req, err := r.Request(gctx, campaign, uint64(i))
			if err != nil {
				return err
			}
			items[i] = req
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Requests{Campaign: campaign, ContributorCount: contributors, Items: items}, nil
}

func (r *Reader) uint(ctx context.Context, campaign common.Address, method string) (*big.Int, error) {
	out, err := r.call(ctx, CampaignABI, campaign, method)
	if err != nil {
		return nil, err
	}
	n, ok := out[0].(*big.Int)
	if !ok {
		return nil, decodeError(method, out[0])
	}
	return n, nil
}

// call packs method, runs eth_call with retries on transient failures and
// unpacks the result. An empty result means no contract lives at to.
func (r *Reader) call(ctx context.Context, contract abi.ABI, to common.Address, method string, args ...any) ([]any, error) {
	data, err := contract.Pack(method, args...)
	if err != nil {
		return nil, cferr.Wrap(err, "encoding %s", method)
	}

	raw, err := chain.RetryWithConfig(ctx, r.retry, func(ctx context.Context) ([]byte, error) {
		return provider.Call(ctx, r.req, provider.CallMsg{To: to, Data: data})
	})
	if err != nil {
		return nil, readFailure(err, method, to)
	}
	if len(raw) == 0 {
		return nil, cferr.WithDetails(cferr.ErrNotFound, map[string]string{
			"contract": to.Hex(),
			"reason":   "no contract at address",
		})
	}

	out, err := contract.Unpack(method, raw)
	if err != nil {
		return nil, cferr.WithDetails(cferr.WithCause(cferr.ErrRPCFailure, err), map[string]string{
			"method":   method,
			"contract": to.Hex(),
		})
	}
	if len(out) == 0 {
		return nil, decodeError(method, nil)
	}
	return out, nil
}

func readFailure(err error, method string, to common.Address) error {
	if !errors.Is(err, cferr.ErrRPCFailure) {
		err = cferr.WithCause(cferr.ErrRPCFailure, err)
	}
	return cferr.Wrap(err, "calling %s on %s", method, to.Hex())
}

func decodeError(method string, got any) error {
	return cferr.WithDetails(cferr.ErrRPCFailure, map[string]string{
		"method": method,
		"reason": fmt.Sprintf("unexpected result type %T", got),
	})
}
