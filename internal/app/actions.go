package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mrz1836/coinfund/internal/approval"
	"github.com/mrz1836/coinfund/internal/campaign"
	"github.com/mrz1836/coinfund/internal/chain"
	"github.com/mrz1836/coinfund/internal/txn"
	cferr "github.com/mrz1836/coinfund/pkg/errors"
)

// RequestView is a spending request with its computed status.
type RequestView struct {
	approval.Request
	Status   approval.Status `json:"status"`
	Progress string          `json:"progress"`
}

// RequestsView is every spending request of a campaign.
type RequestsView struct {
	Campaign         common.Address `json:"campaign"`
	ContributorCount *big.Int       `json:"contributor_count"`
	Requests         []RequestView  `json:"requests"`
}

// Campaigns lists every deployed campaign.
func (a *App) Campaigns(ctx context.Context) ([]campaign.Listing, error) {
	return a.reader.List(ctx)
}

// Campaign returns the summary of one campaign.
func (a *App) Campaign(ctx context.Context, address string) (*campaign.Summary, error) {
	addr, err := campaign.ParseAddress("campaign", address)
	if err != nil {
		return nil, err
	}
	return a.reader.Summary(ctx, addr)
}

// Requests returns the spending requests of a campaign with their status.
func (a *App) Requests(ctx context.Context, address string) (*RequestsView, error) {
	addr, err := campaign.ParseAddress("campaign", address)
	if err != nil {
		return nil, err
	}
	reqs, err := a.reader.Requests(ctx, addr)
	if err != nil {
		return nil, err
	}

	view := &RequestsView{
		Campaign:         reqs.Campaign,
		ContributorCount: reqs.ContributorCount,
		Requests:         make([]RequestView, 0, len(reqs.Items)),
	}
	for _, r := range reqs.Items {
		view.Requests = append(view.Requests, RequestView{
			Request:  r,
			Status:   approval.StatusOf(r, reqs.ContributorCount),
			Progress: approval.Progress(r, reqs.ContributorCount),
		})
	}
	return view, nil
}

// Contribute sends amount ether to a campaign.
func (a *App) Contribute(ctx context.Context, address, amount string) (txn.Outcome, error) {
	addr, err := campaign.ParseAddress("campaign", address)
	if err != nil {
		return txn.Outcome{}, err
	}
	wei, err := parseAmount("amount", amount)
	if err != nil {
		return txn.Outcome{}, err
	}
	return a.submit(ctx, txn.Contribute, func(ctx context.Context, from common.Address) (common.Hash, error) {
		return a.writer.Contribute(ctx, addr, from, wei)
	})
}

// CreateRequest proposes paying amount ether to recipient.
func (a *App) CreateRequest(ctx context.Context, address, description, amount, recipient string) (txn.Outcome, error) {
	addr, err := campaign.ParseAddress("campaign", address)
	if err != nil {
		return txn.Outcome{}, err
	}
	to, err := campaign.ParseAddress("recipient", recipient)
	if err != nil {
		return txn.Outcome{}, err
	}
	wei, err := parseAmount("amount", amount)
	if err != nil {
		return txn.Outcome{}, err
	}
	return a.submit(ctx, txn.CreateRequest, func(ctx context.Context, from common.Address) (common.Hash, error) {
		return a.writer.CreateRequest(ctx, addr, from, description, wei, to)
	})
}

// ApproveRequest approves request index of a campaign.
func (a *App) ApproveRequest(ctx context.Context, address string, index uint64) (txn.Outcome, error) {
	addr, err := campaign.ParseAddress("campaign", address)
	if err != nil {
		return txn.Outcome{}, err
	}
	return a.submit(ctx, txn.ApproveRequest, func(ctx context.Context, from common.Address) (common.Hash, error) {
		return a.writer.ApproveRequest(ctx, addr, from, index)
	})
}

// FinalizeRequest pays out request index of a campaign.
func (a *App) FinalizeRequest(ctx context.Context, address string, index uint64) (txn.Outcome, error) {
	addr, err := campaign.ParseAddress("campaign", address)
	if err != nil {
		return txn.Outcome{}, err
	}
	return a.submit(ctx, txn.FinalizeRequest, func(ctx context.Context, from common.Address) (common.Hash, error) {
		return a.writer.FinalizeRequest(ctx, addr, from, index)
	})
}

// CreateCampaign deploys a campaign with a minimum contribution in ether.
func (a *App) CreateCampaign(ctx context.Context, minimum, description string) (txn.Outcome, error) {
	wei, err := chain.ParseEther(minimum)
	if err != nil {
		return txn.Outcome{}, cferr.WithDetails(err, map[string]string{"field": "minimum", "value": minimum})
	}
	return a.submit(ctx, txn.CreateCampaign, func(ctx context.Context, from common.Address) (common.Hash, error) {
		return a.writer.CreateCampaign(ctx, from, wei, description)
	})
}

// Last returns the most recent transaction of kind.
func (a *App) Last(kind txn.Kind) (txn.PendingTransaction, bool) {
	return a.submitter.Last(kind)
}

func (a *App) submit(ctx context.Context, kind txn.Kind, call txn.Call) (txn.Outcome, error) {
	if a.wallet == nil {
		return txn.Outcome{}, cferr.ErrProviderUnavailable
	}
	return a.submitter.Submit(ctx, kind, call)
}

func parseAmount(field, amount string) (*big.Int, error) {
	wei, err := chain.ParseEther(amount)
	if err != nil {
		return nil, cferr.WithDetails(err, map[string]string{"field": field, "value": amount})
	}
	if wei.Sign() <= 0 {
		return nil, cferr.WithDetails(cferr.ErrInvalidAmount, map[string]string{
			"field":  field,
			"value":  amount,
			"reason": "must be greater than zero",
		})
	}
	return wei, nil
}
