// Package approval decides whether a spending request has enough
// contributor approvals to be finalized.
package approval

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Status is the display state of a spending request.
type Status int

// Request statuses.
const (
	Unapproved Status = iota
	Approved
	Completed
)

func (s Status) String() string {
	switch s {
	case Approved:
		return "approved"
	case Completed:
		return "completed"
	case Unapproved:
	}
	return "unapproved"
}

// MarshalText renders the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Request is a campaign spending request as stored on chain.
type Request struct {
	Index         uint64         `json:"index"`
	Description   string         `json:"description"`
	Amount        *big.Int       `json:"amount"`
	Recipient     common.Address `json:"recipient"`
	ApprovalCount *big.Int       `json:"approval_count"`
	Complete      bool           `json:"complete"`
}

// StatusOf classifies req. A completed request is Completed. Otherwise it
// is Approved when more than half of the contributors approved it
// (approvalCount*2 > contributorCount) and Unapproved when not. Nil
// counts are zero.
func StatusOf(req Request, contributorCount *big.Int) Status {
	if req.Complete {
		return Completed
	}
	if Majority(req.ApprovalCount, contributorCount) {
		return Approved
	}
	return Unapproved
}

// Majority reports whether approvals is a strict majority of contributors.
func Majority(approvals, contributors *big.Int) bool {
	doubled := new(big.Int).Lsh(orZero(approvals), 1)
	return doubled.Cmp(orZero(contributors)) > 0
}

// Progress renders "approvals/contributors".
func Progress(req Request, contributorCount *big.Int) string {
	return fmt.Sprintf("%s/%s", orZero(req.ApprovalCount), orZero(contributorCount))
}

func orZero(n *big.Int) *big.Int {
	if n == nil {
		return new(big.Int)
	}
	return n
}
