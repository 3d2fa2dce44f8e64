package campaign

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mrz1836/coinfund/internal/approval"
	cferr "github.com/mrz1836/coinfund/pkg/errors"
)

// Summary is the campaign overview returned by getSummary.
type Summary struct {
	Address             common.Address `json:"address"`
	MinimumContribution *big.Int       `json:"minimum_contribution"`
	Balance             *big.Int       `json:"balance"`
	RequestCount        *big.Int       `json:"request_count"`
	ContributorCount    *big.Int       `json:"contributor_count"`
	Manager             common.Address `json:"manager"`
	Description         string         `json:"description"`
}

// Listing is one deployed campaign with its description.
type Listing struct {
	Address     common.Address `json:"address"`
	Description string         `json:"description"`
}

// Requests is a campaign's spending requests together with the
// contributor count needed to judge them.
type Requests struct {
	Campaign         common.Address     `json:"campaign"`
	ContributorCount *big.Int           `json:"contributor_count"`
	Items            []approval.Request `json:"requests"`
}

// ParseAddress parses a 0x-prefixed hex address. Mixed-case input must
// carry a valid EIP-55 checksum.
func ParseAddress(field, s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	invalid := func(reason string) error {
		return cferr.WithDetails(cferr.ErrInvalidAddress, map[string]string{
			"field":  field,
			"value":  s,
			"reason": reason,
		})
	}

	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return common.Address{}, invalid("missing 0x prefix")
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, invalid("not a 20-byte hex address")
	}
	addr := common.HexToAddress(s)
	body := s[2:]
	if body != strings.ToLower(body) && body != strings.ToUpper(body) && addr.Hex() != "0x"+body {
		return common.Address{}, invalid("bad checksum")
	}
	if addr == (common.Address{}) {
		return common.Address{}, invalid("zero address")
	}
	return addr, nil
}
