// Package campaign reads and writes the crowdfunding contracts: the
// factory that deploys campaigns and the campaigns themselves.
package campaign

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const campaignJSON = `[
  {"type":"function","name":"manager","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
  {"type":"function","name":"minimumContribution","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"campaignDescription","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
  {"type":"function","name":"contributors","stateMutability":"view","inputs":[{"name":"","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"contributorCount","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"numRequests","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"requests","stateMutability":"view","inputs":[{"name":"","type":"uint256"}],"outputs":[
    {"name":"description","type":"string"},
    {"name":"amount","type":"uint256"},
    {"name":"recipient","type":"address"},
    {"name":"approvalCount","type":"uint256"},
    {"name":"complete","type":"bool"}]},
  {"type":"function","name":"getSummary","stateMutability":"view","inputs":[],"outputs":[
    {"name":"","type":"uint256"},
    {"name":"","type":"uint256"},
    {"name":"","type":"uint256"},
    {"name":"","type":"uint256"},
    {"name":"","type":"address"},
    {"name":"","type":"string"}]},
  {"type":"function","name":"contribute","stateMutability":"payable","inputs":[],"outputs":[]},
  {"type":"function","name":"createRequest","stateMutability":"nonpayable","inputs":[
    {"name":"description","type":"string"},
    {"name":"amount","type":"uint256"},
    {"name":"recipient","type":"address"}],"outputs":[]},
  {"type":"function","name":"approveRequest","stateMutability":"nonpayable","inputs":[{"name":"index","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"finalizeRequest","stateMutability":"nonpayable","inputs":[{"name":"index","type":"uint256"}],"outputs":[]}
]`

const factoryJSON = `[
  {"type":"function","name":"createCampaign","stateMutability":"nonpayable","inputs":[
    {"name":"minimum","type":"uint256"},
    {"name":"description","type":"string"}],"outputs":[]},
  {"type":"function","name":"getDeployedCampaigns","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address[]"}]}
]`

// Parsed contract interfaces.
var (
	CampaignABI = mustParse(campaignJSON)
	FactoryABI  = mustParse(factoryJSON)
)

func mustParse(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic("campaign: invalid ABI: " + err.Error())
	}
	return parsed
}
