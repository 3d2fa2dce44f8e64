package cli

import (
	"context"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrz1836/coinfund/internal/campaign"
	"github.com/mrz1836/coinfund/internal/chain"
	"github.com/mrz1836/coinfund/internal/output"
	"github.com/mrz1836/coinfund/internal/txn"
	cferr "github.com/mrz1836/coinfund/pkg/errors"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	// newMinimum is the minimum contribution of a new campaign, in ether.
	newMinimum string
	// newDescription describes a new campaign.
	newDescription string
)

// campaignCmd is the parent command for campaign operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var campaignCmd = &cobra.Command{
	Use:   "campaign",
	Short: "Browse and create campaigns",
	Long:  `List the campaigns deployed by the factory, show one campaign, or create a new one.`,
}

// campaignListCmd lists deployed campaigns.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var campaignListCmd = &cobra.Command{
	Use:   "list",
	Short: "List deployed campaigns",
	Long:  `List every campaign deployed by the factory with its description. Works without a wallet.`,
	Example: `  coinfund campaign list
  coinfund campaign list -o json`,
	Args: cobra.NoArgs,
	RunE: runCampaignList,
}

// campaignShowCmd shows one campaign.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var campaignShowCmd = &cobra.Command{
	Use:   "show <campaign>",
	Short: "Show a campaign summary",
	Long: `Show a campaign's balance, minimum contribution, number of spending requests,
number of contributors and manager.`,
	Example: `  coinfund campaign show 0x5FbDB2315678afecb367f032d93F642f64180aa3`,
	Args:    cobra.ExactArgs(1),
	RunE:    runCampaignShow,
}

// campaignNewCmd deploys a campaign.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var campaignNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a campaign",
	Long: `Create a campaign through the factory. The connected account becomes its
manager. Contributors must send at least the minimum contribution.`,
	Example: `  coinfund campaign new --minimum 0.01 --description "Build a bike"`,
	Args:    cobra.NoArgs,
	RunE:    runCampaignNew,
}

// contributeCmd contributes to a campaign.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var contributeCmd = &cobra.Command{
	Use:   "contribute <campaign> <amount>",
	Short: "Contribute ether to a campaign",
	Long: `Send ether to a campaign and become a contributor who can approve its
spending requests. The amount is in ether and must meet the campaign's
minimum contribution.`,
	Example: `  coinfund contribute 0x5FbDB2315678afecb367f032d93F642f64180aa3 0.05`,
	Args:    cobra.ExactArgs(2),
	RunE:    runContribute,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	campaignCmd.GroupID = groupCampaigns
	contributeCmd.GroupID = groupCampaigns
	rootCmd.AddCommand(campaignCmd, contributeCmd)
	campaignCmd.AddCommand(campaignListCmd, campaignShowCmd, campaignNewCmd)

	campaignNewCmd.Flags().StringVar(&newMinimum, "minimum", "0", "minimum contribution in ether")
	campaignNewCmd.Flags().StringVar(&newDescription, "description", "", "what the campaign raises money for (required)")
	_ = campaignNewCmd.MarkFlagRequired("description")
}

func runCampaignList(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	ctl, err := cc.openController(cmd)
	if err != nil {
		return err
	}
	defer ctl.Close()

	listings, err := ctl.Campaigns(cmd.Context())
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if cc.Format() == output.FormatJSON {
		return output.WriteJSON(w, map[string]any{
			"factory":   ctl.Factory().Hex(),
			"campaigns": listings,
		})
	}
	if len(listings) == 0 {
		outln(w, "No campaigns yet. Create one with 'coinfund campaign new'.")
		return nil
	}

	table := output.NewTable("ADDRESS", "DESCRIPTION")
	for _, l := range listings {
		table.AddRow(l.Address.Hex(), l.Description)
	}
	return table.Render(w)
}

func runCampaignShow(cmd *cobra.Command, args []string) error {
	cc := GetCmdContext(cmd)
	ctl, err := cc.openController(cmd)
	if err != nil {
		return err
	}
	defer ctl.Close()

	summary, err := ctl.Campaign(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if cc.Format() == output.FormatJSON {
		return output.WriteJSON(w, summary)
	}
	renderSummary(w, summary)
	return nil
}

func renderSummary(w io.Writer, s *campaign.Summary) {
	out(w, "Campaign:              %s\n", s.Address.Hex())
	out(w, "Description:           %s\n", s.Description)
	out(w, "Manager:               %s\n", s.Manager.Hex())
	out(w, "Balance:               %s ETH\n", chain.FormatEther(s.Balance))
	out(w, "Minimum contribution:  %s ETH\n", chain.FormatEther(s.MinimumContribution))
	out(w, "Requests:              %s\n", s.RequestCount)
	out(w, "Contributors:          %s\n", s.ContributorCount)
}

func runCampaignNew(cmd *cobra.Command, _ []string) error {
	if strings.TrimSpace(newDescription) == "" {
		return cferr.WithSuggestion(cferr.ErrInvalidInput, "--description must not be empty")
	}
	return runTransaction(cmd, txn.CreateCampaign, func(ctx context.Context, ctl Controller) (txn.Outcome, error) {
		return ctl.CreateCampaign(ctx, newMinimum, newDescription)
	})
}

func runContribute(cmd *cobra.Command, args []string) error {
	return runTransaction(cmd, txn.Contribute, func(ctx context.Context, ctl Controller) (txn.Outcome, error) {
		return ctl.Contribute(ctx, args[0], args[1])
	})
}
