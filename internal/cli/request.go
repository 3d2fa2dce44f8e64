package cli

import (
	"context"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrz1836/coinfund/internal/chain"
	"github.com/mrz1836/coinfund/internal/output"
	"github.com/mrz1836/coinfund/internal/txn"
	cferr "github.com/mrz1836/coinfund/pkg/errors"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	requestDescription string
	requestAmount      string
	requestRecipient   string
)

// requestCmd is the parent command for spending requests.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var requestCmd = &cobra.Command{
	Use:   "request",
	Short: "Manage a campaign's spending requests",
	Long: `List, create, approve and finalize spending requests. A request is approved
once more than half of the contributors approved it, and the manager can then
finalize it to pay the recipient.`,
}

// requestListCmd lists requests.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var requestListCmd = &cobra.Command{
	Use:   "list <campaign>",
	Short: "List spending requests",
	Long:  `List a campaign's spending requests with their approvals and status.`,
	Example: `  coinfund request list 0x5FbDB2315678afecb367f032d93F642f64180aa3
  coinfund request list 0x5FbDB2315678afecb367f032d93F642f64180aa3 -o json`,
	Args: cobra.ExactArgs(1),
	RunE: runRequestList,
}

// requestNewCmd creates a request.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var requestNewCmd = &cobra.Command{
	Use:   "new <campaign>",
	Short: "Create a spending request",
	Long:  `Propose paying an amount of the campaign's ether to a recipient. Only the manager can create requests.`,
	Example: `  coinfund request new 0x5FbDB2315678afecb367f032d93F642f64180aa3 \
    --description "Buy wheels" --amount 0.5 --recipient 0x70997970C51812dc3A010C7d01b50e0d17dc79C8`,
	Args: cobra.ExactArgs(1),
	RunE: runRequestNew,
}

// requestApproveCmd approves a request.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var requestApproveCmd = &cobra.Command{
	Use:     "approve <campaign> <index>",
	Short:   "Approve a spending request",
	Long:    `Approve a spending request as a contributor. Each contributor approves once.`,
	Example: `  coinfund request approve 0x5FbDB2315678afecb367f032d93F642f64180aa3 0`,
	Args:    cobra.ExactArgs(2),
	RunE:    runRequestApprove,
}

// requestFinalizeCmd finalizes a request.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var requestFinalizeCmd = &cobra.Command{
	Use:     "finalize <campaign> <index>",
	Short:   "Finalize an approved spending request",
	Long:    `Pay out an approved spending request to its recipient. Only the manager can finalize.`,
	Example: `  coinfund request finalize 0x5FbDB2315678afecb367f032d93F642f64180aa3 0`,
	Args:    cobra.ExactArgs(2),
	RunE:    runRequestFinalize,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	requestCmd.GroupID = groupCampaigns
	rootCmd.AddCommand(requestCmd)
	requestCmd.AddCommand(requestListCmd, requestNewCmd, requestApproveCmd, requestFinalizeCmd)

	requestNewCmd.Flags().StringVar(&requestDescription, "description", "", "what the money is for (required)")
	requestNewCmd.Flags().StringVar(&requestAmount, "amount", "", "amount to pay in ether (required)")
	requestNewCmd.Flags().StringVar(&requestRecipient, "recipient", "", "address that receives the payment (required)")
	for _, name := range []string{"description", "amount", "recipient"} {
		_ = requestNewCmd.MarkFlagRequired(name)
	}
}

func runRequestList(cmd *cobra.Command, args []string) error {
	cc := GetCmdContext(cmd)
	ctl, err := cc.openController(cmd)
	if err != nil {
		return err
	}
	defer ctl.Close()

	view, err := ctl.Requests(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if cc.Format() == output.FormatJSON {
		return output.WriteJSON(w, view)
	}
	if len(view.Requests) == 0 {
		outln(w, "No spending requests yet.")
		return nil
	}

	table := output.NewTable("ID", "DESCRIPTION", "AMOUNT (ETH)", "RECIPIENT", "APPROVALS", "STATUS")
	table.SetAlign(0, output.AlignRight)
	table.SetAlign(2, output.AlignRight)
	for _, r := range view.Requests {
		table.AddRow(
			strconv.FormatUint(r.Index, 10),
			r.Description,
			chain.FormatEther(r.Amount),
			r.Recipient.Hex(),
			r.Progress,
			r.Status.String(),
		)
	}
	if err := table.Render(w); err != nil {
		return err
	}
	out(w, "\nFound %d requests.\n", len(view.Requests))
	return nil
}

func runRequestNew(cmd *cobra.Command, args []string) error {
	if strings.TrimSpace(requestDescription) == "" {
		return cferr.WithSuggestion(cferr.ErrInvalidInput, "--description must not be empty")
	}
	return runTransaction(cmd, txn.CreateRequest, func(ctx context.Context, ctl Controller) (txn.Outcome, error) {
		return ctl.CreateRequest(ctx, args[0], requestDescription, requestAmount, requestRecipient)
	})
}

func runRequestApprove(cmd *cobra.Command, args []string) error {
	index, err := parseIndex(args[1])
	if err != nil {
		return err
	}
	return runTransaction(cmd, txn.ApproveRequest, func(ctx context.Context, ctl Controller) (txn.Outcome, error) {
		return ctl.ApproveRequest(ctx, args[0], index)
	})
}

func runRequestFinalize(cmd *cobra.Command, args []string) error {
	index, err := parseIndex(args[1])
	if err != nil {
		return err
	}
	return runTransaction(cmd, txn.FinalizeRequest, func(ctx context.Context, ctl Controller) (txn.Outcome, error) {
		return ctl.FinalizeRequest(ctx, args[0], index)
	})
}

func parseIndex(s string) (uint64, error) {
	index, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, cferr.WithDetails(cferr.ErrInvalidInput, map[string]string{
			"index":  s,
			"reason": "must be a non-negative integer",
		})
	}
	return index, nil
}
