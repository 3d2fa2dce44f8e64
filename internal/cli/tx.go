package cli

import (
	"context"
	"io"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/mrz1836/coinfund/internal/output"
	"github.com/mrz1836/coinfund/internal/session"
	"github.com/mrz1836/coinfund/internal/txn"
)

// txResult is the JSON shape of a transaction command.
type txResult struct {
	Action  txn.Kind         `json:"action"`
	Status  txn.Status       `json:"status"`
	TxHash  string           `json:"tx_hash,omitempty"`
	Reason  string           `json:"reason,omitempty"`
	Session *session.Session `json:"session,omitempty"`
}

// sendFunc submits one transaction through the controller.
type sendFunc func(ctx context.Context, ctl Controller) (txn.Outcome, error)

// runTransaction opens the controller, submits one transaction and prints
// the outcome. Loading, success and failure notices are shown by the
// submitter itself.
func runTransaction(cmd *cobra.Command, kind txn.Kind, send sendFunc) error {
	cc := GetCmdContext(cmd)
	ctl, err := cc.openController(cmd)
	if err != nil {
		return err
	}
	defer ctl.Close()

	outcome, err := send(cmd.Context(), ctl)
	if err != nil {
		return err
	}

	res := txResult{Action: kind, Status: outcome.Status, Reason: outcome.Reason}
	if outcome.TxHash != (common.Hash{}) {
		res.TxHash = outcome.TxHash.Hex()
	}
	if kind.ChangesBalance() {
		res.Session = ctl.Session()
	}
	return renderTx(cmd.OutOrStdout(), cc.Format(), res)
}

func renderTx(w io.Writer, format output.Format, res txResult) error {
	if format == output.FormatJSON {
		return output.WriteJSON(w, res)
	}
	if res.TxHash != "" {
		out(w, "Transaction: %s\n", res.TxHash)
	}
	if res.Session != nil {
		out(w, "Balance:     %s ETH\n", res.Session.Balance)
	}
	return nil
}
