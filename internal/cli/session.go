package cli

import (
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/spf13/cobra"

	"github.com/mrz1836/coinfund/internal/chain"
	"github.com/mrz1836/coinfund/internal/network"
	"github.com/mrz1836/coinfund/internal/output"
	"github.com/mrz1836/coinfund/internal/session"
	cferr "github.com/mrz1836/coinfund/pkg/errors"
)

// connectCmd asks the wallet for access.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect your wallet",
	Long: `Ask the wallet for access to its account, load the account's balance and
check that the wallet is on the required network. When it is not, the wallet
is asked once to switch.`,
	Example: `  coinfund connect
  coinfund connect --yes -o json`,
	Args: cobra.NoArgs,
	RunE: runConnect,
}

// sessionCmd shows the current session.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Show the connected account, balance and network",
	Long: `Show the session of an already connected wallet without asking for access:
the account, its balance and whether the wallet is on the required network.`,
	Example: `  coinfund session
  coinfund session -o json`,
	Args: cobra.NoArgs,
	RunE: runSession,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	connectCmd.GroupID = groupWallet
	sessionCmd.GroupID = groupWallet
	rootCmd.AddCommand(connectCmd, sessionCmd)
}

// networkView is the JSON shape of the network guard.
type networkView struct {
	State    string `json:"state"`
	Active   string `json:"active,omitempty"`
	Required string `json:"required"`
	Prompt   string `json:"prompt,omitempty"`
}

// sessionView is the JSON shape of connect and session.
type sessionView struct {
	Wallet  string           `json:"wallet"`
	Session *session.Session `json:"session"`
	Network networkView      `json:"network"`
}

func newSessionView(ctl Controller) sessionView {
	st := ctl.Network()
	return sessionView{
		Wallet:  ctl.Capability().String(),
		Session: ctl.Session(),
		Network: networkView{
			State:    st.State.String(),
			Active:   chainLabel(st.Active),
			Required: chainLabel(st.Required),
			Prompt:   st.Prompt,
		},
	}
}

func chainLabel(id *big.Int) string {
	if id == nil {
		return ""
	}
	return fmt.Sprintf("%s (chain %s)", chain.NetworkName(id), id)
}

func runConnect(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	ctl, err := cc.openController(cmd)
	if err != nil {
		return err
	}
	defer ctl.Close()

	_, err = ctl.Connect(cmd.Context())
	if err != nil && !errors.Is(err, cferr.ErrNetworkMismatch) {
		return err
	}

	if renderErr := renderSession(cmd.OutOrStdout(), cc.Format(), newSessionView(ctl)); renderErr != nil {
		return renderErr
	}
	return err
}

func runSession(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	ctl, err := cc.openController(cmd)
	if err != nil {
		return err
	}
	defer ctl.Close()

	return renderSession(cmd.OutOrStdout(), cc.Format(), newSessionView(ctl))
}

func renderSession(w io.Writer, format output.Format, v sessionView) error {
	if format == output.FormatJSON {
		return output.WriteJSON(w, v)
	}

	if v.Session == nil {
		out(w, "Wallet:   %s\n", v.Wallet)
		outln(w, "Account:  not connected")
		return nil
	}

	out(w, "Account:  %s\n", v.Session.Account.Hex())
	out(w, "Balance:  %s ETH\n", v.Session.Balance)
	out(w, "Network:  %s\n", chainLabel(v.Session.ChainID))
	if v.Network.State == network.Matched.String() {
		outln(w, "Status:   ready")
	} else {
		out(w, "Status:   %s (requires %s)\n", v.Network.State, v.Network.Required)
	}
	return nil
}
