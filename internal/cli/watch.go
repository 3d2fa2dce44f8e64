package cli

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrz1836/coinfund/internal/output"
	"github.com/mrz1836/coinfund/internal/session"
)

// watchCmd follows the session live.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow account, balance and network changes",
	Long: `Keep the session live and print it every time the wallet's account or
network changes. A network change is checked against the required network.
Stop with Ctrl-C.`,
	Example: `  coinfund watch
  coinfund watch -o json`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	watchCmd.GroupID = groupWallet
	rootCmd.AddCommand(watchCmd)
}

// sessionChange is one line of watch output in JSON mode.
type sessionChange struct {
	Time    time.Time        `json:"time"`
	Session *session.Session `json:"session"`
	Network networkView      `json:"network"`
}

func runWatch(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	ctl, err := cc.openController(cmd)
	if err != nil {
		return err
	}
	defer ctl.Close()

	w := cmd.OutOrStdout()
	format := cc.Format()
	show := func() {
		v := newSessionView(ctl)
		if format == output.FormatJSON {
			_ = output.WriteJSONLine(w, sessionChange{Time: time.Now().UTC(), Session: v.Session, Network: v.Network})
			return
		}
		_ = renderSession(w, format, v)
		outln(w)
	}

	show()
	unsubscribe := ctl.Subscribe(func(*session.Session) { show() })
	defer unsubscribe()

	err = ctl.Watch(cmd.Context())
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
