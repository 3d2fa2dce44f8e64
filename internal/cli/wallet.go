package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mrz1836/coinfund/internal/output"
	"github.com/mrz1836/coinfund/internal/wallet"
	cferr "github.com/mrz1836/coinfund/pkg/errors"
)

// out is a helper for CLI output that ignores write errors (standard pattern for CLI tools).
//
//nolint:errcheck // CLI output writes to stdout are intentionally unchecked
func out(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format, args...)
}

// outln is a helper for CLI output with newline.
//
//nolint:errcheck // CLI output writes to stdout are intentionally unchecked
func outln(w io.Writer, args ...any) {
	fmt.Fprintln(w, args...)
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	// initWords is the number of words for mnemonic generation.
	initWords int
	// initImport reads an existing recovery phrase instead of generating one.
	initImport bool
	// initForce replaces an existing keystore.
	initForce bool
)

// walletCmd is the parent command for local wallet operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Manage the local HD wallet",
	Long: `Create the local HD wallet and manage its accounts.

The recovery phrase is encrypted with age and a password of your choice.
Only the selected account is exposed to coinfund once you connect.`,
}

// walletInitCmd creates the keystore.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create or import the local wallet",
	Long: `Create a new BIP39 recovery phrase, or import an existing one, and store it
in the encrypted keystore.

A generated phrase is displayed once. Write it down and store it securely.
Replacing a keystore with --force also forgets the previous wallet's
connection and account selection.`,
	Example: `  coinfund wallet init
  coinfund wallet init --words 24
  coinfund wallet init --import`,
	Args: cobra.NoArgs,
	RunE: runWalletInit,
}

// walletAccountsCmd lists derived accounts.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletAccountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "List wallet accounts",
	Long:  `List the accounts derived from the local wallet and show which one is connected.`,
	Example: `  coinfund wallet accounts
  coinfund wallet accounts -o json`,
	Args: cobra.NoArgs,
	RunE: runWalletAccounts,
}

// walletSelectCmd switches the exposed account.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletSelectCmd = &cobra.Command{
	Use:   "select <index>",
	Short: "Select the account to expose",
	Long: `Select which derived account the wallet exposes. When connected, the
session switches to the new account.`,
	Example: `  coinfund wallet select 1`,
	Args:    cobra.ExactArgs(1),
	RunE:    runWalletSelect,
}

// walletDisconnectCmd revokes access.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletDisconnectCmd = &cobra.Command{
	Use:     "disconnect",
	Short:   "Disconnect the wallet from coinfund",
	Long:    `Revoke coinfund's access to the wallet accounts. Run 'coinfund connect' to reconnect.`,
	Example: `  coinfund wallet disconnect`,
	Args:    cobra.NoArgs,
	RunE:    runWalletDisconnect,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	walletCmd.GroupID = groupWallet
	rootCmd.AddCommand(walletCmd)
	walletCmd.AddCommand(walletInitCmd, walletAccountsCmd, walletSelectCmd, walletDisconnectCmd)

	walletInitCmd.Flags().IntVar(&initWords, "words", 12, "number of recovery words: 12 or 24")
	walletInitCmd.Flags().BoolVar(&initImport, "import", false, "import an existing recovery phrase")
	walletInitCmd.Flags().BoolVar(&initForce, "force", false, "replace an existing keystore")
}

// walletInitResult is the JSON shape of wallet init.
type walletInitResult struct {
	Keystore string `json:"keystore"`
	Address  string `json:"address"`
	Mnemonic string `json:"mnemonic,omitempty"`
}

func runWalletInit(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	path := cc.Cfg.GetKeystorePath()
	ks := wallet.NewKeystore(path)

	if ks.Exists() {
		if !initForce {
			return cferr.WithSuggestion(
				cferr.WithDetails(cferr.ErrKeystoreExists, map[string]string{"path": path}),
				"use --force to replace it",
			)
		}
		if err := removeWalletFiles(path); err != nil {
			return err
		}
	}

	var (
		mnemonic string
		err      error
	)
	if initImport {
		mnemonic, err = promptMnemonicFn()
		if err != nil {
			return err
		}
		if err := wallet.ValidateMnemonic(mnemonic); err != nil {
			return err
		}
		mnemonic = wallet.NormalizeMnemonicInput(mnemonic)
	} else {
		mnemonic, err = wallet.GenerateMnemonic(initWords)
		if err != nil {
			return err
		}
	}

	address, err := firstAddress(mnemonic)
	if err != nil {
		return err
	}

	password, err := promptNewPasswordFn()
	if err != nil {
		return err
	}
	defer zeroBytes(password)

	if err := ks.Create(mnemonic, password); err != nil {
		return err
	}
	cc.Log.Debug("created keystore %s", path)

	result := walletInitResult{Keystore: path, Address: address}
	if !initImport {
		result.Mnemonic = mnemonic
	}

	w := cmd.OutOrStdout()
	if cc.Format() == output.FormatJSON {
		return output.WriteJSON(w, result)
	}

	out(w, "Wallet created at %s\n", path)
	out(w, "First account: %s\n", address)
	if result.Mnemonic != "" {
		outln(w)
		outln(w, "Recovery phrase (shown once, write it down):")
		outln(w)
		out(w, "  %s\n", result.Mnemonic)
	}
	outln(w)
	outln(w, "Run 'coinfund connect' to connect the wallet.")
	return nil
}

// removeWalletFiles deletes a keystore and the state that belongs to it.
func removeWalletFiles(keystorePath string) error {
	for _, p := range []string{keystorePath, wallet.StatePath(keystorePath)} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("removing %s: %w", p, err)
		}
	}
	return nil
}

func firstAddress(mnemonic string) (string, error) {
	seed, err := wallet.MnemonicToSeed(mnemonic, "")
	if err != nil {
		return "", err
	}
	defer zeroBytes(seed)

	accounts, _, err := wallet.DeriveAccounts(seed, 1)
	if err != nil {
		return "", err
	}
	return accounts[0].Address.Hex(), nil
}

// accountEntry is one row of wallet accounts.
type accountEntry struct {
	Index     uint32 `json:"index"`
	Path      string `json:"path"`
	Address   string `json:"address"`
	Connected bool   `json:"connected"`
}

func runWalletAccounts(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	ctl, w, err := openLocalWallet(cmd, cc)
	if err != nil {
		return err
	}
	defer ctl.Close()

	accounts, err := w.Accounts(cmd.Context())
	if err != nil {
		return err
	}

	var connected string
	if s := ctl.Session(); s != nil {
		connected = s.Account.Hex()
	}

	entries := make([]accountEntry, 0, len(accounts))
	for _, a := range accounts {
		entries = append(entries, accountEntry{
			Index:     a.Index,
			Path:      a.Path,
			Address:   a.Address.Hex(),
			Connected: a.Address.Hex() == connected,
		})
	}

	wr := cmd.OutOrStdout()
	if cc.Format() == output.FormatJSON {
		return output.WriteJSON(wr, entries)
	}

	table := output.NewTable("INDEX", "ADDRESS", "PATH", "")
	table.SetAlign(0, output.AlignRight)
	for _, e := range entries {
		marker := ""
		if e.Connected {
			marker = "connected"
		}
		table.AddRow(strconv.FormatUint(uint64(e.Index), 10), e.Address, e.Path, marker)
	}
	return table.Render(wr)
}

func runWalletSelect(cmd *cobra.Command, args []string) error {
	index, err := strconv.Atoi(args[0])
	if err != nil {
		return cferr.WithDetails(cferr.ErrInvalidInput, map[string]string{"index": args[0]})
	}

	cc := GetCmdContext(cmd)
	ctl, w, err := openLocalWallet(cmd, cc)
	if err != nil {
		return err
	}
	defer ctl.Close()

	if err := w.SelectAccount(cmd.Context(), index); err != nil {
		return err
	}
	w.Drain()

	accounts, err := w.Accounts(cmd.Context())
	if err != nil {
		return err
	}
	selected := accounts[index]

	wr := cmd.OutOrStdout()
	if cc.Format() == output.FormatJSON {
		return output.WriteJSON(wr, map[string]any{
			"selected": accountEntry{
				Index:     selected.Index,
				Path:      selected.Path,
				Address:   selected.Address.Hex(),
				Connected: ctl.Session() != nil,
			},
			"session": ctl.Session(),
		})
	}
	out(wr, "Selected account %d: %s\n", selected.Index, selected.Address.Hex())
	return nil
}

func runWalletDisconnect(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	ctl, w, err := openLocalWallet(cmd, cc)
	if err != nil {
		return err
	}
	defer ctl.Close()

	if err := w.Disconnect(); err != nil {
		return err
	}
	w.Drain()

	return output.FormatSuccess(cmd.OutOrStdout(), "Wallet disconnected", cc.Format())
}

// openLocalWallet opens the controller and requires the local HD wallet.
func openLocalWallet(cmd *cobra.Command, cc *CommandContext) (Controller, *wallet.Wallet, error) {
	ctl, err := cc.openController(cmd)
	if err != nil {
		return nil, nil, err
	}
	w, ok := ctl.LocalWallet()
	if !ok {
		ctl.Close()
		return nil, nil, cferr.WithSuggestion(cferr.ErrProviderUnavailable,
			"this command needs the local wallet; run 'coinfund wallet init' and set wallet.mode to local")
	}
	return ctl, w, nil
}
