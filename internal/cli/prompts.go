package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/mrz1836/coinfund/internal/chain"
	"github.com/mrz1836/coinfund/internal/wallet"
	cferr "github.com/mrz1836/coinfund/pkg/errors"
)

// Prompt hooks, replaced in tests.
//
//nolint:gochecknoglobals // swapped by tests
var (
	promptPasswordFn    = promptPassword
	promptNewPasswordFn = promptNewPassword
	promptConfirmFn     = promptConfirmation
	promptMnemonicFn    = promptMnemonic
)

// minPasswordLength is the shortest keystore password accepted.
const minPasswordLength = 8

// promptPassword prompts for a password with hidden input.
// The caller is responsible for zeroing the returned bytes after use.
func promptPassword(prompt string) ([]byte, error) {
	out(os.Stderr, "%s", prompt)

	password, err := term.ReadPassword(syscall.Stdin)
	outln(os.Stderr) // Add newline after hidden input

	if err != nil {
		return nil, fmt.Errorf("reading password: %w", err)
	}

	return password, nil
}

// promptNewPassword prompts for a new password with confirmation.
// The caller is responsible for zeroing the returned bytes after use.
func promptNewPassword() ([]byte, error) {
	password, err := promptPasswordFn("Enter encryption password: ")
	if err != nil {
		return nil, err
	}

	if len(password) < minPasswordLength {
		zeroBytes(password)
		return nil, cferr.WithSuggestion(
			cferr.ErrInvalidInput,
			fmt.Sprintf("password must be at least %d characters", minPasswordLength),
		)
	}

	confirm, err := promptPasswordFn("Confirm password: ")
	if err != nil {
		zeroBytes(password)
		return nil, err
	}
	defer zeroBytes(confirm)

	if string(password) != string(confirm) {
		zeroBytes(password)
		return nil, cferr.WithSuggestion(
			cferr.ErrInvalidInput,
			"passwords do not match",
		)
	}

	return password, nil
}

// promptConfirmation asks a yes/no question, defaulting to no.
func promptConfirmation(question string) bool {
	out(os.Stderr, "%s [y/N]: ", question)

	var response string
	if _, err := fmt.Scanln(&response); err != nil {
		return false
	}

	response = strings.ToLower(strings.TrimSpace(response))
	return response == "y" || response == "yes"
}

// promptMnemonic reads a recovery phrase from one line of stdin.
func promptMnemonic() (string, error) {
	outln(os.Stderr, "Enter your recovery phrase (all words on one line):")

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", cferr.WithSuggestion(cferr.ErrInvalidInput, "no input provided")
	}
	return strings.TrimSpace(line), nil
}

// approver asks before the local wallet connects, switches or signs.
func approver(assumeYes bool) wallet.Approver {
	return func(_ context.Context, req wallet.ApprovalRequest) bool {
		if assumeYes {
			return true
		}
		return promptConfirmFn(describeApproval(req))
	}
}

func describeApproval(req wallet.ApprovalRequest) string {
	switch req.Kind {
	case wallet.ApproveConnect:
		return fmt.Sprintf("Connect account %s to coinfund?", req.Account.Hex())
	case wallet.ApproveSwitch:
		return fmt.Sprintf("Switch wallet to %s (chain %s)?", chain.NetworkName(req.ChainID), req.ChainID)
	case wallet.ApproveSign:
		if req.Tx == nil {
			return fmt.Sprintf("Sign a transaction from %s?", req.Account.Hex())
		}
		to := "a new contract"
		if req.Tx.To != nil {
			to = req.Tx.To.Hex()
		}
		value := "0"
		if req.Tx.Value != nil {
			value = chain.FormatEther(req.Tx.Value.ToInt())
		}
		return fmt.Sprintf("Send %s ETH from %s to %s on %s?", value, req.Account.Hex(), to, chain.NetworkName(req.ChainID))
	}
	return fmt.Sprintf("Approve %s request?", req.Kind)
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
