// Package errors provides structured error handling for coinfund.
// It defines the sentinel errors of the wallet/transaction taxonomy,
// exit codes, and helpers for adding context, details, and suggestions.
//
//nolint:revive // Package name intentionally shadows stdlib for domain-specific error handling
package errors

import (
	"errors"
	"fmt"
	"sort"
)

// Exit codes returned by the CLI.
const (
	ExitSuccess  = 0 // Successful execution
	ExitGeneral  = 1 // General/unknown error
	ExitInput    = 2 // Invalid input
	ExitAuth     = 3 // Authentication failed
	ExitNotFound = 4 // Resource not found
	ExitWallet   = 5 // Wallet unavailable, disconnected or on the wrong network
	ExitRejected = 6 // Transaction rejected or reverted
)

// CoinfundError is the structured error type for coinfund.
type CoinfundError struct {
	Code       string            // Machine-readable error code
	Message    string            // Human-readable message
	Details    map[string]string // Additional context
	Suggestion string            // Actionable suggestion for user
	Cause      error             // Underlying error
	ExitCode   int               // Exit code for CLI
}

func (e *CoinfundError) Error() string {
	msg := e.Message

	// Include details in error message (sorted for deterministic output)
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			msg = fmt.Sprintf("%s (%s: %s)", msg, k, e.Details[k])
		}
	}

	if e.Cause != nil && !isSelf(e.Cause, e.Code) {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *CoinfundError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for CoinfundError. Errors match by code.
func (e *CoinfundError) Is(target error) bool {
	var t *CoinfundError
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// isSelf reports whether cause is a bare sentinel with the same code,
// in which case repeating it in the message adds nothing.
func isSelf(cause error, code string) bool {
	var ce *CoinfundError
	if !errors.As(cause, &ce) {
		return false
	}
	return ce.Code == code && ce.Cause == nil && len(ce.Details) == 0
}

// Sentinel errors.
var (
	ErrGeneral = &CoinfundError{
		Code:     "GENERAL_ERROR",
		Message:  "an error occurred",
		ExitCode: ExitGeneral,
	}

	ErrInvalidInput = &CoinfundError{
		Code:     "INVALID_INPUT",
		Message:  "invalid input",
		ExitCode: ExitInput,
	}

	ErrNotFound = &CoinfundError{
		Code:     "NOT_FOUND",
		Message:  "resource not found",
		ExitCode: ExitNotFound,
	}

	// Wallet connectivity errors.
	ErrProviderUnavailable = &CoinfundError{
		Code:       "PROVIDER_UNAVAILABLE",
		Message:    "no wallet provider available",
		Suggestion: "configure a wallet with 'coinfund wallet init' or set wallet.mode to 'node' with a wallet endpoint",
		ExitCode:   ExitWallet,
	}

	ErrNoAccountConnected = &CoinfundError{
		Code:       "NO_ACCOUNT_CONNECTED",
		Message:    "no wallet account connected",
		Suggestion: "connect your wallet with 'coinfund connect'",
		ExitCode:   ExitWallet,
	}

	ErrNetworkMismatch = &CoinfundError{
		Code:       "NETWORK_MISMATCH",
		Message:    "wallet is connected to the wrong network",
		Suggestion: "switch your wallet to the required network",
		ExitCode:   ExitWallet,
	}

	ErrWalletLocked = &CoinfundError{
		Code:     "WALLET_LOCKED",
		Message:  "wallet is locked",
		ExitCode: ExitAuth,
	}

	ErrKeystoreNotFound = &CoinfundError{
		Code:       "KEYSTORE_NOT_FOUND",
		Message:    "wallet keystore not found",
		Suggestion: "create one with 'coinfund wallet init'",
		ExitCode:   ExitNotFound,
	}

	ErrKeystoreExists = &CoinfundError{
		Code:     "KEYSTORE_EXISTS",
		Message:  "wallet keystore already exists",
		ExitCode: ExitInput,
	}

	ErrInvalidMnemonic = &CoinfundError{
		Code:     "INVALID_MNEMONIC",
		Message:  "invalid mnemonic phrase",
		ExitCode: ExitInput,
	}

	ErrDecryptionFailed = &CoinfundError{
		Code:     "DECRYPTION_FAILED",
		Message:  "decryption failed - wrong password or corrupted file",
		ExitCode: ExitAuth,
	}

	// Transaction errors.
	ErrTransactionRejected = &CoinfundError{
		Code:     "TX_REJECTED",
		Message:  "transaction rejected",
		ExitCode: ExitRejected,
	}

	ErrSlotBusy = &CoinfundError{
		Code:       "ACTION_PENDING",
		Message:    "a transaction for this action is already pending",
		Suggestion: "wait for the pending transaction to resolve",
		ExitCode:   ExitInput,
	}

	// Read-side errors.
	ErrRPCFailure = &CoinfundError{
		Code:     "RPC_FAILURE",
		Message:  "network communication failed",
		ExitCode: ExitGeneral,
	}

	// Input validation errors.
	ErrInvalidAmount = &CoinfundError{
		Code:     "INVALID_AMOUNT",
		Message:  "invalid amount format",
		ExitCode: ExitInput,
	}

	ErrInvalidAddress = &CoinfundError{
		Code:     "INVALID_ADDRESS",
		Message:  "invalid address format",
		ExitCode: ExitInput,
	}

	// Config-specific errors.
	ErrConfigInvalid = &CoinfundError{
		Code:     "CONFIG_INVALID",
		Message:  "configuration is invalid",
		ExitCode: ExitInput,
	}

	ErrUnknownConfigKey = &CoinfundError{
		Code:     "UNKNOWN_CONFIG_KEY",
		Message:  "unknown config key",
		ExitCode: ExitInput,
	}
)

// New creates a new CoinfundError with the given code and message.
func New(code, message string) *CoinfundError {
	return &CoinfundError{
		Code:     code,
		Message:  message,
		ExitCode: ExitGeneral,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}

	msg := fmt.Sprintf(format, args...)

	var ce *CoinfundError
	if errors.As(err, &ce) {
		return &CoinfundError{
			Code:       ce.Code,
			Message:    fmt.Sprintf("%s: %s", msg, ce.Message),
			Details:    ce.Details,
			Suggestion: ce.Suggestion,
			Cause:      err,
			ExitCode:   ce.ExitCode,
		}
	}

	return &CoinfundError{
		Code:     "GENERAL_ERROR",
		Message:  msg,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// WithCause returns a copy of the sentinel carrying cause as its underlying error.
// The copy still matches the sentinel with errors.Is.
func WithCause(sentinel *CoinfundError, cause error) error {
	if sentinel == nil {
		return cause
	}
	return &CoinfundError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		Details:    sentinel.Details,
		Suggestion: sentinel.Suggestion,
		Cause:      cause,
		ExitCode:   sentinel.ExitCode,
	}
}

// WithDetails adds details to an error.
func WithDetails(err error, details map[string]string) error {
	if err == nil {
		return nil
	}

	var ce *CoinfundError
	if errors.As(err, &ce) {
		return &CoinfundError{
			Code:       ce.Code,
			Message:    ce.Message,
			Details:    details,
			Suggestion: ce.Suggestion,
			Cause:      ce.Cause,
			ExitCode:   ce.ExitCode,
		}
	}

	return &CoinfundError{
		Code:     "GENERAL_ERROR",
		Message:  err.Error(),
		Details:  details,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// WithSuggestion adds a suggestion to an error.
func WithSuggestion(err error, suggestion string) error {
	if err == nil {
		return nil
	}

	var ce *CoinfundError
	if errors.As(err, &ce) {
		return &CoinfundError{
			Code:       ce.Code,
			Message:    ce.Message,
			Details:    ce.Details,
			Suggestion: suggestion,
			Cause:      ce.Cause,
			ExitCode:   ce.ExitCode,
		}
	}

	return &CoinfundError{
		Code:       "GENERAL_ERROR",
		Message:    err.Error(),
		Suggestion: suggestion,
		Cause:      err,
		ExitCode:   ExitGeneral,
	}
}

// ExitCode returns the appropriate exit code for an error.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var ce *CoinfundError
	if errors.As(err, &ce) {
		return ce.ExitCode
	}

	return ExitGeneral
}

// Code returns the error code for an error.
func Code(err error) string {
	var ce *CoinfundError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return "GENERAL_ERROR"
}

// Is wraps errors.Is for convenience.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience.
func As(err error, target any) bool {
	return errors.As(err, target)
}
