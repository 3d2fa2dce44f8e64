package cli

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mrz1836/coinfund/internal/app"
	"github.com/mrz1836/coinfund/internal/campaign"
	"github.com/mrz1836/coinfund/internal/config"
	"github.com/mrz1836/coinfund/internal/network"
	"github.com/mrz1836/coinfund/internal/output"
	"github.com/mrz1836/coinfund/internal/provider"
	"github.com/mrz1836/coinfund/internal/session"
	"github.com/mrz1836/coinfund/internal/txn"
	"github.com/mrz1836/coinfund/internal/wallet"
)

// Compile-time interface checks.
var (
	_ LogWriter      = (*config.Logger)(nil)
	_ FormatProvider = (*output.Formatter)(nil)
	_ Controller     = (*app.App)(nil)
)

// LogWriter provides logging capabilities.
// This interface enables mocking logging in tests.
type LogWriter interface {
	// Debug logs a debug-level message.
	Debug(format string, args ...any)

	// Error logs an error-level message.
	Error(format string, args ...any)
}

// FormatProvider provides output format information.
// This interface enables mocking output formatting in tests.
type FormatProvider interface {
	// Format returns the current output format.
	Format() output.Format
}

// Controller is what commands need from the wallet and campaign controller.
type Controller interface {
	Start(ctx context.Context) error
	Connect(ctx context.Context) (*session.Session, error)
	Session() *session.Session
	Subscribe(l session.Listener) (unsubscribe func())
	Network() network.Status
	Capability() provider.Capability
	Factory() common.Address
	LocalWallet() (*wallet.Wallet, bool)
	Watch(ctx context.Context) error

	Campaigns(ctx context.Context) ([]campaign.Listing, error)
	Campaign(ctx context.Context, address string) (*campaign.Summary, error)
	Requests(ctx context.Context, address string) (*app.RequestsView, error)

	Contribute(ctx context.Context, address, amount string) (txn.Outcome, error)
	CreateRequest(ctx context.Context, address, description, amount, recipient string) (txn.Outcome, error)
	ApproveRequest(ctx context.Context, address string, index uint64) (txn.Outcome, error)
	FinalizeRequest(ctx context.Context, address string, index uint64) (txn.Outcome, error)
	CreateCampaign(ctx context.Context, minimum, description string) (txn.Outcome, error)

	Close()
}
