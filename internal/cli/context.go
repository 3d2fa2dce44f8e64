package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mrz1836/coinfund/internal/app"
	"github.com/mrz1836/coinfund/internal/config"
	"github.com/mrz1836/coinfund/internal/metrics"
	"github.com/mrz1836/coinfund/internal/output"
)

// AppOpener builds the controller a command talks to.
type AppOpener func(ctx context.Context, cc *CommandContext, notifier output.Notifier) (Controller, error)

// CommandContext holds dependencies for CLI commands.
type CommandContext struct {
	Cfg       *config.Config
	Log       LogWriter
	Fmt       FormatProvider
	AssumeYes bool

	// Notifier overrides the console notifier built from the command's
	// output streams.
	Notifier output.Notifier
	// Open builds the controller; it defaults to openApp.
	Open AppOpener
}

// NewCommandContext creates a context with the given dependencies.
func NewCommandContext(cfg *config.Config, log LogWriter, fmtr FormatProvider) *CommandContext {
	return &CommandContext{
		Cfg:  cfg,
		Log:  log,
		Fmt:  fmtr,
		Open: openApp,
	}
}

// WithOpener sets the controller factory.
func (c *CommandContext) WithOpener(open AppOpener) *CommandContext {
	c.Open = open
	return c
}

// WithNotifier sets the notifier.
func (c *CommandContext) WithNotifier(n output.Notifier) *CommandContext {
	c.Notifier = n
	return c
}

// Format returns the output format, text when none is set.
func (c *CommandContext) Format() output.Format {
	if c.Fmt == nil {
		return output.FormatText
	}
	return c.Fmt.Format()
}

type cmdContextKey struct{}

// SetCmdContext attaches cc to the command's context.
func SetCmdContext(cmd *cobra.Command, cc *CommandContext) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, cmdContextKey{}, cc))
}

// GetCmdContext returns the context attached by SetCmdContext, or nil.
func GetCmdContext(cmd *cobra.Command) *CommandContext {
	ctx := cmd.Context()
	if ctx == nil {
		return nil
	}
	cc, _ := ctx.Value(cmdContextKey{}).(*CommandContext)
	return cc
}

// notifier returns the notifier for cmd. Console notices go to stderr so
// stdout carries only the command's result.
func (c *CommandContext) notifier(cmd *cobra.Command) output.Notifier {
	if c.Notifier != nil {
		return c.Notifier
	}
	return output.NewConsole(cmd.ErrOrStderr(), cmd.ErrOrStderr(), c.Format())
}

// openController builds the controller for cmd and loads the session.
func (c *CommandContext) openController(cmd *cobra.Command) (Controller, error) {
	open := c.Open
	if open == nil {
		open = openApp
	}
	ctl, err := open(cmd.Context(), c, c.notifier(cmd))
	if err != nil {
		return nil, err
	}
	if err := ctl.Start(cmd.Context()); err != nil {
		ctl.Close()
		return nil, err
	}
	return ctl, nil
}

func openApp(ctx context.Context, cc *CommandContext, notifier output.Notifier) (Controller, error) {
	if err := cc.Cfg.Validate(); err != nil {
		return nil, err
	}
	opts := app.Options{
		Config:   cc.Cfg,
		Notifier: notifier,
		Metrics:  metrics.Global,
		Password: func() ([]byte, error) {
			return promptPasswordFn("Enter wallet password: ")
		},
		Approve: approver(cc.AssumeYes),
	}
	if cc.Log != nil {
		opts.Logger = cc.Log
	}
	return app.New(ctx, opts)
}
