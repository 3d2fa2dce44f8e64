// Package config provides configuration management for coinfund.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	"github.com/mrz1836/coinfund/internal/fileutil"
	cferr "github.com/mrz1836/coinfund/pkg/errors"
)

// Wallet modes select which provider the detector finds in the environment.
const (
	WalletModeLocal = "local" // HD wallet from the age-encrypted keystore
	WalletModeNode  = "node"  // JSON-RPC endpoint exposing unlocked accounts
	WalletModeNone  = "none"  // no wallet, read-only fallback endpoint only
)

// Config represents the application configuration.
type Config struct {
	Version int           `yaml:"version"`
	Home    string        `yaml:"home"`
	Network NetworkConfig `yaml:"network"`
	Wallet  WalletConfig  `yaml:"wallet"`
	TX      TXConfig      `yaml:"tx"`
	Watch   WatchConfig   `yaml:"watch"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
}

// NetworkConfig defines the fallback endpoint and the network the app requires.
type NetworkConfig struct {
	RPC             string  `yaml:"rpc"`
	RequiredChainID int64   `yaml:"required_chain_id"`
	FactoryAddress  string  `yaml:"factory_address"`
	RatePerSecond   float64 `yaml:"rate_per_second"`
	RateBurst       int     `yaml:"rate_burst"`
}

// WalletConfig defines how the wallet provider is constructed.
type WalletConfig struct {
	Mode     string `yaml:"mode"`
	Endpoint string `yaml:"endpoint,omitempty"`
	Keystore string `yaml:"keystore"`
	Accounts int    `yaml:"accounts"`
	// Networks maps chain IDs (decimal) to RPC URLs the local wallet may switch to.
	Networks map[string]string `yaml:"networks,omitempty"`
}

// TXConfig defines transaction tracking settings.
type TXConfig struct {
	ReceiptPollMS  int `yaml:"receipt_poll_ms"`
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// WatchConfig defines the account/chain poller used by providers without push events.
type WatchConfig struct {
	PollMS int `yaml:"poll_ms"`
}

// OutputConfig defines output formatting settings.
type OutputConfig struct {
	DefaultFormat string `yaml:"default_format"`
	Color         string `yaml:"color"`
	Verbose       bool   `yaml:"verbose"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
	JSON  bool   `yaml:"json"`
}

// Load reads configuration from the specified file on top of the defaults.
func Load(path string) (*Config, error) {
	// #nosec G304 -- config file path is from validated user input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, cferr.WithCause(cferr.ErrConfigInvalid, err)
	}

	return cfg, nil
}

// Save writes configuration to the specified file.
func Save(cfg *Config, path string) error {
	return fileutil.WriteYAML(path, cfg, 0o600)
}

// Path returns the default config file path.
func Path(home string) string {
	return filepath.Join(home, "config.yaml")
}

// DefaultHome returns the default coinfund home directory.
func DefaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".coinfund"
	}
	return filepath.Join(home, ".coinfund")
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// Validate checks values that would otherwise fail deep inside a command.
func (c *Config) Validate() error {
	if c.Network.RequiredChainID <= 0 {
		return cferr.WithDetails(cferr.ErrConfigInvalid, map[string]string{
			"key":    "network.required_chain_id",
			"reason": "must be positive",
		})
	}
	if err := ValidateRPCURL(c.Network.RPC); err != nil {
		return cferr.WithDetails(cferr.WithCause(cferr.ErrConfigInvalid, err), map[string]string{
			"key": "network.rpc",
		})
	}
	if c.Network.FactoryAddress != "" && !common.IsHexAddress(c.Network.FactoryAddress) {
		return cferr.WithDetails(cferr.ErrConfigInvalid, map[string]string{
			"key":    "network.factory_address",
			"reason": "not a hex address",
		})
	}
	switch c.Wallet.Mode {
	case WalletModeLocal, WalletModeNone:
	case WalletModeNode:
		if c.Wallet.Endpoint == "" {
			return cferr.WithDetails(cferr.ErrConfigInvalid, map[string]string{
				"key":    "wallet.endpoint",
				"reason": "required when wallet.mode is node",
			})
		}
	default:
		return cferr.WithDetails(cferr.ErrConfigInvalid, map[string]string{
			"key":    "wallet.mode",
			"reason": fmt.Sprintf("unknown mode %q", c.Wallet.Mode),
		})
	}
	for id := range c.Wallet.Networks {
		if _, err := strconv.ParseInt(id, 10, 64); err != nil {
			return cferr.WithDetails(cferr.ErrConfigInvalid, map[string]string{
				"key":    "wallet.networks",
				"reason": fmt.Sprintf("chain id %q is not a decimal number", id),
			})
		}
	}
	return nil
}

// GetHome returns the coinfund home directory path.
func (c *Config) GetHome() string {
	return ExpandHome(c.Home)
}

// GetRPC returns the fallback RPC URL.
func (c *Config) GetRPC() string {
	return c.Network.RPC
}

// GetRequiredChainID returns the chain the app insists on.
func (c *Config) GetRequiredChainID() int64 {
	return c.Network.RequiredChainID
}

// GetFactoryAddress returns the CampaignFactory contract address.
func (c *Config) GetFactoryAddress() string {
	return c.Network.FactoryAddress
}

// GetKeystorePath returns the expanded keystore path.
func (c *Config) GetKeystorePath() string {
	if c.Wallet.Keystore == "" {
		return filepath.Join(c.GetHome(), "keystore.age")
	}
	return ExpandHome(c.Wallet.Keystore)
}

// GetReceiptPollInterval returns how often pending transactions are checked.
func (c *Config) GetReceiptPollInterval() time.Duration {
	if c.TX.ReceiptPollMS <= 0 {
		return time.Second
	}
	return time.Duration(c.TX.ReceiptPollMS) * time.Millisecond
}

// GetTxTimeout returns how long a contract call may take before giving up.
func (c *Config) GetTxTimeout() time.Duration {
	if c.TX.TimeoutSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.TX.TimeoutSeconds) * time.Second
}

// GetWatchInterval returns the account/chain polling interval.
func (c *Config) GetWatchInterval() time.Duration {
	if c.Watch.PollMS <= 0 {
		return 2 * time.Second
	}
	return time.Duration(c.Watch.PollMS) * time.Millisecond
}

// GetLoggingLevel returns the configured logging level.
func (c *Config) GetLoggingLevel() string {
	return c.Logging.Level
}

// GetLoggingFile returns the configured log file path.
func (c *Config) GetLoggingFile() string {
	return c.Logging.File
}

// GetOutputFormat returns the default output format.
func (c *Config) GetOutputFormat() string {
	return c.Output.DefaultFormat
}

// IsVerbose returns true if verbose output is enabled.
func (c *Config) IsVerbose() bool {
	return c.Output.Verbose
}
