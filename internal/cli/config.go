package cli

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/spf13/cobra"

	"github.com/mrz1836/coinfund/internal/config"
	"github.com/mrz1836/coinfund/internal/output"
	cferr "github.com/mrz1836/coinfund/pkg/errors"
)

// configCmd is the parent command for configuration operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `View and modify coinfund configuration settings.`,
}

// configInitCmd initializes the configuration.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	Long: `Create a default configuration file at ~/.coinfund/config.yaml.

If a configuration file already exists, this command will not overwrite it
unless --force is specified.`,
	Example: `  coinfund config init
  coinfund config init --force`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

// configShowCmd shows the current configuration.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration, including environment overrides.`,
	Example: `  coinfund config show
  coinfund config show -o json`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

// configGetCmd gets a specific configuration value.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configGetCmd = &cobra.Command{
	Use:   "get <path>",
	Short: "Get a configuration value",
	Long:  `Get a specific configuration value by its dotted path.`,
	Example: `  coinfund config get network.rpc
  coinfund config get wallet.mode
  coinfund config get wallet.networks.31337`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigGet,
}

// configSetCmd sets a configuration value.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configSetCmd = &cobra.Command{
	Use:   "set <path> <value>",
	Short: "Set a configuration value",
	Long: `Set a specific configuration value by its dotted path.
The configuration file is updated immediately.`,
	Example: `  coinfund config set network.rpc https://sepolia.infura.io/v3/YOUR_KEY
  coinfund config set wallet.mode node
  coinfund config set wallet.networks.31337 http://127.0.0.1:8545`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var configForce bool

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	configCmd.GroupID = groupConfig
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configShowCmd, configGetCmd, configSetCmd)

	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite existing configuration")
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	configPath := config.Path(cc.Cfg.GetHome())

	// Check if config already exists
	if _, err := os.Stat(configPath); err == nil && !configForce {
		return cferr.WithSuggestion(
			cferr.ErrGeneral,
			fmt.Sprintf("configuration already exists at %s. Use --force to overwrite.", configPath),
		)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	defaultCfg := config.Defaults()
	defaultCfg.Home = cc.Cfg.Home
	if err := config.Save(defaultCfg, configPath); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	w := cmd.OutOrStdout()
	out(w, "Configuration initialized at %s\n", configPath)
	outln(w)
	outln(w, "Edit this file to configure:")
	outln(w, "  - network.rpc: Read endpoint used when no wallet is available")
	outln(w, "  - network.factory_address: Campaign factory contract")
	outln(w, "  - wallet.mode: local, node or none")
	outln(w, "  - wallet.networks: Chain ID to RPC URL map for the local wallet")
	return nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	w := cmd.OutOrStdout()
	if cc.Format() == output.FormatJSON {
		return output.WriteJSON(w, configValues(cc.Cfg))
	}
	return displayConfigText(w, cc.Cfg)
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	cc := GetCmdContext(cmd)
	value, err := getConfigValue(cc.Cfg, args[0])
	if err != nil {
		return err
	}
	outln(cmd.OutOrStdout(), value)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	cc := GetCmdContext(cmd)
	path, value := args[0], args[1]

	// Load current config from file, without environment overrides
	configPath := config.Path(cc.Cfg.GetHome())
	currentCfg, err := config.Load(configPath)
	if err != nil {
		currentCfg = config.Defaults()
		currentCfg.Home = cc.Cfg.Home
	}

	if err := setConfigValue(currentCfg, path, value); err != nil {
		return err
	}
	if err := currentCfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(currentCfg, configPath); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	out(cmd.OutOrStdout(), "Set %s = %s\n", path, value)
	return nil
}

// configKey is one settable configuration path.
type configKey struct {
	path string
	get  func(c *config.Config) string
	set  func(c *config.Config, value string) error
}

//nolint:gochecknoglobals // static key table
var configKeys = []configKey{
	{"home", func(c *config.Config) string { return c.Home }, func(c *config.Config, v string) error {
		c.Home = v
		return nil
	}},
	{"network.rpc", func(c *config.Config) string { return c.Network.RPC }, func(c *config.Config, v string) error {
		c.Network.RPC = config.SanitizeURL(v)
		return nil
	}},
	{"network.required_chain_id", func(c *config.Config) string { return strconv.FormatInt(c.Network.RequiredChainID, 10) }, func(c *config.Config, v string) error {
		return setInt64(&c.Network.RequiredChainID, v)
	}},
	{"network.factory_address", func(c *config.Config) string { return c.Network.FactoryAddress }, func(c *config.Config, v string) error {
		c.Network.FactoryAddress = strings.TrimSpace(v)
		return nil
	}},
	{"network.rate_per_second", func(c *config.Config) string { return strconv.FormatFloat(c.Network.RatePerSecond, 'f', -1, 64) }, func(c *config.Config, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return invalidValue("network.rate_per_second", v, "a number")
		}
		c.Network.RatePerSecond = f
		return nil
	}},
	{"network.rate_burst", func(c *config.Config) string { return strconv.Itoa(c.Network.RateBurst) }, func(c *config.Config, v string) error {
		return setInt(&c.Network.RateBurst, "network.rate_burst", v)
	}},
	{"wallet.mode", func(c *config.Config) string { return c.Wallet.Mode }, func(c *config.Config, v string) error {
		switch v {
		case config.WalletModeLocal, config.WalletModeNode, config.WalletModeNone:
			c.Wallet.Mode = v
			return nil
		}
		return invalidValue("wallet.mode", v, "local, node or none")
	}},
	{"wallet.endpoint", func(c *config.Config) string { return c.Wallet.Endpoint }, func(c *config.Config, v string) error {
		c.Wallet.Endpoint = config.SanitizeURL(v)
		return nil
	}},
	{"wallet.keystore", func(c *config.Config) string { return c.Wallet.Keystore }, func(c *config.Config, v string) error {
		c.Wallet.Keystore = v
		return nil
	}},
	{"wallet.accounts", func(c *config.Config) string { return strconv.Itoa(c.Wallet.Accounts) }, func(c *config.Config, v string) error {
		return setInt(&c.Wallet.Accounts, "wallet.accounts", v)
	}},
	{"tx.receipt_poll_ms", func(c *config.Config) string { return strconv.Itoa(c.TX.ReceiptPollMS) }, func(c *config.Config, v string) error {
		return setInt(&c.TX.ReceiptPollMS, "tx.receipt_poll_ms", v)
	}},
	{"tx.timeout_seconds", func(c *config.Config) string { return strconv.Itoa(c.TX.TimeoutSeconds) }, func(c *config.Config, v string) error {
		return setInt(&c.TX.TimeoutSeconds, "tx.timeout_seconds", v)
	}},
	{"watch.poll_ms", func(c *config.Config) string { return strconv.Itoa(c.Watch.PollMS) }, func(c *config.Config, v string) error {
		return setInt(&c.Watch.PollMS, "watch.poll_ms", v)
	}},
	{"output.default_format", func(c *config.Config) string { return c.Output.DefaultFormat }, func(c *config.Config, v string) error {
		if v != "text" && v != "json" && v != "auto" {
			return invalidValue("output.default_format", v, "text, json or auto")
		}
		c.Output.DefaultFormat = v
		return nil
	}},
	{"output.color", func(c *config.Config) string { return c.Output.Color }, func(c *config.Config, v string) error {
		if v != "auto" && v != "always" && v != "never" {
			return invalidValue("output.color", v, "auto, always or never")
		}
		c.Output.Color = v
		return nil
	}},
	{"output.verbose", func(c *config.Config) string { return strconv.FormatBool(c.Output.Verbose) }, func(c *config.Config, v string) error {
		return setBool(&c.Output.Verbose, "output.verbose", v)
	}},
	{"logging.level", func(c *config.Config) string { return c.Logging.Level }, func(c *config.Config, v string) error {
		if v != "off" && v != "error" && v != "debug" {
			return invalidValue("logging.level", v, "off, error or debug")
		}
		c.Logging.Level = v
		return nil
	}},
	{"logging.file", func(c *config.Config) string { return c.Logging.File }, func(c *config.Config, v string) error {
		c.Logging.File = v
		return nil
	}},
	{"logging.json", func(c *config.Config) string { return strconv.FormatBool(c.Logging.JSON) }, func(c *config.Config, v string) error {
		return setBool(&c.Logging.JSON, "logging.json", v)
	}},
}

// walletNetworksPrefix addresses entries of the wallet.networks map.
const walletNetworksPrefix = "wallet.networks."

func findConfigKey(path string) (configKey, bool) {
	for _, k := range configKeys {
		if k.path == path {
			return k, true
		}
	}
	return configKey{}, false
}

// getConfigValue retrieves a value from the config using dot notation.
func getConfigValue(c *config.Config, path string) (string, error) {
	if id, ok := strings.CutPrefix(path, walletNetworksPrefix); ok {
		url, found := c.Wallet.Networks[id]
		if !found {
			return "", cferr.WithDetails(cferr.ErrNotFound, map[string]string{"key": path})
		}
		return url, nil
	}
	k, ok := findConfigKey(path)
	if !ok {
		return "", unknownKey(path)
	}
	return k.get(c), nil
}

// setConfigValue sets a value in the config using dot notation. An empty
// value removes a wallet.networks entry.
func setConfigValue(c *config.Config, path, value string) error {
	if id, ok := strings.CutPrefix(path, walletNetworksPrefix); ok {
		if _, err := strconv.ParseInt(id, 10, 64); err != nil {
			return invalidValue(path, id, "a decimal chain id")
		}
		if value == "" {
			delete(c.Wallet.Networks, id)
			return nil
		}
		if c.Wallet.Networks == nil {
			c.Wallet.Networks = map[string]string{}
		}
		c.Wallet.Networks[id] = config.SanitizeURL(value)
		return nil
	}
	k, ok := findConfigKey(path)
	if !ok {
		return unknownKey(path)
	}
	return k.set(c, value)
}

// unknownKey reports path together with the closest known key.
func unknownKey(path string) error {
	err := cferr.WithDetails(cferr.ErrUnknownConfigKey, map[string]string{"key": path})

	best, bestDist := "", math.MaxInt
	for _, k := range configKeys {
		if d := levenshtein.ComputeDistance(path, k.path); d < bestDist {
			best, bestDist = k.path, d
		}
	}
	if bestDist <= len(path)/3+1 {
		return cferr.WithSuggestion(err, fmt.Sprintf("did you mean '%s'?", best))
	}
	return cferr.WithSuggestion(err, "run 'coinfund config show' to list keys")
}

func invalidValue(key, value, valid string) error {
	return cferr.WithDetails(cferr.ErrInvalidInput, map[string]string{
		"key":   key,
		"value": value,
		"valid": valid,
	})
}

func setInt(dst *int, key, v string) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return invalidValue(key, v, "an integer")
	}
	*dst = n
	return nil
}

func setInt64(dst *int64, v string) error {
	n, err := strconv.ParseInt(v, 0, 64)
	if err != nil {
		return invalidValue("network.required_chain_id", v, "an integer chain id")
	}
	*dst = n
	return nil
}

func setBool(dst *bool, key, v string) error {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return invalidValue(key, v, "true or false")
	}
	*dst = b
	return nil
}

// configValues flattens the config into its dotted keys.
func configValues(c *config.Config) map[string]string {
	values := make(map[string]string, len(configKeys)+len(c.Wallet.Networks))
	for _, k := range configKeys {
		values[k.path] = k.get(c)
	}
	for id, url := range c.Wallet.Networks {
		values[walletNetworksPrefix+id] = url
	}
	return values
}

// displayConfigText shows the config in text format.
func displayConfigText(w io.Writer, c *config.Config) error {
	values := configValues(c)
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	table := output.NewTable("KEY", "VALUE")
	for _, k := range keys {
		v := values[k]
		if v == "" {
			v = "(not configured)"
		}
		table.AddRow(k, v)
	}
	outln(w, "Configuration:")
	outln(w)
	return table.Render(w)
}
