package config

import (
	"errors"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"unicode"
)

// Environment variable names.
const (
	EnvHome            = "COINFUND_HOME"
	EnvFactoryProvider = "FACTORY_PROVIDER"
	EnvRPC             = "COINFUND_RPC"
	EnvChainID         = "COINFUND_CHAIN_ID"
	EnvFactory         = "COINFUND_FACTORY"
	EnvWallet          = "COINFUND_WALLET"
	EnvWalletEndpoint  = "COINFUND_WALLET_ENDPOINT"
	EnvOutputFormat    = "COINFUND_OUTPUT_FORMAT"
	EnvVerbose         = "COINFUND_VERBOSE"
	EnvLogLevel        = "COINFUND_LOG_LEVEL"
	EnvNoColor         = "NO_COLOR"
)

// ErrInsecureRPCURL is returned when an RPC URL would send traffic in clear text
// to a remote host or uses a scheme that is never an RPC endpoint.
var ErrInsecureRPCURL = errors.New("insecure RPC URL")

// ApplyEnvironment applies environment variable overrides to the configuration.
// FACTORY_PROVIDER is honored for deployments that already export it;
// COINFUND_RPC wins when both are set.
//
//nolint:gocognit,gocyclo // Environment variable overrides require sequential checks
func ApplyEnvironment(cfg *Config) {
	if v := os.Getenv(EnvHome); v != "" {
		cfg.Home = v
	}

	if v := os.Getenv(EnvFactoryProvider); v != "" {
		cfg.Network.RPC = SanitizeURL(v)
	}

	if v := os.Getenv(EnvRPC); v != "" {
		cfg.Network.RPC = SanitizeURL(v)
	}

	if v := os.Getenv(EnvChainID); v != "" {
		if id, err := strconv.ParseInt(strings.TrimSpace(v), 0, 64); err == nil && id > 0 {
			cfg.Network.RequiredChainID = id
		}
	}

	if v := os.Getenv(EnvFactory); v != "" {
		cfg.Network.FactoryAddress = strings.TrimSpace(v)
	}

	if v := os.Getenv(EnvWallet); v != "" {
		cfg.Wallet.Mode = strings.ToLower(strings.TrimSpace(v))
	}

	if v := os.Getenv(EnvWalletEndpoint); v != "" {
		cfg.Wallet.Endpoint = SanitizeURL(v)
	}

	if v := os.Getenv(EnvOutputFormat); v != "" {
		cfg.Output.DefaultFormat = strings.ToLower(v)
	}

	if v := os.Getenv(EnvVerbose); v != "" {
		cfg.Output.Verbose = parseBool(v)
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}

	// NO_COLOR disables colored output
	if _, ok := os.LookupEnv(EnvNoColor); ok {
		cfg.Output.Color = "never"
	}
}

// parseBool parses a boolean string value.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "1" || s == "true" || s == "yes" || s == "on" {
		return true
	}
	b, _ := strconv.ParseBool(s)
	return b
}

// SanitizeURL trims whitespace and drops control and space characters that
// copy-paste tends to leave inside RPC URLs.
func SanitizeURL(raw string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, strings.TrimSpace(raw))
}

// ValidateRPCURL rejects non-RPC schemes and plain-text transports to remote hosts.
// Loopback endpoints may use http or ws, which is how local dev nodes are reached.
// An empty URL means no endpoint is configured and is accepted.
func ValidateRPCURL(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ErrInsecureRPCURL
	}

	switch strings.ToLower(u.Scheme) {
	case "https", "wss":
		return nil
	case "http", "ws":
		if isLoopback(u.Hostname()) {
			return nil
		}
		return ErrInsecureRPCURL
	default:
		return ErrInsecureRPCURL
	}
}

func isLoopback(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
