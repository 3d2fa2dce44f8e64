package config

import "github.com/mrz1836/coinfund/internal/chain"

// DefaultRPCURL is the read-only fallback endpoint used when no wallet is present.
const DefaultRPCURL = "https://ethereum-sepolia-rpc.publicnode.com"

// DefaultFactoryAddress is the deployed CampaignFactory contract.
const DefaultFactoryAddress = "0x79b30208764ECf3401005AB6f26b3E52171ca393"

// Defaults returns the default configuration.
func Defaults() *Config {
	return &Config{
		Version: 1,
		Home:    "~/.coinfund",
		Network: NetworkConfig{
			RPC:             DefaultRPCURL,
			RequiredChainID: chain.Sepolia,
			FactoryAddress:  DefaultFactoryAddress,
			RatePerSecond:   10,
			RateBurst:       20,
		},
		Wallet: WalletConfig{
			Mode:     WalletModeLocal,
			Keystore: "~/.coinfund/keystore.age",
			Accounts: 5,
			Networks: map[string]string{
				"11155111": DefaultRPCURL,
			},
		},
		TX: TXConfig{
			ReceiptPollMS:  1000,
			TimeoutSeconds: 300,
		},
		Watch: WatchConfig{
			PollMS: 2000,
		},
		Output: OutputConfig{
			DefaultFormat: "auto",
			Color:         "auto",
			Verbose:       false,
		},
		Logging: LoggingConfig{
			Level: "error",
			File:  "~/.coinfund/coinfund.log",
		},
	}
}
