// Package config loads environment-driven configuration for the
// co-investment coordination layer.
package config

import (
	"fmt"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// Config holds every tunable the daemon and CLI share.
type Config struct {
	// BackendURL is the base URL of the platform REST backend, including
	// the /api prefix.
	BackendURL string `env:"COINVEST_BACKEND_URL,default=http://localhost:8080/api"`

	// ChainRPCURL is the JSON-RPC endpoint of an EVM-compatible node.
	ChainRPCURL string `env:"COINVEST_CHAIN_RPC,default=http://localhost:8545"`

	// ContractAddress is the deployed property-share contract.
	ContractAddress string `env:"COINVEST_CONTRACT_ADDRESS,default="`

	// MetaMaskBridgeURL and KaiaBridgeURL point at the wallet bridge RPC
	// endpoints. Empty disables the corresponding provider.
	MetaMaskBridgeURL string `env:"COINVEST_METAMASK_BRIDGE,default="`
	KaiaBridgeURL     string `env:"COINVEST_KAIA_BRIDGE,default="`

	// PostgresDSN enables the durable local state store. Empty falls back
	// to the in-memory store.
	PostgresDSN string `env:"COINVEST_POSTGRES_DSN,default="`

	// ListenAddress is where the daemon serves its HTTP API and metrics.
	ListenAddress string `env:"COINVEST_LISTEN,default=:8090"`

	// RentWindow configures the rent payment window policy. Accepts a
	// range ("5-10"), a single day ("13") or a comma list ("5,6,13").
	RentWindow string `env:"COINVEST_RENT_WINDOW,default=5-10"`

	// ReminderSpec is the cron spec for the payment reminder job.
	ReminderSpec string `env:"COINVEST_REMINDER_SPEC,default=0 9 * * *"`

	// RPCRateLimit caps chain RPC requests per second.
	RPCRateLimit int `env:"COINVEST_RPC_RATE,default=10"`

	// HTTPTimeout applies to backend and RPC round trips.
	HTTPTimeout time.Duration `env:"COINVEST_HTTP_TIMEOUT,default=10s"`
}

// Load reads .env (when present) and decodes the environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode environment: %w", err)
	}
	return cfg, nil
}
