package main

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/NEAR-DevHub/near-treasury-sub001/internal/metrics"
)

type config struct {
	LogFormat  string `envconfig:"LOG_FORMAT" default:"text"`
	ListenAddr string `envconfig:"LISTEN_ADDR" default:":8080"`

	// NEAR JSON-RPC endpoint the view calls and polling go through.
	RPCURL string `envconfig:"NEAR_RPC_URL" required:"true"`

	// Wallet bridge that signs and sends the prepared transactions.
	WalletBridgeURL string `envconfig:"WALLET_BRIDGE_URL" required:"true"`

	// Credits service for the per-org recipient quota.
	CreditsURL string `envconfig:"CREDITS_URL" required:"true"`

	// Optional redis backing for UI preferences; empty means in-memory.
	RedisURL    string `envconfig:"REDIS_URL"`
	RedisPrefix string `envconfig:"REDIS_PREFIX" default:"treasury"`

	PollInterval    time.Duration `envconfig:"POLL_INTERVAL" default:"1s"`
	PollMaxAttempts int           `envconfig:"POLL_MAX_ATTEMPTS" default:"60"`

	Metrics metrics.Config
}

func newConfig() (config, error) {
	var cfg config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return config{}, fmt.Errorf("failed to process env var: %w", err)
	}
	return cfg, nil
}
