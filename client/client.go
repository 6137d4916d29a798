// Package client is the public entry point: a thin wrapper over the internal
// pipeline that builds a ready-to-connect deribit.Client.
package client

import (
	deribit "github.com/QuantDreamGit/HFT-Deribit"
	"github.com/QuantDreamGit/HFT-Deribit/internal/config"
	"github.com/QuantDreamGit/HFT-Deribit/internal/metrics"
	"github.com/QuantDreamGit/HFT-Deribit/internal/ratelimit"
	"github.com/QuantDreamGit/HFT-Deribit/internal/wsclient"
)

type Config = wsclient.Config
type Credentials = config.Credentials
type RateLimitConfig = ratelimit.Config
type Metrics = metrics.Set

// New creates a client from cfg. The client is not connected yet; call
// Connect to open the transport and start the pipeline.
//
// Example:
//
//	creds, err := client.CredentialsFromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	c := client.New(client.DefaultConfig(creds))
//	if err := c.Connect(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Close()
func New(cfg *Config) deribit.Client {
	return wsclient.New(cfg)
}

// DefaultConfig targets the production endpoint with the exchange's default
// rate limits.
func DefaultConfig(creds Credentials) *Config {
	return &Config{
		URL:         deribit.MainnetURL,
		Credentials: creds,
		RateLimit:   ratelimit.DefaultConfig(),
	}
}

// TestnetConfig targets the test endpoint. Rate limits stay at the exchange
// defaults; testnet enforces them too.
func TestnetConfig(creds Credentials) *Config {
	return &Config{
		URL:         deribit.TestnetURL,
		Credentials: creds,
		RateLimit:   ratelimit.DefaultConfig(),
	}
}

// CredentialsFromEnv reads API credentials from DERIBIT_CLIENT_ID and
// DERIBIT_CLIENT_SECRET.
func CredentialsFromEnv() (Credentials, error) {
	return config.CredentialsFromEnv()
}
