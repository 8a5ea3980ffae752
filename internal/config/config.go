// Package config loads and validates runtime settings and defines shared errors.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// RPCURL keeps the SOLANA_RPC name so existing setups keep working.
	RPCURL       string `envconfig:"SOLANA_RPC" default:"https://api.mainnet-beta.solana.com"`
	KeypairFile  string `envconfig:"SPLREAPER_KEYPAIR_FILE" default:"./id.json"`
	ExcludedMint string `envconfig:"SPLREAPER_EXCLUDED_MINT" default:"3bRTivrVsitbmCTGtqwp7hxXPsybkjn4XLNtPsHqa3zR"`

	BurnBatchSize  int `envconfig:"SPLREAPER_BURN_BATCH_SIZE" default:"13"`
	CloseBatchSize int `envconfig:"SPLREAPER_CLOSE_BATCH_SIZE" default:"27"`

	RPCRequestsPerSecond int           `envconfig:"SPLREAPER_RPC_RPS" default:"10"`
	ConfirmPollInterval  time.Duration `envconfig:"SPLREAPER_CONFIRM_POLL_INTERVAL" default:"2s"`

	LedgerPath string `envconfig:"SPLREAPER_LEDGER_PATH"`
	LogLevel   string `envconfig:"SPLREAPER_LOG_LEVEL" default:"info"`
	LogDir     string `envconfig:"SPLREAPER_LOG_DIR"`
}

// Load reads configuration from .env file (if present) then from environment variables.
// Environment variables override .env values. The result is not validated:
// callers apply command-line overrides first, then call Validate.
func Load() (*Config, error) {
	// godotenv does NOT override already-set env vars.
	envFiles := []string{".env"}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err == nil {
			if err := godotenv.Load(f); err != nil {
				slog.Warn("failed to load .env file", "file", f, "error", err)
			} else {
				slog.Info("loaded .env file", "file", f)
			}
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}

	return &cfg, nil
}

// ApplyOverrides replaces the keypair path, RPC endpoint and ledger path
// with any non-empty value given on the command line.
func (c *Config) ApplyOverrides(keypairFile, rpcURL, ledgerPath string) {
	if keypairFile != "" {
		c.KeypairFile = keypairFile
	}
	if rpcURL != "" {
		c.RPCURL = rpcURL
	}
	if ledgerPath != "" {
		c.LedgerPath = ledgerPath
	}
}

// Validate checks configuration values for correctness.
func (c *Config) Validate() error {
	u, err := url.Parse(c.RPCURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: SOLANA_RPC must be an http(s) URL, got %q", ErrInvalidConfig, c.RPCURL)
	}
	if c.KeypairFile == "" {
		return fmt.Errorf("%w: keypair file path is empty", ErrInvalidConfig)
	}
	if _, err := solana.PublicKeyFromBase58(c.ExcludedMint); err != nil {
		return fmt.Errorf("%w: excluded mint %q: %s", ErrInvalidConfig, c.ExcludedMint, err)
	}
	if c.BurnBatchSize < 1 || c.BurnBatchSize > MaxInstructionsPerTx {
		return fmt.Errorf("%w: burn batch size must be 1-%d, got %d", ErrInvalidConfig, MaxInstructionsPerTx, c.BurnBatchSize)
	}
	if c.CloseBatchSize < 1 || c.CloseBatchSize > MaxInstructionsPerTx {
		return fmt.Errorf("%w: close batch size must be 1-%d, got %d", ErrInvalidConfig, MaxInstructionsPerTx, c.CloseBatchSize)
	}
	if c.RPCRequestsPerSecond < 1 {
		return fmt.Errorf("%w: RPC rate limit must be positive, got %d", ErrInvalidConfig, c.RPCRequestsPerSecond)
	}
	if c.ConfirmPollInterval <= 0 {
		return fmt.Errorf("%w: confirm poll interval must be positive, got %s", ErrInvalidConfig, c.ConfirmPollInterval)
	}
	return nil
}

// ExcludedMintKey returns the parsed protected mint. Only valid after Validate.
func (c *Config) ExcludedMintKey() solana.PublicKey {
	return solana.MustPublicKeyFromBase58(c.ExcludedMint)
}
