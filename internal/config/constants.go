package config

import "time"

// Protected token: accounts holding this mint are never burned or closed.
const DefaultExcludedMint = "3bRTivrVsitbmCTGtqwp7hxXPsybkjn4XLNtPsHqa3zR"

// Batching. Sizes keep each transaction under the packet and compute limits.
const (
	DefaultBurnBatchSize  = 13
	DefaultCloseBatchSize = 27
	MaxInstructionsPerTx  = 64
)

// Transaction
const (
	SOLMaxTxSize = 1232 // bytes, one UDP packet
)

// SPL Token account layout
const (
	TokenAccountSize      = 165
	TokenAccountMintOff   = 0
	TokenAccountOwnerOff  = 32
	TokenAccountAmountOff = 64
)

// RPC
const (
	DefaultRPCURL              = "https://api.mainnet-beta.solana.com"
	DefaultRPCRequestsPerSec   = 10
	DefaultConfirmPollInterval = 2 * time.Second
	RPCRequestTimeout          = 30 * time.Second
)

// Logging
const (
	LogFilePrefix  = "splreaper-"
	LogFilePattern = "splreaper-%s.log" // %s = YYYY-MM-DD
	LogMaxAgeDays  = 30
)

// Ledger
const (
	LedgerBusyTimeout = 5000 // milliseconds
)
