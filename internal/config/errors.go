package config

import "errors"

// Fatal errors: any of these aborts the run.
var (
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrKeyFileNotFound    = errors.New("keypair file not found")
	ErrInvalidKeyFile     = errors.New("invalid keypair file")
	ErrAccountFetchFailed = errors.New("token account fetch failed")
	ErrMalformedAccount   = errors.New("malformed token account data")
)

// Batch errors: isolated to the batch that produced them.
var (
	ErrBlockhashFetchFailed = errors.New("recent blockhash fetch failed")
	ErrTxBuildFailed        = errors.New("transaction build failed")
	ErrTxTooLarge           = errors.New("SOL transaction exceeds 1232 byte limit")
	ErrTxSendFailed         = errors.New("transaction broadcast failed")
	ErrTxFailed             = errors.New("SOL transaction failed on-chain")
	ErrBlockhashExpired     = errors.New("recent blockhash expired before confirmation")
)

// IsFatal reports whether err belongs to the run-aborting class.
func IsFatal(err error) bool {
	return errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrKeyFileNotFound) ||
		errors.Is(err, ErrInvalidKeyFile) ||
		errors.Is(err, ErrAccountFetchFailed) ||
		errors.Is(err, ErrMalformedAccount)
}

// Error codes recorded in the ledger next to the human-readable message.
const (
	ErrorBlockhashFetchFailed = "ERROR_BLOCKHASH_FETCH_FAILED"
	ErrorTxBuildFailed        = "ERROR_TX_BUILD_FAILED"
	ErrorTxTooLarge           = "ERROR_TX_TOO_LARGE"
	ErrorTxSendFailed         = "ERROR_TX_SEND_FAILED"
	ErrorTxFailed             = "ERROR_TX_FAILED"
	ErrorBlockhashExpired     = "ERROR_BLOCKHASH_EXPIRED"
	ErrorUnknown              = "ERROR_UNKNOWN"
)

// ErrorCode maps a batch error to its stable code.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrBlockhashFetchFailed):
		return ErrorBlockhashFetchFailed
	case errors.Is(err, ErrTxTooLarge):
		return ErrorTxTooLarge
	case errors.Is(err, ErrTxBuildFailed):
		return ErrorTxBuildFailed
	case errors.Is(err, ErrTxSendFailed):
		return ErrorTxSendFailed
	case errors.Is(err, ErrTxFailed):
		return ErrorTxFailed
	case errors.Is(err, ErrBlockhashExpired):
		return ErrorBlockhashExpired
	default:
		return ErrorUnknown
	}
}
