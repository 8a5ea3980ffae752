package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gagliardetto/solana-go/rpc"

	"github.com/Fantasim/splreaper/internal/config"
	"github.com/Fantasim/splreaper/internal/db"
	"github.com/Fantasim/splreaper/internal/logging"
	"github.com/Fantasim/splreaper/internal/tx"
	"github.com/Fantasim/splreaper/internal/wallet"
)

var version = "dev"

func main() {
	cmd := "run"
	args := os.Args[1:]
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "run":
		if err := runCleanup(args); err != nil {
			slog.Error("cleanup error", "error", err, "fatal", config.IsFatal(err))
			os.Exit(1)
		}
	case "plan":
		if err := runPlan(args); err != nil {
			slog.Error("plan error", "error", err)
			os.Exit(1)
		}
	case "version":
		fmt.Printf("splreaper %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: splreaper [command] [flags]

Commands:
  run       Burn remaining balances, then close every token account except the excluded mint (default)
  plan      Fetch and classify accounts, log the batches run would submit, send nothing
  version   Print version information

Flags (run, plan):
  -keypair  Keypair file (default: from SPLREAPER_KEYPAIR_FILE or ./id.json)
  -rpc      RPC endpoint (default: from SOLANA_RPC or mainnet-beta)
  -ledger   SQLite ledger path, run only (default: from SPLREAPER_LEDGER_PATH, disabled when empty)
`)
}

// setup loads config with flag overrides, initializes logging and the
// operator key, and builds the cleanup service. The returned cleanup func
// releases the log file and ledger.
func setup(name string, args []string) (*tx.CleanupService, func(), error) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	keypairFile := fs.String("keypair", "", "Keypair file path")
	rpcURL := fs.String("rpc", "", "Solana RPC endpoint")
	ledgerPath := fs.String("ledger", "", "SQLite ledger path")
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.ApplyOverrides(*keypairFile, *rpcURL, *ledgerPath)
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	logCloser, err := logging.Setup(cfg.LogLevel, cfg.LogDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to setup logging: %w", err)
	}
	closers := []func(){func() { logCloser.Close() }}
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	slog.Info("starting splreaper",
		"version", version,
		"command", name,
		"rpc", cfg.RPCURL,
		"keypairFile", cfg.KeypairFile,
		"excludedMint", cfg.ExcludedMint,
		"burnBatchSize", cfg.BurnBatchSize,
		"closeBatchSize", cfg.CloseBatchSize,
		"ledgerPath", cfg.LedgerPath,
		"logLevel", cfg.LogLevel,
	)

	operator, err := wallet.LoadKeypair(cfg.KeypairFile)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to load keypair: %w", err)
	}

	// Left nil unless a ledger is configured: a nil *db.DB must not become a non-nil interface.
	var recorder tx.SubmissionRecorder
	if cfg.LedgerPath != "" && name == "run" {
		database, err := db.New(cfg.LedgerPath)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("failed to open ledger: %w", err)
		}
		closers = append(closers, func() { database.Close() })

		if err := database.RunMigrations(); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("failed to run ledger migrations: %w", err)
		}
		slog.Info("ledger opened", "path", cfg.LedgerPath)
		recorder = database
	}

	client := tx.NewDefaultSOLRPCClient(
		rpc.New(cfg.RPCURL),
		cfg.RPCURL,
		cfg.RPCRequestsPerSecond,
		cfg.ConfirmPollInterval,
	)

	svc := tx.NewCleanupService(client, operator, tx.CleanupOptions{
		ExcludedMint:   cfg.ExcludedMintKey(),
		BurnBatchSize:  cfg.BurnBatchSize,
		CloseBatchSize: cfg.CloseBatchSize,
	}, recorder)

	return svc, cleanup, nil
}

func runCleanup(args []string) error {
	svc, cleanup, err := setup("run", args)
	if err != nil {
		return err
	}
	defer cleanup()

	// SIGINT/SIGTERM abort the in-flight RPC; no further batch is started.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := svc.Run(ctx)
	if err != nil {
		return err
	}

	if failed := summary.Burn.FailedCount + summary.Close.FailedCount; failed > 0 {
		slog.Warn("some batches failed; re-run to retry what is left",
			"runID", summary.RunID,
			"failedBatches", failed,
		)
	}
	return nil
}

func runPlan(args []string) error {
	svc, cleanup, err := setup("plan", args)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, err = svc.Plan(ctx)
	return err
}

// Compile-time check that the ledger satisfies the recorder contract.
var _ tx.SubmissionRecorder = (*db.DB)(nil)
