package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/tradeforge/ledger-core/internal/config"
	"github.com/tradeforge/ledger-core/internal/ledger"
	"github.com/tradeforge/ledger-core/internal/logger"
	"github.com/tradeforge/ledger-core/internal/store"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

// The auditor replays the full journal against the balance snapshots and
// exits non-zero when any invariant is violated. Intended to run as a
// cron job or a pre-deploy check.
func main() {
	flag.Parse()

	cfg, err := config.LoadAuditorConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx := context.Background()

	err = logger.Initialize(logger.Config{
		Debug:     cfg.Debug,
		SentryDSN: cfg.SentryDSN,
		Tags: map[string]string{
			"service": "ledger-auditor",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting journal audit")

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err))
	}

	if err := store.ConfigureConnectionPool(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime); err != nil {
		logger.FatalCtx(ctx, "Failed to configure connection pool", zap.Error(err))
	}

	auditor := ledger.NewAuditor(store.NewPGStore(db), cfg.BatchSize)

	report, err := auditor.VerifyJournal(ctx)
	if err != nil {
		logger.FatalCtx(ctx, "Journal verification failed", zap.Error(err))
	}

	// The report goes to stdout so operators can pipe it into jq; logs go
	// to stderr.
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(report); err != nil {
		logger.FatalCtx(ctx, "Failed to encode report", zap.Error(err))
	}

	if !report.Clean() {
		logger.ErrorCtx(ctx, fmt.Errorf("journal verification found %d violations", len(report.Findings)),
			zap.Int("entries_checked", report.EntriesChecked),
			zap.Int("accounts_checked", report.AccountsChecked),
		)
		logger.Flush(2 * time.Second)
		os.Exit(1)
	}

	logger.InfoCtx(ctx, "Journal verified clean",
		zap.Int("entries_checked", report.EntriesChecked),
		zap.Int("accounts_checked", report.AccountsChecked),
	)
}
