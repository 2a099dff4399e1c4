// Command purge deletes collections and deposits older than a cutoff date,
// removing orphaned slip blobs along the way. Meant for cron or manual runs.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"cashtrack/internal/blob"
	"cashtrack/internal/blob/fsblob"
	"cashtrack/internal/blob/gcs"
	"cashtrack/internal/config"
	"cashtrack/internal/store"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	var (
		before      = flag.String("before", "", "delete records dated before this day (yyyy-MM-dd)")
		olderThan   = flag.Duration("older-than", 0, "alternative cutoff as an age, e.g. 8760h for one year")
		all         = flag.Bool("all", false, "delete every record regardless of date")
		keepSlips   = flag.Bool("keep-slips", false, "do not delete slip blobs of purged deposits")
		collections = flag.Bool("collections", true, "purge collections")
		deposits    = flag.Bool("deposits", true, "purge deposits")
		pending     = flag.Bool("pending", true, "purge pending items")
	)
	flag.Parse()

	var cutoff time.Time
	if !*all {
		var err error
		cutoff, err = resolveCutoff(*before, *olderThan)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			flag.Usage()
			os.Exit(2)
		}
	} else if *before != "" || *olderThan != 0 {
		fmt.Fprintln(os.Stderr, "-all cannot be combined with -before or -older-than")
		os.Exit(2)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	st, err := store.OpenSQLite(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open store", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer st.Close()

	ctx := context.Background()
	if *all {
		logger.Info("Purging all records")
	} else {
		logger.Info("Purging records", "cutoff", cutoff.Format("2006-01-02"))
	}

	if *collections {
		var n int64
		if *all {
			n, err = st.PurgeCollections(ctx)
		} else {
			n, err = st.PurgeCollectionsBefore(ctx, cutoff)
		}
		if err != nil {
			logger.Error("Purge collections failed", "error", err)
			os.Exit(1)
		}
		logger.Info("Collections purged", "deleted", n)
	}

	if *pending {
		var n int64
		if *all {
			n, err = st.PurgePendingItems(ctx)
		} else {
			n, err = st.PurgePendingBefore(ctx, cutoff)
		}
		if err != nil {
			logger.Error("Purge pending items failed", "error", err)
			os.Exit(1)
		}
		logger.Info("Pending items purged", "deleted", n)
	}

	if *deposits {
		var (
			n     int64
			slips []string
		)
		if *all {
			n, slips, err = st.PurgeDeposits(ctx)
		} else {
			n, slips, err = st.PurgeDepositsBefore(ctx, cutoff)
		}
		if err != nil {
			logger.Error("Purge deposits failed", "error", err)
			os.Exit(1)
		}
		logger.Info("Deposits purged", "deleted", n, "slips", len(slips))

		if !*keepSlips && len(slips) > 0 {
			blobs, err := openBlobStore(ctx, cfg)
			if err != nil {
				logger.Error("Failed to open blob store, slips left behind", "error", err)
				os.Exit(1)
			}
			for _, slip := range slips {
				if err := blobs.Delete(ctx, slip); err != nil {
					logger.Warn("Failed to delete slip", "error", err, "slip", slip)
				}
			}
		}
	}
}

func resolveCutoff(before string, olderThan time.Duration) (time.Time, error) {
	switch {
	case before != "" && olderThan != 0:
		return time.Time{}, fmt.Errorf("use either -before or -older-than, not both")
	case before != "":
		t, err := time.Parse("2006-01-02", before)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid -before date %q: %w", before, err)
		}
		return t, nil
	case olderThan != 0:
		return time.Now().UTC().Add(-olderThan), nil
	default:
		return time.Time{}, fmt.Errorf("a cutoff is required: -before or -older-than")
	}
}

func openBlobStore(ctx context.Context, cfg *config.Config) (blob.Store, error) {
	if cfg.BlobBackend == "gcs" {
		return gcs.New(ctx, cfg.GCSBucket, cfg.GoogleCredentialsFile)
	}
	return fsblob.New(cfg.BlobDir, cfg.PublicBaseURL+"/slips")
}
