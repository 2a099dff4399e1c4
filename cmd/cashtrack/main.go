package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"cashtrack/internal/amqp"
	"cashtrack/internal/blob"
	"cashtrack/internal/blob/fsblob"
	"cashtrack/internal/blob/gcs"
	"cashtrack/internal/config"
	"cashtrack/internal/core"
	apphttp "cashtrack/internal/http"
	applog "cashtrack/internal/log"
	"cashtrack/internal/store"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{
		Level:     slog.LevelInfo,
		Component: applog.ComponentApp,
		Handler:   slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
	})
	applog.SetDefault(logger)

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		blobs   blob.Store
		slipDir string
	)
	switch cfg.BlobBackend {
	case "gcs":
		blobs, err = gcs.New(ctx, cfg.GCSBucket, cfg.GoogleCredentialsFile)
		if err != nil {
			logger.Error("Failed to initialize GCS blob store", "error", err, "bucket", cfg.GCSBucket)
			os.Exit(1)
		}
		logger.Info("Initialized GCS slip storage", "bucket", cfg.GCSBucket)
	default:
		fsStore, err := fsblob.New(cfg.BlobDir, cfg.PublicBaseURL+"/slips")
		if err != nil {
			logger.Error("Failed to initialize filesystem blob store", "error", err, "dir", cfg.BlobDir)
			os.Exit(1)
		}
		blobs = fsStore
		slipDir = fsStore.Dir()
		logger.Info("Initialized filesystem slip storage", "dir", cfg.BlobDir)
	}

	// Optional AMQP bridge: relay local changes to other instances and
	// feed remote changes into the local notifier.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()

		st.SetChangeHook(func(change store.Change) {
			pubCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := amqpClient.PublishChange(pubCtx, change.Collection); err != nil {
				logger.Warn("Failed to publish change", "error", err, "collection", change.Collection)
			}
		})
		logger.Info("AMQP change bridge enabled", "exchange", cfg.AMQPExchange)
	}

	srv := apphttp.NewServer(apphttp.Options{
		Addr:              ":" + cfg.Port,
		AdminPasswordHash: cfg.AdminPasswordHash,
		SessionSecret:     cfg.SessionSecret,
		SessionTTL:        cfg.SessionTTL,
		SecureCookies:     strings.HasPrefix(cfg.PublicBaseURL, "https://"),
		AllowedOrigins:    []string{cfg.PublicBaseURL},
		SlipDir:           slipDir,
	}, st, blobs, logger)

	srv.ReadTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting cashtrack server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	if amqpClient != nil {
		g.Go(func() error {
			err := amqpClient.ConsumeChanges(gctx, func(msg *amqp.ChangeMessage) error {
				switch msg.Collection {
				case core.CollectionsName, core.DepositsName, core.PendingItemsName:
					st.ApplyRemote(msg.Collection)
				default:
					logger.Warn("Ignoring change for unknown collection", "collection", msg.Collection)
				}
				return nil
			})
			if err != nil && gctx.Err() == nil {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
