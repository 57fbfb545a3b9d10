package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rkotari/smartdrive"
	"github.com/rkotari/smartdrive/config"
	"github.com/rkotari/smartdrive/database"
	"github.com/rkotari/smartdrive/dynamo"
	"github.com/rkotari/smartdrive/filesystem"
	smarthttp "github.com/rkotari/smartdrive/http"
	"github.com/rkotari/smartdrive/memory"
	"github.com/rkotari/smartdrive/s3blob"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Start the SmartDrive HTTP server.`,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	stores, closeStores, err := buildStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStores()
	slog.Info("connected to metadata store", "type", cfg.Store.Type)

	blobs, downloads, closeBlobs, err := buildBlobs(cfg)
	if err != nil {
		return err
	}
	defer closeBlobs()
	slog.Info("opened blob store", "type", cfg.Blob.Type)

	tokens := smartdrive.NewTokenService(
		[]byte(cfg.Auth.Secret),
		time.Duration(cfg.Auth.TokenTTLSeconds)*time.Second,
	)

	service := smartdrive.NewService(stores.Accounts, stores.Catalog, blobs, tokens, smartdrive.ServiceConfig{
		URLTTL: time.Duration(cfg.Auth.URLTTLSeconds) * time.Second,
	})

	handlerConfig := smarthttp.HandlerConfig{
		Verifier:      tokens,
		CORS:          cfg.CORS,
		MaxUploadSize: cfg.Server.MaxUploadSize,
		Downloads:     downloads,
	}

	handler := smarthttp.NewHandler(&handlerConfig, service)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "err", err)
		}
		cancel()
	}()

	slog.Info("starting server", "addr", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// buildStores wires the configured metadata backend. SQL backends go
// through database.Connect which also runs migrations; DynamoDB tables
// are expected to exist already.
func buildStores(ctx context.Context, cfg *config.Config) (database.Stores, func(), error) {
	switch cfg.Store.Type {
	case "memory":
		stores := database.Stores{
			Accounts: memory.NewAccountDirectory(),
			Catalog:  memory.NewFileCatalog(),
		}
		return stores, func() {}, nil

	case "sqlite", "postgres":
		return database.Connect(ctx, cfg.Store)

	case "dynamo":
		client, err := newDynamoClient(ctx, cfg.AWS)
		if err != nil {
			return database.Stores{}, nil, err
		}
		stores := database.Stores{
			Accounts: dynamo.NewAccountDirectory(client, cfg.Store.Tables.Accounts),
			Catalog:  dynamo.NewFileCatalog(client, cfg.Store.Tables.Files),
		}
		return stores, func() {}, nil

	default:
		return database.Stores{}, nil, fmt.Errorf("unsupported store type: %s", cfg.Store.Type)
	}
}

// buildBlobs wires the configured object store. The filesystem store
// serves its own signed download URLs, so it doubles as the downloads
// handler; S3 presigns against the bucket and needs none.
func buildBlobs(cfg *config.Config) (smartdrive.ObjectStore, http.Handler, func(), error) {
	switch cfg.Blob.Type {
	case "memory":
		return memory.NewObjectStore(), nil, func() {}, nil

	case "filesystem":
		if err := os.MkdirAll(cfg.Blob.Path, 0o750); err != nil {
			return nil, nil, nil, fmt.Errorf("create storage directory: %w", err)
		}

		root, err := os.OpenRoot(cfg.Blob.Path)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open storage root: %w", err)
		}

		store := filesystem.NewStore(root, []byte(cfg.Auth.Secret), cfg.Server.BaseURL)
		return store, store, func() { _ = root.Close() }, nil

	case "s3":
		if cfg.Blob.Bucket == "" {
			return nil, nil, nil, fmt.Errorf("blob.bucket is required for the s3 blob store")
		}

		client, err := newS3Client(context.Background(), cfg.AWS)
		if err != nil {
			return nil, nil, nil, err
		}

		return s3blob.New(client, cfg.Blob.Bucket), nil, func() {}, nil

	default:
		return nil, nil, nil, fmt.Errorf("unsupported blob type: %s", cfg.Blob.Type)
	}
}
