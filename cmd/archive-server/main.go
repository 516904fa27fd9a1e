// Package main provides the archive server entry point: the durable item
// catalogue behind the chat presentation layer.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/unilib/archivestore/pkg/api"
	"github.com/unilib/archivestore/pkg/archive"
	"github.com/unilib/archivestore/pkg/cache"
	"github.com/unilib/archivestore/pkg/classify"
	"github.com/unilib/archivestore/pkg/lifecycle"
	"github.com/unilib/archivestore/pkg/snapshot"
)

func main() {
	var (
		listenAddr string
		dbPath     string
	)

	flag.StringVar(&listenAddr, "listen", ":8080", "Address to listen on")
	flag.StringVar(&dbPath, "db", "archive.db", "Path to the archive store file")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := archive.ConfigFromEnv()
	snapCfg := snapshot.ConfigFromEnv()

	logger.Info("starting archive server",
		"listen", listenAddr,
		"db", dbPath,
		"retentionDays", cfg.RetentionDays,
		"snapshotDir", snapCfg.Dir,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		logger.Error("failed to open archive store", "path", dbPath, "error", err)
		os.Exit(1)
	}

	store := archive.NewArchiveStore(db, cfg.PageSize)
	if err := store.AutoMigrate(); err != nil {
		logger.Error("failed to migrate archive store", "error", err)
		os.Exit(1)
	}
	// Also validates the dedup indices after a snapshot restore.
	if err := store.CheckConsistency(); err != nil {
		logger.Error("archive store failed consistency check", "error", err)
		os.Exit(1)
	}

	if cfg.PayloadDir != "" {
		if err := os.MkdirAll(cfg.PayloadDir, 0o755); err != nil {
			logger.Error("failed to create payload dir", "path", cfg.PayloadDir, "error", err)
			os.Exit(1)
		}
	}

	resolver := classify.NewResolver(classify.DefaultCatalog(), cfg.BindingTTL)
	service := archive.NewService(store, resolver, cfg.PayloadDir, logger)
	manager := lifecycle.NewManager(store, logger)
	snapshots := snapshot.NewManager(db, snapCfg, logger)
	items := cache.New(1024, 5*time.Minute)

	go lifecycle.NewRetentionWorker(manager, cfg.RetentionDays, logger).Run(ctx)
	// The payload fetcher is supplied by the transport integration; without
	// one the re-hash sweep stays disabled and degraded records wait.
	go lifecycle.NewRehashWorker(store, manager, nil, logger).Run(ctx)
	go snapshots.Run(ctx)

	handlers := api.NewHandlers(service, store, manager, resolver, snapshots, items, cfg, logger)
	server := &http.Server{
		Addr:    listenAddr,
		Handler: api.Router(handlers, logger),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
	}()

	logger.Info("archive server listening", "addr", listenAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("archive server stopped")
}
