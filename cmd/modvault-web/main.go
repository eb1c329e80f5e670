// Command modvault-web serves the package search and metadata API over one
// index archive.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"modvault/internal/config"
	"modvault/internal/fetch"
	"modvault/internal/logging"
	"modvault/internal/repository"
	"modvault/internal/search"
	"modvault/internal/web"
)

func main() {
	configDir := "config"
	if v := os.Getenv("MODVAULT_CONFIG_DIR"); v != "" {
		configDir = v
	}

	cfg, err := config.Load(configDir)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	if err := logging.Initialize(cfg.Logging); err != nil {
		slog.Error("failed to initialize logging", "error", err)
		os.Exit(1)
	}
	defer logging.Shutdown()

	fetcher := fetch.NewBreakerClient(fetch.NewClient(
		fetch.WithMaxRetries(uint64(cfg.Repository.FetchRetries)),
	))

	eng, err := openIndex(context.Background(), fetcher, cfg.Repository.IndexPath)
	if err != nil {
		slog.Error("failed to open index", "path", cfg.Repository.IndexPath, "error", err)
		os.Exit(1)
	}
	defer eng.Close()

	repo := repository.New(eng, fetcher, repository.Config{
		RawBase:           cfg.Repository.RawBase,
		PackageCacheSize:  cfg.Repository.PackageCacheSize,
		MetadataCacheSize: cfg.Repository.MetadataCacheSize,
		TTL:               cfg.Repository.CacheTTL,
	})

	server := web.NewServer(cfg.Server, web.NewHandler(eng, repo, cfg.Server.PageSize))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// openIndex opens a local archive directly; a remote one is fetched into
// memory first.
func openIndex(ctx context.Context, fetcher fetch.Fetcher, path string) (*search.Engine, error) {
	if !fetch.IsURL(path) {
		return search.Open(path)
	}
	data, err := fetcher.Fetch(ctx, path)
	if err != nil {
		return nil, err
	}
	return search.OpenBytes(data)
}
