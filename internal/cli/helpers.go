package cli

import (
	"fmt"

	"github.com/glorpus-work/gdown/internal/logger"
	"github.com/glorpus-work/gdown/pkg/cache"
	"github.com/glorpus-work/gdown/pkg/cached"
	"github.com/glorpus-work/gdown/pkg/config"
	"github.com/glorpus-work/gdown/pkg/download"
)

// These variables will be set by the main package
var (
	ConfigPath *string
	Verbose    *bool
	NoColor    *bool
	LogFile    *string
)

// loadConfig loads the configuration and initializes logging from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(getConfigPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	initLogger(cfg.Settings)
	return cfg, nil
}

// newRoot returns the cache root configured in cfg.
func newRoot(cfg *config.Config) *cache.Root {
	return cache.NewRoot(cfg.GetCacheDir())
}

// newDownloader wires a cached.Downloader from the configuration.
func newDownloader(cfg *config.Config, opts ...cached.Option) *cached.Downloader {
	root := newRoot(cfg)
	httpTransport := download.NewHTTPTransport(cfg.Settings.HTTPTimeout, cfg.Settings.UserAgent)
	opts = append([]cached.Option{cached.WithLogger(logger.WithFields(logger.Fields{"component": "cached"}))}, opts...)
	return cached.New(root, download.NewDefaultMux(httpTransport), opts...)
}
