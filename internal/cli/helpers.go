package cli

import (
	"fmt"

	"github.com/nikolai-in/dlcache/internal/logger"
	"github.com/nikolai-in/dlcache/pkg/catalog"
	"github.com/nikolai-in/dlcache/pkg/config"
	"github.com/nikolai-in/dlcache/pkg/download"
	"github.com/nikolai-in/dlcache/pkg/orchestrator"
	"github.com/nikolai-in/dlcache/pkg/store"
)

// These variables will be set by the main package.
var (
	ConfigPath   *string
	Verbose      *bool
	NoColor      *bool
	OutputFormat *string
)

// loadConfig loads the configuration, applies CLI flag overrides and
// initializes logging.
func loadConfig() (*config.Config, error) {
	configPath := ""
	if ConfigPath != nil {
		configPath = *ConfigPath
	}
	if configPath == "" {
		defaultPath, err := config.GetDefaultConfigPath()
		if err != nil {
			return nil, fmt.Errorf("failed to get default config path: %w", err)
		}
		configPath = defaultPath
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if OutputFormat != nil && *OutputFormat != "" {
		cfg.Output.Format = *OutputFormat
	}
	if Verbose != nil && *Verbose {
		cfg.Output.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	noColor := NoColor != nil && *NoColor
	logger.InitLogger(cfg.Output.LogLevel, noColor)
	return cfg, nil
}

// buildManager opens the cache store and wires the orchestrator from config.
func buildManager(cfg *config.Config, cacheRoot string) (*orchestrator.Manager, *store.Store, error) {
	if cacheRoot == "" {
		cacheRoot = cfg.Cache.Root
	}
	st, err := store.Open(cacheRoot)
	if err != nil {
		return nil, nil, err
	}

	fetcher := download.NewHTTPFetcher(download.Options{
		Timeout:           cfg.Network.HTTPTimeout,
		MaxRetries:        cfg.Network.MaxRetries,
		BaseDelay:         cfg.Network.BaseDelay,
		RequestsPerSecond: cfg.Network.RequestsPerSecond,
		UserAgent:         cfg.Network.UserAgent,
	})

	mgr := &orchestrator.Manager{
		Store:        st,
		Fetcher:      fetcher,
		HeadResolver: catalog.NewHTTPHeadResolver(cfg.Network.HTTPTimeout, cfg.Network.UserAgent),
		CatalogOpts:  catalog.Options{CacheUnresolved: cfg.Policies.CacheUnresolved},
	}
	return mgr, st, nil
}
