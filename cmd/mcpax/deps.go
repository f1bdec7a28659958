package main

import (
	"fmt"
	"path/filepath"

	"github.com/mcpax/mcpax-cli/internal/cache"
	"github.com/mcpax/mcpax-cli/internal/config"
	"github.com/mcpax/mcpax-cli/internal/download"
	"github.com/mcpax/mcpax-cli/internal/modrinth"
	"github.com/mcpax/mcpax-cli/internal/state"
	"github.com/mcpax/mcpax-cli/internal/syncer"
	ui "github.com/mcpax/mcpax-cli/internal/ui"
)

// Deps holds all injectable dependencies for command handlers.
type Deps struct {
	Cfg          config.Config
	CfgErr       error
	Tracked      config.Projects
	TrkErr       error
	ConfigPath   string
	ProjectsPath string

	Client  *modrinth.Client // raw client (search, rate limit info)
	Catalog syncer.Catalog   // cache-wrapped unless --no-cache
	Fetcher *download.Fetcher
	Store   *state.Store
	Cache   *cache.Cache
	Printer ui.Printer
}

// userAgent is the client identity sent to the catalog, required by
// the Modrinth API terms.
func userAgent() string {
	return fmt.Sprintf("mcpax/%s (github.com/mcpax/mcpax-cli)", Version)
}

// newDeps creates production dependencies from the current flags and config.
func newDeps() *Deps {
	dir := configDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	projPath := filepath.Join(dir, "projects.yaml")

	cfg, cfgErr := config.Load(cfgPath)
	if flagInstanceDir != "" {
		cfg.MinecraftDir = flagInstanceDir
	}
	tracked, trkErr := config.LoadProjects(projPath)

	client := modrinth.New(userAgent())
	apiCache := cache.New(filepath.Join(config.CacheDir(), "api"))

	var catalog syncer.Catalog = client
	if !flagNoCache {
		catalog = cache.NewCatalog(client, apiCache)
	}

	return &Deps{
		Cfg:          cfg,
		CfgErr:       cfgErr,
		Tracked:      tracked,
		TrkErr:       trkErr,
		ConfigPath:   cfgPath,
		ProjectsPath: projPath,
		Client:       client,
		Catalog:      catalog,
		Fetcher:      download.New(userAgent(), cfg.MaxConcurrentDownloads),
		Store:        state.New(cfg.MinecraftDir),
		Cache:        apiCache,
		Printer:      getPrinter(),
	}
}

// requireConfig fails with a precondition error when the instance has
// not been initialized yet.
func (d *Deps) requireConfig() error {
	if d.CfgErr != nil {
		return fmt.Errorf("no usable configuration (%v); run 'mcpax init' first", d.CfgErr)
	}
	return nil
}

// newSyncer builds a synchronizer over these deps.
func (d *Deps) newSyncer(report syncer.ReportFunc, progress download.ProgressFunc) *syncer.Syncer {
	return syncer.New(syncer.Options{
		Config:   d.Cfg,
		Catalog:  d.Catalog,
		Fetcher:  d.Fetcher,
		Store:    d.Store,
		Report:   report,
		Progress: progress,
	})
}
