package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mcpax/mcpax-cli/internal/cache"
	"github.com/mcpax/mcpax-cli/internal/config"
	"github.com/mcpax/mcpax-cli/internal/download"
	"github.com/mcpax/mcpax-cli/internal/modrinth"
	"github.com/mcpax/mcpax-cli/internal/state"
	ui "github.com/mcpax/mcpax-cli/internal/ui"
)

// fakeCatalog implements syncer.Catalog for command handler tests.
type fakeCatalog struct {
	mu       sync.Mutex
	projects map[string]modrinth.Project
	versions map[string][]modrinth.Version
	fail     map[string]error
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		projects: map[string]modrinth.Project{},
		versions: map[string][]modrinth.Version{},
		fail:     map[string]error{},
	}
}

func (f *fakeCatalog) Project(ctx context.Context, slug string) (modrinth.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[slug]; err != nil {
		return modrinth.Project{}, err
	}
	p, ok := f.projects[slug]
	if !ok {
		return modrinth.Project{}, &modrinth.NotFoundError{Slug: slug}
	}
	return p, nil
}

func (f *fakeCatalog) Versions(ctx context.Context, slug string) ([]modrinth.Version, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[slug]; err != nil {
		return nil, err
	}
	return f.versions[slug], nil
}

// addMod registers a mod with a single release version serving body
// from srv (srv may be nil when no download will happen).
func (f *fakeCatalog) addMod(srv *httptest.Server, slug, versionID, number, sha512hex string, size int64) {
	url := ""
	if srv != nil {
		url = srv.URL + "/" + slug + "/" + versionID
	}
	f.projects[slug] = modrinth.Project{ID: "p-" + slug, Slug: slug, Title: slug, ProjectType: modrinth.TypeMod}
	f.versions[slug] = append(f.versions[slug], modrinth.Version{
		ID:            versionID,
		ProjectID:     "p-" + slug,
		VersionNumber: number,
		VersionType:   modrinth.ChannelRelease,
		GameVersions:  []string{"1.21.1"},
		Loaders:       []string{"fabric"},
		DatePublished: time.Now(),
		Files: []modrinth.File{{
			URL:      url,
			Filename: slug + "-" + number + ".jar",
			Size:     size,
			Hashes:   modrinth.Hashes{SHA512: sha512hex},
			Primary:  true,
		}},
	})
}

// newTestDeps builds Deps over temp dirs with the given catalog.
func newTestDeps(t *testing.T, cat *fakeCatalog) *Deps {
	t.Helper()
	cfgDir := t.TempDir()
	mcDir := t.TempDir()

	cfg := config.Config{
		MinecraftVersion:       "1.21.1",
		Loader:                 config.LoaderFabric,
		MinecraftDir:           mcDir,
		MaxConcurrentDownloads: 2,
		Channel:                modrinth.ChannelRelease,
	}

	return &Deps{
		Cfg:          cfg,
		Tracked:      config.Projects{},
		ConfigPath:   filepath.Join(cfgDir, "config.yaml"),
		ProjectsPath: filepath.Join(cfgDir, "projects.yaml"),
		Client:       modrinth.New("mcpax-test/0.0 (test)"),
		Catalog:      cat,
		Fetcher:      download.New("mcpax-test/0.0 (test)", 2),
		Store:        state.New(mcDir),
		Cache:        cache.New(filepath.Join(cfgDir, "cache")),
		Printer:      ui.NewPrinter("text"),
	}
}

// newFileServer serves per-path bodies for download tests.
func newFileServer(t *testing.T, files map[string][]byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}
