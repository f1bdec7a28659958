package syncer

import (
	"bytes"
	"context"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mcpax/mcpax-cli/internal/config"
	"github.com/mcpax/mcpax-cli/internal/download"
	"github.com/mcpax/mcpax-cli/internal/modrinth"
	"github.com/mcpax/mcpax-cli/internal/state"
)

type fakeCatalog struct {
	mu       sync.Mutex
	projects map[string]modrinth.Project
	versions map[string][]modrinth.Version
	fail     map[string]error
	calls    map[string]int
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		projects: map[string]modrinth.Project{},
		versions: map[string][]modrinth.Version{},
		fail:     map[string]error{},
		calls:    map[string]int{},
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
	f.calls[slug]++
	if err := f.fail[slug]; err != nil {
		return nil, err
	}
	return f.versions[slug], nil
}

// addMod registers a mod with one version whose file is served by srv.
func (f *fakeCatalog) addMod(srv *httptest.Server, slug, versionID, number string, body []byte) {
	f.projects[slug] = modrinth.Project{ID: "p-" + slug, Slug: slug, ProjectType: modrinth.TypeMod}
	f.versions[slug] = append(f.versions[slug], modrinth.Version{
		ID:            versionID,
		ProjectID:     "p-" + slug,
		VersionNumber: number,
		VersionType:   modrinth.ChannelRelease,
		GameVersions:  []string{"1.21.1"},
		Loaders:       []string{"fabric"},
		DatePublished: time.Now(),
		Files: []modrinth.File{{
			URL:      srv.URL + "/" + slug + "/" + versionID,
			Filename: slug + "-" + number + ".jar",
			Size:     int64(len(body)),
			Hashes:   modrinth.Hashes{SHA512: sha512hex(body)},
			Primary:  true,
		}},
	})
}

func sha512hex(b []byte) string {
	sum := sha512.Sum512(b)
	return hex.EncodeToString(sum[:])
}

// fileServer serves per-path bodies and counts requests.
type fileServer struct {
	mu    sync.Mutex
	files map[string][]byte
	hits  int64
}

func newFileServer(t *testing.T) (*fileServer, *httptest.Server) {
	t.Helper()
	fs := &fileServer{files: map[string][]byte{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&fs.hits, 1)
		fs.mu.Lock()
		body, ok := fs.files[r.URL.Path]
		fs.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return fs, srv
}

func (fs *fileServer) put(path string, body []byte) {
	fs.mu.Lock()
	fs.files[path] = body
	fs.mu.Unlock()
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		MinecraftVersion:       "1.21.1",
		Loader:                 config.LoaderFabric,
		MinecraftDir:           t.TempDir(),
		MaxConcurrentDownloads: 3,
		Channel:                modrinth.ChannelRelease,
	}
}

func newTestSyncer(t *testing.T, cfg config.Config, cat Catalog) *Syncer {
	t.Helper()
	return New(Options{
		Config:  cfg,
		Catalog: cat,
		Fetcher: download.New("mcpax-test/0.0 (test)", cfg.MaxConcurrentDownloads),
		Store:   state.New(cfg.MinecraftDir),
	})
}

func TestRunInstallsMissingProject(t *testing.T) {
	fs, srv := newFileServer(t)
	body := []byte("sodium jar bytes")
	fs.put("/sodium/v1", body)

	cat := newFakeCatalog()
	cat.addMod(srv, "sodium", "v1", "0.6.0", body)

	cfg := testConfig(t)
	s := newTestSyncer(t, cfg, cat)

	sum, err := s.Run(context.Background(), []config.Project{{Slug: "sodium"}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Installed != 1 || sum.Failed != 0 {
		t.Fatalf("unexpected summary: %+v", sum)
	}

	placed := filepath.Join(cfg.MinecraftDir, "mods", "sodium-0.6.0.jar")
	got, err := os.ReadFile(placed)
	if err != nil {
		t.Fatalf("installed file: %v", err)
	}
	if string(got) != string(body) {
		t.Fatal("installed file content differs from download")
	}

	snap, err := state.New(cfg.MinecraftDir).Load()
	if err != nil {
		t.Fatalf("load state: %v", err)
	}
	rec, ok := snap.Files["sodium"]
	if !ok {
		t.Fatal("no state record written")
	}
	if rec.VersionID != "v1" || rec.FilePath != placed {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestRunUpToDateFetchesNothing(t *testing.T) {
	fs, srv := newFileServer(t)
	body := []byte("iris jar")
	fs.put("/iris/v1", body)

	cat := newFakeCatalog()
	cat.addMod(srv, "iris", "v1", "1.8.0", body)

	cfg := testConfig(t)
	s := newTestSyncer(t, cfg, cat)

	// First run installs, second run must be a no-op.
	if _, err := s.Run(context.Background(), []config.Project{{Slug: "iris"}}); err != nil {
		t.Fatalf("first run: %v", err)
	}
	hitsAfterInstall := atomic.LoadInt64(&fs.hits)

	s2 := newTestSyncer(t, cfg, cat)
	sum, err := s2.Run(context.Background(), []config.Project{{Slug: "iris"}})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if sum.UpToDate != 1 {
		t.Fatalf("want up-to-date, got %+v", sum)
	}
	if got := atomic.LoadInt64(&fs.hits); got != hitsAfterInstall {
		t.Fatalf("no-op run fetched content: %d extra requests", got-hitsAfterInstall)
	}
}

func TestRunUpdateBacksUpOldFile(t *testing.T) {
	fs, srv := newFileServer(t)
	oldBody := []byte("lithium v1")
	newBody := []byte("lithium v2 with more bytes")
	fs.put("/lithium/v1", oldBody)
	fs.put("/lithium/v2", newBody)

	cat := newFakeCatalog()
	cat.addMod(srv, "lithium", "v1", "0.12.0", oldBody)

	cfg := testConfig(t)
	if _, err := newTestSyncer(t, cfg, cat).Run(context.Background(), []config.Project{{Slug: "lithium"}}); err != nil {
		t.Fatalf("install run: %v", err)
	}

	cat.addMod(srv, "lithium", "v2", "0.13.0", newBody)
	sum, err := newTestSyncer(t, cfg, cat).Run(context.Background(), []config.Project{{Slug: "lithium"}})
	if err != nil {
		t.Fatalf("update run: %v", err)
	}
	if sum.Updated != 1 {
		t.Fatalf("want update, got %+v", sum)
	}

	got, err := os.ReadFile(filepath.Join(cfg.MinecraftDir, "mods", "lithium-0.13.0.jar"))
	if err != nil {
		t.Fatalf("new file: %v", err)
	}
	if string(got) != string(newBody) {
		t.Fatal("new file content wrong")
	}
	if _, err := os.Stat(filepath.Join(cfg.MinecraftDir, "mods", "lithium-0.12.0.jar")); !os.IsNotExist(err) {
		t.Fatal("superseded file still in mods dir")
	}

	backups, err := filepath.Glob(filepath.Join(cfg.MinecraftDir, backupDirName, "lithium-0.12.0_*.jar"))
	if err != nil || len(backups) != 1 {
		t.Fatalf("want one backup, got %v (err %v)", backups, err)
	}
	bb, _ := os.ReadFile(backups[0])
	if string(bb) != string(oldBody) {
		t.Fatal("backup content differs from replaced file")
	}
}

func TestRunIncompatibleTouchesNothing(t *testing.T) {
	_, srv := newFileServer(t)
	cat := newFakeCatalog()
	cat.addMod(srv, "oldmod", "v1", "1.0.0", []byte("x"))
	// Only versions for another game release exist.
	vs := cat.versions["oldmod"]
	vs[0].GameVersions = []string{"1.19.2"}
	cat.versions["oldmod"] = vs

	cfg := testConfig(t)
	sum, err := newTestSyncer(t, cfg, cat).Run(context.Background(), []config.Project{{Slug: "oldmod"}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Incompatible != 1 {
		t.Fatalf("want incompatible, got %+v", sum)
	}
	if _, err := os.Stat(filepath.Join(cfg.MinecraftDir, "mods")); !os.IsNotExist(err) {
		t.Fatal("incompatible item created the target dir")
	}
	snap, _ := state.New(cfg.MinecraftDir).Load()
	if len(snap.Files) != 0 {
		t.Fatal("incompatible item wrote state")
	}
}

func TestRunCatalogFailureIsolated(t *testing.T) {
	fs, srv := newFileServer(t)
	body := []byte("ok mod")
	fs.put("/okmod/v1", body)

	cat := newFakeCatalog()
	cat.addMod(srv, "okmod", "v1", "1.0.0", body)
	cat.fail["badmod"] = &modrinth.APIError{Status: 503, Message: "unavailable", Retryable: true}

	cfg := testConfig(t)
	sum, err := newTestSyncer(t, cfg, cat).Run(context.Background(), []config.Project{
		{Slug: "badmod"}, {Slug: "okmod"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Failed != 1 || sum.Installed != 1 {
		t.Fatalf("failure was not isolated: %+v", sum)
	}
	var failed Outcome
	for _, o := range sum.Outcomes {
		if o.Slug == "badmod" {
			failed = o
		}
	}
	if failed.Err == nil {
		t.Fatal("failed outcome carries no error")
	}
}

func TestRunHashMismatchLeavesNoFile(t *testing.T) {
	fs, srv := newFileServer(t)
	fs.put("/tampered/v1", []byte("actual bytes"))

	cat := newFakeCatalog()
	cat.addMod(srv, "tampered", "v1", "1.0.0", []byte("declared bytes"))

	cfg := testConfig(t)
	sum, err := newTestSyncer(t, cfg, cat).Run(context.Background(), []config.Project{{Slug: "tampered"}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Failed != 1 {
		t.Fatalf("want failed, got %+v", sum)
	}
	var mismatch *download.HashMismatchError
	if !errors.As(sum.Outcomes[0].Err, &mismatch) {
		t.Fatalf("want HashMismatchError, got %v", sum.Outcomes[0].Err)
	}
	if _, err := os.Stat(filepath.Join(cfg.MinecraftDir, "mods", "tampered-1.0.0.jar")); !os.IsNotExist(err) {
		t.Fatal("mismatched file was placed")
	}
	leftovers, _ := filepath.Glob(filepath.Join(cfg.MinecraftDir, downloadDirName, "*"))
	if len(leftovers) != 0 {
		t.Fatalf("temp dir not cleaned: %v", leftovers)
	}
	snap, _ := state.New(cfg.MinecraftDir).Load()
	if len(snap.Files) != 0 {
		t.Fatal("failed item wrote state")
	}
}

func TestRunReinstallsMissingInstalledFile(t *testing.T) {
	fs, srv := newFileServer(t)
	body := []byte("modmenu")
	fs.put("/modmenu/v1", body)

	cat := newFakeCatalog()
	cat.addMod(srv, "modmenu", "v1", "11.0.0", body)

	cfg := testConfig(t)
	projects := []config.Project{{Slug: "modmenu"}}
	if _, err := newTestSyncer(t, cfg, cat).Run(context.Background(), projects); err != nil {
		t.Fatalf("install run: %v", err)
	}

	placed := filepath.Join(cfg.MinecraftDir, "mods", "modmenu-11.0.0.jar")
	if err := os.Remove(placed); err != nil {
		t.Fatalf("remove installed file: %v", err)
	}

	sum, err := newTestSyncer(t, cfg, cat).Run(context.Background(), projects)
	if err != nil {
		t.Fatalf("repair run: %v", err)
	}
	if sum.Installed != 1 {
		t.Fatalf("want reinstall, got %+v", sum)
	}
	if _, err := os.Stat(placed); err != nil {
		t.Fatalf("file not restored: %v", err)
	}
}

func TestRunReplacesCorruptInstalledFile(t *testing.T) {
	fs, srv := newFileServer(t)
	body := []byte("ferritecore real")
	fs.put("/ferritecore/v1", body)

	cat := newFakeCatalog()
	cat.addMod(srv, "ferritecore", "v1", "7.0.0", body)

	cfg := testConfig(t)
	projects := []config.Project{{Slug: "ferritecore"}}
	if _, err := newTestSyncer(t, cfg, cat).Run(context.Background(), projects); err != nil {
		t.Fatalf("install run: %v", err)
	}

	placed := filepath.Join(cfg.MinecraftDir, "mods", "ferritecore-7.0.0.jar")
	if err := os.WriteFile(placed, []byte("bit rot"), 0o644); err != nil {
		t.Fatalf("corrupt file: %v", err)
	}

	sum, err := newTestSyncer(t, cfg, cat).Run(context.Background(), projects)
	if err != nil {
		t.Fatalf("repair run: %v", err)
	}
	if sum.Updated != 1 {
		t.Fatalf("want update, got %+v", sum)
	}
	got, _ := os.ReadFile(placed)
	if string(got) != string(body) {
		t.Fatal("corrupt file not replaced with verified content")
	}
}

func TestRunConcurrencyLimitOne(t *testing.T) {
	fs, srv := newFileServer(t)
	a := []byte("mod a")
	b := []byte("mod b")
	fs.put("/moda/v1", a)
	fs.put("/modb/v1", b)

	cat := newFakeCatalog()
	cat.addMod(srv, "moda", "v1", "1.0.0", a)
	cat.addMod(srv, "modb", "v1", "1.0.0", b)

	cfg := testConfig(t)
	cfg.MaxConcurrentDownloads = 1
	sum, err := newTestSyncer(t, cfg, cat).Run(context.Background(), []config.Project{
		{Slug: "moda"}, {Slug: "modb"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Installed != 2 {
		t.Fatalf("both items must reach a terminal state: %+v", sum)
	}
}

// Two projects can publish files with the same name. Their concurrent
// downloads must not share a temp path, or one verified stream can be
// clobbered by the other before placement.
func TestRunSameFilenameProjectsDoNotCollide(t *testing.T) {
	fs, srv := newFileServer(t)
	bodyA := bytes.Repeat([]byte("alpha-jar-bytes!"), 4096)
	bodyB := bytes.Repeat([]byte("beta-jar-bytes!!"), 4096)

	cat := newFakeCatalog()
	for slug, body := range map[string][]byte{"alpha": bodyA, "beta": bodyB} {
		fs.put("/"+slug+"/v1", body)
		cat.projects[slug] = modrinth.Project{ID: "p-" + slug, Slug: slug, ProjectType: modrinth.TypeMod}
		cat.versions[slug] = []modrinth.Version{{
			ID:            "v1",
			ProjectID:     "p-" + slug,
			VersionNumber: "1.0.0",
			VersionType:   modrinth.ChannelRelease,
			GameVersions:  []string{"1.21.1"},
			Loaders:       []string{"fabric"},
			DatePublished: time.Now(),
			Files: []modrinth.File{{
				URL:      srv.URL + "/" + slug + "/v1",
				Filename: "shared.jar",
				Size:     int64(len(body)),
				Hashes:   modrinth.Hashes{SHA512: sha512hex(body)},
				Primary:  true,
			}},
		}}
	}

	cfg := testConfig(t)
	sum, err := newTestSyncer(t, cfg, cat).Run(context.Background(), []config.Project{
		{Slug: "alpha"}, {Slug: "beta"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Installed != 2 || sum.Failed != 0 {
		t.Fatalf("unexpected summary: %+v", sum)
	}

	// Whichever project placed last owns the file, but the bytes must be
	// one complete download, never a mix of the two.
	got, err := os.ReadFile(filepath.Join(cfg.MinecraftDir, "mods", "shared.jar"))
	if err != nil {
		t.Fatalf("placed file: %v", err)
	}
	if !bytes.Equal(got, bodyA) && !bytes.Equal(got, bodyB) {
		t.Fatal("placed file is not a complete copy of either download")
	}
}

func TestRunReportsOrphans(t *testing.T) {
	fs, srv := newFileServer(t)
	body := []byte("kept")
	fs.put("/kept/v1", body)

	cat := newFakeCatalog()
	cat.addMod(srv, "kept", "v1", "1.0.0", body)

	cfg := testConfig(t)
	store := state.New(cfg.MinecraftDir)
	snap := state.NewSnapshot()
	snap.Files["ghost"] = state.InstalledFile{
		Slug: "ghost", ProjectType: modrinth.TypeMod, Filename: "ghost.jar",
		VersionID: "g1", SHA512: "ab", FilePath: filepath.Join(cfg.MinecraftDir, "mods", "ghost.jar"),
	}
	if err := store.Save(snap); err != nil {
		t.Fatalf("seed state: %v", err)
	}

	sum, err := newTestSyncer(t, cfg, cat).Run(context.Background(), []config.Project{{Slug: "kept"}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sum.Orphans) != 1 || sum.Orphans[0].Slug != "ghost" {
		t.Fatalf("orphans not reported: %+v", sum.Orphans)
	}
	// The orphan record itself survives the run.
	after, _ := store.Load()
	if _, ok := after.Files["ghost"]; !ok {
		t.Fatal("orphan record removed from state")
	}
}

func TestUninstall(t *testing.T) {
	fs, srv := newFileServer(t)
	body := []byte("bye")
	fs.put("/bye/v1", body)

	cat := newFakeCatalog()
	cat.addMod(srv, "bye", "v1", "1.0.0", body)

	cfg := testConfig(t)
	s := newTestSyncer(t, cfg, cat)
	if _, err := s.Run(context.Background(), []config.Project{{Slug: "bye"}}); err != nil {
		t.Fatalf("install run: %v", err)
	}

	rec, err := s.Uninstall("bye", true)
	if err != nil {
		t.Fatalf("Uninstall: %v", err)
	}
	if rec == nil || rec.Slug != "bye" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if _, err := os.Stat(rec.FilePath); !os.IsNotExist(err) {
		t.Fatal("file not deleted")
	}
	snap, _ := state.New(cfg.MinecraftDir).Load()
	if len(snap.Files) != 0 {
		t.Fatal("state record not removed")
	}

	// Unknown slug is a no-op.
	rec, err = s.Uninstall("never-installed", true)
	if err != nil || rec != nil {
		t.Fatalf("want no-op, got rec=%+v err=%v", rec, err)
	}
}

func TestCheckDoesNotTouchFilesystem(t *testing.T) {
	_, srv := newFileServer(t)
	cat := newFakeCatalog()
	cat.addMod(srv, "dry", "v1", "1.0.0", []byte("dry run"))

	cfg := testConfig(t)
	plans, err := newTestSyncer(t, cfg, cat).Check(context.Background(), []config.Project{{Slug: "dry"}})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(plans) != 1 || plans[0].Decision != DecisionInstall {
		t.Fatalf("unexpected plans: %+v", plans)
	}
	entries, err := os.ReadDir(cfg.MinecraftDir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("check created files: %v", entries)
	}
}

func TestRunPinnedVersion(t *testing.T) {
	fs, srv := newFileServer(t)
	oldBody := []byte("pinned old")
	newBody := []byte("shiny new")
	fs.put("/pinned/v1", oldBody)
	fs.put("/pinned/v2", newBody)

	cat := newFakeCatalog()
	cat.addMod(srv, "pinned", "v1", "1.0.0", oldBody)
	cat.addMod(srv, "pinned", "v2", "2.0.0", newBody)

	cfg := testConfig(t)
	sum, err := newTestSyncer(t, cfg, cat).Run(context.Background(), []config.Project{
		{Slug: "pinned", Version: "1.0.0"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Installed != 1 {
		t.Fatalf("want install, got %+v", sum)
	}
	if _, err := os.Stat(filepath.Join(cfg.MinecraftDir, "mods", "pinned-1.0.0.jar")); err != nil {
		t.Fatal("pinned version not installed")
	}
	if _, err := os.Stat(filepath.Join(cfg.MinecraftDir, "mods", "pinned-2.0.0.jar")); !os.IsNotExist(err) {
		t.Fatal("newer version installed despite pin")
	}

	// A pin with no exact match must not fall back to another version.
	sum, err = newTestSyncer(t, cfg, cat).Run(context.Background(), []config.Project{
		{Slug: "pinned", Version: "9.9.9"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Incompatible != 1 {
		t.Fatalf("missing pin must be incompatible: %+v", sum)
	}
}
