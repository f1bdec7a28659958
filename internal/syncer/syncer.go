// Package syncer reconciles the tracked project set against the remote
// catalog: resolve the target version per project, compare with local
// state, download/verify/place what changed, and commit the result.
// Items run on a bounded worker pool; one item's failure never aborts
// its siblings.
package syncer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mcpax/mcpax-cli/internal/config"
	"github.com/mcpax/mcpax-cli/internal/download"
	"github.com/mcpax/mcpax-cli/internal/modrinth"
	"github.com/mcpax/mcpax-cli/internal/resolver"
	"github.com/mcpax/mcpax-cli/internal/state"
)

const (
	// downloadDirName holds in-flight downloads under the minecraft dir.
	downloadDirName = ".mcpax-downloads"
	// backupDirName receives replaced files before the swap.
	backupDirName = ".mcpax-backup"
)

// Decision classifies what the synchronizer concluded for one project.
type Decision string

const (
	DecisionUpToDate     Decision = "up-to-date"
	DecisionInstall      Decision = "install"
	DecisionUpdate       Decision = "update"
	DecisionIncompatible Decision = "incompatible"
	DecisionFailed       Decision = "failed"
)

// Catalog is the remote surface the synchronizer consumes.
type Catalog interface {
	Project(ctx context.Context, slug string) (modrinth.Project, error)
	Versions(ctx context.Context, slug string) ([]modrinth.Version, error)
}

// Plan is the resolved intent for one tracked project before any file
// operation happens.
type Plan struct {
	Project  config.Project
	Type     modrinth.ProjectType
	Decision Decision
	Current  *state.InstalledFile
	Target   *modrinth.Version
	File     *modrinth.File
	Err      error
	// Note carries human-readable context, e.g. why an installed file
	// is being replaced even though the version id did not change.
	Note string
}

// Outcome is the terminal result for one project after Apply.
type Outcome struct {
	Slug       string
	Decision   Decision
	Err        error
	Installed  *state.InstalledFile
	BackupPath string
	Note       string
}

// ReportFunc receives one terminal outcome per project, from worker
// goroutines, as items complete.
type ReportFunc func(Outcome)

// Summary aggregates a whole run.
type Summary struct {
	UpToDate     int
	Installed    int
	Updated      int
	Incompatible int
	Failed       int
	Outcomes     []Outcome
	// Orphans are state entries for projects no longer tracked. They
	// are reported, never removed automatically.
	Orphans []state.InstalledFile
}

// Options wires the synchronizer's collaborators.
type Options struct {
	Config   config.Config
	Catalog  Catalog
	Fetcher  *download.Fetcher
	Store    *state.Store
	Report   ReportFunc
	Progress download.ProgressFunc
	Now      func() time.Time
}

// Syncer orchestrates one run. The state snapshot is owned by the
// syncer; workers hand their records back through a mutex-guarded
// commit rather than mutating shared state directly.
type Syncer struct {
	cfg      config.Config
	catalog  Catalog
	fetcher  *download.Fetcher
	store    *state.Store
	report   ReportFunc
	progress download.ProgressFunc
	now      func() time.Time

	mu   sync.Mutex
	snap *state.Snapshot
}

// New creates a synchronizer.
func New(opts Options) *Syncer {
	s := &Syncer{
		cfg:      opts.Config,
		catalog:  opts.Catalog,
		fetcher:  opts.Fetcher,
		store:    opts.Store,
		report:   opts.Report,
		progress: opts.Progress,
		now:      opts.Now,
	}
	if s.report == nil {
		s.report = func(Outcome) {}
	}
	if s.progress == nil {
		s.progress = func(download.Event) {}
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.cfg.MaxConcurrentDownloads <= 0 {
		s.cfg.MaxConcurrentDownloads = download.DefaultMaxConcurrent
	}
	return s
}

// Check resolves every tracked project without touching any file.
// Only shared-infrastructure failures (state load) return an error;
// per-project failures are carried in the plans.
func (s *Syncer) Check(ctx context.Context, projects []config.Project) ([]Plan, error) {
	snap, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	s.snap = snap

	plans := make([]Plan, len(projects))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MaxConcurrentDownloads)
	for i, proj := range projects {
		g.Go(func() error {
			plans[i] = s.plan(gctx, proj)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return plans, nil
}

// Run performs a full sync: Check, then Apply for everything that needs
// action. It returns a summary covering all projects.
func (s *Syncer) Run(ctx context.Context, projects []config.Project) (Summary, error) {
	plans, err := s.Check(ctx, projects)
	if err != nil {
		return Summary{}, err
	}
	return s.Apply(ctx, plans, config.Projects{Projects: projects})
}

// Apply executes the install/update plans: all downloads run through
// the fetcher's bounded batch, then verified files are placed and
// committed one at a time by the snapshot owner. The run fails only on
// process-level faults (state save); per-item failures land in the
// summary.
func (s *Syncer) Apply(ctx context.Context, plans []Plan, tracked config.Projects) (Summary, error) {
	if s.snap == nil {
		snap, err := s.store.Load()
		if err != nil {
			return Summary{}, err
		}
		s.snap = snap
	}

	outcomes := make([]Outcome, len(plans))
	var tasks []download.Task
	var fetchIdx []int
	for i, p := range plans {
		if p.Decision != DecisionInstall && p.Decision != DecisionUpdate {
			out := Outcome{Slug: p.Project.Slug, Decision: p.Decision, Err: p.Err, Note: p.Note}
			outcomes[i] = out
			s.report(out)
			continue
		}
		tasks = append(tasks, s.fetchTask(p))
		fetchIdx = append(fetchIdx, i)
	}

	results := s.fetcher.FetchAll(ctx, tasks, s.progress)

	var saveErr error
	for k, res := range results {
		i := fetchIdx[k]
		p := plans[i]
		out := Outcome{Slug: p.Project.Slug, Decision: p.Decision, Note: p.Note}
		if res.Err != nil {
			out.Decision = DecisionFailed
			out.Err = res.Err
		} else if installed, backupPath, err := s.place(p, res.Path); err != nil {
			os.Remove(res.Path)
			out.Decision = DecisionFailed
			out.Err = err
		} else {
			out.Installed = installed
			out.BackupPath = backupPath
		}
		outcomes[i] = out
		s.report(out)
		if out.Installed != nil {
			if err := s.commit(*out.Installed); err != nil {
				saveErr = err
			}
		}
	}

	// Final save so the on-disk state reflects the whole batch even if
	// nothing changed since the last per-item commit.
	if err := s.save(); err != nil && saveErr == nil {
		saveErr = err
	}
	if saveErr != nil {
		return Summary{}, fmt.Errorf("persist state: %w", saveErr)
	}

	sum := Summary{Outcomes: outcomes, Orphans: s.snap.Orphans(tracked.Slugs())}
	for _, o := range outcomes {
		switch o.Decision {
		case DecisionUpToDate:
			sum.UpToDate++
		case DecisionInstall:
			sum.Installed++
		case DecisionUpdate:
			sum.Updated++
		case DecisionIncompatible:
			sum.Incompatible++
		default:
			sum.Failed++
		}
	}
	return sum, nil
}

// plan runs the resolve step for one project: fetch metadata and
// versions, select the best candidate, compare with installed state.
func (s *Syncer) plan(ctx context.Context, proj config.Project) Plan {
	p := Plan{Project: proj}

	meta, err := s.catalog.Project(ctx, proj.Slug)
	if err != nil {
		p.Decision = DecisionFailed
		p.Err = err
		return p
	}
	if !meta.ProjectType.Valid() {
		p.Decision = DecisionFailed
		p.Err = fmt.Errorf("unsupported project type %q", meta.ProjectType)
		return p
	}
	p.Type = meta.ProjectType

	versions, err := s.catalog.Versions(ctx, proj.Slug)
	if err != nil {
		p.Decision = DecisionFailed
		p.Err = err
		return p
	}

	crit := resolver.Criteria{
		GameVersion: s.cfg.MinecraftVersion,
		Loader:      string(s.cfg.Loader),
		Channel:     s.cfg.ChannelFor(proj),
		Pin:         proj.Version,
		ProjectType: meta.ProjectType,
	}
	best, ok := resolver.SelectBest(versions, crit)
	if !ok {
		p.Decision = DecisionIncompatible
		return p
	}
	p.Target = best

	file, err := resolver.PrimaryFile(best)
	if err != nil {
		p.Decision = DecisionFailed
		p.Err = err
		return p
	}
	p.File = file

	s.mu.Lock()
	cur, exists := s.snap.Files[proj.Slug]
	s.mu.Unlock()
	if !exists {
		p.Decision = DecisionInstall
		return p
	}
	p.Current = &cur

	if cur.VersionID != best.ID || !strings.EqualFold(cur.SHA512, file.Hashes.SHA512) {
		p.Decision = DecisionUpdate
		return p
	}

	// Same version on record; trust it only if the file is still there
	// and still matches the recorded hash.
	if _, err := os.Stat(cur.FilePath); err != nil {
		p.Decision = DecisionInstall
		p.Note = "installed file missing from disk"
		return p
	}
	if err := download.VerifyFile(cur.FilePath, cur.SHA512); err != nil {
		p.Decision = DecisionUpdate
		p.Note = "installed file does not match recorded hash"
		return p
	}
	p.Decision = DecisionUpToDate
	return p
}

// fetchTask builds the download task for one plan. The temp filename
// is slug-prefixed: two projects may publish files with the same name,
// and concurrent downloads must never share a path.
func (s *Syncer) fetchTask(p Plan) download.Task {
	tmpDir := filepath.Join(s.cfg.MinecraftDir, downloadDirName)
	return download.Task{
		URL:            p.File.URL,
		Dest:           filepath.Join(tmpDir, p.Project.Slug+"_"+p.File.Filename),
		ExpectedSHA512: p.File.Hashes.SHA512,
		Slug:           p.Project.Slug,
		VersionNumber:  p.Target.VersionNumber,
	}
}

// place backs up the previous file (if any) and moves the verified temp
// file into the target directory. Backup failure aborts before anything
// is disturbed.
func (s *Syncer) place(p Plan, tempPath string) (*state.InstalledFile, string, error) {
	targetDir := s.cfg.TargetDir(p.Type)
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return nil, "", fmt.Errorf("create target dir: %w", err)
	}
	finalPath := filepath.Join(targetDir, p.File.Filename)

	backupPath := ""
	if p.Current != nil {
		if _, err := os.Stat(p.Current.FilePath); err == nil {
			bp, err := s.backup(p.Current.FilePath)
			if err != nil {
				return nil, "", fmt.Errorf("backup %s: %w", p.Current.Filename, err)
			}
			backupPath = bp
		}
	}

	if err := moveFile(tempPath, finalPath); err != nil {
		return nil, "", fmt.Errorf("place %s: %w", p.File.Filename, err)
	}

	// An update can change the filename; drop the superseded file once
	// the new one is in place (the backup still holds a copy).
	if p.Current != nil && p.Current.FilePath != finalPath {
		if _, err := os.Stat(p.Current.FilePath); err == nil {
			_ = os.Remove(p.Current.FilePath)
		}
	}

	return &state.InstalledFile{
		Slug:          p.Project.Slug,
		ProjectType:   p.Type,
		Filename:      p.File.Filename,
		VersionID:     p.Target.ID,
		VersionNumber: p.Target.VersionNumber,
		SHA512:        p.File.Hashes.SHA512,
		InstalledAt:   s.now().UTC(),
		FilePath:      finalPath,
	}, backupPath, nil
}

// backup copies a file into the backup dir under a timestamped name.
func (s *Syncer) backup(path string) (string, error) {
	dir := filepath.Join(s.cfg.MinecraftDir, backupDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	ts := s.now().UTC().Format("20060102_150405")
	dst := filepath.Join(dir, fmt.Sprintf("%s_%s%s", stem, ts, ext))
	if err := copyFile(path, dst); err != nil {
		return "", err
	}
	return dst, nil
}

// commit hands one record back to the snapshot owner and persists it.
// Per-item durability: a crash mid-run loses at most in-flight items.
func (s *Syncer) commit(rec state.InstalledFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Files[rec.Slug] = rec
	return s.store.Save(s.snap)
}

func (s *Syncer) save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Save(s.snap)
}

// Uninstall removes a project's installed file and its state record.
// Removing something that was never installed is a no-op.
func (s *Syncer) Uninstall(slug string, deleteFile bool) (*state.InstalledFile, error) {
	snap, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	rec, ok := snap.Files[slug]
	if !ok {
		return nil, nil
	}
	if deleteFile {
		if err := os.Remove(rec.FilePath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("delete %s: %w", rec.FilePath, err)
		}
	}
	delete(snap.Files, slug)
	if err := s.store.Save(snap); err != nil {
		return nil, err
	}
	return &rec, nil
}

// moveFile renames src to dst, falling back to copy+remove across
// filesystems (temp dir and target dir may be on different mounts).
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := copyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}
