// Package doctor runs diagnostic checks on an instance: configuration
// validity, directory permissions, disk headroom, catalog reachability
// and state integrity. Each check returns a Result; nothing here prints
// or exits, that is the command layer's job.
package doctor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/mcpax/mcpax-cli/internal/config"
	"github.com/mcpax/mcpax-cli/internal/modrinth"
	"github.com/mcpax/mcpax-cli/internal/state"
)

// Status of one check.
const (
	StatusPass = "pass"
	StatusWarn = "warn"
	StatusFail = "fail"
)

// Result is the outcome of a single diagnostic check.
type Result struct {
	Name    string
	Status  string
	Message string
	Details []string
}

// Disk headroom thresholds for the instance filesystem.
const (
	diskWarnBytes = 1 << 30  // 1 GiB
	diskFailBytes = 64 << 20 // 64 MiB
)

// Pinger is the minimal catalog surface the reachability check needs.
type Pinger interface {
	Search(ctx context.Context, query string, limit, offset int) (modrinth.SearchResult, error)
}

// Options wires the checks' inputs. Catalog may be nil to skip the
// reachability check (offline mode).
type Options struct {
	Config  config.Config
	CfgErr  error // error from loading the config, if any
	Store   *state.Store
	Catalog Pinger
}

// Run executes all checks in a fixed order.
func Run(ctx context.Context, opts Options) []Result {
	results := []Result{
		CheckConfig(opts.Config, opts.CfgErr),
		CheckDirectories(opts.Config),
		CheckDiskSpace(opts.Config.MinecraftDir),
		CheckMemory(),
	}
	if opts.Catalog != nil {
		results = append(results, CheckCatalog(ctx, opts.Catalog))
	}
	if opts.Store != nil {
		results = append(results, CheckState(opts.Store))
	}
	return results
}

// Summarize counts results per status.
func Summarize(results []Result) (passed, warned, failed int) {
	for _, r := range results {
		switch r.Status {
		case StatusPass:
			passed++
		case StatusWarn:
			warned++
		default:
			failed++
		}
	}
	return
}

// CheckConfig verifies the configuration loaded and validates.
func CheckConfig(cfg config.Config, loadErr error) Result {
	r := Result{Name: "Configuration"}
	if loadErr != nil {
		r.Status = StatusFail
		r.Message = "Configuration could not be loaded"
		r.Details = []string{loadErr.Error(), "Run 'mcpax init' to create one"}
		return r
	}
	if err := cfg.Validate(); err != nil {
		r.Status = StatusFail
		r.Message = "Configuration is invalid"
		r.Details = []string{err.Error()}
		return r
	}
	r.Status = StatusPass
	r.Message = fmt.Sprintf("Minecraft %s / %s", cfg.MinecraftVersion, cfg.Loader)
	return r
}

// CheckDirectories verifies the instance dir exists and every target
// directory is writable (probed with a temp file).
func CheckDirectories(cfg config.Config) Result {
	r := Result{Name: "Directories"}
	info, err := os.Stat(cfg.MinecraftDir)
	if err != nil {
		r.Status = StatusFail
		r.Message = fmt.Sprintf("Instance directory not found: %s", cfg.MinecraftDir)
		return r
	}
	if !info.IsDir() {
		r.Status = StatusFail
		r.Message = fmt.Sprintf("Instance path is not a directory: %s", cfg.MinecraftDir)
		return r
	}

	var problems []string
	for _, t := range []modrinth.ProjectType{modrinth.TypeMod, modrinth.TypeShader, modrinth.TypeResourcepack} {
		dir := cfg.TargetDir(t)
		if err := probeWritable(dir); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", dir, err))
		}
	}
	if len(problems) > 0 {
		r.Status = StatusFail
		r.Message = "Target directories are not writable"
		r.Details = problems
		return r
	}
	r.Status = StatusPass
	r.Message = "All target directories writable"
	return r
}

func probeWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	probe := filepath.Join(dir, ".mcpax-probe")
	if err := os.WriteFile(probe, nil, 0o644); err != nil {
		return err
	}
	return os.Remove(probe)
}

// CheckDiskSpace verifies the filesystem holding the instance has
// enough free space for downloads plus backups.
func CheckDiskSpace(dir string) Result {
	r := Result{Name: "Disk Space"}
	usage, err := disk.Usage(dir)
	if err != nil {
		r.Status = StatusWarn
		r.Message = "Could not determine disk usage"
		r.Details = []string{err.Error()}
		return r
	}
	free := usage.Free
	switch {
	case free < diskFailBytes:
		r.Status = StatusFail
		r.Message = fmt.Sprintf("Only %s free on %s", humanBytes(free), dir)
		r.Details = []string{"Downloads and backups need headroom; free up space"}
	case free < diskWarnBytes:
		r.Status = StatusWarn
		r.Message = fmt.Sprintf("%s free on %s (%.0f%% used)", humanBytes(free), dir, usage.UsedPercent)
	default:
		r.Status = StatusPass
		r.Message = fmt.Sprintf("%s free (%.0f%% used)", humanBytes(free), usage.UsedPercent)
	}
	return r
}

// CheckMemory reports available system memory. Purely informational;
// only extreme pressure warns.
func CheckMemory() Result {
	r := Result{Name: "Memory"}
	vm, err := mem.VirtualMemory()
	if err != nil {
		r.Status = StatusWarn
		r.Message = "Could not determine memory usage"
		return r
	}
	if vm.UsedPercent > 95 {
		r.Status = StatusWarn
		r.Message = fmt.Sprintf("Memory nearly exhausted (%.0f%% used)", vm.UsedPercent)
		return r
	}
	r.Status = StatusPass
	r.Message = fmt.Sprintf("%s of %s used (%.0f%%)", humanBytes(vm.Used), humanBytes(vm.Total), vm.UsedPercent)
	return r
}

// CheckCatalog probes the catalog with a minimal search.
func CheckCatalog(ctx context.Context, p Pinger) Result {
	r := Result{Name: "Catalog"}
	if _, err := p.Search(ctx, "fabric-api", 1, 0); err != nil {
		r.Status = StatusFail
		r.Message = "Catalog unreachable"
		r.Details = []string{err.Error(), "Check network connectivity"}
		return r
	}
	r.Status = StatusPass
	r.Message = "Catalog reachable"
	return r
}

// CheckState verifies the state file loads and every record's file is
// still present and intact.
func CheckState(store *state.Store) Result {
	r := Result{Name: "State"}
	snap, err := store.Load()
	if err != nil {
		r.Status = StatusFail
		r.Message = "State file unreadable"
		r.Details = []string{err.Error(), "Delete the state file and re-run 'mcpax sync' to rebuild it"}
		return r
	}

	var missing []string
	for slug, rec := range snap.Files {
		if _, err := os.Stat(rec.FilePath); err != nil {
			missing = append(missing, fmt.Sprintf("%s: %s", slug, rec.FilePath))
		}
	}
	if len(missing) > 0 {
		r.Status = StatusWarn
		r.Message = fmt.Sprintf("%d tracked file(s) missing from disk", len(missing))
		r.Details = append(missing, "Run 'mcpax sync' to reinstall them")
		return r
	}
	r.Status = StatusPass
	r.Message = fmt.Sprintf("%d tracked file(s), all present", len(snap.Files))
	return r
}

func humanBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit && exp < 3; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%s", float64(n)/float64(div), []string{"KB", "MB", "GB", "TB"}[exp])
}
