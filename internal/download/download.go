// Package download streams remote files to local temp paths with inline
// hash verification. It knows nothing about version resolution or final
// placement; callers receive a verified temp file or a typed failure.
package download

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// DefaultMaxConcurrent bounds parallel downloads when the caller does
// not configure a limit.
const DefaultMaxConcurrent = 5

// Phase identifies what a progress event refers to.
type Phase string

const (
	PhaseDownload Phase = "download"
	PhaseVerify   Phase = "verify"
)

// Event is one progress update for a task. Total is -1 when the server
// did not send a length.
type Event struct {
	Slug    string
	Phase   Phase
	Current int64
	Total   int64
}

// ProgressFunc receives progress events. May be called from multiple
// goroutines when downloads run concurrently.
type ProgressFunc func(Event)

// Task describes one file to fetch.
type Task struct {
	URL            string
	Dest           string // temp path the bytes are streamed to
	ExpectedSHA512 string // empty skips verification
	Slug           string
	VersionNumber  string
}

// Result is the outcome of one task. Path is set only on success; on
// any failure the partial file has already been removed.
type Result struct {
	Task Task
	Path string
	Err  error
}

// HashMismatchError reports that the downloaded bytes do not match the
// catalog-declared hash. The temp file has been deleted.
type HashMismatchError struct {
	Filename string
	Expected string
	Actual   string
}

func (e *HashMismatchError) Error() string {
	return fmt.Sprintf("hash mismatch for %s: expected %s, got %s", e.Filename, e.Expected, e.Actual)
}

// HTTPDoer interface for HTTP requests (allows mocking in tests).
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Fetcher downloads artifact files.
type Fetcher struct {
	http          HTTPDoer
	userAgent     string
	maxConcurrent int64
}

// New creates a fetcher with a download-tuned HTTP client: no overall
// timeout (artifacts can be large) but a bounded header wait.
func New(userAgent string, maxConcurrent int) *Fetcher {
	return NewWith(userAgent, maxConcurrent, &http.Client{
		Transport: &http.Transport{
			ResponseHeaderTimeout: 30 * time.Second,
			IdleConnTimeout:       90 * time.Second,
		},
	})
}

// NewWith creates a fetcher with a custom HTTPDoer (for testing).
func NewWith(userAgent string, maxConcurrent int, h HTTPDoer) *Fetcher {
	if userAgent == "" {
		panic("download: client identity (User-Agent) must not be empty")
	}
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	if h == nil {
		h = http.DefaultClient
	}
	return &Fetcher{http: h, userAgent: userAgent, maxConcurrent: int64(maxConcurrent)}
}

// Fetch streams one file into a private scratch path, computing the
// sha512 over the same pass, and renames it to task.Dest only after
// the hash checks out. On hash mismatch or any network/filesystem
// failure the scratch file is removed and Result.Err is set; nothing
// ever appears at task.Dest unverified.
func (f *Fetcher) Fetch(ctx context.Context, task Task, progress ProgressFunc) Result {
	if progress == nil {
		progress = func(Event) {}
	}
	path, err := f.fetch(ctx, task, progress)
	return Result{Task: task, Path: path, Err: err}
}

// FetchAll downloads tasks with bounded concurrency. Results are in
// task order; one failed task never aborts the others. Cancellation
// stops issuing new tasks and aborts in-flight streams cleanly.
func (f *Fetcher) FetchAll(ctx context.Context, tasks []Task, progress ProgressFunc) []Result {
	results := make([]Result, len(tasks))
	sem := semaphore.NewWeighted(f.maxConcurrent)
	var wg sync.WaitGroup

	for i, task := range tasks {
		if err := sem.Acquire(ctx, 1); err != nil {
			results[i] = Result{Task: task, Err: err}
			continue
		}
		wg.Add(1)
		go func(i int, task Task) {
			defer wg.Done()
			defer sem.Release(1)
			results[i] = f.Fetch(ctx, task, progress)
		}(i, task)
	}

	wg.Wait()
	return results
}

func (f *Fetcher) fetch(ctx context.Context, task Task, progress ProgressFunc) (string, error) {
	if err := os.MkdirAll(filepath.Dir(task.Dest), 0o755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, task.URL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", task.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download %s: HTTP %d", task.URL, resp.StatusCode)
	}

	// Stream into an exclusive scratch file next to Dest. Two tasks
	// aimed at the same Dest must never share a write path: the hash is
	// computed over this stream, so the verified bytes have to be
	// exactly the bytes in the file we later promote.
	out, err := os.CreateTemp(filepath.Dir(task.Dest), "."+filepath.Base(task.Dest)+".*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	scratch := out.Name()

	// Single pass: bytes hit the hash and the file together, so no
	// second read and no whole-file buffering.
	hash := sha512.New()
	reader := io.TeeReader(&progressReader{
		reader: resp.Body,
		total:  resp.ContentLength,
		notify: func(current, total int64) {
			progress(Event{Slug: task.Slug, Phase: PhaseDownload, Current: current, Total: total})
		},
	}, hash)

	_, copyErr := io.Copy(out, reader)
	closeErr := out.Close()
	if copyErr != nil {
		os.Remove(scratch)
		return "", fmt.Errorf("stream %s: %w", task.URL, copyErr)
	}
	if closeErr != nil {
		os.Remove(scratch)
		return "", fmt.Errorf("flush temp file: %w", closeErr)
	}

	if task.ExpectedSHA512 != "" {
		progress(Event{Slug: task.Slug, Phase: PhaseVerify, Current: 0, Total: 1})
		actual := hex.EncodeToString(hash.Sum(nil))
		if !strings.EqualFold(actual, task.ExpectedSHA512) {
			os.Remove(scratch)
			return "", &HashMismatchError{
				Filename: filepath.Base(task.Dest),
				Expected: task.ExpectedSHA512,
				Actual:   actual,
			}
		}
		progress(Event{Slug: task.Slug, Phase: PhaseVerify, Current: 1, Total: 1})
	}

	// Promote only a fully-verified file.
	if err := os.Rename(scratch, task.Dest); err != nil {
		os.Remove(scratch)
		return "", fmt.Errorf("finalize %s: %w", filepath.Base(task.Dest), err)
	}
	return task.Dest, nil
}

// progressReader wraps a reader to report download progress.
type progressReader struct {
	reader  io.Reader
	total   int64
	current int64
	notify  func(current, total int64)
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	pr.current += int64(n)
	if pr.notify != nil {
		pr.notify(pr.current, pr.total)
	}
	return n, err
}
