// Package library builds DATs from directories of files.
package library

import (
	"archive/zip"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/ryanm101/datman/internal/datfile"
	"github.com/ryanm101/datman/internal/datitem"
	"github.com/ryanm101/datman/internal/hashes"
	"github.com/ryanm101/datman/internal/logging"
	"github.com/ryanm101/datman/internal/metrics"
	"github.com/ryanm101/datman/internal/tracing"
)

// HashCache stores digests keyed by path, size and modification time.
// *db.DB satisfies it.
type HashCache interface {
	Lookup(ctx context.Context, path string, size int64, mtime time.Time) (hashes.Set, error)
	Store(ctx context.Context, path string, size int64, mtime time.Time, h hashes.Set) error
}

// ScanResult contains statistics from a directory scan.
type ScanResult struct {
	FilesScanned int
	FilesHashed  int
	FilesCached  int // Unchanged files served from the hash cache
	FilesFailed  int
	Blanks       int
}

// ScanConfig configures scanning behavior.
type ScanConfig struct {
	Workers  int       // Number of parallel workers (default: NumCPU)
	Blanks   bool      // Emit a Blank item per empty directory
	Archives bool      // Hash zip entries instead of the zip itself
	Cache    HashCache // Optional digest cache

	// OnFile is called after each file is processed, from worker goroutines.
	OnFile func(path string)
}

// DefaultScanConfig returns sensible defaults for scanning.
func DefaultScanConfig() ScanConfig {
	return ScanConfig{
		Workers:  runtime.NumCPU(),
		Archives: true,
	}
}

// Scanner walks a directory and turns its files into Rom items.
type Scanner struct {
	config ScanConfig
}

// NewScanner creates a scanner with the given configuration.
func NewScanner(config ScanConfig) *Scanner {
	if config.Workers <= 0 {
		config.Workers = runtime.NumCPU()
	}
	return &Scanner{config: config}
}

// fileJob is one file to hash.
type fileJob struct {
	path    string
	size    int64
	mtime   time.Time
	machine string
	name    string
	archive bool
}

// Scan hashes every regular file under root into d. Files directly under
// root become a machine named after the file; deeper files belong to the
// machine named by their first path segment. Zip files, when Archives is
// set, become a machine named by their path without extension. CHD files
// become Disk items carrying the digests from their header.
func (s *Scanner) Scan(ctx context.Context, root string, d *datfile.DatFile) (*ScanResult, error) {
	ctx, span := tracing.StartSpan(ctx, "library.Scan",
		tracing.WithAttributes(attribute.String("scan.root", root)))
	defer span.End()

	info, err := os.Stat(root)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, &ScanError{Op: "scan", Path: root, Err: err}
	}
	if !info.IsDir() {
		return nil, &ScanError{Op: "scan", Path: root, Err: ErrNotDirectory}
	}

	jobs := make(chan fileJob, s.config.Workers*10)
	var scanned, hashed, cached, failed int64

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				if ctx.Err() != nil {
					continue
				}
				h, c, f := s.process(ctx, job, d)
				atomic.AddInt64(&scanned, 1)
				atomic.AddInt64(&hashed, int64(h))
				atomic.AddInt64(&cached, int64(c))
				atomic.AddInt64(&failed, int64(f))
				if s.config.OnFile != nil {
					s.config.OnFile(job.path)
				}
			}
		}()
	}

	blanks := 0
	walkErr := filepath.WalkDir(root, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			logging.Warn("failed to read path", "path", p, "error", err)
			if entry != nil && entry.IsDir() && p != root {
				return fs.SkipDir
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if entry.IsDir() {
			if p != root && s.config.Blanks && isEmptyDir(p) {
				b := &datitem.Blank{}
				b.Machine = datitem.Machine{Name: rel, Description: rel}
				d.AddItem(b)
				blanks++
			}
			return nil
		}
		if !entry.Type().IsRegular() {
			return nil
		}

		fi, err := entry.Info()
		if err != nil {
			logging.Warn("failed to stat file", "path", p, "error", err)
			return nil
		}

		job := fileJob{path: p, size: fi.Size(), mtime: fi.ModTime()}
		if s.config.Archives && strings.EqualFold(path.Ext(rel), ".zip") {
			job.archive = true
			job.machine = strings.TrimSuffix(rel, path.Ext(rel))
		} else {
			job.machine, job.name = machineAndName(rel)
		}

		select {
		case jobs <- job:
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	})

	close(jobs)
	wg.Wait()

	result := &ScanResult{
		FilesScanned: int(scanned),
		FilesHashed:  int(hashed),
		FilesCached:  int(cached),
		FilesFailed:  int(failed),
		Blanks:       blanks,
	}
	tracing.AddSpanAttributes(span,
		attribute.Int("scan.files", result.FilesScanned),
		attribute.Int("scan.failed", result.FilesFailed))

	if walkErr == nil {
		walkErr = ctx.Err()
	}
	if walkErr != nil {
		tracing.RecordError(span, walkErr)
		return result, &ScanError{Op: "walk directory", Path: root, Err: walkErr}
	}
	tracing.SetSpanOK(span)
	logging.Info("scanned directory", "root", root, "files", result.FilesScanned,
		"hashed", result.FilesHashed, "cached", result.FilesCached, "failed", result.FilesFailed)
	return result, nil
}

// machineAndName splits a slash path relative to the scan root.
func machineAndName(rel string) (machine, name string) {
	if i := strings.Index(rel, "/"); i >= 0 {
		return rel[:i], rel[i+1:]
	}
	return strings.TrimSuffix(rel, path.Ext(rel)), rel
}

func isEmptyDir(p string) bool {
	entries, err := os.ReadDir(p)
	return err == nil && len(entries) == 0
}

// process hashes one job into d and reports hashed, cached and failed counts.
func (s *Scanner) process(ctx context.Context, job fileJob, d *datfile.DatFile) (hashed, cached, failed int) {
	if job.archive {
		return s.processZip(ctx, job, d)
	}
	if isCHD(job.name) {
		disk, err := chdDisk(job)
		if err == nil {
			d.AddItem(disk)
			metrics.FilesHashed.WithLabelValues("hashed").Inc()
			return 1, 0, 0
		}
		logging.Debug("hashing CHD as a plain file", "path", job.path, "error", err)
	}

	set, fromCache, err := s.hashFile(ctx, job)
	if err != nil {
		logging.Warn("failed to hash file", "path", job.path, "error", err)
		metrics.FilesHashed.WithLabelValues("failed").Inc()
		return 0, 0, 1
	}
	d.AddItem(newRom(job.machine, job.name, job.size, set))
	if fromCache {
		metrics.FilesHashed.WithLabelValues("cached").Inc()
		return 0, 1, 0
	}
	metrics.FilesHashed.WithLabelValues("hashed").Inc()
	return 1, 0, 0
}

func newRom(machine, name string, size int64, set hashes.Set) *datitem.Rom {
	rom := datitem.NewRom(name)
	rom.Size = size
	rom.Hashes = set
	rom.Machine = datitem.Machine{Name: machine, Description: machine}
	return rom
}

// hashFile returns the digests of a regular file, preferring the cache.
func (s *Scanner) hashFile(ctx context.Context, job fileJob) (hashes.Set, bool, error) {
	if set, ok := s.lookup(ctx, job.path, job.size, job.mtime); ok {
		return set, true, nil
	}

	f, err := os.Open(job.path) // #nosec G304
	if err != nil {
		return hashes.Set{}, false, &ScanError{Op: "open file", Path: job.path, Err: err}
	}
	defer func() { _ = f.Close() }()

	set, _, err := hashes.Compute(f)
	if err != nil {
		return hashes.Set{}, false, &ScanError{Op: "hash file", Path: job.path, Err: err}
	}
	s.store(ctx, job.path, job.size, job.mtime, set)
	return set, false, nil
}

// processZip adds one Rom per zip entry. Entries share the zip's mtime for
// cache purposes.
func (s *Scanner) processZip(ctx context.Context, job fileJob, d *datfile.DatFile) (hashed, cached, failed int) {
	r, err := zip.OpenReader(job.path)
	if err != nil {
		logging.Warn("failed to open zip", "path", job.path, "error", err)
		metrics.FilesHashed.WithLabelValues("failed").Inc()
		return 0, 0, 1
	}
	defer func() { _ = r.Close() }()

	added := 0
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		key := job.path + "#" + f.Name
		size := int64(f.UncompressedSize64) // #nosec G115

		set, ok := s.lookup(ctx, key, size, job.mtime)
		if ok {
			cached++
			metrics.FilesHashed.WithLabelValues("cached").Inc()
		} else {
			set, err = hashZipEntry(f)
			if err != nil {
				logging.Warn("failed to hash zip entry", "path", job.path, "entry", f.Name, "error", err)
				metrics.FilesHashed.WithLabelValues("failed").Inc()
				failed++
				continue
			}
			s.store(ctx, key, size, job.mtime, set)
			hashed++
			metrics.FilesHashed.WithLabelValues("hashed").Inc()
		}
		d.AddItem(newRom(job.machine, f.Name, size, set))
		added++
	}

	if added == 0 && failed == 0 && s.config.Blanks {
		b := &datitem.Blank{}
		b.Machine = datitem.Machine{Name: job.machine, Description: job.machine}
		d.AddItem(b)
	}
	return hashed, cached, failed
}

func hashZipEntry(f *zip.File) (hashes.Set, error) {
	rc, err := f.Open()
	if err != nil {
		return hashes.Set{}, fmt.Errorf("failed to open zip entry: %w", err)
	}
	defer func() { _ = rc.Close() }()

	set, _, err := hashes.Compute(rc)
	if err != nil {
		return hashes.Set{}, fmt.Errorf("failed to hash zip entry: %w", err)
	}
	return set, nil
}

func (s *Scanner) lookup(ctx context.Context, key string, size int64, mtime time.Time) (hashes.Set, bool) {
	if s.config.Cache == nil {
		return hashes.Set{}, false
	}
	set, err := s.config.Cache.Lookup(ctx, key, size, mtime)
	if err != nil {
		return hashes.Set{}, false
	}
	return set, true
}

func (s *Scanner) store(ctx context.Context, key string, size int64, mtime time.Time, set hashes.Set) {
	if s.config.Cache == nil {
		return
	}
	if err := s.config.Cache.Store(ctx, key, size, mtime, set); err != nil {
		logging.Warn("failed to update hash cache", "path", key, "error", err)
	}
}
