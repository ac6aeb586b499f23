// Package scan drives the duplicate-detection pipeline: it enumerates a
// directory tree, fans decode+hash work out to a worker pool, feeds the
// similarity index, and resolves duplicate groups.
package scan

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/timfernix/duplicate-finder/internal/group"
	"github.com/timfernix/duplicate-finder/internal/hash"
	"github.com/timfernix/duplicate-finder/internal/index"
	"github.com/timfernix/duplicate-finder/internal/load"
	"github.com/timfernix/duplicate-finder/internal/logger"
	"github.com/timfernix/duplicate-finder/internal/models"
)

// ErrInvalidRoot is returned when the scan target does not exist or is not
// a directory. It is fatal and reported before any worker is dispatched.
var ErrInvalidRoot = errors.New("invalid scan root")

// DefaultThreshold is the maximum Hamming distance at which two
// fingerprints count as similar when none is configured.
const DefaultThreshold = 5

// Config describes one scan. All fields are independent; zero values fall
// back to sensible defaults in NewSession.
type Config struct {
	Root       string
	Recursive  bool
	Algorithm  hash.Algorithm
	HashSize   int
	Threshold  int
	Extensions []string
	Workers    int

	// Progress, when set, receives snapshots at a bounded rate plus one
	// final snapshot. It is called from the session goroutine only.
	Progress func(models.Progress)
}

// Session owns one scan: its configuration, its record set, and its
// similarity index. Sessions are single-use; a new scan gets a new session
// and the previous one is discarded entirely.
type Session struct {
	cfg    Config
	loader *load.Loader
}

// NewSession validates the configuration and prepares a session. An
// unrecognized algorithm fails here with hash.ErrUnsupportedAlgorithm.
func NewSession(cfg Config) (*Session, error) {
	if cfg.Algorithm == "" {
		cfg.Algorithm = hash.PHash
	}
	algo, err := hash.ParseAlgorithm(string(cfg.Algorithm))
	if err != nil {
		return nil, err
	}
	cfg.Algorithm = algo

	if cfg.HashSize <= 0 {
		cfg.HashSize = hash.DefaultHashSize
	}
	if err := hash.ValidateConfig(cfg.Algorithm, cfg.HashSize); err != nil {
		return nil, err
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
		if cfg.Workers < 4 {
			cfg.Workers = 4
		}
	}

	return &Session{
		cfg:    cfg,
		loader: load.NewLoader(cfg.Extensions...),
	}, nil
}

// outcome carries one processed file from a worker to the ingestion loop.
// Exactly one of rec and fail is set.
type outcome struct {
	rec  *models.ImageRecord
	fail *models.FileFailure
}

// Run executes the scan. Cancelling the context stops dispatching new work;
// records hashed before cancellation are kept and grouped, and the result
// status is StatusCancelled. Per-file failures never abort the scan. The
// only fatal errors are an invalid root and a fingerprint compatibility
// violation.
func (s *Session) Run(ctx context.Context) (*models.Result, error) {
	start := time.Now()

	root, err := filepath.Abs(s.cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRoot, err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRoot, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrInvalidRoot, root)
	}

	candidates := s.enumerate(ctx, root)
	logger.WithField("root", root).Debugf("enumerated %d candidate files", len(candidates))

	idx := index.NewSimilarityIndex(s.cfg.Threshold)

	paths := make(chan string)
	outcomes := make(chan outcome, s.cfg.Workers)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(paths)
		for _, p := range candidates {
			select {
			case <-gctx.Done():
				return nil
			case paths <- p:
			}
		}
		return nil
	})
	for i := 0; i < s.cfg.Workers; i++ {
		g.Go(func() error {
			for p := range paths {
				outcomes <- s.processFile(p)
				select {
				case <-gctx.Done():
					return nil
				default:
				}
			}
			return nil
		})
	}
	go func() {
		g.Wait()
		close(outcomes)
	}()

	// Collection runs on this goroutine only. Workers race, so outcomes
	// arrive in scheduling order; records are sorted by path before index
	// ingestion so grouping does not depend on that order.
	result := &models.Result{Root: root}
	limiter := rate.NewLimiter(rate.Limit(30), 1)
	processed := 0
	for o := range outcomes {
		processed++
		var current string
		if o.fail != nil {
			result.Failures = append(result.Failures, *o.fail)
			current = o.fail.Path
		} else {
			result.Records = append(result.Records, o.rec)
			current = o.rec.Path
		}
		if s.cfg.Progress != nil && (processed == len(candidates) || limiter.Allow()) {
			s.cfg.Progress(models.Progress{
				Processed: processed,
				Total:     len(candidates),
				Path:      current,
			})
		}
	}

	sort.Slice(result.Records, func(i, j int) bool {
		return result.Records[i].Path < result.Records[j].Path
	})
	sort.Slice(result.Failures, func(i, j int) bool {
		return result.Failures[i].Path < result.Failures[j].Path
	})
	for _, rec := range result.Records {
		if err := idx.Add(rec); err != nil {
			return nil, err
		}
	}

	result.Status = models.StatusCompleted
	if ctx.Err() != nil {
		result.Status = models.StatusCancelled
	}
	result.Groups = group.Resolve(idx.Components())
	result.Elapsed = time.Since(start)

	logger.WithField("root", root).Infof("scan %s: %d hashed, %d failed, %d groups",
		result.Status, len(result.Records), len(result.Failures), len(result.Groups))
	return result, nil
}

// enumerate collects candidate file paths up front so progress can report a
// total. Unreadable directories are skipped with a diagnostic, never fatal.
func (s *Session) enumerate(ctx context.Context, root string) []string {
	var candidates []string
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return fs.SkipAll
		}
		if err != nil {
			logger.Warnf("skipping %s: %v", path, err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if !s.cfg.Recursive && path != root {
				return fs.SkipDir
			}
			return nil
		}
		if s.loader.Supported(path) {
			candidates = append(candidates, path)
		}
		return nil
	})
	return candidates
}

// processFile runs the per-file pipeline: decode, fingerprint, record.
func (s *Session) processFile(path string) outcome {
	dec, err := s.loader.Load(path)
	if err != nil {
		return outcome{fail: classifyFailure(path, err)}
	}

	fp, err := hash.Compute(dec.Image, s.cfg.Algorithm, s.cfg.HashSize)
	if err != nil {
		// Hash failures on a decoded raster are rare (degenerate
		// dimensions); classify with the corrupt files.
		logger.WithField("path", path).Debugf("fingerprint failed: %v", err)
		return outcome{fail: &models.FileFailure{
			Path:   path,
			Reason: models.FailureCorrupt,
			Detail: err.Error(),
		}}
	}

	return outcome{rec: &models.ImageRecord{
		Path:        path,
		Width:       dec.Width,
		Height:      dec.Height,
		FileSize:    dec.FileSize,
		ModTime:     dec.ModTime,
		Format:      dec.Format,
		HasExif:     dec.HasExif,
		Fingerprint: fp,
	}}
}

func classifyFailure(path string, err error) *models.FileFailure {
	reason := models.FailureUnreadable
	var ferr *load.FileError
	if errors.As(err, &ferr) {
		switch ferr.Reason {
		case load.Corrupt:
			reason = models.FailureCorrupt
		case load.UnsupportedFormat:
			reason = models.FailureUnsupportedFormat
		}
	}
	logger.WithField("path", path).Debugf("skipped: %v", err)
	return &models.FileFailure{Path: path, Reason: reason, Detail: err.Error()}
}
