package scanner

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fieldline/datapump/internal/infrastructure/logging"
)

// ErrScanFailed indicates the input directory could not be listed.
var ErrScanFailed = errors.New("scanner: scan failed")

// FileInfo describes one candidate file in the input directory.
type FileInfo struct {
	Path    string
	ModTime time.Time
}

// Scanner lists CSV files from a watched directory.
//
// Files modified within the quiet period are held back so a writer
// still flushing the file is never raced. The quiet period is measured
// against the clock at scan time, so a held-back file surfaces on a
// later scan once it has settled.
type Scanner struct {
	dir   string
	quiet time.Duration
	log   *logging.Logger

	now func() time.Time
}

// New creates a Scanner over dir with the given quiet period.
func New(dir string, quiet time.Duration, log *logging.Logger) *Scanner {
	return &Scanner{
		dir:   dir,
		quiet: quiet,
		log:   log.With("component", "scanner"),
		now:   time.Now,
	}
}

// List returns files ready for processing.
//
// A file qualifies when it matches *.csv, its modification time is
// strictly after the watermark, and it has been stable for longer than
// the quiet period. Results are ordered by modification time; newestFirst
// selects the direction. A positive limit caps the result after
// ordering, so newest-first scans keep the newest files. Files that
// cannot be stat'd are skipped with a warning; a vanished file is
// normal when an operator cleans the directory mid-scan.
//
// Parameters:
//   - after: Watermark; only files modified strictly after it qualify
//   - limit: Maximum files to return, 0 or negative for unbounded
//   - newestFirst: Ordering direction
//
// Returns:
//   - []FileInfo: Qualifying files in the requested order
//   - error: ErrScanFailed (wrapped) if the directory cannot be listed
func (s *Scanner) List(after time.Time, limit int, newestFirst bool) ([]FileInfo, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("%w: listing %s: %w", ErrScanFailed, s.dir, err)
	}

	cutoff := s.now().Add(-s.quiet)

	files := make([]FileInfo, 0, len(matches))
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			s.log.Warn("skipping unreadable file", "path", path, "error", err)
			continue
		}
		if info.IsDir() {
			continue
		}
		mtime := info.ModTime()
		if !mtime.After(after) {
			continue
		}
		// Only files strictly older than the cutoff have settled; a file
		// touched exactly at the cutoff is still inside the quiet period.
		if !mtime.Before(cutoff) {
			continue
		}
		files = append(files, FileInfo{Path: path, ModTime: mtime})
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].ModTime.Equal(files[j].ModTime) {
			return files[i].Path < files[j].Path
		}
		if newestFirst {
			return files[i].ModTime.After(files[j].ModTime)
		}
		return files[i].ModTime.Before(files[j].ModTime)
	})

	if limit > 0 && len(files) > limit {
		files = files[:limit]
	}

	return files, nil
}
