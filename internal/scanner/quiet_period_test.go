package scanner

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fieldline/datapump/internal/infrastructure/config"
	"github.com/fieldline/datapump/internal/infrastructure/logging"
)

// TestList_QuietPeriodExactBoundary pins the cutoff comparison: a file
// whose modification time lands exactly on now-quiet is still settling
// and must be held back until the next scan.
func TestList_QuietPeriodExactBoundary(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "edge.csv")
	if err := os.WriteFile(path, []byte("timestamp;A:a\n"), 0600); err != nil {
		t.Fatalf("writing edge.csv: %v", err)
	}

	// Read the mtime back so the test works with whatever precision the
	// filesystem stored.
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat edge.csv: %v", err)
	}
	mtime := info.ModTime()

	quiet := 10 * time.Second
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stderr"}, "test", "test")
	s := New(dir, quiet, log)

	// Clock pinned so the cutoff equals the file's mtime exactly.
	s.now = func() time.Time { return mtime.Add(quiet) }
	files, err := s.List(time.Time{}, 0, false)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(files) != 0 {
		t.Errorf("file at the exact cutoff was returned, want held back")
	}

	// One tick past the boundary the file has settled.
	s.now = func() time.Time { return mtime.Add(quiet + time.Nanosecond) }
	files, err = s.List(time.Time{}, 0, false)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(files) != 1 {
		t.Errorf("settled file missing: got %d files, want 1", len(files))
	}
}
