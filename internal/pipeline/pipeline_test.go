package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fieldline/datapump/internal/infrastructure/config"
	"github.com/fieldline/datapump/internal/infrastructure/logging"
	"github.com/fieldline/datapump/internal/infrastructure/mqtt"
	"github.com/fieldline/datapump/internal/infrastructure/seriesapi"
	"github.com/fieldline/datapump/internal/infrastructure/telemetry"
	"github.com/fieldline/datapump/internal/parser"
	"github.com/fieldline/datapump/internal/pipeline"
	"github.com/fieldline/datapump/internal/processor"
	"github.com/fieldline/datapump/internal/scanner"
)

func testLogger() *logging.Logger {
	return logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stderr"}, "test", "test")
}

const goodCSV = `timestamp;PI-1:A
s;u
1000;1,0
2000;1,1
`

func writeCSV(t *testing.T, dir, name, content string, mtime time.Time) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("setting mtime on %s: %v", name, err)
	}
}

type fakeResolver struct{}

func (fakeResolver) Resolve(_ context.Context, key parser.SeriesKey) (string, error) {
	return key.Name, nil
}

type fakeStore struct {
	mu      sync.Mutex
	batches int
	err     error
}

func (f *fakeStore) InsertDatapoints(context.Context, []seriesapi.SeriesDatapoints) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.batches++
	return nil
}

type memState struct {
	mu        sync.Mutex
	watermark time.Time
	found     bool
}

func (m *memState) Watermark(context.Context) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.watermark, m.found, nil
}

func (m *memState) SetWatermark(_ context.Context, t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.watermark = t
	m.found = true
	return nil
}

func newPipeline(dir string, store *fakeStore, state pipeline.State, poll time.Duration, limit int) *pipeline.Pipeline {
	log := testLogger()
	scan := scanner.New(dir, 0, log)
	proc := processor.New(fakeResolver{}, store, telemetry.Nop{}, mqtt.Nop{}, 0, false, log)
	return pipeline.New(scan, proc, state, poll, limit, time.Time{}, log)
}

func TestRunHistorical(t *testing.T) {
	dir := t.TempDir()
	base := time.Now().Add(-time.Hour)
	writeCSV(t, dir, "a.csv", goodCSV, base)
	writeCSV(t, dir, "b.csv", goodCSV, base.Add(time.Minute))
	writeCSV(t, dir, "bad.csv", "x;y\na;b;c\n", base.Add(2*time.Minute))

	p := newPipeline(dir, &fakeStore{}, pipeline.NopState{}, time.Millisecond, 0)

	summary, err := p.RunHistorical(context.Background())
	if err != nil {
		t.Fatalf("RunHistorical() error = %v", err)
	}

	if summary.Files != 3 {
		t.Errorf("Files = %d, want 3", summary.Files)
	}
	if summary.Points != 4 {
		t.Errorf("Points = %d, want 4", summary.Points)
	}
	if summary.Deleted != 2 {
		t.Errorf("Deleted = %d, want 2", summary.Deleted)
	}
	if summary.Retained != 1 {
		t.Errorf("Retained = %d, want 1", summary.Retained)
	}

	if _, err := os.Stat(filepath.Join(dir, "a.csv")); !os.IsNotExist(err) {
		t.Error("a.csv should be deleted after the pass")
	}
	if _, err := os.Stat(filepath.Join(dir, "bad.csv")); err != nil {
		t.Error("bad.csv should be retained")
	}
}

func TestRunLive_ProcessesAndPersistsWatermark(t *testing.T) {
	dir := t.TempDir()
	mtime := time.Now().Add(-time.Hour)
	writeCSV(t, dir, "a.csv", goodCSV, mtime)

	state := &memState{}
	p := newPipeline(dir, &fakeStore{}, state, 5*time.Millisecond, 20)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	err := p.RunLive(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("RunLive() error = %v, want DeadlineExceeded", err)
	}

	if _, statErr := os.Stat(filepath.Join(dir, "a.csv")); !os.IsNotExist(statErr) {
		t.Error("a.csv should be deleted by the live loop")
	}

	watermark, found, _ := state.Watermark(context.Background())
	if !found {
		t.Fatal("watermark was never persisted")
	}
	if watermark.Before(mtime.Truncate(time.Second)) {
		t.Errorf("watermark = %v, want at least the file mtime", watermark)
	}
}

func TestRunLive_ResumesFromPersistedWatermark(t *testing.T) {
	dir := t.TempDir()
	old := time.Now().Add(-2 * time.Hour)
	writeCSV(t, dir, "old.csv", goodCSV, old)

	// Persisted watermark sits past the file; it must not be reprocessed.
	state := &memState{watermark: old.Add(time.Minute), found: true}
	store := &fakeStore{}
	p := newPipeline(dir, store, state, 5*time.Millisecond, 20)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = p.RunLive(ctx)

	if _, err := os.Stat(filepath.Join(dir, "old.csv")); err != nil {
		t.Error("file behind the watermark should be untouched")
	}
	if store.batches != 0 {
		t.Errorf("store received %d batches, want 0", store.batches)
	}
}

func TestAdvanceWatermark(t *testing.T) {
	base := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	file := func(name string, offset time.Duration) scanner.FileInfo {
		return scanner.FileInfo{Path: name, ModTime: base.Add(offset)}
	}
	result := func(name string, offset time.Duration, disposed bool) processor.Result {
		return processor.Result{Path: name, ModTime: base.Add(offset), Disposed: disposed}
	}

	tests := []struct {
		name    string
		current time.Time
		files   []scanner.FileInfo
		results []processor.Result
		limit   int
		want    time.Time
	}{
		{
			name:    "all disposed advances to newest",
			current: base,
			files:   []scanner.FileInfo{file("a", time.Minute), file("b", 2 * time.Minute)},
			results: []processor.Result{
				result("a", time.Minute, true),
				result("b", 2*time.Minute, true),
			},
			limit: 20,
			want:  base.Add(2 * time.Minute),
		},
		{
			name:    "retained file pins the watermark",
			current: base,
			files:   []scanner.FileInfo{file("a", time.Minute), file("b", 2 * time.Minute), file("c", 3 * time.Minute)},
			results: []processor.Result{
				result("a", time.Minute, true),
				result("b", 2*time.Minute, false),
				result("c", 3*time.Minute, true),
			},
			limit: 20,
			want:  base.Add(time.Minute),
		},
		{
			name:    "truncated scan never advances",
			current: base,
			files:   []scanner.FileInfo{file("a", time.Minute), file("b", 2 * time.Minute)},
			results: []processor.Result{
				result("a", time.Minute, true),
				result("b", 2*time.Minute, true),
			},
			limit: 2,
			want:  base,
		},
		{
			name:    "unprocessed file pins the watermark",
			current: base,
			files:   []scanner.FileInfo{file("a", time.Minute), file("b", 2 * time.Minute)},
			results: []processor.Result{
				result("b", 2*time.Minute, true),
			},
			limit: 20,
			want:  base,
		},
		{
			name:    "empty cycle keeps current",
			current: base,
			limit:   20,
			want:    base,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pipeline.AdvanceWatermark(tt.current, tt.files, tt.results, tt.limit)
			if !got.Equal(tt.want) {
				t.Errorf("AdvanceWatermark() = %v, want %v", got, tt.want)
			}
			if got.Before(tt.current) {
				t.Error("watermark moved backwards")
			}
		})
	}
}
