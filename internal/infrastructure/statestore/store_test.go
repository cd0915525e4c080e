package statestore_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/fieldline/datapump/internal/infrastructure/config"
	"github.com/fieldline/datapump/internal/infrastructure/statestore"
)

func testConfig(t *testing.T) config.StateConfig {
	t.Helper()
	return config.StateConfig{
		Enabled: true,
		Path:    filepath.Join(t.TempDir(), "state", "datapump.db"),
	}
}

func TestOpen(t *testing.T) {
	store, err := statestore.Open(context.Background(), testConfig(t))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer store.Close()

	if err := store.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestOpen_Disabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Enabled = false

	_, err := statestore.Open(context.Background(), cfg)
	if !errors.Is(err, statestore.ErrDisabled) {
		t.Errorf("Open() error = %v, want ErrDisabled", err)
	}
}

func TestWatermark_NoneSet(t *testing.T) {
	store, err := statestore.Open(context.Background(), testConfig(t))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer store.Close()

	_, ok, err := store.Watermark(context.Background())
	if err != nil {
		t.Fatalf("Watermark() error = %v", err)
	}
	if ok {
		t.Error("Watermark() ok = true on fresh store, want false")
	}
}

func TestSetWatermark_RoundTrip(t *testing.T) {
	store, err := statestore.Open(context.Background(), testConfig(t))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	want := time.UnixMilli(1533816000123)

	if err := store.SetWatermark(ctx, want); err != nil {
		t.Fatalf("SetWatermark() error = %v", err)
	}

	got, ok, err := store.Watermark(ctx)
	if err != nil {
		t.Fatalf("Watermark() error = %v", err)
	}
	if !ok {
		t.Fatal("Watermark() ok = false after SetWatermark")
	}
	if !got.Equal(want) {
		t.Errorf("Watermark() = %v, want %v", got, want)
	}
}

func TestSetWatermark_Overwrites(t *testing.T) {
	store, err := statestore.Open(context.Background(), testConfig(t))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	if err := store.SetWatermark(ctx, time.UnixMilli(1000)); err != nil {
		t.Fatalf("SetWatermark() error = %v", err)
	}
	if err := store.SetWatermark(ctx, time.UnixMilli(2000)); err != nil {
		t.Fatalf("SetWatermark() second call error = %v", err)
	}

	got, _, err := store.Watermark(ctx)
	if err != nil {
		t.Fatalf("Watermark() error = %v", err)
	}
	if got.UnixMilli() != 2000 {
		t.Errorf("Watermark() = %d ms, want 2000", got.UnixMilli())
	}
}

func TestWatermark_SurvivesReopen(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	store, err := statestore.Open(ctx, cfg)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := store.SetWatermark(ctx, time.UnixMilli(42000)); err != nil {
		t.Fatalf("SetWatermark() error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := statestore.Open(ctx, cfg)
	if err != nil {
		t.Fatalf("reopening store: %v", err)
	}
	defer reopened.Close()

	got, ok, err := reopened.Watermark(ctx)
	if err != nil {
		t.Fatalf("Watermark() error = %v", err)
	}
	if !ok {
		t.Fatal("watermark lost across reopen")
	}
	if got.UnixMilli() != 42000 {
		t.Errorf("Watermark() = %d ms, want 42000", got.UnixMilli())
	}
}

func TestClose_Nil(t *testing.T) {
	var store *statestore.Store
	if err := store.Close(); err != nil {
		t.Errorf("Close() on nil store error = %v", err)
	}
}
