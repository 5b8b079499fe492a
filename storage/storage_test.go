package storage

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"slotwatch/pkg/schedule"
)

func testStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(nil, "", dir, logger), dir
}

func TestLoadFirstRun(t *testing.T) {
	s, _ := testStore(t)

	_, err := s.Load(context.Background())
	if !IsNotFound(err) {
		t.Fatalf("Load on empty dir = %v, want ErrNotFound", err)
	}
}

func TestSaveLoadRoundtrip(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()

	banner := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)
	st := schedule.NewState()
	st.ScheduleMessageID = 41
	st.ScheduleText = "text"
	st.BannerStartedAt = &banner
	st.Current.Add("2025-02-01", "10:00")

	if err := s.Save(ctx, st); err != nil {
		t.Fatalf("Save: %v", err)
	}

	back, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if back.ScheduleMessageID != 41 || back.ScheduleText != "text" {
		t.Errorf("loaded = %+v", back)
	}
	if back.BannerStartedAt == nil || !back.BannerStartedAt.Equal(banner) {
		t.Errorf("BannerStartedAt = %v, want %v", back.BannerStartedAt, banner)
	}
	if back.NoSlotsMessageID != 0 || back.LastNonEmptyAt != nil {
		t.Errorf("absent fields should stay absent, got %+v", back)
	}
	if !back.Current.Has("2025-02-01", "10:00") {
		t.Errorf("Current = %v", back.Current)
	}
}

// TestLoadCorruptState verifies a torn or garbage state file surfaces as an
// error distinct from not-found, so the caller can log and start fresh.
func TestLoadCorruptState(t *testing.T) {
	s, dir := testStore(t)

	if err := os.WriteFile(filepath.Join(dir, "state.json"), []byte("{truncated"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := s.Load(context.Background())
	if err == nil {
		t.Fatal("want an error for corrupt state")
	}
	if IsNotFound(err) {
		t.Error("corrupt state must not look like first run")
	}
}

// TestSaveLeavesNoTempFiles verifies the atomic write cleans up after
// itself; only state.json remains.
func TestSaveLeavesNoTempFiles(t *testing.T) {
	s, dir := testStore(t)

	if err := s.Save(context.Background(), schedule.NewState()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "state.json" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("directory contents = %v, want only state.json", names)
	}
}

func TestSaveOverwrites(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()

	first := schedule.NewState()
	first.NoSlotsMessageID = 1
	if err := s.Save(ctx, first); err != nil {
		t.Fatal(err)
	}

	second := schedule.NewState()
	second.ScheduleMessageID = 2
	second.Current.Add("2025-02-01", "10:00")
	if err := s.Save(ctx, second); err != nil {
		t.Fatal(err)
	}

	back, err := s.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if back.ScheduleMessageID != 2 || back.NoSlotsMessageID != 0 {
		t.Errorf("loaded = %+v, want the second save only", back)
	}
}

func TestLockExcludesSecondInstance(t *testing.T) {
	dir := t.TempDir()

	lock, err := AcquireLock(dir)
	if err != nil {
		t.Fatalf("AcquireLock: %v", err)
	}

	if _, err := AcquireLock(dir); err == nil {
		t.Error("second AcquireLock should fail while the first is held")
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}

	again, err := AcquireLock(dir)
	if err != nil {
		t.Fatalf("AcquireLock after release: %v", err)
	}
	_ = again.Release()
}
