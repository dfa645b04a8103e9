package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func TestLoadConfigParsesTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scheduler.toml")
	writeConfig(t, path, `
chunk_bytes = 4096
num_command_buffers = 3
num_frames_in_flight = 2
descriptor_sets_per_pool = 64
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	want := SchedulerConfig{ChunkBytes: 4096, NumCommandBuffers: 3, NumFramesInFlight: 2, DescriptorSetsPerPool: 64}
	if cfg != want {
		t.Fatalf("got %+v, want %+v", cfg, want)
	}
}

func TestLoadConfigMissingFileErrors(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}

func TestConfigWatcherGetReturnsInitialLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scheduler.toml")
	writeConfig(t, path, `num_command_buffers = 2`)

	cw, err := NewConfigWatcher(path)
	if err != nil {
		t.Fatalf("NewConfigWatcher: %v", err)
	}
	defer cw.Close()

	if got := cw.Get().NumCommandBuffers; got != 2 {
		t.Fatalf("NumCommandBuffers = %d, want 2", got)
	}
}

func TestConfigWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scheduler.toml")
	writeConfig(t, path, `num_command_buffers = 2`)

	cw, err := NewConfigWatcher(path)
	if err != nil {
		t.Fatalf("NewConfigWatcher: %v", err)
	}
	defer cw.Close()

	writeConfig(t, path, `num_command_buffers = 5`)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cw.Get().NumCommandBuffers == 5 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("NumCommandBuffers = %d, want 5 after reload", cw.Get().NumCommandBuffers)
}

func TestConfigWatcherCloseIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scheduler.toml")
	writeConfig(t, path, `num_command_buffers = 1`)

	cw, err := NewConfigWatcher(path)
	if err != nil {
		t.Fatalf("NewConfigWatcher: %v", err)
	}
	if err := cw.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := cw.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
