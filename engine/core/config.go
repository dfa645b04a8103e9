package core

import (
	"os"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"
)

// SchedulerConfig holds the tunables that shape the arena, flight-ring and
// descriptor-pool sizing. Zero values are left to each consumer's own
// defaulting logic, so a partially specified TOML file is valid.
type SchedulerConfig struct {
	ChunkBytes            uint32 `toml:"chunk_bytes"`
	NumCommandBuffers     int    `toml:"num_command_buffers"`
	NumFramesInFlight     int    `toml:"num_frames_in_flight"`
	DescriptorSetsPerPool uint32 `toml:"descriptor_sets_per_pool"`
}

// ConfigWatcher loads a SchedulerConfig from a TOML file and keeps it fresh
// by re-reading the file on every fsnotify write or create event.
type ConfigWatcher struct {
	path string

	mu      sync.RWMutex
	current SchedulerConfig

	watcher *fsnotify.Watcher
	done    chan struct{}
	closed  atomic.Bool
}

// LoadConfig reads and parses a SchedulerConfig from path without starting
// a watch.
func LoadConfig(path string) (SchedulerConfig, error) {
	var cfg SchedulerConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// NewConfigWatcher loads path and starts watching it for writes. Callers
// read the live value through Get; Close stops the watch goroutine.
func NewConfigWatcher(path string) (*ConfigWatcher, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsWatch.Add(path); err != nil {
		fsWatch.Close()
		return nil, err
	}

	cw := &ConfigWatcher{
		path:    path,
		current: cfg,
		watcher: fsWatch,
		done:    make(chan struct{}),
	}
	go cw.watch()
	return cw, nil
}

// Get returns the most recently loaded SchedulerConfig.
func (cw *ConfigWatcher) Get() SchedulerConfig {
	cw.mu.RLock()
	defer cw.mu.RUnlock()
	return cw.current
}

func (cw *ConfigWatcher) watch() {
	for {
		select {
		case e, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := LoadConfig(cw.path)
			if err != nil {
				LogError("config: reload of %s failed: %v", cw.path, err)
				continue
			}
			cw.mu.Lock()
			cw.current = cfg
			cw.mu.Unlock()
			LogInfo("config: reloaded %s", cw.path)

		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			LogError("config: watch error: %v", err)

		case <-cw.done:
			return
		}
	}
}

// Close stops the watch goroutine and releases the underlying fsnotify
// watcher. Safe to call more than once.
func (cw *ConfigWatcher) Close() error {
	if cw.closed.CompareAndSwap(false, true) {
		close(cw.done)
	}
	return cw.watcher.Close()
}
