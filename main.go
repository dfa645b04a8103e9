/*
A small headless driver for the scheduler: it records a batch of dummy
draw commands per tick, submits, and reports rolling metrics, so the
concurrency and reclamation pipeline can be exercised without a GPU.
*/
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brooksytech/dolphin/engine/core"
	"github.com/brooksytech/dolphin/engine/renderer/vulkan"
)

// loadSchedulerConfig watches configPath for the scheduler's TOML tunables
// and converts whatever it finds into vulkan.SchedulerConfig. The file is
// optional: a missing or unreadable config falls back to the zero-value
// defaults each consumer already knows how to apply. The returned closer
// stops the watch goroutine and must be called on shutdown.
func loadSchedulerConfig(configPath string) (vulkan.SchedulerConfig, func()) {
	watcher, err := core.NewConfigWatcher(configPath)
	if err != nil {
		core.LogInfo("scheduler: no usable config at %s (%v), using defaults", configPath, err)
		return vulkan.SchedulerConfig{}, func() {}
	}
	return vulkan.SchedulerConfigFromCore(watcher.Get()), func() {
		if err := watcher.Close(); err != nil {
			core.LogError("scheduler: closing config watcher: %v", err)
		}
	}
}

func main() {
	configPath := flag.String("config", "scheduler.toml", "path to the scheduler's TOML config file")
	flag.Parse()

	cfg, closeConfig := loadSchedulerConfig(*configPath)
	defer closeConfig()

	driver := vulkan.NewMemDriver()
	sched := vulkan.NewScheduler(driver, cfg)
	if err := sched.Initialize(); err != nil {
		core.LogFatal("scheduler: initialize failed: %v", err)
		return
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	ticker := time.NewTicker(16 * time.Millisecond)
	defer ticker.Stop()

	for tick := 0; ; tick++ {
		select {
		case <-sigCh:
			core.LogInfo("scheduler: shutting down")
			sched.Shutdown()
			return
		case <-ticker.C:
			for i := 0; i < 8; i++ {
				sched.Record(func(cb *vulkan.CommandBufferManager) {
					_ = cb.GetCurrentDrawCommandBuffer()
				})
			}
			sched.Submit(true, false, nil)

			if tick%60 == 0 {
				core.LogInfo("scheduler: submit=%.3fms flush=%.3fms pool-hit-rate=%.2f",
					sched.Metrics.SubmitLatency.Average(),
					sched.Metrics.FlushLatency.Average(),
					sched.Metrics.PoolHitRate())
			}
		}
	}
}
