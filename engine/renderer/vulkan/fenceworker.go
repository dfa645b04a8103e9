package vulkan

import "github.com/brooksytech/dolphin/engine/core"

// fenceWorkerLoop consumes PendingFences in FIFO order, waits on each one
// with an unbounded timeout, advances the completed counter, and runs
// deferred-destruction callbacks for every flight slot the new completion
// generation covers.
func (m *CommandBufferManager) fenceWorkerLoop() {
	defer m.fenceWG.Done()

	for {
		m.fenceMu.Lock()
		for m.pendingFences.IsEmpty() {
			if m.fenceStopping {
				m.fenceMu.Unlock()
				return
			}
			m.fenceCond.Wait()
		}
		pf, _ := m.pendingFences.Dequeue()
		m.fenceMu.Unlock()

		if err := m.driver.WaitForFence(pf.fence, WaitForever); err != nil {
			core.LogError("vulkan: fence wait failed, treating device as lost")
			m.deviceLost.Store(true)
			continue
		}

		m.fenceCounter.markCompleted(pf.counter)

		m.completedMu.Lock()
		m.completedCond.Broadcast()
		m.completedMu.Unlock()

		m.reclaimSlots(pf.counter)
	}
}

// reclaimSlots runs and clears the cleanup list of every flight slot whose
// stamped generation is now covered by counter. It is safe to run this even
// for a slot already reclaimed synchronously by prepareSlot, or for a slot
// already recording a newer, unsubmitted generation: runCleanupFor only
// acts on the generation it is passed, and only once.
func (m *CommandBufferManager) reclaimSlots(counter uint64) {
	for _, slot := range m.resources {
		if slot.fenceCounter != 0 && slot.fenceCounter <= counter {
			slot.runCleanupFor(slot.fenceCounter)
		}
	}
}
