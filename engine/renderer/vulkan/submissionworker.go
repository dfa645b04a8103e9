package vulkan

// submissionWorkerLoop consumes PendingSubmits and performs the actual
// driver queue-submit (and optional present) off the recording goroutine.
// It marks itself idle both when it finds the queue empty at the top of
// the loop and again after draining an entry down to empty, mirroring the
// double-idle-set behavior called out as intentional in the design notes.
func (m *CommandBufferManager) submissionWorkerLoop() {
	defer m.submitWG.Done()

	for {
		m.submitMu.Lock()
		for m.pendingSubmits.IsEmpty() {
			m.submitIdle = true
			m.submitCond.Broadcast()
			if m.submitStopping {
				m.submitMu.Unlock()
				return
			}
			m.submitCond.Wait()
		}
		ps, _ := m.pendingSubmits.Dequeue()
		m.submitMu.Unlock()

		m.submitToQueue(ps)

		m.submitMu.Lock()
		if m.pendingSubmits.IsEmpty() {
			m.submitIdle = true
			m.submitCond.Broadcast()
		}
		m.submitMu.Unlock()
	}
}
