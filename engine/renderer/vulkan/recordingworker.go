package vulkan

// recordingWorkerLoop is the sole consumer of the Scheduler's work queue.
// It sleeps only while the queue is empty, replays queued chunks one at a
// time, and
// marks itself idle both at the top of an empty loop iteration and again
// immediately after draining down to empty — the latter is reachable only
// because Flush and this loop can interleave such that a chunk is queued
// and drained within the same wake, and preserving both idle-set points
// keeps observable timing identical to the design it was grounded on.
func (s *Scheduler) recordingWorkerLoop() {
	defer s.workerWG.Done()

	for {
		s.mu.Lock()
		for s.workQueue.IsEmpty() {
			s.workerIdle = true
			s.cond.Broadcast()
			if s.stopping {
				s.mu.Unlock()
				return
			}
			s.cond.Wait()
		}
		chunk, _ := s.workQueue.Dequeue()
		s.mu.Unlock()

		chunk.ExecuteAll(s.cbm)
		s.pool.Release(chunk)

		s.mu.Lock()
		if s.workQueue.IsEmpty() {
			s.workerIdle = true
			s.cond.Broadcast()
		}
		s.mu.Unlock()
	}
}
