package vulkan

import (
	"sync"

	"github.com/google/uuid"
)

// CmdBufferResources is one entry in the ring of flight slots. At most one
// slot is being recorded into at any time; the rest are either in flight on
// the GPU or retired and waiting to be reclaimed.
type CmdBufferResources struct {
	id uuid.UUID

	pool          CommandPool
	initCmdBuffer CommandBuffer
	drawCmdBuffer CommandBuffer

	fence Fence

	waitSemaphore Semaphore
	semaphoreUsed bool
	initUsed      bool

	// fenceCounter is the generation this slot was last submitted under.
	// Zero means the slot has never been submitted, so preparing it for
	// reuse must not wait on its fence.
	fenceCounter uint64

	// cleanedCounter is the highest generation whose cleanup list has
	// already been drained for this slot. It guards against running the
	// same generation's thunks twice when both the synchronous reuse path
	// (prepareSlot) and the FenceWorker observe the same completion.
	cleanedMu      sync.Mutex
	cleanedCounter uint64

	cleanup []func()
}

func newCmdBufferResources() *CmdBufferResources {
	return &CmdBufferResources{id: uuid.New()}
}

func (s *CmdBufferResources) deferCleanup(fn func()) {
	s.cleanedMu.Lock()
	s.cleanup = append(s.cleanup, fn)
	s.cleanedMu.Unlock()
}

// runCleanupFor executes and clears the slot's deferred-destruction thunks
// if generation gen has not already been cleaned for this slot. Safe to
// call from both the synchronous reuse path and the FenceWorker: whichever
// observes the generation first performs the run, the other is a no-op.
// The guard and the run itself share cleanedMu so two racing callers for the
// same generation can't both pass the check before either has run.
func (s *CmdBufferResources) runCleanupFor(gen uint64) {
	s.cleanedMu.Lock()
	defer s.cleanedMu.Unlock()
	if gen == 0 || gen <= s.cleanedCounter {
		return
	}
	for _, fn := range s.cleanup {
		fn()
	}
	s.cleanup = nil
	s.cleanedCounter = gen
}

// FrameResources is one entry in the smaller ring of frame slots; descriptor
// pools live here and are reset wholesale when the frame slot is reused.
type FrameResources struct {
	id uuid.UUID

	descriptorPools []DescriptorPool
	currentPool     int
}

func newFrameResources() *FrameResources {
	return &FrameResources{id: uuid.New()}
}

// PresentRequest carries the swapchain and image index for an optional
// present operation attached to a submit.
type PresentRequest struct {
	Swapchain  Swapchain
	ImageIndex uint32
}

// PendingSubmit is enqueued onto the SubmissionWorker's queue by
// CommandBufferManager.Submit when submitting on the worker thread.
type PendingSubmit struct {
	cmdBufferIndex int
	present        *PresentRequest
}

// PendingFence is enqueued by submitToQueue after every actual driver
// submit (on the SubmissionWorker, or on the recording goroutine for an
// inline submit) and drained in FIFO order by the FenceWorker.
type PendingFence struct {
	fence   Fence
	counter uint64
}
