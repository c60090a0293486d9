package framegraph

import (
	vk "github.com/vulkan-go/vulkan"
)

// WaitInfo pairs a semaphore with the pipeline stage that waits on it.
type WaitInfo struct {
	Semaphore vk.Semaphore
	Stage     vk.PipelineStageFlags
}

// SyncInfo carries the synchronization primitives for one graph
// submission. The graph attaches them to its single queue submit and
// otherwise leaves cross-frame synchronization to the caller.
type SyncInfo struct {
	// Waits are waited on before the submitted work runs, each at its
	// stage. Typically the swapchain imageAvailable semaphore.
	Waits []WaitInfo

	// Signals are signaled when the submitted work completes.
	// Typically the renderFinished semaphore consumed by present.
	Signals []vk.Semaphore

	// Fence, when set, is signaled on completion for CPU-side waiting.
	Fence vk.Fence
	// HasFence distinguishes an unset fence from fence handle zero.
	HasFence bool
}

// AddWait appends a wait semaphore at the given stage. A zero stage
// defaults to ColorAttachmentOutput, the right choice for swapchain
// image acquisition.
func (s *SyncInfo) AddWait(sem vk.Semaphore, stage vk.PipelineStageFlags) *SyncInfo {
	if stage == 0 {
		stage = vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)
	}
	s.Waits = append(s.Waits, WaitInfo{Semaphore: sem, Stage: stage})
	return s
}

// AddSignal appends a semaphore to signal on completion.
func (s *SyncInfo) AddSignal(sem vk.Semaphore) *SyncInfo {
	s.Signals = append(s.Signals, sem)
	return s
}

// SetFence sets the completion fence.
func (s *SyncInfo) SetFence(f vk.Fence) *SyncInfo {
	s.Fence = f
	s.HasFence = true
	return s
}

// Clear resets the sync info for reuse.
func (s *SyncInfo) Clear() {
	s.Waits = s.Waits[:0]
	s.Signals = s.Signals[:0]
	s.Fence = vk.NullFence
	s.HasFence = false
}

// HasPrimitives reports whether any primitive is attached.
func (s *SyncInfo) HasPrimitives() bool {
	return len(s.Waits) > 0 || len(s.Signals) > 0 || s.HasFence
}
