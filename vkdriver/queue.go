package vkdriver

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"

	"github.com/gogpu/framegraph"
)

// Queue submits the graph's finished command scope. It implements
// framegraph.Queue. Submit does not block; CPU-side completion waits
// go through the fence in the sync info.
type Queue struct {
	queue vk.Queue
}

// NewQueue wraps a device queue.
func NewQueue(queue vk.Queue) *Queue {
	return &Queue{queue: queue}
}

// Submit builds one vk.SubmitInfo from the sync primitives and submits
// the recorder's command buffer.
func (q *Queue) Submit(rec framegraph.CommandRecorder, sync *framegraph.SyncInfo) error {
	if sync == nil {
		sync = &framegraph.SyncInfo{}
	}
	submitInfo := buildSubmitInfo(rec.CommandBuffer(), sync)

	fence := vk.NullFence
	if sync.HasFence {
		fence = sync.Fence
	}
	if err := vk.Error(vk.QueueSubmit(q.queue, 1, []vk.SubmitInfo{submitInfo}, fence)); err != nil {
		return fmt.Errorf("vkdriver: queue submit: %w", err)
	}
	return nil
}

// buildSubmitInfo assembles the submission descriptor. Wait semaphores
// and their stage masks stay index-aligned.
func buildSubmitInfo(cmd vk.CommandBuffer, sync *framegraph.SyncInfo) vk.SubmitInfo {
	waitSems := make([]vk.Semaphore, 0, len(sync.Waits))
	waitStages := make([]vk.PipelineStageFlags, 0, len(sync.Waits))
	for _, w := range sync.Waits {
		waitSems = append(waitSems, w.Semaphore)
		waitStages = append(waitStages, w.Stage)
	}

	return vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   uint32(len(waitSems)),
		PWaitSemaphores:      waitSems,
		PWaitDstStageMask:    waitStages,
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{cmd},
		SignalSemaphoreCount: uint32(len(sync.Signals)),
		PSignalSemaphores:    sync.Signals,
	}
}
