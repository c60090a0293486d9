package vkdriver

import (
	"fmt"
	"math"

	vk "github.com/vulkan-go/vulkan"

	"github.com/gogpu/framegraph"
)

// FrameSync manages the synchronization primitives for N frames in
// flight: one fence per frame, created signaled so the first frames do
// not wait, and an imageAvailable/renderFinished semaphore pair per
// frame for swapchain integration.
//
// Usage per frame:
//
//	img, rf := fs.SemaphorePair(fs.CurrentIndex())
//	// acquire swapchain image signaling img ...
//	sync := fs.CurrentSync()          // waits img, signals rf, fences
//	err := builder.Execute(sync)
//	// present waiting on rf ...
//	fs.Advance()                      // waits the next slot's fence
type FrameSync struct {
	device vk.Device
	frames int
	index  int

	syncs          []framegraph.SyncInfo
	fences         []vk.Fence
	imageAvailable []vk.Semaphore
	renderFinished []vk.Semaphore
}

// NewFrameSync creates the primitives for the given number of frames
// in flight, typically 2 or 3.
func NewFrameSync(device vk.Device, framesInFlight int) (*FrameSync, error) {
	if framesInFlight < 1 {
		framesInFlight = 2
	}
	fs := &FrameSync{device: device, frames: framesInFlight}

	semaphoreInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	fenceInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
		Flags: vk.FenceCreateFlags(vk.FenceCreateSignaledBit),
	}

	for i := 0; i < framesInFlight; i++ {
		var imageAvailable vk.Semaphore
		if err := vk.Error(vk.CreateSemaphore(device, &semaphoreInfo, nil, &imageAvailable)); err != nil {
			fs.Destroy()
			return nil, fmt.Errorf("vkdriver: create imageAvailable semaphore: %w", err)
		}
		fs.imageAvailable = append(fs.imageAvailable, imageAvailable)

		var renderFinished vk.Semaphore
		if err := vk.Error(vk.CreateSemaphore(device, &semaphoreInfo, nil, &renderFinished)); err != nil {
			fs.Destroy()
			return nil, fmt.Errorf("vkdriver: create renderFinished semaphore: %w", err)
		}
		fs.renderFinished = append(fs.renderFinished, renderFinished)

		var fence vk.Fence
		if err := vk.Error(vk.CreateFence(device, &fenceInfo, nil, &fence)); err != nil {
			fs.Destroy()
			return nil, fmt.Errorf("vkdriver: create in-flight fence: %w", err)
		}
		fs.fences = append(fs.fences, fence)
	}

	fs.syncs = make([]framegraph.SyncInfo, framesInFlight)
	for i := range fs.syncs {
		fs.syncs[i].AddWait(fs.imageAvailable[i], 0)
		fs.syncs[i].AddSignal(fs.renderFinished[i])
		fs.syncs[i].SetFence(fs.fences[i])
	}
	return fs, nil
}

// CurrentIndex returns the current frame slot.
func (fs *FrameSync) CurrentIndex() int { return fs.index }

// FramesInFlight returns the number of frame slots.
func (fs *FrameSync) FramesInFlight() int { return fs.frames }

// CurrentSync returns the sync info wired for the current frame.
func (fs *FrameSync) CurrentSync() *framegraph.SyncInfo {
	return &fs.syncs[fs.index]
}

// CurrentFence returns the current frame's fence.
func (fs *FrameSync) CurrentFence() vk.Fence {
	return fs.fences[fs.index]
}

// SemaphorePair returns the (imageAvailable, renderFinished) pair of
// the given frame slot.
func (fs *FrameSync) SemaphorePair(index int) (vk.Semaphore, vk.Semaphore) {
	return fs.imageAvailable[index], fs.renderFinished[index]
}

// Advance moves to the next frame slot, waiting on its fence and
// resetting it so the slot's resources are safe to reuse.
func (fs *FrameSync) Advance() error {
	fs.index = (fs.index + 1) % fs.frames
	fences := []vk.Fence{fs.fences[fs.index]}
	if err := vk.Error(vk.WaitForFences(fs.device, 1, fences, vk.True, math.MaxUint64)); err != nil {
		return fmt.Errorf("vkdriver: wait frame fence: %w", err)
	}
	if err := vk.Error(vk.ResetFences(fs.device, 1, fences)); err != nil {
		return fmt.Errorf("vkdriver: reset frame fence: %w", err)
	}
	return nil
}

// WaitAll blocks until every in-flight frame completed. Call before
// tearing anything down.
func (fs *FrameSync) WaitAll() error {
	if len(fs.fences) == 0 {
		return nil
	}
	if err := vk.Error(vk.WaitForFences(fs.device, uint32(len(fs.fences)), fs.fences, vk.True, math.MaxUint64)); err != nil {
		return fmt.Errorf("vkdriver: wait all frame fences: %w", err)
	}
	return nil
}

// Destroy releases every primitive. The frames must be idle.
func (fs *FrameSync) Destroy() {
	for _, s := range fs.imageAvailable {
		vk.DestroySemaphore(fs.device, s, nil)
	}
	for _, s := range fs.renderFinished {
		vk.DestroySemaphore(fs.device, s, nil)
	}
	for _, f := range fs.fences {
		vk.DestroyFence(fs.device, f, nil)
	}
	fs.imageAvailable = nil
	fs.renderFinished = nil
	fs.fences = nil
	fs.syncs = nil
}
