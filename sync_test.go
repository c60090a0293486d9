package framegraph

import (
	"testing"

	vk "github.com/vulkan-go/vulkan"
)

func TestSyncInfoHelpers(t *testing.T) {
	var s SyncInfo
	if s.HasPrimitives() {
		t.Error("empty SyncInfo reports primitives")
	}

	s.AddWait(vk.NullSemaphore, 0).
		AddSignal(vk.NullSemaphore).
		SetFence(vk.NullFence)

	if !s.HasPrimitives() {
		t.Error("populated SyncInfo reports no primitives")
	}
	if len(s.Waits) != 1 || len(s.Signals) != 1 || !s.HasFence {
		t.Errorf("counts = %d waits, %d signals, fence=%v, want 1, 1, true",
			len(s.Waits), len(s.Signals), s.HasFence)
	}

	// Zero wait stage defaults to the swapchain-friendly stage.
	want := vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)
	if s.Waits[0].Stage != want {
		t.Errorf("default wait stage = %v, want ColorAttachmentOutput", s.Waits[0].Stage)
	}

	explicit := vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)
	s.AddWait(vk.NullSemaphore, explicit)
	if s.Waits[1].Stage != explicit {
		t.Errorf("explicit wait stage = %v, want TopOfPipe", s.Waits[1].Stage)
	}

	s.Clear()
	if s.HasPrimitives() {
		t.Error("Clear() left primitives behind")
	}
}

func TestExecutePassesSyncToQueue(t *testing.T) {
	cfg, _, _, queue := testConfig()
	b := NewBuilder(cfg)

	sync := new(SyncInfo).AddSignal(vk.NullSemaphore)
	if err := b.Execute(sync); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if queue.lastSync != sync {
		t.Error("queue did not receive the caller's SyncInfo")
	}
}
