package framegraph

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// Test doubles for the collaborator interfaces. They record what the
// graph asked of them; vk handle values stay zero throughout since the
// graph never dereferences them.

type fakeImage struct {
	desc TextureDesc
}

func (f *fakeImage) VkImage() vk.Image               { return vk.NullImage }
func (f *fakeImage) View() vk.ImageView              { return vk.NullImageView }
func (f *fakeImage) Format() vk.Format               { return f.desc.Format }
func (f *fakeImage) Extent() vk.Extent3D             { return f.desc.Extent }
func (f *fakeImage) Usage() vk.ImageUsageFlags       { return f.desc.Usage }
func (f *fakeImage) MipLevels() uint32               { return f.desc.MipLevels }
func (f *fakeImage) ArrayLayers() uint32             { return f.desc.ArrayLayers }
func (f *fakeImage) Samples() vk.SampleCountFlagBits { return f.desc.Samples }
func (f *fakeImage) Tiling() vk.ImageTiling          { return f.desc.Tiling }

type fakeBuffer struct {
	desc BufferDesc
}

func (f *fakeBuffer) VkBuffer() vk.Buffer        { return vk.NullBuffer }
func (f *fakeBuffer) Size() vk.DeviceSize        { return f.desc.Size }
func (f *fakeBuffer) Usage() vk.BufferUsageFlags { return f.desc.Usage }
func (f *fakeBuffer) DeviceAddress() uint64      { return 0 }

type fakeAllocator struct {
	imagesCreated   int
	buffersCreated  int
	samplersCreated int
	failImages      bool
}

func (f *fakeAllocator) CreateImage(desc TextureDesc) (Image, error) {
	if f.failImages {
		return nil, fmt.Errorf("fake allocator: image creation disabled")
	}
	f.imagesCreated++
	return &fakeImage{desc: desc.normalize()}, nil
}

func (f *fakeAllocator) CreateBuffer(desc BufferDesc) (Buffer, error) {
	f.buffersCreated++
	return &fakeBuffer{desc: desc}, nil
}

func (f *fakeAllocator) CreateSampler(kind SamplerKind) (vk.Sampler, error) {
	f.samplersCreated++
	return vk.NullSampler, nil
}

// fakeRecorder keeps an event log so tests can assert on recording
// order and barrier placement.
type fakeRecorder struct {
	events   []string
	barriers int
	began    bool
	ended    bool

	lastSrcStages vk.PipelineStageFlags
	lastDstStages vk.PipelineStageFlags
}

func (f *fakeRecorder) Begin() error {
	f.began = true
	f.events = append(f.events, "begin")
	return nil
}

func (f *fakeRecorder) End() error {
	f.ended = true
	f.events = append(f.events, "end")
	return nil
}

func (f *fakeRecorder) PipelineBarrier(src, dst vk.PipelineStageFlags,
	imgs []vk.ImageMemoryBarrier, bufs []vk.BufferMemoryBarrier) {
	f.barriers += len(imgs) + len(bufs)
	f.lastSrcStages = src
	f.lastDstStages = dst
	f.events = append(f.events, fmt.Sprintf("barrier(img=%d,buf=%d)", len(imgs), len(bufs)))
}

func (f *fakeRecorder) BeginRendering(info RenderingInfo) error {
	f.events = append(f.events, fmt.Sprintf("beginRendering(%dx%d,colors=%d,depth=%v)",
		info.RenderArea.Width, info.RenderArea.Height, len(info.Colors), info.Depth != nil))
	return nil
}

func (f *fakeRecorder) EndRendering() {
	f.events = append(f.events, "endRendering")
}

func (f *fakeRecorder) CommandBuffer() vk.CommandBuffer { return nil }

type fakeQueue struct {
	submits  int
	lastSync *SyncInfo
}

func (f *fakeQueue) Submit(rec CommandRecorder, sync *SyncInfo) error {
	f.submits++
	f.lastSync = sync
	return nil
}

type fakeSurface struct {
	format vk.Format
	extent vk.Extent2D
}

func (f *fakeSurface) Format() vk.Format   { return f.format }
func (f *fakeSurface) Extent() vk.Extent2D { return f.extent }

func (f *fakeSurface) Image(imageIndex uint32) vk.Image {
	return vk.NullImage
}

func (f *fakeSurface) View(imageIndex uint32) vk.ImageView {
	return vk.NullImageView
}

// testConfig wires one fake of everything, without pools.
func testConfig() (Config, *fakeAllocator, *fakeRecorder, *fakeQueue) {
	alloc := &fakeAllocator{}
	rec := &fakeRecorder{}
	queue := &fakeQueue{}
	return Config{Allocator: alloc, Recorder: rec, Queue: queue}, alloc, rec, queue
}
