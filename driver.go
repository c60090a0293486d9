package framegraph

import (
	vk "github.com/vulkan-go/vulkan"
)

// The graph drives the GPU exclusively through the interfaces in this
// file. Production code wires the vkdriver implementations; tests wire
// fakes. The graph itself never calls the Vulkan API.

// Image is a physical GPU image with its default full-range view.
type Image interface {
	// VkImage returns the raw image handle.
	VkImage() vk.Image

	// View returns the default view covering every mip and layer.
	View() vk.ImageView

	Format() vk.Format
	Extent() vk.Extent3D
	Usage() vk.ImageUsageFlags
	MipLevels() uint32
	ArrayLayers() uint32
	Samples() vk.SampleCountFlagBits
	Tiling() vk.ImageTiling
}

// Buffer is a physical GPU buffer.
type Buffer interface {
	// VkBuffer returns the raw buffer handle.
	VkBuffer() vk.Buffer

	Size() vk.DeviceSize
	Usage() vk.BufferUsageFlags

	// DeviceAddress returns the buffer device address (VkDeviceAddress),
	// or 0 when the buffer was created without the device-address usage
	// flag or the driver does not support querying it.
	DeviceAddress() uint64
}

// Allocator creates physical resources for transient declarations that
// the pools cannot satisfy, and the fixed sampler set.
type Allocator interface {
	CreateImage(desc TextureDesc) (Image, error)
	CreateBuffer(desc BufferDesc) (Buffer, error)
	CreateSampler(kind SamplerKind) (vk.Sampler, error)
}

// RenderingAttachment describes one attachment of a graphics pass
// rendering scope.
type RenderingAttachment struct {
	View    vk.ImageView
	Format  vk.Format
	Samples vk.SampleCountFlagBits
	Layout  vk.ImageLayout
	LoadOp  vk.AttachmentLoadOp
	StoreOp vk.AttachmentStoreOp

	// ClearColor applies to color attachments when LoadOp is Clear.
	ClearColor [4]float32

	// ClearDepth and ClearStencil apply to the depth attachment.
	ClearDepth   float32
	ClearStencil uint32

	// StencilLoadOp and StencilStoreOp apply to the depth attachment.
	StencilLoadOp  vk.AttachmentLoadOp
	StencilStoreOp vk.AttachmentStoreOp
}

// RenderingInfo describes the rendering scope of one graphics pass.
// The render area is taken from the first color attachment, or from
// the depth attachment for depth-only passes.
type RenderingInfo struct {
	RenderArea vk.Extent2D
	Colors     []RenderingAttachment
	Depth      *RenderingAttachment
}

// CommandRecorder records the single linear command scope of a graph
// execution. One recorder instance backs one execution.
type CommandRecorder interface {
	// Begin opens the command scope for recording.
	Begin() error

	// End closes the command scope. After End the recorder is immutable.
	End() error

	// PipelineBarrier records one synchronization scope. Either slice
	// may be empty, never both.
	PipelineBarrier(srcStages, dstStages vk.PipelineStageFlags,
		imageBarriers []vk.ImageMemoryBarrier, bufferBarriers []vk.BufferMemoryBarrier)

	// BeginRendering opens a graphics pass rendering scope.
	BeginRendering(info RenderingInfo) error

	// EndRendering closes the current rendering scope.
	EndRendering()

	// CommandBuffer exposes the raw command buffer so pass callbacks
	// can record arbitrary draw and dispatch work.
	CommandBuffer() vk.CommandBuffer
}

// Queue submits a finished command scope. Submit must not block on GPU
// completion; CPU-side waiting is the caller's business via the fence
// in SyncInfo.
type Queue interface {
	Submit(rec CommandRecorder, sync *SyncInfo) error
}

// Surface is a presentation surface whose images are owned elsewhere.
// The graph resolves the concrete image view at execute time from the
// index given to RegisterSurfaceTexture.
type Surface interface {
	Format() vk.Format
	Extent() vk.Extent2D
	Image(imageIndex uint32) vk.Image
	View(imageIndex uint32) vk.ImageView
}
