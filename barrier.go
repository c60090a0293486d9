package framegraph

import (
	vk "github.com/vulkan-go/vulkan"
)

// BarrierKind says which resource class a barrier guards.
type BarrierKind uint8

const (
	BarrierImage BarrierKind = iota
	BarrierBuffer
)

func (k BarrierKind) String() string {
	switch k {
	case BarrierImage:
		return "Image"
	case BarrierBuffer:
		return "Buffer"
	default:
		return "Unknown"
	}
}

// Barrier is one synthesized hazard barrier, emitted immediately before
// the pass it is attached to. Layout fields apply to image barriers
// only. Barriers are deterministic: the same declarations always
// compile to the same barrier list.
type Barrier struct {
	Kind BarrierKind

	// Texture is set for image barriers, Buffer for buffer barriers.
	Texture TextureHandle
	Buffer  BufferHandle

	SrcStages vk.PipelineStageFlags
	DstStages vk.PipelineStageFlags
	SrcAccess vk.AccessFlags
	DstAccess vk.AccessFlags

	OldLayout vk.ImageLayout
	NewLayout vk.ImageLayout
}

// accessState remembers the most recent access to a resource while the
// compiler walks the active passes in order.
type accessState struct {
	stages   vk.PipelineStageFlags
	access   vk.AccessFlags
	wasWrite bool
}

// imageMemoryBarrier lowers an image Barrier onto its physical image.
// The subresource range always covers the full image; aspect comes from
// the format.
func (b Barrier) imageMemoryBarrier(image vk.Image, format vk.Format) vk.ImageMemoryBarrier {
	return vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       b.SrcAccess,
		DstAccessMask:       b.DstAccess,
		OldLayout:           b.OldLayout,
		NewLayout:           b.NewLayout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               image,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     formatAspect(format),
			BaseMipLevel:   0,
			LevelCount:     vk.RemainingMipLevels,
			BaseArrayLayer: 0,
			LayerCount:     vk.RemainingArrayLayers,
		},
	}
}

// bufferMemoryBarrier lowers a buffer Barrier onto its physical buffer,
// covering the whole range.
func (b Barrier) bufferMemoryBarrier(buffer vk.Buffer) vk.BufferMemoryBarrier {
	return vk.BufferMemoryBarrier{
		SType:               vk.StructureTypeBufferMemoryBarrier,
		SrcAccessMask:       b.SrcAccess,
		DstAccessMask:       b.DstAccess,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Buffer:              buffer,
		Offset:              0,
		Size:                vk.DeviceSize(vk.WholeSize),
	}
}
