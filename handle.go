package framegraph

import (
	vk "github.com/vulkan-go/vulkan"
)

// handleID identifies a virtual resource inside one builder. IDs are
// dense, start at 1, and are never reused within a builder. 0 is the
// invalid sentinel, so the zero value of every typed handle is invalid.
type handleID uint32

const invalidHandle handleID = 0

// TextureHandle is a virtual texture reference. Handles are cheap value
// types valid only for the builder that issued them. The zero value is
// invalid.
type TextureHandle struct {
	id handleID
}

// IsValid reports whether the handle refers to a declared resource.
func (h TextureHandle) IsValid() bool { return h.id != invalidHandle }

// BufferHandle is a virtual buffer reference. The zero value is invalid.
type BufferHandle struct {
	id handleID
}

// IsValid reports whether the handle refers to a declared resource.
func (h BufferHandle) IsValid() bool { return h.id != invalidHandle }

// handleAllocator issues resource IDs. Texture and buffer handles draw
// from the same counter, so an ID identifies a resource uniquely
// regardless of kind.
type handleAllocator struct {
	next handleID
}

func newHandleAllocator() handleAllocator {
	return handleAllocator{next: 1}
}

func (a *handleAllocator) alloc() handleID {
	id := a.next
	a.next++
	return id
}

// TextureDesc describes a transient texture. Name is a debug label and
// does not participate in pool compatibility.
type TextureDesc struct {
	// Name is the debug name of the texture.
	Name string

	// Format is the pixel format. Must not be vk.FormatUndefined.
	Format vk.Format

	// Extent is the texture size. Depth defaults to 1 via NewTextureDesc.
	Extent vk.Extent3D

	// Usage declares every way the texture will be used.
	Usage vk.ImageUsageFlags

	// MipLevels is the mip chain length. Zero is treated as 1.
	MipLevels uint32

	// ArrayLayers is the array layer count. Zero is treated as 1.
	ArrayLayers uint32

	// Samples is the MSAA sample count.
	Samples vk.SampleCountFlagBits

	// Tiling selects the memory arrangement.
	Tiling vk.ImageTiling
}

// NewTextureDesc builds a 2D texture descriptor with the usual defaults
// (one mip, one layer, single sampled, optimal tiling).
func NewTextureDesc(name string, format vk.Format, width, height uint32, usage vk.ImageUsageFlags) TextureDesc {
	return TextureDesc{
		Name:        name,
		Format:      format,
		Extent:      vk.Extent3D{Width: width, Height: height, Depth: 1},
		Usage:       usage,
		MipLevels:   1,
		ArrayLayers: 1,
		Samples:     vk.SampleCount1Bit,
		Tiling:      vk.ImageTilingOptimal,
	}
}

// normalize fills the zero-value defaults so that descriptors built as
// struct literals compare equal to ones built via NewTextureDesc.
func (d TextureDesc) normalize() TextureDesc {
	if d.MipLevels == 0 {
		d.MipLevels = 1
	}
	if d.ArrayLayers == 0 {
		d.ArrayLayers = 1
	}
	if d.Extent.Depth == 0 {
		d.Extent.Depth = 1
	}
	if d.Samples == 0 {
		d.Samples = vk.SampleCount1Bit
	}
	return d
}

// Valid reports whether the descriptor can back a physical image.
func (d TextureDesc) Valid() bool {
	return d.Format != vk.FormatUndefined &&
		d.Extent.Width > 0 && d.Extent.Height > 0
}

// BufferDesc describes a transient buffer.
type BufferDesc struct {
	// Name is the debug name of the buffer.
	Name string

	// Size is the buffer size in bytes. Must be positive.
	Size vk.DeviceSize

	// Usage declares every way the buffer will be used.
	Usage vk.BufferUsageFlags
}

// NewBufferDesc builds a buffer descriptor.
func NewBufferDesc(name string, size vk.DeviceSize, usage vk.BufferUsageFlags) BufferDesc {
	return BufferDesc{Name: name, Size: size, Usage: usage}
}

// Valid reports whether the descriptor can back a physical buffer.
func (d BufferDesc) Valid() bool { return d.Size > 0 }
