package framegraph

import (
	vk "github.com/vulkan-go/vulkan"
)

// SamplerKind names one of the predefined samplers the graph creates
// lazily through its Allocator. They cover the common cases for
// sampling transient render targets; externally owned textures should
// bring their own samplers.
type SamplerKind uint8

const (
	SamplerNearestClamp SamplerKind = iota
	SamplerNearestRepeat
	SamplerLinearClamp
	SamplerLinearRepeat
	SamplerAnisotropicClamp
	SamplerAnisotropicRepeat

	// SamplerShadowPCF compares against the reference depth with
	// LessOrEqual, clamps to an opaque white border.
	SamplerShadowPCF

	samplerKindCount
)

func (k SamplerKind) String() string {
	switch k {
	case SamplerNearestClamp:
		return "NearestClamp"
	case SamplerNearestRepeat:
		return "NearestRepeat"
	case SamplerLinearClamp:
		return "LinearClamp"
	case SamplerLinearRepeat:
		return "LinearRepeat"
	case SamplerAnisotropicClamp:
		return "AnisotropicClamp"
	case SamplerAnisotropicRepeat:
		return "AnisotropicRepeat"
	case SamplerShadowPCF:
		return "ShadowPCF"
	default:
		return "Unknown"
	}
}

// ResourceAccessor resolves virtual handles to physical resources from
// inside a pass callback. It is only valid for the duration of the
// callback it was handed to; do not retain it.
//
// Every getter is nil-safe: invalid or unallocated handles yield the
// zero value of the result type, never a panic.
type ResourceAccessor struct {
	graph *graph
}

// TextureView returns the image view behind the handle, or a null view.
func (a *ResourceAccessor) TextureView(h TextureHandle) vk.ImageView {
	t, ok := a.graph.textures[h.id]
	if !ok {
		return vk.NullImageView
	}
	return a.graph.textureView(t)
}

// Texture returns the physical image behind the handle, or nil.
// Surface textures have no Image wrapper and also return nil.
func (a *ResourceAccessor) Texture(h TextureHandle) Image {
	t, ok := a.graph.textures[h.id]
	if !ok {
		return nil
	}
	return t.physical
}

// TextureLayout returns the layout the texture is in at this point of
// the recorded frame.
func (a *ResourceAccessor) TextureLayout(h TextureHandle) vk.ImageLayout {
	t, ok := a.graph.textures[h.id]
	if !ok {
		return vk.ImageLayoutUndefined
	}
	return t.layout
}

// Buffer returns the raw buffer handle, or a null buffer.
func (a *ResourceAccessor) Buffer(h BufferHandle) vk.Buffer {
	b, ok := a.graph.buffers[h.id]
	if !ok || b.physical == nil {
		return vk.NullBuffer
	}
	return b.physical.VkBuffer()
}

// BufferObject returns the physical buffer behind the handle, or nil.
func (a *ResourceAccessor) BufferObject(h BufferHandle) Buffer {
	b, ok := a.graph.buffers[h.id]
	if !ok {
		return nil
	}
	return b.physical
}

// BufferDeviceAddress returns the buffer's device address, or 0 when
// the handle is invalid or the buffer lacks device-address usage.
func (a *ResourceAccessor) BufferDeviceAddress(h BufferHandle) uint64 {
	b, ok := a.graph.buffers[h.id]
	if !ok || b.physical == nil {
		return 0
	}
	return b.physical.DeviceAddress()
}

// Sampler returns the predefined sampler of the given kind, created on
// first use.
func (a *ResourceAccessor) Sampler(kind SamplerKind) vk.Sampler {
	if kind >= samplerKindCount {
		return vk.NullSampler
	}
	return a.graph.sampler(kind)
}

// DefaultSampler returns the linear-clamp sampler, the usual choice for
// sampling a transient render target.
func (a *ResourceAccessor) DefaultSampler() vk.Sampler {
	return a.Sampler(SamplerLinearClamp)
}
