package framegraph

import (
	vk "github.com/vulkan-go/vulkan"
)

// ResourceKind distinguishes graph-owned transients from imported
// externals.
type ResourceKind uint8

const (
	// ResourceTransient resources are allocated by the graph for one
	// execution and recycled through the pools afterwards.
	ResourceTransient ResourceKind = iota

	// ResourceExternal resources are owned by the caller and outlive
	// the graph. The graph never allocates or recycles them.
	ResourceExternal
)

func (k ResourceKind) String() string {
	switch k {
	case ResourceTransient:
		return "Transient"
	case ResourceExternal:
		return "External"
	default:
		return "Unknown"
	}
}

// ResourceState tracks a resource through the frame.
type ResourceState uint8

const (
	// ResourceDeclared means the resource exists only as a handle.
	ResourceDeclared ResourceState = iota

	// ResourceAllocated means a physical object is bound.
	ResourceAllocated

	// ResourceActive means the resource is inside its lifetime interval
	// during execution.
	ResourceActive

	// ResourceFinished means the last using pass has been recorded.
	ResourceFinished
)

func (s ResourceState) String() string {
	switch s {
	case ResourceDeclared:
		return "Declared"
	case ResourceAllocated:
		return "Allocated"
	case ResourceActive:
		return "Active"
	case ResourceFinished:
		return "Finished"
	default:
		return "Unknown"
	}
}

// lifetimeUnset marks a lifetime with no recorded usage yet.
const lifetimeUnset = ^uint32(0)

// Lifetime is the closed interval of ordered pass indices over which a
// resource is alive. Only active (non-culled) passes contribute.
type Lifetime struct {
	First uint32
	Last  uint32
	Used  bool
}

func newLifetime() Lifetime {
	return Lifetime{First: lifetimeUnset, Last: 0}
}

// Update widens the interval to include passIndex.
func (l *Lifetime) Update(passIndex uint32) {
	if !l.Used {
		l.First = passIndex
		l.Last = passIndex
		l.Used = true
		return
	}
	if passIndex < l.First {
		l.First = passIndex
	}
	if passIndex > l.Last {
		l.Last = passIndex
	}
}

// Overlaps reports whether two lifetimes share any pass index. Unused
// lifetimes overlap nothing.
func (l Lifetime) Overlaps(other Lifetime) bool {
	if !l.Used || !other.Used {
		return false
	}
	return l.Last >= other.First && other.Last >= l.First
}

// textureResource is the registry entry behind a TextureHandle.
type textureResource struct {
	id       handleID
	desc     TextureDesc
	kind     ResourceKind
	state    ResourceState
	lifetime Lifetime

	physical Image
	layout   vk.ImageLayout

	// surface and surfaceIndex are set for presentation targets
	// registered through RegisterSurfaceTexture. The physical image and
	// view are resolved from them at execute time.
	surface      Surface
	surfaceIndex uint32
	surfaceView  vk.ImageView
	surfaceImage vk.Image
}

func (r *textureResource) isTransient() bool { return r.kind == ResourceTransient }
func (r *textureResource) isSurface() bool   { return r.surface != nil }

// canAliasWith reports whether two transient textures may share one
// physical image: identical descriptors (debug name aside) and
// disjoint lifetimes.
func (r *textureResource) canAliasWith(other *textureResource) bool {
	if !r.isTransient() || !other.isTransient() {
		return false
	}
	if r.lifetime.Overlaps(other.lifetime) {
		return false
	}
	a, b := r.desc, other.desc
	return a.Format == b.Format &&
		a.Extent == b.Extent &&
		a.Usage == b.Usage &&
		a.MipLevels == b.MipLevels &&
		a.ArrayLayers == b.ArrayLayers &&
		a.Samples == b.Samples &&
		a.Tiling == b.Tiling
}

// bufferResource is the registry entry behind a BufferHandle.
type bufferResource struct {
	id       handleID
	desc     BufferDesc
	kind     ResourceKind
	state    ResourceState
	lifetime Lifetime

	physical Buffer
}

func (r *bufferResource) isTransient() bool { return r.kind == ResourceTransient }

func (r *bufferResource) canAliasWith(other *bufferResource) bool {
	if !r.isTransient() || !other.isTransient() {
		return false
	}
	if r.lifetime.Overlaps(other.lifetime) {
		return false
	}
	return r.desc.Size == other.desc.Size && r.desc.Usage == other.desc.Usage
}

// formatAspect returns the aspect flags implied by a format: depth for
// pure depth formats, depth|stencil for combined formats, color for
// everything else.
func formatAspect(format vk.Format) vk.ImageAspectFlags {
	switch format {
	case vk.FormatD16Unorm, vk.FormatD32Sfloat, vk.FormatX8D24UnormPack32:
		return vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	case vk.FormatD16UnormS8Uint, vk.FormatD24UnormS8Uint, vk.FormatD32SfloatS8Uint:
		return vk.ImageAspectFlags(vk.ImageAspectDepthBit | vk.ImageAspectStencilBit)
	default:
		return vk.ImageAspectFlags(vk.ImageAspectColorBit)
	}
}

// isDepthFormat reports whether the format carries a depth aspect.
func isDepthFormat(format vk.Format) bool {
	return formatAspect(format)&vk.ImageAspectFlags(vk.ImageAspectDepthBit) != 0
}
