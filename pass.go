package framegraph

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// PassFunc records the GPU work of one pass. The recorder is already
// inside the pass's rendering scope for graphics passes. Returned
// errors are logged by the executor; they do not abort the frame.
type PassFunc func(rec CommandRecorder) error

// PassFuncEx is the extended callback shape with access to physical
// resources. The accessor is valid only for the duration of the call.
type PassFuncEx func(rec CommandRecorder, res *ResourceAccessor) error

// TextureAccess is one declared texture read or write of a pass.
type TextureAccess struct {
	Handle TextureHandle
	Stages vk.PipelineStageFlags
	Access vk.AccessFlags
	Layout vk.ImageLayout
}

// BufferAccess is one declared buffer read or write of a pass.
type BufferAccess struct {
	Handle BufferHandle
	Stages vk.PipelineStageFlags
	Access vk.AccessFlags
}

// ColorAttachment is a declared color attachment write.
type ColorAttachment struct {
	Handle     TextureHandle
	LoadOp     vk.AttachmentLoadOp
	StoreOp    vk.AttachmentStoreOp
	ClearColor [4]float32
}

// DepthAttachment is a declared depth/stencil attachment write.
type DepthAttachment struct {
	Handle         TextureHandle
	LoadOp         vk.AttachmentLoadOp
	StoreOp        vk.AttachmentStoreOp
	StencilLoadOp  vk.AttachmentLoadOp
	StencilStoreOp vk.AttachmentStoreOp
	ClearDepth     float32
	ClearStencil   uint32
}

// Pass is one unit of GPU work with its declared resource accesses.
// Declaration methods return the pass for chaining; the first invalid
// declaration is recorded on the pass and surfaced by Compile, with
// later declarations on the same pass ignored.
type Pass struct {
	name string
	fn   PassFunc
	fnEx PassFuncEx

	textureReads  []TextureAccess
	textureWrites []TextureAccess
	bufferReads   []BufferAccess
	bufferWrites  []BufferAccess
	colors        []ColorAttachment
	depth         *DepthAttachment

	err error
}

// Name returns the pass debug name.
func (p *Pass) Name() string { return p.name }

// Err returns the first declaration error recorded on the pass, if any.
func (p *Pass) Err() error { return p.err }

func (p *Pass) fail(err error) *Pass {
	if p.err == nil {
		p.err = err
		Logger().Warn("invalid pass declaration", "pass", p.name, "err", err)
	}
	return p
}

// inferReadLayout picks the image layout implied by a read access mask.
// Sampled and input-attachment reads want ShaderReadOnlyOptimal;
// anything else (storage reads, mixed masks) falls back to General.
func inferReadLayout(access vk.AccessFlags) vk.ImageLayout {
	shaderRead := vk.AccessFlags(vk.AccessShaderReadBit)
	inputRead := vk.AccessFlags(vk.AccessInputAttachmentReadBit)
	if access&shaderRead != 0 || access&inputRead != 0 {
		return vk.ImageLayoutShaderReadOnlyOptimal
	}
	return vk.ImageLayoutGeneral
}

// ReadTexture declares a texture read. The required layout is inferred
// from the access mask; use ReadTextureLayout to force one.
func (p *Pass) ReadTexture(h TextureHandle, stages vk.PipelineStageFlags, access vk.AccessFlags) *Pass {
	return p.ReadTextureLayout(h, stages, access, inferReadLayout(access))
}

// ReadTextureLayout declares a texture read with an explicit layout.
func (p *Pass) ReadTextureLayout(h TextureHandle, stages vk.PipelineStageFlags, access vk.AccessFlags, layout vk.ImageLayout) *Pass {
	if p.err != nil {
		return p
	}
	if !h.IsValid() {
		return p.fail(fmt.Errorf("read texture in pass %q: %w", p.name, ErrInvalidHandle))
	}
	p.textureReads = append(p.textureReads, TextureAccess{
		Handle: h, Stages: stages, Access: access, Layout: layout,
	})
	return p
}

// WriteColorAttachment declares h as a color attachment of this pass.
func (p *Pass) WriteColorAttachment(h TextureHandle, loadOp vk.AttachmentLoadOp, storeOp vk.AttachmentStoreOp, clear [4]float32) *Pass {
	if p.err != nil {
		return p
	}
	if !h.IsValid() {
		return p.fail(fmt.Errorf("color attachment in pass %q: %w", p.name, ErrInvalidHandle))
	}
	p.colors = append(p.colors, ColorAttachment{
		Handle: h, LoadOp: loadOp, StoreOp: storeOp, ClearColor: clear,
	})
	return p
}

// WriteDepthStencilAttachment declares h as the depth/stencil
// attachment. A pass has at most one; a second declaration is an error.
func (p *Pass) WriteDepthStencilAttachment(h TextureHandle, loadOp vk.AttachmentLoadOp, storeOp vk.AttachmentStoreOp,
	stencilLoadOp vk.AttachmentLoadOp, stencilStoreOp vk.AttachmentStoreOp,
	clearDepth float32, clearStencil uint32) *Pass {
	if p.err != nil {
		return p
	}
	if !h.IsValid() {
		return p.fail(fmt.Errorf("depth attachment in pass %q: %w", p.name, ErrInvalidHandle))
	}
	if p.depth != nil {
		return p.fail(fmt.Errorf("pass %q: %w", p.name, ErrDuplicateDepth))
	}
	p.depth = &DepthAttachment{
		Handle: h, LoadOp: loadOp, StoreOp: storeOp,
		StencilLoadOp: stencilLoadOp, StencilStoreOp: stencilStoreOp,
		ClearDepth: clearDepth, ClearStencil: clearStencil,
	}
	return p
}

// WriteDepthAttachment is WriteDepthStencilAttachment with the stencil
// ops set to don't-care, for the common depth-only case.
func (p *Pass) WriteDepthAttachment(h TextureHandle, loadOp vk.AttachmentLoadOp, storeOp vk.AttachmentStoreOp, clearDepth float32) *Pass {
	return p.WriteDepthStencilAttachment(h, loadOp, storeOp,
		vk.AttachmentLoadOpDontCare, vk.AttachmentStoreOpDontCare, clearDepth, 0)
}

// WriteStorageTexture declares a storage image write. Storage writes
// always use the General layout.
func (p *Pass) WriteStorageTexture(h TextureHandle, stages vk.PipelineStageFlags, access vk.AccessFlags) *Pass {
	if p.err != nil {
		return p
	}
	if !h.IsValid() {
		return p.fail(fmt.Errorf("storage texture in pass %q: %w", p.name, ErrInvalidHandle))
	}
	p.textureWrites = append(p.textureWrites, TextureAccess{
		Handle: h, Stages: stages, Access: access, Layout: vk.ImageLayoutGeneral,
	})
	return p
}

// ReadBuffer declares a buffer read.
func (p *Pass) ReadBuffer(h BufferHandle, stages vk.PipelineStageFlags, access vk.AccessFlags) *Pass {
	if p.err != nil {
		return p
	}
	if !h.IsValid() {
		return p.fail(fmt.Errorf("read buffer in pass %q: %w", p.name, ErrInvalidHandle))
	}
	p.bufferReads = append(p.bufferReads, BufferAccess{Handle: h, Stages: stages, Access: access})
	return p
}

// WriteBuffer declares a buffer write.
func (p *Pass) WriteBuffer(h BufferHandle, stages vk.PipelineStageFlags, access vk.AccessFlags) *Pass {
	if p.err != nil {
		return p
	}
	if !h.IsValid() {
		return p.fail(fmt.Errorf("write buffer in pass %q: %w", p.name, ErrInvalidHandle))
	}
	p.bufferWrites = append(p.bufferWrites, BufferAccess{Handle: h, Stages: stages, Access: access})
	return p
}

// IsGraphics reports whether the pass renders to attachments. The
// executor wraps graphics passes in a rendering scope.
func (p *Pass) IsGraphics() bool {
	return len(p.colors) > 0 || p.depth != nil
}

// IsCompute reports whether the pass only writes through storage
// accesses, with no attachments.
func (p *Pass) IsCompute() bool {
	return !p.IsGraphics() && (len(p.textureWrites) > 0 || len(p.bufferWrites) > 0)
}

// forEachAccess visits every declared resource id of the pass, with
// write=true for writing declarations.
func (p *Pass) forEachAccess(fn func(id handleID, write bool)) {
	for i := range p.textureReads {
		fn(p.textureReads[i].Handle.id, false)
	}
	for i := range p.colors {
		fn(p.colors[i].Handle.id, true)
	}
	if p.depth != nil {
		fn(p.depth.Handle.id, true)
	}
	for i := range p.textureWrites {
		fn(p.textureWrites[i].Handle.id, true)
	}
	for i := range p.bufferReads {
		fn(p.bufferReads[i].Handle.id, false)
	}
	for i := range p.bufferWrites {
		fn(p.bufferWrites[i].Handle.id, true)
	}
}
