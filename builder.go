package framegraph

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// buildState tracks the builder lifecycle. A builder drives exactly one
// frame: declare, compile, execute, discard.
type buildState uint8

const (
	stateBuilding buildState = iota
	stateCompiled
	stateExecuted
)

func (s buildState) String() string {
	switch s {
	case stateBuilding:
		return "Building"
	case stateCompiled:
		return "Compiled"
	case stateExecuted:
		return "Executed"
	default:
		return "Unknown"
	}
}

// Config carries the collaborators a Builder drives. Allocator,
// Recorder and Queue come from the vkdriver package in production and
// from fakes in tests. Pools is optional; sharing one PoolSet across
// frames is what makes transient reuse effective.
type Config struct {
	Allocator Allocator
	Recorder  CommandRecorder
	Queue     Queue
	Pools     *PoolSet
}

// Builder is the single entry point for declaring and running a frame
// graph. Typical use:
//
//	b := framegraph.NewBuilder(cfg)
//	defer b.Finish()
//
//	color := b.CreateColorBuffer("scene", width, height)
//	b.AddPass("draw", drawScene).
//	    WriteColorAttachment(color, vk.AttachmentLoadOpClear, vk.AttachmentStoreOpStore, clear)
//	target := b.RegisterSurfaceTexture(surface, imageIndex, "backbuffer")
//	b.AddPassEx("present-blit", blit).
//	    ReadTexture(color, stages, access).
//	    WriteColorAttachment(target, vk.AttachmentLoadOpDontCare, vk.AttachmentStoreOpStore, clear)
//
//	err := b.Execute(sync)
//
// Builders are not safe for concurrent use. Handles are only meaningful
// to the builder that issued them.
type Builder struct {
	g     *graph
	state buildState
}

// NewBuilder creates a builder for one frame over the given
// collaborators.
func NewBuilder(cfg Config) *Builder {
	return &Builder{g: newGraph(cfg)}
}

// SetDebugName labels the graph in log output.
func (b *Builder) SetDebugName(name string) {
	b.g.debugName = name
}

func (b *Builder) checkBuilding(op string) error {
	switch b.state {
	case stateBuilding:
		return nil
	case stateCompiled:
		return fmt.Errorf("%s: %w", op, ErrCompiled)
	default:
		return fmt.Errorf("%s: %w", op, ErrExecuted)
	}
}

// CreateTexture declares a transient texture and returns its handle.
// An invalid descriptor returns the zero handle; the error is also
// logged so silent zero handles do not go unnoticed.
func (b *Builder) CreateTexture(desc TextureDesc) (TextureHandle, error) {
	if err := b.checkBuilding("create texture"); err != nil {
		return TextureHandle{}, err
	}
	if !desc.Valid() {
		err := fmt.Errorf("create texture %q: %w", desc.Name, ErrInvalidDesc)
		Logger().Warn("invalid texture descriptor", "name", desc.Name)
		return TextureHandle{}, err
	}
	return b.g.createTexture(desc), nil
}

// CreateBuffer declares a transient buffer and returns its handle.
func (b *Builder) CreateBuffer(desc BufferDesc) (BufferHandle, error) {
	if err := b.checkBuilding("create buffer"); err != nil {
		return BufferHandle{}, err
	}
	if !desc.Valid() {
		err := fmt.Errorf("create buffer %q: %w", desc.Name, ErrInvalidDesc)
		Logger().Warn("invalid buffer descriptor", "name", desc.Name)
		return BufferHandle{}, err
	}
	return b.g.createBuffer(desc), nil
}

// CreateTexture2D declares a single-mip 2D transient texture.
func (b *Builder) CreateTexture2D(name string, format vk.Format, width, height uint32, usage vk.ImageUsageFlags) (TextureHandle, error) {
	return b.CreateTexture(NewTextureDesc(name, format, width, height, usage))
}

// CreateColorBuffer declares an RGBA8 render target that can also be
// sampled, the common shape for intermediate targets.
func (b *Builder) CreateColorBuffer(name string, width, height uint32) (TextureHandle, error) {
	return b.CreateTexture2D(name, vk.FormatR8g8b8a8Unorm, width, height,
		vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit|vk.ImageUsageSampledBit))
}

// CreateDepthBuffer declares a 32-bit float depth attachment.
func (b *Builder) CreateDepthBuffer(name string, width, height uint32) (TextureHandle, error) {
	return b.CreateTexture2D(name, vk.FormatD32Sfloat, width, height,
		vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit))
}

// RegisterExternalTexture imports a caller-owned image. currentLayout
// must be the layout the image is in when execution begins; the first
// barrier transitions from it. Writes to external resources anchor
// culling.
func (b *Builder) RegisterExternalTexture(img Image, name string, currentLayout vk.ImageLayout) (TextureHandle, error) {
	if err := b.checkBuilding("register external texture"); err != nil {
		return TextureHandle{}, err
	}
	if img == nil {
		return TextureHandle{}, fmt.Errorf("register external texture %q: %w", name, ErrNilResource)
	}
	return b.g.registerExternalTexture(img, name, currentLayout), nil
}

// RegisterExternalBuffer imports a caller-owned buffer.
func (b *Builder) RegisterExternalBuffer(buf Buffer, name string) (BufferHandle, error) {
	if err := b.checkBuilding("register external buffer"); err != nil {
		return BufferHandle{}, err
	}
	if buf == nil {
		return BufferHandle{}, fmt.Errorf("register external buffer %q: %w", name, ErrNilResource)
	}
	return b.g.registerExternalBuffer(buf, name), nil
}

// RegisterSurfaceTexture imports one presentation surface image by
// index. The caller acquires the index and presents afterwards; the
// graph only records against it. The image starts in the Undefined
// layout, matching a freshly acquired swapchain image.
func (b *Builder) RegisterSurfaceTexture(surface Surface, imageIndex uint32, name string) (TextureHandle, error) {
	if err := b.checkBuilding("register surface texture"); err != nil {
		return TextureHandle{}, err
	}
	if surface == nil {
		return TextureHandle{}, fmt.Errorf("register surface texture %q: %w", name, ErrNilResource)
	}
	return b.g.registerSurfaceTexture(surface, imageIndex, name), nil
}

// AddPass declares a pass with the simple callback shape. Declarations
// chain on the returned pass. After Compile the returned pass must not
// be mutated; late declarations surface as lifecycle errors on the
// next builder call.
func (b *Builder) AddPass(name string, fn PassFunc) *Pass {
	if err := b.checkBuilding("add pass"); err != nil {
		p := &Pass{name: name}
		return p.fail(err)
	}
	return b.g.addPass(name, fn, nil)
}

// AddPassEx declares a pass whose callback also receives the resource
// accessor.
func (b *Builder) AddPassEx(name string, fn PassFuncEx) *Pass {
	if err := b.checkBuilding("add pass"); err != nil {
		p := &Pass{name: name}
		return p.fail(err)
	}
	return b.g.addPass(name, nil, fn)
}

// Compile freezes the declarations and derives the execution plan:
// culled pass order, resource lifetimes, and per-pass barriers. A
// graph with no passes compiles successfully.
func (b *Builder) Compile() error {
	switch b.state {
	case stateCompiled:
		return ErrCompiled
	case stateExecuted:
		return ErrExecuted
	}
	if err := b.g.compile(); err != nil {
		return err
	}
	b.state = stateCompiled
	return nil
}

// Execute allocates physical resources, records the frame's single
// command scope and submits it with the given synchronization. Compile
// runs first automatically if it has not yet. sync may be nil for a
// submission with no primitives attached. Execute runs at most once.
func (b *Builder) Execute(sync *SyncInfo) error {
	switch b.state {
	case stateBuilding:
		if err := b.Compile(); err != nil {
			return err
		}
	case stateExecuted:
		return ErrExecuted
	}
	if sync == nil {
		sync = &SyncInfo{}
	}
	err := b.g.execute(sync)
	b.state = stateExecuted
	return err
}

// Finish is the drop guard: when the builder was never executed it
// performs a best-effort Execute with empty sync so that declared work
// is not silently lost, logging failures instead of returning them.
// Finish is idempotent and safe to defer right after NewBuilder.
func (b *Builder) Finish() {
	if b.state == stateExecuted {
		return
	}
	Logger().Warn("builder finished without explicit Execute, running fallback",
		"graph", b.g.debugName)
	if err := b.Execute(&SyncInfo{}); err != nil {
		Logger().Warn("fallback execute failed",
			"graph", b.g.debugName, "err", err)
	}
}

// PassCount returns the number of declared passes.
func (b *Builder) PassCount() int { return len(b.g.passes) }

// ActivePassCount returns the number of passes that survived culling.
// It is only meaningful once the graph is compiled.
func (b *Builder) ActivePassCount() (int, error) {
	if b.state == stateBuilding {
		return 0, ErrNotCompiled
	}
	n := 0
	for i := range b.g.compiled {
		if b.g.compiled[i].active {
			n++
		}
	}
	return n, nil
}

// BarrierCount returns the total number of barriers synthesized across
// the active passes.
func (b *Builder) BarrierCount() (int, error) {
	if b.state == stateBuilding {
		return 0, ErrNotCompiled
	}
	n := 0
	for i := range b.g.compiled {
		if b.g.compiled[i].active {
			n += len(b.g.compiled[i].barriers)
		}
	}
	return n, nil
}

// PassBarriers returns a copy of the barriers synthesized for the
// pass at the given declaration index.
func (b *Builder) PassBarriers(index int) ([]Barrier, error) {
	if b.state == stateBuilding {
		return nil, ErrNotCompiled
	}
	if index < 0 || index >= len(b.g.compiled) {
		return nil, fmt.Errorf("pass index %d out of range: %w", index, ErrInvalidHandle)
	}
	out := make([]Barrier, len(b.g.compiled[index].barriers))
	copy(out, b.g.compiled[index].barriers)
	return out, nil
}

// PassActive reports whether the pass at the given declaration index
// survived culling.
func (b *Builder) PassActive(index int) (bool, error) {
	if b.state == stateBuilding {
		return false, ErrNotCompiled
	}
	if index < 0 || index >= len(b.g.compiled) {
		return false, fmt.Errorf("pass index %d out of range: %w", index, ErrInvalidHandle)
	}
	return b.g.compiled[index].active, nil
}

// TextureLifetime returns the compiled lifetime interval of a texture.
func (b *Builder) TextureLifetime(h TextureHandle) (Lifetime, error) {
	if b.state == stateBuilding {
		return Lifetime{}, ErrNotCompiled
	}
	t, ok := b.g.textures[h.id]
	if !ok {
		return Lifetime{}, ErrInvalidHandle
	}
	return t.lifetime, nil
}

// BufferLifetime returns the compiled lifetime interval of a buffer.
func (b *Builder) BufferLifetime(h BufferHandle) (Lifetime, error) {
	if b.state == stateBuilding {
		return Lifetime{}, ErrNotCompiled
	}
	bb, ok := b.g.buffers[h.id]
	if !ok {
		return Lifetime{}, ErrInvalidHandle
	}
	return bb.lifetime, nil
}
