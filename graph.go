package framegraph

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// compiledPass is a pass after compilation: its position in the
// declaration order, whether culling kept it, and the barriers to emit
// immediately before it.
type compiledPass struct {
	pass     *Pass
	index    uint32
	active   bool
	barriers []Barrier
}

// graph is the engine behind Builder: resource registries, the pass
// list, the compiler and the executor. Builder owns lifecycle
// enforcement; graph assumes calls arrive in a legal order.
type graph struct {
	alloc Allocator
	rec   CommandRecorder
	queue Queue
	pools *PoolSet

	debugName string

	handles  handleAllocator
	textures map[handleID]*textureResource
	buffers  map[handleID]*bufferResource

	// textureOrder and bufferOrder keep declaration order, since map
	// iteration would make allocation and aliasing nondeterministic.
	textureOrder []handleID
	bufferOrder  []handleID

	passes   []*Pass
	compiled []compiledPass
	deps     [][]int

	samplers map[SamplerKind]vk.Sampler

	// Physical objects acquired for this execution, returned to the
	// pools after submit. Aliased resources share one entry.
	frameImages  []Image
	frameBuffers []Buffer
}

func newGraph(cfg Config) *graph {
	return &graph{
		alloc:    cfg.Allocator,
		rec:      cfg.Recorder,
		queue:    cfg.Queue,
		pools:    cfg.Pools,
		handles:  newHandleAllocator(),
		textures: make(map[handleID]*textureResource),
		buffers:  make(map[handleID]*bufferResource),
		samplers: make(map[SamplerKind]vk.Sampler),
	}
}

// ---- declaration ----

func (g *graph) createTexture(desc TextureDesc) TextureHandle {
	id := g.handles.alloc()
	g.textures[id] = &textureResource{
		id:       id,
		desc:     desc.normalize(),
		kind:     ResourceTransient,
		state:    ResourceDeclared,
		lifetime: newLifetime(),
		layout:   vk.ImageLayoutUndefined,
	}
	g.textureOrder = append(g.textureOrder, id)
	return TextureHandle{id: id}
}

func (g *graph) createBuffer(desc BufferDesc) BufferHandle {
	id := g.handles.alloc()
	g.buffers[id] = &bufferResource{
		id:       id,
		desc:     desc,
		kind:     ResourceTransient,
		state:    ResourceDeclared,
		lifetime: newLifetime(),
	}
	g.bufferOrder = append(g.bufferOrder, id)
	return BufferHandle{id: id}
}

func (g *graph) registerExternalTexture(img Image, name string, layout vk.ImageLayout) TextureHandle {
	id := g.handles.alloc()
	desc := TextureDesc{
		Name:        name,
		Format:      img.Format(),
		Extent:      img.Extent(),
		Usage:       img.Usage(),
		MipLevels:   img.MipLevels(),
		ArrayLayers: img.ArrayLayers(),
		Samples:     img.Samples(),
		Tiling:      img.Tiling(),
	}
	g.textures[id] = &textureResource{
		id:       id,
		desc:     desc,
		kind:     ResourceExternal,
		state:    ResourceAllocated,
		lifetime: newLifetime(),
		physical: img,
		layout:   layout,
	}
	g.textureOrder = append(g.textureOrder, id)
	return TextureHandle{id: id}
}

func (g *graph) registerExternalBuffer(buf Buffer, name string) BufferHandle {
	id := g.handles.alloc()
	g.buffers[id] = &bufferResource{
		id:       id,
		desc:     BufferDesc{Name: name, Size: buf.Size(), Usage: buf.Usage()},
		kind:     ResourceExternal,
		state:    ResourceAllocated,
		lifetime: newLifetime(),
		physical: buf,
	}
	g.bufferOrder = append(g.bufferOrder, id)
	return BufferHandle{id: id}
}

func (g *graph) registerSurfaceTexture(surface Surface, imageIndex uint32, name string) TextureHandle {
	id := g.handles.alloc()
	ext := surface.Extent()
	g.textures[id] = &textureResource{
		id: id,
		desc: TextureDesc{
			Name:        name,
			Format:      surface.Format(),
			Extent:      vk.Extent3D{Width: ext.Width, Height: ext.Height, Depth: 1},
			Usage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
			MipLevels:   1,
			ArrayLayers: 1,
			Samples:     vk.SampleCount1Bit,
			Tiling:      vk.ImageTilingOptimal,
		},
		kind:         ResourceExternal,
		state:        ResourceAllocated,
		lifetime:     newLifetime(),
		layout:       vk.ImageLayoutUndefined,
		surface:      surface,
		surfaceIndex: imageIndex,
	}
	g.textureOrder = append(g.textureOrder, id)
	return TextureHandle{id: id}
}

func (g *graph) addPass(name string, fn PassFunc, fnEx PassFuncEx) *Pass {
	p := &Pass{name: name, fn: fn, fnEx: fnEx}
	g.passes = append(g.passes, p)
	return p
}

// ---- compilation ----

func (g *graph) compile() error {
	if err := g.validateDeclarations(); err != nil {
		return err
	}
	g.buildDependencies()
	g.cull()
	g.analyzeLifetimes()
	g.validateReads()
	g.synthesizeBarriers()

	active := 0
	barriers := 0
	for i := range g.compiled {
		if g.compiled[i].active {
			active++
			barriers += len(g.compiled[i].barriers)
		}
	}
	Logger().Debug("graph compiled",
		"graph", g.debugName,
		"passes", len(g.passes),
		"active", active,
		"barriers", barriers)
	return nil
}

// validateDeclarations surfaces sticky pass errors and dangling
// handles. Dangling handles are fatal: a handle from another builder
// may collide with an unrelated local id, so recording with it would
// touch the wrong resource.
func (g *graph) validateDeclarations() error {
	for _, p := range g.passes {
		if p.err != nil {
			return p.err
		}
		var dangling error
		check := func(access TextureAccess) {
			if dangling == nil {
				if _, ok := g.textures[access.Handle.id]; !ok {
					dangling = fmt.Errorf("pass %q references unknown texture: %w", p.name, ErrDanglingHandle)
				}
			}
		}
		for _, a := range p.textureReads {
			check(a)
		}
		for _, a := range p.textureWrites {
			check(a)
		}
		for _, c := range p.colors {
			check(TextureAccess{Handle: c.Handle})
		}
		if p.depth != nil {
			check(TextureAccess{Handle: p.depth.Handle})
		}
		for _, a := range append(append([]BufferAccess{}, p.bufferReads...), p.bufferWrites...) {
			if dangling == nil {
				if _, ok := g.buffers[a.Handle.id]; !ok {
					dangling = fmt.Errorf("pass %q references unknown buffer: %w", p.name, ErrDanglingHandle)
				}
			}
		}
		if dangling != nil {
			return dangling
		}
	}
	return nil
}

// buildDependencies records, for every pass, the earlier passes whose
// written resources it reads. Only reads create reachability: a pass
// whose output is merely overwritten, never read, contributes nothing
// and must not keep its writer alive through the cull.
func (g *graph) buildDependencies() {
	g.deps = make([][]int, len(g.passes))
	textureWriters := make(map[handleID][]int)
	bufferWriters := make(map[handleID][]int)

	for i, p := range g.passes {
		seen := make(map[int]bool)
		addWriters := func(writers []int) {
			for _, w := range writers {
				if w != i && !seen[w] {
					seen[w] = true
					g.deps[i] = append(g.deps[i], w)
				}
			}
		}
		for _, r := range p.textureReads {
			addWriters(textureWriters[r.Handle.id])
		}
		for _, r := range p.bufferReads {
			addWriters(bufferWriters[r.Handle.id])
		}
		p.forEachAccess(func(id handleID, write bool) {
			if !write {
				return
			}
			if _, ok := g.textures[id]; ok {
				textureWriters[id] = append(textureWriters[id], i)
			} else {
				bufferWriters[id] = append(bufferWriters[id], i)
			}
		})
	}
}

// cull deactivates passes that cannot influence any external resource.
// Roots are the passes writing externals (imported resources and
// surface images); everything reachable backwards through the
// dependency edges stays.
func (g *graph) cull() {
	g.compiled = make([]compiledPass, len(g.passes))
	for i, p := range g.passes {
		g.compiled[i] = compiledPass{pass: p, index: uint32(i)}
	}

	var worklist []int
	for i, p := range g.passes {
		root := false
		p.forEachAccess(func(id handleID, write bool) {
			if !write || root {
				return
			}
			if t, ok := g.textures[id]; ok && t.kind == ResourceExternal {
				root = true
			} else if b, ok := g.buffers[id]; ok && b.kind == ResourceExternal {
				root = true
			}
		})
		if root {
			g.compiled[i].active = true
			worklist = append(worklist, i)
		}
	}

	for len(worklist) > 0 {
		i := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		for _, dep := range g.deps[i] {
			if !g.compiled[dep].active {
				g.compiled[dep].active = true
				worklist = append(worklist, dep)
			}
		}
	}

	for i := range g.compiled {
		if !g.compiled[i].active {
			Logger().Debug("pass culled", "graph", g.debugName, "pass", g.passes[i].name)
		}
	}
}

// analyzeLifetimes widens each resource's lifetime interval over the
// indices of the active passes touching it.
func (g *graph) analyzeLifetimes() {
	for i := range g.compiled {
		if !g.compiled[i].active {
			continue
		}
		idx := g.compiled[i].index
		g.compiled[i].pass.forEachAccess(func(id handleID, _ bool) {
			if t, ok := g.textures[id]; ok {
				t.lifetime.Update(idx)
			} else if b, ok := g.buffers[id]; ok {
				b.lifetime.Update(idx)
			}
		})
	}
}

// validateReads warns about reads of transient resources no earlier
// active pass wrote. The contents are undefined but recording is still
// legal, so this is not fatal.
func (g *graph) validateReads() {
	writtenT := make(map[handleID]bool)
	writtenB := make(map[handleID]bool)
	for i := range g.compiled {
		if !g.compiled[i].active {
			continue
		}
		p := g.compiled[i].pass
		for _, r := range p.textureReads {
			t := g.textures[r.Handle.id]
			if t.isTransient() && !writtenT[r.Handle.id] {
				Logger().Warn("pass reads transient texture before any write",
					"graph", g.debugName, "pass", p.name, "texture", t.desc.Name)
			}
		}
		for _, r := range p.bufferReads {
			b := g.buffers[r.Handle.id]
			if b.isTransient() && !writtenB[r.Handle.id] {
				Logger().Warn("pass reads transient buffer before any write",
					"graph", g.debugName, "pass", p.name, "buffer", b.desc.Name)
			}
		}
		p.forEachAccess(func(id handleID, write bool) {
			if !write {
				return
			}
			if _, ok := g.textures[id]; ok {
				writtenT[id] = true
			} else {
				writtenB[id] = true
			}
		})
	}
}

// synthesizeBarriers derives the conservative hazard barriers for every
// active pass. The walk is in pass order, and within a pass in the
// fixed order texture reads, color attachments, depth attachment,
// storage writes, buffer reads, buffer writes, so identical
// declarations always produce identical barrier lists.
func (g *graph) synthesizeBarriers() {
	type key = handleID
	texState := make(map[key]accessState)
	texSeen := make(map[key]bool)
	bufState := make(map[key]accessState)
	bufSeen := make(map[key]bool)
	layouts := make(map[key]vk.ImageLayout)
	for id, t := range g.textures {
		layouts[id] = t.layout
	}

	for ci := range g.compiled {
		cp := &g.compiled[ci]
		if !cp.active {
			continue
		}
		p := cp.pass

		textureRead := func(a TextureAccess) {
			id := a.Handle.id
			st := texState[id]
			cur := layouts[id]
			if texSeen[id] && st.wasWrite {
				cp.barriers = append(cp.barriers, Barrier{
					Kind:      BarrierImage,
					Texture:   a.Handle,
					SrcStages: st.stages,
					DstStages: a.Stages,
					SrcAccess: st.access,
					DstAccess: a.Access,
					OldLayout: cur,
					NewLayout: a.Layout,
				})
				layouts[id] = a.Layout
			} else if cur != a.Layout {
				// No pending write, but the image is in the wrong
				// layout; transition without waiting on anything.
				cp.barriers = append(cp.barriers, Barrier{
					Kind:      BarrierImage,
					Texture:   a.Handle,
					SrcStages: vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
					DstStages: a.Stages,
					SrcAccess: 0,
					DstAccess: a.Access,
					OldLayout: cur,
					NewLayout: a.Layout,
				})
				layouts[id] = a.Layout
			}
			texState[id] = accessState{stages: a.Stages, access: a.Access, wasWrite: false}
			texSeen[id] = true
		}

		textureWrite := func(h TextureHandle, stages vk.PipelineStageFlags, access vk.AccessFlags, layout vk.ImageLayout) {
			id := h.id
			st := texState[id]
			cur := layouts[id]
			if texSeen[id] || cur != layout {
				srcStages := st.stages
				if !texSeen[id] {
					srcStages = vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)
				}
				cp.barriers = append(cp.barriers, Barrier{
					Kind:      BarrierImage,
					Texture:   h,
					SrcStages: srcStages,
					DstStages: stages,
					SrcAccess: st.access,
					DstAccess: access,
					OldLayout: cur,
					NewLayout: layout,
				})
				layouts[id] = layout
			}
			texState[id] = accessState{stages: stages, access: access, wasWrite: true}
			texSeen[id] = true
		}

		bufferRead := func(a BufferAccess) {
			id := a.Handle.id
			st := bufState[id]
			if bufSeen[id] && st.wasWrite {
				cp.barriers = append(cp.barriers, Barrier{
					Kind:      BarrierBuffer,
					Buffer:    a.Handle,
					SrcStages: st.stages,
					DstStages: a.Stages,
					SrcAccess: st.access,
					DstAccess: a.Access,
				})
			}
			bufState[id] = accessState{stages: a.Stages, access: a.Access, wasWrite: false}
			bufSeen[id] = true
		}

		bufferWrite := func(a BufferAccess) {
			id := a.Handle.id
			st := bufState[id]
			if bufSeen[id] {
				cp.barriers = append(cp.barriers, Barrier{
					Kind:      BarrierBuffer,
					Buffer:    a.Handle,
					SrcStages: st.stages,
					DstStages: a.Stages,
					SrcAccess: st.access,
					DstAccess: a.Access,
				})
			}
			bufState[id] = accessState{stages: a.Stages, access: a.Access, wasWrite: true}
			bufSeen[id] = true
		}

		for _, a := range p.textureReads {
			textureRead(a)
		}
		for _, c := range p.colors {
			access := vk.AccessFlags(vk.AccessColorAttachmentWriteBit)
			if c.LoadOp == vk.AttachmentLoadOpLoad {
				access |= vk.AccessFlags(vk.AccessColorAttachmentReadBit)
			}
			textureWrite(c.Handle,
				vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
				access, vk.ImageLayoutColorAttachmentOptimal)
		}
		if p.depth != nil {
			access := vk.AccessFlags(vk.AccessDepthStencilAttachmentWriteBit)
			if p.depth.LoadOp == vk.AttachmentLoadOpLoad {
				access |= vk.AccessFlags(vk.AccessDepthStencilAttachmentReadBit)
			}
			textureWrite(p.depth.Handle,
				vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit|vk.PipelineStageLateFragmentTestsBit),
				access, vk.ImageLayoutDepthStencilAttachmentOptimal)
		}
		for _, a := range p.textureWrites {
			textureWrite(a.Handle, a.Stages, a.Access, vk.ImageLayoutGeneral)
		}
		for _, a := range p.bufferReads {
			bufferRead(a)
		}
		for _, a := range p.bufferWrites {
			bufferWrite(a)
		}
	}
}

// ---- execution ----

func (g *graph) execute(sync *SyncInfo) error {
	if g.rec == nil {
		return ErrNoRecorder
	}
	if err := g.allocateResources(); err != nil {
		return err
	}
	if err := g.rec.Begin(); err != nil {
		return fmt.Errorf("framegraph: begin recording: %w", err)
	}

	for ci := range g.compiled {
		cp := &g.compiled[ci]
		if !cp.active {
			continue
		}
		g.markResources(cp.index, ResourceActive, true)
		g.emitBarriers(cp)
		if err := g.recordPass(cp); err != nil {
			Logger().Warn("pass callback failed",
				"graph", g.debugName, "pass", cp.pass.name, "err", err)
		}
		g.markResources(cp.index, ResourceFinished, false)
	}

	if err := g.rec.End(); err != nil {
		return fmt.Errorf("framegraph: end recording: %w", err)
	}
	if g.queue != nil {
		if err := g.queue.Submit(g.rec, sync); err != nil {
			return fmt.Errorf("framegraph: submit: %w", err)
		}
	}
	g.recycle()
	return nil
}

// allocateResources binds a physical object to every used transient,
// preferring in-frame aliasing, then the pools, then the allocator.
// Surface textures resolve their image and view from the surface.
func (g *graph) allocateResources() error {
	type imageSlot struct {
		img       Image
		key       texturePoolKey
		lifetimes []Lifetime
	}
	var slots []imageSlot

	for _, id := range g.textureOrder {
		t := g.textures[id]
		if t.isSurface() {
			if t.lifetime.Used {
				t.surfaceImage = t.surface.Image(t.surfaceIndex)
				t.surfaceView = t.surface.View(t.surfaceIndex)
			}
			continue
		}
		if !t.isTransient() || !t.lifetime.Used {
			continue
		}
		key := textureKey(t.desc)

		aliased := false
		for si := range slots {
			if slots[si].key != key {
				continue
			}
			overlap := false
			for _, lt := range slots[si].lifetimes {
				if lt.Overlaps(t.lifetime) {
					overlap = true
					break
				}
			}
			if overlap {
				continue
			}
			t.physical = slots[si].img
			slots[si].lifetimes = append(slots[si].lifetimes, t.lifetime)
			aliased = true
			Logger().Debug("aliased transient texture",
				"graph", g.debugName, "texture", t.desc.Name)
			break
		}
		if !aliased {
			var img Image
			if g.pools != nil && g.pools.Textures != nil {
				img = g.pools.Textures.Acquire(t.desc)
			}
			if img == nil {
				created, err := g.alloc.CreateImage(t.desc)
				if err != nil {
					return fmt.Errorf("framegraph: allocate texture %q: %w", t.desc.Name, err)
				}
				img = created
			} else {
				Logger().Debug("reused pooled texture",
					"graph", g.debugName, "texture", t.desc.Name)
			}
			t.physical = img
			slots = append(slots, imageSlot{img: img, key: key, lifetimes: []Lifetime{t.lifetime}})
			g.frameImages = append(g.frameImages, img)
		}
		t.state = ResourceAllocated
	}

	type bufferSlot struct {
		buf       Buffer
		desc      BufferDesc
		lifetimes []Lifetime
	}
	var bslots []bufferSlot

	for _, id := range g.bufferOrder {
		b := g.buffers[id]
		if !b.isTransient() || !b.lifetime.Used {
			continue
		}
		aliased := false
		for si := range bslots {
			if bslots[si].desc.Size != b.desc.Size || bslots[si].desc.Usage != b.desc.Usage {
				continue
			}
			overlap := false
			for _, lt := range bslots[si].lifetimes {
				if lt.Overlaps(b.lifetime) {
					overlap = true
					break
				}
			}
			if overlap {
				continue
			}
			b.physical = bslots[si].buf
			bslots[si].lifetimes = append(bslots[si].lifetimes, b.lifetime)
			aliased = true
			break
		}
		if !aliased {
			var buf Buffer
			if g.pools != nil && g.pools.Buffers != nil {
				buf = g.pools.Buffers.Acquire(b.desc)
			}
			if buf == nil {
				created, err := g.alloc.CreateBuffer(b.desc)
				if err != nil {
					return fmt.Errorf("framegraph: allocate buffer %q: %w", b.desc.Name, err)
				}
				buf = created
			}
			b.physical = buf
			bslots = append(bslots, bufferSlot{buf: buf, desc: b.desc, lifetimes: []Lifetime{b.lifetime}})
			g.frameBuffers = append(g.frameBuffers, buf)
		}
		b.state = ResourceAllocated
	}
	return nil
}

// markResources flips the state of resources whose lifetime starts
// (atStart) or ends at the given pass index.
func (g *graph) markResources(index uint32, state ResourceState, atStart bool) {
	for _, t := range g.textures {
		if !t.lifetime.Used {
			continue
		}
		if atStart && t.lifetime.First == index {
			t.state = state
		} else if !atStart && t.lifetime.Last == index {
			t.state = state
		}
	}
	for _, b := range g.buffers {
		if !b.lifetime.Used {
			continue
		}
		if atStart && b.lifetime.First == index {
			b.state = state
		} else if !atStart && b.lifetime.Last == index {
			b.state = state
		}
	}
}

// emitBarriers applies the pass's barrier list as one batched pipeline
// barrier, stage masks OR-ed across the hazards.
func (g *graph) emitBarriers(cp *compiledPass) {
	var srcStages, dstStages vk.PipelineStageFlags
	var images []vk.ImageMemoryBarrier
	var buffers []vk.BufferMemoryBarrier

	for _, b := range cp.barriers {
		switch b.Kind {
		case BarrierImage:
			t := g.textures[b.Texture.id]
			if !t.isSurface() && t.physical == nil {
				continue
			}
			images = append(images, b.imageMemoryBarrier(g.physicalVkImage(t), t.desc.Format))
			t.layout = b.NewLayout
		case BarrierBuffer:
			buf := g.buffers[b.Buffer.id]
			if buf.physical == nil {
				continue
			}
			buffers = append(buffers, b.bufferMemoryBarrier(buf.physical.VkBuffer()))
		}
		srcStages |= b.SrcStages
		dstStages |= b.DstStages
	}
	if len(images) == 0 && len(buffers) == 0 {
		return
	}
	g.rec.PipelineBarrier(srcStages, dstStages, images, buffers)
}

func (g *graph) physicalVkImage(t *textureResource) vk.Image {
	if t.isSurface() {
		return t.surfaceImage
	}
	if t.physical == nil {
		return vk.NullImage
	}
	return t.physical.VkImage()
}

func (g *graph) textureView(t *textureResource) vk.ImageView {
	if t.isSurface() {
		return t.surfaceView
	}
	if t.physical == nil {
		return vk.NullImageView
	}
	return t.physical.View()
}

// recordPass wraps graphics passes in their rendering scope and invokes
// the callback. Callback errors propagate to the caller for logging;
// the frame continues regardless.
func (g *graph) recordPass(cp *compiledPass) error {
	p := cp.pass
	if p.IsGraphics() {
		info, err := g.renderingInfo(p)
		if err != nil {
			return err
		}
		if err := g.rec.BeginRendering(info); err != nil {
			return fmt.Errorf("begin rendering: %w", err)
		}
		defer g.rec.EndRendering()
	}
	return g.invoke(p)
}

func (g *graph) invoke(p *Pass) error {
	if p.fnEx != nil {
		return p.fnEx(g.rec, &ResourceAccessor{graph: g})
	}
	if p.fn != nil {
		return p.fn(g.rec)
	}
	return nil
}

// renderingInfo assembles the rendering scope description for a
// graphics pass. The render area comes from the first color attachment,
// or from the depth attachment for depth-only passes.
func (g *graph) renderingInfo(p *Pass) (RenderingInfo, error) {
	var info RenderingInfo

	for _, c := range p.colors {
		t := g.textures[c.Handle.id]
		info.Colors = append(info.Colors, RenderingAttachment{
			View:       g.textureView(t),
			Format:     t.desc.Format,
			Samples:    t.desc.Samples,
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
			LoadOp:     c.LoadOp,
			StoreOp:    c.StoreOp,
			ClearColor: c.ClearColor,
		})
	}
	if p.depth != nil {
		t := g.textures[p.depth.Handle.id]
		info.Depth = &RenderingAttachment{
			View:           g.textureView(t),
			Format:         t.desc.Format,
			Samples:        t.desc.Samples,
			Layout:         vk.ImageLayoutDepthStencilAttachmentOptimal,
			LoadOp:         p.depth.LoadOp,
			StoreOp:        p.depth.StoreOp,
			StencilLoadOp:  p.depth.StencilLoadOp,
			StencilStoreOp: p.depth.StencilStoreOp,
			ClearDepth:     p.depth.ClearDepth,
			ClearStencil:   p.depth.ClearStencil,
		}
	}

	var sized *textureResource
	if len(p.colors) > 0 {
		sized = g.textures[p.colors[0].Handle.id]
	} else if p.depth != nil {
		sized = g.textures[p.depth.Handle.id]
	}
	if sized == nil {
		return info, fmt.Errorf("framegraph: graphics pass %q has no attachments", p.name)
	}
	info.RenderArea = vk.Extent2D{
		Width:  sized.desc.Extent.Width,
		Height: sized.desc.Extent.Height,
	}
	return info, nil
}

// recycle returns the frame's distinct physical objects to the pools.
// Callers synchronize reuse across frames with their fences, so the
// pool hands an object back no earlier than the next frame's build.
func (g *graph) recycle() {
	if g.pools == nil {
		g.frameImages = nil
		g.frameBuffers = nil
		return
	}
	if g.pools.Textures != nil {
		for _, img := range g.frameImages {
			g.pools.Textures.Release(img)
		}
	}
	if g.pools.Buffers != nil {
		for _, buf := range g.frameBuffers {
			g.pools.Buffers.Release(buf)
		}
	}
	g.frameImages = nil
	g.frameBuffers = nil
}

// sampler returns the cached sampler of the given kind, creating it
// through the allocator on first use.
func (g *graph) sampler(kind SamplerKind) vk.Sampler {
	if s, ok := g.samplers[kind]; ok {
		return s
	}
	if g.alloc == nil {
		return vk.NullSampler
	}
	s, err := g.alloc.CreateSampler(kind)
	if err != nil {
		Logger().Warn("sampler creation failed",
			"graph", g.debugName, "kind", kind, "err", err)
		return vk.NullSampler
	}
	g.samplers[kind] = s
	return s
}
