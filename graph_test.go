package framegraph

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	vk "github.com/vulkan-go/vulkan"
)

var (
	fragStage    = vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit)
	computeStage = vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit)
	shaderRead   = vk.AccessFlags(vk.AccessShaderReadBit)
	shaderWrite  = vk.AccessFlags(vk.AccessShaderWriteBit)
	black        = [4]float32{0, 0, 0, 1}
)

func TestEmptyGraphRoundTrip(t *testing.T) {
	cfg, alloc, rec, queue := testConfig()
	b := NewBuilder(cfg)

	if err := b.Compile(); err != nil {
		t.Fatalf("Compile() = %v, want nil", err)
	}
	if err := b.Execute(nil); err != nil {
		t.Fatalf("Execute() = %v, want nil", err)
	}
	if alloc.imagesCreated != 0 || alloc.buffersCreated != 0 {
		t.Errorf("allocations = %d images, %d buffers, want 0, 0",
			alloc.imagesCreated, alloc.buffersCreated)
	}
	if rec.barriers != 0 {
		t.Errorf("barriers = %d, want 0", rec.barriers)
	}
	if queue.submits != 1 {
		t.Errorf("submits = %d, want 1", queue.submits)
	}
}

// Scenario A: a single pass writing a presentation texture with no
// prior access gets exactly one barrier, Undefined to
// ColorAttachmentOptimal, and the pass runs.
func TestSurfaceWriteBarrier(t *testing.T) {
	cfg, _, rec, _ := testConfig()
	b := NewBuilder(cfg)

	surface := &fakeSurface{
		format: vk.FormatB8g8r8a8Unorm,
		extent: vk.Extent2D{Width: 800, Height: 600},
	}
	target, err := b.RegisterSurfaceTexture(surface, 0, "backbuffer")
	if err != nil {
		t.Fatalf("RegisterSurfaceTexture() error = %v", err)
	}

	ran := false
	b.AddPass("present", func(rec CommandRecorder) error {
		ran = true
		return nil
	}).WriteColorAttachment(target, vk.AttachmentLoadOpClear, vk.AttachmentStoreOpStore, black)

	if err := b.Execute(nil); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !ran {
		t.Error("pass callback did not run")
	}
	if rec.barriers != 1 {
		t.Fatalf("recorded barriers = %d, want 1", rec.barriers)
	}

	barriers, err := b.PassBarriers(0)
	if err != nil {
		t.Fatalf("PassBarriers(0) error = %v", err)
	}
	if len(barriers) != 1 {
		t.Fatalf("len(barriers) = %d, want 1", len(barriers))
	}
	got := barriers[0]
	if got.OldLayout != vk.ImageLayoutUndefined {
		t.Errorf("OldLayout = %v, want Undefined", got.OldLayout)
	}
	if got.NewLayout != vk.ImageLayoutColorAttachmentOptimal {
		t.Errorf("NewLayout = %v, want ColorAttachmentOptimal", got.NewLayout)
	}
	if got.DstStages != vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit) {
		t.Errorf("DstStages = %v, want ColorAttachmentOutput", got.DstStages)
	}
}

// Scenario B: write as color attachment, then sample. The reader gets
// a write-then-read barrier whose destination access includes
// shader-read, and the texture's lifetime covers both passes.
func TestWriteThenReadBarrier(t *testing.T) {
	cfg, _, _, _ := testConfig()
	b := NewBuilder(cfg)

	surface := &fakeSurface{format: vk.FormatB8g8r8a8Unorm, extent: vk.Extent2D{Width: 64, Height: 64}}
	target, _ := b.RegisterSurfaceTexture(surface, 0, "backbuffer")
	tex, err := b.CreateColorBuffer("scene", 64, 64)
	if err != nil {
		t.Fatalf("CreateColorBuffer() error = %v", err)
	}

	b.AddPass("draw", nil).
		WriteColorAttachment(tex, vk.AttachmentLoadOpClear, vk.AttachmentStoreOpStore, black)
	b.AddPass("composite", nil).
		ReadTexture(tex, fragStage, shaderRead).
		WriteColorAttachment(target, vk.AttachmentLoadOpDontCare, vk.AttachmentStoreOpStore, black)

	if err := b.Compile(); err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	lt, err := b.TextureLifetime(tex)
	if err != nil {
		t.Fatalf("TextureLifetime() error = %v", err)
	}
	if lt.First != 0 || lt.Last != 1 || !lt.Used {
		t.Errorf("lifetime = [%d,%d] used=%v, want [0,1] used=true", lt.First, lt.Last, lt.Used)
	}

	barriers, _ := b.PassBarriers(1)
	var readBarrier *Barrier
	for i := range barriers {
		if barriers[i].Texture == tex {
			readBarrier = &barriers[i]
		}
	}
	if readBarrier == nil {
		t.Fatal("no barrier on the sampled texture before the reading pass")
	}
	if readBarrier.DstAccess&shaderRead == 0 {
		t.Errorf("DstAccess = %v, want shader-read included", readBarrier.DstAccess)
	}
	if readBarrier.SrcAccess&vk.AccessFlags(vk.AccessColorAttachmentWriteBit) == 0 {
		t.Errorf("SrcAccess = %v, want color-attachment-write included", readBarrier.SrcAccess)
	}
	if readBarrier.OldLayout != vk.ImageLayoutColorAttachmentOptimal {
		t.Errorf("OldLayout = %v, want ColorAttachmentOptimal", readBarrier.OldLayout)
	}
	if readBarrier.NewLayout != vk.ImageLayoutShaderReadOnlyOptimal {
		t.Errorf("NewLayout = %v, want ShaderReadOnlyOptimal", readBarrier.NewLayout)
	}
}

// Scenario C: a pass writing only an unobserved transient buffer is
// culled: inactive, zero barriers, callback never invoked.
func TestCullUnobservedPass(t *testing.T) {
	cfg, alloc, _, _ := testConfig()
	b := NewBuilder(cfg)

	surface := &fakeSurface{format: vk.FormatB8g8r8a8Unorm, extent: vk.Extent2D{Width: 8, Height: 8}}
	target, _ := b.RegisterSurfaceTexture(surface, 0, "backbuffer")
	scratch, _ := b.CreateBuffer(NewBufferDesc("scratch", 256,
		vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit)))

	b.AddPass("visible", nil).
		WriteColorAttachment(target, vk.AttachmentLoadOpClear, vk.AttachmentStoreOpStore, black)

	culledRan := false
	b.AddPass("dead", func(rec CommandRecorder) error {
		culledRan = true
		return nil
	}).WriteBuffer(scratch, computeStage, shaderWrite)

	if err := b.Execute(nil); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	active, err := b.PassActive(1)
	if err != nil {
		t.Fatalf("PassActive(1) error = %v", err)
	}
	if active {
		t.Error("dead pass still active after cull")
	}
	if culledRan {
		t.Error("culled pass callback ran")
	}
	barriers, _ := b.PassBarriers(1)
	if len(barriers) != 0 {
		t.Errorf("culled pass has %d barriers, want 0", len(barriers))
	}
	if alloc.buffersCreated != 0 {
		t.Errorf("buffersCreated = %d, want 0 (culled resource must not allocate)", alloc.buffersCreated)
	}

	n, err := b.ActivePassCount()
	if err != nil {
		t.Fatalf("ActivePassCount() error = %v", err)
	}
	if n != 1 {
		t.Errorf("ActivePassCount() = %d, want 1", n)
	}

	// Only the surviving pass's barriers count.
	total, err := b.BarrierCount()
	if err != nil {
		t.Fatalf("BarrierCount() error = %v", err)
	}
	if total != 1 {
		t.Errorf("BarrierCount() = %d, want 1 (surface transition only)", total)
	}
}

// A pass whose only output is overwritten, never read, contributes
// nothing observable and gets culled along with its write.
func TestCullOverwrittenWriter(t *testing.T) {
	cfg, _, _, _ := testConfig()
	b := NewBuilder(cfg)

	surface := &fakeSurface{format: vk.FormatB8g8r8a8Unorm, extent: vk.Extent2D{Width: 8, Height: 8}}
	target, _ := b.RegisterSurfaceTexture(surface, 0, "backbuffer")
	tex, _ := b.CreateColorBuffer("scratch", 8, 8)

	overwrittenRan := false
	b.AddPass("first", func(rec CommandRecorder) error {
		overwrittenRan = true
		return nil
	}).WriteColorAttachment(tex, vk.AttachmentLoadOpClear, vk.AttachmentStoreOpStore, black)
	b.AddPass("second", nil).
		WriteColorAttachment(tex, vk.AttachmentLoadOpClear, vk.AttachmentStoreOpStore, black).
		WriteColorAttachment(target, vk.AttachmentLoadOpClear, vk.AttachmentStoreOpStore, black)

	if err := b.Execute(nil); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	active, err := b.PassActive(0)
	if err != nil {
		t.Fatalf("PassActive(0) error = %v", err)
	}
	if active {
		t.Error("overwritten-only writer still active after cull")
	}
	if overwrittenRan {
		t.Error("culled pass callback ran")
	}
	secondActive, _ := b.PassActive(1)
	if !secondActive {
		t.Error("surface-writing pass culled")
	}
}

// A chain feeding the surface through an intermediate pass must keep
// the whole chain alive: culling is reachability, not direct writes.
func TestCullKeepsContributingChain(t *testing.T) {
	cfg, _, _, _ := testConfig()
	b := NewBuilder(cfg)

	surface := &fakeSurface{format: vk.FormatB8g8r8a8Unorm, extent: vk.Extent2D{Width: 8, Height: 8}}
	target, _ := b.RegisterSurfaceTexture(surface, 0, "backbuffer")
	a, _ := b.CreateColorBuffer("a", 8, 8)
	c, _ := b.CreateColorBuffer("c", 8, 8)

	b.AddPass("produce", nil).
		WriteColorAttachment(a, vk.AttachmentLoadOpClear, vk.AttachmentStoreOpStore, black)
	b.AddPass("transform", nil).
		ReadTexture(a, fragStage, shaderRead).
		WriteColorAttachment(c, vk.AttachmentLoadOpClear, vk.AttachmentStoreOpStore, black)
	b.AddPass("present", nil).
		ReadTexture(c, fragStage, shaderRead).
		WriteColorAttachment(target, vk.AttachmentLoadOpDontCare, vk.AttachmentStoreOpStore, black)

	if err := b.Compile(); err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	for i := 0; i < 3; i++ {
		active, _ := b.PassActive(i)
		if !active {
			t.Errorf("pass %d inactive, want whole chain active", i)
		}
	}
}

// Scenario E: the second Execute fails with a lifecycle error and no
// extra submission happens.
func TestDoubleExecute(t *testing.T) {
	cfg, _, _, queue := testConfig()
	b := NewBuilder(cfg)

	if err := b.Execute(nil); err != nil {
		t.Fatalf("first Execute() error = %v", err)
	}
	err := b.Execute(nil)
	if !errors.Is(err, ErrExecuted) {
		t.Fatalf("second Execute() = %v, want ErrExecuted", err)
	}
	if queue.submits != 1 {
		t.Errorf("submits = %d, want 1", queue.submits)
	}
}

func TestDeclareAfterCompile(t *testing.T) {
	cfg, _, _, _ := testConfig()
	b := NewBuilder(cfg)
	if err := b.Compile(); err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	if _, err := b.CreateColorBuffer("late", 4, 4); !errors.Is(err, ErrCompiled) {
		t.Errorf("CreateColorBuffer after compile = %v, want ErrCompiled", err)
	}
	p := b.AddPass("late", nil)
	if !errors.Is(p.Err(), ErrCompiled) {
		t.Errorf("AddPass after compile pass error = %v, want ErrCompiled", p.Err())
	}
	if err := b.Compile(); !errors.Is(err, ErrCompiled) {
		t.Errorf("second Compile() = %v, want ErrCompiled", err)
	}
}

func TestDanglingHandleFailsCompile(t *testing.T) {
	cfg, _, _, _ := testConfig()
	other := NewBuilder(cfg)
	foreignTex, _ := other.CreateColorBuffer("foreign", 4, 4)
	// Grow the foreign builder so its ids outrun ours.
	for i := 0; i < 4; i++ {
		other.CreateColorBuffer("pad", 4, 4)
	}
	foreign, _ := other.CreateColorBuffer("foreign2", 4, 4)
	_ = foreignTex

	cfg2, _, _, _ := testConfig()
	b := NewBuilder(cfg2)
	b.AddPass("p", nil).ReadTexture(foreign, fragStage, shaderRead)

	err := b.Compile()
	if !errors.Is(err, ErrDanglingHandle) {
		t.Errorf("Compile() = %v, want ErrDanglingHandle", err)
	}
}

// Barrier synthesis is deterministic: compiling identical declarations
// twice yields identical barrier sequences.
func TestBarrierDeterminism(t *testing.T) {
	build := func() *Builder {
		cfg, _, _, _ := testConfig()
		b := NewBuilder(cfg)
		surface := &fakeSurface{format: vk.FormatB8g8r8a8Unorm, extent: vk.Extent2D{Width: 32, Height: 32}}
		target, _ := b.RegisterSurfaceTexture(surface, 0, "backbuffer")
		gbuf, _ := b.CreateColorBuffer("gbuffer", 32, 32)
		depth, _ := b.CreateDepthBuffer("depth", 32, 32)
		params, _ := b.CreateBuffer(NewBufferDesc("params", 512,
			vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit)))

		b.AddPass("geometry", nil).
			WriteColorAttachment(gbuf, vk.AttachmentLoadOpClear, vk.AttachmentStoreOpStore, black).
			WriteDepthAttachment(depth, vk.AttachmentLoadOpClear, vk.AttachmentStoreOpStore, 1).
			WriteBuffer(params, computeStage, shaderWrite)
		b.AddPass("lighting", nil).
			ReadTexture(gbuf, fragStage, shaderRead).
			ReadBuffer(params, fragStage, shaderRead).
			WriteColorAttachment(target, vk.AttachmentLoadOpDontCare, vk.AttachmentStoreOpStore, black)
		if err := b.Compile(); err != nil {
			t.Fatalf("Compile() error = %v", err)
		}
		return b
	}

	first := build()
	second := build()
	for i := 0; i < first.PassCount(); i++ {
		b1, _ := first.PassBarriers(i)
		b2, _ := second.PassBarriers(i)
		if diff := cmp.Diff(b1, b2, cmp.AllowUnexported(TextureHandle{}, BufferHandle{})); diff != "" {
			t.Errorf("pass %d barriers differ (-first +second):\n%s", i, diff)
		}
	}
}

// Writes always barrier against the previous access, even a read of
// the same layout.
func TestWriteAfterReadBarrier(t *testing.T) {
	cfg, _, _, _ := testConfig()
	b := NewBuilder(cfg)

	surface := &fakeSurface{format: vk.FormatB8g8r8a8Unorm, extent: vk.Extent2D{Width: 16, Height: 16}}
	target, _ := b.RegisterSurfaceTexture(surface, 0, "backbuffer")
	tex, _ := b.CreateColorBuffer("t", 16, 16)

	b.AddPass("fill", nil).
		WriteColorAttachment(tex, vk.AttachmentLoadOpClear, vk.AttachmentStoreOpStore, black)
	b.AddPass("sample", nil).
		ReadTexture(tex, fragStage, shaderRead).
		WriteColorAttachment(target, vk.AttachmentLoadOpDontCare, vk.AttachmentStoreOpStore, black)
	b.AddPass("refill", nil).
		WriteColorAttachment(tex, vk.AttachmentLoadOpLoad, vk.AttachmentStoreOpStore, black).
		WriteColorAttachment(target, vk.AttachmentLoadOpLoad, vk.AttachmentStoreOpStore, black)

	if err := b.Compile(); err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	barriers, _ := b.PassBarriers(2)
	var found *Barrier
	for i := range barriers {
		if barriers[i].Texture == tex {
			found = &barriers[i]
		}
	}
	if found == nil {
		t.Fatal("no write-after-read barrier on refilled texture")
	}
	if found.OldLayout != vk.ImageLayoutShaderReadOnlyOptimal ||
		found.NewLayout != vk.ImageLayoutColorAttachmentOptimal {
		t.Errorf("layouts = %v -> %v, want ShaderReadOnlyOptimal -> ColorAttachmentOptimal",
			found.OldLayout, found.NewLayout)
	}
	// Load implies the attachment also reads.
	if found.DstAccess&vk.AccessFlags(vk.AccessColorAttachmentReadBit) == 0 {
		t.Errorf("DstAccess = %v, want color-attachment-read for LoadOpLoad", found.DstAccess)
	}
}

// Back-to-back reads of an already transitioned texture need no second
// barrier.
func TestReadAfterReadNoBarrier(t *testing.T) {
	cfg, _, _, _ := testConfig()
	b := NewBuilder(cfg)

	surface := &fakeSurface{format: vk.FormatB8g8r8a8Unorm, extent: vk.Extent2D{Width: 16, Height: 16}}
	target, _ := b.RegisterSurfaceTexture(surface, 0, "backbuffer")
	tex, _ := b.CreateColorBuffer("t", 16, 16)

	b.AddPass("fill", nil).
		WriteColorAttachment(tex, vk.AttachmentLoadOpClear, vk.AttachmentStoreOpStore, black)
	b.AddPass("read1", nil).
		ReadTexture(tex, fragStage, shaderRead).
		WriteColorAttachment(target, vk.AttachmentLoadOpDontCare, vk.AttachmentStoreOpStore, black)
	b.AddPass("read2", nil).
		ReadTexture(tex, fragStage, shaderRead).
		WriteColorAttachment(target, vk.AttachmentLoadOpLoad, vk.AttachmentStoreOpStore, black)

	if err := b.Compile(); err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	barriers, _ := b.PassBarriers(2)
	for _, barrier := range barriers {
		if barrier.Texture == tex {
			t.Errorf("unexpected barrier on read-after-read: %+v", barrier)
		}
	}
}

// Each pass's barriers land in one batched call with OR-ed stage
// masks, not one call per hazard.
func TestBarriersBatchedPerPass(t *testing.T) {
	cfg, _, rec, _ := testConfig()
	b := NewBuilder(cfg)

	surface := &fakeSurface{format: vk.FormatB8g8r8a8Unorm, extent: vk.Extent2D{Width: 32, Height: 32}}
	target, _ := b.RegisterSurfaceTexture(surface, 0, "backbuffer")
	gbuf, _ := b.CreateColorBuffer("gbuffer", 32, 32)
	params, _ := b.CreateBuffer(NewBufferDesc("params", 256,
		vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit)))

	b.AddPass("geometry", nil).
		WriteColorAttachment(gbuf, vk.AttachmentLoadOpClear, vk.AttachmentStoreOpStore, black).
		WriteBuffer(params, computeStage, shaderWrite)
	b.AddPass("lighting", nil).
		ReadTexture(gbuf, fragStage, shaderRead).
		ReadBuffer(params, fragStage, shaderRead).
		WriteColorAttachment(target, vk.AttachmentLoadOpDontCare, vk.AttachmentStoreOpStore, black)

	if err := b.Execute(nil); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	calls := 0
	batched := false
	for _, e := range rec.events {
		switch e {
		case "barrier(img=2,buf=1)":
			batched = true
			calls++
		case "barrier(img=1,buf=0)":
			calls++
		default:
			if len(e) > 7 && e[:8] == "barrier(" {
				t.Errorf("unexpected barrier call %q", e)
			}
		}
	}
	if !batched {
		t.Errorf("events = %v, want the lighting pass's hazards in one barrier(img=2,buf=1)", rec.events)
	}
	if calls != 2 {
		t.Errorf("barrier calls = %d, want 2 (one batch per pass)", calls)
	}

	// The batch's destination scope covers both the sampled read and
	// the attachment write.
	colorOut := vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)
	if rec.lastDstStages&fragStage == 0 || rec.lastDstStages&colorOut == 0 {
		t.Errorf("batched DstStages = %v, want fragment and color-output bits", rec.lastDstStages)
	}
}

// Pass callback failures are contained: the frame still ends and
// submits.
func TestCallbackErrorDoesNotAbort(t *testing.T) {
	cfg, _, rec, queue := testConfig()
	b := NewBuilder(cfg)

	surface := &fakeSurface{format: vk.FormatB8g8r8a8Unorm, extent: vk.Extent2D{Width: 8, Height: 8}}
	target, _ := b.RegisterSurfaceTexture(surface, 0, "backbuffer")

	secondRan := false
	b.AddPass("failing", func(rec CommandRecorder) error {
		return errors.New("boom")
	}).WriteColorAttachment(target, vk.AttachmentLoadOpClear, vk.AttachmentStoreOpStore, black)
	b.AddPass("after", func(rec CommandRecorder) error {
		secondRan = true
		return nil
	}).WriteColorAttachment(target, vk.AttachmentLoadOpLoad, vk.AttachmentStoreOpStore, black)

	if err := b.Execute(nil); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !secondRan {
		t.Error("pass after failing callback did not run")
	}
	if !rec.ended {
		t.Error("recording never ended")
	}
	if queue.submits != 1 {
		t.Errorf("submits = %d, want 1", queue.submits)
	}
}

// Graphics passes get a rendering scope sized from the first color
// attachment; compute passes get none.
func TestRenderingScopePlacement(t *testing.T) {
	cfg, _, rec, _ := testConfig()
	b := NewBuilder(cfg)

	surface := &fakeSurface{format: vk.FormatB8g8r8a8Unorm, extent: vk.Extent2D{Width: 320, Height: 200}}
	target, _ := b.RegisterSurfaceTexture(surface, 0, "backbuffer")
	storage, _ := b.CreateTexture2D("storage", vk.FormatR8g8b8a8Unorm, 64, 64,
		vk.ImageUsageFlags(vk.ImageUsageStorageBit|vk.ImageUsageSampledBit))

	b.AddPass("compute", nil).
		WriteStorageTexture(storage, computeStage, shaderWrite)
	b.AddPass("draw", nil).
		ReadTexture(storage, fragStage, shaderRead).
		WriteColorAttachment(target, vk.AttachmentLoadOpClear, vk.AttachmentStoreOpStore, black)

	if err := b.Execute(nil); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	wantScope := "beginRendering(320x200,colors=1,depth=false)"
	foundScope := false
	for _, e := range rec.events {
		if e == wantScope {
			foundScope = true
		}
	}
	if !foundScope {
		t.Errorf("events = %v, want one %q", rec.events, wantScope)
	}
	scopes := 0
	for _, e := range rec.events {
		if e == "endRendering" {
			scopes++
		}
	}
	if scopes != 1 {
		t.Errorf("rendering scopes = %d, want 1 (compute pass must not open one)", scopes)
	}
}

func TestFinishFallbackExecutes(t *testing.T) {
	cfg, _, _, queue := testConfig()
	b := NewBuilder(cfg)

	surface := &fakeSurface{format: vk.FormatB8g8r8a8Unorm, extent: vk.Extent2D{Width: 8, Height: 8}}
	target, _ := b.RegisterSurfaceTexture(surface, 0, "backbuffer")
	ran := false
	b.AddPass("draw", func(rec CommandRecorder) error {
		ran = true
		return nil
	}).WriteColorAttachment(target, vk.AttachmentLoadOpClear, vk.AttachmentStoreOpStore, black)

	b.Finish()
	if !ran {
		t.Error("Finish() did not execute the declared work")
	}
	if queue.submits != 1 {
		t.Errorf("submits = %d, want 1", queue.submits)
	}
	// Idempotent, and a no-op after Execute.
	b.Finish()
	if queue.submits != 1 {
		t.Errorf("submits after second Finish = %d, want 1", queue.submits)
	}
}
