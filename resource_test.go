package framegraph

import (
	"testing"

	vk "github.com/vulkan-go/vulkan"
)

func TestLifetimeUpdate(t *testing.T) {
	lt := newLifetime()
	if lt.Used {
		t.Fatal("fresh lifetime marked used")
	}
	lt.Update(3)
	if lt.First != 3 || lt.Last != 3 || !lt.Used {
		t.Errorf("after Update(3): [%d,%d] used=%v, want [3,3] used=true", lt.First, lt.Last, lt.Used)
	}
	lt.Update(1)
	lt.Update(5)
	if lt.First != 1 || lt.Last != 5 {
		t.Errorf("interval = [%d,%d], want [1,5]", lt.First, lt.Last)
	}
	if lt.First > lt.Last {
		t.Errorf("invalid interval [%d,%d]", lt.First, lt.Last)
	}
}

func TestLifetimeOverlaps(t *testing.T) {
	mk := func(first, last uint32) Lifetime {
		lt := newLifetime()
		lt.Update(first)
		lt.Update(last)
		return lt
	}
	tests := []struct {
		name string
		a, b Lifetime
		want bool
	}{
		{"disjoint", mk(0, 1), mk(2, 3), false},
		{"touching", mk(0, 2), mk(2, 3), true},
		{"nested", mk(0, 5), mk(2, 3), true},
		{"identical", mk(1, 1), mk(1, 1), true},
		{"unused", mk(0, 3), newLifetime(), false},
	}
	for _, tt := range tests {
		if got := tt.a.Overlaps(tt.b); got != tt.want {
			t.Errorf("%s: Overlaps = %v, want %v", tt.name, got, tt.want)
		}
		if got := tt.b.Overlaps(tt.a); got != tt.want {
			t.Errorf("%s (swapped): Overlaps = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestFormatAspect(t *testing.T) {
	tests := []struct {
		format vk.Format
		want   vk.ImageAspectFlags
	}{
		{vk.FormatR8g8b8a8Unorm, vk.ImageAspectFlags(vk.ImageAspectColorBit)},
		{vk.FormatB8g8r8a8Unorm, vk.ImageAspectFlags(vk.ImageAspectColorBit)},
		{vk.FormatD16Unorm, vk.ImageAspectFlags(vk.ImageAspectDepthBit)},
		{vk.FormatD32Sfloat, vk.ImageAspectFlags(vk.ImageAspectDepthBit)},
		{vk.FormatD24UnormS8Uint, vk.ImageAspectFlags(vk.ImageAspectDepthBit | vk.ImageAspectStencilBit)},
		{vk.FormatD32SfloatS8Uint, vk.ImageAspectFlags(vk.ImageAspectDepthBit | vk.ImageAspectStencilBit)},
	}
	for _, tt := range tests {
		if got := formatAspect(tt.format); got != tt.want {
			t.Errorf("formatAspect(%v) = %v, want %v", tt.format, got, tt.want)
		}
	}
}

func TestInferReadLayout(t *testing.T) {
	tests := []struct {
		access vk.AccessFlags
		want   vk.ImageLayout
	}{
		{vk.AccessFlags(vk.AccessShaderReadBit), vk.ImageLayoutShaderReadOnlyOptimal},
		{vk.AccessFlags(vk.AccessInputAttachmentReadBit), vk.ImageLayoutShaderReadOnlyOptimal},
		{vk.AccessFlags(vk.AccessShaderReadBit | vk.AccessShaderWriteBit), vk.ImageLayoutShaderReadOnlyOptimal},
		{vk.AccessFlags(vk.AccessTransferReadBit), vk.ImageLayoutGeneral},
		{0, vk.ImageLayoutGeneral},
	}
	for _, tt := range tests {
		if got := inferReadLayout(tt.access); got != tt.want {
			t.Errorf("inferReadLayout(%v) = %v, want %v", tt.access, got, tt.want)
		}
	}
}

func TestPassClassification(t *testing.T) {
	cfg, _, _, _ := testConfig()
	b := NewBuilder(cfg)
	tex, _ := b.CreateColorBuffer("t", 8, 8)
	depth, _ := b.CreateDepthBuffer("d", 8, 8)
	buf, _ := b.CreateBuffer(NewBufferDesc("b", 64, vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit)))

	graphics := b.AddPass("graphics", nil).
		WriteColorAttachment(tex, vk.AttachmentLoadOpClear, vk.AttachmentStoreOpStore, black)
	if !graphics.IsGraphics() || graphics.IsCompute() {
		t.Errorf("color pass: IsGraphics=%v IsCompute=%v, want true false",
			graphics.IsGraphics(), graphics.IsCompute())
	}

	depthOnly := b.AddPass("depth", nil).
		WriteDepthAttachment(depth, vk.AttachmentLoadOpClear, vk.AttachmentStoreOpStore, 1)
	if !depthOnly.IsGraphics() {
		t.Error("depth-only pass not classified as graphics")
	}

	compute := b.AddPass("compute", nil).
		WriteBuffer(buf, computeStage, shaderWrite)
	if compute.IsGraphics() || !compute.IsCompute() {
		t.Errorf("storage pass: IsGraphics=%v IsCompute=%v, want false true",
			compute.IsGraphics(), compute.IsCompute())
	}

	readOnly := b.AddPass("readonly", nil).
		ReadBuffer(buf, computeStage, shaderRead)
	if readOnly.IsGraphics() || readOnly.IsCompute() {
		t.Error("read-only pass classified as graphics or compute")
	}
}

func TestDeclarationStickyErrors(t *testing.T) {
	cfg, _, _, _ := testConfig()
	b := NewBuilder(cfg)
	tex, _ := b.CreateColorBuffer("t", 8, 8)
	depth, _ := b.CreateDepthBuffer("d", 8, 8)

	p := b.AddPass("p", nil).
		ReadTexture(TextureHandle{}, fragStage, shaderRead).
		WriteColorAttachment(tex, vk.AttachmentLoadOpClear, vk.AttachmentStoreOpStore, black)
	if p.Err() == nil {
		t.Fatal("invalid handle declaration left no error")
	}
	// Declarations after the first error are ignored.
	if len(p.colors) != 0 {
		t.Errorf("declarations recorded after error: %d colors", len(p.colors))
	}
	if err := b.Compile(); err == nil {
		t.Error("Compile() = nil, want declaration error surfaced")
	}

	b2 := NewBuilder(cfg)
	tex2, _ := b2.CreateColorBuffer("t", 8, 8)
	_ = tex2
	p2 := b2.AddPass("p2", nil).
		WriteDepthAttachment(depth, vk.AttachmentLoadOpClear, vk.AttachmentStoreOpStore, 1).
		WriteDepthAttachment(depth, vk.AttachmentLoadOpClear, vk.AttachmentStoreOpStore, 1)
	if p2.Err() == nil {
		t.Error("duplicate depth attachment left no error")
	}
}

func TestInvalidDescriptors(t *testing.T) {
	cfg, _, _, _ := testConfig()
	b := NewBuilder(cfg)

	if _, err := b.CreateTexture(TextureDesc{Name: "noformat", Extent: vk.Extent3D{Width: 4, Height: 4, Depth: 1}}); err == nil {
		t.Error("CreateTexture without format succeeded")
	}
	if _, err := b.CreateTexture2D("zero", vk.FormatR8g8b8a8Unorm, 0, 4, 0); err == nil {
		t.Error("CreateTexture2D with zero width succeeded")
	}
	if _, err := b.CreateBuffer(BufferDesc{Name: "empty"}); err == nil {
		t.Error("CreateBuffer with zero size succeeded")
	}
	if _, err := b.RegisterExternalTexture(nil, "nil", vk.ImageLayoutGeneral); err == nil {
		t.Error("RegisterExternalTexture(nil) succeeded")
	}
	if _, err := b.RegisterExternalBuffer(nil, "nil"); err == nil {
		t.Error("RegisterExternalBuffer(nil) succeeded")
	}
	if _, err := b.RegisterSurfaceTexture(nil, 0, "nil"); err == nil {
		t.Error("RegisterSurfaceTexture(nil) succeeded")
	}
}

func TestConvenienceDescriptors(t *testing.T) {
	cfg, _, _, _ := testConfig()
	b := NewBuilder(cfg)

	color, err := b.CreateColorBuffer("c", 32, 16)
	if err != nil {
		t.Fatalf("CreateColorBuffer() error = %v", err)
	}
	cr := b.g.textures[color.id]
	if cr.desc.Format != vk.FormatR8g8b8a8Unorm {
		t.Errorf("color format = %v, want R8g8b8a8Unorm", cr.desc.Format)
	}
	wantUsage := vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit | vk.ImageUsageSampledBit)
	if cr.desc.Usage != wantUsage {
		t.Errorf("color usage = %v, want %v", cr.desc.Usage, wantUsage)
	}

	depth, err := b.CreateDepthBuffer("d", 32, 16)
	if err != nil {
		t.Fatalf("CreateDepthBuffer() error = %v", err)
	}
	dr := b.g.textures[depth.id]
	if dr.desc.Format != vk.FormatD32Sfloat {
		t.Errorf("depth format = %v, want D32Sfloat", dr.desc.Format)
	}
	if !isDepthFormat(dr.desc.Format) {
		t.Error("depth buffer format not recognized as depth")
	}
	if dr.desc.Extent.Depth != 1 || dr.desc.MipLevels != 1 {
		t.Errorf("descriptor defaults = depth %d, mips %d, want 1, 1",
			dr.desc.Extent.Depth, dr.desc.MipLevels)
	}
}

func TestHandleValidity(t *testing.T) {
	var zeroTex TextureHandle
	var zeroBuf BufferHandle
	if zeroTex.IsValid() || zeroBuf.IsValid() {
		t.Error("zero handles report valid")
	}

	cfg, _, _, _ := testConfig()
	b := NewBuilder(cfg)
	h1, _ := b.CreateColorBuffer("a", 4, 4)
	h2, _ := b.CreateColorBuffer("b", 4, 4)
	if !h1.IsValid() || !h2.IsValid() {
		t.Error("issued handles report invalid")
	}
	if h1 == h2 {
		t.Error("distinct resources share a handle")
	}
	if h1 != (TextureHandle{id: h1.id}) {
		t.Error("handle equality is not structural")
	}
}
