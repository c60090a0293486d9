package vkdriver

import (
	"errors"
	"fmt"
	"sync"

	vk "github.com/vulkan-go/vulkan"

	"github.com/gogpu/framegraph"
)

var (
	// ErrNotRecording is returned when commands are recorded outside
	// Begin/End.
	ErrNotRecording = errors.New("vkdriver: recorder not recording")

	// ErrRecordingEnded is returned when Begin is called on a recorder
	// that already ended.
	ErrRecordingEnded = errors.New("vkdriver: recording already ended")

	// ErrTooManyAttachments is returned when a rendering scope declares
	// more color attachments than the recorder supports.
	ErrTooManyAttachments = errors.New("vkdriver: too many color attachments")
)

// maxColorAttachments bounds the attachment key; every Vulkan
// implementation supports at least this many.
const maxColorAttachments = 8

// recorderState tracks the recorder through its single recording.
type recorderState uint8

const (
	recorderReady recorderState = iota
	recorderRecording
	recorderEnded
)

func (s recorderState) String() string {
	switch s {
	case recorderReady:
		return "Ready"
	case recorderRecording:
		return "Recording"
	case recorderEnded:
		return "Ended"
	default:
		return "Unknown"
	}
}

// attachmentKey is one attachment's contribution to a render pass
// object's identity.
type attachmentKey struct {
	format         vk.Format
	samples        vk.SampleCountFlagBits
	loadOp         vk.AttachmentLoadOp
	storeOp        vk.AttachmentStoreOp
	stencilLoadOp  vk.AttachmentLoadOp
	stencilStoreOp vk.AttachmentStoreOp
	layout         vk.ImageLayout
}

// renderPassKey identifies a compatible render pass object.
type renderPassKey struct {
	colors     [maxColorAttachments]attachmentKey
	colorCount int
	depth      attachmentKey
	hasDepth   bool
}

// framebufferKey identifies a framebuffer over a render pass and a
// concrete attachment view set.
type framebufferKey struct {
	pass   vk.RenderPass
	views  [maxColorAttachments + 1]vk.ImageView
	width  uint32
	height uint32
}

// Recorder records one graph execution into a command buffer. It
// implements framegraph.CommandRecorder. One recorder backs one
// execution; reset the command buffer and create a new Recorder for
// the next frame. Render pass and framebuffer objects created for
// rendering scopes are cached on the recorder and released by Destroy,
// so recreating recorders over a long-lived command buffer pool should
// share one Recorder value per frame slot.
type Recorder struct {
	mu     sync.Mutex
	device vk.Device
	cmd    vk.CommandBuffer
	state  recorderState

	inRendering  bool
	renderPasses map[renderPassKey]vk.RenderPass
	framebuffers map[framebufferKey]vk.Framebuffer
}

// NewRecorder wraps an allocated command buffer. The buffer must be in
// the initial state; the device is used to create render pass and
// framebuffer objects for rendering scopes.
func NewRecorder(device vk.Device, cmd vk.CommandBuffer) *Recorder {
	return &Recorder{
		device:       device,
		cmd:          cmd,
		renderPasses: make(map[renderPassKey]vk.RenderPass),
		framebuffers: make(map[framebufferKey]vk.Framebuffer),
	}
}

func (r *Recorder) checkRecording() error {
	switch r.state {
	case recorderRecording:
		return nil
	case recorderEnded:
		return ErrRecordingEnded
	default:
		return ErrNotRecording
	}
}

// Begin opens the command buffer for a one-time submission.
func (r *Recorder) Begin() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == recorderEnded {
		return ErrRecordingEnded
	}
	if r.state == recorderRecording {
		return nil
	}

	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if err := vk.Error(vk.BeginCommandBuffer(r.cmd, &beginInfo)); err != nil {
		return fmt.Errorf("vkdriver: begin command buffer: %w", err)
	}
	r.state = recorderRecording
	return nil
}

// End closes the command buffer. End is idempotent.
func (r *Recorder) End() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == recorderEnded {
		return nil
	}
	if r.state != recorderRecording {
		return ErrNotRecording
	}
	if err := vk.Error(vk.EndCommandBuffer(r.cmd)); err != nil {
		return fmt.Errorf("vkdriver: end command buffer: %w", err)
	}
	r.state = recorderEnded
	return nil
}

// PipelineBarrier records one synchronization scope.
func (r *Recorder) PipelineBarrier(srcStages, dstStages vk.PipelineStageFlags,
	imageBarriers []vk.ImageMemoryBarrier, bufferBarriers []vk.BufferMemoryBarrier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.checkRecording() != nil {
		return
	}
	vk.CmdPipelineBarrier(r.cmd, srcStages, dstStages, 0,
		0, nil,
		uint32(len(bufferBarriers)), bufferBarriers,
		uint32(len(imageBarriers)), imageBarriers)
}

// BeginRendering opens a graphics pass scope: binds the declared
// attachments through a cached render pass and framebuffer, applies
// the load/store and clear values, and sets the full-area viewport and
// scissor so pass callbacks can draw directly.
func (r *Recorder) BeginRendering(info framegraph.RenderingInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkRecording(); err != nil {
		return err
	}
	if r.inRendering {
		return errors.New("vkdriver: rendering scope already open")
	}
	if len(info.Colors) > maxColorAttachments {
		return fmt.Errorf("vkdriver: %d color attachments: %w", len(info.Colors), ErrTooManyAttachments)
	}

	pass, err := r.renderPass(info)
	if err != nil {
		return err
	}
	fb, err := r.framebuffer(pass, info)
	if err != nil {
		return err
	}

	clears := clearValues(info)
	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  pass,
		Framebuffer: fb,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: info.RenderArea,
		},
		ClearValueCount: uint32(len(clears)),
		PClearValues:    clears,
	}
	vk.CmdBeginRenderPass(r.cmd, &beginInfo, vk.SubpassContentsInline)

	viewport := vk.Viewport{
		X:        0,
		Y:        0,
		Width:    float32(info.RenderArea.Width),
		Height:   float32(info.RenderArea.Height),
		MinDepth: 0,
		MaxDepth: 1,
	}
	vk.CmdSetViewport(r.cmd, 0, 1, []vk.Viewport{viewport})

	scissor := vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: info.RenderArea,
	}
	vk.CmdSetScissor(r.cmd, 0, 1, []vk.Rect2D{scissor})

	r.inRendering = true
	return nil
}

// EndRendering closes the current graphics pass scope.
func (r *Recorder) EndRendering() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.inRendering {
		return
	}
	vk.CmdEndRenderPass(r.cmd)
	r.inRendering = false
}

// CommandBuffer exposes the raw command buffer for pass callbacks.
func (r *Recorder) CommandBuffer() vk.CommandBuffer { return r.cmd }

// renderPass returns the cached render pass compatible with the scope,
// creating it on first use.
func (r *Recorder) renderPass(info framegraph.RenderingInfo) (vk.RenderPass, error) {
	key := renderPassKeyFor(info)
	if pass, ok := r.renderPasses[key]; ok {
		return pass, nil
	}

	attachments := attachmentDescriptions(info)
	colorRefs := make([]vk.AttachmentReference, len(info.Colors))
	for i := range colorRefs {
		colorRefs[i] = vk.AttachmentReference{
			Attachment: uint32(i),
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		}
	}
	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: uint32(len(colorRefs)),
		PColorAttachments:    colorRefs,
	}
	if info.Depth != nil {
		subpass.PDepthStencilAttachment = &vk.AttachmentReference{
			Attachment: uint32(len(colorRefs)),
			Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
		}
	}

	createInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
	}
	var pass vk.RenderPass
	if err := vk.Error(vk.CreateRenderPass(r.device, &createInfo, nil, &pass)); err != nil {
		return pass, fmt.Errorf("vkdriver: create render pass: %w", err)
	}
	r.renderPasses[key] = pass
	return pass, nil
}

// framebuffer returns the cached framebuffer over the scope's views,
// creating it on first use.
func (r *Recorder) framebuffer(pass vk.RenderPass, info framegraph.RenderingInfo) (vk.Framebuffer, error) {
	key := framebufferKeyFor(pass, info)
	if fb, ok := r.framebuffers[key]; ok {
		return fb, nil
	}

	views := make([]vk.ImageView, 0, len(info.Colors)+1)
	for _, c := range info.Colors {
		views = append(views, c.View)
	}
	if info.Depth != nil {
		views = append(views, info.Depth.View)
	}
	createInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      pass,
		AttachmentCount: uint32(len(views)),
		PAttachments:    views,
		Width:           info.RenderArea.Width,
		Height:          info.RenderArea.Height,
		Layers:          1,
	}
	var fb vk.Framebuffer
	if err := vk.Error(vk.CreateFramebuffer(r.device, &createInfo, nil, &fb)); err != nil {
		return fb, fmt.Errorf("vkdriver: create framebuffer: %w", err)
	}
	r.framebuffers[key] = fb
	return fb, nil
}

// Destroy releases the cached render pass and framebuffer objects. The
// GPU must be done with the recording.
func (r *Recorder) Destroy() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, fb := range r.framebuffers {
		vk.DestroyFramebuffer(r.device, fb, nil)
	}
	for _, pass := range r.renderPasses {
		vk.DestroyRenderPass(r.device, pass, nil)
	}
	r.framebuffers = make(map[framebufferKey]vk.Framebuffer)
	r.renderPasses = make(map[renderPassKey]vk.RenderPass)
}

func colorAttachmentKey(a framegraph.RenderingAttachment) attachmentKey {
	return attachmentKey{
		format:         a.Format,
		samples:        a.Samples,
		loadOp:         a.LoadOp,
		storeOp:        a.StoreOp,
		stencilLoadOp:  vk.AttachmentLoadOpDontCare,
		stencilStoreOp: vk.AttachmentStoreOpDontCare,
		layout:         a.Layout,
	}
}

func depthAttachmentKey(a framegraph.RenderingAttachment) attachmentKey {
	return attachmentKey{
		format:         a.Format,
		samples:        a.Samples,
		loadOp:         a.LoadOp,
		storeOp:        a.StoreOp,
		stencilLoadOp:  a.StencilLoadOp,
		stencilStoreOp: a.StencilStoreOp,
		layout:         a.Layout,
	}
}

func renderPassKeyFor(info framegraph.RenderingInfo) renderPassKey {
	var key renderPassKey
	for i, c := range info.Colors {
		key.colors[i] = colorAttachmentKey(c)
	}
	key.colorCount = len(info.Colors)
	if info.Depth != nil {
		key.depth = depthAttachmentKey(*info.Depth)
		key.hasDepth = true
	}
	return key
}

func framebufferKeyFor(pass vk.RenderPass, info framegraph.RenderingInfo) framebufferKey {
	key := framebufferKey{
		pass:   pass,
		width:  info.RenderArea.Width,
		height: info.RenderArea.Height,
	}
	for i, c := range info.Colors {
		key.views[i] = c.View
	}
	if info.Depth != nil {
		key.views[len(info.Colors)] = info.Depth.View
	}
	return key
}

// attachmentDescriptions lowers the scope's attachments, colors first,
// then depth. Initial and final layouts match the layout the graph's
// barriers put the image in; the render pass itself transitions
// nothing.
func attachmentDescriptions(info framegraph.RenderingInfo) []vk.AttachmentDescription {
	out := make([]vk.AttachmentDescription, 0, len(info.Colors)+1)
	for _, c := range info.Colors {
		out = append(out, vk.AttachmentDescription{
			Format:         c.Format,
			Samples:        c.Samples,
			LoadOp:         c.LoadOp,
			StoreOp:        c.StoreOp,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  c.Layout,
			FinalLayout:    c.Layout,
		})
	}
	if d := info.Depth; d != nil {
		out = append(out, vk.AttachmentDescription{
			Format:         d.Format,
			Samples:        d.Samples,
			LoadOp:         d.LoadOp,
			StoreOp:        d.StoreOp,
			StencilLoadOp:  d.StencilLoadOp,
			StencilStoreOp: d.StencilStoreOp,
			InitialLayout:  d.Layout,
			FinalLayout:    d.Layout,
		})
	}
	return out
}

// clearValues builds one clear value per attachment, index-aligned
// with the render pass attachments.
func clearValues(info framegraph.RenderingInfo) []vk.ClearValue {
	out := make([]vk.ClearValue, 0, len(info.Colors)+1)
	for _, c := range info.Colors {
		out = append(out, vk.NewClearValue([]float32{
			c.ClearColor[0], c.ClearColor[1], c.ClearColor[2], c.ClearColor[3],
		}))
	}
	if info.Depth != nil {
		out = append(out, vk.NewClearDepthStencil(info.Depth.ClearDepth, info.Depth.ClearStencil))
	}
	return out
}
