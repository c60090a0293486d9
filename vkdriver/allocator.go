package vkdriver

import (
	"errors"
	"fmt"
	"sync"

	vk "github.com/vulkan-go/vulkan"

	"github.com/gogpu/framegraph"
)

var (
	// ErrNoMemoryType is returned when no device memory type satisfies
	// an allocation request.
	ErrNoMemoryType = errors.New("vkdriver: no suitable memory type")

	// ErrDestroyed is returned when allocating through a destroyed
	// allocator.
	ErrDestroyed = errors.New("vkdriver: allocator destroyed")
)

// image is a physical image with its memory and default view.
type image struct {
	handle vk.Image
	memory vk.DeviceMemory
	view   vk.ImageView
	desc   framegraph.TextureDesc
}

func (i *image) VkImage() vk.Image               { return i.handle }
func (i *image) View() vk.ImageView              { return i.view }
func (i *image) Format() vk.Format               { return i.desc.Format }
func (i *image) Extent() vk.Extent3D             { return i.desc.Extent }
func (i *image) Usage() vk.ImageUsageFlags       { return i.desc.Usage }
func (i *image) MipLevels() uint32               { return i.desc.MipLevels }
func (i *image) ArrayLayers() uint32             { return i.desc.ArrayLayers }
func (i *image) Samples() vk.SampleCountFlagBits { return i.desc.Samples }
func (i *image) Tiling() vk.ImageTiling          { return i.desc.Tiling }

// buffer is a physical buffer with its memory.
type buffer struct {
	handle vk.Buffer
	memory vk.DeviceMemory
	size   vk.DeviceSize
	usage  vk.BufferUsageFlags
}

func (b *buffer) VkBuffer() vk.Buffer        { return b.handle }
func (b *buffer) Size() vk.DeviceSize        { return b.size }
func (b *buffer) Usage() vk.BufferUsageFlags { return b.usage }

// DeviceAddress returns 0. The binding predates
// vkGetBufferDeviceAddress; address support lands with a binding
// upgrade.
func (b *buffer) DeviceAddress() uint64 { return 0 }

// Allocator creates device-local images and buffers for the graph and
// owns them until Destroy. It implements framegraph.Allocator.
//
// Thread safety: all methods are safe for concurrent use.
type Allocator struct {
	mu        sync.Mutex
	device    vk.Device
	physical  vk.PhysicalDevice
	images    []*image
	buffers   []*buffer
	samplers  []vk.Sampler
	destroyed bool
}

// NewAllocator creates an allocator over the given device.
func NewAllocator(device vk.Device, physical vk.PhysicalDevice) *Allocator {
	return &Allocator{device: device, physical: physical}
}

// findMemoryType picks a memory type out of typeBits with the wanted
// properties.
func (a *Allocator) findMemoryType(typeBits uint32, props vk.MemoryPropertyFlags) (uint32, error) {
	var memProps vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(a.physical, &memProps)
	memProps.Deref()

	for i := uint32(0); i < memProps.MemoryTypeCount; i++ {
		memProps.MemoryTypes[i].Deref()
		if typeBits&(1<<i) != 0 && memProps.MemoryTypes[i].PropertyFlags&props == props {
			return i, nil
		}
	}
	return 0, ErrNoMemoryType
}

// CreateImage creates a device-local image with a full-range default
// view.
func (a *Allocator) CreateImage(desc framegraph.TextureDesc) (framegraph.Image, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.destroyed {
		return nil, ErrDestroyed
	}

	imageInfo := vk.ImageCreateInfo{
		SType:         vk.StructureTypeImageCreateInfo,
		ImageType:     vk.ImageType2d,
		Extent:        desc.Extent,
		MipLevels:     desc.MipLevels,
		ArrayLayers:   desc.ArrayLayers,
		Format:        desc.Format,
		Tiling:        desc.Tiling,
		InitialLayout: vk.ImageLayoutUndefined,
		Usage:         desc.Usage,
		SharingMode:   vk.SharingModeExclusive,
		Samples:       desc.Samples,
	}

	var handle vk.Image
	if err := vk.Error(vk.CreateImage(a.device, &imageInfo, nil, &handle)); err != nil {
		return nil, fmt.Errorf("vkdriver: create image %q: %w", desc.Name, err)
	}

	var memReq vk.MemoryRequirements
	vk.GetImageMemoryRequirements(a.device, handle, &memReq)
	memReq.Deref()

	memType, err := a.findMemoryType(memReq.MemoryTypeBits,
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		vk.DestroyImage(a.device, handle, nil)
		return nil, fmt.Errorf("vkdriver: image %q: %w", desc.Name, err)
	}

	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memReq.Size,
		MemoryTypeIndex: memType,
	}
	var memory vk.DeviceMemory
	if err := vk.Error(vk.AllocateMemory(a.device, &allocInfo, nil, &memory)); err != nil {
		vk.DestroyImage(a.device, handle, nil)
		return nil, fmt.Errorf("vkdriver: allocate image memory %q: %w", desc.Name, err)
	}
	if err := vk.Error(vk.BindImageMemory(a.device, handle, memory, 0)); err != nil {
		vk.FreeMemory(a.device, memory, nil)
		vk.DestroyImage(a.device, handle, nil)
		return nil, fmt.Errorf("vkdriver: bind image memory %q: %w", desc.Name, err)
	}

	viewInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    handle,
		ViewType: vk.ImageViewType2d,
		Format:   desc.Format,
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspectForFormat(desc.Format),
			BaseMipLevel:   0,
			LevelCount:     desc.MipLevels,
			BaseArrayLayer: 0,
			LayerCount:     desc.ArrayLayers,
		},
	}
	var view vk.ImageView
	if err := vk.Error(vk.CreateImageView(a.device, &viewInfo, nil, &view)); err != nil {
		vk.FreeMemory(a.device, memory, nil)
		vk.DestroyImage(a.device, handle, nil)
		return nil, fmt.Errorf("vkdriver: create image view %q: %w", desc.Name, err)
	}

	img := &image{handle: handle, memory: memory, view: view, desc: desc}
	a.images = append(a.images, img)
	framegraph.Logger().Debug("allocated image",
		"name", desc.Name, "format", desc.Format, "size", memReq.Size)
	return img, nil
}

// CreateBuffer creates a device-local buffer.
func (a *Allocator) CreateBuffer(desc framegraph.BufferDesc) (framegraph.Buffer, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.destroyed {
		return nil, ErrDestroyed
	}

	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        desc.Size,
		Usage:       desc.Usage,
		SharingMode: vk.SharingModeExclusive,
	}
	var handle vk.Buffer
	if err := vk.Error(vk.CreateBuffer(a.device, &bufferInfo, nil, &handle)); err != nil {
		return nil, fmt.Errorf("vkdriver: create buffer %q: %w", desc.Name, err)
	}

	var memReq vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(a.device, handle, &memReq)
	memReq.Deref()

	memType, err := a.findMemoryType(memReq.MemoryTypeBits,
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		vk.DestroyBuffer(a.device, handle, nil)
		return nil, fmt.Errorf("vkdriver: buffer %q: %w", desc.Name, err)
	}

	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memReq.Size,
		MemoryTypeIndex: memType,
	}
	var memory vk.DeviceMemory
	if err := vk.Error(vk.AllocateMemory(a.device, &allocInfo, nil, &memory)); err != nil {
		vk.DestroyBuffer(a.device, handle, nil)
		return nil, fmt.Errorf("vkdriver: allocate buffer memory %q: %w", desc.Name, err)
	}
	if err := vk.Error(vk.BindBufferMemory(a.device, handle, memory, 0)); err != nil {
		vk.FreeMemory(a.device, memory, nil)
		vk.DestroyBuffer(a.device, handle, nil)
		return nil, fmt.Errorf("vkdriver: bind buffer memory %q: %w", desc.Name, err)
	}

	buf := &buffer{handle: handle, memory: memory, size: desc.Size, usage: desc.Usage}
	a.buffers = append(a.buffers, buf)
	framegraph.Logger().Debug("allocated buffer",
		"name", desc.Name, "size", desc.Size)
	return buf, nil
}

// CreateSampler creates one of the predefined samplers.
func (a *Allocator) CreateSampler(kind framegraph.SamplerKind) (vk.Sampler, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.destroyed {
		return vk.NullSampler, ErrDestroyed
	}

	info := samplerCreateInfo(kind)
	var sampler vk.Sampler
	if err := vk.Error(vk.CreateSampler(a.device, &info, nil, &sampler)); err != nil {
		return vk.NullSampler, fmt.Errorf("vkdriver: create sampler %v: %w", kind, err)
	}
	a.samplers = append(a.samplers, sampler)
	return sampler, nil
}

// samplerCreateInfo maps a sampler kind to its creation parameters.
func samplerCreateInfo(kind framegraph.SamplerKind) vk.SamplerCreateInfo {
	info := vk.SamplerCreateInfo{
		SType:      vk.StructureTypeSamplerCreateInfo,
		MipmapMode: vk.SamplerMipmapModeLinear,
		MinLod:     0,
		MaxLod:     1000, // VK_LOD_CLAMP_NONE
	}

	setFilter := func(f vk.Filter) {
		info.MagFilter = f
		info.MinFilter = f
	}
	setAddress := func(m vk.SamplerAddressMode) {
		info.AddressModeU = m
		info.AddressModeV = m
		info.AddressModeW = m
	}

	switch kind {
	case framegraph.SamplerNearestClamp:
		setFilter(vk.FilterNearest)
		info.MipmapMode = vk.SamplerMipmapModeNearest
		setAddress(vk.SamplerAddressModeClampToEdge)
	case framegraph.SamplerNearestRepeat:
		setFilter(vk.FilterNearest)
		info.MipmapMode = vk.SamplerMipmapModeNearest
		setAddress(vk.SamplerAddressModeRepeat)
	case framegraph.SamplerLinearClamp:
		setFilter(vk.FilterLinear)
		setAddress(vk.SamplerAddressModeClampToEdge)
	case framegraph.SamplerLinearRepeat:
		setFilter(vk.FilterLinear)
		setAddress(vk.SamplerAddressModeRepeat)
	case framegraph.SamplerAnisotropicClamp:
		setFilter(vk.FilterLinear)
		setAddress(vk.SamplerAddressModeClampToEdge)
		info.AnisotropyEnable = vk.True
		info.MaxAnisotropy = 16
	case framegraph.SamplerAnisotropicRepeat:
		setFilter(vk.FilterLinear)
		setAddress(vk.SamplerAddressModeRepeat)
		info.AnisotropyEnable = vk.True
		info.MaxAnisotropy = 16
	case framegraph.SamplerShadowPCF:
		setFilter(vk.FilterLinear)
		setAddress(vk.SamplerAddressModeClampToBorder)
		info.CompareEnable = vk.True
		info.CompareOp = vk.CompareOpLessOrEqual
		info.BorderColor = vk.BorderColorFloatOpaqueWhite
	}
	return info
}

// aspectForFormat mirrors the graph's aspect derivation for the default
// view.
func aspectForFormat(format vk.Format) vk.ImageAspectFlags {
	switch format {
	case vk.FormatD16Unorm, vk.FormatD32Sfloat, vk.FormatX8D24UnormPack32:
		return vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	case vk.FormatD16UnormS8Uint, vk.FormatD24UnormS8Uint, vk.FormatD32SfloatS8Uint:
		return vk.ImageAspectFlags(vk.ImageAspectDepthBit | vk.ImageAspectStencilBit)
	default:
		return vk.ImageAspectFlags(vk.ImageAspectColorBit)
	}
}

// Destroy releases every image, buffer and sampler the allocator
// created. The caller must ensure the GPU is idle first. Destroy is
// idempotent.
func (a *Allocator) Destroy() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.destroyed {
		return
	}
	for _, img := range a.images {
		vk.DestroyImageView(a.device, img.view, nil)
		vk.DestroyImage(a.device, img.handle, nil)
		vk.FreeMemory(a.device, img.memory, nil)
	}
	for _, buf := range a.buffers {
		vk.DestroyBuffer(a.device, buf.handle, nil)
		vk.FreeMemory(a.device, buf.memory, nil)
	}
	for _, s := range a.samplers {
		vk.DestroySampler(a.device, s, nil)
	}
	a.images = nil
	a.buffers = nil
	a.samplers = nil
	a.destroyed = true
}
