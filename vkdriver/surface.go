package vkdriver

import (
	vk "github.com/vulkan-go/vulkan"
)

// SurfaceInfo adapts a swapchain the caller owns to the graph's
// Surface interface. Fill it once after swapchain creation and rebuild
// it on resize.
type SurfaceInfo struct {
	SurfaceFormat vk.Format
	SurfaceExtent vk.Extent2D
	Images        []vk.Image
	Views         []vk.ImageView
}

func (s *SurfaceInfo) Format() vk.Format   { return s.SurfaceFormat }
func (s *SurfaceInfo) Extent() vk.Extent2D { return s.SurfaceExtent }

// Image returns the swapchain image at the acquired index, or a null
// image for an out-of-range index.
func (s *SurfaceInfo) Image(imageIndex uint32) vk.Image {
	if int(imageIndex) >= len(s.Images) {
		return vk.NullImage
	}
	return s.Images[imageIndex]
}

// View returns the swapchain image view at the acquired index, or a
// null view for an out-of-range index.
func (s *SurfaceInfo) View(imageIndex uint32) vk.ImageView {
	if int(imageIndex) >= len(s.Views) {
		return vk.NullImageView
	}
	return s.Views[imageIndex]
}
