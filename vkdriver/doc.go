// Package vkdriver implements the framegraph collaborator interfaces
// over a live Vulkan device using the vulkan-go binding.
//
// The package provides:
//   - Allocator: transient image/buffer allocation with device-local
//     memory and the predefined sampler set
//   - Recorder: the frame's command scope over one vk.CommandBuffer
//   - Queue: submission with the SyncInfo primitives attached
//   - FrameSync: a frames-in-flight helper managing fences and the
//     per-frame semaphore pair
//
// Everything here assumes the caller owns instance, device and
// swapchain setup. The framegraph root package never touches the
// Vulkan API; this package is the only place that does.
package vkdriver
