// Package framegraph provides a frame graph for Vulkan renderers.
//
// # Overview
//
// A frame graph turns a frame from imperative command recording into a
// declarative description: passes declare which virtual resources they
// read and write, and the graph derives everything that is error-prone
// to hand-maintain, namely pass ordering and culling, transient
// resource lifetimes with memory reuse, and pipeline barriers.
//
// # Quick Start
//
//	b := framegraph.NewBuilder(framegraph.Config{
//	    Allocator: alloc,
//	    Recorder:  recorder,
//	    Queue:     queue,
//	    Pools:     pools, // shared across frames
//	})
//	defer b.Finish()
//
//	gbuffer, _ := b.CreateColorBuffer("gbuffer", 1920, 1080)
//	depth, _ := b.CreateDepthBuffer("depth", 1920, 1080)
//	target, _ := b.RegisterSurfaceTexture(surface, imageIndex, "backbuffer")
//
//	b.AddPass("geometry", recordGeometry).
//	    WriteColorAttachment(gbuffer, vk.AttachmentLoadOpClear, vk.AttachmentStoreOpStore, black).
//	    WriteDepthAttachment(depth, vk.AttachmentLoadOpClear, vk.AttachmentStoreOpStore, 1)
//
//	b.AddPassEx("lighting", recordLighting).
//	    ReadTexture(gbuffer, fragmentStage, shaderRead).
//	    WriteColorAttachment(target, vk.AttachmentLoadOpDontCare, vk.AttachmentStoreOpStore, black)
//
//	sync := new(framegraph.SyncInfo).
//	    AddWait(imageAvailable, 0).
//	    AddSignal(renderFinished)
//	err := b.Execute(sync)
//
// # Architecture
//
// The package splits into:
//   - Declaration: Builder, Pass, typed handles, descriptors
//   - Compilation: dependency analysis, culling, lifetimes, barriers
//   - Execution: allocation through pools, one command scope, one submit
//   - Collaborators: Allocator, CommandRecorder, Queue, Surface
//     interfaces, implemented by vkdriver for a live device
//
// The root package depends on Vulkan types only; it never calls the
// Vulkan API itself, which keeps the whole compiler and executor
// testable without a GPU.
//
// # Lifecycle
//
// A Builder drives exactly one frame: declare, Compile (implicit in
// Execute if omitted), Execute once, discard. Pools outlive builders
// and carry transient resources from frame to frame. Cross-frame
// synchronization stays with the caller via SyncInfo; the vkdriver
// package ships a frames-in-flight helper.
package framegraph

// Version information
const (
	// Version is the current version of the library
	Version = "0.2.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 2

	// VersionPatch is the patch version
	VersionPatch = 0
)
