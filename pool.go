package framegraph

import (
	"sync"

	vk "github.com/vulkan-go/vulkan"
)

// Pools hold physical resources recycled between graph executions. A
// builder lives for one frame; the pools it draws from are meant to be
// created once and shared by every frame's builder.
//
// Thread safety: all pool methods are safe for concurrent use, so one
// pool set can serve builders on different goroutines.

// texturePoolKey identifies a bucket of interchangeable images. Debug
// names are deliberately excluded: reuse is by specification, not name.
type texturePoolKey struct {
	format      vk.Format
	extent      vk.Extent3D
	usage       vk.ImageUsageFlags
	mipLevels   uint32
	arrayLayers uint32
	samples     vk.SampleCountFlagBits
	tiling      vk.ImageTiling
}

func textureKey(d TextureDesc) texturePoolKey {
	d = d.normalize()
	return texturePoolKey{
		format:      d.Format,
		extent:      d.Extent,
		usage:       d.Usage,
		mipLevels:   d.MipLevels,
		arrayLayers: d.ArrayLayers,
		samples:     d.Samples,
		tiling:      d.Tiling,
	}
}

// TexturePool recycles transient images between frames. Acquisition
// requires an exact descriptor match.
type TexturePool struct {
	mu      sync.Mutex
	buckets map[texturePoolKey][]Image
	maxSize int // max images per bucket, 0 means unlimited
}

// NewTexturePool creates a texture pool retaining at most maxPerBucket
// images of each specification.
func NewTexturePool(maxPerBucket int) *TexturePool {
	return &TexturePool{
		buckets: make(map[texturePoolKey][]Image),
		maxSize: maxPerBucket,
	}
}

// Acquire pops a free image matching desc exactly, or returns nil when
// the pool has none. The caller owns the image until Release.
func (p *TexturePool) Acquire(desc TextureDesc) Image {
	key := textureKey(desc)

	p.mu.Lock()
	defer p.mu.Unlock()

	bucket := p.buckets[key]
	if len(bucket) == 0 {
		return nil
	}
	img := bucket[len(bucket)-1]
	p.buckets[key] = bucket[:len(bucket)-1]
	return img
}

// Release returns an image to the pool. Full buckets discard the image;
// the caller's Allocator remains responsible for eventual destruction.
func (p *TexturePool) Release(img Image) {
	if img == nil {
		return
	}
	key := texturePoolKey{
		format:      img.Format(),
		extent:      img.Extent(),
		usage:       img.Usage(),
		mipLevels:   img.MipLevels(),
		arrayLayers: img.ArrayLayers(),
		samples:     img.Samples(),
		tiling:      img.Tiling(),
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	bucket := p.buckets[key]
	if p.maxSize > 0 && len(bucket) >= p.maxSize {
		return
	}
	p.buckets[key] = append(bucket, img)
}

// Clear drops every pooled image.
func (p *TexturePool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.buckets = make(map[texturePoolKey][]Image)
}

// Len returns the number of pooled images.
func (p *TexturePool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, b := range p.buckets {
		n += len(b)
	}
	return n
}

// BufferPool recycles transient buffers between frames. Buffers bucket
// by usage; within a bucket the first free buffer at least as large as
// the request is reused.
type BufferPool struct {
	mu      sync.Mutex
	buckets map[vk.BufferUsageFlags][]Buffer
	maxSize int
}

// NewBufferPool creates a buffer pool retaining at most maxPerBucket
// buffers per usage combination.
func NewBufferPool(maxPerBucket int) *BufferPool {
	return &BufferPool{
		buckets: make(map[vk.BufferUsageFlags][]Buffer),
		maxSize: maxPerBucket,
	}
}

// Acquire pops a free buffer with the requested usage and at least the
// requested size, or returns nil.
func (p *BufferPool) Acquire(desc BufferDesc) Buffer {
	p.mu.Lock()
	defer p.mu.Unlock()

	bucket := p.buckets[desc.Usage]
	for i, buf := range bucket {
		if buf.Size() >= desc.Size {
			bucket[i] = bucket[len(bucket)-1]
			p.buckets[desc.Usage] = bucket[:len(bucket)-1]
			return buf
		}
	}
	return nil
}

// Release returns a buffer to the pool.
func (p *BufferPool) Release(buf Buffer) {
	if buf == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	bucket := p.buckets[buf.Usage()]
	if p.maxSize > 0 && len(bucket) >= p.maxSize {
		return
	}
	p.buckets[buf.Usage()] = append(bucket, buf)
}

// Clear drops every pooled buffer.
func (p *BufferPool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.buckets = make(map[vk.BufferUsageFlags][]Buffer)
}

// Len returns the number of pooled buffers.
func (p *BufferPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, b := range p.buckets {
		n += len(b)
	}
	return n
}

// PoolSet bundles the pools a builder draws from.
type PoolSet struct {
	Textures *TexturePool
	Buffers  *BufferPool
}

// NewPoolSet creates a pool set with the given retention limit per
// bucket.
func NewPoolSet(maxPerBucket int) *PoolSet {
	return &PoolSet{
		Textures: NewTexturePool(maxPerBucket),
		Buffers:  NewBufferPool(maxPerBucket),
	}
}
