// Package memory provides a gpucore.Backend that keeps texture pixels in
// Go slices.
//
// It behaves like a device with configurable limits and an optional memory
// budget, which makes it the backend of choice for tests, headless tools
// and for checking what a real backend should have uploaded.
package memory

import (
	"fmt"
	"sync"

	"github.com/gogpu/texcache/gpucore"
)

// Options configures a memory Backend.
type Options struct {
	// Limits are the simulated device limits.
	// Zero fields default to gpucore.DefaultLimits.
	Limits gpucore.Limits

	// BudgetBytes caps the total size of live textures. Creating a
	// texture that would exceed it fails with gpucore.ErrOutOfMemory.
	// Zero means unlimited.
	BudgetBytes uint64
}

// MemoryStats contains memory usage statistics.
type MemoryStats struct {
	// UsedBytes is the total size of live textures.
	UsedBytes uint64
	// TextureCount is the number of live textures.
	TextureCount int
	// Created is the number of textures ever created.
	Created int
	// Destroyed is the number of textures destroyed.
	Destroyed int
}

// texture is one texture's storage, one byte slice per layer.
type texture struct {
	desc   gpucore.TextureDesc
	layers [][]byte
}

func (t *texture) sizeBytes() uint64 {
	//nolint:gosec // G115: dimensions validated positive
	return uint64(t.desc.Width*t.desc.Height*t.desc.Format.BytesPerPixel()) * uint64(t.desc.Layers)
}

func (t *texture) rowBytes() int {
	return t.desc.Width * t.desc.Format.BytesPerPixel()
}

// Backend implements gpucore.Backend in system memory.
//
// Backend is safe for concurrent use.
type Backend struct {
	mu       sync.Mutex
	limits   gpucore.Limits
	budget   uint64
	used     uint64
	nextID   gpucore.TextureID
	textures map[gpucore.TextureID]*texture

	created   int
	destroyed int
}

// New creates a memory backend.
func New(opts Options) *Backend {
	lim := opts.Limits
	def := gpucore.DefaultLimits()
	if lim.MaxTextureDimension2D <= 0 {
		lim.MaxTextureDimension2D = def.MaxTextureDimension2D
	}
	if lim.MaxTextureArrayLayers <= 0 {
		lim.MaxTextureArrayLayers = def.MaxTextureArrayLayers
	}
	return &Backend{
		limits:   lim,
		budget:   opts.BudgetBytes,
		nextID:   1, // 0 is invalid
		textures: make(map[gpucore.TextureID]*texture),
	}
}

// Limits returns the simulated device limits.
func (b *Backend) Limits() gpucore.Limits {
	return b.limits
}

// CreateTexture allocates zeroed storage for desc.
func (b *Backend) CreateTexture(desc gpucore.TextureDesc) (gpucore.TextureID, error) {
	if err := desc.Validate(b.limits); err != nil {
		return gpucore.InvalidID, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	tex := &texture{desc: desc}
	size := tex.sizeBytes()
	if b.budget > 0 && b.used+size > b.budget {
		return gpucore.InvalidID, fmt.Errorf("%w: %d bytes requested, %d of %d in use",
			gpucore.ErrOutOfMemory, size, b.used, b.budget)
	}

	layerBytes := desc.Width * desc.Height * desc.Format.BytesPerPixel()
	tex.layers = make([][]byte, desc.Layers)
	for i := range tex.layers {
		tex.layers[i] = make([]byte, layerBytes)
	}

	id := b.nextID
	b.nextID++
	b.textures[id] = tex
	b.used += size
	b.created++
	return id, nil
}

// DestroyTexture frees a texture. Unknown IDs are ignored.
func (b *Backend) DestroyTexture(id gpucore.TextureID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tex, ok := b.textures[id]
	if !ok {
		return
	}
	delete(b.textures, id)
	b.used -= tex.sizeBytes()
	b.destroyed++
}

// WriteTexture copies rows of data into region.
func (b *Backend) WriteTexture(id gpucore.TextureID, region gpucore.Region, data []byte, bytesPerRow int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	tex, err := b.lookup(id, region)
	if err != nil {
		return err
	}

	bpp := tex.desc.Format.BytesPerPixel()
	rowLen := region.Width * bpp
	if bytesPerRow < rowLen || len(data) < bytesPerRow*(region.Height-1)+rowLen {
		return fmt.Errorf("%w: %d bytes for %s", gpucore.ErrDataSize, len(data), region)
	}

	layer := tex.layers[region.Layer]
	stride := tex.rowBytes()
	for y := 0; y < region.Height; y++ {
		dst := (region.Y+y)*stride + region.X*bpp
		src := y * bytesPerRow
		copy(layer[dst:dst+rowLen], data[src:src+rowLen])
	}
	return nil
}

// CopyLayers copies layers [0, layers) of src into dst.
func (b *Backend) CopyLayers(src, dst gpucore.TextureID, layers int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.textures[src]
	if !ok {
		return fmt.Errorf("%w: source %d", gpucore.ErrTextureNotFound, src)
	}
	d, ok := b.textures[dst]
	if !ok {
		return fmt.Errorf("%w: destination %d", gpucore.ErrTextureNotFound, dst)
	}
	if s.desc.Width != d.desc.Width || s.desc.Height != d.desc.Height || s.desc.Format != d.desc.Format {
		return fmt.Errorf("%w: copy between %dx%d %s and %dx%d %s", gpucore.ErrInvalidDimensions,
			s.desc.Width, s.desc.Height, s.desc.Format, d.desc.Width, d.desc.Height, d.desc.Format)
	}
	if layers > s.desc.Layers || layers > d.desc.Layers {
		return fmt.Errorf("%w: copy of %d layers between %d and %d layer textures",
			gpucore.ErrRegionOutOfBounds, layers, s.desc.Layers, d.desc.Layers)
	}

	for i := 0; i < layers; i++ {
		copy(d.layers[i], s.layers[i])
	}
	return nil
}

// ReadTexture returns a copy of region as tightly packed rows.
func (b *Backend) ReadTexture(id gpucore.TextureID, region gpucore.Region) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tex, err := b.lookup(id, region)
	if err != nil {
		return nil, err
	}

	bpp := tex.desc.Format.BytesPerPixel()
	rowLen := region.Width * bpp
	out := make([]byte, rowLen*region.Height)
	layer := tex.layers[region.Layer]
	stride := tex.rowBytes()
	for y := 0; y < region.Height; y++ {
		src := (region.Y+y)*stride + region.X*bpp
		copy(out[y*rowLen:(y+1)*rowLen], layer[src:src+rowLen])
	}
	return out, nil
}

// Desc returns the descriptor of a live texture.
func (b *Backend) Desc(id gpucore.TextureID) (gpucore.TextureDesc, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tex, ok := b.textures[id]
	if !ok {
		return gpucore.TextureDesc{}, false
	}
	return tex.desc, true
}

// Stats returns memory usage statistics.
func (b *Backend) Stats() MemoryStats {
	b.mu.Lock()
	defer b.mu.Unlock()

	return MemoryStats{
		UsedBytes:    b.used,
		TextureCount: len(b.textures),
		Created:      b.created,
		Destroyed:    b.destroyed,
	}
}

// lookup returns the texture for id after checking region against it.
// Must be called with mu held.
func (b *Backend) lookup(id gpucore.TextureID, region gpucore.Region) (*texture, error) {
	tex, ok := b.textures[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", gpucore.ErrTextureNotFound, id)
	}
	if !region.Within(tex.desc) {
		return nil, fmt.Errorf("%w: %s in %dx%dx%d", gpucore.ErrRegionOutOfBounds,
			region, tex.desc.Width, tex.desc.Height, tex.desc.Layers)
	}
	return tex, nil
}

var _ gpucore.Backend = (*Backend)(nil)
