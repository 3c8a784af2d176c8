package texcache

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/gogpu/texcache/gpucore"
)

// ErrTextureReleased is returned when operating on a released texture.
var ErrTextureReleased = errors.New("texcache: texture has been released")

// Texture owns one backend texture handle and releases it exactly once.
type Texture struct {
	backend gpucore.Backend
	id      gpucore.TextureID
	desc    gpucore.TextureDesc

	released atomic.Bool
}

// createTexture validates desc against the backend limits and creates
// the texture.
func createTexture(backend gpucore.Backend, desc gpucore.TextureDesc) (*Texture, error) {
	if err := desc.Validate(backend.Limits()); err != nil {
		return nil, err
	}
	id, err := backend.CreateTexture(desc)
	if err != nil {
		return nil, fmt.Errorf("create texture %q: %w", desc.Label, err)
	}
	return &Texture{backend: backend, id: id, desc: desc}, nil
}

// ID returns the backend handle, or gpucore.InvalidID once released.
func (t *Texture) ID() gpucore.TextureID {
	if t == nil || t.released.Load() {
		return gpucore.InvalidID
	}
	return t.id
}

// Desc returns the descriptor the texture was created with.
func (t *Texture) Desc() gpucore.TextureDesc {
	return t.desc
}

// Layers returns the array layer count.
func (t *Texture) Layers() int {
	return t.desc.Layers
}

// SizeBytes returns the texture size in bytes.
func (t *Texture) SizeBytes() uint64 {
	//nolint:gosec // G115: dimensions are validated positive
	return uint64(t.desc.Width) * uint64(t.desc.Height) * uint64(t.desc.Layers) * uint64(t.desc.Format.BytesPerPixel())
}

// IsReleased returns true if the texture has been released.
func (t *Texture) IsReleased() bool {
	return t.released.Load()
}

// write uploads a bitmap into region.
func (t *Texture) write(region gpucore.Region, bm *Bitmap) error {
	if t.released.Load() {
		return ErrTextureReleased
	}
	return t.backend.WriteTexture(t.id, region, bm.Pix, bm.RowBytes())
}

// read reads back region.
func (t *Texture) read(region gpucore.Region) ([]byte, error) {
	if t.released.Load() {
		return nil, ErrTextureReleased
	}
	return t.backend.ReadTexture(t.id, region)
}

// Close releases the backend texture. Further calls are no-ops.
func (t *Texture) Close() {
	if t == nil || t.released.Swap(true) {
		return
	}
	t.backend.DestroyTexture(t.id)
}

// String returns a string representation of the texture.
func (t *Texture) String() string {
	status := "active"
	if t.released.Load() {
		status = "released"
	}
	return fmt.Sprintf("Texture[%s %dx%dx%d %s %d bytes %s]",
		t.desc.Label, t.desc.Width, t.desc.Height, t.desc.Layers, t.desc.Format, t.SizeBytes(), status)
}
