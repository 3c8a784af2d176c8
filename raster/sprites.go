package raster

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"golang.org/x/image/draw"

	"github.com/gogpu/texcache"
	"github.com/gogpu/texcache/gpucore"
)

// SpriteOption configures a SpriteSet.
type SpriteOption func(*SpriteSet)

// WithFormat sets the bitmap format the set produces.
// Default: gpucore.TextureFormatR8Uint.
func WithFormat(format gpucore.TextureFormat) SpriteOption {
	return func(s *SpriteSet) {
		s.format = format
	}
}

// WithMasterPalette sets the palette non-paletted images are mapped onto
// for R8Uint output. Paletted images keep their own indices.
func WithMasterPalette(p color.Palette) SpriteOption {
	return func(s *SpriteSet) {
		s.palette = p
	}
}

// WithScale resamples every sprite by factor before upload. Palette
// output uses nearest-neighbour so indices are never blended; RGBA
// output uses Catmull-Rom.
func WithScale(factor float64) SpriteOption {
	return func(s *SpriteSet) {
		s.scale = factor
	}
}

// SpriteSet rasterizes sprites from in-memory images.
//
// SpriteSet is safe for concurrent use.
type SpriteSet struct {
	format  gpucore.TextureFormat
	palette color.Palette
	scale   float64

	mu     sync.RWMutex
	images map[texcache.ImageID]image.Image
}

// NewSpriteSet creates an empty sprite set.
func NewSpriteSet(opts ...SpriteOption) *SpriteSet {
	s := &SpriteSet{
		format: gpucore.TextureFormatR8Uint,
		scale:  1,
		images: make(map[texcache.ImageID]image.Image),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add registers img as sprite id, replacing any previous image.
// Callers that replace a cached sprite must also invalidate it in the
// cache.
func (s *SpriteSet) Add(id texcache.ImageID, img image.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images[id] = img
}

// Remove unregisters sprite id.
func (s *SpriteSet) Remove(id texcache.ImageID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.images, id)
}

// Len returns the number of registered sprites.
func (s *SpriteSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.images)
}

// IDs returns the registered sprite IDs in no particular order.
func (s *SpriteSet) IDs() []texcache.ImageID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]texcache.ImageID, 0, len(s.images))
	for id := range s.images {
		ids = append(ids, id)
	}
	return ids
}

// Format returns the bitmap format the set produces.
func (s *SpriteSet) Format() gpucore.TextureFormat {
	return s.format
}

// RasterizeImage converts sprite id to a bitmap.
func (s *SpriteSet) RasterizeImage(id texcache.ImageID) (*texcache.Bitmap, error) {
	s.mu.RLock()
	img, ok := s.images[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("raster: sprite %d: %w", id, texcache.ErrAssetNotFound)
	}

	img = s.resample(img)
	switch s.format {
	case gpucore.TextureFormatR8Uint:
		return s.indexed(img)
	case gpucore.TextureFormatRGBA8Unorm:
		return rgba(img), nil
	default:
		return nil, fmt.Errorf("raster: sprite %d: %w: %s", id, gpucore.ErrUnsupportedFormat, s.format)
	}
}

// resample applies the configured scale.
func (s *SpriteSet) resample(img image.Image) image.Image {
	if s.scale == 1 || s.scale <= 0 {
		return img
	}
	b := img.Bounds()
	w := max(int(float64(b.Dx())*s.scale+0.5), 1)
	h := max(int(float64(b.Dy())*s.scale+0.5), 1)
	dr := image.Rect(0, 0, w, h)

	if pm, ok := img.(*image.Paletted); ok {
		dst := image.NewPaletted(dr, pm.Palette)
		draw.NearestNeighbor.Scale(dst, dr, pm, b, draw.Src, nil)
		return dst
	}

	var kernel draw.Interpolator = draw.CatmullRom
	if s.format == gpucore.TextureFormatR8Uint {
		kernel = draw.NearestNeighbor
	}
	dst := image.NewRGBA(dr)
	kernel.Scale(dst, dr, img, b, draw.Src, nil)
	return dst
}

// indexed produces an R8 bitmap of palette indices.
func (s *SpriteSet) indexed(img image.Image) (*texcache.Bitmap, error) {
	b := img.Bounds()
	bm := texcache.NewBitmap(b.Dx(), b.Dy(), gpucore.TextureFormatR8Uint)

	pm, ok := img.(*image.Paletted)
	if !ok {
		if len(s.palette) == 0 {
			return nil, fmt.Errorf("raster: %T sprite needs a master palette for %s output",
				img, gpucore.TextureFormatR8Uint)
		}
		pm = image.NewPaletted(image.Rect(0, 0, b.Dx(), b.Dy()), s.palette)
		draw.Draw(pm, pm.Rect, img, b.Min, draw.Src)
		b = pm.Rect
	}

	for y := 0; y < b.Dy(); y++ {
		off := pm.PixOffset(b.Min.X, b.Min.Y+y)
		copy(bm.Pix[y*bm.Stride:(y+1)*bm.Stride], pm.Pix[off:off+b.Dx()])
	}
	return bm, nil
}

// rgba produces a straight RGBA bitmap.
func rgba(img image.Image) *texcache.Bitmap {
	b := img.Bounds()
	bm := texcache.NewBitmap(b.Dx(), b.Dy(), gpucore.TextureFormatRGBA8Unorm)

	dst := &image.NRGBA{Pix: bm.Pix, Stride: bm.Stride, Rect: image.Rect(0, 0, b.Dx(), b.Dy())}
	draw.Draw(dst, dst.Rect, img, b.Min, draw.Src)
	return bm
}
