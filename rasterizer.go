package texcache

import (
	"fmt"

	"github.com/gogpu/texcache/gpucore"
)

// Bitmap is a rasterized image ready for upload.
type Bitmap struct {
	Width  int
	Height int

	// Stride is the number of bytes between row starts. Zero means
	// tightly packed (Width * Format.BytesPerPixel()).
	Stride int

	// Format is the pixel format of Pix.
	Format gpucore.TextureFormat

	// Pix holds Height rows of pixels.
	Pix []byte
}

// NewBitmap allocates a zeroed, tightly packed bitmap.
func NewBitmap(width, height int, format gpucore.TextureFormat) *Bitmap {
	return &Bitmap{
		Width:  width,
		Height: height,
		Stride: width * format.BytesPerPixel(),
		Format: format,
		Pix:    make([]byte, width*height*format.BytesPerPixel()),
	}
}

// RowBytes returns the stride, defaulting to tightly packed rows.
func (b *Bitmap) RowBytes() int {
	if b.Stride > 0 {
		return b.Stride
	}
	return b.Width * b.Format.BytesPerPixel()
}

// validate checks that the bitmap's buffer covers its declared size.
func (b *Bitmap) validate() error {
	if b.Width <= 0 || b.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrEmptyImage, b.Width, b.Height)
	}
	rowLen := b.Width * b.Format.BytesPerPixel()
	if rowLen == 0 {
		return fmt.Errorf("%w: %s", gpucore.ErrUnsupportedFormat, b.Format)
	}
	stride := b.RowBytes()
	if stride < rowLen || len(b.Pix) < stride*(b.Height-1)+rowLen {
		return fmt.Errorf("%w: %dx%d %s in %d bytes (stride %d)",
			gpucore.ErrDataSize, b.Width, b.Height, b.Format, len(b.Pix), stride)
	}
	return nil
}

// Rasterizer produces source bitmaps for the cache on a miss.
//
// Both methods must wrap [ErrAssetNotFound] when the image does not exist.
// Returned bitmaps are only read during the call that requested them.
type Rasterizer interface {
	// RasterizeImage renders sprite id.
	RasterizeImage(id ImageID) (*Bitmap, error)

	// RasterizeGlyph renders glyph id with palette's colour remap applied.
	RasterizeGlyph(id ImageID, palette GlyphPalette) (*Bitmap, error)
}
