//go:build !nogpu

package gl

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/gogpu/texcache/gpucore"
)

// glFormat is the GL description of a gpucore format.
type glFormat struct {
	internal int32
	format   uint32
}

func lookupFormat(f gpucore.TextureFormat) (glFormat, bool) {
	switch f {
	case gpucore.TextureFormatR8Uint:
		return glFormat{internal: gl.R8UI, format: gl.RED_INTEGER}, true
	case gpucore.TextureFormatRGBA8Unorm:
		return glFormat{internal: gl.RGBA8, format: gl.RGBA}, true
	default:
		return glFormat{}, false
	}
}

// checkError converts a glGetError code to an error.
func checkError(op string, code uint32) error {
	switch code {
	case gl.NO_ERROR:
		return nil
	case gl.OUT_OF_MEMORY:
		return fmt.Errorf("gl: %s: %w", op, gpucore.ErrOutOfMemory)
	default:
		return fmt.Errorf("gl: %s: GL error 0x%04x", op, code)
	}
}

func layerBytes(d gpucore.TextureDesc) int {
	return d.Width * d.Height * d.Format.BytesPerPixel()
}

// extract copies region out of a full readback of every layer.
func extract(pixels []byte, d gpucore.TextureDesc, r gpucore.Region) []byte {
	bpp := d.Format.BytesPerPixel()
	stride := d.Width * bpp
	rowLen := r.Width * bpp
	base := r.Layer * layerBytes(d)

	out := make([]byte, rowLen*r.Height)
	for y := 0; y < r.Height; y++ {
		src := base + (r.Y+y)*stride + r.X*bpp
		copy(out[y*rowLen:(y+1)*rowLen], pixels[src:src+rowLen])
	}
	return out
}
