//go:build !nogpu

package native

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/texcache/gpucore"
)

// textureUsage is the usage of every cache texture: sampled by the
// renderer, written by uploads, and both ends of copy-forward growth.
const textureUsage = gputypes.TextureUsageTextureBinding |
	gputypes.TextureUsageCopySrc |
	gputypes.TextureUsageCopyDst

// convertTextureFormat converts a gpucore format to its WebGPU equivalent.
func convertTextureFormat(f gpucore.TextureFormat) (gputypes.TextureFormat, bool) {
	switch f {
	case gpucore.TextureFormatR8Uint:
		return gputypes.TextureFormatR8Uint, true
	case gpucore.TextureFormatRGBA8Unorm:
		return gputypes.TextureFormatRGBA8Unorm, true
	default:
		return gputypes.TextureFormatUndefined, false
	}
}

// convertLimits extracts the limits the cache sizes against.
func convertLimits(l gputypes.Limits) gpucore.Limits {
	return gpucore.Limits{
		MaxTextureDimension2D: int(l.MaxTextureDimension2D),
		MaxTextureArrayLayers: int(l.MaxTextureArrayLayers),
	}
}

// copyRowAlignment is the WebGPU alignment of bytesPerRow in
// texture-to-buffer copies.
const copyRowAlignment = 256

// alignedRowBytes rounds n up to copyRowAlignment.
func alignedRowBytes(n int) int {
	return (n + copyRowAlignment - 1) &^ (copyRowAlignment - 1)
}
