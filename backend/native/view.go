//go:build !nogpu

package native

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/texcache/gpucore"
)

// HALTexture returns the HAL texture behind id, for renderers that bind
// the atlas themselves.
func (b *Backend) HALTexture(id gpucore.TextureID) (hal.Texture, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tex, ok := b.textures[id]
	if !ok {
		return nil, false
	}
	return tex.hal, true
}

// CreateArrayView creates a 2D array view over every layer of texture id.
// The atlas handle changes when the cache grows, so views must be
// recreated whenever TextureCache.AtlasTexture returns a new ID. The
// caller owns the view and destroys it with the device.
func (b *Backend) CreateArrayView(id gpucore.TextureID) (hal.TextureView, error) {
	b.mu.Lock()
	tex, ok := b.textures[id]
	b.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %d", gpucore.ErrTextureNotFound, id)
	}

	format, _ := convertTextureFormat(tex.desc.Format)
	view, err := b.device.CreateTextureView(tex.hal, &hal.TextureViewDescriptor{
		Label:           tex.desc.Label + "_view",
		Format:          format,
		Dimension:       gputypes.TextureViewDimension2DArray,
		Aspect:          gputypes.TextureAspectAll,
		BaseMipLevel:    0,
		MipLevelCount:   1,
		BaseArrayLayer:  0,
		ArrayLayerCount: uint32(tex.desc.Layers), //nolint:gosec // validated at creation
	})
	if err != nil {
		return nil, fmt.Errorf("create array view: %w", err)
	}
	return view, nil
}
