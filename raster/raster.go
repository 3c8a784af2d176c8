package raster

import (
	"fmt"

	"github.com/gogpu/texcache"
)

// Rasterizer combines a sprite source and a glyph source into a
// texcache.Rasterizer. Either may be nil, in which case requests for it
// report texcache.ErrAssetNotFound.
type Rasterizer struct {
	Sprites *SpriteSet
	Glyphs  *GlyphFace
}

// New returns a Rasterizer over sprites and glyphs.
func New(sprites *SpriteSet, glyphs *GlyphFace) *Rasterizer {
	return &Rasterizer{Sprites: sprites, Glyphs: glyphs}
}

// RasterizeImage implements texcache.Rasterizer.
func (r *Rasterizer) RasterizeImage(id texcache.ImageID) (*texcache.Bitmap, error) {
	if r.Sprites == nil {
		return nil, fmt.Errorf("raster: sprite %d: no sprite set: %w", id, texcache.ErrAssetNotFound)
	}
	return r.Sprites.RasterizeImage(id)
}

// RasterizeGlyph implements texcache.Rasterizer.
func (r *Rasterizer) RasterizeGlyph(id texcache.ImageID, palette texcache.GlyphPalette) (*texcache.Bitmap, error) {
	if r.Glyphs == nil {
		return nil, fmt.Errorf("raster: glyph %d: no glyph face: %w", id, texcache.ErrAssetNotFound)
	}
	return r.Glyphs.RasterizeGlyph(id, palette)
}

var _ texcache.Rasterizer = (*Rasterizer)(nil)
