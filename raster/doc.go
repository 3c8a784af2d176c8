// Package raster provides reference [texcache.Rasterizer] implementations.
//
// SpriteSet serves sprites from decoded images, converting them to the
// atlas format: palette indices for R8Uint atlases, straight RGBA for
// RGBA8Unorm atlases. GlyphFace renders glyphs from any
// golang.org/x/image/font.Face and colours them through the glyph
// palette. Rasterizer combines the two behind the interface the cache
// calls.
//
// BuildPalette derives a master palette from true-colour artwork for
// games whose sprites are not already paletted.
//
// Usage:
//
//	sprites := raster.NewSpriteSet(raster.WithMasterPalette(pal))
//	sprites.Add(1, img)
//	glyphs := raster.NewGlyphFace(basicfont.Face7x13)
//	cache, err := texcache.New(backend, raster.New(sprites, glyphs))
package raster
