package texcache

// ImageID identifies one source image. Recolour variants of the same
// artwork are expected to carry distinct IDs.
type ImageID uint32

// GlyphPalette is the 96-bit colour remap a glyph is rendered with.
// Each byte is the palette index substituted for one glyph shade.
type GlyphPalette [12]uint8

// entryKind tags a cache key as a sprite or a glyph.
type entryKind uint8

const (
	kindSprite entryKind = iota
	kindGlyph
)

// cacheKey is the tagged variant {sprite(id), glyph(id, palette)} both
// caches share one map under. Sprite keys always carry a zero palette.
type cacheKey struct {
	kind    entryKind
	image   ImageID
	palette GlyphPalette
}

func spriteKey(id ImageID) cacheKey {
	return cacheKey{kind: kindSprite, image: id}
}

func glyphKey(id ImageID, palette GlyphPalette) cacheKey {
	return cacheKey{kind: kindGlyph, image: id, palette: palette}
}
