package raster

import (
	"fmt"
	"image"
	"image/color"
	"sync"
	"unicode/utf8"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/gogpu/texcache"
	"github.com/gogpu/texcache/gpucore"
	"github.com/gogpu/texcache/internal/lru"
)

// GlyphShades is the number of coverage levels a glyph mask is quantized
// to. Shade s is drawn with palette index GlyphPalette[s]; zero coverage
// stays index 0 (transparent).
const GlyphShades = len(texcache.GlyphPalette{})

// defaultMaskCacheSize bounds the number of memoized glyph masks.
const defaultMaskCacheSize = 512

// GlyphOption configures a GlyphFace.
type GlyphOption func(*GlyphFace)

// WithGlyphFormat sets the bitmap format the face produces. RGBA output
// resolves palette indices through the colours set by WithGlyphColors.
// Default: gpucore.TextureFormatR8Uint.
func WithGlyphFormat(format gpucore.TextureFormat) GlyphOption {
	return func(g *GlyphFace) {
		g.format = format
	}
}

// WithGlyphColors sets the colour table used for RGBA glyph output.
func WithGlyphColors(p color.Palette) GlyphOption {
	return func(g *GlyphFace) {
		g.colors = p
	}
}

// WithMaskCacheSize sets how many glyph masks are memoized across
// palettes. Default: 512.
func WithMaskCacheSize(n int) GlyphOption {
	return func(g *GlyphFace) {
		g.masks = lru.New[texcache.ImageID, *mask](n)
	}
}

// mask is a glyph's coverage quantized to shades, 0 meaning empty and
// 1..GlyphShades mapping to palette slots 0..GlyphShades-1.
type mask struct {
	width, height int
	shade         []uint8
}

// GlyphFace rasterizes glyphs from a font face. A glyph's ImageID is its
// Unicode code point.
//
// The coverage mask of a glyph does not depend on its palette, so masks
// are memoized and only the palette remap runs per (glyph, palette)
// pair.
//
// GlyphFace is safe for concurrent use.
type GlyphFace struct {
	mu     sync.Mutex // font.Face implementations are not goroutine-safe
	face   font.Face
	format gpucore.TextureFormat
	colors color.Palette
	masks  *lru.Cache[texcache.ImageID, *mask]
}

// NewGlyphFace creates a glyph rasterizer over face. A nil face selects
// basicfont.Face7x13.
func NewGlyphFace(face font.Face, opts ...GlyphOption) *GlyphFace {
	if face == nil {
		face = basicfont.Face7x13
	}
	g := &GlyphFace{
		face:   face,
		format: gpucore.TextureFormatR8Uint,
		masks:  lru.New[texcache.ImageID, *mask](defaultMaskCacheSize),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// MaskStats returns statistics of the glyph mask memo.
func (g *GlyphFace) MaskStats() lru.Stats {
	return g.masks.Stats()
}

// RasterizeGlyph renders glyph id coloured with palette.
func (g *GlyphFace) RasterizeGlyph(id texcache.ImageID, palette texcache.GlyphPalette) (*texcache.Bitmap, error) {
	m, err := g.mask(id)
	if err != nil {
		return nil, err
	}

	switch g.format {
	case gpucore.TextureFormatR8Uint:
		bm := texcache.NewBitmap(m.width, m.height, gpucore.TextureFormatR8Uint)
		for i, s := range m.shade {
			if s > 0 {
				bm.Pix[i] = palette[s-1]
			}
		}
		return bm, nil

	case gpucore.TextureFormatRGBA8Unorm:
		if len(g.colors) == 0 {
			return nil, fmt.Errorf("raster: glyph %d: RGBA output needs glyph colours", id)
		}
		bm := texcache.NewBitmap(m.width, m.height, gpucore.TextureFormatRGBA8Unorm)
		for i, s := range m.shade {
			if s == 0 {
				continue
			}
			idx := int(palette[s-1])
			if idx >= len(g.colors) {
				continue
			}
			c, _ := color.NRGBAModel.Convert(g.colors[idx]).(color.NRGBA)
			copy(bm.Pix[i*4:], []byte{c.R, c.G, c.B, c.A})
		}
		return bm, nil

	default:
		return nil, fmt.Errorf("raster: glyph %d: %w: %s", id, gpucore.ErrUnsupportedFormat, g.format)
	}
}

// mask returns the memoized coverage mask of glyph id, rendering it on a
// miss.
func (g *GlyphFace) mask(id texcache.ImageID) (*mask, error) {
	if m, ok := g.masks.Get(id); ok {
		return m, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	r := rune(id) //nolint:gosec // glyph ids are code points
	if !utf8.ValidRune(r) {
		return nil, fmt.Errorf("raster: glyph %d: not a code point: %w", id, texcache.ErrAssetNotFound)
	}
	bounds, _, ok := g.face.GlyphBounds(r)
	if !ok {
		return nil, fmt.Errorf("raster: glyph %d (%q): %w", id, r, texcache.ErrAssetNotFound)
	}

	minX := bounds.Min.X.Floor()
	minY := bounds.Min.Y.Floor()
	w := bounds.Max.X.Ceil() - minX
	h := bounds.Max.Y.Ceil() - minY
	if w <= 0 || h <= 0 {
		// Blank glyphs such as space still need a slot.
		w, h = max(w, 1), max(h, 1)
	}

	alpha := image.NewAlpha(image.Rect(0, 0, w, h))
	d := &font.Drawer{
		Dst:  alpha,
		Src:  image.White,
		Face: g.face,
		Dot:  fixed.P(-minX, -minY),
	}
	d.DrawString(string(r))

	m := &mask{width: w, height: h, shade: make([]uint8, w*h)}
	for i, a := range alpha.Pix {
		m.shade[i] = shadeOf(a)
	}
	g.masks.Add(id, m)
	return m, nil
}

// shadeOf maps 8-bit coverage to 0 (empty) or a shade in 1..GlyphShades.
func shadeOf(a uint8) uint8 {
	if a == 0 {
		return 0
	}
	return uint8(int(a)*GlyphShades/256) + 1 //nolint:gosec // < GlyphShades+1
}
