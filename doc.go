// Package texcache provides a GPU-resident texture atlas cache for sprites
// and glyphs.
//
// # Overview
//
// A renderer that draws thousands of small images per frame wants them in
// as few textures as possible. texcache packs every image it is asked for
// into square power-of-two slots of fixed-size atlases, and stores all
// atlases as layers of a single 2D array texture. A draw call then only
// needs the array texture, the palette lookup texture and the coordinates
// returned by the cache.
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/texcache"
//	    "github.com/gogpu/texcache/backend/memory"
//	)
//
//	backend := memory.New(memory.Options{})
//	cache, err := texcache.New(backend, rasterizer)
//	if err != nil {
//	    return err
//	}
//	defer cache.Close()
//
//	info, err := cache.GetOrLoadImageTexture(id)
//	if err != nil {
//	    return err
//	}
//	// info.Index is the array layer, info.NormalizedBounds the UV rectangle.
//
// # Size Classes
//
// An image of size w×h lands in size class
// ceil(log2(max(w, h, smallest slot))). Each atlas holds slots of exactly
// one class, so a 10×10 and a 32×32 image share an atlas while a 33×33
// image goes to the 64 px class. Atlases are always as large as the
// configured atlas edge (2048 by default), so an order-5 atlas holds
// (2048/32)² = 4096 slots.
//
// # Growth
//
// The array texture starts empty and gains a layer whenever a new atlas is
// created. Array textures cannot be resized in place, so growth allocates
// a larger texture, copies every existing layer into it and only then
// releases the old one. Coordinates handed out before the growth stay
// valid. If the device refuses the allocation the cache enters a failed
// state and every later get-or-load call returns [ErrCacheFailed].
//
// # Glyphs
//
// Glyphs are cached by image ID and [GlyphPalette] together; the same glyph
// drawn in two palettes occupies two slots. [TextureCache.InvalidateImage]
// never touches glyph entries; use [TextureCache.InvalidateGlyph] for those.
//
// # Threading
//
// A TextureCache is NOT safe for concurrent use. Call it from the goroutine
// that owns the graphics context.
package texcache
