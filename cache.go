package texcache

import (
	"errors"
	"fmt"
	"log/slog"
	"math/bits"

	"github.com/gogpu/texcache/gpucore"
)

// cacheState is the lifecycle state of a TextureCache.
type cacheState uint8

const (
	stateUninitialized cacheState = iota
	stateReady
	stateFailed
	stateClosed
)

// Stats contains cache statistics.
type Stats struct {
	// Hits is the number of get-or-load calls answered from the cache.
	Hits uint64
	// Misses is the number of get-or-load calls that had to rasterize.
	Misses uint64
	// Rasterizations is the number of bitmaps the rasterizer produced.
	// It trails Misses by the number of failed rasterizations.
	Rasterizations uint64
	// Growths is the number of array texture reallocations.
	Growths uint64

	// Images is the number of live sprite entries.
	Images int
	// Glyphs is the number of live glyph entries.
	Glyphs int
	// Atlases is the number of atlases created.
	Atlases int
	// Layers is the layer capacity of the array texture.
	Layers int
}

// AtlasInfo contains information about a single atlas.
type AtlasInfo struct {
	Index       uint32
	ImageSize   int
	Capacity    int
	FreeSlots   int
	Utilization float64
}

// TextureCache packs sprites and glyphs into atlases stored as the layers
// of one shared array texture, loading images through a Rasterizer on
// first use.
//
// TextureCache is NOT safe for concurrent use. All calls must come from
// the goroutine that owns the graphics context.
type TextureCache struct {
	backend gpucore.Backend
	raster  Rasterizer
	cfg     config

	state   cacheState
	failure error

	// edge is the effective atlas edge, layerLimit the maximum atlas count.
	edge       int
	layerLimit int

	layers  *layerArray
	palette *paletteTable
	atlases []*Atlas

	// entries maps sprite and glyph keys to their slots. Values are
	// pointers so that sprite lookups hand out stable references.
	entries map[cacheKey]*CachedTextureInfo
	images  int
	glyphs  int

	hits           uint64
	misses         uint64
	rasterizations uint64
	growths        uint64
}

// New creates a texture cache. No GPU resources are created until the
// first call to Init or to a get-or-load method.
func New(backend gpucore.Backend, raster Rasterizer, opts ...Option) (*TextureCache, error) {
	if backend == nil {
		return nil, ErrNilBackend
	}
	if raster == nil {
		return nil, ErrNilRasterizer
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &TextureCache{
		backend: backend,
		raster:  raster,
		cfg:     cfg,
		entries: make(map[cacheKey]*CachedTextureInfo),
	}, nil
}

// Init creates the palette texture and sizes the atlases against the
// device limits. It is called implicitly by the get-or-load methods and
// is a no-op once the cache is initialized.
func (c *TextureCache) Init() error {
	switch c.state {
	case stateReady:
		return nil
	case stateFailed:
		return fmt.Errorf("%w: %w", ErrCacheFailed, c.failure)
	case stateClosed:
		return ErrClosed
	}

	lim := c.backend.Limits()
	edge := min(c.cfg.atlasSize, lim.MaxTextureDimension2D)
	if edge > 0 {
		// Round down to a power of 2 so slots tile the atlas exactly.
		edge = 1 << (bits.Len(uint(edge)) - 1)
	}
	if edge < c.cfg.smallestSlot {
		return &ConfigError{
			Field:  "AtlasSize",
			Reason: fmt.Sprintf("device maximum %d is below the smallest slot %d", lim.MaxTextureDimension2D, c.cfg.smallestSlot),
		}
	}
	layerLimit := min(edge, lim.MaxTextureArrayLayers)
	if layerLimit < 1 {
		return &ConfigError{Field: "Layers", Reason: "device supports no array layers"}
	}

	palette, err := newPaletteTable(c.backend, c.cfg.label+"_palette", c.cfg.paletteCount, c.cfg.paletteSource)
	if err != nil {
		return fmt.Errorf("texcache: create palette texture: %w", err)
	}

	c.edge = edge
	c.layerLimit = layerLimit
	c.palette = palette
	c.layers = newLayerArray(c.backend, c.cfg.label+"_atlases", edge, c.cfg.format)
	c.state = stateReady

	Logger().Info("texcache: initialized",
		slog.Int("atlasSize", edge),
		slog.Int("layerLimit", layerLimit),
		slog.String("format", c.cfg.format.String()))
	return nil
}

// GetOrLoadImageTexture returns the location of sprite id, rasterizing and
// uploading it on first use.
//
// The returned pointer stays valid, and its contents unchanged, until id
// is invalidated; later loads never move it. Callers must not modify it.
func (c *TextureCache) GetOrLoadImageTexture(id ImageID) (*CachedTextureInfo, error) {
	if err := c.Init(); err != nil {
		return nil, err
	}

	key := spriteKey(id)
	if info, ok := c.entries[key]; ok {
		c.hits++
		return info, nil
	}
	c.misses++

	bm, err := c.raster.RasterizeImage(id)
	if err != nil {
		Logger().Warn("texcache: rasterize image failed", slog.Uint64("image", uint64(id)), slog.Any("error", err))
		return nil, fmt.Errorf("texcache: rasterize image %d: %w", id, err)
	}
	c.rasterizations++

	info, err := c.load(bm)
	if err != nil {
		return nil, fmt.Errorf("texcache: load image %d: %w", id, err)
	}

	c.entries[key] = info
	c.images++
	return info, nil
}

// GetOrLoadGlyphTexture returns the location of glyph id rendered with
// palette, rasterizing and uploading it on first use. The same glyph in
// two palettes occupies two independent slots.
func (c *TextureCache) GetOrLoadGlyphTexture(id ImageID, palette GlyphPalette) (CachedTextureInfo, error) {
	if err := c.Init(); err != nil {
		return CachedTextureInfo{}, err
	}

	key := glyphKey(id, palette)
	if info, ok := c.entries[key]; ok {
		c.hits++
		return *info, nil
	}
	c.misses++

	bm, err := c.raster.RasterizeGlyph(id, palette)
	if err != nil {
		Logger().Warn("texcache: rasterize glyph failed", slog.Uint64("image", uint64(id)), slog.Any("error", err))
		return CachedTextureInfo{}, fmt.Errorf("texcache: rasterize glyph %d: %w", id, err)
	}
	c.rasterizations++

	info, err := c.load(bm)
	if err != nil {
		return CachedTextureInfo{}, fmt.Errorf("texcache: load glyph %d: %w", id, err)
	}

	c.entries[key] = info
	c.glyphs++
	return *info, nil
}

// InvalidateImage drops sprite id and frees its slot. Glyph entries with
// the same ID are not affected. It reports whether id was cached.
func (c *TextureCache) InvalidateImage(id ImageID) bool {
	if c.remove(spriteKey(id)) {
		c.images--
		return true
	}
	return false
}

// InvalidateGlyph drops glyph id rendered with palette and frees its slot.
// It reports whether the glyph was cached.
func (c *TextureCache) InvalidateGlyph(id ImageID, palette GlyphPalette) bool {
	if c.remove(glyphKey(id, palette)) {
		c.glyphs--
		return true
	}
	return false
}

func (c *TextureCache) remove(key cacheKey) bool {
	info, ok := c.entries[key]
	if !ok {
		return false
	}
	c.atlases[info.Index].Free(*info)
	delete(c.entries, key)

	Logger().Debug("texcache: slot freed",
		slog.Uint64("image", uint64(key.image)),
		slog.Uint64("atlas", uint64(info.Index)),
		slog.Uint64("slot", uint64(info.Slot)))
	return true
}

// load places bm in a slot and uploads its pixels.
func (c *TextureCache) load(bm *Bitmap) (*CachedTextureInfo, error) {
	if err := bm.validate(); err != nil {
		return nil, err
	}
	if bm.Format != c.cfg.format {
		return nil, fmt.Errorf("%w: got %s, atlas is %s", ErrFormatMismatch, bm.Format, c.cfg.format)
	}
	if bm.Width > c.edge || bm.Height > c.edge {
		return nil, fmt.Errorf("%w: %dx%d > %d", ErrImageTooLarge, bm.Width, bm.Height, c.edge)
	}

	atlas, err := c.selectAtlas(bm.Width, bm.Height)
	if err != nil {
		return nil, err
	}

	info := atlas.Allocate(bm.Width, bm.Height)
	region := gpucore.Region{
		Layer:  int(info.Index),
		X:      info.Bounds.Min.X,
		Y:      info.Bounds.Min.Y,
		Width:  bm.Width,
		Height: bm.Height,
	}
	if err := c.layers.write(region, bm); err != nil {
		atlas.Free(info)
		Logger().Warn("texcache: upload failed", slog.String("region", region.String()), slog.Any("error", err))
		return nil, fmt.Errorf("upload %s: %w", region, err)
	}
	return &info, nil
}

// selectAtlas returns an atlas of the image's size class with a free
// slot, creating one (and growing the array texture) if none exists.
func (c *TextureCache) selectAtlas(width, height int) (*Atlas, error) {
	for _, a := range c.atlases {
		if a.FreeSlots() > 0 && a.IsSuitable(width, height) {
			return a, nil
		}
	}

	index := len(c.atlases)
	if index >= c.layerLimit {
		return nil, fmt.Errorf("%w: %d atlases", ErrAtlasLimit, c.layerLimit)
	}

	if index >= c.layers.layers() {
		to := min(index+c.cfg.layerGrowth, c.layerLimit)
		if err := c.layers.grow(to); err != nil {
			c.fail(err)
			return nil, err
		}
		c.growths++
	}

	order := SizeOrderMin(width, height, c.cfg.smallestSlot)
	atlas := NewAtlas(uint32(index), 1<<order, c.cfg.smallestSlot) //nolint:gosec // index < layerLimit
	atlas.Initialise(c.edge, c.edge)
	c.atlases = append(c.atlases, atlas)

	Logger().Debug("texcache: atlas created",
		slog.Int("index", index),
		slog.Int("slotSize", atlas.ImageSize()),
		slog.Int("slots", atlas.Capacity()))
	return atlas, nil
}

// fail moves the cache into the failed state after a growth error.
func (c *TextureCache) fail(err error) {
	c.state = stateFailed
	c.failure = err
	Logger().Error("texcache: storage growth failed, cache disabled", slog.Any("error", err))
}

// Err returns the growth failure that disabled the cache, or nil.
func (c *TextureCache) Err() error {
	return c.failure
}

// AtlasTexture returns the shared array texture, or gpucore.InvalidID
// before the first atlas exists. The handle changes when the array grows;
// renderers should fetch it each frame rather than keep it.
func (c *TextureCache) AtlasTexture() gpucore.TextureID {
	if c.layers == nil {
		return gpucore.InvalidID
	}
	return c.layers.tex.ID()
}

// PaletteTexture returns the palette lookup texture, or gpucore.InvalidID
// before Init.
func (c *TextureCache) PaletteTexture() gpucore.TextureID {
	if c.palette == nil {
		return gpucore.InvalidID
	}
	return c.palette.tex.ID()
}

// PaletteToRow returns the palette texture row of palette id.
func (c *TextureCache) PaletteToRow(id PaletteID) int {
	return PaletteToRow(id)
}

// SetPaletteRemap replaces the lookup row of palette id.
func (c *TextureCache) SetPaletteRemap(id PaletteID, remap []uint8) error {
	if err := c.Init(); err != nil {
		return err
	}
	return c.palette.setRow(id, remap)
}

// AtlasSize returns the effective atlas edge, or 0 before Init.
func (c *TextureCache) AtlasSize() int {
	return c.edge
}

// Format returns the atlas pixel format.
func (c *TextureCache) Format() gpucore.TextureFormat {
	return c.cfg.format
}

// ReadSlot reads the pixels of info back from the array texture as
// tightly packed rows. Coordinates whose slot has been freed are rejected
// with ErrUnknownTexture.
func (c *TextureCache) ReadSlot(info CachedTextureInfo) ([]byte, error) {
	if c.state == stateClosed {
		return nil, ErrClosed
	}
	if c.layers == nil || int(info.Index) >= len(c.atlases) || !c.atlases[info.Index].IsLive(info.Slot) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTexture, info)
	}
	return c.layers.read(gpucore.Region{
		Layer:  int(info.Index),
		X:      info.Bounds.Min.X,
		Y:      info.Bounds.Min.Y,
		Width:  info.Width(),
		Height: info.Height(),
	})
}

// ReadLayer reads a whole atlas layer back as tightly packed rows.
func (c *TextureCache) ReadLayer(index int) ([]byte, error) {
	if c.state == stateClosed {
		return nil, ErrClosed
	}
	if c.layers == nil || index < 0 || index >= len(c.atlases) {
		return nil, fmt.Errorf("%w: layer %d", ErrUnknownTexture, index)
	}
	return c.layers.read(gpucore.Region{Layer: index, Width: c.edge, Height: c.edge})
}

// Stats returns cache statistics.
func (c *TextureCache) Stats() Stats {
	s := Stats{
		Hits:           c.hits,
		Misses:         c.misses,
		Rasterizations: c.rasterizations,
		Growths:        c.growths,
		Images:         c.images,
		Glyphs:         c.glyphs,
		Atlases:        len(c.atlases),
	}
	if c.layers != nil {
		s.Layers = c.layers.layers()
	}
	return s
}

// AtlasInfos returns information about all atlases.
func (c *TextureCache) AtlasInfos() []AtlasInfo {
	infos := make([]AtlasInfo, len(c.atlases))
	for i, a := range c.atlases {
		infos[i] = AtlasInfo{
			Index:       a.Index(),
			ImageSize:   a.ImageSize(),
			Capacity:    a.Capacity(),
			FreeSlots:   a.FreeSlots(),
			Utilization: a.Utilization(),
		}
	}
	return infos
}

// Close releases every GPU resource the cache owns. The cache must not be
// used afterwards; get-or-load calls return ErrClosed. Close is idempotent.
func (c *TextureCache) Close() {
	if c.state == stateClosed {
		return
	}
	if c.layers != nil {
		c.layers.release()
	}
	if c.palette != nil {
		c.palette.release()
	}

	c.atlases = nil
	c.entries = make(map[cacheKey]*CachedTextureInfo)
	c.images = 0
	c.glyphs = 0
	c.state = stateClosed

	Logger().Info("texcache: closed")
}

// IsFailed reports whether err means the cache is unusable after a failed
// storage growth.
func IsFailed(err error) bool {
	var ge *GrowthError
	return errors.Is(err, ErrCacheFailed) || errors.As(err, &ge)
}
