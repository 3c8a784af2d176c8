package texcache

import "github.com/gogpu/texcache/gpucore"

// Option configures a TextureCache during creation.
//
// Example:
//
//	// Defaults: 2048 px atlases, 32 px smallest slot, R8 palette indices
//	cache, err := texcache.New(backend, rasterizer)
//
//	// True-colour sprites in 1024 px atlases
//	cache, err := texcache.New(backend, rasterizer,
//	    texcache.WithAtlasSize(1024),
//	    texcache.WithFormat(gpucore.TextureFormatRGBA8Unorm))
type Option func(*config)

// config holds the cache configuration.
type config struct {
	atlasSize     int
	smallestSlot  int
	format        gpucore.TextureFormat
	layerGrowth   int
	paletteCount  int
	paletteSource PaletteSource
	label         string
}

// defaultConfig returns the default cache configuration.
func defaultConfig() config {
	return config{
		atlasSize:    DefaultAtlasSize,
		smallestSlot: DefaultSmallestSlot,
		format:       gpucore.TextureFormatR8Uint,
		layerGrowth:  1,
		paletteCount: DefaultPaletteCount,
		label:        "texcache",
	}
}

// validate checks if the configuration is valid.
func (c *config) validate() error {
	if c.atlasSize < 1 || c.atlasSize&(c.atlasSize-1) != 0 {
		return &ConfigError{Field: "AtlasSize", Reason: "must be a positive power of 2"}
	}
	if c.smallestSlot < 1 || c.smallestSlot&(c.smallestSlot-1) != 0 {
		return &ConfigError{Field: "SmallestSlot", Reason: "must be a positive power of 2"}
	}
	if c.smallestSlot > c.atlasSize {
		return &ConfigError{Field: "SmallestSlot", Reason: "must be at most AtlasSize"}
	}
	if !c.format.Valid() {
		return &ConfigError{Field: "Format", Reason: "unsupported format " + c.format.String()}
	}
	if c.layerGrowth < 1 {
		return &ConfigError{Field: "LayerGrowth", Reason: "must be at least 1"}
	}
	if c.paletteCount < 1 {
		return &ConfigError{Field: "PaletteCount", Reason: "must be at least 1"}
	}
	return nil
}

// WithAtlasSize sets the edge of every atlas in pixels. The effective edge
// is further capped by the device's maximum 2D texture dimension.
// Default: 2048.
func WithAtlasSize(size int) Option {
	return func(c *config) {
		c.atlasSize = size
	}
}

// WithSmallestSlot sets the edge of the smallest slot class. Default: 32.
func WithSmallestSlot(size int) Option {
	return func(c *config) {
		c.smallestSlot = size
	}
}

// WithFormat sets the atlas pixel format. Rasterizers must produce
// bitmaps in this format. Default: gpucore.TextureFormatR8Uint.
func WithFormat(format gpucore.TextureFormat) Option {
	return func(c *config) {
		c.format = format
	}
}

// WithLayerGrowth sets how many layers the array texture gains each time
// it has to grow. Larger steps mean fewer copy-forward reallocations at
// the cost of unused layers. Default: 1.
func WithLayerGrowth(layers int) Option {
	return func(c *config) {
		c.layerGrowth = layers
	}
}

// WithPalettes sets the number of palettes in the lookup texture and the
// source their remap rows are read from. A nil source leaves every row
// as the identity remap.
func WithPalettes(count int, src PaletteSource) Option {
	return func(c *config) {
		c.paletteCount = count
		c.paletteSource = src
	}
}

// WithLabel sets the debug label prefix of the cache's textures.
func WithLabel(label string) Option {
	return func(c *config) {
		c.label = label
	}
}
