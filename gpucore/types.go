package gpucore

import "fmt"

// TextureID is an opaque handle to a GPU texture.
type TextureID uint64

// InvalidID is the zero value, representing an invalid/null resource.
const InvalidID TextureID = 0

// TextureFormat specifies the format of texture data.
type TextureFormat uint32

// Texture formats.
const (
	// TextureFormatR8Uint is a single 8-bit unsigned integer channel.
	// Atlases in this format hold palette indices, which the renderer
	// resolves through the palette lookup texture.
	TextureFormatR8Uint TextureFormat = iota + 1

	// TextureFormatRGBA8Unorm is 8-bit RGBA, normalized unsigned integer.
	TextureFormatRGBA8Unorm
)

// String returns a human-readable name for the format.
func (f TextureFormat) String() string {
	switch f {
	case TextureFormatR8Uint:
		return "R8Uint"
	case TextureFormatRGBA8Unorm:
		return "RGBA8Unorm"
	default:
		return fmt.Sprintf("Unknown(%d)", uint32(f))
	}
}

// BytesPerPixel returns the number of bytes per pixel for the format.
// Unknown formats report 0.
func (f TextureFormat) BytesPerPixel() int {
	switch f {
	case TextureFormatR8Uint:
		return 1
	case TextureFormatRGBA8Unorm:
		return 4
	default:
		return 0
	}
}

// Valid reports whether f is one of the known formats.
func (f TextureFormat) Valid() bool {
	return f.BytesPerPixel() > 0
}

// Limits are the device limits the cache sizes its storage against.
type Limits struct {
	// MaxTextureDimension2D is the largest width or height of a 2D texture
	// (and of each layer of a 2D array texture).
	MaxTextureDimension2D int

	// MaxTextureArrayLayers is the largest layer count of a 2D array texture.
	MaxTextureArrayLayers int
}

// DefaultLimits returns the WebGPU baseline limits.
func DefaultLimits() Limits {
	return Limits{
		MaxTextureDimension2D: 8192,
		MaxTextureArrayLayers: 256,
	}
}

// TextureDesc describes a 2D or 2D array texture.
type TextureDesc struct {
	// Label is an optional debug label.
	Label string

	// Width is the width of each layer in pixels.
	Width int

	// Height is the height of each layer in pixels.
	Height int

	// Layers is the array layer count. Plain 2D textures use 1.
	Layers int

	// Format is the pixel format.
	Format TextureFormat
}

// Validate checks the descriptor against lim.
func (d TextureDesc) Validate(lim Limits) error {
	if d.Width <= 0 || d.Height <= 0 || d.Layers <= 0 {
		return fmt.Errorf("%w: %dx%d with %d layers", ErrInvalidDimensions, d.Width, d.Height, d.Layers)
	}
	if d.Width > lim.MaxTextureDimension2D || d.Height > lim.MaxTextureDimension2D {
		return fmt.Errorf("%w: %dx%d exceeds %d", ErrLimitExceeded, d.Width, d.Height, lim.MaxTextureDimension2D)
	}
	if d.Layers > lim.MaxTextureArrayLayers {
		return fmt.Errorf("%w: %d layers exceeds %d", ErrLimitExceeded, d.Layers, lim.MaxTextureArrayLayers)
	}
	if !d.Format.Valid() {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, d.Format)
	}
	return nil
}

// Region is a rectangle inside one layer of a texture.
type Region struct {
	Layer  int
	X, Y   int
	Width  int
	Height int
}

// String returns a string representation of the region.
func (r Region) String() string {
	return fmt.Sprintf("Region(layer %d, %d,%d %dx%d)", r.Layer, r.X, r.Y, r.Width, r.Height)
}

// Within reports whether r lies inside a texture described by d.
func (r Region) Within(d TextureDesc) bool {
	return r.Layer >= 0 && r.Layer < d.Layers &&
		r.X >= 0 && r.Y >= 0 && r.Width > 0 && r.Height > 0 &&
		r.X+r.Width <= d.Width && r.Y+r.Height <= d.Height
}
