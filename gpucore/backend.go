package gpucore

import "errors"

// Backend errors shared by all implementations.
var (
	// ErrInvalidDimensions is returned for non-positive sizes or layer counts.
	ErrInvalidDimensions = errors.New("gpucore: invalid texture dimensions")

	// ErrLimitExceeded is returned when a descriptor exceeds device limits.
	ErrLimitExceeded = errors.New("gpucore: device limit exceeded")

	// ErrUnsupportedFormat is returned for formats a backend cannot store.
	ErrUnsupportedFormat = errors.New("gpucore: unsupported texture format")

	// ErrTextureNotFound is returned for unknown or destroyed texture IDs.
	ErrTextureNotFound = errors.New("gpucore: texture not found")

	// ErrRegionOutOfBounds is returned when a region is outside the texture.
	ErrRegionOutOfBounds = errors.New("gpucore: region is outside texture bounds")

	// ErrDataSize is returned when an upload buffer is too small for its region.
	ErrDataSize = errors.New("gpucore: data does not cover region")

	// ErrOutOfMemory is returned when the device cannot allocate a texture.
	ErrOutOfMemory = errors.New("gpucore: out of device memory")
)

// Backend abstracts the graphics API the texture cache stores pixels in.
//
// Implementations are driven from a single goroutine (the one owning the
// graphics context) and need not be safe for concurrent use.
//
// Resource lifecycle:
//   - Textures are created via CreateTexture
//   - Textures must be explicitly destroyed via DestroyTexture
//   - IDs become invalid after destruction and must not be reused
type Backend interface {
	// Limits returns the device limits.
	Limits() Limits

	// CreateTexture creates a 2D texture (Layers == 1) or a 2D array
	// texture. Contents are undefined until written; implementations
	// that can cheaply zero them should.
	CreateTexture(desc TextureDesc) (TextureID, error)

	// DestroyTexture releases a texture. Unknown IDs are ignored.
	DestroyTexture(id TextureID)

	// WriteTexture uploads a sub-rectangle of pixels into one layer.
	// data is tightly packed rows of bytesPerRow bytes each.
	WriteTexture(id TextureID, region Region, data []byte, bytesPerRow int) error

	// CopyLayers copies layers [0, layers) of src into the same layers
	// of dst. Both textures must share format and layer dimensions.
	// This is the copy-forward step of array texture growth.
	CopyLayers(src, dst TextureID, layers int) error

	// ReadTexture reads back a sub-rectangle of one layer as tightly
	// packed rows. It may stall until the GPU is idle.
	ReadTexture(id TextureID, region Region) ([]byte, error)
}
