package texcache

import (
	"errors"
	"fmt"
)

// Sentinel errors for texcache.
var (
	// ErrAssetNotFound is wrapped by rasterizers when the source image for
	// an ID does not exist.
	ErrAssetNotFound = errors.New("texcache: asset not found")

	// ErrImageTooLarge is returned when an image does not fit the largest slot.
	ErrImageTooLarge = errors.New("texcache: image exceeds atlas size")

	// ErrEmptyImage is returned when a rasterizer produces a zero-sized bitmap.
	ErrEmptyImage = errors.New("texcache: rasterized image is empty")

	// ErrFormatMismatch is returned when a bitmap's format differs from the atlas format.
	ErrFormatMismatch = errors.New("texcache: bitmap format does not match atlas format")

	// ErrAtlasLimit is returned when a new atlas is needed but the array
	// texture already has the maximum number of layers.
	ErrAtlasLimit = errors.New("texcache: atlas limit reached")

	// ErrCacheFailed is returned by every get-or-load call after a failed
	// growth of the array texture.
	ErrCacheFailed = errors.New("texcache: cache unusable after storage growth failure")

	// ErrClosed is returned when operating on a closed cache.
	ErrClosed = errors.New("texcache: cache is closed")

	// ErrNilBackend is returned by New when no backend is supplied.
	ErrNilBackend = errors.New("texcache: backend is nil")

	// ErrNilRasterizer is returned by New when no rasterizer is supplied.
	ErrNilRasterizer = errors.New("texcache: rasterizer is nil")

	// ErrUnknownTexture is returned by ReadSlot for coordinates the cache does not own.
	ErrUnknownTexture = errors.New("texcache: coordinates do not belong to this cache")
)

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return "texcache: invalid config." + e.Field + ": " + e.Reason
}

// GrowthError reports a failed growth of the shared array texture.
// The previous texture and every layer in it are left untouched.
type GrowthError struct {
	// From is the layer count before the attempted growth.
	From int
	// To is the requested layer count.
	To int
	// Err is the backend failure.
	Err error
}

func (e *GrowthError) Error() string {
	return fmt.Sprintf("texcache: grow array texture from %d to %d layers: %v", e.From, e.To, e.Err)
}

func (e *GrowthError) Unwrap() error {
	return e.Err
}
