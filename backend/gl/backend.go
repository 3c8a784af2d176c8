//go:build !nogpu

// Package gl stores texture cache atlases in an OpenGL 4.1 core
// GL_TEXTURE_2D_ARRAY.
//
// The GL context must be current on the calling thread and gl.Init must
// have been called. Applications that run GL on the main thread through
// github.com/faiface/mainthread set Options.MainThread and may then call
// the backend from any goroutine.
//
// OpenGL 4.1 has no image-to-image copy, so CopyLayers reads the source
// back with glGetTexImage and uploads it into the destination.
package gl

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/faiface/mainthread"
	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/gogpu/texcache/gpucore"
)

// Options configures a GL backend.
type Options struct {
	// MainThread routes every GL call through mainthread.Call.
	MainThread bool

	// Limits overrides the limits queried from the driver. Zero fields
	// keep the driver value.
	Limits gpucore.Limits
}

// texture is one GL texture object.
type texture struct {
	obj  uint32
	desc gpucore.TextureDesc
}

// Backend implements gpucore.Backend with OpenGL array textures.
type Backend struct {
	mu         sync.Mutex
	mainThread bool
	limits     gpucore.Limits

	nextID   gpucore.TextureID
	textures map[gpucore.TextureID]*texture
}

// New creates a GL backend and queries the driver limits.
func New(opts Options) *Backend {
	b := &Backend{
		mainThread: opts.MainThread,
		nextID:     1,
		textures:   make(map[gpucore.TextureID]*texture),
	}

	var maxSize, maxLayers int32
	b.call(func() {
		gl.GetIntegerv(gl.MAX_TEXTURE_SIZE, &maxSize)
		gl.GetIntegerv(gl.MAX_ARRAY_TEXTURE_LAYERS, &maxLayers)
	})
	b.limits = gpucore.Limits{
		MaxTextureDimension2D: int(maxSize),
		MaxTextureArrayLayers: int(maxLayers),
	}
	if opts.Limits.MaxTextureDimension2D > 0 {
		b.limits.MaxTextureDimension2D = opts.Limits.MaxTextureDimension2D
	}
	if opts.Limits.MaxTextureArrayLayers > 0 {
		b.limits.MaxTextureArrayLayers = opts.Limits.MaxTextureArrayLayers
	}

	slogger().Info("gl: backend created",
		slog.Int("maxTextureSize", b.limits.MaxTextureDimension2D),
		slog.Int("maxArrayLayers", b.limits.MaxTextureArrayLayers))
	return b
}

// call runs f on the GL thread.
func (b *Backend) call(f func()) {
	if b.mainThread {
		mainthread.Call(f)
		return
	}
	f()
}

// Limits returns the device limits.
func (b *Backend) Limits() gpucore.Limits {
	return b.limits
}

// CreateTexture allocates a GL_TEXTURE_2D_ARRAY.
func (b *Backend) CreateTexture(desc gpucore.TextureDesc) (gpucore.TextureID, error) {
	if err := desc.Validate(b.limits); err != nil {
		return gpucore.InvalidID, err
	}
	f, ok := lookupFormat(desc.Format)
	if !ok {
		return gpucore.InvalidID, fmt.Errorf("%w: %s", gpucore.ErrUnsupportedFormat, desc.Format)
	}

	var obj uint32
	var glErr uint32
	b.call(func() {
		gl.GenTextures(1, &obj)
		restore := bindArray(obj)
		gl.TexImage3D(gl.TEXTURE_2D_ARRAY, 0, f.internal,
			int32(desc.Width), int32(desc.Height), int32(desc.Layers), //nolint:gosec // validated against limits
			0, f.format, gl.UNSIGNED_BYTE, nil)
		// Integer textures are incomplete with filtering min/mag filters.
		gl.TexParameteri(gl.TEXTURE_2D_ARRAY, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
		gl.TexParameteri(gl.TEXTURE_2D_ARRAY, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
		gl.TexParameteri(gl.TEXTURE_2D_ARRAY, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
		gl.TexParameteri(gl.TEXTURE_2D_ARRAY, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
		gl.TexParameteri(gl.TEXTURE_2D_ARRAY, gl.TEXTURE_MAX_LEVEL, 0)
		glErr = gl.GetError()
		restore()
		if glErr != gl.NO_ERROR {
			gl.DeleteTextures(1, &obj)
		}
	})
	if err := checkError("create texture", glErr); err != nil {
		return gpucore.InvalidID, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.textures[id] = &texture{obj: obj, desc: desc}

	slogger().Debug("gl: texture created",
		slog.String("label", desc.Label),
		slog.Uint64("object", uint64(obj)),
		slog.Int("layers", desc.Layers))
	return id, nil
}

// DestroyTexture deletes a texture. Unknown IDs are ignored.
func (b *Backend) DestroyTexture(id gpucore.TextureID) {
	b.mu.Lock()
	tex, ok := b.textures[id]
	if ok {
		delete(b.textures, id)
	}
	b.mu.Unlock()

	if ok {
		b.call(func() {
			gl.DeleteTextures(1, &tex.obj)
		})
	}
}

// WriteTexture uploads data into region with glTexSubImage3D.
func (b *Backend) WriteTexture(id gpucore.TextureID, region gpucore.Region, data []byte, bytesPerRow int) error {
	tex, err := b.lookup(id, region)
	if err != nil {
		return err
	}
	f, _ := lookupFormat(tex.desc.Format)
	bpp := tex.desc.Format.BytesPerPixel()
	rowLen := region.Width * bpp
	if bytesPerRow < rowLen || bytesPerRow%bpp != 0 || len(data) < bytesPerRow*(region.Height-1)+rowLen {
		return fmt.Errorf("%w: %d bytes for %s", gpucore.ErrDataSize, len(data), region)
	}

	var glErr uint32
	b.call(func() {
		restore := bindArray(tex.obj)
		gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
		gl.PixelStorei(gl.UNPACK_ROW_LENGTH, int32(bytesPerRow/bpp)) //nolint:gosec // bounded by region
		gl.TexSubImage3D(gl.TEXTURE_2D_ARRAY, 0,
			int32(region.X), int32(region.Y), int32(region.Layer), //nolint:gosec // validated region
			int32(region.Width), int32(region.Height), 1, //nolint:gosec // validated region
			f.format, gl.UNSIGNED_BYTE, gl.Ptr(data))
		gl.PixelStorei(gl.UNPACK_ROW_LENGTH, 0)
		glErr = gl.GetError()
		restore()
	})
	return checkError("upload", glErr)
}

// CopyLayers copies layers [0, layers) of src into dst through client
// memory.
func (b *Backend) CopyLayers(src, dst gpucore.TextureID, layers int) error {
	b.mu.Lock()
	s, sok := b.textures[src]
	d, dok := b.textures[dst]
	b.mu.Unlock()
	if !sok {
		return fmt.Errorf("%w: source %d", gpucore.ErrTextureNotFound, src)
	}
	if !dok {
		return fmt.Errorf("%w: destination %d", gpucore.ErrTextureNotFound, dst)
	}
	if s.desc.Width != d.desc.Width || s.desc.Height != d.desc.Height || s.desc.Format != d.desc.Format {
		return fmt.Errorf("%w: copy between %s and %s", gpucore.ErrInvalidDimensions, s.desc.Label, d.desc.Label)
	}
	if layers > s.desc.Layers || layers > d.desc.Layers {
		return fmt.Errorf("%w: copy of %d layers", gpucore.ErrRegionOutOfBounds, layers)
	}

	f, _ := lookupFormat(s.desc.Format)
	pixels := make([]byte, layerBytes(s.desc)*s.desc.Layers)

	var glErr uint32
	b.call(func() {
		restore := bindArray(s.obj)
		gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
		gl.GetTexImage(gl.TEXTURE_2D_ARRAY, 0, f.format, gl.UNSIGNED_BYTE, gl.Ptr(pixels))

		gl.BindTexture(gl.TEXTURE_2D_ARRAY, d.obj)
		gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
		gl.TexSubImage3D(gl.TEXTURE_2D_ARRAY, 0, 0, 0, 0,
			int32(s.desc.Width), int32(s.desc.Height), int32(layers), //nolint:gosec // validated at creation
			f.format, gl.UNSIGNED_BYTE, gl.Ptr(pixels))
		glErr = gl.GetError()
		restore()
	})
	return checkError("copy layers", glErr)
}

// ReadTexture reads region back with glGetTexImage.
func (b *Backend) ReadTexture(id gpucore.TextureID, region gpucore.Region) ([]byte, error) {
	tex, err := b.lookup(id, region)
	if err != nil {
		return nil, err
	}
	f, _ := lookupFormat(tex.desc.Format)
	pixels := make([]byte, layerBytes(tex.desc)*tex.desc.Layers)

	var glErr uint32
	b.call(func() {
		restore := bindArray(tex.obj)
		gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
		gl.GetTexImage(gl.TEXTURE_2D_ARRAY, 0, f.format, gl.UNSIGNED_BYTE, gl.Ptr(pixels))
		glErr = gl.GetError()
		restore()
	})
	if err := checkError("read back", glErr); err != nil {
		return nil, err
	}
	return extract(pixels, tex.desc, region), nil
}

// TextureObject returns the GL texture name behind id for binding.
func (b *Backend) TextureObject(id gpucore.TextureID) (uint32, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	tex, ok := b.textures[id]
	if !ok {
		return 0, false
	}
	return tex.obj, true
}

func (b *Backend) lookup(id gpucore.TextureID, region gpucore.Region) (*texture, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tex, ok := b.textures[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", gpucore.ErrTextureNotFound, id)
	}
	if !region.Within(tex.desc) {
		return nil, fmt.Errorf("%w: %s", gpucore.ErrRegionOutOfBounds, region)
	}
	return tex, nil
}

// bindArray binds obj to GL_TEXTURE_2D_ARRAY and returns a function that
// restores the previous binding.
func bindArray(obj uint32) (restore func()) {
	var prev int32
	gl.GetIntegerv(gl.TEXTURE_BINDING_2D_ARRAY, &prev)
	gl.BindTexture(gl.TEXTURE_2D_ARRAY, obj)
	return func() {
		gl.BindTexture(gl.TEXTURE_2D_ARRAY, uint32(prev)) //nolint:gosec // GL names are non-negative
	}
}

var _ gpucore.Backend = (*Backend)(nil)
