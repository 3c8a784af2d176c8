//go:build !nogpu

// Package native stores texture cache atlases on the GPU through the
// gogpu/wgpu HAL.
//
// Atlases live in one 2D array texture; uploads go through
// queue.WriteTexture, growth copies layers with a texture-to-texture copy,
// and readback goes through a mapped staging buffer. Copies are
// synchronous: each submits its own command buffer and waits for the
// device to go idle.
package native

import (
	"fmt"
	"log/slog"
	"sync"
	"unsafe"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/texcache/gpucore"
)

// texture is one HAL texture and the descriptor it was created from.
type texture struct {
	hal  hal.Texture
	desc gpucore.TextureDesc
}

// Backend implements gpucore.Backend on a HAL device.
//
// Backend is safe for concurrent use; each operation holds a mutex.
type Backend struct {
	mu     sync.Mutex
	device hal.Device
	queue  hal.Queue
	limits gpucore.Limits

	nextID   gpucore.TextureID
	textures map[gpucore.TextureID]*texture
}

// New creates a backend on device and queue. If limits is nil, the
// WebGPU default limits are used.
func New(device hal.Device, queue hal.Queue, limits *gputypes.Limits) (*Backend, error) {
	if device == nil || queue == nil {
		return nil, ErrNilHALDevice
	}

	lim := gputypes.DefaultLimits()
	if limits != nil {
		lim = *limits
	}

	return &Backend{
		device:   device,
		queue:    queue,
		limits:   convertLimits(lim),
		nextID:   1, // 0 is invalid
		textures: make(map[gpucore.TextureID]*texture),
	}, nil
}

// NewFromProvider creates a backend sharing the device of a host
// application, such as a gogpu window. The provider must also expose
// HalDevice() and HalQueue() returning hal.Device and hal.Queue.
func NewFromProvider(provider gpucontext.DeviceProvider, limits *gputypes.Limits) (*Backend, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNoHALProvider
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is %T", ErrNoHALProvider, hp.HalDevice())
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is %T", ErrNoHALProvider, hp.HalQueue())
	}

	slogger().Info("native: using shared GPU device", slog.Any("surfaceFormat", provider.SurfaceFormat()))
	return New(device, queue, limits)
}

// Limits returns the device limits.
func (b *Backend) Limits() gpucore.Limits {
	return b.limits
}

// CreateTexture creates a 2D array texture.
func (b *Backend) CreateTexture(desc gpucore.TextureDesc) (gpucore.TextureID, error) {
	if err := desc.Validate(b.limits); err != nil {
		return gpucore.InvalidID, err
	}
	format, ok := convertTextureFormat(desc.Format)
	if !ok {
		return gpucore.InvalidID, fmt.Errorf("%w: %s", gpucore.ErrUnsupportedFormat, desc.Format)
	}

	tex, err := b.device.CreateTexture(&hal.TextureDescriptor{
		Label: desc.Label,
		Size: hal.Extent3D{
			Width:              uint32(desc.Width),  //nolint:gosec // validated against limits
			Height:             uint32(desc.Height), //nolint:gosec // validated against limits
			DepthOrArrayLayers: uint32(desc.Layers), //nolint:gosec // validated against limits
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         textureUsage,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("%w: %w", gpucore.ErrOutOfMemory, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.textures[id] = &texture{hal: tex, desc: desc}

	slogger().Debug("native: texture created",
		slog.String("label", desc.Label),
		slog.Int("width", desc.Width),
		slog.Int("layers", desc.Layers),
		slog.String("format", desc.Format.String()))
	return id, nil
}

// DestroyTexture releases a texture. Unknown IDs are ignored.
func (b *Backend) DestroyTexture(id gpucore.TextureID) {
	b.mu.Lock()
	tex, ok := b.textures[id]
	if ok {
		delete(b.textures, id)
	}
	b.mu.Unlock()

	if ok {
		b.device.DestroyTexture(tex.hal)
	}
}

// WriteTexture uploads data into region.
func (b *Backend) WriteTexture(id gpucore.TextureID, region gpucore.Region, data []byte, bytesPerRow int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	tex, err := b.lookup(id, region)
	if err != nil {
		return err
	}
	rowLen := region.Width * tex.desc.Format.BytesPerPixel()
	if bytesPerRow < rowLen || len(data) < bytesPerRow*(region.Height-1)+rowLen {
		return fmt.Errorf("%w: %d bytes for %s", gpucore.ErrDataSize, len(data), region)
	}

	err = b.queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  tex.hal,
			MipLevel: 0,
			Origin:   origin(region),
			Aspect:   gputypes.TextureAspectAll,
		},
		data,
		&hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  uint32(bytesPerRow),   //nolint:gosec // bounded by region size
			RowsPerImage: uint32(region.Height), //nolint:gosec // bounded by region size
		},
		&hal.Extent3D{
			Width:              uint32(region.Width),  //nolint:gosec // validated region
			Height:             uint32(region.Height), //nolint:gosec // validated region
			DepthOrArrayLayers: 1,
		},
	)
	if err != nil {
		return fmt.Errorf("upload %s: %w", region, err)
	}
	return nil
}

// CopyLayers copies layers [0, layers) of src into dst on the GPU and
// waits for the copy to finish, so src can be destroyed right after.
func (b *Backend) CopyLayers(src, dst gpucore.TextureID, layers int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.textures[src]
	if !ok {
		return fmt.Errorf("%w: source %d", gpucore.ErrTextureNotFound, src)
	}
	d, ok := b.textures[dst]
	if !ok {
		return fmt.Errorf("%w: destination %d", gpucore.ErrTextureNotFound, dst)
	}
	if s.desc.Width != d.desc.Width || s.desc.Height != d.desc.Height || s.desc.Format != d.desc.Format {
		return fmt.Errorf("%w: copy between %s and %s", gpucore.ErrInvalidDimensions, s.desc.Label, d.desc.Label)
	}
	if layers > s.desc.Layers || layers > d.desc.Layers {
		return fmt.Errorf("%w: copy of %d layers", gpucore.ErrRegionOutOfBounds, layers)
	}

	return b.submit("texcache_grow", func(enc hal.CommandEncoder) error {
		enc.TransitionTextures([]hal.TextureBarrier{
			{Texture: s.hal, Usage: hal.TextureUsageTransition{
				OldUsage: gputypes.TextureUsageTextureBinding, NewUsage: gputypes.TextureUsageCopySrc,
			}},
			{Texture: d.hal, Usage: hal.TextureUsageTransition{
				OldUsage: gputypes.TextureUsageTextureBinding, NewUsage: gputypes.TextureUsageCopyDst,
			}},
		})
		enc.CopyTextureToTexture(s.hal, d.hal, []hal.TextureCopy{{
			SrcBase: hal.ImageCopyTexture{Texture: s.hal, Aspect: gputypes.TextureAspectAll},
			DstBase: hal.ImageCopyTexture{Texture: d.hal, Aspect: gputypes.TextureAspectAll},
			Size: hal.Extent3D{
				Width:              uint32(s.desc.Width),  //nolint:gosec // validated at creation
				Height:             uint32(s.desc.Height), //nolint:gosec // validated at creation
				DepthOrArrayLayers: uint32(layers),        //nolint:gosec // bounded by layer count
			},
		}})
		enc.TransitionTextures([]hal.TextureBarrier{
			{Texture: d.hal, Usage: hal.TextureUsageTransition{
				OldUsage: gputypes.TextureUsageCopyDst, NewUsage: gputypes.TextureUsageTextureBinding,
			}},
		})
		return nil
	})
}

// ReadTexture reads region back through a staging buffer and returns it
// as tightly packed rows.
func (b *Backend) ReadTexture(id gpucore.TextureID, region gpucore.Region) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tex, err := b.lookup(id, region)
	if err != nil {
		return nil, err
	}

	rowLen := region.Width * tex.desc.Format.BytesPerPixel()
	paddedRow := alignedRowBytes(rowLen)
	size := uint64(paddedRow) * uint64(region.Height) //nolint:gosec // validated region

	staging, err := b.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "texcache_readback",
		Size:  size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create staging buffer: %w", err)
	}
	defer b.device.DestroyBuffer(staging)

	err = b.submit("texcache_readback", func(enc hal.CommandEncoder) error {
		enc.CopyTextureToBuffer(tex.hal, staging, []hal.BufferTextureCopy{{
			BufferLayout: hal.ImageDataLayout{
				Offset:       0,
				BytesPerRow:  uint32(paddedRow),     //nolint:gosec // small
				RowsPerImage: uint32(region.Height), //nolint:gosec // validated region
			},
			TextureBase: hal.ImageCopyTexture{Texture: tex.hal, Origin: origin(region), Aspect: gputypes.TextureAspectAll},
			Size: hal.Extent3D{
				Width:              uint32(region.Width),  //nolint:gosec // validated region
				Height:             uint32(region.Height), //nolint:gosec // validated region
				DepthOrArrayLayers: 1,
			},
		}})
		return nil
	})
	if err != nil {
		return nil, err
	}

	mapping, err := b.device.MapBuffer(staging, 0, size)
	if err != nil {
		return nil, fmt.Errorf("map staging buffer: %w", err)
	}
	mapped := unsafe.Slice((*byte)(mapping.Ptr), size)
	out := unpadRows(mapped, rowLen, paddedRow, region.Height)
	if err := b.device.UnmapBuffer(staging); err != nil {
		slogger().Warn("native: unmap staging buffer failed", slog.Any("error", err))
	}
	return out, nil
}

// submit records one command buffer with record, submits it and blocks
// until the device is idle, so the copy has landed when submit returns.
func (b *Backend) submit(label string, record func(hal.CommandEncoder) error) error {
	enc, err := b.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := enc.BeginEncoding(label); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}
	if err := record(enc); err != nil {
		enc.DiscardEncoding()
		return err
	}
	cmd, err := enc.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	defer b.device.FreeCommandBuffer(cmd)

	index, err := b.queue.Submit([]hal.CommandBuffer{cmd})
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	if err := b.device.WaitIdle(); err != nil {
		return fmt.Errorf("wait for GPU: %w", err)
	}

	slogger().Debug("native: copy completed",
		slog.String("label", label),
		slog.Uint64("submission", index),
		slog.Uint64("completed", b.queue.PollCompleted()))
	return nil
}

// lookup returns the texture for id after checking region against it.
// Must be called with mu held.
func (b *Backend) lookup(id gpucore.TextureID, region gpucore.Region) (*texture, error) {
	tex, ok := b.textures[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", gpucore.ErrTextureNotFound, id)
	}
	if !region.Within(tex.desc) {
		return nil, fmt.Errorf("%w: %s", gpucore.ErrRegionOutOfBounds, region)
	}
	return tex, nil
}

// origin returns the copy origin of region; Z selects the array layer.
func origin(r gpucore.Region) hal.Origin3D {
	return hal.Origin3D{
		X: uint32(r.X),     //nolint:gosec // validated region
		Y: uint32(r.Y),     //nolint:gosec // validated region
		Z: uint32(r.Layer), //nolint:gosec // validated region
	}
}

// unpadRows copies each row out of padded, dropping the alignment
// padding. The result never aliases padded, which may be mapped memory.
func unpadRows(padded []byte, rowLen, paddedRow, rows int) []byte {
	out := make([]byte, rowLen*rows)
	if rowLen == paddedRow {
		copy(out, padded)
		return out
	}
	for y := 0; y < rows; y++ {
		copy(out[y*rowLen:(y+1)*rowLen], padded[y*paddedRow:y*paddedRow+rowLen])
	}
	return out
}

var _ gpucore.Backend = (*Backend)(nil)
