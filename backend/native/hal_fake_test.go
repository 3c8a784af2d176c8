//go:build !nogpu

package native

import (
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// The fakes below keep texture and buffer contents in memory so the
// backend's HAL call sequence can be checked without a GPU. Methods the
// backend never calls fall through to the nil embedded interface.

type fakeTexture struct {
	hal.Texture
	width, height, bpp int
	layers             [][]byte
}

func (t *fakeTexture) row(layer, x, y int) []byte {
	off := (y*t.width + x) * t.bpp
	return t.layers[layer][off:]
}

type fakeBuffer struct {
	hal.Buffer
	data []byte
}

type fakeCommandBuffer struct {
	hal.CommandBuffer
	ops []func()
}

type fakeEncoder struct {
	hal.CommandEncoder
	ops []func()
}

func (e *fakeEncoder) BeginEncoding(string) error { return nil }
func (e *fakeEncoder) DiscardEncoding()          { e.ops = nil }

func (e *fakeEncoder) EndEncoding() (hal.CommandBuffer, error) {
	return &fakeCommandBuffer{ops: e.ops}, nil
}

func (e *fakeEncoder) TransitionTextures([]hal.TextureBarrier) {}

func (e *fakeEncoder) CopyTextureToTexture(src, dst hal.Texture, regions []hal.TextureCopy) {
	s, d := src.(*fakeTexture), dst.(*fakeTexture)
	for _, r := range regions {
		e.ops = append(e.ops, func() {
			n := int(r.Size.Width) * s.bpp
			for z := 0; z < int(r.Size.DepthOrArrayLayers); z++ {
				for y := 0; y < int(r.Size.Height); y++ {
					so, do := r.SrcBase.Origin, r.DstBase.Origin
					copy(d.row(int(do.Z)+z, int(do.X), int(do.Y)+y)[:n],
						s.row(int(so.Z)+z, int(so.X), int(so.Y)+y)[:n])
				}
			}
		})
	}
}

func (e *fakeEncoder) CopyTextureToBuffer(src hal.Texture, dst hal.Buffer, regions []hal.BufferTextureCopy) {
	s, d := src.(*fakeTexture), dst.(*fakeBuffer)
	for _, r := range regions {
		e.ops = append(e.ops, func() {
			n := int(r.Size.Width) * s.bpp
			o := r.TextureBase.Origin
			for y := 0; y < int(r.Size.Height); y++ {
				off := int(r.BufferLayout.Offset) + y*int(r.BufferLayout.BytesPerRow)
				copy(d.data[off:off+n], s.row(int(o.Z), int(o.X), int(o.Y)+y)[:n])
			}
		})
	}
}

type fakeDevice struct {
	hal.Device

	textures  int
	buffers   int
	mapped    int
	waitIdles int
	failMap   error
}

func (d *fakeDevice) CreateTexture(desc *hal.TextureDescriptor) (hal.Texture, error) {
	bpp := 1
	if desc.Format == gputypes.TextureFormatRGBA8Unorm {
		bpp = 4
	}
	t := &fakeTexture{width: int(desc.Size.Width), height: int(desc.Size.Height), bpp: bpp}
	for i := 0; i < int(desc.Size.DepthOrArrayLayers); i++ {
		t.layers = append(t.layers, make([]byte, t.width*t.height*bpp))
	}
	d.textures++
	return t, nil
}

func (d *fakeDevice) DestroyTexture(hal.Texture) { d.textures-- }

func (d *fakeDevice) CreateBuffer(desc *hal.BufferDescriptor) (hal.Buffer, error) {
	d.buffers++
	return &fakeBuffer{data: make([]byte, desc.Size)}, nil
}

func (d *fakeDevice) DestroyBuffer(hal.Buffer) { d.buffers-- }

func (d *fakeDevice) MapBuffer(buffer hal.Buffer, offset, _ uint64) (hal.BufferMapping, error) {
	if d.failMap != nil {
		return hal.BufferMapping{}, d.failMap
	}
	d.mapped++
	b := buffer.(*fakeBuffer)
	return hal.BufferMapping{Ptr: unsafe.Pointer(&b.data[offset]), IsCoherent: true}, nil
}

func (d *fakeDevice) UnmapBuffer(hal.Buffer) error {
	d.mapped--
	return nil
}

func (d *fakeDevice) CreateCommandEncoder(*hal.CommandEncoderDescriptor) (hal.CommandEncoder, error) {
	return &fakeEncoder{}, nil
}

func (d *fakeDevice) FreeCommandBuffer(hal.CommandBuffer) {}

func (d *fakeDevice) WaitIdle() error {
	d.waitIdles++
	return nil
}

type fakeQueue struct {
	hal.Queue
	submitted uint64
	writeErr  error
}

func (q *fakeQueue) Submit(cmds []hal.CommandBuffer) (uint64, error) {
	for _, c := range cmds {
		for _, op := range c.(*fakeCommandBuffer).ops {
			op()
		}
	}
	q.submitted++
	return q.submitted, nil
}

func (q *fakeQueue) PollCompleted() uint64 { return q.submitted }

func (q *fakeQueue) WriteTexture(dst *hal.ImageCopyTexture, data []byte, layout *hal.ImageDataLayout, size *hal.Extent3D) error {
	if q.writeErr != nil {
		return q.writeErr
	}
	t := dst.Texture.(*fakeTexture)
	n := int(size.Width) * t.bpp
	for y := 0; y < int(size.Height); y++ {
		src := int(layout.Offset) + y*int(layout.BytesPerRow)
		copy(t.row(int(dst.Origin.Z), int(dst.Origin.X), int(dst.Origin.Y)+y)[:n], data[src:src+n])
	}
	return nil
}
