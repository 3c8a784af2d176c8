package texcache

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/gogpu/texcache/backend/memory"
	"github.com/gogpu/texcache/gpucore"
)

// fakeRasterizer renders deterministic bitmaps and counts its calls.
type fakeRasterizer struct {
	format gpucore.TextureFormat

	// sizes overrides the default 20x20 size per image.
	sizes   map[ImageID][2]int
	missing map[ImageID]bool

	imageCalls int
	glyphCalls int
}

func newFakeRasterizer() *fakeRasterizer {
	return &fakeRasterizer{
		format:  gpucore.TextureFormatR8Uint,
		sizes:   make(map[ImageID][2]int),
		missing: make(map[ImageID]bool),
	}
}

func (r *fakeRasterizer) size(id ImageID) (int, int) {
	if s, ok := r.sizes[id]; ok {
		return s[0], s[1]
	}
	return 20, 20
}

// fill writes a pattern unique to (id, seed) into bm.
func (r *fakeRasterizer) fill(bm *Bitmap, id ImageID, seed byte) {
	for i := range bm.Pix {
		bm.Pix[i] = byte(int(id)*31+i*7) ^ seed
	}
}

func (r *fakeRasterizer) RasterizeImage(id ImageID) (*Bitmap, error) {
	r.imageCalls++
	if r.missing[id] {
		return nil, fmt.Errorf("image %d: %w", id, ErrAssetNotFound)
	}
	w, h := r.size(id)
	bm := NewBitmap(w, h, r.format)
	r.fill(bm, id, 0)
	return bm, nil
}

func (r *fakeRasterizer) RasterizeGlyph(id ImageID, palette GlyphPalette) (*Bitmap, error) {
	r.glyphCalls++
	if r.missing[id] {
		return nil, fmt.Errorf("glyph %d: %w", id, ErrAssetNotFound)
	}
	bm := NewBitmap(8, 12, r.format)
	r.fill(bm, id, palette[0]^palette[11])
	return bm, nil
}

// expected returns the pixels fakeRasterizer produces for sprite id.
func (r *fakeRasterizer) expected(id ImageID) []byte {
	w, h := r.size(id)
	bm := NewBitmap(w, h, r.format)
	r.fill(bm, id, 0)
	return bm.Pix
}

// failingBackend wraps the memory backend and fails chosen operations.
type failingBackend struct {
	*memory.Backend

	// failLayers makes CreateTexture fail for textures with at least
	// this many layers. Zero disables it.
	failLayers int
	failCopy   bool
	failWrite  bool
}

func (b *failingBackend) CreateTexture(desc gpucore.TextureDesc) (gpucore.TextureID, error) {
	if b.failLayers > 0 && desc.Layers >= b.failLayers {
		return gpucore.InvalidID, gpucore.ErrOutOfMemory
	}
	return b.Backend.CreateTexture(desc)
}

func (b *failingBackend) CopyLayers(src, dst gpucore.TextureID, layers int) error {
	if b.failCopy {
		return errors.New("device lost")
	}
	return b.Backend.CopyLayers(src, dst, layers)
}

func (b *failingBackend) WriteTexture(id gpucore.TextureID, region gpucore.Region, data []byte, bytesPerRow int) error {
	if b.failWrite && region.Width != PaletteWidth {
		return errors.New("upload rejected")
	}
	return b.Backend.WriteTexture(id, region, data, bytesPerRow)
}

func newTestCache(t *testing.T, r Rasterizer, opts ...Option) *TextureCache {
	t.Helper()
	return newTestCacheOn(t, memory.New(memory.Options{}), r, opts...)
}

func newTestCacheOn(t *testing.T, b gpucore.Backend, r Rasterizer, opts ...Option) *TextureCache {
	t.Helper()
	c, err := New(b, r, opts...)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestNew_Errors(t *testing.T) {
	b := memory.New(memory.Options{})
	if _, err := New(nil, newFakeRasterizer()); !errors.Is(err, ErrNilBackend) {
		t.Errorf("New(nil backend) error = %v, want ErrNilBackend", err)
	}
	if _, err := New(b, nil); !errors.Is(err, ErrNilRasterizer) {
		t.Errorf("New(nil rasterizer) error = %v, want ErrNilRasterizer", err)
	}

	_, err := New(b, newFakeRasterizer(), WithAtlasSize(1000))
	var ce *ConfigError
	if !errors.As(err, &ce) || ce.Field != "AtlasSize" {
		t.Errorf("New(WithAtlasSize(1000)) error = %v, want AtlasSize ConfigError", err)
	}
}

func TestTextureCache_Lazy(t *testing.T) {
	b := memory.New(memory.Options{})
	c := newTestCacheOn(t, b, newFakeRasterizer())

	if n := b.Stats().TextureCount; n != 0 {
		t.Errorf("New() created %d textures, want 0", n)
	}
	if c.AtlasTexture() != gpucore.InvalidID || c.PaletteTexture() != gpucore.InvalidID {
		t.Error("textures exposed before first use")
	}

	if _, err := c.GetOrLoadImageTexture(1); err != nil {
		t.Fatalf("GetOrLoadImageTexture() = %v", err)
	}
	if n := b.Stats().TextureCount; n != 2 {
		t.Errorf("TextureCount = %d after first load, want 2 (atlas + palette)", n)
	}
	if c.AtlasSize() != DefaultAtlasSize {
		t.Errorf("AtlasSize() = %d, want %d", c.AtlasSize(), DefaultAtlasSize)
	}
}

func TestTextureCache_AtlasSizeCappedByDevice(t *testing.T) {
	b := memory.New(memory.Options{Limits: gpucore.Limits{MaxTextureDimension2D: 1000}})
	c := newTestCacheOn(t, b, newFakeRasterizer())

	if err := c.Init(); err != nil {
		t.Fatalf("Init() = %v", err)
	}
	if got := c.AtlasSize(); got != 512 {
		t.Errorf("AtlasSize() = %d, want 512 (1000 rounded down to a power of 2)", got)
	}
}

func TestTextureCache_HitDoesNotRasterize(t *testing.T) {
	r := newFakeRasterizer()
	c := newTestCache(t, r)

	first, err := c.GetOrLoadImageTexture(7)
	if err != nil {
		t.Fatalf("GetOrLoadImageTexture() = %v", err)
	}
	second, err := c.GetOrLoadImageTexture(7)
	if err != nil {
		t.Fatalf("GetOrLoadImageTexture() = %v", err)
	}

	if first != second {
		t.Error("second lookup returned a different pointer")
	}
	if r.imageCalls != 1 {
		t.Errorf("rasterized %d times, want 1", r.imageCalls)
	}
	if s := c.Stats(); s.Hits != 1 || s.Misses != 1 || s.Rasterizations != 1 || s.Images != 1 {
		t.Errorf("Stats() = %+v, want 1 hit, 1 miss, 1 rasterization, 1 image", s)
	}
}

func TestTextureCache_Coordinates(t *testing.T) {
	r := newFakeRasterizer()
	r.sizes[2] = [2]int{10, 30}
	c := newTestCache(t, r)

	a, _ := c.GetOrLoadImageTexture(1)
	b, err := c.GetOrLoadImageTexture(2)
	if err != nil {
		t.Fatalf("GetOrLoadImageTexture() = %v", err)
	}

	if a.Slot != 0 || a.Bounds.Min.X != 0 || a.Bounds.Min.Y != 0 {
		t.Errorf("first image at %v, want slot 0 at the origin", a)
	}
	if b.Index != a.Index || b.Slot != 1 {
		t.Errorf("second image at %v, want atlas %d slot 1", b, a.Index)
	}
	if b.Bounds.Min.X != 32 || b.Width() != 10 || b.Height() != 30 {
		t.Errorf("second image bounds %v, want 10x30 at x=32", b.Bounds)
	}
	if got := b.NormalizedBounds[0]; got != 32.0/2048 {
		t.Errorf("NormalizedBounds u0 = %v, want %v", got, 32.0/2048)
	}
}

func TestTextureCache_PixelsUploaded(t *testing.T) {
	r := newFakeRasterizer()
	r.sizes[3] = [2]int{17, 5}
	c := newTestCache(t, r)

	info, err := c.GetOrLoadImageTexture(3)
	if err != nil {
		t.Fatalf("GetOrLoadImageTexture() = %v", err)
	}
	got, err := c.ReadSlot(*info)
	if err != nil {
		t.Fatalf("ReadSlot() = %v", err)
	}
	if !bytes.Equal(got, r.expected(3)) {
		t.Error("ReadSlot() does not match the rasterized bitmap")
	}
}

func TestTextureCache_SmallAndSlotSizedShareAtlas(t *testing.T) {
	r := newFakeRasterizer()
	r.sizes[1] = [2]int{10, 10}
	r.sizes[2] = [2]int{32, 32}
	r.sizes[3] = [2]int{33, 33}
	c := newTestCache(t, r)

	a, _ := c.GetOrLoadImageTexture(1)
	b, _ := c.GetOrLoadImageTexture(2)
	d, err := c.GetOrLoadImageTexture(3)
	if err != nil {
		t.Fatalf("GetOrLoadImageTexture() = %v", err)
	}

	if a.Index != b.Index {
		t.Errorf("10x10 in atlas %d and 32x32 in atlas %d, want the same", a.Index, b.Index)
	}
	if d.Index == a.Index {
		t.Error("33x33 image shares the order-5 atlas")
	}
	infos := c.AtlasInfos()
	if len(infos) != 2 || infos[0].ImageSize != 32 || infos[1].ImageSize != 64 {
		t.Errorf("AtlasInfos() = %+v, want a 32 px and a 64 px atlas", infos)
	}
}

func TestTextureCache_SecondAtlasWhenFull(t *testing.T) {
	if testing.Short() {
		t.Skip("loads 4097 images")
	}
	r := newFakeRasterizer()
	c := newTestCache(t, r)

	// 2048/32 squared = 4096 order-5 slots per atlas.
	var last *CachedTextureInfo
	for id := ImageID(0); id < 4097; id++ {
		info, err := c.GetOrLoadImageTexture(id)
		if err != nil {
			t.Fatalf("GetOrLoadImageTexture(%d) = %v", id, err)
		}
		if id == 4095 && info.Index != 0 {
			t.Fatalf("image 4095 in atlas %d, want 0", info.Index)
		}
		last = info
	}

	if last.Index != 1 || last.Slot != 0 {
		t.Errorf("image 4096 at %v, want atlas 1 slot 0", last)
	}
	infos := c.AtlasInfos()
	if len(infos) != 2 || infos[0].FreeSlots != 0 || infos[1].ImageSize != 32 {
		t.Errorf("AtlasInfos() = %+v, want a full atlas and a second order-5 atlas", infos)
	}
	if s := c.Stats(); s.Layers != 2 || s.Growths != 2 {
		t.Errorf("Stats() = %+v, want 2 layers after 2 growths", s)
	}
}

func TestTextureCache_InvalidateReload(t *testing.T) {
	r := newFakeRasterizer()
	c := newTestCache(t, r)

	a, _ := c.GetOrLoadImageTexture(1)
	b, _ := c.GetOrLoadImageTexture(2)
	held := *a

	if !c.InvalidateImage(1) {
		t.Fatal("InvalidateImage() = false for a cached image")
	}
	if c.InvalidateImage(1) {
		t.Error("second InvalidateImage() = true")
	}

	// Image 2 keeps its slot while image 1 is gone.
	if again, _ := c.GetOrLoadImageTexture(2); again != b {
		t.Error("invalidating image 1 moved image 2")
	}

	reloaded, err := c.GetOrLoadImageTexture(1)
	if err != nil {
		t.Fatalf("GetOrLoadImageTexture() = %v", err)
	}
	if r.imageCalls != 3 {
		t.Errorf("rasterized %d times, want 3", r.imageCalls)
	}
	if reloaded.Slot == b.Slot && reloaded.Index == b.Index {
		t.Error("reloaded image shares a slot with a live image")
	}
	if reloaded.Slot != held.Slot {
		t.Errorf("reloaded into slot %d, want the freed slot %d", reloaded.Slot, held.Slot)
	}
}

func TestTextureCache_FreedSlotsReusedStackWise(t *testing.T) {
	c := newTestCache(t, newFakeRasterizer())

	for id := ImageID(1); id <= 4; id++ {
		if _, err := c.GetOrLoadImageTexture(id); err != nil {
			t.Fatalf("GetOrLoadImageTexture(%d) = %v", id, err)
		}
	}
	c.InvalidateImage(2) // slot 1
	c.InvalidateImage(4) // slot 3

	next, _ := c.GetOrLoadImageTexture(5)
	after, _ := c.GetOrLoadImageTexture(6)
	if next.Slot != 3 || after.Slot != 1 {
		t.Errorf("reused slots %d, %d, want 3, 1", next.Slot, after.Slot)
	}
}

func TestTextureCache_NoDuplicateLiveSlots(t *testing.T) {
	c := newTestCache(t, newFakeRasterizer(), WithAtlasSize(256))

	live := make(map[ImageID]*CachedTextureInfo)
	for round := 0; round < 5; round++ {
		for id := ImageID(0); id < 40; id++ {
			info, err := c.GetOrLoadImageTexture(id)
			if err != nil {
				t.Fatalf("GetOrLoadImageTexture(%d) = %v", id, err)
			}
			live[id] = info
		}
		for id := ImageID(round); id < 40; id += 3 {
			c.InvalidateImage(id)
			delete(live, id)
		}

		seen := make(map[[2]uint32]ImageID)
		for id, info := range live {
			k := [2]uint32{info.Index, info.Slot}
			if other, dup := seen[k]; dup {
				t.Fatalf("round %d: images %d and %d share atlas %d slot %d", round, id, other, info.Index, info.Slot)
			}
			seen[k] = id
		}
	}
}

func TestTextureCache_Glyphs(t *testing.T) {
	r := newFakeRasterizer()
	c := newTestCache(t, r)

	red := GlyphPalette{0: 1, 11: 2}
	blue := GlyphPalette{0: 3, 11: 9}

	g1, err := c.GetOrLoadGlyphTexture(65, red)
	if err != nil {
		t.Fatalf("GetOrLoadGlyphTexture() = %v", err)
	}
	g2, _ := c.GetOrLoadGlyphTexture(65, blue)
	if g1 == g2 {
		t.Error("same glyph in two palettes got the same coordinates")
	}

	hit, _ := c.GetOrLoadGlyphTexture(65, red)
	if hit != g1 || r.glyphCalls != 2 {
		t.Errorf("glyph hit = %v after %d rasterizations, want %v after 2", hit, r.glyphCalls, g1)
	}

	if !c.InvalidateGlyph(65, red) {
		t.Fatal("InvalidateGlyph() = false for a cached glyph")
	}
	if again, _ := c.GetOrLoadGlyphTexture(65, blue); again != g2 {
		t.Error("invalidating one palette disturbed the other")
	}
	if s := c.Stats(); s.Glyphs != 1 {
		t.Errorf("Stats().Glyphs = %d, want 1", s.Glyphs)
	}
}

func TestTextureCache_InvalidateImageKeepsGlyphs(t *testing.T) {
	r := newFakeRasterizer()
	c := newTestCache(t, r)

	sprite, _ := c.GetOrLoadImageTexture(9)
	glyph, _ := c.GetOrLoadGlyphTexture(9, GlyphPalette{})
	if sprite.Slot == glyph.Slot && sprite.Index == glyph.Index {
		t.Fatal("sprite and glyph with the same id share a slot")
	}

	c.InvalidateImage(9)
	again, _ := c.GetOrLoadGlyphTexture(9, GlyphPalette{})
	if again != glyph || r.glyphCalls != 1 {
		t.Error("InvalidateImage removed a glyph entry")
	}
}

func TestTextureCache_RasterizeFailure(t *testing.T) {
	r := newFakeRasterizer()
	r.missing[4] = true
	c := newTestCache(t, r)

	if _, err := c.GetOrLoadImageTexture(4); !errors.Is(err, ErrAssetNotFound) {
		t.Errorf("GetOrLoadImageTexture() error = %v, want ErrAssetNotFound", err)
	}
	if _, err := c.GetOrLoadGlyphTexture(4, GlyphPalette{}); !errors.Is(err, ErrAssetNotFound) {
		t.Errorf("GetOrLoadGlyphTexture() error = %v, want ErrAssetNotFound", err)
	}

	// Nothing is cached, so the next call tries again.
	delete(r.missing, 4)
	if _, err := c.GetOrLoadImageTexture(4); err != nil {
		t.Fatalf("GetOrLoadImageTexture() after fix = %v", err)
	}
	if r.imageCalls != 2 {
		t.Errorf("rasterized %d times, want 2", r.imageCalls)
	}
	if s := c.Stats(); s.Misses != 3 || s.Rasterizations != 1 {
		t.Errorf("Stats() = %+v, want 3 misses and 1 successful rasterization", s)
	}
}

func TestTextureCache_RejectsBadBitmaps(t *testing.T) {
	r := newFakeRasterizer()
	r.sizes[1] = [2]int{300, 10}
	r.sizes[2] = [2]int{0, 10}
	c := newTestCache(t, r, WithAtlasSize(256))

	if _, err := c.GetOrLoadImageTexture(1); !errors.Is(err, ErrImageTooLarge) {
		t.Errorf("300 px image error = %v, want ErrImageTooLarge", err)
	}
	if _, err := c.GetOrLoadImageTexture(2); !errors.Is(err, ErrEmptyImage) {
		t.Errorf("empty image error = %v, want ErrEmptyImage", err)
	}

	r.format = gpucore.TextureFormatRGBA8Unorm
	if _, err := c.GetOrLoadImageTexture(3); !errors.Is(err, ErrFormatMismatch) {
		t.Errorf("RGBA image error = %v, want ErrFormatMismatch", err)
	}
	if s := c.Stats(); s.Images != 0 || s.Atlases != 0 {
		t.Errorf("Stats() = %+v, want nothing cached", s)
	}
}

func TestTextureCache_RGBA(t *testing.T) {
	r := newFakeRasterizer()
	r.format = gpucore.TextureFormatRGBA8Unorm
	c := newTestCache(t, r, WithFormat(gpucore.TextureFormatRGBA8Unorm))

	info, err := c.GetOrLoadImageTexture(1)
	if err != nil {
		t.Fatalf("GetOrLoadImageTexture() = %v", err)
	}
	got, err := c.ReadSlot(*info)
	if err != nil {
		t.Fatalf("ReadSlot() = %v", err)
	}
	if !bytes.Equal(got, r.expected(1)) {
		t.Error("RGBA slot does not match the rasterized bitmap")
	}
}

func TestTextureCache_GrowthPreservesPixels(t *testing.T) {
	r := newFakeRasterizer()
	r.sizes[100] = [2]int{64, 64}
	r.sizes[101] = [2]int{128, 100}
	c := newTestCache(t, r, WithAtlasSize(256))

	var infos []*CachedTextureInfo
	for id := ImageID(0); id < 10; id++ {
		info, err := c.GetOrLoadImageTexture(id)
		if err != nil {
			t.Fatalf("GetOrLoadImageTexture(%d) = %v", id, err)
		}
		infos = append(infos, info)
	}
	before := c.AtlasTexture()

	// New size classes force two growths.
	for _, id := range []ImageID{100, 101} {
		if _, err := c.GetOrLoadImageTexture(id); err != nil {
			t.Fatalf("GetOrLoadImageTexture(%d) = %v", id, err)
		}
	}
	if c.AtlasTexture() == before {
		t.Error("AtlasTexture() unchanged after growth")
	}
	if s := c.Stats(); s.Layers != 3 || s.Growths != 3 {
		t.Errorf("Stats() = %+v, want 3 layers after 3 growths", s)
	}

	for i, info := range infos {
		got, err := c.ReadSlot(*info)
		if err != nil {
			t.Fatalf("ReadSlot() = %v", err)
		}
		if !bytes.Equal(got, r.expected(ImageID(i))) { //nolint:gosec // small test ids
			t.Errorf("image %d changed across growth", i)
		}
	}
}

func TestTextureCache_LayerGrowth(t *testing.T) {
	r := newFakeRasterizer()
	r.sizes[1] = [2]int{64, 64}
	r.sizes[2] = [2]int{128, 128}
	c := newTestCache(t, r, WithAtlasSize(256), WithLayerGrowth(4))

	for id := ImageID(0); id < 3; id++ {
		if _, err := c.GetOrLoadImageTexture(id); err != nil {
			t.Fatalf("GetOrLoadImageTexture(%d) = %v", id, err)
		}
	}
	if s := c.Stats(); s.Atlases != 3 || s.Layers != 4 || s.Growths != 1 {
		t.Errorf("Stats() = %+v, want 3 atlases in 4 layers after 1 growth", s)
	}
}

func TestTextureCache_AtlasLimit(t *testing.T) {
	r := newFakeRasterizer()
	for id := ImageID(0); id < 3; id++ {
		r.sizes[id] = [2]int{64, 64}
	}
	b := memory.New(memory.Options{Limits: gpucore.Limits{MaxTextureArrayLayers: 2}})
	c := newTestCacheOn(t, b, r, WithAtlasSize(64))

	for id := ImageID(0); id < 2; id++ {
		if _, err := c.GetOrLoadImageTexture(id); err != nil {
			t.Fatalf("GetOrLoadImageTexture(%d) = %v", id, err)
		}
	}
	if _, err := c.GetOrLoadImageTexture(2); !errors.Is(err, ErrAtlasLimit) {
		t.Fatalf("third atlas error = %v, want ErrAtlasLimit", err)
	}

	// The limit is not fatal; freeing a slot makes room again.
	c.InvalidateImage(0)
	if _, err := c.GetOrLoadImageTexture(2); err != nil {
		t.Errorf("GetOrLoadImageTexture() after invalidate = %v", err)
	}
}

func TestTextureCache_GrowthFailure(t *testing.T) {
	tests := []struct {
		name    string
		backend *failingBackend
	}{
		{"create", &failingBackend{Backend: memory.New(memory.Options{}), failLayers: 2}},
		{"copy", &failingBackend{Backend: memory.New(memory.Options{}), failCopy: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newFakeRasterizer()
			r.sizes[2] = [2]int{64, 64}
			c := newTestCacheOn(t, tt.backend, r, WithAtlasSize(256))

			first, err := c.GetOrLoadImageTexture(1)
			if err != nil {
				t.Fatalf("GetOrLoadImageTexture() = %v", err)
			}
			held := *first
			tex := c.AtlasTexture()
			textures := tt.backend.Stats().TextureCount

			_, err = c.GetOrLoadImageTexture(2)
			var ge *GrowthError
			if !errors.As(err, &ge) || ge.From != 1 || ge.To != 2 {
				t.Fatalf("growth error = %v, want *GrowthError 1 -> 2", err)
			}
			if !IsFailed(err) || c.Err() == nil {
				t.Error("cache not marked failed")
			}

			// Old storage is intact and nothing leaked.
			if c.AtlasTexture() != tex {
				t.Error("failed growth replaced the atlas texture")
			}
			if n := tt.backend.Stats().TextureCount; n != textures {
				t.Errorf("TextureCount = %d after failed growth, want %d", n, textures)
			}
			got, err := c.ReadSlot(held)
			if err != nil || !bytes.Equal(got, r.expected(1)) {
				t.Errorf("ReadSlot() after failed growth = %v, %v", got, err)
			}

			for _, call := range []func() error{
				func() error { _, err := c.GetOrLoadImageTexture(1); return err },
				func() error { _, err := c.GetOrLoadImageTexture(3); return err },
				func() error { _, err := c.GetOrLoadGlyphTexture(1, GlyphPalette{}); return err },
			} {
				if err := call(); !errors.Is(err, ErrCacheFailed) {
					t.Errorf("call after failure error = %v, want ErrCacheFailed", err)
				}
			}
		})
	}
}

func TestTextureCache_UploadFailureFreesSlot(t *testing.T) {
	fb := &failingBackend{Backend: memory.New(memory.Options{})}
	c := newTestCacheOn(t, fb, newFakeRasterizer())

	if _, err := c.GetOrLoadImageTexture(1); err != nil {
		t.Fatalf("GetOrLoadImageTexture() = %v", err)
	}
	fb.failWrite = true
	if _, err := c.GetOrLoadImageTexture(2); err == nil {
		t.Fatal("GetOrLoadImageTexture() succeeded with a failing upload")
	}
	if IsFailed(c.Err()) {
		t.Error("upload failure disabled the cache")
	}
	fb.failWrite = false

	info, err := c.GetOrLoadImageTexture(2)
	if err != nil {
		t.Fatalf("GetOrLoadImageTexture() = %v", err)
	}
	if info.Slot != 1 {
		t.Errorf("slot %d after failed upload, want 1 (slot reclaimed)", info.Slot)
	}
}

func TestTextureCache_Close(t *testing.T) {
	b := memory.New(memory.Options{})
	c, err := New(b, newFakeRasterizer())
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	info, err := c.GetOrLoadImageTexture(1)
	if err != nil {
		t.Fatalf("GetOrLoadImageTexture() = %v", err)
	}

	c.Close()
	c.Close()

	if n := b.Stats().TextureCount; n != 0 {
		t.Errorf("TextureCount = %d after Close, want 0", n)
	}
	if _, err := c.GetOrLoadImageTexture(1); !errors.Is(err, ErrClosed) {
		t.Errorf("GetOrLoadImageTexture() after Close error = %v, want ErrClosed", err)
	}
	if _, err := c.ReadSlot(*info); !errors.Is(err, ErrClosed) {
		t.Errorf("ReadSlot() after Close error = %v, want ErrClosed", err)
	}
	if c.InvalidateImage(1) {
		t.Error("InvalidateImage() after Close = true")
	}
	if c.AtlasTexture() != gpucore.InvalidID {
		t.Error("AtlasTexture() valid after Close")
	}
}

func TestTextureCache_ReadSlotUnknown(t *testing.T) {
	c := newTestCache(t, newFakeRasterizer())
	if _, err := c.ReadSlot(CachedTextureInfo{Index: 3}); !errors.Is(err, ErrUnknownTexture) {
		t.Errorf("ReadSlot() error = %v, want ErrUnknownTexture", err)
	}
	if _, err := c.ReadLayer(0); !errors.Is(err, ErrUnknownTexture) {
		t.Errorf("ReadLayer() error = %v, want ErrUnknownTexture", err)
	}
}

func TestTextureCache_ReadSlotFreed(t *testing.T) {
	c := newTestCache(t, newFakeRasterizer())

	info, err := c.GetOrLoadImageTexture(1)
	if err != nil {
		t.Fatalf("GetOrLoadImageTexture() = %v", err)
	}
	stale := *info
	c.InvalidateImage(1)

	if _, err := c.ReadSlot(stale); !errors.Is(err, ErrUnknownTexture) {
		t.Errorf("ReadSlot(freed) error = %v, want ErrUnknownTexture", err)
	}
	if _, err := c.ReadSlot(CachedTextureInfo{Index: 0, Slot: 1 << 20}); !errors.Is(err, ErrUnknownTexture) {
		t.Errorf("ReadSlot(slot out of range) error = %v, want ErrUnknownTexture", err)
	}

	// Once another image takes the slot it reads back as that image.
	other, err := c.GetOrLoadImageTexture(2)
	if err != nil {
		t.Fatalf("GetOrLoadImageTexture() = %v", err)
	}
	if other.Slot != stale.Slot {
		t.Fatalf("image 2 got slot %d, want the freed slot %d", other.Slot, stale.Slot)
	}
	if _, err := c.ReadSlot(*other); err != nil {
		t.Errorf("ReadSlot(live) error = %v", err)
	}
}

func TestTextureCache_ReadLayer(t *testing.T) {
	r := newFakeRasterizer()
	c := newTestCache(t, r, WithAtlasSize(64))

	info, err := c.GetOrLoadImageTexture(1)
	if err != nil {
		t.Fatalf("GetOrLoadImageTexture() = %v", err)
	}
	layer, err := c.ReadLayer(int(info.Index))
	if err != nil {
		t.Fatalf("ReadLayer() = %v", err)
	}
	if len(layer) != 64*64 {
		t.Fatalf("ReadLayer() returned %d bytes, want %d", len(layer), 64*64)
	}
	want := r.expected(1)
	for y := 0; y < 20; y++ {
		if !bytes.Equal(layer[y*64:y*64+20], want[y*20:(y+1)*20]) {
			t.Fatalf("row %d differs from the rasterized bitmap", y)
		}
	}
}
