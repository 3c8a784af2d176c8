package texcache

import (
	"errors"
	"testing"

	"github.com/gogpu/texcache/backend/memory"
	"github.com/gogpu/texcache/gpucore"
)

func newMemoryBackend() *memory.Backend {
	return memory.New(memory.Options{})
}

// identitySource returns the identity remap for every palette.
type identitySource struct{}

func (identitySource) PaletteRemap(PaletteID) ([]uint8, error) {
	row := make([]uint8, PaletteWidth)
	identity(row)
	return row, nil
}

// shiftSource shifts every index by the palette id.
type shiftSource struct {
	failAt PaletteID
}

func (s shiftSource) PaletteRemap(id PaletteID) ([]uint8, error) {
	if s.failAt != 0 && id == s.failAt {
		return nil, errors.New("palette file truncated")
	}
	row := make([]uint8, PaletteWidth)
	for i := range row {
		row[i] = uint8(i + int(id)) //nolint:gosec // wraps on purpose
	}
	return row, nil
}

func TestPaletteToRow(t *testing.T) {
	tests := []struct {
		id   PaletteID
		want int
	}{
		{0, 1},
		{1, 2},
		{31, 32},
		{PaletteWater, 33},
		{33, 38},
		{100, 105},
		{DefaultPaletteCount - 1, DefaultPaletteCount + 4},
	}
	for _, tt := range tests {
		if got := PaletteToRow(tt.id); got != tt.want {
			t.Errorf("PaletteToRow(%d) = %d, want %d", tt.id, got, tt.want)
		}
	}

	c := newTestCache(t, newFakeRasterizer())
	if c.PaletteToRow(40) != PaletteToRow(40) {
		t.Error("TextureCache.PaletteToRow differs from PaletteToRow")
	}
}

func readRow(t *testing.T, b *memory.Backend, c *TextureCache, row int) []byte {
	t.Helper()
	data, err := b.ReadTexture(c.PaletteTexture(), gpucore.Region{Y: row, Width: PaletteWidth, Height: 1})
	if err != nil {
		t.Fatalf("ReadTexture(row %d) = %v", row, err)
	}
	return data
}

func TestPaletteTexture_Layout(t *testing.T) {
	b := newMemoryBackend()
	c := newTestCacheOn(t, b, newFakeRasterizer(), WithPalettes(40, shiftSource{}))
	if err := c.Init(); err != nil {
		t.Fatalf("Init() = %v", err)
	}

	desc, ok := b.Desc(c.PaletteTexture())
	if !ok {
		t.Fatal("palette texture not created")
	}
	if desc.Width != PaletteWidth || desc.Height != 45 || desc.Format != gpucore.TextureFormatR8Uint {
		t.Errorf("palette texture = %+v, want 256x45 R8Uint", desc)
	}

	// Reserved row 0 keeps the identity remap.
	if got := readRow(t, b, c, 0); got[10] != 10 {
		t.Errorf("reserved row[10] = %d, want 10", got[10])
	}
	for _, id := range []PaletteID{0, 5, PaletteWater, 39} {
		got := readRow(t, b, c, PaletteToRow(id))
		if got[10] != uint8(10+id) { //nolint:gosec // small ids
			t.Errorf("palette %d row[10] = %d, want %d", id, got[10], 10+id)
		}
	}
}

func TestPaletteTexture_SetRemap(t *testing.T) {
	b := newMemoryBackend()
	c := newTestCacheOn(t, b, newFakeRasterizer())

	remap := make([]uint8, PaletteWidth)
	for i := range remap {
		remap[i] = 255 - uint8(i) //nolint:gosec // i < 256
	}
	if err := c.SetPaletteRemap(50, remap); err != nil {
		t.Fatalf("SetPaletteRemap() = %v", err)
	}
	if got := readRow(t, b, c, PaletteToRow(50)); got[0] != 255 || got[255] != 0 {
		t.Errorf("row = %d..%d, want 255..0", got[0], got[255])
	}
	if got := readRow(t, b, c, PaletteToRow(51)); got[0] != 0 {
		t.Error("neighbouring row changed")
	}

	if err := c.SetPaletteRemap(50, remap[:10]); !errors.Is(err, gpucore.ErrDataSize) {
		t.Errorf("short remap error = %v, want ErrDataSize", err)
	}
	if err := c.SetPaletteRemap(DefaultPaletteCount, remap); err == nil {
		t.Error("SetPaletteRemap() accepted an out-of-range palette")
	}
}

func TestPaletteTexture_SourceError(t *testing.T) {
	b := newMemoryBackend()
	c := newTestCacheOn(t, b, newFakeRasterizer(), WithPalettes(10, shiftSource{failAt: 3}))

	if _, err := c.GetOrLoadImageTexture(1); err == nil {
		t.Fatal("GetOrLoadImageTexture() succeeded with a failing palette source")
	}
	if n := b.Stats().TextureCount; n != 0 {
		t.Errorf("TextureCount = %d after failed init, want 0", n)
	}
}
