package texcache

import (
	"fmt"

	"github.com/gogpu/texcache/gpucore"
)

// PaletteID identifies a palette (a colour remap table).
type PaletteID uint32

const (
	// PaletteWater is the last palette stored directly after the
	// reserved first row. Palettes above it are shifted down by four
	// further reserved rows.
	PaletteWater PaletteID = 32

	// DefaultPaletteCount is the number of palettes the lookup texture
	// holds rows for.
	DefaultPaletteCount = 144

	// PaletteWidth is the number of entries (texels) in one palette row.
	PaletteWidth = 256

	paletteReservedRows = 5
)

// PaletteToRow returns the lookup texture row holding palette id. It is a
// pure mapping, independent of any cache state.
func PaletteToRow(id PaletteID) int {
	if id > PaletteWater {
		return int(id) + paletteReservedRows
	}
	return int(id) + 1
}

// PaletteSource supplies palette remap rows for the lookup texture.
type PaletteSource interface {
	// PaletteRemap returns the PaletteWidth-entry index remap for id.
	PaletteRemap(id PaletteID) ([]uint8, error)
}

// paletteTable is the R8 lookup texture, PaletteWidth texels wide, one
// row per palette. Rows without a palette hold the identity remap.
type paletteTable struct {
	tex   *Texture
	count int
	rows  int
}

func newPaletteTable(backend gpucore.Backend, label string, count int, src PaletteSource) (*paletteTable, error) {
	rows := count + paletteReservedRows
	data := make([]byte, PaletteWidth*rows)
	for y := 0; y < rows; y++ {
		identity(data[y*PaletteWidth : (y+1)*PaletteWidth])
	}

	if src != nil {
		for id := 0; id < count; id++ {
			remap, err := src.PaletteRemap(PaletteID(id)) //nolint:gosec // id < count
			if err != nil {
				return nil, fmt.Errorf("palette %d: %w", id, err)
			}
			if len(remap) != PaletteWidth {
				return nil, fmt.Errorf("palette %d: %w: %d entries, want %d",
					id, gpucore.ErrDataSize, len(remap), PaletteWidth)
			}
			row := PaletteToRow(PaletteID(id)) //nolint:gosec // id < count
			copy(data[row*PaletteWidth:], remap)
		}
	}

	tex, err := createTexture(backend, gpucore.TextureDesc{
		Label:  label,
		Width:  PaletteWidth,
		Height: rows,
		Layers: 1,
		Format: gpucore.TextureFormatR8Uint,
	})
	if err != nil {
		return nil, err
	}

	region := gpucore.Region{Width: PaletteWidth, Height: rows}
	if err := backend.WriteTexture(tex.ID(), region, data, PaletteWidth); err != nil {
		tex.Close()
		return nil, fmt.Errorf("upload palette texture: %w", err)
	}

	return &paletteTable{tex: tex, count: count, rows: rows}, nil
}

// setRow replaces the remap row of palette id.
func (p *paletteTable) setRow(id PaletteID, remap []uint8) error {
	if int(id) >= p.count {
		return fmt.Errorf("texcache: palette %d out of range [0, %d)", id, p.count)
	}
	if len(remap) != PaletteWidth {
		return fmt.Errorf("%w: %d entries, want %d", gpucore.ErrDataSize, len(remap), PaletteWidth)
	}
	region := gpucore.Region{Y: PaletteToRow(id), Width: PaletteWidth, Height: 1}
	return p.tex.backend.WriteTexture(p.tex.ID(), region, remap, PaletteWidth)
}

func (p *paletteTable) release() {
	p.tex.Close()
}

func identity(row []byte) {
	for i := range row {
		row[i] = byte(i)
	}
}
