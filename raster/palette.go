package raster

import (
	"errors"
	"image"
	"image/color"

	"github.com/ericpauley/go-quantize/quantize"
	"golang.org/x/image/draw"
)

// MaxPaletteColors is the size of a full 8-bit palette.
const MaxPaletteColors = 256

// BuildPalette derives a palette of at most n colours from imgs with
// median-cut quantization. Index 0 is always fully transparent, matching
// the atlas convention that index 0 is empty, so at most n-1 colours come
// from the artwork.
func BuildPalette(imgs []image.Image, n int) (color.Palette, error) {
	if n < 2 || n > MaxPaletteColors {
		return nil, errors.New("raster: palette size must be in [2, 256]")
	}
	if len(imgs) == 0 {
		return nil, errors.New("raster: no images to build a palette from")
	}

	sheet := contactSheet(imgs)
	q := quantize.MedianCutQuantizer{}
	colors := q.Quantize(make(color.Palette, 0, n-1), sheet)

	p := make(color.Palette, 0, n)
	p = append(p, color.Transparent)
	p = append(p, colors...)
	return p, nil
}

// contactSheet stacks imgs vertically into one image so they can be
// quantized together.
func contactSheet(imgs []image.Image) image.Image {
	width, height := 0, 0
	for _, img := range imgs {
		b := img.Bounds()
		width = max(width, b.Dx())
		height += b.Dy()
	}

	sheet := image.NewNRGBA(image.Rect(0, 0, max(width, 1), max(height, 1)))
	y := 0
	for _, img := range imgs {
		b := img.Bounds()
		draw.Draw(sheet, image.Rect(0, y, b.Dx(), y+b.Dy()), img, b.Min, draw.Src)
		y += b.Dy()
	}
	return sheet
}
