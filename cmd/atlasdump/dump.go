package main

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif" // sprite decoding
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "golang.org/x/image/bmp" // sprite decoding

	"github.com/BurntSushi/toml"

	"github.com/gogpu/texcache"
	"github.com/gogpu/texcache/backend/memory"
	"github.com/gogpu/texcache/gpucore"
	"github.com/gogpu/texcache/raster"
)

// manifestFile is written next to the layer PNGs.
const manifestFile = "manifest.toml"

// glyphPalette draws glyph shades with master palette indices 1..12.
var glyphPalette = texcache.GlyphPalette{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}

// result describes one atlasdump run.
type result struct {
	Stats    texcache.Stats
	Layers   []string
	Manifest manifest
}

// manifest lists where each sprite and glyph landed.
type manifest struct {
	Sprites []manifestEntry `toml:"sprite"`
	Glyphs  []manifestEntry `toml:"glyph"`
}

type manifestEntry struct {
	Name   string     `toml:"name"`
	Atlas  uint32     `toml:"atlas"`
	Slot   uint32     `toml:"slot"`
	Bounds [4]int     `toml:"bounds"`
	UV     [4]float32 `toml:"uv"`
}

func newEntry(name string, info texcache.CachedTextureInfo) manifestEntry {
	b := info.Bounds
	return manifestEntry{
		Name:   name,
		Atlas:  info.Index,
		Slot:   info.Slot,
		Bounds: [4]int{b.Min.X, b.Min.Y, b.Max.X, b.Max.Y},
		UV:     [4]float32(info.NormalizedBounds),
	}
}

// run packs everything conf names into a memory-backed cache and writes
// the layers to conf.Out.
func run(conf config) (*result, error) {
	format, err := conf.textureFormat()
	if err != nil {
		return nil, err
	}

	names, imgs, err := loadSprites(conf.Sprites)
	if err != nil {
		return nil, err
	}

	pal, err := masterPalette(imgs, conf.Colors)
	if err != nil {
		return nil, err
	}

	sprites := raster.NewSpriteSet(raster.WithFormat(format), raster.WithMasterPalette(pal))
	for i, img := range imgs {
		sprites.Add(texcache.ImageID(i), img) //nolint:gosec // sprite count is small
	}
	glyphs := raster.NewGlyphFace(nil, raster.WithGlyphFormat(format), raster.WithGlyphColors(pal))

	cache, err := texcache.New(memory.New(memory.Options{}), raster.New(sprites, glyphs),
		texcache.WithAtlasSize(conf.AtlasSize),
		texcache.WithSmallestSlot(conf.SmallestSlot),
		texcache.WithFormat(format),
		texcache.WithLabel("atlasdump"))
	if err != nil {
		return nil, err
	}
	defer cache.Close()

	res := &result{}
	for i, name := range names {
		info, err := cache.GetOrLoadImageTexture(texcache.ImageID(i)) //nolint:gosec // sprite count is small
		if err != nil {
			return nil, fmt.Errorf("sprite %s: %w", name, err)
		}
		res.Manifest.Sprites = append(res.Manifest.Sprites, newEntry(name, *info))
	}
	for _, r := range uniqueRunes(conf.Text) {
		info, err := cache.GetOrLoadGlyphTexture(texcache.ImageID(r), glyphPalette)
		if err != nil {
			return nil, fmt.Errorf("glyph %q: %w", r, err)
		}
		res.Manifest.Glyphs = append(res.Manifest.Glyphs, newEntry(string(r), info))
	}

	if err := os.MkdirAll(conf.Out, 0o755); err != nil { //nolint:gosec // output directory
		return nil, err
	}
	res.Stats = cache.Stats()
	for i := 0; i < res.Stats.Atlases; i++ {
		pix, err := cache.ReadLayer(i)
		if err != nil {
			return nil, err
		}
		path := filepath.Join(conf.Out, fmt.Sprintf("atlas_%02d.png", i))
		if err := writeLayer(path, layerImage(pix, cache.AtlasSize(), format, pal)); err != nil {
			return nil, err
		}
		res.Layers = append(res.Layers, path)
	}

	if conf.Manifest {
		if err := writeManifest(filepath.Join(conf.Out, manifestFile), res.Manifest); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// loadSprites decodes every image in dir, sorted by file name. An empty
// dir loads nothing.
func loadSprites(dir string) ([]string, []image.Image, error) {
	if dir == "" {
		return nil, nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, err
	}
	var names []string
	for _, e := range entries {
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".png", ".gif", ".bmp":
			if !e.IsDir() {
				names = append(names, e.Name())
			}
		}
	}
	sort.Strings(names)

	imgs := make([]image.Image, 0, len(names))
	for _, name := range names {
		img, err := decodeFile(filepath.Join(dir, name))
		if err != nil {
			return nil, nil, err
		}
		imgs = append(imgs, img)
	}
	return names, imgs, nil
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from a directory listing
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

// masterPalette returns the palette shared by every paletted sprite, or
// quantizes one from the sprites when they disagree or are true colour.
// The palette always holds at least the glyph shades.
func masterPalette(imgs []image.Image, colors int) (color.Palette, error) {
	var shared color.Palette
	for _, img := range imgs {
		p, ok := img.(*image.Paletted)
		if !ok || (shared != nil && !samePalette(shared, p.Palette)) {
			shared = nil
			break
		}
		shared = p.Palette
	}
	if shared != nil && len(shared) > len(glyphPalette) {
		return shared, nil
	}
	if len(imgs) == 0 {
		return grayRamp(), nil
	}

	pal, err := raster.BuildPalette(imgs, colors)
	if err != nil {
		return nil, err
	}
	for len(pal) <= len(glyphPalette) {
		pal = append(pal, color.Gray{Y: uint8(len(pal) * 255 / (len(glyphPalette) + 1))}) //nolint:gosec // small
	}
	return pal, nil
}

func samePalette(a, b color.Palette) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		r1, g1, b1, a1 := a[i].RGBA()
		r2, g2, b2, a2 := b[i].RGBA()
		if r1 != r2 || g1 != g2 || b1 != b2 || a1 != a2 {
			return false
		}
	}
	return true
}

// grayRamp is transparent at index 0 followed by the glyph shades from
// dark to white.
func grayRamp() color.Palette {
	pal := color.Palette{color.Transparent}
	for i := 1; i <= len(glyphPalette); i++ {
		y := uint8(i * 255 / len(glyphPalette)) //nolint:gosec // i <= 12
		pal = append(pal, color.NRGBA{R: y, G: y, B: y, A: 0xff})
	}
	return pal
}

func uniqueRunes(s string) []rune {
	seen := make(map[rune]bool)
	var out []rune
	for _, r := range s {
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	return out
}

// layerImage wraps one layer's packed pixels for PNG encoding.
func layerImage(pix []byte, edge int, format gpucore.TextureFormat, pal color.Palette) image.Image {
	rect := image.Rect(0, 0, edge, edge)
	if format == gpucore.TextureFormatRGBA8Unorm {
		return &image.RGBA{Pix: pix, Stride: edge * 4, Rect: rect}
	}
	if len(pal) > 0 {
		return &image.Paletted{Pix: pix, Stride: edge, Rect: rect, Palette: pal}
	}
	return &image.Gray{Pix: pix, Stride: edge, Rect: rect}
}

func writeLayer(path string, img image.Image) (err error) {
	f, err := os.Create(path) //nolint:gosec // output path
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	return png.Encode(f, img)
}

func writeManifest(path string, m manifest) (err error) {
	f, err := os.Create(path) //nolint:gosec // output path
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	return toml.NewEncoder(f).Encode(m)
}
