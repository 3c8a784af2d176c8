package texcache

import (
	"log/slog"

	"github.com/gogpu/texcache/gpucore"
)

// layerArray is the 2D array texture every atlas lives in, one atlas per
// layer. Array textures cannot be resized in place, so growing it is a
// two-phase reallocation: allocate the larger texture, copy the old layers
// into it, swap, release the old texture.
type layerArray struct {
	backend gpucore.Backend
	label   string
	edge    int
	format  gpucore.TextureFormat

	// tex is nil until the first atlas is created.
	tex *Texture
}

func newLayerArray(backend gpucore.Backend, label string, edge int, format gpucore.TextureFormat) *layerArray {
	return &layerArray{
		backend: backend,
		label:   label,
		edge:    edge,
		format:  format,
	}
}

// layers returns the current layer capacity.
func (a *layerArray) layers() int {
	if a.tex == nil {
		return 0
	}
	return a.tex.Layers()
}

// grow reallocates the array with to layers, preserving layers
// [0, layers()). On failure the old texture is kept unchanged and a
// *GrowthError is returned.
func (a *layerArray) grow(to int) error {
	from := a.layers()
	if to <= from {
		return nil
	}

	next, err := createTexture(a.backend, gpucore.TextureDesc{
		Label:  a.label,
		Width:  a.edge,
		Height: a.edge,
		Layers: to,
		Format: a.format,
	})
	if err != nil {
		return &GrowthError{From: from, To: to, Err: err}
	}

	if from > 0 {
		if err := a.backend.CopyLayers(a.tex.ID(), next.ID(), from); err != nil {
			next.Close()
			return &GrowthError{From: from, To: to, Err: err}
		}
	}

	old := a.tex
	a.tex = next
	old.Close()

	Logger().Info("texcache: array texture grown",
		slog.Int("from", from),
		slog.Int("to", to),
		slog.Int("edge", a.edge),
		slog.String("format", a.format.String()))
	return nil
}

// write uploads bm into region of the current texture.
func (a *layerArray) write(region gpucore.Region, bm *Bitmap) error {
	if a.tex == nil {
		return gpucore.ErrTextureNotFound
	}
	return a.tex.write(region, bm)
}

// read reads region back from the current texture.
func (a *layerArray) read(region gpucore.Region) ([]byte, error) {
	if a.tex == nil {
		return nil, gpucore.ErrTextureNotFound
	}
	return a.tex.read(region)
}

// release frees the texture.
func (a *layerArray) release() {
	a.tex.Close()
	a.tex = nil
}
