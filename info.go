package texcache

import (
	"fmt"
	"image"

	"github.com/go-gl/mathgl/mgl32"
)

// CachedTextureInfo describes where an image's pixels live.
//
// It is produced once per cache entry and never modified afterwards. The
// renderer binds [TextureCache.AtlasTexture], selects layer Index and
// samples NormalizedBounds (or ComputedBounds for texel-centre sampling).
type CachedTextureInfo struct {
	// Index is the atlas index, which is also the array texture layer.
	Index uint32

	// Slot is the slot number inside the atlas, row-major.
	Slot uint32

	// Bounds is the pixel rectangle of the image inside the layer.
	// Its size is the image size, not the slot size.
	Bounds image.Rectangle

	// NormalizedBounds is Bounds divided by the atlas dimensions,
	// laid out as (u0, v0, u1, v1).
	NormalizedBounds mgl32.Vec4

	// ComputedBounds is NormalizedBounds inset by half a texel on each
	// side, so nearest sampling at the edges hits texel centres.
	ComputedBounds mgl32.Vec4
}

// Width returns the image width in pixels.
func (i CachedTextureInfo) Width() int {
	return i.Bounds.Dx()
}

// Height returns the image height in pixels.
func (i CachedTextureInfo) Height() int {
	return i.Bounds.Dy()
}

// String returns a string representation of the info.
func (i CachedTextureInfo) String() string {
	return fmt.Sprintf("CachedTextureInfo(atlas %d slot %d %v)", i.Index, i.Slot, i.Bounds)
}

// normalize converts pixel bounds into texture coordinates for an atlas of
// the given size.
func normalize(b image.Rectangle, atlasWidth, atlasHeight int) mgl32.Vec4 {
	w := float32(atlasWidth)
	h := float32(atlasHeight)
	return mgl32.Vec4{
		float32(b.Min.X) / w,
		float32(b.Min.Y) / h,
		float32(b.Max.X) / w,
		float32(b.Max.Y) / h,
	}
}

// texelCenters insets normalized bounds by half a texel.
func texelCenters(n mgl32.Vec4, atlasWidth, atlasHeight int) mgl32.Vec4 {
	hx := 0.5 / float32(atlasWidth)
	hy := 0.5 / float32(atlasHeight)
	return mgl32.Vec4{n[0] + hx, n[1] + hy, n[2] - hx, n[3] - hy}
}
