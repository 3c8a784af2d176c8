package texcache

import (
	"fmt"
	"image"
	"math/bits"
)

// Default atlas settings.
const (
	// DefaultAtlasSize is the edge of every atlas (2048x2048, 4 MB per
	// R8 layer). It is also the largest representable image.
	DefaultAtlasSize = 2048

	// DefaultSmallestSlot is the edge of the smallest slot class.
	// Must be a power of 2.
	DefaultSmallestSlot = 32
)

// SizeOrder returns the size class of a width×height image using the
// default smallest slot: ceil(log2(max(width, height, 32))).
func SizeOrder(width, height int) int {
	return SizeOrderMin(width, height, DefaultSmallestSlot)
}

// SizeOrderMin returns ceil(log2(max(width, height, smallest))).
// The slot edge for the class is 1 << order.
func SizeOrderMin(width, height, smallest int) int {
	size := max(width, height, smallest, 1)
	return bits.Len(uint(size - 1))
}

// Atlas is one layer of the shared array texture, divided into equal
// square slots of a single size class.
//
// Atlas does pure bookkeeping; it never touches GPU state. Misuse
// (allocating from a full atlas, freeing into the wrong atlas, double
// frees) panics, since wrong draw coordinates are worse than a crash.
type Atlas struct {
	index     uint32
	imageSize int
	order     int
	smallest  int

	width  int
	height int
	cols   int
	rows   int

	// free is a stack; the most recently freed slot is reused first.
	free []uint32
	live []bool
}

// NewAtlas creates an atlas for layer index whose slots are imageSize
// pixels square. imageSize must be a power of 2 no smaller than smallest.
// The atlas has no slots until Initialise is called.
func NewAtlas(index uint32, imageSize, smallest int) *Atlas {
	if imageSize <= 0 || imageSize&(imageSize-1) != 0 {
		panic(fmt.Sprintf("texcache: atlas slot size %d is not a power of 2", imageSize))
	}
	return &Atlas{
		index:     index,
		imageSize: imageSize,
		order:     bits.Len(uint(imageSize - 1)),
		smallest:  smallest,
	}
}

// Initialise sizes the atlas to atlasWidth×atlasHeight pixels and marks
// every slot free. Slot 0 sits at the top-left; slots run row-major.
func (a *Atlas) Initialise(atlasWidth, atlasHeight int) {
	a.width = atlasWidth
	a.height = atlasHeight
	a.cols = max(atlasWidth/a.imageSize, 1)
	a.rows = max(atlasHeight/a.imageSize, 1)

	n := a.cols * a.rows
	a.free = make([]uint32, n)
	a.live = make([]bool, n)
	// Pushed in reverse so the first pop hands out slot 0.
	for i := range a.free {
		a.free[i] = uint32(n - 1 - i) //nolint:gosec // slot count is bounded by atlas area
	}
}

// Allocate pops a free slot and returns the coordinates of an
// actualWidth×actualHeight image placed at its top-left corner.
// It panics if the atlas has no free slot.
func (a *Atlas) Allocate(actualWidth, actualHeight int) CachedTextureInfo {
	if len(a.free) == 0 {
		panic(fmt.Sprintf("texcache: allocate from full atlas %d", a.index))
	}

	slot := a.free[len(a.free)-1]
	a.free = a.free[:len(a.free)-1]
	a.live[slot] = true

	bounds := a.slotBounds(slot, actualWidth, actualHeight)
	normalized := normalize(bounds, a.width, a.height)

	return CachedTextureInfo{
		Index:            a.index,
		Slot:             slot,
		Bounds:           bounds,
		NormalizedBounds: normalized,
		ComputedBounds:   texelCenters(normalized, a.width, a.height),
	}
}

// Free returns info's slot to the atlas. It panics if info was not
// allocated from this atlas or its slot is already free.
func (a *Atlas) Free(info CachedTextureInfo) {
	if info.Index != a.index {
		panic(fmt.Sprintf("texcache: slot of atlas %d freed into atlas %d", info.Index, a.index))
	}
	if int(info.Slot) >= len(a.live) || !a.live[info.Slot] {
		panic(fmt.Sprintf("texcache: slot %d of atlas %d is not allocated", info.Slot, a.index))
	}
	a.live[info.Slot] = false
	a.free = append(a.free, info.Slot)
}

// IsSuitable reports whether an actualWidth×actualHeight image belongs in
// this atlas, i.e. whether its size class equals the atlas's exactly.
// Smaller images are never packed into larger slots.
func (a *Atlas) IsSuitable(actualWidth, actualHeight int) bool {
	return SizeOrderMin(actualWidth, actualHeight, a.smallest) == a.order
}

// IsLive reports whether slot is currently allocated.
func (a *Atlas) IsLive(slot uint32) bool {
	return int(slot) < len(a.live) && a.live[slot]
}

// FreeSlots returns the number of free slots.
func (a *Atlas) FreeSlots() int {
	return len(a.free)
}

// Capacity returns the total number of slots.
func (a *Atlas) Capacity() int {
	return a.cols * a.rows
}

// Index returns the array texture layer this atlas occupies.
func (a *Atlas) Index() uint32 {
	return a.index
}

// ImageSize returns the slot edge in pixels.
func (a *Atlas) ImageSize() int {
	return a.imageSize
}

// Order returns the atlas's size class.
func (a *Atlas) Order() int {
	return a.order
}

// Utilization returns the fraction of slots in use (0.0 to 1.0).
func (a *Atlas) Utilization() float64 {
	capacity := a.Capacity()
	if capacity == 0 {
		return 0
	}
	return float64(capacity-len(a.free)) / float64(capacity)
}

// slotBounds returns the pixel rectangle of an image placed in slot.
func (a *Atlas) slotBounds(slot uint32, actualWidth, actualHeight int) image.Rectangle {
	row := int(slot) / a.cols
	col := int(slot) % a.cols
	x := a.imageSize * col
	y := a.imageSize * row
	return image.Rect(x, y, x+actualWidth, y+actualHeight)
}
