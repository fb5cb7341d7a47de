// Package detection implements segmentation of color regions in images
// and summarization of the regions found into single detections.
package detection

import (
	"image"
)

// Mask is a binary image marking which pixels of a frame are foreground.
type Mask struct {
	data   []uint8
	width  int
	height int
}

// NewMask returns an all-background mask with the given dimensions.
func NewMask(width, height int) *Mask {
	return &Mask{
		data:   make([]uint8, width*height),
		width:  width,
		height: height,
	}
}

func (m *Mask) k(x, y int) int {
	return y*m.width + x
}

// Width returns the horizontal dimension of the mask.
func (m *Mask) Width() int {
	return m.width
}

// Height returns the vertical dimension of the mask.
func (m *Mask) Height() int {
	return m.height
}

// Bounds returns the rectangle covered by the mask.
func (m *Mask) Bounds() image.Rectangle {
	return image.Rect(0, 0, m.width, m.height)
}

// In returns whether the point is within the mask.
func (m *Mask) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < m.width && y < m.height
}

// At returns 1 if the pixel is foreground. Out-of-bounds reads return
// background so callers do not need their own border handling.
func (m *Mask) At(x, y int) uint8 {
	if !m.In(x, y) {
		return 0
	}
	return m.data[m.k(x, y)]
}

// Set marks one pixel, 0 for background and anything else for foreground.
func (m *Mask) Set(x, y int, v uint8) {
	if !m.In(x, y) {
		return
	}
	if v != 0 {
		v = 1
	}
	m.data[m.k(x, y)] = v
}

// Clone returns an independent copy of the mask.
func (m *Mask) Clone() *Mask {
	out := NewMask(m.width, m.height)
	copy(out.data, m.data)
	return out
}

// Area returns the number of foreground pixels in the mask.
func (m *Mask) Area() int {
	n := 0
	for _, v := range m.data {
		if v != 0 {
			n++
		}
	}
	return n
}
