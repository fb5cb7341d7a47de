package detection

import (
	"image"
	"math"

	"github.com/pkg/errors"
)

// KernelShape selects the structuring element used by the morphological
// operations.
type KernelShape string

// The supported structuring element shapes.
const (
	KernelSquare  KernelShape = "square"
	KernelEllipse KernelShape = "ellipse"
)

// Kernel is a structuring element, a shape plus an odd side length.
type Kernel struct {
	Shape KernelShape `json:"shape"`
	Size  int         `json:"size"`
}

// DefaultKernel returns the 3x3 square element the detector ships with.
func DefaultKernel() Kernel {
	return Kernel{Shape: KernelSquare, Size: 3}
}

// Validate ensures the kernel is usable.
func (k Kernel) Validate() error {
	switch k.Shape {
	case KernelSquare, KernelEllipse:
	default:
		return errors.Errorf("unknown kernel shape %q", k.Shape)
	}
	if k.Size < 1 || k.Size%2 == 0 {
		return errors.Errorf("kernel size %d must be a positive odd number", k.Size)
	}
	return nil
}

// offsets returns the neighborhood samples of the kernel relative to its
// center. An ellipse at size 3 degenerates to the cardinal cross.
func (k Kernel) offsets() []image.Point {
	r := k.Size / 2
	pts := make([]image.Point, 0, k.Size*k.Size)
	for dy := -r; dy <= r; dy++ {
		span := r
		if k.Shape == KernelEllipse {
			span = int(math.Round(math.Sqrt(float64(r*r - dy*dy))))
		}
		for dx := -span; dx <= span; dx++ {
			pts = append(pts, image.Point{dx, dy})
		}
	}
	return pts
}

// Erode returns a mask where a pixel stays foreground only if every sample
// under the kernel is foreground. Samples falling outside the mask are
// ignored so regions touching the frame edge are not eaten away.
func Erode(m *Mask, k Kernel) *Mask {
	out := NewMask(m.width, m.height)
	offs := k.offsets()
	for y := 0; y < m.height; y++ {
		for x := 0; x < m.width; x++ {
			if m.data[m.k(x, y)] == 0 {
				continue
			}
			keep := true
			for _, off := range offs {
				nx, ny := x+off.X, y+off.Y
				if !m.In(nx, ny) {
					continue
				}
				if m.data[m.k(nx, ny)] == 0 {
					keep = false
					break
				}
			}
			if keep {
				out.data[out.k(x, y)] = 1
			}
		}
	}
	return out
}

// Dilate returns a mask where a pixel becomes foreground if any sample under
// the kernel is foreground. Samples outside the mask contribute background.
func Dilate(m *Mask, k Kernel) *Mask {
	out := NewMask(m.width, m.height)
	offs := k.offsets()
	for y := 0; y < m.height; y++ {
		for x := 0; x < m.width; x++ {
			for _, off := range offs {
				if m.At(x+off.X, y+off.Y) != 0 {
					out.data[out.k(x, y)] = 1
					break
				}
			}
		}
	}
	return out
}

// Open erodes then dilates, removing speckles smaller than the kernel.
func Open(m *Mask, k Kernel) *Mask {
	return Dilate(Erode(m, k), k)
}

// Close dilates then erodes, filling holes smaller than the kernel.
func Close(m *Mask, k Kernel) *Mask {
	return Erode(Dilate(m, k), k)
}

// Denoise opens and then closes the mask, dropping isolated noise pixels
// first and then sealing small gaps inside the surviving regions.
func Denoise(m *Mask, k Kernel) *Mask {
	return Close(Open(m, k), k)
}
