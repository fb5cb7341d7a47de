package detection

import (
	"fmt"
	"image"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Detection summarizes one detected color region.
type Detection struct {
	bbox     image.Rectangle
	centroid image.Point
	area     int
}

// NewDetection summarizes a region into its bounding box, centroid and pixel
// area. Returns nil for an empty region.
func NewDetection(region Region) *Detection {
	if len(region) == 0 {
		return nil
	}
	x0, y0 := region[0].X, region[0].Y
	x1, y1 := x0, y0
	xs := make([]float64, len(region))
	ys := make([]float64, len(region))
	for i, p := range region {
		if p.X < x0 {
			x0 = p.X
		}
		if p.Y < y0 {
			y0 = p.Y
		}
		if p.X > x1 {
			x1 = p.X
		}
		if p.Y > y1 {
			y1 = p.Y
		}
		xs[i] = float64(p.X)
		ys[i] = float64(p.Y)
	}
	return &Detection{
		bbox: image.Rect(x0, y0, x1, y1),
		centroid: image.Point{
			X: int(math.Round(stat.Mean(xs, nil))),
			Y: int(math.Round(stat.Mean(ys, nil))),
		},
		area: len(region),
	}
}

// BoundingBox returns the minimal rectangle around the region. Both corners
// are inclusive, Max is the last foreground pixel on each axis.
func (d *Detection) BoundingBox() image.Rectangle {
	return d.bbox
}

// Centroid returns the mean pixel position of the region, rounded to the
// nearest integer coordinate.
func (d *Detection) Centroid() image.Point {
	return d.centroid
}

// Area returns the number of pixels in the region.
func (d *Detection) Area() int {
	return d.area
}

func (d *Detection) String() string {
	return fmt.Sprintf("%v centroid %v area %d", d.bbox, d.centroid, d.area)
}

// scaled maps the detection back into a frame scaled by the given per-axis
// factors, for use after detecting on a downscaled copy.
func (d *Detection) scaled(sx, sy float64) *Detection {
	scalePt := func(p image.Point) image.Point {
		return image.Point{
			X: int(math.Round(float64(p.X) * sx)),
			Y: int(math.Round(float64(p.Y) * sy)),
		}
	}
	return &Detection{
		bbox:     image.Rectangle{Min: scalePt(d.bbox.Min), Max: scalePt(d.bbox.Max)},
		centroid: scalePt(d.centroid),
		area:     int(math.Round(float64(d.area) * sx * sy)),
	}
}
