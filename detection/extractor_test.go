package detection

import (
	"image"
	"testing"

	"go.viam.com/test"
)

func blockMask(w, h int, blocks ...image.Rectangle) *Mask {
	m := NewMask(w, h)
	for _, b := range blocks {
		for y := b.Min.Y; y <= b.Max.Y; y++ {
			for x := b.Min.X; x <= b.Max.X; x++ {
				m.Set(x, y, 1)
			}
		}
	}
	return m
}

func TestRegionsConnectivity(t *testing.T) {
	// two pixels touching only at a corner
	m := NewMask(4, 4)
	m.Set(0, 0, 1)
	m.Set(1, 1, 1)

	eight := Regions(m, EightConnected)
	test.That(t, eight, test.ShouldHaveLength, 1)
	test.That(t, eight[0].Area(), test.ShouldEqual, 2)

	four := Regions(m, FourConnected)
	test.That(t, four, test.ShouldHaveLength, 2)
	test.That(t, four[0].Area(), test.ShouldEqual, 1)
	test.That(t, four[1].Area(), test.ShouldEqual, 1)
}

func TestRegionsScanOrder(t *testing.T) {
	m := blockMask(20, 20, image.Rect(10, 2, 12, 4), image.Rect(1, 6, 3, 8))
	regions := Regions(m, EightConnected)
	test.That(t, regions, test.ShouldHaveLength, 2)
	// the region whose first pixel comes earliest in row-major order leads
	test.That(t, regions[0][0], test.ShouldResemble, image.Point{10, 2})
	test.That(t, regions[1][0], test.ShouldResemble, image.Point{1, 6})
}

func TestRegionsDeterministic(t *testing.T) {
	m := NewMask(32, 32)
	// scatter a fixed pseudo-random pattern
	seed := uint32(12345)
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			seed = seed*1664525 + 1013904223
			if seed%3 == 0 {
				m.Set(x, y, 1)
			}
		}
	}
	first := Regions(m, EightConnected)
	second := Regions(m.Clone(), EightConnected)
	test.That(t, second, test.ShouldResemble, first)
}

func TestLargestPicksBiggest(t *testing.T) {
	// 50 pixel region and a 200 pixel region
	m := blockMask(40, 40, image.Rect(1, 1, 10, 5), image.Rect(15, 10, 34, 19))
	regions := Regions(m, EightConnected)
	test.That(t, regions, test.ShouldHaveLength, 2)
	test.That(t, regions[0].Area(), test.ShouldEqual, 50)
	test.That(t, regions[1].Area(), test.ShouldEqual, 200)

	best := Largest(regions, 1)
	test.That(t, best.Area(), test.ShouldEqual, 200)
	test.That(t, best[0], test.ShouldResemble, image.Point{15, 10})
}

func TestLargestMinArea(t *testing.T) {
	m := blockMask(40, 40, image.Rect(1, 1, 10, 5), image.Rect(15, 10, 34, 19))
	regions := Regions(m, EightConnected)

	best := Largest(regions, 100)
	test.That(t, best.Area(), test.ShouldEqual, 200)

	test.That(t, Largest(regions, 201), test.ShouldBeNil)
	test.That(t, Largest(nil, 1), test.ShouldBeNil)

	// a non-positive floor means any region counts
	best = Largest(regions, 0)
	test.That(t, best.Area(), test.ShouldEqual, 200)
}

func TestLargestTieKeepsFirst(t *testing.T) {
	m := blockMask(20, 20, image.Rect(0, 0, 3, 0), image.Rect(0, 5, 3, 5))
	regions := Regions(m, EightConnected)
	test.That(t, regions, test.ShouldHaveLength, 2)
	best := Largest(regions, 1)
	test.That(t, best.Area(), test.ShouldEqual, 4)
	test.That(t, best[0], test.ShouldResemble, image.Point{0, 0})
}

func TestConnectivityValidate(t *testing.T) {
	test.That(t, FourConnected.Validate(), test.ShouldBeNil)
	test.That(t, EightConnected.Validate(), test.ShouldBeNil)
	err := Connectivity(3).Validate()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "must be 4 or 8")
}

func TestMaskBasics(t *testing.T) {
	m := NewMask(5, 4)
	test.That(t, m.Bounds(), test.ShouldResemble, image.Rect(0, 0, 5, 4))
	test.That(t, m.At(-1, 0), test.ShouldEqual, uint8(0))
	test.That(t, m.At(0, 4), test.ShouldEqual, uint8(0))
	m.Set(2, 2, 7) // any nonzero stores as 1
	test.That(t, m.At(2, 2), test.ShouldEqual, uint8(1))
	m.Set(-1, 0, 1) // out of bounds writes are dropped
	test.That(t, m.Area(), test.ShouldEqual, 1)

	c := m.Clone()
	c.Set(2, 2, 0)
	test.That(t, m.At(2, 2), test.ShouldEqual, uint8(1))
	test.That(t, c.At(2, 2), test.ShouldEqual, uint8(0))
}
