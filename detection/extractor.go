package detection

import (
	"image"

	"github.com/pkg/errors"
)

// Connectivity selects which neighbors join pixels into one region.
type Connectivity int

// The supported pixel neighborhoods.
const (
	// FourConnected joins pixels across shared edges only.
	FourConnected Connectivity = 4
	// EightConnected also joins pixels across shared corners.
	EightConnected Connectivity = 8
)

// Validate ensures the connectivity is one of the supported neighborhoods.
func (c Connectivity) Validate() error {
	if c != FourConnected && c != EightConnected {
		return errors.Errorf("connectivity must be 4 or 8, got %d", int(c))
	}
	return nil
}

// Region is one connected component of foreground pixels.
type Region []image.Point

// Area returns the number of pixels in the region.
func (r Region) Area() int {
	return len(r)
}

// Regions gathers the connected components of the mask. The mask is scanned
// in row-major order and each component is flood filled from the first pixel
// found, so the output ordering is deterministic for a given mask.
func Regions(m *Mask, conn Connectivity) []Region {
	var regions []Region
	seen := make([]bool, m.width*m.height)
	queue := []image.Point{}
	for i := 0; i < len(seen); i++ {
		if seen[i] {
			continue
		}
		seen[i] = true
		p := image.Point{i % m.width, i / m.width}
		if m.data[i] == 0 {
			continue
		}
		region := Region{}
		queue = append(queue, p)
		for len(queue) > 0 {
			next := queue[0]
			queue = queue[1:]
			region = append(region, next)
			queue = append(queue, neighbors(m, next, conn, seen)...)
		}
		regions = append(regions, region)
	}
	return regions
}

func neighbors(m *Mask, p image.Point, conn Connectivity, seen []bool) []image.Point {
	candidates := [8]image.Point{
		{p.X, p.Y - 1}, {p.X, p.Y + 1}, {p.X - 1, p.Y}, {p.X + 1, p.Y},
		{p.X - 1, p.Y - 1}, {p.X + 1, p.Y - 1}, {p.X - 1, p.Y + 1}, {p.X + 1, p.Y + 1},
	}
	span := 4
	if conn == EightConnected {
		span = 8
	}
	ns := make([]image.Point, 0, span)
	for _, n := range candidates[:span] {
		if !m.In(n.X, n.Y) || seen[m.k(n.X, n.Y)] {
			continue
		}
		seen[m.k(n.X, n.Y)] = true
		if m.data[m.k(n.X, n.Y)] != 0 {
			ns = append(ns, n)
		}
	}
	return ns
}

// Largest returns the region with the most pixels, skipping any region
// smaller than minArea. Ties keep the earlier region in scan order. Returns
// nil when no region qualifies.
func Largest(regions []Region, minArea int) Region {
	if minArea < 1 {
		minArea = 1
	}
	var best Region
	for _, r := range regions {
		if r.Area() < minArea {
			continue
		}
		if r.Area() > best.Area() {
			best = r
		}
	}
	return best
}
