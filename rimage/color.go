package rimage

import (
	"github.com/lucasb-eyer/go-colorful"
)

// RGBToHSV converts 8-bit channel samples to hue in [0,360) degrees and
// saturation/value in [0,1]. Hue sectors are selected by whichever channel
// equals the maximum, checking red, then green, then blue, in that order, so
// ties resolve the same way on every run. Gray pixels (delta 0) have hue 0.
func RGBToHSV(r, g, b uint8) (h, s, v float64) {
	rf := float64(r) / 255.0
	gf := float64(g) / 255.0
	bf := float64(b) / 255.0

	maxC := rf
	if gf > maxC {
		maxC = gf
	}
	if bf > maxC {
		maxC = bf
	}
	minC := rf
	if gf < minC {
		minC = gf
	}
	if bf < minC {
		minC = bf
	}
	delta := maxC - minC

	switch {
	case delta == 0:
		h = 0
	case rf == maxC:
		h = 60 * (gf - bf) / delta
	case gf == maxC:
		h = 60 * (2 + (bf-rf)/delta)
	default:
		h = 60 * (4 + (rf-gf)/delta)
	}
	if h < 0 {
		h += 360
	}
	if h >= 360 {
		h -= 360
	}

	if maxC > 0 {
		s = delta / maxC
	}
	v = maxC

	return h, s, v
}

// HSVToRGB is the inverse conversion, used to pick annotation colors and to
// build synthetic test frames.
func HSVToRGB(h, s, v float64) (r, g, b uint8) {
	return colorful.Hsv(h, s, v).RGB255()
}
