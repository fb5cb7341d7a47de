package detection

import (
	"github.com/pkg/errors"

	"github.com/viam-labs/colordetect/rimage"
)

// HueRange is one inclusive band of hue angles in degrees on the 0-360 wheel.
type HueRange struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// Contains reports whether the hue falls inside the band, both ends inclusive.
func (hr HueRange) Contains(h float64) bool {
	return h >= hr.Low && h <= hr.High
}

// ColorRange configures the segmenter. A pixel is foreground when its
// saturation and value clear the floors and its hue falls in any one of the
// bands. Colors that straddle the hue wraparound, red most of all, are
// expressed as two bands, e.g. [0,15] and [345,360].
type ColorRange struct {
	SatMin float64    `json:"sat_min"`
	ValMin float64    `json:"val_min"`
	Hues   []HueRange `json:"hues"`
}

// DefaultRed returns the red range the detector ships with.
func DefaultRed() ColorRange {
	return ColorRange{
		SatMin: 0.4,
		ValMin: 0.2,
		Hues: []HueRange{
			{Low: 0, High: 15},
			{Low: 345, High: 360},
		},
	}
}

// Validate ensures all fields of the range are valid.
func (cr ColorRange) Validate() error {
	if cr.SatMin < 0 || cr.SatMin > 1 {
		return errors.Errorf("sat_min %v must be in [0,1]", cr.SatMin)
	}
	if cr.ValMin < 0 || cr.ValMin > 1 {
		return errors.Errorf("val_min %v must be in [0,1]", cr.ValMin)
	}
	if len(cr.Hues) == 0 {
		return errors.New("need at least one hue range")
	}
	for _, hr := range cr.Hues {
		if hr.Low < 0 || hr.High > 360 {
			return errors.Errorf("hue range [%v,%v] must be within [0,360]", hr.Low, hr.High)
		}
		if hr.Low > hr.High {
			return errors.Errorf("hue range [%v,%v] has low above high", hr.Low, hr.High)
		}
	}
	return nil
}

// Contains reports whether an HSV triple is inside the range.
func (cr ColorRange) Contains(h, s, v float64) bool {
	if s < cr.SatMin || v < cr.ValMin {
		return false
	}
	for _, hr := range cr.Hues {
		if hr.Contains(h) {
			return true
		}
	}
	return false
}

// Segment classifies every pixel of the image against the range and returns
// the resulting foreground mask.
func (cr ColorRange) Segment(img *rimage.Image) *Mask {
	mask := NewMask(img.Width(), img.Height())
	for y := 0; y < img.Height(); y++ {
		for x := 0; x < img.Width(); x++ {
			if cr.Contains(img.HSVAt(x, y)) {
				mask.Set(x, y, 1)
			}
		}
	}
	return mask
}
