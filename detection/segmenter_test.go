package detection

import (
	"testing"

	"go.viam.com/test"

	"github.com/viam-labs/colordetect/rimage"
)

func TestDefaultRedClassification(t *testing.T) {
	cr := DefaultRed()
	// saturated red hues on both sides of the wraparound
	test.That(t, cr.Contains(0, 0.9, 0.9), test.ShouldBeTrue)
	test.That(t, cr.Contains(5, 0.9, 0.9), test.ShouldBeTrue)
	test.That(t, cr.Contains(350, 0.9, 0.9), test.ShouldBeTrue)
	test.That(t, cr.Contains(360, 0.9, 0.9), test.ShouldBeTrue)
	// band edges are inclusive
	test.That(t, cr.Contains(15, 0.9, 0.9), test.ShouldBeTrue)
	test.That(t, cr.Contains(345, 0.9, 0.9), test.ShouldBeTrue)
	test.That(t, cr.Contains(15.5, 0.9, 0.9), test.ShouldBeFalse)
	test.That(t, cr.Contains(344.9, 0.9, 0.9), test.ShouldBeFalse)
	// wrong hue
	test.That(t, cr.Contains(120, 0.9, 0.9), test.ShouldBeFalse)
	test.That(t, cr.Contains(240, 0.9, 0.9), test.ShouldBeFalse)
	// washed out or too dark
	test.That(t, cr.Contains(5, 0.1, 0.9), test.ShouldBeFalse)
	test.That(t, cr.Contains(5, 0.9, 0.1), test.ShouldBeFalse)
}

func TestSegmentImage(t *testing.T) {
	img := rimage.NewImage(10, 10)
	img.SetRGB(2, 2, 255, 0, 0)     // saturated red
	img.SetRGB(5, 5, 0, 255, 0)     // green
	img.SetRGB(3, 3, 40, 0, 0)      // red hue but too dark
	img.SetRGB(4, 4, 255, 200, 200) // red hue but washed out

	mask := DefaultRed().Segment(img)
	test.That(t, mask.Width(), test.ShouldEqual, 10)
	test.That(t, mask.Height(), test.ShouldEqual, 10)
	test.That(t, mask.At(2, 2), test.ShouldEqual, uint8(1))
	test.That(t, mask.At(5, 5), test.ShouldEqual, uint8(0))
	test.That(t, mask.At(3, 3), test.ShouldEqual, uint8(0))
	test.That(t, mask.At(4, 4), test.ShouldEqual, uint8(0))
	test.That(t, mask.Area(), test.ShouldEqual, 1)
}

func TestSegmentWraparound(t *testing.T) {
	img := rimage.NewImage(4, 4)
	r, g, b := rimage.HSVToRGB(350, 0.9, 0.9)
	img.SetRGB(1, 1, r, g, b)
	mask := DefaultRed().Segment(img)
	test.That(t, mask.At(1, 1), test.ShouldEqual, uint8(1))
}

func TestColorRangeValidate(t *testing.T) {
	test.That(t, DefaultRed().Validate(), test.ShouldBeNil)

	cr := DefaultRed()
	cr.Hues = nil
	err := cr.Validate()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "at least one hue range")

	cr = DefaultRed()
	cr.SatMin = 1.5
	test.That(t, cr.Validate(), test.ShouldNotBeNil)

	cr = DefaultRed()
	cr.ValMin = -0.1
	test.That(t, cr.Validate(), test.ShouldNotBeNil)

	cr = DefaultRed()
	cr.Hues = []HueRange{{Low: 20, High: 10}}
	err = cr.Validate()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "low above high")

	cr = DefaultRed()
	cr.Hues = []HueRange{{Low: 300, High: 400}}
	test.That(t, cr.Validate(), test.ShouldNotBeNil)
}
