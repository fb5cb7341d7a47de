package rimage

import (
	"image"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
)

func TestNewImageFromBuffer(t *testing.T) {
	buf := make([]uint8, 4*3*Channels)
	img, err := NewImageFromBuffer(buf, 4, 3)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, img.Width(), test.ShouldEqual, 4)
	test.That(t, img.Height(), test.ShouldEqual, 3)
	test.That(t, img.Bounds(), test.ShouldResemble, image.Rect(0, 0, 4, 3))

	// Trailing padding is tolerated.
	img, err = NewImageFromBuffer(make([]uint8, 4*3*Channels+7), 4, 3)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(img.Data()), test.ShouldEqual, 4*3*Channels)

	// A short buffer is rejected with the sentinel.
	_, err = NewImageFromBuffer(make([]uint8, 4*3*Channels-1), 4, 3)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, errors.Is(err, ErrShortBuffer), test.ShouldBeTrue)

	_, err = NewImageFromBuffer(buf, 0, 3)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewImageFromBuffer(buf, 4, -1)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestImageAccessors(t *testing.T) {
	img := NewImage(5, 4)
	img.SetRGB(2, 1, 200, 30, 40)

	r, g, b := img.RGBAt(2, 1)
	test.That(t, r, test.ShouldEqual, uint8(200))
	test.That(t, g, test.ShouldEqual, uint8(30))
	test.That(t, b, test.ShouldEqual, uint8(40))

	h, s, v := img.HSVAt(2, 1)
	eh, es, ev := RGBToHSV(200, 30, 40)
	test.That(t, h, test.ShouldEqual, eh)
	test.That(t, s, test.ShouldEqual, es)
	test.That(t, v, test.ShouldEqual, ev)

	test.That(t, img.In(4, 3), test.ShouldBeTrue)
	test.That(t, img.In(5, 3), test.ShouldBeFalse)
	test.That(t, img.In(-1, 0), test.ShouldBeFalse)
}

func TestImageClone(t *testing.T) {
	img := NewImage(3, 3)
	img.SetRGB(1, 1, 255, 0, 0)

	clone := img.Clone()
	clone.SetRGB(1, 1, 0, 255, 0)

	r, _, _ := img.RGBAt(1, 1)
	test.That(t, r, test.ShouldEqual, uint8(255))
	cr, cg, _ := clone.RGBAt(1, 1)
	test.That(t, cr, test.ShouldEqual, uint8(0))
	test.That(t, cg, test.ShouldEqual, uint8(255))
}

func TestConvertImage(t *testing.T) {
	nrgba := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			nrgba.Pix[y*nrgba.Stride+x*4] = uint8(10 * x)
			nrgba.Pix[y*nrgba.Stride+x*4+1] = uint8(20 * y)
			nrgba.Pix[y*nrgba.Stride+x*4+2] = 5
			nrgba.Pix[y*nrgba.Stride+x*4+3] = 255
		}
	}

	img := ConvertImage(nrgba)
	test.That(t, img.Width(), test.ShouldEqual, 3)
	test.That(t, img.Height(), test.ShouldEqual, 2)
	r, g, b := img.RGBAt(2, 1)
	test.That(t, r, test.ShouldEqual, uint8(20))
	test.That(t, g, test.ShouldEqual, uint8(20))
	test.That(t, b, test.ShouldEqual, uint8(5))

	// Converting our own type is a no-op.
	test.That(t, ConvertImage(img), test.ShouldEqual, img)
}
