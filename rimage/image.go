// Package rimage defines the image and color primitives used by the detection pipeline.
package rimage

import (
	"image"
	"image/color"

	"github.com/pkg/errors"
)

// Channels is the number of interleaved samples per pixel.
const Channels = 3

// ErrShortBuffer is returned when a pixel buffer is shorter than its declared
// dimensions require.
var ErrShortBuffer = errors.New("pixel buffer too short for declared dimensions")

// Image is a frame of interleaved 8-bit RGB samples in row-major order. The
// buffer is contiguous with length width*height*Channels. Images are not
// mutated after construction; annotation and drawing operate on a Clone.
type Image struct {
	data          []uint8
	width, height int
}

// NewImage returns a blank (all black) image of the given dimensions.
func NewImage(width, height int) *Image {
	return &Image{data: make([]uint8, width*height*Channels), width: width, height: height}
}

// NewImageFromBuffer wraps an interleaved RGB buffer. The buffer must hold at
// least width*height*Channels bytes; extra trailing bytes (e.g. stride
// padding from a capture backend) are ignored.
func NewImageFromBuffer(data []uint8, width, height int) (*Image, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("invalid image dimensions %dx%d", width, height)
	}
	need := width * height * Channels
	if len(data) < need {
		return nil, errors.Wrapf(ErrShortBuffer, "got %d bytes, need %d for %dx%d", len(data), need, width, height)
	}
	return &Image{data: data[:need], width: width, height: height}, nil
}

func (i *Image) kxy(x, y int) int {
	return ((y * i.width) + x) * Channels
}

// In returns whether the point is within the image bounds.
func (i *Image) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < i.width && y < i.height
}

// Width returns the horizontal width of the image.
func (i *Image) Width() int {
	return i.width
}

// Height returns the vertical height of the image.
func (i *Image) Height() int {
	return i.height
}

// Bounds returns the spatial extent, satisfying image.Image.
func (i *Image) Bounds() image.Rectangle {
	return image.Rect(0, 0, i.width, i.height)
}

// ColorModel satisfies image.Image.
func (i *Image) ColorModel() color.Model {
	return color.NRGBAModel
}

// At satisfies image.Image.
func (i *Image) At(x, y int) color.Color {
	k := i.kxy(x, y)
	return color.NRGBA{i.data[k], i.data[k+1], i.data[k+2], 255}
}

// RGBAt returns the channel samples at a point.
func (i *Image) RGBAt(x, y int) (r, g, b uint8) {
	k := i.kxy(x, y)
	return i.data[k], i.data[k+1], i.data[k+2]
}

// HSVAt converts the pixel at a point on demand.
func (i *Image) HSVAt(x, y int) (h, s, v float64) {
	return RGBToHSV(i.RGBAt(x, y))
}

// SetRGB sets the channel samples at a point. Used only while composing
// synthetic images; live frames are never written to.
func (i *Image) SetRGB(x, y int, r, g, b uint8) {
	k := i.kxy(x, y)
	i.data[k], i.data[k+1], i.data[k+2] = r, g, b
}

// Clone returns a deep copy.
func (i *Image) Clone() *Image {
	data := make([]uint8, len(i.data))
	copy(data, i.data)
	return &Image{data: data, width: i.width, height: i.height}
}

// Data exposes the underlying buffer. Callers must not mutate it.
func (i *Image) Data() []uint8 {
	return i.data
}

// ConvertImage converts a Go image into our Image type, copying pixels. Fast
// paths cover the common decoder and capture formats.
func ConvertImage(img image.Image) *Image {
	if out, ok := img.(*Image); ok {
		return out
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	out := NewImage(width, height)

	switch orig := img.(type) {
	case *image.NRGBA:
		for y := 0; y < height; y++ {
			src := orig.Pix[y*orig.Stride:]
			for x := 0; x < width; x++ {
				out.SetRGB(x, y, src[x*4], src[x*4+1], src[x*4+2])
			}
		}
	case *image.RGBA:
		for y := 0; y < height; y++ {
			src := orig.Pix[y*orig.Stride:]
			for x := 0; x < width; x++ {
				out.SetRGB(x, y, src[x*4], src[x*4+1], src[x*4+2])
			}
		}
	case *image.YCbCr:
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				yy, cb, cr := orig.YCbCrAt(bounds.Min.X+x, bounds.Min.Y+y)
				r, g, b := color.YCbCrToRGB(yy, cb, cr)
				out.SetRGB(x, y, r, g, b)
			}
		}
	default:
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
				out.SetRGB(x, y, uint8(r>>8), uint8(g>>8), uint8(b>>8))
			}
		}
	}

	return out
}
