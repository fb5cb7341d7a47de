package detection

import (
	"image"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
)

// NewBlurPreprocessor returns a preprocessor that smooths the image with a
// gaussian blur, taking the edge off sensor noise before segmentation.
func NewBlurPreprocessor(sigma float64) Preprocessor {
	return func(img image.Image) image.Image {
		if sigma <= 0 {
			return img
		}
		return imaging.Blur(img, sigma)
	}
}

// NewDownscalePreprocessor returns a preprocessor that resizes the image down
// to the given width, keeping the aspect ratio. Images at or below the width
// already pass through untouched.
func NewDownscalePreprocessor(width int) Preprocessor {
	return func(img image.Image) image.Image {
		if width <= 0 || width >= img.Bounds().Dx() {
			return img
		}
		return resize.Resize(uint(width), 0, img, resize.Bilinear)
	}
}
