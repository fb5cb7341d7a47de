package detection

import (
	"fmt"
	"image"
	"image/color"

	"github.com/fogleman/gg"

	"github.com/viam-labs/colordetect/rimage"
)

// drawn in green so the markers stay visible on top of red regions
var overlayColor = color.NRGBA{0, 255, 0, 255}

// Overlay returns a copy of the image annotated with the detection's bounding
// box, a crosshair on the centroid, and the pixel area. The input image is
// never modified.
func Overlay(img *rimage.Image, d *Detection) *rimage.Image {
	if d == nil {
		return img
	}
	dc := gg.NewContextForImage(img)
	box := d.BoundingBox()
	// the stored box is inclusive on both corners, widen it for drawing
	rimage.DrawRectangleEmpty(dc, image.Rect(box.Min.X, box.Min.Y, box.Max.X+1, box.Max.Y+1), overlayColor, 2)
	rimage.DrawCrosshair(dc, d.Centroid(), overlayColor, 6, 2)
	rimage.DrawString(dc, fmt.Sprintf("area %d", d.Area()), image.Point{box.Min.X, box.Min.Y - 6}, overlayColor, 12)
	return rimage.ConvertImage(dc.Image())
}
