package detection

import (
	"context"
	"image"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"

	"github.com/viam-labs/colordetect/rimage"
)

// Config configures the whole per-frame detection pipeline.
type Config struct {
	Color        ColorRange   `json:"color"`
	Kernel       Kernel       `json:"kernel"`
	NoDenoise    bool         `json:"no_denoise,omitempty"`
	Connectivity Connectivity `json:"connectivity,omitempty"`
	MinArea      int          `json:"min_area,omitempty"`
	// BlurSigma > 0 smooths the frame before segmentation.
	BlurSigma float64 `json:"blur_sigma,omitempty"`
	// DownscaleWidth > 0 detects on a resized copy and maps the result back
	// to source coordinates, trading accuracy for speed on large frames.
	DownscaleWidth int `json:"downscale_width,omitempty"`
}

// DefaultConfig returns the pipeline configuration the detector ships with,
// tuned for saturated red.
func DefaultConfig() *Config {
	return &Config{
		Color:        DefaultRed(),
		Kernel:       DefaultKernel(),
		Connectivity: EightConnected,
		MinArea:      1,
	}
}

// Validate checks the config and fills unset fields with their defaults.
func (c *Config) Validate() error {
	if c.Kernel == (Kernel{}) {
		c.Kernel = DefaultKernel()
	}
	if c.Connectivity == 0 {
		c.Connectivity = EightConnected
	}
	if c.MinArea < 1 {
		c.MinArea = 1
	}
	if err := c.Color.Validate(); err != nil {
		return err
	}
	if err := c.Kernel.Validate(); err != nil {
		return err
	}
	if err := c.Connectivity.Validate(); err != nil {
		return err
	}
	return nil
}

// Process runs the full pipeline on one frame and summarizes the dominant
// region. It returns the summary plus a copy of the frame annotated with it,
// or a nil detection and nil image when no region qualifies. The input frame
// is never modified.
func Process(ctx context.Context, img *rimage.Image, cfg *Config) (*Detection, *rimage.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	work := image.Image(img)
	sx, sy := 1.0, 1.0
	if cfg.BlurSigma > 0 {
		work = imaging.Blur(work, cfg.BlurSigma)
	}
	if cfg.DownscaleWidth > 0 && cfg.DownscaleWidth < img.Width() {
		work = resize.Resize(uint(cfg.DownscaleWidth), 0, work, resize.Bilinear)
		sx = float64(img.Width()) / float64(work.Bounds().Dx())
		sy = float64(img.Height()) / float64(work.Bounds().Dy())
	}
	frame := rimage.ConvertImage(work)
	mask := cfg.Color.Segment(frame)
	if !cfg.NoDenoise {
		mask = Denoise(mask, cfg.Kernel)
	}
	region := Largest(Regions(mask, cfg.Connectivity), cfg.MinArea)
	d := NewDetection(region)
	if d == nil {
		return nil, nil, nil
	}
	if sx != 1 || sy != 1 {
		d = d.scaled(sx, sy)
		d.bbox = d.bbox.Intersect(image.Rect(0, 0, img.Width()-1, img.Height()-1))
		d.centroid = clampPoint(d.centroid, img.Width(), img.Height())
	}
	return d, Overlay(img, d), nil
}

func clampPoint(p image.Point, width, height int) image.Point {
	if p.X < 0 {
		p.X = 0
	}
	if p.Y < 0 {
		p.Y = 0
	}
	if p.X > width-1 {
		p.X = width - 1
	}
	if p.Y > height-1 {
		p.Y = height - 1
	}
	return p
}
