package detection

import (
	"context"
	"image"

	"github.com/pkg/errors"

	"github.com/viam-labs/colordetect/rimage"
)

// Preprocessor is any function that transforms the image before detection.
type Preprocessor func(image.Image) image.Image

// Detector returns the color regions it found in the image as detections.
type Detector func(context.Context, image.Image) ([]*Detection, error)

// Postprocessor filters or reorders an incoming list of detections.
type Postprocessor func([]*Detection) []*Detection

// Build creates a detection pipeline from its three stages. The detector is
// required, a nil preprocessor or postprocessor is filled with the identity
// operator.
func Build(prep Preprocessor, det Detector, post Postprocessor) (Detector, error) {
	if det == nil {
		return nil, errors.New("must have a Detector to build a detection pipeline")
	}
	if prep == nil {
		prep = func(img image.Image) image.Image { return img }
	}
	if post == nil {
		post = func(dets []*Detection) []*Detection { return dets }
	}
	return func(ctx context.Context, img image.Image) ([]*Detection, error) {
		dets, err := det(ctx, prep(img))
		if err != nil {
			return nil, err
		}
		return post(dets), nil
	}, nil
}

// NewColorDetector returns a Detector that segments the image against the
// color range, cleans the mask unless denoising is off, and summarizes every
// connected region found. Only the segmentation fields of the config are read
// here, blur and downscaling compose separately as Preprocessors. The
// detections come back in scan order, callers pick or filter from there.
func NewColorDetector(cfg *Config) (Detector, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return func(ctx context.Context, img image.Image) ([]*Detection, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		frame := rimage.ConvertImage(img)
		mask := cfg.Color.Segment(frame)
		if !cfg.NoDenoise {
			mask = Denoise(mask, cfg.Kernel)
		}
		regions := Regions(mask, cfg.Connectivity)
		dets := make([]*Detection, 0, len(regions))
		for _, r := range regions {
			dets = append(dets, NewDetection(r))
		}
		return dets, nil
	}, nil
}
