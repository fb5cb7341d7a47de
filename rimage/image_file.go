package rimage

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	// register PPM decoding for image.Decode
	_ "github.com/lmittmann/ppm"
	"github.com/pkg/errors"
	"github.com/xfmoulet/qoi"

	"github.com/viam-labs/colordetect/utils"
)

const jpegQuality = 75

// EncodeImage encodes an image to the requested mime type. An empty mime type
// encodes to JPEG.
func EncodeImage(ctx context.Context, img image.Image, mimeType string) ([]byte, error) {
	var buf bytes.Buffer
	switch mimeType {
	case utils.MimeTypeJPEG, "":
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
			return nil, err
		}
	case utils.MimeTypePNG:
		if err := png.Encode(&buf, img); err != nil {
			return nil, err
		}
	case utils.MimeTypeQOI:
		if err := qoi.Encode(&buf, img); err != nil {
			return nil, err
		}
	default:
		return nil, errors.Errorf("do not know how to encode %q", mimeType)
	}

	return buf.Bytes(), nil
}

// DecodeImage decodes bytes into an image. An empty mime type sniffs the
// format with the registered decoders (JPEG, PNG, PPM, QOI).
func DecodeImage(ctx context.Context, imgBytes []byte, mimeType string) (image.Image, error) {
	switch mimeType {
	case utils.MimeTypeJPEG:
		return jpeg.Decode(bytes.NewReader(imgBytes))
	case utils.MimeTypePNG:
		return png.Decode(bytes.NewReader(imgBytes))
	case utils.MimeTypeQOI:
		return qoi.Decode(bytes.NewReader(imgBytes))
	default:
		img, _, err := image.Decode(bytes.NewReader(imgBytes))
		if err != nil {
			return nil, errors.Wrapf(err, "cannot decode image as %q", mimeType)
		}
		return img, nil
	}
}

// MimeTypeFromPath maps a file extension to the mime type we encode it with.
func MimeTypeFromPath(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return utils.MimeTypeJPEG, nil
	case ".png":
		return utils.MimeTypePNG, nil
	case ".qoi":
		return utils.MimeTypeQOI, nil
	case ".ppm":
		return utils.MimeTypePPM, nil
	default:
		return "", errors.Errorf("cannot determine mime type from path %q", path)
	}
}

// WriteImageToFile encodes an image based on the file extension and writes it.
func WriteImageToFile(path string, img image.Image) error {
	mimeType, err := MimeTypeFromPath(path)
	if err != nil {
		return err
	}
	if mimeType == utils.MimeTypePPM {
		return errors.New("refusing to write ppm, use jpg, png or qoi")
	}

	imgBytes, err := EncodeImage(context.Background(), img, mimeType)
	if err != nil {
		return err
	}

	//nolint:gosec
	return os.WriteFile(path, imgBytes, 0o640)
}

// ReadImageFromFile reads and decodes an image using the registered decoders.
func ReadImageFromFile(path string) (image.Image, error) {
	//nolint:gosec
	imgBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(imgBytes))
	if err != nil {
		return nil, errors.Wrapf(err, "cannot decode image at %q", path)
	}
	return img, nil
}
