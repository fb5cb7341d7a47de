// Package utils contains small shared helpers and constants.
package utils

const (
	// MimeTypeJPEG is regular jpgs.
	MimeTypeJPEG = "image/jpeg"

	// MimeTypePNG is regular pngs.
	MimeTypePNG = "image/png"

	// MimeTypeQOI is for .qoi "Quite OK Image" for lossless, fast encoding/decoding.
	MimeTypeQOI = "image/qoi"

	// MimeTypePPM is for the netpbm binary pixmap format some capture tools emit.
	MimeTypePPM = "image/x-portable-pixmap"
)
