// Package camera provides the frame sources the capture loop reads from,
// webcams first among them.
package camera

import (
	"context"
	"image"

	"github.com/pkg/errors"
)

var (
	// ErrClosed reports that the source has been closed and cannot operate.
	ErrClosed = errors.New("camera has been closed")
	// ErrDisconnected reports a source that lost its device but may come back.
	ErrDisconnected = errors.New("camera is disconnected; please try again in a few moments")
	// ErrStreamEnded reports a source that has no more frames to give.
	ErrStreamEnded = errors.New("image stream ended")
)

// A Source supplies frames one at a time.
type Source interface {
	// Next returns the next frame along with a release function for any
	// underlying buffer reuse. The release function may be nil.
	Next(ctx context.Context) (image.Image, func(), error)
	// Close stops the source and frees its resources.
	Close(ctx context.Context) error
}

// Format describes one resolution and pixel format a camera can produce.
type Format struct {
	Width       int     `json:"width_px"`
	Height      int     `json:"height_px"`
	FrameRate   float32 `json:"frame_rate"`
	FrameFormat string  `json:"frame_format"`
}

// Info describes one discovered camera device.
type Info struct {
	Name    string   `json:"name"`
	ID      string   `json:"id"`
	Label   string   `json:"label"`
	Status  string   `json:"status"`
	Formats []Format `json:"formats"`
}
