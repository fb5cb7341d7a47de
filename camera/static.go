package camera

import (
	"context"
	"image"
	"sync"

	"github.com/viam-labs/colordetect/rimage"
)

// StaticSource serves the same frame forever. Useful for tests and for
// tuning thresholds against a known picture.
type StaticSource struct {
	Img image.Image

	mu     sync.Mutex
	closed bool
}

// Next returns the fixed frame.
func (ss *StaticSource) Next(ctx context.Context) (image.Image, func(), error) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if ss.closed {
		return nil, nil, ErrClosed
	}
	return ss.Img, func() {}, nil
}

// Close stops the source.
func (ss *StaticSource) Close(ctx context.Context) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.closed = true
	return nil
}

// NewFileSource returns a StaticSource loaded from an image file on disk.
func NewFileSource(path string) (*StaticSource, error) {
	img, err := rimage.ReadImageFromFile(path)
	if err != nil {
		return nil, err
	}
	return &StaticSource{Img: img}, nil
}

// SequenceSource serves a fixed list of frames in order and then reports the
// end of the stream. It stands in for finite recordings in tests.
type SequenceSource struct {
	Imgs []image.Image

	mu     sync.Mutex
	next   int
	closed bool
}

// Next returns the next frame in the sequence, or ErrStreamEnded once the
// sequence is exhausted.
func (ss *SequenceSource) Next(ctx context.Context) (image.Image, func(), error) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if ss.closed {
		return nil, nil, ErrClosed
	}
	if ss.next >= len(ss.Imgs) {
		return nil, nil, ErrStreamEnded
	}
	img := ss.Imgs[ss.next]
	ss.next++
	return img, func() {}, nil
}

// Close stops the source.
func (ss *SequenceSource) Close(ctx context.Context) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.closed = true
	return nil
}
