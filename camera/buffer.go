package camera

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"github.com/viam-labs/colordetect/logging"
	"github.com/viam-labs/colordetect/rimage"
)

// errorWait is how long the producer pauses after a transient read failure
// before trying the underlying source again.
const errorWait = 100 * time.Millisecond

// BufferedSource reads frames from an underlying source on its own goroutine
// and keeps only the newest result in a single slot. A frame that arrives
// while the previous one is still waiting replaces it, so a slow consumer
// always sees the camera's most recent state instead of a growing backlog.
type BufferedSource struct {
	src    Source
	logger logging.Logger

	mu       sync.Mutex
	img      image.Image
	err      error
	hasItem  bool
	terminal error
	dropped  uint64

	ready                   chan struct{}
	cancelCtx               context.Context
	cancel                  func()
	activeBackgroundWorkers sync.WaitGroup
}

// NewBufferedSource starts reading from src in the background and returns
// the buffering wrapper.
func NewBufferedSource(src Source, logger logging.Logger) *BufferedSource {
	cancelCtx, cancel := context.WithCancel(context.Background())
	bs := &BufferedSource{
		src:       src,
		logger:    logger,
		ready:     make(chan struct{}, 1),
		cancelCtx: cancelCtx,
		cancel:    cancel,
	}
	bs.activeBackgroundWorkers.Add(1)
	goutils.ManagedGo(bs.produce, bs.activeBackgroundWorkers.Done)
	return bs
}

func (bs *BufferedSource) produce() {
	for {
		if bs.cancelCtx.Err() != nil {
			return
		}
		img, release, err := bs.src.Next(bs.cancelCtx)
		if err == nil && release != nil {
			// the slot outlives this read, detach the frame from any reused
			// driver buffer before handing it over
			img = rimage.ConvertImage(img)
			release()
		}
		if errors.Is(err, context.Canceled) {
			return
		}
		terminal := errors.Is(err, ErrClosed) || errors.Is(err, ErrStreamEnded)
		bs.put(img, err, terminal)
		if terminal {
			return
		}
		if err != nil {
			bs.logger.Debugw("frame read failed; will try again", "error", err)
			if !goutils.SelectContextOrWait(bs.cancelCtx, errorWait) {
				return
			}
		}
	}
}

func (bs *BufferedSource) put(img image.Image, err error, terminal bool) {
	bs.mu.Lock()
	if bs.hasItem {
		bs.dropped++
	}
	bs.img, bs.err = img, err
	bs.hasItem = true
	if terminal {
		bs.terminal = err
	}
	bs.mu.Unlock()
	select {
	case bs.ready <- struct{}{}:
	default:
	}
}

// Next returns the newest frame or error produced since the last call and
// empties the slot, waiting for something to arrive when it is empty.
func (bs *BufferedSource) Next(ctx context.Context) (image.Image, func(), error) {
	for {
		bs.mu.Lock()
		if bs.hasItem {
			img, err := bs.img, bs.err
			bs.img, bs.err, bs.hasItem = nil, nil, false
			bs.mu.Unlock()
			if err != nil {
				return nil, nil, err
			}
			return img, func() {}, nil
		}
		if bs.terminal != nil {
			err := bs.terminal
			bs.mu.Unlock()
			return nil, nil, err
		}
		bs.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		case <-bs.cancelCtx.Done():
			return nil, nil, ErrClosed
		case <-bs.ready:
		}
	}
}

// Dropped returns how many results were overwritten before being consumed.
func (bs *BufferedSource) Dropped() uint64 {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	return bs.dropped
}

// Close stops the background reader and closes the underlying source.
func (bs *BufferedSource) Close(ctx context.Context) error {
	bs.cancel()
	bs.activeBackgroundWorkers.Wait()
	return bs.src.Close(ctx)
}
