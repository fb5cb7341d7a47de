package capture

import (
	"bytes"
	"context"
	"image"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/viam-labs/colordetect/camera"
	"github.com/viam-labs/colordetect/detection"
	"github.com/viam-labs/colordetect/logging"
	"github.com/viam-labs/colordetect/rimage"
)

// State is the lifecycle phase of a capture loop.
type State string

// The capture loop states.
const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StateStopped State = "stopped"
)

// StopReason records why a run ended.
type StopReason string

// The ways a run can end.
const (
	// StopReasonUser means Stop was called or the run context was canceled.
	StopReasonUser StopReason = "user_request"
	// StopReasonFrameLimit means the configured number of frames was handled.
	StopReasonFrameLimit StopReason = "frame_limit"
	// StopReasonStreamEnd means the source ran out of frames or failed for
	// good.
	StopReasonStreamEnd StopReason = "stream_end"
)

const (
	defaultMaxRetries   = 5
	defaultRetryBackoff = 100 * time.Millisecond
	maxRetryBackoff     = 2 * time.Second
	statsLogEvery       = 100
)

// Config configures one capture run.
type Config struct {
	// FrameLimit ends the run after this many processed frames. Zero means
	// no limit.
	FrameLimit int `json:"frame_limit,omitempty"`
	// SnapshotEvery persists every Nth frame. Zero disables persistence.
	SnapshotEvery int `json:"snapshot_every,omitempty"`
	// OutputDir is where session directories are created.
	OutputDir string `json:"output_dir,omitempty"`
	// MaxRetries bounds consecutive transient source failures before the
	// stream is declared lost.
	MaxRetries int `json:"max_retries,omitempty"`
	// RetryBackoff is the first wait between retries. It doubles after every
	// consecutive failure.
	RetryBackoff time.Duration `json:"retry_backoff,omitempty"`
}

// Validate fills defaults and checks the config.
func (c *Config) Validate() error {
	if c.FrameLimit < 0 {
		return errors.Errorf("frame_limit %d cannot be negative", c.FrameLimit)
	}
	if c.SnapshotEvery < 0 {
		return errors.Errorf("snapshot_every %d cannot be negative", c.SnapshotEvery)
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = defaultRetryBackoff
	}
	return nil
}

// Result summarizes a finished run.
type Result struct {
	Reason     StopReason `json:"reason"`
	Frames     int        `json:"frames"`
	Detections int        `json:"detections"`
	Skipped    int        `json:"skipped"`
	Saved      int        `json:"saved"`
	SessionDir string     `json:"session_dir,omitempty"`
	Stats      Stats      `json:"stats"`
}

// Loop reads frames from a source and runs the detection pipeline over each
// one until it is stopped, the source ends, or the frame limit is reached.
// Frames are handled one at a time, a new frame is only read once the
// previous one is fully processed.
type Loop struct {
	src    camera.Source
	cfg    Config
	logger logging.Logger
	clock  clock.Clock

	mu         sync.Mutex
	detCfg     *detection.Config
	state      State
	cancelRun  func()
	frames     int
	detections int
	skipped    int
	saved      int
	latestImg  *rimage.Image
	latestDet  *detection.Detection
	latestSeq  uint64

	tracker *Tracker
}

// New returns an idle capture loop. Run starts it.
func New(src camera.Source, detCfg *detection.Config, cfg Config, logger logging.Logger) (*Loop, error) {
	if src == nil {
		return nil, errors.New("capture loop needs a frame source")
	}
	if detCfg == nil {
		detCfg = detection.DefaultConfig()
	}
	if err := detCfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Loop{
		src:     src,
		detCfg:  detCfg,
		cfg:     cfg,
		logger:  logger,
		clock:   clock.New(),
		state:   StateIdle,
		tracker: NewTracker(),
	}, nil
}

// State returns the loop's lifecycle phase.
func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Stop asks a running loop to end once the frame it is currently handling is
// done.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancelRun != nil {
		l.cancelRun()
	}
}

// Latest returns the most recent processed frame, annotated when a region
// was found, along with its detection and a sequence number for change
// detection. The last value is false until the first frame lands.
func (l *Loop) Latest() (*rimage.Image, *detection.Detection, uint64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.latestImg == nil {
		return nil, nil, 0, false
	}
	return l.latestImg, l.latestDet, l.latestSeq, true
}

// Stats returns the timing summary of the frames processed so far.
func (l *Loop) Stats() Stats {
	return l.tracker.Snapshot()
}

// UpdateDetection swaps in new detection settings. Frames already in flight
// finish with the old ones.
func (l *Loop) UpdateDetection(cfg *detection.Config) error {
	if cfg == nil {
		cfg = detection.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	l.mu.Lock()
	l.detCfg = cfg
	l.mu.Unlock()
	return nil
}

// Run drives the loop until it stops and returns the run summary. A loop can
// only run once.
func (l *Loop) Run(ctx context.Context) (*Result, error) {
	l.mu.Lock()
	if l.state != StateIdle {
		state := l.state
		l.mu.Unlock()
		return nil, errors.Errorf("capture loop already %s", state)
	}
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	l.state = StateRunning
	l.cancelRun = cancel
	l.mu.Unlock()

	runID := uuid.New().String()
	l.logger = l.logger.WithFields("run_id", runID[:8])

	var session *Session
	if l.cfg.SnapshotEvery > 0 {
		var err error
		session, err = NewSession(l.cfg.OutputDir, runID, l.logger)
		if err != nil {
			// persistence problems never stop detection
			l.logger.Errorw("cannot create snapshot session; persistence disabled", "error", err)
			session = nil
		}
	}

	reason, runErr := l.process(runCtx, session)

	l.mu.Lock()
	l.state = StateStopped
	res := &Result{
		Reason:     reason,
		Frames:     l.frames,
		Detections: l.detections,
		Skipped:    l.skipped,
		Saved:      l.saved,
		Stats:      l.tracker.Snapshot(),
	}
	if session != nil {
		res.SessionDir = session.Dir
	}
	l.mu.Unlock()

	l.logSummary(res)
	return res, runErr
}

func (l *Loop) process(ctx context.Context, session *Session) (StopReason, error) {
	retries := 0
	backoff := l.cfg.RetryBackoff
	for {
		if ctx.Err() != nil {
			return StopReasonUser, nil
		}
		l.mu.Lock()
		frames := l.frames
		l.mu.Unlock()
		if l.cfg.FrameLimit > 0 && frames >= l.cfg.FrameLimit {
			return StopReasonFrameLimit, nil
		}

		img, release, err := l.src.Next(ctx)
		if err != nil {
			switch {
			case ctx.Err() != nil || errors.Is(err, context.Canceled):
				return StopReasonUser, nil
			case errors.Is(err, rimage.ErrShortBuffer):
				// a malformed frame is dropped on the floor, the rest of
				// the pipeline never sees it
				l.mu.Lock()
				l.skipped++
				l.mu.Unlock()
				l.logger.Warnw("skipping malformed frame", "error", err)
				continue
			case errors.Is(err, camera.ErrStreamEnded), errors.Is(err, camera.ErrClosed):
				return StopReasonStreamEnd, nil
			default:
				retries++
				if retries > l.cfg.MaxRetries {
					return StopReasonStreamEnd, errors.Wrapf(err, "giving up after %d consecutive read failures", retries)
				}
				l.logger.Warnw("frame read failed; retrying", "attempt", retries, "backoff", backoff.String(), "error", err)
				if !l.wait(ctx, backoff) {
					return StopReasonUser, nil
				}
				backoff *= 2
				if backoff > maxRetryBackoff {
					backoff = maxRetryBackoff
				}
				continue
			}
		}
		retries = 0
		backoff = l.cfg.RetryBackoff

		l.handleFrame(ctx, img, release, session)
	}
}

// wait sleeps on the loop's clock so tests can drive time. Returns false if
// the context ended first.
func (l *Loop) wait(ctx context.Context, d time.Duration) bool {
	t := l.clock.Timer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (l *Loop) handleFrame(ctx context.Context, img image.Image, release func(), session *Session) {
	defer func() {
		if release != nil {
			release()
		}
	}()

	frame := rimage.ConvertImage(img)
	if frame.Width() <= 0 || frame.Height() <= 0 {
		l.mu.Lock()
		l.skipped++
		l.mu.Unlock()
		l.logger.Warnw("skipping empty frame")
		return
	}

	l.mu.Lock()
	detCfg := l.detCfg
	l.mu.Unlock()

	start := l.clock.Now()
	det, annotated, err := detection.Process(ctx, frame, detCfg)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		l.mu.Lock()
		l.skipped++
		l.mu.Unlock()
		l.logger.Warnw("frame processing failed; skipping", "error", err)
		return
	}
	took := l.clock.Since(start)
	l.tracker.Record(took)

	display := annotated
	if display == nil {
		display = frame
	}

	l.mu.Lock()
	l.frames++
	n := l.frames
	if det != nil {
		l.detections++
	}
	l.latestImg = display
	l.latestDet = det
	l.latestSeq++
	l.mu.Unlock()

	if det != nil {
		l.logger.Debugw("frame processed", "frame", n, "took", took.String(), "detection", det.String())
	} else {
		l.logger.Debugw("frame processed", "frame", n, "took", took.String())
	}
	if n%statsLogEvery == 0 {
		s := l.tracker.Snapshot()
		l.logger.Infow("throughput", "frames", s.Frames, "mean_ms", s.MeanMS, "fps", s.FPS)
	}

	if session != nil && n%l.cfg.SnapshotEvery == 0 {
		path, err := session.SaveFrame(display, n)
		if err != nil {
			// a failed write is logged and skipped, the loop keeps going
			l.logger.Errorw("failed to persist snapshot", "frame", n, "error", err)
			return
		}
		l.mu.Lock()
		l.saved++
		l.mu.Unlock()
		l.logger.Debugw("snapshot saved", "path", path)
	}
}

func (l *Loop) logSummary(res *Result) {
	l.logger.Infow("capture finished",
		"reason", string(res.Reason),
		"frames", res.Frames,
		"detections", res.Detections,
		"skipped", res.Skipped,
		"saved", res.Saved,
		"mean_ms", res.Stats.MeanMS,
		"fps", res.Stats.FPS,
	)
	var buf bytes.Buffer
	if err := l.tracker.WriteHistogram(&buf); err == nil && buf.Len() > 0 {
		l.logger.Debug("processing time histogram (ms):\n" + strings.TrimRight(buf.String(), "\n"))
	}
}
