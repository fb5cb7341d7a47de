package camera

import (
	"context"
	"image"
	"math"
	"path/filepath"
	"strings"
	"sync"
	"time"

	driverutils "github.com/pion/mediadevices/pkg/driver"
	"github.com/pion/mediadevices/pkg/driver/availability"
	mediadevicescamera "github.com/pion/mediadevices/pkg/driver/camera"
	"github.com/pion/mediadevices/pkg/frame"
	"github.com/pion/mediadevices/pkg/io/video"
	"github.com/pion/mediadevices/pkg/prop"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"github.com/viam-labs/colordetect/logging"
)

// WebcamConfig selects and configures the webcam frames are read from.
type WebcamConfig struct {
	Debug     bool    `json:"debug,omitempty"`
	Format    string  `json:"format,omitempty"`
	Path      string  `json:"video_path,omitempty"`
	Width     int     `json:"width_px,omitempty"`
	Height    int     `json:"height_px,omitempty"`
	FrameRate float32 `json:"frame_rate,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (c WebcamConfig) Validate() error {
	if c.Width < 0 || c.Height < 0 {
		return errors.Errorf(
			"got illegal negative dimensions for width_px and height_px (%d, %d) fields set for webcam camera",
			c.Height, c.Width)
	}
	if c.FrameRate < 0 {
		return errors.Errorf(
			"got illegal negative frame rate (%.2f) field set for webcam camera",
			c.FrameRate)
	}
	return nil
}

// makeConstraints is a helper that returns constraints to mediadevices in
// order to find and make a video source. Constraints are specifications for
// the video stream such as frame format, resolution etc.
func makeConstraints(conf *WebcamConfig, logger logging.Logger) prop.MediaConstraints {
	constraint := prop.MediaConstraints{}

	if conf.Width > 0 {
		constraint.Width = prop.IntExact(conf.Width)
	} else {
		constraint.Width = prop.IntRanged{Min: 0, Ideal: 640, Max: 4096}
	}

	if conf.Height > 0 {
		constraint.Height = prop.IntExact(conf.Height)
	} else {
		constraint.Height = prop.IntRanged{Min: 0, Ideal: 480, Max: 2160}
	}

	if conf.FrameRate > 0.0 {
		constraint.FrameRate = prop.FloatExact(conf.FrameRate)
	} else {
		constraint.FrameRate = prop.FloatRanged{Min: 0.0, Ideal: 30.0, Max: 140.0}
	}

	if conf.Format == "" {
		constraint.FrameFormat = prop.FrameFormatOneOf{
			frame.FormatI420,
			frame.FormatI444,
			frame.FormatYUY2,
			frame.FormatUYVY,
			frame.FormatRGBA,
			frame.FormatMJPEG,
			frame.FormatNV12,
			frame.FormatNV21,
		}
	} else {
		constraint.FrameFormat = prop.FrameFormatExact(conf.Format)
	}

	if conf.Debug {
		logger.Debugf("constraints: %v", constraint)
	}
	return constraint
}

// getDriverProperties is a helper func for webcam discovery that returns the
// Media properties of a specific driver.
func getDriverProperties(d driverutils.Driver) (_ []prop.Media, err error) {
	// Need to open driver to get properties
	if d.Status() == driverutils.StateClosed {
		errOpen := d.Open()
		if errOpen != nil {
			return nil, errOpen
		}
		defer func() {
			if errClose := d.Close(); errClose != nil {
				err = errClose
			}
		}()
	}
	return d.Properties(), err
}

// VideoDrivers returns every registered driver that can record video.
func VideoDrivers() []driverutils.Driver {
	return driverutils.GetManager().Query(driverutils.FilterVideoRecorder())
}

// Discover returns the webcams currently visible to the media stack along
// with the formats each can produce.
func Discover(ctx context.Context, getDrivers func() []driverutils.Driver, logger logging.Logger) ([]Info, error) {
	mediadevicescamera.Initialize()
	var webcams []Info
	for _, d := range getDrivers() {
		driverInfo := d.Info()
		props, err := getDriverProperties(d)
		if len(props) == 0 {
			logger.CDebugw(ctx, "no properties detected for driver, skipping discovery...", "driver", driverInfo.Label)
			continue
		} else if err != nil {
			logger.CDebugw(ctx, "cannot access driver properties, skipping discovery...", "driver", driverInfo.Label, "error", err)
			continue
		}

		if d.Status() == driverutils.StateRunning {
			logger.CDebugw(ctx, "driver is in use, skipping discovery...", "driver", driverInfo.Label)
			continue
		}

		labelParts := strings.Split(driverInfo.Label, mediadevicescamera.LabelSeparator)
		label := labelParts[0]

		name, id := func() (string, string) {
			nameParts := strings.Split(driverInfo.Name, mediadevicescamera.LabelSeparator)
			if len(nameParts) > 1 {
				return nameParts[0], nameParts[1]
			}
			// fall back to the label if the name has no id part to use
			return nameParts[0], label
		}()

		wc := Info{
			Name:    name,
			ID:      id,
			Label:   label,
			Status:  string(d.Status()),
			Formats: make([]Format, 0, len(props)),
		}
		for _, p := range props {
			wc.Formats = append(wc.Formats, Format{
				Width:       p.Video.Width,
				Height:      p.Video.Height,
				FrameRate:   p.Video.FrameRate,
				FrameFormat: string(p.Video.FrameFormat),
			})
		}
		webcams = append(webcams, wc)
	}
	return webcams, nil
}

// getReaderAndDriver opens the video driver whose label matches, or the best
// available driver when the label is empty, at the properties closest to the
// constraints. Candidates are scored with the same fitness distance the
// mediadevices user media path uses.
func getReaderAndDriver(
	label string,
	constraints prop.MediaConstraints,
	logger logging.Logger,
) (video.Reader, driverutils.Driver, error) {
	var bestDriver driverutils.Driver
	var bestProp prop.Media
	minFitnessDist := math.Inf(1)

	for _, d := range VideoDrivers() {
		if label != "" && !driverMatchesLabel(d, label) {
			continue
		}
		props, err := getDriverProperties(d)
		if err != nil {
			logger.Debugw("cannot access driver properties", "driver", d.Info().Label, "error", err)
			continue
		}
		priority := float64(d.Info().Priority)
		for _, p := range props {
			fitnessDist, ok := constraints.FitnessDistance(p)
			if !ok {
				continue
			}
			fitnessDist -= priority
			if fitnessDist < minFitnessDist {
				minFitnessDist = fitnessDist
				bestDriver = d
				bestProp = p
			}
		}
	}
	if bestDriver == nil {
		if label != "" {
			return nil, nil, errors.Errorf("found no webcams matching %q with the requested properties", label)
		}
		return nil, nil, errors.New("found no webcams with the requested properties")
	}

	recorder, ok := bestDriver.(driverutils.VideoRecorder)
	if !ok {
		return nil, nil, errors.Errorf("driver %q cannot record video", bestDriver.Info().Label)
	}
	if bestDriver.Status() == driverutils.StateClosed {
		if err := bestDriver.Open(); err != nil {
			return nil, nil, errors.Wrap(err, "cannot open driver")
		}
	}
	selected := prop.Media{}
	selected.MergeConstraints(constraints)
	selected.Merge(bestProp)
	reader, err := recorder.VideoRecord(selected)
	if err != nil {
		return nil, nil, err
	}
	return reader, bestDriver, nil
}

func driverMatchesLabel(d driverutils.Driver, label string) bool {
	for _, part := range strings.Split(d.Info().Label, mediadevicescamera.LabelSeparator) {
		if filepath.Base(part) == label {
			return true
		}
	}
	return false
}

// findReaderAndDriver finds a video device and returns an image reader and the
// driver instance, as well as the path to the driver.
func findReaderAndDriver(
	conf *WebcamConfig,
	path string,
	logger logging.Logger,
) (video.Reader, driverutils.Driver, string, error) {
	mediadevicescamera.Initialize()
	constraints := makeConstraints(conf, logger)

	// Handle specific path
	if path != "" {
		resolvedPath, err := filepath.EvalSymlinks(path)
		if err == nil {
			path = resolvedPath
		}
		reader, videoDriver, err := getReaderAndDriver(filepath.Base(path), constraints, logger)
		if err != nil {
			return nil, nil, "", err
		}

		if conf.Width != 0 && conf.Height != 0 {
			img, release, err := reader.Read()
			if release != nil {
				defer release()
			}
			if err != nil {
				return nil, nil, "", err
			}
			if img.Bounds().Dx() != conf.Width || img.Bounds().Dy() != conf.Height {
				return nil, nil, "", errors.Errorf("requested width and height (%dx%d) are not available for this webcam"+
					" (closest driver found supports resolution %dx%d)",
					conf.Width, conf.Height, img.Bounds().Dx(), img.Bounds().Dy())
			}
		}
		return reader, videoDriver, path, nil
	}

	// Handle "any" path
	reader, videoDriver, err := getReaderAndDriver("", constraints, logger)
	if err != nil {
		return nil, nil, "", errors.Wrap(err, "found no webcams")
	}
	labels := strings.Split(videoDriver.Info().Label, mediadevicescamera.LabelSeparator)
	path = labels[0] // path is always the first element

	return reader, videoDriver, path, nil
}

// monitoredWebcam wraps a video driver and keeps it connected, reconnecting
// in the background whenever the device drops.
type monitoredWebcam struct {
	mu sync.RWMutex

	reader      video.Reader
	videoDriver driverutils.Driver

	// this is returned to us as a label in mediadevices but our config
	// treats it as a video path.
	targetPath string
	conf       WebcamConfig

	cancelCtx               context.Context
	cancel                  func()
	closed                  bool
	disconnected            bool
	activeBackgroundWorkers sync.WaitGroup
	logger                  logging.Logger
}

// NewWebcam opens the webcam described by the config and starts monitoring
// its connection.
func NewWebcam(ctx context.Context, conf WebcamConfig, logger logging.Logger) (Source, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	cancelCtx, cancel := context.WithCancel(context.Background())
	cam := &monitoredWebcam{
		logger:     logger,
		targetPath: conf.Path,
		conf:       conf,
		cancelCtx:  cancelCtx,
		cancel:     cancel,
	}

	cam.mu.Lock()
	err := cam.reconnectCamera(&conf)
	cam.mu.Unlock()
	if err != nil {
		cancel()
		return nil, err
	}

	cam.logger = cam.logger.WithFields("camera_label", cam.targetPath)
	cam.Monitor()
	return cam, nil
}

// isCameraConnected is a helper for monitoring connectivity to the driver.
func (c *monitoredWebcam) isCameraConnected() (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.videoDriver == nil {
		return true, errors.New("no configured camera")
	}

	// availability checks only work on linux
	_, err := driverutils.IsAvailable(c.videoDriver)
	return !errors.Is(err, availability.ErrNoDevice), nil
}

// reconnectCamera tries to reconnect the camera to a driver that matches the
// config. Assumes a write lock is held.
func (c *monitoredWebcam) reconnectCamera(conf *WebcamConfig) error {
	if c.videoDriver != nil {
		c.logger.Debug("closing current camera")
		if err := c.videoDriver.Close(); err != nil {
			c.logger.Errorw("failed to close current camera", "error", err)
		}
		c.videoDriver = nil
		c.reader = nil
	}

	reader, videoDriver, foundLabel, err := findReaderAndDriver(conf, c.targetPath, c.logger)
	if err != nil {
		return errors.Wrap(err, "failed to find camera")
	}

	c.reader = reader
	c.videoDriver = videoDriver
	c.disconnected = false
	c.closed = false
	if c.targetPath == "" {
		c.targetPath = foundLabel
	}
	return nil
}

// Monitor watches the liveness of the camera and reconnects it in the
// background when the device disappears. The monitor stops once the camera
// has been closed.
func (c *monitoredWebcam) Monitor() {
	const wait = 500 * time.Millisecond
	c.activeBackgroundWorkers.Add(1)

	goutils.ManagedGo(func() {
		for {
			if !goutils.SelectContextOrWait(c.cancelCtx, wait) {
				return
			}

			c.mu.RLock()
			logger := c.logger
			c.mu.RUnlock()

			ok, err := c.isCameraConnected()
			if err != nil {
				logger.Debugw("cannot determine camera status", "error", err)
				continue
			}

			if !ok {
				c.mu.Lock()
				c.disconnected = true
				c.mu.Unlock()

				logger.Error("camera no longer connected; reconnecting")
				for {
					if !goutils.SelectContextOrWait(c.cancelCtx, wait) {
						return
					}
					cont := func() bool {
						c.mu.Lock()
						defer c.mu.Unlock()

						if err := c.reconnectCamera(&c.conf); err != nil {
							c.logger.Debugw("failed to reconnect camera", "error", err)
							return true
						}
						c.logger.Infow("camera reconnected")
						return false
					}()
					if cont {
						continue
					}
					break
				}
			}
		}
	}, c.activeBackgroundWorkers.Done)
}

// ensureActive is a helper that guards logic that requires the camera to be
// actively connected.
func (c *monitoredWebcam) ensureActive() error {
	if c.closed {
		return ErrClosed
	}
	if c.disconnected {
		return ErrDisconnected
	}
	return nil
}

// Next returns the next frame from the webcam.
func (c *monitoredWebcam) Next(ctx context.Context) (image.Image, func(), error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := c.ensureActive(); err != nil {
		return nil, nil, err
	}
	img, release, err := c.reader.Read()
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to read frame from camera")
	}
	return img, release, nil
}

// Properties returns the settings the webcam ended up running with.
func (c *monitoredWebcam) Properties() WebcamConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	conf := c.conf
	conf.Path = c.targetPath
	return conf
}

// Close stops the monitor and releases the camera.
func (c *monitoredWebcam) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errors.New("webcam already closed")
	}
	c.closed = true
	c.mu.Unlock()
	c.cancel()
	c.activeBackgroundWorkers.Wait()

	if c.videoDriver == nil {
		return nil
	}
	return c.videoDriver.Close()
}
