package camera

import (
	"context"
	"strings"
	"testing"

	driverutils "github.com/pion/mediadevices/pkg/driver"
	mediadevicescamera "github.com/pion/mediadevices/pkg/driver/camera"
	"github.com/pion/mediadevices/pkg/frame"
	"github.com/pion/mediadevices/pkg/prop"
	"go.viam.com/test"

	"github.com/viam-labs/colordetect/logging"
)

// fakeDriver is a video driver with canned labels and properties.
type fakeDriver struct {
	label  string
	name   string
	status driverutils.State
	props  []prop.Media
}

func (d *fakeDriver) Open() error              { return nil }
func (d *fakeDriver) Close() error             { return nil }
func (d *fakeDriver) Properties() []prop.Media { return d.props }
func (d *fakeDriver) ID() string               { return d.label }
func (d *fakeDriver) Status() driverutils.State {
	return d.status
}

func (d *fakeDriver) Info() driverutils.Info {
	return driverutils.Info{Label: d.label, Name: d.name}
}

func TestWebcamConfigValidate(t *testing.T) {
	test.That(t, WebcamConfig{}.Validate(), test.ShouldBeNil)
	test.That(t, WebcamConfig{Width: 640, Height: 480, FrameRate: 30}.Validate(), test.ShouldBeNil)

	err := WebcamConfig{Width: -1}.Validate()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "negative dimensions")

	err = WebcamConfig{FrameRate: -2}.Validate()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "frame rate")
}

func TestMakeConstraintsExact(t *testing.T) {
	logger := logging.NewTestLogger(t)
	conf := &WebcamConfig{Width: 320, Height: 240, FrameRate: 15, Format: "mjpeg"}
	c := makeConstraints(conf, logger)
	test.That(t, c.Width, test.ShouldResemble, prop.IntExact(320))
	test.That(t, c.Height, test.ShouldResemble, prop.IntExact(240))
	test.That(t, c.FrameRate, test.ShouldResemble, prop.FloatExact(15))
	test.That(t, c.FrameFormat, test.ShouldResemble, prop.FrameFormatExact("mjpeg"))
}

func TestMakeConstraintsDefaults(t *testing.T) {
	logger := logging.NewTestLogger(t)
	c := makeConstraints(&WebcamConfig{}, logger)
	test.That(t, c.Width, test.ShouldResemble, prop.IntRanged{Min: 0, Ideal: 640, Max: 4096})
	test.That(t, c.Height, test.ShouldResemble, prop.IntRanged{Min: 0, Ideal: 480, Max: 2160})
	test.That(t, c.FrameRate, test.ShouldResemble, prop.FloatRanged{Min: 0.0, Ideal: 30.0, Max: 140.0})
	oneOf, ok := c.FrameFormat.(prop.FrameFormatOneOf)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, oneOf, test.ShouldContain, frame.FormatYUY2)
	test.That(t, oneOf, test.ShouldContain, frame.FormatMJPEG)
}

func TestDriverMatchesLabel(t *testing.T) {
	label := strings.Join([]string{"/dev/video0", "Integrated Camera"}, mediadevicescamera.LabelSeparator)
	d := &fakeDriver{label: label}
	test.That(t, driverMatchesLabel(d, "video0"), test.ShouldBeTrue)
	test.That(t, driverMatchesLabel(d, "Integrated Camera"), test.ShouldBeTrue)
	test.That(t, driverMatchesLabel(d, "video1"), test.ShouldBeFalse)
}

func TestDiscover(t *testing.T) {
	logger := logging.NewTestLogger(t)
	withProps := &fakeDriver{
		label:  "/dev/video0",
		name:   strings.Join([]string{"Fancy Cam", "abc123"}, mediadevicescamera.LabelSeparator),
		status: driverutils.StateClosed,
		props: []prop.Media{
			{Video: prop.Video{Width: 640, Height: 480, FrameRate: 30, FrameFormat: frame.FormatYUY2}},
			{Video: prop.Video{Width: 1280, Height: 720, FrameRate: 30, FrameFormat: frame.FormatMJPEG}},
		},
	}
	noProps := &fakeDriver{label: "/dev/video1", name: "Propless", status: driverutils.StateClosed}
	busy := &fakeDriver{
		label:  "/dev/video2",
		name:   "Busy Cam",
		status: driverutils.StateRunning,
		props: []prop.Media{
			{Video: prop.Video{Width: 640, Height: 480, FrameRate: 30, FrameFormat: frame.FormatYUY2}},
		},
	}
	getDrivers := func() []driverutils.Driver {
		return []driverutils.Driver{withProps, noProps, busy}
	}

	webcams, err := Discover(context.Background(), getDrivers, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, webcams, test.ShouldHaveLength, 1)
	test.That(t, webcams[0].Name, test.ShouldEqual, "Fancy Cam")
	test.That(t, webcams[0].ID, test.ShouldEqual, "abc123")
	test.That(t, webcams[0].Label, test.ShouldEqual, "/dev/video0")
	test.That(t, webcams[0].Formats, test.ShouldHaveLength, 2)
	test.That(t, webcams[0].Formats[0], test.ShouldResemble, Format{
		Width: 640, Height: 480, FrameRate: 30, FrameFormat: string(frame.FormatYUY2),
	})
}

func TestDiscoverNameFallsBackToLabel(t *testing.T) {
	logger := logging.NewTestLogger(t)
	d := &fakeDriver{
		label:  "/dev/video5",
		name:   "Plain Cam",
		status: driverutils.StateClosed,
		props: []prop.Media{
			{Video: prop.Video{Width: 320, Height: 240, FrameRate: 10, FrameFormat: frame.FormatI420}},
		},
	}
	webcams, err := Discover(context.Background(), func() []driverutils.Driver {
		return []driverutils.Driver{d}
	}, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, webcams, test.ShouldHaveLength, 1)
	test.That(t, webcams[0].Name, test.ShouldEqual, "Plain Cam")
	test.That(t, webcams[0].ID, test.ShouldEqual, "/dev/video5")
}
