package config

import (
	"testing"

	"go.viam.com/test"

	"github.com/viam-labs/colordetect/camera"
	"github.com/viam-labs/colordetect/capture"
	"github.com/viam-labs/colordetect/detection"
)

func TestAttributeMapDecode(t *testing.T) {
	am := AttributeMap{"video_path": "video0", "width_px": 1280, "frame_rate": 60}
	var wc camera.WebcamConfig
	test.That(t, am.Decode(&wc), test.ShouldBeNil)
	test.That(t, wc.Path, test.ShouldEqual, "video0")
	test.That(t, wc.Width, test.ShouldEqual, 1280)
	test.That(t, wc.FrameRate, test.ShouldEqual, float32(60))
	test.That(t, wc.Height, test.ShouldEqual, 0)
}

func TestSourceConfigValidate(t *testing.T) {
	var src SourceConfig
	test.That(t, src.Validate(), test.ShouldBeNil)
	test.That(t, src.Type, test.ShouldEqual, SourceWebcam)

	src = SourceConfig{Type: "carrier-pigeon"}
	err := src.Validate()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unknown camera type")

	src = SourceConfig{Type: SourceFile}
	err = src.Validate()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "image_path")

	src = SourceConfig{Type: SourceWebcam, Attributes: AttributeMap{"width_px": -2}}
	err = src.Validate()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "negative dimensions")
}

func TestConfigValidateDefaults(t *testing.T) {
	cfg := &Config{Camera: SourceConfig{Type: SourceFile, Attributes: AttributeMap{"image_path": "img.png"}}}
	test.That(t, cfg.Validate(), test.ShouldBeNil)
	test.That(t, cfg.Detection, test.ShouldNotBeNil)
	test.That(t, cfg.Detection.Color, test.ShouldResemble, detection.DefaultRed())
	test.That(t, cfg.Capture.MaxRetries, test.ShouldEqual, 5)
	test.That(t, cfg.Web.BindAddress, test.ShouldEqual, DefaultBindAddress)
}

func TestConfigValidateSections(t *testing.T) {
	cfg := &Config{
		Camera:    SourceConfig{Type: SourceFile, Attributes: AttributeMap{"image_path": "img.png"}},
		Detection: &detection.Config{Color: detection.ColorRange{SatMin: 0.4, ValMin: 0.2, Hues: []detection.HueRange{{Low: 20, High: 10}}}},
	}
	err := cfg.Validate()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "detection")

	cfg = &Config{
		Camera:  SourceConfig{Type: SourceFile, Attributes: AttributeMap{"image_path": "img.png"}},
		Capture: capture.Config{FrameLimit: -1},
	}
	err = cfg.Validate()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "capture")
}
