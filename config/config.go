// Package config loads the process configuration file, validates it, and
// watches it for changes so thresholds can be tuned without a restart.
package config

import (
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"

	"github.com/viam-labs/colordetect/camera"
	"github.com/viam-labs/colordetect/capture"
	"github.com/viam-labs/colordetect/detection"
)

// AttributeMap holds the type-specific settings of a camera source before
// they are decoded into a concrete config struct.
type AttributeMap map[string]interface{}

// Decode converts the map into out using out's json tags.
func (am AttributeMap) Decode(out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{TagName: "json", Result: out})
	if err != nil {
		return err
	}
	return decoder.Decode(map[string]interface{}(am))
}

// SourceType selects which kind of frame source to open.
type SourceType string

// The supported camera source types.
const (
	SourceWebcam SourceType = "webcam"
	SourceFile   SourceType = "file"
)

// SourceConfig describes the frame source. Attributes are interpreted
// according to Type.
type SourceConfig struct {
	Type       SourceType   `json:"type"`
	Attributes AttributeMap `json:"attributes,omitempty"`
}

// Webcam decodes the attributes as webcam settings.
func (c *SourceConfig) Webcam() (camera.WebcamConfig, error) {
	var conf camera.WebcamConfig
	if err := c.Attributes.Decode(&conf); err != nil {
		return conf, errors.Wrap(err, "bad webcam attributes")
	}
	return conf, nil
}

// File decodes the attributes as file source settings.
func (c *SourceConfig) File() (FileConfig, error) {
	var conf FileConfig
	if err := c.Attributes.Decode(&conf); err != nil {
		return conf, errors.Wrap(err, "bad file source attributes")
	}
	return conf, nil
}

// Validate checks the source section. An empty type means webcam.
func (c *SourceConfig) Validate() error {
	if c.Type == "" {
		c.Type = SourceWebcam
	}
	switch c.Type {
	case SourceWebcam:
		conf, err := c.Webcam()
		if err != nil {
			return err
		}
		return conf.Validate()
	case SourceFile:
		conf, err := c.File()
		if err != nil {
			return err
		}
		if conf.ImagePath == "" {
			return errors.New("file source needs an image_path")
		}
		return nil
	default:
		return errors.Errorf("unknown camera type %q", c.Type)
	}
}

// FileConfig points a file source at a still image on disk.
type FileConfig struct {
	ImagePath string `json:"image_path"`
}

// DefaultBindAddress is where the status server listens when the config does
// not say otherwise.
const DefaultBindAddress = "localhost:8080"

// WebConfig configures the status server.
type WebConfig struct {
	BindAddress string `json:"bind_address,omitempty"`
}

// Config is the whole process configuration.
type Config struct {
	// ConfigFilePath is where this config was loaded from, if anywhere.
	ConfigFilePath string `json:"-"`

	Debug     bool              `json:"debug,omitempty"`
	Camera    SourceConfig      `json:"camera"`
	Detection *detection.Config `json:"detection,omitempty"`
	Capture   capture.Config    `json:"capture,omitempty"`
	Web       WebConfig         `json:"web,omitempty"`
}

// Validate checks every section and fills in defaults.
func (c *Config) Validate() error {
	if err := c.Camera.Validate(); err != nil {
		return errors.Wrap(err, "camera")
	}
	if c.Detection == nil {
		c.Detection = detection.DefaultConfig()
	}
	if err := c.Detection.Validate(); err != nil {
		return errors.Wrap(err, "detection")
	}
	if err := c.Capture.Validate(); err != nil {
		return errors.Wrap(err, "capture")
	}
	if c.Web.BindAddress == "" {
		c.Web.BindAddress = DefaultBindAddress
	}
	return nil
}
