package config

import (
	"bytes"
	"io"

	"github.com/a8m/envsubst"
	"github.com/pkg/errors"
	"github.com/yosuke-furukawa/json5/encoding/json5"

	"github.com/viam-labs/colordetect/logging"
)

// Read reads a config from the given file. ${ENV} references in the file are
// substituted before parsing.
func Read(filePath string, logger logging.Logger) (*Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return FromReader(filePath, bytes.NewReader(buf), logger)
}

// FromReader reads a config from the given reader and specifies where, if
// applicable, the file the reader originated from.
func FromReader(originalPath string, r io.Reader, logger logging.Logger) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	cfg := &Config{ConfigFilePath: originalPath}
	if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode config from json")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "failed to process config")
	}
	if cfg.Debug {
		logger.Debugw("config loaded", "path", originalPath)
	}
	return cfg, nil
}
