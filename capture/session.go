package capture

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/viam-labs/colordetect/logging"
	"github.com/viam-labs/colordetect/rimage"
)

// Session owns the snapshot directory of a single run. Every run gets a
// fresh directory keyed by a random id so back to back runs never clobber
// each other's frames.
type Session struct {
	ID     string
	Dir    string
	logger logging.Logger
}

// NewSession creates the run directory under baseDir and returns the session.
// An empty id generates a fresh one.
func NewSession(baseDir, id string, logger logging.Logger) (*Session, error) {
	if baseDir == "" {
		baseDir = "."
	}
	if id == "" {
		id = uuid.New().String()
	}
	short := id
	if len(short) > 8 {
		short = short[:8]
	}
	dir := filepath.Join(baseDir, "run-"+short)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, errors.Wrap(err, "cannot create snapshot directory")
	}
	logger.Infow("session started", "id", id, "dir", dir)
	return &Session{ID: id, Dir: dir, logger: logger}, nil
}

// SaveFrame persists one frame as frame-N.jpg inside the session directory
// and returns the path written.
func (s *Session) SaveFrame(img image.Image, n int) (string, error) {
	path := filepath.Join(s.Dir, fmt.Sprintf("frame-%d.jpg", n))
	if err := rimage.WriteImageToFile(path, img); err != nil {
		return "", err
	}
	return path, nil
}
