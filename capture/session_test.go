package capture

import (
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"

	"github.com/viam-labs/colordetect/logging"
	"github.com/viam-labs/colordetect/rimage"
)

func TestSessionSaveFrame(t *testing.T) {
	logger := logging.NewTestLogger(t)
	dir := t.TempDir()

	sess, err := NewSession(dir, "", logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sess.ID, test.ShouldNotBeEmpty)
	test.That(t, filepath.Dir(sess.Dir), test.ShouldEqual, dir)
	test.That(t, filepath.Base(sess.Dir), test.ShouldStartWith, "run-")

	path, err := sess.SaveFrame(rimage.NewImage(8, 8), 3)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, filepath.Base(path), test.ShouldEqual, "frame-3.jpg")

	info, err := os.Stat(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, info.Size(), test.ShouldBeGreaterThan, 0)
}

func TestSessionUniqueDirs(t *testing.T) {
	logger := logging.NewTestLogger(t)
	dir := t.TempDir()

	a, err := NewSession(dir, "", logger)
	test.That(t, err, test.ShouldBeNil)
	b, err := NewSession(dir, "", logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, a.Dir, test.ShouldNotEqual, b.Dir)

	named, err := NewSession(dir, "f81d4fae-7dec-11d0-a765-00a0c91e6bf6", logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, filepath.Base(named.Dir), test.ShouldEqual, "run-f81d4fae")
}
