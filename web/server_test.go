package web

import (
	"context"
	"encoding/json"
	"image"
	"io"
	"net/http"
	"testing"

	"go.viam.com/test"

	"github.com/viam-labs/colordetect/camera"
	"github.com/viam-labs/colordetect/capture"
	"github.com/viam-labs/colordetect/logging"
	"github.com/viam-labs/colordetect/rimage"
	"github.com/viam-labs/colordetect/utils"
)

// newStoppedLoop runs a short capture over frames with a red block at
// (8,8)-(15,15) so the server has something to report.
func newStoppedLoop(t *testing.T) *capture.Loop {
	t.Helper()
	logger := logging.NewTestLogger(t)
	imgs := make([]image.Image, 3)
	for i := range imgs {
		frame := rimage.NewImage(32, 32)
		for y := 8; y <= 15; y++ {
			for x := 8; x <= 15; x++ {
				frame.SetRGB(x, y, 255, 0, 0)
			}
		}
		imgs[i] = frame
	}
	src := &camera.SequenceSource{Imgs: imgs}
	loop, err := capture.New(src, nil, capture.Config{}, logger)
	test.That(t, err, test.ShouldBeNil)
	_, err = loop.Run(context.Background())
	test.That(t, err, test.ShouldBeNil)
	return loop
}

func startServer(t *testing.T, loop *capture.Loop) *Server {
	t.Helper()
	srv := NewServer(loop, logging.NewTestLogger(t))
	test.That(t, srv.Start("localhost:0"), test.ShouldBeNil)
	t.Cleanup(func() {
		test.That(t, srv.Close(), test.ShouldBeNil)
	})
	return srv
}

func TestServerStatus(t *testing.T) {
	srv := startServer(t, newStoppedLoop(t))

	resp, err := http.Get("http://" + srv.Address() + "/status")
	test.That(t, err, test.ShouldBeNil)
	defer func() {
		test.That(t, resp.Body.Close(), test.ShouldBeNil)
	}()
	test.That(t, resp.StatusCode, test.ShouldEqual, http.StatusOK)
	test.That(t, resp.Header.Get("Content-Type"), test.ShouldEqual, "application/json")

	var status statusResponse
	test.That(t, json.NewDecoder(resp.Body).Decode(&status), test.ShouldBeNil)
	test.That(t, status.State, test.ShouldEqual, capture.StateStopped)
	test.That(t, status.Stats.Frames, test.ShouldEqual, 3)
	test.That(t, status.Latest, test.ShouldNotBeNil)
	test.That(t, status.Latest.Seq, test.ShouldEqual, uint64(3))
	test.That(t, status.Latest.Width, test.ShouldEqual, 32)
	test.That(t, status.Latest.Detection, test.ShouldNotBeNil)
	test.That(t, status.Latest.Detection.Box, test.ShouldResemble, [4]int{8, 8, 15, 15})
	test.That(t, status.Latest.Detection.Area, test.ShouldEqual, 64)
}

func TestServerFrame(t *testing.T) {
	srv := startServer(t, newStoppedLoop(t))

	resp, err := http.Get("http://" + srv.Address() + "/frame.jpg")
	test.That(t, err, test.ShouldBeNil)
	defer func() {
		test.That(t, resp.Body.Close(), test.ShouldBeNil)
	}()
	test.That(t, resp.StatusCode, test.ShouldEqual, http.StatusOK)
	test.That(t, resp.Header.Get("Content-Type"), test.ShouldEqual, utils.MimeTypeJPEG)

	data, err := io.ReadAll(resp.Body)
	test.That(t, err, test.ShouldBeNil)
	img, err := rimage.DecodeImage(context.Background(), data, utils.MimeTypeJPEG)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, img.Bounds().Dx(), test.ShouldEqual, 32)
	test.That(t, img.Bounds().Dy(), test.ShouldEqual, 32)
}

func TestServerNoFramesYet(t *testing.T) {
	logger := logging.NewTestLogger(t)
	src := &camera.StaticSource{Img: rimage.NewImage(8, 8)}
	loop, err := capture.New(src, nil, capture.Config{}, logger)
	test.That(t, err, test.ShouldBeNil)

	srv := startServer(t, loop)

	resp, err := http.Get("http://" + srv.Address() + "/frame.jpg")
	test.That(t, err, test.ShouldBeNil)
	defer func() {
		test.That(t, resp.Body.Close(), test.ShouldBeNil)
	}()
	test.That(t, resp.StatusCode, test.ShouldEqual, http.StatusNotFound)

	statusResp, err := http.Get("http://" + srv.Address() + "/status")
	test.That(t, err, test.ShouldBeNil)
	defer func() {
		test.That(t, statusResp.Body.Close(), test.ShouldBeNil)
	}()
	var status statusResponse
	test.That(t, json.NewDecoder(statusResp.Body).Decode(&status), test.ShouldBeNil)
	test.That(t, status.State, test.ShouldEqual, capture.StateIdle)
	test.That(t, status.Latest, test.ShouldBeNil)
}

func TestServerCameras(t *testing.T) {
	srv := startServer(t, newStoppedLoop(t))

	resp, err := http.Get("http://" + srv.Address() + "/cameras")
	test.That(t, err, test.ShouldBeNil)
	defer func() {
		test.That(t, resp.Body.Close(), test.ShouldBeNil)
	}()
	test.That(t, resp.StatusCode, test.ShouldEqual, http.StatusOK)

	var infos []camera.Info
	test.That(t, json.NewDecoder(resp.Body).Decode(&infos), test.ShouldBeNil)
}
