// Package web serves the live status of a capture run over HTTP. It exposes
// the loop state and timing stats as JSON, the most recent annotated frame
// as a JPEG, and the cameras visible on the host.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/cors"
	goutils "go.viam.com/utils"
	"goji.io"
	"goji.io/pat"

	"github.com/viam-labs/colordetect/camera"
	"github.com/viam-labs/colordetect/capture"
	"github.com/viam-labs/colordetect/logging"
	"github.com/viam-labs/colordetect/rimage"
	"github.com/viam-labs/colordetect/utils"
)

// Server publishes a capture loop over HTTP.
type Server struct {
	loop   *capture.Loop
	logger logging.Logger

	httpServer              *http.Server
	listener                net.Listener
	activeBackgroundWorkers sync.WaitGroup
}

// NewServer returns a server for the given loop. Start brings it up.
func NewServer(loop *capture.Loop, logger logging.Logger) *Server {
	return &Server{loop: loop, logger: logger}
}

// Start begins listening on the given address. It returns once the listener
// is up; serving continues in the background until Close.
func (s *Server) Start(bindAddress string) error {
	if s.listener != nil {
		return errors.New("server already started")
	}
	listener, err := net.Listen("tcp", bindAddress)
	if err != nil {
		return err
	}

	s.httpServer = &http.Server{
		Addr:           listener.Addr().String(),
		ReadTimeout:    10 * time.Second,
		MaxHeaderBytes: 1 << 20,
		Handler:        s.newMux(),
	}
	s.listener = listener

	s.activeBackgroundWorkers.Add(1)
	goutils.PanicCapturingGo(func() {
		defer s.activeBackgroundWorkers.Done()
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Errorw("error serving http", "error", err)
		}
	})
	s.logger.Infow("serving status", "url", fmt.Sprintf("http://%s", listener.Addr().String()))
	return nil
}

// Address returns the address the server is listening on.
func (s *Server) Address() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close shuts the server down and waits for in-flight requests.
func (s *Server) Close() error {
	if s.httpServer == nil {
		return nil
	}
	err := s.httpServer.Shutdown(context.Background())
	s.activeBackgroundWorkers.Wait()
	return err
}

// newMux wires up the HTTP routes.
func (s *Server) newMux() *goji.Mux {
	mux := goji.NewMux()
	corsHandler := cors.AllowAll()
	mux.Handle(pat.Get("/status"), corsHandler.Handler(&statusHandler{s}))
	mux.Handle(pat.Get("/frame.jpg"), corsHandler.Handler(&frameHandler{s}))
	mux.Handle(pat.Get("/cameras"), corsHandler.Handler(&camerasHandler{s}))
	return mux
}

type statusResponse struct {
	State  capture.State `json:"state"`
	Stats  capture.Stats `json:"stats"`
	Latest *latestInfo   `json:"latest,omitempty"`
}

type latestInfo struct {
	Seq       uint64         `json:"seq"`
	Width     int            `json:"width"`
	Height    int            `json:"height"`
	Detection *detectionInfo `json:"detection,omitempty"`
}

// detectionInfo is the wire form of a detection. Box is x0, y0, x1, y1 with
// both corners inclusive.
type detectionInfo struct {
	Box      [4]int `json:"box"`
	Centroid [2]int `json:"centroid"`
	Area     int    `json:"area"`
}

// statusHandler serves the loop state and stats as JSON.
type statusHandler struct {
	server *Server
}

func (h *statusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		State: h.server.loop.State(),
		Stats: h.server.loop.Stats(),
	}
	if img, det, seq, ok := h.server.loop.Latest(); ok {
		latest := &latestInfo{Seq: seq, Width: img.Width(), Height: img.Height()}
		if det != nil {
			box := det.BoundingBox()
			centroid := det.Centroid()
			latest.Detection = &detectionInfo{
				Box:      [4]int{box.Min.X, box.Min.Y, box.Max.X, box.Max.Y},
				Centroid: [2]int{centroid.X, centroid.Y},
				Area:     det.Area(),
			}
		}
		resp.Latest = latest
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.server.logger.Debugw("error writing status", "error", err)
	}
}

// frameHandler serves the most recent processed frame as a JPEG.
type frameHandler struct {
	server *Server
}

func (h *frameHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	img, _, _, ok := h.server.loop.Latest()
	if !ok {
		http.Error(w, "no frame has been processed yet", http.StatusNotFound)
		return
	}
	data, err := rimage.EncodeImage(r.Context(), img, utils.MimeTypeJPEG)
	if err != nil {
		http.Error(w, fmt.Sprintf("error encoding frame: %s", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", utils.MimeTypeJPEG)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if _, err := w.Write(data); err != nil {
		h.server.logger.Debugw("error writing frame", "error", err)
	}
}

// camerasHandler lists the cameras visible on the host.
type camerasHandler struct {
	server *Server
}

func (h *camerasHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	infos, err := camera.Discover(r.Context(), camera.VideoDrivers, h.server.logger)
	if err != nil {
		http.Error(w, fmt.Sprintf("error discovering cameras: %s", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(infos); err != nil {
		h.server.logger.Debugw("error writing camera list", "error", err)
	}
}
