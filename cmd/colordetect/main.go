// Package main is the colordetect command. It watches a camera stream for
// regions of a configured color, annotates what it finds, and serves the
// live results over HTTP.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	goutils "go.viam.com/utils"

	"github.com/viam-labs/colordetect/camera"
	"github.com/viam-labs/colordetect/capture"
	"github.com/viam-labs/colordetect/config"
	"github.com/viam-labs/colordetect/detection"
	"github.com/viam-labs/colordetect/logging"
	"github.com/viam-labs/colordetect/rimage"
	"github.com/viam-labs/colordetect/web"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:            "colordetect",
		Usage:           "detect regions of a configured color in a camera stream",
		HideHelpCommand: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE`",
			},
			&cli.BoolFlag{
				Name:    "debug",
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "also write logs to a size-rotated `FILE`",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run the capture loop against the configured camera",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "frames",
						Usage: "stop after `N` processed frames, overriding the configured limit",
					},
					&cli.StringFlag{
						Name:  "web-addr",
						Usage: "serve the live view on `ADDR`, overriding the configured address",
					},
				},
				Action: RunAction,
			},
			{
				Name:      "detect",
				Usage:     "detect the configured color in a single image file",
				ArgsUsage: "<image>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "out",
						Usage: "write the annotated image to `FILE`",
					},
				},
				Action: DetectAction,
			},
			{
				Name:   "list",
				Usage:  "list the cameras attached to this machine",
				Action: ListAction,
			},
		},
	}
}

func newLogger(c *cli.Context) logging.Logger {
	logger := logging.NewLogger("colordetect")
	if c.Bool("debug") {
		logger = logging.NewDebugLogger("colordetect")
	}
	if path := c.String("log-file"); path != "" {
		logger.AddAppender(logging.NewFileAppender(path))
	}
	return logger
}

func loadConfig(c *cli.Context, logger logging.Logger) (*config.Config, error) {
	path := c.String("config")
	if path == "" {
		cfg := &config.Config{}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return config.Read(path, logger)
}

// openSource opens the frame source the config asks for.
func openSource(ctx context.Context, cfg *config.Config, logger logging.Logger) (camera.Source, error) {
	switch cfg.Camera.Type {
	case config.SourceFile:
		fc, err := cfg.Camera.File()
		if err != nil {
			return nil, err
		}
		return camera.NewFileSource(fc.ImagePath)
	default:
		wc, err := cfg.Camera.Webcam()
		if err != nil {
			return nil, err
		}
		return camera.NewWebcam(ctx, wc, logger)
	}
}

// RunAction runs the capture loop until the stream ends, the frame limit is
// reached, the user types q, or the process is interrupted.
func RunAction(c *cli.Context) error {
	logger := newLogger(c)
	cfg, err := loadConfig(c, logger)
	if err != nil {
		return err
	}
	if c.IsSet("frames") {
		cfg.Capture.FrameLimit = c.Int("frames")
	}
	if addr := c.String("web-addr"); addr != "" {
		cfg.Web.BindAddress = addr
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, err := openSource(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if cfg.Camera.Type == config.SourceWebcam {
		// live cameras produce faster than a busy pipeline consumes, the
		// buffer keeps only the newest frame
		src = camera.NewBufferedSource(src, logger)
	}
	defer func() {
		goutils.UncheckedError(src.Close(context.Background()))
	}()

	loop, err := capture.New(src, cfg.Detection, cfg.Capture, logger)
	if err != nil {
		return err
	}

	srv := web.NewServer(loop, logger)
	if err := srv.Start(cfg.Web.BindAddress); err != nil {
		return err
	}
	defer func() {
		goutils.UncheckedError(srv.Close())
	}()

	if cfg.ConfigFilePath != "" {
		watcher, err := config.NewWatcher(cfg.ConfigFilePath, logger)
		if err != nil {
			return err
		}
		defer func() {
			goutils.UncheckedError(watcher.Close())
		}()
		goutils.PanicCapturingGo(func() {
			for {
				select {
				case <-ctx.Done():
					return
				case newCfg, ok := <-watcher.Config():
					if !ok {
						return
					}
					if err := loop.UpdateDetection(newCfg.Detection); err != nil {
						logger.Errorw("rejecting updated detection settings", "error", err)
						continue
					}
					logger.Infow("detection settings updated", "path", newCfg.ConfigFilePath)
				}
			}
		})
	}

	// q<Enter> stops the run from the terminal
	goutils.PanicCapturingGo(func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			if strings.TrimSpace(scanner.Text()) == "q" {
				logger.Info("quit requested")
				loop.Stop()
				return
			}
		}
	})

	res, err := loop.Run(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "stopped after %d frames (%s): %d detections, %d skipped\n",
		res.Frames, res.Reason, res.Detections, res.Skipped)
	if res.SessionDir != "" {
		fmt.Fprintf(c.App.Writer, "snapshots in %s\n", res.SessionDir)
	}
	return nil
}

// DetectAction runs the detector over a single image and prints the result.
func DetectAction(c *cli.Context) error {
	logger := newLogger(c)
	if c.NArg() != 1 {
		return errors.New("detect needs exactly one image path")
	}
	cfg, err := loadConfig(c, logger)
	if err != nil {
		return err
	}

	img, err := rimage.ReadImageFromFile(c.Args().First())
	if err != nil {
		return err
	}
	det, annotated, err := detection.Process(c.Context, rimage.ConvertImage(img), cfg.Detection)
	if err != nil {
		return err
	}
	if det == nil {
		fmt.Fprintln(c.App.Writer, "no region found")
		return nil
	}
	fmt.Fprintf(c.App.Writer, "found %s\n", det)
	if out := c.String("out"); out != "" {
		if err := rimage.WriteImageToFile(out, annotated); err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "annotated image written to %s\n", out)
	}
	return nil
}

// ListAction prints the cameras attached to this machine.
func ListAction(c *cli.Context) error {
	logger := newLogger(c)
	infos, err := camera.Discover(c.Context, camera.VideoDrivers, logger)
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Fprintln(c.App.Writer, "no cameras found")
		return nil
	}

	t := table.NewWriter()
	t.AppendHeader(table.Row{"Name", "ID", "Status", "Formats"})
	for _, info := range infos {
		formats := make([]string, 0, len(info.Formats))
		for _, f := range info.Formats {
			formats = append(formats, fmt.Sprintf("%dx%d@%.0ffps %s", f.Width, f.Height, f.FrameRate, f.FrameFormat))
		}
		t.AppendRow([]interface{}{info.Name, info.ID, info.Status, strings.Join(formats, "\n")})
	}
	fmt.Fprintln(c.App.Writer, t.Render())
	return nil
}
