package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/geoface/internal/attendance"
	"github.com/kozaktomas/geoface/internal/capture"
	"github.com/kozaktomas/geoface/internal/config"
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Recognise faces from the camera and mark attendance on request",
	Long: `Run the camera loop: every frame is recognised and shown with a box and
a name (or "Unknown") around each face. Marking attendance records the first
recognised face of the latest frame.

With --window the frames are shown in a desktop window; press 'a' to mark
attendance and 'q' to quit. Otherwise the annotated frame is written to the
preview file and commands are read from stdin: "a" or "mark" marks
attendance, "q" or "quit" quits. Ctrl+C always quits.

The camera and the window need a build with -tags gocv. --frames replays the
photos of a directory instead, in file name order.

Examples:
  geoface capture --window
  geoface capture --frames ./frames --interval 500ms`,
	Args: cobra.NoArgs,
	RunE: runCapture,
}

func init() {
	rootCmd.AddCommand(captureCmd)

	captureCmd.Flags().Bool("window", false, "Show frames in a desktop window")
	captureCmd.Flags().String("frames", "", "Replay frames from this directory instead of the camera")
	captureCmd.Flags().Duration("interval", 0, "Delay between replayed frames (default from config)")
	captureCmd.Flags().String("snapshots", "", "Save the frame of every recorded attendance here")
	captureCmd.Flags().Float64("tolerance", 0, "Maximum embedding distance for a match (default from config)")
}

// openCamera opens the frame directory when one is given, else the camera device.
func openCamera(cfg *config.Config, framesDir string) (capture.Camera, error) {
	if framesDir != "" {
		cam, err := capture.NewDirCamera(framesDir, cfg.Capture.Interval)
		if err != nil {
			return nil, err
		}
		return cam, nil
	}
	return capture.OpenWebcam(cfg.Capture.Device)
}

func runCapture(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, appOptions{
		withStore: true,
		tolerance: mustGetFloat64(cmd, "tolerance"),
	})
	if err != nil {
		return err
	}
	defer a.Close()

	if interval := mustGetDuration(cmd, "interval"); interval > 0 {
		a.cfg.Capture.Interval = interval
	}
	frames := mustGetString(cmd, "frames")
	if frames == "" {
		frames = a.cfg.Capture.FramesDir
	}
	snapshots := mustGetString(cmd, "snapshots")
	if snapshots == "" {
		snapshots = a.cfg.Capture.SnapshotDir
	}

	camera, err := openCamera(a.cfg, frames)
	if err != nil {
		return err
	}

	actions := make(chan capture.Action, 8)
	var display capture.Display
	if mustGetBool(cmd, "window") {
		display, err = capture.OpenWindow("GeoFace", actions)
		if err != nil {
			camera.Close()
			return err
		}
	} else {
		display = capture.NewFileDisplay(a.cfg.Capture.PreviewPath)
		fmt.Printf("Writing preview to %s. Type \"a\" + Enter to mark attendance, \"q\" to quit.\n", a.cfg.Capture.PreviewPath)
		go func() {
			if err := capture.ReadActions(ctx, os.Stdin, actions); err != nil && ctx.Err() == nil {
				a.logger.Warn("reading commands from stdin failed", "error", err)
			}
		}()
	}

	loop := &capture.Loop{
		Camera:      camera,
		Display:     display,
		Recognizer:  a.service,
		Actions:     actions,
		Logger:      a.logger,
		SnapshotDir: snapshots,
		OnOutcome:   func(out attendance.Outcome) { printOutcome(out) },
	}
	return loop.Run(ctx)
}
