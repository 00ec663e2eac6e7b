//go:build gocv

package capture

import (
	"context"
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// Webcam reads frames from an OpenCV video device.
type Webcam struct {
	capture *gocv.VideoCapture
	frame   gocv.Mat
}

// OpenWebcam opens the video device with the given index.
func OpenWebcam(device int) (Camera, error) {
	vc, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("opening video device %d: %w", device, err)
	}
	return &Webcam{capture: vc, frame: gocv.NewMat()}, nil
}

// Read grabs the next frame.
func (w *Webcam) Read(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ok := w.capture.Read(&w.frame); !ok {
		return nil, errors.New("video device closed")
	}
	if w.frame.Empty() {
		return nil, errors.New("empty frame")
	}
	return w.frame.ToImage()
}

// Close releases the device.
func (w *Webcam) Close() error {
	return errors.Join(w.frame.Close(), w.capture.Close())
}

// Window shows frames in a desktop window and turns key presses into
// actions: 'a' marks attendance, 'q' quits.
type Window struct {
	window  *gocv.Window
	actions chan<- Action
}

// OpenWindow opens a window titled title. Key presses are sent to actions
// without blocking.
func OpenWindow(title string, actions chan<- Action) (Display, error) {
	return &Window{window: gocv.NewWindow(title), actions: actions}, nil
}

// Show displays frame and polls the keyboard once.
func (w *Window) Show(_ context.Context, frame image.Image) error {
	mat, err := gocv.ImageToMatRGB(frame)
	if err != nil {
		return fmt.Errorf("converting frame: %w", err)
	}
	defer mat.Close()

	w.window.IMShow(mat)
	key := w.window.WaitKey(1)
	if key < 0 {
		return nil
	}
	if a, ok := ParseAction(string(rune(key))); ok {
		select {
		case w.actions <- a:
		default:
		}
	}
	return nil
}

// Close destroys the window.
func (w *Window) Close() error {
	return w.window.Close()
}
