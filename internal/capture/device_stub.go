//go:build !gocv

package capture

import "errors"

// ErrNoDevice is returned when the binary was built without camera support.
var ErrNoDevice = errors.New("camera support not compiled in, rebuild with -tags gocv")

// OpenWebcam is not available in this build.
func OpenWebcam(int) (Camera, error) {
	return nil, ErrNoDevice
}

// OpenWindow is not available in this build.
func OpenWindow(string, chan<- Action) (Display, error) {
	return nil, ErrNoDevice
}
