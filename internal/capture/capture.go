// Package capture drives a camera through recognition and hands annotated
// frames to a display. Attendance is recorded on operator request.
package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/kozaktomas/geoface/internal/attendance"
	"github.com/kozaktomas/geoface/internal/faceapi"
	"github.com/kozaktomas/geoface/internal/facematch"
	"github.com/kozaktomas/geoface/internal/imageio"
	"github.com/kozaktomas/geoface/internal/logging"
)

// Camera produces frames. Read returns io.EOF when no more frames will come.
type Camera interface {
	Read(ctx context.Context) (image.Image, error)
	Close() error
}

// Display shows annotated frames.
type Display interface {
	Show(ctx context.Context, frame image.Image) error
	Close() error
}

// Action is an operator request.
type Action int

const (
	ActionMark Action = iota + 1 // record attendance for the current frame
	ActionQuit
)

func (a Action) String() string {
	switch a {
	case ActionMark:
		return "mark"
	case ActionQuit:
		return "quit"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Recognizer is the part of the attendance service the loop needs.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image) ([]facematch.FaceMatch, error)
	AttendMatches(ctx context.Context, matches []facematch.FaceMatch) (attendance.Outcome, error)
}

// Loop runs camera frames through recognition.
type Loop struct {
	Camera     Camera
	Display    Display
	Recognizer Recognizer
	Actions    <-chan Action
	Logger     *slog.Logger

	// SnapshotDir, if set, receives a JPEG of every frame that produced a record.
	SnapshotDir string
	// OnOutcome, if set, is called with the result of every mark action.
	OnOutcome func(attendance.Outcome)
}

// Run processes frames until ctx is done, the camera runs out of frames or
// the operator quits. Camera and display are closed before Run returns.
// Per-frame analysis failures are logged and do not stop the loop; a storage
// failure does.
func (l *Loop) Run(ctx context.Context) (err error) {
	log := logging.OrDefault(l.Logger)
	defer func() {
		var closeErrs []error
		if l.Camera != nil {
			closeErrs = append(closeErrs, l.Camera.Close())
		}
		if l.Display != nil {
			closeErrs = append(closeErrs, l.Display.Close())
		}
		if cerr := errors.Join(closeErrs...); cerr != nil {
			log.Warn("closing capture devices", "error", cerr)
			if err == nil {
				err = cerr
			}
		}
	}()

	if l.Camera == nil || l.Display == nil || l.Recognizer == nil {
		return errors.New("capture loop needs a camera, a display and a recognizer")
	}

	var (
		frame   image.Image
		matches []facematch.FaceMatch
		frames  int
	)
	for {
		if ctx.Err() != nil {
			return nil
		}

		next, err := l.Camera.Read(ctx)
		if errors.Is(err, io.EOF) {
			log.Info("camera stream ended", "frames", frames)
			return nil
		}
		if errors.Is(err, imageio.ErrUnusable) {
			log.Warn("skipping unreadable frame", "error", err)
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("reading frame: %w", err)
		}
		frames++
		frame = next

		matches, err = l.Recognizer.Recognize(ctx, frame)
		switch {
		case errors.Is(err, faceapi.ErrNoFace):
			matches = nil
		case err != nil:
			log.Warn("frame analysis failed", "frame", frames, "error", err)
			matches = nil
		}

		if err := l.Display.Show(ctx, Annotate(frame, matches)); err != nil {
			return fmt.Errorf("showing frame: %w", err)
		}

		quit, err := l.drainActions(ctx, frame, matches)
		if err != nil || quit {
			return err
		}
	}
}

// drainActions handles every action queued so far against the latest frame.
func (l *Loop) drainActions(ctx context.Context, frame image.Image, matches []facematch.FaceMatch) (bool, error) {
	for {
		select {
		case a, ok := <-l.Actions:
			if !ok {
				l.Actions = nil
				return false, nil
			}
			switch a {
			case ActionQuit:
				return true, nil
			case ActionMark:
				if err := l.mark(ctx, frame, matches); err != nil {
					return false, err
				}
			}
		default:
			return false, nil
		}
	}
}

func (l *Loop) mark(ctx context.Context, frame image.Image, matches []facematch.FaceMatch) error {
	log := logging.OrDefault(l.Logger)

	out, err := l.Recognizer.AttendMatches(ctx, matches)
	if err != nil {
		return err
	}
	log.Info("mark requested", "status", out.Status, "identity", out.Name)

	if out.Recorded() && l.SnapshotDir != "" {
		path := filepath.Join(l.SnapshotDir, uuid.NewString()+".jpg")
		if err := imageio.WriteJPEG(path, frame, 90); err != nil {
			log.Warn("saving snapshot failed", "path", path, "error", err)
		} else {
			log.Debug("snapshot saved", "path", path)
		}
	}
	if l.OnOutcome != nil {
		l.OnOutcome(out)
	}
	return nil
}
