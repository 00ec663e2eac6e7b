package capture

import (
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kozaktomas/geoface/internal/attendance"
	"github.com/kozaktomas/geoface/internal/faceapi"
	"github.com/kozaktomas/geoface/internal/facematch"
	"github.com/kozaktomas/geoface/internal/imageio"
)

type sliceCamera struct {
	frames []image.Image
	reads  int
	closed bool
}

func (c *sliceCamera) Read(context.Context) (image.Image, error) {
	if c.reads >= len(c.frames) {
		return nil, io.EOF
	}
	c.reads++
	return c.frames[c.reads-1], nil
}

func (c *sliceCamera) Close() error {
	c.closed = true
	return nil
}

type recordingDisplay struct {
	shown  []image.Image
	closed bool
}

func (d *recordingDisplay) Show(_ context.Context, frame image.Image) error {
	d.shown = append(d.shown, frame)
	return nil
}

func (d *recordingDisplay) Close() error {
	d.closed = true
	return nil
}

type fakeRecognizer struct {
	matches   []facematch.FaceMatch
	err       error
	attendErr error
	marked    [][]facematch.FaceMatch
}

func (r *fakeRecognizer) Recognize(context.Context, image.Image) ([]facematch.FaceMatch, error) {
	return r.matches, r.err
}

func (r *fakeRecognizer) AttendMatches(_ context.Context, matches []facematch.FaceMatch) (attendance.Outcome, error) {
	r.marked = append(r.marked, matches)
	if r.attendErr != nil {
		return attendance.Outcome{}, r.attendErr
	}
	fm, ok := facematch.FirstMatched(matches)
	if !ok {
		return attendance.Outcome{Status: attendance.StatusNoMatch}, nil
	}
	return attendance.Outcome{Status: attendance.StatusRecorded, Name: fm.Name}, nil
}

func frame(c color.RGBA) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, 255
	}
	return img
}

func bob() []facematch.FaceMatch {
	return []facematch.FaceMatch{{
		Box:   image.Rect(10, 10, 30, 30),
		Match: facematch.Match{Matched: true, Name: "Bob", Index: 0},
	}}
}

func TestLoop_MarkRecordsAndSnapshots(t *testing.T) {
	snapshots := t.TempDir()
	cam := &sliceCamera{frames: []image.Image{frame(color.RGBA{50, 50, 50, 255}), frame(color.RGBA{60, 60, 60, 255})}}
	disp := &recordingDisplay{}
	rec := &fakeRecognizer{matches: bob()}
	actions := make(chan Action, 1)
	actions <- ActionMark

	var outcomes []attendance.Outcome
	loop := &Loop{
		Camera:      cam,
		Display:     disp,
		Recognizer:  rec,
		Actions:     actions,
		SnapshotDir: snapshots,
		OnOutcome:   func(o attendance.Outcome) { outcomes = append(outcomes, o) },
	}
	if err := loop.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(disp.shown) != 2 {
		t.Errorf("expected 2 frames shown, got %d", len(disp.shown))
	}
	if len(rec.marked) != 1 {
		t.Fatalf("expected one mark, got %d", len(rec.marked))
	}
	if len(outcomes) != 1 || outcomes[0].Name != "Bob" {
		t.Errorf("unexpected outcomes %+v", outcomes)
	}
	entries, _ := os.ReadDir(snapshots)
	if len(entries) != 1 || !strings.HasSuffix(entries[0].Name(), ".jpg") {
		t.Errorf("expected one snapshot, got %v", entries)
	}
	if !cam.closed || !disp.closed {
		t.Error("camera and display should be closed")
	}
}

func TestLoop_NoSnapshotWithoutRecord(t *testing.T) {
	snapshots := t.TempDir()
	cam := &sliceCamera{frames: []image.Image{frame(color.RGBA{A: 255})}}
	rec := &fakeRecognizer{err: faceapi.ErrNoFace}
	actions := make(chan Action, 1)
	actions <- ActionMark

	var got attendance.Outcome
	loop := &Loop{Camera: cam, Display: &recordingDisplay{}, Recognizer: rec, Actions: actions,
		SnapshotDir: snapshots, OnOutcome: func(o attendance.Outcome) { got = o }}
	if err := loop.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(rec.marked) != 1 || len(rec.marked[0]) != 0 {
		t.Errorf("expected a mark with no matches, got %v", rec.marked)
	}
	if got.Recorded() {
		t.Error("nothing should be recorded")
	}
	if entries, _ := os.ReadDir(snapshots); len(entries) != 0 {
		t.Errorf("expected no snapshots, got %d", len(entries))
	}
}

func TestLoop_QuitStopsEarly(t *testing.T) {
	cam := &sliceCamera{frames: []image.Image{frame(color.RGBA{A: 255}), frame(color.RGBA{A: 255}), frame(color.RGBA{A: 255})}}
	actions := make(chan Action, 1)
	actions <- ActionQuit

	loop := &Loop{Camera: cam, Display: &recordingDisplay{}, Recognizer: &fakeRecognizer{}, Actions: actions}
	if err := loop.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if cam.reads != 1 {
		t.Errorf("expected to stop after the first frame, read %d", cam.reads)
	}
	if !cam.closed {
		t.Error("camera should be closed")
	}
}

func TestLoop_AnalysisErrorKeepsRunning(t *testing.T) {
	cam := &sliceCamera{frames: []image.Image{frame(color.RGBA{A: 255}), frame(color.RGBA{A: 255})}}
	disp := &recordingDisplay{}
	loop := &Loop{Camera: cam, Display: disp, Recognizer: &fakeRecognizer{err: errors.New("server down")}}
	if err := loop.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(disp.shown) != 2 {
		t.Errorf("expected every frame shown, got %d", len(disp.shown))
	}
}

func TestLoop_StorageErrorStops(t *testing.T) {
	cam := &sliceCamera{frames: []image.Image{frame(color.RGBA{A: 255}), frame(color.RGBA{A: 255})}}
	actions := make(chan Action, 1)
	actions <- ActionMark
	storeErr := errors.New("disk full")

	loop := &Loop{Camera: cam, Display: &recordingDisplay{}, Recognizer: &fakeRecognizer{matches: bob(), attendErr: storeErr}, Actions: actions}
	if err := loop.Run(context.Background()); !errors.Is(err, storeErr) {
		t.Fatalf("expected storage error, got %v", err)
	}
	if !cam.closed {
		t.Error("camera should be closed on error")
	}
}

func TestLoop_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cam := &sliceCamera{frames: []image.Image{frame(color.RGBA{A: 255})}}
	loop := &Loop{Camera: cam, Display: &recordingDisplay{}, Recognizer: &fakeRecognizer{}}
	if err := loop.Run(ctx); err != nil {
		t.Fatalf("expected nil on cancellation, got %v", err)
	}
	if cam.reads != 0 {
		t.Errorf("expected no frames read, got %d", cam.reads)
	}
}

func TestLoop_MissingParts(t *testing.T) {
	if err := (&Loop{}).Run(context.Background()); err == nil {
		t.Fatal("expected error without camera")
	}
}

func TestDirCamera(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"002.jpg", "001.jpg"} {
		if err := imageio.WriteJPEG(filepath.Join(dir, name), frame(color.RGBA{200, 0, 0, 255}), 90); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	cam, err := NewDirCamera(dir, 0)
	if err != nil {
		t.Fatalf("NewDirCamera failed: %v", err)
	}
	if cam.Len() != 2 {
		t.Fatalf("expected 2 frames, got %d", cam.Len())
	}
	if filepath.Base(cam.frames[0]) != "001.jpg" {
		t.Errorf("expected sorted frames, got %v", cam.frames)
	}
	for i := 0; i < 2; i++ {
		if _, err := cam.Read(context.Background()); err != nil {
			t.Fatalf("Read failed: %v", err)
		}
	}
	if _, err := cam.Read(context.Background()); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestLoop_UnreadableFrameSkipped(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.jpg", "c.jpg"} {
		if err := imageio.WriteJPEG(filepath.Join(dir, name), frame(color.RGBA{0, 120, 0, 255}), 90); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "b.jpg"), []byte("corrupt"), 0o600); err != nil {
		t.Fatal(err)
	}
	cam, err := NewDirCamera(dir, 0)
	if err != nil {
		t.Fatal(err)
	}

	disp := &recordingDisplay{}
	loop := &Loop{Camera: cam, Display: disp, Recognizer: &fakeRecognizer{}}
	if err := loop.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(disp.shown) != 2 {
		t.Errorf("expected both readable frames shown, got %d", len(disp.shown))
	}
}

type brokenCamera struct{}

func (brokenCamera) Read(context.Context) (image.Image, error) {
	return nil, errors.New("device unplugged")
}

func (brokenCamera) Close() error { return nil }

func TestLoop_DeviceErrorStops(t *testing.T) {
	loop := &Loop{Camera: brokenCamera{}, Display: &recordingDisplay{}, Recognizer: &fakeRecognizer{}}
	if err := loop.Run(context.Background()); err == nil || !strings.Contains(err.Error(), "device unplugged") {
		t.Fatalf("expected device error, got %v", err)
	}
}

func TestDirCamera_IntervalHonoursContext(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.jpg", "b.jpg"} {
		if err := imageio.WriteJPEG(filepath.Join(dir, name), frame(color.RGBA{A: 255}), 90); err != nil {
			t.Fatal(err)
		}
	}
	cam, err := NewDirCamera(dir, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := cam.Read(context.Background()); err != nil {
		t.Fatalf("first read should not wait: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := cam.Read(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline error, got %v", err)
	}
}

func TestNewDirCamera_Missing(t *testing.T) {
	if _, err := NewDirCamera(filepath.Join(t.TempDir(), "nope"), 0); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestFileDisplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preview.jpg")
	d := NewFileDisplay(path)
	for i := 0; i < 2; i++ {
		if err := d.Show(context.Background(), frame(color.RGBA{0, 0, 200, 255})); err != nil {
			t.Fatalf("Show failed: %v", err)
		}
	}
	if d.Shown() != 2 {
		t.Errorf("expected 2 frames written, got %d", d.Shown())
	}
	if _, err := imageio.Load(path); err != nil {
		t.Errorf("preview should be a readable image: %v", err)
	}
}
