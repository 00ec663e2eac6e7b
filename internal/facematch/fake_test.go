package facematch

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/kozaktomas/geoface/internal/faceapi"
)

// fakeAnalyzer identifies a "face" by the colour of the top-left pixel.
type fakeAnalyzer struct {
	byColor   map[color.RGBA][]float64
	errColor  *color.RGBA
	landmarks []faceapi.Landmarks
	lmErr     error
	calls     atomic.Int32
}

func (f *fakeAnalyzer) Landmarks(_ context.Context, _ image.Image) ([]faceapi.Landmarks, error) {
	return f.landmarks, f.lmErr
}

func (f *fakeAnalyzer) Encodings(_ context.Context, img image.Image) ([]faceapi.Face, error) {
	f.calls.Add(1)
	b := img.Bounds()
	c := color.RGBAModel.Convert(img.At(b.Min.X, b.Min.Y)).(color.RGBA)
	if f.errColor != nil && c == *f.errColor {
		return nil, errAnalysis
	}
	emb, ok := f.byColor[c]
	if !ok {
		return nil, nil
	}
	return []faceapi.Face{{Box: image.Rect(1, 1, 5, 5), Embedding: append([]float64(nil), emb...), Score: 1}}, nil
}

func (f *fakeAnalyzer) Close() error { return nil }

type analysisError struct{}

func (analysisError) Error() string { return "model crashed" }

var errAnalysis error = analysisError{}

func solid(c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func writePNG(t *testing.T, path string, c color.RGBA) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, solid(c)); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}
}

func writeRaw(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
}

var (
	red    = color.RGBA{255, 0, 0, 255}
	green  = color.RGBA{0, 255, 0, 255}
	blue   = color.RGBA{0, 0, 255, 255}
	gray   = color.RGBA{128, 128, 128, 255}
	yellow = color.RGBA{255, 255, 0, 255}
	purple = color.RGBA{128, 0, 128, 255}
)
