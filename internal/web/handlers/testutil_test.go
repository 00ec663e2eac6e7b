package handlers

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/geoface/internal/attendance"
	"github.com/kozaktomas/geoface/internal/database/mock"
	"github.com/kozaktomas/geoface/internal/faceapi"
	"github.com/kozaktomas/geoface/internal/facematch"
	"github.com/kozaktomas/geoface/internal/geolocate"
)

var (
	bobColor      = color.RGBA{10, 20, 30, 255}
	strangerColor = color.RGBA{200, 200, 200, 255}
	emptyColor    = color.RGBA{0, 0, 0, 255}
)

// colourEncoder returns faces keyed by the colour of the top-left pixel.
type colourEncoder struct {
	faces map[color.RGBA][]faceapi.Face
	err   error
}

func (e *colourEncoder) Encodings(_ context.Context, img image.Image) ([]faceapi.Face, error) {
	if e.err != nil {
		return nil, e.err
	}
	b := img.Bounds()
	c := color.RGBAModel.Convert(img.At(b.Min.X, b.Min.Y)).(color.RGBA)
	return e.faces[c], nil
}

type staticLocator struct {
	err error
}

func (l staticLocator) Current(context.Context) (*geolocate.Location, error) {
	if l.err != nil {
		return nil, l.err
	}
	return &geolocate.Location{Latitude: 50.08, Longitude: 14.42, Place: "Prague, Czechia"}, nil
}

type testEnv struct {
	service *attendance.Service
	repo    *mock.MockAttendanceRepository
	encoder *colourEncoder
}

func newTestEnv(t *testing.T, locErr error) *testEnv {
	t.Helper()
	gallery := facematch.NewGallery([]facematch.Identity{
		{Name: "Alice", Signature: []float64{0, 0}, Photos: 1, Reference: "data/Alice/1.jpg"},
		{Name: "Bob", Signature: []float64{1, 1}, Photos: 3, Reference: "data/Bob/1.jpg"},
	})
	enc := &colourEncoder{faces: map[color.RGBA][]faceapi.Face{
		bobColor:      {{Box: image.Rect(1, 2, 3, 4), Embedding: []float64{1, 1.2}}},
		strangerColor: {{Box: image.Rect(0, 0, 2, 2), Embedding: []float64{7, 7}}},
	}}
	repo := mock.NewMockAttendanceRepository()
	svc := attendance.NewService(enc, facematch.NewMatcher(gallery, 0.6), staticLocator{err: locErr}, repo, nil)
	return &testEnv{service: svc, repo: repo, encoder: enc}
}

func pngOf(t *testing.T, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// uploadRequest builds a multipart POST with data in the "file" field.
func uploadRequest(t *testing.T, path, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	part.Write(data)
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}
