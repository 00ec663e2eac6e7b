package facematch

import (
	"context"
	"image"
	"log/slog"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/kozaktomas/geoface/internal/faceapi"
	"github.com/kozaktomas/geoface/internal/logging"
)

// Aligner levels the eyes of the first face in an image.
type Aligner struct {
	Detector faceapi.LandmarkDetector
	Logger   *slog.Logger
}

// NewAligner creates an aligner using detector for eye landmarks.
func NewAligner(detector faceapi.LandmarkDetector, logger *slog.Logger) *Aligner {
	return &Aligner{Detector: detector, Logger: logging.OrDefault(logger)}
}

// Align returns a copy of img rotated about the eye midpoint so the eyes lie
// on a horizontal line. Dimensions are kept and uncovered pixels are black.
// When no landmarks are found, or detection fails, img itself is returned.
func (a *Aligner) Align(ctx context.Context, img *image.RGBA) *image.RGBA {
	if a == nil || a.Detector == nil || img == nil {
		return img
	}
	log := logging.OrDefault(a.Logger)

	faces, err := a.Detector.Landmarks(ctx, img)
	if err != nil {
		log.Debug("landmark detection failed, image left unaligned", "error", err)
		return img
	}
	if len(faces) == 0 {
		return img
	}

	left, okL := EyeCentroid(faces[0].LeftEye)
	right, okR := EyeCentroid(faces[0].RightEye)
	if !okL || !okR {
		return img
	}

	angle := EyeAngle(left, right)
	center := EyeMidpoint(left, right)
	log.Log(ctx, logging.LevelTrace, "aligning face", "angle", angle, "center", center)

	return rotate(img, RotationMatrix(center, angle))
}

func rotate(src *image.RGBA, m f64.Aff3) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(b)
	draw.BiLinear.Transform(dst, pixelCentered(m), src, b, draw.Src, nil)
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xFF
	}
	return dst
}

// pixelCentered converts a transform over pixel indices into one over
// continuous coordinates, where pixel i spans [i, i+1).
func pixelCentered(m f64.Aff3) f64.Aff3 {
	m[2] += 0.5 - 0.5*(m[0]+m[1])
	m[5] += 0.5 - 0.5*(m[3]+m[4])
	return m
}
