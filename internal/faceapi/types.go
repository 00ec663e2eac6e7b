// Package faceapi talks to the face analysis collaborator: face detection,
// eye landmarks and embedding vectors. Nothing here implements those models.
package faceapi

import (
	"context"
	"errors"
	"image"
)

// ErrNoFace is returned when an operation needs a face and none was found.
var ErrNoFace = errors.New("no face detected")

// ErrBackendUnavailable is returned when the configured backend is not compiled in.
var ErrBackendUnavailable = errors.New("face analysis backend not available in this build")

// Point is a landmark position in image pixels.
type Point struct {
	X, Y float64
}

// Landmarks holds the eye outline points of one face. LeftEye is the eye on
// the left side of the image.
type Landmarks struct {
	LeftEye  []Point
	RightEye []Point
}

// Face is one detected face with its embedding.
type Face struct {
	Box       image.Rectangle
	Embedding []float64
	Score     float64 // detector confidence, 1 when the backend does not report one
}

// LandmarkDetector finds eye landmarks of every face in an image.
type LandmarkDetector interface {
	Landmarks(ctx context.Context, img image.Image) ([]Landmarks, error)
}

// Encoder detects faces and computes one embedding per face.
type Encoder interface {
	Encodings(ctx context.Context, img image.Image) ([]Face, error)
}

// Analyzer is a complete face analysis backend.
type Analyzer interface {
	LandmarkDetector
	Encoder
	Close() error
}
