//go:build dlib

package faceapi

import (
	"context"
	"fmt"
	"image"
	"sync"

	face "github.com/Kagami/go-face"
	"github.com/kozaktomas/geoface/internal/imageio"
)

// dlibAnalyzer runs the dlib models in-process through go-face. The
// recognizer is not safe for concurrent use, so calls are serialised.
type dlibAnalyzer struct {
	mu  sync.Mutex
	rec *face.Recognizer
}

func newDlib(modelDir string) (Analyzer, error) {
	rec, err := face.NewRecognizer(modelDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load dlib models from %s: %w", modelDir, err)
	}
	return &dlibAnalyzer{rec: rec}, nil
}

func (d *dlibAnalyzer) recognize(ctx context.Context, img image.Image) ([]face.Face, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := imageio.EncodeJPEG(img, uploadQuality)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.rec == nil {
		return nil, fmt.Errorf("dlib recognizer closed")
	}
	faces, err := d.rec.Recognize(data)
	if err != nil {
		return nil, fmt.Errorf("face detection failed: %w", err)
	}
	return faces, nil
}

func (d *dlibAnalyzer) Landmarks(ctx context.Context, img image.Image) ([]Landmarks, error) {
	faces, err := d.recognize(ctx, img)
	if err != nil {
		return nil, err
	}
	result := make([]Landmarks, len(faces))
	for i, f := range faces {
		result[i], _ = eyesFromShape(f.Shapes)
	}
	return result, nil
}

func (d *dlibAnalyzer) Encodings(ctx context.Context, img image.Image) ([]Face, error) {
	faces, err := d.recognize(ctx, img)
	if err != nil {
		return nil, err
	}
	result := make([]Face, len(faces))
	for i, f := range faces {
		emb := make([]float64, len(f.Descriptor))
		for j, v := range f.Descriptor {
			emb[j] = float64(v)
		}
		result[i] = Face{Box: f.Rectangle, Embedding: emb, Score: 1}
	}
	return result, nil
}

func (d *dlibAnalyzer) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.rec != nil {
		d.rec.Close()
		d.rec = nil
	}
	return nil
}
