//go:build !dlib

package faceapi

import "fmt"

func newDlib(modelDir string) (Analyzer, error) {
	return nil, fmt.Errorf("%w: rebuild with -tags dlib to use models in %s", ErrBackendUnavailable, modelDir)
}
