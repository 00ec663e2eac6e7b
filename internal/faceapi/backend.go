package faceapi

import (
	"fmt"

	"github.com/kozaktomas/geoface/internal/config"
)

// New returns the analyzer selected by cfg.Backend.
func New(cfg config.EmbeddingConfig) (Analyzer, error) {
	switch cfg.Backend {
	case config.BackendHTTP, "":
		return NewClient(cfg.URL), nil
	case config.BackendDlib:
		return newDlib(cfg.ModelDir)
	default:
		return nil, fmt.Errorf("unknown embedding backend %q", cfg.Backend)
	}
}
