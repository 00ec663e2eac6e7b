package capture

import (
	"context"
	"image"

	"github.com/kozaktomas/geoface/internal/imageio"
)

// FileDisplay writes every shown frame to a single JPEG file, replacing the
// previous one. Useful on headless machines.
type FileDisplay struct {
	Path    string
	Quality int
	shown   int
}

// NewFileDisplay creates a display writing to path.
func NewFileDisplay(path string) *FileDisplay {
	return &FileDisplay{Path: path, Quality: 85}
}

// Show writes frame to the preview file.
func (d *FileDisplay) Show(_ context.Context, frame image.Image) error {
	if err := imageio.WriteJPEG(d.Path, frame, d.Quality); err != nil {
		return err
	}
	d.shown++
	return nil
}

// Shown returns how many frames were written.
func (d *FileDisplay) Shown() int {
	return d.shown
}

// Close is a no-op.
func (d *FileDisplay) Close() error {
	return nil
}
