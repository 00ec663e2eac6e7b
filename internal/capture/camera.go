package capture

import (
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/kozaktomas/geoface/internal/imageio"
)

// DirCamera replays the photos of a directory as camera frames, in file
// name order. An unreadable file is returned from Read as an
// imageio.ErrUnusable error and the next Read moves on to the following one.
type DirCamera struct {
	frames   []string
	next     int
	interval time.Duration
	last     time.Time
}

// NewDirCamera lists the photos in dir. Interval paces consecutive frames;
// zero replays them as fast as they are read.
func NewDirCamera(dir string, interval time.Duration) (*DirCamera, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading frame directory: %w", err)
	}
	var frames []string
	for _, e := range entries {
		if e.IsDir() || !imageio.IsPhoto(e.Name()) {
			continue
		}
		frames = append(frames, filepath.Join(dir, e.Name()))
	}
	sort.Strings(frames)
	return &DirCamera{frames: frames, interval: interval}, nil
}

// Len returns the number of frames.
func (c *DirCamera) Len() int {
	return len(c.frames)
}

// Read returns the next frame, or io.EOF after the last one.
func (c *DirCamera) Read(ctx context.Context) (image.Image, error) {
	if c.next >= len(c.frames) {
		return nil, io.EOF
	}
	if c.interval > 0 && !c.last.IsZero() {
		if wait := c.interval - time.Since(c.last); wait > 0 {
			t := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				t.Stop()
				return nil, ctx.Err()
			case <-t.C:
			}
		}
	}
	c.last = time.Now()

	path := c.frames[c.next]
	c.next++
	img, err := imageio.Load(path)
	if err != nil {
		return nil, err
	}
	return img, nil
}

// Close is a no-op.
func (c *DirCamera) Close() error {
	return nil
}
