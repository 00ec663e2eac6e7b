package capture

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/kozaktomas/geoface/internal/facematch"
	"github.com/kozaktomas/geoface/internal/imageio"
)

// UnknownLabel is drawn over faces without a match.
const UnknownLabel = "Unknown"

const boxLineWidth = 2

var (
	matchedColor = color.RGBA{0, 200, 0, 255}
	unknownColor = color.RGBA{220, 0, 0, 255}
	labelText    = color.RGBA{255, 255, 255, 255}
)

// Annotate returns a copy of frame with a labelled box around every face.
// The frame itself is not modified.
func Annotate(frame image.Image, matches []facematch.FaceMatch) *image.RGBA {
	dst := imageio.ToRGB(frame)
	for _, m := range matches {
		c, label := unknownColor, UnknownLabel
		if m.Matched {
			c, label = matchedColor, m.Name
		}
		drawBox(dst, m.Box, c)
		drawLabel(dst, m.Box, label, c)
	}
	return dst
}

func drawBox(dst *image.RGBA, r image.Rectangle, c color.RGBA) {
	if r.Empty() {
		return
	}
	x1, y1, x2, y2 := r.Min.X, r.Min.Y, r.Max.X-1, r.Max.Y-1
	for w := 0; w < boxLineWidth; w++ {
		drawHLine(dst, x1, x2, y1+w, c)
		drawHLine(dst, x1, x2, y2-w, c)
		drawVLine(dst, y1, y2, x1+w, c)
		drawVLine(dst, y1, y2, x2-w, c)
	}
}

// drawLabel writes text on a filled strip below the box, or above it when
// the box touches the bottom edge.
func drawLabel(dst *image.RGBA, box image.Rectangle, text string, bg color.RGBA) {
	if box.Empty() || text == "" {
		return
	}
	face := basicfont.Face7x13
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(labelText), Face: face}
	width := d.MeasureString(text).Ceil() + 4
	height := face.Height + 2

	top := box.Max.Y
	if top+height > dst.Bounds().Max.Y {
		top = box.Min.Y - height
	}
	strip := image.Rect(box.Min.X, top, box.Min.X+width, top+height).Intersect(dst.Bounds())
	if strip.Empty() {
		return
	}
	draw.Draw(dst, strip, image.NewUniform(bg), image.Point{}, draw.Src)

	d.Dot = fixed.P(box.Min.X+2, top+face.Ascent+1)
	d.DrawString(text)
}

func drawHLine(dst *image.RGBA, x1, x2, y int, c color.RGBA) {
	b := dst.Bounds()
	if y < b.Min.Y || y >= b.Max.Y {
		return
	}
	for x := max(x1, b.Min.X); x <= x2 && x < b.Max.X; x++ {
		dst.SetRGBA(x, y, c)
	}
}

func drawVLine(dst *image.RGBA, y1, y2, x int, c color.RGBA) {
	b := dst.Bounds()
	if x < b.Min.X || x >= b.Max.X {
		return
	}
	for y := max(y1, b.Min.Y); y <= y2 && y < b.Max.Y; y++ {
		dst.SetRGBA(x, y, c)
	}
}
