package facematch

import (
	"image"
	"math"

	"golang.org/x/image/math/f64"

	"github.com/kozaktomas/geoface/internal/faceapi"
)

// EyeCentroid returns the mean of the points truncated to whole pixels.
// ok is false for an empty set.
func EyeCentroid(pts []faceapi.Point) (c image.Point, ok bool) {
	if len(pts) == 0 {
		return image.Point{}, false
	}
	var sx, sy float64
	for _, p := range pts {
		sx += p.X
		sy += p.Y
	}
	n := float64(len(pts))
	return image.Point{X: int(sx / n), Y: int(sy / n)}, true
}

// EyeAngle is the angle in degrees of the line from the left eye to the right eye.
func EyeAngle(left, right image.Point) float64 {
	dy := float64(right.Y - left.Y)
	dx := float64(right.X - left.X)
	return math.Atan2(dy, dx) * 180 / math.Pi
}

// EyeMidpoint is the integer midpoint between the eye centroids (floor division).
func EyeMidpoint(left, right image.Point) image.Point {
	return image.Point{
		X: floorDiv(left.X+right.X, 2),
		Y: floorDiv(left.Y+right.Y, 2),
	}
}

// RotationMatrix returns the source-to-destination affine transform rotating
// by angle degrees (counter-clockwise on screen) about center, unscaled.
func RotationMatrix(center image.Point, angle float64) f64.Aff3 {
	rad := angle * math.Pi / 180
	alpha := math.Cos(rad)
	beta := math.Sin(rad)
	cx, cy := float64(center.X), float64(center.Y)
	return f64.Aff3{
		alpha, beta, (1-alpha)*cx - beta*cy,
		-beta, alpha, beta*cx + (1-alpha)*cy,
	}
}

// Apply maps a point through m.
func Apply(m f64.Aff3, x, y float64) (float64, float64) {
	return m[0]*x + m[1]*y + m[2], m[3]*x + m[4]*y + m[5]
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
