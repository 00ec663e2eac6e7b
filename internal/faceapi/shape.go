package faceapi

import "image"

// eyesFromShape picks the eye points out of a dlib shape. The 68-point model
// stores the image-left eye at 36-41 and the other at 42-47; the 5-point model
// stores the image-right eye corners first.
func eyesFromShape(shape []image.Point) (Landmarks, bool) {
	var left, right []image.Point
	switch len(shape) {
	case 68:
		left, right = shape[36:42], shape[42:48]
	case 5:
		left, right = shape[2:4], shape[0:2]
	default:
		return Landmarks{}, false
	}
	return Landmarks{LeftEye: fromImagePoints(left), RightEye: fromImagePoints(right)}, true
}

func fromImagePoints(pts []image.Point) []Point {
	out := make([]Point, len(pts))
	for i, p := range pts {
		out[i] = Point{X: float64(p.X), Y: float64(p.Y)}
	}
	return out
}
