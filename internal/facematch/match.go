package facematch

import (
	"image"
	"math"

	"github.com/kozaktomas/geoface/internal/faceapi"
)

// Match is the decision for one probe embedding.
type Match struct {
	Matched  bool    `json:"matched"`
	Name     string  `json:"name,omitempty"`
	Index    int     `json:"index"` // gallery index, -1 without a match
	Distance float64 `json:"distance,omitempty"`

	// Nearest identity regardless of tolerance. Informational only.
	BestName     string  `json:"best_name,omitempty"`
	BestDistance float64 `json:"best_distance,omitempty"`
}

// Matcher compares probe embeddings with gallery signatures.
type Matcher struct {
	Gallery   *Gallery
	Tolerance float64
}

// NewMatcher creates a matcher. A non-positive tolerance selects DefaultTolerance.
func NewMatcher(g *Gallery, tolerance float64) *Matcher {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Matcher{Gallery: g, Tolerance: tolerance}
}

// Match returns the first identity, in gallery order, whose signature lies
// within the tolerance of probe. It is not necessarily the nearest one.
func (m *Matcher) Match(probe []float64) Match {
	result := Match{Index: -1}
	best := math.Inf(1)

	for i := 0; i < m.Gallery.Len(); i++ {
		id := m.Gallery.At(i)
		d := Distance(probe, id.Signature)
		if d < best {
			best = d
			result.BestName = id.Name
			result.BestDistance = d
		}
		if !result.Matched && d <= m.Tolerance {
			result.Matched = true
			result.Name = id.Name
			result.Index = i
			result.Distance = d
		}
	}
	return result
}

// FaceMatch is the decision for one detected face.
type FaceMatch struct {
	Box  image.Rectangle `json:"-"`
	BBox [4]int          `json:"bbox"` // x1, y1, x2, y2
	Match
}

// MatchFaces matches every face in detection order.
func (m *Matcher) MatchFaces(faces []faceapi.Face) []FaceMatch {
	out := make([]FaceMatch, 0, len(faces))
	for _, f := range faces {
		out = append(out, FaceMatch{
			Box:   f.Box,
			BBox:  [4]int{f.Box.Min.X, f.Box.Min.Y, f.Box.Max.X, f.Box.Max.Y},
			Match: m.Match(f.Embedding),
		})
	}
	return out
}

// FirstMatched returns the first matched face, if any.
func FirstMatched(matches []FaceMatch) (FaceMatch, bool) {
	for _, fm := range matches {
		if fm.Matched {
			return fm, true
		}
	}
	return FaceMatch{}, false
}
