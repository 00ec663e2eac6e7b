// Package facematch builds the gallery of enrolled identities and matches
// probe embeddings against it.
package facematch

// DefaultTolerance is the largest embedding distance accepted as a match.
const DefaultTolerance = 0.6

// Identity is one enrolled person.
type Identity struct {
	Name      string    `json:"name" yaml:"name"`
	Signature []float64 `json:"signature" yaml:"signature"` // mean of all usable photo embeddings
	Photos    int       `json:"photos" yaml:"photos"`
	Reference string    `json:"reference" yaml:"reference"` // first usable photo
}

// Gallery is an ordered, read-only collection of identities.
type Gallery struct {
	identities []Identity
}

// NewGallery returns a gallery holding a copy of ids in the given order.
func NewGallery(ids []Identity) *Gallery {
	out := make([]Identity, len(ids))
	copy(out, ids)
	return &Gallery{identities: out}
}

// Len returns the number of identities.
func (g *Gallery) Len() int {
	if g == nil {
		return 0
	}
	return len(g.identities)
}

// At returns the identity at index i.
func (g *Gallery) At(i int) Identity {
	return g.identities[i]
}

// Identities returns a copy of the identities in gallery order.
func (g *Gallery) Identities() []Identity {
	if g == nil {
		return nil
	}
	out := make([]Identity, len(g.identities))
	copy(out, g.identities)
	return out
}

// Names returns identity names in gallery order.
func (g *Gallery) Names() []string {
	names := make([]string, 0, g.Len())
	for i := 0; i < g.Len(); i++ {
		names = append(names, g.identities[i].Name)
	}
	return names
}

// Lookup finds an identity by name. An exact match is preferred, otherwise
// names are compared ignoring case, diacritics and dashes.
func (g *Gallery) Lookup(name string) (Identity, bool) {
	for i := 0; i < g.Len(); i++ {
		if g.identities[i].Name == name {
			return g.identities[i], true
		}
	}
	want := NormalizePersonName(name)
	for i := 0; i < g.Len(); i++ {
		if NormalizePersonName(g.identities[i].Name) == want {
			return g.identities[i], true
		}
	}
	return Identity{}, false
}

// SkipReason explains why a reference photo did not contribute an embedding.
type SkipReason string

const (
	SkipUnreadable SkipReason = "unreadable"
	SkipNoFace     SkipReason = "no_face"
	SkipAnalysis   SkipReason = "analysis_failed"
	SkipDimension  SkipReason = "dimension_mismatch"
)

// SkippedPhoto is a reference photo left out of the gallery.
type SkippedPhoto struct {
	Identity string     `json:"identity" yaml:"identity"`
	Path     string     `json:"path" yaml:"path"`
	Reason   SkipReason `json:"reason" yaml:"reason"`
	Error    string     `json:"error,omitempty" yaml:"error,omitempty"`
}

// LoadedIdentity summarises one identity that made it into the gallery.
type LoadedIdentity struct {
	Name   string `json:"name" yaml:"name"`
	Photos int    `json:"photos" yaml:"photos"`
}

// BuildReport describes the outcome of a gallery build.
type BuildReport struct {
	Root    string           `json:"root" yaml:"root"`
	Loaded  []LoadedIdentity `json:"loaded" yaml:"loaded"`
	Omitted []string         `json:"omitted,omitempty" yaml:"omitted,omitempty"` // identities without a usable photo
	Skipped []SkippedPhoto   `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}
