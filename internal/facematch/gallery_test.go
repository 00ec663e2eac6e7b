package facematch

import (
	"context"
	"errors"
	"image/color"
	"math"
	"path/filepath"
	"testing"
)

func newTestBuilder(fa *fakeAnalyzer) *Builder {
	return NewBuilder(fa, nil)
}

func TestBuild_MeanSignature(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "alice", "1.png"), red)
	writePNG(t, filepath.Join(root, "alice", "2.PNG"), green)

	fa := &fakeAnalyzer{byColor: map[color.RGBA][]float64{
		red:   {1, 0, 0, 0},
		green: {0, 1, 0, 0},
	}}
	g, report, err := newTestBuilder(fa).Build(context.Background(), root)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if g.Len() != 1 {
		t.Fatalf("expected 1 identity, got %d", g.Len())
	}

	alice := g.At(0)
	want := []float64{0.5, 0.5, 0, 0}
	for i := range want {
		if math.Abs(alice.Signature[i]-want[i]) > 1e-12 {
			t.Errorf("signature[%d] = %v, want %v", i, alice.Signature[i], want[i])
		}
	}
	if alice.Photos != 2 {
		t.Errorf("expected 2 photos, got %d", alice.Photos)
	}
	if alice.Reference != filepath.Join(root, "alice", "1.png") {
		t.Errorf("unexpected reference %q", alice.Reference)
	}
	if len(report.Loaded) != 1 || len(report.Skipped) != 0 {
		t.Errorf("unexpected report %+v", report)
	}

	m := NewMatcher(g, 0.6).Match([]float64{0.5, 0.5, 0, 0})
	if !m.Matched || m.Name != "alice" {
		t.Errorf("expected probe to match alice, got %+v", m)
	}
}

func TestBuild_OmitsIdentityWithoutUsablePhotos(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "alice", "a.png"), red)
	writeRaw(t, filepath.Join(root, "bob", "broken.jpg"), []byte("not an image"))
	writePNG(t, filepath.Join(root, "bob", "empty_room.png"), gray)
	writeRaw(t, filepath.Join(root, "bob", "notes.txt"), []byte("ignored"))
	writeRaw(t, filepath.Join(root, "README.md"), []byte("ignored"))

	fa := &fakeAnalyzer{byColor: map[color.RGBA][]float64{red: {1, 2, 3}}}
	g, report, err := newTestBuilder(fa).Build(context.Background(), root)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if names := g.Names(); len(names) != 1 || names[0] != "alice" {
		t.Fatalf("expected only alice, got %v", names)
	}
	if len(report.Omitted) != 1 || report.Omitted[0] != "bob" {
		t.Errorf("expected bob omitted, got %v", report.Omitted)
	}

	reasons := map[SkipReason]bool{}
	for _, s := range report.Skipped {
		reasons[s.Reason] = true
	}
	if !reasons[SkipUnreadable] || !reasons[SkipNoFace] || len(report.Skipped) != 2 {
		t.Errorf("expected unreadable and no_face skips, got %+v", report.Skipped)
	}
}

func TestBuild_Idempotent(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "alice", "1.png"), red)
	writePNG(t, filepath.Join(root, "alice", "2.png"), green)
	writePNG(t, filepath.Join(root, "alice", "3.png"), blue)
	writePNG(t, filepath.Join(root, "carol", "1.png"), yellow)

	fa := &fakeAnalyzer{byColor: map[color.RGBA][]float64{
		red:    {0.1, 0.7, 0.3},
		green:  {0.2, 0.1, 0.9},
		blue:   {0.3, 0.3, 0.3},
		yellow: {0.9, 0.9, 0.1},
	}}
	b := newTestBuilder(fa)

	g1, _, err := b.Build(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	g2, _, err := b.Build(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	if g1.Len() != g2.Len() {
		t.Fatalf("gallery sizes differ: %d vs %d", g1.Len(), g2.Len())
	}
	for i := 0; i < g1.Len(); i++ {
		a, c := g1.At(i), g2.At(i)
		if a.Name != c.Name {
			t.Errorf("order differs at %d: %q vs %q", i, a.Name, c.Name)
		}
		for j := range a.Signature {
			if a.Signature[j] != c.Signature[j] {
				t.Errorf("%s signature[%d] differs: %v vs %v", a.Name, j, a.Signature[j], c.Signature[j])
			}
		}
	}
}

func TestBuild_LexicalOrderAndNames(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "zoe", "1.png"), red)
	writePNG(t, filepath.Join(root, "John_Doe", "1.png"), green)
	writePNG(t, filepath.Join(root, "adam", "1.png"), blue)

	fa := &fakeAnalyzer{byColor: map[color.RGBA][]float64{red: {1}, green: {2}, blue: {3}}}
	g, _, err := newTestBuilder(fa).Build(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	names := g.Names()
	want := []string{"John Doe", "adam", "zoe"}
	if len(names) != len(want) {
		t.Fatalf("got %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %q, want %q", i, names[i], want[i])
		}
	}
	if _, ok := g.Lookup("john-doe"); !ok {
		t.Error("expected normalised lookup to find John Doe")
	}
}

func TestBuild_DimensionMismatchSkipped(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "alice", "1.png"), red)
	writePNG(t, filepath.Join(root, "alice", "2.png"), green)

	fa := &fakeAnalyzer{byColor: map[color.RGBA][]float64{red: {1, 1}, green: {1, 1, 1}}}
	g, report, err := newTestBuilder(fa).Build(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	if g.At(0).Photos != 1 {
		t.Errorf("expected 1 usable photo, got %d", g.At(0).Photos)
	}
	if len(report.Skipped) != 1 || report.Skipped[0].Reason != SkipDimension {
		t.Errorf("expected dimension skip, got %+v", report.Skipped)
	}
}

func TestBuild_AnalysisErrorSkipped(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "alice", "1.png"), purple)
	writePNG(t, filepath.Join(root, "alice", "2.png"), red)

	p := purple
	fa := &fakeAnalyzer{byColor: map[color.RGBA][]float64{red: {1}}, errColor: &p}
	g, report, err := newTestBuilder(fa).Build(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	if g.Len() != 1 {
		t.Fatalf("expected alice to survive, got %d identities", g.Len())
	}
	if g.At(0).Reference != filepath.Join(root, "alice", "2.png") {
		t.Errorf("reference should be the first usable photo, got %q", g.At(0).Reference)
	}
	if len(report.Skipped) != 1 || report.Skipped[0].Reason != SkipAnalysis || report.Skipped[0].Error == "" {
		t.Errorf("expected analysis skip with error, got %+v", report.Skipped)
	}
}

func TestBuild_MissingRoot(t *testing.T) {
	g, report, err := newTestBuilder(&fakeAnalyzer{}).Build(context.Background(), filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("missing root should not be an error: %v", err)
	}
	if g.Len() != 0 || len(report.Loaded) != 0 {
		t.Errorf("expected empty gallery")
	}
}

func TestBuild_Cancelled(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "alice", "1.png"), red)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := newTestBuilder(&fakeAnalyzer{}).Build(ctx, root)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestBuildFlat(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "bob_smith.png"), red)
	writePNG(t, filepath.Join(dir, "alice.png"), green)
	writePNG(t, filepath.Join(dir, "alice.jpg"), blue)
	writeRaw(t, filepath.Join(dir, "thumbs.db"), []byte("x"))

	fa := &fakeAnalyzer{byColor: map[color.RGBA][]float64{red: {1, 0}, green: {0, 0}, blue: {2, 2}}}
	var seen int
	b := newTestBuilder(fa)
	b.OnPhoto = func(string) { seen++ }

	g, _, err := b.BuildFlat(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if seen != 3 {
		t.Errorf("expected OnPhoto for 3 photos, got %d", seen)
	}
	alice, ok := g.Lookup("alice")
	if !ok {
		t.Fatal("alice missing")
	}
	if alice.Photos != 2 || alice.Signature[0] != 1 || alice.Signature[1] != 1 {
		t.Errorf("expected photos of one name merged, got %+v", alice)
	}
	if _, ok := g.Lookup("bob smith"); !ok {
		t.Error("bob smith missing")
	}
}

func TestCountPhotos(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "alice", "1.png"), red)
	writePNG(t, filepath.Join(root, "alice", "2.jpeg"), red)
	writePNG(t, filepath.Join(root, "bob", "1.jpg"), red)
	writeRaw(t, filepath.Join(root, "bob", "x.gif"), []byte("x"))

	n, err := CountPhotos(root, false)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("expected 3 photos, got %d", n)
	}

	n, err = CountPhotos(filepath.Join(root, "alice"), true)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("expected 2 flat photos, got %d", n)
	}
}
