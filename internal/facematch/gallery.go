package facematch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kozaktomas/geoface/internal/faceapi"
	"github.com/kozaktomas/geoface/internal/imageio"
	"github.com/kozaktomas/geoface/internal/logging"
)

// Builder computes identity signatures from reference photos.
type Builder struct {
	Aligner *Aligner
	Encoder faceapi.Encoder
	Logger  *slog.Logger

	// OnPhoto, if set, is called after every reference photo is processed.
	OnPhoto func(path string)
}

// NewBuilder creates a gallery builder that aligns and encodes photos with analyzer.
func NewBuilder(analyzer faceapi.Analyzer, logger *slog.Logger) *Builder {
	logger = logging.OrDefault(logger)
	return &Builder{
		Aligner: NewAligner(analyzer, logger),
		Encoder: analyzer,
		Logger:  logger,
	}
}

// source is one identity and its reference photos, in processing order.
type source struct {
	name   string
	photos []string
}

// Build scans root, where every immediate subdirectory is one identity.
// A missing root yields an empty gallery.
func (b *Builder) Build(ctx context.Context, root string) (*Gallery, *BuildReport, error) {
	sources, err := scanDirLayout(root)
	if err != nil {
		return nil, nil, err
	}
	return b.build(ctx, root, sources)
}

// BuildFlat scans a flat directory holding one photo per identity, named
// after the identity.
func (b *Builder) BuildFlat(ctx context.Context, dir string) (*Gallery, *BuildReport, error) {
	sources, err := scanFlatLayout(dir)
	if err != nil {
		return nil, nil, err
	}
	return b.build(ctx, dir, sources)
}

// CountPhotos returns how many reference photos a build of root would process.
func CountPhotos(root string, flat bool) (int, error) {
	scan := scanDirLayout
	if flat {
		scan = scanFlatLayout
	}
	sources, err := scan(root)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, s := range sources {
		total += len(s.photos)
	}
	return total, nil
}

func (b *Builder) build(ctx context.Context, root string, sources []source) (*Gallery, *BuildReport, error) {
	log := logging.OrDefault(b.Logger)
	report := &BuildReport{Root: root}
	identities := make([]Identity, 0, len(sources))

	for _, src := range sources {
		var (
			embeddings [][]float64
			reference  string
		)
		for _, path := range src.photos {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
			emb, reason, err := b.embed(ctx, path)
			if b.OnPhoto != nil {
				b.OnPhoto(path)
			}
			if err != nil && ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			if reason == "" && len(embeddings) > 0 && len(emb) != len(embeddings[0]) {
				reason = SkipDimension
				err = fmt.Errorf("embedding has %d dimensions, expected %d", len(emb), len(embeddings[0]))
			}
			if reason != "" {
				skip := SkippedPhoto{Identity: src.name, Path: path, Reason: reason}
				if err != nil {
					skip.Error = err.Error()
				}
				report.Skipped = append(report.Skipped, skip)
				log.Warn("skipping reference photo", "identity", src.name, "path", path, "reason", reason, "error", err)
				continue
			}
			if reference == "" {
				reference = path
			}
			embeddings = append(embeddings, emb)
		}

		if len(embeddings) == 0 {
			report.Omitted = append(report.Omitted, src.name)
			log.Warn("identity has no usable photos", "identity", src.name)
			continue
		}

		identities = append(identities, Identity{
			Name:      src.name,
			Signature: Mean(embeddings),
			Photos:    len(embeddings),
			Reference: reference,
		})
		report.Loaded = append(report.Loaded, LoadedIdentity{Name: src.name, Photos: len(embeddings)})
		log.Info("loaded identity", "identity", src.name, "photos", len(embeddings))
	}

	return NewGallery(identities), report, nil
}

// embed runs one reference photo through load, align and encode. A non-empty
// reason means the photo is skipped.
func (b *Builder) embed(ctx context.Context, path string) ([]float64, SkipReason, error) {
	img, err := imageio.Load(path)
	if err != nil {
		return nil, SkipUnreadable, err
	}

	aligned := b.Aligner.Align(ctx, img)

	faces, err := b.Encoder.Encodings(ctx, aligned)
	if err != nil {
		return nil, SkipAnalysis, err
	}
	if len(faces) == 0 {
		return nil, SkipNoFace, faceapi.ErrNoFace
	}
	return faces[0].Embedding, "", nil
}

func scanDirLayout(root string) ([]source, error) {
	entries, err := os.ReadDir(root)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Warn("gallery directory does not exist", "root", root)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading gallery directory: %w", err)
	}

	var sources []source
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		files, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("reading identity directory %s: %w", dir, err)
		}
		var photos []string
		for _, f := range files {
			if f.IsDir() || !imageio.IsPhoto(f.Name()) {
				continue
			}
			photos = append(photos, filepath.Join(dir, f.Name()))
		}
		sources = appendSource(sources, IdentityName(entry.Name()), photos...)
	}
	return sources, nil
}

func scanFlatLayout(dir string) ([]source, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Warn("reference photo directory does not exist", "dir", dir)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading reference photo directory: %w", err)
	}

	var sources []source
	for _, entry := range entries {
		if entry.IsDir() || !imageio.IsPhoto(entry.Name()) {
			continue
		}
		sources = appendSource(sources, FileIdentityName(entry.Name()), filepath.Join(dir, entry.Name()))
	}
	return sources, nil
}

// appendSource merges photos into an existing source of the same name, so
// "john_doe" and "john doe" feed one identity.
func appendSource(sources []source, name string, photos ...string) []source {
	for i := range sources {
		if sources[i].name == name {
			sources[i].photos = append(sources[i].photos, photos...)
			return sources
		}
	}
	return append(sources, source{name: name, photos: photos})
}
