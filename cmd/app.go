package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/schollz/progressbar/v3"

	"github.com/kozaktomas/geoface/internal/attendance"
	"github.com/kozaktomas/geoface/internal/config"
	"github.com/kozaktomas/geoface/internal/database"
	_ "github.com/kozaktomas/geoface/internal/database/gormstore" // sqlite, mysql
	_ "github.com/kozaktomas/geoface/internal/database/postgres"  // postgres
	"github.com/kozaktomas/geoface/internal/faceapi"
	"github.com/kozaktomas/geoface/internal/facematch"
	"github.com/kozaktomas/geoface/internal/geolocate"
	"github.com/kozaktomas/geoface/internal/imageio"
	"github.com/kozaktomas/geoface/internal/logging"
)

// loadConfig reads the configuration and installs the default logger.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading configuration: %w", err)
	}
	logger := logging.Init(cfg.Log.Level, cfg.Log.Format)
	imageio.MaxPixels = cfg.Image.MaxPixels
	return cfg, logger, nil
}

// app holds the collaborators shared by the attendance commands.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	analyzer faceapi.Analyzer
	gallery  *facematch.Gallery
	report   *facematch.BuildReport
	store    database.AttendanceRepository
	locator  *geolocate.Client
	service  *attendance.Service
}

type appOptions struct {
	progress  bool    // show a progress bar while the gallery is built
	withStore bool    // open the attendance store and geolocation client
	layout    string  // overrides the configured gallery layout
	tolerance float64 // overrides the configured tolerance when positive
}

// newApp loads the configuration, builds the gallery and, when asked, opens
// the attendance store. Close releases everything it opened.
func newApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}

	if opts.layout != "" {
		cfg.Gallery.Layout = opts.layout
	}
	if opts.tolerance > 0 {
		cfg.Matching.Tolerance = opts.tolerance
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger}

	a.analyzer, err = faceapi.New(cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("creating face analyzer: %w", err)
	}

	a.gallery, a.report, err = buildGallery(ctx, cfg, a.analyzer, logger, opts.progress)
	if err != nil {
		a.Close()
		return nil, err
	}
	if a.gallery.Len() == 0 {
		logger.Warn("gallery is empty, nobody can be recognised", "root", cfg.Gallery.Root())
	}

	var store database.AttendanceWriter
	if opts.withStore {
		a.store, err = database.Open(&cfg.Database)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("opening attendance store: %w", err)
		}
		store = a.store
		a.locator = geolocate.NewClient(cfg.Geo, geolocate.WithLogger(logger))
	}

	matcher := facematch.NewMatcher(a.gallery, cfg.Matching.Tolerance)
	var locator attendance.Locator
	if a.locator != nil {
		locator = a.locator
	}
	a.service = attendance.NewService(a.analyzer, matcher, locator, store, logger)
	return a, nil
}

// Close releases the analyzer and the store.
func (a *app) Close() error {
	var errs []error
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	if a.analyzer != nil {
		errs = append(errs, a.analyzer.Close())
	}
	return errors.Join(errs...)
}

// buildGallery scans the configured reference photos.
func buildGallery(ctx context.Context, cfg *config.Config, analyzer faceapi.Analyzer, logger *slog.Logger, progress bool) (*facematch.Gallery, *facematch.BuildReport, error) {
	flat := cfg.Gallery.Layout == config.LayoutFlat
	root := cfg.Gallery.Root()

	builder := facematch.NewBuilder(analyzer, logger)
	if progress {
		total, err := facematch.CountPhotos(root, flat)
		if err != nil {
			return nil, nil, err
		}
		bar := progressbar.NewOptions(total,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("Building gallery"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("photos"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionFullWidth(),
		)
		builder.OnPhoto = func(string) { bar.Add(1) }
		defer func() {
			bar.Finish()
			fmt.Fprintln(os.Stderr)
		}()
	}

	var (
		gallery *facematch.Gallery
		report  *facematch.BuildReport
		err     error
	)
	if flat {
		gallery, report, err = builder.BuildFlat(ctx, root)
	} else {
		gallery, report, err = builder.Build(ctx, root)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("building gallery: %w", err)
	}
	return gallery, report, nil
}

// openStore opens the attendance store without building a gallery.
func openStore() (database.AttendanceRepository, *config.Config, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	store, err := database.Open(&cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("opening attendance store: %w", err)
	}
	return store, cfg, nil
}

// printOutcome prints an attendance outcome for humans.
func printOutcome(out attendance.Outcome) {
	switch out.Status {
	case attendance.StatusRecorded:
		fmt.Printf("Attendance marked for %s", out.Name)
		if out.Location != nil && out.Location.Place != "" {
			fmt.Printf(" at %s", out.Location.Place)
		}
		if out.Record != nil {
			fmt.Printf(" (record %d, %s)", out.Record.ID, out.Record.Timestamp.Local().Format("2006-01-02 15:04:05"))
		}
		fmt.Println()
	case attendance.StatusNoFace:
		fmt.Println("No face detected")
	case attendance.StatusNoMatch:
		fmt.Println("Face not recognised")
	case attendance.StatusLocationUnavailable:
		fmt.Printf("Recognised %s but the location is unavailable, nothing recorded: %s\n", out.Name, out.Detail)
	case attendance.StatusInputUnusable:
		fmt.Printf("Image not usable: %s\n", out.Detail)
	default:
		fmt.Printf("%s\n", out.Status)
	}
}
