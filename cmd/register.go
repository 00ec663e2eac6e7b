package cmd

import (
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/geoface/internal/capture"
	"github.com/kozaktomas/geoface/internal/config"
	"github.com/kozaktomas/geoface/internal/faceapi"
	"github.com/kozaktomas/geoface/internal/facematch"
	"github.com/kozaktomas/geoface/internal/imageio"
)

var registerCmd = &cobra.Command{
	Use:   "register <name> [photo]",
	Short: "Enrol a person from a photo or the camera",
	Long: `Store a reference photo for a person so the next gallery build picks it up.
The photo must contain at least one face. Without a photo argument, frames
are taken from the camera until one with a face comes along.

In the dir layout the photo is saved as <gallery>/<Name_With_Underscores>/<timestamp>.jpg,
adding to any photos the person already has. In the flat layout it is saved
as <flat dir>/<name_lower>.jpg and replaces the previous one only with --force.

Examples:
  geoface register "Jane Doe" jane.jpg
  geoface register "Jane Doe" --layout flat
  geoface register "Jane Doe" --frames ./frames`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runRegister,
}

func init() {
	rootCmd.AddCommand(registerCmd)

	registerCmd.Flags().String("layout", "", "Gallery layout: dir or flat (default from config)")
	registerCmd.Flags().Bool("force", false, "Replace an existing flat-layout photo")
	registerCmd.Flags().Int("attempts", 100, "Camera frames to try before giving up")
	registerCmd.Flags().String("frames", "", "Read frames from this directory instead of the camera")
}

func runRegister(cmd *cobra.Command, args []string) error {
	name := strings.TrimSpace(args[0])
	if name == "" {
		return errors.New("name must not be empty")
	}

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if layout := mustGetString(cmd, "layout"); layout != "" {
		cfg.Gallery.Layout = layout
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	analyzer, err := faceapi.New(cfg.Embedding)
	if err != nil {
		return fmt.Errorf("creating face analyzer: %w", err)
	}
	defer analyzer.Close()

	var img image.Image
	if len(args) == 2 {
		loaded, err := imageio.Load(args[1])
		if err != nil {
			return err
		}
		faces, err := analyzer.Encodings(cmd.Context(), loaded)
		if err != nil {
			return fmt.Errorf("analysing %s: %w", args[1], err)
		}
		if len(faces) == 0 {
			return fmt.Errorf("%s: %w", args[1], faceapi.ErrNoFace)
		}
		img = loaded
	} else {
		frames := mustGetString(cmd, "frames")
		if frames == "" {
			frames = cfg.Capture.FramesDir
		}
		camera, err := openCamera(cfg, frames)
		if err != nil {
			return err
		}
		defer camera.Close()

		fmt.Println("Looking at the camera...")
		img, err = firstFrameWithFace(cmd, camera, analyzer, mustGetInt(cmd, "attempts"))
		if err != nil {
			return err
		}
	}

	path, err := referencePath(cfg, name, time.Now(), mustGetBool(cmd, "force"))
	if err != nil {
		return err
	}
	if err := imageio.WriteJPEG(path, img, 95); err != nil {
		return fmt.Errorf("saving reference photo: %w", err)
	}

	logger.Info("reference photo saved", "identity", name, "path", path)
	fmt.Printf("Registered %s: %s\n", name, path)
	return nil
}

// referencePath returns where a new reference photo for name goes.
func referencePath(cfg *config.Config, name string, now time.Time, force bool) (string, error) {
	if err := validateIdentityName(name); err != nil {
		return "", err
	}
	if cfg.Gallery.Layout == config.LayoutFlat {
		path := filepath.Join(cfg.Gallery.FlatDir, facematch.Slug(name)+".jpg")
		if _, err := os.Stat(path); err == nil && !force {
			return "", fmt.Errorf("%s already exists, use --force to replace it", path)
		}
		return path, nil
	}
	dir := filepath.Join(cfg.Gallery.Dir, facematch.DirName(name))
	return filepath.Join(dir, now.UTC().Format("20060102T150405.000")+".jpg"), nil
}

// validateIdentityName rejects names that would leave the gallery directory
// or nest below it.
func validateIdentityName(name string) error {
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return fmt.Errorf("invalid name %q: must not contain path separators or \"..\"", name)
	}
	if n := facematch.DirName(name); n == "" || n == "." {
		return fmt.Errorf("invalid name %q", name)
	}
	return nil
}

func firstFrameWithFace(cmd *cobra.Command, camera capture.Camera, analyzer faceapi.Encoder, attempts int) (image.Image, error) {
	for i := 0; i < attempts; i++ {
		frame, err := camera.Read(cmd.Context())
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading frame: %w", err)
		}
		faces, err := analyzer.Encodings(cmd.Context(), frame)
		if err != nil {
			return nil, fmt.Errorf("analysing frame: %w", err)
		}
		if len(faces) > 0 {
			return frame, nil
		}
	}
	return nil, fmt.Errorf("no face seen in %d frame(s): %w", attempts, faceapi.ErrNoFace)
}
