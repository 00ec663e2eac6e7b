package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/geoface/internal/facematch"
)

var galleryCmd = &cobra.Command{
	Use:   "gallery",
	Short: "Build the gallery and report what was loaded",
	Long: `Build the gallery from the reference photos and print every identity that
was loaded, every reference photo that was skipped and why, and every identity
left out because none of its photos was usable.

Examples:
  geoface gallery
  geoface gallery --layout flat --progress
  geoface gallery --json`,
	Args: cobra.NoArgs,
	RunE: runGallery,
}

func init() {
	rootCmd.AddCommand(galleryCmd)

	galleryCmd.Flags().String("layout", "", "Gallery layout: dir or flat (default from config)")
	galleryCmd.Flags().Bool("progress", false, "Show a progress bar")
	galleryCmd.Flags().Bool("json", false, "Output as JSON")
	galleryCmd.Flags().Bool("yaml", false, "Output as YAML")
}

// GalleryOutput is the machine-readable gallery report.
type GalleryOutput struct {
	Root       string                   `json:"root" yaml:"root"`
	Layout     string                   `json:"layout" yaml:"layout"`
	Tolerance  float64                  `json:"tolerance" yaml:"tolerance"`
	Identities []GalleryIdentity        `json:"identities" yaml:"identities"`
	Omitted    []string                 `json:"omitted,omitempty" yaml:"omitted,omitempty"`
	Skipped    []facematch.SkippedPhoto `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

// GalleryIdentity is one loaded identity.
type GalleryIdentity struct {
	Name      string `json:"name" yaml:"name"`
	Photos    int    `json:"photos" yaml:"photos"`
	Reference string `json:"reference" yaml:"reference"`
}

func runGallery(cmd *cobra.Command, args []string) error {
	asJSON := mustGetBool(cmd, "json")
	asYAML := mustGetBool(cmd, "yaml")
	if asJSON && asYAML {
		return fmt.Errorf("--json and --yaml are mutually exclusive")
	}

	a, err := newApp(cmd.Context(), appOptions{
		progress: mustGetBool(cmd, "progress"),
		layout:   mustGetString(cmd, "layout"),
	})
	if err != nil {
		return err
	}
	defer a.Close()

	out := GalleryOutput{
		Root:       a.report.Root,
		Layout:     a.cfg.Gallery.Layout,
		Tolerance:  a.cfg.Matching.Tolerance,
		Identities: make([]GalleryIdentity, 0, a.gallery.Len()),
		Omitted:    a.report.Omitted,
		Skipped:    a.report.Skipped,
	}
	for _, id := range a.gallery.Identities() {
		out.Identities = append(out.Identities, GalleryIdentity{Name: id.Name, Photos: id.Photos, Reference: id.Reference})
	}

	switch {
	case asJSON:
		return outputJSON(out)
	case asYAML:
		return outputYAML(out)
	}

	fmt.Printf("Gallery %s (%s layout, tolerance %.2f)\n", out.Root, out.Layout, out.Tolerance)
	fmt.Printf("Loaded %d identities:\n", len(out.Identities))
	for i, id := range out.Identities {
		fmt.Printf("  %3d. %-30s %d photo(s)\n", i+1, id.Name, id.Photos)
	}
	if len(out.Skipped) > 0 {
		fmt.Printf("\nSkipped %d reference photo(s):\n", len(out.Skipped))
		for _, s := range out.Skipped {
			fmt.Printf("  %s: %s\n", s.Path, s.Reason)
		}
	}
	if len(out.Omitted) > 0 {
		fmt.Printf("\nNo usable photo for: ")
		for i, name := range out.Omitted {
			if i > 0 {
				fmt.Print(", ")
			}
			fmt.Print(name)
		}
		fmt.Println()
	}
	return nil
}
