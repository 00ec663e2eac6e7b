package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/geoface/internal/faceapi"
	"github.com/kozaktomas/geoface/internal/facematch"
	"github.com/kozaktomas/geoface/internal/imageio"
)

var recognizeCmd = &cobra.Command{
	Use:   "recognize <photo>",
	Short: "Recognise the faces in a photo without recording anything",
	Long: `Detect every face in the photo and match it against the gallery.
Each face is reported with the matched identity, or "Unknown", and the
distance to the nearest identity.

Examples:
  geoface recognize probe.jpg
  geoface recognize probe.jpg --tolerance 0.5 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runRecognize,
}

func init() {
	rootCmd.AddCommand(recognizeCmd)

	recognizeCmd.Flags().Float64("tolerance", 0, "Maximum embedding distance for a match (default from config)")
	recognizeCmd.Flags().Bool("json", false, "Output as JSON")
}

// RecognizeOutput is the machine-readable recognition result.
type RecognizeOutput struct {
	Photo string                `json:"photo"`
	Faces []facematch.FaceMatch `json:"faces"`
}

func runRecognize(cmd *cobra.Command, args []string) error {
	path := args[0]
	asJSON := mustGetBool(cmd, "json")

	a, err := newApp(cmd.Context(), appOptions{tolerance: mustGetFloat64(cmd, "tolerance")})
	if err != nil {
		return err
	}
	defer a.Close()

	matches, err := a.service.RecognizeFile(cmd.Context(), path)
	switch {
	case errors.Is(err, faceapi.ErrNoFace):
		matches = []facematch.FaceMatch{}
	case errors.Is(err, imageio.ErrUnusable):
		return err
	case err != nil:
		return fmt.Errorf("recognising %s: %w", path, err)
	}

	if asJSON {
		return outputJSON(RecognizeOutput{Photo: path, Faces: matches})
	}

	if len(matches) == 0 {
		fmt.Println("No face detected")
		return nil
	}
	for i, m := range matches {
		name := "Unknown"
		if m.Matched {
			name = m.Name
		}
		fmt.Printf("Face %d at %v: %s", i+1, m.Box, name)
		if m.Matched {
			fmt.Printf(" (distance %.3f)", m.Distance)
		} else if m.BestName != "" {
			fmt.Printf(" (nearest %s at %.3f)", m.BestName, m.BestDistance)
		}
		fmt.Println()
	}
	return nil
}
