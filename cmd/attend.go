package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var attendCmd = &cobra.Command{
	Use:   "attend <photo>",
	Short: "Recognise a photo and record attendance",
	Long: `Recognise the first enrolled face in the photo and record an attendance
entry with the current location. Nothing is recorded when no face is found,
nobody is recognised or the location cannot be determined.

Examples:
  geoface attend snapshot.jpg
  geoface attend snapshot.jpg --json`,
	Args: cobra.ExactArgs(1),
	RunE: runAttend,
}

func init() {
	rootCmd.AddCommand(attendCmd)

	attendCmd.Flags().Float64("tolerance", 0, "Maximum embedding distance for a match (default from config)")
	attendCmd.Flags().Bool("json", false, "Output as JSON")
}

func runAttend(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), appOptions{
		withStore: true,
		tolerance: mustGetFloat64(cmd, "tolerance"),
	})
	if err != nil {
		return err
	}
	defer a.Close()

	out, err := a.service.AttendFile(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("recording attendance: %w", err)
	}

	if mustGetBool(cmd, "json") {
		return outputJSON(out)
	}
	printOutcome(out)
	return nil
}
