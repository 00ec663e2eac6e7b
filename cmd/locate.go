package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/geoface/internal/geolocate"
)

var locateCmd = &cobra.Command{
	Use:   "locate",
	Short: "Print the current location as seen by the geolocation service",
	Args:  cobra.NoArgs,
	RunE:  runLocate,
}

func init() {
	rootCmd.AddCommand(locateCmd)
	locateCmd.Flags().Bool("json", false, "Output as JSON")
}

func runLocate(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	loc, err := geolocate.NewClient(cfg.Geo, geolocate.WithLogger(logger)).Current(cmd.Context())
	if err != nil {
		return err
	}

	if mustGetBool(cmd, "json") {
		return outputJSON(loc)
	}
	fmt.Printf("%s (%.4f, %.4f)\n", loc.Place, loc.Latitude, loc.Longitude)
	return nil
}
