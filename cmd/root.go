package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configFile string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "geoface",
	Short: "Face recognition attendance with IP geolocation",
	Long: `GeoFace recognises enrolled people in photos or camera frames and records
their attendance together with the current location of the machine.

The gallery is built from reference photos on every start: one directory
per person (or one photo per person with --layout flat). Records go to
SQLite by default, or to MySQL or PostgreSQL via DATABASE_DRIVER.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file (overrides GEOFACE_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: trace, debug, info, warn, error (overrides LOG_LEVEL)")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()

	if configFile != "" {
		os.Setenv("GEOFACE_CONFIG", configFile)
	}
	if logLevel != "" {
		os.Setenv("LOG_LEVEL", logLevel)
	}
}
