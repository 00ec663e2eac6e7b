package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/geoface/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the GeoFace HTTP API.
The gallery is built once at startup. Clients upload photos to recognise
faces or record attendance, and can list recorded attendance.

  GET  /health
  GET  /api/v1/gallery
  POST /api/v1/recognize    multipart field "file"
  POST /api/v1/attendance   multipart field "file"
  GET  /api/v1/attendance   ?name=&since=&limit=`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().Bool("progress", false, "Show a progress bar while the gallery is built")
}

// resolveServeHostPort resolves port and host from flags and environment variables.
func resolveServeHostPort(cmd *cobra.Command) (int, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")

	if envPort := os.Getenv("WEB_PORT"); envPort != "" && !cmd.Flags().Changed("port") {
		fmt.Sscanf(envPort, "%d", &port)
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" && !cmd.Flags().Changed("host") {
		host = envHost
	}
	return port, host
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, appOptions{withStore: true, progress: mustGetBool(cmd, "progress")})
	if err != nil {
		return err
	}
	defer a.Close()

	port, host := resolveServeHostPort(cmd)
	server := web.NewServer(a.service, a.store, web.Options{
		Host:           host,
		Port:           port,
		AllowedOrigins: os.Getenv("WEB_ALLOWED_ORIGINS"),
		Logger:         a.logger,
	})

	go func() {
		<-ctx.Done()
		fmt.Println("\nShutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("error during shutdown", "error", err)
		}
	}()

	fmt.Printf("Serving %d identities on http://%s:%d\n", a.gallery.Len(), host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
