package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/logging"
	"github.com/kozaktomas/face-attendance/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the attendance HTTP API.
The API accepts group photo uploads, runs training jobs in the background and
serves cohorts, students, attendance reports and Prometheus metrics.

When DATABASE_URL is set the gallery can be pushed to PostgreSQL and every
attendance run is stored as history.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
}

// resolveServeHostPort resolves port and host from flags and environment variables.
// Explicit flags win over WEB_PORT and WEB_HOST.
func resolveServeHostPort(cmd *cobra.Command) (int, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")

	if envPort := os.Getenv("WEB_PORT"); envPort != "" && !cmd.Flags().Changed("port") {
		if p, err := strconv.Atoi(envPort); err == nil {
			port = p
		}
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" && !cmd.Flags().Changed("host") {
		host = envHost
	}
	return port, host
}

// serveBackends connects the optional database backends.
func serveBackends(ctx context.Context, cfg *config.Config) (web.Backends, error) {
	backends := web.Backends{Extractor: newExtractor(cfg)}

	ok, err := connectDatabase(ctx, cfg)
	if err != nil {
		return backends, err
	}
	if !ok {
		logging.Info(nil, "DATABASE_URL not set, gallery push and attendance history disabled")
		return backends, nil
	}

	if backends.Gallery, err = database.GetGalleryWriter(ctx); err != nil {
		return backends, err
	}
	if backends.Attendance, err = database.GetAttendanceWriter(ctx); err != nil {
		return backends, err
	}
	return backends, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	backends, err := serveBackends(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	port, host := resolveServeHostPort(cmd)

	server, err := web.NewServer(cfg, port, host, backends)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logging.Error(logging.Fields{"error": err}, "error during shutdown")
		}
	}()

	fmt.Printf("Starting Face Attendance API on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
