package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayusman/pupiltrack/internal/app"
	"github.com/ayusman/pupiltrack/internal/server"
	"github.com/ayusman/pupiltrack/internal/store"
)

type runOptions struct {
	Device   string
	Width    int
	Height   int
	FPS      int
	Addr     string
	NoRecord bool
	WebDir   string
}

var runOpts runOptions

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Capture frames, detect the pupil on every tick and serve the results",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func init() {
	addDetectionFlags(runCmd)
	runCmd.Flags().StringVarP(&runOpts.Device, "device", "d", "0", "Capture device index or video path")
	runCmd.Flags().IntVar(&runOpts.Width, "width", 0, "Capture width (default 400)")
	runCmd.Flags().IntVar(&runOpts.Height, "height", 0, "Capture height (default 400)")
	runCmd.Flags().IntVar(&runOpts.FPS, "fps", 0, "Frame rate (default 30)")
	runCmd.Flags().StringVarP(&runOpts.Addr, "addr", "a", ":8080", "HTTP listen address")
	runCmd.Flags().BoolVar(&runOpts.NoRecord, "no-record", false, "Do not store results")
	runCmd.Flags().StringVar(&runOpts.WebDir, "web", "", "Static files directory (default: search web/ and ~/.pupiltrack/web)")
	rootCmd.AddCommand(runCmd)
}

func runServe(cmd *cobra.Command) error {
	ctx := cmd.Context()

	cfg, err := pupilConfig(cmd)
	if err != nil {
		return err
	}

	var st *store.Store
	if !runOpts.NoRecord {
		if st, err = openStore(); err != nil {
			return err
		}
		defer st.Close()
	}

	hub := server.NewResultHub()
	defer hub.Close()

	a, err := app.New(ctx, app.Config{
		Pupil:  cfg,
		Device: runOpts.Device,
		Width:  runOpts.Width,
		Height: runOpts.Height,
		FPS:    runOpts.FPS,
		Store:  st,
		Hub:    hub,
	})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Start(); err != nil {
		return fmt.Errorf("failed to start detection: %w", err)
	}

	webDir := runOpts.WebDir
	if webDir == "" {
		webDir = findWebDir()
	}
	if webDir != "" {
		log.Printf("Serving static files from: %s", webDir)
	}

	srv := &http.Server{
		Addr: runOpts.Addr,
		Handler: server.New(server.Config{
			StaticDir: webDir,
			Store:     st,
			Hub:       hub,
		}),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on %s", runOpts.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown: %v", err)
		}
	}

	stats := a.Stats()
	log.Printf("Processed %d frames, %d detections, %d errors", stats.Frames, stats.Detections, stats.Errors)
	return nil
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.pupiltrack/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".pupiltrack", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
