package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ayusman/pupiltrack/internal/detector"
	"github.com/ayusman/pupiltrack/internal/pupil"
	"github.com/ayusman/pupiltrack/internal/store"
)

// Version is the application version.
const Version = "0.1.0"

// Options holds the detection flags shared by run and detect.
type Options struct {
	ConfigPath            string
	Strategy              string
	EntityID              int
	Endpoint              string
	Selection             string
	FlipY                 bool
	AbsentWhenUnpopulated bool
}

var (
	// dbPath is the sqlite database location
	dbPath string
	opts   Options
)

var rootCmd = &cobra.Command{
	Use:           "pupiltrack",
	Short:         "2D pupil ellipse detection from local frames or a remote estimator",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command with a context cancelled on SIGINT/SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (default: ~/.pupiltrack/pupiltrack.db)")
}

// addDetectionFlags registers the flags that shape a pupil.Config.
func addDetectionFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "JSON config file; flags override its values")
	cmd.Flags().StringVarP(&opts.Strategy, "strategy", "s", string(pupil.StrategyLocal), "Detection strategy: local or remote")
	cmd.Flags().IntVarP(&opts.EntityID, "entity", "e", 0, "Entity (eye) id")
	cmd.Flags().StringVar(&opts.Endpoint, "endpoint", "", "Remote estimate endpoint (ws://, udp://)")
	cmd.Flags().StringVar(&opts.Selection, "selection", "last", "Contour selection policy: last or largest")
	cmd.Flags().BoolVar(&opts.FlipY, "flip-y", true, "Normalize with a bottom-left origin")
	cmd.Flags().BoolVar(&opts.AbsentWhenUnpopulated, "absent-when-unpopulated", false, "Report remote slots that never received data as absent")
}

// pupilConfig loads the config file, if any, and applies explicitly set flags over it.
func pupilConfig(cmd *cobra.Command) (pupil.Config, error) {
	cfg := pupil.DefaultConfig()
	if opts.ConfigPath != "" {
		var err error
		if cfg, err = pupil.LoadConfig(opts.ConfigPath); err != nil {
			return cfg, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("strategy") {
		cfg.Strategy = pupil.Strategy(opts.Strategy)
	}
	if flags.Changed("entity") {
		cfg.EntityID = opts.EntityID
	}
	if flags.Changed("endpoint") {
		cfg.Endpoint = opts.Endpoint
	}
	if flags.Changed("selection") {
		p, ok := detector.ParseSelectionPolicy(opts.Selection)
		if !ok {
			return cfg, fmt.Errorf("invalid selection %q", opts.Selection)
		}
		cfg.Detector.Selection = p
	}
	if flags.Changed("flip-y") {
		cfg.FlipY = opts.FlipY
	}
	if flags.Changed("absent-when-unpopulated") {
		cfg.AbsentWhenUnpopulated = opts.AbsentWhenUnpopulated
	}

	return cfg, cfg.Validate()
}

// openStore opens the database at --db or the default location under the home directory.
func openStore() (*store.Store, error) {
	path := dbPath
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, ".pupiltrack", "pupiltrack.db")
	}

	st, err := store.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	return st, nil
}
