// Package pupil turns frames into per-tick pupil detection results.
package pupil

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/ayusman/pupiltrack/internal/detector"
	"github.com/ayusman/pupiltrack/internal/remote"
)

// Strategy selects where the ellipse comes from.
type Strategy string

const (
	// StrategyLocal runs contour detection on the frame.
	StrategyLocal Strategy = "local"
	// StrategyRemote reads the latest estimate pushed by an external process.
	StrategyRemote Strategy = "remote"
)

// Valid reports whether s names a known strategy.
func (s Strategy) Valid() bool {
	return s == StrategyLocal || s == StrategyRemote
}

// Config holds everything an Orchestrator needs at construction.
type Config struct {
	Strategy Strategy

	// EntityID identifies which eye this instance serves (0 or 1).
	EntityID int

	// Endpoint is the remote channel address, e.g. ws://host:5550/ellipse or udp://:5550.
	// Required for StrategyRemote.
	Endpoint string

	// Scaling maps remote coordinates into display resolution.
	Scaling remote.Scaling

	// PollTimeout bounds each remote poll. Zero never waits.
	PollTimeout time.Duration

	// BufferSize caps undelivered remote messages.
	BufferSize int

	// Detector configures the local contour pipeline.
	Detector detector.Config

	// FlipY normalizes with a bottom-left origin.
	FlipY bool

	// AbsentWhenUnpopulated reports a remote slot that never received a
	// message as "no detection" instead of a zero ellipse with confidence 1.
	AbsentWhenUnpopulated bool

	// Logger receives operational warnings. Nil uses the standard logger.
	Logger *log.Logger
}

// DefaultConfig returns a local-strategy configuration for entity 0.
func DefaultConfig() Config {
	return Config{
		Strategy:   StrategyLocal,
		EntityID:   0,
		Scaling:    remote.DefaultScaling(),
		BufferSize: remote.DefaultBufferSize,
		Detector:   detector.DefaultConfig(),
		FlipY:      true,
	}
}

// Validate checks the configuration for construction-time errors.
func (c Config) Validate() error {
	if !c.Strategy.Valid() {
		return fmt.Errorf("unknown strategy %q", c.Strategy)
	}
	if c.EntityID < 0 {
		return fmt.Errorf("entity id must be non-negative, got %d", c.EntityID)
	}
	if c.Strategy == StrategyRemote && c.Endpoint == "" {
		return fmt.Errorf("remote strategy requires an endpoint")
	}
	if c.PollTimeout < 0 {
		return fmt.Errorf("poll timeout must be non-negative, got %s", c.PollTimeout)
	}
	return nil
}

// fileConfig is the on-disk JSON form. Omitted fields keep their defaults.
type fileConfig struct {
	Strategy              *string         `json:"strategy,omitempty"`
	EntityID              *int            `json:"entity_id,omitempty"`
	Endpoint              *string         `json:"endpoint,omitempty"`
	Scaling               *remote.Scaling `json:"scaling,omitempty"`
	PollTimeout           *string         `json:"poll_timeout,omitempty"` // duration string like "5ms"
	BufferSize            *int            `json:"buffer_size,omitempty"`
	Selection             *string         `json:"selection,omitempty"`    // "last" or "largest"
	MinArea               *float64        `json:"min_area,omitempty"`
	FlipY                 *bool           `json:"flip_y,omitempty"`
	AbsentWhenUnpopulated *bool           `json:"absent_when_unpopulated,omitempty"`
}

const maxConfigSize = 1 * 1024 * 1024 // 1MB

// LoadConfig reads a JSON config file and applies it over DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return cfg, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return cfg, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxConfigSize {
		return cfg, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := fc.apply(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (fc fileConfig) apply(cfg *Config) error {
	if fc.Strategy != nil {
		cfg.Strategy = Strategy(*fc.Strategy)
	}
	if fc.EntityID != nil {
		cfg.EntityID = *fc.EntityID
	}
	if fc.Endpoint != nil {
		cfg.Endpoint = *fc.Endpoint
	}
	if fc.Scaling != nil {
		cfg.Scaling = *fc.Scaling
	}
	if fc.PollTimeout != nil {
		d, err := time.ParseDuration(*fc.PollTimeout)
		if err != nil {
			return fmt.Errorf("invalid poll_timeout %q: %w", *fc.PollTimeout, err)
		}
		cfg.PollTimeout = d
	}
	if fc.BufferSize != nil {
		cfg.BufferSize = *fc.BufferSize
	}
	if fc.Selection != nil {
		p, ok := detector.ParseSelectionPolicy(*fc.Selection)
		if !ok {
			return fmt.Errorf("invalid selection %q", *fc.Selection)
		}
		cfg.Detector.Selection = p
	}
	if fc.MinArea != nil {
		cfg.Detector.MinArea = *fc.MinArea
	}
	if fc.FlipY != nil {
		cfg.FlipY = *fc.FlipY
	}
	if fc.AbsentWhenUnpopulated != nil {
		cfg.AbsentWhenUnpopulated = *fc.AbsentWhenUnpopulated
	}
	return nil
}
