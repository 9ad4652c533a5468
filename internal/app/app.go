// Package app runs the per-frame pupil detection loop.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/ayusman/pupiltrack/internal/capture"
	"github.com/ayusman/pupiltrack/internal/pupil"
	"github.com/ayusman/pupiltrack/internal/store"
)

// Publisher receives every result produced by the loop.
type Publisher interface {
	Publish(v any) error
}

// Config holds configuration options for the application.
type Config struct {
	Pupil pupil.Config

	// Device is the capture device index or video path.
	Device string
	Width  int
	Height int
	FPS    int

	// Store records a session and its results when set.
	Store *store.Store
	// Hub broadcasts results when set.
	Hub Publisher
}

// Stats counts loop activity since Start.
type Stats struct {
	Frames     int64
	Detections int64
	Errors     int64
}

// App owns the frame source, the orchestrator and the result sinks.
type App struct {
	config  Config
	source  capture.Source
	orch    *pupil.Orchestrator
	session *store.Session
	enabled bool
	stats   Stats
	mu      sync.RWMutex
	stopCh  chan struct{}
	done    chan struct{}
}

// New creates an App, opening the remote channel when the strategy needs one.
func New(ctx context.Context, config Config) (*App, error) {
	orch, err := pupil.New(ctx, config.Pupil)
	if err != nil {
		return nil, err
	}
	return NewWithOrchestrator(config, orch), nil
}

// NewWithOrchestrator creates an App around an existing orchestrator.
// The App takes ownership of orch.
func NewWithOrchestrator(config Config, orch *pupil.Orchestrator) *App {
	if config.FPS <= 0 {
		config.FPS = capture.DefaultFPS
	}

	return &App{
		config:  config,
		source:  capture.NewCamera(config.Device, config.Width, config.Height),
		orch:    orch,
		enabled: true,
	}
}

// SetSource replaces the frame source. Call before Start.
func (a *App) SetSource(s capture.Source) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.source = s
}

// Source returns the frame source.
func (a *App) Source() capture.Source {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.source
}

// Orchestrator returns the detection orchestrator.
func (a *App) Orchestrator() *pupil.Orchestrator {
	return a.orch
}

// SetEnabled pauses or resumes detection without stopping the loop.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// IsEnabled returns whether detection is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// Session returns the recording session, or nil when nothing is recorded.
func (a *App) Session() *store.Session {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.session
}

// Stats returns a snapshot of the loop counters.
func (a *App) Stats() Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.stats
}

// Start opens the source, begins a recording session and starts the loop.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Don't start if already running
	if a.stopCh != nil {
		return nil
	}

	if err := a.source.Open(); err != nil {
		return err
	}
	a.source.SetFPS(a.config.FPS)

	if a.config.Store != nil {
		pc := a.orch.Config()
		sess := &store.Session{
			EntityID: pc.EntityID,
			Strategy: string(pc.Strategy),
			Endpoint: pc.Endpoint,
		}
		if err := a.config.Store.Sessions().Create(sess); err != nil {
			a.source.Close()
			return fmt.Errorf("create session: %w", err)
		}
		a.session = sess
	}

	a.stats = Stats{}
	a.stopCh = make(chan struct{})
	a.done = make(chan struct{})
	go a.runPipeline(a.stopCh, a.done)

	log.Printf("Detection loop started (strategy=%s entity=%d fps=%d)",
		a.orch.Config().Strategy, a.orch.Config().EntityID, a.config.FPS)
	return nil
}

// Stop halts the loop, closes the source and ends the session.
func (a *App) Stop() {
	a.mu.Lock()
	stopCh, done := a.stopCh, a.done
	a.stopCh, a.done = nil, nil
	a.mu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	<-done

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.source.Close(); err != nil {
		log.Printf("Error closing source: %v", err)
	}

	if a.session != nil {
		if err := a.config.Store.Sessions().End(a.session.ID); err != nil {
			log.Printf("Error ending session %s: %v", a.session.ID, err)
		}
	}

	log.Println("Detection loop stopped")
}

// Close stops the loop and releases the orchestrator.
func (a *App) Close() error {
	a.Stop()
	return a.orch.Close()
}

// ProcessFrame detects on one frame and forwards the result to the store
// and hub. The result is returned even when err is non-nil.
func (a *App) ProcessFrame(frame capture.Frame) (pupil.Result, error) {
	res, detectErr := a.orch.Detect(frame)

	a.mu.Lock()
	a.stats.Frames++
	if res.Found() {
		a.stats.Detections++
	}
	if detectErr != nil {
		a.stats.Errors++
	}
	session := a.session
	a.mu.Unlock()

	var errs []error
	if detectErr != nil {
		errs = append(errs, detectErr)
	}

	if session != nil {
		rec := toRecord(session.ID, res)
		if err := a.config.Store.Results().Insert(rec); err != nil {
			errs = append(errs, fmt.Errorf("record result: %w", err))
		}
	}

	if a.config.Hub != nil {
		if err := a.config.Hub.Publish(res); err != nil {
			errs = append(errs, fmt.Errorf("publish result: %w", err))
		}
	}

	return res, errors.Join(errs...)
}

// toRecord converts a result into its stored form.
func toRecord(sessionID string, res pupil.Result) *store.Record {
	rec := &store.Record{
		SessionID:  sessionID,
		EntityID:   res.ID,
		Topic:      res.Topic,
		Method:     res.Method,
		Timestamp:  res.Timestamp,
		Confidence: res.Confidence,
		Diameter:   res.Diameter,
	}
	if e := res.Ellipse; e != nil {
		rec.Ellipse = &store.Ellipse{
			CenterX: e.Center[0],
			CenterY: e.Center[1],
			AxisA:   e.Axes[0],
			AxisB:   e.Axes[1],
			Angle:   e.Angle,
		}
	}
	if res.NormPos != nil {
		nx, ny := res.NormPos[0], res.NormPos[1]
		rec.NormX = &nx
		rec.NormY = &ny
	}
	return rec
}
