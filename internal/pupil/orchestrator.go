package pupil

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/ayusman/pupiltrack/internal/capture"
	"github.com/ayusman/pupiltrack/internal/detector"
	"github.com/ayusman/pupiltrack/internal/geometry"
	"github.com/ayusman/pupiltrack/internal/remote"
)

// ErrRemoteUnavailable is returned when the remote strategy is requested
// from an Orchestrator that has no channel.
var ErrRemoteUnavailable = errors.New("remote channel not configured")

// Orchestrator produces one Result per frame using the configured strategy.
// It owns its remote channel and must be closed.
type Orchestrator struct {
	config  Config
	local   detector.Detector
	channel remote.Channel
	cache   *remote.Cache
	logger  *log.Logger
}

// New validates config and builds an Orchestrator. For the remote strategy
// the channel is opened here; a connection failure is returned as an error.
func New(ctx context.Context, config Config) (*Orchestrator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var ch remote.Channel
	if config.Endpoint != "" {
		var err error
		ch, err = remote.Open(ctx, config.Endpoint, remote.Options{
			BufferSize: config.BufferSize,
			Logger:     config.Logger,
		})
		if err != nil {
			return nil, fmt.Errorf("open remote channel: %w", err)
		}
	}

	return NewWithChannel(config, ch), nil
}

// NewWithChannel builds an Orchestrator around an already-open channel,
// which may be nil for local-only use. The Orchestrator takes ownership of ch.
func NewWithChannel(config Config, ch remote.Channel) *Orchestrator {
	logger := config.Logger
	if logger == nil {
		logger = log.Default()
	}

	o := &Orchestrator{
		config:  config,
		local:   detector.NewContourDetector(config.Detector),
		channel: ch,
		logger:  logger,
	}

	if ch != nil {
		o.cache = remote.NewCache(ch, remote.CacheConfig{
			Scaling:     config.Scaling,
			PollTimeout: config.PollTimeout,
			Logger:      logger,
		})
	}

	return o
}

// SetDetector replaces the local detector.
func (o *Orchestrator) SetDetector(d detector.Detector) {
	o.local = d
}

// Config returns the construction config.
func (o *Orchestrator) Config() Config {
	return o.config
}

// Channel returns the remote channel, or nil for local-only use.
func (o *Orchestrator) Channel() remote.Channel {
	return o.channel
}

// Cache returns the remote estimate cache, or nil without a channel.
func (o *Orchestrator) Cache() *remote.Cache {
	return o.cache
}

// Detect runs the configured strategy for the configured entity.
func (o *Orchestrator) Detect(frame capture.Frame) (Result, error) {
	return o.DetectWith(frame, o.config.Strategy, o.config.EntityID)
}

// DetectWith runs one strategy for one entity.
//
// A frame without a detection is not an error: the returned Result has
// Confidence 0 and nil geometry. An error is returned only when the frame
// cannot be decoded or the strategy cannot run; the Result is still stamped
// and safe to forward.
func (o *Orchestrator) DetectWith(frame capture.Frame, strategy Strategy, entityID int) (Result, error) {
	switch strategy {
	case StrategyLocal:
		return o.detectLocal(frame, entityID)
	case StrategyRemote:
		return o.detectRemote(frame, entityID)
	default:
		return o.assemble(frame, entityID, string(strategy), nil, 0), fmt.Errorf("unknown strategy %q", strategy)
	}
}

func (o *Orchestrator) detectLocal(frame capture.Frame, entityID int) (Result, error) {
	mat, err := frame.Decode()
	if err != nil {
		return o.assemble(frame, entityID, MethodLocal, nil, 0), err
	}
	defer mat.Close()

	e, err := o.local.Detect(mat)
	if err != nil {
		return o.assemble(frame, entityID, MethodLocal, nil, 0), fmt.Errorf("local detection: %w", err)
	}
	if e == nil {
		return o.assemble(frame, entityID, MethodLocal, nil, 0), nil
	}

	// Circle fit: the diameter is twice the radius.
	return o.assemble(frame, entityID, MethodLocal, e, 2*e.Axes[0]), nil
}

func (o *Orchestrator) detectRemote(frame capture.Frame, entityID int) (Result, error) {
	if o.cache == nil {
		return o.assemble(frame, entityID, MethodRemote, nil, 0), ErrRemoteUnavailable
	}

	o.cache.PollAndUpdate()

	est, ok := o.cache.Lookup(entityID)
	if !ok && o.config.AbsentWhenUnpopulated {
		return o.assemble(frame, entityID, MethodRemote, nil, 0), nil
	}

	e := &detector.Ellipse{
		Center: [2]float64{est.CX, est.CY},
		Axes:   [2]float64{est.Major, est.Minor},
		Angle:  est.Angle,
	}

	// Remote estimates report the major axis as the diameter, without doubling.
	return o.assemble(frame, entityID, MethodRemote, e, est.Major), nil
}

// assemble stamps the result fields shared by every path.
func (o *Orchestrator) assemble(frame capture.Frame, entityID int, method string, e *detector.Ellipse, diameter float64) Result {
	r := Result{
		ID:        entityID,
		Topic:     Topic(entityID),
		Method:    method,
		Timestamp: frame.Timestamp,
	}

	if e == nil {
		return r
	}

	location := e.Center
	norm := geometry.Normalize(
		geometry.Point{X: location[0], Y: location[1]},
		geometry.Size{Width: float64(frame.Width), Height: float64(frame.Height)},
		o.config.FlipY,
	).Array()

	r.Ellipse = e
	r.Diameter = &diameter
	r.Location = &location
	r.Confidence = 1
	r.NormPos = &norm

	return r
}

// Close releases the local detector and the remote channel.
func (o *Orchestrator) Close() error {
	var errs []error
	if o.local != nil {
		if err := o.local.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if o.channel != nil {
		if err := o.channel.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
