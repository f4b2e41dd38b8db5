// Package pipeline runs the capture, analyze, decide and report cycle.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"cropwatch/internal/classify"
	"cropwatch/internal/decision"
	"cropwatch/internal/image"
	"cropwatch/internal/report"
	"cropwatch/internal/timeutil"
)

// DefaultDelay is the pause between cycles, giving the operator time to
// move the camera to the next plant.
const DefaultDelay = 10 * time.Second

// ErrAlreadyStarted is returned when Run is called on a used loop.
var ErrAlreadyStarted = errors.New("loop already started")

// State of the loop. Stopped is terminal.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// FrameAnalyzer turns a frame into a classification.
type FrameAnalyzer interface {
	Analyze(f image.Frame) (classify.Result, error)
	io.Closer
}

// AnalyzerFactory loads the classifier. It is called once, before the
// source is opened.
type AnalyzerFactory func() (FrameAnalyzer, error)

// SourceFactory acquires the frame source.
type SourceFactory func() (image.Source, error)

// Config holds the loop settings.
type Config struct {
	Delay        time.Duration
	FieldAreaSqm float64
	Clock        timeutil.Clock
}

func (c Config) withDefaults() Config {
	if c.Delay <= 0 {
		c.Delay = DefaultDelay
	}
	if c.FieldAreaSqm == 0 {
		c.FieldAreaSqm = decision.DefaultFieldAreaSqm
	}
	if c.Clock == nil {
		c.Clock = timeutil.RealClock{}
	}
	return c
}

// Status is a snapshot of the loop for the status API.
type Status struct {
	State     State     `json:"state"`
	Cycles    int       `json:"cycles"`
	StartedAt time.Time `json:"started_at,omitempty"`
}

// Loop is the live analysis loop. Run may be called once.
type Loop struct {
	cfg          Config
	engine       *decision.Engine
	openAnalyzer AnalyzerFactory
	openSource   SourceFactory
	sink         report.Sink

	mu      sync.Mutex
	claimed bool // Run has been called; the state stays Idle until the analyzer loads
	state   State
	cycles  int
	started time.Time
}

// New creates a loop in the idle state.
func New(cfg Config, engine *decision.Engine, analyzers AnalyzerFactory, sources SourceFactory, sink report.Sink) *Loop {
	return &Loop{
		cfg:          cfg.withDefaults(),
		engine:       engine,
		openAnalyzer: analyzers,
		openSource:   sources,
		sink:         sink,
	}
}

// State returns the current state.
func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Status returns a snapshot of the loop.
func (l *Loop) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Status{State: l.state, Cycles: l.cycles, StartedAt: l.started}
}

// Run executes cycles until the source fails, analysis fails, or ctx is
// cancelled. The loop enters Running once the analyzer has loaded. Cancellation is a normal shutdown and returns nil. The source
// is released exactly once on every path.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.start(); err != nil {
		return err
	}
	defer l.stop()

	analyzer, err := l.openAnalyzer()
	if err != nil {
		l.emit(report.NewEvent(report.KindModelUnavailable, l.cfg.Clock.Now(), err.Error()))
		if !errors.Is(err, classify.ErrModelUnavailable) {
			err = fmt.Errorf("%w: %v", classify.ErrModelUnavailable, err)
		}
		return err
	}
	defer closeLogged("analyzer", analyzer)
	l.setState(StateRunning)

	src, err := l.openSource()
	if err != nil {
		l.emit(report.NewEvent(report.KindDeviceError, l.cfg.Clock.Now(), "could not open camera: "+err.Error()))
		return deviceError(err)
	}
	defer closeLogged("source", src)

	for {
		if ctx.Err() != nil {
			return l.shutdown()
		}

		log.Printf("pipeline: Capturing image...")
		frame, err := src.Capture()
		if ctx.Err() != nil {
			return l.shutdown()
		}
		if err != nil {
			l.emit(report.NewEvent(report.KindDeviceError, l.cfg.Clock.Now(), "failed to capture image: "+err.Error()))
			return fmt.Errorf("capture: %w", deviceError(err))
		}

		res, err := analyzer.Analyze(frame)
		if ctx.Err() != nil {
			return l.shutdown()
		}
		if err != nil {
			return l.analysisFailed(err)
		}

		rec, err := l.engine.Decide(res, l.cfg.FieldAreaSqm)
		if ctx.Err() != nil {
			return l.shutdown()
		}
		if err != nil {
			return l.analysisFailed(err)
		}
		l.emit(report.NewAnalysis(l.timestamp(frame), res, rec, l.cfg.FieldAreaSqm))

		l.mu.Lock()
		l.cycles++
		l.mu.Unlock()

		log.Printf("pipeline: Waiting for %s... Move the camera to the next location.", l.cfg.Delay)
		if err := timeutil.Sleep(ctx, l.cfg.Clock, l.cfg.Delay); err != nil {
			return l.shutdown()
		}
	}
}

func (l *Loop) start() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.claimed {
		return ErrAlreadyStarted
	}
	l.claimed = true
	l.started = l.cfg.Clock.Now()
	return nil
}

func (l *Loop) setState(s State) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
}

func (l *Loop) stop() {
	l.setState(StateStopped)
}

func (l *Loop) analysisFailed(err error) error {
	l.emit(report.NewEvent(report.KindAnalysisError, l.cfg.Clock.Now(), err.Error()))
	return fmt.Errorf("analysis: %w", err)
}

func (l *Loop) shutdown() error {
	log.Printf("pipeline: interrupted, shutting down")
	l.emit(report.NewEvent(report.KindShutdown, l.cfg.Clock.Now(), "interrupted by operator"))
	return nil
}

func (l *Loop) emit(r report.Report) {
	if l.sink == nil {
		return
	}
	if err := l.sink.Emit(r); err != nil {
		log.Printf("pipeline: report sink: %v", err)
	}
}

func (l *Loop) timestamp(f image.Frame) time.Time {
	if !f.CapturedAt.IsZero() {
		return f.CapturedAt
	}
	return l.cfg.Clock.Now()
}

func deviceError(err error) error {
	if errors.Is(err, image.ErrDeviceUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", image.ErrDeviceUnavailable, err)
}

func closeLogged(what string, c io.Closer) {
	if err := c.Close(); err != nil {
		log.Printf("pipeline: closing %s: %v", what, err)
	}
}
