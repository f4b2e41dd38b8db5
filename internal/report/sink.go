package report

import (
	"errors"
	"log"
	"sync"
)

// Sink receives reports. Emit is called from the capture loop goroutine only.
type Sink interface {
	Emit(r Report) error
}

// LogSink prints the human-readable report block through a logger.
type LogSink struct {
	Logger *log.Logger // nil means the standard logger
}

// Emit logs the report.
func (s LogSink) Emit(r Report) error {
	text := "\n" + Format(r)
	if s.Logger != nil {
		s.Logger.Print(text)
		return nil
	}
	log.Print(text)
	return nil
}

// Multi fans a report out to several sinks. Every sink is tried; the
// returned error joins the individual failures.
type Multi []Sink

// Emit delivers r to every sink.
func (m Multi) Emit(r Report) error {
	var errs []error
	for _, s := range m {
		if err := s.Emit(r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recorder keeps the most recent report in memory for the status API.
// It is the only sink read from other goroutines.
type Recorder struct {
	mu       sync.RWMutex
	last     Report
	hasLast  bool
	analyses int
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Emit records r.
func (r *Recorder) Emit(rep Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = rep
	r.hasLast = true
	if rep.Kind == KindAnalysis {
		r.analyses++
	}
	return nil
}

// Last returns the most recent report, if any.
func (r *Recorder) Last() (Report, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last, r.hasLast
}

// Analyses returns how many analysis reports have been recorded.
func (r *Recorder) Analyses() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.analyses
}
