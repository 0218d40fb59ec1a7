package log

import (
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/caasmo/batchlog/db"
)

// Sink serializes every caller into a single Committer. One mutex guards the
// whole committer, so rows are committed in the order callers acquired it.
// Callers block while another one is inserting or committing; there is no queue.
//
// The sink accepts every entry. Level filtering belongs to the Handler.
type Sink struct {
	mu        sync.Mutex
	committer *Committer
	// escalated is set once a sustained failure streak has been reported.
	escalated bool

	opLogger  *slog.Logger
	formatter *MessageFormatter
}

// NewSink wraps c. opLogger receives reports about the sink itself and must not
// write back into this sink; nil discards them.
// If c is nil, this function will panic.
func NewSink(c *Committer, opLogger *slog.Logger) *Sink {
	if c == nil {
		panic("sink: committer cannot be nil")
	}
	if opLogger == nil {
		opLogger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Sink{
		committer: c,
		opLogger:  opLogger,
		formatter: NewMessageFormatter().WithComponent("sink", "🗄️"),
	}
}

// Record writes entry through the committer.
func (s *Sink) Record(entry db.Log) error {
	s.mu.Lock()
	err := s.committer.Record(entry)
	report := s.track(err)
	s.mu.Unlock()

	if report {
		s.opLogger.Error(s.formatter.Fail("sustained write failures, log entries are being dropped"), "error", err)
	}
	return err
}

// Flush commits the open transaction and begins a new one.
func (s *Sink) Flush() error {
	s.mu.Lock()
	err := s.committer.Flush()
	report := s.track(err)
	s.mu.Unlock()

	if report {
		s.opLogger.Error(s.formatter.Fail("sustained commit failures"), "error", err)
	}
	return err
}

// FlushPending flushes only when rows are pending and reports whether it did.
func (s *Sink) FlushPending() (bool, error) {
	s.mu.Lock()
	if s.committer.Pending() == 0 {
		s.mu.Unlock()
		return false, nil
	}
	err := s.committer.Flush()
	report := s.track(err)
	s.mu.Unlock()

	if report {
		s.opLogger.Error(s.formatter.Fail("sustained commit failures"), "error", err)
	}
	return err == nil, err
}

// track must be called with mu held. It reports true once per failure streak.
func (s *Sink) track(err error) bool {
	if err == nil {
		s.escalated = false
		return false
	}
	if errors.Is(err, ErrSustainedFailure) && !s.escalated {
		s.escalated = true
		return true
	}
	return false
}

func (s *Sink) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.committer.Pending()
}

func (s *Sink) Threshold() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.committer.Threshold()
}

func (s *Sink) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.committer.Stats()
}

// Close commits pending rows and closes the store.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.committer.Close()
}
