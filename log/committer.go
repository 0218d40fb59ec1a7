package log

import (
	"errors"
	"fmt"

	"github.com/caasmo/batchlog/db"
)

var (
	ErrInvalidThreshold = errors.New("batchlog: threshold must be at least 1")
	ErrSustainedFailure = errors.New("batchlog: sustained write failures")
	ErrClosed           = errors.New("batchlog: committer closed")
)

// DefaultMaxConsecutiveFailures is the failure streak after which errors wrap ErrSustainedFailure.
const DefaultMaxConsecutiveFailures = 10

// Stats are running totals since the committer was created.
type Stats struct {
	Rows     uint64 // rows inserted into a transaction
	Commits  uint64 // successful commits
	Failures uint64 // failed inserts, commits and reopens
}

// Committer keeps one transaction open against a DbLog and commits it every
// threshold rows, then begins the next one. Rows inserted since the last
// commit are lost if the process dies before the next commit.
//
// A Committer is not safe for concurrent use; Sink serializes access to it.
type Committer struct {
	store       db.DbLog
	threshold   int
	maxFailures int

	pending     int
	inTx        bool
	consecutive int
	stats       Stats
	closed      bool
}

// CommitterOption configures a Committer in NewCommitter.
type CommitterOption func(*Committer)

// WithMaxConsecutiveFailures sets how many failures in a row are tolerated before
// returned errors also wrap ErrSustainedFailure. Zero disables escalation.
func WithMaxConsecutiveFailures(n int) CommitterOption {
	return func(c *Committer) {
		c.maxFailures = n
	}
}

// NewCommitter validates threshold and begins the first transaction on store.
// The threshold is fixed for the lifetime of the Committer.
func NewCommitter(store db.DbLog, threshold int, opts ...CommitterOption) (*Committer, error) {
	if store == nil {
		return nil, fmt.Errorf("committer: store cannot be nil")
	}
	if threshold < 1 {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidThreshold, threshold)
	}

	c := &Committer{
		store:       store,
		threshold:   threshold,
		maxFailures: DefaultMaxConsecutiveFailures,
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := store.Begin(); err != nil {
		return nil, fmt.Errorf("committer: failed to open first transaction: %w", err)
	}
	c.inTx = true
	return c, nil
}

// Record inserts entry into the open transaction and commits once the number of
// pending rows reaches the threshold. A failed insert drops entry: it is not
// counted as pending and it is not retried.
func (c *Committer) Record(entry db.Log) error {
	if c.closed {
		return ErrClosed
	}
	if err := c.reopen(); err != nil {
		return c.fail(fmt.Errorf("committer: dropped log entry: %w", err))
	}

	if err := c.store.Insert(entry); err != nil {
		return c.fail(fmt.Errorf("committer: dropped log entry: %w", err))
	}
	c.pending++
	c.stats.Rows++
	c.consecutive = 0

	if c.pending < c.threshold {
		return nil
	}
	return c.commit()
}

// Flush commits the open transaction regardless of how many rows are pending
// and begins a new one. Pending is reset to zero, same as a threshold commit,
// so the next threshold commit happens after a full batch.
func (c *Committer) Flush() error {
	if c.closed {
		return ErrClosed
	}
	if !c.inTx {
		// nothing can be pending without a transaction
		if err := c.reopen(); err != nil {
			return c.fail(err)
		}
		c.consecutive = 0
		return nil
	}
	return c.commit()
}

// reopen begins a transaction if the last one could not be reopened.
func (c *Committer) reopen() error {
	if c.inTx {
		return nil
	}
	if err := c.store.Begin(); err != nil {
		return fmt.Errorf("committer: no open transaction: %w", err)
	}
	c.inTx = true
	return nil
}

// commit finalizes the open transaction and begins the next one. On a failed
// commit the batch is dropped and a fresh transaction is opened so that rows
// are never written outside a transaction afterwards.
func (c *Committer) commit() error {
	c.pending = 0

	if err := c.store.Commit(); err != nil {
		// the rollback fails when SQLite already rolled back, which is fine
		_ = c.store.Rollback()
		c.inTx = false
		if berr := c.reopen(); berr != nil {
			err = errors.Join(err, berr)
		}
		return c.fail(fmt.Errorf("committer: commit failed, batch dropped: %w", err))
	}
	c.inTx = false
	c.stats.Commits++

	// A failed Begin leaves no transaction; the next Record or Flush retries it.
	if err := c.reopen(); err != nil {
		return c.fail(fmt.Errorf("committer: failed to reopen transaction: %w", err))
	}
	c.consecutive = 0
	return nil
}

func (c *Committer) fail(err error) error {
	c.stats.Failures++
	c.consecutive++
	if c.maxFailures > 0 && c.consecutive >= c.maxFailures {
		return fmt.Errorf("%w (%d in a row): %w", ErrSustainedFailure, c.consecutive, err)
	}
	return err
}

// Close commits the pending rows without opening a new transaction and closes
// the store. Every later call returns ErrClosed.
func (c *Committer) Close() error {
	if c.closed {
		return ErrClosed
	}
	c.closed = true
	c.pending = 0

	var errs []error
	if c.inTx {
		c.inTx = false
		if err := c.store.Commit(); err != nil {
			c.stats.Failures++
			errs = append(errs, fmt.Errorf("committer: final commit failed: %w", err))
		} else {
			c.stats.Commits++
		}
	}
	if err := c.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("committer: failed to close store: %w", err))
	}
	return errors.Join(errs...)
}

// Pending returns the number of rows in the open transaction.
func (c *Committer) Pending() int {
	return c.pending
}

// Threshold returns the number of rows that triggers a commit.
func (c *Committer) Threshold() int {
	return c.threshold
}

// Stats returns the running totals.
func (c *Committer) Stats() Stats {
	return c.stats
}
