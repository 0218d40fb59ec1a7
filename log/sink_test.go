package log

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/caasmo/batchlog/db"
	"github.com/caasmo/batchlog/db/mock"
)

func TestNewSink_NilCommitter(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected a panic for a nil committer")
		}
	}()
	NewSink(nil, nil)
}

// TestSink_ConcurrentProducers checks that every row from every goroutine is
// stored once and that each goroutine's rows keep their relative order.
func TestSink_ConcurrentProducers(t *testing.T) {
	const producers = 8
	const perProducer = 200

	c, store := newTestCommitter(t, 7)
	sink := NewSink(c, nil)

	var wg sync.WaitGroup
	errs := make(chan error, producers)
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				if err := sink.Record(db.Log{Message: fmt.Sprintf("p%d-%d", p, i)}); err != nil {
					errs <- err
					return
				}
			}
		}(p)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("Record() failed: %v", err)
	}

	if err := sink.Flush(); err != nil {
		t.Fatalf("Flush() failed: %v", err)
	}

	rows := store.Committed()
	if len(rows) != producers*perProducer {
		t.Fatalf("expected %d rows, got %d", producers*perProducer, len(rows))
	}

	next := make([]int, producers)
	for _, row := range rows {
		var p, i int
		if _, err := fmt.Sscanf(row.Message, "p%d-%d", &p, &i); err != nil {
			t.Fatalf("unexpected row %q: %v", row.Message, err)
		}
		if i != next[p] {
			t.Fatalf("producer %d: got row %d, want %d", p, i, next[p])
		}
		next[p]++
	}

	stats := sink.Stats()
	if stats.Rows != producers*perProducer {
		t.Errorf("Rows = %d, want %d", stats.Rows, producers*perProducer)
	}
	if want := uint64(producers*perProducer/7 + 1); stats.Commits != want {
		t.Errorf("Commits = %d, want %d", stats.Commits, want)
	}
}

func TestSink_FlushPending(t *testing.T) {
	c, store := newTestCommitter(t, 10)
	sink := NewSink(c, nil)

	flushed, err := sink.FlushPending()
	if err != nil || flushed {
		t.Fatalf("FlushPending() on empty = (%v, %v), want (false, nil)", flushed, err)
	}
	if store.Commits() != 0 {
		t.Fatal("FlushPending() committed with nothing pending")
	}

	if err := sink.Record(db.Log{Message: "a"}); err != nil {
		t.Fatalf("Record() failed: %v", err)
	}
	flushed, err = sink.FlushPending()
	if err != nil || !flushed {
		t.Fatalf("FlushPending() = (%v, %v), want (true, nil)", flushed, err)
	}
	if store.Commits() != 1 || sink.Pending() != 0 {
		t.Errorf("expected one commit and nothing pending, commits=%d pending=%d", store.Commits(), sink.Pending())
	}
	if sink.Threshold() != 10 {
		t.Errorf("Threshold() = %d, want 10", sink.Threshold())
	}
}

// TestSink_ReportsSustainedFailureOnce checks that the ops logger hears about
// a failure streak once, and again only after a success ends the streak.
func TestSink_ReportsSustainedFailureOnce(t *testing.T) {
	var out bytes.Buffer
	opLogger := slog.New(slog.NewTextHandler(&out, nil))

	store := &mock.Db{}
	c, err := NewCommitter(store, 10, WithMaxConsecutiveFailures(2))
	if err != nil {
		t.Fatalf("NewCommitter() failed: %v", err)
	}
	sink := NewSink(c, opLogger)

	failInsert := func(db.Log) error { return errors.New("disk I/O error") }
	store.InsertFunc = failInsert
	for i := 0; i < 5; i++ {
		if err := sink.Record(db.Log{}); err == nil {
			t.Fatal("Record() should fail")
		}
	}
	if n := strings.Count(out.String(), "log entries are being dropped"); n != 1 {
		t.Fatalf("expected 1 report for the first streak, got %d\n%s", n, out.String())
	}

	store.InsertFunc = nil
	if err := sink.Record(db.Log{}); err != nil {
		t.Fatalf("Record() failed: %v", err)
	}

	store.InsertFunc = failInsert
	for i := 0; i < 3; i++ {
		_ = sink.Record(db.Log{})
	}
	if n := strings.Count(out.String(), "log entries are being dropped"); n != 2 {
		t.Errorf("expected 2 reports after a second streak, got %d", n)
	}
}

func TestSink_Close(t *testing.T) {
	c, store := newTestCommitter(t, 10)
	sink := NewSink(c, nil)

	if err := sink.Record(db.Log{Message: "tail"}); err != nil {
		t.Fatalf("Record() failed: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if len(store.Committed()) != 1 || !store.Closed() {
		t.Error("Close() should commit the tail and close the store")
	}
	if err := sink.Record(db.Log{}); !errors.Is(err, ErrClosed) {
		t.Errorf("Record() after Close() = %v, want ErrClosed", err)
	}
}
