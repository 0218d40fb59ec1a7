package log

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/caasmo/batchlog/db"
	"github.com/caasmo/batchlog/db/mock"
)

// newTestLogger creates a silent logger for tests to avoid noisy output.
func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// lockedBuffer is a bytes.Buffer safe for the daemon goroutine and the test to share.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// waitFor polls cond until it holds or timeout elapses.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for condition")
		}
		time.Sleep(time.Millisecond)
	}
}

// newTestSink returns a sink with a threshold large enough that only the
// daemon commits during the test.
func newTestSink(t *testing.T, opLogger *slog.Logger) (*Sink, *mock.Db) {
	t.Helper()
	c, store := newTestCommitter(t, 1000)
	return NewSink(c, opLogger), store
}

func TestNewDaemon(t *testing.T) {
	sink, _ := newTestSink(t, nil)

	testCases := []struct {
		name      string
		sink      *Sink
		interval  time.Duration
		expectErr bool
	}{
		{"Valid", sink, time.Second, false},
		{"Nil sink", nil, time.Second, true},
		{"Zero interval", sink, 0, true},
		{"Negative interval", sink, -time.Second, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d, err := NewDaemon(tc.sink, tc.interval, nil)
			if tc.expectErr {
				if err == nil {
					t.Error("expected an error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewDaemon() failed: %v", err)
			}
			if d.Name() != "FlushDaemon" {
				t.Errorf("Name() = %q", d.Name())
			}
		})
	}
}

// TestDaemon_FlushOnInterval verifies that a partial batch is committed when the ticker fires.
func TestDaemon_FlushOnInterval(t *testing.T) {
	sink, store := newTestSink(t, nil)

	daemon, err := NewDaemon(sink, 20*time.Millisecond, newTestLogger())
	if err != nil {
		t.Fatalf("NewDaemon() failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := sink.Record(db.Log{Message: "test"}); err != nil {
			t.Fatalf("Record() failed: %v", err)
		}
	}
	if store.Commits() != 0 {
		t.Fatal("rows committed before the daemon started")
	}

	if err := daemon.Start(); err != nil {
		t.Fatalf("daemon.Start() failed: %v", err)
	}
	defer func() {
		if err := daemon.Stop(context.Background()); err != nil {
			t.Logf("daemon.Stop() failed during cleanup: %v", err)
		}
	}()

	waitFor(t, time.Second, func() bool { return len(store.Committed()) == 2 })

	if sink.Pending() != 0 {
		t.Errorf("expected nothing pending after the interval flush, got %d", sink.Pending())
	}
}

// TestDaemon_SkipsIdleTicks verifies that a tick with nothing pending does not commit.
func TestDaemon_SkipsIdleTicks(t *testing.T) {
	sink, store := newTestSink(t, nil)

	daemon, err := NewDaemon(sink, 5*time.Millisecond, newTestLogger())
	if err != nil {
		t.Fatalf("NewDaemon() failed: %v", err)
	}
	if err := daemon.Start(); err != nil {
		t.Fatalf("daemon.Start() failed: %v", err)
	}

	time.Sleep(30 * time.Millisecond)
	if err := daemon.Stop(context.Background()); err != nil {
		t.Fatalf("daemon.Stop() failed: %v", err)
	}

	if store.Commits() != 0 {
		t.Errorf("expected no commits while idle, got %d", store.Commits())
	}
}

// TestDaemon_StopFlushes ensures pending rows are committed on graceful shutdown.
func TestDaemon_StopFlushes(t *testing.T) {
	sink, store := newTestSink(t, nil)

	daemon, err := NewDaemon(sink, time.Hour, newTestLogger())
	if err != nil {
		t.Fatalf("NewDaemon() failed: %v", err)
	}
	if err := daemon.Start(); err != nil {
		t.Fatalf("daemon.Start() failed: %v", err)
	}

	for i := 0; i < 5; i++ {
		if err := sink.Record(db.Log{Message: "test"}); err != nil {
			t.Fatalf("Record() failed: %v", err)
		}
	}

	if err := daemon.Stop(context.Background()); err != nil {
		t.Fatalf("daemon.Stop() returned an error: %v", err)
	}

	if got := len(store.Committed()); got != 5 {
		t.Errorf("expected 5 rows committed on shutdown, got %d", got)
	}
	if store.Closed() {
		t.Error("the daemon must not close the store, the sink owns it")
	}
}

// TestDaemon_SurvivesDbError verifies the daemon keeps running after a failed commit.
func TestDaemon_SurvivesDbError(t *testing.T) {
	var logOutput lockedBuffer
	opLogger := slog.New(slog.NewTextHandler(&logOutput, nil))
	sink, store := newTestSink(t, opLogger)

	var failing sync.Mutex
	fail := true
	store.CommitFunc = func() error {
		failing.Lock()
		defer failing.Unlock()
		if fail {
			return errors.New("simulated db error")
		}
		return nil
	}

	daemon, err := NewDaemon(sink, 10*time.Millisecond, opLogger)
	if err != nil {
		t.Fatalf("NewDaemon() failed: %v", err)
	}
	if err := daemon.Start(); err != nil {
		t.Fatalf("daemon.Start() failed: %v", err)
	}
	defer func() {
		if err := daemon.Stop(context.Background()); err != nil {
			t.Logf("daemon.Stop() failed during cleanup: %v", err)
		}
	}()

	if err := sink.Record(db.Log{Message: "lost"}); err != nil {
		t.Fatalf("Record() failed: %v", err)
	}
	waitFor(t, time.Second, func() bool { return strings.Contains(logOutput.String(), "simulated db error") })
	for _, want := range []string{"level=WARN", "⚠️", "daemon_component=FlushDaemon"} {
		if !strings.Contains(logOutput.String(), want) {
			t.Errorf("flush failure log missing %q:\n%s", want, logOutput.String())
		}
	}

	failing.Lock()
	fail = false
	failing.Unlock()

	if err := sink.Record(db.Log{Message: "kept"}); err != nil {
		t.Fatalf("Record() failed: %v", err)
	}
	waitFor(t, time.Second, func() bool { return len(store.Committed()) == 1 })

	if rows := store.Committed(); rows[0].Message != "kept" {
		t.Errorf("expected only the row after recovery, got %+v", rows)
	}
}

func TestDaemon_StartStop(t *testing.T) {
	t.Run("Stop without start", func(t *testing.T) {
		sink, _ := newTestSink(t, nil)
		daemon, err := NewDaemon(sink, time.Second, nil)
		if err != nil {
			t.Fatalf("NewDaemon() failed: %v", err)
		}
		if err := daemon.Stop(context.Background()); err != nil {
			t.Errorf("Stop() on an idle daemon = %v, want nil", err)
		}
	})

	t.Run("Double start", func(t *testing.T) {
		sink, _ := newTestSink(t, nil)
		daemon, err := NewDaemon(sink, time.Second, nil)
		if err != nil {
			t.Fatalf("NewDaemon() failed: %v", err)
		}
		if err := daemon.Start(); err != nil {
			t.Fatalf("first Start() failed: %v", err)
		}
		defer daemon.Stop(context.Background())

		if err := daemon.Start(); err == nil {
			t.Error("second Start() should fail")
		}
	})

	t.Run("Stop deadline", func(t *testing.T) {
		sink, store := newTestSink(t, nil)
		release := make(chan struct{})
		store.CommitFunc = func() error {
			<-release
			return nil
		}
		if err := sink.Record(db.Log{Message: "slow"}); err != nil {
			t.Fatalf("Record() failed: %v", err)
		}

		daemon, err := NewDaemon(sink, time.Hour, nil)
		if err != nil {
			t.Fatalf("NewDaemon() failed: %v", err)
		}
		if err := daemon.Start(); err != nil {
			t.Fatalf("Start() failed: %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		if err := daemon.Stop(ctx); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Stop() = %v, want context.DeadlineExceeded", err)
		}
		close(release)
		waitFor(t, time.Second, func() bool { return store.Commits() == 1 })
	})
}
