package mock

import (
	"errors"
	"sync"

	"github.com/caasmo/batchlog/db"
)

// Compile-time check to ensure Db implements the DbLog interface
var _ db.DbLog = (*Db)(nil)

// Db implements db.DbLog in memory for testing purposes.
// Use function fields to allow overriding behavior in specific tests; a non-nil
// error from a Func field makes the call fail without touching the in-memory state.
// Transaction calls out of order fail the way SQLite reports them.
type Db struct {
	ApplySchemaFunc func(script string) error
	BeginFunc       func() error
	InsertFunc      func(entry db.Log) error
	CommitFunc      func() error
	RollbackFunc    func() error
	PingFunc        func(tableName string) error
	CloseFunc       func() error

	mu        sync.Mutex
	inTx      bool
	open      []db.Log
	committed []db.Log
	begins    int
	commits   int
	rollbacks int
	closed    bool
}

func (m *Db) ApplySchema(script string) error {
	if m.ApplySchemaFunc != nil {
		return m.ApplySchemaFunc(script)
	}
	return nil
}

func (m *Db) Begin() error {
	if m.BeginFunc != nil {
		if err := m.BeginFunc(); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inTx {
		return errors.New("cannot start a transaction within a transaction")
	}
	m.inTx = true
	m.begins++
	return nil
}

func (m *Db) Insert(entry db.Log) error {
	if m.InsertFunc != nil {
		if err := m.InsertFunc(entry); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inTx {
		m.open = append(m.open, entry)
	} else {
		// autocommit, as SQLite does outside a transaction
		m.committed = append(m.committed, entry)
	}
	return nil
}

func (m *Db) Commit() error {
	if m.CommitFunc != nil {
		if err := m.CommitFunc(); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.inTx {
		return errors.New("cannot commit - no transaction is active")
	}
	m.committed = append(m.committed, m.open...)
	m.open = nil
	m.inTx = false
	m.commits++
	return nil
}

func (m *Db) Rollback() error {
	if m.RollbackFunc != nil {
		if err := m.RollbackFunc(); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.inTx {
		return errors.New("cannot rollback - no transaction is active")
	}
	m.open = nil
	m.inTx = false
	m.rollbacks++
	return nil
}

func (m *Db) Ping(tableName string) error {
	if m.PingFunc != nil {
		return m.PingFunc(tableName)
	}
	return nil
}

func (m *Db) Close() error {
	if m.CloseFunc != nil {
		if err := m.CloseFunc(); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open = nil
	m.inTx = false
	m.closed = true
	return nil
}

// --- Test Helper Methods ---

// Committed returns a copy of every committed row in insertion order.
func (m *Db) Committed() []db.Log {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]db.Log, len(m.committed))
	copy(out, m.committed)
	return out
}

// Open returns a copy of the rows in the current transaction.
func (m *Db) Open() []db.Log {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]db.Log, len(m.open))
	copy(out, m.open)
	return out
}

// InTx reports whether a transaction is open.
func (m *Db) InTx() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inTx
}

func (m *Db) Begins() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.begins
}

func (m *Db) Commits() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.commits
}

func (m *Db) Rollbacks() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rollbacks
}

func (m *Db) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
