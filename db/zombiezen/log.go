package zombiezen

import (
	"errors"
	"fmt"

	"github.com/caasmo/batchlog/db"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// ErrConnectionClosed is returned by every operation after Close.
var ErrConnectionClosed = errors.New("zombiezen: connection closed")

// Log writes log rows through a single zombiezen connection.
type Log struct {
	conn *sqlite.Conn
}

var _ db.DbLog = (*Log)(nil)

// NewConn creates a new SQLite connection for logging purposes with performance optimizations.
func NewConn(dbPath string) (*sqlite.Conn, error) {
	conn, err := sqlite.OpenConn(dbPath, sqlite.OpenReadWrite|sqlite.OpenCreate|sqlite.OpenURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open logging connection: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA busy_timeout = 5000;",
	}
	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return conn, nil
}

// NewLog opens (or creates) the store file at dbPath.
func NewLog(dbPath string) (*Log, error) {
	conn, err := NewConn(dbPath)
	if err != nil {
		return nil, err
	}
	return &Log{conn: conn}, nil
}

// ApplySchema runs the schema script. sqlitex wraps it in a savepoint,
// so it must not be called while a transaction is open.
func (l *Log) ApplySchema(script string) error {
	if l.conn == nil {
		return ErrConnectionClosed
	}
	if err := sqlitex.ExecuteScript(l.conn, script, nil); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func (l *Log) Begin() error {
	if l.conn == nil {
		return ErrConnectionClosed
	}
	if err := sqlitex.Execute(l.conn, "BEGIN;", nil); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	return nil
}

// Insert executes the cached insert statement. Prepare keeps the statement in the
// connection cache, so it is compiled once per connection.
func (l *Log) Insert(entry db.Log) error {
	if l.conn == nil {
		return ErrConnectionClosed
	}

	stmt, err := l.conn.Prepare(db.InsertLogQuery)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}

	stmt.BindInt64(1, entry.Level)
	stmt.BindText(2, entry.Message)

	if _, err := stmt.Step(); err != nil {
		stmt.Reset()
		return fmt.Errorf("failed to execute statement for record (msg: %q): %w", entry.Message, err)
	}
	if err := stmt.Reset(); err != nil {
		return fmt.Errorf("failed to reset statement: %w", err)
	}
	return nil
}

func (l *Log) Commit() error {
	if l.conn == nil {
		return ErrConnectionClosed
	}
	if err := sqlitex.Execute(l.conn, "COMMIT;", nil); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (l *Log) Rollback() error {
	if l.conn == nil {
		return ErrConnectionClosed
	}
	if err := sqlitex.Execute(l.conn, "ROLLBACK;", nil); err != nil {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}

// Ping checks the connection and that tableName can be read.
func (l *Log) Ping(tableName string) error {
	if l.conn == nil {
		return ErrConnectionClosed
	}
	query := fmt.Sprintf("SELECT 1 FROM %q LIMIT 1;", tableName)
	if err := sqlitex.ExecuteTransient(l.conn, query, nil); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}

// Close closes the connection. An open transaction is rolled back by SQLite.
func (l *Log) Close() error {
	if l.conn == nil {
		return ErrConnectionClosed
	}
	err := l.conn.Close()
	l.conn = nil
	if err != nil {
		return fmt.Errorf("failed to close logging connection: %w", err)
	}
	return nil
}
