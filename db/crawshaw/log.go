package crawshaw

import (
	"errors"
	"fmt"

	"crawshaw.io/sqlite"
	"crawshaw.io/sqlite/sqlitex"

	"github.com/caasmo/batchlog/db"
)

// ErrConnectionClosed is returned by every operation after Close.
var ErrConnectionClosed = errors.New("crawshaw: connection closed")

// Log writes log rows through a single crawshaw connection.
type Log struct {
	conn *sqlite.Conn
}

var _ db.DbLog = (*Log)(nil)

// NewConn opens a connection with the default crawshaw flags
// (read-write, create, WAL, URI) and a busy timeout.
func NewConn(dbPath string) (*sqlite.Conn, error) {
	conn, err := sqlite.OpenConn(dbPath, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite connection at %s: %w", dbPath, err)
	}

	pragmas := []string{
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA busy_timeout = 5000;",
	}
	for _, pragma := range pragmas {
		if err := sqlitex.ExecTransient(conn, pragma, nil); err != nil {
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

func (l *Log) ApplySchema(script string) error {
	if l.conn == nil {
		return ErrConnectionClosed
	}
	if err := sqlitex.ExecScript(l.conn, script); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func (l *Log) Begin() error {
	if l.conn == nil {
		return ErrConnectionClosed
	}
	if err := sqlitex.Exec(l.conn, "BEGIN;", nil); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	return nil
}

// Insert executes the connection-cached insert statement.
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
	if err := sqlitex.Exec(l.conn, "COMMIT;", nil); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (l *Log) Rollback() error {
	if l.conn == nil {
		return ErrConnectionClosed
	}
	if err := sqlitex.Exec(l.conn, "ROLLBACK;", nil); err != nil {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}

func (l *Log) Ping(tableName string) error {
	if l.conn == nil {
		return ErrConnectionClosed
	}
	query := fmt.Sprintf("SELECT 1 FROM %q LIMIT 1;", tableName)
	if err := sqlitex.ExecTransient(l.conn, query, nil); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}

func (l *Log) Close() error {
	if l.conn == nil {
		return ErrConnectionClosed
	}
	err := l.conn.Close()
	l.conn = nil
	if err != nil {
		return fmt.Errorf("failed to close sqlite connection: %w", err)
	}
	return nil
}
