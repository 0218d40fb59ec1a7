package sqlite3

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/caasmo/batchlog/db"
)

// ErrConnectionClosed is returned by every operation after Close.
var ErrConnectionClosed = errors.New("sqlite3: connection closed")

// Log writes log rows through database/sql and github.com/mattn/go-sqlite3.
//
// The pool is limited to one connection. The insert statement is prepared on
// the pool once and bound to every new transaction with Tx.Stmt, which reuses
// the compiled statement because it lives on the same connection.
type Log struct {
	db     *sql.DB
	tx     *sql.Tx
	insert *sql.Stmt
	txStmt *sql.Stmt
}

var _ db.DbLog = (*Log)(nil)

// NewLog opens (or creates) the store file at dbPath.
func NewLog(dbPath string) (*Log, error) {
	sqlDB, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if err := applyPragmas(sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	return &Log{db: sqlDB}, nil
}

func applyPragmas(sqlDB *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := sqlDB.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func (l *Log) ApplySchema(script string) error {
	if l.db == nil {
		return ErrConnectionClosed
	}
	if l.tx != nil {
		return fmt.Errorf("failed to apply schema: transaction in progress")
	}
	if _, err := l.db.Exec(script); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Begin opens a transaction. The shared insert statement is prepared here, while
// the single pooled connection is still free.
func (l *Log) Begin() error {
	if l.db == nil {
		return ErrConnectionClosed
	}
	if l.tx != nil {
		return fmt.Errorf("failed to begin transaction: transaction already open")
	}

	if l.insert == nil {
		stmt, err := l.db.Prepare(db.InsertLogQuery)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		l.insert = stmt
	}

	tx, err := l.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	l.tx = tx
	l.txStmt = tx.Stmt(l.insert)
	return nil
}

func (l *Log) Insert(entry db.Log) error {
	if l.db == nil {
		return ErrConnectionClosed
	}
	if l.tx == nil {
		return fmt.Errorf("failed to execute statement for record (msg: %q): no transaction is active", entry.Message)
	}
	if _, err := l.txStmt.Exec(entry.Level, entry.Message); err != nil {
		return fmt.Errorf("failed to execute statement for record (msg: %q): %w", entry.Message, err)
	}
	return nil
}

func (l *Log) Commit() error {
	if l.db == nil {
		return ErrConnectionClosed
	}
	if l.tx == nil {
		return fmt.Errorf("failed to commit transaction: no transaction is active")
	}
	err := l.tx.Commit()
	l.tx, l.txStmt = nil, nil
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (l *Log) Rollback() error {
	if l.db == nil {
		return ErrConnectionClosed
	}
	if l.tx == nil {
		return fmt.Errorf("failed to rollback transaction: no transaction is active")
	}
	err := l.tx.Rollback()
	l.tx, l.txStmt = nil, nil
	if err != nil {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}

// Ping runs against the open transaction when there is one, since it holds
// the only pooled connection.
func (l *Log) Ping(tableName string) error {
	if l.db == nil {
		return ErrConnectionClosed
	}
	query := fmt.Sprintf("SELECT 1 FROM %q LIMIT 1", tableName)

	var rows *sql.Rows
	var err error
	if l.tx != nil {
		rows, err = l.tx.Query(query)
	} else {
		rows, err = l.db.Query(query)
	}
	if err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	return rows.Close()
}

// Close rolls back an open transaction and closes the pool.
func (l *Log) Close() error {
	if l.db == nil {
		return ErrConnectionClosed
	}
	var errs []error
	if l.tx != nil {
		if err := l.tx.Rollback(); err != nil {
			errs = append(errs, fmt.Errorf("failed to rollback transaction: %w", err))
		}
		l.tx, l.txStmt = nil, nil
	}
	if l.insert != nil {
		if err := l.insert.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close statement: %w", err))
		}
		l.insert = nil
	}
	if err := l.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close database: %w", err))
	}
	l.db = nil
	return errors.Join(errs...)
}
