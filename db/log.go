package db

// Log is one persisted log row.
// Level is the slog.Level of the originating record, stored as its integer value.
type Log struct {
	Level   int64
	Message string
}

// DbLog defines the interface for database operations related to logs.
//
// A DbLog is driven by a single owner: it keeps one open transaction that rows
// are inserted into, and the owner decides when to commit and begin again.
// Implementations are not safe for concurrent use.
type DbLog interface {
	// ApplySchema executes a schema script. It must be called outside a transaction.
	ApplySchema(script string) error
	// Begin opens a new transaction.
	Begin() error
	// Insert writes one entry into the open transaction using a cached statement.
	Insert(entry Log) error
	// Commit commits the open transaction. It does not begin a new one.
	Commit() error
	// Rollback abandons the open transaction, if any.
	Rollback() error
	// Ping verifies the connection to the database is alive and the given table exists.
	Ping(tableName string) error
	// Close closes the underlying database connection.
	Close() error
}
