package db

import "path/filepath"

// LogFileName is the name of the store file created inside the log directory.
const LogFileName = "log.sqlite"

// LogTable is the append-only table rows are written to.
const LogTable = "log"

// InsertLogQuery is the statement every driver caches and executes per row.
const InsertLogQuery = "INSERT INTO log (type, message) VALUES (?, ?);"

// Supported driver names.
const (
	DriverZombiezen = "zombiezen"
	DriverCrawshaw  = "crawshaw"
	DriverSqlite3   = "sqlite3"
)

// Drivers lists every supported driver name.
var Drivers = []string{DriverZombiezen, DriverCrawshaw, DriverSqlite3}

// LogPath returns the path of the store file inside dir.
func LogPath(dir string) string {
	return filepath.Join(dir, LogFileName)
}

// IsDriver reports whether name is a supported driver.
func IsDriver(name string) bool {
	for _, d := range Drivers {
		if d == name {
			return true
		}
	}
	return false
}
