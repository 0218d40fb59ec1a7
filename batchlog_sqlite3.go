//go:build sqlite3

package batchlog

import (
	"github.com/caasmo/batchlog/db"
	"github.com/caasmo/batchlog/db/sqlite3"
)

func init() {
	drivers[db.DriverSqlite3] = openSqlite3
}

func openSqlite3(path string) (db.DbLog, error) {
	l, err := sqlite3.NewLog(path)
	if err != nil {
		return nil, err
	}
	return l, nil
}
