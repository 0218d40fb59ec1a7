//go:build !sqlite3

package batchlog

import (
	"github.com/caasmo/batchlog/db"
	"github.com/caasmo/batchlog/db/crawshaw"
)

func init() {
	drivers[db.DriverCrawshaw] = openCrawshaw
}

func openCrawshaw(path string) (db.DbLog, error) {
	l, err := crawshaw.NewLog(path)
	if err != nil {
		return nil, err
	}
	return l, nil
}
