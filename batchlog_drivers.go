package batchlog

// Store drivers are compiled in by build tag. crawshaw.io/sqlite and
// github.com/mattn/go-sqlite3 both link their own copy of the SQLite C library
// and cannot share a binary: the default build carries zombiezen and crawshaw,
// -tags sqlite3 replaces crawshaw with mattn/go-sqlite3.

import (
	"errors"
	"sort"

	"github.com/caasmo/batchlog/db"
	"github.com/caasmo/batchlog/db/zombiezen"
)

// ErrUnknownDriver is returned by New for a driver that is not compiled in.
var ErrUnknownDriver = errors.New("batchlog: unknown driver")

type openFunc func(path string) (db.DbLog, error)

var drivers = map[string]openFunc{
	db.DriverZombiezen: openZombiezen,
}

// AvailableDrivers returns the names of the drivers in this build.
func AvailableDrivers() []string {
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func openZombiezen(path string) (db.DbLog, error) {
	l, err := zombiezen.NewLog(path)
	if err != nil {
		return nil, err
	}
	return l, nil
}
