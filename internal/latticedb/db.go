// Package latticedb persists lattice builders in SQLite: lattice
// metadata, element definitions and the ordered element sequence with
// resolved positions.
package latticedb

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite handle used by the lattice store.
type DB struct {
	*sql.DB
	path string
}

// NewDB opens (or creates) the lattice database at path and brings
// the schema up to date. Use ":memory:" for an in-process database.
func NewDB(path string) (*DB, error) {
	sqldb, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open lattice db: %w", err)
	}

	if _, err := sqldb.Exec("PRAGMA foreign_keys = ON"); err != nil {
		sqldb.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	db := &DB{DB: sqldb, path: path}
	if err := db.MigrateUp(); err != nil {
		sqldb.Close()
		return nil, err
	}
	return db, nil
}

// Path returns the database file path.
func (db *DB) Path() string { return db.path }
