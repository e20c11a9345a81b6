package store

import "fmt"

// migrations is the ordered, append-only list of schema steps. The
// file's user_version pragma records how many have been applied, so an
// older file opened by a newer build is upgraded in place. Never edit or
// reorder released entries.
var migrations = []string{
	`CREATE TABLE items (
		id INTEGER PRIMARY KEY,
		type TEXT NOT NULL,
		x REAL NOT NULL DEFAULT 0,
		y REAL NOT NULL DEFAULT 0,
		z REAL NOT NULL DEFAULT 0,
		scale REAL NOT NULL DEFAULT 1,
		rotation REAL NOT NULL DEFAULT 0,
		flip INTEGER NOT NULL DEFAULT 1,
		data TEXT
	);
	CREATE TABLE sqlar (
		item_id INTEGER NOT NULL REFERENCES items (id) ON DELETE CASCADE,
		name TEXT PRIMARY KEY,
		mode INT,
		mtime INT,
		sz INT,
		data BLOB
	);
	CREATE INDEX sqlar_item_id ON sqlar (item_id);`,
}

func (s *Store) migrate() error {
	var version int64
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return &FileError{Path: s.path, Reason: "read format version", Err: err}
	}
	for i := int(version); i < len(migrations); i++ {
		tx, err := s.db.Begin()
		if err != nil {
			return &FileError{Path: s.path, Reason: "begin migration", Err: err}
		}
		if _, err := tx.Exec(migrations[i]); err != nil {
			tx.Rollback()
			return &FileError{Path: s.path, Reason: fmt.Sprintf("apply migration %d", i+1), Err: err}
		}
		if err := tx.Commit(); err != nil {
			return &FileError{Path: s.path, Reason: fmt.Sprintf("commit migration %d", i+1), Err: err}
		}
		// user_version cannot be parameterized and is not transactional
		if _, err := s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", i+1)); err != nil {
			return &FileError{Path: s.path, Reason: "record format version", Err: err}
		}
		s.log.Debug().Int("version", i+1).Msg("schema migrated")
	}
	return nil
}
