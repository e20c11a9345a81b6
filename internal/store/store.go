// Package store persists boards as single-file SQLite databases. A board
// file holds one row per item plus an sqlar-style blob table carrying the
// original image bytes, which are immutable once written: saving an
// existing board only touches transform columns, inserts new items and
// deletes removed ones.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"refboard/internal/imageio"
	"refboard/internal/item"
)

// applicationID tags board files in the SQLite header ("RFBD").
const applicationID = 0x52464244

// blobMode is the stored sqlar file mode for image blobs.
const blobMode = 0o644

// FileError describes why a path could not be used as a board file.
type FileError struct {
	Path   string
	Reason string
	Err    error
}

func (e *FileError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}

func (e *FileError) Unwrap() error { return e.Err }

// Store is an open board file.
type Store struct {
	path string
	db   *sql.DB
	log  zerolog.Logger
}

func open(path string, log zerolog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?_foreign_keys=on")
	if err != nil {
		return nil, &FileError{Path: path, Reason: "open database", Err: err}
	}
	return &Store{path: path, db: db, log: log.With().Str("file", path).Logger()}, nil
}

// Open opens an existing board file for reading and writing. Missing,
// empty or foreign files yield a FileError.
func Open(path string, log zerolog.Logger) (*Store, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &FileError{Path: path, Reason: "no such board file", Err: err}
	}
	if info.Size() == 0 {
		return nil, &FileError{Path: path, Reason: "file is empty"}
	}

	s, err := open(path, log)
	if err != nil {
		return nil, err
	}
	if err := s.verify(); err != nil {
		s.Close()
		return nil, err
	}
	if err := s.migrate(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Create creates or overwrites a board file with an empty schema.
func Create(path string, log zerolog.Logger) (*Store, error) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, &FileError{Path: path, Reason: "replace file", Err: err}
	}
	s, err := open(path, log)
	if err != nil {
		return nil, err
	}
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA application_id = %d", applicationID)); err != nil {
		s.Close()
		return nil, &FileError{Path: path, Reason: "stamp application id", Err: err}
	}
	if err := s.migrate(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// Path returns the board file path.
func (s *Store) Path() string { return s.path }

func (s *Store) verify() error {
	var appID int64
	if err := s.db.QueryRow("PRAGMA application_id").Scan(&appID); err != nil {
		return &FileError{Path: s.path, Reason: "not an sqlite database", Err: err}
	}
	if appID != applicationID {
		return &FileError{Path: s.path, Reason: "not a board file"}
	}
	var version int64
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return &FileError{Path: s.path, Reason: "read format version", Err: err}
	}
	if version > int64(len(migrations)) {
		return &FileError{Path: s.path,
			Reason: fmt.Sprintf("format version %d is newer than supported %d", version, len(migrations))}
	}
	return nil
}

// Read loads all items in insertion order. Rows of unknown type and
// images whose blob fails to decode come back as error placeholder items
// so the rows survive the next save untouched.
func (s *Store) Read(dec *imageio.Decoder) ([]item.Item, error) {
	rows, err := s.db.Query(
		"SELECT id, type, x, y, z, scale, rotation, flip, COALESCE(data, '') FROM items ORDER BY id")
	if err != nil {
		return nil, &FileError{Path: s.path, Reason: "read items", Err: err}
	}
	defer rows.Close()

	var items []item.Item
	for rows.Next() {
		var rec item.Record
		var data string
		if err := rows.Scan(&rec.ID, &rec.Type, &rec.X, &rec.Y, &rec.Z,
			&rec.Scale, &rec.Rotation, &rec.Flip, &data); err != nil {
			return nil, &FileError{Path: s.path, Reason: "scan item row", Err: err}
		}
		if data != "" {
			rec.Data = json.RawMessage(data)
		}
		it, err := item.FromRecord(rec)
		if err != nil {
			return nil, &FileError{Path: s.path, Reason: "restore item", Err: err}
		}
		if img, ok := it.(*item.Image); ok {
			it = s.loadImage(img, rec, dec)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, &FileError{Path: s.path, Reason: "read items", Err: err}
	}
	s.log.Info().Int("items", len(items)).Msg("board loaded")
	return items, nil
}

// loadImage attaches the stored blob to a restored image item, degrading
// to an error placeholder when the blob is missing or undecodable.
func (s *Store) loadImage(img *item.Image, rec item.Record, dec *imageio.Decoder) item.Item {
	var data []byte
	err := s.db.QueryRow("SELECT data FROM sqlar WHERE item_id = ?", rec.ID).Scan(&data)
	if err != nil {
		s.log.Warn().Int64("id", rec.ID).Err(err).Msg("image blob missing")
		return item.NewErrorFromRecord(rec)
	}
	pixels, _, err := dec.Decode(data)
	if err != nil {
		s.log.Warn().Int64("id", rec.ID).Err(err).Msg("image blob undecodable")
		return item.NewErrorFromRecord(rec)
	}
	img.SetImageData(data, pixels, imageio.HasAlpha(pixels))
	return img
}

// Save writes the given items, diffing against the rows already present:
// known items get their transform columns updated, new items are
// inserted together with their blob, rows for items no longer on the
// board are deleted. The whole save is one transaction.
func (s *Store) Save(items []item.Item) error {
	tx, err := s.db.Begin()
	if err != nil {
		return &FileError{Path: s.path, Reason: "begin save", Err: err}
	}
	defer tx.Rollback()

	existing := map[int64]bool{}
	rows, err := tx.Query("SELECT id FROM items")
	if err != nil {
		return &FileError{Path: s.path, Reason: "list existing items", Err: err}
	}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return &FileError{Path: s.path, Reason: "list existing items", Err: err}
		}
		existing[id] = true
	}
	rows.Close()

	// save ids are only assigned once the transaction commits
	type assignment struct {
		it item.Item
		id int64
	}
	var assignments []assignment
	kept := map[int64]bool{}

	for _, it := range items {
		rec, err := it.ToRecord()
		if err != nil {
			return &FileError{Path: s.path, Reason: "serialize item", Err: err}
		}
		if rec.ID != 0 && existing[rec.ID] {
			if _, err := tx.Exec(
				`UPDATE items SET type=?, x=?, y=?, z=?, scale=?, rotation=?, flip=?, data=? WHERE id=?`,
				rec.Type, rec.X, rec.Y, rec.Z, rec.Scale, rec.Rotation, rec.Flip,
				dataValue(rec.Data), rec.ID); err != nil {
				return &FileError{Path: s.path, Reason: "update item", Err: err}
			}
			kept[rec.ID] = true
			continue
		}

		id, err := s.insertItem(tx, it, rec)
		if err != nil {
			return err
		}
		kept[id] = true
		assignments = append(assignments, assignment{it: it, id: id})
	}

	for id := range existing {
		if !kept[id] {
			if _, err := tx.Exec("DELETE FROM items WHERE id = ?", id); err != nil {
				return &FileError{Path: s.path, Reason: "delete removed item", Err: err}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return &FileError{Path: s.path, Reason: "commit save", Err: err}
	}
	for _, a := range assignments {
		a.it.SetSaveID(a.id)
	}
	s.log.Info().Int("items", len(items)).Int("new", len(assignments)).Msg("board saved")
	return nil
}

// insertItem writes a fresh row, preserving an existing save id when the
// item was loaded from another file, and stores the image blob alongside.
func (s *Store) insertItem(tx *sql.Tx, it item.Item, rec item.Record) (int64, error) {
	var (
		res sql.Result
		err error
	)
	if rec.ID != 0 {
		res, err = tx.Exec(
			`INSERT INTO items (id, type, x, y, z, scale, rotation, flip, data) VALUES (?,?,?,?,?,?,?,?,?)`,
			rec.ID, rec.Type, rec.X, rec.Y, rec.Z, rec.Scale, rec.Rotation, rec.Flip, dataValue(rec.Data))
	} else {
		res, err = tx.Exec(
			`INSERT INTO items (type, x, y, z, scale, rotation, flip, data) VALUES (?,?,?,?,?,?,?,?)`,
			rec.Type, rec.X, rec.Y, rec.Z, rec.Scale, rec.Rotation, rec.Flip, dataValue(rec.Data))
	}
	if err != nil {
		return 0, &FileError{Path: s.path, Reason: "insert item", Err: err}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, &FileError{Path: s.path, Reason: "insert item", Err: err}
	}
	if rec.ID != 0 {
		id = rec.ID
	}

	if img, ok := it.(*item.Image); ok {
		name := BlobName(id, img.Filename())
		if _, err := tx.Exec(
			`INSERT INTO sqlar (item_id, name, mode, mtime, sz, data) VALUES (?,?,?,?,?,?)`,
			id, name, blobMode, time.Now().Unix(), len(img.EncodedBytes()), img.EncodedBytes()); err != nil {
			return 0, &FileError{Path: s.path, Reason: "insert image blob", Err: err}
		}
	}
	return id, nil
}

// BlobName returns the archive name for an image blob: the zero-padded
// item id joined with the original file's base name.
func BlobName(id int64, filename string) string {
	base := filepath.Base(filename)
	if base == "." || base == "/" || base == "" {
		base = "image"
	}
	return fmt.Sprintf("%04d-%s", id, base)
}

func dataValue(data json.RawMessage) interface{} {
	if len(data) == 0 {
		return nil
	}
	return string(data)
}
