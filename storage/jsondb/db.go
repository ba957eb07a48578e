package jsondb

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
)

// DB manages the flat-file data directory: one users.json holding the
// username→account mapping and one <username>.json per user. The process is
// assumed to be the only writer; a process-local lock guards the files.
type DB struct {
	dir string
	mu  sync.RWMutex
}

func Open(conf *core.Config) (*DB, error) {
	if err := os.MkdirAll(conf.DataDir, 0o755); err != nil {
		return nil, errors.Wrapf(core.ErrStorageUnavailable, "creating data dir: %v", err)
	}
	return &DB{dir: conf.DataDir}, nil
}

func (db *DB) path(name string) string {
	return filepath.Join(db.dir, name)
}

// readFile decodes the JSON file at path into v. A missing file is not an
// error: ok is false and v is left untouched. An unreadable or malformed file
// is core.ErrStorageUnavailable; it is never silently discarded.
func (db *DB) readFile(path string, v interface{}) (ok bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrapf(core.ErrStorageUnavailable, "reading %s: %v", filepath.Base(path), err)
	}
	if err = json.Unmarshal(data, v); err != nil {
		return false, errors.Wrapf(core.ErrStorageUnavailable, "malformed data in %s: %v", filepath.Base(path), err)
	}
	return true, nil
}

// writeFile fully rewrites the JSON file at path; there are no partial updates.
func (db *DB) writeFile(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding "+filepath.Base(path))
	}
	if err = os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(core.ErrStorageUnavailable, "writing %s: %v", filepath.Base(path), err)
	}
	return nil
}
