package store

import (
	"path/filepath"

	"github.com/nvandessel/episim/internal/pathutil"
)

// DatabaseFile is the SQLite file name inside the episim home directory.
const DatabaseFile = "networks.db"

// DefaultPath returns the default network database path,
// <episim home>/networks.db.
func DefaultPath() (string, error) {
	dir, err := pathutil.HomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DatabaseFile), nil
}
