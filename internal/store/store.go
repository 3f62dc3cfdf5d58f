// Package store provides the key-value persistence used for chat history and
// settings. Keys are arbitrary strings; values are opaque bytes.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SQLiteFileName is the database created when the sqlite backend is given a
// directory.
const SQLiteFileName = "kv.db"

// Store is an asynchronous-style key-value store keyed by string.
type Store interface {
	// Get returns the value and true when the key exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	// Backend is one of "file", "sqlite" or "memory".
	Backend string
	// Path is a directory for "file" and a database file for "sqlite". An
	// existing directory given to "sqlite" holds SQLiteFileName.
	Path string
	// StrictPerms restricts file backend permissions to 0700/0600.
	StrictPerms bool
}

// Open returns the backend named by opts.Backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case "", "file":
		if strings.TrimSpace(opts.Path) == "" {
			return nil, fmt.Errorf("store: file backend needs a path")
		}
		return &FileStore{Dir: opts.Path, StrictPerms: opts.StrictPerms}, nil
	case "sqlite":
		return OpenSQLite(ctx, sqlitePath(opts.Path))
	case "memory":
		return NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("store: unknown backend %q", opts.Backend)
}

func sqlitePath(path string) string {
	if fi, err := os.Stat(path); err == nil && fi.IsDir() {
		return filepath.Join(path, SQLiteFileName)
	}
	return path
}
