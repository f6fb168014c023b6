// Package engine wraps the embedded SQLite runtime behind a small lifecycle
// API: create a fresh database, rehydrate one from a serialized image, and
// serialize a live handle back to a single byte buffer.
//
// Live databases are backed by files in a private scratch directory; the
// serialized form is the standard SQLite file image, produced with
// VACUUM INTO so it is always a consistent snapshot of the handle.
package engine

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Registers the sqlite driver
)

// sqliteMagic is the 16-byte header every SQLite database file starts with.
var sqliteMagic = []byte("SQLite format 3\x00")

// Engine manages the scratch area live databases run from. The zero value is
// not usable; create one with New.
type Engine struct {
	scratchDir string
	ready      bool
}

// New returns an engine that will keep live database files under dir. If dir
// is empty a temporary directory is created on first use.
func New(dir string) *Engine {
	return &Engine{scratchDir: dir}
}

// Initialize prepares the scratch area. It is idempotent; every entry point
// calls it, so callers normally never need to. A failure here wraps
// ErrEngineLoad and is fatal to everything built on the engine.
func (e *Engine) Initialize() error {
	if e.ready {
		return nil
	}

	if e.scratchDir == "" {
		dir, err := os.MkdirTemp("", "memodeck-engine-*")
		if err != nil {
			return fmt.Errorf("%w: create scratch dir: %v", ErrEngineLoad, err)
		}
		e.scratchDir = dir
	} else if err := os.MkdirAll(e.scratchDir, 0o755); err != nil {
		return fmt.Errorf("%w: create scratch dir %s: %v", ErrEngineLoad, e.scratchDir, err)
	}

	e.ready = true
	return nil
}

// Handle is one live in-process database.
type Handle struct {
	db   *sql.DB
	path string
}

// DB exposes the underlying connection for parameterized statements.
func (h *Handle) DB() *sql.DB {
	return h.db
}

// Close releases the handle and its backing scratch file. Any state not
// serialized first is gone.
func (h *Handle) Close() error {
	if h == nil || h.db == nil {
		return nil
	}
	err := h.db.Close()
	h.db = nil
	if rmErr := os.Remove(h.path); err == nil && rmErr != nil {
		err = rmErr
	}
	return err
}

// NewDatabase creates a fresh, empty database handle.
func (e *Engine) NewDatabase(ctx context.Context) (*Handle, error) {
	if err := e.Initialize(); err != nil {
		return nil, err
	}
	return e.open(ctx, filepath.Join(e.scratchDir, "db-"+uuid.NewString()+".sqlite"))
}

// OpenDatabase rehydrates a handle from a serialized database image.
// Invalid bytes fail with ErrCorruptDatabase.
func (e *Engine) OpenDatabase(ctx context.Context, data []byte) (*Handle, error) {
	if err := e.Initialize(); err != nil {
		return nil, err
	}

	if len(data) < len(sqliteMagic) || !bytes.HasPrefix(data, sqliteMagic) {
		return nil, fmt.Errorf("%w: bad header", ErrCorruptDatabase)
	}

	path := filepath.Join(e.scratchDir, "db-"+uuid.NewString()+".sqlite")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to stage database image: %w", err)
	}

	h, err := e.open(ctx, path)
	if err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("%w: %v", ErrCorruptDatabase, err)
	}

	// A valid header can still hide a truncated or mangled image; a probe
	// against sqlite_master forces the pager to actually read it.
	var n int
	if err := h.db.QueryRowContext(ctx, `SELECT count(*) FROM sqlite_master`).Scan(&n); err != nil {
		_ = h.Close()
		return nil, fmt.Errorf("%w: %v", ErrCorruptDatabase, err)
	}

	return h, nil
}

// Serialize returns the full byte image of the handle's current state.
func (e *Engine) Serialize(ctx context.Context, h *Handle) ([]byte, error) {
	if err := e.Initialize(); err != nil {
		return nil, err
	}

	// VACUUM INTO refuses to overwrite, so the snapshot target must be fresh.
	snapPath := filepath.Join(e.scratchDir, "snap-"+uuid.NewString()+".sqlite")
	defer os.Remove(snapPath)

	if _, err := h.db.ExecContext(ctx, `VACUUM INTO ?`, snapPath); err != nil {
		return nil, fmt.Errorf("failed to snapshot database: %w", err)
	}

	data, err := os.ReadFile(snapPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read database snapshot: %w", err)
	}
	return data, nil
}

func (e *Engine) open(ctx context.Context, path string) (*Handle, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection keeps every statement on the same foreign_keys-enabled
	// session and lets VACUUM run without a competing reader.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &Handle{db: db, path: path}, nil
}
