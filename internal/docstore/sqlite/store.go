// Package sqlite implements docstore.Store on a single SQLite database file,
// using the CGO-free ncruces/go-sqlite3 driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/chazuruo/flowdeck/internal/docstore"
	"github.com/chazuruo/flowdeck/internal/docstore/sqlite/migrations"
	fderrors "github.com/chazuruo/flowdeck/internal/errors"
	"github.com/chazuruo/flowdeck/internal/log"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Store keeps documents in the documents table, keyed by path.
type Store struct {
	conn *sql.DB
	path string
	now  func() time.Time
}

// Open opens (or creates) the database at path, configures it and applies
// pending migrations.
func Open(path string) (*Store, error) {
	log.Debug(log.CatStore, "opening database", "path", path)

	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection serializes writers and keeps :memory: databases shared.
	conn.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			log.ErrorErr(log.CatStore, "failed to configure database", err, "pragma", pragma)
			return nil, fmt.Errorf("failed to configure database: %w", err)
		}
	}

	if err := migrations.Up(conn); err != nil {
		_ = conn.Close()
		log.ErrorErr(log.CatStore, "failed to run migrations", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info(log.CatStore, "database ready", "path", path)
	return &Store{conn: conn, path: path, now: time.Now}, nil
}

// Path returns the database location.
func (s *Store) Path() string {
	return s.path
}

// Close releases the connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// List returns the documents whose path lives under prefix.
func (s *Store) List(ctx context.Context, prefix string, opts docstore.ListOptions) ([]docstore.Entry, error) {
	prefix, err := docstore.CleanPrefix(prefix)
	if err != nil {
		return nil, err
	}

	pattern := "%"
	if prefix != "" {
		pattern = escapeLike(prefix) + "/%"
	}
	rows, err := s.conn.QueryContext(ctx,
		`SELECT path, size, modified_at FROM documents WHERE path LIKE ? ESCAPE '\' ORDER BY path`, pattern)
	if err != nil {
		return nil, storeErr(ctx, "list", prefix, err)
	}
	defer func() { _ = rows.Close() }()

	var entries []docstore.Entry
	for rows.Next() {
		var (
			key      string
			size     int64
			modified int64
		)
		if err := rows.Scan(&key, &size, &modified); err != nil {
			return nil, storeErr(ctx, "list", prefix, err)
		}
		rel, ok := docstore.RelativePath(prefix, key, opts.Recursive)
		if !ok {
			continue
		}
		e := docstore.Entry{Path: rel}
		if opts.WithMetadata {
			e.Size = size
			e.Modified = time.Unix(0, modified)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(ctx, "list", prefix, err)
	}
	return entries, nil
}

// Read returns the content stored at path.
func (s *Store) Read(ctx context.Context, path string) ([]byte, error) {
	key, err := docstore.CleanKey("read", path)
	if err != nil {
		return nil, err
	}

	var content []byte
	err = s.conn.QueryRowContext(ctx, `SELECT content FROM documents WHERE path = ?`, key).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fderrors.NotFound("read", key)
	}
	if err != nil {
		return nil, storeErr(ctx, "read", key, err)
	}
	if content == nil {
		content = []byte{}
	}
	return content, nil
}

// Write inserts or, with opts.Overwrite, replaces the document at path.
func (s *Store) Write(ctx context.Context, path string, content []byte, opts docstore.WriteOptions) error {
	key, err := docstore.CleanKey("write", path)
	if err != nil {
		return err
	}
	if content == nil {
		content = []byte{}
	}

	return s.inTx(ctx, "write", key, func(tx *sql.Tx) error {
		exists, err := exists(ctx, tx, key)
		if err != nil {
			return err
		}
		if exists && !opts.Overwrite {
			return fderrors.Conflict("write", key)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO documents (path, content, size, modified_at) VALUES (?, ?, ?, ?)
			ON CONFLICT(path) DO UPDATE SET
				content = excluded.content,
				size = excluded.size,
				modified_at = excluded.modified_at`,
			key, content, len(content), s.now().UnixNano())
		return err
	})
}

// Move re-keys a document, replacing the target when opts.Overwrite is set.
func (s *Store) Move(ctx context.Context, oldPath, newPath string, opts docstore.WriteOptions) error {
	from, err := docstore.CleanKey("move", oldPath)
	if err != nil {
		return err
	}
	to, err := docstore.CleanKey("move", newPath)
	if err != nil {
		return err
	}

	return s.inTx(ctx, "move", from, func(tx *sql.Tx) error {
		found, err := exists(ctx, tx, from)
		if err != nil {
			return err
		}
		if !found {
			return fderrors.NotFound("move", from)
		}
		if from == to {
			return nil
		}

		taken, err := exists(ctx, tx, to)
		if err != nil {
			return err
		}
		if taken {
			if !opts.Overwrite {
				return fderrors.Conflict("move", to)
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE path = ?`, to); err != nil {
				return err
			}
		}

		_, err = tx.ExecContext(ctx, `UPDATE documents SET path = ?, modified_at = ? WHERE path = ?`,
			to, s.now().UnixNano(), from)
		return err
	})
}

// Delete removes the document at path.
func (s *Store) Delete(ctx context.Context, path string) error {
	key, err := docstore.CleanKey("delete", path)
	if err != nil {
		return err
	}

	res, err := s.conn.ExecContext(ctx, `DELETE FROM documents WHERE path = ?`, key)
	if err != nil {
		return storeErr(ctx, "delete", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr(ctx, "delete", key, err)
	}
	if n == 0 {
		return fderrors.NotFound("delete", key)
	}
	return nil
}

func (s *Store) inTx(ctx context.Context, op, key string, fn func(tx *sql.Tx) error) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return storeErr(ctx, op, key, err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		if _, ok := fderrors.AsStoreError(err); ok {
			return err
		}
		return storeErr(ctx, op, key, err)
	}
	if err := tx.Commit(); err != nil {
		return storeErr(ctx, op, key, err)
	}
	log.Debug(log.CatStore, "committed", "op", op, "path", key)
	return nil
}

func exists(ctx context.Context, tx *sql.Tx, key string) (bool, error) {
	var found bool
	err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM documents WHERE path = ?)`, key).Scan(&found)
	return found, err
}

// storeErr passes context cancellation through untouched and wraps anything
// else as a 500.
func storeErr(ctx context.Context, op, key string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fderrors.IOFailure(op, key, err)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

var _ docstore.Store = (*Store)(nil)
