package migrations

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/golang-migrate/migrate/v4/database"
)

// DefaultTable is the table that records the applied schema version.
const DefaultTable = "schema_migrations"

// ErrNilConfig is returned by WithInstance when config is nil.
var ErrNilConfig = errors.New("no config")

// Config configures the Driver.
type Config struct {
	Table string
}

// Driver is a golang-migrate database.Driver for connections opened through
// ncruces/go-sqlite3. The upstream sqlite3 driver registers mattn/go-sqlite3
// under the same driver name, so it cannot be linked next to ncruces.
type Driver struct {
	db     *sql.DB
	locked atomic.Bool
	table  string
}

// WithInstance wraps an open connection and makes sure the version table exists.
func WithInstance(db *sql.DB, config *Config) (database.Driver, error) {
	if config == nil {
		return nil, ErrNilConfig
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}

	d := &Driver{db: db, table: config.Table}
	if d.table == "" {
		d.table = DefaultTable
	}

	query := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %[1]s (version uint64, dirty bool);
	CREATE UNIQUE INDEX IF NOT EXISTS %[1]s_version ON %[1]s (version);
	`, d.table)
	if _, err := db.Exec(query); err != nil {
		return nil, err
	}
	return d, nil
}

// Open is unsupported; connections come from WithInstance.
func (d *Driver) Open(string) (database.Driver, error) {
	return nil, errors.New("open not supported, use WithInstance")
}

// Close is a no-op. The connection belongs to the document store.
func (d *Driver) Close() error {
	return nil
}

func (d *Driver) Lock() error {
	if !d.locked.CompareAndSwap(false, true) {
		return database.ErrLocked
	}
	return nil
}

func (d *Driver) Unlock() error {
	if !d.locked.CompareAndSwap(true, false) {
		return database.ErrNotLocked
	}
	return nil
}

// Run executes one migration file inside a transaction.
func (d *Driver) Run(migration io.Reader) error {
	body, err := io.ReadAll(migration)
	if err != nil {
		return err
	}
	return d.inTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(string(body)); err != nil {
			return &database.Error{OrigErr: err, Query: body}
		}
		return nil
	})
}

func (d *Driver) SetVersion(version int, dirty bool) error {
	return d.inTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM " + d.table); err != nil {
			return &database.Error{OrigErr: err, Err: "clear version"}
		}
		// A dirty nil version is kept so a failed first down migration stays visible.
		if version >= 0 || (version == database.NilVersion && dirty) {
			query := "INSERT INTO " + d.table + " (version, dirty) VALUES (?, ?)"
			if _, err := tx.Exec(query, version, dirty); err != nil {
				return &database.Error{OrigErr: err, Query: []byte(query)}
			}
		}
		return nil
	})
}

func (d *Driver) Version() (int, bool, error) {
	var (
		version int
		dirty   bool
	)
	err := d.db.QueryRow("SELECT version, dirty FROM " + d.table + " LIMIT 1").Scan(&version, &dirty)
	if errors.Is(err, sql.ErrNoRows) {
		return database.NilVersion, false, nil
	}
	if err != nil {
		return 0, false, &database.Error{OrigErr: err, Err: "read version"}
	}
	return version, dirty, nil
}

// Drop removes every table, the version table included.
func (d *Driver) Drop() error {
	rows, err := d.db.Query(`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`)
	if err != nil {
		return &database.Error{OrigErr: err, Err: "list tables"}
	}
	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			_ = rows.Close()
			return err
		}
		tables = append(tables, name)
	}
	if err := errors.Join(rows.Err(), rows.Close()); err != nil {
		return err
	}

	for _, name := range tables {
		if _, err := d.db.Exec("DROP TABLE IF EXISTS " + name); err != nil {
			return &database.Error{OrigErr: err, Err: "drop " + name}
		}
	}
	return nil
}

func (d *Driver) inTx(fn func(tx *sql.Tx) error) error {
	tx, err := d.db.Begin()
	if err != nil {
		return &database.Error{OrigErr: err, Err: "transaction start failed"}
	}
	if err := fn(tx); err != nil {
		return errors.Join(err, tx.Rollback())
	}
	if err := tx.Commit(); err != nil {
		return &database.Error{OrigErr: err, Err: "transaction commit failed"}
	}
	return nil
}

var _ database.Driver = (*Driver)(nil)
