// Package scenedb stores scene snapshots in SQLite and serves them back as a
// scene.Source.
package scenedb

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite"

	"github.com/aidanlsb/sceneql/internal/scene"
)

var (
	// ErrNotImported indicates the database holds no scene yet.
	ErrNotImported = errors.New("no scene imported into database")
	// ErrLocked indicates another process is importing into the database.
	ErrLocked = errors.New("database is locked for import")
)

// CurrentDBVersion is the current database schema version.
const CurrentDBVersion = 1

// DB is a SQLite-backed scene store.
type DB struct {
	db   *sql.DB
	path string
}

// Open opens or creates the database at path.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	d := &DB{db: db, path: path}
	if err := d.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

// OpenInMemory opens an in-memory database (for testing).
func OpenInMemory() (*DB, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, err
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	d := &DB{db: db}
	if err := d.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Path returns the database file path, or "" for an in-memory database.
func (d *DB) Path() string { return d.path }

func (d *DB) initialize() error {
	schema := `
		PRAGMA journal_mode = WAL;
		PRAGMA synchronous = NORMAL;
		PRAGMA temp_store = MEMORY;

		CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS nodes (
			id TEXT PRIMARY KEY,
			seq INTEGER NOT NULL,
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			parent TEXT,
			is_shape INTEGER NOT NULL DEFAULT 0,
			is_default INTEGER NOT NULL DEFAULT 0,
			is_referenced INTEGER NOT NULL DEFAULT 0
		);

		-- Inherited type chain, most generic first
		CREATE TABLE IF NOT EXISTS node_types (
			node TEXT NOT NULL,
			seq INTEGER NOT NULL,
			type TEXT NOT NULL,
			PRIMARY KEY (node, seq)
		);

		-- Object set and display layer membership
		CREATE TABLE IF NOT EXISTS set_members (
			set_id TEXT NOT NULL,
			member TEXT NOT NULL,
			seq INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS connections (
			src TEXT NOT NULL,
			dst TEXT NOT NULL,
			seq INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS attributes (
			node TEXT NOT NULL,
			name TEXT NOT NULL,
			kind INTEGER NOT NULL,
			value TEXT,
			PRIMARY KEY (node, name)
		);

		CREATE INDEX IF NOT EXISTS idx_nodes_parent ON nodes(parent);
		CREATE INDEX IF NOT EXISTS idx_nodes_type ON nodes(type);
		CREATE INDEX IF NOT EXISTS idx_set_members_member ON set_members(member);
		CREATE INDEX IF NOT EXISTS idx_set_members_set ON set_members(set_id);
		CREATE INDEX IF NOT EXISTS idx_connections_src ON connections(src);
		CREATE INDEX IF NOT EXISTS idx_connections_dst ON connections(dst);
	`
	if _, err := d.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize database schema: %w", err)
	}
	_, err := d.db.Exec(`INSERT OR REPLACE INTO meta (key, value) VALUES ('version', ?)`,
		strconv.Itoa(CurrentDBVersion))
	if err != nil {
		return fmt.Errorf("failed to set database version: %w", err)
	}
	return nil
}

// Import replaces the database content with g in a single transaction. File
// databases are locked for the duration so concurrent imports fail fast with
// ErrLocked.
func (d *DB) Import(g *scene.Graph) error {
	if d.path != "" {
		lock, err := acquireImportLock(d.path + ".lock")
		if err != nil {
			return err
		}
		defer lock.Release()
	}

	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"nodes", "node_types", "set_members", "connections", "attributes"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for seq, spec := range g.Nodes() {
		if err := importNode(tx, g, seq, spec); err != nil {
			return fmt.Errorf("import %s: %w", spec.ID, err)
		}
	}

	_, err = tx.Exec(`INSERT OR REPLACE INTO meta (key, value) VALUES ('imported_at', ?)`,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return err
	}
	return tx.Commit()
}

func importNode(tx *sql.Tx, g *scene.Graph, seq int, spec scene.NodeSpec) error {
	var parent sql.NullString
	p, ok, err := g.Parent(spec.ID)
	if err != nil {
		return err
	}
	if ok {
		parent = sql.NullString{String: string(p), Valid: true}
	}

	_, err = tx.Exec(`INSERT INTO nodes (id, seq, name, type, parent, is_shape, is_default, is_referenced)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		string(spec.ID), seq, spec.ID.ShortName(), spec.Type, parent,
		boolInt(spec.Shape), boolInt(spec.Default), boolInt(spec.Referenced))
	if err != nil {
		return err
	}

	types, err := g.InheritedTypes(spec.ID)
	if err != nil {
		return err
	}
	for i, t := range types {
		if _, err := tx.Exec(`INSERT INTO node_types (node, seq, type) VALUES (?, ?, ?)`, string(spec.ID), i, t); err != nil {
			return err
		}
	}
	for i, m := range spec.Members {
		if _, err := tx.Exec(`INSERT INTO set_members (set_id, member, seq) VALUES (?, ?, ?)`, string(spec.ID), string(m), i); err != nil {
			return err
		}
	}
	for i, in := range spec.Inputs {
		if _, err := tx.Exec(`INSERT INTO connections (src, dst, seq) VALUES (?, ?, ?)`, string(in), string(spec.ID), i); err != nil {
			return err
		}
	}
	for name, v := range spec.Attrs {
		var value sql.NullString
		switch v.Kind() {
		case scene.KindBool, scene.KindText:
			value = sql.NullString{String: v.String(), Valid: true}
		}
		if _, err := tx.Exec(`INSERT INTO attributes (node, name, kind, value) VALUES (?, ?, ?, ?)`,
			string(spec.ID), name, int(v.Kind()), value); err != nil {
			return err
		}
	}
	return nil
}

// Stats contains database statistics.
type Stats struct {
	Nodes       int    `json:"nodes"`
	Memberships int    `json:"memberships"`
	Connections int    `json:"connections"`
	Attributes  int    `json:"attributes"`
	ImportedAt  string `json:"imported_at,omitempty"`
}

// Stats returns statistics about the stored scene.
func (d *DB) Stats() (*Stats, error) {
	var stats Stats
	counts := []struct {
		table string
		dst   *int
	}{
		{"nodes", &stats.Nodes},
		{"set_members", &stats.Memberships},
		{"connections", &stats.Connections},
		{"attributes", &stats.Attributes},
	}
	for _, c := range counts {
		if err := d.db.QueryRow("SELECT COUNT(*) FROM " + c.table).Scan(c.dst); err != nil {
			return nil, err
		}
	}
	at, err := d.meta("imported_at")
	if err != nil {
		return nil, err
	}
	stats.ImportedAt = at
	return &stats, nil
}

func (d *DB) meta(key string) (string, error) {
	var value string
	err := d.db.QueryRow(`SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
