package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/google/uuid"
)

// schemaVersion is the catalog layout this build reads. Open refuses other
// versions; migrations belong to the library layer, not the search engine.
const schemaVersion = 1

// ErrCatalogExists is returned by Init when the target file already exists.
var ErrCatalogExists = errors.New("catalog already exists")

var createStatements = []string{
	`CREATE TABLE meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
	`CREATE TABLE tags (
		id          INTEGER PRIMARY KEY,
		name        TEXT NOT NULL,
		shorthand   TEXT NOT NULL DEFAULT '',
		color       TEXT NOT NULL DEFAULT '',
		is_category INTEGER NOT NULL DEFAULT 0,
		is_hidden   INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE tag_aliases (
		tag_id INTEGER NOT NULL,
		alias  TEXT NOT NULL,
		PRIMARY KEY (tag_id, alias)
	)`,
	`CREATE TABLE tag_parents (
		tag_id       INTEGER NOT NULL,
		parent_id    INTEGER NOT NULL,
		disambiguate INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (tag_id, parent_id)
	)`,
	`CREATE TABLE entries (
		id            INTEGER PRIMARY KEY,
		path          TEXT NOT NULL,
		suffix        TEXT NOT NULL DEFAULT '',
		date_added    INTEGER NOT NULL DEFAULT 0,
		date_created  INTEGER NOT NULL DEFAULT 0,
		date_modified INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE entry_tags (
		entry_id INTEGER NOT NULL,
		tag_id   INTEGER NOT NULL,
		PRIMARY KEY (entry_id, tag_id)
	)`,
	`CREATE TABLE entry_fields (
		entry_id INTEGER NOT NULL,
		field    TEXT NOT NULL,
		value    TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (entry_id, field)
	)`,
	`CREATE INDEX idx_entry_tags_tag ON entry_tags (tag_id)`,
}

// Init creates an empty catalog at path with the current schema and a fresh
// library identity. It refuses to overwrite an existing file.
func Init(ctx context.Context, path string) (uuid.UUID, error) {
	if ctx == nil {
		return uuid.Nil, errors.New("init: context is nil")
	}

	if path == "" {
		return uuid.Nil, errors.New("init: path is empty")
	}

	if _, err := os.Stat(path); err == nil {
		return uuid.Nil, fmt.Errorf("init: %w: %s", ErrCatalogExists, path)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return uuid.Nil, fmt.Errorf("init: open sqlite: %w", err)
	}

	defer func() { _ = db.Close() }()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("init: begin txn: %w", err)
	}

	for _, stmt := range createStatements {
		if _, execErr := tx.ExecContext(ctx, stmt); execErr != nil {
			_ = tx.Rollback()

			return uuid.Nil, fmt.Errorf("init: create schema: %w", execErr)
		}
	}

	libraryID := uuid.New()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO meta (key, value) VALUES ('schema_version', ?), ('library_id', ?)",
		strconv.Itoa(schemaVersion), libraryID.String(),
	)
	if err != nil {
		_ = tx.Rollback()

		return uuid.Nil, fmt.Errorf("init: write meta: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return uuid.Nil, fmt.Errorf("init: commit: %w", err)
	}

	return libraryID, nil
}
