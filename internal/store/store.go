// Package store reads a tagvault catalog (a SQLite file owned by the library
// layer) into immutable [catalog.Snapshot] values for the search engine.
//
// The store is strictly read-only: it opens the database in read-only mode
// and issues no writes beyond [Init], which bootstraps an empty catalog.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"

	"github.com/tagvault/tagvault/internal/catalog"
)

var (
	// ErrCatalogNotFound is returned when the catalog file does not exist.
	ErrCatalogNotFound = errors.New("catalog not found")

	// ErrSchemaVersion is returned when the catalog was written by an
	// incompatible schema version.
	ErrSchemaVersion = errors.New("unsupported catalog schema version")
)

const snapshotLockTimeout = 5 * time.Second

// Store is a read-only handle on one catalog file.
type Store struct {
	path      string
	db        *sql.DB
	log       zerolog.Logger
	libraryID uuid.UUID
}

// Open opens the catalog at path and validates its schema version and
// library identity.
func Open(ctx context.Context, path string, log zerolog.Logger) (*Store, error) {
	if ctx == nil {
		return nil, errors.New("open: context is nil")
	}

	if path == "" {
		return nil, errors.New("open: catalog path is empty")
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("open: %w: %s", ErrCatalogNotFound, path)
		}

		return nil, fmt.Errorf("open: stat catalog: %w", err)
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open: sqlite: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("open: ping sqlite: %w", err)
	}

	s := &Store{path: path, db: db, log: log}

	if err := s.readMeta(ctx); err != nil {
		_ = db.Close()

		return nil, err
	}

	return s, nil
}

func (s *Store) readMeta(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM meta")
	if err != nil {
		return fmt.Errorf("open: read meta: %w", err)
	}

	defer func() { _ = rows.Close() }()

	meta := make(map[string]string)

	for rows.Next() {
		var key, value string

		if scanErr := rows.Scan(&key, &value); scanErr != nil {
			return fmt.Errorf("open: scan meta: %w", scanErr)
		}

		meta[key] = value
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("open: meta rows: %w", err)
	}

	version, err := strconv.Atoi(meta["schema_version"])
	if err != nil || version != schemaVersion {
		return fmt.Errorf("open: %w: have %q, want %d", ErrSchemaVersion, meta["schema_version"], schemaVersion)
	}

	libraryID, err := uuid.Parse(meta["library_id"])
	if err != nil {
		s.log.Warn().Str("library_id", meta["library_id"]).Msg("store: catalog has invalid library id")
	} else {
		s.libraryID = libraryID
	}

	return nil
}

// LibraryID returns the catalog's identity, or uuid.Nil when the meta row
// was missing or damaged.
func (s *Store) LibraryID() uuid.UUID {
	return s.libraryID
}

// Path returns the catalog file path.
func (s *Store) Path() string {
	return s.path
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}

	err := s.db.Close()
	s.db = nil

	if err != nil {
		return fmt.Errorf("close: %w", err)
	}

	return nil
}

// Snapshot loads the whole catalog into an immutable snapshot for query
// evaluation. A shared lock on the catalog's lock file is held for the
// duration of the load so cooperating writers cannot replace the file
// mid-read; obtain a fresh snapshot after the library is mutated.
func (s *Store) Snapshot(ctx context.Context) (*catalog.Snapshot, error) {
	if ctx == nil {
		return nil, errors.New("snapshot: context is nil")
	}

	if s == nil || s.db == nil {
		return nil, errors.New("snapshot: store is not open")
	}

	lock, err := acquireShared(s.path+".lock", snapshotLockTimeout)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}

	defer func() { _ = lock.Close() }()

	tags, err := s.loadTags(ctx)
	if err != nil {
		return nil, err
	}

	edges, err := s.loadEdges(ctx)
	if err != nil {
		return nil, err
	}

	entries, err := s.loadEntries(ctx)
	if err != nil {
		return nil, err
	}

	return catalog.NewSnapshot(tags, edges, entries, s.log), nil
}

func (s *Store) loadTags(ctx context.Context) ([]catalog.Tag, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, shorthand, color, is_category, is_hidden FROM tags ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("snapshot: query tags: %w", err)
	}

	defer func() { _ = rows.Close() }()

	var tags []catalog.Tag

	index := make(map[catalog.TagID]int)

	for rows.Next() {
		var tag catalog.Tag

		scanErr := rows.Scan(&tag.ID, &tag.Name, &tag.Shorthand, &tag.Color, &tag.IsCategory, &tag.IsHidden)
		if scanErr != nil {
			return nil, fmt.Errorf("snapshot: scan tag: %w", scanErr)
		}

		index[tag.ID] = len(tags)
		tags = append(tags, tag)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("snapshot: tag rows: %w", err)
	}

	aliasRows, err := s.db.QueryContext(ctx,
		"SELECT tag_id, alias FROM tag_aliases ORDER BY tag_id, alias")
	if err != nil {
		return nil, fmt.Errorf("snapshot: query aliases: %w", err)
	}

	defer func() { _ = aliasRows.Close() }()

	for aliasRows.Next() {
		var (
			tagID catalog.TagID
			alias string
		)

		if scanErr := aliasRows.Scan(&tagID, &alias); scanErr != nil {
			return nil, fmt.Errorf("snapshot: scan alias: %w", scanErr)
		}

		idx, ok := index[tagID]
		if !ok {
			s.log.Warn().Int64("tag", int64(tagID)).Str("alias", alias).
				Msg("store: alias references missing tag, skipping")

			continue
		}

		tags[idx].Aliases = append(tags[idx].Aliases, alias)
	}

	if err := aliasRows.Err(); err != nil {
		return nil, fmt.Errorf("snapshot: alias rows: %w", err)
	}

	return tags, nil
}

func (s *Store) loadEdges(ctx context.Context) ([]catalog.TagEdge, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT tag_id, parent_id, disambiguate FROM tag_parents ORDER BY tag_id, parent_id")
	if err != nil {
		return nil, fmt.Errorf("snapshot: query edges: %w", err)
	}

	defer func() { _ = rows.Close() }()

	var edges []catalog.TagEdge

	for rows.Next() {
		var edge catalog.TagEdge

		scanErr := rows.Scan(&edge.ChildID, &edge.ParentID, &edge.Disambiguate)
		if scanErr != nil {
			return nil, fmt.Errorf("snapshot: scan edge: %w", scanErr)
		}

		edges = append(edges, edge)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("snapshot: edge rows: %w", err)
	}

	return edges, nil
}

func (s *Store) loadEntries(ctx context.Context) ([]catalog.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, path, suffix, date_added, date_created, date_modified FROM entries ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("snapshot: query entries: %w", err)
	}

	defer func() { _ = rows.Close() }()

	var entries []catalog.Entry

	index := make(map[catalog.EntryID]int)

	for rows.Next() {
		var (
			entry    catalog.Entry
			added    int64
			created  int64
			modified int64
		)

		scanErr := rows.Scan(&entry.ID, &entry.Path, &entry.Suffix, &added, &created, &modified)
		if scanErr != nil {
			return nil, fmt.Errorf("snapshot: scan entry: %w", scanErr)
		}

		// Paths are stored OS-agnostically; normalize any stray backslashes
		// from catalogs written on Windows.
		entry.Path = strings.ReplaceAll(entry.Path, `\`, "/")
		entry.Suffix = strings.ToLower(strings.TrimPrefix(entry.Suffix, "."))
		entry.DateAdded = time.Unix(added, 0).UTC()
		entry.DateCreated = time.Unix(created, 0).UTC()
		entry.DateModified = time.Unix(modified, 0).UTC()

		index[entry.ID] = len(entries)
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("snapshot: entry rows: %w", err)
	}

	if err := s.attachTags(ctx, entries, index); err != nil {
		return nil, err
	}

	if err := s.attachFields(ctx, entries, index); err != nil {
		return nil, err
	}

	return entries, nil
}

func (s *Store) attachTags(ctx context.Context, entries []catalog.Entry, index map[catalog.EntryID]int) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT entry_id, tag_id FROM entry_tags ORDER BY entry_id, tag_id")
	if err != nil {
		return fmt.Errorf("snapshot: query entry tags: %w", err)
	}

	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			entryID catalog.EntryID
			tagID   catalog.TagID
		)

		if scanErr := rows.Scan(&entryID, &tagID); scanErr != nil {
			return fmt.Errorf("snapshot: scan entry tag: %w", scanErr)
		}

		idx, ok := index[entryID]
		if !ok {
			s.log.Warn().Int64("entry", int64(entryID)).Int64("tag", int64(tagID)).
				Msg("store: entry tag references missing entry, skipping")

			continue
		}

		entries[idx].Tags = append(entries[idx].Tags, tagID)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("snapshot: entry tag rows: %w", err)
	}

	return nil
}

func (s *Store) attachFields(ctx context.Context, entries []catalog.Entry, index map[catalog.EntryID]int) error {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT entry_id FROM entry_fields")
	if err != nil {
		return fmt.Errorf("snapshot: query entry fields: %w", err)
	}

	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var entryID catalog.EntryID

		if scanErr := rows.Scan(&entryID); scanErr != nil {
			return fmt.Errorf("snapshot: scan entry field: %w", scanErr)
		}

		if idx, ok := index[entryID]; ok {
			entries[idx].HasFields = true
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("snapshot: entry field rows: %w", err)
	}

	return nil
}
