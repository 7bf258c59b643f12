// Package catalog holds the in-memory view of a tagvault library: tags, the
// parent-tag inheritance graph, entries, and the derived tag->entry index.
//
// A [Snapshot] is an immutable copy of the library taken at query start. The
// search engine only ever reads snapshots; all mutation belongs to the storage
// layer. Because snapshots never change, multiple queries may evaluate against
// the same snapshot concurrently.
package catalog

import (
	"sort"
	"time"

	"github.com/rs/zerolog"
)

// TagID identifies a tag. IDs are assigned by the storage layer.
type TagID int64

// EntryID identifies a catalog entry. IDs are assigned by the storage layer
// in insertion order, which is why entry-ID order doubles as the default sort.
type EntryID int64

// Tag is a named label that can be applied to entries.
//
// Names are not required to be unique. Shorthand is the preferred display
// form when space is limited. Aliases are alternative names that resolve to
// the tag during search.
type Tag struct {
	ID         TagID
	Name       string
	Shorthand  string
	Aliases    []string
	Color      string
	IsCategory bool
	IsHidden   bool
}

// TagEdge is a directed inheritance edge. ParentID points toward the more
// general tag: an entry tagged with ChildID implicitly matches searches for
// ParentID. A past storage bug stored the columns swapped, so loaders must
// validate direction against fixture data rather than trusting the schema.
type TagEdge struct {
	ChildID      TagID
	ParentID     TagID
	Disambiguate bool
}

// Entry is one file in the library.
type Entry struct {
	ID           EntryID
	Path         string // relative path, forward-slash separated
	Suffix       string // extension without the leading dot, lowercased
	DateAdded    time.Time
	DateCreated  time.Time
	DateModified time.Time
	Tags         []TagID
	HasFields    bool // true when any metadata field is set on the entry
}

// Snapshot is an immutable view of the library used for one or more query
// evaluations. Build it with [NewSnapshot]; do not mutate the inputs after.
type Snapshot struct {
	tags    map[TagID]Tag
	tagIDs  []TagID // sorted, for deterministic iteration
	parents map[TagID][]TagID
	entries map[EntryID]Entry
	order   []EntryID // entry IDs in insertion order
	byTag   map[TagID][]EntryID
}

// NewSnapshot builds a snapshot from the raw rows the storage layer read.
//
// Integrity problems in the inputs never fail the build: edges that reference
// a missing tag, self-edges, and entry tags pointing at deleted tags are
// skipped with a warning so a query against a damaged library still completes.
func NewSnapshot(tags []Tag, edges []TagEdge, entries []Entry, log zerolog.Logger) *Snapshot {
	snap := &Snapshot{
		tags:    make(map[TagID]Tag, len(tags)),
		parents: make(map[TagID][]TagID),
		entries: make(map[EntryID]Entry, len(entries)),
		byTag:   make(map[TagID][]EntryID),
	}

	for _, tag := range tags {
		snap.tags[tag.ID] = tag
		snap.tagIDs = append(snap.tagIDs, tag.ID)
	}

	sort.Slice(snap.tagIDs, func(i, j int) bool { return snap.tagIDs[i] < snap.tagIDs[j] })

	for _, edge := range edges {
		if edge.ChildID == edge.ParentID {
			log.Warn().
				Int64("tag", int64(edge.ChildID)).
				Msg("catalog: tag is its own parent, skipping edge")

			continue
		}

		if _, ok := snap.tags[edge.ChildID]; !ok {
			log.Warn().
				Int64("child", int64(edge.ChildID)).
				Int64("parent", int64(edge.ParentID)).
				Msg("catalog: edge child does not exist, skipping edge")

			continue
		}

		if _, ok := snap.tags[edge.ParentID]; !ok {
			log.Warn().
				Int64("child", int64(edge.ChildID)).
				Int64("parent", int64(edge.ParentID)).
				Msg("catalog: edge parent does not exist, skipping edge")

			continue
		}

		snap.parents[edge.ChildID] = append(snap.parents[edge.ChildID], edge.ParentID)
	}

	for _, entry := range entries {
		kept := entry
		kept.Tags = nil

		for _, tagID := range entry.Tags {
			if _, ok := snap.tags[tagID]; !ok {
				log.Warn().
					Int64("entry", int64(entry.ID)).
					Int64("tag", int64(tagID)).
					Msg("catalog: entry references missing tag, skipping tag")

				continue
			}

			kept.Tags = append(kept.Tags, tagID)
			snap.byTag[tagID] = append(snap.byTag[tagID], entry.ID)
		}

		snap.entries[entry.ID] = kept
		snap.order = append(snap.order, entry.ID)
	}

	sort.Slice(snap.order, func(i, j int) bool { return snap.order[i] < snap.order[j] })

	return snap
}

// Tag returns the tag with the given ID.
func (s *Snapshot) Tag(id TagID) (Tag, bool) {
	tag, ok := s.tags[id]

	return tag, ok
}

// TagIDs returns all tag IDs in ascending order. Callers must not modify the
// returned slice.
func (s *Snapshot) TagIDs() []TagID {
	return s.tagIDs
}

// Entry returns the entry with the given ID.
func (s *Snapshot) Entry(id EntryID) (Entry, bool) {
	entry, ok := s.entries[id]

	return entry, ok
}

// EntryIDs returns every entry ID in insertion order. This is the "universe"
// used to evaluate NOT. Callers must not modify the returned slice.
func (s *Snapshot) EntryIDs() []EntryID {
	return s.order
}

// EntriesWithTag returns the IDs of entries directly tagged with id. It does
// not expand inheritance; that is the engine's job. Callers must not modify
// the returned slice.
func (s *Snapshot) EntriesWithTag(id TagID) []EntryID {
	return s.byTag[id]
}

// Parents returns the direct parents of a tag. Callers must not modify the
// returned slice.
func (s *Snapshot) Parents(id TagID) []TagID {
	return s.parents[id]
}

// Len returns the number of entries in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.order)
}
