package catalog_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/tagvault/tagvault/internal/catalog"
)

// Contract: snapshots expose entries in ascending ID order regardless of the
// order the storage layer produced them in.
func Test_Snapshot_Orders_Entries_By_ID(t *testing.T) {
	t.Parallel()

	entries := []catalog.Entry{
		{ID: 30, Path: "c.txt"},
		{ID: 10, Path: "a.jpg"},
		{ID: 20, Path: "b.png"},
	}

	snap := catalog.NewSnapshot(nil, nil, entries, zerolog.Nop())

	want := []catalog.EntryID{10, 20, 30}
	if diff := cmp.Diff(want, snap.EntryIDs()); diff != "" {
		t.Fatalf("entry order mismatch (-want +got):\n%s", diff)
	}
}

// Contract: entry tags pointing at deleted tags are dropped at build time and
// never appear in the reverse index.
func Test_Snapshot_Drops_Entry_Tags_For_Missing_Tags(t *testing.T) {
	t.Parallel()

	tags := []catalog.Tag{{ID: 1, Name: "Kept"}}
	entries := []catalog.Entry{
		{ID: 5, Path: "a.jpg", Tags: []catalog.TagID{1, 99}},
	}

	snap := catalog.NewSnapshot(tags, nil, entries, zerolog.Nop())

	entry, ok := snap.Entry(5)
	if !ok {
		t.Fatal("entry 5 missing from snapshot")
	}

	if diff := cmp.Diff([]catalog.TagID{1}, entry.Tags); diff != "" {
		t.Fatalf("entry tags mismatch (-want +got):\n%s", diff)
	}

	if got := snap.EntriesWithTag(99); len(got) != 0 {
		t.Fatalf("EntriesWithTag(99) = %v, want empty", got)
	}

	if diff := cmp.Diff([]catalog.EntryID{5}, snap.EntriesWithTag(1)); diff != "" {
		t.Fatalf("reverse index mismatch (-want +got):\n%s", diff)
	}
}

// Contract: the snapshot is a value copy; timestamps and paths round-trip.
func Test_Snapshot_Preserves_Entry_Metadata(t *testing.T) {
	t.Parallel()

	added := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	entries := []catalog.Entry{
		{ID: 1, Path: "photos/cat.jpg", Suffix: "jpg", DateAdded: added, HasFields: true},
	}

	snap := catalog.NewSnapshot(nil, nil, entries, zerolog.Nop())

	entry, ok := snap.Entry(1)
	if !ok {
		t.Fatal("entry 1 missing from snapshot")
	}

	if entry.Path != "photos/cat.jpg" || entry.Suffix != "jpg" {
		t.Fatalf("entry = %+v, want path/suffix preserved", entry)
	}

	if !entry.DateAdded.Equal(added) {
		t.Fatalf("DateAdded = %v, want %v", entry.DateAdded, added)
	}

	if !entry.HasFields {
		t.Fatal("HasFields = false, want true")
	}
}
