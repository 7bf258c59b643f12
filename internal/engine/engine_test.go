package engine_test

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/tagvault/tagvault/internal/catalog"
	"github.com/tagvault/tagvault/internal/engine"
	"github.com/tagvault/tagvault/internal/query"
)

const (
	tagCat = catalog.TagID(1)
	tagPet = catalog.TagID(2)
)

// librarySnapshot mirrors the documented scenario: a.jpg tagged Pet (child
// of Cat), b.png tagged Cat, c.txt untagged.
func librarySnapshot(t *testing.T) *catalog.Snapshot {
	t.Helper()

	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	tags := []catalog.Tag{
		{ID: tagCat, Name: "Cat"},
		{ID: tagPet, Name: "Pet"},
	}

	edges := []catalog.TagEdge{
		{ChildID: tagPet, ParentID: tagCat},
	}

	entries := []catalog.Entry{
		{
			ID: 1, Path: "photos/a.jpg", Suffix: "jpg",
			DateAdded: base.Add(2 * time.Hour), DateCreated: base,
			DateModified: base.Add(3 * time.Hour),
			Tags:         []catalog.TagID{tagPet},
		},
		{
			ID: 2, Path: "photos/b.png", Suffix: "png",
			DateAdded: base.Add(time.Hour), DateCreated: base.Add(time.Minute),
			DateModified: base.Add(time.Hour),
			Tags:         []catalog.TagID{tagCat},
		},
		{
			ID: 3, Path: "notes/c.txt", Suffix: "txt",
			DateAdded: base, DateCreated: base.Add(2 * time.Minute),
			DateModified: base,
		},
	}

	return catalog.NewSnapshot(tags, edges, entries, zerolog.Nop())
}

func newEngine(t *testing.T) *engine.Engine {
	t.Helper()

	return engine.New(librarySnapshot(t), engine.Options{Logger: zerolog.Nop()})
}

func run(t *testing.T, eng *engine.Engine, queryString string) []catalog.EntryID {
	t.Helper()

	root, err := query.Parse(queryString)
	require.NoError(t, err, "parse %q", queryString)

	got, err := eng.Evaluate(root, engine.SortSpec{})
	require.NoError(t, err, "evaluate %q", queryString)

	return got
}

// Contract: an entry tagged only with a child tag matches a query for the
// parent tag (inheritance), and the documented scenario queries hold.
func Test_Evaluate_Expands_Tag_Inheritance(t *testing.T) {
	t.Parallel()

	eng := newEngine(t)

	require.Equal(t, []catalog.EntryID{1, 2}, run(t, eng, "tag:Cat"))
	require.Equal(t, []catalog.EntryID{1}, run(t, eng, "tag:Pet"))
	require.Equal(t, []catalog.EntryID{3}, run(t, eng, "special:untagged"))
	require.Equal(t, []catalog.EntryID{2, 3},
		run(t, eng, "(tag:Cat OR filetype:txt) AND NOT tag_id:2"))
}

// Contract: tag_id matches the exact tag only, with no inheritance and no
// alias resolution.
func Test_Evaluate_TagID_Ignores_Inheritance(t *testing.T) {
	t.Parallel()

	eng := newEngine(t)

	require.Equal(t, []catalog.EntryID{2}, run(t, eng, "tag_id:1"))
	require.Equal(t, []catalog.EntryID{1}, run(t, eng, "tag_id:2"))
	require.Empty(t, run(t, eng, "tag_id:99"))
}

// Contract: evaluating the same tree twice yields identical ordered results.
func Test_Evaluate_Is_Idempotent(t *testing.T) {
	t.Parallel()

	eng := newEngine(t)

	first := run(t, eng, "tag:Cat OR filetype:txt")
	second := run(t, eng, "tag:Cat OR filetype:txt")

	require.Equal(t, first, second)
}

// Contract: AND and OR are commutative and associative over the result set;
// only evaluation strategy differs, never membership or order.
func Test_Evaluate_Boolean_Operators_Commute(t *testing.T) {
	t.Parallel()

	eng := newEngine(t)

	require.Equal(t, run(t, eng, "tag:Cat AND filetype:jpg"), run(t, eng, "filetype:jpg AND tag:Cat"))
	require.Equal(t, run(t, eng, "(tag:Cat OR tag:Pet) OR filetype:txt"),
		run(t, eng, "tag:Cat OR (tag:Pet OR filetype:txt)"))
}

// Contract: De Morgan holds over the entry universe.
func Test_Evaluate_Satisfies_DeMorgan(t *testing.T) {
	t.Parallel()

	eng := newEngine(t)

	require.Equal(t, run(t, eng, "NOT (tag:Cat AND filetype:jpg)"),
		run(t, eng, "NOT tag:Cat OR NOT filetype:jpg"))
}

// Contract: filetype queries expand through the extension equivalence table.
func Test_Evaluate_Filetype_Equivalence(t *testing.T) {
	t.Parallel()

	eng := newEngine(t)

	require.Equal(t, run(t, eng, "filetype:jpg"), run(t, eng, "filetype:jpeg"))
	require.Equal(t, []catalog.EntryID{1}, run(t, eng, "filetype:jpeg"))
	require.Equal(t, []catalog.EntryID{1}, run(t, eng, "filetype:.JPG"))
}

// Contract: mediatype maps suffixes onto coarse categories.
func Test_Evaluate_Mediatype_Categories(t *testing.T) {
	t.Parallel()

	eng := newEngine(t)

	require.Equal(t, []catalog.EntryID{1, 2}, run(t, eng, "mediatype:image"))
	require.Equal(t, []catalog.EntryID{3}, run(t, eng, "mediatype:text"))
	require.Empty(t, run(t, eng, "mediatype:video"))
}

// Contract: path matching is smartcase substring without metacharacters and
// an anchored glob with them.
func Test_Evaluate_Path_Smartcase_And_Glob(t *testing.T) {
	t.Parallel()

	eng := newEngine(t)

	require.Equal(t, []catalog.EntryID{1, 2}, run(t, eng, "path:PHOTOS"))
	require.Empty(t, run(t, eng, "path:Photoz"))
	require.Equal(t, []catalog.EntryID{1}, run(t, eng, "path:photos/*.jpg"))
	require.Equal(t, []catalog.EntryID{1, 2, 3}, run(t, eng, "path:**"))
}

// Contract: unresolvable terms yield empty sets, not errors, and an AND
// containing one short-circuits to empty.
func Test_Evaluate_Unknown_Terms_Resolve_Empty(t *testing.T) {
	t.Parallel()

	eng := newEngine(t)

	require.Empty(t, run(t, eng, "tag:DoesNotExist"))
	require.Empty(t, run(t, eng, "tag:DoesNotExist AND path:**"))
	require.Empty(t, run(t, eng, "filetype:xyz"))
}

// Contract: special:empty requires both no tags and no metadata fields.
func Test_Evaluate_Special_Empty_Checks_Fields(t *testing.T) {
	t.Parallel()

	tags := []catalog.Tag{{ID: 1, Name: "Cat"}}
	entries := []catalog.Entry{
		{ID: 1, Path: "a.jpg", Suffix: "jpg", Tags: []catalog.TagID{1}},
		{ID: 2, Path: "b.png", Suffix: "png", HasFields: true},
		{ID: 3, Path: "c.txt", Suffix: "txt"},
	}

	snap := catalog.NewSnapshot(tags, nil, entries, zerolog.Nop())
	eng := engine.New(snap, engine.Options{Logger: zerolog.Nop()})

	require.Equal(t, []catalog.EntryID{2, 3}, run(t, eng, "special:untagged"))
	require.Equal(t, []catalog.EntryID{3}, run(t, eng, "special:empty"))
}

// Contract: sorting changes sequence only, never membership, and insertion
// order is the tie-break for every key.
func Test_Evaluate_Sort_Keys(t *testing.T) {
	t.Parallel()

	eng := newEngine(t)
	root, err := query.Parse("path:**")
	require.NoError(t, err)

	byName, err := eng.Evaluate(root, engine.SortSpec{Key: engine.SortFilename})
	require.NoError(t, err)
	require.Equal(t, []catalog.EntryID{1, 2, 3}, byName) // a.jpg, b.png, c.txt

	byAdded, err := eng.Evaluate(root, engine.SortSpec{Key: engine.SortDateAdded})
	require.NoError(t, err)
	require.Equal(t, []catalog.EntryID{3, 2, 1}, byAdded)

	reversed, err := eng.Evaluate(root, engine.SortSpec{Key: engine.SortDateAdded, Reverse: true})
	require.NoError(t, err)
	require.Equal(t, []catalog.EntryID{1, 2, 3}, reversed)

	limited, err := eng.Evaluate(root, engine.SortSpec{Key: engine.SortFilename, Limit: 2})
	require.NoError(t, err)
	require.Equal(t, []catalog.EntryID{1, 2}, limited)
}

// Contract: ParseSortKey accepts the documented names and rejects unknowns.
func Test_ParseSortKey_Accepts_Documented_Names(t *testing.T) {
	t.Parallel()

	for name, want := range map[string]engine.SortKey{
		"":              engine.SortInsertion,
		"id":            engine.SortInsertion,
		"filename":      engine.SortFilename,
		"name":          engine.SortFilename,
		"date_added":    engine.SortDateAdded,
		"Date_Created":  engine.SortDateCreated,
		"date_modified": engine.SortDateModified,
	} {
		got, err := engine.ParseSortKey(name)
		require.NoError(t, err, "name %q", name)
		require.Equal(t, want, got, "name %q", name)
	}

	_, err := engine.ParseSortKey("relevance")
	require.Error(t, err)
}

// Contract: one engine serves queries from multiple goroutines; shared
// selectivity state never corrupts results or panics.
func Test_Evaluate_Is_Safe_For_Concurrent_Queries(t *testing.T) {
	t.Parallel()

	eng := newEngine(t)
	want := run(t, eng, "tag:Cat AND filetype:jpg")

	const goroutines = 8

	var wg sync.WaitGroup

	results := make([][]catalog.EntryID, goroutines)

	for i := 0; i < goroutines; i++ {
		i := i

		wg.Add(1)

		go func() {
			defer wg.Done()

			root, err := query.Parse("tag:Cat AND filetype:jpg")
			if err != nil {
				t.Error(err)

				return
			}

			got, err := eng.Evaluate(root, engine.SortSpec{})
			if err != nil {
				t.Error(err)

				return
			}

			results[i] = got
		}()
	}

	wg.Wait()

	for i, got := range results {
		require.Equal(t, want, got, "goroutine %d", i)
	}
}

// Contract: filename sort uses collation, so accented names order with
// their base letter instead of after the ASCII range.
func Test_Evaluate_Filename_Sort_Collates_Accents(t *testing.T) {
	t.Parallel()

	entries := []catalog.Entry{
		{ID: 1, Path: "docs/zebra.txt", Suffix: "txt"},
		{ID: 2, Path: "docs/Éclair.txt", Suffix: "txt"},
		{ID: 3, Path: "docs/apple.txt", Suffix: "txt"},
	}

	snap := catalog.NewSnapshot(nil, nil, entries, zerolog.Nop())
	eng := engine.New(snap, engine.Options{Logger: zerolog.Nop()})

	root, err := query.Parse("filetype:txt")
	require.NoError(t, err)

	got, err := eng.Evaluate(root, engine.SortSpec{Key: engine.SortFilename})
	require.NoError(t, err)
	require.Equal(t, []catalog.EntryID{3, 2, 1}, got) // apple, Éclair, zebra
}
