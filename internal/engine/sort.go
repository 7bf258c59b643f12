package engine

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/tagvault/tagvault/internal/catalog"
)

// SortKey selects the ordering of a result set.
type SortKey int

// Available sort keys. Insertion (entry-ID) order is the default and the
// stable tie-break for every other key, so repeated evaluations of the same
// query always return identical sequences.
const (
	SortInsertion SortKey = iota
	SortFilename
	SortDateAdded
	SortDateCreated
	SortDateModified
)

// SortSpec is the requested ordering for one evaluation. Sorting never
// changes set membership, only sequence. Limit caps the sequence after
// sorting; 0 means unlimited.
type SortSpec struct {
	Key     SortKey
	Reverse bool
	Limit   int
}

// ParseSortKey maps the user-facing sort names onto keys.
func ParseSortKey(name string) (SortKey, error) {
	switch strings.ToLower(name) {
	case "", "insertion", "id":
		return SortInsertion, nil
	case "filename", "name":
		return SortFilename, nil
	case "date_added", "added":
		return SortDateAdded, nil
	case "date_created", "created":
		return SortDateCreated, nil
	case "date_modified", "modified":
		return SortDateModified, nil
	default:
		return 0, fmt.Errorf("unknown sort key %q (expected filename, date_added, date_created, date_modified, or id)", name)
	}
}

func (k SortKey) validate() error {
	if k < SortInsertion || k > SortDateModified {
		return fmt.Errorf("invalid sort key %d", int(k))
	}

	return nil
}

// order turns the matched set into the final ordered sequence. Walking the
// snapshot's insertion order first gives every sort key its stable
// tie-break for free.
func (e *Engine) order(matched entrySet, spec SortSpec) []catalog.EntryID {
	ids := make([]catalog.EntryID, 0, len(matched))

	for _, id := range e.snap.EntryIDs() {
		if _, ok := matched[id]; ok {
			ids = append(ids, id)
		}
	}

	switch spec.Key {
	case SortInsertion:
		// already in insertion order
	case SortFilename:
		// A collator buffers internally, so each evaluation gets its own.
		coll := collate.New(language.Und, collate.IgnoreCase)
		sort.SliceStable(ids, func(i, j int) bool {
			return coll.CompareString(filenameKey(e.entry(ids[i])), filenameKey(e.entry(ids[j]))) < 0
		})
	case SortDateAdded:
		sort.SliceStable(ids, func(i, j int) bool {
			return e.entry(ids[i]).DateAdded.Before(e.entry(ids[j]).DateAdded)
		})
	case SortDateCreated:
		sort.SliceStable(ids, func(i, j int) bool {
			return e.entry(ids[i]).DateCreated.Before(e.entry(ids[j]).DateCreated)
		})
	case SortDateModified:
		sort.SliceStable(ids, func(i, j int) bool {
			return e.entry(ids[i]).DateModified.Before(e.entry(ids[j]).DateModified)
		})
	}

	if spec.Reverse {
		for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
			ids[i], ids[j] = ids[j], ids[i]
		}
	}

	if spec.Limit > 0 && len(ids) > spec.Limit {
		ids = ids[:spec.Limit]
	}

	return ids
}

func (e *Engine) entry(id catalog.EntryID) catalog.Entry {
	entry, _ := e.snap.Entry(id)

	return entry
}

// filenameKey is the final path component, folded for case-insensitive
// comparison.
func filenameKey(entry catalog.Entry) string {
	return strings.ToLower(path.Base(entry.Path))
}
