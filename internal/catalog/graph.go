package catalog

import (
	"strings"
	"sync"
	"unicode"

	"github.com/rs/zerolog"
)

// MatchKind says which part of a tag a search term matched.
type MatchKind int

// Match kinds, from most to least direct.
const (
	MatchNone MatchKind = iota
	MatchName
	MatchShorthand
	MatchAlias
)

// TagSet is a set of tag IDs.
type TagSet map[TagID]struct{}

// Graph answers ancestry and term-resolution questions over a snapshot's
// inheritance edges.
//
// Ancestor sets are memoized per graph, so reuse one Graph for the lifetime
// of a snapshot and drop it when the snapshot is replaced. Graph is safe for
// concurrent use.
type Graph struct {
	snap *Snapshot
	log  zerolog.Logger

	mu   sync.RWMutex
	memo map[TagID]TagSet
}

// NewGraph creates a graph over the given snapshot.
func NewGraph(snap *Snapshot, log zerolog.Logger) *Graph {
	return &Graph{
		snap: snap,
		log:  log,
		memo: make(map[TagID]TagSet),
	}
}

// Ancestors returns every tag reachable from id by following parent edges,
// excluding id itself. Callers must not modify the returned set.
//
// The traversal is an iterative walk with an explicit visited set. Edge data
// has historically contained cycles; a cycle is logged once and treated as
// "already visited" so the walk always terminates.
func (g *Graph) Ancestors(id TagID) TagSet {
	g.mu.RLock()
	cached, ok := g.memo[id]
	g.mu.RUnlock()

	if ok {
		return cached
	}

	visited := TagSet{id: {}}
	result := make(TagSet)
	frontier := []TagID{id}

	for len(frontier) > 0 {
		current := frontier[len(frontier)-1]
		frontier = frontier[:len(frontier)-1]

		for _, parent := range g.snap.Parents(current) {
			if _, seen := visited[parent]; seen {
				if parent == id {
					g.log.Warn().
						Int64("tag", int64(id)).
						Msg("catalog: inheritance cycle detected, stopping traversal")
				}

				continue
			}

			visited[parent] = struct{}{}
			result[parent] = struct{}{}
			frontier = append(frontier, parent)
		}
	}

	g.mu.Lock()
	g.memo[id] = result
	g.mu.Unlock()

	return result
}

// ResolveTerm returns every tag the term matches by name and, unless strict,
// by shorthand or alias as well.
//
// Matching is smartcase: case-insensitive unless the term itself contains an
// uppercase rune (or forceCase is set). A term that matches nothing returns
// an empty slice, never an error. Results are in ascending tag-ID order.
func (g *Graph) ResolveTerm(term string, strict bool, forceCase bool) []TagID {
	if term == "" {
		return nil
	}

	caseSensitive := forceCase || containsUpper(term)

	var matched []TagID

	for _, id := range g.snap.TagIDs() {
		tag, _ := g.snap.Tag(id)
		if matchTag(tag, term, strict, caseSensitive) != MatchNone {
			matched = append(matched, id)
		}
	}

	return matched
}

// matchTag is the single place the name/shorthand/alias rules live.
// Ancestry is deliberately not consulted here; the engine expands entry tags
// through [Graph.Ancestors] separately.
func matchTag(tag Tag, term string, strict bool, caseSensitive bool) MatchKind {
	if equalTerm(tag.Name, term, caseSensitive) {
		return MatchName
	}

	if strict {
		return MatchNone
	}

	if tag.Shorthand != "" && equalTerm(tag.Shorthand, term, caseSensitive) {
		return MatchShorthand
	}

	for _, alias := range tag.Aliases {
		if equalTerm(alias, term, caseSensitive) {
			return MatchAlias
		}
	}

	return MatchNone
}

func equalTerm(candidate, term string, caseSensitive bool) bool {
	if caseSensitive {
		return candidate == term
	}

	return strings.EqualFold(candidate, term)
}

func containsUpper(s string) bool {
	for _, r := range s {
		if unicode.IsUpper(r) {
			return true
		}
	}

	return false
}
