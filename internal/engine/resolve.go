package engine

import (
	"fmt"

	"github.com/tagvault/tagvault/internal/catalog"
	"github.com/tagvault/tagvault/internal/query"
)

// resolveTag implements tag inheritance: the term resolves to a set of tags
// S (by name, shorthand, or alias), and an entry matches when any of its
// directly-applied tags is in S or has a member of S among its ancestors.
//
// A term that resolves to no tag yields the empty set, never an error, so
// compound queries still return results for the terms that do resolve.
func (e *Engine) resolveTag(leaf query.TagLeaf) entrySet {
	matched := e.graph.ResolveTerm(leaf.Term, false, e.opts.CaseSensitive)
	if len(matched) == 0 {
		return entrySet{}
	}

	searched := make(catalog.TagSet, len(matched))
	for _, id := range matched {
		searched[id] = struct{}{}
	}

	result := entrySet{}

	for _, tagID := range e.snap.TagIDs() {
		tagged := e.snap.EntriesWithTag(tagID)
		if len(tagged) == 0 {
			continue
		}

		if !e.inheritsInto(tagID, searched) {
			continue
		}

		for _, entryID := range tagged {
			result[entryID] = struct{}{}
		}
	}

	return result
}

// inheritsInto reports whether tagID is one of the searched tags or has one
// of them among its ancestors.
func (e *Engine) inheritsInto(tagID catalog.TagID, searched catalog.TagSet) bool {
	if _, ok := searched[tagID]; ok {
		return true
	}

	for ancestor := range e.graph.Ancestors(tagID) {
		if _, ok := searched[ancestor]; ok {
			return true
		}
	}

	return false
}

func (e *Engine) resolvePath(leaf query.PathLeaf) entrySet {
	matcher := query.CompilePath(leaf.Pattern, e.opts.CaseSensitive)

	result := entrySet{}

	for _, id := range e.snap.EntryIDs() {
		entry, _ := e.snap.Entry(id)
		if matcher.Match(entry.Path) {
			result[id] = struct{}{}
		}
	}

	return result
}

func (e *Engine) resolveFiletype(leaf query.FiletypeLeaf) entrySet {
	accepted := make(map[string]struct{})
	for _, ext := range equivalentExts(leaf.Ext) {
		accepted[ext] = struct{}{}
	}

	result := entrySet{}

	for _, id := range e.snap.EntryIDs() {
		entry, _ := e.snap.Entry(id)
		if _, ok := accepted[normalizeExt(entry.Suffix)]; ok {
			result[id] = struct{}{}
		}
	}

	return result
}

func (e *Engine) resolveMediatype(leaf query.MediatypeLeaf) entrySet {
	result := entrySet{}

	for _, id := range e.snap.EntryIDs() {
		entry, _ := e.snap.Entry(id)

		category, ok := mediaCategoryOf(entry.Suffix)
		if ok && category == leaf.Kind {
			result[id] = struct{}{}
		}
	}

	return result
}

func (e *Engine) resolveSpecial(leaf query.SpecialLeaf) (entrySet, error) {
	result := entrySet{}

	switch leaf.Kind {
	case query.SpecialUntagged:
		for _, id := range e.snap.EntryIDs() {
			entry, _ := e.snap.Entry(id)
			if len(entry.Tags) == 0 {
				result[id] = struct{}{}
			}
		}
	case query.SpecialEmpty:
		for _, id := range e.snap.EntryIDs() {
			entry, _ := e.snap.Entry(id)
			if len(entry.Tags) == 0 && !entry.HasFields {
				result[id] = struct{}{}
			}
		}
	default:
		// The parser validates kinds; anything else is a programming error.
		return nil, fmt.Errorf("evaluate: unknown special predicate %q", leaf.Kind)
	}

	return result, nil
}
