// Package engine resolves a parsed query tree against a catalog snapshot and
// produces the ordered set of matching entries.
//
// Evaluation is pure over the snapshot: no I/O happens during tree walking,
// and the engine never mutates tags or entries. One [Engine] serves any
// number of queries against the same snapshot; ancestor sets and observed
// leaf cardinalities are cached across them.
package engine

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tagvault/tagvault/internal/catalog"
	"github.com/tagvault/tagvault/internal/query"
)

// Options configures matching behavior for an engine session. Settings are
// passed explicitly instead of read from globals so evaluation stays
// deterministic and parallel-safe.
type Options struct {
	// CaseSensitive disables smartcase: all tag and path matching becomes
	// case-sensitive regardless of the pattern's casing.
	CaseSensitive bool

	// Logger receives graph-integrity warnings. Defaults to a no-op logger.
	Logger zerolog.Logger
}

// Engine evaluates query trees against one immutable snapshot. Safe for
// concurrent use by multiple goroutines.
type Engine struct {
	snap  *catalog.Snapshot
	graph *catalog.Graph
	opts  Options

	// mu guards seenCard. Queries may run concurrently against one engine.
	mu sync.RWMutex

	// seenCard remembers the cardinality of previously evaluated subtrees
	// (keyed by their printed form) to refine AND ordering across queries.
	seenCard map[string]int
}

// New creates an engine over snap. The snapshot must not be mutated while
// the engine is in use; obtain a fresh snapshot after library mutations.
func New(snap *catalog.Snapshot, opts Options) *Engine {
	return &Engine{
		snap:     snap,
		graph:    catalog.NewGraph(snap, opts.Logger),
		opts:     opts,
		seenCard: make(map[string]int),
	}
}

type entrySet map[catalog.EntryID]struct{}

// Evaluate resolves root against the snapshot and returns matching entry IDs
// ordered by spec. A query that matches nothing returns an empty, non-nil
// slice.
func (e *Engine) Evaluate(root query.Node, spec SortSpec) ([]catalog.EntryID, error) {
	if e == nil || e.snap == nil {
		return nil, errors.New("evaluate: engine is not initialized")
	}

	if root == nil {
		return nil, errors.New("evaluate: query tree is nil")
	}

	if err := spec.Key.validate(); err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}

	matched, err := e.eval(root)
	if err != nil {
		return nil, err
	}

	return e.order(matched, spec), nil
}

func (e *Engine) eval(node query.Node) (entrySet, error) {
	result, err := e.evalInner(node)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.seenCard[node.String()] = len(result)
	e.mu.Unlock()

	return result, nil
}

func (e *Engine) evalInner(node query.Node) (entrySet, error) {
	switch n := node.(type) {
	case query.And:
		return e.evalAnd(n)
	case query.Or:
		return e.evalOr(n)
	case query.Not:
		child, err := e.eval(n.Child)
		if err != nil {
			return nil, err
		}

		return e.complement(child), nil
	case query.TagLeaf:
		return e.resolveTag(n), nil
	case query.TagIDLeaf:
		return setOf(e.snap.EntriesWithTag(catalog.TagID(n.ID))), nil
	case query.PathLeaf:
		return e.resolvePath(n), nil
	case query.FiletypeLeaf:
		return e.resolveFiletype(n), nil
	case query.MediatypeLeaf:
		return e.resolveMediatype(n), nil
	case query.SpecialLeaf:
		return e.resolveSpecial(n)
	default:
		return nil, fmt.Errorf("evaluate: unknown node type %T", node)
	}
}

// evalAnd intersects children cheapest-first and stops as soon as an
// intermediate intersection is empty, skipping the remaining children.
func (e *Engine) evalAnd(n query.And) (entrySet, error) {
	ordered := e.orderBySelectivity(n.Children)

	var result entrySet

	for _, child := range ordered {
		childSet, err := e.eval(child)
		if err != nil {
			return nil, err
		}

		if result == nil {
			result = childSet
		} else {
			result = intersect(result, childSet)
		}

		if len(result) == 0 {
			return entrySet{}, nil
		}
	}

	if result == nil {
		result = entrySet{}
	}

	return result, nil
}

func (e *Engine) evalOr(n query.Or) (entrySet, error) {
	result := entrySet{}

	for _, child := range n.Children {
		childSet, err := e.eval(child)
		if err != nil {
			return nil, err
		}

		for id := range childSet {
			result[id] = struct{}{}
		}
	}

	return result, nil
}

// orderBySelectivity returns children sorted cheapest-first. Cardinalities
// observed earlier in the session win over the static rank; ties keep the
// written order so results stay deterministic.
func (e *Engine) orderBySelectivity(children []query.Node) []query.Node {
	ordered := make([]query.Node, len(children))
	copy(ordered, children)

	cost := func(n query.Node) int {
		e.mu.RLock()
		card, ok := e.seenCard[n.String()]
		e.mu.RUnlock()

		if ok {
			return card
		}

		return staticRank(n)*rankStride + e.snap.Len()
	}

	// Insertion sort keeps the ordering stable without pulling in sort for
	// the typical two-or-three-child case.
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && cost(ordered[j]) < cost(ordered[j-1]); j-- {
			ordered[j], ordered[j-1] = ordered[j-1], ordered[j]
		}
	}

	return ordered
}

// rankStride spreads static ranks apart so an observed cardinality always
// beats an unobserved guess of the same magnitude.
const rankStride = 1 << 20

// staticRank is the a-priori selectivity guess: exact-ID lookups narrow the
// most, NOT narrows the least.
func staticRank(n query.Node) int {
	switch n.(type) {
	case query.TagIDLeaf:
		return 0
	case query.TagLeaf, query.FiletypeLeaf:
		return 1
	case query.MediatypeLeaf, query.SpecialLeaf:
		return 2
	case query.And:
		return 2
	case query.PathLeaf:
		return 3
	case query.Or:
		return 3
	case query.Not:
		return 4
	default:
		return 4
	}
}

// complement returns the full entry universe minus the given set. NOT is the
// only operation that needs the universe, which is why it ranks last.
func (e *Engine) complement(set entrySet) entrySet {
	result := make(entrySet, e.snap.Len()-len(set))

	for _, id := range e.snap.EntryIDs() {
		if _, ok := set[id]; !ok {
			result[id] = struct{}{}
		}
	}

	return result
}

func intersect(a, b entrySet) entrySet {
	if len(b) < len(a) {
		a, b = b, a
	}

	result := make(entrySet)

	for id := range a {
		if _, ok := b[id]; ok {
			result[id] = struct{}{}
		}
	}

	return result
}

func setOf(ids []catalog.EntryID) entrySet {
	result := make(entrySet, len(ids))

	for _, id := range ids {
		result[id] = struct{}{}
	}

	return result
}
