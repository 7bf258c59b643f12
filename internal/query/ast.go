// Package query parses the tagvault search syntax into an abstract query
// tree of boolean nodes over leaf predicates.
//
// The grammar, with case-insensitive keywords and NOT > AND > OR precedence:
//
//	Expr    := OrExpr
//	OrExpr  := AndExpr ( "OR" AndExpr )*
//	AndExpr := NotExpr ( ["AND"] NotExpr )*
//	NotExpr := ["NOT"] Atom
//	Atom    := "(" Expr ")" | Term
//	Term    := [Prefix ":"] Value
//	Prefix  := "tag" | "tag_id" | "path" | "filetype" | "mediatype" | "special"
//
// Adjacent terms are joined by an implicit AND. Values containing spaces are
// written in quotes or with underscores ("My Tag" / My_Tag). An unquoted
// multi-word value tokenizes into separate implicit-AND terms; that ambiguity
// is documented behavior, not a bug.
package query

import (
	"fmt"
	"strings"
)

// Node is a node of the abstract query tree.
type Node interface {
	fmt.Stringer

	node()
}

// And matches entries that satisfy every child.
type And struct {
	Children []Node
}

// Or matches entries that satisfy at least one child.
type Or struct {
	Children []Node
}

// Not matches entries that do not satisfy the child.
type Not struct {
	Child Node
}

// TagLeaf matches entries tagged with a tag whose name, shorthand, or alias
// matches Term, directly or through an ancestor in the inheritance graph.
type TagLeaf struct {
	Term string
}

// TagIDLeaf matches entries directly tagged with the exact tag ID. No
// inheritance, no alias resolution; intended for advanced/internal use.
type TagIDLeaf struct {
	ID int64
}

// PathLeaf matches entries whose relative path matches Pattern, either as a
// smartcase substring or as a glob when Pattern contains metacharacters.
type PathLeaf struct {
	Pattern string
}

// FiletypeLeaf matches entries whose suffix falls in the extension's
// equivalence class (jpg matches jpeg and vice versa).
type FiletypeLeaf struct {
	Ext string
}

// MediatypeLeaf matches entries whose suffix maps to the named coarse media
// category (image, video, audio, ...).
type MediatypeLeaf struct {
	Kind string
}

// Special kinds accepted by SpecialLeaf.
const (
	SpecialUntagged = "untagged" // entries with no tags
	SpecialEmpty    = "empty"    // entries with no tags and no fields
)

// SpecialLeaf matches a built-in predicate, see the Special constants.
type SpecialLeaf struct {
	Kind string
}

func (And) node()           {}
func (Or) node()            {}
func (Not) node()           {}
func (TagLeaf) node()       {}
func (TagIDLeaf) node()     {}
func (PathLeaf) node()      {}
func (FiletypeLeaf) node()  {}
func (MediatypeLeaf) node() {}
func (SpecialLeaf) node()   {}

func (n And) String() string {
	return "(" + joinNodes(n.Children, " AND ") + ")"
}

func (n Or) String() string {
	return "(" + joinNodes(n.Children, " OR ") + ")"
}

func (n Not) String() string {
	return "NOT " + n.Child.String()
}

func (n TagLeaf) String() string {
	return "tag:" + quoteIfNeeded(n.Term)
}

func (n TagIDLeaf) String() string {
	return fmt.Sprintf("tag_id:%d", n.ID)
}

func (n PathLeaf) String() string {
	return "path:" + quoteIfNeeded(n.Pattern)
}

func (n FiletypeLeaf) String() string {
	return "filetype:" + n.Ext
}

func (n MediatypeLeaf) String() string {
	return "mediatype:" + n.Kind
}

func (n SpecialLeaf) String() string {
	return "special:" + n.Kind
}

func joinNodes(nodes []Node, sep string) string {
	parts := make([]string, 0, len(nodes))
	for _, n := range nodes {
		parts = append(parts, n.String())
	}

	return strings.Join(parts, sep)
}

func quoteIfNeeded(s string) string {
	if strings.ContainsAny(s, " ():\"") {
		return `"` + s + `"`
	}

	return s
}
