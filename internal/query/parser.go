package query

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse turns a query string into its abstract query tree.
//
// Malformed syntax (unbalanced parentheses, empty groups, dangling operators,
// unterminated quotes, unknown prefixes) returns a *ParseError carrying the
// offending offset. Terms that merely match nothing are not parse errors;
// they resolve to empty sets at evaluation time.
func Parse(queryString string) (Node, error) {
	tokens, lexErr := lex(queryString)
	if lexErr != nil {
		return nil, lexErr
	}

	p := &parser{query: queryString, tokens: tokens}

	if p.peek().kind == tokEOF {
		return nil, p.errorf(p.peek().pos, "empty query")
	}

	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}

	if trailing := p.peek(); trailing.kind != tokEOF {
		return nil, p.errorf(trailing.pos, "unexpected %s", describe(trailing))
	}

	return root, nil
}

type parser struct {
	query  string
	tokens []token
	pos    int
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}

	return tok
}

func (p *parser) errorf(pos int, format string, args ...any) *ParseError {
	return &ParseError{Query: p.query, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) parseOr() (Node, error) {
	first, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	children := []Node{first}

	for p.peek().kind == tokOr {
		p.next()

		child, err := p.parseAnd()
		if err != nil {
			return nil, err
		}

		children = append(children, child)
	}

	if len(children) == 1 {
		return children[0], nil
	}

	return Or{Children: children}, nil
}

func (p *parser) parseAnd() (Node, error) {
	first, err := p.parseNot()
	if err != nil {
		return nil, err
	}

	children := []Node{first}

	for {
		tok := p.peek()

		switch tok.kind {
		case tokAnd:
			p.next()

			if after := p.peek(); after.kind == tokEOF || after.kind == tokRParen || after.kind == tokOr {
				return nil, p.errorf(tok.pos, "expected term after AND")
			}
		case tokTerm, tokNot, tokLParen:
			// implicit AND between adjacent terms
		default:
			if len(children) == 1 {
				return children[0], nil
			}

			return And{Children: children}, nil
		}

		child, err := p.parseNot()
		if err != nil {
			return nil, err
		}

		children = append(children, child)
	}
}

func (p *parser) parseNot() (Node, error) {
	if p.peek().kind == tokNot {
		notTok := p.next()

		if after := p.peek(); after.kind == tokEOF || after.kind == tokRParen {
			return nil, p.errorf(notTok.pos, "expected expression after NOT")
		}

		child, err := p.parseNot()
		if err != nil {
			return nil, err
		}

		return Not{Child: child}, nil
	}

	return p.parseAtom()
}

func (p *parser) parseAtom() (Node, error) {
	tok := p.next()

	switch tok.kind {
	case tokLParen:
		if p.peek().kind == tokRParen {
			return nil, p.errorf(tok.pos, "empty group")
		}

		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}

		closing := p.next()
		if closing.kind != tokRParen {
			return nil, p.errorf(tok.pos, "missing closing parenthesis")
		}

		return inner, nil
	case tokTerm:
		return p.makeLeaf(tok)
	case tokRParen:
		return nil, p.errorf(tok.pos, "unexpected )")
	case tokAnd, tokOr:
		return nil, p.errorf(tok.pos, "unexpected %s", describe(tok))
	default:
		return nil, p.errorf(tok.pos, "expected term")
	}
}

// makeLeaf converts a term token into its leaf node. The default prefix is
// "tag". Unquoted tag values get underscores substituted with spaces, so
// tag:My_Tag and tag:"My Tag" resolve identically; other prefixes take their
// value literally (paths legitimately contain underscores).
func (p *parser) makeLeaf(tok token) (Node, error) {
	switch tok.prefix {
	case "", "tag":
		term := tok.value
		if !tok.quoted {
			term = strings.ReplaceAll(term, "_", " ")
		}

		return TagLeaf{Term: term}, nil
	case "tag_id":
		id, err := strconv.ParseInt(tok.value, 10, 64)
		if err != nil {
			return nil, p.errorf(tok.pos, "tag_id requires an integer, got %q", tok.value)
		}

		return TagIDLeaf{ID: id}, nil
	case "path":
		return PathLeaf{Pattern: tok.value}, nil
	case "filetype":
		return FiletypeLeaf{Ext: tok.value}, nil
	case "mediatype":
		return MediatypeLeaf{Kind: strings.ToLower(tok.value)}, nil
	case "special":
		kind := strings.ToLower(tok.value)
		if kind != SpecialUntagged && kind != SpecialEmpty {
			return nil, p.errorf(tok.pos, "unknown special predicate %q (expected untagged or empty)", tok.value)
		}

		return SpecialLeaf{Kind: kind}, nil
	default:
		// lex only emits known prefixes
		return nil, p.errorf(tok.pos, "unknown prefix %q", tok.prefix)
	}
}

func describe(tok token) string {
	switch tok.kind {
	case tokAnd:
		return "AND"
	case tokOr:
		return "OR"
	case tokNot:
		return "NOT"
	case tokLParen:
		return "("
	case tokRParen:
		return ")"
	case tokEOF:
		return "end of query"
	default:
		return fmt.Sprintf("%q", tok.value)
	}
}
