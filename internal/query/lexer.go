package query

import (
	"fmt"
	"strings"
)

// ParseError reports a malformed query. Pos is the byte offset of the
// offending token within Query.
type ParseError struct {
	Query string
	Pos   int
	Msg   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at offset %d: %s", e.Pos, e.Msg)
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokLParen
	tokRParen
	tokAnd
	tokOr
	tokNot
	tokTerm
)

type token struct {
	kind   tokenKind
	prefix string // lowercased prefix, empty when omitted
	value  string
	quoted bool
	pos    int
}

var knownPrefixes = map[string]bool{
	"tag":       true,
	"tag_id":    true,
	"path":      true,
	"filetype":  true,
	"mediatype": true,
	"special":   true,
}

func isDelimiter(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '(' || b == ')' || b == '"'
}

// lex splits the query into tokens. Operators are recognized only as bare,
// unprefixed, unquoted words so that tag:"or" and "not" stay searchable.
func lex(query string) ([]token, *ParseError) {
	var tokens []token

	pos := 0
	for pos < len(query) {
		c := query[pos]

		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			pos++
		case c == '(':
			tokens = append(tokens, token{kind: tokLParen, pos: pos})
			pos++
		case c == ')':
			tokens = append(tokens, token{kind: tokRParen, pos: pos})
			pos++
		case c == '"':
			value, next, err := readQuoted(query, pos)
			if err != nil {
				return nil, err
			}

			tokens = append(tokens, token{kind: tokTerm, value: value, quoted: true, pos: pos})
			pos = next
		default:
			tok, next, err := readWord(query, pos)
			if err != nil {
				return nil, err
			}

			tokens = append(tokens, tok)
			pos = next
		}
	}

	tokens = append(tokens, token{kind: tokEOF, pos: len(query)})

	return tokens, nil
}

// readQuoted reads a plain-quoted value starting at the opening quote.
// Quoted values may contain any character except the quote itself, including
// colons and parentheses.
func readQuoted(query string, start int) (string, int, *ParseError) {
	end := strings.IndexByte(query[start+1:], '"')
	if end < 0 {
		return "", 0, &ParseError{Query: query, Pos: start, Msg: "unterminated quote"}
	}

	value := query[start+1 : start+1+end]

	return value, start + end + 2, nil // +2 skips both quotes
}

// readWord reads a bare word starting at start: an operator keyword, a bare
// value, or a prefixed term whose value may itself be quoted.
func readWord(query string, start int) (token, int, *ParseError) {
	pos := start
	for pos < len(query) && !isDelimiter(query[pos]) {
		pos++
	}

	word := query[start:pos]

	head, rest, hasColon := strings.Cut(word, ":")
	if !hasColon {
		switch strings.ToLower(word) {
		case "and":
			return token{kind: tokAnd, pos: start}, pos, nil
		case "or":
			return token{kind: tokOr, pos: start}, pos, nil
		case "not":
			return token{kind: tokNot, pos: start}, pos, nil
		}

		return token{kind: tokTerm, value: word, pos: start}, pos, nil
	}

	prefix := strings.ToLower(head)
	if !knownPrefixes[prefix] {
		return token{}, 0, &ParseError{
			Query: query,
			Pos:   start,
			Msg:   fmt.Sprintf("unknown prefix %q (expected tag, tag_id, path, filetype, mediatype, or special)", head),
		}
	}

	if rest != "" {
		return token{kind: tokTerm, prefix: prefix, value: rest, pos: start}, pos, nil
	}

	// "tag:" directly followed by a quoted value, e.g. tag:"My: Tag".
	if pos < len(query) && query[pos] == '"' {
		value, next, err := readQuoted(query, pos)
		if err != nil {
			return token{}, 0, err
		}

		return token{kind: tokTerm, prefix: prefix, value: value, quoted: true, pos: start}, next, nil
	}

	return token{}, 0, &ParseError{
		Query: query,
		Pos:   start,
		Msg:   fmt.Sprintf("missing value after %q", head+":"),
	}
}
