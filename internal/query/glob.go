package query

import (
	"regexp"
	"strings"
	"unicode"
)

// PathMatcher implements the documented path-matching rules:
//
//   - Smartcase: matching is case-insensitive unless the pattern contains an
//     uppercase rune (or case sensitivity is forced by configuration).
//   - A pattern without glob metacharacters is a substring match over the
//     whole relative path (an implicit *pattern*).
//   - A pattern with metacharacters is a glob anchored to the full path:
//     '*' matches within one path component, '?' matches a single
//     non-separator character, and '**' crosses separators.
//
// These rules differ from path.Match (no '**', error on bad patterns) and no
// third-party glob matcher in use elsewhere implements the component
// semantics, so the pattern is compiled to a regular expression instead.
type PathMatcher struct {
	substring string
	fold      bool
	re        *regexp.Regexp
}

// CompilePath builds a matcher for pattern. forceCase disables smartcase and
// always matches case-sensitively.
func CompilePath(pattern string, forceCase bool) *PathMatcher {
	fold := !forceCase && !patternHasUpper(pattern)

	if !strings.ContainsAny(pattern, "*?") {
		substr := pattern
		if fold {
			substr = strings.ToLower(substr)
		}

		return &PathMatcher{substring: substr, fold: fold}
	}

	var b strings.Builder

	if fold {
		b.WriteString("(?i)")
	}

	b.WriteString("^")

	runes := []rune(pattern)
	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case '*':
			if i+1 < len(runes) && runes[i+1] == '*' {
				b.WriteString(".*")

				i++
			} else {
				b.WriteString("[^/]*")
			}
		case '?':
			b.WriteString("[^/]")
		default:
			b.WriteString(regexp.QuoteMeta(string(runes[i])))
		}
	}

	b.WriteString("$")

	// The builder only emits valid syntax, so compilation cannot fail.
	return &PathMatcher{re: regexp.MustCompile(b.String())}
}

// Match reports whether the relative path matches the pattern. Paths are
// expected with forward-slash separators.
func (m *PathMatcher) Match(path string) bool {
	if m.re != nil {
		return m.re.MatchString(path)
	}

	if m.fold {
		path = strings.ToLower(path)
	}

	return strings.Contains(path, m.substring)
}

func patternHasUpper(s string) bool {
	for _, r := range s {
		if unicode.IsUpper(r) {
			return true
		}
	}

	return false
}
