package storage

import (
	"regexp"
	"strings"
)

var returningPattern = regexp.MustCompile(`(?i)\bRETURNING\b`)

// Rebind rewrites canonical $N placeholders into the token the backend
// expects. PostgreSQL consumes the canonical form. SQLite receives ?N, its
// numbered parameter syntax, so a template that references $1 twice still
// binds the same argument. Quoted literals, identifiers and comments are
// left alone.
func Rebind(query string, backend Backend) string {
	if backend != BackendSQLite || !strings.Contains(query, "$") {
		return query
	}

	var b strings.Builder
	b.Grow(len(query))

	var quote byte
	for i := 0; i < len(query); i++ {
		c := query[i]
		if quote != 0 {
			b.WriteByte(c)
			if c == quote {
				quote = 0
			}
			continue
		}
		if end := commentEnd(query, i); end > i {
			b.WriteString(query[i:end])
			i = end - 1
			continue
		}
		switch {
		case c == '\'' || c == '"':
			quote = c
			b.WriteByte(c)
		case c == '$' && i+1 < len(query) && isDigit(query[i+1]):
			b.WriteByte('?')
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// IsRead reports whether the statement produces a row set rather than
// mutating data.
func IsRead(query string) bool {
	switch leadingKeyword(query) {
	case "SELECT", "WITH", "VALUES", "PRAGMA", "EXPLAIN", "SHOW":
		return true
	default:
		return false
	}
}

// IsInsert reports whether the statement is an INSERT (including SQLite's
// INSERT OR ... and REPLACE forms).
func IsInsert(query string) bool {
	switch leadingKeyword(query) {
	case "INSERT", "REPLACE":
		return true
	default:
		return false
	}
}

// HasReturning reports whether a write statement carries a RETURNING clause.
func HasReturning(query string) bool {
	return returningPattern.MatchString(stripLiterals(query))
}

// Operation is a low-cardinality label for metrics and logs.
func Operation(query string) string {
	keyword := leadingKeyword(query)
	if keyword == "" {
		return "unknown"
	}
	return strings.ToLower(keyword)
}

func leadingKeyword(query string) string {
	s := query
	for {
		s = strings.TrimLeft(s, " \t\r\n(")
		switch {
		case strings.HasPrefix(s, "--"):
			idx := strings.IndexByte(s, '\n')
			if idx < 0 {
				return ""
			}
			s = s[idx+1:]
		case strings.HasPrefix(s, "/*"):
			idx := strings.Index(s, "*/")
			if idx < 0 {
				return ""
			}
			s = s[idx+2:]
		default:
			end := 0
			for end < len(s) && isWordChar(s[end]) {
				end++
			}
			return strings.ToUpper(s[:end])
		}
	}
}

func stripLiterals(query string) string {
	var b strings.Builder
	b.Grow(len(query))
	var quote byte
	for i := 0; i < len(query); i++ {
		c := query[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		if end := commentEnd(query, i); end > i {
			b.WriteByte(' ')
			i = end - 1
			continue
		}
		if c == '\'' || c == '"' {
			quote = c
			b.WriteByte(' ')
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// commentEnd returns the offset just past a comment starting at i, or i when
// no comment starts there. An unterminated comment runs to the end.
func commentEnd(query string, i int) int {
	rest := query[i:]
	switch {
	case strings.HasPrefix(rest, "--"):
		if idx := strings.IndexByte(rest, '\n'); idx >= 0 {
			return i + idx + 1
		}
		return len(query)
	case strings.HasPrefix(rest, "/*"):
		if idx := strings.Index(rest[2:], "*/"); idx >= 0 {
			return i + 2 + idx + 2
		}
		return len(query)
	default:
		return i
	}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isWordChar(c byte) bool {
	return c == '_' || isDigit(c) || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
