package base

import (
	"strconv"
	"strings"

	"github.com/ruslano69/dbgate/pkg/core/value"
)

// NormalizeParamName trims name, strips one leading marker (@ : $ ?) and
// lower-cases the rest. It is idempotent for names without stacked markers.
func NormalizeParamName(name string) string {
	n := strings.TrimSpace(name)
	if n != "" && strings.ContainsRune("@:$?", rune(n[0])) {
		n = n[1:]
	}
	return strings.ToLower(strings.TrimSpace(n))
}

// NormalizeParams re-keys params by normalized name. Later duplicates win in
// map iteration order, so callers should not send both "id" and "@id".
func NormalizeParams(params map[string]value.Value) map[string]value.Value {
	out := make(map[string]value.Value, len(params))
	for k, v := range params {
		n := NormalizeParamName(k)
		if n == "" {
			continue
		}
		out[n] = v
	}
	return out
}

// NullParams returns a copy of params with every value replaced by NULL.
func NullParams(params map[string]value.Value) map[string]value.Value {
	out := make(map[string]value.Value, len(params))
	for k := range params {
		out[k] = value.Null()
	}
	return out
}

// PlaceholderStyle selects how RewriteNamed spells positional markers.
type PlaceholderStyle int

const (
	// DollarPlaceholders numbers markers $1, $2...; a repeated name reuses its number
	DollarPlaceholders PlaceholderStyle = iota
	// QuestionPlaceholders emits ? per occurrence; repeated names repeat the argument
	QuestionPlaceholders
)

// RewriteNamed replaces @name and :name markers whose normalized name is in
// params with positional markers and returns the arguments in marker order.
//
// String literals, quoted identifiers, comments, dollar-quoted bodies, ::
// casts and @@ system variables are copied verbatim. Markers with no
// matching parameter are left untouched (MySQL user variables).
func RewriteNamed(sqlText string, params map[string]value.Value, style PlaceholderStyle) (string, []value.Value) {
	norm := NormalizeParams(params)

	var (
		b       strings.Builder
		args    []value.Value
		indexOf = map[string]int{}
	)
	b.Grow(len(sqlText) + 8)

	n := len(sqlText)
	for i := 0; i < n; {
		c := sqlText[i]

		switch {
		case c == '\'' || c == '"' || c == '`':
			backslash := style == QuestionPlaceholders || (c == '\'' && isEscapeString(sqlText, i))
			end := skipQuoted(sqlText, i, c, backslash)
			b.WriteString(sqlText[i:end])
			i = end
			continue

		case c == '-' && i+1 < n && sqlText[i+1] == '-':
			end := strings.IndexByte(sqlText[i:], '\n')
			if end < 0 {
				end = n
			} else {
				end += i
			}
			b.WriteString(sqlText[i:end])
			i = end
			continue

		case c == '/' && i+1 < n && sqlText[i+1] == '*':
			end := strings.Index(sqlText[i+2:], "*/")
			if end < 0 {
				end = n
			} else {
				end += i + 4
			}
			b.WriteString(sqlText[i:end])
			i = end
			continue

		case c == '$' && style == DollarPlaceholders:
			if end, ok := skipDollarQuoted(sqlText, i); ok {
				b.WriteString(sqlText[i:end])
				i = end
				continue
			}

		case c == ':' && i+1 < n && sqlText[i+1] == ':':
			b.WriteString("::")
			i += 2
			continue

		case c == '@' && i+1 < n && sqlText[i+1] == '@':
			end := i + 2
			for end < n && isIdentPart(sqlText[end]) {
				end++
			}
			b.WriteString(sqlText[i:end])
			i = end
			continue

		case (c == '@' || c == ':') && i+1 < n && isIdentStart(sqlText[i+1]):
			end := i + 1
			for end < n && isIdentPart(sqlText[end]) {
				end++
			}
			name := strings.ToLower(sqlText[i+1 : end])
			v, ok := norm[name]
			if !ok {
				b.WriteString(sqlText[i:end])
				i = end
				continue
			}
			switch style {
			case DollarPlaceholders:
				pos, seen := indexOf[name]
				if !seen {
					args = append(args, v)
					pos = len(args)
					indexOf[name] = pos
				}
				b.WriteByte('$')
				b.WriteString(strconv.Itoa(pos))
			default:
				args = append(args, v)
				b.WriteByte('?')
			}
			i = end
			continue
		}

		b.WriteByte(c)
		i++
	}
	return b.String(), args
}

// skipQuoted returns the index just past the literal or identifier opened at
// start. Doubled quotes are escapes; backslash escapes apply when enabled.
func skipQuoted(s string, start int, quote byte, backslash bool) int {
	for i := start + 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if backslash && quote != '`' {
				i++
			}
		case quote:
			if i+1 < len(s) && s[i+1] == quote {
				i++
				continue
			}
			return i + 1
		}
	}
	return len(s)
}

// isEscapeString reports whether the quote at i opens a PostgreSQL E'...'
// literal, the only PostgreSQL string form where backslash escapes apply.
func isEscapeString(s string, i int) bool {
	if i == 0 || (s[i-1] != 'E' && s[i-1] != 'e') {
		return false
	}
	return i == 1 || !isIdentPart(s[i-2])
}

// skipDollarQuoted recognises PostgreSQL $tag$...$tag$ bodies.
func skipDollarQuoted(s string, start int) (int, bool) {
	j := start + 1
	for j < len(s) && isIdentPart(s[j]) && s[j] != '$' {
		j++
	}
	if j >= len(s) || s[j] != '$' {
		return 0, false
	}
	tag := s[start : j+1]
	if len(tag) > 2 && tag[1] >= '0' && tag[1] <= '9' {
		// $1 style placeholder, not a tag
		return 0, false
	}
	end := strings.Index(s[j+1:], tag)
	if end < 0 {
		return len(s), true
	}
	return j + 1 + end + len(tag), true
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9') || c == '$'
}
