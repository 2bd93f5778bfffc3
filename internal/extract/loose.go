package extract

import (
	"encoding/json"
	"strings"
)

// ParseLoose is the best-effort repair-then-parse entry point. It returns
// the decoded object (map[string]any) or array ([]any), or nil when no
// amount of repair produces parseable data. It never panics.
func ParseLoose(text string) any {
	s := strings.TrimSpace(text)
	if s == "" {
		return nil
	}

	// Cheap path: the text may already be strict JSON.
	if v := strictParse(s); v != nil {
		return v
	}

	s = Normalize(s)
	s = unwrapDoubledBraces(s)
	s = stripComments(s)
	s = convertSingleQuotes(s)
	s = quoteBareKeys(s)
	s = dropTrailingCommas(s)

	return strictParse(s)
}

func strictParse(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil
	}
	switch v.(type) {
	case map[string]any, []any:
		return v
	default:
		// Bare scalars are not useful structured data here.
		return nil
	}
}

// unwrapDoubledBraces strips one layer of {{ ... }} when both ends match,
// a templating artifact some models emit around JSON.
func unwrapDoubledBraces(s string) string {
	if strings.HasPrefix(s, "{{") && strings.HasSuffix(s, "}}") && len(s) >= 4 {
		return strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}

// stripComments removes // and /* */ comments outside of string literals.
func stripComments(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	state := stateNormal
	escape := false
	for i := 0; i < len(s); i++ {
		c := s[i]

		switch state {
		case stateInString:
			b.WriteByte(c)
			if escape {
				escape = false
			} else if c == '\\' {
				escape = true
			} else if c == '"' {
				state = stateNormal
			}

		case stateInLineComment:
			if c == '\n' {
				state = stateNormal
				b.WriteByte(c)
			}

		case stateInBlockComment:
			if c == '*' && i+1 < len(s) && s[i+1] == '/' {
				state = stateNormal
				i++
			}

		case stateNormal:
			switch {
			case c == '"':
				state = stateInString
				b.WriteByte(c)
			case c == '/' && i+1 < len(s) && s[i+1] == '/':
				state = stateInLineComment
				i++
			case c == '/' && i+1 < len(s) && s[i+1] == '*':
				state = stateInBlockComment
				i++
			default:
				b.WriteByte(c)
			}
		}
	}
	return b.String()
}

// convertSingleQuotes rewrites single-quoted strings to double-quoted ones.
// Runs after comment stripping, so any remaining apostrophe outside a
// double-quoted string is a string delimiter from the upstream format.
// Double quotes inside a converted string are escaped.
func convertSingleQuotes(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	const (
		outside = iota
		inDouble
		inSingle
	)
	state := outside
	escape := false

	for i := 0; i < len(s); i++ {
		c := s[i]

		switch state {
		case inDouble:
			b.WriteByte(c)
			if escape {
				escape = false
			} else if c == '\\' {
				escape = true
			} else if c == '"' {
				state = outside
			}

		case inSingle:
			if escape {
				escape = false
				if c == '\'' {
					// \' is not a valid JSON escape once requoted.
					b.WriteByte('\'')
				} else {
					b.WriteByte('\\')
					b.WriteByte(c)
				}
				continue
			}
			switch c {
			case '\\':
				escape = true
			case '\'':
				b.WriteByte('"')
				state = outside
			case '"':
				b.WriteString(`\"`)
			default:
				b.WriteByte(c)
			}

		case outside:
			switch c {
			case '"':
				state = inDouble
				b.WriteByte(c)
			case '\'':
				state = inSingle
				b.WriteByte('"')
			default:
				b.WriteByte(c)
			}
		}
	}
	return b.String()
}

// quoteBareKeys wraps unquoted identifier keys in double quotes. A bare key
// is an identifier immediately following '{' or ',' (ignoring whitespace)
// and followed by ':'.
func quoteBareKeys(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inString := false
	escape := false
	expectKey := true

	for i := 0; i < len(s); i++ {
		c := s[i]

		if inString {
			b.WriteByte(c)
			if escape {
				escape = false
			} else if c == '\\' {
				escape = true
			} else if c == '"' {
				inString = false
			}
			continue
		}

		switch {
		case c == '"':
			inString = true
			expectKey = false
			b.WriteByte(c)
		case c == '{' || c == ',':
			expectKey = true
			b.WriteByte(c)
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			b.WriteByte(c)
		case expectKey && isIdentStart(c):
			j := i
			for j < len(s) && isIdentChar(s[j]) {
				j++
			}
			k := j
			for k < len(s) && (s[k] == ' ' || s[k] == '\t' || s[k] == '\n' || s[k] == '\r') {
				k++
			}
			if k < len(s) && s[k] == ':' {
				b.WriteByte('"')
				b.WriteString(s[i:j])
				b.WriteByte('"')
			} else {
				b.WriteString(s[i:j])
			}
			i = j - 1
			expectKey = false
		default:
			expectKey = false
			b.WriteByte(c)
		}
	}
	return b.String()
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// dropTrailingCommas removes commas that are immediately followed, ignoring
// whitespace, by a closing '}' or ']'.
func dropTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inString := false
	escape := false
	for i := 0; i < len(s); i++ {
		c := s[i]

		if inString {
			b.WriteByte(c)
			if escape {
				escape = false
			} else if c == '\\' {
				escape = true
			} else if c == '"' {
				inString = false
			}
			continue
		}

		if c == '"' {
			inString = true
			b.WriteByte(c)
			continue
		}

		if c == ',' {
			j := i + 1
			for j < len(s) && (s[j] == ' ' || s[j] == '\t' || s[j] == '\n' || s[j] == '\r') {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue // swallow the comma
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}
