package extract

// scanState names the lexer states used when walking JSON-like text.
// Braces and brackets only count toward nesting depth in stateNormal;
// string contents and comments are skipped without affecting depth.
type scanState int

const (
	stateNormal scanState = iota
	stateInString
	stateInLineComment
	stateInBlockComment
)

// balancedSpan returns the minimal balanced substring of s starting at
// start, where s[start] must be '{' or '['. Depth is a single counter over
// both delimiter kinds. It returns ok=false when no balanced span exists or
// when an unterminated block comment makes the remainder unscannable.
//
// Note: It is safe to iterate bytes for ASCII delimiters because UTF-8
// guarantees that ASCII bytes never appear inside a multi-byte sequence.
func balancedSpan(s string, start int) (string, bool) {
	if start < 0 || start >= len(s) {
		return "", false
	}
	if s[start] != '{' && s[start] != '[' {
		return "", false
	}

	state := stateNormal
	escape := false
	depth := 0

	for i := start; i < len(s); i++ {
		b := s[i]

		switch state {
		case stateInString:
			if escape {
				escape = false
				continue
			}
			if b == '\\' {
				escape = true
			} else if b == '"' {
				state = stateNormal
			}

		case stateInLineComment:
			if b == '\n' {
				state = stateNormal
			}

		case stateInBlockComment:
			if b == '*' && i+1 < len(s) && s[i+1] == '/' {
				state = stateNormal
				i++
			}

		case stateNormal:
			switch {
			case b == '"':
				state = stateInString
			case b == '/' && i+1 < len(s) && s[i+1] == '/':
				state = stateInLineComment
				i++
			case b == '/' && i+1 < len(s) && s[i+1] == '*':
				state = stateInBlockComment
				i++
			case b == '{' || b == '[':
				depth++
			case b == '}' || b == ']':
				depth--
				if depth == 0 {
					return s[start : i+1], true
				}
			}
		}
	}

	// Ran off the end: unbalanced, or stuck inside a string or an
	// unterminated comment.
	return "", false
}
