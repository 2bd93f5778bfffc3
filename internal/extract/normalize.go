package extract

import (
	"strconv"
	"strings"
)

// Normalize prepares model-emitted JSON-like text for scanning and parsing.
// It decodes \uXXXX escape sequences, converts "smart" quotes to straight
// quotes, and escapes literal newline/carriage-return characters that appear
// inside string literals. A raw newline inside a quoted string is invalid in
// strict JSON, but upstream models emit them routinely.
func Normalize(text string) string {
	text = decodeUnicodeEscapes(text)
	text = replaceSmartQuotes(text)
	return escapeBareNewlinesInStrings(text)
}

// decodeUnicodeEscapes rewrites \uXXXX sequences to their literal runes.
// Malformed sequences are left untouched.
func decodeUnicodeEscapes(s string) string {
	if !strings.Contains(s, `\u`) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		if s[i] == '\\' && i+5 < len(s) && s[i+1] == 'u' {
			if code, err := strconv.ParseUint(s[i+2:i+6], 16, 32); err == nil {
				b.WriteRune(rune(code))
				i += 6
				continue
			}
		}
		b.WriteByte(s[i])
		i++
	}
	return b.String()
}

var smartQuoteReplacer = strings.NewReplacer(
	"“", `"`, // left double quotation mark
	"”", `"`, // right double quotation mark
	"„", `"`, // double low-9 quotation mark
	"‘", "'", // left single quotation mark
	"’", "'", // right single quotation mark
)

func replaceSmartQuotes(s string) string {
	return smartQuoteReplacer.Replace(s)
}

// escapeBareNewlinesInStrings walks the text tracking string state and
// rewrites literal CR/LF characters inside double-quoted strings to their
// two-character escape sequences.
func escapeBareNewlinesInStrings(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inString := false
	escape := false
	for i := 0; i < len(s); i++ {
		c := s[i]

		if inString {
			if escape {
				escape = false
				b.WriteByte(c)
				continue
			}
			switch c {
			case '\\':
				escape = true
				b.WriteByte(c)
			case '"':
				inString = false
				b.WriteByte(c)
			case '\n':
				b.WriteString(`\n`)
			case '\r':
				b.WriteString(`\r`)
			default:
				b.WriteByte(c)
			}
			continue
		}

		if c == '"' {
			inString = true
		}
		b.WriteByte(c)
	}
	return b.String()
}
