// Package extract recovers structured JSON from the free-form text a
// planning model emits. Model output routinely wraps JSON in prose or
// markdown, mis-quotes keys, or leaves trailing commas; this package locates
// the balanced span with a byte-level state machine and repairs the common
// malformations so the standard parser can consume it. Extraction never
// fails with an error: callers get the recovered data or a zero value.
package extract

import (
	"fmt"
	"regexp"
	"strings"
)

// Object returns the first balanced {...} span in the normalized text, or
// "" when no balanced object exists.
func Object(text string) string {
	return firstSpan(Normalize(text), '{')
}

// Array returns the first balanced [...] span in the normalized text, or
// "" when no balanced array exists.
func Array(text string) string {
	return firstSpan(Normalize(text), '[')
}

func firstSpan(s string, open byte) string {
	idx := strings.IndexByte(s, open)
	if idx < 0 {
		return ""
	}
	span, ok := balancedSpan(s, idx)
	if !ok {
		return ""
	}
	return span
}

// ObjectWithKey scans every top-level '{' occurrence in the normalized text
// and returns the first balanced object whose raw text contains a
// `"key" :`-style member for keyName. Returns "" when none matches.
func ObjectWithKey(text, keyName string) string {
	s := Normalize(text)
	keyPattern := regexp.MustCompile(fmt.Sprintf(`"%s"\s*:`, regexp.QuoteMeta(keyName)))

	for i := 0; i < len(s); i++ {
		if s[i] != '{' {
			continue
		}
		span, ok := balancedSpan(s, i)
		if !ok {
			continue
		}
		if keyPattern.MatchString(span) {
			return span
		}
		// Skip past this object so nested braces are not re-scanned.
		i += len(span) - 1
	}
	return ""
}
