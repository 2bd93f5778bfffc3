// Package branch derives short, well-formed branch identifiers from the
// freeform text a planning model returns. The model is asked for a
// kebab-case name but routinely wraps it in prose, echoes the placeholder
// back, or invents something unrelated to the request, so every derivation
// has a deterministic fallback.
package branch

import (
	"regexp"
	"strings"
)

const maxSlugLength = 40

// placeholderName is the literal the prompt template uses as an example;
// models sometimes echo it back verbatim.
const placeholderName = "kebab-case"

var (
	quotedTokenPattern = regexp.MustCompile("[\"'`]([a-z0-9]+(?:-[a-z0-9]+)+)[\"'`]")
	bareTokenPattern   = regexp.MustCompile(`[a-z0-9]+(?:-[a-z0-9]+)+`)
	validNamePattern   = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)+$`)
	nonAlnumRun        = regexp.MustCompile(`[^a-z0-9]+`)
	numericToken       = regexp.MustCompile(`^[0-9]+$`)
)

// stopWords are filler tokens that carry no signal about the work a branch
// name should describe.
var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true,
	"to": true, "of": true, "in": true, "on": true, "for": true,
	"with": true, "from": true, "into": true, "onto": true,
	"is": true, "are": true, "be": true, "it": true, "its": true,
	"this": true, "that": true, "these": true, "those": true,
	"i": true, "we": true, "you": true, "my": true, "our": true,
	"make": true, "please": true, "can": true, "could": true,
	"would": true, "should": true, "will": true, "just": true,
	"so": true, "some": true, "more": true, "very": true,
	"have": true, "has": true, "do": true, "does": true,
	"want": true, "need": true, "needs": true, "let": true,
	"new": true, "all": true, "also": true, "then": true,
}

// ExtractBranchName pulls a usable branch identifier out of rawText.
// Preference order: a quoted hyphenated token, any hyphenated token, a slug
// of the whole text. Returns the trimmed fallbackName when nothing usable
// is found.
func ExtractBranchName(rawText, fallbackName string) string {
	lower := strings.ToLower(strings.TrimSpace(rawText))
	if lower == "" {
		return strings.TrimSpace(fallbackName)
	}

	if m := quotedTokenPattern.FindStringSubmatch(lower); m != nil {
		return m[1]
	}
	if m := bareTokenPattern.FindString(lower); m != "" {
		return m
	}
	if slug := slugify(lower); slug != "" {
		return slug
	}
	return strings.TrimSpace(fallbackName)
}

// slugify collapses non-alphanumeric runs to single hyphens, strips
// leading/trailing hyphens, and truncates to maxSlugLength.
func slugify(s string) string {
	slug := nonAlnumRun.ReplaceAllString(strings.ToLower(s), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > maxSlugLength {
		slug = strings.TrimRight(slug[:maxSlugLength], "-")
	}
	return slug
}

// IsValidBranchName reports whether name is a well-formed work identifier:
// kebab-case with 2 to 5 segments, and not the prompt placeholder.
func IsValidBranchName(name string) bool {
	if name == placeholderName {
		return false
	}
	if !validNamePattern.MatchString(name) {
		return false
	}
	segments := strings.Count(name, "-") + 1
	return segments >= 2 && segments <= 5
}

// FallbackNameFromPrompt builds a branch name directly from the user's
// prompt when the model produced nothing usable. It keeps up to the first
// four content tokens; with fewer than two, the prompt carries too little
// signal and fallbackName wins.
func FallbackNameFromPrompt(prompt, fallbackName string) string {
	tokens := contentTokens(prompt)
	if len(tokens) < 2 {
		return fallbackName
	}
	if len(tokens) > 4 {
		tokens = tokens[:4]
	}
	return ExtractBranchName(strings.Join(tokens, "-"), fallbackName)
}

// IsRelevantToPrompt reports whether branchName plausibly describes the
// prompt. Empty token sets or a prompt with fewer than two content tokens
// count as relevant (insufficient signal to reject); otherwise at least one
// branch token must appear among the prompt's tokens.
func IsRelevantToPrompt(branchName, prompt string) bool {
	branchTokens := contentTokens(branchName)
	promptTokens := contentTokens(prompt)

	if len(branchTokens) == 0 || len(promptTokens) < 2 {
		return true
	}

	promptSet := make(map[string]bool, len(promptTokens))
	for _, tok := range promptTokens {
		promptSet[tok] = true
	}
	for _, tok := range branchTokens {
		if promptSet[tok] {
			return true
		}
	}
	return false
}

// contentTokens lower-cases the text, strips characters that are neither
// alphanumeric nor hyphen, splits on whitespace and hyphens, and drops
// stop words and pure-numeric tokens.
func contentTokens(text string) []string {
	lower := strings.ToLower(text)

	var cleaned strings.Builder
	cleaned.Grow(len(lower))
	for _, r := range lower {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			cleaned.WriteRune(r)
		case r == ' ', r == '\t', r == '\n', r == '\r':
			cleaned.WriteRune(' ')
		}
	}

	fields := strings.FieldsFunc(cleaned.String(), func(r rune) bool {
		return r == ' ' || r == '-'
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if f == "" || stopWords[f] || numericToken.MatchString(f) {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}
