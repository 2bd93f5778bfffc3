package scope

import (
	"regexp"
	"strings"
)

const maxTargetHints = 8

// Vocabulary patterns for classifying a prompt as a styling request and for
// deciding whether the intent is app-wide or element-scoped.
var (
	styleVocabPattern = regexp.MustCompile(`(?i)\b(css|scss|sass|less|style|styles|styling|styled|theme|themes|theming|color|colors|colour|colours|background|font|fonts|typography|padding|margin|border|spacing|layout|dark mode|light mode|navbar|nav bar|navigation|header|footer|sidebar|button|buttons|icon|icons|banner|modal|card|visual|appearance|look and feel)\b`)

	globalVocabPattern = regexp.MustCompile(`(?i)\b(body|html|:root|whole app|whole site|whole page|entire app|entire site|entire page|globally|global|everywhere|all pages|every page|app-wide|site-wide|sitewide)\b`)

	navSynonymPattern = regexp.MustCompile(`(?i)\b(navbar|nav bar|navigation bar|navigation|nav|menu bar|top bar|header bar)\b`)

	// "the <1-4 words> have/has/with/to/should/needs/be" pulls out the noun
	// phrase a styling request is aimed at.
	targetPhrasePattern = regexp.MustCompile(`(?i)\b(?:the|a|an)\s+((?:[a-z0-9-]+\s+){0,3}[a-z0-9-]+)\s+(?:have|has|with|to|should|needs?|be)\b`)

	cssTokenPattern = regexp.MustCompile(`[.#][A-Za-z][A-Za-z0-9_-]{2,}`)

	hintCharPattern = regexp.MustCompile(`^[a-z0-9-]+$`)
)

// hintStopWords are words that name no UI target; colors are excluded too,
// since "blue" describes the change, not the element it lands on.
var hintStopWords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "have": true,
	"has": true, "should": true, "needs": true, "need": true, "make": true,
	"all": true, "new": true, "more": true, "less": true, "very": true,
	"page": true, "site": true, "app": true, "that": true, "this": true,
	"when": true, "where": true, "into": true, "from": true, "same": true,
	"color": true, "colors": true, "colour": true, "style": true,
	"styles": true, "background": true, "font": true, "fonts": true,
	"red": true, "blue": true, "green": true, "yellow": true,
	"orange": true, "purple": true, "pink": true, "black": true,
	"white": true, "gray": true, "grey": true, "brown": true,
	"dark": true, "darker": true, "light": true, "lighter": true,
}

// DeriveStyleScopeContract inspects the user's prompt and returns the style
// sub-contract that should gate the run, or nil when the prompt is not a
// visual/styling request at all. Global theming wording relaxes both
// scoping flags; anything else is treated as targeted and must name its
// target.
func DeriveStyleScopeContract(promptText string) *StyleScopeContract {
	if !styleVocabPattern.MatchString(promptText) {
		return nil
	}

	if globalVocabPattern.MatchString(promptText) {
		return &StyleScopeContract{
			Mode:                  ModeGlobal,
			EnforceTargetScoping:  false,
			ForbidGlobalSelectors: false,
		}
	}

	return &StyleScopeContract{
		Mode:                  ModeTargeted,
		EnforceTargetScoping:  true,
		ForbidGlobalSelectors: true,
		TargetHints:           extractTargetHints(promptText),
	}
}

// extractTargetHints pulls candidate element names from the prompt: nav-bar
// synonyms as a canonical cluster, the noun phrase between an article and a
// verb, and any CSS-style .class/#id token.
func extractTargetHints(prompt string) []string {
	var candidates []string

	if navSynonymPattern.MatchString(prompt) {
		candidates = append(candidates, "navbar", "navigation", "nav")
	}

	for _, m := range targetPhrasePattern.FindAllStringSubmatch(prompt, -1) {
		for _, word := range strings.Fields(m[1]) {
			candidates = append(candidates, word)
		}
	}

	for _, tok := range cssTokenPattern.FindAllString(prompt, -1) {
		candidates = append(candidates, tok[1:])
	}

	seen := make(map[string]bool, len(candidates))
	var hints []string
	for _, c := range candidates {
		h := strings.ToLower(strings.TrimSpace(c))
		if len(h) < 3 || !hintCharPattern.MatchString(h) {
			continue
		}
		if hintStopWords[h] || seen[h] {
			continue
		}
		seen[h] = true
		hints = append(hints, h)
		if len(hints) == maxTargetHints {
			break
		}
	}
	return hints
}
