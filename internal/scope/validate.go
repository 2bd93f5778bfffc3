package scope

import (
	"fmt"
	"regexp"
	"strings"

	"patchwright/internal/edit"
)

// ViolationType enumerates the ways an edit can break the scope contract.
type ViolationType string

const (
	ViolationTestsNotNeeded ViolationType = "tests-not-needed"
	ViolationForbiddenArea  ViolationType = "forbidden-area"
	ViolationGlobalSelector ViolationType = "style-scope-global-selector"
	ViolationTargetMissing  ViolationType = "style-scope-target-missing"
)

// Violation reports the first edit that falls outside the contract. It is
// returned as a value, never raised as an error: the caller decides whether
// to block, re-plan, or ignore.
type Violation struct {
	Type    ViolationType `json:"type"`
	Path    string        `json:"path"`
	Rule    string        `json:"rule,omitempty"`
	Message string        `json:"message"`
}

var (
	testPathPattern = regexp.MustCompile(`(^|/)__tests__/|\.(test|spec)\.[^./]+$`)

	// body/html/:root/#root rules anywhere in the payload; a bare "* {"
	// only counts at the start of a line.
	globalSelectorPattern = regexp.MustCompile(`\b(body|html)\s*\{|(:root|#root)\s*\{`)
	lineStartStarPattern  = regexp.MustCompile(`(?m)^\s*\*\s*\{`)
	globalStylesheetFile  = regexp.MustCompile(`(?i)(^|/)(index|app|styles?|theme|globals?)\.(css|scss|sass|less)$`)
)

// ValidateEdits checks each proposed edit, in order, against the
// reflection. The first violation wins; nil means every edit is inside the
// contract. A nil reflection or empty edit list always passes.
func ValidateEdits(edits []edit.Operation, reflection *Reflection) *Violation {
	if reflection == nil || len(edits) == 0 {
		return nil
	}

	avoidPrefixes := deriveAvoidPrefixes(reflection.MustAvoid)

	for _, op := range edits {
		path, ok := edit.NormalizePath(op.Path)
		if !ok {
			path = strings.TrimSpace(op.Path)
		}

		if v := checkTestsNotNeeded(reflection, path); v != nil {
			return v
		}
		if v := checkStyleScope(reflection.StyleScope, path, op.Payload()); v != nil {
			return v
		}
		if v := checkForbiddenArea(avoidPrefixes, path); v != nil {
			return v
		}
	}
	return nil
}

func checkTestsNotNeeded(r *Reflection, path string) *Violation {
	if r.TestsNeeded || !testPathPattern.MatchString(path) {
		return nil
	}
	return &Violation{
		Type:    ViolationTestsNotNeeded,
		Path:    path,
		Message: "the scope reflection marked this request as not needing tests, but the plan edits a test file",
	}
}

func checkStyleScope(ss *StyleScopeContract, path, payload string) *Violation {
	if ss == nil {
		return nil
	}

	if ss.ForbidGlobalSelectors && payload != "" {
		if m := globalSelectorPattern.FindString(payload); m != "" {
			return &Violation{
				Type:    ViolationGlobalSelector,
				Path:    path,
				Rule:    strings.TrimSpace(m),
				Message: "a targeted styling request must not restyle global selectors",
			}
		}
		if m := lineStartStarPattern.FindString(payload); m != "" {
			return &Violation{
				Type:    ViolationGlobalSelector,
				Path:    path,
				Rule:    strings.TrimSpace(m),
				Message: "a targeted styling request must not restyle the universal selector",
			}
		}
	}

	if ss.EnforceTargetScoping && globalStylesheetFile.MatchString(path) {
		if !anyHintPresent(ss.TargetHints, path, payload) {
			return &Violation{
				Type:    ViolationTargetMissing,
				Path:    path,
				Message: fmt.Sprintf("edit touches a global stylesheet without mentioning any target hint (%s)", strings.Join(ss.TargetHints, ", ")),
			}
		}
	}
	return nil
}

func anyHintPresent(hints []string, path, payload string) bool {
	if len(hints) == 0 {
		return false
	}
	lowerPath := strings.ToLower(path)
	lowerPayload := strings.ToLower(payload)
	for _, h := range hints {
		if strings.Contains(lowerPath, h) || strings.Contains(lowerPayload, h) {
			return true
		}
	}
	return false
}

func checkForbiddenArea(prefixes []string, path string) *Violation {
	for _, prefix := range prefixes {
		if path == strings.TrimSuffix(prefix, "/") || strings.HasPrefix(path, prefix) {
			return &Violation{
				Type:    ViolationForbiddenArea,
				Path:    path,
				Rule:    prefix,
				Message: "the scope reflection forbids edits under " + prefix,
			}
		}
	}
	return nil
}

// deriveAvoidPrefixes turns freeform mustAvoid entries into path prefixes.
// Entries that parse as repo-relative paths are used directly; prose
// entries fall back to keyword heuristics for the conventional directory
// roots they describe.
func deriveAvoidPrefixes(mustAvoid []string) []string {
	var prefixes []string
	add := func(p string) {
		for _, existing := range prefixes {
			if existing == p {
				return
			}
		}
		prefixes = append(prefixes, p)
	}

	for _, entry := range mustAvoid {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		if !strings.ContainsAny(entry, " \t") {
			if p, ok := edit.NormalizePath(entry); ok {
				add(p + "/")
				continue
			}
		}

		lower := strings.ToLower(entry)
		if strings.Contains(lower, "backend") {
			add("backend/")
			add("server/")
		}
		if strings.Contains(lower, "frontend") {
			add("frontend/")
			add("client/")
		}
		if strings.Contains(lower, "test") {
			add("tests/")
			add("test/")
			add("__tests__/")
			add("src/__tests__/")
		}
	}
	return prefixes
}
