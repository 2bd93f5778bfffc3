// Package scope derives and enforces the blast-radius contract for an
// automation run. Before any edits are applied, the planning model is asked
// to reflect on what the request should and should not touch; the parsed
// Reflection then gates the proposed edit list. Parsing in this package
// never fails: malformed model output degrades to a permissive default
// contract rather than blocking the run.
package scope

import (
	"fmt"
	"strings"

	"patchwright/internal/extract"
)

// maxListEntries caps each reflection list; anything past this is noise.
const maxListEntries = 12

// Reflection is the scope contract derived from a planning response.
type Reflection struct {
	Reasoning   string              `json:"reasoning"`
	MustChange  []string            `json:"mustChange"`
	MustAvoid   []string            `json:"mustAvoid"`
	MustHave    []string            `json:"mustHave"`
	TestsNeeded bool                `json:"testsNeeded"`
	StyleScope  *StyleScopeContract `json:"styleScope,omitempty"`
}

// StyleScopeMode distinguishes whole-app theming intent from intent scoped
// to a specific UI element.
type StyleScopeMode string

const (
	ModeTargeted StyleScopeMode = "targeted"
	ModeGlobal   StyleScopeMode = "global"
)

// StyleScopeContract is the stricter sub-contract applied to visual/styling
// requests.
type StyleScopeContract struct {
	Mode                  StyleScopeMode `json:"mode"`
	EnforceTargetScoping  bool           `json:"enforceTargetScoping"`
	ForbidGlobalSelectors bool           `json:"forbidGlobalSelectors"`
	TargetHints           []string       `json:"targetHints"`
}

// defaultReflection is what any unparseable response degrades to: tests
// assumed needed, nothing forbidden.
func defaultReflection() Reflection {
	return Reflection{TestsNeeded: true}
}

// BuildReflectionPrompt renders the contract-elicitation request sent to
// the planning model before edits are generated.
func BuildReflectionPrompt(goal string) string {
	return fmt.Sprintf(`Before proposing any code changes, reflect on the scope of this request.

Request: %s

Respond with a single JSON object:
{
  "reasoning": "one or two sentences on the intended blast radius",
  "mustChange": ["files or areas the request requires touching"],
  "mustAvoid": ["files or areas the request must not touch"],
  "mustHave": ["behaviors that must still hold afterwards"],
  "testsNeeded": true
}`, strings.TrimSpace(goal))
}

// ParseReflectionResponse turns raw model output into a Reflection. Any
// parse failure or type mismatch yields the default contract; this function
// never panics and never returns an error.
func ParseReflectionResponse(rawResponseText string) Reflection {
	var data map[string]any

	if span := extract.Object(rawResponseText); span != "" {
		data, _ = extract.ParseLoose(span).(map[string]any)
	}
	if data == nil {
		data, _ = extract.ParseLoose(rawResponseText).(map[string]any)
	}
	if data == nil {
		return defaultReflection()
	}

	r := defaultReflection()
	r.Reasoning, _ = data["reasoning"].(string)
	r.MustChange = stringList(data["mustChange"])
	r.MustAvoid = stringList(data["mustAvoid"])
	r.MustHave = stringList(data["mustHave"])
	if v, ok := data["testsNeeded"].(bool); ok {
		r.TestsNeeded = v
	}
	if ss, ok := data["styleScope"].(map[string]any); ok {
		r.StyleScope = styleScopeFromMap(ss)
	}
	return r
}

func styleScopeFromMap(m map[string]any) *StyleScopeContract {
	c := &StyleScopeContract{Mode: ModeTargeted}
	if mode, _ := m["mode"].(string); StyleScopeMode(mode) == ModeGlobal {
		c.Mode = ModeGlobal
	}
	c.EnforceTargetScoping, _ = m["enforceTargetScoping"].(bool)
	c.ForbidGlobalSelectors, _ = m["forbidGlobalSelectors"].(bool)
	if hints := stringList(m["targetHints"]); len(hints) > 0 {
		c.TargetHints = hints
	}
	return c
}

// stringList coerces a decoded JSON value into a list of trimmed, non-empty
// strings, capped at maxListEntries.
func stringList(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, s)
		if len(out) == maxListEntries {
			break
		}
	}
	return out
}
