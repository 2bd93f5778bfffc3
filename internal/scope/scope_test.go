package scope

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseReflectionResponse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Reflection
	}{
		{
			name: "full_response_with_prose",
			input: `Let me think about scope first.
{"reasoning": "checkout only", "mustChange": ["src/checkout.js"], "mustAvoid": ["backend code"], "mustHave": ["cart totals still correct"], "testsNeeded": false}`,
			want: Reflection{
				Reasoning:   "checkout only",
				MustChange:  []string{"src/checkout.js"},
				MustAvoid:   []string{"backend code"},
				MustHave:    []string{"cart totals still correct"},
				TestsNeeded: false,
			},
		},
		{
			name:  "garbage_degrades_to_default",
			input: "I am not sure what you mean.",
			want:  Reflection{TestsNeeded: true},
		},
		{
			name:  "array_degrades_to_default",
			input: `[1, 2, 3]`,
			want:  Reflection{TestsNeeded: true},
		},
		{
			name:  "entries_trimmed_and_empties_dropped",
			input: `{"mustChange": ["  a.js  ", "", "   "], "testsNeeded": true}`,
			want: Reflection{
				MustChange:  []string{"a.js"},
				TestsNeeded: true,
			},
		},
		{
			name: "style_scope_parsed",
			input: `{"testsNeeded": true, "styleScope": {"mode": "targeted", "enforceTargetScoping": true, "forbidGlobalSelectors": true, "targetHints": ["navbar"]}}`,
			want: Reflection{
				TestsNeeded: true,
				StyleScope: &StyleScopeContract{
					Mode:                  ModeTargeted,
					EnforceTargetScoping:  true,
					ForbidGlobalSelectors: true,
					TargetHints:           []string{"navbar"},
				},
			},
		},
		{
			name:  "loose_json_repaired",
			input: `{reasoning: 'ok', testsNeeded: false,}`,
			want:  Reflection{Reasoning: "ok", TestsNeeded: false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseReflectionResponse(tt.input)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseReflectionResponse mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseReflectionResponseCapsLists(t *testing.T) {
	var entries []string
	for i := 0; i < 20; i++ {
		entries = append(entries, `"entry`+strings.Repeat("x", i)+`"`)
	}
	input := `{"mustAvoid": [` + strings.Join(entries, ",") + `]}`

	got := ParseReflectionResponse(input)
	if len(got.MustAvoid) != maxListEntries {
		t.Errorf("mustAvoid length = %d, want %d", len(got.MustAvoid), maxListEntries)
	}
}

func TestDeriveStyleScopeContract(t *testing.T) {
	t.Run("non_style_prompt", func(t *testing.T) {
		if got := DeriveStyleScopeContract("add retry logic to the api client"); got != nil {
			t.Errorf("expected nil contract, got %+v", got)
		}
	})

	t.Run("global_theming", func(t *testing.T) {
		got := DeriveStyleScopeContract("change the background color of the whole app to dark")
		if got == nil {
			t.Fatal("expected a contract")
		}
		if got.Mode != ModeGlobal || got.EnforceTargetScoping || got.ForbidGlobalSelectors {
			t.Errorf("unexpected global contract: %+v", got)
		}
	})

	t.Run("targeted_navbar", func(t *testing.T) {
		got := DeriveStyleScopeContract("make the navigation bar have a black background")
		if got == nil {
			t.Fatal("expected a contract")
		}
		if got.Mode != ModeTargeted || !got.EnforceTargetScoping || !got.ForbidGlobalSelectors {
			t.Errorf("unexpected targeted contract: %+v", got)
		}
		for _, want := range []string{"navbar", "navigation", "nav"} {
			if !containsHint(got.TargetHints, want) {
				t.Errorf("TargetHints = %v, missing %q", got.TargetHints, want)
			}
		}
	})

	t.Run("css_selector_token", func(t *testing.T) {
		got := DeriveStyleScopeContract("give .checkout-panel a gray border")
		if got == nil {
			t.Fatal("expected a contract")
		}
		if !containsHint(got.TargetHints, "checkout-panel") {
			t.Errorf("TargetHints = %v, missing checkout-panel", got.TargetHints)
		}
	})

	t.Run("hints_capped", func(t *testing.T) {
		got := DeriveStyleScopeContract("style .one .two .three .four .five .six .seven .eight .nine .ten please")
		if got == nil {
			t.Fatal("expected a contract")
		}
		if len(got.TargetHints) > maxTargetHints {
			t.Errorf("got %d hints, cap is %d", len(got.TargetHints), maxTargetHints)
		}
	})
}

func containsHint(hints []string, want string) bool {
	for _, h := range hints {
		if h == want {
			return true
		}
	}
	return false
}
