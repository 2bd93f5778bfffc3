package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"patchwright/internal/edit"
)

func targetedStyleScope(hints ...string) *StyleScopeContract {
	return &StyleScopeContract{
		Mode:                  ModeTargeted,
		EnforceTargetScoping:  true,
		ForbidGlobalSelectors: true,
		TargetHints:           hints,
	}
}

func TestValidateEditsNilCases(t *testing.T) {
	edits := []edit.Operation{{Kind: edit.KindDelete, Path: "a.js"}}

	assert.Nil(t, ValidateEdits(edits, nil))
	refl := Reflection{TestsNeeded: true}
	assert.Nil(t, ValidateEdits(nil, &refl))
	assert.Nil(t, ValidateEdits(edits, &refl))
}

func TestValidateEditsTestsNotNeeded(t *testing.T) {
	refl := Reflection{TestsNeeded: false}
	tests := []struct {
		name    string
		path    string
		violate bool
	}{
		{"dunder_tests_dir", "src/__tests__/app.js", true},
		{"dot_test_suffix", "src/app.test.js", true},
		{"dot_spec_suffix", "src/app.spec.tsx", true},
		{"regular_file", "src/app.js", false},
		{"test_in_name_only", "src/contest.js", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := ValidateEdits([]edit.Operation{{Kind: edit.KindUpsert, Path: tt.path, Content: "x", HasContent: true}}, &refl)
			if tt.violate {
				require.NotNil(t, v)
				assert.Equal(t, ViolationTestsNotNeeded, v.Type)
				assert.Equal(t, tt.path, v.Path)
			} else {
				assert.Nil(t, v)
			}
		})
	}
}

func TestValidateEditsGlobalSelector(t *testing.T) {
	refl := Reflection{TestsNeeded: true, StyleScope: targetedStyleScope("navbar")}

	tests := []struct {
		name    string
		content string
		violate bool
	}{
		{"body_rule", ".navbar { color: red }\nbody { margin: 0 }", true},
		{"html_rule", "html { font-size: 14px }", true},
		{"root_pseudo", ":root { --bg: black }", true},
		{"root_id", "#root { padding: 0 }", true},
		{"star_at_line_start", "* { box-sizing: border-box }", true},
		{"star_mid_line_ok", ".a * { color: red }", false},
		{"scoped_rule_ok", ".navbar { background: black }", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ops := []edit.Operation{{Kind: edit.KindUpsert, Path: "src/navbar.css", Content: tt.content, HasContent: true}}
			v := ValidateEdits(ops, &refl)
			if tt.violate {
				require.NotNil(t, v)
				assert.Equal(t, ViolationGlobalSelector, v.Type)
			} else {
				assert.Nil(t, v)
			}
		})
	}
}

func TestValidateEditsGlobalModeAllowsGlobalSelectors(t *testing.T) {
	refl := Reflection{
		TestsNeeded: true,
		StyleScope:  &StyleScopeContract{Mode: ModeGlobal},
	}
	ops := []edit.Operation{{Kind: edit.KindUpsert, Path: "src/index.css", Content: "body { background: black }", HasContent: true}}

	assert.Nil(t, ValidateEdits(ops, &refl))
}

func TestValidateEditsModifyPayloadChecked(t *testing.T) {
	refl := Reflection{TestsNeeded: true, StyleScope: targetedStyleScope("navbar")}
	ops := []edit.Operation{{
		Kind: edit.KindModify,
		Path: "src/navbar.css",
		Replacements: []edit.Replacement{
			{Search: ".navbar { color: white }", Replace: "body { color: white }"},
		},
	}}

	v := ValidateEdits(ops, &refl)
	require.NotNil(t, v)
	assert.Equal(t, ViolationGlobalSelector, v.Type)
}

func TestValidateEditsTargetMissing(t *testing.T) {
	refl := Reflection{TestsNeeded: true, StyleScope: targetedStyleScope("navbar")}

	tests := []struct {
		name    string
		path    string
		content string
		violate bool
	}{
		{"global_sheet_no_hint", "src/index.css", ".footer { color: red }", true},
		{"global_sheet_hint_in_content", "src/index.css", ".navbar { color: red }", false},
		{"hint_in_path", "src/navbar/index.css", ".anything { color: red }", false},
		{"theme_sheet", "theme.scss", ".footer { x: y }", true},
		{"non_stylesheet", "src/util.js", "const footer = 1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ops := []edit.Operation{{Kind: edit.KindUpsert, Path: tt.path, Content: tt.content, HasContent: true}}
			v := ValidateEdits(ops, &refl)
			if tt.violate {
				require.NotNil(t, v)
				assert.Equal(t, ViolationTargetMissing, v.Type)
			} else {
				assert.Nil(t, v)
			}
		})
	}
}

func TestValidateEditsForbiddenArea(t *testing.T) {
	refl := Reflection{
		TestsNeeded: true,
		MustAvoid:   []string{"backend/payments", "do not touch the backend"},
	}

	tests := []struct {
		name     string
		path     string
		wantRule string
	}{
		{"explicit_prefix", "backend/payments/stripe.js", "backend/payments/"},
		{"keyword_backend", "server/auth.js", "server/"},
		{"exact_path_entry", "backend/payments", "backend/payments/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ops := []edit.Operation{{Kind: edit.KindUpsert, Path: tt.path, Content: "x", HasContent: true}}
			v := ValidateEdits(ops, &refl)
			require.NotNil(t, v)
			assert.Equal(t, ViolationForbiddenArea, v.Type)
			assert.Equal(t, tt.wantRule, v.Rule)
		})
	}

	t.Run("outside_forbidden", func(t *testing.T) {
		ops := []edit.Operation{{Kind: edit.KindUpsert, Path: "frontend/app.js", Content: "x", HasContent: true}}
		assert.Nil(t, ValidateEdits(ops, &refl))
	})
}

func TestValidateEditsFirstViolationWins(t *testing.T) {
	refl := Reflection{
		TestsNeeded: false,
		MustAvoid:   []string{"backend/"},
	}
	ops := []edit.Operation{
		{Kind: edit.KindUpsert, Path: "src/ok.js", Content: "x", HasContent: true},
		{Kind: edit.KindUpsert, Path: "src/app.test.js", Content: "x", HasContent: true},
		{Kind: edit.KindUpsert, Path: "backend/auth.js", Content: "x", HasContent: true},
	}

	v := ValidateEdits(ops, &refl)
	require.NotNil(t, v)
	assert.Equal(t, ViolationTestsNotNeeded, v.Type)
	assert.Equal(t, "src/app.test.js", v.Path)
}
