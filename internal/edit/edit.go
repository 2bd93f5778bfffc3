// Package edit defines the proposed source-tree mutations a planning model
// can request, and parses them out of raw model output. An Operation is a
// tagged union over modify/delete/upsert so call sites are forced to handle
// every variant.
package edit

import (
	"path"
	"strings"

	"patchwright/internal/extract"
)

// Kind tags the Operation variants.
type Kind string

const (
	KindModify Kind = "modify"
	KindDelete Kind = "delete"
	KindUpsert Kind = "upsert"
)

// Replacement is an exact-substring search/replace pair for a modify
// operation.
type Replacement struct {
	Search  string `json:"search"`
	Replace string `json:"replace"`
}

// Operation is one proposed mutation. Exactly one variant's fields are
// meaningful, selected by Kind:
//
//	KindModify: Replacements
//	KindDelete: Recursive
//	KindUpsert: Content (HasContent is false when the model emitted a
//	            non-string content value)
type Operation struct {
	Kind         Kind          `json:"type"`
	Path         string        `json:"path"`
	Replacements []Replacement `json:"replacements,omitempty"`
	Recursive    bool          `json:"recursive,omitempty"`
	Content      string        `json:"content,omitempty"`
	HasContent   bool          `json:"-"`
}

// NormalizePath canonicalizes a repository-relative path: forward slashes,
// no leading slash or "./", no empty or ".." segments. Returns ok=false for
// paths that would escape the repository root.
func NormalizePath(p string) (string, bool) {
	p = strings.TrimSpace(p)
	p = strings.ReplaceAll(p, "\\", "/")
	p = strings.TrimPrefix(p, "./")
	p = strings.TrimPrefix(p, "/")
	if p == "" {
		return "", false
	}

	clean := path.Clean(p)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", false
	}
	for _, seg := range strings.Split(clean, "/") {
		if seg == ".." {
			return "", false
		}
	}
	return clean, true
}

// ParseOperations extracts a structured edit list from raw planning output.
// The text may wrap the list in prose, nest it under an "edits" key, or be
// a bare array; malformed entries are dropped rather than failing the whole
// list. Returns nil when no edits can be recovered.
func ParseOperations(raw string) []Operation {
	var list []any

	if span := extract.ObjectWithKey(raw, "edits"); span != "" {
		if obj, ok := extract.ParseLoose(span).(map[string]any); ok {
			list, _ = obj["edits"].([]any)
		}
	}
	if list == nil {
		if span := extract.Array(raw); span != "" {
			list, _ = extract.ParseLoose(span).([]any)
		}
	}
	if list == nil {
		switch v := extract.ParseLoose(raw).(type) {
		case []any:
			list = v
		case map[string]any:
			list, _ = v["edits"].([]any)
		}
	}
	if list == nil {
		return nil
	}

	ops := make([]Operation, 0, len(list))
	for _, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if op, ok := operationFromMap(obj); ok {
			ops = append(ops, op)
		}
	}
	if len(ops) == 0 {
		return nil
	}
	return ops
}

func operationFromMap(obj map[string]any) (Operation, bool) {
	kind, _ := obj["type"].(string)
	p, _ := obj["path"].(string)

	op := Operation{Path: p}
	switch Kind(strings.ToLower(strings.TrimSpace(kind))) {
	case KindModify:
		op.Kind = KindModify
		raw, _ := obj["replacements"].([]any)
		for _, r := range raw {
			rm, ok := r.(map[string]any)
			if !ok {
				continue
			}
			search, _ := rm["search"].(string)
			replace, _ := rm["replace"].(string)
			if search == "" {
				continue
			}
			op.Replacements = append(op.Replacements, Replacement{Search: search, Replace: replace})
		}
	case KindDelete:
		op.Kind = KindDelete
		op.Recursive, _ = obj["recursive"].(bool)
	case KindUpsert:
		op.Kind = KindUpsert
		op.Content, op.HasContent = obj["content"].(string)
	default:
		return Operation{}, false
	}
	return op, true
}

// Payload returns the textual content of the operation for scope matching:
// the upsert content, or the concatenated search and replace text of a
// modify. Deletes carry no payload.
func (op Operation) Payload() string {
	switch op.Kind {
	case KindUpsert:
		return op.Content
	case KindModify:
		var b strings.Builder
		for _, r := range op.Replacements {
			b.WriteString(r.Search)
			b.WriteString("\n")
			b.WriteString(r.Replace)
			b.WriteString("\n")
		}
		return b.String()
	default:
		return ""
	}
}
