package apply

import (
	"strings"

	"patchwright/internal/edit"
)

// PathSet is the authoritative set of canonical repository-relative paths
// supplied per batch. It is read-only to the engine and used only to
// disambiguate an edit's possibly-abbreviated path.
type PathSet map[string]struct{}

// NewPathSet builds a PathSet from canonical repository-relative paths.
func NewPathSet(paths ...string) PathSet {
	set := make(PathSet, len(paths))
	for _, p := range paths {
		if n, ok := edit.NormalizePath(p); ok {
			set[n] = struct{}{}
		}
	}
	return set
}

// Contains reports whether the exact path is in the set.
func (s PathSet) Contains(path string) bool {
	_, ok := s[path]
	return ok
}

// resolvePath maps an edit's path onto a known repository path. An exact
// match wins; otherwise a known path whose suffix after a path separator
// equals the edit's path is used, but only when that match is unique;
// ambiguity is never auto-resolved. Returns "" for unusable paths.
func resolvePath(rawPath string, known PathSet) string {
	normalized, ok := edit.NormalizePath(rawPath)
	if !ok {
		return ""
	}
	if len(known) == 0 {
		return normalized
	}

	if known.Contains(normalized) {
		return normalized
	}

	suffix := "/" + normalized
	var match string
	count := 0
	for candidate := range known {
		if strings.HasSuffix(candidate, suffix) {
			match = candidate
			count++
			if count > 1 {
				break
			}
		}
	}
	if count == 1 {
		return match
	}
	return normalized
}
