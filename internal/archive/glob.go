package archive

import (
	"path/filepath"
	"strings"
)

// Matcher filters walk paths against a set of exclusion patterns.
//
// Pattern syntax, matched against slash-separated paths relative to the
// walk root:
//   - *, ?, [abc] as in filepath.Match, applied to the full relative path,
//     the base name, and each path segment. A bare `node_modules` or `*.db`
//     therefore excludes that directory or file at any depth.
//   - ** matches across separators (`build/**`, `**/testdata/**`).
//   - a `./` prefix anchors the pattern to the top level of the walk, so
//     `./.*` excludes root dotfiles and dot-directories but not nested ones.
//
// A Matcher is safe for concurrent use after creation.
type Matcher struct {
	patterns []string
}

// NewMatcher compiles the exclusion pattern set.
func NewMatcher(patterns []string) *Matcher {
	return &Matcher{patterns: patterns}
}

// Excluded reports whether the relative path matches any pattern.
func (m *Matcher) Excluded(rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, p := range m.patterns {
		if matchPattern(p, rel) {
			return true
		}
	}
	return false
}

func matchPattern(pattern, rel string) bool {
	if anchored, ok := strings.CutPrefix(pattern, "./"); ok {
		// Anchored: only the first segment is considered.
		first, _, _ := strings.Cut(rel, "/")
		ok, _ := filepath.Match(anchored, first)
		return ok
	}

	if strings.Contains(pattern, "**") {
		return matchDoublestar(pattern, rel)
	}

	if ok, _ := filepath.Match(pattern, rel); ok {
		return true
	}
	if ok, _ := filepath.Match(pattern, filepath.Base(rel)); ok {
		return true
	}
	for _, seg := range strings.Split(rel, "/") {
		if ok, _ := filepath.Match(pattern, seg); ok {
			return true
		}
	}
	return false
}

// matchDoublestar handles `prefix/**/suffix` shapes; the prefix must anchor
// at the start of the path and the suffix may match any tail.
func matchDoublestar(pattern, rel string) bool {
	parts := strings.SplitN(pattern, "**", 2)
	prefix := strings.TrimSuffix(parts[0], "/")
	suffix := strings.TrimPrefix(parts[1], "/")

	if prefix != "" {
		if rel != prefix && !strings.HasPrefix(rel, prefix+"/") {
			return false
		}
		rel = strings.TrimPrefix(rel, prefix)
		rel = strings.TrimPrefix(rel, "/")
	}
	if suffix == "" {
		return true
	}

	segs := strings.Split(rel, "/")
	for i := range segs {
		tail := strings.Join(segs[i:], "/")
		if strings.Contains(suffix, "**") {
			if matchDoublestar(suffix, tail) {
				return true
			}
			continue
		}
		if ok, _ := filepath.Match(suffix, tail); ok {
			return true
		}
	}
	return false
}
