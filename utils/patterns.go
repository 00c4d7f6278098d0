package utils

import (
	"path"
	"regexp"
	"strings"
)

// PatternMatcher filters change paths for export. Patterns are globs or
// regular expressions; rsync reports paths slash-separated regardless of
// platform, so matching uses path semantics, not filepath.
type PatternMatcher struct {
	includeGlobs []string
	includeRegex []*regexp.Regexp
	excludeGlobs []string
	excludeRegex []*regexp.Regexp
}

func NewPatternMatcher(includePatterns, excludePatterns []string) *PatternMatcher {
	return &PatternMatcher{
		includeGlobs: append([]string(nil), includePatterns...),
		includeRegex: compileRegex(includePatterns),
		excludeGlobs: append([]string(nil), excludePatterns...),
		excludeRegex: compileRegex(excludePatterns),
	}
}

// ShouldInclude reports whether a change with this path belongs in the
// export. Include patterns, when present, act as an allow list; exclude
// patterns then drop matches. Directory paths carry rsync's trailing
// slash, which is stripped before matching.
func (m *PatternMatcher) ShouldInclude(p string) bool {
	if m == nil {
		return true
	}
	p = strings.TrimSuffix(p, "/")
	if (len(m.includeGlobs) > 0 || len(m.includeRegex) > 0) && !m.matches(p, m.includeGlobs, m.includeRegex) {
		return false
	}
	if (len(m.excludeGlobs) > 0 || len(m.excludeRegex) > 0) && m.matches(p, m.excludeGlobs, m.excludeRegex) {
		return false
	}
	return true
}

func (m *PatternMatcher) matches(p string, globs []string, regexes []*regexp.Regexp) bool {
	base := path.Base(p)
	for _, pattern := range globs {
		if matched, _ := path.Match(pattern, base); matched {
			return true
		}
		if matched, _ := path.Match(pattern, p); matched {
			return true
		}
	}
	for _, re := range regexes {
		if re.MatchString(p) {
			return true
		}
	}
	return false
}

func compileRegex(patterns []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		if re, err := regexp.Compile(pattern); err == nil {
			compiled = append(compiled, re)
		}
	}
	return compiled
}
