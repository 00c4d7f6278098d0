package utils

import "testing"

func TestShouldInclude(t *testing.T) {
	matcher := NewPatternMatcher(nil, nil)
	if !matcher.ShouldInclude("file.txt") {
		t.Fatal("expected include by default")
	}
	matcher = NewPatternMatcher([]string{"*.jpg"}, nil)
	if matcher.ShouldInclude("file.txt") {
		t.Fatal("should not include unmatched include pattern")
	}
	if !matcher.ShouldInclude("media/photo.jpg") {
		t.Fatal("should include matching include pattern")
	}
	matcher = NewPatternMatcher(nil, []string{"secret.*"})
	if matcher.ShouldInclude("secret.txt") {
		t.Fatal("should exclude matching exclude pattern")
	}
	if !matcher.ShouldInclude("notes.txt") {
		t.Fatal("should include when exclude does not match")
	}
	matcher = NewPatternMatcher([]string{".*file\\.go$"}, nil)
	if !matcher.ShouldInclude("path/to/file.go") {
		t.Fatal("should match regex include pattern")
	}
}

func TestShouldIncludeTrailingSlash(t *testing.T) {
	matcher := NewPatternMatcher(nil, []string{"node_modules"})
	if matcher.ShouldInclude("node_modules/") {
		t.Fatal("directory path should match without its trailing slash")
	}
}

func TestShouldIncludeFullPathGlob(t *testing.T) {
	matcher := NewPatternMatcher([]string{"src/*"}, nil)
	if !matcher.ShouldInclude("src/main.go") {
		t.Fatal("full-path glob should match")
	}
	if matcher.ShouldInclude("docs/main.go") {
		t.Fatal("full-path glob should not match other directories")
	}
}

func TestNilMatcher(t *testing.T) {
	var matcher *PatternMatcher
	if !matcher.ShouldInclude("anything") {
		t.Fatal("nil matcher includes everything")
	}
}
