package fs

import (
	"bufio"
	"fmt"
	"os"
	"path"
	"strings"
)

// DefaultIgnorePatterns are the archiver artifacts dropped from every import.
var DefaultIgnorePatterns = []string{"__MACOSX/", ".DS_Store"}

// ignorePattern is a parsed ignore pattern with its matching strategy.
type ignorePattern struct {
	pattern   string
	matchPath bool // true = match against the whole entry name; false = basename only
	matchDir  bool // true = match against any directory segment of the entry name
}

// IgnoreMatcher checks archive entry names against a set of ignore patterns.
// Patterns ending in '/' match any directory segment of the name.
// Other patterns without '/' match against the basename only.
// Patterns with '/' match against the full slash-separated entry name.
type IgnoreMatcher struct {
	patterns []ignorePattern
}

// NewIgnoreMatcher creates an IgnoreMatcher from raw pattern strings.
// Blank lines and lines starting with '#' are skipped.
func NewIgnoreMatcher(rawPatterns []string) *IgnoreMatcher {
	var patterns []ignorePattern
	for _, raw := range rawPatterns {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		if dir, ok := strings.CutSuffix(raw, "/"); ok {
			if dir == "" {
				continue
			}
			patterns = append(patterns, ignorePattern{pattern: dir, matchDir: true})
			continue
		}
		patterns = append(patterns, ignorePattern{
			pattern:   raw,
			matchPath: strings.Contains(raw, "/"),
		})
	}
	return &IgnoreMatcher{patterns: patterns}
}

// NewDefaultIgnoreMatcher returns a matcher for DefaultIgnorePatterns plus extra.
func NewDefaultIgnoreMatcher(extra []string) *IgnoreMatcher {
	all := make([]string, 0, len(DefaultIgnorePatterns)+len(extra))
	all = append(all, DefaultIgnorePatterns...)
	all = append(all, extra...)
	return NewIgnoreMatcher(all)
}

// Match reports whether the given entry name should be ignored.
// name uses forward slashes, as archive entry names do.
func (m *IgnoreMatcher) Match(name string) bool {
	if len(m.patterns) == 0 || name == "" {
		return false
	}

	name = strings.Trim(name, "/")
	segments := strings.Split(name, "/")
	basename := segments[len(segments)-1]

	for _, p := range m.patterns {
		if p.matchDir {
			if matchAny(p.pattern, segments[:len(segments)-1]) {
				return true
			}
			continue
		}
		target := basename
		if p.matchPath {
			target = name
		}
		matched, err := path.Match(p.pattern, target)
		if err != nil {
			// Bad pattern, skip it.
			continue
		}
		if matched {
			return true
		}
	}
	return false
}

func matchAny(pattern string, segments []string) bool {
	for _, s := range segments {
		if ok, err := path.Match(pattern, s); err == nil && ok {
			return true
		}
	}
	return false
}

// ParseIgnoreFile reads an ignore file and returns the raw pattern strings.
// Returns nil and no error if the file does not exist.
func ParseIgnoreFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		patterns = append(patterns, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ignore file: %w", err)
	}
	return patterns, nil
}
