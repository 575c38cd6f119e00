package watch

import (
	"path/filepath"
	"strings"
)

// Filter selects document files by base name.
type Filter struct {
	Include []string
	Exclude []string
}

// DocumentFilter matches JSON documents and skips hidden and editor
// backup files.
var DocumentFilter = Filter{
	Include: []string{"*.json"},
	Exclude: []string{"*~", "*.swp"},
}

// Match reports whether path passes the filter. Hidden files never match.
func (f Filter) Match(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	for _, pattern := range f.Exclude {
		if ok, _ := filepath.Match(pattern, base); ok {
			return false
		}
	}
	if len(f.Include) == 0 {
		return true
	}
	for _, pattern := range f.Include {
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
	}
	return false
}
