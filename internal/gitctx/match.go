package gitctx

import (
	"path/filepath"
	"slices"
	"strings"
)

// FileList is a sorted set of repository paths.
type FileList []string

func newFileList(paths map[string]bool) FileList {
	out := make(FileList, 0, len(paths))
	for p := range paths {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

// Contains reports whether path is in the list.
func (l FileList) Contains(path string) bool {
	_, ok := slices.BinarySearch(l, path)
	return ok
}

// Include returns the paths matching any of the glob patterns.
func (l FileList) Include(patterns ...string) FileList {
	var out FileList
	for _, p := range l {
		if MatchesAny(p, patterns) {
			out = append(out, p)
		}
	}
	return out
}

// Exclude returns the paths matching none of the glob patterns.
func (l FileList) Exclude(patterns ...string) FileList {
	var out FileList
	for _, p := range l {
		if !MatchesAny(p, patterns) {
			out = append(out, p)
		}
	}
	return out
}

// MatchesAny returns true if the path matches any of the given glob patterns.
// A trailing "/**" matches everything below a directory and a leading "**/"
// matches at any depth.
func MatchesAny(path string, patterns []string) bool {
	for _, pattern := range patterns {
		if pattern == path {
			return true
		}
		matched, err := filepath.Match(pattern, path)
		if err == nil && matched {
			return true
		}
		if dir, ok := strings.CutSuffix(pattern, "/**"); ok {
			if strings.HasPrefix(path, strings.TrimPrefix(dir, "**/")+"/") {
				return true
			}
			if strings.HasPrefix(dir, "**/") && strings.Contains(path, "/"+strings.TrimPrefix(dir, "**/")+"/") {
				return true
			}
		}
		clean := strings.TrimPrefix(pattern, "**/")
		if clean != pattern {
			matched, err = filepath.Match(clean, filepath.Base(path))
			if err == nil && matched {
				return true
			}
			matched, err = filepath.Match(clean, path)
			if err == nil && matched {
				return true
			}
		}
	}
	return false
}
