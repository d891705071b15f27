package ledger

import (
	"regexp"
	"slices"
)

// ignoreRe matches request-body lines such as:
//
//	> Danger: Ignore "Missing CHANGELOG entry"
var ignoreRe = regexp.MustCompile(`(?im)^>\s*danger\s*:\s*ignore\s+"(.*)"[ \t]*$`)

// IgnoreDirectives extracts ignored messages from a request body.
func IgnoreDirectives(body string) []string {
	var out []string
	for _, m := range ignoreRe.FindAllStringSubmatch(body, -1) {
		if m[1] == "" || slices.Contains(out, m[1]) {
			continue
		}
		out = append(out, m[1])
	}
	return out
}

// MergeIgnores combines ignore lists, keeping first-seen order.
func MergeIgnores(lists ...[]string) []string {
	var out []string
	for _, list := range lists {
		for _, s := range list {
			if s != "" && !slices.Contains(out, s) {
				out = append(out, s)
			}
		}
	}
	return out
}
