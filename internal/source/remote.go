package source

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/dshills/danger/internal/redact"
)

var (
	httpsRemoteRe = regexp.MustCompile(`^[a-z+]+://(?:[^@/]+@)?[^/]+/([^/]+)/([^/\s]+?)(?:\.git)?/?$`)
	sshRemoteRe   = regexp.MustCompile(`^(?:[^@]+@)?[^:/]+:(?:\d+/)?([^/]+)/([^/\s]+?)(?:\.git)?/?$`)
	// slugSuffixRe picks org/repo from the tail of any clone URL.
	slugSuffixRe = regexp.MustCompile(`([/:])([^/]+/[^/.]+)(?:\.git)?$`)
	slugRe       = regexp.MustCompile(`^[^/]+/[^/]+$`)

	bbsRequestRe = regexp.MustCompile(`/projects/([^/]+)/repos/([^/]+)/pull-requests/\d+`)
	requestRe    = regexp.MustCompile(`^[a-z+]+://[^/]+/([^/]+)/([^/]+)(?:/-)?/(?:pull|pull-requests|merge_requests)/\d+`)
)

// ParseRemoteURL extracts owner/repo from a git remote URL.
func ParseRemoteURL(remote string) (owner, repo string, err error) {
	remote = strings.TrimSpace(remote)
	if m := httpsRemoteRe.FindStringSubmatch(remote); len(m) == 3 {
		return m[1], m[2], nil
	}
	if m := sshRemoteRe.FindStringSubmatch(remote); len(m) == 3 {
		return m[1], m[2], nil
	}
	return "", "", fmt.Errorf("cannot parse owner/repo from remote URL: %s", redact.URL(remote))
}

// slugFromURL returns the org/repo tail of a clone URL, or "".
func slugFromURL(remote string) string {
	if m := slugSuffixRe.FindStringSubmatch(strings.TrimSpace(remote)); len(m) == 3 {
		return m[2]
	}
	return ""
}

// slugFromRequestURL returns org/repo from the web URL of a pull request,
// or "". Bitbucket Server URLs yield PROJECT/repo.
func slugFromRequestURL(u string) string {
	if m := bbsRequestRe.FindStringSubmatch(u); m != nil {
		return m[1] + "/" + m[2]
	}
	if m := requestRe.FindStringSubmatch(u); m != nil {
		return m[1] + "/" + m[2]
	}
	return ""
}

// RemoteHost returns the lower-cased host name of an https, ssh or
// scp-style remote. It returns "" when none can be found.
func RemoteHost(remote string) string {
	remote = strings.TrimSpace(remote)
	if remote == "" {
		return ""
	}
	if strings.Contains(remote, "://") {
		u, err := url.Parse(remote)
		if err != nil {
			return ""
		}
		return strings.ToLower(u.Hostname())
	}
	// scp-like: user@host:path or host:path
	if i := strings.Index(remote, ":"); i > 0 {
		host := remote[:i]
		if at := strings.LastIndex(host, "@"); at >= 0 {
			host = host[at+1:]
		}
		if !strings.Contains(host, "/") {
			return strings.ToLower(host)
		}
	}
	// bare host or host/path
	host, _, _ := strings.Cut(remote, "/")
	return strings.ToLower(host)
}
