package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/sethvargo/go-envconfig"
)

// hostEnv is every host-related variable danger understands.
type hostEnv struct {
	GitHubToken   string `env:"DANGER_GITHUB_API_TOKEN"`
	GitHubHost    string `env:"DANGER_GITHUB_HOST,default=github.com"`
	GitHubAPIHost string `env:"DANGER_GITHUB_API_HOST"`

	GitLabToken   string `env:"DANGER_GITLAB_API_TOKEN"`
	GitLabHost    string `env:"DANGER_GITLAB_HOST,default=gitlab.com"`
	GitLabAPIBase string `env:"DANGER_GITLAB_API_BASE_URL"`

	BitbucketCloudUsername string `env:"DANGER_BITBUCKETCLOUD_USERNAME"`
	BitbucketCloudPassword string `env:"DANGER_BITBUCKETCLOUD_PASSWORD"`

	BitbucketServerUsername string `env:"DANGER_BITBUCKETSERVER_USERNAME"`
	BitbucketServerPassword string `env:"DANGER_BITBUCKETSERVER_PASSWORD"`
	BitbucketServerHost     string `env:"DANGER_BITBUCKETSERVER_HOST"`
}

// decodeHostEnv reads the host variables from env. Empty values count as
// unset so that defaults apply.
func decodeHostEnv(ctx context.Context, env Env) (hostEnv, error) {
	var he hostEnv
	err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &he,
		Lookuper: envconfig.MapLookuper(env.nonEmpty()),
	})
	if err != nil {
		return hostEnv{}, fmt.Errorf("decoding host environment: %w", err)
	}
	return he, nil
}

// hostSpec describes one entry of the host registry.
type hostSpec struct {
	id       HostID
	name     string
	required []string
	optional []string
	// matches reports whether a repository host name belongs to this host.
	matches func(hostname string, he hostEnv) bool
	creds   func(he hostEnv) Credentials
}

// hostRegistry is ordered by priority. When no host can be inferred from a
// repository URL, the first host supported by the CI provider whose
// credentials are present is chosen.
var hostRegistry = []hostSpec{
	{
		id:       HostGitHub,
		name:     "GitHub",
		required: []string{"DANGER_GITHUB_API_TOKEN"},
		optional: []string{"DANGER_GITHUB_HOST", "DANGER_GITHUB_API_HOST"},
		matches: func(h string, he hostEnv) bool {
			return h == bareHost(he.GitHubHost)
		},
		creds: func(he hostEnv) Credentials {
			web := bareHost(he.GitHubHost)
			api := he.GitHubAPIHost
			switch {
			case api != "" && !strings.Contains(api, "://"):
				api = "https://" + api
			case api == "" && web != "github.com":
				api = "https://" + web + "/api/v3/"
			case api == "":
				api = "https://api.github.com/"
			}
			return Credentials{Token: he.GitHubToken, WebHost: web, APIURL: api}
		},
	},
	{
		id:       HostGitLab,
		name:     "GitLab",
		required: []string{"DANGER_GITLAB_API_TOKEN"},
		optional: []string{"DANGER_GITLAB_HOST", "DANGER_GITLAB_API_BASE_URL"},
		matches: func(h string, he hostEnv) bool {
			return h == bareHost(he.GitLabHost)
		},
		creds: func(he hostEnv) Credentials {
			web := bareHost(he.GitLabHost)
			api := he.GitLabAPIBase
			if api == "" {
				api = "https://" + web + "/api/v4"
			}
			return Credentials{Token: he.GitLabToken, WebHost: web, APIURL: api}
		},
	},
	{
		id:       HostBitbucketCloud,
		name:     "Bitbucket Cloud",
		required: []string{"DANGER_BITBUCKETCLOUD_USERNAME", "DANGER_BITBUCKETCLOUD_PASSWORD"},
		matches: func(h string, _ hostEnv) bool {
			return h == "bitbucket.org"
		},
		creds: func(he hostEnv) Credentials {
			return Credentials{
				Username: he.BitbucketCloudUsername,
				Password: he.BitbucketCloudPassword,
				WebHost:  "bitbucket.org",
				APIURL:   "https://api.bitbucket.org/2.0",
			}
		},
	},
	{
		id:       HostBitbucketServer,
		name:     "Bitbucket Server",
		required: []string{"DANGER_BITBUCKETSERVER_USERNAME", "DANGER_BITBUCKETSERVER_PASSWORD", "DANGER_BITBUCKETSERVER_HOST"},
		matches: func(h string, he hostEnv) bool {
			return he.BitbucketServerHost != "" && h == bareHost(he.BitbucketServerHost)
		},
		creds: func(he hostEnv) Credentials {
			api := strings.TrimRight(he.BitbucketServerHost, "/")
			if api != "" && !strings.Contains(api, "://") {
				api = "https://" + api
			}
			return Credentials{
				Username: he.BitbucketServerUsername,
				Password: he.BitbucketServerPassword,
				WebHost:  bareHost(he.BitbucketServerHost),
				APIURL:   api,
			}
		},
	},
}

func lookupHost(id HostID) hostSpec {
	for _, h := range hostRegistry {
		if h.id == id {
			return h
		}
	}
	return hostSpec{id: id, name: string(id)}
}

// HostName returns the display name of a host.
func HostName(id HostID) string {
	return lookupHost(id).name
}

// missing returns the required variables that are absent or empty.
func (h hostSpec) missing(env Env) []string {
	var out []string
	for _, k := range h.required {
		if env.Get(k) == "" {
			out = append(out, k)
		}
	}
	return out
}

// inferHost picks the host whose domain matches the repository URL.
func inferHost(repoURL string, he hostEnv) (hostSpec, bool) {
	hostname := RemoteHost(repoURL)
	if hostname == "" {
		return hostSpec{}, false
	}
	for _, h := range hostRegistry {
		if h.matches(hostname, he) {
			return h, true
		}
	}
	return hostSpec{}, false
}

// bareHost reduces "https://host:port/path" or "host" to the lower-cased
// host name.
func bareHost(s string) string {
	if s == "" {
		return ""
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	return RemoteHost(s)
}
