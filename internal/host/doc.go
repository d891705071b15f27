// Package host talks to the code-review site a request lives on.
//
// Each Provider implements the handful of REST operations danger needs:
// listing, creating, updating and deleting comments on the request,
// reading the request's metadata and, where the site supports it, setting
// a commit status. GitHub goes through go-github; GitLab, Bitbucket Cloud
// and Bitbucket Server are spoken to directly over their REST APIs.
package host
