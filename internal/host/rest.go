package host

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/chainguard-dev/clog"

	"github.com/dshills/danger/internal/redact"
)

// restClient sends JSON requests to one host API.
type restClient struct {
	http *http.Client
	base string
	// auth decorates each request, e.g. with basic auth. It may be nil.
	auth func(*http.Request)
}

// do sends a request to path, which is relative to base unless it is an
// absolute URL, and returns the response body. in is encoded as JSON when
// non-nil. Non-2xx responses become an *APIError. Requests are attempted
// once; failures are reported to the caller.
func (c *restClient) do(ctx context.Context, method, path string, in any) ([]byte, http.Header, error) {
	u := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		u = strings.TrimRight(c.base, "/") + "/" + strings.TrimLeft(path, "/")
	}

	var payload []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, nil, fmt.Errorf("encoding request: %w", err)
		}
		payload = b
	}
	return c.send(ctx, method, u, payload)
}

func (c *restClient) send(ctx context.Context, method, u string, payload []byte) ([]byte, http.Header, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.auth != nil {
		c.auth(req)
	}

	clog.FromContext(ctx).With("method", method, "url", redact.URL(u)).Debug("host request")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%s %s: %w", method, redact.URL(u), err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil, &APIError{Method: method, URL: u, StatusCode: resp.StatusCode, Body: string(data)}
	}
	return data, resp.Header, nil
}
