package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/danger/internal/comment"
	"github.com/dshills/danger/internal/gitctx"
	"github.com/dshills/danger/internal/host"
	"github.com/dshills/danger/internal/ledger"
	"github.com/dshills/danger/internal/review"
	"github.com/dshills/danger/internal/source"
)

func sampleReport() *review.Report {
	status := ledger.Status{
		Errors:   []ledger.Violation{{Message: "go.mod changed without go.sum", Sticky: true}},
		Warnings: []ledger.Violation{{Message: "Big PR", File: "main.go", Line: 12}},
		Messages: []ledger.Violation{{Message: "Thanks!", File: "README.md"}},
		Markdown: []ledger.Markdown{{Content: "### Notes"}},
	}
	return &review.Report{
		Tool:    "danger",
		Version: "1.0",
		RunID:   "run-1",
		Source: &source.Resolved{
			CI: source.CITravis, Host: source.HostGitHub, RepoSlug: "org/app", PullRequestID: "7",
		},
		Request: &host.Request{Title: "Add dep"},
		Diff: review.DiffInfo{
			Base:       "main",
			Head:       "0123456789abcdef0123456789abcdef01234567",
			Modified:   gitctx.FileList{"go.mod"},
			Insertions: 2,
			Commits:    1,
		},
		Status:     status,
		Counts:     status.Counts(),
		Comment:    &review.CommentInfo{Action: comment.ActionCreate, CommentID: "42", Applied: true},
		HostErrors: []string{"fake: status: boom"},
		Failed:     true,
	}
}

func TestGetWriter(t *testing.T) {
	for _, f := range append(Formats, "") {
		_, err := GetWriter(f)
		assert.NoError(t, err, f)
	}
	_, err := GetWriter("markdown")
	assert.Error(t, err)
}

func TestTextWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&TextWriter{NoColor: true}).Write(&buf, sampleReport()))
	out := buf.String()

	for _, want := range []string{
		"Danger on travis for org/app#7 (github)",
		"Request: Add dep",
		"main...01234567",
		"1 file modified",
		"1 commit",
		"[x] 1 Error",
		"go.mod changed without go.sum (sticky)",
		"[!] 1 Warning",
		"main.go:12",
		"README.md",
		"### Notes",
		"Comment: create (applied), id 42",
		"Host error: fake: status: boom",
		"Danger failed: 1 error",
	} {
		assert.Contains(t, out, want)
	}
}

func TestTextWriter_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&TextWriter{NoColor: true}).Write(&buf, &review.Report{}))
	assert.Contains(t, buf.String(), "Nothing to report")
	assert.Contains(t, buf.String(), "Danger passed")
}

func TestJSONWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&JSONWriter{}).Write(&buf, sampleReport()))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "danger", got["tool"])
	assert.Equal(t, true, got["failed"])
	assert.NotContains(t, buf.String(), "Credentials")
}

func TestSARIFWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&SARIFWriter{}).Write(&buf, sampleReport()))

	var log sarifLog
	require.NoError(t, json.Unmarshal(buf.Bytes(), &log))
	require.Len(t, log.Runs, 1)
	run := log.Runs[0]
	assert.Len(t, run.Tool.Driver.Rules, 3)
	require.Len(t, run.Results, 3)

	assert.Equal(t, "danger/error", run.Results[0].RuleID)
	assert.Equal(t, "error", run.Results[0].Level)
	assert.Empty(t, run.Results[0].Locations)
	require.NotNil(t, run.Results[0].Properties)

	assert.Equal(t, "warning", run.Results[1].Level)
	require.Len(t, run.Results[1].Locations, 1)
	assert.Equal(t, "main.go", run.Results[1].Locations[0].PhysicalLocation.ArtifactLocation.URI)
	assert.Equal(t, 12, run.Results[1].Locations[0].PhysicalLocation.Region.StartLine)

	assert.Equal(t, "note", run.Results[2].Level)
	assert.Nil(t, run.Results[2].Locations[0].PhysicalLocation.Region)
}

func TestSARIFWriter_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&SARIFWriter{}).Write(&buf, &review.Report{}))
	assert.Contains(t, buf.String(), `"results": []`)
}

func TestWriteReport_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, WriteReport(sampleReport(), "json", path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"runId": "run-1"`)
}
