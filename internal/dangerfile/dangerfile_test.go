package dangerfile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/danger/internal/gitctx"
	"github.com/dshills/danger/internal/host"
	"github.com/dshills/danger/internal/ledger"
)

const sample = `rules:
  - name: big-pr
    when: { max_lines: 10 }
    warn: "Big PR, consider splitting"
  - when: { modified: ["go.mod"], not_modified: ["go.sum"] }
    fail: "go.mod changed without go.sum"
    sticky: true
  - when: { title_matches: "^WIP" }
    message: "Work in progress"
  - when: { added: ["**/*.go"] }
    message: "New Go files: {{files}}"
    file: cmd/main.go
    line: 3
  - when: { body_empty: true }
    fail: "Please describe this change"
  - when: { commit_matches: "(?i)fixup!" }
    warn: "Squash fixup commits"
  - when: { labels: ["skip-review"] }
    message: "Review skipped"
  - markdown: "### Thanks for the contribution"
`

func evaluate(t *testing.T, src string, in Input) ledger.Status {
	t.Helper()
	df, err := Parse("Dangerfile.yml", []byte(src))
	require.NoError(t, err)
	l := ledger.New()
	require.NoError(t, df.Evaluate(context.Background(), in, l))
	return l.Status(nil)
}

func TestEvaluate(t *testing.T) {
	in := Input{
		Diff: &gitctx.DiffStat{
			Added:      gitctx.FileList{"cmd/new.go", "internal/x/y.go", "README.md"},
			Modified:   gitctx.FileList{"go.mod"},
			Insertions: 8,
			Deletions:  4,
			Commits: []gitctx.Commit{
				{SHA: "1", Message: "Add things"},
				{SHA: "2", Message: "fixup! Add things"},
			},
		},
		Request: &host.Request{Title: "WIP: things", Labels: []string{"ui"}},
	}

	got := evaluate(t, sample, in)
	want := ledger.Status{
		Errors: []ledger.Violation{
			{Message: "go.mod changed without go.sum", Sticky: true},
			{Message: "Please describe this change"},
		},
		Warnings: []ledger.Violation{
			{Message: "Big PR, consider splitting"},
			{Message: "Squash fixup commits"},
		},
		Messages: []ledger.Violation{
			{Message: "Work in progress"},
			{Message: "New Go files: `cmd/new.go`, `internal/x/y.go`", File: "cmd/main.go", Line: 3},
		},
		Markdown: []ledger.Markdown{{Content: "### Thanks for the contribution"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Evaluate mismatch (-want +got):\n%s", diff)
	}
}

func TestEvaluate_ConditionsCanFail(t *testing.T) {
	in := Input{
		Diff: &gitctx.DiffStat{
			Modified:   gitctx.FileList{"go.mod", "go.sum"},
			Insertions: 1,
		},
		Request: &host.Request{Title: "Bump deps", Body: "Routine.", Labels: []string{"skip-review"}},
	}

	got := evaluate(t, sample, in)
	assert.Empty(t, got.Errors)
	assert.Empty(t, got.Warnings)
	assert.Equal(t, []ledger.Violation{{Message: "Review skipped"}}, got.Messages)
	assert.Len(t, got.Markdown, 1)
}

func TestEvaluate_NilInputs(t *testing.T) {
	got := evaluate(t, sample, Input{})
	assert.Equal(t, []ledger.Violation{{Message: "Please describe this change"}}, got.Errors)
}

func TestEvaluate_SealedLedger(t *testing.T) {
	df, err := Parse("Dangerfile.yml", []byte("rules:\n  - fail: always\n"))
	require.NoError(t, err)
	l := ledger.New()
	l.Seal()

	err = df.Evaluate(context.Background(), Input{}, l)
	var ee *ExecutionError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, 2, ee.Line)
	assert.ErrorIs(t, err, ledger.ErrSealed)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line int
		want string
	}{
		{"syntax", "rules:\n\t- fail: x\n", 2, "cannot start any token"},
		{"top key", "rulez: []\n", 1, `unknown key "rulez"`},
		{"rule key", "rules:\n  - fail: x\n    severity: high\n", 3, `unknown key "severity"`},
		{"when key", "rules:\n  - fail: x\n    when:\n      changed: [a]\n", 4, `unknown key "changed"`},
		{"no action", "rules:\n  - name: empty\n", 2, "exactly one"},
		{"two actions", "rules:\n  - fail: a\n    warn: b\n", 2, "has 2"},
		{"bad regexp", "rules:\n  - when: { title_matches: \"(\" }\n    fail: x\n", 2, "title_matches"},
		{"bad glob", "rules:\n  - when: { added: [\"[\"] }\n    fail: x\n", 2, "bad pattern"},
		{"bad type", "rules:\n  - when: { max_lines: lots }\n    fail: x\n", 2, ""},
		{"line without file", "rules:\n  - fail: x\n    line: 4\n", 2, "requires file"},
		{"not a list", "rules: {}\n", 1, "must be a list"},
		{"not a mapping", "- a\n", 1, "mapping"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("Dangerfile.yml", []byte(tt.src))
			var ee *ExecutionError
			require.ErrorAs(t, err, &ee)
			assert.Equal(t, "Dangerfile.yml", ee.File)
			assert.Equal(t, tt.line, ee.Line)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParse_Empty(t *testing.T) {
	df, err := Parse("Dangerfile.yml", nil)
	require.NoError(t, err)
	assert.Empty(t, df.Rules)

	df, err = Parse("Dangerfile.yml", []byte("rules:\n"))
	require.NoError(t, err)
	assert.Empty(t, df.Rules)
}

func TestFindAndLoad(t *testing.T) {
	dir := t.TempDir()
	_, err := Find(dir)
	assert.True(t, errors.Is(err, ErrNotFound))

	path := filepath.Join(dir, "Dangerfile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	found, err := Find(dir)
	require.NoError(t, err)
	assert.Equal(t, path, found)

	df, err := Load(found)
	require.NoError(t, err)
	assert.Len(t, df.Rules, 8)

	_, err = Load(filepath.Join(dir, "missing.yml"))
	var ee *ExecutionError
	assert.ErrorAs(t, err, &ee)
}
