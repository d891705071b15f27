package dangerfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultNames are the file names tried, in order, when no Dangerfile is
// configured.
var DefaultNames = []string{"Dangerfile.yml", "Dangerfile.yaml", "Dangerfile"}

// ErrNotFound is returned by Find when no default Dangerfile exists.
var ErrNotFound = errors.New("no Dangerfile found")

// ExecutionError is a problem in a Dangerfile, located by file and line.
type ExecutionError struct {
	File string
	Line int
	Err  error
}

func (e *ExecutionError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %v", e.File, e.Line, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.File, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// Conditions are the checks of a rule. Unset conditions always hold.
type Conditions struct {
	Added         []string `yaml:"added"`
	Deleted       []string `yaml:"deleted"`
	Modified      []string `yaml:"modified"`
	Touched       []string `yaml:"touched"`
	NotModified   []string `yaml:"not_modified"`
	MaxLines      *int     `yaml:"max_lines"`
	TitleMatches  string   `yaml:"title_matches"`
	BodyMatches   string   `yaml:"body_matches"`
	BodyEmpty     bool     `yaml:"body_empty"`
	CommitMatches string   `yaml:"commit_matches"`
	Labels        []string `yaml:"labels"`
}

// Rule is one entry of a Dangerfile.
type Rule struct {
	Name     string     `yaml:"name"`
	When     Conditions `yaml:"when"`
	Fail     string     `yaml:"fail"`
	Warn     string     `yaml:"warn"`
	Message  string     `yaml:"message"`
	Markdown string     `yaml:"markdown"`
	Sticky   bool       `yaml:"sticky"`
	File     string     `yaml:"file"`
	Line     int        `yaml:"line"`

	pos     int
	action  string
	text    string
	title   *regexp.Regexp
	body    *regexp.Regexp
	commits *regexp.Regexp
}

// Dangerfile is a parsed, validated rule set.
type Dangerfile struct {
	Path  string
	Rules []Rule
}

var (
	topKeys  = []string{"rules"}
	ruleKeys = []string{"name", "when", "fail", "warn", "message", "markdown", "sticky", "file", "line"}
	whenKeys = []string{
		"added", "deleted", "modified", "touched", "not_modified", "max_lines",
		"title_matches", "body_matches", "body_empty", "commit_matches", "labels",
	}
)

// Find returns the first of DefaultNames that exists in dir.
func Find(dir string) (string, error) {
	for _, name := range DefaultNames {
		p := filepath.Join(dir, name)
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w in %s (tried %s)", ErrNotFound, dir, strings.Join(DefaultNames, ", "))
}

// Load reads and parses the Dangerfile at path.
func Load(path string) (*Dangerfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ExecutionError{File: path, Err: err}
	}
	return Parse(path, data)
}

var yamlLineRe = regexp.MustCompile(`line (\d+)`)

// Parse parses Dangerfile source. path is used in error messages.
func Parse(path string, data []byte) (*Dangerfile, error) {
	df := &Dangerfile{Path: path}
	fail := func(line int, format string, args ...any) error {
		return &ExecutionError{File: path, Line: line, Err: fmt.Errorf(format, args...)}
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		line := 0
		if m := yamlLineRe.FindStringSubmatch(err.Error()); m != nil {
			line, _ = strconv.Atoi(m[1])
		}
		return nil, &ExecutionError{File: path, Line: line, Err: err}
	}
	if len(doc.Content) == 0 {
		return df, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fail(root.Line, "expected a mapping with a rules list")
	}
	if err := checkKeys(path, root, topKeys); err != nil {
		return nil, err
	}

	rules := lookup(root, "rules")
	if rules == nil || rules.Tag == "!!null" {
		return df, nil
	}
	if rules.Kind != yaml.SequenceNode {
		return nil, fail(rules.Line, "rules must be a list")
	}
	for _, n := range rules.Content {
		r, err := parseRule(path, n)
		if err != nil {
			return nil, err
		}
		df.Rules = append(df.Rules, r)
	}
	return df, nil
}

func parseRule(path string, n *yaml.Node) (Rule, error) {
	fail := func(format string, args ...any) error {
		return &ExecutionError{File: path, Line: n.Line, Err: fmt.Errorf(format, args...)}
	}
	if n.Kind != yaml.MappingNode {
		return Rule{}, fail("rule must be a mapping")
	}
	if err := checkKeys(path, n, ruleKeys); err != nil {
		return Rule{}, err
	}
	if when := lookup(n, "when"); when != nil {
		if when.Kind != yaml.MappingNode {
			return Rule{}, &ExecutionError{File: path, Line: when.Line, Err: errors.New("when must be a mapping")}
		}
		if err := checkKeys(path, when, whenKeys); err != nil {
			return Rule{}, err
		}
	}

	var r Rule
	if err := n.Decode(&r); err != nil {
		return Rule{}, fail("%v", err)
	}
	r.pos = n.Line

	actions := 0
	for _, a := range []struct{ name, text string }{
		{"fail", r.Fail},
		{"warn", r.Warn},
		{"message", r.Message},
		{"markdown", r.Markdown},
	} {
		if a.text != "" {
			actions++
			r.action, r.text = a.name, a.text
		}
	}
	if actions != 1 {
		return Rule{}, fail("rule %s must have exactly one of fail, warn, message or markdown, has %d", r.label(), actions)
	}
	if r.Line < 0 || (r.Line > 0 && r.File == "") {
		return Rule{}, fail("rule %s: line must be positive and requires file", r.label())
	}
	if r.When.MaxLines != nil && *r.When.MaxLines < 0 {
		return Rule{}, fail("rule %s: max_lines must not be negative", r.label())
	}

	var err error
	if r.title, err = compile(r.When.TitleMatches); err != nil {
		return Rule{}, fail("rule %s: title_matches: %v", r.label(), err)
	}
	if r.body, err = compile(r.When.BodyMatches); err != nil {
		return Rule{}, fail("rule %s: body_matches: %v", r.label(), err)
	}
	if r.commits, err = compile(r.When.CommitMatches); err != nil {
		return Rule{}, fail("rule %s: commit_matches: %v", r.label(), err)
	}
	for _, g := range globs(r.When) {
		if _, err := filepath.Match(g, ""); err != nil {
			return Rule{}, fail("rule %s: bad pattern %q: %v", r.label(), g, err)
		}
	}
	return r, nil
}

func (r Rule) label() string {
	if r.Name != "" {
		return strconv.Quote(r.Name)
	}
	return "at line " + strconv.Itoa(r.pos)
}

func globs(c Conditions) []string {
	return slices.Concat(c.Added, c.Deleted, c.Modified, c.Touched, c.NotModified)
}

func compile(expr string) (*regexp.Regexp, error) {
	if expr == "" {
		return nil, nil
	}
	return regexp.Compile(expr)
}

func checkKeys(path string, m *yaml.Node, allowed []string) error {
	for i := 0; i+1 < len(m.Content); i += 2 {
		k := m.Content[i]
		if !slices.Contains(allowed, k.Value) {
			return &ExecutionError{
				File: path,
				Line: k.Line,
				Err:  fmt.Errorf("unknown key %q (allowed: %s)", k.Value, strings.Join(allowed, ", ")),
			}
		}
	}
	return nil
}

func lookup(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}
