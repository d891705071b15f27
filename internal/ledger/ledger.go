package ledger

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Kind classifies a violation.
type Kind string

const (
	KindError   Kind = "error"
	KindWarning Kind = "warning"
	KindMessage Kind = "message"
)

// Kinds lists violation kinds in rendering order.
var Kinds = []Kind{KindError, KindWarning, KindMessage}

// ParseKind maps a kind name, singular or plural and in any case, to a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "s"))
	switch k {
	case KindError, KindWarning, KindMessage:
		return k, nil
	}
	return "", fmt.Errorf("unknown violation kind %q", s)
}

// Title returns the capitalized singular label, e.g. "Error".
func (k Kind) Title() string {
	if k == "" {
		return ""
	}
	return strings.ToUpper(string(k[:1])) + string(k[1:])
}

// Violation is a single finding. It is immutable once recorded.
type Violation struct {
	Message string `json:"message"`
	Sticky  bool   `json:"sticky"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
}

// Markdown is a freeform block rendered below the summary tables.
type Markdown struct {
	Content string `json:"content"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
}

// ErrSealed is returned when recording into a sealed ledger.
var ErrSealed = errors.New("ledger is sealed")

// Option adjusts a recorded entry.
type Option func(*entry)

type entry struct {
	sticky bool
	file   string
	line   int
}

// Sticky marks a violation as persistent: once it stops being reported it
// stays visible, struck through, in the next comment.
func Sticky() Option {
	return func(e *entry) { e.sticky = true }
}

// At anchors an entry to a file and optional line. A line of 0 means none.
func At(file string, line int) Option {
	return func(e *entry) {
		e.file = file
		e.line = line
	}
}

// Ledger accumulates violations for one run.
type Ledger struct {
	mu       sync.Mutex
	sealed   bool
	entries  map[Kind][]Violation
	markdown []Markdown
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{entries: make(map[Kind][]Violation, len(Kinds))}
}

// Record appends a violation of the given kind.
func (l *Ledger) Record(kind Kind, text string, opts ...Option) error {
	if !slices.Contains(Kinds, kind) {
		return fmt.Errorf("unknown violation kind %q", kind)
	}
	e, err := applyOptions(opts)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sealed {
		return ErrSealed
	}
	l.entries[kind] = append(l.entries[kind], Violation{
		Message: text,
		Sticky:  e.sticky,
		File:    e.file,
		Line:    e.line,
	})
	return nil
}

// Fail records an error.
func (l *Ledger) Fail(text string, opts ...Option) error { return l.Record(KindError, text, opts...) }

// Warn records a warning.
func (l *Ledger) Warn(text string, opts ...Option) error { return l.Record(KindWarning, text, opts...) }

// Message records an informational message.
func (l *Ledger) Message(text string, opts ...Option) error {
	return l.Record(KindMessage, text, opts...)
}

// RecordMarkdown appends a markdown block. Sticky has no meaning for
// markdown and is ignored.
func (l *Ledger) RecordMarkdown(text string, opts ...Option) error {
	e, err := applyOptions(opts)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sealed {
		return ErrSealed
	}
	l.markdown = append(l.markdown, Markdown{Content: text, File: e.file, Line: e.line})
	return nil
}

// Seal makes the ledger read-only.
func (l *Ledger) Seal() {
	l.mu.Lock()
	l.sealed = true
	l.mu.Unlock()
}

// Sealed reports whether Seal has been called.
func (l *Ledger) Sealed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sealed
}

// Status returns a snapshot of the ledger. Violations whose message exactly
// matches an entry of ignore are left out.
func (l *Ledger) Status(ignore []string) Status {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := Status{
		Errors:   filterIgnored(l.entries[KindError], ignore),
		Warnings: filterIgnored(l.entries[KindWarning], ignore),
		Messages: filterIgnored(l.entries[KindMessage], ignore),
		Markdown: slices.Clone(l.markdown),
	}
	return s
}

func applyOptions(opts []Option) (entry, error) {
	var e entry
	for _, opt := range opts {
		opt(&e)
	}
	if e.line < 0 {
		return e, fmt.Errorf("line must be positive, got %d", e.line)
	}
	if e.line > 0 && e.file == "" {
		return e, errors.New("line anchor requires a file")
	}
	return e, nil
}

func filterIgnored(vs []Violation, ignore []string) []Violation {
	out := make([]Violation, 0, len(vs))
	for _, v := range vs {
		if slices.Contains(ignore, v.Message) {
			continue
		}
		out = append(out, v)
	}
	return out
}
