package comment

import "github.com/dshills/danger/internal/ledger"

// State is the reconciliation state of a row.
type State string

const (
	// StateNew rows are reported now and were not in the previous comment.
	StateNew State = "new"
	// StateRecurring rows are reported now and were in the previous comment.
	StateRecurring State = "recurring"
	// StateResolved rows were in the previous comment and are no longer
	// reported. They render struck through.
	StateResolved State = "resolved"
)

// Row is one line of a kind's table.
type Row struct {
	// Text is the violation in cell form, see Cell.
	Text   string
	State  State
	Sticky bool
}

// Section is the table of one kind. Current rows come first in ledger
// order, followed by resolved rows in their previous order.
type Section struct {
	Kind ledger.Kind
	Rows []Row
}

// Count returns the number of rows that are still reported.
func (s Section) Count() int {
	n := 0
	for _, r := range s.Rows {
		if r.State != StateResolved {
			n++
		}
	}
	return n
}

// Resolved returns the texts of the resolved rows.
func (s Section) Resolved() []string {
	var out []string
	for _, r := range s.Rows {
		if r.State == StateResolved {
			out = append(out, r.Text)
		}
	}
	return out
}

// Reconciled is the outcome of comparing a run with the previous comment.
type Reconciled struct {
	// Sections holds the non-empty tables in Error, Warning, Message order.
	Sections []Section
	Markdown []ledger.Markdown
}

// Empty reports whether there is nothing to show at all.
func (r Reconciled) Empty() bool {
	return len(r.Sections) == 0 && len(r.Markdown) == 0
}

// Section returns the table for kind, if there is one.
func (r Reconciled) Section(kind ledger.Kind) (Section, bool) {
	for _, s := range r.Sections {
		if s.Kind == kind {
			return s, true
		}
	}
	return Section{}, false
}

// Reconcile compares the current snapshot with the previous comment's
// rows. Texts are matched exactly in cell form. A violation reported more
// than once renders one row, sticky if any of its reports was.
func Reconcile(status ledger.Status, previous map[ledger.Kind][]string) Reconciled {
	var out Reconciled
	for _, kind := range ledger.Kinds {
		sec := reconcileKind(kind, status.Of(kind), previous[kind])
		if len(sec.Rows) > 0 {
			out.Sections = append(out.Sections, sec)
		}
	}
	out.Markdown = append(out.Markdown, status.Markdown...)
	return out
}

func reconcileKind(kind ledger.Kind, current []ledger.Violation, previous []string) Section {
	prev := make(map[string]bool, len(previous))
	for _, p := range previous {
		prev[p] = true
	}

	sec := Section{Kind: kind}
	index := make(map[string]int, len(current))
	for _, v := range current {
		text := Cell(v.Message)
		if i, ok := index[text]; ok {
			sec.Rows[i].Sticky = sec.Rows[i].Sticky || v.Sticky
			continue
		}
		state := StateNew
		if prev[text] {
			state = StateRecurring
		}
		index[text] = len(sec.Rows)
		sec.Rows = append(sec.Rows, Row{Text: text, State: state, Sticky: v.Sticky})
	}

	for _, p := range previous {
		if _, ok := index[p]; ok {
			continue
		}
		index[p] = len(sec.Rows)
		sec.Rows = append(sec.Rows, Row{Text: p, State: StateResolved, Sticky: true})
	}
	return sec
}
