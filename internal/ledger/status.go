package ledger

// Status is a read-only view of a ledger after the ignore list is applied.
type Status struct {
	Errors   []Violation `json:"errors"`
	Warnings []Violation `json:"warnings"`
	Messages []Violation `json:"messages"`
	Markdown []Markdown  `json:"markdown"`
}

// Counts holds the number of entries per kind.
type Counts struct {
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
	Messages int `json:"messages"`
	Markdown int `json:"markdown"`
}

// Of returns the violations of one kind.
func (s Status) Of(kind Kind) []Violation {
	switch kind {
	case KindError:
		return s.Errors
	case KindWarning:
		return s.Warnings
	case KindMessage:
		return s.Messages
	}
	return nil
}

// Counts returns per-kind totals.
func (s Status) Counts() Counts {
	return Counts{
		Errors:   len(s.Errors),
		Warnings: len(s.Warnings),
		Messages: len(s.Messages),
		Markdown: len(s.Markdown),
	}
}

// Empty reports whether the snapshot has nothing to say.
func (s Status) Empty() bool {
	return len(s.Errors) == 0 && len(s.Warnings) == 0 && len(s.Messages) == 0 && len(s.Markdown) == 0
}

// Failed reports whether unresolved errors exist. It alone decides the
// run's verdict.
func (s Status) Failed() bool {
	return len(s.Errors) > 0
}
