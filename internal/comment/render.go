package comment

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/dustin/go-humanize/english"

	"github.com/dshills/danger/internal/ledger"
)

// Rendered is the comment body a run wants on the request.
type Rendered struct {
	Body string
	// ShouldDelete is set when there is nothing to show. Body is empty then.
	ShouldDelete bool
}

var kindIcons = map[ledger.Kind]string{
	ledger.KindError:   ":no_entry_sign:",
	ledger.KindWarning: ":warning:",
	ledger.KindMessage: ":book:",
}

const resolvedIcon = ":white_check_mark:"

var compliments = []string{
	"Well done.",
	"Congrats.",
	"Woo!",
	"Yay.",
	"Jolly good show.",
	"Good on 'ya.",
	"Nice work.",
}

// compliment picks a compliment from seed. The same seed always gets the
// same compliment so that re-rendering is stable.
func compliment(seed []string) string {
	h := fnv.New32a()
	for _, s := range seed {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}
	return compliments[h.Sum32()%uint32(len(compliments))]
}

// Title returns the header text of a section: "2 Errors", or a resolved
// check mark with a compliment when every row is resolved.
func Title(s Section) string {
	n := s.Count()
	if n == 0 && len(s.Rows) > 0 {
		return resolvedIcon + " " + compliment(s.Resolved())
	}
	return english.Plural(n, s.Kind.Title(), "")
}

// Render builds the comment body for r. Tables come first in kind order,
// then the markdown blocks in ledger order, then the footer carrying the
// marker for id.
func Render(r Reconciled, id string) Rendered {
	if r.Empty() {
		return Rendered{ShouldDelete: true}
	}

	var b strings.Builder
	for _, s := range r.Sections {
		writeTable(&b, s)
		b.WriteString("\n")
	}
	for _, m := range r.Markdown {
		b.WriteString(m.Content)
		b.WriteString("\n\n")
	}
	writeFooter(&b, id)
	return Rendered{Body: b.String()}
}

func writeTable(b *strings.Builder, s Section) {
	b.WriteString("<table>\n")
	b.WriteString("  <thead>\n")
	b.WriteString("    <tr>\n")
	b.WriteString("      <th width=\"50\"></th>\n")
	fmt.Fprintf(b, "      <th width=\"100%%\" data-danger-table=\"true\" data-kind=\"%s\">%s</th>\n", s.Kind.Title(), Title(s))
	b.WriteString("    </tr>\n")
	b.WriteString("  </thead>\n")
	b.WriteString("  <tbody>\n")
	for _, r := range s.Rows {
		icon, text := kindIcons[s.Kind], r.Text
		if r.State == StateResolved {
			icon, text = resolvedIcon, "<del>"+r.Text+"</del>"
		}
		b.WriteString("    <tr>\n")
		fmt.Fprintf(b, "      <td>%s</td>\n", icon)
		fmt.Fprintf(b, "      <td data-sticky=\"%t\">%s</td>\n", r.Sticky, text)
		b.WriteString("    </tr>\n")
	}
	b.WriteString("  </tbody>\n")
	b.WriteString("</table>\n")
}

func writeFooter(b *strings.Builder, id string) {
	fmt.Fprintf(b, "<p align=\"right\" %s>\n", Marker(id))
	b.WriteString("  Generated by :no_entry_sign: <a href=\"https://danger.systems/\">danger</a>\n")
	b.WriteString("</p>\n")
}
