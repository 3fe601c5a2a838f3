package output

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/samvad-hq/overlod-admin/internal/monitor"
	"github.com/samvad-hq/overlod-admin/internal/storage"
	"github.com/samvad-hq/overlod-admin/pkg/discovery"
	"github.com/samvad-hq/overlod-admin/pkg/httpclient"
	"github.com/samvad-hq/overlod-admin/pkg/lod"
)

const (
	successIcon = "✓"
	errorIcon   = "✗"
)

// Printer renders command results to out and failures to errOut.
type Printer struct {
	out    io.Writer
	errOut io.Writer
	scheme *ColorScheme
}

// NewPrinter builds a Printer. color selects DefaultColorScheme over NoColorScheme.
func NewPrinter(out, errOut io.Writer, color bool) *Printer {
	scheme := NoColorScheme()
	if color {
		scheme = DefaultColorScheme()
	}
	return &Printer{out: out, errOut: errOut, scheme: scheme}
}

// Success prints a confirmation line. Empty server messages get a default.
func (p *Printer) Success(msg string) {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		msg = "done"
	}
	fmt.Fprintf(p.out, "%s %s\n", p.scheme.Success.Sprint(successIcon), msg)
}

// Failure prints err as "✗ <reason> (<status>): <message>".
func (p *Printer) Failure(err error) {
	fmt.Fprintf(p.errOut, "%s %s\n", p.scheme.Error.Sprint(errorIcon), FormatError(err))
}

// FormatError renders err without color.
func FormatError(err error) string {
	if err == nil {
		return ""
	}
	if se, ok := lod.AsServerError(err); ok {
		line := fmt.Sprintf("%s (%d)", se.Reason, se.Status)
		if se.Message != "" {
			line += ": " + se.Message
		}
		return line
	}
	var unhandled *httpclient.UnhandledResponseError
	if errors.As(err, &unhandled) {
		return fmt.Sprintf("%s (%d)", lod.ReasonFor(unhandled.Status), unhandled.Status)
	}
	return err.Error()
}

// Raw writes body as-is, adding a trailing newline when missing.
func (p *Printer) Raw(body []byte) {
	_, _ = p.out.Write(body)
	if len(body) > 0 && body[len(body)-1] != '\n' {
		fmt.Fprintln(p.out)
	}
}

// Lines prints one item per line.
func (p *Printer) Lines(items []string) {
	for _, it := range items {
		fmt.Fprintln(p.out, it)
	}
}

// Sources prints EDS entries as a table.
func (p *Printer) Sources(params []lod.EDSParams) {
	tw := tabwriter.NewWriter(p.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, p.scheme.Key.Sprint("CONTEXT")+"\t"+p.scheme.Key.Sprint("TYPE")+"\t"+
		p.scheme.Key.Sprint("CONTENT-TYPE")+"\t"+p.scheme.Key.Sprint("URL")+"\t"+p.scheme.Key.Sprint("TIMESTAMP"))
	for _, s := range params {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", s.Context, s.EDSType, dash(s.ContentType), s.URL, dash(s.TimeStamp))
	}
	_ = tw.Flush()
}

// Bindings prints SPARQL solutions as a table with sorted variable columns.
func (p *Printer) Bindings(rows []lod.Binding) {
	if len(rows) == 0 {
		fmt.Fprintln(p.out, p.scheme.Muted.Sprint("(no results)"))
		return
	}
	varSet := map[string]bool{}
	for _, r := range rows {
		for v := range r {
			varSet[v] = true
		}
	}
	vars := make([]string, 0, len(varSet))
	for v := range varSet {
		vars = append(vars, v)
	}
	sort.Strings(vars)

	tw := tabwriter.NewWriter(p.out, 0, 4, 2, ' ', 0)
	header := make([]string, len(vars))
	for i, v := range vars {
		header[i] = p.scheme.Key.Sprint("?" + v)
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, r := range rows {
		cells := make([]string, len(vars))
		for i, v := range vars {
			cells[i] = formatTerm(r[v])
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	_ = tw.Flush()
}

// Alternates prints discovered RDF links.
func (p *Printer) Alternates(alts []discovery.Alternate) {
	if len(alts) == 0 {
		fmt.Fprintln(p.out, p.scheme.Muted.Sprint("(no rdf alternates found)"))
		return
	}
	for _, a := range alts {
		line := fmt.Sprintf("%s  %s", p.scheme.Highlight.Sprint(a.Type), a.URL)
		if a.Title != "" {
			line += "  " + p.scheme.Muted.Sprint(a.Title)
		}
		fmt.Fprintln(p.out, line)
	}
}

// Report prints one line per checked source.
func (p *Printer) Report(r monitor.Report) {
	for _, c := range r.Checks {
		line := fmt.Sprintf("%s  %s  %s", p.outcome(c.Outcome), c.Source.Context, stamp(c.LastModified))
		if c.Detail != "" {
			line += "  " + p.scheme.Muted.Sprint(c.Detail)
		}
		fmt.Fprintln(p.out, line)
	}
	for _, g := range r.Forgotten {
		fmt.Fprintf(p.out, "%s  %s\n", p.scheme.Muted.Sprintf("%-10s", "forgotten"), g)
	}
}

// Stamps prints the freshness ledger.
func (p *Printer) Stamps(entries []storage.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(p.out, p.scheme.Muted.Sprint("(no recorded stamps)"))
		return
	}
	tw := tabwriter.NewWriter(p.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, p.scheme.Key.Sprint("CONTEXT")+"\t"+p.scheme.Key.Sprint("LAST-MODIFIED")+"\t"+
		p.scheme.Key.Sprint("RECORDED")+"\t"+p.scheme.Key.Sprint("EXPIRES"))
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Graph, stamp(e.LastModified), stamp(e.RecordedAt), stamp(e.ExpiresAt))
	}
	_ = tw.Flush()
}

func (p *Printer) outcome(o monitor.Outcome) string {
	label := fmt.Sprintf("%-10s", o)
	switch o {
	case monitor.OutcomeChanged:
		return p.scheme.Highlight.Sprint(label)
	case monitor.OutcomeFailed:
		return p.scheme.Error.Sprint(label)
	case monitor.OutcomeSkipped:
		return p.scheme.Warn.Sprint(label)
	default:
		return p.scheme.Success.Sprint(label)
	}
}

func formatTerm(t lod.Term) string {
	switch {
	case t.Value == "" && t.Type == "":
		return ""
	case t.Type == "uri":
		return "<" + t.Value + ">"
	case t.Type == "bnode":
		return "_:" + t.Value
	case t.Lang != "":
		return fmt.Sprintf("%q@%s", t.Value, t.Lang)
	case t.Datatype != "":
		return fmt.Sprintf("%q^^<%s>", t.Value, t.Datatype)
	default:
		return fmt.Sprintf("%q", t.Value)
	}
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func dash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
