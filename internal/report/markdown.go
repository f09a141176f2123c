package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/htmldepth/internal/model"
)

// maxCellLength caps table cells so long text lines keep tables readable.
const maxCellLength = 80

// MarkdownWriter outputs GitHub-flavored Markdown.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write renders a results table, a status chart, and an overall alert.
func (w *MarkdownWriter) Write(analyses []*model.Analysis) (int, error) {
	done := completed(analyses)
	counts := countStatuses(done)

	md := markdown.NewMarkdown(w.output)
	md.H1("htmldepth Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header:    []string{"URL", "Result", "Depth", "Detail"},
		Rows:      analysisRows(done),
		Alignment: []markdown.TableAlignment{markdown.AlignLeft, markdown.AlignLeft, markdown.AlignRight, markdown.AlignLeft},
	})
	md.PlainText("")

	if len(done) > 1 {
		w.writePieChart(md, counts)
	}
	w.writeAlert(md, counts)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteHistory renders the summary and the stored analyses.
func (w *MarkdownWriter) WriteHistory(history *History) (int, error) {
	md := markdown.NewMarkdown(w.output)

	if history.URL != "" {
		md.H1f("History of %s", history.URL)
	} else {
		md.H1("History")
	}
	md.PlainText("")

	if s := history.Summary; s != nil {
		md.H2("Summary")
		md.PlainText("")
		md.Table(markdown.TableSet{
			Header:    []string{"Status", "Count"},
			Alignment: []markdown.TableAlignment{markdown.AlignLeft, markdown.AlignRight},
			Rows: [][]string{
				{"✅ ok", strconv.Itoa(s.OK)},
				{"⚠️ malformed", strconv.Itoa(s.Malformed)},
				{"❌ connection error", strconv.Itoa(s.ConnectionErrors)},
				{"**Total**", "**" + strconv.Itoa(s.Total) + "**"},
			},
		})
		md.PlainText("")
	}

	md.H2("Analyses")
	md.PlainText("")
	if len(history.Analyses) == 0 {
		md.PlainText("No analyses recorded.")
		md.PlainText("")
	} else {
		rows := make([][]string, len(history.Analyses))
		for i, a := range history.Analyses {
			rows[i] = []string{
				a.StartedAt.Local().Format(historyTimeFormat),
				escapeCell(a.URL),
				statusIcon(a.Status) + " " + escapeCell(truncateString(a.Output(), maxCellLength)),
			}
		}
		md.Table(markdown.TableSet{
			Header: []string{"Analyzed", "URL", "Result"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	w.writeFooter(md)
	return len(md.String()), md.Build()
}

// WriteURLs renders the analysed URLs as a bullet list.
func (w *MarkdownWriter) WriteURLs(urls []string) (int, error) {
	md := markdown.NewMarkdown(w.output)
	md.H1("Analyzed URLs")
	md.PlainText("")
	if len(urls) == 0 {
		md.PlainText("No analyses recorded.")
	} else {
		items := make([]string, len(urls))
		for i, u := range urls {
			items[i] = "<" + u + ">"
		}
		md.BulletList(items...)
	}
	md.PlainText("")

	w.writeFooter(md)
	return len(md.String()), md.Build()
}

func analysisRows(analyses []*model.Analysis) [][]string {
	rows := make([][]string, len(analyses))
	for i, a := range analyses {
		depth := "-"
		if a.Status == model.StatusOK {
			depth = strconv.Itoa(a.Depth)
		}
		rows[i] = []string{
			escapeCell(a.URL),
			statusIcon(a.Status) + " " + escapeCell(truncateString(a.Output(), maxCellLength)),
			depth,
			escapeCell(truncateString(detail(a), maxCellLength)),
		}
	}
	return rows
}

// detail explains a non-text verdict for the Detail column.
func detail(a *model.Analysis) string {
	switch a.Status {
	case model.StatusMalformed:
		if a.Line > 0 {
			return "line " + strconv.Itoa(a.Line) + ": " + a.Reason
		}
		return a.Reason
	case model.StatusConnectionError:
		return a.Error
	default:
		return "-"
	}
}

func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, counts map[model.Status]int) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Results"),
		piechart.WithShowData(true),
	)
	for _, status := range model.Statuses() {
		if n := counts[status]; n > 0 {
			chart.LabelAndIntValue(status.String(), uint64(n))
		}
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, counts map[model.Status]int) {
	switch {
	case counts[model.StatusConnectionError] > 0:
		md.Warningf("%d URL(s) could not be retrieved.", counts[model.StatusConnectionError])
	case counts[model.StatusMalformed] > 0:
		md.Importantf("%d document(s) are malformed.", counts[model.StatusMalformed])
	default:
		md.Tip("Every document is well formed.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Report generated by [htmldepth](https://github.com/nao1215/htmldepth)*")
}

func countStatuses(analyses []*model.Analysis) map[model.Status]int {
	counts := make(map[model.Status]int, 3)
	for _, a := range analyses {
		counts[a.Status]++
	}
	return counts
}

func statusIcon(status model.Status) string {
	switch status {
	case model.StatusOK:
		return "✅"
	case model.StatusMalformed:
		return "⚠️"
	case model.StatusConnectionError:
		return "❌"
	default:
		return "❔"
	}
}

// escapeCell keeps pipes and line breaks from breaking table rows.
func escapeCell(s string) string {
	if s == "" {
		return "-"
	}
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}

// truncateString shortens s to maxLen runes with an ellipsis.
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
