package inspect

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
)

var titleStyle = lipgloss.NewStyle().Bold(true)

// Render writes p as a human-readable report.
func Render(w io.Writer, p Profile) error {
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n", titleStyle.Render("table "+p.Table))
	fmt.Fprintf(&b, "rows: %s\n", humanize.Comma(int64(p.Rows)))
	fmt.Fprintf(&b, "duplicate groups: %d (%d surplus rows)\n\n", p.DuplicateGroups, p.DuplicateRows)

	cols := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("column", "kind", "nulls", "empty", "padded", "distinct", "top values")
	for _, c := range p.Columns {
		cols.Row(c.Name, c.Kind, strconv.Itoa(c.Nulls), strconv.Itoa(c.Empty),
			strconv.Itoa(c.Padded), strconv.Itoa(c.Distinct), joinTop(c.Top))
	}
	b.WriteString(cols.Render())
	b.WriteString("\n")

	if len(p.Twins) > 0 {
		fmt.Fprintf(&b, "\n%s\n", titleStyle.Render("trailing terminator variants"))
		for _, t := range p.Twins {
			fmt.Fprintf(&b, "  %s: %q (%d rows) has twin %q\n", t.Column, t.Value, t.Rows, t.Bare)
		}
	}
	if len(p.Clusters) > 0 {
		fmt.Fprintf(&b, "\n%s\n", titleStyle.Render("collapse candidates"))
		for _, c := range p.Clusters {
			fmt.Fprintf(&b, "  %s %q: %s\n", c.Column, c.Root, joinTop(c.Values))
		}
	}
	if len(p.BadDates) > 0 {
		fmt.Fprintf(&b, "\n%s\n", titleStyle.Render(fmt.Sprintf("dates not matching %s", p.DateLayout)))
		for _, d := range p.BadDates {
			fmt.Fprintf(&b, "  row %d: %q\n", d.Seq, d.Value)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderJSON writes p as indented JSON.
func RenderJSON(w io.Writer, p Profile) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(p)
}

func joinTop(vs []ValueCount) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = fmt.Sprintf("%q (%d)", v.Value, v.Count)
	}
	return strings.Join(parts, ", ")
}
