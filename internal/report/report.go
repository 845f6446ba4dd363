// Package report renders sync summaries and repair reports for terminals.
package report

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/MrJamesThe3rd/clubledger/internal/repair"
	"github.com/MrJamesThe3rd/clubledger/internal/syncer"
)

const maxCellWidth = 40

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}

			return cellStyle
		})
}

// Summary writes a per-kind table of a sync run followed by its totals.
func Summary(w io.Writer, s *syncer.Summary) error {
	t := newTable("Kind", "Processed", "Created", "Skipped", "Failed", "Orphaned", "Result")

	for _, p := range s.Phases {
		result := "ok"
		if p.Aborted() {
			result = errStyle.Render("aborted: " + truncate(p.Err.Error()))
		}

		t.Row(
			string(p.Kind),
			strconv.Itoa(p.Processed),
			strconv.Itoa(p.Created),
			strconv.Itoa(p.Skipped),
			strconv.Itoa(p.Failed),
			strconv.Itoa(p.Orphaned),
			result,
		)
	}

	totals := s.Totals()

	_, err := fmt.Fprintf(w, "%s\n%s\n%s\n",
		titleStyle.Render(fmt.Sprintf("%s sync since %s (%s)",
			s.Mode, s.Since.Format(time.DateOnly), s.Duration().Round(time.Millisecond))),
		t.String(),
		fmt.Sprintf("created %d, skipped %d, failed %d, orphaned %d; amounts created: %s",
			totals.Created, totals.Skipped, totals.Failed, totals.Orphaned, amounts(totals.Amounts)),
	)

	return err
}

func amounts(byCurrency map[string]int64) string {
	if len(byCurrency) == 0 {
		return "none"
	}

	out := ""

	for i, code := range slices.Sorted(maps.Keys(byCurrency)) {
		if i > 0 {
			out += ", "
		}

		out += FormatAmount(byCurrency[code], code)
	}

	return out
}

// Repair writes the changes of a repair report and the apply counts.
func Repair(w io.Writer, r *repair.Report) error {
	mode := "applied"
	if r.DryRun {
		mode = "dry run"
	}

	title := titleStyle.Render(fmt.Sprintf("%s (%s): %d examined, %d changes", r.Procedure, mode, r.Examined, len(r.Changes)))

	if len(r.Changes) == 0 {
		_, err := fmt.Fprintf(w, "%s\nnothing to do\n", title)
		return err
	}

	t := newTable("Target", "ID", "External ID", "Field", "From", "To")

	for _, c := range r.Changes {
		t.Row(string(c.Target), c.TargetID.String(), c.ExternalID, c.Field, truncate(c.From), truncate(c.To))
	}

	footer := ""
	if !r.DryRun {
		footer = fmt.Sprintf("applied %d, failed %d\n", r.Applied, r.Failed)
	}

	_, err := fmt.Fprintf(w, "%s\n%s\n%s", title, t.String(), footer)

	return err
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= maxCellWidth {
		return s
	}

	return string(r[:maxCellWidth-1]) + "…"
}
