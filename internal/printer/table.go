package printer

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/slok/projplan/internal/app/analyze"
	"github.com/slok/projplan/internal/app/baselinecompare"
	"github.com/slok/projplan/internal/model"
)

// TablePrinter prints project plan information in a table format.
type TablePrinter struct {
	writer   io.Writer
	critical *color.Color
	conflict *color.Color
	late     *color.Color
	early    *color.Color
	bold     *color.Color
}

// NewTablePrinter creates a new table printer. Colors are only used when noColor
// is false and the output supports them.
func NewTablePrinter(w io.Writer, noColor bool) *TablePrinter {
	t := &TablePrinter{
		writer:   w,
		critical: color.New(color.FgRed, color.Bold),
		conflict: color.New(color.FgYellow),
		late:     color.New(color.FgRed),
		early:    color.New(color.FgGreen),
		bold:     color.New(color.Bold),
	}

	if noColor {
		for _, c := range []*color.Color{t.critical, t.conflict, t.late, t.early, t.bold} {
			c.DisableColor()
		}
	}

	return t
}

// table renders tab separated rows aligned. Colors are applied per line after
// aligning so the escape codes don't break the column widths.
type table struct {
	buf    bytes.Buffer
	tw     *tabwriter.Writer
	colors []*color.Color
}

func newTable(header string) *table {
	t := &table{}
	t.tw = tabwriter.NewWriter(&t.buf, 0, 0, 2, ' ', 0)
	t.add(nil, header)
	return t
}

func (t *table) add(c *color.Color, cells ...string) {
	fmt.Fprintln(t.tw, strings.Join(cells, "\t"))
	t.colors = append(t.colors, c)
}

func (t *table) write(w io.Writer) error {
	if err := t.tw.Flush(); err != nil {
		return err
	}

	lines := strings.Split(strings.TrimSuffix(t.buf.String(), "\n"), "\n")
	for i, line := range lines {
		line = strings.TrimRight(line, " ")
		if c := t.colors[i]; c != nil {
			line = c.Sprint(line)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// PrintSchedule prints the schedule rows as an indented task tree followed by the summary.
func (t *TablePrinter) PrintSchedule(report analyze.Report) error {
	if len(report.Rows) > 0 {
		tb := newTable("TASK\tSTART\tEND\tDAYS\tDEPENDS ON\tPROGRESS\tSTATUS\tFLOAT\tFLAGS")
		for _, r := range report.Rows {
			var c *color.Color
			switch {
			case r.Critical:
				c = t.critical
			case r.Conflicting:
				c = t.conflict
			}

			days := "-"
			if r.Task.DurationDays != nil {
				days = fmt.Sprintf("%d", *r.Task.DurationDays)
			}

			tb.add(c,
				strings.Repeat("  ", r.Depth)+string(r.Task.Name),
				dateOrDash(r.Task.EffectiveStart()),
				dateOrDash(r.Task.EffectiveEnd()),
				days,
				model.FormatDependencies(r.Task.Dependencies),
				fmt.Sprintf("%d%%", r.Task.PercentComplete),
				string(r.Task.Status),
				fmt.Sprintf("%d", r.Float),
				rowFlags(r),
			)
		}
		if err := tb.write(t.writer); err != nil {
			return err
		}
		fmt.Fprintln(t.writer)
	}

	if !report.ProjectFinish.IsZero() {
		fmt.Fprintf(t.writer, "Project finish:     %s\n", t.bold.Sprint(report.ProjectFinish.Format(model.DateFormat)))
	}
	fmt.Fprintf(t.writer, "Overall progress:   %d%%\n", report.OverallProgress)
	fmt.Fprintf(t.writer, "Critical progress:  %d%%\n", report.CriticalProgress)

	for _, c := range report.Conflicts {
		fmt.Fprintln(t.writer, t.conflict.Sprintf("Conflict: %q starts before %q finishes", c.Task, c.Predecessor))
	}

	for _, e := range report.CycleEdges {
		fmt.Fprintf(t.writer, "Ignored cyclic dependency: %q -> %q\n", e.From, e.To)
	}

	return nil
}

func rowFlags(r analyze.Row) string {
	var flags []string
	if r.Critical {
		flags = append(flags, "critical")
	}
	if r.Conflicting {
		flags = append(flags, "conflict")
	}
	if n := len(r.Holidays); n > 0 {
		flags = append(flags, fmt.Sprintf("holidays:%d", n))
	}
	if r.StartsOnHoliday {
		flags = append(flags, "holiday-start")
	}
	return strings.Join(flags, ",")
}

func dateOrDash(d *time.Time) string {
	if d == nil {
		return "-"
	}
	return model.FormatDate(d)
}

// PrintBaselineCompare prints the slip of every task against a baseline.
func (t *TablePrinter) PrintBaselineCompare(result baselinecompare.Result) error {
	if !result.Found {
		fmt.Fprintf(t.writer, "Baseline %q not found\n", result.Name)
		return nil
	}

	tb := newTable("TASK\tBASELINE START\tBASELINE END\tSTART\tEND\tSTART SLIP\tEND SLIP")
	for _, v := range result.Variances {
		var c *color.Color
		if v.EndSlip != nil && *v.EndSlip > 0 {
			c = t.late
		} else if v.EndSlip != nil && *v.EndSlip < 0 {
			c = t.early
		}

		tb.add(c,
			string(v.Task),
			dateOrDash(v.Baseline.Start),
			dateOrDash(v.Baseline.End),
			dateOrDash(v.Current.Start),
			dateOrDash(v.Current.End),
			FormatSlip(v.StartSlip),
			FormatSlip(v.EndSlip),
		)
	}

	return tb.write(t.writer)
}

// PrintBaselineList prints the baseline names.
func (t *TablePrinter) PrintBaselineList(names []string) error {
	if len(names) == 0 {
		return nil
	}

	tb := newTable("NAME")
	for _, n := range names {
		tb.add(nil, n)
	}

	return tb.write(t.writer)
}

// PrintLockStatus prints the lock status of the data file.
func (t *TablePrinter) PrintLockStatus(status model.LockStatus) error {
	fmt.Fprintf(t.writer, "State:      %s\n", status.State)

	if status.Record != nil {
		fmt.Fprintf(t.writer, "Owner:      %s\n", status.Record.Owner)
		fmt.Fprintf(t.writer, "PID:        %d\n", status.Record.PID)
		if status.Record.Session != "" {
			fmt.Fprintf(t.writer, "Session:    %s\n", status.Record.Session)
		}
		fmt.Fprintf(t.writer, "Since:      %s (%s ago)\n", FormatTimestamp(status.Record.When), FormatAge(status.Age))
	}

	readOnly := "no"
	if status.ReadOnly {
		readOnly = "yes"
	}
	fmt.Fprintf(t.writer, "Read only:  %s\n", readOnly)

	return nil
}

// PrintMessage prints a simple text message.
func (t *TablePrinter) PrintMessage(msg string) error {
	fmt.Fprintln(t.writer, msg)
	return nil
}
