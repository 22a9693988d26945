package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/roach88/taskflow/internal/engine"
	"github.com/roach88/taskflow/internal/ir"
)

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func dateOrDash(d *ir.Date) string {
	if d == nil {
		return "-"
	}
	return d.String()
}

func printTask(w io.Writer, t *ir.Task) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%s\n", t.ID)
	fmt.Fprintf(tw, "Title:\t%s\n", t.Title)
	fmt.Fprintf(tw, "Status:\t%s\n", t.Status)
	fmt.Fprintf(tw, "Priority:\t%s\n", t.Priority)
	fmt.Fprintf(tw, "Project:\t%s\n", orDash(t.ProjectID))
	fmt.Fprintf(tw, "Assigned to:\t%s\n", orDash(t.AssignedTo))
	if t.DelegatedBy != "" {
		fmt.Fprintf(tw, "Delegated by:\t%s\n", t.DelegatedBy)
	}
	fmt.Fprintf(tw, "Start / due:\t%s / %s\n", dateOrDash(t.StartDate), dateOrDash(t.DueDate))
	if t.TimeTrackingEnabled {
		fmt.Fprintf(tw, "Time:\t%s of %s budget\n",
			engine.FormatHours(t.TimeSpent), engine.FormatHours(t.BudgetHours))
	}
	if t.IsRecurring {
		fmt.Fprintf(tw, "Recurs:\t%s until %s\n", t.RecurringFrequency, dateOrDash(t.RecurringEndsOn))
	}
	if len(t.Prerequisites) > 0 {
		fmt.Fprintf(tw, "Prerequisites:\t%s\n", strings.Join(t.Prerequisites, ", "))
	}
	if len(t.Dependents) > 0 {
		fmt.Fprintf(tw, "Dependents:\t%s\n", strings.Join(t.Dependents, ", "))
	}
	if len(t.Linked) > 0 {
		fmt.Fprintf(tw, "Linked:\t%s\n", strings.Join(t.Linked, ", "))
	}
	if len(t.Tags) > 0 {
		fmt.Fprintf(tw, "Tags:\t%s\n", strings.Join(t.Tags, ", "))
	}
	if t.RejectionReason != "" {
		fmt.Fprintf(tw, "Rejected:\t%s (%s)\n", t.RejectionReason, t.RejectedBy)
	}
	if t.ApprovedBy != "" {
		fmt.Fprintf(tw, "Approved by:\t%s\n", t.ApprovedBy)
	}
	fmt.Fprintf(tw, "Version:\t%d\n", t.Version)
	tw.Flush()
}

func printTasks(w io.Writer, tasks []*ir.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "No tasks.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tPRIORITY\tDUE\tASSIGNED\tTITLE")
	for _, t := range tasks {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			t.ID, t.Status, t.Priority, dateOrDash(t.DueDate), orDash(t.AssignedTo), t.Title)
	}
	tw.Flush()
}

func printHistory(w io.Writer, entries []ir.HistoryEntry) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tAT\tACTOR\tACTION\tDESCRIPTION")
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			e.Seq, e.CreatedAt.Format("2006-01-02 15:04"), e.Actor, e.Action, e.Description)
	}
	tw.Flush()
}

func printTimeEntries(w io.Writer, entries []ir.TimeEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No time entries.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "AT\tACTOR\tHOURS\tDESCRIPTION")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			e.CreatedAt.Format("2006-01-02 15:04"), e.Actor, engine.FormatHours(e.Hours), e.Description)
	}
	tw.Flush()
}

func printStats(w io.Writer, stats []engine.ProjectStats) {
	if len(stats) == 0 {
		fmt.Fprintln(w, "No projects.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PROJECT\tTOTAL\tDONE\tACTIVE\tOVERDUE\tPROGRESS\tTIMELINE\tSPENT")
	for _, s := range stats {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d%%\t%d%%\t%s\n",
			orDash(s.ProjectName), s.Total, s.Completed, s.InProgress, s.Overdue,
			s.ProgressPct, s.TimelinePct, engine.FormatHours(s.TimeSpent))
	}
	tw.Flush()
}
