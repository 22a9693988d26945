package cli

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/taskflow/internal/engine"
	"github.com/roach88/taskflow/internal/ir"
	"github.com/roach88/taskflow/internal/store"
)

// NewTaskCommand creates the task command group.
func NewTaskCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Create, inspect and move tasks through the workflow",
	}
	cmd.AddCommand(newTaskCreateCommand(rootOpts))
	cmd.AddCommand(newTaskShowCommand(rootOpts))
	cmd.AddCommand(newTaskListCommand(rootOpts))
	cmd.AddCommand(newTaskUpdateCommand(rootOpts))
	cmd.AddCommand(newTaskTransitionCommand(rootOpts))
	cmd.AddCommand(newTaskDelegateCommand(rootOpts))
	cmd.AddCommand(newTaskDeleteCommand(rootOpts))
	return cmd
}

// taskFields holds the flags shared by create and update.
type taskFields struct {
	description string
	project     string
	priority    string
	category    string
	visibility  string
	start       string
	due         string
	estimate    float64
	budget      float64
	track       bool
	billable    bool
	client      string
	recurring   string
	until       string
	assignees   []string
	approvers   []string
	watchers    []string
	tags        []string
	criteria    string
	notes       string
}

func (f *taskFields) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.description, "description", "", "task description")
	flags.StringVar(&f.project, "project", "", "project id")
	flags.StringVar(&f.priority, "priority", "", "low|medium|high|urgent")
	flags.StringVar(&f.category, "category", "", "category label")
	flags.StringVar(&f.visibility, "visibility", "", "private|team|public")
	flags.StringVar(&f.start, "start", "", "start date (YYYY-MM-DD)")
	flags.StringVar(&f.due, "due", "", "due date (YYYY-MM-DD)")
	flags.Float64Var(&f.estimate, "estimate", 0, "estimated hours")
	flags.Float64Var(&f.budget, "budget", 0, "budget hours")
	flags.BoolVar(&f.track, "track", false, "enable time tracking")
	flags.BoolVar(&f.billable, "billable", false, "billable (requires --track)")
	flags.StringVar(&f.client, "client", "", "client reference")
	flags.StringVar(&f.recurring, "recurring", "", "daily|weekly|biweekly|monthly|quarterly")
	flags.StringVar(&f.until, "until", "", "last date of the recurrence (YYYY-MM-DD)")
	flags.StringSliceVar(&f.assignees, "assignee", nil, "additional assignee (repeatable)")
	flags.StringSliceVar(&f.approvers, "approver", nil, "approver (repeatable)")
	flags.StringSliceVar(&f.watchers, "watcher", nil, "watcher (repeatable)")
	flags.StringSliceVar(&f.tags, "tag", nil, "tag (repeatable)")
	flags.StringVar(&f.criteria, "criteria", "", "acceptance criteria")
	flags.StringVar(&f.notes, "notes", "", "free-form notes")
}

func parseDateFlag(name, value string) (*ir.Date, error) {
	if value == "" {
		return nil, nil
	}
	d, err := ir.ParseDate(value)
	if err != nil {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("--%s: %v", name, err))
	}
	return &d, nil
}

func newTaskCreateCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		fields  taskFields
		assign  string
		prereqs []string
		attach  []string
	)

	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Create a task",
		Long: `Create a task in pending status.

Files given with --attach are uploaded after the task is created; a file
that fails to upload is reported as a warning and does not undo the task.

Examples:
  taskflow task create "Draft spec" --due 2026-03-10 --assign bob
  taskflow task create "Weekly report" --recurring weekly --until 2026-12-31 --start 2026-03-02
  taskflow task create "Invoice" --track --billable --budget 4 --attach ./quote.pdf`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			draft := ir.Task{
				Title:               args[0],
				Description:         fields.description,
				ProjectID:           fields.project,
				Priority:            ir.Priority(fields.priority),
				Category:            fields.category,
				Visibility:          ir.Visibility(fields.visibility),
				EstimatedHours:      fields.estimate,
				BudgetHours:         fields.budget,
				TimeTrackingEnabled: fields.track,
				IsBillable:          fields.billable,
				ClientReference:     fields.client,
				IsRecurring:         fields.recurring != "",
				RecurringFrequency:  ir.Frequency(fields.recurring),
				AssignedTo:          assign,
				Assignees:           fields.assignees,
				Approvers:           fields.approvers,
				Watchers:            fields.watchers,
				Tags:                fields.tags,
				AcceptanceCriteria:  fields.criteria,
				Notes:               fields.notes,
				Prerequisites:       prereqs,
			}
			var err error
			if draft.StartDate, err = parseDateFlag("start", fields.start); err != nil {
				return err
			}
			if draft.DueDate, err = parseDateFlag("due", fields.due); err != nil {
				return err
			}
			if draft.RecurringEndsOn, err = parseDateFlag("until", fields.until); err != nil {
				return err
			}

			files := make([]engine.AttachmentUpload, 0, len(attach))
			for _, path := range attach {
				data, err := os.ReadFile(path)
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to read attachment", err)
				}
				files = append(files, engine.AttachmentUpload{
					Name:        filepath.Base(path),
					ContentType: mime.TypeByExtension(filepath.Ext(path)),
					Data:        data,
				})
			}

			eng, actor, closeFn, err := rootOpts.session()
			if err != nil {
				return err
			}
			defer closeFn()

			out := rootOpts.formatter(cmd)
			res, err := eng.CreateTaskWithAttachments(cmd.Context(), actor, draft, files)
			if err != nil {
				return out.Fail("create failed", err)
			}
			return out.Render(res, res.Warnings, func(w io.Writer) {
				fmt.Fprintf(w, "Created task %s\n", res.Task.ID)
				for _, a := range res.Attachments {
					fmt.Fprintf(w, "Attached %s (%d bytes)\n", a.Name, a.Size)
				}
			})
		},
	}

	fields.register(cmd)
	cmd.Flags().StringVar(&assign, "assign", "", "owner (assigned_to)")
	cmd.Flags().StringSliceVar(&prereqs, "prereq", nil, "prerequisite task id (repeatable)")
	cmd.Flags().StringSliceVar(&attach, "attach", nil, "file to attach (repeatable)")
	return cmd
}

func newTaskShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, actor, closeFn, err := rootOpts.session()
			if err != nil {
				return err
			}
			defer closeFn()

			out := rootOpts.formatter(cmd)
			t, err := eng.GetTask(cmd.Context(), actor, args[0])
			if err != nil {
				return out.Fail("show failed", err)
			}
			return out.Render(t, nil, func(w io.Writer) {
				printTask(w, t)
				if next := engine.AllowedTransitions(t.Status); len(next) > 0 {
					fmt.Fprintf(w, "Next:           %v\n", next)
				}
			})
		},
	}
}

func newTaskListCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		filter   store.TaskFilter
		statuses []string
		dueFrom  string
		dueTo    string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks ordered by due date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, s := range statuses {
				filter.Statuses = append(filter.Statuses, ir.Status(s))
			}
			var err error
			if filter.DueFrom, err = parseDateFlag("due-from", dueFrom); err != nil {
				return err
			}
			if filter.DueTo, err = parseDateFlag("due-to", dueTo); err != nil {
				return err
			}

			eng, actor, closeFn, err := rootOpts.session()
			if err != nil {
				return err
			}
			defer closeFn()

			out := rootOpts.formatter(cmd)
			tasks, err := eng.ListTasks(cmd.Context(), actor, filter)
			if err != nil {
				return out.Fail("list failed", err)
			}
			return out.Render(tasks, nil, func(w io.Writer) {
				printTasks(w, tasks)
			})
		},
	}

	cmd.Flags().StringVar(&filter.ProjectID, "project", "", "project id")
	cmd.Flags().StringVar(&filter.Assignee, "assignee", "", "owner or assignee member id")
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "status (repeatable)")
	cmd.Flags().StringVar(&dueFrom, "due-from", "", "earliest due date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&dueTo, "due-to", "", "latest due date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&filter.Limit, "limit", 0, "maximum number of tasks (0 = all)")
	return cmd
}

func newTaskUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		fields  taskFields
		title   string
		version int64
	)

	cmd := &cobra.Command{
		Use:   "update <task-id>",
		Short: "Update task fields",
		Long: `Update the fields given as flags. Status and owner are changed with
"task transition" and "task delegate".

Example:
  taskflow task update 0193... --due 2026-04-01 --budget 12`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := fields.patch(cmd, title)
			if err != nil {
				return err
			}
			patch.ExpectedVersion = version

			eng, actor, closeFn, err := rootOpts.session()
			if err != nil {
				return err
			}
			defer closeFn()

			out := rootOpts.formatter(cmd)
			t, err := eng.UpdateTask(cmd.Context(), actor, args[0], patch)
			if err != nil {
				return out.Fail("update failed", err)
			}
			return out.Render(t, nil, func(w io.Writer) {
				fmt.Fprintf(w, "Updated task %s (version %d)\n", t.ID, t.Version)
			})
		},
	}

	fields.register(cmd)
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().Int64Var(&version, "expect-version", 0, "fail unless the task is at this version")
	return cmd
}

// patch builds a TaskPatch from the flags the user set.
func (f *taskFields) patch(cmd *cobra.Command, title string) (engine.TaskPatch, error) {
	var p engine.TaskPatch
	changed := cmd.Flags().Changed

	if changed("title") {
		p.Title = &title
	}
	if changed("description") {
		p.Description = &f.description
	}
	if changed("project") {
		p.ProjectID = &f.project
	}
	if changed("priority") {
		v := ir.Priority(f.priority)
		p.Priority = &v
	}
	if changed("category") {
		p.Category = &f.category
	}
	if changed("visibility") {
		v := ir.Visibility(f.visibility)
		p.Visibility = &v
	}
	for _, d := range []struct {
		flag  string
		value string
		dst   **ir.Date
	}{
		{"start", f.start, &p.StartDate},
		{"due", f.due, &p.DueDate},
		{"until", f.until, &p.RecurringEndsOn},
	} {
		if !changed(d.flag) {
			continue
		}
		// An empty value clears the date.
		parsed, err := parseDateFlag(d.flag, d.value)
		if err != nil {
			return p, err
		}
		if parsed == nil {
			parsed = &ir.Date{}
		}
		*d.dst = parsed
	}
	if changed("estimate") {
		p.EstimatedHours = &f.estimate
	}
	if changed("budget") {
		p.BudgetHours = &f.budget
	}
	if changed("track") {
		p.TimeTrackingEnabled = &f.track
	}
	if changed("billable") {
		p.IsBillable = &f.billable
	}
	if changed("client") {
		p.ClientReference = &f.client
	}
	if changed("recurring") {
		recurring := f.recurring != ""
		freq := ir.Frequency(f.recurring)
		p.IsRecurring = &recurring
		p.RecurringFrequency = &freq
	}
	if changed("assignee") {
		p.Assignees = &f.assignees
	}
	if changed("approver") {
		p.Approvers = &f.approvers
	}
	if changed("watcher") {
		p.Watchers = &f.watchers
	}
	if changed("tag") {
		p.Tags = &f.tags
	}
	if changed("criteria") {
		p.AcceptanceCriteria = &f.criteria
	}
	if changed("notes") {
		p.Notes = &f.notes
	}
	return p, nil
}

func newTaskTransitionCommand(rootOpts *RootOptions) *cobra.Command {
	var req engine.TransitionRequest

	cmd := &cobra.Command{
		Use:   "transition <task-id> <status>",
		Short: "Move a task to another status",
		Long: `Move a task along the workflow:

  pending      -> in_progress, on_hold, review
  in_progress  -> review, completed, on_hold, pending
  on_hold      -> pending, in_progress
  review       -> in_progress, completed
  completed    -> approved, rejected (--reason required), in_progress

Completing a recurring task creates its next occurrence.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.TaskID, req.To = args[0], ir.Status(args[1])

			eng, actor, closeFn, err := rootOpts.session()
			if err != nil {
				return err
			}
			defer closeFn()

			out := rootOpts.formatter(cmd)
			res, err := eng.Transition(cmd.Context(), actor, req)
			if err != nil {
				return out.Fail("transition failed", err)
			}
			return out.Render(res, res.Warnings, func(w io.Writer) {
				fmt.Fprintf(w, "Task %s: %s -> %s\n", res.Task.ID, res.From, res.Task.Status)
				if res.Successor != nil {
					fmt.Fprintf(w, "Next occurrence %s starts %s\n", res.Successor.ID, dateOrDash(res.Successor.StartDate))
				}
			})
		},
	}

	cmd.Flags().StringVar(&req.Reason, "reason", "", "reason (required for rejected)")
	cmd.Flags().Int64Var(&req.ExpectedVersion, "expect-version", 0, "fail unless the task is at this version")
	return cmd
}

func newTaskDelegateCommand(rootOpts *RootOptions) *cobra.Command {
	var req engine.DelegateRequest

	cmd := &cobra.Command{
		Use:   "delegate <task-id> <member-id>",
		Short: "Reassign a task's owner",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.TaskID, req.To = args[0], args[1]

			eng, actor, closeFn, err := rootOpts.session()
			if err != nil {
				return err
			}
			defer closeFn()

			out := rootOpts.formatter(cmd)
			res, err := eng.Delegate(cmd.Context(), actor, req)
			if err != nil {
				return out.Fail("delegate failed", err)
			}
			return out.Render(res, res.Warnings, func(w io.Writer) {
				fmt.Fprintf(w, "Task %s delegated from %s to %s\n", res.Task.ID, orDash(res.Previous), res.Task.AssignedTo)
			})
		},
	}

	cmd.Flags().StringVar(&req.Notes, "notes", "", "delegation notes")
	cmd.Flags().Int64Var(&req.ExpectedVersion, "expect-version", 0, "fail unless the task is at this version")
	return cmd
}

func newTaskDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <task-id>",
		Short: "Delete a task with its history, entries and edges",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, actor, closeFn, err := rootOpts.session()
			if err != nil {
				return err
			}
			defer closeFn()

			out := rootOpts.formatter(cmd)
			if err := eng.DeleteTask(cmd.Context(), actor, args[0]); err != nil {
				return out.Fail("delete failed", err)
			}
			return out.Render(map[string]string{"deleted": args[0]}, nil, func(w io.Writer) {
				fmt.Fprintf(w, "Deleted task %s\n", args[0])
			})
		},
	}
}
