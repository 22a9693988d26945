package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/taskflow/internal/engine"
)

// NewTimeCommand creates the time command group.
func NewTimeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "time",
		Short: "Log and inspect time against task budgets",
	}
	cmd.AddCommand(newTimeAddCommand(rootOpts))
	cmd.AddCommand(newTimeListCommand(rootOpts))
	cmd.AddCommand(newTimeBudgetCommand(rootOpts))
	return cmd
}

func newTimeAddCommand(rootOpts *RootOptions) *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "add <task-id> <hours>",
		Short: "Log hours on a tracked task",
		Long: `Log hours on a tracked task.

Arguments after "--" are not parsed as flags, so a value starting with a
dash has to follow it.`,
		Example: `  taskflow time add 0193... 2.5 -m "pairing on the parser"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			hours, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid hours %q", args[1]))
			}

			eng, actor, closeFn, err := rootOpts.session()
			if err != nil {
				return err
			}
			defer closeFn()

			out := rootOpts.formatter(cmd)
			res, err := eng.AddTimeEntry(cmd.Context(), actor, engine.TimeEntryRequest{
				TaskID:      args[0],
				Hours:       hours,
				Description: description,
			})
			if err != nil {
				return out.Fail("time entry failed", err)
			}
			return out.Render(res, nil, func(w io.Writer) {
				fmt.Fprintf(w, "Logged %s on %s: spent %s, %s remaining\n",
					engine.FormatHours(hours), res.Task.ID,
					engine.FormatHours(res.Task.TimeSpent), engine.FormatHours(res.RemainingBudget))
			})
		},
	}

	cmd.Flags().StringVarP(&description, "message", "m", "", "what the time was spent on")
	return cmd
}

func newTimeListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list <task-id>",
		Short: "List a task's time entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, actor, closeFn, err := rootOpts.session()
			if err != nil {
				return err
			}
			defer closeFn()

			out := rootOpts.formatter(cmd)
			entries, err := eng.ListTimeEntries(cmd.Context(), actor, args[0])
			if err != nil {
				return out.Fail("list failed", err)
			}
			return out.Render(entries, nil, func(w io.Writer) {
				printTimeEntries(w, entries)
			})
		},
	}
}

// BudgetSummary is the output of "time budget".
type BudgetSummary struct {
	TaskID          string  `json:"task_id"`
	BudgetHours     float64 `json:"budget_hours"`
	TimeSpent       float64 `json:"time_spent"`
	RemainingBudget float64 `json:"remaining_budget"`
}

func newTimeBudgetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "budget <task-id>",
		Short: "Show budget, time spent and remaining hours",
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
				return out.Fail("budget failed", err)
			}
			remaining, err := eng.RemainingBudget(cmd.Context(), actor, t.ID)
			if err != nil {
				return out.Fail("budget failed", err)
			}
			summary := BudgetSummary{
				TaskID:          t.ID,
				BudgetHours:     t.BudgetHours,
				TimeSpent:       t.TimeSpent,
				RemainingBudget: remaining,
			}
			return out.Render(summary, nil, func(w io.Writer) {
				fmt.Fprintf(w, "Budget %s, spent %s, remaining %s\n",
					engine.FormatHours(summary.BudgetHours),
					engine.FormatHours(summary.TimeSpent),
					engine.FormatHours(summary.RemainingBudget))
			})
		},
	}
}
