package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/taskflow/internal/engine"
	"github.com/roach88/taskflow/internal/ir"
)

// NewLinkCommand creates the link command group.
func NewLinkCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "link",
		Short: "Manage prerequisite and linked-task relationships",
	}
	cmd.AddCommand(newLinkAddPrereqCommand(rootOpts))
	cmd.AddCommand(newLinkAddLinkedCommand(rootOpts))
	cmd.AddCommand(newLinkRemoveCommand(rootOpts))
	cmd.AddCommand(newLinkBlockersCommand(rootOpts))
	cmd.AddCommand(newLinkCheckCommand(rootOpts))
	return cmd
}

// edgeCommand runs one edge mutation and prints the resulting owner task.
func edgeCommand(rootOpts *RootOptions, use, short string, run func(cmd *cobra.Command, eng *engine.Engine, actor ir.Actor, args []string) (*ir.Task, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(strings.Count(use, "<")),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, actor, closeFn, err := rootOpts.session()
			if err != nil {
				return err
			}
			defer closeFn()

			out := rootOpts.formatter(cmd)
			t, err := run(cmd, eng, actor, args)
			if err != nil {
				return out.Fail("link failed", err)
			}
			return out.Render(t, nil, func(w io.Writer) {
				fmt.Fprintf(w, "Task %s\n", t.ID)
				fmt.Fprintf(w, "  prerequisites: %s\n", orDash(strings.Join(t.Prerequisites, ", ")))
				fmt.Fprintf(w, "  linked:        %s\n", orDash(strings.Join(t.Linked, ", ")))
			})
		},
	}
}

func newLinkAddPrereqCommand(rootOpts *RootOptions) *cobra.Command {
	return edgeCommand(rootOpts, "add-prereq <task-id> <prerequisite-id>",
		"Make a task wait for a prerequisite",
		func(cmd *cobra.Command, eng *engine.Engine, actor ir.Actor, args []string) (*ir.Task, error) {
			return eng.AddPrerequisite(cmd.Context(), actor, args[1], args[0])
		})
}

func newLinkAddLinkedCommand(rootOpts *RootOptions) *cobra.Command {
	return edgeCommand(rootOpts, "add-linked <task-id> <other-id>",
		"Relate two tasks without ordering them",
		func(cmd *cobra.Command, eng *engine.Engine, actor ir.Actor, args []string) (*ir.Task, error) {
			return eng.AddLinkedTask(cmd.Context(), actor, args[0], args[1])
		})
}

func newLinkRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := edgeCommand(rootOpts, "remove <kind> <task-id> <other-id>",
		"Remove a prerequisite or linked relationship",
		func(cmd *cobra.Command, eng *engine.Engine, actor ir.Actor, args []string) (*ir.Task, error) {
			edge := ir.Edge{Kind: ir.EdgeKind(args[0]), From: args[1], To: args[2]}
			if edge.Kind == ir.EdgePrerequisite {
				edge.From, edge.To = args[2], args[1]
			}
			return eng.RemoveEdge(cmd.Context(), actor, edge)
		})
	cmd.Long = `Remove a relationship. For "prerequisite", <other-id> is the prerequisite
of <task-id>; for "linked", the order does not matter.`
	return cmd
}

func newLinkBlockersCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "blockers <task-id>",
		Short: "List prerequisites that are not yet completed or approved",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, actor, closeFn, err := rootOpts.session()
			if err != nil {
				return err
			}
			defer closeFn()

			out := rootOpts.formatter(cmd)
			blockers, err := eng.UnresolvedPrerequisites(cmd.Context(), actor, args[0])
			if err != nil {
				return out.Fail("blockers failed", err)
			}
			return out.Render(blockers, nil, func(w io.Writer) {
				if len(blockers) == 0 {
					fmt.Fprintln(w, "No open prerequisites.")
					return
				}
				printTasks(w, blockers)
			})
		},
	}
}

func newLinkCheckCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the prerequisite graph has no cycles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, actor, closeFn, err := rootOpts.session()
			if err != nil {
				return err
			}
			defer closeFn()

			out := rootOpts.formatter(cmd)
			cycles, err := eng.GraphCycles(cmd.Context(), actor)
			if err != nil {
				return out.Fail("check failed", err)
			}
			if len(cycles) == 0 {
				return out.Render(cycles, nil, func(w io.Writer) {
					fmt.Fprintln(w, "Prerequisite graph is acyclic.")
				})
			}
			details := make([]string, len(cycles))
			for i, c := range cycles {
				details[i] = strings.Join(c, " -> ")
			}
			if err := out.Error(string(engine.CodeCycleDetected), fmt.Sprintf("%d cycle(s) found", len(cycles)), details); err != nil {
				return err
			}
			return NewExitError(ExitFailure, fmt.Sprintf("%d cycle(s) found", len(cycles)))
		},
	}
}
