package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// NewTickCommand creates the tick command.
func NewTickCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tick",
		Short: "Create missing next occurrences of recurring tasks",
		Long: `Scan every completed or approved recurring task without a successor and
create its next occurrence as of now. Safe to run repeatedly, e.g. from cron.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, closeFn, err := rootOpts.openEngine()
			if err != nil {
				return err
			}
			defer closeFn()

			out := rootOpts.formatter(cmd)
			res, err := eng.Tick(cmd.Context(), eng.Now())
			if err != nil {
				return out.Fail("tick failed", err)
			}
			rootOpts.Logger.Info("recurrence tick", "spawned", len(res.Spawned), "warnings", len(res.Warnings))
			return out.Render(res, res.Warnings, func(w io.Writer) {
				fmt.Fprintf(w, "Spawned %d occurrence(s)\n", len(res.Spawned))
				for _, t := range res.Spawned {
					fmt.Fprintf(w, "  %s %s (from %s)\n", t.ID, t.Title, t.RecurrenceParentID)
				}
			})
		},
	}
}
