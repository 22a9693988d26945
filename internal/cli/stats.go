package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/taskflow/internal/engine"
)

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats [project-id]",
		Short: "Show project progress and timeline",
		Long: `Show progress (share of completed or approved tasks) and timeline
(share of the project's date range elapsed) for one project, or for every
project in the organization.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, actor, closeFn, err := rootOpts.session()
			if err != nil {
				return err
			}
			defer closeFn()

			out := rootOpts.formatter(cmd)
			if len(args) == 1 {
				s, err := eng.StatsFor(cmd.Context(), actor, args[0])
				if err != nil {
					return out.Fail("stats failed", err)
				}
				return out.Render(s, nil, func(w io.Writer) {
					printStats(w, []engine.ProjectStats{*s})
				})
			}

			all, err := eng.ProjectProgress(cmd.Context(), actor)
			if err != nil {
				return out.Fail("stats failed", err)
			}
			return out.Render(all, nil, func(w io.Writer) {
				printStats(w, all)
			})
		},
	}
}
