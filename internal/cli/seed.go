package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/taskflow/internal/seed"
)

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "seed <file-or-dir>",
		Short: "Import members, projects and tasks from CUE fixtures",
		Long: `Import an organization fixture written in CUE. A directory is read as
one fixture unified from all of its .cue files.

Tasks are created in prerequisite order and then moved to their declared
status through the workflow, so every imported task has a full history.

With --check the fixture is validated but nothing is written.

Examples:
  taskflow seed ./fixtures/acme.cue
  taskflow seed ./fixtures --check`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)

			fx, err := seed.Load(args[0])
			if err != nil {
				if ferr := out.Error("E_FIXTURE", err.Error(), nil); ferr != nil {
					return ferr
				}
				return WrapExitError(ExitFailure, "invalid fixture", err)
			}
			if check {
				summary := map[string]any{
					"organization": fx.Organization,
					"members":      len(fx.Members),
					"projects":     len(fx.Projects),
					"tasks":        len(fx.Tasks),
				}
				return out.Render(summary, nil, func(w io.Writer) {
					fmt.Fprintf(w, "Fixture %s is valid: %d members, %d projects, %d tasks\n",
						fx.Organization, len(fx.Members), len(fx.Projects), len(fx.Tasks))
				})
			}

			eng, closeFn, err := rootOpts.openEngine()
			if err != nil {
				return err
			}
			defer closeFn()

			res, err := seed.Apply(cmd.Context(), eng, fx)
			if err != nil {
				return out.Fail("seed failed", err)
			}
			return out.Render(res, res.Warnings, func(w io.Writer) {
				fmt.Fprintf(w, "Seeded %s: %d members, %d projects, %d tasks\n",
					res.Organization, len(res.Members), len(res.Projects), len(res.Tasks))
			})
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "validate only")
	return cmd
}
