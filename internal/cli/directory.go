package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/taskflow/internal/ir"
)

// NewMemberCommand creates the member command group.
func NewMemberCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "member",
		Short: "Manage organization members",
	}

	var m ir.TeamMember
	add := &cobra.Command{
		Use:   "add <member-id> <name>",
		Short: "Add a member to the organization",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m.ID, m.Name = args[0], args[1]

			eng, actor, closeFn, err := rootOpts.session()
			if err != nil {
				return err
			}
			defer closeFn()

			out := rootOpts.formatter(cmd)
			member, err := eng.AddMember(cmd.Context(), actor, m)
			if err != nil {
				return out.Fail("add member failed", err)
			}
			return out.Render(member, nil, func(w io.Writer) {
				fmt.Fprintf(w, "Added %s (%s)\n", member.Name, member.ID)
			})
		},
	}
	add.Flags().StringVar(&m.Email, "email", "", "email address")
	add.Flags().StringVar(&m.Title, "title", "", "job title")
	cmd.AddCommand(add)

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List organization members",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, actor, closeFn, err := rootOpts.session()
			if err != nil {
				return err
			}
			defer closeFn()

			out := rootOpts.formatter(cmd)
			members, err := eng.ListMembers(cmd.Context(), actor)
			if err != nil {
				return out.Fail("list failed", err)
			}
			return out.Render(members, nil, func(w io.Writer) {
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tTITLE\tEMAIL")
				for _, m := range members {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", m.ID, m.Name, orDash(m.Title), orDash(m.Email))
				}
				tw.Flush()
			})
		},
	})

	return cmd
}

// NewProjectCommand creates the project command group.
func NewProjectCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage projects",
	}

	var (
		p          ir.Project
		priority   string
		start, end string
	)
	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a project",
		Example: `  taskflow project create "Website relaunch" --start 2026-02-20 --end 2026-03-12`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p.Name = args[0]
			p.Priority = ir.Priority(priority)
			var err error
			if p.StartDate, err = parseDateFlag("start", start); err != nil {
				return err
			}
			if p.EndDate, err = parseDateFlag("end", end); err != nil {
				return err
			}

			eng, actor, closeFn, err := rootOpts.session()
			if err != nil {
				return err
			}
			defer closeFn()

			out := rootOpts.formatter(cmd)
			project, err := eng.CreateProject(cmd.Context(), actor, p)
			if err != nil {
				return out.Fail("create project failed", err)
			}
			return out.Render(project, nil, func(w io.Writer) {
				fmt.Fprintf(w, "Created project %s (%s)\n", project.Name, project.ID)
			})
		},
	}
	create.Flags().StringVar(&p.Description, "description", "", "project description")
	create.Flags().StringVar(&p.Status, "status", "", "project status (default active)")
	create.Flags().StringVar(&priority, "priority", "", "low|medium|high|urgent")
	create.Flags().StringVar(&start, "start", "", "start date (YYYY-MM-DD)")
	create.Flags().StringVar(&end, "end", "", "end date (YYYY-MM-DD)")
	cmd.AddCommand(create)

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, actor, closeFn, err := rootOpts.session()
			if err != nil {
				return err
			}
			defer closeFn()

			out := rootOpts.formatter(cmd)
			projects, err := eng.ListProjects(cmd.Context(), actor)
			if err != nil {
				return out.Fail("list failed", err)
			}
			return out.Render(projects, nil, func(w io.Writer) {
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tSTATUS\tSTART\tEND")
				for _, p := range projects {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
						p.ID, p.Name, p.Status, dateOrDash(p.StartDate), dateOrDash(p.EndDate))
				}
				tw.Flush()
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "tasks <project-id>",
		Short: "List a project's tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, actor, closeFn, err := rootOpts.session()
			if err != nil {
				return err
			}
			defer closeFn()

			out := rootOpts.formatter(cmd)
			tasks, err := eng.ListByProject(cmd.Context(), actor, args[0])
			if err != nil {
				return out.Fail("list failed", err)
			}
			return out.Render(tasks, nil, func(w io.Writer) {
				printTasks(w, tasks)
			})
		},
	})

	return cmd
}
