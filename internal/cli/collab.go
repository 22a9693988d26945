package cli

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/taskflow/internal/engine"
)

// NewCommentCommand creates the comment command group.
func NewCommentCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "comment",
		Short: "Discuss tasks",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <task-id> <body>",
		Short: "Comment on a task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, actor, closeFn, err := rootOpts.session()
			if err != nil {
				return err
			}
			defer closeFn()

			out := rootOpts.formatter(cmd)
			c, err := eng.AddComment(cmd.Context(), actor, args[0], args[1])
			if err != nil {
				return out.Fail("comment failed", err)
			}
			return out.Render(c, nil, func(w io.Writer) {
				fmt.Fprintf(w, "Comment %s added to %s\n", c.ID, c.TaskID)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list <task-id>",
		Short: "List a task's comments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, actor, closeFn, err := rootOpts.session()
			if err != nil {
				return err
			}
			defer closeFn()

			out := rootOpts.formatter(cmd)
			comments, err := eng.ListComments(cmd.Context(), actor, args[0])
			if err != nil {
				return out.Fail("list failed", err)
			}
			return out.Render(comments, nil, func(w io.Writer) {
				for _, c := range comments {
					fmt.Fprintf(w, "[%s] %s: %s\n", c.CreatedAt.Format("2006-01-02 15:04"), c.Actor, c.Body)
				}
			})
		},
	})

	return cmd
}

// NewAttachCommand creates the attach command group.
func NewAttachCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attach",
		Short: "Store files against tasks",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <task-id> <file>",
		Short: "Attach a file to a task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[1])
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read file", err)
			}

			eng, actor, closeFn, err := rootOpts.session()
			if err != nil {
				return err
			}
			defer closeFn()

			out := rootOpts.formatter(cmd)
			a, err := eng.AddAttachment(cmd.Context(), actor, args[0], engine.AttachmentUpload{
				Name:        filepath.Base(args[1]),
				ContentType: mime.TypeByExtension(filepath.Ext(args[1])),
				Data:        data,
			})
			if err != nil {
				return out.Fail("attach failed", err)
			}
			return out.Render(a, nil, func(w io.Writer) {
				fmt.Fprintf(w, "Attached %s as %s (%d bytes)\n", a.Name, a.ID, a.Size)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list <task-id>",
		Short: "List a task's attachments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, actor, closeFn, err := rootOpts.session()
			if err != nil {
				return err
			}
			defer closeFn()

			out := rootOpts.formatter(cmd)
			attachments, err := eng.ListAttachments(cmd.Context(), actor, args[0])
			if err != nil {
				return out.Fail("list failed", err)
			}
			return out.Render(attachments, nil, func(w io.Writer) {
				for _, a := range attachments {
					fmt.Fprintf(w, "%s  %s  %d bytes  %s\n", a.ID, a.Name, a.Size, a.UploadedBy)
				}
			})
		},
	})

	var output string
	get := &cobra.Command{
		Use:   "get <attachment-id>",
		Short: "Download an attachment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, actor, closeFn, err := rootOpts.session()
			if err != nil {
				return err
			}
			defer closeFn()

			out := rootOpts.formatter(cmd)
			a, err := eng.DownloadAttachment(cmd.Context(), actor, args[0])
			if err != nil {
				return out.Fail("download failed", err)
			}
			path := output
			if path == "" {
				path = a.Name
			}
			if err := os.WriteFile(path, a.Data, 0o644); err != nil {
				return WrapExitError(ExitCommandError, "failed to write file", err)
			}
			return out.Render(map[string]any{"path": path, "size": a.Size}, nil, func(w io.Writer) {
				fmt.Fprintf(w, "Wrote %s (%d bytes)\n", path, a.Size)
			})
		},
	}
	get.Flags().StringVarP(&output, "output", "o", "", "output path (default: attachment name)")
	cmd.AddCommand(get)

	return cmd
}
