package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/taskflow/internal/store"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	var verify bool

	cmd := &cobra.Command{
		Use:   "history <task-id>",
		Short: "Show a task's audit history",
		Long: `Show a task's history entries oldest first.

With --verify, the hash chain is recomputed and any altered or missing
entry is reported (exit code 1).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, actor, closeFn, err := rootOpts.session()
			if err != nil {
				return err
			}
			defer closeFn()

			out := rootOpts.formatter(cmd)
			if verify {
				err := eng.VerifyHistory(cmd.Context(), actor, args[0])
				var chain *store.ChainError
				if errors.As(err, &chain) {
					if ferr := out.Error("E_CHAIN_BROKEN", chain.Error(), map[string]any{"seq": chain.Seq}); ferr != nil {
						return ferr
					}
					return WrapExitError(ExitFailure, "history verification failed", err)
				}
				if err != nil {
					return out.Fail("verify failed", err)
				}
				return out.Render(map[string]bool{"valid": true}, nil, func(w io.Writer) {
					fmt.Fprintf(w, "History of %s verifies.\n", args[0])
				})
			}

			entries, err := eng.GetHistory(cmd.Context(), actor, args[0])
			if err != nil {
				return out.Fail("history failed", err)
			}
			return out.Render(entries, nil, func(w io.Writer) {
				printHistory(w, entries)
			})
		},
	}

	cmd.Flags().BoolVar(&verify, "verify", false, "verify the hash chain")
	return cmd
}
