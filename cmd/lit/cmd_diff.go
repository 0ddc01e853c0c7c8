package main

import (
	"fmt"

	"github.com/imraghavojha/lit/pkg/diff"
	"github.com/spf13/cobra"
)

func newDiffCmd() *cobra.Command {
	var staged bool
	var context int

	cmd := &cobra.Command{
		Use:   "diff [<from> [<to>]]",
		Short: "Show changes between the index, the working tree and commits",
		Long: `Show changes.

  lit diff               working tree against the index
  lit diff --staged      index against HEAD
  lit diff <a>           commit a against the working tree
  lit diff <a> <b>       commit a against commit b`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo(cmd)
			if err != nil {
				return err
			}

			var fds []*diff.FileDiff
			switch {
			case len(args) == 2:
				from, err := r.Resolve(args[0])
				if err != nil {
					return err
				}
				to, err := r.Resolve(args[1])
				if err != nil {
					return err
				}
				fds, err = r.DiffCommits(from, to)
				if err != nil {
					return err
				}
			case len(args) == 1:
				from, err := r.Resolve(args[0])
				if err != nil {
					return err
				}
				fds, err = r.DiffCommitWorktree(from)
				if err != nil {
					return err
				}
			case staged:
				fds, err = r.DiffStaged()
			default:
				fds, err = r.DiffWorktree()
			}
			if err != nil {
				return err
			}

			for _, fd := range fds {
				if err := diff.WriteUnified(cmd.OutOrStdout(), fd, context); err != nil {
					return fmt.Errorf("write diff: %w", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&staged, "staged", false, "compare the index with HEAD")
	cmd.Flags().IntVarP(&context, "unified", "U", diff.DefaultContext, "lines of context")
	return cmd
}
