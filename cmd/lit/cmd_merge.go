package main

import (
	"fmt"

	"github.com/imraghavojha/lit/pkg/repo"
	"github.com/spf13/cobra"
)

func newMergeCmd() *cobra.Command {
	var abort bool

	cmd := &cobra.Command{
		Use:   "merge <branch|commit>",
		Short: "Merge another branch into the current branch",
		Args: func(cmd *cobra.Command, args []string) error {
			if abort {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if abort {
				if err := r.AbortMerge(); err != nil {
					return err
				}
				fmt.Fprintln(out, "merge aborted")
				return nil
			}

			author, err := loadIdentity(cmd, r)
			if err != nil {
				return err
			}
			name := args[0]
			res, err := r.MergeBranch(name, author)
			if err != nil {
				return err
			}

			switch res.Status {
			case repo.MergeUpToDate:
				fmt.Fprintln(out, "already up to date")
			case repo.MergeFastForward:
				fmt.Fprintf(out, "fast-forward %s..%s\n", res.Head.Short(), res.Other.Short())
			case repo.MergeClean:
				for _, p := range res.Updated {
					fmt.Fprintf(out, "  ~ %s\n", p)
				}
				for _, p := range res.Deleted {
					fmt.Fprintf(out, "  - %s\n", p)
				}
				fmt.Fprintf(out, "[%s %s] merged %s\n", headLabel(r), res.Commit.Short(), name)
			case repo.MergeConflicted:
				for _, p := range res.ConflictedPaths {
					fmt.Fprintf(out, "CONFLICT: %s\n", p)
				}
				fmt.Fprintf(out, "automatic merge failed with %d conflict(s); fix them, lit add, then lit commit\n", len(res.ConflictedPaths))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&abort, "abort", false, "abandon the merge in progress")
	cmd.Flags().String("author", "", "author name for the merge commit")
	cmd.Flags().String("email", "", "author email for the merge commit")
	return cmd
}
