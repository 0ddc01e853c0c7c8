package main

import (
	"fmt"

	"github.com/imraghavojha/lit/pkg/repo"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show working tree status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo(cmd)
			if err != nil {
				return err
			}
			entries, err := r.Status()
			if err != nil {
				return err
			}
			head, err := r.HeadCommit()
			if err != nil {
				return err
			}
			state, err := r.MergeState()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			branch := headLabel(r)
			switch {
			case head == "":
				fmt.Fprintf(out, "on %s (no commits yet)\n", branch)
			case branch == "HEAD":
				fmt.Fprintf(out, "HEAD detached at %s\n", head.Short())
			default:
				fmt.Fprintf(out, "on %s\n", branch)
			}
			if state != nil {
				fmt.Fprintf(out, "merging %s\n", state.Head.Short())
			}

			var conflicts, staged, unstaged, untracked []string
			for _, e := range entries {
				switch e.IndexStatus {
				case repo.StatusNew:
					staged = append(staged, "  + "+e.Path)
				case repo.StatusModified:
					staged = append(staged, "  ~ "+e.Path)
				case repo.StatusDeleted:
					staged = append(staged, "  - "+e.Path)
				}
				switch e.WorkStatus {
				case repo.StatusConflict:
					conflicts = append(conflicts, "  ! "+e.Path)
				case repo.StatusModified:
					unstaged = append(unstaged, "  ~ "+e.Path)
				case repo.StatusDeleted:
					unstaged = append(unstaged, "  - "+e.Path)
				case repo.StatusUntracked:
					untracked = append(untracked, "  "+e.Path)
				}
			}

			printSection(cmd, "conflicts:", conflicts)
			printSection(cmd, "staged:", staged)
			printSection(cmd, "unstaged:", unstaged)
			printSection(cmd, "untracked:", untracked)
			if len(entries) == 0 && head != "" {
				fmt.Fprintln(out, "nothing to commit, working tree clean")
			}
			return nil
		},
	}
}

func printSection(cmd *cobra.Command, title string, lines []string) {
	if len(lines) == 0 {
		return
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out)
	fmt.Fprintln(out, title)
	for _, l := range lines {
		fmt.Fprintln(out, l)
	}
}
