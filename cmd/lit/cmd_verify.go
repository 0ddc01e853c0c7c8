package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVerifyCmd() *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check object integrity and history reachability",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo(cmd)
			if err != nil {
				return err
			}
			report, err := r.Fsck(cmd.Context(), workers)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, c := range report.Corrupt {
				fmt.Fprintf(out, "corrupt: %s\n", c)
			}
			for _, h := range report.Missing {
				fmt.Fprintf(out, "missing: %s\n", h)
			}
			if !report.OK() {
				return fmt.Errorf("verify failed: %d corrupt, %d missing object(s)", len(report.Corrupt), len(report.Missing))
			}
			fmt.Fprintf(out, "ok: verified %d object(s), %d reachable, %d unreachable\n",
				report.Objects, report.Reachable, len(report.Unreachable))
			return nil
		},
	}
	cmd.Flags().IntVarP(&workers, "jobs", "j", 0, "objects to check in parallel (default: GOMAXPROCS)")
	return cmd
}

func newPruneCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete objects unreachable from refs and the index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo(cmd)
			if err != nil {
				return err
			}
			pruned, err := r.Prune(dryRun)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			verb := "pruned"
			if dryRun {
				verb = "would prune"
			}
			for _, h := range pruned {
				fmt.Fprintf(out, "%s %s\n", verb, h)
			}
			fmt.Fprintf(out, "%s %d object(s)\n", verb, len(pruned))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "list objects without deleting them")
	return cmd
}
