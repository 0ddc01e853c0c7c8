package main

import (
	"fmt"

	"github.com/imraghavojha/lit/pkg/repo"
	"github.com/spf13/cobra"
)

func newCheckoutCmd() *cobra.Command {
	var createBranch, force bool

	cmd := &cobra.Command{
		Use:   "checkout <branch|commit>",
		Short: "Switch branches or detach HEAD at a commit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSwitch(cmd, args[0], createBranch, force)
		},
	}
	cmd.Flags().BoolVarP(&createBranch, "branch", "b", false, "create and switch to a new branch")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "discard local changes to tracked files")
	return cmd
}

func newSwitchCmd() *cobra.Command {
	var createBranch, force bool

	cmd := &cobra.Command{
		Use:   "switch <branch>",
		Short: "Switch branches",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSwitch(cmd, args[0], createBranch, force)
		},
	}
	cmd.Flags().BoolVarP(&createBranch, "create", "c", false, "create and switch to a new branch")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "discard local changes to tracked files")
	return cmd
}

func runSwitch(cmd *cobra.Command, target string, create, force bool) error {
	r, err := openRepo(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if create {
		if err := r.SwitchNewBranch(target); err != nil {
			return err
		}
		fmt.Fprintf(out, "switched to new branch '%s'\n", target)
		return nil
	}

	if err := r.Checkout(target, repo.CheckoutOptions{Force: force}); err != nil {
		return err
	}
	if r.BranchExists(target) {
		fmt.Fprintf(out, "switched to branch '%s'\n", target)
	} else {
		h, err := r.HeadCommit()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "HEAD is now at %s (detached)\n", h.Short())
	}
	return nil
}
