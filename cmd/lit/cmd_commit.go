package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCommitCmd() *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "commit",
		Short: "Record changes to the repository",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo(cmd)
			if err != nil {
				return err
			}
			if message == "" {
				state, err := r.MergeState()
				if err != nil {
					return err
				}
				if state == nil {
					return fmt.Errorf("commit message is required (-m)")
				}
			}

			author, err := loadIdentity(cmd, r)
			if err != nil {
				return err
			}
			h, err := r.Commit(message, author)
			if err != nil {
				return err
			}
			c, err := r.Store.ReadCommit(h)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "[%s %s] %s\n", headLabel(r), h.Short(), firstLine(c.Message))
			return nil
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "commit message")
	cmd.Flags().String("author", "", "author name (default: user.name from config, else $USER)")
	cmd.Flags().String("email", "", "author email (default: user.email from config)")
	return cmd
}
