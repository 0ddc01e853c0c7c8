package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/imraghavojha/lit/pkg/object"
	"github.com/spf13/cobra"
)

func newLogCmd() *cobra.Command {
	var oneline bool
	var limit int

	cmd := &cobra.Command{
		Use:   "log [revision]",
		Short: "Show commit history",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo(cmd)
			if err != nil {
				return err
			}

			var start object.Hash
			if len(args) == 1 {
				start, err = r.Resolve(args[0])
			} else {
				start, err = r.HeadCommit()
			}
			if err != nil {
				return err
			}
			if start == "" {
				return fmt.Errorf("your current branch %q does not have any commits yet", headLabel(r))
			}

			entries, err := r.Log(start, limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, e := range entries {
				c := e.Commit
				if oneline {
					fmt.Fprintf(out, "%s %s\n", e.Hash.Short(), firstLine(c.Message))
					continue
				}
				fmt.Fprintf(out, "commit %s\n", e.Hash)
				if len(c.Parents) > 1 {
					shorts := make([]string, len(c.Parents))
					for i, p := range c.Parents {
						shorts[i] = p.Short()
					}
					fmt.Fprintf(out, "Merge: %s\n", strings.Join(shorts, " "))
				}
				fmt.Fprintf(out, "Author: %s <%s>\n", c.Author.Name, c.Author.Email)
				fmt.Fprintf(out, "Date:   %s %s\n", time.Unix(c.Author.When, 0).UTC().Format("2006-01-02 15:04:05"), c.Author.Offset)
				fmt.Fprintln(out)
				for _, line := range strings.Split(c.Message, "\n") {
					fmt.Fprintf(out, "    %s\n", line)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&oneline, "oneline", false, "show each commit on a single line")
	cmd.Flags().IntVarP(&limit, "max-count", "n", 0, "limit the number of commits shown")
	return cmd
}
