package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentic-research/autoinit/internal/query"
)

func newGetCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "get [root] [jsonpath]",
		Short: "Compose a directory and print the values matching a JSONPath expression",
		Example: `  autoinit get ./modules '$.api.util'
  autoinit get ./modules '$..port'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := opts.compose(cmd, args[0])
			if err != nil {
				return err
			}
			matches, err := query.Get(m, args[1])
			if err != nil {
				return err
			}
			if len(matches) == 0 {
				return fmt.Errorf("no match for %s", args[1])
			}
			for _, v := range matches {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), query.JSON(v, 0)); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
