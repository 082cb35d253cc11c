package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/agentic-research/autoinit/internal/query"
)

func newScanCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "scan [dir]",
		Short: "List the entries and metadata of one directory without loading units",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			meta, entries, err := opts.composer(cmd).Scanner().Scan(dir)
			if err != nil {
				return err
			}

			list := make([]any, len(entries))
			for i, e := range entries {
				item := map[string]any{
					"kind": e.Kind.String(),
					"name": e.Name,
					"path": e.Path,
				}
				if e.Suffix != "" {
					item["suffix"] = e.Suffix
				}
				list[i] = item
			}
			report := map[string]any{"entries": list}
			if meta != nil {
				report["metadata"] = meta.Value
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), query.JSON(report, 2))
			return err
		},
	}
}
