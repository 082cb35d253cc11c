package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentic-research/autoinit/internal/ctxlog"
	"github.com/agentic-research/autoinit/internal/graph"
)

func newBuildCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "build [root] [output.db]",
		Short: "Compose a directory and write the module tree to a SQLite database",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := args[0]
			output := args[1]
			logger := ctxlog.FromContext(cmd.Context())

			start := time.Now()
			m, err := opts.compose(cmd, source)
			if err != nil {
				return err
			}

			_ = os.Remove(output) // Overwrite
			writer, err := graph.NewSQLiteWriter(output)
			if err != nil {
				return err
			}
			graph.FromModule(writer, m)
			if err := writer.Close(); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}

			stats := graph.NewMemoryStore()
			graph.FromModule(stats, m)
			logger.Info("Built module database.", "output", output, "nodes", stats.Len(), "took", time.Since(start))
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: %d modules, %d functions, %d values\n",
				output, stats.Count(graph.KindModule), stats.Count(graph.KindFunc), stats.Count(graph.KindValue))
			return err
		},
	}
}
