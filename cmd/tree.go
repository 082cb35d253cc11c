package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentic-research/autoinit/internal/graph"
	"github.com/agentic-research/autoinit/internal/query"
)

func newTreeCmd(opts *options) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "tree [root]",
		Short: "Print the composed module as a tree",
		Long: `Print the composed module as a tree. Modules end in "/", functions in "()"
and plain values show their JSON form. With --db the tree is read from a
database written by "autoinit build" instead of composing a directory.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var g graph.Graph
			switch {
			case dbPath != "" && len(args) == 0:
				store, err := graph.LoadSQLite(dbPath)
				if err != nil {
					return err
				}
				g = store
			case dbPath == "" && len(args) == 1:
				m, err := opts.compose(cmd, args[0])
				if err != nil {
					return err
				}
				store := graph.NewMemoryStore()
				graph.FromModule(store, m)
				g = store
			default:
				return fmt.Errorf("tree takes either a root directory or --db")
			}

			out := cmd.OutOrStdout()
			return graph.Walk(g, "", func(n *graph.Node, depth int) error {
				_, err := fmt.Fprintf(out, "%s%s\n", strings.Repeat("  ", depth), label(n))
				return err
			})
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "Read the tree from a SQLite database")
	return cmd
}

func label(n *graph.Node) string {
	switch n.Kind {
	case graph.KindModule:
		return n.Name + "/"
	case graph.KindFunc:
		return n.Name + "()"
	default:
		return n.Name + " = " + query.JSON(n.Value, 0)
	}
}
