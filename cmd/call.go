package cmd

import (
	"fmt"
	"strings"

	"github.com/ohler55/ojg/oj"
	"github.com/spf13/cobra"

	"github.com/agentic-research/autoinit/internal/query"
)

func newCallCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "call [root] [dotted.name] [args...]",
		Short: "Compose a directory and invoke one of its functions",
		Long: `Compose a directory and invoke the function bound at a dotted name.
Arguments that parse as JSON are passed as JSON values; anything else is
passed as a string. The result is printed as JSON.`,
		Example: `  autoinit call ./modules api.util.encoding.test
  autoinit call ./modules math.add 2 3`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := opts.compose(cmd, args[0])
			if err != nil {
				return err
			}

			callArgs := make([]any, 0, len(args)-2)
			for _, a := range args[2:] {
				callArgs = append(callArgs, parseArg(a))
			}
			out, err := m.Call(strings.Split(args[1], "."), callArgs...)
			if err != nil {
				return fmt.Errorf("call %s: %w", args[1], err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), query.JSON(out, 0))
			return err
		},
	}
}

// parseArg decodes a JSON scalar or document, falling back to the raw string.
// Integral numbers are passed as int.
func parseArg(s string) any {
	v, err := oj.ParseString(s)
	if err != nil {
		return s
	}
	if n, ok := v.(int64); ok {
		return int(n)
	}
	return v
}
