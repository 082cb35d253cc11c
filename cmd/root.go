package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/agentic-research/autoinit/api"
	"github.com/agentic-research/autoinit/autoinit"
	"github.com/agentic-research/autoinit/internal/config"
	"github.com/agentic-research/autoinit/internal/ctxlog"
	"github.com/agentic-research/autoinit/internal/unit"
)

// options holds the state shared by the subcommands of one root command.
type options struct {
	configPath string
	set        []string
	cfg        *config.Config
}

// NewRootCmd builds the autoinit command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "autoinit",
		Short:         "Compose a directory tree of Lua and data units into one module",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath, cmd.Flags())
			if err != nil {
				return err
			}
			logger, err := newLogger(cmd.ErrOrStderr(), cfg)
			if err != nil {
				return err
			}
			opts.cfg = cfg

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cmd.SetContext(ctxlog.WithLogger(ctx, logger))
			if cfg.File != "" {
				logger.Debug("Loaded config.", "file", cfg.File)
			}
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "Config file (default .autoinit.* in the working or home directory)")
	pf.String("log-level", "info", "Log level: debug, info, warn or error")
	pf.String("log-format", "text", "Log format: text, json or logfmt")
	pf.String("meta-file", api.MetaFileName, "Per-directory metadata file name")
	pf.Bool("data", false, "Also load .json, .toml and .hcl files as record units")
	pf.StringArrayVar(&opts.set, "set", nil, "Seed the shared context with key=value (repeatable)")

	root.AddCommand(
		newTreeCmd(opts),
		newScanCmd(opts),
		newGetCmd(opts),
		newCallCmd(opts),
		newBuildCmd(opts),
	)
	return root
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(w io.Writer, cfg *config.Config) (*slog.Logger, error) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log-level %q: %w", cfg.LogLevel, err)
	}

	formatter := log.TextFormatter
	switch cfg.LogFormat {
	case "json":
		formatter = log.JSONFormatter
	case "logfmt":
		formatter = log.LogfmtFormatter
	}

	handler := log.NewWithOptions(w, log.Options{
		Level:           level,
		Formatter:       formatter,
		ReportTimestamp: true,
		Prefix:          "autoinit",
	})
	return slog.New(handler), nil
}

// composer builds a composer from the loaded configuration.
func (o *options) composer(cmd *cobra.Command) *autoinit.Composer {
	registry := unit.NewRegistry()
	if o.cfg.Data {
		registry.WithDataLoaders()
	}
	logger := ctxlog.FromContext(cmd.Context())
	return autoinit.New(
		autoinit.WithRegistry(registry),
		autoinit.WithMetaFile(o.cfg.MetaFile),
		autoinit.WithMetadataHook(func(dir string, meta *api.Metadata) {
			logger.Debug("Directory metadata.", "dir", dir, "fields", len(meta.Fields()))
		}),
	)
}

// compose initializes root with a shared store seeded from config and --set.
func (o *options) compose(cmd *cobra.Command, root string) (api.Module, error) {
	overrides, err := parseSet(o.set)
	if err != nil {
		return nil, err
	}
	return o.composer(cmd).Init(cmd.Context(), root, o.cfg.Store(overrides))
}

func parseSet(values []string) (map[string]string, error) {
	out := make(map[string]string, len(values))
	for _, kv := range values {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --set %q: want key=value", kv)
		}
		out[k] = v
	}
	return out, nil
}
