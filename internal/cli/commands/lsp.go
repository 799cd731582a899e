package commands

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	cerrors "github.com/choreo-dev/policy-validator/internal/compiler/errors"
	"github.com/choreo-dev/policy-validator/internal/logging"
	"github.com/choreo-dev/policy-validator/internal/lsp"
)

// NewLSPCommand creates the LSP command
func NewLSPCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "lsp",
		Short: "Start the Language Server Protocol server",
		Long: `Start a Language Server Protocol (LSP) server that reports policy
diagnostics for the Go package of every opened or saved document.

The LSP server communicates via JSON-RPC over stdin/stdout and logs to
stderr. It is typically started automatically by your editor/IDE.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLSP(cmd, opts)
		},
	}
}

func runLSP(cmd *cobra.Command, opts *Options) error {
	if opts.Model != "" {
		return errors.New("lsp analyzes Go sources; --model is not supported")
	}

	level := "info"
	if opts.Verbose {
		level = "debug"
	}
	logger, err := logging.New(level, true)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return lsp.NewServer(opts.analyzer(), logger).Run(ctx, lsp.Stdio{})
}

// analyzer runs the analysis pass over the package in a directory, picking
// up the configuration of the project that holds it
func (o *Options) analyzer() lsp.AnalyzeFunc {
	return func(ctx context.Context, dir string) (cerrors.ErrorList, error) {
		s, err := o.openSession(ctx, []string{dir}, io.Discard)
		if err != nil {
			return nil, err
		}
		defer s.close()

		collector := cerrors.NewCollector()
		if _, err := s.plugin.Analyze(ctx, s.pkg, collector); err != nil {
			return nil, err
		}
		return collector.Errors(), nil
	}
}
