package commands

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/choreo-dev/policy-validator/internal/cli/config"
	"github.com/choreo-dev/policy-validator/internal/cli/ui"
	cerrors "github.com/choreo-dev/policy-validator/internal/compiler/errors"
	"github.com/choreo-dev/policy-validator/internal/compiler/metadata"
	"github.com/choreo-dev/policy-validator/internal/plugin"
	"github.com/choreo-dev/policy-validator/internal/watch"
)

type buildOptions struct {
	output string
	watch  bool
}

// NewBuildCommand creates the build command
func NewBuildCommand(opts *Options) *cobra.Command {
	buildOpts := &buildOptions{}

	cmd := &cobra.Command{
		Use:   "build [dir]",
		Short: "Validate policies and generate policy-meta.json",
		Long: `Run validation and then metadata generation over the package in dir.

The build process:
  1. Load - type-check Go sources or read the --model dump
  2. Analysis - report policy diagnostics
  3. Generation - write policy-meta.json

policy-meta.json is written even when analysis reports errors; the command
then exits with a non-zero status.`,
		Example: `  # Build with default settings
  policy-validator build

  # Build and output diagnostics and metadata in JSON format (useful for tooling)
  policy-validator build --format json

  # Build to a custom output location
  policy-validator build -o dist/resources

  # Rebuild whenever a Go source or the config changes
  policy-validator build --watch`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if buildOpts.watch {
				return runBuildWatch(cmd, args, opts, buildOpts)
			}
			return runBuild(cmd, args, opts, buildOpts)
		},
	}

	cmd.Flags().StringVarP(&buildOpts.output, "output", "o", "", "Output directory (default: output.dir)")
	cmd.Flags().BoolVarP(&buildOpts.watch, "watch", "w", false, "Rebuild when sources change")

	return cmd
}

func runBuild(cmd *cobra.Command, args []string, opts *Options, buildOpts *buildOptions) error {
	if err := checkFormat(opts.Format, formatText, formatJSON, formatLSP); err != nil {
		return err
	}

	s, err := opts.openSession(cmd.Context(), args, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer s.close()

	sink := plugin.NewDirSink(s.outputDir(buildOpts.output))
	result, err := s.plugin.Build(cmd.Context(), s.pkg, sink)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch opts.Format {
	case formatJSON:
		diags := result.Diagnostics
		if diags == nil {
			diags = cerrors.ErrorList{}
		}
		err = writeJSON(out, buildReport{
			Diagnostics: diags,
			Metadata:    result.Document,
			File:        sink.Path(metadata.FileName),
			PolicyFound: result.PolicyFound,
		})
	case formatLSP:
		err = writeDiagnostics(out, result.Diagnostics, formatLSP)
	default:
		err = writeDiagnostics(out, result.Diagnostics, formatText)
		if len(result.Diagnostics) > 0 {
			fmt.Fprintln(out)
		}
		ui.RenderDocument(out, result.Document, opts.NoColor)
		fmt.Fprintln(out)
		if result.Success() {
			ui.WriteSuccess(out, fmt.Sprintf("Built %s in %v", sink.Path(metadata.FileName), result.Duration.Round(time.Microsecond)), opts.NoColor)
		} else {
			fmt.Fprint(out, ui.FormatMessage(ui.MessageOptions{
				Level:   ui.LevelError,
				Context: "build failed",
				Problem: fmt.Sprintf("%s written, but analysis reported errors", sink.Path(metadata.FileName)),
				NoColor: opts.NoColor,
			}))
		}
	}
	if err != nil {
		return err
	}

	if !result.Success() {
		return ErrValidationFailed
	}
	return nil
}

// runBuildWatch builds once, then rebuilds on every batch of changes until
// interrupted. Build failures are reported and watching continues.
func runBuildWatch(cmd *cobra.Command, args []string, opts *Options, buildOpts *buildOptions) error {
	watchOpts, err := watchTarget(args, opts)
	if err != nil {
		return err
	}

	var mu sync.Mutex
	rebuild := func() {
		mu.Lock()
		defer mu.Unlock()
		if err := runBuild(cmd, args, opts, buildOpts); err != nil && !errors.Is(err, ErrValidationFailed) {
			color.New(color.FgRed, color.Bold).Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
	}
	rebuild()

	watcher, err := watch.NewFileWatcher(watchOpts, func(files []string) error {
		fmt.Fprintln(cmd.OutOrStdout())
		fmt.Fprint(cmd.OutOrStdout(), ui.Info("Changed: "+strings.Join(files, ", "), opts.NoColor))
		rebuild()
		return nil
	})
	if err != nil {
		return err
	}
	if err := watcher.Start(); err != nil {
		return err
	}
	defer watcher.Stop()

	color.New(color.FgYellow).Fprintf(cmd.OutOrStdout(), "Watching %s, press Ctrl+C to stop\n", watchOpts.Root)

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	<-ctx.Done()
	return nil
}

// watchTarget returns what to watch: the model dump when one is used,
// otherwise the Go sources and config of the project
func watchTarget(args []string, opts *Options) (watch.Options, error) {
	if opts.Model != "" {
		return watch.Options{
			Root:     filepath.Dir(opts.Model),
			Patterns: []string{filepath.Base(opts.Model)},
		}, nil
	}

	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	root, err := config.FindRoot(dir)
	if err != nil {
		return watch.Options{}, err
	}
	return watch.Options{
		Root:     root,
		Patterns: []string{"*.go", "go.mod", config.FileName + ".yaml", config.FileName + ".yml"},
		Ignored:  []string{"vendor", "testdata"},
	}, nil
}
