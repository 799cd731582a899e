package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/choreo-dev/policy-validator/internal/cli/ui"
	"github.com/choreo-dev/policy-validator/internal/compiler/metadata"
	"github.com/choreo-dev/policy-validator/internal/plugin"
)

type generateOptions struct {
	output string
	stdout bool
}

// NewGenerateCommand creates the generate command
func NewGenerateCommand(opts *Options) *cobra.Command {
	genOpts := &generateOptions{}

	cmd := &cobra.Command{
		Use:     "generate [dir]",
		Aliases: []string{"gen"},
		Short:   "Generate policy-meta.json",
		Long: `Describe the public InFlow, OutFlow and FaultFlow functions of the package
in dir (default: current directory) and write policy-meta.json to the
output directory (default: output.dir from the config, target/resources).`,
		Example: `  # Write target/resources/policy-meta.json
  policy-validator generate

  # Print the document instead of writing it
  policy-validator generate --stdout

  # Write to a custom directory
  policy-validator generate ./policies -o dist`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, args, opts, genOpts)
		},
	}

	cmd.Flags().StringVarP(&genOpts.output, "output", "o", "", "Output directory (default: output.dir)")
	cmd.Flags().BoolVar(&genOpts.stdout, "stdout", false, "Print policy-meta.json instead of writing it")

	return cmd
}

func runGenerate(cmd *cobra.Command, args []string, opts *Options, genOpts *generateOptions) error {
	if err := checkFormat(opts.Format, formatText, formatJSON); err != nil {
		return err
	}

	s, err := opts.openSession(cmd.Context(), args, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer s.close()

	out := cmd.OutOrStdout()

	if genOpts.stdout {
		sink := plugin.NewMemorySink()
		if _, err := s.plugin.Generate(cmd.Context(), s.pkg, sink); err != nil {
			return err
		}
		data, _ := sink.File(metadata.FileName)
		fmt.Fprintln(out, string(data))
		return nil
	}

	sink := plugin.NewDirSink(s.outputDir(genOpts.output))
	doc, err := s.plugin.Generate(cmd.Context(), s.pkg, sink)
	if err != nil {
		return err
	}

	if opts.Format == formatJSON {
		return writeJSON(out, doc)
	}

	ui.RenderDocument(out, doc, opts.NoColor)
	fmt.Fprintln(out)
	ui.WriteSuccess(out, "Wrote "+sink.Path(metadata.FileName), opts.NoColor)
	return nil
}
