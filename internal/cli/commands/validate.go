package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/choreo-dev/policy-validator/internal/cli/ui"
	cerrors "github.com/choreo-dev/policy-validator/internal/compiler/errors"
)

// NewValidateCommand creates the validate command
func NewValidateCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [dir]",
		Short: "Check policy functions for structural errors",
		Long: `Load the package in dir (default: current directory) and report policy
functions that violate the policy rules:

  GWPOLICY001  a policy should be 'public'
  GWPOLICY002  there can only be one policy per package (when validate.single_policy is set)`,
		Example: `  # Validate the Go package in the current directory
  policy-validator validate

  # Validate a model dump exported by the compiler
  policy-validator validate --model target/model.yaml

  # Emit LSP diagnostics for an editor integration
  policy-validator validate ./policies --format lsp`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, args, opts)
		},
	}
}

func runValidate(cmd *cobra.Command, args []string, opts *Options) error {
	if err := checkFormat(opts.Format, formatText, formatJSON, formatLSP); err != nil {
		return err
	}

	s, err := opts.openSession(cmd.Context(), args, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer s.close()

	collector := cerrors.NewCollector()
	result, err := s.plugin.Analyze(cmd.Context(), s.pkg, collector)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	diags := collector.Errors()
	if err := writeDiagnostics(out, diags, opts.Format); err != nil {
		return err
	}

	if opts.Format == formatText {
		if len(diags) > 0 {
			fmt.Fprintln(out)
		}
		if !result.PolicyFound {
			fmt.Fprint(out, ui.Warning("no policy functions found in "+s.pkg.Descriptor.String(), opts.NoColor))
		}
		if !diags.HasErrors() {
			ui.WriteSuccess(out, fmt.Sprintf("Validated %s in %v", s.pkg.Descriptor, result.Duration.Round(time.Microsecond)), opts.NoColor)
		}
	}

	if diags.HasErrors() {
		return ErrValidationFailed
	}
	return nil
}
