package commands

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

// ErrValidationFailed is returned when a pass reported error diagnostics.
// The diagnostics have already been printed.
var ErrValidationFailed = errors.New("validation failed")

// Options holds the flags shared by every subcommand
type Options struct {
	ConfigFile string
	Model      string
	Format     string
	NoColor    bool
	Verbose    bool
}

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	opts := &Options{}

	rootCmd := &cobra.Command{
		Use:   "policy-validator",
		Short: "Validate mediation policies and generate policy metadata",
		Long: color.CyanString(`policy-validator - gateway mediation policy tooling

Finds functions annotated as InFlow, OutFlow or FaultFlow policies,
checks that they are declared public, and describes them in a
policy-meta.json file for the gateway.

Annotations are written as directive comments above a function:
  //@choreo/policy_validator.InFlow
  //@choreo/policy_validator.Config:header`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.NoColor {
				color.NoColor = true
			}
			return nil
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.ConfigFile, "config", "", "Config file (default: policy-validator.yaml in the project)")
	pf.StringVar(&opts.Model, "model", "", "Read a symbol model dump (YAML or JSON) instead of Go sources")
	pf.StringVar(&opts.Format, "format", formatText, "Output format: text, json or lsp")
	pf.BoolVar(&opts.NoColor, "no-color", false, "Disable colored output")
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(NewValidateCommand(opts))
	rootCmd.AddCommand(NewGenerateCommand(opts))
	rootCmd.AddCommand(NewBuildCommand(opts))
	rootCmd.AddCommand(NewLSPCommand(opts))

	return rootCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display the policy-validator version, Git commit, build date, and Go version",
		Run: func(cmd *cobra.Command, args []string) {
			// Set GoVersion to actual runtime if not set at build time
			goVer := GoVersion
			if goVer == "unknown" {
				goVer = runtime.Version()
			}

			out := cmd.OutOrStdout()
			titleColor := color.New(color.FgCyan, color.Bold)

			titleColor.Fprint(out, "policy-validator version: ")
			fmt.Fprintln(out, Version)

			titleColor.Fprint(out, "Git commit: ")
			fmt.Fprintln(out, GitCommit)

			titleColor.Fprint(out, "Build date: ")
			fmt.Fprintln(out, BuildDate)

			titleColor.Fprint(out, "Go version: ")
			fmt.Fprintln(out, goVer)
		},
	}
}

// Execute runs the root command
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, ErrValidationFailed) {
			errorColor := color.New(color.FgRed, color.Bold)
			errorColor.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		}
		return err
	}
	return nil
}
