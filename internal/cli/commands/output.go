package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"

	cerrors "github.com/choreo-dev/policy-validator/internal/compiler/errors"
	"github.com/choreo-dev/policy-validator/internal/compiler/metadata"
)

// writeDiagnostics prints diagnostics in the requested format. Text output
// is colored by severity; json is the CompilerError list; lsp is one
// publishDiagnostics payload per file.
func writeDiagnostics(w io.Writer, diags cerrors.ErrorList, format string) error {
	switch format {
	case formatJSON:
		out, err := diags.ToJSON()
		if err != nil {
			return err
		}
		fmt.Fprintln(w, out)
	case formatLSP:
		return writeJSON(w, diags.ToProtocol())
	default:
		for i, d := range diags {
			if i > 0 {
				fmt.Fprintln(w)
			}
			severityColor(d.Severity).Fprint(w, cerrors.FormatError(d))
		}
	}
	return nil
}

func severityColor(severity cerrors.ErrorSeverity) *color.Color {
	switch severity {
	case cerrors.SeverityError:
		return color.New(color.FgRed)
	case cerrors.SeverityWarning:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgCyan)
	}
}

// buildReport is the json output of the build command
type buildReport struct {
	Diagnostics cerrors.ErrorList  `json:"diagnostics"`
	Metadata    *metadata.Document `json:"metadata"`
	File        string             `json:"file"`
	PolicyFound bool               `json:"policyFound"`
}

func writeJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(data))
	return nil
}
