package errors

import (
	"path/filepath"
	"sort"

	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
)

// diagnosticSource is reported as the Source of every LSP diagnostic
const diagnosticSource = "policy-validator"

// ToProtocol groups the list by file and converts each group into LSP
// publishDiagnostics params. Files are returned in sorted order.
func (el ErrorList) ToProtocol() []protocol.PublishDiagnosticsParams {
	byFile := make(map[string][]protocol.Diagnostic)
	for _, err := range el {
		byFile[err.File] = append(byFile[err.File], err.ToProtocolDiagnostic())
	}

	files := make([]string, 0, len(byFile))
	for f := range byFile {
		files = append(files, f)
	}
	sort.Strings(files)

	params := make([]protocol.PublishDiagnosticsParams, 0, len(files))
	for _, f := range files {
		params = append(params, protocol.PublishDiagnosticsParams{
			URI:         documentURI(f),
			Diagnostics: byFile[f],
		})
	}
	return params
}

// ToProtocolDiagnostic converts the error into an LSP diagnostic.
// LSP positions are zero-based; the error's location is one-based.
func (e *CompilerError) ToProtocolDiagnostic() protocol.Diagnostic {
	pos := protocol.Position{
		Line:      zeroBased(e.Location.Line),
		Character: zeroBased(e.Location.Column),
	}
	return protocol.Diagnostic{
		Range:    protocol.Range{Start: pos, End: pos},
		Severity: convertSeverity(e.Severity),
		Code:     string(e.Code),
		Source:   diagnosticSource,
		Message:  e.Message,
	}
}

// convertSeverity converts diagnostic severity to LSP severity
func convertSeverity(severity ErrorSeverity) protocol.DiagnosticSeverity {
	switch severity {
	case SeverityError:
		return protocol.DiagnosticSeverityError
	case SeverityWarning:
		return protocol.DiagnosticSeverityWarning
	case SeverityInfo:
		return protocol.DiagnosticSeverityInformation
	default:
		return protocol.DiagnosticSeverityError
	}
}

func documentURI(file string) protocol.DocumentURI {
	if file == "" {
		return ""
	}
	if abs, err := filepath.Abs(file); err == nil {
		file = abs
	}
	return protocol.DocumentURI(uri.File(file))
}

func zeroBased(n int) uint32 {
	if n <= 0 {
		return 0
	}
	return uint32(n - 1)
}
