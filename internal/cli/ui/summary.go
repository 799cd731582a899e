package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/choreo-dev/policy-validator/internal/compiler/metadata"
	"github.com/choreo-dev/policy-validator/internal/policy"
)

var flowRoles = []policy.Role{policy.RoleInFlow, policy.RoleOutFlow, policy.RoleFaultFlow}

// RenderDocument prints a policy metadata document as a package summary
// followed by one row per parameter of each described flow
func RenderDocument(w io.Writer, doc *metadata.Document, noColor bool) {
	Header(w, fmt.Sprintf("Policy %s/%s", doc.Org, doc.Name), noColor)

	kv := NewKeyValueTable(w, noColor)
	kv.AddRow("Version", doc.Version)
	kv.AddRow("Policies", fmt.Sprintf("%d", doc.PolicyCount()))
	kv.Render()
	fmt.Fprintln(w)

	table := NewTable(w, noColor, "FLOW", "FUNCTION", "PARAMETER", "TYPE", "CONFIGURABLE")
	for _, role := range flowRoles {
		slot := role.Slot()
		fn := doc.Slot(role)
		if fn == nil {
			continue
		}
		if len(fn.Params) == 0 {
			table.AddRow(slot, fn.Name, "-", "-", "-")
			continue
		}
		for i, p := range fn.Params {
			flow, name := slot, fn.Name
			if i > 0 {
				flow, name = "", ""
			}
			table.AddRow(flow, name, p.Name, typeLabel(p.Type), yesNo(p.IsConfigurable))
		}
	}
	table.Render()
}

func typeLabel(t metadata.TypeMeta) string {
	label := t.Name
	if t.Package != nil {
		label = t.Package.Name + ":" + label
	}
	return fmt.Sprintf("%s (%s)", label, strings.ToLower(t.Kind))
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
