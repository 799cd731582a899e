// Package metadata builds the policy metadata document that describes a
// package's policy functions for downstream gateway tooling.
package metadata

import "github.com/choreo-dev/policy-validator/internal/policy"

// FileName is the name under which the document is attached to the build
const FileName = "policy-meta.json"

// Document is the policy metadata for one package. Each flow slot holds at
// most one function.
type Document struct {
	Org       string        `json:"org"`
	Name      string        `json:"name"`
	Version   string        `json:"version"`
	InFlow    *FunctionMeta `json:"inflow,omitempty"`
	OutFlow   *FunctionMeta `json:"outflow,omitempty"`
	FaultFlow *FunctionMeta `json:"faultflow,omitempty"`
}

// FunctionMeta describes a policy function
type FunctionMeta struct {
	Name   string      `json:"name"`
	Params []ParamMeta `json:"params"`
}

// ParamMeta describes a policy function parameter
type ParamMeta struct {
	Name           string   `json:"name"`
	Type           TypeMeta `json:"type"`
	IsConfigurable bool     `json:"isConfigurable"`
}

// TypeMeta describes a parameter type. Package is omitted for built-in types.
type TypeMeta struct {
	Name    string       `json:"name"`
	Kind    string       `json:"kind"`
	Package *PackageMeta `json:"package,omitempty"`
}

// PackageMeta identifies the module that declares a type
type PackageMeta struct {
	Org     string `json:"org"`
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Slot returns the function assigned to role, or nil
func (d *Document) Slot(role policy.Role) *FunctionMeta {
	switch role {
	case policy.RoleInFlow:
		return d.InFlow
	case policy.RoleOutFlow:
		return d.OutFlow
	case policy.RoleFaultFlow:
		return d.FaultFlow
	default:
		return nil
	}
}

// SetSlot assigns fn to role, replacing any earlier function in that slot
func (d *Document) SetSlot(role policy.Role, fn *FunctionMeta) {
	switch role {
	case policy.RoleInFlow:
		d.InFlow = fn
	case policy.RoleOutFlow:
		d.OutFlow = fn
	case policy.RoleFaultFlow:
		d.FaultFlow = fn
	}
}

// PolicyCount returns the number of filled flow slots
func (d *Document) PolicyCount() int {
	n := 0
	for _, fn := range []*FunctionMeta{d.InFlow, d.OutFlow, d.FaultFlow} {
		if fn != nil {
			n++
		}
	}
	return n
}
