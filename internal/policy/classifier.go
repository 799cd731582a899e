// Package policy classifies functions as gateway policies by the annotations
// they carry. Only annotations declared by the trusted annotation library
// count; unresolved annotations never match.
package policy

import "github.com/choreo-dev/policy-validator/internal/compiler/symbols"

const (
	// DefaultOrg is the organization of the trusted annotation library
	DefaultOrg = "choreo"
	// DefaultPackage is the package of the trusted annotation library
	DefaultPackage = "policy_validator"
)

// Annotation names recognised by the classifier
const (
	InFlowAnnotation    = "InFlow"
	OutFlowAnnotation   = "OutFlow"
	FaultFlowAnnotation = "FaultFlow"
	ConfigAnnotation    = "Config"
)

// Role is the flow stage a policy function takes part in
type Role int

const (
	RoleNone Role = iota
	RoleInFlow
	RoleOutFlow
	RoleFaultFlow
)

// flowRoles lists the roles in classification priority order
var flowRoles = []Role{RoleInFlow, RoleOutFlow, RoleFaultFlow}

// Annotation returns the annotation name that marks the role
func (r Role) Annotation() string {
	switch r {
	case RoleInFlow:
		return InFlowAnnotation
	case RoleOutFlow:
		return OutFlowAnnotation
	case RoleFaultFlow:
		return FaultFlowAnnotation
	default:
		return ""
	}
}

// Slot returns the metadata document key for the role
func (r Role) Slot() string {
	switch r {
	case RoleInFlow:
		return "inflow"
	case RoleOutFlow:
		return "outflow"
	case RoleFaultFlow:
		return "faultflow"
	default:
		return ""
	}
}

func (r Role) String() string {
	if r == RoleNone {
		return "none"
	}
	return r.Annotation()
}

// Matcher identifies the trusted annotation library by organization and
// package. Both passes share one Matcher so they agree on what a policy is.
type Matcher struct {
	Org     string
	Package string
}

// NewMatcher creates a matcher for the given organization and package
func NewMatcher(org, pkg string) Matcher {
	return Matcher{Org: org, Package: pkg}
}

// DefaultMatcher returns a matcher for the default trusted library
func DefaultMatcher() Matcher {
	return NewMatcher(DefaultOrg, DefaultPackage)
}

// Trusts reports whether the module is the trusted annotation library
func (m Matcher) Trusts(id *symbols.ModuleID) bool {
	return id != nil && id.Org == m.Org && id.Name == m.Package
}

// Matches reports whether a is the trusted annotation called name
func (m Matcher) Matches(a symbols.Annotation, name string) bool {
	return a.Name == name && m.Trusts(a.Module)
}

// Has reports whether any of annots is the trusted annotation called name
func (m Matcher) Has(annots []symbols.Annotation, name string) bool {
	for _, a := range annots {
		if m.Matches(a, name) {
			return true
		}
	}
	return false
}

// ClassifyFlowRole returns the flow role marked by annots. When several flow
// annotations are present the first in the order InFlow, OutFlow, FaultFlow wins.
func (m Matcher) ClassifyFlowRole(annots []symbols.Annotation) Role {
	for _, role := range flowRoles {
		if m.Has(annots, role.Annotation()) {
			return role
		}
	}
	return RoleNone
}

// IsConfigurable reports whether a parameter's annotations mark it configurable
func (m Matcher) IsConfigurable(annots []symbols.Annotation) bool {
	return m.Has(annots, ConfigAnnotation)
}

// IsPolicy reports whether any annotation is a trusted flow annotation.
// Unlike ClassifyFlowRole it does not rank the roles.
func (m Matcher) IsPolicy(annots []symbols.Annotation) bool {
	for _, a := range annots {
		if !isFlowAnnotation(a.Name) || !a.Resolved() {
			continue
		}
		if m.Trusts(a.Module) {
			return true
		}
	}
	return false
}

func isFlowAnnotation(name string) bool {
	return name == InFlowAnnotation || name == OutFlowAnnotation || name == FaultFlowAnnotation
}
