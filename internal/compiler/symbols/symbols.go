// Package symbols defines the semantic model the policy passes walk: modules,
// their top-level symbols, and the annotations, parameters and types attached
// to function symbols. Adapters in sub-packages build it from Go sources or
// from a host compiler's model dump.
package symbols

import "fmt"

// ModuleID identifies the module that owns a type or annotation
type ModuleID struct {
	Org     string `yaml:"org" json:"org"`
	Name    string `yaml:"name" json:"name"`
	Version string `yaml:"version" json:"version"`
}

// String returns the module id as org/name:version
func (id ModuleID) String() string {
	if id.Version == "" {
		return id.Org + "/" + id.Name
	}
	return fmt.Sprintf("%s/%s:%s", id.Org, id.Name, id.Version)
}

// Location tracks the declaration site of a symbol
type Location struct {
	File   string `yaml:"file,omitempty" json:"file,omitempty"`
	Line   int    `yaml:"line" json:"line"`     // Line number (1-indexed)
	Column int    `yaml:"column" json:"column"` // Column number (1-indexed)
}

// Annotation is a reference to an annotation attached to a declaration.
// Module is nil when the annotation could not be resolved.
type Annotation struct {
	Name   string    `yaml:"name" json:"name"`
	Module *ModuleID `yaml:"module,omitempty" json:"module,omitempty"`
}

// Resolved reports whether the annotation has owning module information
func (a Annotation) Resolved() bool {
	return a.Module != nil
}

// TypeKind classifies a type descriptor
type TypeKind string

const (
	TypeKindBoolean   TypeKind = "BOOLEAN"
	TypeKindInt       TypeKind = "INT"
	TypeKindFloat     TypeKind = "FLOAT"
	TypeKindString    TypeKind = "STRING"
	TypeKindByte      TypeKind = "BYTE"
	TypeKindArray     TypeKind = "ARRAY"
	TypeKindMap       TypeKind = "MAP"
	TypeKindRecord    TypeKind = "RECORD"
	TypeKindObject    TypeKind = "OBJECT"
	TypeKindFunction  TypeKind = "FUNCTION"
	TypeKindPointer   TypeKind = "POINTER"
	TypeKindChannel   TypeKind = "CHANNEL"
	TypeKindError     TypeKind = "ERROR"
	TypeKindAny       TypeKind = "ANY"
	TypeKindNil       TypeKind = "NIL"
	TypeKindTuple     TypeKind = "TUPLE"
	TypeKindReference TypeKind = "TYPE_REFERENCE"
)

// Type is a type descriptor. Name is empty for anonymous types, in which case
// Signature carries the textual form of the type.
type Type struct {
	Name      string    `yaml:"name,omitempty" json:"name,omitempty"`
	Signature string    `yaml:"signature,omitempty" json:"signature,omitempty"`
	Kind      TypeKind  `yaml:"kind" json:"kind"`
	Module    *ModuleID `yaml:"module,omitempty" json:"module,omitempty"`
}

// DisplayName returns the type name, or its signature when the type is anonymous
func (t *Type) DisplayName() string {
	if t.Name != "" {
		return t.Name
	}
	return t.Signature
}

// Parameter is a function parameter
type Parameter struct {
	Name        string       `yaml:"name" json:"name"`
	Type        *Type        `yaml:"type" json:"type"`
	Annotations []Annotation `yaml:"annotations,omitempty" json:"annotations,omitempty"`
}

// Qualifier is a declared modifier on a symbol
type Qualifier string

const (
	QualifierPublic   Qualifier = "public"
	QualifierPrivate  Qualifier = "private"
	QualifierIsolated Qualifier = "isolated"
)

// Function is a top-level function symbol
type Function struct {
	Name        string       `yaml:"name" json:"name"`
	Qualifiers  []Qualifier  `yaml:"qualifiers,omitempty" json:"qualifiers,omitempty"`
	Annotations []Annotation `yaml:"annotations,omitempty" json:"annotations,omitempty"`
	Params      []*Parameter `yaml:"params,omitempty" json:"params,omitempty"`
	RestParam   *Parameter   `yaml:"rest_param,omitempty" json:"rest_param,omitempty"`
	Return      *Type        `yaml:"return,omitempty" json:"return,omitempty"`
	Location    Location     `yaml:"location" json:"location"`
}

// HasQualifier reports whether q is among the function's qualifiers
func (f *Function) HasQualifier(q Qualifier) bool {
	for _, fq := range f.Qualifiers {
		if fq == q {
			return true
		}
	}
	return false
}

// IsPublic reports whether the function carries the public qualifier
func (f *Function) IsPublic() bool {
	return f.HasQualifier(QualifierPublic)
}

// SymbolKind tags a top-level symbol
type SymbolKind string

const (
	SymbolFunction SymbolKind = "FUNCTION"
	SymbolMethod   SymbolKind = "METHOD"
	SymbolType     SymbolKind = "TYPE"
	SymbolVariable SymbolKind = "VARIABLE"
	SymbolConstant SymbolKind = "CONSTANT"
)

// Symbol is a top-level module symbol. Function is set for FUNCTION and METHOD symbols.
type Symbol struct {
	Kind     SymbolKind `yaml:"kind" json:"kind"`
	Name     string     `yaml:"name,omitempty" json:"name,omitempty"`
	Function *Function  `yaml:"function,omitempty" json:"function,omitempty"`
}

// Module is the semantic model of one compiled module
type Module struct {
	ID      ModuleID `yaml:"id" json:"id"`
	Symbols []Symbol `yaml:"symbols" json:"symbols"`
}

// ModuleSymbols returns the module's top-level symbols in declaration order
func (m *Module) ModuleSymbols() []Symbol {
	return m.Symbols
}

// Functions returns the FUNCTION symbols of the module in declaration order
func (m *Module) Functions() []*Function {
	fns := make([]*Function, 0, len(m.Symbols))
	for _, sym := range m.Symbols {
		if sym.Kind == SymbolFunction && sym.Function != nil {
			fns = append(fns, sym.Function)
		}
	}
	return fns
}

// PublicFunctions returns the FUNCTION symbols carrying the public qualifier
func (m *Module) PublicFunctions() []*Function {
	var fns []*Function
	for _, fn := range m.Functions() {
		if fn.IsPublic() {
			fns = append(fns, fn)
		}
	}
	return fns
}

// Package is a compiled package: its descriptor and its modules.
// The first module is the default module.
type Package struct {
	Descriptor ModuleID  `yaml:"descriptor" json:"descriptor"`
	Modules    []*Module `yaml:"modules" json:"modules"`
}

// DefaultModule returns the package's default module, or nil if it has none
func (p *Package) DefaultModule() *Module {
	if len(p.Modules) == 0 {
		return nil
	}
	return p.Modules[0]
}
