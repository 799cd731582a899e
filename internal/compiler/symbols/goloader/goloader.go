// Package goloader builds the symbol model from Go source using go/packages.
//
// Go has no declaration annotations, so they are written as directive
// comments in a function's doc comment:
//
//	//@choreo/policy_validator.InFlow
//	//@choreo/policy_validator.Config:header
//	func AddHeader(ctx *mediation.Context, header string) error
//
// "org/package." resolves the annotation to a module; a bare "//@InFlow" is
// left unresolved. A ":param" suffix attaches the annotation to the named
// parameter instead of the function.
package goloader

import (
	"context"
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/tools/go/packages"

	"github.com/choreo-dev/policy-validator/internal/compiler/symbols"
)

// annotationRe matches //@[org/package.]Name[:param]
var annotationRe = regexp.MustCompile(`^//@(?:([^\s/]+)/([^\s/.]+)\.)?([A-Za-z_][A-Za-z0-9_]*)(?::([A-Za-z_][A-Za-z0-9_]*))?\s*$`)

// stdlibOrg is the organization given to standard library packages
const stdlibOrg = "go"

// defaultVersion is used for the main module, which has no version
const defaultVersion = "0.0.0"

const loadMode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedSyntax |
	packages.NeedTypes |
	packages.NeedTypesInfo |
	packages.NeedImports |
	packages.NeedDeps |
	packages.NeedModule

// Load type-checks the packages matching patterns (default ".") under dir and
// converts each into a module. The package in dir itself is the default module.
func Load(ctx context.Context, dir string, patterns ...string) (*symbols.Package, error) {
	if len(patterns) == 0 {
		patterns = []string{"."}
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", dir, err)
	}

	fset := token.NewFileSet()
	cfg := &packages.Config{
		Context: ctx,
		Mode:    loadMode,
		Dir:     absDir,
		Fset:    fset,
	}
	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, fmt.Errorf("load packages: %w", err)
	}
	if len(pkgs) == 0 {
		return nil, fmt.Errorf("no packages found in %s", dir)
	}
	if err := firstError(pkgs); err != nil {
		return nil, err
	}

	sort.SliceStable(pkgs, func(i, j int) bool {
		di, dj := pkgDir(pkgs[i]) == absDir, pkgDir(pkgs[j]) == absDir
		if di != dj {
			return di
		}
		return pkgs[i].PkgPath < pkgs[j].PkgPath
	})

	c := newConverter(fset, absDir, pkgs)
	result := &symbols.Package{Descriptor: descriptor(pkgs[0])}
	for _, pkg := range pkgs {
		result.Modules = append(result.Modules, c.module(pkg))
	}
	return result, nil
}

// firstError returns the first load, parse or type error of the loaded graph
func firstError(pkgs []*packages.Package) error {
	var first error
	packages.Visit(pkgs, nil, func(p *packages.Package) {
		if first == nil && len(p.Errors) > 0 {
			first = fmt.Errorf("package %s: %s", p.PkgPath, p.Errors[0].Error())
		}
	})
	return first
}

func pkgDir(pkg *packages.Package) string {
	if len(pkg.GoFiles) == 0 {
		return ""
	}
	return filepath.Dir(pkg.GoFiles[0])
}

// descriptor derives the package identity from the Go module: the module
// path's parent is the organization and its last element the name.
func descriptor(pkg *packages.Package) symbols.ModuleID {
	if pkg.Module == nil {
		return symbols.ModuleID{Name: pkg.Name, Version: defaultVersion}
	}
	id := symbols.ModuleID{
		Org:     path.Dir(pkg.Module.Path),
		Name:    path.Base(pkg.Module.Path),
		Version: pkg.Module.Version,
	}
	if id.Org == "." {
		id.Org = ""
	}
	if id.Version == "" {
		id.Version = defaultVersion
	}
	return id
}

// converter turns type-checked packages into symbols
type converter struct {
	fset  *token.FileSet
	dir   string
	index map[string]*packages.Package
}

func newConverter(fset *token.FileSet, dir string, roots []*packages.Package) *converter {
	index := make(map[string]*packages.Package)
	packages.Visit(roots, nil, func(p *packages.Package) {
		index[p.PkgPath] = p
	})
	return &converter{fset: fset, dir: dir, index: index}
}

func (c *converter) module(pkg *packages.Package) *symbols.Module {
	m := &symbols.Module{ID: c.moduleID(pkg.Types)}
	for _, file := range pkg.Syntax {
		for _, decl := range file.Decls {
			m.Symbols = append(m.Symbols, c.declSymbols(decl, pkg)...)
		}
	}
	return m
}

func (c *converter) declSymbols(decl ast.Decl, pkg *packages.Package) []symbols.Symbol {
	switch d := decl.(type) {
	case *ast.FuncDecl:
		fn := c.function(d, pkg)
		if fn == nil {
			return nil
		}
		if d.Recv != nil {
			return []symbols.Symbol{{Kind: symbols.SymbolMethod, Name: receiverName(d) + "." + fn.Name, Function: fn}}
		}
		return []symbols.Symbol{{Kind: symbols.SymbolFunction, Name: fn.Name, Function: fn}}
	case *ast.GenDecl:
		return genDeclSymbols(d)
	}
	return nil
}

func genDeclSymbols(d *ast.GenDecl) []symbols.Symbol {
	var kind symbols.SymbolKind
	switch d.Tok {
	case token.TYPE:
		kind = symbols.SymbolType
	case token.VAR:
		kind = symbols.SymbolVariable
	case token.CONST:
		kind = symbols.SymbolConstant
	default:
		return nil
	}

	var out []symbols.Symbol
	for _, spec := range d.Specs {
		switch s := spec.(type) {
		case *ast.TypeSpec:
			out = append(out, symbols.Symbol{Kind: kind, Name: s.Name.Name})
		case *ast.ValueSpec:
			for _, n := range s.Names {
				if n.Name == "_" {
					continue
				}
				out = append(out, symbols.Symbol{Kind: kind, Name: n.Name})
			}
		}
	}
	return out
}

func receiverName(d *ast.FuncDecl) string {
	if len(d.Recv.List) == 0 {
		return ""
	}
	expr := d.Recv.List[0].Type
	for {
		switch e := expr.(type) {
		case *ast.StarExpr:
			expr = e.X
		case *ast.IndexExpr:
			expr = e.X
		case *ast.IndexListExpr:
			expr = e.X
		case *ast.Ident:
			return e.Name
		default:
			return ""
		}
	}
}

func (c *converter) function(d *ast.FuncDecl, pkg *packages.Package) *symbols.Function {
	obj, ok := pkg.TypesInfo.Defs[d.Name].(*types.Func)
	if !ok {
		return nil
	}
	sig, ok := obj.Type().(*types.Signature)
	if !ok {
		return nil
	}

	fnAnnots, paramAnnots := c.annotations(d.Doc)
	qual := qualifier(pkg.Types)

	fn := &symbols.Function{
		Name:        d.Name.Name,
		Annotations: fnAnnots,
		Return:      c.resultType(sig.Results(), qual),
		Location:    c.location(d.Name.Pos()),
	}
	if ast.IsExported(d.Name.Name) {
		fn.Qualifiers = []symbols.Qualifier{symbols.QualifierPublic}
	} else {
		fn.Qualifiers = []symbols.Qualifier{symbols.QualifierPrivate}
	}

	params := sig.Params()
	for i := 0; i < params.Len(); i++ {
		v := params.At(i)
		name := v.Name()
		if name == "" {
			name = "_"
		}
		p := &symbols.Parameter{
			Name:        name,
			Type:        c.typeOf(v.Type(), qual),
			Annotations: paramAnnots[v.Name()],
		}
		if sig.Variadic() && i == params.Len()-1 {
			fn.RestParam = p
			continue
		}
		fn.Params = append(fn.Params, p)
	}
	return fn
}

// annotations parses directive comments, splitting function annotations
// from those addressed to a parameter
func (c *converter) annotations(doc *ast.CommentGroup) ([]symbols.Annotation, map[string][]symbols.Annotation) {
	var fnAnnots []symbols.Annotation
	paramAnnots := make(map[string][]symbols.Annotation)
	if doc == nil {
		return nil, paramAnnots
	}

	for _, comment := range doc.List {
		a, param, ok := parseAnnotation(comment.Text)
		if !ok {
			continue
		}
		if param != "" {
			paramAnnots[param] = append(paramAnnots[param], a)
			continue
		}
		fnAnnots = append(fnAnnots, a)
	}
	return fnAnnots, paramAnnots
}

// parseAnnotation parses one //@ directive. It returns the parameter name the
// annotation targets, or "" for a function annotation.
func parseAnnotation(text string) (symbols.Annotation, string, bool) {
	match := annotationRe.FindStringSubmatch(strings.TrimSpace(text))
	if match == nil {
		return symbols.Annotation{}, "", false
	}
	a := symbols.Annotation{Name: match[3]}
	if match[1] != "" {
		a.Module = &symbols.ModuleID{Org: match[1], Name: match[2]}
	}
	return a, match[4], true
}

func (c *converter) location(pos token.Pos) symbols.Location {
	p := c.fset.Position(pos)
	file := p.Filename
	if rel, err := filepath.Rel(c.dir, file); err == nil && !strings.HasPrefix(rel, "..") {
		file = filepath.ToSlash(rel)
	}
	return symbols.Location{File: file, Line: p.Line, Column: p.Column}
}

func qualifier(pkg *types.Package) types.Qualifier {
	return func(p *types.Package) string {
		if pkg != nil && p == pkg {
			return ""
		}
		return p.Name()
	}
}

// resultType describes a function's results: () for none, the single type,
// or an anonymous tuple
func (c *converter) resultType(results *types.Tuple, qual types.Qualifier) *symbols.Type {
	switch results.Len() {
	case 0:
		return &symbols.Type{Name: "()", Kind: symbols.TypeKindNil}
	case 1:
		return c.typeOf(results.At(0).Type(), qual)
	default:
		parts := make([]string, results.Len())
		for i := 0; i < results.Len(); i++ {
			parts[i] = types.TypeString(results.At(i).Type(), qual)
		}
		return &symbols.Type{Signature: "(" + strings.Join(parts, ", ") + ")", Kind: symbols.TypeKindTuple}
	}
}

func (c *converter) typeOf(t types.Type, qual types.Qualifier) *symbols.Type {
	st := &symbols.Type{
		Signature: types.TypeString(t, qual),
		Kind:      kindOf(t),
	}

	switch tt := t.(type) {
	case *types.Named:
		st.Name = tt.Obj().Name()
		st.Module = c.moduleIDPtr(tt.Obj().Pkg())
	case *types.Alias:
		st.Name = tt.Obj().Name()
		st.Module = c.moduleIDPtr(tt.Obj().Pkg())
	case *types.Basic:
		st.Name = tt.Name()
	case *types.TypeParam:
		st.Name = tt.Obj().Name()
	}
	return st
}

func kindOf(t types.Type) symbols.TypeKind {
	if named, ok := t.(*types.Named); ok {
		if named.Obj().Pkg() == nil && named.Obj().Name() == "error" {
			return symbols.TypeKindError
		}
		return symbols.TypeKindReference
	}

	switch tt := types.Unalias(t).(type) {
	case *types.Named:
		return kindOf(tt)
	case *types.Basic:
		return basicKind(tt)
	case *types.Pointer:
		return symbols.TypeKindPointer
	case *types.Slice, *types.Array:
		return symbols.TypeKindArray
	case *types.Map:
		return symbols.TypeKindMap
	case *types.Struct:
		return symbols.TypeKindRecord
	case *types.Interface:
		if tt.Empty() {
			return symbols.TypeKindAny
		}
		return symbols.TypeKindObject
	case *types.Signature:
		return symbols.TypeKindFunction
	case *types.Chan:
		return symbols.TypeKindChannel
	case *types.TypeParam:
		return symbols.TypeKindAny
	default:
		return symbols.TypeKindReference
	}
}

func basicKind(b *types.Basic) symbols.TypeKind {
	info := b.Info()
	switch {
	case b.Name() == "byte":
		return symbols.TypeKindByte
	case info&types.IsBoolean != 0:
		return symbols.TypeKindBoolean
	case info&types.IsInteger != 0:
		return symbols.TypeKindInt
	case info&(types.IsFloat|types.IsComplex) != 0:
		return symbols.TypeKindFloat
	case info&types.IsString != 0:
		return symbols.TypeKindString
	case b.Kind() == types.UntypedNil:
		return symbols.TypeKindNil
	case b.Kind() == types.UnsafePointer:
		return symbols.TypeKindPointer
	default:
		return symbols.TypeKindAny
	}
}

func (c *converter) moduleIDPtr(pkg *types.Package) *symbols.ModuleID {
	if pkg == nil {
		return nil
	}
	id := c.moduleID(pkg)
	return &id
}

// moduleID identifies the module owning pkg: the Go module path and version,
// or the "go" organization for the standard library
func (c *converter) moduleID(pkg *types.Package) symbols.ModuleID {
	if pkg == nil {
		return symbols.ModuleID{}
	}
	id := symbols.ModuleID{Name: pkg.Path()}

	loaded, ok := c.index[pkg.Path()]
	switch {
	case ok && loaded.Module != nil:
		id.Org = loaded.Module.Path
		id.Version = loaded.Module.Version
		if id.Version == "" {
			id.Version = defaultVersion
		}
	case isStdlib(pkg.Path()):
		id.Org = stdlibOrg
	}
	return id
}

func isStdlib(pkgPath string) bool {
	first, _, _ := strings.Cut(pkgPath, "/")
	return !strings.Contains(first, ".")
}
