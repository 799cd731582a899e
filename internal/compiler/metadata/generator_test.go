package metadata

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/choreo-dev/policy-validator/internal/compiler/symbols"
	"github.com/choreo-dev/policy-validator/internal/policy"
)

var trustedModule = &symbols.ModuleID{Org: policy.DefaultOrg, Name: policy.DefaultPackage, Version: "0.1.0"}

func flow(name string) []symbols.Annotation {
	return []symbols.Annotation{{Name: name, Module: trustedModule}}
}

func publicFn(name string, annots []symbols.Annotation, params ...*symbols.Parameter) *symbols.Function {
	return &symbols.Function{
		Name:        name,
		Qualifiers:  []symbols.Qualifier{symbols.QualifierPublic},
		Annotations: annots,
		Params:      params,
		Return:      &symbols.Type{Name: "()", Kind: symbols.TypeKindNil},
	}
}

func param(name string, typ *symbols.Type, annots ...symbols.Annotation) *symbols.Parameter {
	return &symbols.Parameter{Name: name, Type: typ, Annotations: annots}
}

var (
	intType    = &symbols.Type{Name: "int", Kind: symbols.TypeKindInt}
	stringType = &symbols.Type{Name: "string", Kind: symbols.TypeKindString}
)

func testPackage(fns ...*symbols.Function) *symbols.Package {
	m := &symbols.Module{ID: symbols.ModuleID{Org: "acme", Name: "rewrite", Version: "1.2.3"}}
	for _, fn := range fns {
		m.Symbols = append(m.Symbols, symbols.Symbol{Kind: symbols.SymbolFunction, Name: fn.Name, Function: fn})
	}
	return &symbols.Package{
		Descriptor: symbols.ModuleID{Org: "acme", Name: "rewrite", Version: "1.2.3"},
		Modules:    []*symbols.Module{m},
	}
}

func generate(t *testing.T, pkg *symbols.Package) *Document {
	t.Helper()
	doc, err := NewGenerator(policy.DefaultMatcher(), nil).Generate(pkg)
	require.NoError(t, err)
	return doc
}

func TestGenerate_NoPublicFunctions(t *testing.T) {
	private := publicFn("hidden", flow(policy.InFlowAnnotation))
	private.Qualifiers = nil

	doc := generate(t, testPackage(private))

	assert.Equal(t, "acme", doc.Org)
	assert.Equal(t, "rewrite", doc.Name)
	assert.Equal(t, "1.2.3", doc.Version)
	assert.Nil(t, doc.InFlow)
	assert.Nil(t, doc.OutFlow)
	assert.Nil(t, doc.FaultFlow)
	assert.Equal(t, 0, doc.PolicyCount())

	data, err := Serialize(doc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"org":"acme","name":"rewrite","version":"1.2.3"}`, string(data))
}

func TestGenerate_EachRole(t *testing.T) {
	doc := generate(t, testPackage(
		publicFn("onRequest", flow(policy.InFlowAnnotation), param("a", intType)),
		publicFn("onResponse", flow(policy.OutFlowAnnotation)),
		publicFn("onFault", flow(policy.FaultFlowAnnotation), param("b", stringType)),
	))

	require.NotNil(t, doc.InFlow)
	require.NotNil(t, doc.OutFlow)
	require.NotNil(t, doc.FaultFlow)
	assert.Equal(t, "onRequest", doc.InFlow.Name)
	assert.Equal(t, "onResponse", doc.OutFlow.Name)
	assert.Equal(t, "onFault", doc.FaultFlow.Name)
	assert.Empty(t, doc.OutFlow.Params)
	assert.NotNil(t, doc.OutFlow.Params)
	assert.Equal(t, 3, doc.PolicyCount())
}

func TestGenerate_LastFunctionWinsSlot(t *testing.T) {
	f := publicFn("f", flow(policy.InFlowAnnotation), param("a", intType), param("b", stringType))
	g := publicFn("g", flow(policy.InFlowAnnotation))

	doc := generate(t, testPackage(f, g))
	require.NotNil(t, doc.InFlow)
	assert.Equal(t, "g", doc.InFlow.Name)
	assert.Empty(t, doc.InFlow.Params)

	doc = generate(t, testPackage(g, f))
	require.NotNil(t, doc.InFlow)
	assert.Equal(t, "f", doc.InFlow.Name)
	require.Len(t, doc.InFlow.Params, 2)
	assert.Equal(t, "a", doc.InFlow.Params[0].Name)
	assert.Equal(t, "b", doc.InFlow.Params[1].Name)
}

func TestGenerate_PriorityOnMultipleAnnotations(t *testing.T) {
	annots := append(flow(policy.FaultFlowAnnotation), flow(policy.OutFlowAnnotation)...)
	doc := generate(t, testPackage(publicFn("both", annots)))

	assert.Nil(t, doc.FaultFlow)
	require.NotNil(t, doc.OutFlow)
	assert.Equal(t, "both", doc.OutFlow.Name)
}

func TestGenerate_NonPolicyPublicFunctionIgnored(t *testing.T) {
	doc := generate(t, testPackage(
		publicFn("helper", nil, param("x", intType)),
		publicFn("foreign", []symbols.Annotation{{Name: policy.InFlowAnnotation, Module: &symbols.ModuleID{Org: "acme", Name: "other"}}}),
	))
	assert.Equal(t, 0, doc.PolicyCount())
}

func TestGenerate_ParamDescriptors(t *testing.T) {
	named := &symbols.Type{
		Name:   "Headers",
		Kind:   symbols.TypeKindReference,
		Module: &symbols.ModuleID{Org: "ballerina", Name: "http", Version: "2.4.0"},
	}
	anon := &symbols.Type{Signature: "map<string>", Kind: symbols.TypeKindMap}
	config := symbols.Annotation{Name: policy.ConfigAnnotation, Module: trustedModule}
	unresolvedConfig := symbols.Annotation{Name: policy.ConfigAnnotation}

	doc := generate(t, testPackage(publicFn("onRequest", flow(policy.InFlowAnnotation),
		param("headers", named),
		param("mapping", anon, config),
		param("limit", intType, unresolvedConfig),
	)))

	require.NotNil(t, doc.InFlow)
	params := doc.InFlow.Params
	require.Len(t, params, 3)

	assert.Equal(t, ParamMeta{
		Name: "headers",
		Type: TypeMeta{
			Name:    "Headers",
			Kind:    "TYPE_REFERENCE",
			Package: &PackageMeta{Org: "ballerina", Name: "http", Version: "2.4.0"},
		},
	}, params[0])

	assert.Equal(t, "map<string>", params[1].Type.Name)
	assert.Equal(t, "MAP", params[1].Type.Kind)
	assert.Nil(t, params[1].Type.Package)
	assert.True(t, params[1].IsConfigurable)

	assert.False(t, params[2].IsConfigurable)
}

func TestGenerate_OnlyDefaultModule(t *testing.T) {
	pkg := testPackage(publicFn("main", nil))
	pkg.Modules = append(pkg.Modules, &symbols.Module{
		ID: symbols.ModuleID{Name: "rewrite.util"},
		Symbols: []symbols.Symbol{{
			Kind:     symbols.SymbolFunction,
			Function: publicFn("elsewhere", flow(policy.InFlowAnnotation)),
		}},
	})

	doc := generate(t, pkg)
	assert.Nil(t, doc.InFlow)
}

func TestGenerate_SkipsMethods(t *testing.T) {
	pkg := testPackage()
	pkg.Modules[0].Symbols = append(pkg.Modules[0].Symbols, symbols.Symbol{
		Kind:     symbols.SymbolMethod,
		Function: publicFn("m", flow(policy.InFlowAnnotation)),
	})

	assert.Nil(t, generate(t, pkg).InFlow)
}

func TestGenerate_ContractViolations(t *testing.T) {
	tests := []struct {
		name string
		pkg  *symbols.Package
	}{
		{
			name: "no default module",
			pkg:  &symbols.Package{Descriptor: symbols.ModuleID{Org: "acme", Name: "x"}},
		},
		{
			name: "unnamed function",
			pkg:  testPackage(publicFn("", flow(policy.InFlowAnnotation))),
		},
		{
			name: "unnamed parameter",
			pkg:  testPackage(publicFn("f", flow(policy.InFlowAnnotation), param("", intType))),
		},
		{
			name: "untyped parameter",
			pkg:  testPackage(publicFn("f", flow(policy.InFlowAnnotation), param("a", nil))),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGenerator(policy.DefaultMatcher(), nil).Generate(tt.pkg)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrContractViolation))
		})
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	build := func() *symbols.Package {
		return testPackage(
			publicFn("in", flow(policy.InFlowAnnotation), param("a", intType), param("b", stringType)),
			publicFn("out", flow(policy.OutFlowAnnotation), param("c", stringType)),
		)
	}

	first, err := Serialize(generate(t, build()))
	require.NoError(t, err)
	second, err := Serialize(generate(t, build()))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
