package modelfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/choreo-dev/policy-validator/internal/compiler/symbols"
)

func TestLoad_YAML(t *testing.T) {
	pkg, err := Load(filepath.Join("testdata", "headers.yaml"))
	require.NoError(t, err)

	assert.Equal(t, symbols.ModuleID{Org: "acme", Name: "headers", Version: "1.0.0"}, pkg.Descriptor)
	require.Len(t, pkg.Modules, 2)
	assert.Equal(t, "headers", pkg.DefaultModule().ID.Name)

	fns := pkg.DefaultModule().Functions()
	require.Len(t, fns, 2)

	add := fns[0]
	assert.Equal(t, "addHeader", add.Name)
	assert.True(t, add.IsPublic())
	assert.True(t, add.HasQualifier(symbols.QualifierIsolated))
	require.Len(t, add.Annotations, 1)
	assert.Equal(t, "InFlow", add.Annotations[0].Name)
	assert.Equal(t, "choreo", add.Annotations[0].Module.Org)
	assert.Equal(t, symbols.Location{File: "policy.bal", Line: 12, Column: 1}, add.Location)

	require.Len(t, add.Params, 3)
	assert.Equal(t, symbols.TypeKindReference, add.Params[0].Type.Kind)
	assert.Equal(t, "mediation", add.Params[0].Type.Module.Name)
	assert.Len(t, add.Params[1].Annotations, 1)
	assert.Equal(t, "string[]", add.Params[2].Type.DisplayName())
	require.NotNil(t, add.Return)

	assert.False(t, fns[1].IsPublic())

	// symbol names default to the function name
	assert.Equal(t, "addHeader", pkg.DefaultModule().Symbols[0].Name)
	assert.Equal(t, symbols.SymbolType, pkg.DefaultModule().Symbols[1].Kind)
}

func TestLoad_JSON(t *testing.T) {
	pkg, err := Load(filepath.Join("testdata", "headers.json"))
	require.NoError(t, err)

	fns := pkg.DefaultModule().Functions()
	require.Len(t, fns, 1)
	require.Len(t, fns[0].Annotations, 2)
	assert.True(t, fns[0].Annotations[0].Resolved())
	assert.False(t, fns[0].Annotations[1].Resolved())
	assert.Empty(t, fns[0].Params)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"no descriptor", "modules: []\n"},
		{"unknown field", "descriptor: {org: a, name: b}\nmodlues: []\n"},
		{"symbol without kind", "descriptor: {org: a, name: b}\nmodules:\n  - id: {name: b}\n    symbols:\n      - name: x\n"},
		{"function without details", "descriptor: {org: a, name: b}\nmodules:\n  - id: {name: b}\n    symbols:\n      - kind: FUNCTION\n        name: x\n"},
		{"null module", "descriptor: {org: a, name: b}\nmodules:\n  - null\n"},
		{"not yaml", "descriptor: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestParse_MinimalPackage(t *testing.T) {
	pkg, err := Parse([]byte("descriptor: {org: acme, name: empty, version: 0.0.1}\n"))
	require.NoError(t, err)
	assert.Nil(t, pkg.DefaultModule())
}

func TestLoad_WrittenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.yaml")
	content := `descriptor: {org: acme, name: p, version: 2.0.0}
modules:
  - id: {org: acme, name: p, version: 2.0.0}
    symbols:
      - kind: FUNCTION
        function:
          name: f
          return: {name: int, kind: INT}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	pkg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, pkg.DefaultModule().Functions(), 1)
	assert.Equal(t, symbols.TypeKindInt, pkg.DefaultModule().Functions()[0].Return.Kind)
}
