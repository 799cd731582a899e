// Package modelfile reads a semantic model exported by a host compiler.
//
// The dump is YAML (JSON is accepted too, being a YAML subset) shaped like
// symbols.Package:
//
//	descriptor: {org: acme, name: headers, version: 1.0.0}
//	modules:
//	  - id: {org: acme, name: headers, version: 1.0.0}
//	    symbols:
//	      - kind: FUNCTION
//	        function:
//	          name: addHeader
//	          qualifiers: [public]
//	          annotations:
//	            - name: InFlow
//	              module: {org: choreo, name: policy_validator, version: 0.1.0}
//	          params:
//	            - name: header
//	              type: {name: string, kind: STRING}
//	          return: {name: "()", kind: NIL}
//	          location: {file: policy.bal, line: 3, column: 1}
package modelfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/choreo-dev/policy-validator/internal/compiler/symbols"
)

// Load reads and parses the model dump at path
func Load(path string) (*symbols.Package, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	pkg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return pkg, nil
}

// Parse decodes a model dump. Unknown fields are rejected so that typos in
// hand-written dumps do not silently drop annotations.
func Parse(data []byte) (*symbols.Package, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var pkg symbols.Package
	if err := dec.Decode(&pkg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty model")
		}
		return nil, err
	}

	if err := validate(&pkg); err != nil {
		return nil, err
	}
	return &pkg, nil
}

// validate checks the structure the passes rely on to tell symbols apart.
// Missing names and types are left for the passes to report.
func validate(pkg *symbols.Package) error {
	if pkg.Descriptor.Org == "" || pkg.Descriptor.Name == "" {
		return fmt.Errorf("descriptor must have org and name")
	}
	for i, m := range pkg.Modules {
		if m == nil {
			return fmt.Errorf("module %d is empty", i)
		}
		for j, sym := range m.Symbols {
			if sym.Kind == "" {
				return fmt.Errorf("module %s symbol %d has no kind", m.ID.Name, j)
			}
			if sym.Kind == symbols.SymbolFunction && sym.Function == nil {
				return fmt.Errorf("module %s symbol %d is a FUNCTION without function details", m.ID.Name, j)
			}
			if sym.Function != nil && sym.Name == "" {
				m.Symbols[j].Name = sym.Function.Name
			}
		}
	}
	return nil
}
