package metadata

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/choreo-dev/policy-validator/internal/compiler/symbols"
	"github.com/choreo-dev/policy-validator/internal/policy"
)

// ErrContractViolation is returned when the symbol model lacks data every
// compiled function is expected to carry.
var ErrContractViolation = errors.New("incomplete symbol model")

// Generator builds the metadata document for a package
type Generator struct {
	matcher policy.Matcher
	logger  *zap.Logger
}

// NewGenerator creates a generator that classifies functions through matcher.
// A nil logger discards progress output.
func NewGenerator(matcher policy.Matcher, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{matcher: matcher, logger: logger}
}

// Generate describes the policy functions of the package's default module.
//
// Public functions are visited in declaration order. Functions without a
// flow annotation are left out. When two functions claim the same flow the
// later one replaces the earlier one.
func (g *Generator) Generate(pkg *symbols.Package) (*Document, error) {
	g.logger.Info(fmt.Sprintf("Generating '%s' file...", FileName))

	module := pkg.DefaultModule()
	if module == nil {
		return nil, fmt.Errorf("package %s has no default module: %w", pkg.Descriptor, ErrContractViolation)
	}

	doc := &Document{
		Org:     pkg.Descriptor.Org,
		Name:    pkg.Descriptor.Name,
		Version: pkg.Descriptor.Version,
	}

	for _, fn := range module.PublicFunctions() {
		role := g.matcher.ClassifyFlowRole(fn.Annotations)
		if role == policy.RoleNone {
			g.logger.Debug("skipping non-policy function", zap.String("function", fn.Name))
			continue
		}

		fnMeta, err := g.functionMeta(fn)
		if err != nil {
			return nil, err
		}
		if prev := doc.Slot(role); prev != nil {
			g.logger.Debug("replacing policy in slot",
				zap.String("slot", role.Slot()),
				zap.String("previous", prev.Name),
				zap.String("function", fn.Name))
		}
		doc.SetSlot(role, fnMeta)
	}

	return doc, nil
}

func (g *Generator) functionMeta(fn *symbols.Function) (*FunctionMeta, error) {
	if fn.Name == "" {
		return nil, fmt.Errorf("function at %d:%d has no name: %w",
			fn.Location.Line, fn.Location.Column, ErrContractViolation)
	}

	params := make([]ParamMeta, 0, len(fn.Params))
	for i, p := range fn.Params {
		pm, err := g.paramMeta(p)
		if err != nil {
			return nil, fmt.Errorf("function %s parameter %d: %w", fn.Name, i, err)
		}
		params = append(params, pm)
	}

	return &FunctionMeta{Name: fn.Name, Params: params}, nil
}

func (g *Generator) paramMeta(p *symbols.Parameter) (ParamMeta, error) {
	if p == nil || p.Name == "" {
		return ParamMeta{}, fmt.Errorf("parameter has no name: %w", ErrContractViolation)
	}
	if p.Type == nil {
		return ParamMeta{}, fmt.Errorf("parameter %s has no type: %w", p.Name, ErrContractViolation)
	}

	return ParamMeta{
		Name:           p.Name,
		Type:           typeMeta(p.Type),
		IsConfigurable: g.matcher.IsConfigurable(p.Annotations),
	}, nil
}

func typeMeta(t *symbols.Type) TypeMeta {
	tm := TypeMeta{
		Name: t.DisplayName(),
		Kind: string(t.Kind),
	}
	if t.Module != nil {
		tm.Package = &PackageMeta{
			Org:     t.Module.Org,
			Name:    t.Module.Name,
			Version: t.Module.Version,
		}
	}
	return tm
}
