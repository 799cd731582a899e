// Package validator implements the analysis pass: it scans every module of a
// package for policy functions and reports structural violations as
// diagnostics. Violations never stop the pass.
package validator

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	cerrors "github.com/choreo-dev/policy-validator/internal/compiler/errors"
	"github.com/choreo-dev/policy-validator/internal/compiler/symbols"
	"github.com/choreo-dev/policy-validator/internal/policy"
)

// ErrMissingReturnType is returned when a function symbol has no return type
// descriptor. It means the symbol model is incomplete, not that the user's
// code is wrong.
var ErrMissingReturnType = errors.New("function symbol has no return type descriptor")

// Option configures a Validator
type Option func(*Validator)

// WithSinglePolicy enables the one-policy-per-package rule (GWPOLICY002)
func WithSinglePolicy(enabled bool) Option {
	return func(v *Validator) {
		v.singlePolicy = enabled
	}
}

// WithLogger sets the logger used for pass progress
func WithLogger(logger *zap.Logger) Option {
	return func(v *Validator) {
		v.logger = logger
	}
}

// Validator checks the shape of policy functions.
//
// policyFound is set the first time any policy is seen and is never reset, so
// one Validator reused across packages keeps reporting true.
type Validator struct {
	matcher      policy.Matcher
	singlePolicy bool
	logger       *zap.Logger

	policyFound bool
}

// New creates a validator that recognises policies through matcher
func New(matcher policy.Matcher, opts ...Option) *Validator {
	v := &Validator{
		matcher: matcher,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// PolicyFound reports whether any policy function has been seen
func (v *Validator) PolicyFound() bool {
	return v.policyFound
}

// Validate walks every module of pkg and reports violations to sink.
// An error is returned only when the symbol model is incomplete, the sink
// fails, or ctx is cancelled.
func (v *Validator) Validate(ctx context.Context, pkg *symbols.Package, sink cerrors.Sink) error {
	for _, module := range pkg.Modules {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := v.validateModule(module, sink); err != nil {
			return fmt.Errorf("module %s: %w", module.ID.Name, err)
		}
	}
	return nil
}

func (v *Validator) validateModule(module *symbols.Module, sink cerrors.Sink) error {
	for _, sym := range module.ModuleSymbols() {
		if sym.Kind != symbols.SymbolFunction || sym.Function == nil {
			continue
		}
		fn := sym.Function
		if !v.matcher.IsPolicy(fn.Annotations) {
			continue
		}
		v.logger.Debug("policy function found",
			zap.String("module", module.ID.Name),
			zap.String("function", fn.Name))

		if v.singlePolicy && v.policyFound {
			if err := sink.Report(cerrors.NewMultiplePolicies(fn.Location, fn.Name)); err != nil {
				return fmt.Errorf("report diagnostic: %w", err)
			}
		}

		if !fn.IsPublic() {
			if err := sink.Report(cerrors.NewNonPublicPolicy(fn.Location, fn.Name)); err != nil {
				return fmt.Errorf("report diagnostic: %w", err)
			}
		}

		if fn.Return == nil {
			return fmt.Errorf("function %s: %w", fn.Name, ErrMissingReturnType)
		}
		if err := v.validateReturnType(fn.Return, sink); err != nil {
			return err
		}
		if err := v.validateParameters(fn.Params, fn.RestParam, sink); err != nil {
			return err
		}
		v.policyFound = true
	}
	return nil
}

// validateReturnType has no rules yet
func (v *Validator) validateReturnType(_ *symbols.Type, _ cerrors.Sink) error {
	return nil
}

// validateParameters has no rules yet
func (v *Validator) validateParameters(_ []*symbols.Parameter, _ *symbols.Parameter, _ cerrors.Sink) error {
	return nil
}
