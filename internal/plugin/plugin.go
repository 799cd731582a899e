// Package plugin wires the policy passes to the host: the analysis pass runs
// the validator over every module and reports diagnostics, the generation
// pass writes the metadata document for the default module.
package plugin

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	cerrors "github.com/choreo-dev/policy-validator/internal/compiler/errors"
	"github.com/choreo-dev/policy-validator/internal/compiler/metadata"
	"github.com/choreo-dev/policy-validator/internal/compiler/symbols"
	"github.com/choreo-dev/policy-validator/internal/policy"
	"github.com/choreo-dev/policy-validator/internal/validator"
)

// Options configures the passes
type Options struct {
	// Matcher identifies the trusted annotation library for both passes
	Matcher policy.Matcher
	// SinglePolicy enables the one-policy-per-package rule
	SinglePolicy bool
	Logger       *zap.Logger
}

// DefaultOptions returns options for the default trusted library
func DefaultOptions() *Options {
	return &Options{
		Matcher: policy.DefaultMatcher(),
		Logger:  zap.NewNop(),
	}
}

// Plugin runs the analysis and generation passes.
// Each pass re-classifies functions from the symbol model; nothing is shared
// between passes.
type Plugin struct {
	options *Options
}

// New creates a plugin. A nil opts uses DefaultOptions.
func New(opts *Options) *Plugin {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Plugin{options: opts}
}

// AnalysisResult summarises an analysis pass
type AnalysisResult struct {
	// PolicyFound reports whether any module declared a policy function
	PolicyFound bool
	Duration    time.Duration
}

// Analyze runs the validator over every module of pkg, reporting to diags
func (p *Plugin) Analyze(ctx context.Context, pkg *symbols.Package, diags cerrors.Sink) (*AnalysisResult, error) {
	start := time.Now()
	v := validator.New(p.options.Matcher,
		validator.WithSinglePolicy(p.options.SinglePolicy),
		validator.WithLogger(p.options.Logger))

	if err := v.Validate(ctx, pkg, diags); err != nil {
		return nil, fmt.Errorf("analysis failed: %w", err)
	}

	result := &AnalysisResult{PolicyFound: v.PolicyFound(), Duration: time.Since(start)}
	p.options.Logger.Info("analysis complete",
		zap.Int("modules", len(pkg.Modules)),
		zap.Bool("policy_found", result.PolicyFound),
		zap.Duration("duration", result.Duration))
	return result, nil
}

// Generate builds the metadata document for pkg and attaches it to artifacts
// as metadata.FileName
func (p *Plugin) Generate(ctx context.Context, pkg *symbols.Package, artifacts ArtifactSink) (*metadata.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc, err := metadata.NewGenerator(p.options.Matcher, p.options.Logger).Generate(pkg)
	if err != nil {
		return nil, fmt.Errorf("generation failed: %w", err)
	}

	data, err := metadata.Serialize(doc)
	if err != nil {
		return nil, fmt.Errorf("generation failed: %w", err)
	}

	if err := artifacts.AddResourceFile(data, metadata.FileName); err != nil {
		return nil, fmt.Errorf("attach %s: %w", metadata.FileName, err)
	}

	p.options.Logger.Info("metadata generated",
		zap.String("file", metadata.FileName),
		zap.Int("policies", doc.PolicyCount()))
	return doc, nil
}

// BuildResult contains the outcome of both passes
type BuildResult struct {
	Diagnostics cerrors.ErrorList
	Document    *metadata.Document
	PolicyFound bool
	Duration    time.Duration
}

// Success reports whether the analysis produced no error diagnostics
func (r *BuildResult) Success() bool {
	return !r.Diagnostics.HasErrors()
}

// Build runs analysis then generation. Diagnostics do not stop generation;
// the caller decides what they mean for the build.
func (p *Plugin) Build(ctx context.Context, pkg *symbols.Package, artifacts ArtifactSink) (*BuildResult, error) {
	start := time.Now()
	collector := cerrors.NewCollector()

	analysis, err := p.Analyze(ctx, pkg, collector)
	if err != nil {
		return nil, err
	}

	doc, err := p.Generate(ctx, pkg, artifacts)
	if err != nil {
		return nil, err
	}

	return &BuildResult{
		Diagnostics: collector.Errors(),
		Document:    doc,
		PolicyFound: analysis.PolicyFound,
		Duration:    time.Since(start),
	}, nil
}
