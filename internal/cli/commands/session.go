package commands

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/choreo-dev/policy-validator/internal/cli/config"
	"github.com/choreo-dev/policy-validator/internal/cli/ui"
	"github.com/choreo-dev/policy-validator/internal/compiler/symbols"
	"github.com/choreo-dev/policy-validator/internal/compiler/symbols/goloader"
	"github.com/choreo-dev/policy-validator/internal/compiler/symbols/modelfile"
	"github.com/choreo-dev/policy-validator/internal/logging"
	"github.com/choreo-dev/policy-validator/internal/plugin"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatLSP  = "lsp"
)

// session is the state every subcommand needs: configuration, a logger, the
// loaded package and a plugin configured from both
type session struct {
	root   string
	cfg    *config.Config
	logger *zap.Logger
	pkg    *symbols.Package
	plugin *plugin.Plugin
}

// openSession resolves the project directory from args, loads configuration
// and the symbol model. Failures are printed to errOut before being returned.
func (o *Options) openSession(ctx context.Context, args []string, errOut io.Writer) (*session, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}

	root, err := config.FindRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve project directory: %w", err)
	}

	cfg, err := o.loadConfig(root)
	if err != nil {
		fmt.Fprint(errOut, ui.ConfigError(err, o.NoColor))
		return nil, err
	}

	level := cfg.Log.Level
	if o.Verbose {
		level = "debug"
	}
	logger, err := logging.New(level, cfg.Log.Development)
	if err != nil {
		fmt.Fprint(errOut, ui.ConfigError(err, o.NoColor))
		return nil, err
	}

	source := dir
	var pkg *symbols.Package
	if o.Model != "" {
		source = o.Model
		pkg, err = modelfile.Load(o.Model)
	} else {
		pkg, err = goloader.Load(ctx, dir)
	}
	if err != nil {
		fmt.Fprint(errOut, ui.LoadError(source, err, o.NoColor))
		return nil, err
	}
	cfg.ApplyDescriptor(pkg)

	logger.Debug("loaded package",
		zap.String("source", source),
		zap.Stringer("descriptor", pkg.Descriptor),
		zap.Int("modules", len(pkg.Modules)))

	return &session{
		root:   root,
		cfg:    cfg,
		logger: logger,
		pkg:    pkg,
		plugin: plugin.New(&plugin.Options{
			Matcher:      cfg.Matcher(),
			SinglePolicy: cfg.Validate.SinglePolicy,
			Logger:       logger,
		}),
	}, nil
}

func (o *Options) loadConfig(root string) (*config.Config, error) {
	if o.ConfigFile != "" {
		return config.LoadFile(o.ConfigFile)
	}
	return config.Load(root)
}

// outputDir returns dir, or the configured output directory, resolved
// against the project root
func (s *session) outputDir(dir string) string {
	if dir == "" {
		dir = s.cfg.Output.Dir
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(s.root, dir)
}

func (s *session) close() {
	_ = s.logger.Sync()
}

func checkFormat(format string, allowed ...string) error {
	for _, f := range allowed {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("unsupported format %q (want one of %v)", format, allowed)
}
