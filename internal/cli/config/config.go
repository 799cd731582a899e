package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/choreo-dev/policy-validator/internal/compiler/symbols"
	"github.com/choreo-dev/policy-validator/internal/policy"
)

// FileName is the configuration file looked up in the project directory,
// with a .yaml or .yml extension
const FileName = "policy-validator"

// EnvPrefix prefixes environment overrides, e.g. POLICY_VALIDATOR_TRUST_ORG
const EnvPrefix = "POLICY_VALIDATOR"

// Config represents the policy-validator configuration
type Config struct {
	Trust    TrustConfig    `mapstructure:"trust"`
	Validate ValidateConfig `mapstructure:"validate"`
	Output   OutputConfig   `mapstructure:"output"`
	Package  PackageConfig  `mapstructure:"package"`
	Log      LogConfig      `mapstructure:"log"`
}

// TrustConfig names the package whose annotations mark policies
type TrustConfig struct {
	Org     string `mapstructure:"org"`
	Package string `mapstructure:"package"`
}

// ValidateConfig toggles optional validation rules
type ValidateConfig struct {
	SinglePolicy bool `mapstructure:"single_policy"`
}

// OutputConfig represents artifact output configuration
type OutputConfig struct {
	Dir string `mapstructure:"dir"`
}

// PackageConfig overrides the descriptor of the loaded package. Empty fields
// keep the loaded value.
type PackageConfig struct {
	Org     string `mapstructure:"org"`
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Load loads policy-validator.yaml or policy-validator.yml from dir. A missing
// file is not an error; defaults and environment overrides still apply.
func Load(dir string) (*Config, error) {
	v := newViper()
	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return decode(v)
}

// LoadFile loads configuration from an explicit path, which must exist
func LoadFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("trust.org", policy.DefaultOrg)
	v.SetDefault("trust.package", policy.DefaultPackage)
	v.SetDefault("validate.single_policy", false)
	v.SetDefault("output.dir", "target/resources")
	v.SetDefault("package.org", "")
	v.SetDefault("package.name", "")
	v.SetDefault("package.version", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Matcher returns the classifier for the trusted annotation package
func (c *Config) Matcher() policy.Matcher {
	return policy.NewMatcher(c.Trust.Org, c.Trust.Package)
}

// ApplyDescriptor overrides the set fields of the package descriptor
func (c *Config) ApplyDescriptor(pkg *symbols.Package) {
	if c.Package.Org != "" {
		pkg.Descriptor.Org = c.Package.Org
	}
	if c.Package.Name != "" {
		pkg.Descriptor.Name = c.Package.Name
	}
	if c.Package.Version != "" {
		pkg.Descriptor.Version = c.Package.Version
	}
}

// FindRoot walks up from dir to the nearest directory holding a
// policy-validator config file. It returns dir itself when none is found.
func FindRoot(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	for cur := abs; ; {
		for _, ext := range []string{".yaml", ".yml"} {
			if _, err := os.Stat(filepath.Join(cur, FileName+ext)); err == nil {
				return cur, nil
			}
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return abs, nil
		}
		cur = parent
	}
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if strings.TrimSpace(cfg.Trust.Org) == "" {
		return fmt.Errorf("trust.org must not be empty")
	}
	if strings.TrimSpace(cfg.Trust.Package) == "" {
		return fmt.Errorf("trust.package must not be empty")
	}
	if cfg.Output.Dir == "" {
		return fmt.Errorf("output.dir must not be empty")
	}
	return nil
}
