package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/choreo-dev/policy-validator/internal/compiler/symbols"
)

func TestLoad(t *testing.T) {
	// Test loading with no config file (should use defaults)
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("expected no error loading defaults, got %v", err)
	}

	if cfg.Trust.Org != "choreo" {
		t.Errorf("expected default trust org 'choreo', got %s", cfg.Trust.Org)
	}
	if cfg.Trust.Package != "policy_validator" {
		t.Errorf("expected default trust package 'policy_validator', got %s", cfg.Trust.Package)
	}
	if cfg.Validate.SinglePolicy {
		t.Error("expected single policy rule to be off by default")
	}
	if cfg.Output.Dir != "target/resources" {
		t.Errorf("expected default output dir 'target/resources', got %s", cfg.Output.Dir)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("expected default log level 'info', got %s", cfg.Log.Level)
	}
	if cfg.Package != (PackageConfig{}) {
		t.Errorf("expected no package overrides, got %+v", cfg.Package)
	}
}

func TestLoadWithConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	configContent := `
trust:
  org: pubudu
validate:
  single_policy: true
output:
  dir: build/meta
package:
  version: 2.1.0
log:
  level: debug
  development: true
`
	if err := os.WriteFile(filepath.Join(tmpDir, "policy-validator.yml"), []byte(configContent), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("expected no error loading config, got %v", err)
	}

	if cfg.Trust.Org != "pubudu" {
		t.Errorf("expected trust org 'pubudu', got %s", cfg.Trust.Org)
	}
	// unset keys keep their defaults
	if cfg.Trust.Package != "policy_validator" {
		t.Errorf("expected trust package 'policy_validator', got %s", cfg.Trust.Package)
	}
	if !cfg.Validate.SinglePolicy {
		t.Error("expected single policy rule to be on")
	}
	if cfg.Output.Dir != "build/meta" {
		t.Errorf("expected output dir 'build/meta', got %s", cfg.Output.Dir)
	}
	if cfg.Package.Version != "2.1.0" {
		t.Errorf("expected package version '2.1.0', got %s", cfg.Package.Version)
	}
	if cfg.Log.Level != "debug" || !cfg.Log.Development {
		t.Errorf("expected development debug logging, got %+v", cfg.Log)
	}

	m := cfg.Matcher()
	if m.Org != "pubudu" || m.Package != "policy_validator" {
		t.Errorf("unexpected matcher %+v", m)
	}
}

func TestLoadEnvironmentOverride(t *testing.T) {
	t.Setenv("POLICY_VALIDATOR_TRUST_ORG", "acme")
	t.Setenv("POLICY_VALIDATOR_VALIDATE_SINGLE_POLICY", "true")

	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Trust.Org != "acme" {
		t.Errorf("expected trust org from environment, got %s", cfg.Trust.Org)
	}
	if !cfg.Validate.SinglePolicy {
		t.Error("expected single policy rule from environment")
	}
}

func TestLoadInvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty trust org", "trust:\n  org: \"\"\n"},
		{"blank trust package", "trust:\n  package: \"  \"\n"},
		{"empty output dir", "output:\n  dir: \"\"\n"},
		{"malformed yaml", "trust: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			if err := os.WriteFile(filepath.Join(tmpDir, "policy-validator.yaml"), []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(tmpDir); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	if err := os.WriteFile(path, []byte("trust:\n  package: gateway\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Trust.Package != "gateway" {
		t.Errorf("expected trust package 'gateway', got %s", cfg.Trust.Package)
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestApplyDescriptor(t *testing.T) {
	pkg := &symbols.Package{Descriptor: symbols.ModuleID{Org: "example.com/acme", Name: "headers", Version: "0.0.0"}}
	cfg := &Config{Package: PackageConfig{Org: "acme", Version: "1.2.0"}}

	cfg.ApplyDescriptor(pkg)

	want := symbols.ModuleID{Org: "acme", Name: "headers", Version: "1.2.0"}
	if pkg.Descriptor != want {
		t.Errorf("expected descriptor %+v, got %+v", want, pkg.Descriptor)
	}
}

func TestFindRoot(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, "policy-validator.yaml"), []byte(""), 0644); err != nil {
		t.Fatal(err)
	}
	subDir := filepath.Join(tmpDir, "policies", "headers")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatal(err)
	}

	root, err := FindRoot(subDir)
	if err != nil {
		t.Fatalf("expected to find root, got error: %v", err)
	}

	// On macOS, /tmp is symlinked to /private/tmp, so resolve both paths
	resolvedRoot, _ := filepath.EvalSymlinks(root)
	resolvedTmpDir, _ := filepath.EvalSymlinks(tmpDir)
	if resolvedRoot != resolvedTmpDir {
		t.Errorf("expected root to be %s, got %s", resolvedTmpDir, resolvedRoot)
	}
}

func TestFindRootWithoutConfig(t *testing.T) {
	tmpDir := t.TempDir()

	root, err := FindRoot(tmpDir)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if root != tmpDir {
		t.Errorf("expected %s, got %s", tmpDir, root)
	}
}
