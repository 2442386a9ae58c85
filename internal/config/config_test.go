package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewConfigDefaultsWhenMissing(t *testing.T) {
	t.Setenv("COMPLIANCE_BACKEND_ORIGIN", "")
	projectDir := t.TempDir()
	c, err := NewConfig(projectDir)
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}
	if c.Project.Version != 1 {
		t.Fatalf("expected default version == 1, got %d", c.Project.Version)
	}
	if c.BackendOrigin() != defaultBackendOrigin {
		t.Fatalf("expected default origin %q, got %q", defaultBackendOrigin, c.BackendOrigin())
	}
	want := filepath.Join(projectDir, WorkDirName, "dev-backend")
	if c.Project.DevBackend.DataDir != want {
		t.Fatalf("expected data dir %s, got %s", want, c.Project.DevBackend.DataDir)
	}
}

func TestInitWorkDirWritesParseableConfig(t *testing.T) {
	t.Setenv("COMPLIANCE_BACKEND_ORIGIN", "")
	projectDir := t.TempDir()
	if err := InitWorkDir(projectDir); err != nil {
		t.Fatalf("InitWorkDir: %v", err)
	}
	if _, err := os.Stat(filepath.Join(projectDir, WorkDirName, "logs")); err != nil {
		t.Fatalf("logs dir missing: %v", err)
	}
	c, err := NewConfig(projectDir)
	if err != nil {
		t.Fatalf("NewConfig after init: %v", err)
	}
	if c.Project.DevBackend.Port != defaultDevPort {
		t.Fatalf("expected dev port %d, got %d", defaultDevPort, c.Project.DevBackend.Port)
	}
}

func TestLoadProjectConfigParsesYaml(t *testing.T) {
	t.Setenv("COMPLIANCE_BACKEND_ORIGIN", "")
	projectDir := t.TempDir()
	workDir := filepath.Join(projectDir, WorkDirName)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		t.Fatal(err)
	}
	configYAML := strings.TrimSpace(`
version: 1
backend:
  origin: https://compliance.example.com/
dev_backend:
  port: 9100
  data_dir: store
`)
	if err := os.WriteFile(filepath.Join(workDir, "config.yaml"), []byte(configYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := NewConfig(projectDir)
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}
	if c.BackendOrigin() != "https://compliance.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %s", c.BackendOrigin())
	}
	if c.Project.DevBackend.Port != 9100 {
		t.Fatalf("expected port 9100, got %d", c.Project.DevBackend.Port)
	}
	if c.Project.DevBackend.Host != defaultDevHost {
		t.Fatalf("expected default host, got %s", c.Project.DevBackend.Host)
	}
	if !strings.HasPrefix(c.Project.DevBackend.DataDir, projectDir) {
		t.Fatalf("expected data dir resolved under project, got %s", c.Project.DevBackend.DataDir)
	}
}

func TestEnvOverridesWin(t *testing.T) {
	t.Setenv("COMPLIANCE_BACKEND_ORIGIN", "http://10.0.0.5:9000")
	t.Setenv("COMPLIANCE_DEV_PORT", "9200")
	c, err := NewConfig(t.TempDir())
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	if c.BackendOrigin() != "http://10.0.0.5:9000" {
		t.Fatalf("origin override ignored: %s", c.BackendOrigin())
	}
	if c.Project.DevBackend.Port != 9200 {
		t.Fatalf("port override ignored: %d", c.Project.DevBackend.Port)
	}
}

func TestLoadProjectConfigValidation(t *testing.T) {
	t.Setenv("COMPLIANCE_BACKEND_ORIGIN", "")
	projectDir := t.TempDir()
	workDir := filepath.Join(projectDir, WorkDirName)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		t.Fatal(err)
	}
	configYAML := strings.TrimSpace(`
version: 1
backend:
  origin: ftp://files.example.com
`)
	if err := os.WriteFile(filepath.Join(workDir, "config.yaml"), []byte(configYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewConfig(projectDir); err == nil {
		t.Fatalf("expected validation error but got none")
	}
}
