// internal/config/config.go
//
// This package handles configuration and the .compliance directory structure.
// Every project directory the assistant runs from gets a .compliance/ folder.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// WorkDirName is the name of the directory we create in each project
	WorkDirName = ".compliance"

	defaultBackendOrigin = "http://127.0.0.1:8000"
	defaultDevHost       = "127.0.0.1"
	defaultDevPort       = 8000
	defaultDevMaxMB      = 10
)

const defaultProjectConfigYAML = `# compliance assistant configuration
version: 1

# Remote analysis backend. Both /upload and /ask are resolved against this origin.
backend:
  origin: http://127.0.0.1:8000

# Local stand-in for the analysis backend (cmd/devbackend).
dev_backend:
  host: 127.0.0.1
  port: 8000
  data_dir: .compliance/dev-backend
  max_upload_mb: 10
`

// BackendConfig points the client at the analysis backend.
type BackendConfig struct {
	Origin string `yaml:"origin"`
}

// DevBackendConfig configures the local development backend.
type DevBackendConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	DataDir     string `yaml:"data_dir"`
	MaxUploadMB int    `yaml:"max_upload_mb"`
}

// ProjectConfig models .compliance/config.yaml.
type ProjectConfig struct {
	Version    int              `yaml:"version"`
	Backend    BackendConfig    `yaml:"backend"`
	DevBackend DevBackendConfig `yaml:"dev_backend"`
}

// Config holds the runtime configuration.
type Config struct {
	// ProjectDir is the directory the binary was started from
	ProjectDir string

	// WorkDir is ProjectDir/.compliance
	WorkDir string

	Project ProjectConfig
}

// InitWorkDir creates the .compliance directory structure in the given project directory.
//
// Structure created:
// .compliance/
// ├── config.yaml
// ├── logs/         <- session.log and dev-backend.log
// └── dev-backend/  <- documents stored by the development backend
func InitWorkDir(projectDir string) error {
	workDir := filepath.Join(projectDir, WorkDirName)
	dirs := []string{
		filepath.Join(workDir, "logs"),
		filepath.Join(workDir, "dev-backend"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return ensureProjectConfig(filepath.Join(workDir, "config.yaml"))
}

// NewConfig creates a Config populated from config.yaml and environment overrides.
func NewConfig(projectDir string) (*Config, error) {
	cfg := &Config{
		ProjectDir: projectDir,
		WorkDir:    filepath.Join(projectDir, WorkDirName),
		Project:    defaultProjectConfig(),
	}
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()
	cfg.Project.normalize(cfg.ProjectDir)
	if err := cfg.Project.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.WorkDir, "logs")
}

// SessionLogPath returns the logbook location for the terminal client.
func (c *Config) SessionLogPath() string {
	return filepath.Join(c.LogsDir(), "session.log")
}

// DevBackendLogPath returns the request log location for the development backend.
func (c *Config) DevBackendLogPath() string {
	return filepath.Join(c.LogsDir(), "dev-backend.log")
}

// ProjectConfigPath returns the on-disk location for the project config file.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.WorkDir, "config.yaml")
}

// BackendOrigin returns the analysis backend origin without a trailing slash.
func (c *Config) BackendOrigin() string {
	return c.Project.Backend.Origin
}

func (c *Config) loadProjectConfig() error {
	path := c.ProjectConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	parsed := defaultProjectConfig()
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	parsed.applyDefaults()
	c.Project = parsed
	return nil
}

func (c *Config) applyEnvOverrides() {
	if origin := strings.TrimSpace(os.Getenv("COMPLIANCE_BACKEND_ORIGIN")); origin != "" {
		c.Project.Backend.Origin = origin
	}
	if host := strings.TrimSpace(os.Getenv("COMPLIANCE_DEV_HOST")); host != "" {
		c.Project.DevBackend.Host = host
	}
	if port := strings.TrimSpace(os.Getenv("COMPLIANCE_DEV_PORT")); port != "" {
		if parsed, err := strconv.Atoi(port); err == nil && isValidPort(parsed) {
			c.Project.DevBackend.Port = parsed
		}
	}
	if dir := strings.TrimSpace(os.Getenv("COMPLIANCE_DEV_DATA_DIR")); dir != "" {
		c.Project.DevBackend.DataDir = dir
	}
}

func defaultProjectConfig() ProjectConfig {
	return ProjectConfig{
		Version: 1,
		Backend: BackendConfig{Origin: defaultBackendOrigin},
		DevBackend: DevBackendConfig{
			Host:        defaultDevHost,
			Port:        defaultDevPort,
			DataDir:     filepath.Join(WorkDirName, "dev-backend"),
			MaxUploadMB: defaultDevMaxMB,
		},
	}
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	if strings.TrimSpace(pc.Backend.Origin) == "" {
		pc.Backend.Origin = defaultBackendOrigin
	}
	if strings.TrimSpace(pc.DevBackend.Host) == "" {
		pc.DevBackend.Host = defaultDevHost
	}
	if pc.DevBackend.Port == 0 {
		pc.DevBackend.Port = defaultDevPort
	}
	if strings.TrimSpace(pc.DevBackend.DataDir) == "" {
		pc.DevBackend.DataDir = filepath.Join(WorkDirName, "dev-backend")
	}
	if pc.DevBackend.MaxUploadMB <= 0 {
		pc.DevBackend.MaxUploadMB = defaultDevMaxMB
	}
}

func (pc *ProjectConfig) normalize(base string) {
	pc.Backend.Origin = strings.TrimRight(strings.TrimSpace(pc.Backend.Origin), "/")
	pc.DevBackend.Host = strings.TrimSpace(pc.DevBackend.Host)
	pc.DevBackend.DataDir = resolvePath(base, pc.DevBackend.DataDir)
}

func (pc *ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if err := validateOrigin(pc.Backend.Origin); err != nil {
		return fmt.Errorf("backend.origin: %w", err)
	}
	if !isValidPort(pc.DevBackend.Port) {
		return fmt.Errorf("dev_backend.port must be between 1 and 65535")
	}
	return nil
}

func validateOrigin(origin string) error {
	if origin == "" {
		return fmt.Errorf("origin is required")
	}
	parsed, err := url.Parse(origin)
	if err != nil {
		return err
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
	default:
		return fmt.Errorf("scheme must be http or https")
	}
	if parsed.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}

func isValidPort(port int) bool {
	return port > 0 && port <= 65535
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultProjectConfigYAML), 0o644)
}
