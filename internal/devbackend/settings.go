package devbackend

import (
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kingrea/compliance-assistant/internal/config"
)

const (
	// DefaultHost is the loopback interface used when no host override is provided.
	DefaultHost = "127.0.0.1"
	// DefaultPort matches the origin the terminal client uses by default.
	DefaultPort = 8000
	// DefaultMaxUploadBytes limits a single uploaded document to 10 MB.
	DefaultMaxUploadBytes int64 = 10 << 20
	// DefaultReadTimeout guards hung clients.
	DefaultReadTimeout = 30 * time.Second
	// DefaultWriteTimeout bounds handler writes.
	DefaultWriteTimeout = 30 * time.Second
	// DefaultIdleTimeout bounds keep-alive connections.
	DefaultIdleTimeout = 60 * time.Second
	// DefaultTopK is how many chunks /ask answers from.
	DefaultTopK = 5

	// multipartOverhead is the allowance for boundaries and part headers on
	// top of the file payload.
	multipartOverhead int64 = 1 << 20
)

// Settings captures runtime configuration for the development backend.
type Settings struct {
	Host           string
	Port           int
	DataDir        string
	MaxUploadBytes int64
	TopK           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
}

// SettingsFromConfig builds Settings from .compliance/config.yaml. The config
// layer has already applied COMPLIANCE_DEV_* overrides; COMPLIANCE_DEV_TOP_K
// is read here.
func SettingsFromConfig(cfg *config.Config) Settings {
	settings := Settings{
		Host:           DefaultHost,
		Port:           DefaultPort,
		MaxUploadBytes: DefaultMaxUploadBytes,
		TopK:           DefaultTopK,
		ReadTimeout:    DefaultReadTimeout,
		WriteTimeout:   DefaultWriteTimeout,
		IdleTimeout:    DefaultIdleTimeout,
	}
	if cfg != nil {
		raw := cfg.Project.DevBackend
		if host := strings.TrimSpace(raw.Host); host != "" {
			settings.Host = host
		}
		if isValidPort(raw.Port) {
			settings.Port = raw.Port
		}
		settings.DataDir = raw.DataDir
		if raw.MaxUploadMB > 0 {
			settings.MaxUploadBytes = int64(raw.MaxUploadMB) << 20
		}
		if settings.DataDir == "" {
			settings.DataDir = filepath.Join(cfg.WorkDir, "dev-backend")
		}
	}
	settings.applyEnvOverrides()
	settings.normalize()
	return settings
}

func (s *Settings) applyEnvOverrides() {
	if s == nil {
		return
	}
	if value := strings.TrimSpace(os.Getenv("COMPLIANCE_DEV_TOP_K")); value != "" {
		if k, err := strconv.Atoi(value); err == nil && k > 0 {
			s.TopK = k
		}
	}
}

func (s *Settings) normalize() {
	if s == nil {
		return
	}
	s.Host = strings.TrimSpace(s.Host)
	if s.Host == "" {
		s.Host = DefaultHost
	}
	if s.Port != 0 && !isValidPort(s.Port) {
		s.Port = DefaultPort
	}
	if strings.TrimSpace(s.DataDir) == "" {
		s.DataDir = filepath.Join(config.WorkDirName, "dev-backend")
	}
	if s.MaxUploadBytes <= 0 {
		s.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if s.TopK <= 0 {
		s.TopK = DefaultTopK
	}
	if s.ReadTimeout <= 0 {
		s.ReadTimeout = DefaultReadTimeout
	}
	if s.WriteTimeout <= 0 {
		s.WriteTimeout = DefaultWriteTimeout
	}
	if s.IdleTimeout <= 0 {
		s.IdleTimeout = DefaultIdleTimeout
	}
}

// Address returns the TCP bind address in host:port form. Port 0 asks the
// kernel for a free port.
func (s Settings) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// URL returns the HTTP base URL for the server.
func (s Settings) URL() string {
	return "http://" + s.Address()
}

func isValidPort(port int) bool {
	return port > 0 && port <= 65535
}
