package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Supported transports.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Config stores environment-driven settings for the server.
type Config struct {
	// LogLevel sets the logger level.
	LogLevel string `env:"GEMINI_MCP_LOG_LEVEL" envDefault:"info"`
	// Transport selects the MCP transport ("stdio" or "http").
	Transport string `env:"GEMINI_MCP_TRANSPORT" envDefault:"stdio"`
	// HTTP configures the HTTP transport.
	HTTP HTTPConfig
	// ShutdownTimeout controls graceful shutdown duration.
	ShutdownTimeout time.Duration `env:"GEMINI_MCP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	// Command is the gemini executable name or path.
	Command string `env:"GEMINI_MCP_COMMAND" envDefault:"gemini"`
	// MaxPayloadBytes caps the composed payload; 0 disables the cap.
	MaxPayloadBytes int `env:"GEMINI_MCP_MAX_PAYLOAD_BYTES" envDefault:"4194304"`
}

// HTTPConfig configures the streamable HTTP transport.
type HTTPConfig struct {
	// Listen is the HTTP listen address.
	Listen string `env:"GEMINI_MCP_HTTP_LISTEN" envDefault:":8080"`
	// Path is the MCP HTTP endpoint path.
	Path string `env:"GEMINI_MCP_HTTP_PATH" envDefault:"/mcp"`
	// Stateless disables session tracking.
	Stateless bool `env:"GEMINI_MCP_HTTP_STATELESS" envDefault:"false"`
	// ReadTimeout limits request read time.
	ReadTimeout time.Duration `env:"GEMINI_MCP_HTTP_READ_TIMEOUT" envDefault:"15s"`
	// WriteTimeout limits response write time; it must outlive a gemini call.
	WriteTimeout time.Duration `env:"GEMINI_MCP_HTTP_WRITE_TIMEOUT" envDefault:"60s"`
	// IdleTimeout controls idle connections.
	IdleTimeout time.Duration `env:"GEMINI_MCP_HTTP_IDLE_TIMEOUT" envDefault:"60s"`
}

// Load parses environment variables into Config.
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate normalizes values and verifies required fields.
func (c *Config) Validate() error {
	c.Transport = strings.ToLower(strings.TrimSpace(c.Transport))
	switch c.Transport {
	case TransportStdio, TransportHTTP:
	default:
		return fmt.Errorf("transport must be %s or %s, got %q", TransportStdio, TransportHTTP, c.Transport)
	}
	if strings.TrimSpace(c.Command) == "" {
		return fmt.Errorf("command is required")
	}
	if c.MaxPayloadBytes < 0 {
		return fmt.Errorf("max payload bytes must be >= 0")
	}
	if c.Transport == TransportHTTP {
		if strings.TrimSpace(c.HTTP.Listen) == "" {
			return fmt.Errorf("http listen address is required")
		}
		if !strings.HasPrefix(c.HTTP.Path, "/") {
			return fmt.Errorf("http path must start with /")
		}
	}
	return nil
}
