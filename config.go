package routekit

import (
	"net"
	"strconv"
	"time"
)

// Defaults applied by DefaultConfig and by Server for zero values.
const (
	DefaultHost              = "127.0.0.1"
	DefaultPort              = 8080
	DefaultDrainTimeout      = 5 * time.Second
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultMaxBodyBytes      = 1 << 20
)

// Config is the configuration value object handed to a Server and exposed
// to handlers through AppContext.
type Config struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// DrainTimeout bounds how long Stop waits for in-flight requests before
	// closing their connections.
	DrainTimeout      time.Duration `yaml:"drain_timeout"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	MaxBodyBytes      int64         `yaml:"max_body_bytes"`

	Title   string `yaml:"title"`
	Version string `yaml:"version"`
}

// DefaultConfig returns a Config with every field set to its default.
func DefaultConfig() Config {
	return Config{
		Host:              DefaultHost,
		Port:              DefaultPort,
		DrainTimeout:      DefaultDrainTimeout,
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
		MaxBodyBytes:      DefaultMaxBodyBytes,
		Title:             "API",
		Version:           "0.0.0",
	}
}

// withDefaults fills zero durations and limits. Port 0 is kept: it asks the
// OS for an ephemeral port.
func (c Config) withDefaults() Config {
	if c.DrainTimeout <= 0 {
		c.DrainTimeout = DefaultDrainTimeout
	}
	if c.ReadHeaderTimeout <= 0 {
		c.ReadHeaderTimeout = DefaultReadHeaderTimeout
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.Title == "" {
		c.Title = "API"
	}
	if c.Version == "" {
		c.Version = "0.0.0"
	}
	return c
}

// Addr returns host:port.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
