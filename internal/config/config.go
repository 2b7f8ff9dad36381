// Package config provides centralized configuration management. Settings
// load from environment variables with defaults and are validated on
// startup to fail fast on misconfiguration.
package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Import   ImportConfig
	Enrich   EnrichConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading a request body.
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is disabled by default: progress streams stay open for
	// the lifetime of an import or enrichment batch.
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout.
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// Addr returns the listen address in host:port form.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required).
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	// MaxConns is the maximum number of connections in the pool.
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open.
	MinConns int `env:"DB_MIN_CONNS" default:"2"`
}

// ImportConfig holds import batch settings.
type ImportConfig struct {
	// MaxFileSize is the maximum accepted upload size in bytes (default: 20MB).
	MaxFileSize int64 `env:"IMPORT_MAX_FILE_SIZE" default:"20971520"`

	// MaxRows caps the number of data rows per import file.
	MaxRows int `env:"IMPORT_MAX_ROWS" default:"50000"`

	// Timeout is the maximum duration for one import job.
	Timeout time.Duration `env:"IMPORT_TIMEOUT" default:"5m"`
}

// EnrichConfig holds external lookup service settings.
type EnrichConfig struct {
	// RegistryURL is the company registry search endpoint.
	RegistryURL string `env:"ENRICH_REGISTRY_URL" default:"https://recherche-entreprises.api.gouv.fr"`

	// GeocodeURL is the address geocoding endpoint.
	GeocodeURL string `env:"ENRICH_GEOCODE_URL" default:"https://api-adresse.data.gouv.fr"`

	// RouteURL is the driving-route calculation endpoint.
	RouteURL string `env:"ENRICH_ROUTE_URL" default:"https://router.project-osrm.org"`

	// HTTPTimeout bounds each individual lookup call.
	HTTPTimeout time.Duration `env:"ENRICH_HTTP_TIMEOUT" default:"10s"`

	// RegistryDelay, GeocodeDelay and RouteDelay are the pauses inserted
	// after each record during a batch, to respect service rate limits.
	RegistryDelay time.Duration `env:"ENRICH_REGISTRY_DELAY" default:"150ms"`
	GeocodeDelay  time.Duration `env:"ENRICH_GEOCODE_DELAY" default:"100ms"`
	RouteDelay    time.Duration `env:"ENRICH_ROUTE_DELAY" default:"200ms"`

	// Timeout is the maximum duration for one whole enrichment batch.
	Timeout time.Duration `env:"ENRICH_TIMEOUT" default:"1h"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level: "debug", "info", "warn", "error".
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format: "text" for development, "json" for production.
	Format string `env:"LOG_FORMAT" default:"text"`
}
