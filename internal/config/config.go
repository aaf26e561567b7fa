// Package config provides hierarchical configuration loading for the actions bridge.
// Precedence: defaults < YAML file < environment variables.
package config

import "time"

// Config holds all runtime configuration for the bridge. It is built once at
// startup and treated as read-only afterwards.
type Config struct {
	Server  Server  `yaml:"server"`
	Auth    Auth    `yaml:"auth"`
	Sandbox Sandbox `yaml:"sandbox"`
	Exec    Exec    `yaml:"exec"`
	Commit  Commit  `yaml:"commit"`
	GitHub  GitHub  `yaml:"github"`
	Logging Logging `yaml:"logging"`
	Breaker Breaker `yaml:"breaker"`
	Cache   Cache   `yaml:"cache"`
	NATS    NATS    `yaml:"nats"`
	OTEL    OTEL    `yaml:"otel"`
}

// Server holds HTTP server configuration.
type Server struct {
	Host      string `yaml:"host"`
	Port      string `yaml:"port"`
	BodyLimit int64  `yaml:"body_limit"` // Max request body in bytes (default: 32 MiB)
}

// Auth holds the shared-secret token check configuration.
type Auth struct {
	Token  string `yaml:"token"`
	Header string `yaml:"header"`
}

// Sandbox holds the file sandbox configuration.
type Sandbox struct {
	Root              string   `yaml:"root"`
	AllowSensitive    bool     `yaml:"allow_sensitive"`
	SensitivePrefixes []string `yaml:"sensitive_prefixes"` // Matched against the final path component
	SensitiveDirs     []string `yaml:"sensitive_dirs"`     // Matched against every segment below the root
	MaxReadChars      int      `yaml:"max_read_chars"`
}

// Exec holds command execution limits.
type Exec struct {
	Timeout         time.Duration `yaml:"timeout"`
	MaxOutput       int           `yaml:"max_output"` // Characters kept from the tail of stdout+stderr
	MaxConcurrent   int           `yaml:"max_concurrent"`
	Wrapper         []string      `yaml:"wrapper"` // Fixed argv prefix; the allowed command name is appended
	AllowedCommands []string      `yaml:"allowed_commands"`
}

// Commit holds the commit safety thresholds.
type Commit struct {
	MaxDiffLines int `yaml:"max_diff_lines"`
	MaxDeletes   int `yaml:"max_deletes"`
}

// GitHub holds pull-request collaborator configuration.
type GitHub struct {
	Token        string        `yaml:"token"`
	APIURL       string        `yaml:"api_url"`
	Timeout      time.Duration `yaml:"timeout"`
	DefaultTitle string        `yaml:"default_title"`
	DefaultBody  string        `yaml:"default_body"`
}

// Logging holds structured logging configuration.
type Logging struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
	Async   bool   `yaml:"async"`
}

// Breaker holds circuit breaker configuration for the forge API.
type Breaker struct {
	MaxFailures int           `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Cache holds the in-process cache configuration.
type Cache struct {
	MaxSizeMB int64         `yaml:"max_size_mb"`
	RepoTTL   time.Duration `yaml:"repo_ttl"`
}

// NATS holds the audit publisher and shared cache configuration. An empty
// URL disables both.
type NATS struct {
	URL        string `yaml:"url"`
	Subject    string `yaml:"subject"`
	RepoBucket string `yaml:"repo_bucket"` // KV bucket for repo identity; empty keeps the cache local
}

// OTEL holds OpenTelemetry export configuration. An empty endpoint disables export.
type OTEL struct {
	Endpoint string `yaml:"endpoint"`
	Insecure bool   `yaml:"insecure"`
}

// Defaults returns a Config with sensible default values for a local bridge.
func Defaults() Config {
	return Config{
		Server: Server{
			Host:      "127.0.0.1",
			Port:      "8787",
			BodyLimit: 32 << 20,
		},
		Auth: Auth{
			Header: "X-Bridge-Token",
		},
		Sandbox: Sandbox{
			Root:              ".",
			SensitivePrefixes: []string{".env", ".env.", ".github", ".gitlab", ".circleci"},
			SensitiveDirs:     []string{".env", ".env.", ".github", ".gitlab", ".circleci", "ci", "deploy", "deployment"},
			MaxReadChars:      200_000,
		},
		Exec: Exec{
			Timeout:         10 * time.Minute,
			MaxOutput:       100_000,
			MaxConcurrent:   4,
			Wrapper:         []string{"make"},
			AllowedCommands: []string{"test", "lint", "typecheck", "e2e-real"},
		},
		Commit: Commit{
			MaxDiffLines: 800,
			MaxDeletes:   20,
		},
		GitHub: GitHub{
			APIURL:       "https://api.github.com",
			Timeout:      30 * time.Second,
			DefaultTitle: "Bridge: update",
			DefaultBody:  "Automated PR from actions bridge",
		},
		Logging: Logging{
			Level:   "info",
			Service: "actions-bridge",
		},
		Breaker: Breaker{
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		},
		Cache: Cache{
			MaxSizeMB: 8,
			RepoTTL:   5 * time.Minute,
		},
		NATS: NATS{
			Subject:    "bridge.audit",
			RepoBucket: "BRIDGE_REPO",
		},
	}
}

// Addr returns the listen address for the HTTP server.
func (s Server) Addr() string {
	return s.Host + ":" + s.Port
}
