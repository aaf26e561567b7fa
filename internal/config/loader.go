package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "actionsbridge.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// The YAML path is taken from BRIDGE_CONFIG when set. A missing file is not an error.
func Load() (*Config, error) {
	path := DefaultConfigFile
	if v := os.Getenv("BRIDGE_CONFIG"); v != "" {
		path = v
	}
	return LoadFrom(path)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: operator-supplied config path
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Host, "BRIDGE_HOST")
	setString(&cfg.Server.Port, "BRIDGE_PORT")
	setInt64(&cfg.Server.BodyLimit, "BRIDGE_BODY_LIMIT")

	// Auth
	setString(&cfg.Auth.Token, "BRIDGE_TOKEN")
	setString(&cfg.Auth.Header, "BRIDGE_TOKEN_HEADER")

	// Sandbox
	setString(&cfg.Sandbox.Root, "BRIDGE_REPO_ROOT")
	setBool(&cfg.Sandbox.AllowSensitive, "ALLOW_SENSITIVE")
	setInt(&cfg.Sandbox.MaxReadChars, "BRIDGE_MAX_READ_CHARS")

	// Exec
	setDuration(&cfg.Exec.Timeout, "BRIDGE_EXEC_TIMEOUT")
	setInt(&cfg.Exec.MaxOutput, "BRIDGE_MAX_OUTPUT")
	setInt(&cfg.Exec.MaxConcurrent, "BRIDGE_EXEC_MAX_CONCURRENT")
	setList(&cfg.Exec.AllowedCommands, "BRIDGE_ALLOWED_COMMANDS")

	// Commit
	setInt(&cfg.Commit.MaxDiffLines, "BRIDGE_MAX_DIFF_LINES")
	setInt(&cfg.Commit.MaxDeletes, "BRIDGE_MAX_DELETES")

	// GitHub
	setString(&cfg.GitHub.Token, "GH_TOKEN")
	setString(&cfg.GitHub.APIURL, "GITHUB_API_URL")
	setDuration(&cfg.GitHub.Timeout, "BRIDGE_GITHUB_TIMEOUT")

	setString(&cfg.Logging.Level, "BRIDGE_LOG_LEVEL")
	setString(&cfg.Logging.Service, "BRIDGE_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "BRIDGE_LOG_ASYNC")

	setInt(&cfg.Breaker.MaxFailures, "BRIDGE_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "BRIDGE_BREAKER_TIMEOUT")

	setInt64(&cfg.Cache.MaxSizeMB, "BRIDGE_CACHE_SIZE_MB")
	setDuration(&cfg.Cache.RepoTTL, "BRIDGE_CACHE_REPO_TTL")

	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.NATS.Subject, "BRIDGE_AUDIT_SUBJECT")
	setString(&cfg.NATS.RepoBucket, "BRIDGE_REPO_BUCKET")

	setString(&cfg.OTEL.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setBool(&cfg.OTEL.Insecure, "BRIDGE_OTEL_INSECURE")
}

// validate checks that required fields are set and limits are usable.
// An empty auth token is allowed: every authenticated request is then rejected.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Server.BodyLimit < 1 {
		return errors.New("server.body_limit must be >= 1")
	}
	if cfg.Auth.Header == "" {
		return errors.New("auth.header is required")
	}
	if cfg.Sandbox.Root == "" {
		return errors.New("sandbox.root is required")
	}
	if cfg.Sandbox.MaxReadChars < 1 {
		return errors.New("sandbox.max_read_chars must be >= 1")
	}
	if cfg.Exec.Timeout <= 0 {
		return errors.New("exec.timeout must be positive")
	}
	if cfg.Exec.MaxOutput < 1 {
		return errors.New("exec.max_output must be >= 1")
	}
	if cfg.Exec.MaxConcurrent < 1 {
		return errors.New("exec.max_concurrent must be >= 1")
	}
	if len(cfg.Exec.Wrapper) == 0 || cfg.Exec.Wrapper[0] == "" {
		return errors.New("exec.wrapper is required")
	}
	for _, name := range cfg.Exec.AllowedCommands {
		if name == "" || strings.HasPrefix(name, "-") || strings.ContainsAny(name, " \t\n") {
			return fmt.Errorf("exec.allowed_commands: invalid command name %q", name)
		}
	}
	if cfg.Commit.MaxDiffLines < 0 {
		return errors.New("commit.max_diff_lines must be >= 0")
	}
	if cfg.Commit.MaxDeletes < 0 {
		return errors.New("commit.max_deletes must be >= 0")
	}
	if cfg.GitHub.APIURL == "" {
		return errors.New("github.api_url is required")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Cache.MaxSizeMB < 1 {
		return errors.New("cache.max_size_mb must be >= 1")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

// setList splits a comma-separated env value, dropping empty items.
func setList(dst *[]string, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	var items []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) > 0 {
		*dst = items
	}
}

// CLIFlags holds command-line overrides. Nil fields were not set.
type CLIFlags struct {
	ConfigPath *string
	Host       *string
	Port       *string
	Root       *string
	LogLevel   *string
}

// ParseFlags parses command-line arguments into CLIFlags.
func ParseFlags(args []string) (CLIFlags, error) {
	fs := flag.NewFlagSet("actionsbridge", flag.ContinueOnError)

	var flags CLIFlags
	configPath := fs.String("config", "", "path to YAML config file")
	fs.StringVar(configPath, "c", "", "path to YAML config file (shorthand)")
	host := fs.String("host", "", "listen host")
	port := fs.String("port", "", "listen port")
	fs.StringVar(port, "p", "", "listen port (shorthand)")
	root := fs.String("root", "", "sandbox root (repository working tree)")
	logLevel := fs.String("log-level", "", "log level (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		return CLIFlags{}, err
	}

	// Only flags that were actually passed become non-nil.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "config", "c":
			flags.ConfigPath = configPath
		case "host":
			flags.Host = host
		case "port", "p":
			flags.Port = port
		case "root":
			flags.Root = root
		case "log-level":
			flags.LogLevel = logLevel
		}
	})
	return flags, nil
}

// LoadWithCLI loads configuration with the hierarchy defaults < YAML < ENV < CLI.
// It returns the config and the YAML path that was consulted.
func LoadWithCLI(flags CLIFlags) (*Config, string, error) {
	path := DefaultConfigFile
	if v := os.Getenv("BRIDGE_CONFIG"); v != "" {
		path = v
	}
	if flags.ConfigPath != nil && *flags.ConfigPath != "" {
		path = *flags.ConfigPath
	}

	cfg := Defaults()
	if err := loadYAML(&cfg, path); err != nil {
		return nil, path, fmt.Errorf("config yaml: %w", err)
	}
	loadEnv(&cfg)
	applyCLI(&cfg, flags)

	if err := validate(&cfg); err != nil {
		return nil, path, fmt.Errorf("config validate: %w", err)
	}
	return &cfg, path, nil
}

func applyCLI(cfg *Config, flags CLIFlags) {
	if flags.Host != nil {
		cfg.Server.Host = *flags.Host
	}
	if flags.Port != nil {
		cfg.Server.Port = *flags.Port
	}
	if flags.Root != nil {
		cfg.Sandbox.Root = *flags.Root
	}
	if flags.LogLevel != nil {
		cfg.Logging.Level = *flags.LogLevel
	}
}
