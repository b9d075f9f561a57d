package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the overlapctl configuration.
type Config struct {
	Logging LoggingConfig `yaml:"logging"`
	Loader  LoaderConfig  `yaml:"loader"`
	Sources SourcesConfig `yaml:"sources"`
	Metrics MetricsConfig `yaml:"metrics"`
	Export  ExportConfig  `yaml:"export"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// LoaderConfig holds the default archive list and ordering settings.
type LoaderConfig struct {
	Archives []string `yaml:"archives"`
	Shuffle  *bool    `yaml:"shuffle"` // default: true
	Seed     *uint64  `yaml:"seed"`    // unset: fresh seed per run, logged
}

// SourcesConfig configures the storage backends archives are read from.
// Local files are always available; the rest are enabled by their settings.
type SourcesConfig struct {
	Local  LocalSource  `yaml:"local"`
	S3     S3Source     `yaml:"s3"`
	Minio  MinioSource  `yaml:"minio"`
	Valkey ValkeySource `yaml:"valkey"`
}

// LocalSource resolves relative archive paths.
type LocalSource struct {
	Root string `yaml:"root"`
}

// S3Source enables s3:// locations.
type S3Source struct {
	Enabled  bool   `yaml:"enabled"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
	Prefix   string `yaml:"prefix"`
}

// MinioSource enables minio:// locations when Endpoint is set.
type MinioSource struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
	Prefix    string `yaml:"prefix"`
}

// ValkeySource enables valkey:// locations when Addrs is set.
type ValkeySource struct {
	Addrs     []string `yaml:"addrs"`
	Username  string   `yaml:"username"`
	Password  string   `yaml:"password"`
	DB        int      `yaml:"db"`
	KeyPrefix string   `yaml:"key_prefix"`
}

// MetricsConfig holds the status server settings. Port 0 disables it.
type MetricsConfig struct {
	Port        int      `yaml:"port"`
	ShutdownSec int      `yaml:"shutdown_timeout_sec"`
	APIKeys     []string `yaml:"api_keys"` // bearer tokens for /metrics; empty disables auth
}

// ExportConfig holds output settings.
type ExportConfig struct {
	ParquetPath string `yaml:"parquet_path"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse expands environment variables in data, decodes it and applies defaults.
func Parse(data []byte) (Config, error) {
	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.Loader.Shuffle == nil {
		shuffle := true
		c.Loader.Shuffle = &shuffle
	}
	if c.Metrics.ShutdownSec <= 0 {
		c.Metrics.ShutdownSec = 5
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.Metrics.Port < 0 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 0 and 65535, got %d", c.Metrics.Port)
	}
	if c.Sources.Minio.Endpoint != "" && c.Sources.Minio.AccessKey == "" {
		return fmt.Errorf("sources.minio.access_key is required when endpoint is set")
	}
	if c.Sources.Valkey.DB < 0 {
		return fmt.Errorf("sources.valkey.db must be non-negative, got %d", c.Sources.Valkey.DB)
	}
	for i, a := range c.Loader.Archives {
		if strings.TrimSpace(a) == "" {
			return fmt.Errorf("loader.archives[%d] is empty", i)
		}
	}
	if p := c.Export.ParquetPath; p != "" && filepath.Ext(p) != ".parquet" {
		return fmt.Errorf("export.parquet_path must end in .parquet, got %q", p)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
