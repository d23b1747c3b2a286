// Package common provides shared utilities for medterms
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for medterms
type Config struct {
	Environment string        `toml:"environment"`
	Server      ServerConfig  `toml:"server"`
	Storage     StorageConfig `toml:"storage"`
	Auth        AuthConfig    `toml:"auth"`
	Logging     LoggingConfig `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string  `toml:"host"`
	Port           int     `toml:"port"`
	WriteRateLimit float64 `toml:"write_rate_limit"` // write requests per second, 0 disables
	WriteBurst     int     `toml:"write_burst"`
	MaxUploadMB    int     `toml:"max_upload_mb"`
}

// MaxUploadBytes returns the upload size cap in bytes.
func (c *ServerConfig) MaxUploadBytes() int64 {
	if c.MaxUploadMB <= 0 {
		return 10 << 20
	}
	return int64(c.MaxUploadMB) << 20
}

// StorageConfig holds the terms file location and image backend.
type StorageConfig struct {
	TermsPath string      `toml:"terms_path"`
	Versions  int         `toml:"versions"` // backups kept as terms.json.v1..vN, 0 disables
	Images    ImageConfig `toml:"images"`
}

// ImageConfig selects where uploaded images are written.
type ImageConfig struct {
	Backend   string    `toml:"backend"`    // "file" or "gcs"
	Path      string    `toml:"path"`       // file backend directory
	URLPrefix string    `toml:"url_prefix"` // public URL prefix for the file backend
	GCS       GCSConfig `toml:"gcs"`
}

// GCSConfig holds Google Cloud Storage configuration for image uploads.
type GCSConfig struct {
	Bucket          string `toml:"bucket"`
	Prefix          string `toml:"prefix"`           // Optional key prefix within bucket
	CredentialsFile string `toml:"credentials_file"` // Path to service account JSON (optional if using ADC)
	PublicBaseURL   string `toml:"public_base_url"`  // defaults to https://storage.googleapis.com/{bucket}
	Endpoint        string `toml:"endpoint"`         // emulator endpoint, disables authentication
}

// AuthConfig holds the shared admin secret. When both are set the hash wins.
type AuthConfig struct {
	AdminPassword     string `toml:"admin_password"`
	AdminPasswordHash string `toml:"admin_password_hash"` // bcrypt
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string   `toml:"level"`
	Format     string   `toml:"format"` // "console" or "json"
	Outputs    []string `toml:"outputs"`
	FilePath   string   `toml:"file_path"`
	MaxSizeMB  int      `toml:"max_size_mb"`
	MaxBackups int      `toml:"max_backups"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			WriteRateLimit: 5,
			WriteBurst:     10,
			MaxUploadMB:    10,
		},
		Storage: StorageConfig{
			TermsPath: "data/terms.json",
			Images: ImageConfig{
				Backend:   "file",
				Path:      "data/uploads",
				URLPrefix: "/uploads/",
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			Outputs:    []string{"console"},
			FilePath:   "./logs/medterms.log",
			MaxSizeMB:  100,
			MaxBackups: 3,
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Later files override earlier
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("MEDTERMS_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("MEDTERMS_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("MEDTERMS_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("MEDTERMS_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if path := os.Getenv("MEDTERMS_TERMS_PATH"); path != "" {
		config.Storage.TermsPath = path
	}
	if path := os.Getenv("MEDTERMS_UPLOADS_PATH"); path != "" {
		config.Storage.Images.Path = path
	}
	if backend := os.Getenv("MEDTERMS_IMAGE_BACKEND"); backend != "" {
		config.Storage.Images.Backend = strings.ToLower(backend)
	}
	if bucket := os.Getenv("MEDTERMS_GCS_BUCKET"); bucket != "" {
		config.Storage.Images.GCS.Bucket = bucket
	}

	// ADMIN_PASSWORD is the historical name; the prefixed form wins when both are set
	if v := os.Getenv("ADMIN_PASSWORD"); v != "" {
		config.Auth.AdminPassword = v
	}
	if v := os.Getenv("MEDTERMS_ADMIN_PASSWORD"); v != "" {
		config.Auth.AdminPassword = v
	}
	if v := os.Getenv("MEDTERMS_ADMIN_PASSWORD_HASH"); v != "" {
		config.Auth.AdminPasswordHash = v
	}
}

// Validate rejects configurations that cannot start.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Storage.TermsPath) == "" {
		return fmt.Errorf("storage.terms_path is required")
	}
	switch c.Storage.Images.Backend {
	case "", "file":
		if strings.TrimSpace(c.Storage.Images.Path) == "" {
			return fmt.Errorf("storage.images.path is required for the file backend")
		}
	case "gcs":
		if strings.TrimSpace(c.Storage.Images.GCS.Bucket) == "" {
			return fmt.Errorf("storage.images.gcs.bucket is required for the gcs backend")
		}
	default:
		return fmt.Errorf("unknown storage.images.backend %q (want file or gcs)", c.Storage.Images.Backend)
	}
	return nil
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// WritesEnabled reports whether any admin secret is configured.
func (c *Config) WritesEnabled() bool {
	return c.Auth.AdminPassword != "" || c.Auth.AdminPasswordHash != ""
}
