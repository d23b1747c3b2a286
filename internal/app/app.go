// Package app wires configuration, storage and services into one App shared
// by the HTTP server and the CLI commands.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bobmcallan/medterms/internal/auth"
	"github.com/bobmcallan/medterms/internal/common"
	"github.com/bobmcallan/medterms/internal/interfaces"
	"github.com/bobmcallan/medterms/internal/services/glossary"
	"github.com/bobmcallan/medterms/internal/services/upload"
	"github.com/bobmcallan/medterms/internal/storage"
)

// App holds all initialized stores and services.
type App struct {
	Config          *common.Config
	Logger          *common.Logger
	Terms           interfaces.TermStore
	Images          interfaces.ImageStore
	GlossaryService interfaces.GlossaryService
	UploadService   interfaces.UploadService
	AuthPolicy      auth.Policy
	StartupTime     time.Time
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// ResolveConfigPath returns configPath, else MEDTERMS_CONFIG, else
// medterms.toml beside the binary, else config/medterms.toml.
func ResolveConfigPath(configPath string) string {
	if configPath == "" {
		configPath = os.Getenv("MEDTERMS_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(getBinaryDir(), "medterms.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/medterms.toml" // fallback for development
		}
	}
	return configPath
}

// NewApp loads configuration and initializes every store and service.
// configPath may be empty, in which case ResolveConfigPath decides.
func NewApp(configPath string) (*App, error) {
	// Load version from .version file (fallback if ldflags not set)
	common.LoadVersionFromFile()

	config, err := common.LoadConfig(ResolveConfigPath(configPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := common.NewLoggerFromConfig(config.Logging)
	return NewAppWithConfig(config, logger)
}

// NewAppWithConfig initializes the App from an already loaded configuration.
func NewAppWithConfig(config *common.Config, logger *common.Logger) (*App, error) {
	startupStart := time.Now()
	ctx := context.Background()

	terms := storage.NewTermFileStore(logger, config.Storage.TermsPath,
		storage.WithVersions(config.Storage.Versions),
	)

	images, err := storage.NewImageStore(ctx, logger, &config.Storage.Images)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize image storage: %w", err)
	}

	policy, err := auth.NewPolicyFromConfig(&config.Auth)
	if err != nil {
		images.Close()
		return nil, fmt.Errorf("failed to initialize auth: %w", err)
	}
	if !policy.Enabled() {
		logger.Warn().Msg("No admin password configured - term writes and uploads are disabled")
	}

	a := &App{
		Config:          config,
		Logger:          logger,
		Terms:           terms,
		Images:          images,
		GlossaryService: glossary.NewService(terms, logger),
		UploadService:   upload.NewService(images, logger),
		AuthPolicy:      policy,
		StartupTime:     startupStart,
	}

	logger.Info().
		Str("terms_path", terms.Path()).
		Str("image_backend", config.Storage.Images.Backend).
		Dur("startup", time.Since(startupStart)).
		Msg("App initialized")
	return a, nil
}

// Close releases all resources held by the App.
func (a *App) Close() {
	if a.Images != nil {
		if err := a.Images.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close image storage")
		}
		a.Images = nil
	}
}
