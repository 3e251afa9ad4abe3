package config

import (
	"fmt"
	"time"
)

// DownloadConfig holds the settings for signing export download links.
type DownloadConfig struct {
	Secret     string
	Expiration time.Duration
}

// Download returns the download-link configuration derived from c.
// DOWNLOAD_SIGNING_SECRET is required for local publishing.
func (c *Config) Download() (*DownloadConfig, error) {
	cfg := &DownloadConfig{
		Secret:     c.Export.SigningSecret,
		Expiration: time.Duration(c.Export.LinkExpiration),
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// normalize validates the configuration.
func (c *DownloadConfig) normalize() error {
	if c.Secret == "" {
		return fmt.Errorf("DOWNLOAD_SIGNING_SECRET cannot be empty")
	}
	if len(c.Secret) < 16 {
		return fmt.Errorf("DOWNLOAD_SIGNING_SECRET must be at least 16 characters")
	}
	if c.Expiration < time.Minute {
		return fmt.Errorf("download link expiration must be at least 1 minute, got: %s", c.Expiration)
	}
	return nil
}
