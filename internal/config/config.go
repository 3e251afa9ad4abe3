// Package config provides configuration loading and validation for the
// interview-coach service and CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Default values applied by Load.
const (
	DefaultPort         = 8080
	DefaultLeaseTTL     = 2 * time.Minute
	DefaultExportDir    = "exports"
	DefaultRenderer     = "latex"
	DefaultGeneratorRPS = 2.0
	DefaultVoice        = "Gacrux"
)

// Config is the service configuration. It can be loaded from a TOML file and is
// then overridden by environment variables.
type Config struct {
	DatabaseURL string `toml:"database_url"`
	APIKey      string `toml:"api_key"` // Gemini API key
	Port        int    `toml:"port"`

	Log       LogConfig       `toml:"log"`
	Generator GeneratorConfig `toml:"generator"`
	Speech    SpeechConfig    `toml:"speech"`
	Export    ExportConfig    `toml:"export"`

	// LeaseTTL bounds how long a per-interview lease survives a crashed holder.
	LeaseTTL Duration `toml:"lease_ttl"`
}

// LogConfig selects the slog handler and level.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // text or json
}

// GeneratorConfig throttles Generator calls.
type GeneratorConfig struct {
	RPS   float64 `toml:"rps"`
	Burst int     `toml:"burst"`
}

// SpeechConfig configures audio rendering.
type SpeechConfig struct {
	Enabled bool   `toml:"enabled"`
	Voice   string `toml:"voice"`
}

// ExportConfig configures rendering and publishing of exported reports.
type ExportConfig struct {
	Dir            string   `toml:"dir"`
	Renderer       string   `toml:"renderer"` // latex or chrome
	SigningSecret  string   `toml:"signing_secret"`
	LinkExpiration Duration `toml:"link_expiration"`
	S3             S3Config `toml:"s3"`
}

// S3Config enables the object storage publisher when Endpoint and Bucket are set.
type S3Config struct {
	Endpoint  string `toml:"endpoint"`
	Bucket    string `toml:"bucket"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	Region    string `toml:"region"`
	UseSSL    bool   `toml:"use_ssl"`
}

// Enabled reports whether enough settings are present to publish to S3.
func (s S3Config) Enabled() bool {
	return s.Endpoint != "" && s.Bucket != ""
}

// Duration is a time.Duration that decodes from TOML strings such as "90s".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(b), err)
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Default returns a Config populated with defaults only.
func Default() Config {
	return Config{
		Port:      DefaultPort,
		Log:       LogConfig{Level: "info", Format: "text"},
		Generator: GeneratorConfig{RPS: DefaultGeneratorRPS, Burst: 4},
		Speech:    SpeechConfig{Enabled: true, Voice: DefaultVoice},
		Export: ExportConfig{
			Dir:            DefaultExportDir,
			Renderer:       DefaultRenderer,
			LinkExpiration: Duration(24 * time.Hour),
		},
		LeaseTTL: Duration(DefaultLeaseTTL),
	}
}

// Load builds a Config from defaults, the optional TOML file at path and the
// environment, in increasing order of precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) loadFile(path string) error {
	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config TOML: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.APIKey, "GEMINI_API_KEY")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Log.Format, "LOG_FORMAT")
	setString(&c.Speech.Voice, "SPEECH_VOICE")
	setString(&c.Export.Dir, "EXPORT_DIR")
	setString(&c.Export.Renderer, "EXPORT_RENDERER")
	setString(&c.Export.SigningSecret, "DOWNLOAD_SIGNING_SECRET")
	setString(&c.Export.S3.Endpoint, "S3_ENDPOINT")
	setString(&c.Export.S3.Bucket, "S3_BUCKET")
	setString(&c.Export.S3.AccessKey, "S3_ACCESS_KEY")
	setString(&c.Export.S3.SecretKey, "S3_SECRET_KEY")
	setString(&c.Export.S3.Region, "S3_REGION")

	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT: %v", err)
		}
		c.Port = port
	}
	if v := os.Getenv("GENERATOR_RPS"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid GENERATOR_RPS: %v", err)
		}
		c.Generator.RPS = rps
	}
	if v := os.Getenv("LEASE_TTL"); v != "" {
		var d Duration
		if err := d.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("invalid LEASE_TTL: %w", err)
		}
		c.LeaseTTL = d
	}
	if v := os.Getenv("SPEECH_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid SPEECH_ENABLED: %v", err)
		}
		c.Speech.Enabled = enabled
	}
	if v := os.Getenv("S3_USE_SSL"); v != "" {
		useSSL, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid S3_USE_SSL: %v", err)
		}
		c.Export.S3.UseSSL = useSSL
	}
	return nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

// Requirements lists what a command needs from the configuration.
type Requirements struct {
	Database  bool
	Generator bool
}

// Validate checks value ranges and the settings required by a command.
func (c *Config) Validate(req Requirements) error {
	if req.Database && c.DatabaseURL == "" {
		return fmt.Errorf("config error: DATABASE_URL is required")
	}
	if req.Generator && c.APIKey == "" {
		return fmt.Errorf("config error: GEMINI_API_KEY is required")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 1 and 65535, got %d", c.Port)
	}
	if c.Generator.RPS < 0 {
		return fmt.Errorf("config error: 'generator.rps' must be non-negative")
	}
	if c.LeaseTTL <= 0 {
		return fmt.Errorf("config error: 'lease_ttl' must be positive")
	}
	switch c.Export.Renderer {
	case "latex", "chrome":
	default:
		return fmt.Errorf("config error: 'export.renderer' must be latex or chrome, got %q", c.Export.Renderer)
	}
	return nil
}
