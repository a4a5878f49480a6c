// Package config provides configuration loading and validation for the
// submission service and CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Record store backends
const (
	BackendHTTP     = "http"
	BackendPostgres = "postgres"
)

// Renderer modes
const (
	RendererLocal  = "local"
	RendererRemote = "remote"
)

// Defaults
const (
	DefaultRecordStoreCeiling = 5 << 20
	DefaultEmailCeiling       = 20 << 20
	DefaultRenderTimeout      = 30
	DefaultSMTPPort           = 587
	DefaultPresignMinutes     = 7 * 24 * 60
	DefaultPort               = 8080
)

// DefaultAttachmentFields are tried in order when attaching directly to the
// record store, since the column name has changed across schema revisions.
var DefaultAttachmentFields = []string{"Transaction Sheet", "Document", "Attachments"}

// Config represents the service configuration loaded from a JSON or YAML
// file and overlaid by environment variables.
type Config struct {
	RecordStore RecordStoreConfig `json:"record_store" yaml:"record_store"`
	Database    DatabaseConfig    `json:"database" yaml:"database"`
	Renderer    RendererConfig    `json:"renderer" yaml:"renderer"`
	Mail        MailConfig        `json:"mail" yaml:"mail"`
	Storage     StorageConfig     `json:"storage" yaml:"storage"`
	Governor    GovernorConfig    `json:"governor" yaml:"governor"`
	Log         LogConfig         `json:"log" yaml:"log"`
	Server      ServerConfig      `json:"server" yaml:"server"`
}

// RecordStoreConfig selects and configures the system of record.
type RecordStoreConfig struct {
	Backend                string   `json:"backend,omitempty" yaml:"backend,omitempty"` // http or postgres
	BaseURL                string   `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	APIKey                 string   `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	TransactionsTable      string   `json:"transactions_table,omitempty" yaml:"transactions_table,omitempty"`
	PartiesTable           string   `json:"parties_table,omitempty" yaml:"parties_table,omitempty"`
	AttachmentFields       []string `json:"attachment_fields,omitempty" yaml:"attachment_fields,omitempty"`
	AttachmentCeilingBytes int      `json:"attachment_ceiling_bytes,omitempty" yaml:"attachment_ceiling_bytes,omitempty"`
}

// DatabaseConfig configures the PostgreSQL backend.
type DatabaseConfig struct {
	URL string `json:"url,omitempty" yaml:"url,omitempty"`
}

// RendererConfig configures document generation.
type RendererConfig struct {
	Mode            string `json:"mode,omitempty" yaml:"mode,omitempty"` // local or remote
	URL             string `json:"url,omitempty" yaml:"url,omitempty"`
	TimeoutSeconds  int    `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty"`
	TemplatePath    string `json:"template_path,omitempty" yaml:"template_path,omitempty"`
	RegularFontPath string `json:"regular_font_path,omitempty" yaml:"regular_font_path,omitempty"`
	BoldFontPath    string `json:"bold_font_path,omitempty" yaml:"bold_font_path,omitempty"`
}

// MailConfig configures the SMTP relay. Email is disabled when Host is empty.
type MailConfig struct {
	Host                   string   `json:"host,omitempty" yaml:"host,omitempty"`
	Port                   int      `json:"port,omitempty" yaml:"port,omitempty"`
	Username               string   `json:"username,omitempty" yaml:"username,omitempty"`
	Password               string   `json:"password,omitempty" yaml:"password,omitempty"`
	From                   string   `json:"from,omitempty" yaml:"from,omitempty"`
	To                     []string `json:"to,omitempty" yaml:"to,omitempty"`
	AttachmentCeilingBytes int      `json:"attachment_ceiling_bytes,omitempty" yaml:"attachment_ceiling_bytes,omitempty"`
}

// Enabled reports whether email delivery is configured.
func (m MailConfig) Enabled() bool {
	return m.Host != ""
}

// StorageConfig configures S3-compatible object storage. Storage is
// disabled when Endpoint is empty.
type StorageConfig struct {
	Endpoint             string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	AccessKey            string `json:"access_key,omitempty" yaml:"access_key,omitempty"`
	SecretKey            string `json:"secret_key,omitempty" yaml:"secret_key,omitempty"`
	Bucket               string `json:"bucket,omitempty" yaml:"bucket,omitempty"`
	Region               string `json:"region,omitempty" yaml:"region,omitempty"`
	Secure               bool   `json:"secure,omitempty" yaml:"secure,omitempty"`
	PublicBaseURL        string `json:"public_base_url,omitempty" yaml:"public_base_url,omitempty"`
	PresignExpiryMinutes int    `json:"presign_expiry_minutes,omitempty" yaml:"presign_expiry_minutes,omitempty"`
}

// Enabled reports whether object storage is configured.
func (s StorageConfig) Enabled() bool {
	return s.Endpoint != ""
}

// GovernorConfig bounds attachment compression.
type GovernorConfig struct {
	MaxRounds      int     `json:"max_rounds,omitempty" yaml:"max_rounds,omitempty"`
	ShrinkFactor   float64 `json:"shrink_factor,omitempty" yaml:"shrink_factor,omitempty"`
	TruncateMargin float64 `json:"truncate_margin,omitempty" yaml:"truncate_margin,omitempty"`
}

// LogConfig configures the structured logger.
type LogConfig struct {
	Environment string `json:"environment,omitempty" yaml:"environment,omitempty"`
	Level       string `json:"level,omitempty" yaml:"level,omitempty"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port int `json:"port,omitempty" yaml:"port,omitempty"`
}

// LoadConfig loads configuration from a JSON or YAML file, chosen by
// extension. Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	return &cfg, nil
}

// Load reads the optional file at path, overlays the environment and fills
// defaults. It does not validate.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		var err error
		cfg, err = LoadConfig(path)
		if err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyDefaults fills every unset value with its default.
func (c *Config) ApplyDefaults() {
	if c.RecordStore.Backend == "" {
		c.RecordStore.Backend = BackendHTTP
	}
	if len(c.RecordStore.AttachmentFields) == 0 {
		c.RecordStore.AttachmentFields = append([]string(nil), DefaultAttachmentFields...)
	}
	if c.RecordStore.AttachmentCeilingBytes == 0 {
		c.RecordStore.AttachmentCeilingBytes = DefaultRecordStoreCeiling
	}
	if c.Renderer.Mode == "" {
		c.Renderer.Mode = RendererLocal
	}
	if c.Renderer.TimeoutSeconds == 0 {
		c.Renderer.TimeoutSeconds = DefaultRenderTimeout
	}
	if c.Mail.Port == 0 {
		c.Mail.Port = DefaultSMTPPort
	}
	if c.Mail.AttachmentCeilingBytes == 0 {
		c.Mail.AttachmentCeilingBytes = DefaultEmailCeiling
	}
	if c.Storage.PresignExpiryMinutes == 0 {
		c.Storage.PresignExpiryMinutes = DefaultPresignMinutes
	}
	if c.Governor.MaxRounds == 0 {
		c.Governor.MaxRounds = 3
	}
	if c.Governor.ShrinkFactor == 0 {
		c.Governor.ShrinkFactor = 0.7
	}
	if c.Governor.TruncateMargin == 0 {
		c.Governor.TruncateMargin = 0.05
	}
	if c.Log.Environment == "" {
		c.Log.Environment = "production"
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
}

// Validate checks that the configuration has valid values and consistent
// combinations.
func (c *Config) Validate() error {
	switch c.RecordStore.Backend {
	case BackendHTTP:
		if c.RecordStore.BaseURL == "" {
			return fmt.Errorf("config error: 'record_store.base_url' is required for the http backend")
		}
	case BackendPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("config error: 'database.url' is required for the postgres backend")
		}
	default:
		return fmt.Errorf("config error: unknown record store backend %q", c.RecordStore.Backend)
	}

	switch c.Renderer.Mode {
	case RendererLocal:
		if c.Renderer.TemplatePath == "" {
			return fmt.Errorf("config error: 'renderer.template_path' is required for local rendering")
		}
		if _, err := os.Stat(c.Renderer.TemplatePath); os.IsNotExist(err) {
			return fmt.Errorf("config error: template file not found: %s", c.Renderer.TemplatePath)
		}
	case RendererRemote:
		if c.Renderer.URL == "" {
			return fmt.Errorf("config error: 'renderer.url' is required for remote rendering")
		}
	default:
		return fmt.Errorf("config error: unknown renderer mode %q", c.Renderer.Mode)
	}
	if (c.Renderer.RegularFontPath == "") != (c.Renderer.BoldFontPath == "") {
		return fmt.Errorf("config error: regular and bold font paths must be set together")
	}

	if c.Renderer.TimeoutSeconds < 0 {
		return fmt.Errorf("config error: 'renderer.timeout_seconds' must be non-negative")
	}
	if c.RecordStore.AttachmentCeilingBytes < 0 || c.Mail.AttachmentCeilingBytes < 0 {
		return fmt.Errorf("config error: attachment ceilings must be non-negative")
	}
	if c.Governor.ShrinkFactor < 0 || c.Governor.ShrinkFactor >= 1 {
		return fmt.Errorf("config error: 'governor.shrink_factor' must be in (0, 1)")
	}
	if c.Governor.MaxRounds < 0 {
		return fmt.Errorf("config error: 'governor.max_rounds' must be non-negative")
	}

	if c.Mail.Enabled() && (c.Mail.From == "" || len(c.Mail.To) == 0) {
		return fmt.Errorf("config error: 'mail.from' and 'mail.to' are required when 'mail.host' is set")
	}
	if c.Storage.Enabled() && c.Storage.Bucket == "" {
		return fmt.Errorf("config error: 'storage.bucket' is required when 'storage.endpoint' is set")
	}

	return nil
}
