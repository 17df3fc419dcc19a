package config

import "time"

// Config represents the complete configuration structure
type Config struct {
	DNSimple     DNSimpleConfig    `mapstructure:"dnsimple"`
	Certificates CertificateConfig `mapstructure:"certificates"`
	Filter       FilterConfig      `mapstructure:"filter"`
	Safety       SafetyConfig      `mapstructure:"safety"`
	Logging      LoggingConfig     `mapstructure:"logging"`
	Update       UpdateConfig      `mapstructure:"update"`
}

// DNSimpleConfig holds DNSimple API connection details
type DNSimpleConfig struct {
	URL       string        `mapstructure:"url"`
	Sandbox   bool          `mapstructure:"sandbox"`
	Token     string        `mapstructure:"token"`
	AccountID string        `mapstructure:"account_id"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

// CertificateConfig contains defaults for certificate operations
type CertificateConfig struct {
	Domain          string `mapstructure:"domain"`
	ContactID       int64  `mapstructure:"contact_id"`
	RenewWithinDays int    `mapstructure:"renew_within_days"`
	Concurrency     int    `mapstructure:"concurrency"`
	OutputDir       string `mapstructure:"output_dir"`
	AutoRenew       bool   `mapstructure:"auto_renew"`
}

// FilterConfig contains named filter expressions
type FilterConfig map[string]string

// SafetyConfig contains safety-related settings
type SafetyConfig struct {
	DryRun  bool `mapstructure:"dry_run"`
	Confirm bool `mapstructure:"confirm"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Color  bool   `mapstructure:"color"`
}

// UpdateConfig controls self-update
type UpdateConfig struct {
	Repository string `mapstructure:"repository"`
	Check      bool   `mapstructure:"check"`
}
