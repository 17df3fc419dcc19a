package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/s0up4200/dnscerts/dnsimple"
)

// EnvPrefix is the prefix of environment overrides, e.g. DNSCERTS_DNSIMPLE_TOKEN
const EnvPrefix = "DNSCERTS"

// DefaultRepository is the GitHub repository releases are fetched from
const DefaultRepository = "s0up4200/dnscerts"

// Load loads and validates the configuration from file
func Load(configPath string) (*Config, error) {
	cfg, err := Read(configPath)
	if err != nil {
		return nil, err
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Read loads the configuration without validating it. Commands that never
// call the API, such as update, use it so they work without credentials.
func Read(configPath string) (*Config, error) {
	v := newViper()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".dnscerts"))
		}
		v.AddConfigPath("/etc/dnscerts/")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("config file not found: %w", err)
		}
		return nil, fmt.Errorf("error reading config: %w", err)
	}

	return unmarshal(v)
}

// Defaults returns the default configuration plus environment overrides
func Defaults() (*Config, error) {
	return unmarshal(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// BaseURL returns the API endpoint, honouring the sandbox switch
func (c *DNSimpleConfig) BaseURL() string {
	if c.URL != "" {
		return c.URL
	}
	if c.Sandbox {
		return dnsimple.SandboxBaseURL
	}
	return dnsimple.DefaultBaseURL
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// DNSimple defaults. url stays empty so sandbox can pick the endpoint.
	v.SetDefault("dnsimple.url", "")
	v.SetDefault("dnsimple.sandbox", false)
	v.SetDefault("dnsimple.token", "")
	v.SetDefault("dnsimple.account_id", "")
	v.SetDefault("dnsimple.timeout", "30s")
	v.SetDefault("dnsimple.user_agent", "")

	// Certificate defaults
	v.SetDefault("certificates.domain", "")
	v.SetDefault("certificates.renew_within_days", 30)
	v.SetDefault("certificates.concurrency", 4)
	v.SetDefault("certificates.output_dir", "./certs")
	v.SetDefault("certificates.auto_renew", false)

	// Safety defaults
	v.SetDefault("safety.dry_run", true)
	v.SetDefault("safety.confirm", true)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.color", true)

	// Update defaults
	v.SetDefault("update.repository", DefaultRepository)
	v.SetDefault("update.check", false)
}

// validate checks if the configuration is valid
func validate(cfg *Config) error {
	if cfg.DNSimple.Token == "" || cfg.DNSimple.Token == "your-token-here" {
		return fmt.Errorf("dnsimple.token must be set to a valid access token")
	}

	if cfg.DNSimple.AccountID == "" {
		return fmt.Errorf("dnsimple.account_id is required")
	}

	if cfg.DNSimple.URL != "" && !strings.HasPrefix(cfg.DNSimple.URL, "http://") && !strings.HasPrefix(cfg.DNSimple.URL, "https://") {
		return fmt.Errorf("dnsimple.url must start with http:// or https://: %s", cfg.DNSimple.URL)
	}

	if cfg.DNSimple.Timeout < 0 {
		return fmt.Errorf("dnsimple.timeout must not be negative")
	}

	if cfg.Certificates.RenewWithinDays < 0 {
		return fmt.Errorf("certificates.renew_within_days must not be negative")
	}

	if cfg.Certificates.Concurrency < 1 {
		return fmt.Errorf("certificates.concurrency must be at least 1")
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s", cfg.Logging.Level)
	}

	validFormats := map[string]bool{
		"console": true,
		"json":    true,
	}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("invalid logging format: %s", cfg.Logging.Format)
	}

	for name, expression := range cfg.Filter {
		if strings.TrimSpace(expression) == "" {
			return fmt.Errorf("filter.%s has an empty expression", name)
		}
	}

	return nil
}
