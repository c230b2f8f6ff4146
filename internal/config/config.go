// Package config loads pefinder settings from defaults, an optional YAML file,
// PEFINDER_* environment variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/pe-finder/internal/domain"
	"github.com/pe-finder/internal/lexicon"
	"github.com/pe-finder/internal/store"
)

const (
	EnvPrefix  = "PEFINDER"
	ConfigName = "pefinder"
)

// Manager implements the ConfigManager interface using Viper
type Manager struct {
	v          *viper.Viper
	configFile string
	config     *domain.Config
}

// NewManager loads configuration through v. Flags bound to v take precedence
// over the environment, the config file and defaults. An empty configFile
// searches ./pefinder.yaml and $HOME/.pefinder/pefinder.yaml.
func NewManager(v *viper.Viper, configFile string) (*Manager, error) {
	if v == nil {
		v = viper.New()
	}
	m := &Manager{v: v, configFile: configFile}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	if m.configFile != "" {
		if _, err := os.Stat(m.configFile); err != nil {
			return fmt.Errorf("config file: %w", err)
		}
		m.v.SetConfigFile(m.configFile)
	} else {
		m.v.SetConfigName(ConfigName)
		m.v.SetConfigType("yaml")
		m.v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			m.v.AddConfigPath(filepath.Join(home, "."+ConfigName))
		}
	}

	m.v.SetEnvPrefix(EnvPrefix)
	m.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	m.v.AutomaticEnv()

	m.setDefaults()

	// Config file is optional unless named explicitly
	if err := m.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := m.v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.config = config
	return nil
}

// setDefaults sets default configuration values
func (m *Manager) setDefaults() {
	// Stores
	m.v.SetDefault("input.dsn", "")
	m.v.SetDefault("input.table", "pesubject")
	m.v.SetDefault("output.dsn", "")

	// Lexicon
	m.v.SetDefault("lexicon.path", "")
	m.v.SetDefault("lexicon.pattern_cache_size", lexicon.DefaultPatternCacheSize)

	// Logging
	m.v.SetDefault("logging.level", "info")
	m.v.SetDefault("logging.format", "text")
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// ConfigFileUsed returns the config file that was read, if any.
func (m *Manager) ConfigFileUsed() string {
	return m.v.ConfigFileUsed()
}

// Validate validates the configuration. It runs before any store is opened.
func (m *Manager) Validate() error {
	config := m.config

	if strings.TrimSpace(config.Input.DSN) == "" {
		return configurationError(domain.NewValidationError("input.dsn", "input database is required", config.Input.DSN))
	}
	if strings.TrimSpace(config.Output.DSN) == "" {
		return configurationError(domain.NewValidationError("output.dsn", "output database is required", config.Output.DSN))
	}
	if SameStore(config.Input.DSN, config.Output.DSN) {
		return configurationError(domain.ErrSameStore)
	}

	if err := store.ValidateTable(config.Input.Table); err != nil {
		return configurationError(err)
	}

	if config.Lexicon.PatternCacheSize <= 0 {
		return configurationError(domain.NewValidationError("lexicon.pattern_cache_size", "must be positive", config.Lexicon.PatternCacheSize))
	}

	if _, err := logrus.ParseLevel(config.Logging.Level); err != nil {
		return configurationError(domain.NewValidationError("logging.level", "invalid log level", config.Logging.Level))
	}
	switch strings.ToLower(config.Logging.Format) {
	case "json", "text":
	default:
		return configurationError(domain.NewValidationError("logging.format", "must be json or text", config.Logging.Format))
	}

	return nil
}

func configurationError(err error) error {
	return domain.NewPipelineError(domain.ErrConfiguration, "invalid configuration", 0, err)
}

// SameStore reports whether two DSNs name the same database. File paths are
// compared after cleaning and resolving to absolute form, and by identity when
// both files exist.
func SameStore(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if store.DialectFor(a) != store.DialectFor(b) {
		return false
	}
	if store.DialectFor(a) == store.POSTGRES {
		return strings.EqualFold(a, b)
	}

	if absA, err := filepath.Abs(a); err == nil {
		a = absA
	}
	if absB, err := filepath.Abs(b); err == nil {
		b = absB
	}
	if filepath.Clean(a) == filepath.Clean(b) {
		return true
	}

	infoA, errA := os.Stat(a)
	infoB, errB := os.Stat(b)
	return errA == nil && errB == nil && os.SameFile(infoA, infoB)
}
