package domain

// Config represents the main application configuration
type Config struct {
	Input   InputConfig   `mapstructure:"input" yaml:"input"`
	Output  OutputConfig  `mapstructure:"output" yaml:"output"`
	Lexicon LexiconConfig `mapstructure:"lexicon" yaml:"lexicon"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// InputConfig locates the reports to classify.
// DSN is a sqlite file path or a postgres:// URL.
type InputConfig struct {
	DSN   string `mapstructure:"dsn" yaml:"dsn"`
	Table string `mapstructure:"table" yaml:"table"`
}

// OutputConfig locates the results store. It is recreated on every run.
type OutputConfig struct {
	DSN string `mapstructure:"dsn" yaml:"dsn"`
}

// LexiconConfig controls the target and modifier lexicons.
type LexiconConfig struct {
	Path             string `mapstructure:"path" yaml:"path"` // empty: embedded default lexicon
	PatternCacheSize int    `mapstructure:"pattern_cache_size" yaml:"pattern_cache_size"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}
