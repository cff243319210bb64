package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"schemagate/internal/evolution"
	"schemagate/internal/paths"
)

// CurrentVersion is the config schema version written by Save.
const CurrentVersion = 1

// Config represents the complete schemagate configuration
type Config struct {
	Version              int    `json:"version" mapstructure:"version"`
	DefaultLevel         string `json:"defaultLevel" mapstructure:"defaultLevel"`
	AllowBreakingChanges bool   `json:"allowBreakingChanges" mapstructure:"allowBreakingChanges"`
	Output               string `json:"output" mapstructure:"output"`

	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
	Storage StorageConfig `json:"storage" mapstructure:"storage"`
	Watch   WatchConfig   `json:"watch" mapstructure:"watch"`
	Chain   ChainConfig   `json:"chain" mapstructure:"chain"`
}

// LoggingConfig controls log level and the optional log file
type LoggingConfig struct {
	Level string `json:"level" mapstructure:"level"`
	// File is appended to in addition to stderr when set
	File string `json:"file,omitempty" mapstructure:"file"`
}

// StorageConfig locates the verdict history database
type StorageConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Path     string `json:"path" mapstructure:"path"`
	Compress bool   `json:"compress" mapstructure:"compress"`
}

// WatchConfig configures the schema file watcher
type WatchConfig struct {
	DebounceMs int      `json:"debounceMs" mapstructure:"debounceMs"`
	Patterns   []string `json:"patterns" mapstructure:"patterns"`
}

// ChainConfig configures transitive checks across version history
type ChainConfig struct {
	Parallelism int `json:"parallelism" mapstructure:"parallelism"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version:      CurrentVersion,
		DefaultLevel: string(evolution.LevelBackward),
		Output:       "human",
		Logging: LoggingConfig{
			Level: "warn",
		},
		Storage: StorageConfig{
			Enabled:  true,
			Path:     paths.DataDirName,
			Compress: true,
		},
		Watch: WatchConfig{
			DebounceMs: 500,
			Patterns:   []string{"*.json", "*.yaml", "*.yml"},
		},
		Chain: ChainConfig{
			Parallelism: 4,
		},
	}
}

// LoadConfig loads configuration from <root>/.schemagate/config.json.
// A missing file yields the defaults. SCHEMAGATE_* environment variables
// override file values (SCHEMAGATE_LOGGING_LEVEL for logging.level).
func LoadConfig(root string) (*Config, error) {
	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(root, paths.DataDirName))
	return load(v)
}

// LoadConfigFile loads configuration from an explicit path.
func LoadConfigFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	return load(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	d := DefaultConfig()

	v.SetDefault("version", d.Version)
	v.SetDefault("defaultLevel", d.DefaultLevel)
	v.SetDefault("allowBreakingChanges", d.AllowBreakingChanges)
	v.SetDefault("output", d.Output)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("storage.enabled", d.Storage.Enabled)
	v.SetDefault("storage.path", d.Storage.Path)
	v.SetDefault("storage.compress", d.Storage.Compress)
	v.SetDefault("watch.debounceMs", d.Watch.DebounceMs)
	v.SetDefault("watch.patterns", d.Watch.Patterns)
	v.SetDefault("chain.parallelism", d.Chain.Parallelism)

	v.SetEnvPrefix("SCHEMAGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the configuration to <root>/.schemagate/config.json
func (c *Config) Save(root string) error {
	dir, err := paths.EnsureDataDir(root)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// Level returns the parsed default compatibility level.
func (c *Config) Level() evolution.CompatibilityLevel {
	level, err := evolution.ParseCompatibilityLevel(c.DefaultLevel)
	if err != nil {
		return evolution.LevelBackward
	}
	return level
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if _, err := evolution.ParseCompatibilityLevel(c.DefaultLevel); err != nil {
		return &ConfigError{Field: "defaultLevel", Message: err.Error()}
	}
	switch c.Output {
	case "human", "json":
	default:
		return &ConfigError{Field: "output", Message: "must be human or json"}
	}
	if c.Watch.DebounceMs < 0 {
		return &ConfigError{Field: "watch.debounceMs", Message: "must not be negative"}
	}
	if c.Chain.Parallelism < 1 {
		return &ConfigError{Field: "chain.parallelism", Message: "must be at least 1"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
