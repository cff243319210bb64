package config

import (
	"os"
	"path/filepath"
	"testing"

	"schemagate/internal/evolution"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Version != CurrentVersion {
		t.Errorf("Version = %d, want %d", cfg.Version, CurrentVersion)
	}
	if cfg.Level() != evolution.LevelBackward {
		t.Errorf("Level() = %v, want BACKWARD", cfg.Level())
	}
	if cfg.Output != "human" {
		t.Errorf("Output = %q, want human", cfg.Output)
	}
	if !cfg.Storage.Enabled || !cfg.Storage.Compress {
		t.Error("storage should be enabled and compressed by default")
	}
	if cfg.Chain.Parallelism != 4 {
		t.Errorf("Chain.Parallelism = %d, want 4", cfg.Chain.Parallelism)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadConfig_Missing(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.DefaultLevel != "BACKWARD" {
		t.Errorf("DefaultLevel = %q, want BACKWARD", cfg.DefaultLevel)
	}
	if cfg.Watch.DebounceMs != 500 {
		t.Errorf("Watch.DebounceMs = %d, want 500", cfg.Watch.DebounceMs)
	}
}

func TestSaveAndLoad(t *testing.T) {
	root := t.TempDir()

	cfg := DefaultConfig()
	cfg.DefaultLevel = "FULL_TRANSITIVE"
	cfg.AllowBreakingChanges = true
	cfg.Chain.Parallelism = 2
	if err := cfg.Save(root); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(root, ".schemagate", "config.json")); err != nil {
		t.Fatalf("config.json not written: %v", err)
	}

	loaded, err := LoadConfig(root)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if loaded.Level() != evolution.LevelFullTransitive {
		t.Errorf("Level() = %v, want FULL_TRANSITIVE", loaded.Level())
	}
	if !loaded.AllowBreakingChanges {
		t.Error("AllowBreakingChanges should round-trip")
	}
	if loaded.Chain.Parallelism != 2 {
		t.Errorf("Chain.Parallelism = %d, want 2", loaded.Chain.Parallelism)
	}
}

func TestLoadConfig_PartialFileKeepsDefaults(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, ".schemagate")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{"version":1,"output":"json"}`), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(root)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Output != "json" {
		t.Errorf("Output = %q, want json", cfg.Output)
	}
	if cfg.DefaultLevel != "BACKWARD" {
		t.Errorf("DefaultLevel = %q, want default BACKWARD", cfg.DefaultLevel)
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("SCHEMAGATE_DEFAULTLEVEL", "FORWARD")
	t.Setenv("SCHEMAGATE_LOGGING_LEVEL", "debug")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Level() != evolution.LevelForward {
		t.Errorf("Level() = %v, want FORWARD", cfg.Level())
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad version", func(c *Config) { c.Version = 9 }, "version"},
		{"bad level", func(c *Config) { c.DefaultLevel = "SIDEWAYS" }, "defaultLevel"},
		{"bad output", func(c *Config) { c.Output = "xml" }, "output"},
		{"negative debounce", func(c *Config) { c.Watch.DebounceMs = -1 }, "watch.debounceMs"},
		{"zero parallelism", func(c *Config) { c.Chain.Parallelism = 0 }, "chain.parallelism"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			cfgErr, ok := err.(*ConfigError)
			if !ok {
				t.Fatalf("Validate() = %v, want *ConfigError", err)
			}
			if cfgErr.Field != tt.wantErr {
				t.Errorf("Field = %q, want %q", cfgErr.Field, tt.wantErr)
			}
		})
	}
}
