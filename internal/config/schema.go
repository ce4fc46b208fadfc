package config

import (
	"fmt"

	"github.com/jackzampolin/pdfsplit/internal/gs"
	"github.com/jackzampolin/pdfsplit/internal/split"
)

// Config holds pdfsplit configuration.
// Stored at: ~/.pdfsplit/config.yaml
type Config struct {
	Defaults    DefaultsCfg    `mapstructure:"defaults" yaml:"defaults"`
	Output      OutputCfg      `mapstructure:"output" yaml:"output"`
	Download    DownloadCfg    `mapstructure:"download" yaml:"download"`
	Server      ServerCfg      `mapstructure:"server" yaml:"server"`
	Ghostscript GhostscriptCfg `mapstructure:"ghostscript" yaml:"ghostscript"`
}

// DefaultsCfg specifies the run options applied when a request omits them.
type DefaultsCfg struct {
	SplitMode    string `mapstructure:"split_mode" yaml:"split_mode"`       // "parts", "pages", "size"
	SplitValue   int64  `mapstructure:"split_value" yaml:"split_value"`
	Compression  string `mapstructure:"compression" yaml:"compression"` // empty disables compression
	Workers      int    `mapstructure:"workers" yaml:"workers"`
	RemoveImages bool   `mapstructure:"remove_images" yaml:"remove_images"`
	RepairOnly   bool   `mapstructure:"repair_only" yaml:"repair_only"`
}

// OutputCfg configures where part files are written.
type OutputCfg struct {
	// Dir is the output directory. Empty means the source file's directory.
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// DownloadCfg configures remote source staging.
type DownloadCfg struct {
	// MaxSizeMB caps a single download (default: 500)
	MaxSizeMB int64 `mapstructure:"max_size_mb" yaml:"max_size_mb"`
}

// ServerCfg holds HTTP server settings.
type ServerCfg struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port string `mapstructure:"port" yaml:"port"`
}

// GhostscriptCfg configures the external compression binary.
type GhostscriptCfg struct {
	// Binary is the executable name or path (default: gs)
	Binary string `mapstructure:"binary" yaml:"binary"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Defaults: DefaultsCfg{
			SplitMode:  string(split.StrategyParts),
			SplitValue: 2,
			Workers:    4,
		},
		Download: DownloadCfg{
			MaxSizeMB: 500,
		},
		Server: ServerCfg{
			Host: "localhost",
			Port: "8675",
		},
		Ghostscript: GhostscriptCfg{
			Binary: "gs",
		},
	}
}

// MaxDownloadBytes returns the download cap in bytes.
func (c *Config) MaxDownloadBytes() int64 {
	if c.Download.MaxSizeMB <= 0 {
		return 500 * 1024 * 1024
	}
	return c.Download.MaxSizeMB * 1024 * 1024
}

// ListenAddr returns the host:port the server binds to.
func (c *Config) ListenAddr() string {
	return c.Server.Host + ":" + c.Server.Port
}

// Validate checks that enumerated fields carry known values.
func (c *Config) Validate() error {
	if c.Defaults.SplitMode != "" {
		if _, err := split.ParseStrategy(c.Defaults.SplitMode); err != nil {
			return fmt.Errorf("defaults.split_mode: %w", err)
		}
	}
	if c.Defaults.Compression != "" {
		if _, err := gs.ParsePreset(c.Defaults.Compression); err != nil {
			return fmt.Errorf("defaults.compression: %w", err)
		}
	}
	if c.Defaults.Workers < 0 {
		return fmt.Errorf("defaults.workers must not be negative, got %d", c.Defaults.Workers)
	}
	return nil
}
