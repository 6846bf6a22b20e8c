// Package config handles configuration loading and shared data structures.
package config

import (
	"os"

	"github.com/woozymasta/kml2dxf/internal/crs"
	"github.com/woozymasta/kml2dxf/internal/dxf"
	"github.com/woozymasta/kml2dxf/internal/preview"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// DefaultMaxUpload is the upload limit used when the config leaves it unset.
const DefaultMaxUpload = 32 << 20

// Config represents the root configuration file structure.
type Config struct {
	// Extra CRS definitions added to the embedded registry.
	CRS []crs.Definition `yaml:"crs,omitempty" json:"crs,omitempty"`

	Layer          string  `yaml:"layer,omitempty" json:"layer,omitempty"`
	FilenameSuffix string  `yaml:"filename_suffix,omitempty" json:"filename_suffix,omitempty"`
	Preview        Preview `yaml:"preview,omitempty" json:"preview"`
	MaxUpload      int64   `yaml:"max_upload,omitempty" json:"max_upload"` // bytes
	DefaultEPSG    int     `yaml:"default_epsg,omitempty" json:"default_epsg,omitempty"`
}

// Preview configures the WebP rendering.
type Preview struct {
	Size int `yaml:"size,omitempty" json:"size"`
	// Margin is left at the default when unset; 0 disables it.
	Margin   *int    `yaml:"margin,omitempty" json:"margin"`
	Quality  float32 `yaml:"quality,omitempty" json:"quality"`
	Lossless bool    `yaml:"lossless,omitempty" json:"lossless,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads and parses the YAML configuration file from the specified path.
// An empty path returns the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	for _, d := range cfg.CRS {
		if err := d.Validate(); err != nil {
			return nil, errors.Wrapf(err, "config %s", path)
		}
	}
	cfg.applyDefaults()

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Layer == "" {
		c.Layer = dxf.DefaultLayer
	}
	if c.FilenameSuffix == "" {
		c.FilenameSuffix = "_converted"
	}
	if c.MaxUpload <= 0 {
		c.MaxUpload = DefaultMaxUpload
	}
	def := preview.DefaultOptions()
	if c.Preview.Size <= 0 {
		c.Preview.Size = def.Size
	}
	if c.Preview.Margin == nil || *c.Preview.Margin < 0 {
		margin := def.Margin
		c.Preview.Margin = &margin
	}
	if c.Preview.Quality <= 0 {
		c.Preview.Quality = def.Quality
	}
}

// Registry returns the embedded registry extended with the configured
// definitions. Configured codes replace embedded ones.
func (c *Config) Registry() (*crs.Registry, error) {
	reg := crs.Default()
	if err := reg.Register(c.CRS...); err != nil {
		return nil, err
	}
	return reg, nil
}

// PreviewOptions converts the preview section to renderer options.
func (c *Config) PreviewOptions() preview.Options {
	opts := preview.DefaultOptions()
	opts.Size = c.Preview.Size
	if c.Preview.Margin != nil {
		opts.Margin = *c.Preview.Margin
	}
	opts.Quality = c.Preview.Quality
	opts.Lossless = c.Preview.Lossless
	return opts
}
