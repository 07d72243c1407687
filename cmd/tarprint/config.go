package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/opencontainers/go-digest"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/meigma/tarprint"
)

const (
	configName = "tarprint"
	envPrefix  = "TARPRINT"
)

// Config holds settings merged from flags, TARPRINT_* environment variables
// and an optional tarprint.yaml, in that order of precedence.
type Config struct {
	Source        string `mapstructure:"source"`
	Destination   string `mapstructure:"destination"`
	Compression   string `mapstructure:"compression"`
	Algorithm     string `mapstructure:"algorithm"`
	Strict        bool   `mapstructure:"strict"`
	MaxFiles      int    `mapstructure:"max_files"`
	CacheDir      string `mapstructure:"cache_dir"`
	CacheMaxBytes int64  `mapstructure:"cache_max_bytes"`
	Registry      string `mapstructure:"registry"`
	PlainHTTP     bool   `mapstructure:"plain_http"`
	Verbose       bool   `mapstructure:"verbose"`
}

// bindFlags registers every flag in flags with v under its snake_case key.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Name == "config" {
			return
		}
		_ = v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
	})
}

// loadConfig reads configuration into v. When cfgFile is empty the config is
// looked up in the working directory and then the user config directory; a
// missing file is not an error.
func loadConfig(v *viper.Viper, cfgFile string) (*Config, error) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, configName))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if _, ok := tarprint.ParseCompression(c.Compression); !ok {
		return fmt.Errorf("invalid compression %q: want none, gzip or zstd", c.Compression)
	}
	if c.Algorithm != "" && !digest.Algorithm(c.Algorithm).Available() {
		return fmt.Errorf("unsupported algorithm %q", c.Algorithm)
	}
	if c.CacheMaxBytes < 0 {
		return fmt.Errorf("cache_max_bytes must be >= 0, got %d", c.CacheMaxBytes)
	}
	return nil
}

func (c *Config) compression() tarprint.Compression {
	comp, _ := tarprint.ParseCompression(c.Compression)
	return comp
}

// createOptions translates c into archive creation options.
func (c *Config) createOptions() []tarprint.CreateOption {
	opts := []tarprint.CreateOption{
		tarprint.CreateWithCompression(c.compression()),
		tarprint.CreateWithMaxFiles(c.MaxFiles),
	}
	if c.Algorithm != "" {
		opts = append(opts, tarprint.CreateWithAlgorithm(digest.Algorithm(c.Algorithm)))
	}
	if c.Strict {
		opts = append(opts, tarprint.CreateWithChangeDetection(tarprint.ChangeDetectionStrict))
	}
	return opts
}
