// Package config loads crawlcore settings from an optional YAML file,
// CRAWLCORE_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "CRAWLCORE"

// Config is the resolved runtime configuration.
type Config struct {
	DataDir string    `mapstructure:"data_dir"`
	SaveDir string    `mapstructure:"save_dir"`
	Seed    int64     `mapstructure:"seed"`
	Plain   bool      `mapstructure:"plain"`
	Trace   bool      `mapstructure:"trace"`
	Script  string    `mapstructure:"script"`
	Log     LogConfig `mapstructure:"log"`
}

// LogConfig controls the diagnostic log. The terminal belongs to the game,
// so logs go to a file or nowhere.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// Home returns the per-user crawlcore directory.
func Home() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".crawlcore"
	}
	return filepath.Join(home, ".crawlcore")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", filepath.Join("games", "crypt"))
	v.SetDefault("save_dir", filepath.Join(Home(), "saves"))
	v.SetDefault("seed", 0)
	v.SetDefault("plain", false)
	v.SetDefault("trace", false)
	v.SetDefault("script", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
}

// Load resolves the configuration. Precedence, highest first: flags that
// were set, environment, config file, defaults. An explicit path must exist;
// the default ~/.crawlcore/config.yaml is optional.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("binding flags: %w", err)
		}
	}

	switch {
	case path != "":
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	default:
		def := filepath.Join(Home(), "config.yaml")
		if _, err := os.Stat(def); err == nil {
			v.SetConfigFile(def)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", def, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("checking config %s: %w", def, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}
