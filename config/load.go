package config

import (
	"sync"

	"github.com/spf13/viper"

	"github.com/teranos/wikibase/errors"
)

var (
	mu           sync.Mutex
	globalConfig *Config
)

// Load reads the library configuration using Viper. The result is cached;
// subsequent calls return the same *Config until Reset.
func Load() (*Config, error) {
	mu.Lock()
	defer mu.Unlock()

	if globalConfig != nil {
		return globalConfig, nil
	}

	v := viper.New()
	SetDefaults(v)
	bindEnv(v)

	v.SetConfigName("wikibase")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.wikibase")
	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults + env cover everything.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "failed to read config file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	globalConfig = &cfg
	return globalConfig, nil
}

// LoadWithViper loads configuration from a caller-provided Viper instance.
// Defaults are applied for any key the instance does not set.
func LoadWithViper(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	return &cfg, nil
}

// LoadFromFile loads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", path)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal config from %s", path)
	}
	return &cfg, nil
}

// Reset clears the cached configuration (useful for testing).
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	globalConfig = nil
}
