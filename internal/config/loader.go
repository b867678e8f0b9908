package config

import (
	"context"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment variable conventions.
const (
	EnvPrefix     = "JETRATES_"
	EnvConfigFile = EnvPrefix + "CONFIG"
	envNestDelim  = "__"
)

// LoadOption tweaks Load.
type LoadOption func(*loadOptions)

type loadOptions struct {
	path string
}

// WithFile loads the YAML file at path, taking precedence over JETRATES_CONFIG.
func WithFile(path string) LoadOption {
	return func(o *loadOptions) {
		if path != "" {
			o.path = path
		}
	}
}

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) from WithFile or JETRATES_CONFIG
//  3. env (prefix JETRATES_, nested keys joined by "__", e.g. JETRATES_STYLE__LOG_Y)
func Load(_ context.Context, opts ...LoadOption) (*Config, error) {
	o := loadOptions{path: os.Getenv(EnvConfigFile)}
	for _, opt := range opts {
		opt(&o)
	}

	base := New()
	defaultRates := base.Rates
	// Slices are not merged by the decoder; restore defaults only when unset.
	base.Rates = nil

	k := koanf.New(".")

	if o.path != "" {
		if err := k.Load(file.Provider(o.path), yaml.Parser()); err != nil {
			return nil, wrapLoad(err)
		}
	}

	envProvider := env.Provider(EnvPrefix, envNestDelim, func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, strings.ToLower(EnvPrefix))
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, wrapLoad(err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, wrapLoad(err)
	}
	if cfg.Rates == nil {
		cfg.Rates = defaultRates
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
