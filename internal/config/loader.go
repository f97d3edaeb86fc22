package config

import (
	"errors"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, an optional YAML file, and
// environment variables. Precedence (low -> high):
//  1. Default()
//  2. file (YAML): the given path, or EYESCREEN_CONFIG when empty
//  3. env (prefix EYESCREEN_, dot-separated keys via double underscore,
//     e.g. EYESCREEN_GATE__TICK_INTERVAL_MS)
func Load(path string) (*Config, error) {
	base := Default()

	k := koanf.New(".")

	if path == "" {
		path = os.Getenv("EYESCREEN_CONFIG")
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	envProvider := env.Provider("EYESCREEN_", ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, "EYESCREEN_"))
		// Double underscore separates nesting levels so single underscores
		// survive inside key names.
		return strings.ReplaceAll(s, "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, err
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Gate.TickIntervalMS <= 0 {
		return errors.New("gate.tick_interval_ms must be positive")
	}
	if c.Gate.CountdownMS <= 0 {
		return errors.New("gate.countdown_ms must be positive")
	}
	if c.Gate.CropSize <= 0 {
		return errors.New("gate.crop_size must be positive")
	}
	if c.Gate.MinFaceWidth >= c.Gate.MaxFaceWidth {
		return errors.New("gate.min_face_width must be below gate.max_face_width")
	}
	if c.Gate.MinBrightness >= c.Gate.MaxBrightness {
		return errors.New("gate.min_brightness must be below gate.max_brightness")
	}
	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		return errors.New("camera resolution must be positive")
	}
	return nil
}
