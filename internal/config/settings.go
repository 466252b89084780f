package config

import (
	"fmt"
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Settings is the typed view of a Config after environment overrides and
// defaults have been applied.
type Settings struct {
	LogLevel  string `mapstructure:"log-level"`
	LogFormat string `mapstructure:"log-format"`
	LogFile   string `mapstructure:"log-file"`
	Runner    RunnerSettings
	HTTP      HTTPSettings
	Redis     RedisSettings
}

// RunnerSettings configures the tick loop.
type RunnerSettings struct {
	TickInterval time.Duration `mapstructure:"tick-interval"`
	HaltTimeout  time.Duration `mapstructure:"halt-timeout"`
	MaxTicks     int           `mapstructure:"max-ticks"`
	Workers      int           `mapstructure:"workers"`
	Seed         string        `mapstructure:"seed"`
}

// HTTPSettings configures the inspection API.
type HTTPSettings struct {
	Listen  string `mapstructure:"listen"`
	Metrics bool   `mapstructure:"metrics"`
}

// RedisSettings configures status event publishing.
type RedisSettings struct {
	Addr    string `mapstructure:"addr"`
	Channel string `mapstructure:"channel"`
}

// Settings resolves the configuration against DefaultSchema.
func (c *Config) Settings() (*Settings, error) {
	return DecodeSettings(c, DefaultSchema())
}

// DecodeSettings resolves every option declared by s and decodes the result.
func DecodeSettings(c *Config, s *ConfigSchema) (*Settings, error) {
	out := new(Settings)
	if err := decode(s.ResolveSection(c, ""), out); err != nil {
		return nil, err
	}
	sections := map[string]any{
		SectionRunner: &out.Runner,
		SectionHTTP:   &out.HTTP,
		SectionRedis:  &out.Redis,
	}
	for name, target := range sections {
		if err := decode(s.ResolveSection(c, name), target); err != nil {
			return nil, fmt.Errorf("[%s]: %w", name, err)
		}
	}
	if out.Runner.TickInterval < 0 {
		return nil, fmt.Errorf("[%s]: tick-interval cannot be negative: %v", SectionRunner, out.Runner.TickInterval)
	}
	if out.Runner.HaltTimeout <= 0 {
		return nil, fmt.Errorf("[%s]: halt-timeout must be positive: %v", SectionRunner, out.Runner.HaltTimeout)
	}
	if out.Runner.MaxTicks < 0 || out.Runner.Workers < 0 {
		return nil, fmt.Errorf("[%s]: max-ticks and workers cannot be negative", SectionRunner)
	}
	return out, nil
}

func decode(input map[string]string, target any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			stringToBoolHook,
		),
		WeaklyTypedInput: true,
		Result:           target,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(input); err != nil {
		return fmt.Errorf("decoding settings: %w", err)
	}
	return nil
}

// stringToBoolHook accepts the same spellings as the config file parser.
func stringToBoolHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to.Kind() != reflect.Bool {
		return data, nil
	}
	s := data.(string)
	if s == "" {
		return false, nil
	}
	return parseBool(s)
}
