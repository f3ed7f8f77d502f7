// Package config loads readalong settings from the config file, the
// environment and command line flags.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/viper"
)

// Config is the complete application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"    yaml:"server"    envPrefix:"SERVER_"`
	Playback  PlaybackConfig  `mapstructure:"playback"  yaml:"playback"  envPrefix:"PLAYBACK_"`
	Audio     AudioConfig     `mapstructure:"audio"     yaml:"audio"     envPrefix:"AUDIO_"`
	Highlight HighlightConfig `mapstructure:"highlight" yaml:"highlight" envPrefix:"HIGHLIGHT_"`
	Metrics   MetricsConfig   `mapstructure:"metrics"   yaml:"metrics"   envPrefix:"METRICS_"`
	Debug     bool            `mapstructure:"debug"     yaml:"debug"     env:"DEBUG"`
}

// ServerConfig locates the speech server.
type ServerConfig struct {
	URL            string        `mapstructure:"url"             yaml:"url"             env:"URL"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" yaml:"connect_timeout" env:"CONNECT_TIMEOUT"`
}

// PlaybackConfig holds the synthesis defaults.
type PlaybackConfig struct {
	Voice        string        `mapstructure:"voice"         yaml:"voice"         env:"VOICE"`
	Speed        float64       `mapstructure:"speed"         yaml:"speed"         env:"SPEED"`
	DrainTimeout time.Duration `mapstructure:"drain_timeout" yaml:"drain_timeout" env:"DRAIN_TIMEOUT"`
}

// AudioConfig selects the output device.
type AudioConfig struct {
	SampleRate int  `mapstructure:"sample_rate" yaml:"sample_rate" env:"SAMPLE_RATE"`
	Mock       bool `mapstructure:"mock"        yaml:"mock"        env:"MOCK"`
}

// HighlightConfig styles the spoken sentence.
type HighlightConfig struct {
	Color string `mapstructure:"color" yaml:"color" env:"COLOR"`
}

// MetricsConfig exposes Prometheus metrics when Addr is set.
type MetricsConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr" env:"ADDR"`
}

// EnvPrefix prefixes every environment override.
const EnvPrefix = "READALONG_"

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			URL:            "ws://localhost:8765/tts",
			ConnectTimeout: 10 * time.Second,
		},
		Playback: PlaybackConfig{
			Voice:        "default",
			Speed:        1.0,
			DrainTimeout: 60 * time.Second,
		},
		Audio: AudioConfig{
			SampleRate: 24000,
		},
		Highlight: HighlightConfig{
			Color: "226",
		},
	}
}

// SetDefaults registers the built-in values with v.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("server.url", d.Server.URL)
	v.SetDefault("server.connect_timeout", d.Server.ConnectTimeout)
	v.SetDefault("playback.voice", d.Playback.Voice)
	v.SetDefault("playback.speed", d.Playback.Speed)
	v.SetDefault("playback.drain_timeout", d.Playback.DrainTimeout)
	v.SetDefault("audio.sample_rate", d.Audio.SampleRate)
	v.SetDefault("audio.mock", d.Audio.Mock)
	v.SetDefault("highlight.color", d.Highlight.Color)
	v.SetDefault("metrics.addr", d.Metrics.Addr)
	v.SetDefault("debug", d.Debug)
}

// Load builds the configuration from v, then applies READALONG_*
// environment overrides and validates the result.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unable to decode configuration: %w", err)
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("error parsing environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.Server.URL)
	switch {
	case c.Server.URL == "":
		errs = append(errs, errors.New("server url must be set"))
	case err != nil:
		errs = append(errs, fmt.Errorf("invalid server url: %w", err))
	case u.Scheme != "ws" && u.Scheme != "wss":
		errs = append(errs, fmt.Errorf("server url must use ws or wss, got %q", u.Scheme))
	}

	if c.Playback.Speed < 0.5 || c.Playback.Speed > 2.0 {
		errs = append(errs, fmt.Errorf("playback speed must be between 0.5 and 2.0, got %.2f", c.Playback.Speed))
	}
	if c.Playback.DrainTimeout <= 0 {
		errs = append(errs, fmt.Errorf("playback drain_timeout must be positive, got %s", c.Playback.DrainTimeout))
	}
	if c.Server.ConnectTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server connect_timeout must be positive, got %s", c.Server.ConnectTimeout))
	}
	if c.Audio.SampleRate < 8000 || c.Audio.SampleRate > 96000 {
		errs = append(errs, fmt.Errorf("audio sample_rate must be between 8000 and 96000, got %d", c.Audio.SampleRate))
	}

	return errors.Join(errs...)
}
