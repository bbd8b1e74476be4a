package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"github.com/yuuki0xff/frametrace/info"
	"github.com/yuuki0xff/frametrace/logging"
	"go.uber.org/zap/zapcore"
)

const (
	DefaultServerAddr    = "127.0.0.1:8585"
	DefaultFrameInterval = time.Second / 30
	DefaultLogLevel      = "info"
	DefaultHistoryLimit  = 16
	DefaultSVGColors     = "function"
)

// Settings of the tracing server.
type Settings struct {
	// Addr is the listen address of the HTTP server. Empty means a random port.
	Addr string `mapstructure:"addr"`
	// FrameInterval is the interval of the mock render loop.
	FrameInterval time.Duration `mapstructure:"frame_interval"`
	LogLevel      string        `mapstructure:"log_level"`
	LogDev        bool          `mapstructure:"log_dev"`
	// HistoryLimit is the number of traces kept until clear. 0 means unlimited.
	HistoryLimit int `mapstructure:"history_limit"`
	// SVGColors is one of "function", "depth" and "kind".
	SVGColors string `mapstructure:"svg_colors"`
}

func DefaultSettings() Settings {
	return Settings{
		Addr:          DefaultServerAddr,
		FrameInterval: DefaultFrameInterval,
		LogLevel:      DefaultLogLevel,
		HistoryLimit:  DefaultHistoryLimit,
		SVGColors:     DefaultSVGColors,
	}
}

func (s Settings) Validate() error {
	if s.FrameInterval <= 0 {
		return errors.Errorf("frame_interval must be positive: %s", s.FrameInterval)
	}
	if s.HistoryLimit < 0 {
		return errors.Errorf("history_limit must not be negative: %d", s.HistoryLimit)
	}
	if _, err := zapcore.ParseLevel(s.LogLevel); err != nil {
		return errors.Wrapf(err, "invalid log_level %q", s.LogLevel)
	}
	switch s.SVGColors {
	case "function", "depth", "kind":
	default:
		return errors.Errorf("invalid svg_colors %q", s.SVGColors)
	}
	return nil
}

// Logging returns the logger configuration.
func (s Settings) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	if s.LogDev {
		cfg = logging.DevelopmentConfig()
	}
	if s.LogLevel != "" {
		cfg.Level = s.LogLevel
	}
	return cfg
}

func newViper(file string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(file)
	v.SetConfigType("json")
	v.SetEnvPrefix(info.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	d := DefaultSettings()
	v.SetDefault("addr", d.Addr)
	v.SetDefault("frame_interval", d.FrameInterval)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_dev", d.LogDev)
	v.SetDefault("history_limit", d.HistoryLimit)
	v.SetDefault("svg_colors", d.SVGColors)
	return v
}
