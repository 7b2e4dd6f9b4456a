package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Sources SourcesConfig `yaml:"sources" mapstructure:"sources"`
	GDP     GDPConfig     `yaml:"gdp" mapstructure:"gdp"`
	Report  ReportConfig  `yaml:"report" mapstructure:"report"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// SourcesConfig configures the two upstream data feeds.
type SourcesConfig struct {
	CountriesURL string `yaml:"countries_url" mapstructure:"countries_url"`
	RatesURL     string `yaml:"rates_url" mapstructure:"rates_url"`
	TimeoutSecs  int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	UserAgent    string `yaml:"user_agent" mapstructure:"user_agent"`
}

// Timeout returns the per-fetch deadline.
func (s SourcesConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSecs) * time.Second
}

// GDPConfig bounds the random multiplier used for the synthetic GDP
// estimate.
type GDPConfig struct {
	MinMultiplier float64 `yaml:"min_multiplier" mapstructure:"min_multiplier"`
	MaxMultiplier float64 `yaml:"max_multiplier" mapstructure:"max_multiplier"`
}

// ReportConfig configures the rendered summary artifact.
type ReportConfig struct {
	Width      int    `yaml:"width" mapstructure:"width"`
	Height     int    `yaml:"height" mapstructure:"height"`
	OutputPath string `yaml:"output_path" mapstructure:"output_path"`
	TopN       int    `yaml:"top_n" mapstructure:"top_n"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("COUNTRYPULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "country_pulse.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("sources.countries_url", "https://restcountries.com/v2/all?fields=name,capital,region,population,flag,currencies")
	v.SetDefault("sources.rates_url", "https://open.er-api.com/v6/latest/USD")
	v.SetDefault("sources.timeout_secs", 15)
	v.SetDefault("sources.user_agent", "country-pulse/1.0")
	v.SetDefault("gdp.min_multiplier", 1000.0)
	v.SetDefault("gdp.max_multiplier", 2000.0)
	v.SetDefault("report.width", 800)
	v.SetDefault("report.height", 600)
	v.SetDefault("report.output_path", "cache/summary.png")
	v.SetDefault("report.top_n", 5)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
