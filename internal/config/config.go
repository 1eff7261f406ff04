// Package config loads application configuration from file and environment
// and owns the global logger setup.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Population PopulationConfig `yaml:"population" mapstructure:"population"`
	Trends     TrendsConfig     `yaml:"trends" mapstructure:"trends"`
	Tasks      TasksConfig      `yaml:"tasks" mapstructure:"tasks"`
	Requests   RequestsConfig   `yaml:"requests" mapstructure:"requests"`
	Tiles      TilesConfig      `yaml:"tiles" mapstructure:"tiles"`
	MapSheet   MapSheetConfig   `yaml:"mapsheet" mapstructure:"mapsheet"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the observation store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// PopulationConfig configures the radius population aggregator.
type PopulationConfig struct {
	NodataFallback float64 `yaml:"nodata_fallback" mapstructure:"nodata_fallback"`
	BufferSegments int     `yaml:"buffer_segments" mapstructure:"buffer_segments"`
	DefaultRadiusM float64 `yaml:"default_radius_m" mapstructure:"default_radius_m"`
	Concurrency    int     `yaml:"concurrency" mapstructure:"concurrency"`
}

// TrendsConfig configures the search-interest collector.
type TrendsConfig struct {
	BaseURL           string `yaml:"base_url" mapstructure:"base_url"`
	Geo               string `yaml:"geo" mapstructure:"geo"`
	Locale            string `yaml:"locale" mapstructure:"locale"`
	StartYear         int    `yaml:"start_year" mapstructure:"start_year"`
	EndYear           int    `yaml:"end_year" mapstructure:"end_year"`
	MaxRetries        int    `yaml:"max_retries" mapstructure:"max_retries"`
	RequestsPerMinute int    `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	TimeoutSecs       int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	UserAgent         string `yaml:"user_agent" mapstructure:"user_agent"`
	MappingPath       string `yaml:"mapping_path" mapstructure:"mapping_path"`
}

// TasksConfig configures task folder scaffolding.
type TasksConfig struct {
	BaseDir    string   `yaml:"base_dir" mapstructure:"base_dir"`
	Subfolders []string `yaml:"subfolders" mapstructure:"subfolders"`
}

// RequestsConfig configures the request log loader.
type RequestsConfig struct {
	DateColumn  string `yaml:"date_column" mapstructure:"date_column"`
	StaffColumn string `yaml:"staff_column" mapstructure:"staff_column"`
}

// TilesConfig configures raster tile retrieval.
type TilesConfig struct {
	FTPTimeoutSecs int    `yaml:"ftp_timeout_secs" mapstructure:"ftp_timeout_secs"`
	Dir            string `yaml:"dir" mapstructure:"dir"`
}

// MapSheetConfig configures PDF map sheet export.
type MapSheetConfig struct {
	ScaleStep       float64 `yaml:"scale_step" mapstructure:"scale_step"`
	ZoomBufferRatio float64 `yaml:"zoom_buffer_ratio" mapstructure:"zoom_buffer_ratio"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Validate checks that configuration required for the given mode is present.
// Mode is one of "population", "trends", "serve".
func (c *Config) Validate(mode string) error {
	var missing []string

	checkShared := func() {
		if c.Population.BufferSegments < 8 {
			missing = append(missing, "population.buffer_segments must be >= 8")
		}
		if c.Population.DefaultRadiusM <= 0 {
			missing = append(missing, "population.default_radius_m must be > 0")
		}
		if c.Population.Concurrency < 1 || c.Population.Concurrency > 64 {
			missing = append(missing, "population.concurrency must be between 1 and 64")
		}
	}

	switch mode {
	case "population":
		checkShared()
	case "trends":
		if c.Store.DatabaseURL == "" {
			missing = append(missing, "store.database_url is required")
		}
		if c.Trends.StartYear > c.Trends.EndYear {
			missing = append(missing, "trends.start_year must not exceed trends.end_year")
		}
		if c.Trends.RequestsPerMinute < 1 {
			missing = append(missing, "trends.requests_per_minute must be >= 1")
		}
	case "serve":
		checkShared()
		if c.Server.Port <= 0 {
			missing = append(missing, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(missing) > 0 {
		return eris.Errorf("config: invalid for %s mode: %s", mode, strings.Join(missing, "; "))
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("STEWARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "data-steward.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("population.nodata_fallback", -200.0)
	v.SetDefault("population.buffer_segments", 64)
	v.SetDefault("population.default_radius_m", 30000.0)
	v.SetDefault("population.concurrency", 4)
	v.SetDefault("trends.base_url", "https://trends.google.com")
	v.SetDefault("trends.geo", "UA")
	v.SetDefault("trends.locale", "uk-UA")
	v.SetDefault("trends.start_year", 2011)
	v.SetDefault("trends.end_year", 2025)
	v.SetDefault("trends.max_retries", 3)
	v.SetDefault("trends.requests_per_minute", 20)
	v.SetDefault("trends.timeout_secs", 30)
	v.SetDefault("trends.user_agent",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36")
	v.SetDefault("tasks.base_dir", "tasks")
	v.SetDefault("tasks.subfolders", []string{"Deliverables", "Incoming", "Working"})
	v.SetDefault("requests.date_column", "Requested Completion Date")
	v.SetDefault("requests.staff_column", "GIS Staff Assigned")
	v.SetDefault("tiles.ftp_timeout_secs", 30)
	v.SetDefault("tiles.dir", "population_rasters")
	v.SetDefault("mapsheet.scale_step", 5000.0)
	v.SetDefault("mapsheet.zoom_buffer_ratio", 0.1)

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
